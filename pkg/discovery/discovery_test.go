package discovery

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBridgeTXTRoundTrip(t *testing.T) {
	info := &BridgeInfo{
		Instance:  "plant-gw",
		Port:      4840,
		Version:   "1.2.0",
		Namespace: 2,
		Folders:   []string{"DA_Data", "Line2"},
		Tags:      7,
	}

	strs := TXTRecordsToStrings(EncodeBridgeTXT(info))
	assert.Equal(t, []string{"folder=DA_Data,Line2", "ns=2", "tags=7", "ver=1.2.0"}, strs)

	got, err := DecodeBridgeTXT(StringsToTXTRecords(strs))
	require.NoError(t, err)
	assert.Equal(t, info.Version, got.Version)
	assert.Equal(t, info.Namespace, got.Namespace)
	assert.Equal(t, info.Folders, got.Folders)
	assert.Equal(t, info.Tags, got.Tags)
}

func TestDecodeBridgeTXTErrors(t *testing.T) {
	tests := []struct {
		name string
		txt  TXTRecordMap
		want error
	}{
		{"missing ns", TXTRecordMap{"tags": "1"}, ErrMissingRequired},
		{"bad ns", TXTRecordMap{"ns": "x"}, ErrInvalidTXTRecord},
		{"ns overflow", TXTRecordMap{"ns": "70000"}, ErrInvalidTXTRecord},
		{"bad tags", TXTRecordMap{"ns": "2", "tags": "-1"}, ErrInvalidTXTRecord},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeBridgeTXT(tt.txt)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestStringsToTXTRecords(t *testing.T) {
	txt := StringsToTXTRecords([]string{"a=1", "flag", "b=x=y", ""})
	assert.Equal(t, TXTRecordMap{"a": "1", "flag": "", "b": "x=y"}, txt)
}

func TestBridgeInfoValidate(t *testing.T) {
	assert.ErrorIs(t, (&BridgeInfo{Port: 1}).Validate(), ErrMissingRequired)
	assert.ErrorIs(t, (&BridgeInfo{Instance: "x"}).Validate(), ErrMissingRequired)
	assert.ErrorIs(t, (&BridgeInfo{Instance: strings.Repeat("x", 64), Port: 1}).Validate(), ErrInstanceNameTooLong)
	assert.NoError(t, (&BridgeInfo{Instance: "x", Port: 1}).Validate())

	assert.Len(t, InstanceName(strings.Repeat("x", 100)), MaxInstanceNameLen)
	assert.Equal(t, "short", InstanceName("short"))
}

func TestNewBridgeService(t *testing.T) {
	svc, err := newBridgeService("gw", "gw.local.", 4840, []string{"ns=3", "tags=2"}, []string{"fe80::1", "10.0.0.5"})
	require.NoError(t, err)
	assert.Equal(t, "gw", svc.Instance)
	assert.Equal(t, uint16(4840), svc.Port)
	assert.Equal(t, uint16(3), svc.Namespace)
	assert.Equal(t, "http://[fe80::1]:4840", svc.URL())

	svc.Addresses = nil
	assert.Equal(t, "http://gw.local:4840", svc.URL())

	_, err = newBridgeService("gw", "h", 0, []string{"ns=3"}, nil)
	assert.ErrorIs(t, err, ErrInvalidTXTRecord)

	_, err = newBridgeService("gw", "h", 1, nil, nil)
	assert.ErrorIs(t, err, ErrMissingRequired)
}

func TestAddressMerging(t *testing.T) {
	addrs := mergeAddresses([]string{"10.0.0.1"}, []string{"10.0.0.1", "10.0.0.2"})
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, addrs)
	assert.Equal(t, []string{"10.0.0.2"}, removeAddresses(addrs, []string{"10.0.0.1"}))
}

func TestAdvertiserStopWithoutAdvertise(t *testing.T) {
	adv := NewMDNSAdvertiser(DefaultAdvertiserConfig())
	assert.ErrorIs(t, adv.Stop(), ErrNotAdvertising)
	assert.Nil(t, adv.Info())
	assert.Error(t, adv.Advertise(t.Context(), &BridgeInfo{}))
}
