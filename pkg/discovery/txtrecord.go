package discovery

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeBridgeTXT creates the TXT records of a bridge.
func EncodeBridgeTXT(info *BridgeInfo) TXTRecordMap {
	txt := TXTRecordMap{
		TXTKeyNamespace: strconv.FormatUint(uint64(info.Namespace), 10),
		TXTKeyTags:      strconv.Itoa(info.Tags),
	}
	if info.Version != "" {
		txt[TXTKeyVersion] = info.Version
	}
	if len(info.Folders) > 0 {
		txt[TXTKeyFolders] = strings.Join(info.Folders, ",")
	}
	return txt
}

// DecodeBridgeTXT parses the TXT records of a bridge.
func DecodeBridgeTXT(txt TXTRecordMap) (*BridgeInfo, error) {
	info := &BridgeInfo{Version: txt[TXTKeyVersion]}

	nsStr, ok := txt[TXTKeyNamespace]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyNamespace)
	}
	ns, err := strconv.ParseUint(nsStr, 10, 16)
	if err != nil {
		return nil, fmt.Errorf("%w: %s=%q", ErrInvalidTXTRecord, TXTKeyNamespace, nsStr)
	}
	info.Namespace = uint16(ns)

	if tagsStr, ok := txt[TXTKeyTags]; ok {
		n, err := strconv.Atoi(tagsStr)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: %s=%q", ErrInvalidTXTRecord, TXTKeyTags, tagsStr)
		}
		info.Tags = n
	}

	if folders := txt[TXTKeyFolders]; folders != "" {
		info.Folders = strings.Split(folders, ",")
	}
	return info, nil
}

// TXTRecordsToStrings converts a TXTRecordMap to sorted "key=value" strings.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, k+"="+v)
	}
	sort.Strings(result)
	return result
}

// StringsToTXTRecords parses "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		k, v, found := strings.Cut(s, "=")
		if !found && k == "" {
			continue
		}
		txt[k] = v
	}
	return txt
}
