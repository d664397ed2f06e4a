package model

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridlink/tagbridge/pkg/tag"
)

func simulatorDecls() []TagDecl {
	return []TagDecl{
		{ID: "numeric.random.double", Type: DataTypeFloat64},
		{ID: "numeric.random.int32", Type: DataTypeInt32},
	}
}

func TestSynthesizeCreatesNodesInOrder(t *testing.T) {
	space := NewAddressSpace(DefaultNamespace)

	nodes, err := Synthesize(space, simulatorDecls())
	require.NoError(t, err)
	require.Len(t, nodes, 2)

	assert.Equal(t, "numeric.random.double", nodes[0].TagID())
	assert.Equal(t, "numeric.random.int32", nodes[1].TagID())
	assert.Equal(t, "ns=2;s=numeric.random.double", nodes[0].ID().String())
	assert.True(t, space.Sealed())

	folder, ok := space.Folder(DefaultFolder)
	require.True(t, ok)
	assert.Equal(t, 2, folder.NodeCount())
	assert.Same(t, folder, nodes[0].Folder())

	n, err := space.Node("numeric.random.int32")
	require.NoError(t, err)
	assert.Same(t, nodes[1], n)
}

func TestSynthesizeDefaults(t *testing.T) {
	space := NewAddressSpace(3)
	nodes, err := Synthesize(space, []TagDecl{{ID: "a", Type: DataTypeBool}})
	require.NoError(t, err)

	meta := nodes[0].Metadata()
	assert.Equal(t, "a", meta.DisplayName)
	assert.Equal(t, "a", meta.BrowseName)
	assert.Equal(t, AccessReadOnly, meta.Access)
	assert.Equal(t, uint16(3), meta.ID.Namespace)

	snap := nodes[0].Snapshot()
	assert.False(t, snap.Initialized)
	assert.Equal(t, tag.QualityBad, snap.Quality)
	assert.True(t, snap.Value.Equal(tag.Bool(false)))
	assert.Equal(t, DefaultFolder, snap.Folder)
}

func TestSynthesizeCustomFolders(t *testing.T) {
	space := NewAddressSpace(DefaultNamespace)
	_, err := Synthesize(space, []TagDecl{
		{ID: "a", Type: DataTypeInt16, Folder: "Line1"},
		{ID: "b", Type: DataTypeInt16, Folder: "Line2"},
		{ID: "c", Type: DataTypeInt16, Folder: "Line1"},
	})
	require.NoError(t, err)

	folders := space.Folders()
	require.Len(t, folders, 2)
	assert.Equal(t, "Line1", folders[0].Name())
	assert.Equal(t, 2, folders[0].NodeCount())
	assert.Equal(t, "Line2", folders[1].Name())
}

func TestSynthesizeDuplicateTag(t *testing.T) {
	space := NewAddressSpace(DefaultNamespace)

	nodes, err := Synthesize(space, []TagDecl{
		{ID: "x", Type: DataTypeInt32},
		{ID: "x", Type: DataTypeFloat64},
	})
	assert.ErrorIs(t, err, ErrDuplicateTag)
	assert.Nil(t, nodes)

	// Nothing was created.
	assert.Equal(t, 0, space.NodeCount())
	assert.Empty(t, space.Folders())
	assert.False(t, space.Sealed())
}

func TestSynthesizeInvalidDeclaration(t *testing.T) {
	tests := []struct {
		name string
		decl TagDecl
	}{
		{"empty id", TagDecl{Type: DataTypeInt32}},
		{"no type", TagDecl{ID: "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			space := NewAddressSpace(DefaultNamespace)
			_, err := Synthesize(space, []TagDecl{{ID: "ok", Type: DataTypeBool}, tt.decl})
			assert.ErrorIs(t, err, ErrInvalidDeclaration)
			assert.Equal(t, 0, space.NodeCount())
		})
	}
}

func TestSynthesizeEmpty(t *testing.T) {
	space := NewAddressSpace(DefaultNamespace)
	nodes, err := Synthesize(space, nil)
	require.NoError(t, err)
	assert.Empty(t, nodes)
	assert.True(t, space.Sealed())
}

func TestSealedAddressSpace(t *testing.T) {
	space := NewAddressSpace(DefaultNamespace)
	_, err := Synthesize(space, simulatorDecls())
	require.NoError(t, err)

	_, err = Synthesize(space, []TagDecl{{ID: "late", Type: DataTypeBool}})
	assert.ErrorIs(t, err, ErrSealed)

	_, err = space.AddNode(TagDecl{ID: "late", Type: DataTypeBool})
	assert.ErrorIs(t, err, ErrSealed)
}

func TestAddNode(t *testing.T) {
	space := NewAddressSpace(DefaultNamespace)

	_, err := space.AddNode(TagDecl{ID: "a", Type: DataTypeString})
	require.NoError(t, err)

	_, err = space.AddNode(TagDecl{ID: "a", Type: DataTypeString})
	assert.ErrorIs(t, err, ErrDuplicateTag)

	_, err = space.Node("missing")
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestNodeWrite(t *testing.T) {
	space := NewAddressSpace(DefaultNamespace)
	nodes, err := Synthesize(space, simulatorDecls())
	require.NoError(t, err)

	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	now := ts.Add(time.Second)

	s := tag.Sample{Value: tag.Float(3.14), Timestamp: ts, Quality: tag.QualityGood}
	require.NoError(t, nodes[0].Write(s, now))

	snap := nodes[0].Snapshot()
	assert.True(t, snap.Initialized)
	assert.Equal(t, uint64(1), snap.Writes)
	assert.True(t, snap.Value.Equal(tag.Float(3.14)))
	assert.Equal(t, ts, snap.SourceTimestamp)
	assert.Equal(t, now, snap.ServerTimestamp)
	assert.Equal(t, tag.QualityGood, snap.Quality)
	assert.True(t, nodes[0].Sample().Equal(s))
}

func TestNodeWriteTypeChecks(t *testing.T) {
	space := NewAddressSpace(DefaultNamespace)
	nodes, err := Synthesize(space, simulatorDecls())
	require.NoError(t, err)
	double, int32Node := nodes[0], nodes[1]
	now := time.Now()

	// Float nodes accept integers and store them as floats.
	assert.NoError(t, double.Write(tag.Sample{Value: tag.Int(7), Quality: tag.QualityGood}, now))
	stored := double.Snapshot().Value
	assert.Equal(t, tag.KindFloat, stored.Kind())
	assert.True(t, stored.Equal(tag.Float(7)))
	assert.False(t, double.Differs(tag.Sample{Value: tag.Int(7), Quality: tag.QualityGood}))

	err = int32Node.Write(tag.Sample{Value: tag.Float(1.5)}, now)
	assert.ErrorIs(t, err, ErrNodeValueType)

	err = int32Node.Write(tag.Sample{Value: tag.Int(math.MaxInt32 + 1)}, now)
	assert.ErrorIs(t, err, ErrNodeOutOfRange)

	err = int32Node.Write(tag.Sample{}, now)
	assert.ErrorIs(t, err, ErrNodeValueType)

	// Rejected writes leave the node untouched.
	assert.False(t, int32Node.Initialized())
}

func TestFloat32Range(t *testing.T) {
	space := NewAddressSpace(DefaultNamespace)
	nodes, err := Synthesize(space, []TagDecl{{ID: "f", Type: DataTypeFloat32}})
	require.NoError(t, err)
	n := nodes[0]
	now := time.Now()

	err = n.Write(tag.Sample{Value: tag.Float(1e300)}, now)
	assert.ErrorIs(t, err, ErrNodeOutOfRange)
	err = n.Write(tag.Sample{Value: tag.Float(-1e300)}, now)
	assert.ErrorIs(t, err, ErrNodeOutOfRange)
	assert.False(t, n.Initialized())

	assert.NoError(t, n.Write(tag.Sample{Value: tag.Float(math.MaxFloat32)}, now))
	assert.NoError(t, n.Write(tag.Sample{Value: tag.Int(1 << 20)}, now))
	assert.True(t, n.Snapshot().Value.Equal(tag.Float(1<<20)))

	// Float64 nodes take any float.
	assert.NoError(t, DataTypeFloat64.Check(tag.Float(1e300)))
}

func TestNodeDiffers(t *testing.T) {
	space := NewAddressSpace(DefaultNamespace)
	nodes, err := Synthesize(space, []TagDecl{{ID: "a", Type: DataTypeInt64}})
	require.NoError(t, err)
	n := nodes[0]

	ts := time.Unix(100, 0)
	s := tag.Sample{Value: tag.Int(0), Timestamp: ts, Quality: tag.QualityBad}

	// Uninitialized nodes differ even from their zero value.
	assert.True(t, n.Differs(s))

	require.NoError(t, n.Write(s, time.Now()))
	assert.False(t, n.Differs(s))

	s.Quality = tag.QualityGood
	assert.True(t, n.Differs(s))
}

func TestNodeID(t *testing.T) {
	id, err := ParseNodeID("ns=2;s=numeric.random.double")
	require.NoError(t, err)
	assert.Equal(t, NodeID{Namespace: 2, Name: "numeric.random.double"}, id)
	assert.Equal(t, "ns=2;s=numeric.random.double", id.String())

	for _, bad := range []string{"", "ns=2", "s=x", "ns=abc;s=x", "ns=2;s=", "ns=70000;s=x"} {
		_, err := ParseNodeID(bad)
		assert.True(t, errors.Is(err, ErrInvalidNodeID), bad)
	}
}

func TestParseDataType(t *testing.T) {
	tests := map[string]DataType{
		"Double":  DataTypeFloat64,
		"float":   DataTypeFloat32,
		"Int32":   DataTypeInt32,
		"boolean": DataTypeBool,
		"byte":    DataTypeUint8,
		"string":  DataTypeString,
	}
	for in, want := range tests {
		got, err := ParseDataType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseDataType("decimal")
	assert.ErrorIs(t, err, ErrInvalidDeclaration)
}

func TestAccess(t *testing.T) {
	assert.Equal(t, "RS", AccessReadOnly.String())
	assert.Equal(t, "RWS", AccessReadWrite.String())
	assert.Equal(t, "-", Access(0).String())

	a, err := ParseAccess("read-write")
	require.NoError(t, err)
	assert.True(t, a.CanWrite())

	_, err = ParseAccess("admin")
	assert.Error(t, err)
}
