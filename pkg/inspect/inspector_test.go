package inspect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridlink/tagbridge/pkg/model"
	"github.com/gridlink/tagbridge/pkg/store"
	"github.com/gridlink/tagbridge/pkg/tag"
)

func testSpace(t *testing.T) (*model.AddressSpace, *store.Store) {
	t.Helper()
	space := model.NewAddressSpace(2)
	_, err := model.Synthesize(space, []model.TagDecl{
		{ID: "numeric.random.double", Type: model.DataTypeFloat64},
		{ID: "numeric.random.int32", Type: model.DataTypeInt32},
		{ID: "line/2.speed", Type: model.DataTypeInt32, Folder: "Line2"},
	})
	require.NoError(t, err)
	return space, store.New()
}

func TestInspectSpace(t *testing.T) {
	space, st := testSpace(t)
	tree := NewInspector(space, st).InspectSpace()

	assert.Equal(t, uint16(2), tree.Namespace)
	require.Len(t, tree.Folders, 2)
	assert.Equal(t, "DA_Data", tree.Folders[0].Name)
	assert.Len(t, tree.Folders[0].Nodes, 2)
	assert.Equal(t, "Line2", tree.Folders[1].Name)
}

func TestInspectFolder(t *testing.T) {
	space, st := testSpace(t)
	insp := NewInspector(space, st)

	info, err := insp.InspectFolder("Line2")
	require.NoError(t, err)
	assert.Equal(t, "line/2.speed", info.Nodes[0].TagID)

	_, err = insp.InspectFolder("Nope")
	assert.ErrorIs(t, err, ErrFolderNotFound)
}

func TestResolve(t *testing.T) {
	space, st := testSpace(t)
	insp := NewInspector(space, st)

	tests := []struct {
		input string
		tagID string
	}{
		{"numeric.random.double", "numeric.random.double"},
		{"DA_Data/numeric.random.int32", "numeric.random.int32"},
		{"ns=2;s=numeric.random.int32", "numeric.random.int32"},
		{"line/2.speed", "line/2.speed"},
		{"Line2/line/2.speed", "line/2.speed"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			n, err := insp.ResolveString(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.tagID, n.TagID())
		})
	}

	for _, bad := range []string{"missing", "Line2/numeric.random.double", "ns=3;s=numeric.random.double", "DA_Data/"} {
		_, err := insp.ResolveString(bad)
		assert.ErrorIs(t, err, ErrNodeNotFound, bad)
	}
}

func TestCompare(t *testing.T) {
	space, st := testSpace(t)
	insp := NewInspector(space, st)
	n, err := space.Node("numeric.random.double")
	require.NoError(t, err)

	c := insp.Compare(n)
	assert.False(t, c.InStore)
	assert.False(t, c.InSync)

	ts := time.Unix(1700000000, 0)
	st.Update("numeric.random.double", tag.Float(1.5), ts, tag.QualityGood)
	c = insp.Compare(n)
	assert.True(t, c.InStore)
	assert.False(t, c.InSync, "not yet synced")

	sample, _ := st.Get("numeric.random.double")
	require.NoError(t, n.Write(sample, time.Now()))
	c = insp.Compare(n)
	assert.True(t, c.InSync)
	assert.Equal(t, uint64(1), c.Node.Writes)

	// An integer stored for a float node is in sync once written.
	st.Update("numeric.random.double", tag.Int(3), ts, tag.QualityGood)
	sample, _ = st.Get("numeric.random.double")
	require.NoError(t, n.Write(sample, time.Now()))
	assert.True(t, insp.Compare(n).InSync)
}

func TestUnbound(t *testing.T) {
	space, st := testSpace(t)
	st.Update("numeric.random.double", tag.Float(1.5), time.Now(), tag.QualityGood)
	st.Update("extra.tag", tag.Int(1), time.Now(), tag.QualityGood)

	assert.Equal(t, []string{"extra.tag"}, NewInspector(space, st).Unbound())
	assert.Nil(t, NewInspector(space, nil).Unbound())
}
