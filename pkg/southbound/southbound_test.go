package southbound

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/gridlink/tagbridge/pkg/tag"
)

func TestFailed(t *testing.T) {
	results := []ItemResult{
		{TagID: "a"},
		{TagID: "b", Err: ErrUnknownTag},
		{TagID: "c", Err: errors.New("boom")},
	}

	failed := Failed(results)
	assert.Len(t, failed, 2)
	assert.Equal(t, "b", failed[0].TagID)
	assert.True(t, results[0].OK())
	assert.Empty(t, Failed(nil))
}

func TestDeliverable(t *testing.T) {
	now := time.Now()
	in := []tag.Update{
		tag.NewUpdate("a", tag.Int(1), now, tag.QualityGood),
		tag.NewUpdate("", tag.Int(2), now, tag.QualityGood),
		{TagID: "c"},
		tag.NewUpdate("d", tag.String(""), now, tag.QualityUncertain),
	}

	out := Deliverable(in)
	assert.Len(t, out, 2)
	assert.Equal(t, "a", out[0].TagID)
	assert.Equal(t, "d", out[1].TagID)

	// Input slice is not modified.
	assert.Equal(t, "", in[1].TagID)
	assert.Equal(t, "c", in[2].TagID)
}
