package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classlens/classlens/internal/domain/dimension"
)

func f(v float64) *float64 { return &v }

func TestNew_Valid(t *testing.T) {
	c, err := New("c1", "Struggling", "students below passing scores", []Range{
		{Key: dimension.UnitKey("u1"), High: f(0.4)},
	})
	require.NoError(t, err)
	assert.Equal(t, ID("c1"), c.ID)
	assert.Len(t, c.Ranges, 1)
}

func TestNew_NameRequired(t *testing.T) {
	_, err := New("c1", "", "", nil)
	assert.ErrorIs(t, err, ErrEmptyName)
}

func TestNew_RejectsInvertedRange(t *testing.T) {
	_, err := New("c1", "bad", "", []Range{
		{Key: dimension.UnitKey("u1"), Low: f(10), High: f(5)},
	})
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestNew_DropsUnboundedRanges(t *testing.T) {
	c, err := New("c1", "sparse", "", []Range{
		{Key: dimension.UnitKey("u1")},
		{Key: dimension.LessonKey("l1"), Low: f(0.5)},
		{Key: dimension.UnitKey("u2")},
	})
	require.NoError(t, err)
	require.Len(t, c.Ranges, 1, "ranges with neither bound are dropped before persistence")
	assert.Equal(t, dimension.LessonKey("l1"), c.Ranges[0].Key)
}

func TestNew_EqualBoundsAllowed(t *testing.T) {
	c, err := New("c1", "exact", "", []Range{
		{Key: dimension.UnitKey("u1"), Low: f(1), High: f(1)},
	})
	require.NoError(t, err)
	assert.True(t, c.Ranges[0].Contains(1))
	assert.False(t, c.Ranges[0].Contains(1.01))
}

func TestRange_Contains(t *testing.T) {
	r := Range{Key: dimension.UnitKey("u1"), Low: f(10), High: f(20)}
	assert.True(t, r.Contains(10))
	assert.True(t, r.Contains(15))
	assert.True(t, r.Contains(20))
	assert.False(t, r.Contains(9.99))
	assert.False(t, r.Contains(25))

	lowOnly := Range{Key: dimension.UnitKey("u1"), Low: f(10)}
	assert.True(t, lowOnly.Contains(1e12))

	highOnly := Range{Key: dimension.UnitKey("u1"), High: f(10)}
	assert.True(t, highOnly.Contains(-1e12))
}

func TestRange_ValidateRequiresKey(t *testing.T) {
	r := Range{Low: f(1)}
	assert.ErrorIs(t, r.Validate(), ErrInvalidKey)
}
