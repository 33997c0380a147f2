package base

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuantity(t *testing.T) {
	t.Parallel()
	s := &Strategy{}
	assert.Equal(t, int64(DefaultQuantity), s.Quantity())
	require.NoError(t, s.SetQuantity(float64(5)))
	assert.Equal(t, int64(5), s.Quantity())
	require.NoError(t, s.SetQuantity(7))
	assert.Equal(t, int64(7), s.Quantity())
	require.NoError(t, s.SetQuantity(int64(2)))
	assert.Equal(t, int64(2), s.Quantity())

	assert.ErrorIs(t, s.SetQuantity(1.5), ErrInvalidCustomSettings)
	assert.ErrorIs(t, s.SetQuantity(-1), ErrInvalidCustomSettings)
	assert.ErrorIs(t, s.SetQuantity("ten"), ErrInvalidCustomSettings)
	assert.NoError(t, s.OnFill(nil, nil))
	assert.NoError(t, s.OnFinished(nil))
}

func TestParseFloat(t *testing.T) {
	t.Parallel()
	f, err := ParseFloat("k", 3)
	require.NoError(t, err)
	assert.Equal(t, 3.0, f)
	f, err = ParseFloat("k", int64(4))
	require.NoError(t, err)
	assert.Equal(t, 4.0, f)
	f, err = ParseFloat("k", 0.5)
	require.NoError(t, err)
	assert.Equal(t, 0.5, f)
	_, err = ParseFloat("k", 0.0)
	assert.ErrorIs(t, err, ErrInvalidCustomSettings)
	_, err = ParseFloat("k", true)
	assert.ErrorIs(t, err, ErrInvalidCustomSettings)
}
