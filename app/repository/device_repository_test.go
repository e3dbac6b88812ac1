package repository

import (
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var meterIDPattern = regexp.MustCompile(`^MTR\d{7}$`)

func TestGenerateMeterIDFormat(t *testing.T) {
	id, err := generateMeterID(func(string) (bool, error) { return false, nil })
	require.NoError(t, err)
	assert.Regexp(t, meterIDPattern, id)
}

// Colliding draws are discarded and generation keeps going until an unused
// id comes up.
func TestGenerateMeterIDRetriesOnCollision(t *testing.T) {
	var drawn []string
	id, err := generateMeterID(func(candidate string) (bool, error) {
		drawn = append(drawn, candidate)
		return len(drawn) <= 2, nil
	})

	require.NoError(t, err)
	require.Len(t, drawn, 3)
	assert.Equal(t, drawn[2], id, "the first unused draw wins")
	for _, candidate := range drawn {
		assert.Regexp(t, meterIDPattern, candidate, "every draw keeps the meter id shape")
	}
}

func TestGenerateMeterIDPropagatesLookupError(t *testing.T) {
	lookupErr := errors.New("directory unavailable")
	_, err := generateMeterID(func(string) (bool, error) { return false, lookupErr })
	assert.ErrorIs(t, err, lookupErr)
}
