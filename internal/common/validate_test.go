package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleConfig struct {
	FeedURL  string `validate:"required,url"`
	Interval int    `validate:"gt=0"`
}

func TestValidateStruct(t *testing.T) {
	assert.NoError(t, ValidateStruct(sampleConfig{FeedURL: "https://gtfsrt.renfe.com/trip_updates.pb", Interval: 1}))

	err := ValidateStruct(sampleConfig{FeedURL: "not a url"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FeedURL: failed url")
	assert.Contains(t, err.Error(), "Interval: failed gt=0")
}
