package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalysisJSON(t *testing.T) {
	in := Analysis{
		VideoID:    "abc",
		SearchName: "migraine",
		Payload:    News{Headline: "new treatment", Summary: "trial results"},
	}
	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"video_type":"news"`)

	var out Analysis
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestAnalysisNilPayload(t *testing.T) {
	data, err := json.Marshal(Analysis{VideoID: "abc"})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"video_type":"other"`)
}

func TestDecodePayloadUnknown(t *testing.T) {
	_, err := DecodePayload("podcast", []byte(`{}`))
	assert.Error(t, err)
}

func TestDecodePayloadMissingDetails(t *testing.T) {
	p, err := DecodePayload(TypePatientStory, nil)
	require.NoError(t, err)
	assert.Equal(t, PatientStory{}, p)
}
