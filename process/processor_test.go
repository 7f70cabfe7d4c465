package process

import (
	"context"
	"errors"
	"testing"

	"ewintr.nl/vidharvest/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClassifier struct {
	payloads map[model.YoutubeVideoID]model.Payload
}

func (f *fakeClassifier) Name() string { return "fake" }

func (f *fakeClassifier) Classify(_ context.Context, video model.Video) (model.Payload, error) {
	p, ok := f.payloads[video.ID]
	if !ok {
		return nil, errors.New("no answer")
	}
	return p, nil
}

func TestAnalyzerSkipsFailures(t *testing.T) {
	classifier := &fakeClassifier{payloads: map[model.YoutubeVideoID]model.Payload{
		"a": model.News{Headline: "h"},
		"c": model.KOLInterview{KeyOpinion: "k"},
	}}
	videos := []model.Video{
		{ID: "a", SearchName: "migraine"},
		{ID: "b", SearchName: "migraine"},
		{ID: "c", SearchName: "migraine"},
	}

	analyses := NewAnalyzer(classifier, discardLogger()).Analyze(context.Background(), videos)
	require.Len(t, analyses, 2)
	assert.Equal(t, model.YoutubeVideoID("a"), analyses[0].VideoID)
	assert.Equal(t, "migraine", analyses[0].SearchName)
	assert.Equal(t, model.KOLInterview{KeyOpinion: "k"}, analyses[1].Payload)
}

func TestParseClassification(t *testing.T) {
	for _, tc := range []struct {
		name    string
		content string
		exp     model.Payload
	}{
		{
			name:    "patient story",
			content: `{"video_type":"patient_story","details":{"name":"Ann","symptoms":["aura"],"challenges_faced_during_diagnosis":[]}}`,
			exp:     model.PatientStory{Name: "Ann", Symptoms: []string{"aura"}, DiagnosisChallenges: []string{}},
		},
		{
			name:    "fenced",
			content: "```json\n{\"video_type\":\"news\",\"details\":{\"headline\":\"h\",\"summary_of_news\":\"s\"}}\n```",
			exp:     model.News{Headline: "h", Summary: "s"},
		},
		{
			name:    "unknown type",
			content: `{"video_type":"podcast","details":{}}`,
			exp:     model.Other{Reason: `unknown video type "podcast"`},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseClassification(tc.content)
			require.NoError(t, err)
			assert.Equal(t, tc.exp, got)
		})
	}
}

func TestParseClassificationInvalid(t *testing.T) {
	_, err := ParseClassification("I think this is a news video")
	assert.Error(t, err)
}
