package process

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"ewintr.nl/vidharvest/model"
	"github.com/sashabaranov/go-openai"
)

const classifyPrompt = `You are a helpful assistant that classifies health related videos for the search %q.
Decide which one of these types the video is: patient_story, kol_interview, news, information, other.
Answer with a single JSON object and nothing else, in the form {"video_type": "<type>", "details": {...}}.
Details per type:
- patient_story: name, current_age, onset_age, sex, location, symptoms (list), medical_history_of_patient, family_medical_history, challenges_faced_during_diagnosis (list)
- kol_interview: name, key_opinion
- news: headline, summary_of_news
- information: topic_of_information, details_of_information
- other: reason
Leave out fields that the video does not mention.`

type OpenAIClassifier struct {
	client *openai.Client
	model  string
}

func NewOpenAIClassifier(client *openai.Client) *OpenAIClassifier {
	return &OpenAIClassifier{
		client: client,
		model:  openai.GPT4,
	}
}

func (c *OpenAIClassifier) Name() string {
	return "openai classifier"
}

func (c *OpenAIClassifier) Classify(ctx context.Context, video model.Video) (model.Payload, error) {
	resp, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: fmt.Sprintf(classifyPrompt, video.SearchName),
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: fmt.Sprintf("%s\n\n%s", video.Title, video.Description),
				},
			},
		})
	if err != nil {
		return nil, fmt.Errorf("failed to classify video: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("failed to classify video: empty response")
	}

	return ParseClassification(resp.Choices[len(resp.Choices)-1].Message.Content)
}

// ParseClassification reads the JSON answer of the model. Code fences around
// the object are ignored. An answer that does not fit one of the payloads
// becomes model.Other.
func ParseClassification(content string) (model.Payload, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var answer struct {
		VideoType model.VideoType `json:"video_type"`
		Details   json.RawMessage `json:"details"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &answer); err != nil {
		return nil, fmt.Errorf("invalid classification: %w", err)
	}

	payload, err := model.DecodePayload(answer.VideoType, answer.Details)
	if err != nil {
		return model.Other{Reason: err.Error()}, nil
	}

	return payload, nil
}
