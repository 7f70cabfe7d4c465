package model

import (
	"encoding/json"
	"fmt"
)

type VideoType string

const (
	TypePatientStory VideoType = "patient_story"
	TypeKOLInterview VideoType = "kol_interview"
	TypeNews         VideoType = "news"
	TypeInformation  VideoType = "information"
	TypeOther        VideoType = "other"
)

// Payload is the category specific part of an Analysis.
type Payload interface {
	VideoType() VideoType
}

type PatientStory struct {
	Name                 string   `json:"name,omitempty"`
	CurrentAge           string   `json:"current_age,omitempty"`
	OnsetAge             string   `json:"onset_age,omitempty"`
	Sex                  string   `json:"sex,omitempty"`
	Location             string   `json:"location,omitempty"`
	Symptoms             []string `json:"symptoms"`
	MedicalHistory       string   `json:"medical_history_of_patient,omitempty"`
	FamilyMedicalHistory string   `json:"family_medical_history,omitempty"`
	DiagnosisChallenges  []string `json:"challenges_faced_during_diagnosis"`
}

func (PatientStory) VideoType() VideoType { return TypePatientStory }

type KOLInterview struct {
	Name       string `json:"name,omitempty"`
	KeyOpinion string `json:"key_opinion"`
}

func (KOLInterview) VideoType() VideoType { return TypeKOLInterview }

type News struct {
	Headline string `json:"headline"`
	Summary  string `json:"summary_of_news"`
}

func (News) VideoType() VideoType { return TypeNews }

type Information struct {
	Topic   string `json:"topic_of_information"`
	Details string `json:"details_of_information"`
}

func (Information) VideoType() VideoType { return TypeInformation }

type Other struct {
	Reason string `json:"reason,omitempty"`
}

func (Other) VideoType() VideoType { return TypeOther }

// Analysis is the classification of one video. On the wire the payload is
// nested under "details" and selected by "video_type".
type Analysis struct {
	VideoID    YoutubeVideoID
	SearchName string
	Payload    Payload
}

type analysisJSON struct {
	VideoID    YoutubeVideoID  `json:"video_id"`
	SearchName string          `json:"search_name"`
	VideoType  VideoType       `json:"video_type"`
	Details    json.RawMessage `json:"details"`
}

func (a Analysis) MarshalJSON() ([]byte, error) {
	payload := a.Payload
	if payload == nil {
		payload = Other{}
	}
	details, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return json.Marshal(analysisJSON{
		VideoID:    a.VideoID,
		SearchName: a.SearchName,
		VideoType:  payload.VideoType(),
		Details:    details,
	})
}

func (a *Analysis) UnmarshalJSON(data []byte) error {
	var raw analysisJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	payload, err := DecodePayload(raw.VideoType, raw.Details)
	if err != nil {
		return err
	}
	a.VideoID = raw.VideoID
	a.SearchName = raw.SearchName
	a.Payload = payload

	return nil
}

// DecodePayload decodes details into the payload shape registered for vt.
func DecodePayload(vt VideoType, details []byte) (Payload, error) {
	var payload Payload
	switch vt {
	case TypePatientStory:
		p := PatientStory{}
		if err := unmarshalDetails(details, &p); err != nil {
			return nil, err
		}
		payload = p
	case TypeKOLInterview:
		p := KOLInterview{}
		if err := unmarshalDetails(details, &p); err != nil {
			return nil, err
		}
		payload = p
	case TypeNews:
		p := News{}
		if err := unmarshalDetails(details, &p); err != nil {
			return nil, err
		}
		payload = p
	case TypeInformation:
		p := Information{}
		if err := unmarshalDetails(details, &p); err != nil {
			return nil, err
		}
		payload = p
	case TypeOther:
		p := Other{}
		if err := unmarshalDetails(details, &p); err != nil {
			return nil, err
		}
		payload = p
	default:
		return nil, fmt.Errorf("unknown video type %q", vt)
	}

	return payload, nil
}

func unmarshalDetails(details []byte, v any) error {
	if len(details) == 0 || string(details) == "null" {
		return nil
	}
	if err := json.Unmarshal(details, v); err != nil {
		return fmt.Errorf("invalid details: %w", err)
	}
	return nil
}
