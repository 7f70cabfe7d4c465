// Package config reads the search settings file and merges it with the
// values given on the command line.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"ewintr.nl/vidharvest/fetch"
	"ewintr.nl/vidharvest/model"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPath         = "config.yaml"
	DefaultMaxResults   = 50
	DefaultMinViewCount = 1
	DefaultMinDuration  = 60
	DefaultHasContent   = true
	dateLayout          = "2006-01-02"
)

// StringList accepts both a YAML sequence and a comma separated scalar.
type StringList []string

func (l *StringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*l = splitList(value.Value)
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := value.Decode(&items); err != nil {
			return err
		}
		*l = items
		return nil
	default:
		return fmt.Errorf("line %d: expected a list or a string", value.Line)
	}
}

// Settings is the YAML settings file. Pointer fields distinguish an absent
// key from a zero value.
type Settings struct {
	SearchName           string     `yaml:"searchName"`
	Disease              string     `yaml:"disease"`
	SearchTerms          StringList `yaml:"searchTerms"`
	ExclusionTerms       StringList `yaml:"exclusionTerms"`
	ChannelName          StringList `yaml:"channelName"`
	MaxResults           int        `yaml:"maxResults"`
	OutputFile           string     `yaml:"outputFile"`
	VideoIDsFile         string     `yaml:"videoIdsFile"`
	StartDate            string     `yaml:"startDate"`
	EndDate              string     `yaml:"endDate"`
	MinViewCount         *int64     `yaml:"minViewCount"`
	MinDuration          *int       `yaml:"minDuration"`
	HasContent           *bool      `yaml:"hasContent"`
	ChannelFailurePolicy string     `yaml:"channelFailurePolicy"`
	ResetOutput          bool       `yaml:"resetOutput"`

	Found bool `yaml:"-"`
}

// Load reads the settings file at path. A missing file is not an error: the
// returned settings are empty and Found is false.
func Load(path string, logger *slog.Logger) (Settings, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn("config file not found, using defaults", slog.String("file", path))
		return Settings{}, nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("read config file %s: %w", path, err)
	}

	var settings Settings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return Settings{}, fmt.Errorf("parse config file %s: %w", path, err)
	}
	settings.Found = true
	logger.Debug("loaded config file", slog.String("file", path))

	return settings, nil
}

// Overrides are the values given on the command line. Nil means not given.
type Overrides struct {
	SearchName           *string
	Disease              *string
	SearchPhrases        []string
	Channels             []string
	MaxResults           *int
	OutputFile           *string
	VideoIDsFile         *string
	StartDate            *string
	EndDate              *string
	MinViewCount         *int64
	MinDuration          *int
	HasContent           *bool
	ChannelFailurePolicy *string
	ResetOutput          *bool
}

// Config is the merged result of settings, overrides and defaults.
type Config struct {
	SearchName           string
	SearchPhrases        []string
	SearchTerms          []string
	ExclusionTerms       []string
	Channels             []model.YoutubeChannelID
	MaxResults           int
	OutputFile           string
	VideoIDsFile         string
	StartDate            time.Time
	EndDate              time.Time
	MinViewCount         int64
	MinDuration          int
	HasContent           bool
	ChannelFailurePolicy string
	ResetOutput          bool
}

// Resolve merges o over s field by field and fills in the defaults.
func (s Settings) Resolve(o Overrides) (Config, error) {
	conf := Config{
		SearchName:           firstNonEmpty(deref(o.SearchName), deref(o.Disease), s.SearchName, s.Disease),
		SearchPhrases:        o.SearchPhrases,
		SearchTerms:          s.SearchTerms,
		ExclusionTerms:       s.ExclusionTerms,
		MaxResults:           pick(o.MaxResults, s.MaxResults),
		OutputFile:           pick(o.OutputFile, s.OutputFile),
		VideoIDsFile:         pick(o.VideoIDsFile, s.VideoIDsFile),
		MinViewCount:         pick(o.MinViewCount, pick(s.MinViewCount, DefaultMinViewCount)),
		MinDuration:          pick(o.MinDuration, pick(s.MinDuration, DefaultMinDuration)),
		HasContent:           pick(o.HasContent, pick(s.HasContent, DefaultHasContent)),
		ChannelFailurePolicy: pick(o.ChannelFailurePolicy, s.ChannelFailurePolicy),
		ResetOutput:          pick(o.ResetOutput, s.ResetOutput),
	}
	if conf.MaxResults == 0 {
		conf.MaxResults = DefaultMaxResults
	}
	if conf.MaxResults < 0 {
		return Config{}, fmt.Errorf("max results must not be negative, got %d", conf.MaxResults)
	}

	channels := s.ChannelName
	if len(o.Channels) > 0 {
		channels = o.Channels
	}
	for _, channel := range channels {
		if channel = strings.TrimSpace(channel); channel != "" {
			conf.Channels = append(conf.Channels, model.YoutubeChannelID(channel))
		}
	}

	var err error
	if conf.StartDate, err = parseDate("start date", pick(o.StartDate, s.StartDate)); err != nil {
		return Config{}, err
	}
	if conf.EndDate, err = parseDate("end date", pick(o.EndDate, s.EndDate)); err != nil {
		return Config{}, err
	}
	if !conf.StartDate.IsZero() && !conf.EndDate.IsZero() && conf.EndDate.Before(conf.StartDate) {
		return Config{}, fmt.Errorf("end date %s is before start date %s", conf.EndDate.Format(dateLayout), conf.StartDate.Format(dateLayout))
	}

	return conf, nil
}

func (c Config) FetchOptions() fetch.Options {
	return fetch.Options{
		MaxResults:   c.MaxResults,
		StartDate:    c.StartDate,
		EndDate:      c.EndDate,
		MinViewCount: c.MinViewCount,
		MinDuration:  c.MinDuration,
		HasContent:   c.HasContent,
	}
}

// SplitList splits a comma separated flag value and drops empty items.
func SplitList(s string) []string {
	return splitList(s)
}

func splitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func parseDate(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q, expected YYYY-MM-DD: %w", name, value, err)
	}
	return t, nil
}

func pick[T any](override *T, fallback T) T {
	if override != nil {
		return *override
	}
	return fallback
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
