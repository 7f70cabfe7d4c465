// Package harvest runs a search as a general pass followed by one pass per
// channel and records what was searched for.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"ewintr.nl/vidharvest/fetch"
	"ewintr.nl/vidharvest/model"
	"ewintr.nl/vidharvest/process"
	"ewintr.nl/vidharvest/query"
	"ewintr.nl/vidharvest/sink"
	"ewintr.nl/vidharvest/storage"
)

var ErrMissingSearchName = errors.New("search name is required")

type Fetcher interface {
	Fetch(ctx context.Context, query string, opts fetch.Options, consumer fetch.PageConsumer) (int, error)
}

// Request describes a search run. When Phrases is set it replaces Include
// and Exclude; a phrase starting with "-" is an exclusion. Without any
// inclusion terms the search name itself is used.
type Request struct {
	SearchName  string
	Phrases     []string
	Include     []string
	Exclude     []string
	Channels    []model.YoutubeChannelID
	Options     fetch.Options
	Policy      ChannelFailurePolicy
	ResetOutput bool
}

func (r Request) terms() ([]string, []string) {
	if len(r.Phrases) > 0 {
		return query.SplitPhrases(r.Phrases)
	}
	include := r.Include
	if len(include) == 0 {
		include = []string{r.SearchName}
	}
	return include, r.Exclude
}

type Report struct {
	State          State
	Query          string
	Expression     string
	UniqueMetadata int
	UniqueIDs      int
	Accumulator
}

type Harvester struct {
	fetcher  Fetcher
	lookup   fetch.Lookup
	filter   *process.RelevanceFilter
	sink     *sink.Sink
	recorder storage.SearchDefinitionRepository
	state    State
	logger   *slog.Logger
}

// New returns a harvester. lookup and recorder may be nil when the run does
// not need them.
func New(fetcher Fetcher, lookup fetch.Lookup, out *sink.Sink, recorder storage.SearchDefinitionRepository, logger *slog.Logger) *Harvester {
	return &Harvester{
		fetcher:  fetcher,
		lookup:   lookup,
		filter:   process.NewRelevanceFilter(logger),
		sink:     out,
		recorder: recorder,
		state:    StateIdle,
		logger:   logger,
	}
}

func (h *Harvester) State() State { return h.state }

func (h *Harvester) transition(to State) {
	h.logger.Debug("state change", slog.String("from", h.state.String()), slog.String("to", to.String()))
	h.state = to
}

// Run executes the general pass, then the channel passes one by one, and on
// success records the search definition. The returned report holds the
// accumulated results also when the run failed.
func (h *Harvester) Run(ctx context.Context, req Request) (Report, error) {
	h.state = StateIdle
	report := Report{}
	fail := func(err error) (Report, error) {
		h.transition(StateFailed)
		report.State = h.state
		return report, err
	}

	if req.SearchName == "" {
		return fail(ErrMissingSearchName)
	}
	policy, err := ParsePolicy(string(req.Policy))
	if err != nil {
		return fail(err)
	}
	if err := h.sink.Prepare(req.ResetOutput); err != nil {
		return fail(fmt.Errorf("prepare output: %w", err))
	}

	include, exclude := req.terms()
	report.Query = query.Construct(req.SearchName, include, exclude)
	report.Expression = query.Expression(req.Phrases, include, exclude)

	h.transition(StateGeneralPass)
	h.logger.Info("fetching videos", slog.String("query", report.Query), slog.Int("maxresults", req.Options.MaxResults))
	res, err := h.pass(ctx, req.SearchName, report.Query, req.Options)
	report.Accumulator = report.Accumulator.Add(res)
	if err != nil {
		return fail(fmt.Errorf("general pass: %w", err))
	}
	h.logger.Info("completed general pass", slog.String("query", report.Query), slog.Int("retained", res.Retained))

	for _, channelID := range req.Channels {
		h.transition(StateChannelPass)
		h.logger.Info("fetching videos from channel", slog.String("channelid", string(channelID)), slog.String("query", report.Query))
		res, err := h.pass(ctx, req.SearchName, report.Query, req.Options.WithChannel(channelID))
		report.Accumulator = report.Accumulator.Add(res)
		if err != nil {
			var pageErr *fetch.PageError
			if policy == PolicyContinue && errors.As(err, &pageErr) && ctx.Err() == nil {
				h.logger.Error("channel pass failed, continuing", slog.String("channelid", string(channelID)), slog.Any("error", err))
				continue
			}
			return fail(fmt.Errorf("channel pass %s: %w", channelID, err))
		}
		h.logger.Info("completed channel pass", slog.String("channelid", string(channelID)), slog.Int("retained", res.Retained))
	}

	if h.recorder != nil {
		if err := h.recorder.UpsertSearchDefinition(ctx, model.SearchDefinition{
			SearchName: req.SearchName,
			UserID:     model.DefaultUserID,
			Expression: report.Expression,
		}); err != nil {
			return fail(fmt.Errorf("record search definition: %w", err))
		}
		h.logger.Info("recorded search definition", slog.String("searchname", req.SearchName), slog.String("expression", report.Expression))
	}

	h.transition(StateDone)
	report.State = h.state
	report.UniqueMetadata, report.UniqueIDs = h.sink.Totals()
	h.logger.Info("search finished", slog.Int("total", report.Total), slog.Int("passes", len(report.Passes)), slog.Int("failedpasses", len(report.Failed())), slog.Int("uniquemetadata", report.UniqueMetadata), slog.Int("uniqueids", report.UniqueIDs))

	return report, nil
}

// pass runs one fetch with the relevance filter and the sink as consumer.
func (h *Harvester) pass(ctx context.Context, searchName, q string, opts fetch.Options) (PassResult, error) {
	res := PassResult{ChannelID: opts.ChannelID}
	consumer := fetch.PageFunc(func(ctx context.Context, videos []model.Video) (int, error) {
		kept, dropped := h.filter.Apply(searchName, videos)
		res.Dropped += len(dropped)
		for i := range kept {
			kept[i].SearchName = searchName
		}
		out, err := h.sink.Write(ctx, kept)
		res.PersistFailures += len(out.Failures)
		if err != nil {
			return 0, err
		}
		return len(kept), nil
	})

	retained, err := h.fetcher.Fetch(ctx, q, opts, consumer)
	res.Retained = retained
	res.Err = err

	return res, err
}
