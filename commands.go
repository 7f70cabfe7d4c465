package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"ewintr.nl/vidharvest/config"
	"ewintr.nl/vidharvest/feed"
	"ewintr.nl/vidharvest/fetch"
	"ewintr.nl/vidharvest/handler"
	"ewintr.nl/vidharvest/harvest"
	"ewintr.nl/vidharvest/model"
	"ewintr.nl/vidharvest/process"
	"github.com/spf13/cobra"
)

var (
	debugMode            bool
	configFile           string
	searchName           string
	disease              string
	searchPhrases        string
	channelNames         string
	maxResults           int
	outputFile           string
	videoIDsFile         string
	startDate            string
	endDate              string
	minViewCount         int64
	minDuration          int
	hasContent           bool
	channelFailurePolicy string
	resetOutput          bool
	resetIndex           bool
	videoID              string
	analysisDir          string
	feedInterval         time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "vidharvest",
	Short:         "Harvest YouTube video metadata for a search",
	Long:          `Searches YouTube for a named topic, in general and per channel, and merges the relevant videos into JSON files and a store.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if debugMode {
			logger = newLogger(true)
		}
	},
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Run a general search and one search per channel",
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if conf.SearchName == "" {
			return errors.New("search name required: use --search-name, --disease or set searchName in the config file")
		}
		return runSearch(cmd.Context(), conf)
	},
}

var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Fetch a single video by ID",
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return runLookup(cmd.Context(), conf, model.YoutubeVideoID(videoID))
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Classify the stored videos of a search",
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if conf.SearchName == "" {
			return errors.New("search name required: use --search-name or --disease")
		}
		return runAnalyze(cmd.Context(), conf.SearchName)
	},
}

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Fetch the videos of unread Miniflux entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return runFeed(cmd.Context(), conf)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the stored videos and searches over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	for _, cmd := range []*cobra.Command{searchCmd, lookupCmd, feedCmd, analyzeCmd} {
		cmd.Flags().StringVar(&configFile, "config-file", config.DefaultPath, "Path to the YAML config file")
		cmd.Flags().StringVar(&searchName, "search-name", "", "Name of the search, must appear in title or description")
		cmd.Flags().StringVar(&disease, "disease", "", "Alias for --search-name")
	}
	for _, cmd := range []*cobra.Command{searchCmd, lookupCmd, feedCmd} {
		cmd.Flags().StringVar(&outputFile, "output-file", "", "JSON file with the video metadata")
		cmd.Flags().StringVar(&videoIDsFile, "video-ids-file", "", "JSON file with the video IDs")
		cmd.Flags().Int64Var(&minViewCount, "min-view-count", config.DefaultMinViewCount, "Minimum number of views")
		cmd.Flags().IntVar(&minDuration, "min-duration", config.DefaultMinDuration, "Minimum duration in seconds")
		cmd.Flags().BoolVar(&hasContent, "has-content", config.DefaultHasContent, "Require captions")
	}

	searchCmd.Flags().StringVar(&searchPhrases, "search-phrase", "", "Comma separated search phrases, prefix with - to exclude")
	searchCmd.Flags().StringVar(&channelNames, "channel-name", "", "Comma separated channel IDs to search in")
	searchCmd.Flags().IntVar(&maxResults, "max-results", config.DefaultMaxResults, "Maximum number of results per pass")
	searchCmd.Flags().StringVar(&startDate, "start-date", "", "First publish day, YYYY-MM-DD")
	searchCmd.Flags().StringVar(&endDate, "end-date", "", "Last publish day, YYYY-MM-DD")
	searchCmd.Flags().StringVar(&channelFailurePolicy, "channel-failure-policy", string(harvest.PolicyAbort), "What to do when a channel pass fails: abort or continue")
	searchCmd.Flags().BoolVar(&resetOutput, "reset-output", false, "Empty the JSON files before searching")
	searchCmd.Flags().BoolVar(&resetIndex, "reset-index", false, "Recreate the weaviate schema before searching")

	lookupCmd.Flags().StringVar(&videoID, "video-id", "", "ID of the video")
	lookupCmd.MarkFlagRequired("video-id")

	analyzeCmd.Flags().StringVar(&analysisDir, "output-dir", "output", "Directory for the analysis file")

	feedCmd.Flags().DurationVar(&feedInterval, "interval", 0, "Poll interval, 0 reads the feed once")

	rootCmd.AddCommand(searchCmd, lookupCmd, analyzeCmd, feedCmd, serveCmd)
}

// loadConfig reads the config file and applies the flags that were set on
// cmd.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	settings, err := config.Load(configFile, logger)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	o := config.Overrides{}
	if flags.Changed("search-name") {
		o.SearchName = &searchName
	}
	if flags.Changed("disease") {
		o.Disease = &disease
	}
	if flags.Changed("search-phrase") {
		o.SearchPhrases = config.SplitList(searchPhrases)
	}
	if flags.Changed("channel-name") {
		o.Channels = config.SplitList(channelNames)
	}
	if flags.Changed("max-results") {
		o.MaxResults = &maxResults
	}
	if flags.Changed("output-file") {
		o.OutputFile = &outputFile
	}
	if flags.Changed("video-ids-file") {
		o.VideoIDsFile = &videoIDsFile
	}
	if flags.Changed("start-date") {
		o.StartDate = &startDate
	}
	if flags.Changed("end-date") {
		o.EndDate = &endDate
	}
	if flags.Changed("min-view-count") {
		o.MinViewCount = &minViewCount
	}
	if flags.Changed("min-duration") {
		o.MinDuration = &minDuration
	}
	if flags.Changed("has-content") {
		o.HasContent = &hasContent
	}
	if flags.Changed("channel-failure-policy") {
		o.ChannelFailurePolicy = &channelFailurePolicy
	}
	if flags.Changed("reset-output") {
		o.ResetOutput = &resetOutput
	}

	return settings.Resolve(o)
}

func runSearch(ctx context.Context, conf config.Config) error {
	policy, err := harvest.ParsePolicy(conf.ChannelFailurePolicy)
	if err != nil {
		return err
	}
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()
	vectors, err := openVectors(ctx, resetIndex)
	if err != nil {
		return err
	}
	yt, err := newYoutube(ctx)
	if err != nil {
		return err
	}

	h := harvest.New(fetch.NewEngine(yt, logger), yt, newSink(conf, store, vectors), store, logger)
	report, err := h.Run(ctx, harvest.Request{
		SearchName:  conf.SearchName,
		Phrases:     conf.SearchPhrases,
		Include:     conf.SearchTerms,
		Exclude:     conf.ExclusionTerms,
		Channels:    conf.Channels,
		Options:     conf.FetchOptions(),
		Policy:      policy,
		ResetOutput: conf.ResetOutput,
	})
	if err != nil {
		return fmt.Errorf("search %s: %w", conf.SearchName, err)
	}
	for _, pass := range report.Failed() {
		logger.Warn("pass did not complete", slog.String("channelid", string(pass.ChannelID)), slog.Int("retained", pass.Retained), slog.Any("error", pass.Err))
	}
	logger.Info("total videos fetched and stored", slog.Int("total", report.Total))

	return nil
}

func runLookup(ctx context.Context, conf config.Config, id model.YoutubeVideoID) error {
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()
	vectors, err := openVectors(ctx, false)
	if err != nil {
		return err
	}
	yt, err := newYoutube(ctx)
	if err != nil {
		return err
	}

	h := harvest.New(fetch.NewEngine(yt, logger), yt, newSink(conf, store, vectors), store, logger)
	video, err := h.Lookup(ctx, id, conf.SearchName, conf.FetchOptions().Quality())
	if err != nil {
		return err
	}
	total := 0
	if video != nil {
		total = 1
	}
	logger.Info("total videos fetched and stored", slog.Int("total", total))

	return nil
}

func runFeed(ctx context.Context, conf config.Config) error {
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()
	vectors, err := openVectors(ctx, false)
	if err != nil {
		return err
	}
	yt, err := newYoutube(ctx)
	if err != nil {
		return err
	}

	mflx := feed.NewMiniflux(feed.MinifluxInfo{
		Endpoint: getParam("MINIFLUX_ENDPOINT", "http://localhost/v1"),
		ApiKey:   getParam("MINIFLUX_APIKEY", ""),
	})
	h := harvest.New(fetch.NewEngine(yt, logger), yt, newSink(conf, store, vectors), store, logger)
	quality := conf.FetchOptions().Quality()

	if feedInterval > 0 {
		logger.Info("feed reader started", slog.Duration("interval", feedInterval))
		return h.WatchFeed(ctx, mflx, feedInterval, conf.SearchName, quality)
	}
	count, err := h.IngestFeed(ctx, mflx, conf.SearchName, quality)
	if err != nil {
		return err
	}
	logger.Info("total videos fetched and stored", slog.Int("total", count))

	return nil
}

func runAnalyze(ctx context.Context, name string) error {
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()
	client, err := newOpenAI()
	if err != nil {
		return err
	}

	analyzer := process.NewAnalyzer(process.NewOpenAIClassifier(client), logger)
	_, err = harvest.Analyze(ctx, store, analyzer, name, harvest.AnalysisPath(analysisDir, name), logger)

	return err
}

func runServe(ctx context.Context) error {
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	port := getParam("API_PORT", "8080")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler.NewServer(store, store, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		errs <- srv.ListenAndServe()
	}()
	logger.Info("http server started", slog.String("port", port))

	select {
	case err := <-errs:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	logger.Info("service stopped")

	return nil
}
