package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"mediapull/internal/batch"
	"mediapull/internal/config"
	"mediapull/internal/credentials"
	"mediapull/internal/domain"
	"mediapull/internal/fallback"
	apphttp "mediapull/internal/http"
	"mediapull/internal/metrics"
	"mediapull/internal/progress"
	"mediapull/internal/repository"
	"mediapull/internal/repository/sqlite"
	"mediapull/internal/selection"
	"mediapull/internal/service"
	"mediapull/internal/storage"
	"mediapull/internal/tracker"
	"mediapull/internal/transfer"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	}

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch os.Args[1] {
	case "pull":
		err = runPull(ctx, cfg, logger, os.Args[2:])
	case "history":
		err = runHistory(ctx, cfg, os.Args[2:])
	case "auth":
		err = runAuth(cfg, logger, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Fatalf("%s: %v", os.Args[1], err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: mediapull <command> [flags]

commands:
  pull     fetch versions from the tracker and download their media
  history  list recent batch reports
  auth     store tracker credentials encrypted on disk`)
}

func runPull(ctx context.Context, cfg config.Config, logger *logrus.Logger, args []string) error {
	flags := flag.NewFlagSet("pull", flag.ExitOnError)
	project := flags.String("project", "", "project to pull versions from")
	shot := flags.String("shot", "", "shot to pull versions from")
	ids := flags.String("ids", "", "comma separated version ids (overrides project/shot)")
	dir := flags.String("dir", cfg.Download.Dir, "download destination directory")
	limit := flags.Int("limit", cfg.Download.Limit, "max simultaneous downloads")
	prefer := flags.String("prefer", cfg.Download.Prefer, "preferred representation: encoded or original")
	if err := flags.Parse(args); err != nil {
		return err
	}

	preference, err := domain.ParsePreference(*prefer)
	if err != nil {
		return err
	}

	query := tracker.VersionQuery{Project: *project, Shot: *shot}
	if strings.TrimSpace(*ids) != "" {
		query.IDs = strings.Split(*ids, ",")
	}
	if query.Project == "" && query.Shot == "" && len(query.IDs) == 0 {
		return fmt.Errorf("one of -project, -shot or -ids is required")
	}

	trackerCfg, err := trackerConfig(cfg, logger)
	if err != nil {
		return err
	}
	client := tracker.NewClient(trackerCfg)

	db, err := sqlite.Open(cfg.History.Path)
	if err != nil {
		return fmt.Errorf("open history db: %w", err)
	}
	defer db.Close()

	history := sqlite.NewBatchRepository(db)
	if err := history.Init(ctx); err != nil {
		return fmt.Errorf("init history: %w", err)
	}

	registry := progress.NewRegistry()
	collector := metrics.NewCollector()

	engine := transfer.NewEngine(transfer.Config{
		Registry: registry,
		Logger:   logger,
		Timeout:  time.Duration(cfg.Download.FileTimeoutMinutes) * time.Minute,
	})

	scheduler := batch.NewScheduler(batch.Config{
		GroupSize: *limit,
		Logger:    logger,
		Metrics:   collector,
	}, engine)

	policy := selection.NewPolicy(selection.NewCatalog(cfg.Download.OriginalComponent))

	coordinator := fallback.NewCoordinator(fallback.Config{
		Dir:    *dir,
		Logger: logger,
	}, policy, client, engine, newConsolePrompter(os.Stdin, os.Stdout))

	var mirror storage.Service
	if cfg.Storage.Bucket != "" {
		mirror, err = buildStorage(ctx, cfg, logger)
		if err != nil {
			return fmt.Errorf("setup storage: %w", err)
		}
	}

	puller := service.NewPullService(service.PullConfig{
		Dir:       *dir,
		Prefer:    preference,
		Bucket:    cfg.Storage.Bucket,
		KeyPrefix: cfg.Storage.KeyPrefix,
		Logger:    logger,
	}, policy, client, scheduler, coordinator, history, mirror)

	shutdownStatus := startStatusServer(cfg, logger, registry, history, collector)
	defer shutdownStatus()

	report, err := puller.Pull(ctx, query)
	if err != nil {
		return err
	}

	printReport(os.Stdout, report)
	return nil
}

func runHistory(ctx context.Context, cfg config.Config, args []string) error {
	flags := flag.NewFlagSet("history", flag.ExitOnError)
	limit := flags.Int("limit", 20, "number of batches to list")
	if err := flags.Parse(args); err != nil {
		return err
	}

	db, err := sqlite.Open(cfg.History.Path)
	if err != nil {
		return fmt.Errorf("open history db: %w", err)
	}
	defer db.Close()

	history := sqlite.NewBatchRepository(db)
	if err := history.Init(ctx); err != nil {
		return fmt.Errorf("init history: %w", err)
	}

	batches, err := history.ListBatches(ctx, *limit)
	if err != nil {
		return err
	}
	if len(batches) == 0 {
		fmt.Println("no batches recorded")
		return nil
	}

	for _, b := range batches {
		fmt.Printf("%4d  %s  attempted=%d succeeded=%d failed=%d elapsed=%s\n",
			b.ID, b.Label, b.Attempted, b.Succeeded, b.Failed, b.Elapsed.Round(time.Second))
	}
	return nil
}

func runAuth(cfg config.Config, logger *logrus.Logger, args []string) error {
	flags := flag.NewFlagSet("auth", flag.ExitOnError)
	url := flags.String("url", cfg.Tracker.URL, "tracker base url")
	user := flags.String("user", "", "tracker api user")
	key := flags.String("key", "", "tracker api key")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *url == "" || *user == "" || *key == "" {
		return fmt.Errorf("-url, -user and -key are required")
	}

	if err := credentials.Save(cfg.Credentials.Path, credentials.Credentials{
		URL:  *url,
		User: *user,
		Key:  *key,
	}); err != nil {
		return err
	}
	logger.Infof("credentials stored at %s", cfg.Credentials.Path)
	return nil
}

// trackerConfig prefers environment credentials and falls back to the
// encrypted credentials file written by the auth command.
func trackerConfig(cfg config.Config, logger *logrus.Logger) (tracker.Config, error) {
	tc := tracker.Config{
		BaseURL: cfg.Tracker.URL,
		APIUser: cfg.Tracker.User,
		APIKey:  cfg.Tracker.Key,
		Timeout: time.Duration(cfg.Tracker.TimeoutSeconds) * time.Second,
		Logger:  logger,
	}
	if tc.APIKey == "" {
		creds, err := credentials.Load(cfg.Credentials.Path)
		if err != nil {
			return tracker.Config{}, fmt.Errorf("no tracker credentials: set MEDIAPULL_TRACKER_KEY or run mediapull auth (%v)", err)
		}
		if tc.BaseURL == "" {
			tc.BaseURL = creds.URL
		}
		tc.APIUser = creds.User
		tc.APIKey = creds.Key
	}
	if tc.BaseURL == "" {
		return tracker.Config{}, fmt.Errorf("tracker url is required")
	}
	return tc, nil
}

// startStatusServer serves the read-only status API when an address is
// configured. The returned func shuts it down.
func startStatusServer(cfg config.Config, logger *logrus.Logger, registry *progress.Registry, history repository.BatchRepository, collector *metrics.Collector) func() {
	if cfg.Status.Addr == "" {
		return func() {}
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	apphttp.NewHandler(registry, history, collector).RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.Status.Addr,
		Handler: router,
	}

	go func() {
		logger.Infof("status api listening on %s", cfg.Status.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warnf("status api: %v", err)
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warnf("status api shutdown: %v", err)
		}
	}
}

func printReport(w *os.File, report domain.BatchReport) {
	fmt.Fprintf(w, "\nbatch finished: attempted=%d succeeded=%d failed=%d elapsed=%s\n",
		report.Attempted, report.Succeeded, report.Failed, report.Elapsed.Round(time.Second))
	for _, outcome := range report.Outcomes {
		if outcome.Success {
			fmt.Fprintf(w, "  ok    %s (%s)\n", outcome.Path, transfer.FormatBytes(outcome.Size))
			continue
		}
		name := outcome.Task.Filename
		if name == "" {
			name = outcome.Task.Version.Label()
		}
		fmt.Fprintf(w, "  fail  %s: %s\n", name, outcome.Reason)
	}
}

func buildStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) (storage.Service, error) {
	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Storage.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("mirroring to s3 bucket %s (region %s)", cfg.Storage.Bucket, cfg.Storage.Region)
	return storage.NewS3Service(client), nil
}
