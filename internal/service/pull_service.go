package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"mediapull/internal/domain"
	"mediapull/internal/repository"
	"mediapull/internal/selection"
	"mediapull/internal/storage"
	"mediapull/internal/tracker"
	"mediapull/internal/transfer"
)

// VersionSource is the tracker boundary the pull workflow consumes.
type VersionSource interface {
	FetchVersions(ctx context.Context, q tracker.VersionQuery) ([]domain.Version, error)
	FetchComponents(ctx context.Context, versionID string) ([]domain.Component, error)
	ResolveDownloadURL(ctx context.Context, componentID string) (string, map[string]string, error)
}

// BatchRunner downloads a task list. *batch.Scheduler satisfies it.
type BatchRunner interface {
	Run(ctx context.Context, tasks []domain.DownloadTask) (domain.BatchReport, error)
}

// FallbackHandler runs the recovery workflow over failed items.
// *fallback.Coordinator satisfies it.
type FallbackHandler interface {
	Handle(ctx context.Context, failed []domain.FailedDownload) []domain.BatchOutcome
}

type PullConfig struct {
	Dir       string
	Prefer    domain.Preference
	Bucket    string
	KeyPrefix string
	Logger    *logrus.Logger
}

// PullService drives one pull end to end: resolve versions, select one
// component per version, batch-download, run the fallback workflow over
// failures, record history and optionally mirror the results to object
// storage.
type PullService struct {
	cfg      PullConfig
	policy   selection.Policy
	source   VersionSource
	runner   BatchRunner
	fallback FallbackHandler
	history  repository.BatchRepository
	mirror   storage.Service
}

// NewPullService wires the workflow. History and mirror may be nil; the
// corresponding steps are skipped.
func NewPullService(cfg PullConfig, policy selection.Policy, source VersionSource, runner BatchRunner, fb FallbackHandler, history repository.BatchRepository, mirror storage.Service) *PullService {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Prefer == "" {
		cfg.Prefer = domain.PreferEncoded
	}
	return &PullService{
		cfg:      cfg,
		policy:   policy,
		source:   source,
		runner:   runner,
		fallback: fb,
		history:  history,
		mirror:   mirror,
	}
}

// Pull runs the whole workflow for the versions matching the query and
// returns the final report. Per-version problems (no components, no suitable
// selection, a failed transfer) end up in the report, never as an error.
func (s *PullService) Pull(ctx context.Context, query tracker.VersionQuery) (domain.BatchReport, error) {
	startedAt := time.Now()

	versions, err := s.source.FetchVersions(ctx, query)
	if err != nil {
		return domain.BatchReport{}, fmt.Errorf("fetch versions: %w", err)
	}
	if len(versions) == 0 {
		return domain.BatchReport{}, fmt.Errorf("no versions matched the query")
	}
	s.cfg.Logger.Infof("pulling %d version(s)", len(versions))

	tasks, misses := s.buildTasks(ctx, versions)

	report, err := s.runner.Run(ctx, tasks)
	if err != nil {
		return domain.BatchReport{}, err
	}

	// selection misses count as failed items alongside transfer failures
	for _, miss := range misses {
		report.Outcomes = append(report.Outcomes, miss)
		report.Attempted++
		report.Failed++
	}

	if failed := s.collectFailed(report.Outcomes); len(failed) > 0 && s.fallback != nil {
		recovered := s.fallback.Handle(ctx, failed)
		for _, outcome := range recovered {
			report.Outcomes = append(report.Outcomes, outcome)
			if outcome.Success {
				report.Succeeded++
				report.Failed--
			}
		}
	}
	report.Elapsed = time.Since(startedAt)

	label := startedAt.Format("20060102-150405")
	if s.history != nil {
		if _, err := s.history.RecordBatch(ctx, label, report, startedAt); err != nil {
			s.cfg.Logger.Warnf("record batch history: %v", err)
		}
	}

	s.mirrorResults(ctx, label, report)
	return report, nil
}

// buildTasks selects one component per version and resolves its locator.
// Versions that yield no task come back as negative outcomes instead.
func (s *PullService) buildTasks(ctx context.Context, versions []domain.Version) ([]domain.DownloadTask, []domain.BatchOutcome) {
	var (
		tasks  []domain.DownloadTask
		misses []domain.BatchOutcome
	)

	for _, version := range versions {
		logger := s.cfg.Logger.WithField("version", version.Label())

		comps, err := s.source.FetchComponents(ctx, version.ID)
		if err != nil {
			logger.Warnf("fetch components: %v", err)
			misses = append(misses, missOutcome(version, fmt.Sprintf("fetch components: %v", err)))
			continue
		}

		comp, ok := s.policy.SelectPrimary(comps, s.cfg.Prefer)
		if !ok {
			logger.Info("no suitable component")
			misses = append(misses, missOutcome(version, "no suitable component"))
			continue
		}

		sourceURL, headers, err := s.source.ResolveDownloadURL(ctx, comp.ID)
		if err != nil {
			logger.Warnf("resolve download url: %v", err)
			misses = append(misses, missOutcome(version, fmt.Sprintf("resolve download url: %v", err)))
			continue
		}

		rep := s.policy.Classify(comp)
		tasks = append(tasks, domain.DownloadTask{
			ID:             uuid.New(),
			URL:            sourceURL,
			Headers:        headers,
			Dir:            s.cfg.Dir,
			Filename:       selection.GenerateFilename(version, rep, comp.FileType),
			Size:           comp.Size,
			Representation: rep,
			Component:      comp,
			Version:        version,
		})
	}

	return tasks, misses
}

func (s *PullService) collectFailed(outcomes []domain.BatchOutcome) []domain.FailedDownload {
	var failed []domain.FailedDownload
	for _, outcome := range outcomes {
		if outcome.Success {
			continue
		}
		failed = append(failed, domain.FailedDownload{
			Version:    outcome.Task.Version,
			FailedType: outcome.Task.Representation,
			Reason:     outcome.Reason,
		})
	}
	return failed
}

// mirrorResults uploads the successful files when a bucket is configured.
// Mirror problems are logged, never fatal to the pull.
func (s *PullService) mirrorResults(ctx context.Context, label string, report domain.BatchReport) {
	if s.mirror == nil || s.cfg.Bucket == "" {
		return
	}

	var paths []string
	for _, outcome := range report.Outcomes {
		if outcome.Success {
			paths = append(paths, outcome.Path)
		}
	}
	if len(paths) == 0 {
		return
	}

	prefix := label
	if s.cfg.KeyPrefix != "" {
		prefix = s.cfg.KeyPrefix + "/" + label
	}

	location, err := s.mirror.UploadFiles(ctx, paths, storage.UploadOptions{
		Bucket:    s.cfg.Bucket,
		KeyPrefix: prefix,
		ProgressCallback: func(done, total int64) {
			s.cfg.Logger.Infof("mirror progress: %s/%s", transfer.FormatBytes(done), transfer.FormatBytes(total))
		},
	})
	if err != nil {
		s.cfg.Logger.Warnf("mirror upload: %v", err)
		return
	}

	// confirm the bucket really holds one object per uploaded file
	objects, err := s.mirror.ListObjects(ctx, s.cfg.Bucket, prefix)
	if err != nil {
		s.cfg.Logger.Warnf("verify mirror: %v", err)
		return
	}
	if len(objects) < len(paths) {
		s.cfg.Logger.Warnf("mirror verification found %d of %d object(s) under %s", len(objects), len(paths), prefix)
		return
	}
	s.cfg.Logger.Infof("mirrored %d file(s) to %s", len(paths), location)
}

// missOutcome is the negative outcome for a version that never produced a
// download task. The task carries only the version, so fallback can still
// pick it up.
func missOutcome(version domain.Version, reason string) domain.BatchOutcome {
	return domain.BatchOutcome{
		Task:   domain.DownloadTask{Version: version},
		Reason: reason,
	}
}
