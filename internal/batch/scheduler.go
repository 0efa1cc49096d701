package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"mediapull/internal/domain"
	"mediapull/internal/metrics"
	"mediapull/internal/transfer"
)

const defaultGroupSize = 4

// Transferrer runs a single download. *transfer.Engine satisfies it.
type Transferrer interface {
	Transfer(ctx context.Context, task domain.DownloadTask) (domain.TransferResult, error)
}

type Config struct {
	GroupSize int
	Logger    *logrus.Logger
	Metrics   *metrics.Collector
}

// Scheduler fans a task list out to the engine in fixed-size groups. Groups
// run strictly one after another; tasks inside a group run concurrently and
// all settle before the next group starts. One failure never cancels its
// siblings.
type Scheduler struct {
	cfg    Config
	engine Transferrer
}

func NewScheduler(cfg Config, engine Transferrer) *Scheduler {
	if cfg.GroupSize == 0 {
		cfg.GroupSize = defaultGroupSize
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Scheduler{cfg: cfg, engine: engine}
}

// Run downloads every task and reports one outcome per input task, in input
// order. Per-task failures are captured in the outcomes; Run itself only
// fails on unusable input.
func (s *Scheduler) Run(ctx context.Context, tasks []domain.DownloadTask) (domain.BatchReport, error) {
	if s.cfg.GroupSize < 1 {
		return domain.BatchReport{}, fmt.Errorf("group size must be at least 1, got %d", s.cfg.GroupSize)
	}
	for i := range tasks {
		if tasks[i].Dir == "" || tasks[i].Filename == "" {
			return domain.BatchReport{}, fmt.Errorf("task %d has no destination", i)
		}
	}

	start := time.Now()
	outcomes := make([]domain.BatchOutcome, len(tasks))

	for lo := 0; lo < len(tasks); lo += s.cfg.GroupSize {
		hi := min(lo+s.cfg.GroupSize, len(tasks))
		groupStart := time.Now()

		s.runGroup(ctx, tasks[lo:hi], outcomes[lo:hi])

		succeeded := 0
		for _, outcome := range outcomes[lo:hi] {
			if outcome.Success {
				succeeded++
			}
		}
		s.cfg.Logger.WithFields(logrus.Fields{
			"group":     lo/s.cfg.GroupSize + 1,
			"succeeded": succeeded,
			"failed":    hi - lo - succeeded,
			"elapsed":   time.Since(groupStart).Round(time.Millisecond),
		}).Info("group finished")
	}

	report := domain.BatchReport{
		Attempted: len(tasks),
		Elapsed:   time.Since(start),
		Outcomes:  outcomes,
	}
	for _, outcome := range outcomes {
		if outcome.Success {
			report.Succeeded++
		} else {
			report.Failed++
		}
	}

	s.cfg.Logger.WithFields(logrus.Fields{
		"attempted": report.Attempted,
		"succeeded": report.Succeeded,
		"failed":    report.Failed,
		"elapsed":   report.Elapsed.Round(time.Millisecond),
	}).Info("batch finished")
	return report, nil
}

func (s *Scheduler) runGroup(ctx context.Context, tasks []domain.DownloadTask, outcomes []domain.BatchOutcome) {
	var wg sync.WaitGroup
	for i := range tasks {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes[i] = s.runTask(ctx, tasks[i])
		}()
	}
	wg.Wait()
}

func (s *Scheduler) runTask(ctx context.Context, task domain.DownloadTask) domain.BatchOutcome {
	s.cfg.Metrics.TransferStarted()
	res, err := s.engine.Transfer(ctx, task)
	s.cfg.Metrics.TransferFinished()

	if err != nil {
		reason := err.Error()
		var terr *transfer.Error
		if !errors.As(err, &terr) {
			reason = fmt.Sprintf("unexpected error: %s", err.Error())
		}
		s.cfg.Metrics.ObserveOutcome(false, 0)
		s.cfg.Logger.WithField("file", task.Filename).Warnf("download failed: %s", reason)
		return domain.BatchOutcome{Task: task, Reason: reason}
	}

	s.cfg.Metrics.ObserveOutcome(true, res.Bytes)
	return domain.BatchOutcome{Task: task, Success: true, Path: res.Path, Size: res.Bytes}
}
