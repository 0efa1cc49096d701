package fallback

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"mediapull/internal/domain"
	"mediapull/internal/selection"
)

type Mode string

const (
	ModeAutomatic Mode = "automatic"
	ModeManual    Mode = "manual"
	ModeSkip      Mode = "skip"
)

// Prompter is the operator-facing side of the fallback workflow. ChooseMode
// is asked once for the whole failed set; ChooseComponent once per item in
// manual mode, returning false to skip that item.
type Prompter interface {
	ChooseMode(failed []domain.FailedDownload) (Mode, error)
	ChooseComponent(version domain.Version, comps []domain.Component) (domain.Component, bool, error)
}

// ComponentSource re-fetches candidates and resolves locators. The failed
// component may be gone by the time fallback runs, so lists are always
// fetched fresh.
type ComponentSource interface {
	FetchComponents(ctx context.Context, versionID string) ([]domain.Component, error)
	ResolveDownloadURL(ctx context.Context, componentID string) (string, map[string]string, error)
}

type Transferrer interface {
	Transfer(ctx context.Context, task domain.DownloadTask) (domain.TransferResult, error)
}

type Config struct {
	Dir    string
	Logger *logrus.Logger
}

// Coordinator drives the recovery pass over items whose primary download
// failed. Transfers run one at a time; a failed retry is reported and the
// coordinator moves on, never into a second fallback round.
type Coordinator struct {
	cfg      Config
	policy   selection.Policy
	source   ComponentSource
	engine   Transferrer
	prompter Prompter
}

func NewCoordinator(cfg Config, policy selection.Policy, source ComponentSource, engine Transferrer, prompter Prompter) *Coordinator {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Coordinator{
		cfg:      cfg,
		policy:   policy,
		source:   source,
		engine:   engine,
		prompter: prompter,
	}
}

// Handle runs the fallback workflow and returns one outcome per retried
// transfer. Items that could not be retried at all (no candidates left, a
// locator that would not resolve, an operator skip) are logged and omitted.
func (c *Coordinator) Handle(ctx context.Context, failed []domain.FailedDownload) []domain.BatchOutcome {
	if len(failed) == 0 {
		return nil
	}

	mode, err := c.prompter.ChooseMode(failed)
	if err != nil {
		c.cfg.Logger.Warnf("fallback aborted: %v", err)
		return nil
	}
	if mode == ModeSkip {
		c.cfg.Logger.Info("fallback skipped")
		return nil
	}

	var outcomes []domain.BatchOutcome
	for _, item := range failed {
		outcome, attempted := c.handleItem(ctx, mode, item)
		if attempted {
			outcomes = append(outcomes, outcome)
		}
	}
	return outcomes
}

func (c *Coordinator) handleItem(ctx context.Context, mode Mode, item domain.FailedDownload) (domain.BatchOutcome, bool) {
	logger := c.cfg.Logger.WithField("version", item.Version.Label())

	comps, err := c.source.FetchComponents(ctx, item.Version.ID)
	if err != nil {
		logger.Warnf("fetch components: %v", err)
		return domain.BatchOutcome{}, false
	}

	var comp domain.Component
	var ok bool
	switch mode {
	case ModeManual:
		comp, ok, err = c.prompter.ChooseComponent(item.Version, comps)
		if err != nil {
			logger.Warnf("component choice: %v", err)
			return domain.BatchOutcome{}, false
		}
		if !ok {
			logger.Info("skipped by operator")
			return domain.BatchOutcome{}, false
		}
	default:
		var exclude []domain.RepresentationType
		if item.FailedType != "" {
			exclude = append(exclude, item.FailedType)
		}
		comp, ok = c.policy.SelectFallback(comps, exclude...)
		if !ok {
			logger.Warn("no remaining candidate")
			return domain.BatchOutcome{}, false
		}
	}

	sourceURL, headers, err := c.source.ResolveDownloadURL(ctx, comp.ID)
	if err != nil {
		logger.Warnf("resolve download url: %v", err)
		return domain.BatchOutcome{}, false
	}

	rep := c.policy.Classify(comp)
	task := domain.DownloadTask{
		ID:             uuid.New(),
		URL:            sourceURL,
		Headers:        headers,
		Dir:            c.cfg.Dir,
		Filename:       selection.GenerateFilename(item.Version, rep, comp.FileType),
		Size:           comp.Size,
		Representation: rep,
		Component:      comp,
		Version:        item.Version,
	}

	logger.Infof("retrying with %s component %q", rep, comp.Name)
	res, err := c.engine.Transfer(ctx, task)
	if err != nil {
		logger.Warnf("fallback transfer failed: %v", err)
		return domain.BatchOutcome{Task: task, Reason: err.Error()}, true
	}
	return domain.BatchOutcome{Task: task, Success: true, Path: res.Path, Size: res.Bytes}, true
}
