package fallback

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediapull/internal/domain"
	"mediapull/internal/selection"
)

type fakeSource struct {
	comps      map[string][]domain.Component
	compsErr   error
	resolveErr error
	fetches    int
}

func (f *fakeSource) FetchComponents(ctx context.Context, versionID string) ([]domain.Component, error) {
	f.fetches++
	if f.compsErr != nil {
		return nil, f.compsErr
	}
	return f.comps[versionID], nil
}

func (f *fakeSource) ResolveDownloadURL(ctx context.Context, componentID string) (string, map[string]string, error) {
	if f.resolveErr != nil {
		return "", nil, f.resolveErr
	}
	return "https://cdn.example.com/" + componentID, map[string]string{"X-Token": "t"}, nil
}

type fakeTransferrer struct {
	mu    sync.Mutex
	calls []domain.DownloadTask
	err   error
}

func (f *fakeTransferrer) Transfer(ctx context.Context, task domain.DownloadTask) (domain.TransferResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, task)
	f.mu.Unlock()
	if f.err != nil {
		return domain.TransferResult{}, f.err
	}
	return domain.TransferResult{Path: task.Path(), Bytes: 42}, nil
}

type scriptedPrompter struct {
	mode       Mode
	modeErr    error
	modeCalls  int
	pick       map[string]domain.Component
	skipManual bool
}

func (p *scriptedPrompter) ChooseMode(failed []domain.FailedDownload) (Mode, error) {
	p.modeCalls++
	return p.mode, p.modeErr
}

func (p *scriptedPrompter) ChooseComponent(v domain.Version, comps []domain.Component) (domain.Component, bool, error) {
	if p.skipManual {
		return domain.Component{}, false, nil
	}
	comp, ok := p.pick[v.ID]
	return comp, ok, nil
}

func newTestCoordinator(source ComponentSource, engine Transferrer, prompter Prompter) *Coordinator {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	policy := selection.NewPolicy(selection.NewCatalog(""))
	return NewCoordinator(Config{Dir: "downloads", Logger: logger}, policy, source, engine, prompter)
}

func failedItem(versionID string, failedType domain.RepresentationType) domain.FailedDownload {
	return domain.FailedDownload{
		Version:    domain.Version{ID: versionID, Parent: "SHOT010", Asset: "comp", Number: 3},
		FailedType: failedType,
		Reason:     "unexpected http status 404",
	}
}

func TestCoordinator_HandleEmptyListAsksNothing(t *testing.T) {
	prompter := &scriptedPrompter{mode: ModeAutomatic}
	coordinator := newTestCoordinator(&fakeSource{}, &fakeTransferrer{}, prompter)

	outcomes := coordinator.Handle(context.Background(), nil)

	assert.Nil(t, outcomes)
	assert.Zero(t, prompter.modeCalls)
}

func TestCoordinator_HandleSkipMode(t *testing.T) {
	source := &fakeSource{}
	coordinator := newTestCoordinator(source, &fakeTransferrer{}, &scriptedPrompter{mode: ModeSkip})

	outcomes := coordinator.Handle(context.Background(), []domain.FailedDownload{
		failedItem("v1", domain.RepresentationEncodedLow),
	})

	assert.Nil(t, outcomes)
	assert.Zero(t, source.fetches, "skip must not refetch components")
}

func TestCoordinator_HandleAutomaticExcludesFailedType(t *testing.T) {
	source := &fakeSource{comps: map[string][]domain.Component{
		"v1": {
			{ID: "low", Name: "review-mp4", FileType: ".mp4", Size: 10},
			{ID: "high", Name: "review-mp4-1080", FileType: ".mp4", Size: 20},
		},
	}}
	engine := &fakeTransferrer{}
	coordinator := newTestCoordinator(source, engine, &scriptedPrompter{mode: ModeAutomatic})

	outcomes := coordinator.Handle(context.Background(), []domain.FailedDownload{
		failedItem("v1", domain.RepresentationEncodedLow),
	})

	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Success)
	require.Len(t, engine.calls, 1)
	assert.Equal(t, "high", engine.calls[0].Component.ID)
	assert.Equal(t, domain.RepresentationEncodedHigh, engine.calls[0].Representation)
	assert.Equal(t, "SHOT010_comp_v003_encoded_1080p.mp4", engine.calls[0].Filename)
	assert.Equal(t, "https://cdn.example.com/high", engine.calls[0].URL)
	assert.Equal(t, "t", engine.calls[0].Headers["X-Token"])
}

func TestCoordinator_HandleAutomaticNoCandidateLeft(t *testing.T) {
	source := &fakeSource{comps: map[string][]domain.Component{
		"v1": {{ID: "low", Name: "review-mp4", FileType: ".mp4"}},
	}}
	engine := &fakeTransferrer{}
	coordinator := newTestCoordinator(source, engine, &scriptedPrompter{mode: ModeAutomatic})

	outcomes := coordinator.Handle(context.Background(), []domain.FailedDownload{
		failedItem("v1", domain.RepresentationEncodedLow),
	})

	assert.Empty(t, outcomes)
	assert.Empty(t, engine.calls)
}

func TestCoordinator_HandleManualChoice(t *testing.T) {
	orig := domain.Component{ID: "orig", Name: "main", FileType: ".mov", Size: 999}
	source := &fakeSource{comps: map[string][]domain.Component{"v1": {orig}}}
	engine := &fakeTransferrer{}
	prompter := &scriptedPrompter{
		mode: ModeManual,
		pick: map[string]domain.Component{"v1": orig},
	}
	coordinator := newTestCoordinator(source, engine, prompter)

	outcomes := coordinator.Handle(context.Background(), []domain.FailedDownload{
		failedItem("v1", domain.RepresentationEncodedLow),
	})

	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Success)
	require.Len(t, engine.calls, 1)
	assert.Equal(t, "SHOT010_comp_v003_original.mov", engine.calls[0].Filename)
}

func TestCoordinator_HandleManualSkipItem(t *testing.T) {
	source := &fakeSource{comps: map[string][]domain.Component{
		"v1": {{ID: "orig", Name: "main", FileType: ".mov"}},
	}}
	engine := &fakeTransferrer{}
	coordinator := newTestCoordinator(source, engine,
		&scriptedPrompter{mode: ModeManual, skipManual: true})

	outcomes := coordinator.Handle(context.Background(), []domain.FailedDownload{
		failedItem("v1", domain.RepresentationEncodedLow),
	})

	assert.Empty(t, outcomes)
	assert.Empty(t, engine.calls)
}

func TestCoordinator_HandleFetchFailureSkipsItem(t *testing.T) {
	source := &fakeSource{compsErr: errors.New("tracker down")}
	engine := &fakeTransferrer{}
	coordinator := newTestCoordinator(source, engine, &scriptedPrompter{mode: ModeAutomatic})

	outcomes := coordinator.Handle(context.Background(), []domain.FailedDownload{
		failedItem("v1", domain.RepresentationEncodedLow),
	})

	assert.Empty(t, outcomes)
	assert.Empty(t, engine.calls)
}

func TestCoordinator_HandleTransferFailureReportedOnce(t *testing.T) {
	source := &fakeSource{comps: map[string][]domain.Component{
		"v1": {
			{ID: "high", Name: "review-mp4-1080", FileType: ".mp4"},
			{ID: "orig", Name: "main", FileType: ".mov"},
		},
	}}
	engine := &fakeTransferrer{err: errors.New("connection reset")}
	coordinator := newTestCoordinator(source, engine, &scriptedPrompter{mode: ModeAutomatic})

	outcomes := coordinator.Handle(context.Background(), []domain.FailedDownload{
		failedItem("v1", domain.RepresentationEncodedLow),
	})

	// one failed outcome, no second fallback round
	require.Len(t, outcomes, 1)
	assert.False(t, outcomes[0].Success)
	assert.Contains(t, outcomes[0].Reason, "connection reset")
	assert.Len(t, engine.calls, 1)
}

func TestCoordinator_HandleMultipleItemsSequentially(t *testing.T) {
	source := &fakeSource{comps: map[string][]domain.Component{
		"v1": {{ID: "a", Name: "review-mp4-1080", FileType: ".mp4"}},
		"v2": {{ID: "b", Name: "main", FileType: ".mov"}},
	}}
	engine := &fakeTransferrer{}
	coordinator := newTestCoordinator(source, engine, &scriptedPrompter{mode: ModeAutomatic})

	items := []domain.FailedDownload{
		failedItem("v1", domain.RepresentationEncodedLow),
		{
			Version: domain.Version{ID: "v2", Parent: "SHOT020", Asset: "anim", Number: 7},
			Reason:  "no suitable component",
		},
	}
	outcomes := coordinator.Handle(context.Background(), items)

	require.Len(t, outcomes, 2)
	assert.True(t, outcomes[0].Success)
	assert.True(t, outcomes[1].Success)
	require.Len(t, engine.calls, 2)
	assert.Equal(t, "a", engine.calls[0].Component.ID)
	assert.Equal(t, "b", engine.calls[1].Component.ID)
}
