package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"mediapull/internal/domain"
	"mediapull/internal/progress"
)

const defaultChunkSize = 1 << 20

type Config struct {
	Client      *http.Client
	Registry    *progress.Registry
	Logger      *logrus.Logger
	ChunkSize   int
	Timeout     time.Duration
	LogInterval time.Duration
}

// Engine streams one remote file at a time to local disk, feeding the
// progress registry chunk by chunk. It never buffers a whole payload and
// never retries; retry policy belongs to the caller.
type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	if cfg.Client == nil {
		cfg.Client = &http.Client{}
	}
	if cfg.Registry == nil {
		cfg.Registry = progress.NewRegistry()
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = defaultChunkSize
	}
	if cfg.LogInterval <= 0 {
		cfg.LogInterval = 2 * time.Second
	}
	return &Engine{cfg: cfg}
}

func (e *Engine) Registry() *progress.Registry {
	return e.cfg.Registry
}

// Transfer downloads the task's source to its destination path. When the
// engine carries a per-file timeout the transfer races against it and an
// expired deadline surfaces as a timeout failure.
func (e *Engine) Transfer(ctx context.Context, task domain.DownloadTask) (domain.TransferResult, error) {
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}
	return e.transfer(ctx, task)
}

func (e *Engine) transfer(ctx context.Context, task domain.DownloadTask) (domain.TransferResult, error) {
	logger := e.cfg.Logger.WithFields(logrus.Fields{
		"task_id": task.ID,
		"file":    task.Filename,
	})

	e.cfg.Registry.Start(task.ID, task.Filename)
	defer e.cfg.Registry.Remove(task.ID)

	if task.Size > 0 {
		e.cfg.Registry.Update(task.ID, progress.Update{Total: &task.Size})
	}

	if err := os.MkdirAll(task.Dir, 0o755); err != nil {
		e.markFailed(task.ID)
		return domain.TransferResult{}, streamError(fmt.Errorf("create destination dir: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, task.URL, nil)
	if err != nil {
		e.markFailed(task.ID)
		return domain.TransferResult{}, streamError(fmt.Errorf("build request: %w", err))
	}
	for key, value := range task.Headers {
		req.Header.Set(key, value)
	}

	resp, err := e.cfg.Client.Do(req)
	if err != nil {
		e.markFailed(task.ID)
		return domain.TransferResult{}, streamError(fmt.Errorf("request source: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		e.markFailed(task.ID)
		return domain.TransferResult{}, &Error{Kind: ErrorKindHTTP, StatusCode: resp.StatusCode}
	}

	// the response length overrides whatever size the tracker declared
	total := task.Size
	if resp.ContentLength > 0 {
		total = resp.ContentLength
		e.cfg.Registry.Update(task.ID, progress.Update{Total: &total})
	}

	dest := task.Path()
	out, err := os.Create(dest)
	if err != nil {
		e.markFailed(task.ID)
		return domain.TransferResult{}, streamError(fmt.Errorf("create destination file: %w", err))
	}

	downloading := domain.TransferStatusDownloading
	e.cfg.Registry.Update(task.ID, progress.Update{Status: &downloading})
	logger.Info("download started")

	written, err := e.copyWithProgress(task.ID, out, resp.Body, total, logger)
	if err != nil {
		out.Close()
		e.discardPartial(dest, logger)
		e.markFailed(task.ID)
		return domain.TransferResult{}, streamError(err)
	}

	if err := out.Close(); err != nil {
		e.discardPartial(dest, logger)
		e.markFailed(task.ID)
		return domain.TransferResult{}, streamError(fmt.Errorf("close destination file: %w", err))
	}

	completed := domain.TransferStatusCompleted
	e.cfg.Registry.Update(task.ID, progress.Update{Status: &completed})
	logger.Infof("download completed (%s)", FormatBytes(written))

	return domain.TransferResult{Path: dest, Bytes: written}, nil
}

func (e *Engine) copyWithProgress(id uuid.UUID, dst io.Writer, src io.Reader, total int64, logger *logrus.Entry) (int64, error) {
	logProgress := newProgressLogger(logger, e.cfg.LogInterval)
	buf := make([]byte, e.cfg.ChunkSize)
	var written int64

	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, writeErr := dst.Write(buf[:n]); writeErr != nil {
				return written, fmt.Errorf("write chunk: %w", writeErr)
			}
			written += int64(n)
			e.cfg.Registry.Update(id, progress.Update{Bytes: &written})
			logProgress(written, total)
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, fmt.Errorf("read chunk: %w", readErr)
		}
	}
}

func (e *Engine) markFailed(id uuid.UUID) {
	failed := domain.TransferStatusFailed
	e.cfg.Registry.Update(id, progress.Update{Status: &failed})
}

// A failed stream never leaves a partial file behind.
func (e *Engine) discardPartial(path string, logger *logrus.Entry) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warnf("remove partial file: %v", err)
	}
}

func streamError(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: ErrorKindTimeout, Err: err}
	}
	return &Error{Kind: ErrorKindIO, Err: err}
}

func newProgressLogger(logger *logrus.Entry, interval time.Duration) func(done, total int64) {
	var lastLog time.Time
	return func(done, total int64) {
		now := time.Now()
		if total <= 0 {
			if now.Sub(lastLog) < interval {
				return
			}
			lastLog = now
			logger.Infof("progress: %s downloaded", FormatBytes(done))
			return
		}

		if now.Sub(lastLog) < interval && done != total {
			return
		}
		lastLog = now
		percent := float64(done) / float64(total) * 100
		logger.Infof("progress: %.1f%% (%s/%s)", percent, FormatBytes(done), FormatBytes(total))
	}
}

// FormatBytes renders a byte count in human readable binary units.
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%dB", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%ciB",
		float64(b)/float64(div),
		"KMGTPE"[exp],
	)
}
