package fetch

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"filingsync/internal/logging"
	"filingsync/internal/periods"
)

// PendingMarker is written into a destination while a fetch is in flight.
const PendingMarker = "PENDING"

const stderrTailLines = 5

// maxOutputLine bounds a single logged output line. Longer lines stop line
// scanning for that stream; the rest is discarded so the command never
// blocks on a full pipe.
const maxOutputLine = 1024 * 1024

var (
	// ErrTimeout reports a fetch command that outlived its timeout.
	ErrTimeout = errors.New("fetch timed out")
	// ErrNoArtifacts reports a fetch command that exited cleanly but left
	// nothing in its destination.
	ErrNoArtifacts = errors.New("fetch produced no files")
)

// commandContext is swapped in tests.
var commandContext = exec.CommandContext

// CommandError carries the exit failure and the last lines of stderr.
type CommandError struct {
	Args   []string
	Err    error
	Stderr []string
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Args[0], e.Err)
	if len(e.Stderr) > 0 {
		msg += ": " + strings.Join(e.Stderr, " | ")
	}
	return msg
}

func (e *CommandError) Unwrap() error { return e.Err }

// Option configures Exec.
type Option func(*Exec)

// WithLogger routes command output to logger at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Exec) {
		e.logger = logging.NewComponentLogger(logger, "fetch")
	}
}

// Exec fetches by running an external command.
type Exec struct {
	args    []string
	timeout time.Duration
	logger  *slog.Logger
}

// NewExec parses template into an argument list. Arguments are split on
// whitespace and no shell is involved, so placeholder values are never
// re-interpreted. {dest} must appear.
func NewExec(template string, timeout time.Duration, opts ...Option) (*Exec, error) {
	args := strings.Fields(template)
	if len(args) == 0 {
		return nil, errors.New("fetch command not configured")
	}
	if !strings.Contains(template, "{dest}") {
		return nil, errors.New("fetch command must reference {dest}")
	}
	e := &Exec{
		args:    args,
		timeout: timeout,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Expand returns the argument list for req.
func (e *Exec) Expand(req Request) []string {
	replacer := strings.NewReplacer(
		"{rut}", req.RUT,
		"{period}", req.Period.String(),
		"{year}", fmt.Sprintf("%04d", req.Period.Year),
		"{month}", fmt.Sprintf("%02d", req.Period.Month),
		"{name}", req.Name,
		"{dest}", req.Dest,
	)
	out := make([]string, len(e.args))
	for i, arg := range e.args {
		out[i] = replacer.Replace(arg)
	}
	return out
}

// Fetch runs the command for req. The destination is created first and keeps
// a PENDING marker until the command succeeds and leaves at least one file.
func (e *Exec) Fetch(ctx context.Context, req Request) (Result, error) {
	if req.Dest == "" {
		return Result{}, errors.New("fetch destination required")
	}
	if err := os.MkdirAll(req.Dest, 0o755); err != nil {
		return Result{}, fmt.Errorf("create destination: %w", err)
	}
	marker := filepath.Join(req.Dest, PendingMarker)
	if err := os.WriteFile(marker, nil, 0o644); err != nil {
		return Result{}, fmt.Errorf("write pending marker: %w", err)
	}

	runCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	args := e.Expand(req)
	logger := logging.WithContext(ctx, e.logger).With(
		logging.Entity(req.RUT),
		logging.Period(req.Period),
	)
	logger.Debug("running fetch command", logging.String("command", strings.Join(args, " ")))

	if err := e.run(runCtx, args, logger); err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return Result{}, fmt.Errorf("%w after %s: %w", ErrTimeout, e.timeout, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		return Result{}, err
	}

	files, err := countFiles(req.Dest)
	if err != nil {
		return Result{}, fmt.Errorf("inspect destination: %w", err)
	}
	if files == 0 {
		return Result{}, fmt.Errorf("%w in %s", ErrNoArtifacts, req.Dest)
	}
	if err := os.Remove(marker); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Result{}, fmt.Errorf("clear pending marker: %w", err)
	}
	return Result{Files: files}, nil
}

func (e *Exec) run(ctx context.Context, args []string, logger *slog.Logger) error {
	cmd := commandContext(ctx, args[0], args[1:]...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		tail []string
	)
	scan := func(r io.Reader, stream string, keep bool) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxOutputLine)
		for scanner.Scan() {
			line := scanner.Text()
			logger.Debug("fetch output", logging.String("stream", stream), logging.String("line", line))
			if !keep || strings.TrimSpace(line) == "" {
				continue
			}
			mu.Lock()
			tail = append(tail, line)
			if len(tail) > stderrTailLines {
				tail = tail[1:]
			}
			mu.Unlock()
		}
		if err := scanner.Err(); err != nil {
			logger.Debug("fetch output not scanned", logging.String("stream", stream), logging.Error(err))
			_, _ = io.Copy(io.Discard, r)
		}
	}
	wg.Add(2)
	go scan(stdout, "stdout", false)
	go scan(stderr, "stderr", true)
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		return &CommandError{Args: args, Err: err, Stderr: tail}
	}
	return nil
}

// countFiles counts non-empty regular files in dir, skipping the pending
// marker and leftovers of interrupted downloads.
func countFiles(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() || name == PendingMarker || periods.IsPartialName(name) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return 0, err
		}
		if info.Size() > 0 {
			count++
		}
	}
	return count, nil
}
