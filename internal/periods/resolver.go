package periods

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"filingsync/internal/config"
	"filingsync/internal/logging"
)

// Options configures a Resolver.
type Options struct {
	// Extensions lists artifact file extensions that count as filings.
	Extensions []string
	// MinBytes is the smallest artifact size accepted.
	MinBytes int64
	// PublicationLag delays when a closed period is expected to be published.
	PublicationLag time.Duration
	// Now supplies the clock; time.Now when nil.
	Now func() time.Time
	// Logger receives debug output for skipped entries.
	Logger *slog.Logger
}

// Resolver discovers complete periods under an entity's storage location.
//
// Two layouts are recognised and may be mixed:
//
//	<location>/<period>/<artifact>         period directories
//	<location>/<prefix>_<period>.<ext>     flat artifact files
type Resolver struct {
	validator artifactValidator
	lag       time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// NewResolver builds a resolver from opts.
func NewResolver(opts Options) *Resolver {
	exts := opts.Extensions
	if len(exts) == 0 {
		exts = []string{".zip", ".xbrl", ".xml"}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Resolver{
		validator: newArtifactValidator(exts, opts.MinBytes),
		lag:       opts.PublicationLag,
		now:       now,
		logger:    logging.NewComponentLogger(opts.Logger, "periods"),
	}
}

// NewResolverFromConfig builds a resolver using the [periods] and [sync]
// configuration sections.
func NewResolverFromConfig(cfg *config.Config, logger *slog.Logger) *Resolver {
	return NewResolver(Options{
		Extensions:     cfg.Periods.ArtifactExtensions,
		MinBytes:       cfg.Periods.MinArtifactBytes,
		PublicationLag: cfg.PublicationLag(),
		Logger:         logger,
	})
}

// Discover returns the set of periods with a complete artifact at location.
// A missing location yields an empty set; any other read failure on the
// location itself returns a *LocationUnavailableError. Problems with
// individual entries are logged and skipped.
func (r *Resolver) Discover(ctx context.Context, location string) (Set, error) {
	entries, err := os.ReadDir(location)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewSet(), nil
		}
		return Set{}, &LocationUnavailableError{Location: location, Err: err}
	}

	logger := logging.WithContext(ctx, r.logger).With(logging.Location(location))
	now := r.now()

	siblings := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		siblings[entry.Name()] = struct{}{}
	}

	found := make(map[Period]struct{})
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return Set{}, err
		}
		name := entry.Name()

		var (
			period Period
			ok     bool
		)
		if entry.IsDir() {
			period, ok = r.periodDirectory(logger, filepath.Join(location, name), name)
		} else {
			period, ok = r.flatArtifact(logger, location, name, siblings)
		}
		if !ok {
			continue
		}
		if !period.Published(now, r.lag) {
			logger.Debug("skipping unpublished period", logging.Period(period))
			continue
		}
		found[period] = struct{}{}
	}

	periods := make([]Period, 0, len(found))
	for p := range found {
		periods = append(periods, p)
	}
	return NewSet(periods...), nil
}

func (r *Resolver) periodDirectory(logger *slog.Logger, dir, name string) (Period, bool) {
	period, err := Parse(name)
	if err != nil {
		logger.Debug("skipping directory with malformed period", logging.String("entry", name), logging.Error(err))
		return Period{}, false
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Debug("skipping unreadable period directory", logging.String("entry", name), logging.Error(err))
		return Period{}, false
	}

	siblings := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		if isPendingMarker(entry.Name()) {
			logger.Debug("skipping period marked pending", logging.Period(period))
			return Period{}, false
		}
		siblings[entry.Name()] = struct{}{}
	}

	for _, entry := range entries {
		if entry.IsDir() || !r.validator.accepts(entry.Name()) {
			continue
		}
		if hasPartialSibling(entry.Name(), siblings) {
			continue
		}
		if err := r.validator.validate(filepath.Join(dir, entry.Name())); err != nil {
			logger.Debug("rejecting artifact",
				logging.Period(period),
				logging.String("file", entry.Name()),
				logging.Error(err),
			)
			continue
		}
		return period, true
	}
	return Period{}, false
}

func (r *Resolver) flatArtifact(logger *slog.Logger, location, name string, siblings map[string]struct{}) (Period, bool) {
	if !r.validator.accepts(name) || hasPartialSibling(name, siblings) {
		return Period{}, false
	}
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	token, ok := tokenFromFileName(stem)
	if !ok {
		logger.Debug("skipping artifact without period token", logging.String("file", name))
		return Period{}, false
	}
	period, err := Parse(token)
	if err != nil {
		logger.Debug("skipping artifact with malformed period", logging.String("file", name), logging.Error(err))
		return Period{}, false
	}
	if err := r.validator.validate(filepath.Join(location, name)); err != nil {
		logger.Debug("rejecting artifact",
			logging.Period(period),
			logging.String("file", name),
			logging.Error(err),
		)
		return Period{}, false
	}
	return period, true
}
