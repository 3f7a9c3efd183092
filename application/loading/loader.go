package loading

import (
	"context"
	"fmt"
	"time"

	"fieldui/application/ports"
	"fieldui/domain/core/screen"
	"fieldui/domain/core/validators"
	"fieldui/domain/events"
	pkgerrors "fieldui/pkg/errors"
	"fieldui/pkg/observability"

	"go.uber.org/zap"
)

// cacheTTLSeconds bounds how long a decoded definition is served without
// re-reading the source
const cacheTTLSeconds = 300

// Result is a successfully loaded screen plus how it was resolved
type Result struct {
	Definition       *screen.Definition
	RequestedVersion int
	ServedVersion    int
	Fallback         bool
}

// Loader resolves screen definitions with descending version fallback.
// A device running schema version N asks for the best definition with
// version <= N; when that definition is malformed the loader steps down
// to the next available version instead of failing the screen.
type Loader struct {
	source    ports.ScreenSource
	cache     ports.Cache
	validator *validators.ScreenValidator
	publisher ports.EventPublisher
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewLoader creates a screen loader
func NewLoader(
	source ports.ScreenSource,
	cache ports.Cache,
	validator *validators.ScreenValidator,
	publisher ports.EventPublisher,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Loader {
	return &Loader{
		source:    source,
		cache:     cache,
		validator: validator,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
	}
}

// LoadScreen returns the best available definition for a screen whose
// schema version does not exceed maxVersion
func (l *Loader) LoadScreen(ctx context.Context, screenName string, maxVersion int) (*Result, error) {
	if screenName == "" {
		return nil, pkgerrors.NewValidationError("screen name cannot be empty")
	}
	if maxVersion < 1 {
		return nil, pkgerrors.NewValidationError("max version must be at least 1")
	}

	requested, err := l.source.HighestVersion(ctx, screenName, maxVersion)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to resolve screen version")
	}
	if requested == 0 {
		return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("screen %q", screenName))
	}

	var lastErr error
	version := requested
	for version > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		def, err := l.loadVersion(ctx, screenName, version)
		if err == nil {
			result := &Result{
				Definition:       def,
				RequestedVersion: requested,
				ServedVersion:    version,
				Fallback:         version != requested,
			}
			l.recordLoad(ctx, screenName, requested, version)
			return result, nil
		}

		// Malformed definition: log, count, and step down. Anything
		// other than a bad document is not survivable by fallback.
		if !pkgerrors.IsSchemaDecode(err) {
			return nil, err
		}

		l.logger.Warn("screen definition rejected, falling back",
			zap.String("screen", screenName),
			zap.Int("version", version),
			zap.Error(err),
		)
		l.metrics.IncrementCounter(ctx, observability.MetricScreenDecodeErrors, observability.ScreenDimension(screenName))
		l.publishEvent(ctx, events.NewScreenDecodeFailed(screenName, version, err.Error(), time.Now()))
		lastErr = err

		version, err = l.source.HighestVersion(ctx, screenName, version-1)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "failed to resolve fallback version")
		}
	}

	return nil, pkgerrors.NewSchemaDecodeError(screenName, requested, lastErr)
}

// loadVersion fetches, decodes, and validates one exact version,
// consulting the cache first
func (l *Loader) loadVersion(ctx context.Context, screenName string, version int) (*screen.Definition, error) {
	cacheKey := fmt.Sprintf("screen:%s:%d", screenName, version)
	if cached, ok := l.cache.Get(ctx, cacheKey); ok {
		if def, isDef := cached.(*screen.Definition); isDef {
			return def, nil
		}
	}

	data, err := l.source.Fetch(ctx, screenName, version)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to fetch screen definition")
	}

	def, err := screen.DecodeDefinition(data)
	if err != nil {
		return nil, err
	}

	if def.Screen != screenName {
		return nil, pkgerrors.NewSchemaDecodeError(screenName, version,
			fmt.Errorf("document declares screen %q", def.Screen))
	}
	if def.SchemaVersion != version {
		return nil, pkgerrors.NewSchemaDecodeError(screenName, version,
			fmt.Errorf("document declares schema version %d", def.SchemaVersion))
	}

	if err := l.validator.ValidateDefinition(def); err != nil {
		return nil, pkgerrors.NewSchemaDecodeError(screenName, version, err)
	}

	if err := l.cache.Set(ctx, cacheKey, def, cacheTTLSeconds); err != nil {
		l.logger.Debug("failed to cache screen definition", zap.Error(err))
	}

	return def, nil
}

// Invalidate drops a cached definition, used by the source watcher when
// a file changes on disk
func (l *Loader) Invalidate(ctx context.Context, screenName string, version int) {
	cacheKey := fmt.Sprintf("screen:%s:%d", screenName, version)
	if err := l.cache.Delete(ctx, cacheKey); err != nil {
		l.logger.Debug("failed to invalidate cached screen", zap.Error(err))
	}
}

func (l *Loader) recordLoad(ctx context.Context, screenName string, requested, served int) {
	l.metrics.IncrementCounter(ctx, observability.MetricScreensLoaded, observability.ScreenDimension(screenName))
	if served != requested {
		l.metrics.IncrementCounter(ctx, observability.MetricScreenFallbacks, observability.ScreenDimension(screenName))
	}
	l.publishEvent(ctx, events.NewScreenLoaded(screenName, requested, served, time.Now()))
}

func (l *Loader) publishEvent(ctx context.Context, event events.DomainEvent) {
	if l.publisher == nil {
		return
	}
	if err := l.publisher.Publish(ctx, event); err != nil {
		l.logger.Warn("failed to publish screen event",
			zap.String("event_type", event.GetEventType()),
			zap.Error(err),
		)
	}
}
