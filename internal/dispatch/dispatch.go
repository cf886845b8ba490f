// Package dispatch runs removal requests through the type registry:
// lookup, validate, process, then report the outcome to logs, metrics and
// the removal history.
package dispatch

import (
	"context"
	"time"

	"github.com/juju/errors"
	"github.com/rs/zerolog"

	"pcsd-remove-file/internal/database"
	"pcsd-remove-file/internal/exchange"
	"pcsd-remove-file/internal/logging"
	"pcsd-remove-file/internal/metrics"
	"pcsd-remove-file/internal/removefile"
)

// Request names one file to remove
type Request struct {
	Type   string `json:"type"`
	ID     string `json:"id,omitempty"`
	Action string `json:"action,omitempty"`
}

// History records request outcomes. *database.RemovalDB satisfies it.
type History interface {
	RecordRemoval(at time.Time, fileType, fileID, action, path string, result exchange.Result) error
	RecordRejected(at time.Time, fileType, fileID, action, code, reason string) error
}

// Registry resolves type names to variant constructors
type Registry interface {
	Lookup(name string) (removefile.Constructor, bool)
}

// Dispatcher serves removal requests. It holds no per-request state and
// may be shared between goroutines.
type Dispatcher struct {
	registry Registry
	history  History
	logger   zerolog.Logger
	now      func() time.Time
}

// New creates a Dispatcher. history may be nil to disable recording.
func New(registry Registry, history History, logger zerolog.Logger) *Dispatcher {
	metrics.Init()
	return &Dispatcher{
		registry: registry,
		history:  history,
		logger:   logging.Component(logger, "dispatch"),
		now:      time.Now,
	}
}

// Remove handles exactly one request. Filesystem failures come back as an
// unexpected result, not as an error; errors are reserved for requests
// that never reached the filesystem.
func (d *Dispatcher) Remove(ctx context.Context, req Request) (exchange.Result, error) {
	if err := ctx.Err(); err != nil {
		return exchange.Result{}, errors.Trace(err)
	}

	log := d.logger.With().Str("type", req.Type).Str("id", req.ID).Str("action", req.Action).Logger()

	build, ok := d.registry.Lookup(req.Type)
	if !ok {
		metrics.UnknownTypeTotal.Inc()
		log.Warn().Msg("unknown file type")
		d.recordRejected(req, database.CodeUnknownType, "unknown file type")
		return exchange.Result{}, errors.NotFoundf("file type %q", req.Type)
	}

	file := build(req.ID, req.Action)
	if err := file.Validate(); err != nil {
		metrics.ValidationFailuresTotal.WithLabelValues(req.Type).Inc()
		log.Warn().Err(err).Msg("request rejected")
		d.recordRejected(req, database.CodeInvalid, err.Error())
		if errors.Is(err, errors.NotValid) {
			return exchange.Result{}, errors.Annotatef(err, "validating %q request", req.Type)
		}
		return exchange.Result{}, errors.NewNotValid(err, "validating "+req.Type+" request")
	}

	start := d.now()
	result := file.Process()
	elapsed := d.now().Sub(start)
	path := file.FullFileName()

	metrics.RecordResult(req.Type, string(result.Code), elapsed)

	event := log.Info()
	if result.Code == exchange.CodeUnexpected {
		event = log.Error().Str("error", result.Message)
	}
	event.Str("path", path).
		Str("code", string(result.Code)).
		Dur("elapsed", elapsed).
		Msg("removal processed")

	if d.history != nil {
		if err := d.history.RecordRemoval(start, req.Type, req.ID, req.Action, path, result); err != nil {
			metrics.HistoryErrorsTotal.Inc()
			log.Error().Err(err).Msg("failed to record removal history")
		}
	}

	return result, nil
}

func (d *Dispatcher) recordRejected(req Request, code, reason string) {
	if d.history == nil {
		return
	}
	if err := d.history.RecordRejected(d.now(), req.Type, req.ID, req.Action, code, reason); err != nil {
		metrics.HistoryErrorsTotal.Inc()
		d.logger.Error().Err(err).Str("type", req.Type).Msg("failed to record rejected request")
	}
}
