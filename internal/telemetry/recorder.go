// Package telemetry provides the operation recorder consumed by the
// capability façades. Recording is observational only; a recorder must
// never fail or block a domain operation.
package telemetry

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// OperationID identifies one recorded operation.
type OperationID string

// Recorder receives operation start/completion/failure reports.
type Recorder interface {
	StartOperation(name string, attrs map[string]any) OperationID
	CompleteOperation(id OperationID, attrs map[string]any)
	FailOperation(id OperationID, err error)
}

func newOperationID() OperationID { return OperationID(uuid.NewString()) }

// noopRecorder drops all reports.
type noopRecorder struct{}

func (noopRecorder) StartOperation(string, map[string]any) OperationID { return newOperationID() }
func (noopRecorder) CompleteOperation(OperationID, map[string]any)     {}
func (noopRecorder) FailOperation(OperationID, error)                  {}

// NewNoop returns a recorder that drops everything.
func NewNoop() Recorder { return noopRecorder{} }

// logRecorder writes operation reports to a structured logger.
type logRecorder struct {
	log zerolog.Logger
}

// NewLogRecorder returns a recorder that logs operations via zerolog.
func NewLogRecorder(log zerolog.Logger) Recorder {
	return &logRecorder{log: log}
}

func (r *logRecorder) StartOperation(name string, attrs map[string]any) OperationID {
	id := newOperationID()
	r.log.Info().Str("op", string(id)).Str("name", name).Fields(attrs).Msg("operation start")
	return id
}

func (r *logRecorder) CompleteOperation(id OperationID, attrs map[string]any) {
	r.log.Info().Str("op", string(id)).Fields(attrs).Msg("operation complete")
}

func (r *logRecorder) FailOperation(id OperationID, err error) {
	r.log.Warn().Str("op", string(id)).Err(err).Msg("operation failed")
}
