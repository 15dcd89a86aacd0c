// Package logging builds the process-wide structured logger. Adapted
// from the teacher's internal/observability/jsonlog package, which
// hand-rolled JSON log lines over a stdlib *log.Logger; here the same
// one-line-per-event shape is produced by zap, per
// SirClappington-enq's go.mod dependency on go.uber.org/zap.
package logging

import "go.uber.org/zap"

// New builds a production JSON logger for the named process (e.g.
// "api" or "worker"), tagging every line with that field.
func New(process string) (*zap.Logger, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("process", process)), nil
}
