package storage

import (
	"context"

	"go.uber.org/multierr"

	"trackserver/internal/model"
)

// Sink receives newly recorded objects. Failures never affect local persistence.
type Sink interface {
	RecordSighting(ctx context.Context, sighting model.Sighting) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, sighting model.Sighting) error

func (f SinkFunc) RecordSighting(ctx context.Context, sighting model.Sighting) error {
	return f(ctx, sighting)
}

// MultiSink forwards to every sink and combines their errors.
type MultiSink []Sink

func (m MultiSink) RecordSighting(ctx context.Context, sighting model.Sighting) error {
	var err error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		err = multierr.Append(err, sink.RecordSighting(ctx, sighting))
	}
	return err
}
