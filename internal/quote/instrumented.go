package quote

import (
	"context"
	"errors"
	"time"
)

type Recorder interface {
	ObserveLookup(outcome string, elapsed time.Duration)
}

type instrumented struct {
	next     Provider
	recorder Recorder
}

func Instrument(next Provider, recorder Recorder) Provider {
	return instrumented{next: next, recorder: recorder}
}

func (i instrumented) Lookup(ctx context.Context, symbol string) (Quote, error) {
	start := time.Now()
	q, err := i.next.Lookup(ctx, symbol)
	i.recorder.ObserveLookup(Outcome(err), time.Since(start))
	return q, err
}

func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnknownSymbol):
		return "unknown_symbol"
	default:
		return "unavailable"
	}
}
