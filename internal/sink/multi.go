package sink

import (
	"errors"

	"github.com/nexusfeed/nexusfeed/internal/model"
)

// Multi fans every call out to all child sinks. Each child gets every call
// even when an earlier child fails; failures are joined.
type Multi struct {
	sinks []Sink
}

// NewMulti composes sinks into one.
func NewMulti(sinks ...Sink) *Multi {
	return &Multi{sinks: sinks}
}

func (m *Multi) Reset(source string) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Reset(source); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) AppendTicker(rec model.Ticker) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.AppendTicker(rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ Sink = (*Multi)(nil)
