package events

import (
	"fmt"

	"go.uber.org/zap"
)

// FanOut forwards every event to all sinks. A panicking sink is logged and
// skipped; the remaining sinks still receive the event.
type FanOut struct {
	sinks  []Sink
	logger *zap.Logger
}

func NewFanOut(logger *zap.Logger, sinks ...Sink) *FanOut {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FanOut{sinks: sinks, logger: logger}
}

func (f *FanOut) Error(ev ErrorEvent) {
	for _, s := range f.sinks {
		f.safely(s, func() { s.Error(ev) })
	}
}

func (f *FanOut) Trade(ev TradeEvent) {
	for _, s := range f.sinks {
		f.safely(s, func() { s.Trade(ev) })
	}
}

func (f *FanOut) safely(s Sink, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("event sink panicked", zap.String("sink", fmt.Sprintf("%T", s)), zap.Any("panic", r))
		}
	}()
	fn()
}
