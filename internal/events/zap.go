package events

import "go.uber.org/zap"

// ZapSink logs events.
type ZapSink struct {
	logger *zap.Logger
}

func NewZapSink(logger *zap.Logger) *ZapSink {
	return &ZapSink{logger: logger}
}

func (s *ZapSink) Error(ev ErrorEvent) {
	s.logger.Error("Trading cycle failed",
		zap.String("pair", ev.Pair),
		zap.Time("cycle_at", ev.CycleAt),
		zap.String("kind", string(ev.Kind)),
		zap.String("error", ev.Message))
}

func (s *ZapSink) Trade(ev TradeEvent) {
	fields := []zap.Field{
		zap.String("pair", ev.Pair),
		zap.String("kind", string(ev.Kind)),
		zap.String("direction", ev.Direction),
		zap.String("token", ev.Token),
		zap.String("quantity", ev.Quantity),
		zap.String("price", ev.Price),
	}
	if ev.Reason != "" {
		fields = append(fields, zap.String("reason", ev.Reason))
	}

	if ev.Kind == TradeRejected {
		s.logger.Warn("Trade event occurred", fields...)
		return
	}
	s.logger.Info("Trade event occurred", fields...)
}
