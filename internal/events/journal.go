package events

import (
	"time"

	"github.com/vadiminshakov/mtftrader/internal/storage/journal"
	"go.uber.org/zap"
)

type appender interface {
	Append(e journal.Entry) (journal.Entry, error)
}

// JournalSink persists events to an audit journal.
type JournalSink struct {
	journal appender
	logger  *zap.Logger
}

func NewJournalSink(j appender, logger *zap.Logger) *JournalSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JournalSink{journal: j, logger: logger}
}

func (s *JournalSink) Error(ev ErrorEvent) {
	s.append(journal.TypeError, ev.Pair, ev.Timestamp, ev)
}

func (s *JournalSink) Trade(ev TradeEvent) {
	s.append(journal.TypeTrade, ev.Pair, ev.Timestamp, ev)
}

func (s *JournalSink) append(typ, pair string, at time.Time, payload any) {
	entry, err := journal.NewEntry(typ, pair, at, payload)
	if err != nil {
		s.logger.Warn("failed to encode journal entry", zap.Error(err))
		return
	}
	if _, err := s.journal.Append(entry); err != nil {
		s.logger.Warn("failed to append journal entry", zap.String("type", typ), zap.Error(err))
	}
}
