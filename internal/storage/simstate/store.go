package simstate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/mtftrader/internal/domain"
)

// DefaultDir is used when no state directory is configured.
const DefaultDir = "./wal/simulate"

// Store persists paper venue state per trading pair so restarts keep balances and open positions.
type Store struct {
	path string
}

// NewStore creates a state store for pair under dir.
func NewStore(dir string, pair domain.Pair) (*Store, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create simulate state dir")
	}

	name := fmt.Sprintf("%s.json", sanitize(pair.String()))
	return &Store{path: filepath.Join(dir, name)}, nil
}

// State represents all persisted paper venue data.
type State struct {
	Pair     string            `json:"pair"`
	Wallet   map[string]string `json:"wallet"`
	Fills    map[string]string `json:"fills"`
	Position *StoredPosition   `json:"position,omitempty"`
	// Leverage the open position was entered with.
	Leverage string            `json:"leverage,omitempty"`
}

// StoredPosition is a serializable snapshot of domain.OpenPosition.
type StoredPosition struct {
	Token      string           `json:"token"`
	Direction  domain.Direction `json:"direction"`
	Entry      string           `json:"entry"`
	Stop       string           `json:"stop"`
	TakeProfit string           `json:"take_profit"`
	Quantity   string           `json:"quantity"`
	FillPrice  string           `json:"fill_price"`
	OpenedAt   time.Time        `json:"opened_at"`
}

// Load reads state from disk. A missing file yields nil state.
func (s *Store) Load() (*State, error) {
	if s == nil || s.path == "" {
		return nil, nil
	}

	payload, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "read simulate state")
	}
	if len(payload) == 0 {
		return nil, nil
	}

	var state State
	if err := json.Unmarshal(payload, &state); err != nil {
		return nil, errors.Wrap(err, "decode simulate state")
	}
	return &state, nil
}

// Save writes state to disk atomically via temp file.
func (s *Store) Save(state State) error {
	if s == nil || s.path == "" {
		return nil
	}

	payload, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode simulate state")
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return errors.Wrap(err, "write simulate state temp file")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrap(err, "persist simulate state")
	}
	return nil
}

// NewStoredPosition converts an open position into its stored representation.
func NewStoredPosition(pos *domain.OpenPosition) *StoredPosition {
	if pos == nil {
		return nil
	}
	return &StoredPosition{
		Token:      pos.Token.String(),
		Direction:  pos.Order.Direction,
		Entry:      pos.Order.EntryPrice.String(),
		Stop:       pos.Order.StopPrice.String(),
		TakeProfit: pos.Order.TakeProfitPrice.String(),
		Quantity:   pos.Order.Quantity.String(),
		FillPrice:  pos.FillPrice.String(),
		OpenedAt:   pos.OpenedAt,
	}
}

type decimalField struct {
	name string
	raw  string
	dst  *decimal.Decimal
}

// ToPosition reconstructs the open position for pair.
func (sp *StoredPosition) ToPosition(pair domain.Pair) (*domain.OpenPosition, error) {
	if sp == nil {
		return nil, nil
	}

	var entry, stop, tp, qty, fill decimal.Decimal
	fields := []decimalField{
		{"entry", sp.Entry, &entry},
		{"stop", sp.Stop, &stop},
		{"take profit", sp.TakeProfit, &tp},
		{"quantity", sp.Quantity, &qty},
		{"fill price", sp.FillPrice, &fill},
	}
	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		v, err := decimal.NewFromString(f.raw)
		if err != nil {
			return nil, errors.Wrapf(err, "decode position %s", f.name)
		}
		*f.dst = v
	}

	return &domain.OpenPosition{
		Order: domain.Order{
			Pair:            pair,
			Direction:       sp.Direction,
			EntryPrice:      entry,
			StopPrice:       stop,
			TakeProfitPrice: tp,
			Quantity:        qty,
		},
		FillPrice: fill,
		Token:     domain.IdempotencyToken(sp.Token),
		OpenedAt:  sp.OpenedAt,
	}, nil
}

func sanitize(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))

	var b strings.Builder
	prevUnderscore := false
	for _, r := range value {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			prevUnderscore = false
			continue
		}
		if !prevUnderscore {
			b.WriteByte('_')
			prevUnderscore = true
		}
	}
	return strings.Trim(b.String(), "_")
}
