package config

import (
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/vadiminshakov/mtftrader/internal/domain"
	"github.com/vadiminshakov/mtftrader/internal/services/market/analysis"
	"github.com/vadiminshakov/mtftrader/internal/services/market/collector"
	"github.com/vadiminshakov/mtftrader/internal/services/risk"
	"github.com/vadiminshakov/mtftrader/internal/services/strategy/confluence"
)

// DefaultPath is used when no --config flag is given.
const DefaultPath = "config.yaml"

const (
	PlatformBinance     = "binance"
	PlatformBybit       = "bybit"
	PlatformHyperliquid = "hyperliquid"
	PlatformSimulate    = "simulate"
)

const (
	BalanceSourceFixed = "fixed"
	BalanceSourceLive  = "live"
)

const (
	DedupMemory = "memory"
	DedupRedis  = "redis"
)

const (
	JournalNone   = "none"
	JournalWAL    = "wal"
	JournalSQLite = "sqlite"
)

// Config is the validated, typed configuration of one trading instance.
type Config struct {
	Platform          string
	Pair              domain.Pair
	MarketType        domain.MarketType
	Leverage          int
	FastInterval      string
	SlowInterval      string
	Lookback          int
	ClosedCandlesOnly bool
	Indicators        analysis.Params
	Signal            confluence.Thresholds
	Risk              risk.Params
	PollInterval      time.Duration
	ErrorBackoff      time.Duration
	BalanceSource     string
	FixedBalance      decimal.Decimal
	BalanceCurrency   string
	SimulateBalance   decimal.Decimal
	SimulateStateDir  string
	ExitOnOpposite    bool
	Dedup             DedupConfig
	Journal           JournalConfig
	Kafka             KafkaConfig
	HTTPAddr          string
	Credentials       Credentials
}

type DedupConfig struct {
	Backend   string
	TTL       time.Duration
	RedisAddr string
}

type JournalConfig struct {
	Type string
	Dir  string
	Path string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Enabled reports whether a Kafka sink should be started.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0 && k.Topic != ""
}

// File is the raw YAML document. Decimals stay strings until Parse.
type File struct {
	Platform   string         `yaml:"platform" default:"simulate" validate:"oneof=binance bybit hyperliquid simulate"`
	Pair       string         `yaml:"pair" default:"BTC_USDT" validate:"required"`
	MarketType string         `yaml:"market_type" default:"spot" validate:"oneof=spot margin"`
	Leverage   int            `yaml:"leverage" default:"1" validate:"gte=1,lte=50"`
	Timeframes TimeframesFile `yaml:"timeframes"`
	Market     MarketFile     `yaml:"market"`
	Indicators IndicatorsFile `yaml:"indicators"`
	Signal     SignalFile     `yaml:"signal"`
	Risk       RiskFile       `yaml:"risk"`
	Loop       LoopFile       `yaml:"loop"`
	Balance    BalanceFile    `yaml:"balance"`
	Simulate   SimulateFile   `yaml:"simulate"`
	Execution  ExecutionFile  `yaml:"execution"`
	Journal    JournalFile    `yaml:"journal"`
	Events     EventsFile     `yaml:"events"`
	HTTP       HTTPFile       `yaml:"http"`
}

type TimeframesFile struct {
	Fast string `yaml:"fast" default:"15m" validate:"required"`
	Slow string `yaml:"slow" default:"4h" validate:"required"`
}

type MarketFile struct {
	Lookback          int  `yaml:"lookback" default:"200" validate:"gte=1,lte=1000"`
	ClosedCandlesOnly bool `yaml:"closed_candles_only" default:"true"`
}

type IndicatorsFile struct {
	EMAFast   int `yaml:"ema_fast" default:"20" validate:"gte=1"`
	EMASlow   int `yaml:"ema_slow" default:"50" validate:"gte=2"`
	RSIPeriod int `yaml:"rsi_period" default:"14" validate:"gte=1"`
	ATRPeriod int `yaml:"atr_period" default:"14" validate:"gte=1"`
}

type SignalFile struct {
	RSIOverbought string `yaml:"rsi_overbought" default:"70" validate:"numeric"`
	RSIOversold   string `yaml:"rsi_oversold" default:"30" validate:"numeric"`
}

type RiskFile struct {
	StopATRMultiplier string `yaml:"stop_atr_multiplier" default:"2" validate:"numeric"`
	MaxRiskFraction   string `yaml:"max_risk_fraction" default:"0.01" validate:"numeric"`
	RewardRiskRatio   string `yaml:"reward_risk_ratio" default:"2" validate:"numeric"`
	QtyStep           string `yaml:"qty_step" default:"0.00001" validate:"numeric"`
	PriceTick         string `yaml:"price_tick" default:"0" validate:"numeric"`
}

type LoopFile struct {
	PollInterval time.Duration `yaml:"poll_interval" default:"5m" validate:"gt=0"`
	ErrorBackoff time.Duration `yaml:"error_backoff" default:"60s" validate:"gt=0"`
}

type BalanceFile struct {
	Source   string `yaml:"source" default:"fixed" validate:"oneof=fixed live"`
	Fixed    string `yaml:"fixed" default:"1000" validate:"numeric"`
	Currency string `yaml:"currency"`
}

type SimulateFile struct {
	InitialBalance string `yaml:"initial_balance" default:"10000" validate:"numeric"`
	StateDir       string `yaml:"state_dir" default:"./wal/simulate"`
}

type ExecutionFile struct {
	ExitOnOppositeSignal bool      `yaml:"exit_on_opposite_signal"`
	Dedup                DedupFile `yaml:"dedup"`
}

type DedupFile struct {
	Backend   string        `yaml:"backend" default:"memory" validate:"oneof=memory redis"`
	TTL       time.Duration `yaml:"ttl" default:"24h" validate:"gt=0"`
	RedisAddr string        `yaml:"redis_addr" validate:"required_if=Backend redis"`
}

type JournalFile struct {
	Type string `yaml:"type" default:"wal" validate:"oneof=none wal sqlite"`
	Dir  string `yaml:"dir" default:"./wal/journal"`
	Path string `yaml:"path" default:"./journal.db"`
}

type EventsFile struct {
	Kafka KafkaFile `yaml:"kafka"`
}

type KafkaFile struct {
	Brokers []string `yaml:"brokers,omitempty"`
	Topic   string   `yaml:"topic,omitempty"`
}

type HTTPFile struct {
	Addr string `yaml:"addr" default:":8080"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Load reads path, applies overrides and credentials from the environment,
// and returns the validated configuration.
func Load(path string, overrides Overrides) (Config, error) {
	f, err := ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	overrides.apply(&f)

	creds, err := LoadCredentials(overrides.EnvFile)
	if err != nil {
		return Config{}, err
	}
	return Parse(f, creds)
}

// ReadFile loads the YAML document on top of the defaults.
func ReadFile(path string) (File, error) {
	var f File
	if err := defaults.Set(&f); err != nil {
		return File{}, errors.Wrap(err, "apply config defaults")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return File{}, errors.Wrapf(domain.ErrConfiguration, "read config %s: %v", path, err)
	}
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return File{}, errors.Wrapf(domain.ErrConfiguration, "parse config %s: %v", path, err)
	}
	return f, nil
}

// Default returns a File holding only default values.
func Default() File {
	var f File
	_ = defaults.Set(&f)
	return f
}

// Parse validates f and converts it into Config.
func Parse(f File, creds Credentials) (Config, error) {
	cfg, err := convert(f, creds)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseSettings is Parse without the credentials check. It is used when
// a config file is produced on a machine that does not hold the keys.
func ParseSettings(f File) (Config, error) {
	cfg, err := convert(f, Credentials{})
	if err != nil {
		return Config{}, err
	}
	if err := cfg.ValidateSettings(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func convert(f File, creds Credentials) (Config, error) {
	if err := validate.Struct(f); err != nil {
		return Config{}, describe(err)
	}

	pair, err := domain.ParsePair(f.Pair)
	if err != nil {
		return Config{}, err
	}

	p := decimalParser{}
	cfg := Config{
		Platform:          f.Platform,
		Pair:              pair,
		MarketType:        domain.MarketType(f.MarketType),
		Leverage:          f.Leverage,
		FastInterval:      f.Timeframes.Fast,
		SlowInterval:      f.Timeframes.Slow,
		Lookback:          f.Market.Lookback,
		ClosedCandlesOnly: f.Market.ClosedCandlesOnly,
		Indicators: analysis.Params{
			EMAFast:   f.Indicators.EMAFast,
			EMASlow:   f.Indicators.EMASlow,
			RSIPeriod: f.Indicators.RSIPeriod,
			ATRPeriod: f.Indicators.ATRPeriod,
		},
		Signal: confluence.Thresholds{
			Overbought: p.parse("signal.rsi_overbought", f.Signal.RSIOverbought),
			Oversold:   p.parse("signal.rsi_oversold", f.Signal.RSIOversold),
		},
		Risk: risk.Params{
			StopMultiplier:  p.parse("risk.stop_atr_multiplier", f.Risk.StopATRMultiplier),
			MaxRiskFraction: p.parse("risk.max_risk_fraction", f.Risk.MaxRiskFraction),
			RewardRisk:      p.parse("risk.reward_risk_ratio", f.Risk.RewardRiskRatio),
			QtyStep:         p.parse("risk.qty_step", f.Risk.QtyStep),
			PriceTick:       p.parse("risk.price_tick", f.Risk.PriceTick),
		},
		PollInterval:     f.Loop.PollInterval,
		ErrorBackoff:     f.Loop.ErrorBackoff,
		BalanceSource:    f.Balance.Source,
		FixedBalance:     p.parse("balance.fixed", f.Balance.Fixed),
		BalanceCurrency:  f.Balance.Currency,
		SimulateBalance:  p.parse("simulate.initial_balance", f.Simulate.InitialBalance),
		SimulateStateDir: f.Simulate.StateDir,
		ExitOnOpposite:   f.Execution.ExitOnOppositeSignal,
		Dedup: DedupConfig{
			Backend:   f.Execution.Dedup.Backend,
			TTL:       f.Execution.Dedup.TTL,
			RedisAddr: f.Execution.Dedup.RedisAddr,
		},
		Journal: JournalConfig{
			Type: f.Journal.Type,
			Dir:  f.Journal.Dir,
			Path: f.Journal.Path,
		},
		Kafka: KafkaConfig{
			Brokers: f.Events.Kafka.Brokers,
			Topic:   f.Events.Kafka.Topic,
		},
		HTTPAddr:    f.HTTP.Addr,
		Credentials: creds,
	}
	if p.err != nil {
		return Config{}, p.err
	}
	if cfg.BalanceCurrency == "" {
		cfg.BalanceCurrency = pair.To
	}
	return cfg, nil
}

// Validate runs the semantic checks that cannot be expressed as struct tags
// and verifies the platform credentials are present.
func (c Config) Validate() error {
	if err := c.ValidateSettings(); err != nil {
		return err
	}
	return c.Credentials.check(c.Platform)
}

// ValidateSettings checks everything except credentials.
func (c Config) ValidateSettings() error {
	if _, err := risk.NewSizer(c.Risk); err != nil {
		return err
	}
	if _, err := confluence.NewSignalEngine(c.Signal); err != nil {
		return err
	}
	set, err := analysis.NewIndicatorSet(c.Indicators)
	if err != nil {
		return err
	}
	if c.Lookback < set.MinLookback() {
		return errors.Wrapf(domain.ErrConfiguration,
			"market.lookback %d is below the %d candles the indicators need", c.Lookback, set.MinLookback())
	}

	fast, err := collector.IntervalDuration(c.FastInterval)
	if err != nil {
		return errors.Wrapf(domain.ErrConfiguration, "timeframes.fast: %v", err)
	}
	slow, err := collector.IntervalDuration(c.SlowInterval)
	if err != nil {
		return errors.Wrapf(domain.ErrConfiguration, "timeframes.slow: %v", err)
	}
	if fast >= slow {
		return errors.Wrapf(domain.ErrConfiguration,
			"timeframes.fast %s must be shorter than timeframes.slow %s", c.FastInterval, c.SlowInterval)
	}

	if c.BalanceSource == BalanceSourceFixed && !c.FixedBalance.IsPositive() {
		return errors.Wrapf(domain.ErrConfiguration, "balance.fixed must be > 0, got %s", c.FixedBalance)
	}
	if c.Platform == PlatformSimulate && !c.SimulateBalance.IsPositive() {
		return errors.Wrapf(domain.ErrConfiguration, "simulate.initial_balance must be > 0, got %s", c.SimulateBalance)
	}
	if c.Platform == PlatformSimulate && c.BalanceSource == BalanceSourceFixed && c.FixedBalance.GreaterThan(c.SimulateBalance) {
		return errors.Wrapf(domain.ErrConfiguration,
			"balance.fixed %s exceeds simulate.initial_balance %s", c.FixedBalance, c.SimulateBalance)
	}
	if c.Platform == PlatformHyperliquid && c.MarketType != domain.MarketTypeMargin {
		return errors.Wrap(domain.ErrConfiguration, "hyperliquid trades perpetuals only, set market_type: margin")
	}
	if c.Platform == PlatformBybit && c.MarketType != domain.MarketTypeSpot {
		return errors.Wrap(domain.ErrConfiguration, "bybit supports market_type: spot only")
	}
	if (c.Kafka.Topic == "") != (len(c.Kafka.Brokers) == 0) {
		return errors.Wrap(domain.ErrConfiguration, "events.kafka needs both brokers and topic")
	}
	return nil
}

type decimalParser struct {
	err error
}

func (p *decimalParser) parse(field, raw string) decimal.Decimal {
	if p.err != nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		p.err = errors.Wrapf(domain.ErrConfiguration, "incorrect '%s' param in yaml config (must be a decimal): %v", field, err)
	}
	return d
}

func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.Wrap(domain.ErrConfiguration, err.Error())
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return errors.Wrap(domain.ErrConfiguration, strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "File.")
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "required_if":
		return field + " is required when " + fe.Param()
	case "oneof":
		return field + " must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "numeric":
		return field + " must be a number"
	case "gt":
		return field + " must be greater than " + fe.Param()
	case "gte":
		return field + " must be at least " + fe.Param()
	case "lte":
		return field + " must be at most " + fe.Param()
	default:
		return field + " failed validation: " + fe.Tag()
	}
}
