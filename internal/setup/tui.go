package setup

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/vadiminshakov/mtftrader/config"
	"github.com/vadiminshakov/mtftrader/internal/services/market/collector"
)

const wizardTitle = "MTFTRADER CONFIG WIZARD"

var (
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// Answers holds the raw wizard input.
type Answers struct {
	Platform        string
	Pair            string
	MarketType      string
	Leverage        string
	FastInterval    string
	SlowInterval    string
	PollInterval    string
	MaxRiskFraction string
	StopMultiplier  string
	RewardRisk      string
	BalanceSource   string
	FixedBalance    string
	ExitOnOpposite  bool
}

// DefaultAnswers prefills the wizard from the configuration defaults.
func DefaultAnswers() Answers {
	d := config.Default()
	return Answers{
		Platform:        d.Platform,
		Pair:            d.Pair,
		MarketType:      d.MarketType,
		Leverage:        fmt.Sprint(d.Leverage),
		FastInterval:    d.Timeframes.Fast,
		SlowInterval:    d.Timeframes.Slow,
		PollInterval:    d.Loop.PollInterval.String(),
		MaxRiskFraction: d.Risk.MaxRiskFraction,
		StopMultiplier:  d.Risk.StopATRMultiplier,
		RewardRisk:      d.Risk.RewardRiskRatio,
		BalanceSource:   d.Balance.Source,
		FixedBalance:    d.Balance.Fixed,
	}
}

// BuildFile turns wizard answers into a validated config document.
// Credentials are read from the environment at run time and are not checked.
func BuildFile(a Answers) (config.File, error) {
	f := config.Default()
	f.Platform = a.Platform
	f.Pair = strings.ToUpper(strings.TrimSpace(a.Pair))
	f.MarketType = a.MarketType
	f.Timeframes.Fast = a.FastInterval
	f.Timeframes.Slow = a.SlowInterval
	f.Risk.MaxRiskFraction = a.MaxRiskFraction
	f.Risk.StopATRMultiplier = a.StopMultiplier
	f.Risk.RewardRiskRatio = a.RewardRisk
	f.Balance.Source = a.BalanceSource
	f.Balance.Fixed = a.FixedBalance
	f.Execution.ExitOnOppositeSignal = a.ExitOnOpposite

	poll, err := time.ParseDuration(a.PollInterval)
	if err != nil {
		return config.File{}, errors.Wrapf(err, "invalid poll interval %q", a.PollInterval)
	}
	f.Loop.PollInterval = poll

	if a.MarketType == "margin" && a.Leverage != "" {
		if _, err := fmt.Sscan(a.Leverage, &f.Leverage); err != nil {
			return config.File{}, errors.Errorf("invalid leverage %q", a.Leverage)
		}
	}

	// the paper venue is funded with at least the balance orders are sized against
	if f.Platform == config.PlatformSimulate {
		fixed, ferr := decimal.NewFromString(f.Balance.Fixed)
		funding, serr := decimal.NewFromString(f.Simulate.InitialBalance)
		if ferr == nil && serr == nil && fixed.GreaterThan(funding) {
			f.Simulate.InitialBalance = f.Balance.Fixed
		}
	}

	if _, err := config.ParseSettings(f); err != nil {
		return config.File{}, err
	}
	return f, nil
}

// Write marshals f as YAML into path.
func Write(path string, f config.File) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return errors.Wrap(err, "failed to generate yaml")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to save config file")
	}
	return nil
}

func step(title string) {
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render(wizardTitle))
	fmt.Println(stepStyle.Render(title))
}

// RunTUI launches the terminal configuration wizard and writes the result to path.
func RunTUI(path string) error {
	a := DefaultAnswers()
	var confirm bool

	step("STEP 1: PLATFORM")
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Select Exchange Platform").
				Options(
					huh.NewOption("Simulation", config.PlatformSimulate),
					huh.NewOption("Binance", config.PlatformBinance),
					huh.NewOption("Bybit", config.PlatformBybit),
					huh.NewOption("Hyperliquid", config.PlatformHyperliquid),
				).
				Value(&a.Platform),
		),
	).Run()
	if err != nil {
		return err
	}

	step("STEP 2: MARKET")
	marketFields := []huh.Field{
		huh.NewInput().
			Title("Trading Pair").
			Description("Must contain underscore (e.g. BTC_USDT)").
			Value(&a.Pair).
			Validate(validatePair),
		huh.NewSelect[string]().
			Title("Spot or Margin?").
			Options(
				huh.NewOption("Spot", "spot"),
				huh.NewOption("Margin", "margin"),
			).
			Value(&a.MarketType),
	}
	err = huh.NewForm(huh.NewGroup(marketFields...)).Run()
	if err != nil {
		return err
	}
	if a.MarketType == "margin" {
		err = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Leverage").
					Description("1-50").
					Value(&a.Leverage),
			),
		).Run()
		if err != nil {
			return err
		}
	}

	step("STEP 3: TIMEFRAMES")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Fast Timeframe").
				Description("Entry timing (e.g. 15m)").
				Value(&a.FastInterval).
				Validate(validateInterval),
			huh.NewInput().
				Title("Slow Timeframe").
				Description("Trend filter (e.g. 4h)").
				Value(&a.SlowInterval).
				Validate(validateInterval),
			huh.NewInput().
				Title("Poll Interval").
				Description("Duration string (e.g. 1m, 5m)").
				Value(&a.PollInterval).
				Validate(func(s string) error {
					_, err := time.ParseDuration(s)
					return err
				}),
		),
	).Run()
	if err != nil {
		return err
	}

	step("STEP 4: RISK")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Max Risk per Trade").
				Description("Fraction of balance (e.g. 0.01 = 1%)").
				Value(&a.MaxRiskFraction).
				Validate(validateFraction),
			huh.NewInput().
				Title("Stop Distance (ATR multiples)").
				Value(&a.StopMultiplier).
				Validate(validatePositive),
			huh.NewInput().
				Title("Reward/Risk Ratio").
				Value(&a.RewardRisk).
				Validate(validatePositive),
			huh.NewConfirm().
				Title("Exit on opposite signal?").
				Value(&a.ExitOnOpposite),
		),
	).Run()
	if err != nil {
		return err
	}

	step("STEP 5: BALANCE")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Balance Source").
				Options(
					huh.NewOption("Fixed amount", config.BalanceSourceFixed),
					huh.NewOption("Live from exchange", config.BalanceSourceLive),
				).
				Value(&a.BalanceSource),
			huh.NewInput().
				Title("Fixed Balance").
				Description("Used when the source is fixed").
				Value(&a.FixedBalance).
				Validate(validatePositive),
		),
	).Run()
	if err != nil {
		return err
	}

	f, err := BuildFile(a)
	if err != nil {
		return err
	}

	step("FINAL CONFIRMATION")
	summary := fmt.Sprintf(
		"Platform: %s\nPair: %s\nMarket: %s\nTimeframes: %s / %s\nPoll: %s\nRisk: %s (stop %sxATR, RR %s)\nBalance: %s\n",
		f.Platform, f.Pair, f.MarketType, f.Timeframes.Fast, f.Timeframes.Slow,
		f.Loop.PollInterval, f.Risk.MaxRiskFraction, f.Risk.StopATRMultiplier, f.Risk.RewardRiskRatio,
		f.Balance.Source,
	)
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}
	if !confirm {
		return errors.New("setup cancelled by user")
	}

	if err := Write(path, f); err != nil {
		return err
	}
	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✓ Configuration saved to %s", path)))
	return nil
}

func validatePair(s string) error {
	if s == "" {
		return errors.New("pair cannot be empty")
	}
	if !strings.Contains(s, "_") {
		return errors.New("invalid format: must be BASE_QUOTE (e.g. BTC_USDT)")
	}
	return nil
}

func validateInterval(s string) error {
	_, err := collector.IntervalDuration(s)
	return err
}

func validatePositive(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return errors.New("must be a valid number")
	}
	if !d.IsPositive() {
		return errors.New("must be greater than 0")
	}
	return nil
}

func validateFraction(s string) error {
	if err := validatePositive(s); err != nil {
		return err
	}
	if decimal.RequireFromString(s).GreaterThan(decimal.NewFromInt(1)) {
		return errors.New("must not exceed 1")
	}
	return nil
}
