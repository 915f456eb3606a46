package config

import (
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Aggregator AggregatorConfig
	Feed       FeedConfig
	Trader     TraderConfig
	Runtime    RuntimeConfig
}

type AggregatorConfig struct {
	SwapBaseURL    string
	PerpsBaseURL   string
	SlippageBps    int
	ConfirmTimeout time.Duration
}

type FeedConfig struct {
	BaseURL     string
	QuoteToken  string
	DailyTTL    time.Duration
	IntradayTTL time.Duration
}

type TraderConfig struct {
	Pair            string
	TickInterval    time.Duration
	SellAllFraction float64
	SwapFraction    float64
	StatusTimeout   time.Duration
	AutoPerps       bool

	PerpsLeverage      float64
	PerpsBalanceFrac   float64
	PerpsMinCollateral float64
	PerpsMaxCollateral float64
	PerpsMaxOpen       int
	PerpsTakeProfitROI float64
	PerpsStopLossROI   float64
}

type RuntimeConfig struct {
	DataDir    string
	PushListen string
	Log        LogConfig
}

type LogConfig struct {
	Level      string
	Format     string
	File       string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

func Load() (*Config, error) {

	cfg := &Config{}
	viper.AddConfigPath("configs")
	viper.SetConfigName("config")
	viper.ReadInConfig()

	setDefaults()

	cfg.Aggregator = AggregatorConfig{
		SwapBaseURL:    viper.GetString("aggregator.swap_base_url"),
		PerpsBaseURL:   viper.GetString("aggregator.perps_base_url"),
		SlippageBps:    viper.GetInt("aggregator.slippage_bps"),
		ConfirmTimeout: viper.GetDuration("aggregator.confirm_timeout"),
	}

	cfg.Feed = FeedConfig{
		BaseURL:     viper.GetString("feed.base_url"),
		QuoteToken:  viper.GetString("feed.quote_token"),
		DailyTTL:    viper.GetDuration("feed.daily_ttl"),
		IntradayTTL: viper.GetDuration("feed.intraday_ttl"),
	}

	cfg.Trader = TraderConfig{
		Pair:               viper.GetString("trader.pair"),
		StatusTimeout:      viper.GetDuration("trader.status_timeout"),
		AutoPerps:          viper.GetBool("trader.auto_perps"),
		TickInterval:       viper.GetDuration("trader.tick_interval"),
		SellAllFraction:    viper.GetFloat64("trader.sell_all_fraction"),
		SwapFraction:       viper.GetFloat64("trader.swap_fraction"),
		PerpsLeverage:      viper.GetFloat64("trader.perps_leverage"),
		PerpsBalanceFrac:   viper.GetFloat64("trader.perps_balance_fraction"),
		PerpsMinCollateral: viper.GetFloat64("trader.perps_min_collateral"),
		PerpsMaxCollateral: viper.GetFloat64("trader.perps_max_collateral"),
		PerpsMaxOpen:       viper.GetInt("trader.perps_max_open"),
		PerpsTakeProfitROI: viper.GetFloat64("trader.perps_take_profit_roi"),
		PerpsStopLossROI:   viper.GetFloat64("trader.perps_stop_loss_roi"),
	}

	cfg.Runtime = RuntimeConfig{
		DataDir:    envSub("runtime.data_dir"),
		PushListen: viper.GetString("runtime.push_listen"),
		Log: LogConfig{
			Level:      viper.GetString("runtime.log.level"),
			Format:     viper.GetString("runtime.log.format"),
			File:       viper.GetString("runtime.log.file"),
			MaxSize:    viper.GetInt("runtime.log.max_size"),
			MaxBackups: viper.GetInt("runtime.log.max_backups"),
			MaxAge:     viper.GetInt("runtime.log.max_age"),
			Compress:   viper.GetBool("runtime.log.compress"),
		},
	}

	return cfg, nil
}

func setDefaults() {
	viper.SetDefault("aggregator.slippage_bps", 100)
	viper.SetDefault("aggregator.confirm_timeout", "60s")
	viper.SetDefault("feed.quote_token", "USDC")
	viper.SetDefault("feed.daily_ttl", "5m")
	viper.SetDefault("feed.intraday_ttl", "1m")
	viper.SetDefault("trader.pair", "SOL/USDC")
	viper.SetDefault("trader.tick_interval", "30s")
	viper.SetDefault("trader.status_timeout", "8s")
	viper.SetDefault("trader.sell_all_fraction", 0.98)
	viper.SetDefault("trader.swap_fraction", 0.25)
	viper.SetDefault("trader.perps_leverage", 5)
	viper.SetDefault("trader.perps_balance_fraction", 0.10)
	viper.SetDefault("trader.perps_min_collateral", 10)
	viper.SetDefault("trader.perps_max_collateral", 250)
	viper.SetDefault("trader.perps_max_open", 3)
	viper.SetDefault("trader.perps_take_profit_roi", 20)
	viper.SetDefault("trader.perps_stop_loss_roi", -15)
	viper.SetDefault("runtime.data_dir", "data")
}

func envSub(key string) string {
	val := viper.GetString(key)
	if val == "" {
		return ""
	}

	re := regexp.MustCompile(`\$\{(\w+)\}`)
	return re.ReplaceAllStringFunc(val, func(match string) string {
		envKey := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		return os.Getenv(envKey)
	})
}
