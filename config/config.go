package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Host     string `mapstructure:"host" json:"host,omitempty"`
		Port     int64  `mapstructure:"port" json:"port,omitempty"`
		Database struct {
			DSN string `mapstructure:"dsn" json:"dsn,omitempty"`
		} `mapstructure:"database" json:"database,omitempty"`
	} `mapstructure:"server" json:"server"`

	Provider struct {
		BaseURL     string        `mapstructure:"base_url" json:"base_url,omitempty"`
		AffiliateID string        `mapstructure:"affiliate_id" json:"affiliate_id,omitempty"`
		Timeout     time.Duration `mapstructure:"timeout" json:"timeout,omitempty"`
	} `mapstructure:"provider" json:"provider,omitempty"`

	Monitor struct {
		Interval       time.Duration `mapstructure:"interval" json:"interval,omitempty"`
		ItemTimeout    time.Duration `mapstructure:"item_timeout" json:"item_timeout,omitempty"`
		MaxDCAFailures int           `mapstructure:"max_dca_failures" json:"max_dca_failures,omitempty"`
	} `mapstructure:"monitor" json:"monitor,omitempty"`

	PriceCache struct {
		RefreshSpec string        `mapstructure:"refresh_spec" json:"refresh_spec,omitempty"`
		Freshness   time.Duration `mapstructure:"freshness" json:"freshness,omitempty"`
		Assets      []string      `mapstructure:"assets" json:"assets,omitempty"`
	} `mapstructure:"price_cache" json:"price_cache,omitempty"`

	Reconcile struct {
		Spec string `mapstructure:"spec" json:"spec,omitempty"`
	} `mapstructure:"reconcile" json:"reconcile,omitempty"`

	Redis struct {
		Host     string `mapstructure:"host" json:"host,omitempty"`
		Port     string `mapstructure:"port" json:"port,omitempty"`
		User     string `mapstructure:"user" json:"user,omitempty"`
		Password string `mapstructure:"password" json:"password,omitempty"`
		DB       int    `mapstructure:"db" json:"db,omitempty"`
	} `mapstructure:"redis" json:"redis,omitempty"`

	Telegram struct {
		BotToken string `mapstructure:"bot_token" json:"bot_token,omitempty"`
	} `mapstructure:"telegram" json:"telegram,omitempty"`

	Email struct {
		Host     string `mapstructure:"host" json:"host,omitempty"`
		Port     string `mapstructure:"port" json:"port,omitempty"`
		User     string `mapstructure:"user" json:"user,omitempty"`
		Password string `mapstructure:"password" json:"password,omitempty"`
		From     string `mapstructure:"from" json:"from,omitempty"`
	} `mapstructure:"email" json:"email,omitempty"`

	Datadog struct {
		Host string `mapstructure:"host" json:"host,omitempty"`
		Port string `mapstructure:"port" json:"port,omitempty"`
	} `mapstructure:"datadog" json:"datadog"`
}

func GetConfigure() (*Config, error) {
	configName := os.Getenv("SWAPD_CONFIG_NAME")
	if configName == "" {
		configName = "config"
	}

	return ReadConfig(configName)
}

func ReadConfig(configName string) (*Config, error) {
	viper.SetConfigName(configName)
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	viper.SetDefault("Provider.BaseURL", "https://sideshift.ai/api/v2")
	viper.SetDefault("Provider.Timeout", 15*time.Second)
	viper.SetDefault("Monitor.Interval", 60*time.Second)
	viper.SetDefault("Monitor.ItemTimeout", 45*time.Second)
	viper.SetDefault("Monitor.MaxDCAFailures", 5)
	viper.SetDefault("PriceCache.RefreshSpec", "@every 30s")
	viper.SetDefault("PriceCache.Freshness", 5*time.Minute)
	viper.SetDefault("Reconcile.Spec", "@every 2m")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("fail to reading config file, %w", err)
	}
	var cfg Config
	err := viper.Unmarshal(&cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}
	return &cfg, nil
}
