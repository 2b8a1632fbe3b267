package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/samber/lo"
	"github.com/skalibog/oiwatch/pkg/logger"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v2"
)

// Значения по умолчанию
const (
	DefaultOIChangeThreshold = 10_000_000
	DefaultCheckInterval     = 300
	DefaultRequestDelayMs    = 1000
	DefaultDeliveryDelayMs   = 1000
	DefaultErrorCooldown     = 30
	DefaultRatioPeriod       = "5m"
	DefaultTelegramAPIURL    = "https://api.telegram.org"
	DefaultLogFile           = "app.json.log"
)

// DefaultWatchCoins монеты, отслеживаемые по умолчанию
var DefaultWatchCoins = []string{"BTC", "ETH"}

// Config представляет полную конфигурацию приложения
type Config struct {
	Binance  BinanceConfig  `yaml:"binance"`
	Telegram TelegramConfig `yaml:"telegram"`
	Monitor  MonitorConfig  `yaml:"monitor"`
	Storage  StorageConfig  `yaml:"storage"`
	UI       UIConfig       `yaml:"ui"`
	Log      LogConfig      `yaml:"log"`

	// FileLoaded false, если YAML-файл не найден
	FileLoaded bool `yaml:"-"`
}

// BinanceConfig содержит настройки подключения к Binance
type BinanceConfig struct {
	APIKey         string `yaml:"api_key"`
	APISecret      string `yaml:"api_secret"`
	BaseURL        string `yaml:"base_url"`
	Testnet        bool   `yaml:"testnet"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// TelegramConfig настройки канала уведомлений
type TelegramConfig struct {
	BotToken       string `yaml:"bot_token"`
	ChatID         string `yaml:"chat_id"`
	APIURL         string `yaml:"api_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Enabled сообщает, заданы ли учетные данные бота
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// MonitorConfig настройки цикла мониторинга
type MonitorConfig struct {
	WatchCoins           []string           `yaml:"watch_coins"`
	CheckIntervalSeconds int                `yaml:"check_interval_seconds"`
	RequestDelayMs       int                `yaml:"request_delay_ms"`
	DeliveryDelayMs      int                `yaml:"delivery_delay_ms"`
	ErrorCooldownSeconds int                `yaml:"error_cooldown_seconds"`
	OpenInterest         OpenInterestConfig `yaml:"open_interest"`
}

// CheckInterval интервал между сканированиями
func (m MonitorConfig) CheckInterval() time.Duration {
	return time.Duration(m.CheckIntervalSeconds) * time.Second
}

// RequestDelay пауза между сетевыми запросами по инструментам
func (m MonitorConfig) RequestDelay() time.Duration {
	return time.Duration(m.RequestDelayMs) * time.Millisecond
}

// DeliveryDelay пауза между отправками уведомлений
func (m MonitorConfig) DeliveryDelay() time.Duration {
	return time.Duration(m.DeliveryDelayMs) * time.Millisecond
}

// ErrorCooldown пауза после непредвиденной ошибки цикла
func (m MonitorConfig) ErrorCooldown() time.Duration {
	return time.Duration(m.ErrorCooldownSeconds) * time.Second
}

// OpenInterestConfig настройки анализа открытого интереса
type OpenInterestConfig struct {
	ChangeThreshold float64 `yaml:"change_threshold"` // абсолютное изменение в USD
	RatioPeriod     string  `yaml:"ratio_period"`
}

// StorageConfig настройки журнала в InfluxDB
type StorageConfig struct {
	Enabled      bool   `yaml:"enabled"`
	URL          string `yaml:"url"`
	Token        string `yaml:"token"`
	Organization string `yaml:"organization"`
	Bucket       string `yaml:"bucket"`
}

// UIConfig настройки пользовательского интерфейса
type UIConfig struct {
	Enabled     bool   `yaml:"enabled"`
	RefreshRate int    `yaml:"refresh_rate_ms"`
	LogFile     string `yaml:"log_file"`
}

// LogConfig настройки логирования
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	Console    bool   `yaml:"console"`
}

// LoggerOptions переводит настройки в параметры логгера
func (l LogConfig) LoggerOptions() logger.Options {
	return logger.Options{
		Level:      l.Level,
		File:       l.File,
		MaxSizeMB:  l.MaxSizeMB,
		MaxBackups: l.MaxBackups,
		Console:    l.Console,
	}
}

// Default возвращает конфигурацию со значениями по умолчанию
func Default() *Config {
	return &Config{
		Binance: BinanceConfig{
			TimeoutSeconds: 30,
		},
		Telegram: TelegramConfig{
			APIURL:         DefaultTelegramAPIURL,
			TimeoutSeconds: 10,
		},
		Monitor: MonitorConfig{
			WatchCoins:           append([]string(nil), DefaultWatchCoins...),
			CheckIntervalSeconds: DefaultCheckInterval,
			RequestDelayMs:       DefaultRequestDelayMs,
			DeliveryDelayMs:      DefaultDeliveryDelayMs,
			ErrorCooldownSeconds: DefaultErrorCooldown,
			OpenInterest: OpenInterestConfig{
				ChangeThreshold: DefaultOIChangeThreshold,
				RatioPeriod:     DefaultRatioPeriod,
			},
		},
		UI: UIConfig{
			RefreshRate: 1000,
			LogFile:     DefaultLogFile,
		},
		Log: LogConfig{
			Level:      "info",
			File:       DefaultLogFile,
			MaxSizeMB:  50,
			MaxBackups: 3,
			Console:    true,
		},
	}
}

// Load загружает конфигурацию: значения по умолчанию, затем YAML-файл
// (если существует), затем переменные окружения (включая .env).
func Load(path, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("ошибка чтения %s: %w", envFile, err)
		}
	}

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("ошибка разбора файла конфигурации: %w", err)
			}
			cfg.FileLoaded = true
		case errors.Is(err, os.ErrNotExist):
			// Работаем на значениях по умолчанию и переменных окружения
		default:
			return nil, fmt.Errorf("ошибка чтения файла конфигурации: %w", err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.Monitor.WatchCoins = NormalizeCoins(cfg.Monitor.WatchCoins)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	var errs error

	if v, ok := lookup("TELEGRAM_BOT_TOKEN"); ok {
		c.Telegram.BotToken = v
	}
	if v, ok := lookup("TELEGRAM_CHAT_ID"); ok {
		c.Telegram.ChatID = v
	}
	if v, ok := lookup("BINANCE_API_KEY"); ok {
		c.Binance.APIKey = v
	}
	if v, ok := lookup("BINANCE_API_SECRET"); ok {
		c.Binance.APISecret = v
	}
	if v, ok := lookup("OI_CHANGE_THRESHOLD"); ok {
		threshold, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(v), "_", ""), 64)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("OI_CHANGE_THRESHOLD: %w", err))
		} else {
			c.Monitor.OpenInterest.ChangeThreshold = threshold
		}
	}
	if v, ok := lookup("CHECK_INTERVAL"); ok {
		interval, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("CHECK_INTERVAL: %w", err))
		} else {
			c.Monitor.CheckIntervalSeconds = interval
		}
	}
	if v, ok := lookup("WATCH_COINS"); ok {
		c.Monitor.WatchCoins = strings.Split(v, ",")
	}

	return errs
}

// NormalizeCoins приводит список монет к верхнему регистру, убирает пустые
// значения и дубликаты, сохраняя порядок.
func NormalizeCoins(coins []string) []string {
	normalized := lo.Map(coins, func(c string, _ int) string {
		return strings.ToUpper(strings.TrimSpace(c))
	})
	return lo.Uniq(lo.Compact(normalized))
}

// Validate проверяет конфигурацию и возвращает все найденные ошибки
func (c *Config) Validate() error {
	var errs error

	if len(c.Monitor.WatchCoins) == 0 {
		errs = multierr.Append(errs, errors.New("monitor.watch_coins: список пуст"))
	}
	if c.Monitor.CheckIntervalSeconds <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("monitor.check_interval_seconds: должно быть > 0, получено %d", c.Monitor.CheckIntervalSeconds))
	}
	if c.Monitor.OpenInterest.ChangeThreshold < 0 {
		errs = multierr.Append(errs, fmt.Errorf("monitor.open_interest.change_threshold: должно быть >= 0, получено %v", c.Monitor.OpenInterest.ChangeThreshold))
	}
	if c.Monitor.RequestDelayMs < 0 || c.Monitor.DeliveryDelayMs < 0 || c.Monitor.ErrorCooldownSeconds < 0 {
		errs = multierr.Append(errs, errors.New("monitor: задержки не могут быть отрицательными"))
	}
	if c.Storage.Enabled && (c.Storage.URL == "" || c.Storage.Bucket == "") {
		errs = multierr.Append(errs, errors.New("storage: для включенного хранилища нужны url и bucket"))
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		errs = multierr.Append(errs, errors.New("telegram: bot_token и chat_id задаются вместе"))
	}

	return errs
}
