package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/skalibog/oiwatch/internal/analysis/oianalysis"
	"github.com/skalibog/oiwatch/internal/config"
	"github.com/skalibog/oiwatch/internal/exchange"
	"github.com/skalibog/oiwatch/internal/monitor"
	"github.com/skalibog/oiwatch/internal/notify"
	"github.com/skalibog/oiwatch/internal/storage"
	"github.com/skalibog/oiwatch/internal/ui"
	"github.com/skalibog/oiwatch/pkg/logger"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	// Обработка флагов командной строки
	configPath := flag.StringP("config", "c", "config.yaml", "путь к файлу конфигурации")
	envPath := flag.String("env", ".env", "путь к .env файлу")
	flag.Parse()

	// Загружаем конфигурацию
	cfg, err := config.Load(*configPath, *envPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка загрузки конфигурации: %v\n", err)
		os.Exit(1)
	}

	logOpts := cfg.Log.LoggerOptions()
	if cfg.UI.Enabled {
		// Консоль занята терминальным интерфейсом
		logOpts.Console = false
		if cfg.UI.LogFile == "" {
			cfg.UI.LogFile = logOpts.File
		}
	}
	logger.Init(logOpts)
	defer logger.Sync()

	if !cfg.FileLoaded {
		logger.Warn("Файл конфигурации не найден, используются значения по умолчанию", zap.String("path", *configPath))
	}
	logger.Info("Конфигурация загружена",
		zap.String("path", *configPath),
		zap.Strings("coins", cfg.Monitor.WatchCoins),
		zap.Bool("telegram", cfg.Telegram.Enabled()),
		zap.Bool("storage", cfg.Storage.Enabled),
		zap.Bool("ui", cfg.UI.Enabled))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Инициализируем клиент биржи
	client, err := exchange.NewBinanceClient(cfg.Binance, cfg.Monitor.OpenInterest.RatioPeriod)
	if err != nil {
		logger.Fatal("Ошибка инициализации клиента биржи", zap.Error(err))
	}
	market := exchange.NewMarketData(client, cfg.Monitor.RequestDelay())
	analyzer := oianalysis.NewAnalyzer(cfg.Monitor.OpenInterest, market)

	var notifier monitor.Notifier
	if cfg.Telegram.Enabled() {
		notifier = notify.NewTelegramNotifier(cfg.Telegram)
	} else {
		logger.Warn("Telegram не настроен, уведомления выводятся в консоль")
		var out io.Writer = os.Stdout
		if cfg.UI.Enabled {
			// Сигналы и так видны в панели
			out = io.Discard
		}
		notifier = notify.NewConsoleNotifier(out)
	}

	// Инициализируем хранилище
	recorder, err := storage.New(cfg.Storage)
	if err != nil {
		logger.Fatal("Ошибка инициализации хранилища", zap.Error(err))
	}
	defer recorder.Close()

	opts := []monitor.Option{monitor.WithRecorder(recorder)}

	if !cfg.UI.Enabled {
		m := monitor.NewMonitor(cfg.Monitor, analyzer, notifier, opts...)
		if err := m.Run(ctx); err != nil {
			logger.Error("Мониторинг завершился с ошибкой", zap.Error(err))
		}
		return
	}

	// UI в основном потоке, монитор в горутине
	userInterface := ui.NewTermUI(cfg.UI, cfg.Monitor.WatchCoins)
	opts = append(opts, monitor.WithObserver(userInterface))
	m := monitor.NewMonitor(cfg.Monitor, analyzer, notifier, opts...)

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := m.Run(ctx); err != nil {
			logger.Error("Мониторинг завершился с ошибкой", zap.Error(err))
		}
	}()

	if err := userInterface.Start(ctx); err != nil {
		logger.Error("Ошибка пользовательского интерфейса", zap.Error(err))
	}
	// Выход из UI останавливает мониторинг
	cancel()
	<-done
	logger.Info("Завершение работы")
}
