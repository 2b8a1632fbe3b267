package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/skalibog/oiwatch/internal/config"
	"github.com/skalibog/oiwatch/internal/storage"
	"github.com/skalibog/oiwatch/pkg/logger"
	"github.com/skalibog/oiwatch/pkg/models"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Scanner детектор изменений открытого интереса
type Scanner interface {
	Scan(ctx context.Context, coins []string) []*models.Alert
	History() map[string]models.OISnapshot
}

// Notifier доставляет уведомление в канал
type Notifier interface {
	Deliver(ctx context.Context, alert *models.Alert) error
}

// Observer получает результаты циклов (например, терминальный интерфейс).
// Вызывается из горутины монитора.
type Observer interface {
	OnScan(history map[string]models.OISnapshot)
	OnAlert(alert *models.Alert)
}

// Monitor периодически сканирует монеты и отправляет найденные сигналы
type Monitor struct {
	config   config.MonitorConfig
	scanner  Scanner
	notifier Notifier
	recorder storage.Recorder
	observer Observer
	delivery *rate.Limiter
}

// Option настройка монитора
type Option func(*Monitor)

// WithRecorder подключает журнал снимков и сигналов
func WithRecorder(r storage.Recorder) Option {
	return func(m *Monitor) {
		m.recorder = r
	}
}

// WithObserver подключает наблюдателя за циклами
func WithObserver(o Observer) Option {
	return func(m *Monitor) {
		m.observer = o
	}
}

// NewMonitor создает монитор
func NewMonitor(cfg config.MonitorConfig, scanner Scanner, notifier Notifier, opts ...Option) *Monitor {
	limit := rate.Inf
	if d := cfg.DeliveryDelay(); d > 0 {
		limit = rate.Every(d)
	}

	m := &Monitor{
		config:   cfg,
		scanner:  scanner,
		notifier: notifier,
		recorder: storage.NopRecorder{},
		delivery: rate.NewLimiter(limit, 1),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run выполняет прогрев (базовую линию), затем циклы сканирования до отмены ctx.
// Отмена наблюдается между циклами: начатый цикл завершается полностью.
func (m *Monitor) Run(ctx context.Context) error {
	logger.Info("Open Interest Monitor запущен",
		zap.Duration("interval", m.config.CheckInterval()),
		zap.String("threshold", fmt.Sprintf("$%.0fM", m.config.OpenInterest.ChangeThreshold/1e6)),
		zap.Strings("coins", m.config.WatchCoins))

	logger.Info("Установка базовой линии...")
	if err := m.warmUp(ctx); err != nil {
		logger.Error("Ошибка при установке базовой линии", zap.Error(err))
	} else {
		logger.Info("Базовая линия установлена")
	}

	for {
		if err := sleep(ctx, m.config.CheckInterval()); err != nil {
			logger.Info("Мониторинг остановлен")
			return nil
		}

		delivered, err := m.RunCycle(context.WithoutCancel(ctx))
		if err != nil {
			logger.Error("Ошибка цикла мониторинга",
				zap.Error(err),
				zap.Duration("cooldown", m.config.ErrorCooldown()))
			if err := sleep(ctx, m.config.ErrorCooldown()); err != nil {
				logger.Info("Мониторинг остановлен")
				return nil
			}
			continue
		}

		logger.Debug("Цикл завершен", zap.Int("delivered", delivered))
		logger.Info(fmt.Sprintf("Пауза %s...", m.config.CheckInterval()))
	}
}

// warmUp первое сканирование: сигналов быть не может, только история
func (m *Monitor) warmUp(ctx context.Context) (err error) {
	defer recoverCycle(&err)

	m.scanner.Scan(context.WithoutCancel(ctx), m.config.WatchCoins)
	m.afterScan(ctx)
	return nil
}

// RunCycle выполняет одно сканирование и доставку сигналов.
// Возвращает число доставленных уведомлений.
func (m *Monitor) RunCycle(ctx context.Context) (delivered int, err error) {
	defer recoverCycle(&err)

	alerts := m.scanner.Scan(ctx, m.config.WatchCoins)
	m.afterScan(ctx)

	if len(alerts) == 0 {
		logger.Info("Значительных изменений OI нет")
		return 0, nil
	}

	logger.Info(fmt.Sprintf("Найдено изменений OI: %d", len(alerts)))
	for _, alert := range alerts {
		if err := m.delivery.Wait(ctx); err != nil {
			return delivered, fmt.Errorf("доставка прервана: %w", err)
		}

		if m.observer != nil {
			m.observer.OnAlert(alert)
		}
		if err := m.recorder.SaveAlert(ctx, alert); err != nil {
			logger.Warn("Не удалось сохранить сигнал", zap.String("alert_id", alert.ID), zap.Error(err))
		}

		if err := m.notifier.Deliver(ctx, alert); err != nil {
			logger.Error("Не удалось отправить уведомление",
				zap.String("coin", alert.Coin),
				zap.String("alert_id", alert.ID),
				zap.Error(err))
			continue
		}
		delivered++
	}

	return delivered, nil
}

// afterScan публикует историю наблюдателю и в журнал.
// Повторная запись старого снимка идемпотентна: та же точка и метка времени.
func (m *Monitor) afterScan(ctx context.Context) {
	history := m.scanner.History()

	for _, coin := range m.config.WatchCoins {
		snapshot, ok := history[coin]
		if !ok {
			continue
		}
		if err := m.recorder.SaveSnapshot(ctx, coin, snapshot); err != nil {
			logger.Warn("Не удалось сохранить снимок OI", zap.String("coin", coin), zap.Error(err))
		}
	}

	if m.observer != nil {
		m.observer.OnScan(history)
	}
}

// errPanic паника внутри цикла мониторинга
var errPanic = errors.New("паника в цикле мониторинга")

func recoverCycle(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w: %v", errPanic, r)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
