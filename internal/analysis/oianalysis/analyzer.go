// internal/analysis/oianalysis/analyzer.go
package oianalysis

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/skalibog/oiwatch/internal/config"
	"github.com/skalibog/oiwatch/internal/exchange"
	"github.com/skalibog/oiwatch/internal/notify"
	"github.com/skalibog/oiwatch/pkg/logger"
	"github.com/skalibog/oiwatch/pkg/models"
	"go.uber.org/zap"
)

// BiasThreshold доля аккаунтов, начиная с которой позиционирование считается перекошенным
const BiasThreshold = 0.55

// Source рыночные данные, где ошибка уже сведена к отсутствию значения
type Source interface {
	OpenInterest(ctx context.Context, symbol string) (models.OISnapshot, bool)
	LongShortRatio(ctx context.Context, symbol string) (models.LongShortRatio, bool)
}

// Analyzer отслеживает изменения открытого интереса между сканированиями.
// История живет только в памяти процесса. Не потокобезопасен: сканирования
// выполняются последовательно.
type Analyzer struct {
	config  config.OpenInterestConfig
	source  Source
	history map[string]models.OISnapshot
	now     func() time.Time
}

// NewAnalyzer создает новый анализатор открытого интереса с пустой историей
func NewAnalyzer(cfg config.OpenInterestConfig, source Source) *Analyzer {
	return &Analyzer{
		config:  cfg,
		source:  source,
		history: make(map[string]models.OISnapshot),
		now:     time.Now,
	}
}

// Scan проверяет все монеты по порядку и возвращает найденные сигналы.
// Недоступные инструменты пропускаются, сканирование продолжается.
func (a *Analyzer) Scan(ctx context.Context, coins []string) []*models.Alert {
	logger.Info("Сканирование открытого интереса", zap.Int("coins", len(coins)))

	var alerts []*models.Alert
	for _, coin := range coins {
		if ctx.Err() != nil {
			logger.Warn("Сканирование прервано", zap.Error(ctx.Err()))
			break
		}

		symbol := exchange.SymbolFor(coin)
		snapshot, ok := a.source.OpenInterest(ctx, symbol)
		if !ok {
			logger.Warn("Не удалось получить данные OI", zap.String("coin", coin), zap.String("symbol", symbol))
			continue
		}

		logger.Info(fmt.Sprintf("OI: $%.2fB at $%s", snapshot.Value/1e9, notify.FormatThousands(snapshot.Price, 2)),
			zap.String("coin", coin))

		if alert, fired := a.RecordAndCompare(ctx, coin, snapshot); fired {
			alerts = append(alerts, alert)
		}
	}

	return alerts
}

// RecordAndCompare сохраняет снимок и сравнивает его с предыдущим.
// Возвращает сигнал, если абсолютное изменение стоимости OI не меньше порога.
func (a *Analyzer) RecordAndCompare(ctx context.Context, coin string, current models.OISnapshot) (*models.Alert, bool) {
	previous, seen := a.history[coin]
	a.history[coin] = current

	// Первое наблюдение - только базовая линия
	if !seen {
		logger.Debug("Базовая линия OI установлена", zap.String("coin", coin), zap.Float64("value", current.Value))
		return nil, false
	}

	if previous.Value == 0 {
		logger.Warn("Предыдущий OI равен нулю, сравнение пропущено", zap.String("coin", coin))
		return nil, false
	}

	change := current.Value - previous.Value
	changePct := change / previous.Value * 100

	if math.Abs(change) < a.config.ChangeThreshold {
		logger.Debug("Изменение OI ниже порога",
			zap.String("coin", coin),
			zap.Float64("change", change),
			zap.Float64("threshold", a.config.ChangeThreshold))
		return nil, false
	}

	symbol := current.Symbol
	if symbol == "" {
		symbol = exchange.SymbolFor(coin)
	}

	var ratio *models.LongShortRatio
	if r, ok := a.source.LongShortRatio(ctx, symbol); ok {
		ratio = &r
	}

	direction, signal, bias := classify(change, ratio)

	alert := &models.Alert{
		ID:            uuid.NewString(),
		Coin:          coin,
		Symbol:        symbol,
		Direction:     direction,
		Signal:        signal,
		Bias:          bias,
		PreviousValue: previous.Value,
		CurrentValue:  current.Value,
		Change:        change,
		ChangePct:     changePct,
		Price:         current.Price,
		Ratio:         ratio,
		Timestamp:     a.now(),
	}

	logger.Info("Значительное изменение OI",
		zap.String("coin", coin),
		zap.Stringer("direction", direction),
		zap.Stringer("signal", signal),
		zap.Float64("change", change),
		zap.Float64("change_pct", changePct))

	return alert, true
}

// classify определяет направление и сигнал. На росте OI порядок проверок
// фиксирован: сначала лонги, затем шорты. На снижении соотношение не учитывается.
func classify(change float64, ratio *models.LongShortRatio) (models.Direction, models.Signal, string) {
	if change <= 0 {
		return models.DirectionDecreasing, models.SignalPositionClosing, "Traders closing positions"
	}

	switch {
	case ratio != nil && ratio.Long > BiasThreshold:
		return models.DirectionIncreasing, models.SignalBullish,
			fmt.Sprintf("Long-biased (%.1f%% longs)", ratio.LongPct())
	case ratio != nil && ratio.Short > BiasThreshold:
		return models.DirectionIncreasing, models.SignalBearish,
			fmt.Sprintf("Short-biased (%.1f%% shorts)", ratio.ShortPct())
	default:
		return models.DirectionIncreasing, models.SignalNeutral, "Balanced positioning"
	}
}

// Snapshot возвращает последний сохраненный снимок монеты
func (a *Analyzer) Snapshot(coin string) (models.OISnapshot, bool) {
	s, ok := a.history[coin]
	return s, ok
}

// History возвращает копию истории
func (a *Analyzer) History() map[string]models.OISnapshot {
	out := make(map[string]models.OISnapshot, len(a.history))
	for k, v := range a.history {
		out[k] = v
	}
	return out
}
