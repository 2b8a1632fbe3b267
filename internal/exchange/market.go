package exchange

import (
	"context"
	"time"

	"github.com/skalibog/oiwatch/pkg/logger"
	"github.com/skalibog/oiwatch/pkg/models"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// MarketClient источник сырых рыночных данных
type MarketClient interface {
	GetOpenInterest(ctx context.Context, symbol string) (*models.OISnapshot, error)
	GetLongShortRatio(ctx context.Context, symbol string) (*models.LongShortRatio, error)
}

// MarketData сводит любые ошибки клиента к отсутствию данных и
// выдерживает паузу между запросами по инструментам.
type MarketData struct {
	client  MarketClient
	limiter *rate.Limiter
}

// NewMarketData создает источник данных с паузой requestDelay между запросами
func NewMarketData(client MarketClient, requestDelay time.Duration) *MarketData {
	limit := rate.Inf
	if requestDelay > 0 {
		limit = rate.Every(requestDelay)
	}
	return &MarketData{
		client:  client,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// OpenInterest возвращает снимок открытого интереса или false, если данные недоступны
func (m *MarketData) OpenInterest(ctx context.Context, symbol string) (models.OISnapshot, bool) {
	if err := m.limiter.Wait(ctx); err != nil {
		return models.OISnapshot{}, false
	}

	snapshot, err := m.client.GetOpenInterest(ctx, symbol)
	if err != nil {
		logger.Warn("Открытый интерес недоступен", zap.String("symbol", symbol), zap.Error(err))
		return models.OISnapshot{}, false
	}
	return *snapshot, true
}

// LongShortRatio возвращает соотношение лонг/шорт или false, если данные недоступны
func (m *MarketData) LongShortRatio(ctx context.Context, symbol string) (models.LongShortRatio, bool) {
	if err := m.limiter.Wait(ctx); err != nil {
		return models.LongShortRatio{}, false
	}

	ratio, err := m.client.GetLongShortRatio(ctx, symbol)
	if err != nil {
		logger.Warn("Соотношение лонг/шорт недоступно", zap.String("symbol", symbol), zap.Error(err))
		return models.LongShortRatio{}, false
	}
	return *ratio, true
}
