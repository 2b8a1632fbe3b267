package exchange

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"
	"github.com/skalibog/oiwatch/internal/config"
	"github.com/skalibog/oiwatch/pkg/models"
)

var (
	// ErrNoData биржа вернула пустой ответ
	ErrNoData = errors.New("нет данных")
	// ErrInvalidPrice цена отсутствует или не положительна
	ErrInvalidPrice = errors.New("некорректная цена")
)

// BinanceClient клиент для публичных эндпоинтов фьючерсов Binance
type BinanceClient struct {
	futures     *futures.Client
	ratioPeriod string
}

// NewBinanceClient создает новый клиент Binance
func NewBinanceClient(cfg config.BinanceConfig, ratioPeriod string) (*BinanceClient, error) {
	if cfg.Testnet {
		futures.UseTestnet = true
	}
	futuresClient := futures.NewClient(cfg.APIKey, cfg.APISecret)

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	futuresClient.HTTPClient = &http.Client{Timeout: timeout}

	if cfg.BaseURL != "" {
		futuresClient.BaseURL = cfg.BaseURL
	}
	if ratioPeriod == "" {
		ratioPeriod = config.DefaultRatioPeriod
	}

	return &BinanceClient{
		futures:     futuresClient,
		ratioPeriod: ratioPeriod,
	}, nil
}

// GetOpenInterest получает текущий открытый интерес и его стоимость в USDT
func (c *BinanceClient) GetOpenInterest(ctx context.Context, symbol string) (*models.OISnapshot, error) {
	oi, err := c.futures.NewGetOpenInterestService().
		Symbol(symbol).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения открытого интереса: %w", err)
	}

	amount, err := decimal.NewFromString(oi.OpenInterest)
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга открытого интереса %q: %w", oi.OpenInterest, err)
	}
	if amount.IsNegative() {
		return nil, fmt.Errorf("отрицательный открытый интерес %s", amount)
	}

	price, err := c.getPriceDecimal(ctx, symbol)
	if err != nil {
		return nil, err
	}

	return &models.OISnapshot{
		Symbol:    symbol,
		Amount:    amount.InexactFloat64(),
		Price:     price.InexactFloat64(),
		Value:     amount.Mul(price).InexactFloat64(),
		Timestamp: time.Now(),
	}, nil
}

// GetPrice получает последнюю цену контракта
func (c *BinanceClient) GetPrice(ctx context.Context, symbol string) (float64, error) {
	price, err := c.getPriceDecimal(ctx, symbol)
	if err != nil {
		return 0, err
	}
	return price.InexactFloat64(), nil
}

func (c *BinanceClient) getPriceDecimal(ctx context.Context, symbol string) (decimal.Decimal, error) {
	prices, err := c.futures.NewListPricesService().
		Symbol(symbol).
		Do(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("ошибка получения цены: %w", err)
	}
	if len(prices) == 0 {
		return decimal.Zero, fmt.Errorf("цена для %s: %w", symbol, ErrNoData)
	}

	price, err := decimal.NewFromString(prices[0].Price)
	if err != nil {
		return decimal.Zero, fmt.Errorf("ошибка парсинга цены %q: %w", prices[0].Price, err)
	}
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("цена для %s = %s: %w", symbol, price, ErrInvalidPrice)
	}
	return price, nil
}

// GetLongShortRatio получает последнее соотношение лонг/шорт аккаунтов
func (c *BinanceClient) GetLongShortRatio(ctx context.Context, symbol string) (*models.LongShortRatio, error) {
	rows, err := c.futures.NewLongShortRatioService().
		Symbol(symbol).
		Period(c.ratioPeriod).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения соотношения лонг/шорт: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("соотношение лонг/шорт для %s: %w", symbol, ErrNoData)
	}

	latest := rows[len(rows)-1]
	long, err := strconv.ParseFloat(latest.LongAccount, 64)
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга longAccount %q: %w", latest.LongAccount, err)
	}
	short, err := strconv.ParseFloat(latest.ShortAccount, 64)
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга shortAccount %q: %w", latest.ShortAccount, err)
	}

	return &models.LongShortRatio{
		Long:      long,
		Short:     short,
		Timestamp: time.UnixMilli(latest.Timestamp),
	}, nil
}
