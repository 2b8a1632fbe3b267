package exchange

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/skalibog/oiwatch/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockMarketClient struct {
	mock.Mock
}

func (m *MockMarketClient) GetOpenInterest(ctx context.Context, symbol string) (*models.OISnapshot, error) {
	args := m.Called(ctx, symbol)
	snap, _ := args.Get(0).(*models.OISnapshot)
	return snap, args.Error(1)
}

func (m *MockMarketClient) GetLongShortRatio(ctx context.Context, symbol string) (*models.LongShortRatio, error) {
	args := m.Called(ctx, symbol)
	ratio, _ := args.Get(0).(*models.LongShortRatio)
	return ratio, args.Error(1)
}

func TestMarketDataOpenInterest(t *testing.T) {
	client := new(MockMarketClient)
	client.On("GetOpenInterest", mock.Anything, "BTCUSDT").
		Return(&models.OISnapshot{Symbol: "BTCUSDT", Value: 1e9}, nil)
	client.On("GetOpenInterest", mock.Anything, "ETHUSDT").
		Return(nil, errors.New("connection refused"))

	md := NewMarketData(client, 0)

	snap, ok := md.OpenInterest(context.Background(), "BTCUSDT")
	assert.True(t, ok)
	assert.Equal(t, 1e9, snap.Value)

	snap, ok = md.OpenInterest(context.Background(), "ETHUSDT")
	assert.False(t, ok)
	assert.Zero(t, snap)

	client.AssertExpectations(t)
}

func TestMarketDataLongShortRatio(t *testing.T) {
	client := new(MockMarketClient)
	client.On("GetLongShortRatio", mock.Anything, "BTCUSDT").
		Return(&models.LongShortRatio{Long: 0.6, Short: 0.4}, nil).Once()
	client.On("GetLongShortRatio", mock.Anything, "BTCUSDT").
		Return(nil, ErrNoData).Once()

	md := NewMarketData(client, 0)

	ratio, ok := md.LongShortRatio(context.Background(), "BTCUSDT")
	assert.True(t, ok)
	assert.Equal(t, 0.6, ratio.Long)

	_, ok = md.LongShortRatio(context.Background(), "BTCUSDT")
	assert.False(t, ok)
}

func TestMarketDataPacesRequests(t *testing.T) {
	client := new(MockMarketClient)
	client.On("GetOpenInterest", mock.Anything, mock.Anything).
		Return(&models.OISnapshot{Value: 1}, nil)

	md := NewMarketData(client, 50*time.Millisecond)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, ok := md.OpenInterest(context.Background(), "BTCUSDT")
		assert.True(t, ok)
	}
	// первый запрос без ожидания, далее по 50мс
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestMarketDataCancelledContext(t *testing.T) {
	client := new(MockMarketClient)
	md := NewMarketData(client, time.Hour)

	// первый токен доступен сразу, второй - только через час
	client.On("GetOpenInterest", mock.Anything, mock.Anything).
		Return(&models.OISnapshot{Value: 1}, nil).Once()
	_, ok := md.OpenInterest(context.Background(), "BTCUSDT")
	assert.True(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok = md.OpenInterest(ctx, "BTCUSDT")
	assert.False(t, ok)
	client.AssertNumberOfCalls(t, "GetOpenInterest", 1)
}
