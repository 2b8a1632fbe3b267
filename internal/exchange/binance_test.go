package exchange

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/skalibog/oiwatch/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFutures struct {
	openInterest string
	price        string
	ratio        string
	status       int
}

func (f *fakeFutures) handler(t *testing.T) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	write := func(w http.ResponseWriter, body string) {
		w.Header().Set("Content-Type", "application/json")
		if f.status != 0 {
			w.WriteHeader(f.status)
			_, _ = w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
			return
		}
		_, _ = w.Write([]byte(body))
	}
	mux.HandleFunc("/fapi/v1/openInterest", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		write(w, f.openInterest)
	})
	mux.HandleFunc("/fapi/v2/ticker/price", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		write(w, f.price)
	})
	mux.HandleFunc("/futures/data/globalLongShortAccountRatio", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5m", r.URL.Query().Get("period"))
		write(w, f.ratio)
	})
	return mux
}

func newTestClient(t *testing.T, f *fakeFutures) *BinanceClient {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)

	client, err := NewBinanceClient(config.BinanceConfig{BaseURL: srv.URL}, "5m")
	require.NoError(t, err)
	return client
}

func TestGetOpenInterest(t *testing.T) {
	client := newTestClient(t, &fakeFutures{
		openInterest: `{"openInterest":"500000.000","symbol":"BTCUSDT","time":1589437530011}`,
		price:        `{"symbol":"BTCUSDT","price":"90000.00","time":1589437530011}`,
	})

	snap, err := client.GetOpenInterest(context.Background(), "BTCUSDT")
	require.NoError(t, err)

	assert.Equal(t, "BTCUSDT", snap.Symbol)
	assert.Equal(t, 500000.0, snap.Amount)
	assert.Equal(t, 90000.0, snap.Price)
	assert.Equal(t, 45_000_000_000.0, snap.Value)
	assert.False(t, snap.Timestamp.IsZero())
}

func TestGetOpenInterestZeroPriceFails(t *testing.T) {
	client := newTestClient(t, &fakeFutures{
		openInterest: `{"openInterest":"500000.000","symbol":"BTCUSDT","time":1589437530011}`,
		price:        `{"symbol":"BTCUSDT","price":"0","time":1589437530011}`,
	})

	_, err := client.GetOpenInterest(context.Background(), "BTCUSDT")
	assert.ErrorIs(t, err, ErrInvalidPrice)
}

func TestGetOpenInterestMalformedPayload(t *testing.T) {
	client := newTestClient(t, &fakeFutures{
		openInterest: `{"openInterest":"n/a","symbol":"BTCUSDT","time":1589437530011}`,
		price:        `{"symbol":"BTCUSDT","price":"90000.00","time":1589437530011}`,
	})

	_, err := client.GetOpenInterest(context.Background(), "BTCUSDT")
	assert.Error(t, err)
}

func TestGetOpenInterestBadStatus(t *testing.T) {
	client := newTestClient(t, &fakeFutures{status: http.StatusBadRequest})

	_, err := client.GetOpenInterest(context.Background(), "BTCUSDT")
	assert.Error(t, err)
}

func TestGetLongShortRatioUsesLatestRow(t *testing.T) {
	client := newTestClient(t, &fakeFutures{
		ratio: `[
			{"symbol":"BTCUSDT","longShortRatio":"1.0","longAccount":"0.5000","shortAccount":"0.5000","timestamp":1583139600000},
			{"symbol":"BTCUSDT","longShortRatio":"1.4096","longAccount":"0.5850","shortAccount":"0.4150","timestamp":1583139900000}
		]`,
	})

	ratio, err := client.GetLongShortRatio(context.Background(), "BTCUSDT")
	require.NoError(t, err)

	assert.InDelta(t, 0.585, ratio.Long, 1e-9)
	assert.InDelta(t, 0.415, ratio.Short, 1e-9)
	assert.Equal(t, int64(1583139900000), ratio.Timestamp.UnixMilli())
}

func TestGetLongShortRatioEmpty(t *testing.T) {
	client := newTestClient(t, &fakeFutures{ratio: `[]`})

	_, err := client.GetLongShortRatio(context.Background(), "BTCUSDT")
	assert.ErrorIs(t, err, ErrNoData)
}
