// internal/storage/influxdb.go
package storage

import (
	"context"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/skalibog/oiwatch/internal/config"
	"github.com/skalibog/oiwatch/pkg/models"
)

// Recorder журнал снимков OI и сигналов. Только запись: история детектора
// из журнала не восстанавливается.
type Recorder interface {
	SaveSnapshot(ctx context.Context, coin string, snapshot models.OISnapshot) error
	SaveAlert(ctx context.Context, alert *models.Alert) error
	Close()
}

// NopRecorder используется, когда хранилище выключено
type NopRecorder struct{}

func (NopRecorder) SaveSnapshot(context.Context, string, models.OISnapshot) error { return nil }
func (NopRecorder) SaveAlert(context.Context, *models.Alert) error                { return nil }
func (NopRecorder) Close()                                                        {}

// InfluxDBStorage реализует Recorder с использованием InfluxDB
type InfluxDBStorage struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
}

// New возвращает InfluxDB-журнал или NopRecorder, если хранилище выключено
func New(cfg config.StorageConfig) (Recorder, error) {
	if !cfg.Enabled {
		return NopRecorder{}, nil
	}
	return NewInfluxDBStorage(cfg)
}

// NewInfluxDBStorage создает новое хранилище InfluxDB
func NewInfluxDBStorage(cfg config.StorageConfig) (*InfluxDBStorage, error) {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)

	// Проверка соединения
	health, err := client.Health(context.Background())
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("ошибка соединения с InfluxDB: %w", err)
	}
	if health == nil || health.Status != "pass" {
		client.Close()
		return nil, fmt.Errorf("InfluxDB не в состоянии 'pass': %+v", health)
	}

	return &InfluxDBStorage{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Organization, cfg.Bucket),
	}, nil
}

// Close закрывает соединение с базой данных
func (s *InfluxDBStorage) Close() {
	s.client.Close()
}

// SaveSnapshot сохраняет снимок открытого интереса
func (s *InfluxDBStorage) SaveSnapshot(ctx context.Context, coin string, snapshot models.OISnapshot) error {
	if err := s.writeAPI.WritePoint(ctx, snapshotPoint(coin, snapshot)); err != nil {
		return fmt.Errorf("ошибка записи снимка OI: %w", err)
	}
	return nil
}

// SaveAlert сохраняет сигнал
func (s *InfluxDBStorage) SaveAlert(ctx context.Context, alert *models.Alert) error {
	if err := s.writeAPI.WritePoint(ctx, alertPoint(alert)); err != nil {
		return fmt.Errorf("ошибка записи сигнала: %w", err)
	}
	return nil
}

func snapshotPoint(coin string, snapshot models.OISnapshot) *write.Point {
	return influxdb2.NewPoint(
		"open_interest",
		map[string]string{
			"coin":   coin,
			"symbol": snapshot.Symbol,
		},
		map[string]interface{}{
			"amount": snapshot.Amount,
			"price":  snapshot.Price,
			"value":  snapshot.Value,
		},
		snapshot.Timestamp,
	)
}

func alertPoint(alert *models.Alert) *write.Point {
	fields := map[string]interface{}{
		"id":         alert.ID,
		"bias":       alert.Bias,
		"previous":   alert.PreviousValue,
		"current":    alert.CurrentValue,
		"change":     alert.Change,
		"change_pct": alert.ChangePct,
		"price":      alert.Price,
	}
	if alert.Ratio != nil {
		fields["long"] = alert.Ratio.Long
		fields["short"] = alert.Ratio.Short
	}

	return influxdb2.NewPoint(
		"oi_alerts",
		map[string]string{
			"coin":      alert.Coin,
			"symbol":    alert.Symbol,
			"direction": alert.Direction.String(),
			"signal":    alert.Signal.String(),
		},
		fields,
		alert.Timestamp,
	)
}
