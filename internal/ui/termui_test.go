package ui

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/skalibog/oiwatch/internal/config"
	"github.com/skalibog/oiwatch/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUI() *TermUI {
	return NewTermUI(config.UIConfig{}, []string{"BTC", "ETH"})
}

func TestOnScanUpdatesSnapshots(t *testing.T) {
	ui := newTestUI()

	ui.OnScan(map[string]models.OISnapshot{
		"BTC": {Symbol: "BTCUSDT", Value: 45_650_000_000, Price: 89322.5},
	})

	assert.Contains(t, ui.snapshots, "BTC")
	assert.False(t, ui.lastScan.IsZero())

	view := bubbleModel{ui: ui}.View()
	assert.Contains(t, view, "$45.65B")
	assert.Contains(t, view, "89,322.50")
	assert.Contains(t, view, "нет данных")
}

func TestOnAlertKeepsLatest(t *testing.T) {
	ui := newTestUI()

	for i := 0; i < maxAlerts+3; i++ {
		ui.OnAlert(&models.Alert{
			Coin:      "BTC",
			Signal:    models.SignalBullish,
			Direction: models.DirectionIncreasing,
			Change:    float64(i) * 1e6,
			Bias:      "Long-biased (60.0% longs)",
			Timestamp: time.Now(),
		})
	}

	require.Len(t, ui.alerts, maxAlerts)
	assert.Equal(t, float64(maxAlerts+2)*1e6, ui.alerts[maxAlerts-1].Change)

	out := renderAlertsSection(ui.alerts)
	assert.Contains(t, out, "Bullish")
	assert.Contains(t, out, "Long-biased")
}

func TestRenderAlertsSectionEmpty(t *testing.T) {
	assert.Contains(t, renderAlertsSection(nil), "Сигналов пока нет")
}

func TestUpdateNavigationAndQuit(t *testing.T) {
	ui := newTestUI()
	m := bubbleModel{ui: ui}

	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, ui.selectedIndex)

	m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, ui.selectedIndex)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestFormatLogLine(t *testing.T) {
	line := `{"level":"WARN","ts":"17.10.2026 - 12:30:45.123456789+00:00","caller":"x.go:1","msg":"Нет данных","symbol":"BTCUSDT"}`

	assert.Equal(t, "[12:30:45] [WARN] Нет данных (symbol: BTCUSDT)", formatLogLine(line))
	assert.Equal(t, "не json", formatLogLine("не json"))
}

func TestLoadLogsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.json.log")
	require.NoError(t, os.WriteFile(path, []byte(
		`{"level":"INFO","ts":"17.10.2026 - 12:00:00.000000000+00:00","msg":"первая"}`+"\n"+
			`{"level":"ERROR","ts":"17.10.2026 - 12:00:01.000000000+00:00","msg":"вторая"}`+"\n"), 0o644))

	ui := NewTermUI(config.UIConfig{LogFile: path}, []string{"BTC"})
	require.NoError(t, ui.loadLogsFromFile())

	require.Len(t, ui.logs, 2)
	assert.Contains(t, ui.logs[1], "[ERROR] вторая")
	assert.Contains(t, renderLogsSection(ui.logs, 40), "вторая")

	missing := NewTermUI(config.UIConfig{LogFile: filepath.Join(t.TempDir(), "нет.log")}, nil)
	assert.NoError(t, missing.loadLogsFromFile())
}
