package notify

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/skalibog/oiwatch/pkg/models"
)

var (
	bullishColor = lipgloss.Color("#33cc33")
	bearishColor = lipgloss.Color("#cc3300")
	neutralColor = lipgloss.Color("#cccc00")
	closingColor = lipgloss.Color("#0077cc")

	consoleBoxStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder())
)

// SignalColor цвет сигнала для терминала
func SignalColor(signal models.Signal) lipgloss.Color {
	switch signal {
	case models.SignalBullish:
		return bullishColor
	case models.SignalBearish:
		return bearishColor
	case models.SignalPositionClosing:
		return closingColor
	default:
		return neutralColor
	}
}

// ConsoleNotifier выводит уведомления в терминал. Используется без учетных данных Telegram.
type ConsoleNotifier struct {
	out io.Writer
}

// NewConsoleNotifier создает консольный нотификатор
func NewConsoleNotifier(out io.Writer) *ConsoleNotifier {
	return &ConsoleNotifier{out: out}
}

// Deliver печатает уведомление
func (n *ConsoleNotifier) Deliver(_ context.Context, alert *models.Alert) error {
	_, err := fmt.Fprintln(n.out, RenderConsole(alert))
	return err
}

// RenderConsole формирует блок уведомления для терминала
func RenderConsole(alert *models.Alert) string {
	color := SignalColor(alert.Signal)
	title := lipgloss.NewStyle().Bold(true).Foreground(color).Render(Title(alert.Signal))

	lines := []string{
		title,
		"",
		fmt.Sprintf("Asset: %s (%s)", alert.Coin, alert.Symbol),
		fmt.Sprintf("%s OI Change: $%sM (%+.2f%%)", alert.Direction.Emoji(),
			FormatThousands(math.Abs(alert.Change)/1e6, 0), alert.ChangePct),
		fmt.Sprintf("Previous: $%.2fB  Current: $%.2fB", alert.PreviousValue/1e9, alert.CurrentValue/1e9),
		fmt.Sprintf("Signal: %s", lipgloss.NewStyle().Foreground(color).Render(alert.Signal.String())),
		alert.Bias,
		fmt.Sprintf("Price: $%s", FormatThousands(alert.Price, 2)),
		alert.Timestamp.Format(TimestampLayout),
	}
	if alert.Ratio != nil {
		lines = append(lines, fmt.Sprintf("Long/Short: %.1f%% / %.1f%%", alert.Ratio.LongPct(), alert.Ratio.ShortPct()))
	}

	return consoleBoxStyle.BorderForeground(color).Render(strings.Join(lines, "\n"))
}
