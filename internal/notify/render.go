package notify

import (
	"fmt"
	"html"
	"math"
	"strings"

	"github.com/skalibog/oiwatch/pkg/models"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// TimestampLayout формат времени в уведомлениях
const TimestampLayout = "2006-01-02 15:04:05"

// Title заголовок уведомления по типу сигнала
func Title(signal models.Signal) string {
	switch signal {
	case models.SignalBullish:
		return "✅ Large Position Opening - BULLISH"
	case models.SignalBearish:
		return "⚠️ Large Position Opening - BEARISH"
	default:
		return "📊 Open Interest Change"
	}
}

// RenderHTML формирует текст сообщения Telegram в режиме HTML
func RenderHTML(alert *models.Alert) string {
	var b strings.Builder

	fmt.Fprintf(&b, "<b>%s</b>\n\n", html.EscapeString(Title(alert.Signal)))
	fmt.Fprintf(&b, "🪙 Asset: %s\n", html.EscapeString(alert.Coin))
	fmt.Fprintf(&b, "%s OI Change: $%sM (%+.2f%%)\n\n",
		alert.Direction.Emoji(), FormatThousands(math.Abs(alert.Change)/1e6, 0), alert.ChangePct)
	b.WriteString("📊 Open Interest:\n")
	fmt.Fprintf(&b, "  Previous: $%.2fB\n", alert.PreviousValue/1e9)
	fmt.Fprintf(&b, "  Current: $%.2fB\n\n", alert.CurrentValue/1e9)
	fmt.Fprintf(&b, "💹 Market Signal: %s\n", alert.Signal)
	fmt.Fprintf(&b, "📍 %s\n\n", html.EscapeString(alert.Bias))
	fmt.Fprintf(&b, "💰 Price: $%s\n", FormatThousands(alert.Price, 2))
	fmt.Fprintf(&b, "⏰ %s\n", alert.Timestamp.Format(TimestampLayout))

	if alert.Ratio != nil {
		fmt.Fprintf(&b, "\n🎯 Long/Short: %.1f%% / %.1f%%", alert.Ratio.LongPct(), alert.Ratio.ShortPct())
	}

	return b.String()
}

// FormatThousands форматирует число с разделителями тысяч (1,234,567.89)
func FormatThousands(v float64, decimals int) string {
	p := message.NewPrinter(language.English)
	return p.Sprintf(fmt.Sprintf("%%.%df", decimals), v)
}
