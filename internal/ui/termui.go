package ui

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"
	"github.com/skalibog/oiwatch/internal/config"
	"github.com/skalibog/oiwatch/internal/notify"
	"github.com/skalibog/oiwatch/pkg/logger"
	"github.com/skalibog/oiwatch/pkg/models"
	"go.uber.org/zap"
)

const (
	maxAlerts = 10
	maxLogs   = 50
)

// Стили UI
var (
	// Основные цвета
	primaryColor   = lipgloss.Color("#0077cc")
	secondaryColor = lipgloss.Color("#333333")
	errorColor     = lipgloss.Color("#cc3300")
	successColor   = lipgloss.Color("#33cc33")
	warningColor   = lipgloss.Color("#cccc00")

	appStyle = lipgloss.NewStyle().
			Padding(1, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor)
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffffff")).
			Background(primaryColor).
			Padding(0, 1).
			Align(lipgloss.Center)
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffffff")).
			Background(secondaryColor).
			Padding(0, 1)
	sectionStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(secondaryColor).
			Padding(0, 1)
	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#999999")).
			Padding(0, 1)

	ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*m`)
)

// TermUI терминальная панель: последние снимки OI, сигналы и логи
type TermUI struct {
	coins         []string
	snapshots     map[string]models.OISnapshot
	alerts        []*models.Alert
	logs          []string
	lastScan      time.Time
	mu            sync.RWMutex
	config        config.UIConfig
	program       *tea.Program
	selectedIndex int
	width         int
	height        int
}

// Сообщения для обновления UI
type refreshMsg struct{}
type tickMsg time.Time

// bubbleModel - модель для bubbletea
type bubbleModel struct {
	ui *TermUI
}

// NewTermUI создает панель для указанных монет
func NewTermUI(cfg config.UIConfig, coins []string) *TermUI {
	if cfg.RefreshRate <= 0 {
		cfg.RefreshRate = 1000
	}
	return &TermUI{
		coins:     coins,
		snapshots: make(map[string]models.OISnapshot),
		logs:      []string{"oiwatch запущен. Ожидание данных..."},
		config:    cfg,
		width:     120,
		height:    40,
	}
}

// Start запускает UI и блокирует до выхода пользователя или отмены ctx
func (ui *TermUI) Start(ctx context.Context) error {
	ui.mu.Lock()
	ui.program = tea.NewProgram(bubbleModel{ui: ui}, tea.WithAltScreen(), tea.WithContext(ctx))
	program := ui.program
	ui.mu.Unlock()

	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("ошибка запуска UI: %w", err)
	}
	return nil
}

// OnScan обновляет снимки после цикла сканирования
func (ui *TermUI) OnScan(history map[string]models.OISnapshot) {
	ui.mu.Lock()
	for coin, s := range history {
		ui.snapshots[coin] = s
	}
	ui.lastScan = time.Now()
	ui.mu.Unlock()

	ui.refresh()
}

// OnAlert добавляет сигнал в ленту
func (ui *TermUI) OnAlert(alert *models.Alert) {
	ui.mu.Lock()
	ui.alerts = append(ui.alerts, alert)
	if len(ui.alerts) > maxAlerts {
		ui.alerts = ui.alerts[len(ui.alerts)-maxAlerts:]
	}
	ui.mu.Unlock()

	ui.refresh()
}

func (ui *TermUI) refresh() {
	ui.mu.RLock()
	program := ui.program
	ui.mu.RUnlock()

	if program != nil {
		program.Send(refreshMsg{})
	}
}

// loadLogsFromFile перечитывает хвост JSON-лога
func (ui *TermUI) loadLogsFromFile() error {
	if ui.config.LogFile == "" {
		return nil
	}

	file, err := os.Open(ui.config.LogFile)
	if err != nil {
		if os.IsNotExist(err) {
			// Файл не существует, это не ошибка
			return nil
		}
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	var logs []string
	for scanner.Scan() {
		logs = append(logs, formatLogLine(scanner.Text()))
		if len(logs) > maxLogs {
			logs = logs[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	if len(logs) > 0 {
		ui.mu.Lock()
		ui.logs = logs
		ui.mu.Unlock()
	}
	return nil
}

// formatLogLine превращает JSON-строку zap в строку для панели
func formatLogLine(line string) string {
	var zapLog map[string]interface{}
	if err := json.Unmarshal([]byte(line), &zapLog); err != nil {
		return line
	}

	level, _ := zapLog["level"].(string)
	ts, _ := zapLog["ts"].(string)
	msg, _ := zapLog["msg"].(string)
	level = ansiRegex.ReplaceAllString(level, "")

	timestamp := ""
	if t, err := time.Parse("02.01.2006 - 15:04:05.999999999Z07:00", ts); err == nil {
		timestamp = t.Format("15:04:05")
	}

	formatted := fmt.Sprintf("[%s] [%s] %s", timestamp, level, msg)

	keys := lo.Filter(lo.Keys(zapLog), func(k string, _ int) bool {
		return k != "level" && k != "ts" && k != "msg" && k != "caller"
	})
	sort.Strings(keys)
	for _, k := range keys {
		formatted += fmt.Sprintf(" (%s: %v)", k, zapLog[k])
	}
	return formatted
}

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Методы для bubbletea
func (m bubbleModel) Init() tea.Cmd {
	return tick(time.Duration(m.ui.config.RefreshRate) * time.Millisecond)
}

func (m bubbleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "up":
			m.ui.selectedIndex = max(0, m.ui.selectedIndex-1)
		case "down":
			m.ui.selectedIndex = max(0, min(len(m.ui.coins)-1, m.ui.selectedIndex+1))
		}

	case tea.WindowSizeMsg:
		m.ui.width = msg.Width
		m.ui.height = msg.Height

	case tickMsg:
		if err := m.ui.loadLogsFromFile(); err != nil {
			logger.Warn("Ошибка загрузки логов", zap.Error(err))
		}
		return m, tick(time.Duration(m.ui.config.RefreshRate) * time.Millisecond)

	case refreshMsg:
		// Просто обновляем UI
	}

	return m, nil
}

func (m bubbleModel) View() string {
	m.ui.mu.RLock()
	defer m.ui.mu.RUnlock()

	title := titleStyle.Render("OIWATCH - Binance Futures Open Interest Monitor")
	oi := renderOpenInterestSection(m.ui.coins, m.ui.snapshots, m.ui.selectedIndex, m.ui.lastScan)
	alerts := renderAlertsSection(m.ui.alerts)
	logs := renderLogsSection(m.ui.logs, m.ui.height)
	footer := footerStyle.Render("Клавиши: ↑/↓ - навигация, Q - выход")

	return appStyle.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			title,
			"\n",
			oi,
			"\n",
			alerts,
			"\n",
			logs,
			"\n",
			footer,
		),
	)
}

func renderOpenInterestSection(coins []string, snapshots map[string]models.OISnapshot, selectedIndex int, lastScan time.Time) string {
	header := headerStyle.Render("ОТКРЫТЫЙ ИНТЕРЕС")
	content := strings.Builder{}

	if lastScan.IsZero() {
		content.WriteString("  Ожидание данных...\n")
	} else {
		fmt.Fprintf(&content, "  Последнее сканирование: %s\n", lastScan.Format("15:04:05"))
	}

	for i, coin := range coins {
		line := fmt.Sprintf("  %-6s нет данных", coin)
		if s, ok := snapshots[coin]; ok {
			line = fmt.Sprintf("  %-6s OI: $%.2fB  Цена: $%s", coin, s.Value/1e9, notify.FormatThousands(s.Price, 2))
		}

		// Выделяем выбранную строку
		if i == selectedIndex {
			line = "> " + line[2:]
			line = lipgloss.NewStyle().Background(lipgloss.Color("#222222")).Render(line)
		}
		content.WriteString(line + "\n")
	}

	return sectionStyle.Render(lipgloss.JoinVertical(lipgloss.Left, header, content.String()))
}

func renderAlertsSection(alerts []*models.Alert) string {
	header := headerStyle.Render("СИГНАЛЫ")
	content := strings.Builder{}

	if len(alerts) == 0 {
		content.WriteString("  Сигналов пока нет\n")
	}
	// Новые сверху
	for i := len(alerts) - 1; i >= 0; i-- {
		a := alerts[i]
		signal := lipgloss.NewStyle().Foreground(notify.SignalColor(a.Signal)).Bold(true).Render(a.Signal.String())
		fmt.Fprintf(&content, "  %s %s %s %s $%sM (%+.2f%%) - %s\n",
			a.Timestamp.Format("15:04:05"), a.Direction.Emoji(), a.Coin, signal,
			notify.FormatThousands(a.Change/1e6, 0), a.ChangePct, a.Bias)
	}

	return sectionStyle.Render(lipgloss.JoinVertical(lipgloss.Left, header, content.String()))
}

func renderLogsSection(logs []string, height int) string {
	header := headerStyle.Render("ЛОГИ")
	content := strings.Builder{}

	// Под логи остается примерно половина экрана
	maxLogsToShow := max(6, height/2-4)
	start := max(0, len(logs)-maxLogsToShow)

	for _, log := range logs[start:] {
		// Выделение по уровню логирования
		switch {
		case strings.Contains(log, "[ERROR]"):
			log = lipgloss.NewStyle().Foreground(errorColor).Render(log)
		case strings.Contains(log, "[WARN]"):
			log = lipgloss.NewStyle().Foreground(warningColor).Render(log)
		case strings.Contains(log, "[INFO]"):
			log = lipgloss.NewStyle().Foreground(successColor).Render(log)
		case strings.Contains(log, "[DEBUG]"):
			log = lipgloss.NewStyle().Foreground(lipgloss.Color("#9999ff")).Render(log)
		}
		content.WriteString("  " + log + "\n")
	}

	return sectionStyle.Render(lipgloss.JoinVertical(lipgloss.Left, header, content.String()))
}
