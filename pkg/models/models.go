package models

import (
	"time"
)

// OISnapshot представляет открытый интерес инструмента в момент времени
type OISnapshot struct {
	Symbol    string
	Amount    float64 // контракты
	Price     float64 // цена в валюте котировки
	Value     float64 // Amount * Price
	Timestamp time.Time
}

// LongShortRatio представляет соотношение лонг/шорт аккаунтов за последний период
type LongShortRatio struct {
	Long      float64
	Short     float64
	Timestamp time.Time
}

// LongPct доля лонгов в процентах
func (r LongShortRatio) LongPct() float64 {
	return r.Long * 100
}

// ShortPct доля шортов в процентах
func (r LongShortRatio) ShortPct() float64 {
	return r.Short * 100
}

// Direction направление изменения открытого интереса
type Direction int

const (
	DirectionIncreasing Direction = iota
	DirectionDecreasing
)

func (d Direction) String() string {
	switch d {
	case DirectionIncreasing:
		return "increasing"
	case DirectionDecreasing:
		return "decreasing"
	default:
		return "unknown"
	}
}

// Emoji иконка направления для уведомлений
func (d Direction) Emoji() string {
	if d == DirectionIncreasing {
		return "📈"
	}
	return "📉"
}

// Signal классифицированная интерпретация изменения OI
type Signal int

const (
	SignalNeutral Signal = iota
	SignalBullish
	SignalBearish
	SignalPositionClosing
)

func (s Signal) String() string {
	switch s {
	case SignalNeutral:
		return "Neutral"
	case SignalBullish:
		return "Bullish"
	case SignalBearish:
		return "Bearish"
	case SignalPositionClosing:
		return "Position Closing"
	default:
		return "Unknown"
	}
}

// Alert представляет сигнал о значительном изменении открытого интереса.
// Создается детектором и потребляется нотификатором один раз.
type Alert struct {
	ID            string
	Coin          string
	Symbol        string
	Direction     Direction
	Signal        Signal
	Bias          string
	PreviousValue float64
	CurrentValue  float64
	Change        float64
	ChangePct     float64
	Price         float64
	Ratio         *LongShortRatio // nil, если данные недоступны
	Timestamp     time.Time
}
