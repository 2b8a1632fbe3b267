package exchange

import "strings"

// QuoteAsset валюта котировки для бессрочных контрактов
const QuoteAsset = "USDT"

var symbolMap = map[string]string{
	"BTC": "BTCUSDT",
	"ETH": "ETHUSDT",
	"SOL": "SOLUSDT",
}

// SymbolFor возвращает код контракта Binance для монеты.
// Неизвестные монеты получают суффикс USDT.
func SymbolFor(coin string) string {
	coin = strings.ToUpper(strings.TrimSpace(coin))
	if symbol, ok := symbolMap[coin]; ok {
		return symbol
	}
	return coin + QuoteAsset
}
