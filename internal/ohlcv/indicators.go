// Package ohlcv implements C7: gap-classified bar collection, indicator
// computation, circuit-breaker protection, and retention.
package ohlcv

import (
	"github.com/jsj9346/screener/internal/domain"
	talib "github.com/markcheno/go-talib"
)

// computeIndicators (re-)derives every cached indicator column over bars,
// the full trailing window including any newly fetched tail, and returns
// the same slice with Indicators populated in place. A window that
// exceeds the available history leaves that field nil, per spec §4.5.
func computeIndicators(bars []domain.OHLCVBar) []domain.OHLCVBar {
	n := len(bars)
	if n == 0 {
		return bars
	}
	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	volumes := make([]float64, n)
	for i, b := range bars {
		closes[i] = b.Close
		highs[i] = b.High
		lows[i] = b.Low
		volumes[i] = float64(b.Volume)
	}

	ma5 := talib.Sma(closes, 5)
	ma20 := talib.Sma(closes, 20)
	ma60 := talib.Sma(closes, 60)
	ma120 := talib.Sma(closes, 120)
	ma200 := talib.Sma(closes, 200)
	rsi14 := talib.Rsi(closes, 14)
	macd, macdSignal, macdHist := talib.Macd(closes, 12, 26, 9)
	bbUpper, bbMid, bbLower := talib.BBands(closes, 20, 2, 2, talib.SMA)
	atr14 := talib.Atr(highs, lows, closes, 14)
	volMA20 := talib.Sma(volumes, 20)

	for i := range bars {
		bars[i].MA5 = pick(ma5, i, 5)
		bars[i].MA20 = pick(ma20, i, 20)
		bars[i].MA60 = pick(ma60, i, 60)
		bars[i].MA120 = pick(ma120, i, 120)
		bars[i].MA200 = pick(ma200, i, 200)
		bars[i].RSI14 = pick(rsi14, i, 14)
		bars[i].MACD = pick(macd, i, 26)
		bars[i].MACDSignal = pick(macdSignal, i, 26+9)
		bars[i].MACDHist = pick(macdHist, i, 26+9)
		bars[i].BollingerMid = pick(bbMid, i, 20)
		bars[i].BollingerUp = pick(bbUpper, i, 20)
		bars[i].BollingerLow = pick(bbLower, i, 20)
		bars[i].ATR14 = pick(atr14, i, 14)
		bars[i].VolumeMA20 = pick(volMA20, i, 20)
		if bars[i].VolumeMA20 != nil && *bars[i].VolumeMA20 != 0 {
			ratio := float64(bars[i].Volume) / *bars[i].VolumeMA20
			bars[i].VolumeRatio = &ratio
		}
	}
	return bars
}

// pick returns a pointer to series[i] unless the index falls before the
// indicator's minimum window, in which case talib returns zero and the
// column should be stored as null instead.
func pick(series []float64, i, minWindow int) *float64 {
	if i < minWindow-1 || i >= len(series) {
		return nil
	}
	v := series[i]
	return &v
}
