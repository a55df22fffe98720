package masterfile

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// columnCount is the fixed number of tab-separated fields in a .cod master
// file record (spec §4.2: "24 known columns").
const columnCount = 24

const (
	colNationalCode = iota
	colExchangeID
	colExchangeCode
	colExchangeName
	colSymbol
	colRealtimeSymbol
	colKoreaName
	colEnglishName
	colSecurityType
	colCurrency
	colFloatPosition
	colDataType
	colBasePrice
	colBidOrderSize
	colAskOrderSize
	colMarketStartTime
	colMarketEndTime
)

// commonStockSecurityType is the Security type discriminator for ordinary
// common stock rows (spec §4.2: "filter to Security type = 2").
const commonStockSecurityType = "2"

// Record is one parsed, common-stock master-file row before ticker
// normalization.
type Record struct {
	Symbol       string
	EnglishName  string
	ExchangeCode string
	ExchangeName string
	Currency     string
}

// ParseCOD reads a tab-separated master-file stream and returns every row
// whose Security type equals 2 (common stock), matching the upstream
// COLUMN_NAMES layout one-for-one by index rather than by header (the
// file carries no header row).
func ParseCOD(r io.Reader) ([]Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var records []Record
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < columnCount {
			return nil, fmt.Errorf("masterfile: line %d: expected %d columns, got %d", lineNo, columnCount, len(fields))
		}

		if !secTypeIsCommonStock(fields[colSecurityType]) {
			continue
		}

		records = append(records, Record{
			Symbol:       strings.TrimSpace(fields[colSymbol]),
			EnglishName:  strings.TrimSpace(fields[colEnglishName]),
			ExchangeCode: strings.TrimSpace(fields[colExchangeCode]),
			ExchangeName: strings.TrimSpace(fields[colExchangeName]),
			Currency:     strings.TrimSpace(fields[colCurrency]),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("masterfile: scan: %w", err)
	}
	return records, nil
}

// secTypeIsCommonStock parses the Security type field as an integer and
// reports whether it is 2, matching the Python source's explicit int
// comparison rather than a string one.
func secTypeIsCommonStock(raw string) bool {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	return err == nil && n == 2
}
