package masterfile

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func codLine(securityType string, symbol string) string {
	fields := make([]string, columnCount)
	for i := range fields {
		fields[i] = "x"
	}
	fields[colSymbol] = symbol
	fields[colEnglishName] = "Example Corp"
	fields[colExchangeCode] = "XNAS"
	fields[colExchangeName] = "NASDAQ"
	fields[colCurrency] = "USD"
	fields[colSecurityType] = securityType
	return strings.Join(fields, "\t")
}

func TestParseCOD_FiltersToCommonStock(t *testing.T) {
	data := strings.Join([]string{
		codLine("2", "AAPL"),
		codLine("1", "SOMEWARRANT"),
		codLine("2", "MSFT"),
	}, "\n")

	records, err := ParseCOD(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "AAPL", records[0].Symbol)
	assert.Equal(t, "MSFT", records[1].Symbol)
	assert.Equal(t, "Example Corp", records[0].EnglishName)
}

func TestParseCOD_SkipsBlankLines(t *testing.T) {
	data := codLine("2", "AAPL") + "\n\n" + codLine("2", "MSFT")
	records, err := ParseCOD(strings.NewReader(data))
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestParseCOD_RejectsShortRows(t *testing.T) {
	_, err := ParseCOD(strings.NewReader("a\tb\tc"))
	assert.Error(t, err)
}
