package domain

import "math"

// Money is a monetary amount stored in integer minor units to avoid binary
// float drift in trade records (spec §9 "Dates and money"). For whole-unit
// currencies (KRW/JPY/VND) one minor unit equals one major unit. For
// fractional currencies (USD/HKD/CNY) one minor unit is 1/10000 of the
// major unit (4-decimal scale), which comfortably covers FX-rate precision
// without needing a decimal library the pack never reaches for.
type Money struct {
	Currency Currency
	Minor    int64
}

const fractionalScale = 10000

// NewMoney builds a Money value from a float in major units, rounding to
// the currency's minor-unit resolution.
func NewMoney(amount float64, currency Currency) Money {
	scale := int64(1)
	if !currency.IsWholeUnit() {
		scale = fractionalScale
	}
	return Money{
		Currency: currency,
		Minor:    int64(math.Round(amount * float64(scale))),
	}
}

// Float returns the amount in major units as a float64, for display and
// for feeding scoring/statistics code that is allowed to use floats.
func (m Money) Float() float64 {
	scale := int64(1)
	if !m.Currency.IsWholeUnit() {
		scale = fractionalScale
	}
	return float64(m.Minor) / float64(scale)
}

// Add returns m+other. Panics on currency mismatch: callers must convert
// via an exchange rate snapshot before combining amounts, never implicitly.
func (m Money) Add(other Money) Money {
	if m.Currency != other.Currency {
		panic("domain: cannot add Money of different currencies")
	}
	return Money{Currency: m.Currency, Minor: m.Minor + other.Minor}
}

// Sub returns m-other. Panics on currency mismatch, see Add.
func (m Money) Sub(other Money) Money {
	if m.Currency != other.Currency {
		panic("domain: cannot subtract Money of different currencies")
	}
	return Money{Currency: m.Currency, Minor: m.Minor - other.Minor}
}
