package asset

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxMagnitude bounds the fixed-point magnitude of any valid amount (2^62 - 1).
const MaxMagnitude int64 = 1<<62 - 1

var maxMagnitudeDec = decimal.NewFromInt(MaxMagnitude)

var numberRe = regexp.MustCompile(`^-?[0-9]+(\.[0-9]+)?$`)

// Amount is a signed fixed-point quantity scaled by its symbol's precision.
// 1000.0000 SYM is Amount{Magnitude: 10_000_000, Symbol: 4,SYM}.
type Amount struct {
	Magnitude int64
	Symbol    Symbol
}

// Zero returns the zero amount of sym.
func Zero(sym Symbol) Amount {
	return Amount{Symbol: sym}
}

// NewAmount builds an amount from a raw magnitude.
func NewAmount(magnitude int64, sym Symbol) Amount {
	return Amount{Magnitude: magnitude, Symbol: sym}
}

// ParseAmount parses "<number> <CODE>". The number of fractional digits
// determines the precision, so "1.50 ABC" and "1.5 ABC" are different symbols.
func ParseAmount(s string) (Amount, error) {
	num, code, ok := strings.Cut(strings.TrimSpace(s), " ")
	if !ok || !numberRe.MatchString(num) {
		return Amount{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	precision := 0
	if _, frac, hasFrac := strings.Cut(num, "."); hasFrac {
		precision = len(frac)
	}
	if precision > MaxPrecision {
		return Amount{}, fmt.Errorf("%w: precision %d", ErrInvalidSymbol, precision)
	}

	sym, err := NewSymbol(code, uint8(precision))
	if err != nil {
		return Amount{}, err
	}

	d, err := decimal.NewFromString(num)
	if err != nil {
		return Amount{}, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	scaled := d.Shift(int32(precision))
	if scaled.Abs().GreaterThan(maxMagnitudeDec) {
		return Amount{}, fmt.Errorf("%w: %q", ErrAmountOverflow, s)
	}

	return Amount{Magnitude: scaled.IntPart(), Symbol: sym}, nil
}

// MustParseAmount is ParseAmount for constants and tests.
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// IsValid reports whether the magnitude is in range and the symbol is well formed.
func (a Amount) IsValid() bool {
	return a.Magnitude >= -MaxMagnitude && a.Magnitude <= MaxMagnitude && a.Symbol.IsValid()
}

// IsPositive reports whether the magnitude is strictly greater than zero.
func (a Amount) IsPositive() bool {
	return a.Magnitude > 0
}

// IsZero reports whether the magnitude is zero.
func (a Amount) IsZero() bool {
	return a.Magnitude == 0
}

// Add returns a + b. Both operands must carry the same symbol and the result
// must stay within MaxMagnitude.
func (a Amount) Add(b Amount) (Amount, error) {
	if a.Symbol != b.Symbol {
		return Amount{}, fmt.Errorf("%w: %s vs %s", ErrSymbolMismatch, a.Symbol, b.Symbol)
	}
	sum := a.Magnitude + b.Magnitude
	if sum > MaxMagnitude || sum < -MaxMagnitude {
		return Amount{}, ErrAmountOverflow
	}
	return Amount{Magnitude: sum, Symbol: a.Symbol}, nil
}

// Sub returns a - b under the same rules as Add.
func (a Amount) Sub(b Amount) (Amount, error) {
	if a.Symbol != b.Symbol {
		return Amount{}, fmt.Errorf("%w: %s vs %s", ErrSymbolMismatch, a.Symbol, b.Symbol)
	}
	diff := a.Magnitude - b.Magnitude
	if diff > MaxMagnitude || diff < -MaxMagnitude {
		return Amount{}, ErrAmountOverflow
	}
	return Amount{Magnitude: diff, Symbol: a.Symbol}, nil
}

// Decimal returns the amount as an exact decimal value.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(a.Magnitude, -int32(a.Symbol.Precision))
}

// String renders the amount with exactly Precision fractional digits.
func (a Amount) String() string {
	return a.Decimal().StringFixed(int32(a.Symbol.Precision)) + " " + string(a.Symbol.Code)
}

func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Amount) UnmarshalText(text []byte) error {
	parsed, err := ParseAmount(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
