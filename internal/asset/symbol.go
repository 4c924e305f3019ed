package asset

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// MaxPrecision is the largest number of decimal places a symbol may carry.
const MaxPrecision = 18

// SymbolCode is the ticker part of a symbol, 1-7 upper-case letters.
type SymbolCode string

var codeRe = regexp.MustCompile(`^[A-Z]{1,7}$`)

// IsValid reports whether c is a well-formed ticker.
func (c SymbolCode) IsValid() bool {
	return codeRe.MatchString(string(c))
}

func (c SymbolCode) String() string {
	return string(c)
}

// ParseSymbolCode validates s as a ticker.
func ParseSymbolCode(s string) (SymbolCode, error) {
	c := SymbolCode(s)
	if !c.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidSymbol, s)
	}
	return c, nil
}

// Symbol pairs a ticker with its decimal precision. Two amounts are compatible
// only when both fields match.
type Symbol struct {
	Code      SymbolCode
	Precision uint8
}

// NewSymbol builds a symbol and validates it.
func NewSymbol(code string, precision uint8) (Symbol, error) {
	s := Symbol{Code: SymbolCode(code), Precision: precision}
	if !s.IsValid() {
		return Symbol{}, fmt.Errorf("%w: %s", ErrInvalidSymbol, s)
	}
	return s, nil
}

// MustSymbol is NewSymbol for constants and tests.
func MustSymbol(code string, precision uint8) Symbol {
	s, err := NewSymbol(code, precision)
	if err != nil {
		panic(err)
	}
	return s
}

// ParseSymbol parses the "<precision>,<CODE>" form, e.g. "4,SYM".
func ParseSymbol(s string) (Symbol, error) {
	p, code, ok := strings.Cut(s, ",")
	if !ok {
		return Symbol{}, fmt.Errorf("%w: %q", ErrInvalidSymbol, s)
	}
	precision, err := strconv.ParseUint(p, 10, 8)
	if err != nil {
		return Symbol{}, fmt.Errorf("%w: precision %q", ErrInvalidSymbol, p)
	}
	return NewSymbol(code, uint8(precision))
}

// IsValid reports whether the ticker is well formed and the precision is in range.
func (s Symbol) IsValid() bool {
	return s.Code.IsValid() && s.Precision <= MaxPrecision
}

// Scale returns 10^Precision.
func (s Symbol) Scale() int64 {
	scale := int64(1)
	for i := uint8(0); i < s.Precision; i++ {
		scale *= 10
	}
	return scale
}

func (s Symbol) String() string {
	return fmt.Sprintf("%d,%s", s.Precision, s.Code)
}

func (s Symbol) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Symbol) UnmarshalText(text []byte) error {
	parsed, err := ParseSymbol(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
