package asset_test

import (
	"VestLedger/internal/asset"
	"encoding/json"
	"errors"
	"testing"
)

func TestParseAmount_Precision(t *testing.T) {
	a, err := asset.ParseAmount("1000.0000 SYM")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if a.Magnitude != 10_000_000 {
		t.Errorf("magnitude: got %d, want 10_000_000", a.Magnitude)
	}
	if a.Symbol != asset.MustSymbol("SYM", 4) {
		t.Errorf("symbol: got %s, want 4,SYM", a.Symbol)
	}
	if a.String() != "1000.0000 SYM" {
		t.Errorf("string: got %q", a.String())
	}
}

func TestParseAmount_NoFraction(t *testing.T) {
	a, err := asset.ParseAmount("42 ABC")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if a.Magnitude != 42 || a.Symbol.Precision != 0 {
		t.Errorf("got %d / precision %d", a.Magnitude, a.Symbol.Precision)
	}
	if a.String() != "42 ABC" {
		t.Errorf("string: got %q", a.String())
	}
}

func TestParseAmount_Negative(t *testing.T) {
	a, err := asset.ParseAmount("-0.25 ABC")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if a.Magnitude != -25 {
		t.Errorf("magnitude: got %d, want -25", a.Magnitude)
	}
	if a.IsPositive() {
		t.Error("negative amount reported positive")
	}
}

func TestParseAmount_Rejects(t *testing.T) {
	cases := []string{
		"",
		"1.0",
		"1.0 sym",
		"1.0 TOOLONGX",
		"1e5 SYM",
		"abc SYM",
		"1.0000000000000000000 SYM",
		"9999999999999999999 SYM",
	}
	for _, c := range cases {
		if _, err := asset.ParseAmount(c); err == nil {
			t.Errorf("expected error for %q", c)
		}
	}
}

func TestParseAmount_Overflow(t *testing.T) {
	_, err := asset.ParseAmount("4611686018427387904 SYM")
	if !errors.Is(err, asset.ErrAmountOverflow) {
		t.Fatalf("expected ErrAmountOverflow, got %v", err)
	}

	a, err := asset.ParseAmount("4611686018427387903 SYM")
	if err != nil {
		t.Fatalf("max magnitude should parse: %v", err)
	}
	if !a.IsValid() {
		t.Error("max magnitude should be valid")
	}
}

func TestAmount_AddSub(t *testing.T) {
	a := asset.MustParseAmount("1.5000 SYM")
	b := asset.MustParseAmount("0.2500 SYM")

	sum, err := a.Add(b)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if sum.String() != "1.7500 SYM" {
		t.Errorf("sum: got %s", sum)
	}

	diff, err := a.Sub(b)
	if err != nil {
		t.Fatalf("sub: %v", err)
	}
	if diff.String() != "1.2500 SYM" {
		t.Errorf("diff: got %s", diff)
	}
}

func TestAmount_SymbolMismatch(t *testing.T) {
	a := asset.MustParseAmount("1.5000 SYM")
	b := asset.MustParseAmount("1.500 SYM")

	if _, err := a.Add(b); !errors.Is(err, asset.ErrSymbolMismatch) {
		t.Errorf("expected ErrSymbolMismatch, got %v", err)
	}
}

func TestAmount_AddOverflow(t *testing.T) {
	sym := asset.MustSymbol("SYM", 0)
	a := asset.NewAmount(asset.MaxMagnitude, sym)
	if _, err := a.Add(asset.NewAmount(1, sym)); !errors.Is(err, asset.ErrAmountOverflow) {
		t.Errorf("expected ErrAmountOverflow, got %v", err)
	}
}

func TestAmount_JSONRoundTrip(t *testing.T) {
	type wrapper struct {
		Quantity asset.Amount `json:"quantity"`
		Symbol   asset.Symbol `json:"symbol"`
	}
	in := wrapper{Quantity: asset.MustParseAmount("12.3400 SYM"), Symbol: asset.MustSymbol("SYM", 4)}

	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"quantity":"12.3400 SYM","symbol":"4,SYM"}` {
		t.Errorf("unexpected JSON: %s", data)
	}

	var out wrapper
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out != in {
		t.Errorf("round trip: got %+v, want %+v", out, in)
	}
}

func TestSymbol_Parse(t *testing.T) {
	s, err := asset.ParseSymbol("4,SYM")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if s.Scale() != 10_000 {
		t.Errorf("scale: got %d, want 10_000", s.Scale())
	}

	for _, bad := range []string{"SYM", "19,SYM", "4,sym", "x,SYM"} {
		if _, err := asset.ParseSymbol(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}

	if _, err := asset.ParseSymbolCode("SYM"); err != nil {
		t.Errorf("code: %v", err)
	}
	if _, err := asset.ParseSymbolCode("sym"); !errors.Is(err, asset.ErrInvalidSymbol) {
		t.Errorf("expected ErrInvalidSymbol, got %v", err)
	}
}

func TestName_Validation(t *testing.T) {
	for _, good := range []string{"alice", "newvest", "a.b.c", "bob12345"} {
		if _, err := asset.ParseName(good); err != nil {
			t.Errorf("%q should be valid: %v", good, err)
		}
	}
	for _, bad := range []string{"", "Alice", "alice.", "toolongname123", "bob6", "a_b"} {
		if _, err := asset.ParseName(bad); err == nil {
			t.Errorf("%q should be invalid", bad)
		}
	}
}
