package action_test

import (
	"encoding/json"
	"testing"

	"VestLedger/internal/action"
	"VestLedger/internal/asset"
)

func TestParseType_AllNames(t *testing.T) {
	for typ := action.TypeCreate; typ <= action.TypeClose; typ++ {
		got, err := action.ParseType(typ.String())
		if err != nil {
			t.Fatalf("%s: %v", typ, err)
		}
		if got != typ {
			t.Errorf("got %s, want %s", got, typ)
		}
	}
	if _, err := action.ParseType("mint"); err == nil {
		t.Error("expected error for unknown action")
	}
}

func TestNew_DecodesPayload(t *testing.T) {
	act, err := action.New(action.TypeTransfer)
	if err != nil {
		t.Fatal(err)
	}
	raw := `{"from":"alice","to":"bob","quantity":"1.5000 SYM","memo":"hi"}`
	if err := json.Unmarshal([]byte(raw), act); err != nil {
		t.Fatalf("decode: %v", err)
	}

	tr := act.(*action.Transfer)
	if tr.From != "alice" || tr.To != "bob" || tr.Memo != "hi" {
		t.Errorf("unexpected payload: %+v", tr)
	}
	if tr.Quantity.Magnitude != 15000 || tr.Quantity.Symbol != asset.MustSymbol("SYM", 4) {
		t.Errorf("unexpected quantity: %s", tr.Quantity)
	}
	if accs := tr.Accounts(); len(accs) != 2 || accs[1] != "bob" {
		t.Errorf("unexpected accounts: %v", accs)
	}
}

func TestOpen_AccountsDeduplicatesPayer(t *testing.T) {
	open := &action.Open{Owner: "bob", Symbol: asset.MustSymbol("SYM", 4), Payer: "bob"}
	if got := len(open.Accounts()); got != 1 {
		t.Errorf("got %d accounts, want 1", got)
	}
}
