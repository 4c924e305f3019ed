package ingestion_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"VestLedger/internal/action"
	"VestLedger/internal/asset"
	"VestLedger/internal/ingestion"
)

func rawFromJSON(t *testing.T, typ action.Type, v interface{}) ingestion.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return ingestion.RawMessage{
		Subject:    ingestion.ActionSubjectPrefix + typ.String(),
		ActionType: typ,
		Data:       data,
		Timestamp:  time.Now(),
		AckFunc:    func() {},
		NakFunc:    func() {},
		TermFunc:   func() {},
	}
}

func TestParseTransfer(t *testing.T) {
	payload := map[string]interface{}{
		"request_id":     "req-1",
		"authorizations": []string{"alice"},
		"data": map[string]interface{}{
			"from":     "alice",
			"to":       "bob",
			"quantity": "10.0000 SYM",
			"memo":     "rent",
		},
	}

	req, err := ingestion.ParseRawMessage(rawFromJSON(t, action.TypeTransfer, payload))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if req.RequestID != "req-1" {
		t.Errorf("request id: got %q", req.RequestID)
	}
	if !req.Auth.HasAuth("alice") || req.Auth.HasAuth("bob") {
		t.Errorf("unexpected signers: %v", req.Auth)
	}

	tr, ok := req.Action.(*action.Transfer)
	if !ok {
		t.Fatalf("expected *action.Transfer, got %T", req.Action)
	}
	if tr.From != "alice" || tr.To != "bob" || tr.Memo != "rent" {
		t.Errorf("unexpected transfer: %+v", tr)
	}
	if tr.Quantity != asset.MustParseAmount("10.0000 SYM") {
		t.Errorf("quantity: got %s", tr.Quantity)
	}
}

func TestParseVest(t *testing.T) {
	payload := map[string]interface{}{
		"authorizations": []string{"vestledger"},
		"data": map[string]interface{}{
			"to":           "alice",
			"quantity":     "5.0000 SYM",
			"vest_seconds": 3600,
			"memo":         "grant",
		},
	}

	req, err := ingestion.ParseRawMessage(rawFromJSON(t, action.TypeVest, payload))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	v, ok := req.Action.(*action.Vest)
	if !ok {
		t.Fatalf("expected *action.Vest, got %T", req.Action)
	}
	if v.Seconds != 3600 || v.To != "alice" {
		t.Errorf("unexpected vest: %+v", v)
	}
	if req.RequestID != "" {
		t.Errorf("expected empty request id, got %q", req.RequestID)
	}
}

func TestParseClaimVest(t *testing.T) {
	payload := map[string]interface{}{
		"authorizations": []string{"alice"},
		"data":           map[string]interface{}{"id": 7, "quantity": "1.0000 SYM"},
	}

	req, err := ingestion.ParseRawMessage(rawFromJSON(t, action.TypeClaimVest, payload))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	c := req.Action.(*action.ClaimVest)
	if c.ID != 7 {
		t.Errorf("id: got %d", c.ID)
	}
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name    string
		typ     action.Type
		payload interface{}
	}{
		{"missing data", action.TypeIssue, map[string]interface{}{"authorizations": []string{"issuer"}}},
		{"bad quantity", action.TypeIssue, map[string]interface{}{
			"data": map[string]interface{}{"to": "issuer", "quantity": "lots"},
		}},
		{"unknown field", action.TypeBurn, map[string]interface{}{
			"data": map[string]interface{}{"burner": "alice", "quantity": "1.0000 SYM", "extra": true},
		}},
		{"bad authorization", action.TypeOpen, map[string]interface{}{
			"authorizations": []string{"NOT VALID"},
			"data":           map[string]interface{}{"owner": "bob", "symbol": "4,SYM", "ram_payer": "bob"},
		}},
		{"unknown action", action.TypeUnknown, map[string]interface{}{"data": map[string]interface{}{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ingestion.ParseRawMessage(rawFromJSON(t, tt.typ, tt.payload))
			if !errors.Is(err, ingestion.ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got %v", err)
			}
		})
	}
}

func TestParseNotJSON(t *testing.T) {
	_, err := ingestion.ParseRequest(action.TypeCreate, []byte("not json"))
	if !errors.Is(err, ingestion.ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestDefaultSubjects(t *testing.T) {
	subjects := ingestion.DefaultSubjects()
	if len(subjects) != 8 {
		t.Fatalf("expected 8 subjects, got %d", len(subjects))
	}
	seen := make(map[string]bool)
	for _, s := range subjects {
		if s.StreamName != ingestion.ActionStream {
			t.Errorf("%s: stream %s", s.Subject, s.StreamName)
		}
		if s.Subject != ingestion.ActionSubjectPrefix+s.ActionType.String() {
			t.Errorf("subject %s does not match type %s", s.Subject, s.ActionType)
		}
		if seen[s.ConsumerName] {
			t.Errorf("duplicate consumer %s", s.ConsumerName)
		}
		seen[s.ConsumerName] = true
	}
}
