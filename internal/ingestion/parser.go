package ingestion

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"VestLedger/internal/action"
	"VestLedger/internal/asset"
	"VestLedger/internal/core"
)

// ErrMalformed marks a message that can never be applied.
var ErrMalformed = errors.New("malformed action message")

// envelopeJSON is the wire format on vest.actions.<action>. Producers on the
// bus are trusted to assert authorizations.
type envelopeJSON struct {
	RequestID      string          `json:"request_id"`
	Authorizations []string        `json:"authorizations"`
	Data           json.RawMessage `json:"data"`
}

// ParseRawMessage decodes raw into an engine request.
func ParseRawMessage(raw RawMessage) (core.Request, error) {
	return ParseRequest(raw.ActionType, raw.Data)
}

// ParseRequest decodes an envelope carrying an action of type t.
func ParseRequest(t action.Type, data []byte) (core.Request, error) {
	var env envelopeJSON
	if err := json.Unmarshal(data, &env); err != nil {
		return core.Request{}, fmt.Errorf("%w: envelope: %v", ErrMalformed, err)
	}
	if len(env.Data) == 0 {
		return core.Request{}, fmt.Errorf("%w: missing data", ErrMalformed)
	}

	act, err := action.New(t)
	if err != nil {
		return core.Request{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	dec := json.NewDecoder(bytes.NewReader(env.Data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(act); err != nil {
		return core.Request{}, fmt.Errorf("%w: parse %s: %v", ErrMalformed, t, err)
	}

	signers := make([]asset.Name, 0, len(env.Authorizations))
	for _, a := range env.Authorizations {
		n, err := asset.ParseName(a)
		if err != nil {
			return core.Request{}, fmt.Errorf("%w: authorization: %v", ErrMalformed, err)
		}
		signers = append(signers, n)
	}

	return core.Request{
		RequestID: env.RequestID,
		Auth:      core.NewSigners(signers...),
		Action:    act,
	}, nil
}
