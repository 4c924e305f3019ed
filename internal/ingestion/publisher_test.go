package ingestion_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"VestLedger/internal/action"
	"VestLedger/internal/asset"
	"VestLedger/internal/core"
	"VestLedger/internal/ingestion"
)

type published struct {
	subject string
	payload []byte
}

type fakeStream struct {
	msgs []published
	err  error
}

func (f *fakeStream) Publish(_ context.Context, subject string, payload []byte, _ ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.msgs = append(f.msgs, published{subject: subject, payload: payload})
	return &jetstream.PubAck{Stream: ingestion.EventStream, Sequence: uint64(len(f.msgs))}, nil
}

func testReceipt(seq int64) *core.Receipt {
	return &core.Receipt{
		Sequence:  seq,
		ReceiptID: uuid.New(),
		Action: &action.Transfer{
			From:     "alice",
			To:       "bob",
			Quantity: asset.MustParseAmount("1.0000 SYM"),
		},
		Accounts:    []asset.Name{"alice", "bob"},
		CommittedAt: time.Unix(1_700_000_000, 0).UTC(),
	}
}

func TestPublisher_PublishSubject(t *testing.T) {
	js := &fakeStream{}
	op := ingestion.NewOutboundPublisher(js, nil, zerolog.Nop())

	require.NoError(t, op.Publish(context.Background(), testReceipt(4)))
	require.Len(t, js.msgs, 1)
	assert.Equal(t, "vest.ledger.events.transfer", js.msgs[0].subject)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(js.msgs[0].payload, &body))
	assert.EqualValues(t, 4, body["sequence"])
}

func TestPublisher_Notify(t *testing.T) {
	js := &fakeStream{}
	op := ingestion.NewOutboundPublisher(js, nil, zerolog.Nop())

	require.NoError(t, op.Notify(context.Background(), "bob", testReceipt(1)))
	require.Len(t, js.msgs, 1)
	assert.Equal(t, "vest.ledger.notify.bob", js.msgs[0].subject)
}

func TestPublisher_RunContinuesPastFailures(t *testing.T) {
	js := &fakeStream{err: errors.New("no responders")}
	ch := make(chan *core.Receipt, 2)
	ch <- testReceipt(1)
	ch <- testReceipt(2)
	close(ch)

	op := ingestion.NewOutboundPublisher(js, ch, zerolog.Nop())
	require.NoError(t, op.Run(context.Background()))
	assert.Empty(t, js.msgs)
}
