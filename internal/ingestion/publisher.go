package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"

	"VestLedger/internal/asset"
	"VestLedger/internal/core"
)

const (
	EventStream         = "VEST_LEDGER_EVENTS"
	EventSubjectPrefix  = "vest.ledger.events."
	NotifySubjectPrefix = "vest.ledger.notify."
)

// streamPublisher is the slice of jetstream.JetStream the publisher needs.
type streamPublisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// OutboundPublisher publishes committed receipts for downstream consumers
// and delivers per-account notifications.
type OutboundPublisher struct {
	js        streamPublisher
	inputChan <-chan *core.Receipt
	logger    zerolog.Logger
}

func NewOutboundPublisher(js streamPublisher, inputChan <-chan *core.Receipt, logger zerolog.Logger) *OutboundPublisher {
	return &OutboundPublisher{
		js:        js,
		inputChan: inputChan,
		logger:    logger,
	}
}

// Run publishes receipts to vest.ledger.events.<action> until ctx is
// cancelled. Failures are logged; the action log remains authoritative.
func (op *OutboundPublisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case receipt, ok := <-op.inputChan:
			if !ok {
				return nil
			}
			if err := op.Publish(ctx, receipt); err != nil {
				op.logger.Warn().Err(err).Int64("sequence", receipt.Sequence).Msg("outbound publish failed")
			}
		}
	}
}

// Publish sends one receipt. The receipt id doubles as the JetStream
// message id so a republish is deduplicated by the stream.
func (op *OutboundPublisher) Publish(ctx context.Context, receipt *core.Receipt) error {
	data, err := json.Marshal(receipt)
	if err != nil {
		return fmt.Errorf("marshal receipt: %w", err)
	}
	subject := EventSubjectPrefix + receipt.Type().String()
	_, err = op.js.Publish(ctx, subject, data, jetstream.WithMsgID(receipt.ReceiptID.String()))
	return err
}

// Notify implements core.Notifier on vest.ledger.notify.<account>.
func (op *OutboundPublisher) Notify(ctx context.Context, recipient asset.Name, receipt *core.Receipt) error {
	data, err := json.Marshal(receipt)
	if err != nil {
		return fmt.Errorf("marshal receipt: %w", err)
	}
	msgID := receipt.ReceiptID.String() + ":" + string(recipient) + ":" + strconv.FormatInt(receipt.Sequence, 10)
	_, err = op.js.Publish(ctx, NotifySubjectPrefix+string(recipient), data, jetstream.WithMsgID(msgID))
	return err
}

// EnsureOutboundStream creates the outbound events stream.
func EnsureOutboundStream(ctx context.Context, js jetstream.JetStream) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       EventStream,
		Subjects:   []string{EventSubjectPrefix + ">", NotifySubjectPrefix + ">"},
		Storage:    jetstream.FileStorage,
		Retention:  jetstream.LimitsPolicy,
		MaxAge:     72 * time.Hour,
		Duplicates: 10 * time.Minute,
		Replicas:   1,
	})
	if err != nil {
		return fmt.Errorf("create outbound stream: %w", err)
	}
	return nil
}

var _ core.Notifier = (*OutboundPublisher)(nil)
