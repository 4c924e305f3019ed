package ingestion

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"VestLedger/internal/core"
	"VestLedger/internal/ledger"
	"VestLedger/internal/observability"
)

// Applier is the engine surface the processor drives.
type Applier interface {
	Apply(ctx context.Context, req core.Request) (*core.Receipt, error)
}

// Processor applies raw messages in arrival order and settles each one:
// ack on commit or typed rejection, term on malformed input, nak on
// infrastructure failure.
type Processor struct {
	engine  Applier
	rawChan <-chan RawMessage
	metrics *observability.Metrics
	logger  zerolog.Logger
}

func NewProcessor(engine Applier, rawChan <-chan RawMessage, metrics *observability.Metrics, logger zerolog.Logger) *Processor {
	return &Processor{
		engine:  engine,
		rawChan: rawChan,
		metrics: metrics,
		logger:  logger,
	}
}

// Run blocks until ctx is cancelled or the channel closes.
func (p *Processor) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-p.rawChan:
			if !ok {
				return nil
			}
			p.Handle(ctx, raw)
		}
	}
}

// Handle processes one message and returns the settlement it chose.
func (p *Processor) Handle(ctx context.Context, raw RawMessage) string {
	result := p.handle(ctx, raw)
	if p.metrics != nil {
		p.metrics.IngestMessages.WithLabelValues(result).Inc()
	}
	return result
}

func (p *Processor) handle(ctx context.Context, raw RawMessage) string {
	req, err := ParseRawMessage(raw)
	if err != nil {
		p.logger.Warn().Err(err).Str("subject", raw.Subject).Msg("dropping malformed message")
		settle(raw.TermFunc)
		return "malformed"
	}

	_, err = p.engine.Apply(ctx, req)
	switch {
	case err == nil:
		settle(raw.AckFunc)
		return "applied"
	case errors.Is(err, core.ErrDuplicateRequest):
		settle(raw.AckFunc)
		return "duplicate"
	case ledger.CodeOf(err) != "":
		// Rejections are final; redelivery would fail the same way.
		settle(raw.AckFunc)
		return "rejected"
	default:
		p.logger.Error().Err(err).Str("subject", raw.Subject).Str("request_id", req.RequestID).Msg("apply failed, requesting redelivery")
		settle(raw.NakFunc)
		return "retry"
	}
}

func settle(f func()) {
	if f != nil {
		f()
	}
}
