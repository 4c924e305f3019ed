package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"VestLedger/internal/action"
	"VestLedger/internal/asset"
	"VestLedger/internal/ledger"
	"VestLedger/internal/observability"
	"VestLedger/internal/store"
)

// ErrDuplicateRequest is returned when a request id has already committed.
var ErrDuplicateRequest = errors.New("duplicate request")

// Config holds the engine's static parameters.
type Config struct {
	// Self is the deployment account: it authorizes create and vest, and
	// holds vested tokens in custody.
	Self asset.Name

	// StartSequence is the sequence the next receipt receives.
	StartSequence int64

	// PrevHash resumes the receipt chain. Zero means genesis.
	PrevHash [32]byte

	// InvariantCheckInterval runs the conservation validator inside the
	// transaction every N actions. Zero disables it.
	InvariantCheckInterval int

	IdempotencyCapacity int
}

// Deps are the engine's collaborators. Only Backend, Directory and Clock are
// required.
type Deps struct {
	Backend   store.Backend
	Directory Directory
	Clock     Clock
	Notifier  Notifier
	DBChecker DBIdempotencyChecker
	Metrics   *observability.Metrics
	Logger    *zerolog.Logger

	// PersistChan receives every receipt with a blocking send.
	PersistChan chan<- *Receipt

	// PublishChan receives every receipt with a non-blocking send.
	PublishChan chan<- *Receipt
}

// Request is one action submitted on behalf of a set of signers.
type Request struct {
	RequestID string
	Auth      Authority
	Action    action.Action
}

// Engine applies ledger actions one at a time. Each action runs in its own
// store transaction and either commits fully or leaves no trace.
type Engine struct {
	mu sync.Mutex

	cfg         Config
	backend     store.Backend
	directory   Directory
	clock       Clock
	notifier    Notifier
	hasher      *StateHasher
	idempotency *IdempotencyChecker
	metrics     *observability.Metrics
	logger      zerolog.Logger

	sequence int64
	applied  int64

	persistChan chan<- *Receipt
	publishChan chan<- *Receipt
}

func NewEngine(cfg Config, deps Deps) *Engine {
	logger := zerolog.Nop()
	if deps.Logger != nil {
		logger = *deps.Logger
	}
	hasher := NewStateHasher()
	if cfg.PrevHash != ([32]byte{}) {
		hasher = NewStateHasherFrom(cfg.PrevHash)
	}
	capacity := cfg.IdempotencyCapacity
	if capacity <= 0 {
		capacity = 100_000
	}

	return &Engine{
		cfg:         cfg,
		backend:     deps.Backend,
		directory:   deps.Directory,
		clock:       deps.Clock,
		notifier:    deps.Notifier,
		hasher:      hasher,
		idempotency: NewIdempotencyChecker(capacity, deps.DBChecker, deps.Metrics, logger),
		metrics:     deps.Metrics,
		logger:      logger,
		sequence:    cfg.StartSequence,
		persistChan: deps.PersistChan,
		publishChan: deps.PublishChan,
	}
}

// Self returns the deployment account.
func (e *Engine) Self() asset.Name {
	return e.cfg.Self
}

// Sequence returns the sequence the next receipt will receive.
func (e *Engine) Sequence() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sequence
}

// StateHash returns the current receipt chain tip.
func (e *Engine) StateHash() [32]byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hasher.GetPrevHash()
}

// WarmIdempotency preloads recently committed request ids.
func (e *Engine) WarmIdempotency(requestIDs []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.idempotency.Warm(requestIDs)
}

// Apply is the main processing pipeline.
func (e *Engine) Apply(ctx context.Context, req Request) (*Receipt, error) {
	if req.Action == nil {
		return nil, ledger.Errorf(ledger.CodeInvalidArgument, "missing action")
	}
	auth := req.Auth
	if auth == nil {
		auth = NewSigners()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	actionType := req.Action.Type().String()

	// Step 1: de-duplication
	if req.RequestID != "" && e.idempotency.IsDuplicate(ctx, req.RequestID) {
		e.logger.Info().Str("request_id", req.RequestID).Str("action", actionType).Msg("duplicate request skipped")
		return nil, fmt.Errorf("%w: %s", ErrDuplicateRequest, req.RequestID)
	}

	// Step 2: run the handler in a transaction
	now := e.clock.Now()
	tx, err := e.backend.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				e.logger.Warn().Err(rbErr).Msg("rollback failed")
			}
		}
	}()

	op := &execution{
		engine: e,
		tx:     tx,
		auth:   auth,
		now:    now,
	}
	if err := op.dispatch(ctx, req.Action); err != nil {
		e.reject(actionType, err)
		return nil, err
	}

	// Step 3: periodic conservation check against the pending state
	if e.cfg.InvariantCheckInterval > 0 && (e.applied+1)%int64(e.cfg.InvariantCheckInterval) == 0 {
		if err := ledger.NewInvariantValidator(tx).Validate(ctx); err != nil {
			e.logger.Error().Err(err).Str("action", actionType).Msg("invariant violated, action aborted")
			e.countInvariant("violated")
			e.reject(actionType, err)
			return nil, err
		}
		e.countInvariant("ok")
	}

	// Step 4: commit
	if err := tx.Commit(ctx); err != nil {
		e.reject(actionType, err)
		return nil, fmt.Errorf("commit %s: %w", actionType, err)
	}
	committed = true

	// Step 5: receipt and hash chain
	receipt := &Receipt{
		Sequence:    e.sequence,
		ReceiptID:   uuid.New(),
		RequestID:   req.RequestID,
		Action:      req.Action,
		Accounts:    req.Action.Accounts(),
		VestID:      op.vestID,
		CommittedAt: now,
		PrevHash:    e.hasher.GetPrevHash(),
	}
	digest, err := receipt.digest()
	if err != nil {
		return nil, err
	}
	receipt.StateHash = e.hasher.ComputeHash(receipt.Sequence, digest)
	e.sequence++
	e.applied++
	if req.RequestID != "" {
		e.idempotency.MarkProcessed(req.RequestID)
	}

	e.logger.Debug().
		Int64("sequence", receipt.Sequence).
		Str("action", actionType).
		Str("request_id", req.RequestID).
		Msg("action committed")

	if e.metrics != nil {
		e.metrics.ActionsApplied.WithLabelValues(actionType).Inc()
		e.metrics.ApplyDuration.WithLabelValues(actionType).Observe(time.Since(start).Seconds())
		e.metrics.Sequence.Set(float64(receipt.Sequence))
		op.observe(e.metrics)
	}

	// Step 6: emit outputs
	e.emit(receipt)
	e.notify(ctx, op.notify, receipt)

	return receipt, nil
}

// emit hands the receipt to persistence (blocking) and publishing
// (non-blocking, dropped when full).
func (e *Engine) emit(receipt *Receipt) {
	if e.persistChan != nil {
		select {
		case e.persistChan <- receipt:
		default:
			if e.metrics != nil {
				e.metrics.PersistBackpressure.Inc()
			}
			e.persistChan <- receipt
		}
	}
	if e.publishChan != nil {
		select {
		case e.publishChan <- receipt:
		default:
			if e.metrics != nil {
				e.metrics.PublishDrops.Inc()
			}
		}
	}
}

func (e *Engine) notify(ctx context.Context, recipients []asset.Name, receipt *Receipt) {
	if e.notifier == nil {
		return
	}
	for _, r := range recipients {
		result := "ok"
		if err := e.notifier.Notify(ctx, r, receipt); err != nil {
			result = "error"
			e.logger.Warn().Err(err).Str("recipient", string(r)).Int64("sequence", receipt.Sequence).Msg("notification failed")
		}
		if e.metrics != nil {
			e.metrics.Notification.WithLabelValues(result).Inc()
		}
	}
}

func (e *Engine) reject(actionType string, err error) {
	code := ledger.CodeOf(err)
	label := string(code)
	if label == "" {
		label = "internal"
		e.logger.Error().Err(err).Str("action", actionType).Msg("action failed")
	} else {
		e.logger.Info().Str("action", actionType).Str("code", label).Msg(err.Error())
	}
	if e.metrics != nil {
		e.metrics.ActionsRejected.WithLabelValues(actionType, label).Inc()
	}
}

func (e *Engine) countInvariant(result string) {
	if e.metrics != nil {
		e.metrics.InvariantChecks.WithLabelValues(result).Inc()
	}
}

// CheckInvariants runs every ledger invariant over committed state.
func (e *Engine) CheckInvariants(ctx context.Context) error {
	return ledger.NewInvariantValidator(e.backend).Validate(ctx)
}

// GetSupply returns the current supply of code.
func (e *Engine) GetSupply(ctx context.Context, code asset.SymbolCode) (asset.Amount, error) {
	st, err := ledger.GetStats(ctx, e.backend, code)
	if err != nil {
		return asset.Amount{}, err
	}
	return st.Supply, nil
}

// GetBalance returns owner's free balance of code.
func (e *Engine) GetBalance(ctx context.Context, owner asset.Name, code asset.SymbolCode) (asset.Amount, error) {
	acc, err := ledger.GetAccount(ctx, e.backend, owner, code)
	if err != nil {
		return asset.Amount{}, err
	}
	return acc.Balance, nil
}
