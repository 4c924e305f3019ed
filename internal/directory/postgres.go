package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"VestLedger/internal/asset"
)

// Postgres resolves accounts against ledger.accounts.
type Postgres struct {
	db      *sql.DB
	timeout time.Duration
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db, timeout: 500 * time.Millisecond}
}

func (p *Postgres) IsAccount(ctx context.Context, name asset.Name) (bool, error) {
	if !name.IsValid() {
		return false, nil
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var exists int
	err := p.db.QueryRowContext(ctx,
		`SELECT 1 FROM ledger.accounts WHERE name = $1 LIMIT 1`, string(name),
	).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup account %s: %w", name, err)
	}
	return true, nil
}

// Register adds name to the directory. Registering an existing name is a
// no-op.
func (p *Postgres) Register(ctx context.Context, name asset.Name) error {
	if !name.IsValid() {
		return fmt.Errorf("%w: %q", asset.ErrInvalidName, name)
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO ledger.accounts (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, string(name),
	)
	if err != nil {
		return fmt.Errorf("register account %s: %w", name, err)
	}
	return nil
}
