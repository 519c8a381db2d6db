package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notafacil/nfse-api/internal/application/staging"
	"github.com/notafacil/nfse-api/internal/domain/repository"
)

var _ staging.ReconcileTxRunner = (*TxRunner)(nil)

// TxRunner executa callbacks dentro de uma transação PostgreSQL. A
// reconciliação de duplicidades apaga e renumera rascunhos como uma unidade:
// ou tudo, ou nada.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner constrói o runner com o pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// Run abre a transação, executa fn com o repositório atado à tx e faz Commit
// ou Rollback.
func (r *TxRunner) Run(ctx context.Context, fn func(drafts repository.DraftTxRepository) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin da transação: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(NewDraftTxRepository(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit da transação: %w", err)
	}
	return nil
}
