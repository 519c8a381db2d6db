package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/notafacil/nfse-api/internal/domain"
	"github.com/notafacil/nfse-api/internal/domain/entity"
	"github.com/notafacil/nfse-api/internal/domain/repository"
)

var _ repository.TaxRateRepository = (*TaxRateRepo)(nil)

// TaxRateRepo implementação do porto TaxRateRepository sobre PostgreSQL.
type TaxRateRepo struct {
	q Querier
}

// NewTaxRateRepository constrói o adaptador de alíquotas.
func NewTaxRateRepository(q Querier) *TaxRateRepo {
	return &TaxRateRepo{q: q}
}

const taxRateColumns = `id, user_id, emitter_id, year, month, rate, created_at, updated_at`

func scanTaxRate(row pgx.Row) (*entity.TaxRate, error) {
	var t entity.TaxRate
	err := row.Scan(&t.ID, &t.UserID, &t.EmitterID, &t.Year, &t.Month, &t.Rate, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Upsert cria ou substitui a alíquota do (emissor, ano, mês).
func (r *TaxRateRepo) Upsert(rate *entity.TaxRate) error {
	query := `
		INSERT INTO tax_rates (id, user_id, emitter_id, year, month, rate, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (emitter_id, year, month)
		DO UPDATE SET rate = EXCLUDED.rate, updated_at = EXCLUDED.updated_at`
	_, err := r.q.Exec(context.Background(), query,
		rate.ID, rate.UserID, rate.EmitterID, rate.Year, rate.Month, rate.Rate,
		rate.CreatedAt, rate.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert tax rate: %w", err)
	}
	return nil
}

// GetForMonth devolve a alíquota exata do mês ou (nil, nil).
func (r *TaxRateRepo) GetForMonth(emitterID string, year, month int) (*entity.TaxRate, error) {
	query := `SELECT ` + taxRateColumns + `
		FROM tax_rates WHERE emitter_id = $1 AND year = $2 AND month = $3`
	t, err := scanTaxRate(r.q.QueryRow(context.Background(), query, emitterID, year, month))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get tax rate for month: %w", err)
	}
	return t, nil
}

// GetLatestUpTo devolve a alíquota mais recente com competência <= (ano, mês).
func (r *TaxRateRepo) GetLatestUpTo(emitterID string, year, month int) (*entity.TaxRate, error) {
	query := `SELECT ` + taxRateColumns + `
		FROM tax_rates
		WHERE emitter_id = $1 AND (year, month) <= ($2, $3)
		ORDER BY year DESC, month DESC
		LIMIT 1`
	t, err := scanTaxRate(r.q.QueryRow(context.Background(), query, emitterID, year, month))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get latest tax rate: %w", err)
	}
	return t, nil
}

// GetCurrent devolve a alíquota mais recente registrada do emissor.
func (r *TaxRateRepo) GetCurrent(emitterID string) (*entity.TaxRate, error) {
	query := `SELECT ` + taxRateColumns + `
		FROM tax_rates WHERE emitter_id = $1
		ORDER BY year DESC, month DESC
		LIMIT 1`
	t, err := scanTaxRate(r.q.QueryRow(context.Background(), query, emitterID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get current tax rate: %w", err)
	}
	return t, nil
}

// ListByEmitter lista as alíquotas do emissor da competência mais nova para a
// mais antiga.
func (r *TaxRateRepo) ListByEmitter(emitterID string) ([]*entity.TaxRate, error) {
	query := `SELECT ` + taxRateColumns + `
		FROM tax_rates WHERE emitter_id = $1
		ORDER BY year DESC, month DESC`
	rows, err := r.q.Query(context.Background(), query, emitterID)
	if err != nil {
		return nil, fmt.Errorf("list tax rates: %w", err)
	}
	defer rows.Close()
	var list []*entity.TaxRate
	for rows.Next() {
		t, err := scanTaxRate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tax rate: %w", err)
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// Delete remove a alíquota do usuário.
func (r *TaxRateRepo) Delete(id, userID string) error {
	tag, err := r.q.Exec(context.Background(), `DELETE FROM tax_rates WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete tax rate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
