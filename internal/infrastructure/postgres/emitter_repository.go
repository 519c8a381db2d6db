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

var _ repository.EmitterRepository = (*EmitterRepo)(nil)

// EmitterRepo implementação do porto EmitterRepository sobre PostgreSQL.
type EmitterRepo struct {
	q Querier
}

// NewEmitterRepository constrói o adaptador. Aceita pool ou tx (Querier).
func NewEmitterRepository(q Querier) *EmitterRepo {
	return &EmitterRepo{q: q}
}

const emitterColumns = `id, user_id, name, trade_name, cnpj, cpf, municipality_ibge, dps_series, active, created_at, updated_at`

func scanEmitter(row pgx.Row) (*entity.Emitter, error) {
	var e entity.Emitter
	err := row.Scan(
		&e.ID, &e.UserID, &e.Name, &e.TradeName, &e.CNPJ, &e.CPF,
		&e.MunicipalityIBGE, &e.DPSSeries, &e.Active, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Create persiste um novo emissor.
func (r *EmitterRepo) Create(emitter *entity.Emitter) error {
	query := `
		INSERT INTO emitters (id, user_id, name, trade_name, cnpj, cpf, municipality_ibge, dps_series, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.q.Exec(context.Background(), query,
		emitter.ID, emitter.UserID, emitter.Name, emitter.TradeName, emitter.CNPJ, emitter.CPF,
		emitter.MunicipalityIBGE, emitter.DPSSeries, emitter.Active, emitter.CreatedAt, emitter.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert emitter: %w", err)
	}
	return nil
}

// GetByID devolve o emissor do usuário ou (nil, nil) se não existir/não pertencer.
func (r *EmitterRepo) GetByID(id, userID string) (*entity.Emitter, error) {
	query := `SELECT ` + emitterColumns + ` FROM emitters WHERE id = $1 AND user_id = $2`
	e, err := scanEmitter(r.q.QueryRow(context.Background(), query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get emitter by id: %w", err)
	}
	return e, nil
}

// GetByCNPJ devolve o emissor do usuário pelo CNPJ (apenas dígitos) ou (nil, nil).
func (r *EmitterRepo) GetByCNPJ(cnpj, userID string) (*entity.Emitter, error) {
	query := `SELECT ` + emitterColumns + ` FROM emitters WHERE cnpj = $1 AND user_id = $2 LIMIT 1`
	e, err := scanEmitter(r.q.QueryRow(context.Background(), query, cnpj, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get emitter by cnpj: %w", err)
	}
	return e, nil
}

// ListByUser lista os emissores do usuário por ordem de criação.
func (r *EmitterRepo) ListByUser(userID string) ([]*entity.Emitter, error) {
	query := `SELECT ` + emitterColumns + ` FROM emitters WHERE user_id = $1 ORDER BY created_at ASC`
	rows, err := r.q.Query(context.Background(), query, userID)
	if err != nil {
		return nil, fmt.Errorf("list emitters: %w", err)
	}
	defer rows.Close()
	var list []*entity.Emitter
	for rows.Next() {
		e, err := scanEmitter(rows)
		if err != nil {
			return nil, fmt.Errorf("scan emitter: %w", err)
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// Update atualiza os dados do emissor.
func (r *EmitterRepo) Update(emitter *entity.Emitter) error {
	query := `
		UPDATE emitters
		SET name = $3, trade_name = $4, cnpj = $5, cpf = $6, municipality_ibge = $7,
		    dps_series = $8, active = $9, updated_at = $10
		WHERE id = $1 AND user_id = $2`
	_, err := r.q.Exec(context.Background(), query,
		emitter.ID, emitter.UserID, emitter.Name, emitter.TradeName, emitter.CNPJ, emitter.CPF,
		emitter.MunicipalityIBGE, emitter.DPSSeries, emitter.Active, emitter.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update emitter: %w", err)
	}
	return nil
}

// Delete remove o emissor do usuário.
func (r *EmitterRepo) Delete(id, userID string) error {
	_, err := r.q.Exec(context.Background(), `DELETE FROM emitters WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete emitter: %w", err)
	}
	return nil
}
