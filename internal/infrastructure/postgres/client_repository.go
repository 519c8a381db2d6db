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

var _ repository.ClientRepository = (*ClientRepo)(nil)

// ClientRepo implementação do porto ClientRepository sobre PostgreSQL.
type ClientRepo struct {
	q Querier
}

// NewClientRepository constrói o adaptador. Aceita pool ou tx (Querier).
func NewClientRepository(q Querier) *ClientRepo {
	return &ClientRepo{q: q}
}

const clientColumns = `id, user_id, name, cpf, cnpj, email, phone, cep, street, number,
	complement, district, city, state, municipality_ibge, unidentified, emitter_ids,
	active, created_at, updated_at`

func scanClient(row pgx.Row) (*entity.Client, error) {
	var c entity.Client
	err := row.Scan(
		&c.ID, &c.UserID, &c.Name, &c.CPF, &c.CNPJ, &c.Email, &c.Phone, &c.CEP,
		&c.Street, &c.Number, &c.Complement, &c.District, &c.City, &c.State,
		&c.MunicipalityIBGE, &c.Unidentified, &c.EmitterIDs, &c.Active,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create persiste um novo cliente. CPF/CNPJ duplicado do mesmo usuário é
// rejeitado como ErrDuplicate.
func (r *ClientRepo) Create(client *entity.Client) error {
	query := `
		INSERT INTO clients (id, user_id, name, cpf, cnpj, email, phone, cep, street, number,
			complement, district, city, state, municipality_ibge, unidentified, emitter_ids,
			active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`
	_, err := r.q.Exec(context.Background(), query,
		client.ID, client.UserID, client.Name, client.CPF, client.CNPJ, client.Email,
		client.Phone, client.CEP, client.Street, client.Number, client.Complement,
		client.District, client.City, client.State, client.MunicipalityIBGE,
		client.Unidentified, client.EmitterIDs, client.Active, client.CreatedAt, client.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert client: %w", err)
	}
	return nil
}

// GetByID devolve o cliente do usuário ou (nil, nil).
func (r *ClientRepo) GetByID(id, userID string) (*entity.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = $1 AND user_id = $2`
	c, err := scanClient(r.q.QueryRow(context.Background(), query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get client by id: %w", err)
	}
	return c, nil
}

// GetByDocument busca o cliente ativo pelo CPF (11 dígitos) ou CNPJ (14) já
// sanitizado. Devolve (nil, nil) quando não há correspondência.
func (r *ClientRepo) GetByDocument(digits, userID string) (*entity.Client, error) {
	query := `SELECT ` + clientColumns + `
		FROM clients
		WHERE user_id = $2 AND active AND (cpf = $1 OR cnpj = $1)
		LIMIT 1`
	c, err := scanClient(r.q.QueryRow(context.Background(), query, digits, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get client by document: %w", err)
	}
	return c, nil
}

// GetUnidentified devolve o tomador não identificado vinculado ao emissor.
func (r *ClientRepo) GetUnidentified(emitterID, userID string) (*entity.Client, error) {
	query := `SELECT ` + clientColumns + `
		FROM clients
		WHERE user_id = $2 AND active AND unidentified AND $1 = ANY(emitter_ids)
		LIMIT 1`
	c, err := scanClient(r.q.QueryRow(context.Background(), query, emitterID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get unidentified client: %w", err)
	}
	return c, nil
}

// List lista os clientes do usuário com filtros e paginação, por nome.
func (r *ClientRepo) List(userID string, filter repository.ClientFilter) ([]*entity.Client, error) {
	query, args := buildClientQuery(`SELECT `+clientColumns+` FROM clients`, userID, filter)
	query += ` ORDER BY name ASC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	}

	rows, err := r.q.Query(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()
	var list []*entity.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

// Count conta os clientes com os mesmos filtros do List (para paginação).
func (r *ClientRepo) Count(userID string, filter repository.ClientFilter) (int, error) {
	query, args := buildClientQuery(`SELECT count(*) FROM clients`, userID, filter)
	var total int
	if err := r.q.QueryRow(context.Background(), query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count clients: %w", err)
	}
	return total, nil
}

// buildClientQuery monta o WHERE compartilhado entre List e Count.
func buildClientQuery(base, userID string, filter repository.ClientFilter) (string, []any) {
	query := base + ` WHERE user_id = $1`
	args := []any{userID}

	if filter.OnlyActive {
		query += ` AND active`
	}
	if filter.EmitterID != "" {
		args = append(args, filter.EmitterID)
		query += fmt.Sprintf(` AND $%d = ANY(emitter_ids)`, len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		query += fmt.Sprintf(` AND (name ILIKE $%d OR cpf LIKE $%d OR cnpj LIKE $%d)`, n, n, n)
	}
	return query, args
}

// Update atualiza os dados do cliente.
func (r *ClientRepo) Update(client *entity.Client) error {
	query := `
		UPDATE clients
		SET name = $3, cpf = $4, cnpj = $5, email = $6, phone = $7, cep = $8,
		    street = $9, number = $10, complement = $11, district = $12, city = $13,
		    state = $14, municipality_ibge = $15, emitter_ids = $16, updated_at = $17
		WHERE id = $1 AND user_id = $2`
	_, err := r.q.Exec(context.Background(), query,
		client.ID, client.UserID, client.Name, client.CPF, client.CNPJ, client.Email,
		client.Phone, client.CEP, client.Street, client.Number, client.Complement,
		client.District, client.City, client.State, client.MunicipalityIBGE,
		client.EmitterIDs, client.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("update client: %w", err)
	}
	return nil
}

// SetActive ativa/desativa o cliente (soft delete).
func (r *ClientRepo) SetActive(id, userID string, active bool) error {
	query := `UPDATE clients SET active = $3, updated_at = now() WHERE id = $1 AND user_id = $2`
	tag, err := r.q.Exec(context.Background(), query, id, userID, active)
	if err != nil {
		return fmt.Errorf("set client active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
