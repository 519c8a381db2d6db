package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/notafacil/nfse-api/internal/domain/entity"
	"github.com/notafacil/nfse-api/internal/domain/repository"
)

var _ repository.ImportJobRepository = (*ImportJobRepo)(nil)

// ImportJobRepo implementação do porto ImportJobRepository sobre PostgreSQL.
// Os erros por linha são gravados como JSONB.
type ImportJobRepo struct {
	q Querier
}

// NewImportJobRepository constrói o adaptador de jobs de importação.
func NewImportJobRepository(q Querier) *ImportJobRepo {
	return &ImportJobRepo{q: q}
}

// Create persiste um novo job.
func (r *ImportJobRepo) Create(job *entity.ImportJob) error {
	rowErrors, err := marshalRowErrors(job.Errors)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO import_jobs (id, user_id, filename, status, total, processed, inserted,
			skipped, errors, message, created_at, updated_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err = r.q.Exec(context.Background(), query,
		job.ID, job.UserID, job.Filename, job.Status, job.Total, job.Processed,
		job.Inserted, job.Skipped, rowErrors, job.Message, job.CreatedAt, job.UpdatedAt,
		job.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert import job: %w", err)
	}
	return nil
}

// GetByID devolve o job do usuário ou (nil, nil).
func (r *ImportJobRepo) GetByID(id, userID string) (*entity.ImportJob, error) {
	query := `
		SELECT id, user_id, filename, status, total, processed, inserted, skipped,
		       errors, message, created_at, updated_at, finished_at
		FROM import_jobs WHERE id = $1 AND user_id = $2`
	var j entity.ImportJob
	var rowErrors []byte
	err := r.q.QueryRow(context.Background(), query, id, userID).Scan(
		&j.ID, &j.UserID, &j.Filename, &j.Status, &j.Total, &j.Processed, &j.Inserted,
		&j.Skipped, &rowErrors, &j.Message, &j.CreatedAt, &j.UpdatedAt, &j.FinishedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get import job: %w", err)
	}
	if len(rowErrors) > 0 {
		if err := json.Unmarshal(rowErrors, &j.Errors); err != nil {
			return nil, fmt.Errorf("decode import job errors: %w", err)
		}
	}
	return &j, nil
}

// Update grava o progresso corrente do job.
func (r *ImportJobRepo) Update(job *entity.ImportJob) error {
	rowErrors, err := marshalRowErrors(job.Errors)
	if err != nil {
		return err
	}
	query := `
		UPDATE import_jobs
		SET status = $3, total = $4, processed = $5, inserted = $6, skipped = $7,
		    errors = $8, message = $9, updated_at = $10, finished_at = $11
		WHERE id = $1 AND user_id = $2`
	_, err = r.q.Exec(context.Background(), query,
		job.ID, job.UserID, job.Status, job.Total, job.Processed, job.Inserted,
		job.Skipped, rowErrors, job.Message, job.UpdatedAt, job.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("update import job: %w", err)
	}
	return nil
}

func marshalRowErrors(rowErrors []entity.ImportRowError) ([]byte, error) {
	if rowErrors == nil {
		rowErrors = []entity.ImportRowError{}
	}
	data, err := json.Marshal(rowErrors)
	if err != nil {
		return nil, fmt.Errorf("encode import job errors: %w", err)
	}
	return data, nil
}
