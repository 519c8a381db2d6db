package repository

import "github.com/notafacil/nfse-api/internal/domain/entity"

// ImportJobRepository define o porto de persistência para ImportJob.
type ImportJobRepository interface {
	Create(job *entity.ImportJob) error
	// GetByID devolve (nil, nil) quando o job não existe.
	GetByID(id, userID string) (*entity.ImportJob, error)
	Update(job *entity.ImportJob) error
}
