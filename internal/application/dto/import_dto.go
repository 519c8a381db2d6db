package dto

import (
	"time"

	"github.com/notafacil/nfse-api/internal/domain/entity"
)

// ImportSubmitResponse resposta do POST /api/clients/import.
type ImportSubmitResponse struct {
	JobID   string `json:"job_id"`
	Message string `json:"msg"`
}

// ImportStatusResponse progresso de um job de importação de clientes.
type ImportStatusResponse struct {
	JobID      string                  `json:"job_id"`
	Status     string                  `json:"status"` // pending|running|finished|error
	Total      int                     `json:"total"`
	Processed  int                     `json:"processed"`
	Inserted   int                     `json:"inserted"`
	Skipped    int                     `json:"skipped"`
	Errors     []entity.ImportRowError `json:"errors"`
	Message    string                  `json:"msg,omitempty"`
	CreatedAt  time.Time               `json:"created_at"`
	FinishedAt *time.Time              `json:"finished_at,omitempty"`
}

// ImportStatusFromEntity converte o job para o DTO de resposta.
func ImportStatusFromEntity(j *entity.ImportJob) ImportStatusResponse {
	errs := j.Errors
	if errs == nil {
		errs = []entity.ImportRowError{}
	}
	return ImportStatusResponse{
		JobID:      j.ID,
		Status:     j.Status,
		Total:      j.Total,
		Processed:  j.Processed,
		Inserted:   j.Inserted,
		Skipped:    j.Skipped,
		Errors:     errs,
		Message:    j.Message,
		CreatedAt:  j.CreatedAt,
		FinishedAt: j.FinishedAt,
	}
}
