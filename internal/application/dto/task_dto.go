package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/notafacil/nfse-api/internal/domain/entity"
)

// TaskResponse task de emissão nas respostas.
type TaskResponse struct {
	ID          string          `json:"id"`
	EmitterID   string          `json:"emitter_id"`
	ClientID    string          `json:"client_id"`
	DraftID     string          `json:"draft_id,omitempty"`
	Description string          `json:"descricao"`
	Amount      decimal.Decimal `json:"valor"`
	Competency  string          `json:"competencia"`
	ServiceCode string          `json:"cod_servico"`
	TaxRate     decimal.Decimal `json:"aliquota"`
	DPSSeries   string          `json:"dps_serie"`
	DPSNumber   int64           `json:"dps_numero"`
	Status      string          `json:"status"`
	InvoiceNum  string          `json:"numero_nfse,omitempty"`
	Message     string          `json:"mensagem,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// TaskFromEntity converte a entidade para o DTO de resposta.
func TaskFromEntity(t *entity.Task) TaskResponse {
	return TaskResponse{
		ID:          t.ID,
		EmitterID:   t.EmitterID,
		ClientID:    t.ClientID,
		DraftID:     t.DraftID,
		Description: t.Description,
		Amount:      t.Amount,
		Competency:  t.Competency,
		ServiceCode: t.ServiceCode,
		TaxRate:     t.TaxRate,
		DPSSeries:   t.DPS.Series,
		DPSNumber:   t.DPS.Number,
		Status:      t.Status,
		InvoiceNum:  t.InvoiceNum,
		Message:     t.Message,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// TaskCancelRequest corpo da solicitação de cancelamento de uma task aceita.
type TaskCancelRequest struct {
	Justification string `json:"justificativa"`
}

// TaskSummaryResponse agregado por status para o painel do emissor.
type TaskSummaryResponse struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}
