package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/notafacil/nfse-api/internal/domain/entity"
)

// DraftImportItem item do POST /api/notas/drafts/import. ForceNew cria sempre
// um novo rascunho com seq incrementado em vez do upsert por grupo.
type DraftImportItem struct {
	ClientID         string `json:"clienteId"`
	Document         string `json:"cpf_cnpj"`
	ClientName       string `json:"cliente_nome,omitempty"`
	Description      string `json:"descricao"`
	Amount           string `json:"valor"`
	Competency       string `json:"competencia"`
	ServiceCode      string `json:"cod_servico,omitempty"`
	MunicipalityIBGE string `json:"municipio_ibge,omitempty"`
	Country          string `json:"pais_prestacao,omitempty"`
	TaxWithheld      bool   `json:"iss_retido,omitempty"`
	EmissionDate     string `json:"dataEmissao,omitempty"`
	ForceNew         bool   `json:"force_new,omitempty"`
}

// DraftImportRequest body do import em lote de rascunhos.
type DraftImportRequest struct {
	EmitterID string            `json:"emitterId"`
	Items     []DraftImportItem `json:"items"`
}

// DraftImportResponse contagem do import + IDs criados/atualizados.
type DraftImportResponse struct {
	Message  string   `json:"msg"`
	Created  int      `json:"created"`
	Updated  int      `json:"updated"`
	Skipped  int      `json:"skipped"`
	DraftIDs []string `json:"draft_ids"`
}

// DraftUpdateRequest campos editáveis de um rascunho ativo. Ponteiros nulos
// significam "não alterar".
type DraftUpdateRequest struct {
	Description      *string `json:"descricao,omitempty"`
	Amount           *string `json:"valor,omitempty"`
	Competency       *string `json:"competencia,omitempty"`
	ServiceCode      *string `json:"cod_servico,omitempty"`
	MunicipalityIBGE *string `json:"municipio_ibge,omitempty"`
	Country          *string `json:"pais_prestacao,omitempty"`
	TaxWithheld      *bool   `json:"iss_retido,omitempty"`
	EmissionDate     *string `json:"dataEmissao,omitempty"`
}

// DraftResponse rascunho nas respostas.
type DraftResponse struct {
	ID               string          `json:"id"`
	EmitterID        string          `json:"emitter_id"`
	ClientID         string          `json:"client_id,omitempty"`
	ClientName       string          `json:"cliente_nome,omitempty"`
	Document         string          `json:"cpf_cnpj,omitempty"`
	Description      string          `json:"descricao"`
	Amount           decimal.Decimal `json:"valor"`
	Competency       string          `json:"competencia"`
	CompetencyMonth  string          `json:"competencia_month"`
	ServiceCode      string          `json:"cod_servico"`
	TaxRate          decimal.Decimal `json:"aliquota"`
	MunicipalityIBGE string          `json:"municipio_ibge,omitempty"`
	Country          string          `json:"pais_prestacao,omitempty"`
	TaxWithheld      bool            `json:"iss_retido"`
	EmissionDate     string          `json:"dataEmissao,omitempty"`
	Status           string          `json:"status"`
	Seq              int             `json:"seq"`
	DuplicateGroupID string          `json:"duplicate_group_id,omitempty"`
	Errors           []string        `json:"erros,omitempty"`
	PreviewBatchID   string          `json:"preview_batch_id,omitempty"`
	PreviewIndex     int             `json:"preview_index,omitempty"`
	Source           string          `json:"origem,omitempty"`
	TaskID           string          `json:"task_id,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// DraftFromEntity converte a entidade para o DTO de resposta.
func DraftFromEntity(d *entity.Draft) DraftResponse {
	return DraftResponse{
		ID:               d.ID,
		EmitterID:        d.EmitterID,
		ClientID:         d.ClientID,
		ClientName:       d.ClientName,
		Document:         d.Document,
		Description:      d.Description,
		Amount:           d.Amount,
		Competency:       d.Competency,
		CompetencyMonth:  d.CompetencyMonth,
		ServiceCode:      d.ServiceCode,
		TaxRate:          d.TaxRate,
		MunicipalityIBGE: d.MunicipalityIBGE,
		Country:          d.Country,
		TaxWithheld:      d.TaxWithheld,
		EmissionDate:     d.EmissionDate,
		Status:           d.Status,
		Seq:              d.Seq,
		DuplicateGroupID: d.DuplicateGroupID,
		Errors:           d.Errors,
		PreviewBatchID:   d.PreviewBatchID,
		PreviewIndex:     d.PreviewIndex,
		Source:           d.Source,
		TaskID:           d.TaskID,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

// ReconcileRequest body do POST /api/notas/drafts/reconcile: dentro dos grupos
// informados (GroupIndices) mantém apenas KeepIndices, apagando o restante.
type ReconcileRequest struct {
	EmitterID      string `json:"emitterId"`
	PreviewBatchID string `json:"preview_batch_id"`
	KeepIndices    []int  `json:"keep_indices"`
	GroupIndices   []int  `json:"group_indices"`
}

// ReconcileResponse totais da reconciliação.
type ReconcileResponse struct {
	Message string `json:"msg"`
	Deleted int    `json:"deleted"`
	Updated int    `json:"updated"`
}

// ConfirmRequest body do POST /api/notas/confirmar-from-drafts.
type ConfirmRequest struct {
	EmitterID string   `json:"emitterId"`
	DraftIDs  []string `json:"draftIds"`
}

// ConfirmItemError erro individual de um rascunho durante a confirmação.
type ConfirmItemError struct {
	DraftID string `json:"draft_id"`
	Reason  string `json:"erro"`
}

// ConfirmResponse resultado da confirmação em lote. Falha parcial é esperada:
// TaskIDs e Errors podem vir ambos não vazios.
type ConfirmResponse struct {
	Message string             `json:"msg"`
	TaskIDs []string           `json:"task_ids"`
	Errors  []ConfirmItemError `json:"erros"`
}
