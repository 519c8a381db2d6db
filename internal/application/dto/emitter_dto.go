package dto

import (
	"time"

	"github.com/notafacil/nfse-api/internal/domain/entity"
)

// EmitterRequest body de criação/atualização de emissor.
type EmitterRequest struct {
	Name             string `json:"razao_social"`
	TradeName        string `json:"nome_fantasia,omitempty"`
	Document         string `json:"cpf_cnpj"`
	MunicipalityIBGE string `json:"codigo_ibge"`
	DPSSeries        string `json:"serie_dps,omitempty"`
}

// EmitterResponse emissor nas respostas.
type EmitterResponse struct {
	ID               string    `json:"id"`
	Name             string    `json:"razao_social"`
	TradeName        string    `json:"nome_fantasia,omitempty"`
	CNPJ             string    `json:"cnpj,omitempty"`
	CPF              string    `json:"cpf,omitempty"`
	MunicipalityIBGE string    `json:"codigo_ibge"`
	DPSSeries        string    `json:"serie_dps"`
	Active           bool      `json:"ativo"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// EmitterFromEntity converte a entidade para o DTO de resposta.
func EmitterFromEntity(e *entity.Emitter) EmitterResponse {
	return EmitterResponse{
		ID:               e.ID,
		Name:             e.Name,
		TradeName:        e.TradeName,
		CNPJ:             e.CNPJ,
		CPF:              e.CPF,
		MunicipalityIBGE: e.MunicipalityIBGE,
		DPSSeries:        e.DPSSeries,
		Active:           e.Active,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
}
