package dto

import (
	"time"

	"github.com/notafacil/nfse-api/internal/domain/entity"
)

// ClientRequest body de criação/atualização de cliente.
type ClientRequest struct {
	Name             string   `json:"nome"`
	Document         string   `json:"cpf_cnpj"` // com ou sem pontuação
	Email            string   `json:"email,omitempty"`
	Phone            string   `json:"telefone,omitempty"`
	CEP              string   `json:"cep,omitempty"`
	Street           string   `json:"logradouro,omitempty"`
	Number           string   `json:"numero,omitempty"`
	Complement       string   `json:"complemento,omitempty"`
	District         string   `json:"bairro,omitempty"`
	City             string   `json:"cidade,omitempty"`
	State            string   `json:"uf,omitempty"`
	MunicipalityIBGE string   `json:"codigo_ibge,omitempty"`
	EmitterIDs       []string `json:"emissores_ids,omitempty"`
}

// ClientResponse cliente nas respostas.
type ClientResponse struct {
	ID               string    `json:"id"`
	Name             string    `json:"nome"`
	CPF              string    `json:"cpf,omitempty"`
	CNPJ             string    `json:"cnpj,omitempty"`
	Email            string    `json:"email,omitempty"`
	Phone            string    `json:"telefone,omitempty"`
	CEP              string    `json:"cep,omitempty"`
	Street           string    `json:"logradouro,omitempty"`
	Number           string    `json:"numero,omitempty"`
	Complement       string    `json:"complemento,omitempty"`
	District         string    `json:"bairro,omitempty"`
	City             string    `json:"cidade,omitempty"`
	State            string    `json:"uf,omitempty"`
	MunicipalityIBGE string    `json:"codigo_ibge,omitempty"`
	Unidentified     bool      `json:"nao_identificado,omitempty"`
	EmitterIDs       []string  `json:"emissores_ids,omitempty"`
	Active           bool      `json:"ativo"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ClientFromEntity converte a entidade para o DTO de resposta.
func ClientFromEntity(c *entity.Client) ClientResponse {
	return ClientResponse{
		ID:               c.ID,
		Name:             c.Name,
		CPF:              c.CPF,
		CNPJ:             c.CNPJ,
		Email:            c.Email,
		Phone:            c.Phone,
		CEP:              c.CEP,
		Street:           c.Street,
		Number:           c.Number,
		Complement:       c.Complement,
		District:         c.District,
		City:             c.City,
		State:            c.State,
		MunicipalityIBGE: c.MunicipalityIBGE,
		Unidentified:     c.Unidentified,
		EmitterIDs:       c.EmitterIDs,
		Active:           c.Active,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
}

// ClientStatsResponse contagem de clientes do usuário.
type ClientStatsResponse struct {
	Total    int `json:"total"`
	Active   int `json:"ativos"`
	Inactive int `json:"inativos"`
}
