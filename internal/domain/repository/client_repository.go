package repository

import "github.com/notafacil/nfse-api/internal/domain/entity"

// ClientFilter filtros de listagem de clientes.
type ClientFilter struct {
	EmitterID  string
	Search     string // nome ou documento, busca parcial
	OnlyActive bool
	Limit      int
	Offset     int
}

// ClientRepository define o porto de persistência para Client.
type ClientRepository interface {
	Create(client *entity.Client) error
	GetByID(id, userID string) (*entity.Client, error)
	// GetByDocument busca por CPF (11 dígitos) ou CNPJ (14 dígitos) já sanitizado.
	// Devolve (nil, nil) quando não há cliente ativo com o documento.
	GetByDocument(digits, userID string) (*entity.Client, error)
	// GetUnidentified devolve o tomador não identificado vinculado ao emissor, se houver.
	GetUnidentified(emitterID, userID string) (*entity.Client, error)
	List(userID string, filter ClientFilter) ([]*entity.Client, error)
	Count(userID string, filter ClientFilter) (int, error)
	Update(client *entity.Client) error
	// SetActive ativa/desativa (soft delete) o cliente.
	SetActive(id, userID string, active bool) error
}
