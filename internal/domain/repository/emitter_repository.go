package repository

import "github.com/notafacil/nfse-api/internal/domain/entity"

// EmitterRepository define o porto de persistência para Emitter.
type EmitterRepository interface {
	Create(emitter *entity.Emitter) error
	// GetByID devolve (nil, nil) quando o emissor não existe ou não pertence ao usuário.
	GetByID(id, userID string) (*entity.Emitter, error)
	GetByCNPJ(cnpj, userID string) (*entity.Emitter, error)
	ListByUser(userID string) ([]*entity.Emitter, error)
	Update(emitter *entity.Emitter) error
	Delete(id, userID string) error
}
