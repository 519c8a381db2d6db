package repository

import "github.com/notafacil/nfse-api/internal/domain/entity"

// TaxRateRepository define o porto de persistência para TaxRate.
type TaxRateRepository interface {
	// Upsert cria ou substitui a alíquota do (emissor, ano, mês).
	Upsert(rate *entity.TaxRate) error
	// GetForMonth devolve a alíquota exata do mês; (nil, nil) se não houver.
	GetForMonth(emitterID string, year, month int) (*entity.TaxRate, error)
	// GetLatestUpTo devolve a alíquota mais recente com competência <= (ano, mês).
	GetLatestUpTo(emitterID string, year, month int) (*entity.TaxRate, error)
	// GetCurrent devolve a alíquota mais recente registrada do emissor.
	GetCurrent(emitterID string) (*entity.TaxRate, error)
	ListByEmitter(emitterID string) ([]*entity.TaxRate, error)
	Delete(id, userID string) error
}
