package usecase

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/notafacil/nfse-api/internal/application/dto"
	"github.com/notafacil/nfse-api/internal/domain"
	"github.com/notafacil/nfse-api/internal/domain/entity"
	"github.com/notafacil/nfse-api/internal/domain/repository"
	"github.com/notafacil/nfse-api/pkg/fiscal"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// RateUseCase registro manual de alíquotas mensais por emissor. A prévia e o
// import de rascunhos resolvem a alíquota da competência por aqui.
type RateUseCase struct {
	rates    repository.TaxRateRepository
	emitters repository.EmitterRepository
}

// NewRateUseCase constrói o caso de uso de alíquotas.
func NewRateUseCase(rates repository.TaxRateRepository, emitters repository.EmitterRepository) *RateUseCase {
	return &RateUseCase{rates: rates, emitters: emitters}
}

// Upsert registra (ou substitui) a alíquota do (emissor, ano, mês). Aceita
// percentual ("11,62%" ou valores > 1) e fração ("0,1162"); normaliza para
// fração.
func (uc *RateUseCase) Upsert(userID string, in dto.TaxRateRequest) (*dto.TaxRateResponse, error) {
	if in.Year < 2000 || in.Month < 1 || in.Month > 12 {
		return nil, fmt.Errorf("%w: competência inválida (%d-%d)", domain.ErrInvalidInput, in.Year, in.Month)
	}
	emitter, err := uc.emitters.GetByID(in.EmitterID, userID)
	if err != nil {
		return nil, fmt.Errorf("buscando emissor: %w", err)
	}
	if emitter == nil {
		return nil, fmt.Errorf("emissor: %w", domain.ErrNotFound)
	}

	rate, ok := fiscal.ParseValor(in.Rate)
	if !ok || rate.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: alíquota inválida", domain.ErrInvalidInput)
	}
	// "11,62" ou "11,62%" é percentual; fração já vem abaixo de 1.
	if rate.GreaterThan(one) {
		rate = rate.Div(hundred)
	}

	now := time.Now().UTC()
	entry := &entity.TaxRate{
		ID:        uuid.NewString(),
		UserID:    userID,
		EmitterID: in.EmitterID,
		Year:      in.Year,
		Month:     in.Month,
		Rate:      rate,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.rates.Upsert(entry); err != nil {
		return nil, fmt.Errorf("gravando alíquota: %w", err)
	}
	resp := dto.TaxRateFromEntity(entry)
	return &resp, nil
}

// ListByEmitter lista as alíquotas registradas do emissor.
func (uc *RateUseCase) ListByEmitter(userID, emitterID string) ([]dto.TaxRateResponse, error) {
	emitter, err := uc.emitters.GetByID(emitterID, userID)
	if err != nil {
		return nil, fmt.Errorf("buscando emissor: %w", err)
	}
	if emitter == nil {
		return nil, fmt.Errorf("emissor: %w", domain.ErrNotFound)
	}
	list, err := uc.rates.ListByEmitter(emitterID)
	if err != nil {
		return nil, fmt.Errorf("listando alíquotas: %w", err)
	}
	out := make([]dto.TaxRateResponse, 0, len(list))
	for _, r := range list {
		out = append(out, dto.TaxRateFromEntity(r))
	}
	return out, nil
}

// Current devolve a alíquota mais recente do emissor ou ErrMissingTaxRate.
func (uc *RateUseCase) Current(userID, emitterID string) (*dto.TaxRateResponse, error) {
	emitter, err := uc.emitters.GetByID(emitterID, userID)
	if err != nil {
		return nil, fmt.Errorf("buscando emissor: %w", err)
	}
	if emitter == nil {
		return nil, fmt.Errorf("emissor: %w", domain.ErrNotFound)
	}
	r, err := uc.rates.GetCurrent(emitterID)
	if err != nil {
		return nil, fmt.Errorf("buscando alíquota: %w", err)
	}
	if r == nil {
		return nil, domain.ErrMissingTaxRate
	}
	resp := dto.TaxRateFromEntity(r)
	return &resp, nil
}

// Delete remove uma alíquota registrada.
func (uc *RateUseCase) Delete(userID, id string) error {
	return uc.rates.Delete(id, userID)
}
