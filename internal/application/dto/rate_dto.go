package dto

import (
	"github.com/shopspring/decimal"

	"github.com/notafacil/nfse-api/internal/domain/entity"
)

// TaxRateRequest body de registro de alíquota mensal.
type TaxRateRequest struct {
	EmitterID string `json:"emitter_id"`
	Year      int    `json:"ano"`
	Month     int    `json:"mes"`
	Rate      string `json:"aliquota"` // aceita "11,62%", "0,1162" ou "0.1162"
}

// TaxRateResponse alíquota nas respostas.
type TaxRateResponse struct {
	ID        string          `json:"id"`
	EmitterID string          `json:"emitter_id"`
	Year      int             `json:"ano"`
	Month     int             `json:"mes"`
	Rate      decimal.Decimal `json:"aliquota"`
}

// TaxRateFromEntity converte a entidade para o DTO de resposta.
func TaxRateFromEntity(r *entity.TaxRate) TaxRateResponse {
	return TaxRateResponse{
		ID:        r.ID,
		EmitterID: r.EmitterID,
		Year:      r.Year,
		Month:     r.Month,
		Rate:      r.Rate,
	}
}
