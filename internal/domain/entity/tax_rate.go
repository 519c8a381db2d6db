package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaxRate alíquota efetiva do Simples Nacional de um emissor para um
// mês/ano de competência, registrada manualmente pelo usuário.
type TaxRate struct {
	ID        string
	UserID    string
	EmitterID string
	Year      int
	Month     int
	Rate      decimal.Decimal // fração, ex. 0.1162
	CreatedAt time.Time
	UpdatedAt time.Time
}
