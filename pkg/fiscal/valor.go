package fiscal

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseValor converte valores em formato brasileiro ("1.234,56", "2%",
// "1000.50") para decimal. Devolve (zero, false) para vazio ou inválido.
func ParseValor(v string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(v)
	if s == "" {
		return decimal.Zero, false
	}
	s = strings.ReplaceAll(s, "%", "")
	s = strings.ReplaceAll(s, " ", "")

	// "1.234,56" → ponto é separador de milhar, vírgula é decimal
	if strings.Count(s, ",") == 1 && strings.Count(s, ".") >= 1 {
		s = strings.ReplaceAll(s, ".", "")
	}
	s = strings.ReplaceAll(s, ",", ".")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
