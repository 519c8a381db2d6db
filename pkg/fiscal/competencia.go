package fiscal

import (
	"strings"
	"time"
)

// Competencia par normalizado de competência: data completa e mês.
type Competencia struct {
	Full  string // YYYY-MM-DD
	Month string // YYYY-MM
}

// NormalizeCompetencia converte uma string de data em (YYYY-MM-DD, YYYY-MM).
// Aceita ISO com hora (corta no "T"), YYYY-MM-DD e DD/MM/YYYY. Se o valor for
// vazio ou inválido e fallbackToday for true, usa o primeiro dia do mês atual.
func NormalizeCompetencia(raw string, fallbackToday bool) (Competencia, bool) {
	s := strings.TrimSpace(raw)

	if s != "" {
		if i := strings.Index(s, "T"); i > 0 && len(s) > 10 {
			s = s[:i]
		}
		for _, layout := range []string{"2006-01-02", "02/01/2006"} {
			if dt, err := time.Parse(layout, s); err == nil {
				return Competencia{
					Full:  dt.Format("2006-01-02"),
					Month: dt.Format("2006-01"),
				}, true
			}
		}
	}

	if fallbackToday {
		now := time.Now().UTC()
		return Competencia{
			Full:  now.Format("2006-01") + "-01",
			Month: now.Format("2006-01"),
		}, true
	}

	return Competencia{}, false
}

// CompetenciaMonth extrai o prefixo YYYY-MM de uma competência já normalizada.
// Devolve "" se a string não começar com YYYY-MM.
func CompetenciaMonth(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 7 {
		return ""
	}
	if _, err := time.Parse("2006-01", s[:7]); err != nil {
		return ""
	}
	return s[:7]
}
