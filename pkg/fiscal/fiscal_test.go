package fiscal_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notafacil/nfse-api/pkg/fiscal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Documentos (CPF/CNPJ)
// ──────────────────────────────────────────────────────────────────────────────

func TestSanitizeDocument_RemovePontuacao(t *testing.T) {
	assert.Equal(t, "12345678901", fiscal.SanitizeDocument("123.456.789-01"))
	assert.Equal(t, "12345678000195", fiscal.SanitizeDocument("12.345.678/0001-95"))
	assert.Equal(t, "", fiscal.SanitizeDocument(""))
}

func TestIdentifyDocument_CPF(t *testing.T) {
	kind, digits, err := fiscal.IdentifyDocument("123.456.789-01")
	require.NoError(t, err)
	assert.Equal(t, fiscal.DocumentCPF, kind, "11 dígitos deve classificar como CPF")
	assert.Equal(t, "12345678901", digits)
}

func TestIdentifyDocument_CNPJ(t *testing.T) {
	kind, digits, err := fiscal.IdentifyDocument("12.345.678/0001-95")
	require.NoError(t, err)
	assert.Equal(t, fiscal.DocumentCNPJ, kind, "14 dígitos deve classificar como CNPJ")
	assert.Equal(t, "12345678000195", digits)
}

func TestIdentifyDocument_TamanhoInvalido(t *testing.T) {
	_, _, err := fiscal.IdentifyDocument("12345")
	assert.Error(t, err, "documento com tamanho diferente de 11/14 deve falhar")

	_, _, err = fiscal.IdentifyDocument("")
	assert.Error(t, err)
}

// ──────────────────────────────────────────────────────────────────────────────
// CTN (código de tributação nacional)
// ──────────────────────────────────────────────────────────────────────────────

func TestCanonicalCTN_FormatosAceitos(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"1.2.3", "01.02.03"},
		{"01.01.01", "01.01.01"},
		{"010203", "01.02.03"},
		{"10203", "01.02.03"}, // 5 dígitos ganham zero à esquerda
		{"01.02.03 - Análise e desenvolvimento de sistemas", "01.02.03"},
	}
	for _, c := range cases {
		got, err := fiscal.CanonicalCTN(c.in)
		require.NoError(t, err, "entrada %q deveria ser aceita", c.in)
		assert.Equal(t, c.want, got, "entrada %q", c.in)
	}
}

func TestCTNDigits_SeisDigitos(t *testing.T) {
	d, err := fiscal.CTNDigits("1.2.3")
	require.NoError(t, err)
	assert.Equal(t, "010203", d)
}

func TestCanonicalCTN_Invalido(t *testing.T) {
	for _, in := range []string{"", "abc", "1234567", "12"} {
		_, err := fiscal.CanonicalCTN(in)
		assert.Error(t, err, "entrada %q deveria ser rejeitada", in)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Competência
// ──────────────────────────────────────────────────────────────────────────────

func TestNormalizeCompetencia_ISOComHora(t *testing.T) {
	c, ok := fiscal.NormalizeCompetencia("2025-11-10T00:00:00-03:00", false)
	require.True(t, ok)
	assert.Equal(t, "2025-11-10", c.Full)
	assert.Equal(t, "2025-11", c.Month)
}

func TestNormalizeCompetencia_FormatoBrasileiro(t *testing.T) {
	c, ok := fiscal.NormalizeCompetencia("10/11/2025", false)
	require.True(t, ok)
	assert.Equal(t, "2025-11-10", c.Full, "DD/MM/YYYY deve virar YYYY-MM-DD")
	assert.Equal(t, "2025-11", c.Month)
}

func TestNormalizeCompetencia_FallbackMesAtual(t *testing.T) {
	c, ok := fiscal.NormalizeCompetencia("", true)
	require.True(t, ok)

	now := time.Now().UTC()
	assert.Equal(t, now.Format("2006-01")+"-01", c.Full,
		"fallback deve ser o primeiro dia do mês atual")
	assert.Equal(t, now.Format("2006-01"), c.Month)
}

func TestNormalizeCompetencia_InvalidoSemFallback(t *testing.T) {
	_, ok := fiscal.NormalizeCompetencia("não-é-data", false)
	assert.False(t, ok)

	_, ok = fiscal.NormalizeCompetencia("", false)
	assert.False(t, ok)
}

func TestCompetenciaMonth(t *testing.T) {
	assert.Equal(t, "2025-11", fiscal.CompetenciaMonth("2025-11-10"))
	assert.Equal(t, "2025-11", fiscal.CompetenciaMonth("2025-11"))
	assert.Equal(t, "", fiscal.CompetenciaMonth("11/2025"))
	assert.Equal(t, "", fiscal.CompetenciaMonth(""))
}

// ──────────────────────────────────────────────────────────────────────────────
// Valores em formato brasileiro
// ──────────────────────────────────────────────────────────────────────────────

func TestParseValor_FormatoBrasileiro(t *testing.T) {
	v, ok := fiscal.ParseValor("1.234,56")
	require.True(t, ok)
	assert.True(t, v.Equal(decimal.RequireFromString("1234.56")),
		"separador de milhar brasileiro deve ser descartado")
}

func TestParseValor_VirgulaDecimal(t *testing.T) {
	v, ok := fiscal.ParseValor("150,00")
	require.True(t, ok)
	assert.True(t, v.Equal(decimal.NewFromInt(150)))
}

func TestParseValor_PercentualEPonto(t *testing.T) {
	v, ok := fiscal.ParseValor("2%")
	require.True(t, ok)
	assert.True(t, v.Equal(decimal.NewFromInt(2)))

	v, ok = fiscal.ParseValor("1000.50")
	require.True(t, ok)
	assert.True(t, v.Equal(decimal.RequireFromString("1000.50")))
}

func TestParseValor_Invalido(t *testing.T) {
	_, ok := fiscal.ParseValor("")
	assert.False(t, ok)

	_, ok = fiscal.ParseValor("abc")
	assert.False(t, ok)
}
