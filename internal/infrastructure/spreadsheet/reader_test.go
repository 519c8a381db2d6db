package spreadsheet_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/notafacil/nfse-api/internal/infrastructure/spreadsheet"
)

// ──────────────────────────────────────────────────────────────────────────────
// Canonicalização de cabeçalhos
// ──────────────────────────────────────────────────────────────────────────────

func TestCanonicalColumn(t *testing.T) {
	cases := []struct {
		label string
		want  string
	}{
		{"CPF/CNPJ", "cpf_cnpj"},
		{"cpf cnpj", "cpf_cnpj"},
		{"Valor (0.000,00)", "valor"},
		{"Descrição do Serviço", "descricao"},
		{"DESCRIÇÃO", "descricao"},
		{"Competência", "competencia"},
		{"Data de Emissão", "competencia"},
		{"CTN (cód. do serviço)", "cod_servico"},
		{"Código de Serviço", "cod_servico"},
		{"Alíquota (2% ou 0,02)", "aliquota"},
		{"Município (IBGE)", "municipio_ibge"},
		{"País da Prestação", "pais_prestacao"},
		{"ISS Retido", "iss_retido"},
		{"Coluna Inventada (abc)", "coluna inventada"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, spreadsheet.CanonicalColumn(tc.label), "rótulo %q", tc.label)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Leitura CSV e XLSX
// ──────────────────────────────────────────────────────────────────────────────

func TestRead_CSVComPontoEVirgula(t *testing.T) {
	content := []byte("CPF/CNPJ;Valor;Descrição;Competência\n" +
		"111.111.111-11;1.500,00;Consultoria;2025-11-10\n" +
		";;;\n" +
		"222;100,00;Aula;2025-11-12\n")

	rows, err := spreadsheet.NewReader().Read("notas.csv", content)
	require.NoError(t, err)

	require.Len(t, rows, 2, "linha totalmente vazia é ignorada")
	assert.Equal(t, "111.111.111-11", rows[0]["cpf_cnpj"])
	assert.Equal(t, "1.500,00", rows[0]["valor"])
	assert.Equal(t, "Consultoria", rows[0]["descricao"])
	assert.Equal(t, "2025-11-10", rows[0]["competencia"])
	assert.Equal(t, "Aula", rows[1]["descricao"])
}

func TestRead_CSVComVirgula(t *testing.T) {
	content := []byte("cpf_cnpj,valor,descricao\n111,\"1500\",Serviço\n")

	rows, err := spreadsheet.NewReader().Read("notas.csv", content)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "1500", rows[0]["valor"])
}

func TestRead_XLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]string{"CPF/CNPJ", "Valor", "Descrição do Serviço", "Competência"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]string{"111.111.111-11", "1.500,00", "Consultoria", "2025-11-10"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]string{"", "100,00", "Sem documento", "2025-11-12"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	rows, err := spreadsheet.NewReader().Read("notas.xlsx", buf.Bytes())
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, "111.111.111-11", rows[0]["cpf_cnpj"])
	assert.Equal(t, "Consultoria", rows[0]["descricao"])
	assert.Equal(t, "", rows[1]["cpf_cnpj"], "documento vazio vem como string vazia, não omitido")
}

// Linha mais curta que o cabeçalho não perde as colunas finais.
func TestRead_LinhaCurta(t *testing.T) {
	content := []byte("cpf_cnpj;valor;descricao\n111;50,00\n")

	rows, err := spreadsheet.NewReader().Read("notas.csv", content)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "", rows[0]["descricao"])
}
