// Package spreadsheet lê planilhas XLSX e CSV de emissão/importação e devolve
// as linhas como mapas coluna canônica → valor bruto. Os cabeçalhos aceitam as
// variações usuais dos modelos em circulação ("CPF/CNPJ", "Descrição do
// serviço", "CTN (cód. do serviço)"): acentos, parênteses e caixa são
// normalizados antes do mapeamento.
package spreadsheet

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/notafacil/nfse-api/internal/application/staging"
)

var _ staging.TableReader = (*Reader)(nil)

// Reader implementação do porto TableReader para XLSX (excelize) e CSV.
type Reader struct{}

// NewReader constrói o leitor.
func NewReader() *Reader {
	return &Reader{}
}

// Read interpreta o conteúdo pelo sufixo do nome do arquivo: .csv como CSV,
// qualquer outro como XLSX. A primeira linha é o cabeçalho; linhas totalmente
// vazias são ignoradas, preservando a ordem das demais.
func (r *Reader) Read(filename string, content []byte) ([]map[string]string, error) {
	if strings.EqualFold(filepath.Ext(filename), ".csv") {
		return readCSV(content)
	}
	return readXLSX(content)
}

func readXLSX(content []byte) ([]map[string]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("abrir planilha: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("planilha sem abas")
	}
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("ler linhas: %w", err)
	}
	return mapRows(rows), nil
}

func readCSV(content []byte) ([]map[string]string, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.Comma = sniffDelimiter(content)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ler csv: %w", err)
		}
		rows = append(rows, record)
	}
	return mapRows(rows), nil
}

// sniffDelimiter escolhe entre vírgula e ponto-e-vírgula pelo cabeçalho; os
// modelos brasileiros costumam usar ponto-e-vírgula.
func sniffDelimiter(content []byte) rune {
	line := content
	if i := bytes.IndexByte(content, '\n'); i >= 0 {
		line = content[:i]
	}
	if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
		return ';'
	}
	return ','
}

// mapRows converte a matriz crua em mapas coluna canônica → valor, usando a
// primeira linha não vazia como cabeçalho.
func mapRows(rows [][]string) []map[string]string {
	var headers []string
	out := []map[string]string{}

	for _, row := range rows {
		if isRowEmpty(row) {
			continue
		}
		if headers == nil {
			headers = make([]string, len(row))
			for i, label := range row {
				headers[i] = CanonicalColumn(label)
			}
			continue
		}
		line := map[string]string{}
		for i, h := range headers {
			if h == "" {
				continue
			}
			if i < len(row) {
				line[h] = strings.TrimSpace(row[i])
			} else {
				line[h] = ""
			}
		}
		out = append(out, line)
	}
	return out
}

func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

var (
	parenRe = regexp.MustCompile(`\s*\(.*?\)\s*`)
	spaceRe = regexp.MustCompile(`\s+`)

	// foldTransformer remove os acentos: NFKD + descarte das marcas combinantes.
	foldTransformer = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

	columnAliases = map[string]string{
		"cpf cnpj": "cpf_cnpj", "cpf/cnpj": "cpf_cnpj", "cpf_cnpj": "cpf_cnpj",
		"valor": "valor", "valor 0.000,00": "valor",
		"descricao": "descricao", "descricao do servico": "descricao",
		"competencia": "competencia", "data de emissao": "competencia", "data emissao": "competencia",
		"ctn": "cod_servico", "ctn cod. do servico": "cod_servico",
		"cod servico": "cod_servico", "codigo de servico": "cod_servico", "cod_servico": "cod_servico",
		"aliquota": "aliquota", "aliquota 2% ou 0,02": "aliquota",
		"municipio ibge": "municipio_ibge", "codigo ibge": "municipio_ibge",
		"municipio": "municipio_ibge", "municipio_ibge": "municipio_ibge",
		"pais da prestacao": "pais_prestacao", "pais prestacao": "pais_prestacao",
		"pais_prestacao": "pais_prestacao",
		"iss retido": "iss_retido", "iss_retido": "iss_retido",
	}
)

// normalizeLabel tira acentos, baixa a caixa e colapsa espaços.
func normalizeLabel(label string) string {
	s := strings.TrimSpace(label)
	if folded, _, err := transform.String(foldTransformer, s); err == nil {
		s = folded
	}
	s = strings.ToLower(s)
	return spaceRe.ReplaceAllString(s, " ")
}

// CanonicalColumn mapeia o rótulo de cabeçalho para o nome canônico da coluna
// (cpf_cnpj, valor, descricao, competencia, cod_servico, aliquota,
// municipio_ibge, pais_prestacao, iss_retido). Rótulos desconhecidos voltam
// normalizados, sem parênteses.
func CanonicalColumn(label string) string {
	s := normalizeLabel(label)
	noParen := strings.TrimSpace(parenRe.ReplaceAllString(s, " "))
	noParen = spaceRe.ReplaceAllString(noParen, " ")

	candidates := []string{
		s,
		noParen,
		strings.ReplaceAll(noParen, "/", " "),
		strings.ReplaceAll(noParen, "/", ""),
	}
	for _, cand := range candidates {
		if canon, ok := columnAliases[cand]; ok {
			return canon
		}
	}

	switch {
	case strings.Contains(s, "cpf") && strings.Contains(s, "cnpj"):
		return "cpf_cnpj"
	case strings.Contains(s, "descricao"):
		return "descricao"
	case strings.Contains(s, "emissao") || strings.Contains(s, "competencia"):
		return "competencia"
	case strings.Contains(s, "ctn") || strings.Contains(s, "servico"):
		return "cod_servico"
	case strings.Contains(s, "aliquota"):
		return "aliquota"
	case strings.Contains(s, "ibge"):
		return "municipio_ibge"
	case strings.Contains(s, "pais"):
		return "pais_prestacao"
	case strings.Contains(s, "iss") && strings.Contains(s, "retido"):
		return "iss_retido"
	}
	return noParen
}
