package dto

import "github.com/shopspring/decimal"

// PreviewLine linha validada da prévia de emissão. Index é o número da linha
// como exibido na planilha (base 2, pulando o cabeçalho).
type PreviewLine struct {
	Index            int             `json:"index"`
	OK               bool            `json:"ok"`
	Errors           []string        `json:"erros"`
	ClientID         string          `json:"clienteId,omitempty"`
	ClientName       string          `json:"cliente_nome,omitempty"`
	Document         string          `json:"cpf_cnpj"`
	Description      string          `json:"descricao"`
	Amount           decimal.Decimal `json:"valor"`
	Competency       string          `json:"competencia"`      // YYYY-MM-DD
	CompetencyMonth  string          `json:"competencia_mes"`  // YYYY-MM
	ServiceCode      string          `json:"cod_servico"`
	TaxRate          decimal.Decimal `json:"aliquota"`
	MunicipalityIBGE string          `json:"municipio_ibge,omitempty"`
	Country          string          `json:"pais_prestacao,omitempty"`
	TaxWithheld      bool            `json:"iss_retido"`
	EmissionDate     string          `json:"dataEmissao,omitempty"`
}

// PreviewManualEntry entrada manual única (modal "emitir nota avulsa").
type PreviewManualEntry struct {
	Document         string `json:"cpf_cnpj"`
	ClientName       string `json:"cliente_nome,omitempty"`
	Description      string `json:"descricao"`
	Amount           string `json:"valor"`
	Competency       string `json:"competencia,omitempty"`
	ServiceCode      string `json:"cod_servico,omitempty"`
	MunicipalityIBGE string `json:"municipio_ibge,omitempty"`
	Country          string `json:"pais_prestacao,omitempty"`
	TaxWithheld      bool   `json:"iss_retido,omitempty"`
	EmissionDate     string `json:"dataEmissao,omitempty"`
}

// PreviewResponse resultado da prévia. PreviewBatchID identifica o lote para a
// reconciliação posterior.
type PreviewResponse struct {
	Lines          []PreviewLine `json:"linhas"`
	Valid          int           `json:"validas"`
	Invalid        int           `json:"invalidas"`
	PreviewBatchID string        `json:"preview_batch_id"`
}

// DuplicateGroupDTO grupo de linhas duplicadas devolvido junto da prévia.
type DuplicateGroupDTO struct {
	Key     string `json:"key"` // cliente|mês|emissor
	Indices []int  `json:"indices"`
}
