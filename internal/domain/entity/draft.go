package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Status de rascunho de emissão.
const (
	DraftStatusActive    = "active"    // pronto para edição/confirmação
	DraftStatusInvalid   = "invalid"   // importado com erros de validação
	DraftStatusConfirmed = "confirmed" // consumido por uma task de emissão
	DraftStatusDiscarded = "discarded" // descartado na reconciliação ou manualmente
)

// Origem do rascunho.
const (
	DraftSourceSpreadsheet = "spreadsheet"
	DraftSourceManual      = "manual"
)

// Draft rascunho de NFS-e aguardando confirmação. Rascunhos do mesmo
// (emissor, cliente, mês de competência) formam um grupo de duplicidade com
// numeração sequencial (Seq) dentro do grupo.
type Draft struct {
	ID               string
	UserID           string
	EmitterID        string
	ClientID         string // vazio quando o tomador não foi resolvido
	Document         string // CPF/CNPJ informado na origem, apenas dígitos
	ClientName       string
	Description      string
	Amount           decimal.Decimal
	Competency       string // YYYY-MM-DD
	CompetencyMonth  string // YYYY-MM
	ServiceCode      string // CTN canônico NN.NN.NN
	TaxRate          decimal.Decimal
	MunicipalityIBGE string
	Country          string
	TaxWithheld      bool
	EmissionDate     string // ISO com offset, ex. 2025-11-10T00:00:00-03:00
	Status           string
	Seq              int
	DuplicateGroupID string
	UniqKey          string
	Errors           []string
	PreviewBatchID   string // lote de preview que originou a linha
	PreviewIndex     int    // índice da linha na planilha (base 2, como exibido)
	Source           string // spreadsheet | manual
	TaskID           string // task de emissão gerada na confirmação
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// GroupKey chave do grupo de duplicidade: emissor + cliente + mês.
func (d *Draft) GroupKey() string {
	return fmt.Sprintf("%s:%s:%s", d.EmitterID, d.ClientID, d.CompetencyMonth)
}

// Editable indica se o rascunho ainda aceita alterações.
func (d *Draft) Editable() bool {
	return d.Status == DraftStatusActive
}
