package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status de task de emissão.
const (
	TaskStatusPending       = "pending"          // criada, aguardando o motor de transmissão
	TaskStatusAccepted      = "accepted"         // aceita pela SEFIN nacional
	TaskStatusError         = "error"            // rejeitada ou falha na transmissão
	TaskStatusCancelRequest = "cancel_requested" // cancelamento solicitado pelo usuário
	TaskStatusCanceled      = "canceled"         // cancelamento confirmado
)

// DPS identificação da declaração de prestação de serviço reservada para a task.
type DPS struct {
	Series string // 5 dígitos com zeros à esquerda
	Number int64
}

// Task solicitação de emissão de NFS-e. É um snapshot imutável do rascunho no
// momento da confirmação; o rascunho de origem passa a DraftStatusConfirmed.
type Task struct {
	ID          string
	UserID      string
	EmitterID   string
	ClientID    string
	DraftID     string
	Description string
	Amount      decimal.Decimal
	Competency  string // YYYY-MM-DD
	ServiceCode string
	TaxRate     decimal.Decimal
	DPS         DPS
	Status      string
	InvoiceNum  string // número da NFS-e quando aceita
	Message     string // último retorno do motor de transmissão
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Terminal indica se a task não muda mais de estado.
func (t *Task) Terminal() bool {
	return t.Status == TaskStatusAccepted || t.Status == TaskStatusError || t.Status == TaskStatusCanceled
}
