package entity

import "time"

// Emitter prestador de serviço em nome de quem as NFS-e são emitidas.
type Emitter struct {
	ID               string
	UserID           string
	Name             string
	TradeName        string
	CNPJ             string // apenas dígitos
	CPF              string // apenas dígitos (MEI pessoa física)
	MunicipalityIBGE string // código IBGE de 7 dígitos do local de emissão
	DPSSeries        string // série padrão da DPS (5 dígitos com zeros à esquerda)
	Active           bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Document devolve o documento do emissor (CNPJ quando houver, senão CPF).
func (e *Emitter) Document() string {
	if e.CNPJ != "" {
		return e.CNPJ
	}
	return e.CPF
}
