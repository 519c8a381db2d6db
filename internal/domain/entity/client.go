package entity

import "time"

// Client tomador do serviço. Identificado por CPF ou CNPJ; um cliente especial
// "tomador não identificado" por emissor recebe as linhas sem documento.
type Client struct {
	ID               string
	UserID           string
	Name             string
	CPF              string // apenas dígitos, vazio se pessoa jurídica
	CNPJ             string // apenas dígitos, vazio se pessoa física
	Email            string
	Phone            string
	CEP              string
	Street           string
	Number           string
	Complement       string
	District         string
	City             string
	State            string
	MunicipalityIBGE string
	Unidentified     bool     // tomador não identificado (reservado, um por emissor)
	EmitterIDs       []string // emissores aos quais o cliente está vinculado
	Active           bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Document devolve o documento do cliente (CNPJ quando houver, senão CPF).
func (c *Client) Document() string {
	if c.CNPJ != "" {
		return c.CNPJ
	}
	return c.CPF
}
