// Package fiscal reúne helpers de normalização de dados fiscais brasileiros:
// documentos (CPF/CNPJ), código de tributação nacional (CTN), competência e
// valores em formato brasileiro.
package fiscal

import (
	"fmt"
	"regexp"
)

// DocumentKind tipo de documento identificado.
type DocumentKind string

const (
	DocumentCPF  DocumentKind = "cpf"
	DocumentCNPJ DocumentKind = "cnpj"
)

var nonDigits = regexp.MustCompile(`\D`)

// SanitizeDocument remove tudo que não for dígito (pontuação de CPF/CNPJ).
func SanitizeDocument(value string) string {
	if value == "" {
		return value
	}
	return nonDigits.ReplaceAllString(value, "")
}

// IdentifyDocument sanitiza e classifica o documento pelo número de dígitos:
// 11 = CPF, 14 = CNPJ. Qualquer outro tamanho é inválido.
func IdentifyDocument(doc string) (DocumentKind, string, error) {
	d := SanitizeDocument(doc)
	switch len(d) {
	case 11:
		return DocumentCPF, d, nil
	case 14:
		return DocumentCNPJ, d, nil
	default:
		return "", "", fmt.Errorf("documento inválido: %q", doc)
	}
}
