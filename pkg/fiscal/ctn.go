package fiscal

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultCTN código de tributação nacional usado quando o rascunho não informa um.
const DefaultCTN = "01.01.01"

var ctnDotted = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{1,2})$`)

// CanonicalCTN normaliza um código de serviço para o formato NN.NN.NN.
// Aceita "1.2.3", "010203", "10203" (5 dígitos ganham zero à esquerda) e
// rótulos como "01.02.03 - Descrição do serviço".
func CanonicalCTN(cod string) (string, error) {
	d, err := CTNDigits(cod)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s.%s.%s", d[0:2], d[2:4], d[4:6]), nil
}

// CTNDigits devolve o CTN como 6 dígitos contíguos (formato do XML da DPS).
func CTNDigits(cod string) (string, error) {
	s := strings.TrimSpace(cod)
	if s == "" {
		return "", fmt.Errorf("código de serviço vazio")
	}
	// Descarta a descrição quando o valor vem como "NN.NN.NN - Descrição"
	if i := strings.Index(s, " - "); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	if m := ctnDotted.FindStringSubmatch(s); m != nil {
		return pad2(m[1]) + pad2(m[2]) + pad2(m[3]), nil
	}
	digits := nonDigits.ReplaceAllString(s, "")
	if len(digits) == 5 {
		digits = "0" + digits
	}
	if len(digits) != 6 {
		return "", fmt.Errorf("código de serviço inválido: %q", cod)
	}
	return digits, nil
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}
