package imports

import "context"

// Address dados de endereço resolvidos a partir do CEP.
type Address struct {
	Street           string
	District         string
	City             string
	State            string
	MunicipalityIBGE string
}

// AddressLookup porto de consulta de endereço por CEP (8 dígitos). Devolve
// (nil, nil) quando o CEP não é encontrado; erro só para falha de consulta.
type AddressLookup interface {
	Lookup(ctx context.Context, cep string) (*Address, error)
}
