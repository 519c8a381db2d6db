// Package viacep adaptador de consulta de endereço por CEP contra a API
// pública do ViaCEP (https://viacep.com.br).
package viacep

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/notafacil/nfse-api/internal/application/imports"
)

var _ imports.AddressLookup = (*Client)(nil)

const defaultBaseURL = "https://viacep.com.br/ws"

// Client implementação de AddressLookup sobre a API do ViaCEP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constrói o adaptador. baseURL vazio usa a API pública.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		// Timeout de rede; o caso de uso ainda impõe um context.WithTimeout por consulta.
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// viacepResponse corpo de resposta da API. CEP inexistente vem com {"erro": true}.
type viacepResponse struct {
	Logradouro string `json:"logradouro"`
	Bairro     string `json:"bairro"`
	Localidade string `json:"localidade"`
	UF         string `json:"uf"`
	IBGE       string `json:"ibge"`
	Erro       bool   `json:"erro"`
}

// Lookup consulta o CEP (8 dígitos). Devolve (nil, nil) quando o CEP não
// existe; erro apenas para falha de comunicação ou resposta inválida.
func (c *Client) Lookup(ctx context.Context, cep string) (*imports.Address, error) {
	if len(cep) != 8 {
		return nil, fmt.Errorf("viacep: cep deve ter 8 dígitos, veio %q", cep)
	}

	url := fmt.Sprintf("%s/%s/json/", c.baseURL, cep)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("viacep: montando requisição: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("viacep: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("viacep: status %d: %s", resp.StatusCode, body)
	}

	var out viacepResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("viacep: resposta inválida: %w", err)
	}
	if out.Erro {
		return nil, nil
	}

	return &imports.Address{
		Street:           out.Logradouro,
		District:         out.Bairro,
		City:             out.Localidade,
		State:            out.UF,
		MunicipalityIBGE: out.IBGE,
	}, nil
}
