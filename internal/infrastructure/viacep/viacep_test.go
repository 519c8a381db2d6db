package viacep_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notafacil/nfse-api/internal/infrastructure/viacep"
)

func TestLookup_CEPEncontrado(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/01001000/json/", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"cep":"01001-000","logradouro":"Praça da Sé","bairro":"Sé",
			"localidade":"São Paulo","uf":"SP","ibge":"3550308"}`))
	}))
	defer srv.Close()

	addr, err := viacep.NewClient(srv.URL).Lookup(context.Background(), "01001000")
	require.NoError(t, err)
	require.NotNil(t, addr)
	assert.Equal(t, "Praça da Sé", addr.Street)
	assert.Equal(t, "Sé", addr.District)
	assert.Equal(t, "São Paulo", addr.City)
	assert.Equal(t, "SP", addr.State)
	assert.Equal(t, "3550308", addr.MunicipalityIBGE)
}

func TestLookup_CEPInexistenteDevolveNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"erro": true}`))
	}))
	defer srv.Close()

	addr, err := viacep.NewClient(srv.URL).Lookup(context.Background(), "99999999")
	require.NoError(t, err)
	assert.Nil(t, addr)
}

func TestLookup_FalhaDeServidor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "indisponível", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := viacep.NewClient(srv.URL).Lookup(context.Background(), "01001000")
	assert.Error(t, err)
}

func TestLookup_CEPMalFormado(t *testing.T) {
	_, err := viacep.NewClient("").Lookup(context.Background(), "123")
	assert.Error(t, err)
}
