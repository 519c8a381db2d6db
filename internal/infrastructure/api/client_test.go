package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notafacil/nfse-api/internal/application/dto"
)

// ──────────────────────────────────────────────────────────────────────────────
// Tests Client — contra um servidor HTTP fake
// ──────────────────────────────────────────────────────────────────────────────

func TestListDrafts_EnviaTokenEQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		assert.Equal(t, "/api/notas/drafts", r.URL.Path)
		assert.Equal(t, "emit-1", r.URL.Query().Get("emitterId"))
		assert.Equal(t, "active", r.URL.Query().Get("status"))

		json.NewEncoder(w).Encode([]dto.DraftResponse{{ID: "d1"}, {ID: "d2"}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok-123")
	out, err := c.ListDrafts(context.Background(), "emit-1", "active")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "d1", out[0].ID)
}

func TestPreviewUpload_MultipartComCampos(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "emit-1", r.FormValue("emitterId"))
		assert.Equal(t, "true", r.FormValue("persist"))

		f, fh, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "notas.xlsx", fh.Filename)

		json.NewEncoder(w).Encode(dto.PreviewResponse{Valid: 3, PreviewBatchID: "batch-9"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	out, err := c.PreviewUpload(context.Background(), "emit-1", "notas.xlsx", []byte("conteudo"), true)
	require.NoError(t, err)
	assert.Equal(t, 3, out.Valid)
	assert.Equal(t, "batch-9", out.PreviewBatchID)
}

func TestSubmitImport_DevolveJobID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/clients/import", r.URL.Path)
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(dto.ImportSubmitResponse{JobID: "job-7"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	jobID, err := c.SubmitImport(context.Background(), "clientes.csv", []byte("cpf_cnpj,nome"))
	require.NoError(t, err)
	assert.Equal(t, "job-7", jobID)
}

func TestDo_ErroDaAPIViraMensagemLegivel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(dto.ErrorResponse{Code: "NOT_FOUND", Message: "rascunho não encontrado"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	err := c.DeleteDraft(context.Background(), "d-inexistente")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rascunho não encontrado")
	assert.Contains(t, err.Error(), "NOT_FOUND")
}

func TestDo_StatusSemEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	_, err := c.GetImportStatus(context.Background(), "job-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}
