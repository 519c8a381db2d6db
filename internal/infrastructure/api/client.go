// Package api implementa o session.Client sobre HTTP: é o consumidor da
// própria API usado pelo CLI (nfsectl) e por qualquer frontend Go.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/notafacil/nfse-api/internal/application/dto"
	"github.com/notafacil/nfse-api/internal/session"
)

var _ session.Client = (*Client)(nil)

// Client cliente HTTP autenticado da API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient constrói o cliente apontando para baseURL (ex.:
// http://localhost:3000) com o Bearer token informado.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// do executa a requisição, injeta o token e decodifica a resposta em out.
// Em status não-2xx tenta decodificar o envelope de erro da API.
func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("api: montando requisição: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr dto.ErrorResponse
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("api: %s %s: %s (%s)", method, path, apiErr.Message, apiErr.Code)
		}
		return fmt.Errorf("api: %s %s: status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("api: decodificando resposta de %s: %w", path, err)
	}
	return nil
}

// postJSON serializa payload e faz POST em path.
func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("api: serializando payload: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, "application/json", bytes.NewReader(raw), out)
}

// postMultipart envia um arquivo (campo file) mais os campos extras do form.
func (c *Client) postMultipart(ctx context.Context, path, filename string, content []byte, fields map[string]string, out any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return fmt.Errorf("api: montando form: %w", err)
		}
	}
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("api: montando form: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return fmt.Errorf("api: montando form: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("api: montando form: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, w.FormDataContentType(), &buf, out)
}

// Login autentica e devolve o token JWT. Fora da superfície session.Client:
// o CLI usa para obter o token antes de montar o cliente autenticado.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var out dto.AuthResponse
	if err := c.postJSON(ctx, "/api/auth/login", dto.LoginRequest{Email: email, Password: password}, &out); err != nil {
		return "", err
	}
	return out.Token, nil
}

// ListDrafts lista os rascunhos do emissor.
func (c *Client) ListDrafts(ctx context.Context, emitterID, status string) ([]dto.DraftResponse, error) {
	q := url.Values{}
	q.Set("emitterId", emitterID)
	if status != "" {
		q.Set("status", status)
	}
	var out []dto.DraftResponse
	if err := c.do(ctx, http.MethodGet, "/api/notas/drafts?"+q.Encode(), "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PreviewUpload envia a planilha para a prévia; com persist=true as linhas
// resolvidas viram rascunhos.
func (c *Client) PreviewUpload(ctx context.Context, emitterID, filename string, content []byte, persist bool) (*dto.PreviewResponse, error) {
	fields := map[string]string{"emitterId": emitterID}
	if persist {
		fields["persist"] = "true"
	}
	var out dto.PreviewResponse
	if err := c.postMultipart(ctx, "/api/notas/preview", filename, content, fields, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ImportDrafts importa rascunhos em lote.
func (c *Client) ImportDrafts(ctx context.Context, req dto.DraftImportRequest) (*dto.DraftImportResponse, error) {
	var out dto.DraftImportResponse
	if err := c.postJSON(ctx, "/api/notas/drafts/import", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Reconcile aplica a decisão de reconciliação de duplicados.
func (c *Client) Reconcile(ctx context.Context, req dto.ReconcileRequest) (*dto.ReconcileResponse, error) {
	var out dto.ReconcileResponse
	if err := c.postJSON(ctx, "/api/notas/drafts/reconcile", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ConfirmFromDrafts confirma os rascunhos selecionados para emissão.
func (c *Client) ConfirmFromDrafts(ctx context.Context, req dto.ConfirmRequest) (*dto.ConfirmResponse, error) {
	var out dto.ConfirmResponse
	if err := c.postJSON(ctx, "/api/notas/confirmar-from-drafts", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteDraft remove um rascunho.
func (c *Client) DeleteDraft(ctx context.Context, draftID string) error {
	return c.do(ctx, http.MethodDelete, "/api/notas/drafts/"+url.PathEscape(draftID), "", nil, nil)
}

// SubmitImport envia a planilha de clientes e devolve o job_id do job
// assíncrono de importação.
func (c *Client) SubmitImport(ctx context.Context, filename string, content []byte) (string, error) {
	var out dto.ImportSubmitResponse
	if err := c.postMultipart(ctx, "/api/clients/import", filename, content, nil, &out); err != nil {
		return "", err
	}
	return out.JobID, nil
}

// GetImportStatus consulta o progresso de um job de importação.
func (c *Client) GetImportStatus(ctx context.Context, jobID string) (*dto.ImportStatusResponse, error) {
	var out dto.ImportStatusResponse
	if err := c.do(ctx, http.MethodGet, "/api/clients/import/status/"+url.PathEscape(jobID), "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
