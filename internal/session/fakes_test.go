package session_test

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/notafacil/nfse-api/internal/application/dto"
	"github.com/notafacil/nfse-api/pkg/logger"
)

const testEmitter = "emitter-1"

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Env: "production", Level: "error"})
}

func draftRow(id, clientID, month string, seq int) dto.DraftResponse {
	return dto.DraftResponse{
		ID:              id,
		EmitterID:       testEmitter,
		ClientID:        clientID,
		Description:     "Serviço",
		Amount:          decimal.NewFromInt(100),
		Competency:      month + "-01",
		CompetencyMonth: month,
		ServiceCode:     "01.01.01",
		Status:          "active",
		Seq:             seq,
	}
}

func previewLine(index int, clientID, month string) dto.PreviewLine {
	return dto.PreviewLine{
		Index:           index,
		OK:              true,
		ClientID:        clientID,
		Description:     "Serviço",
		Amount:          decimal.NewFromInt(100),
		Competency:      month + "-01",
		CompetencyMonth: month,
	}
}

// fakeAPI implementação em memória da superfície da API. Cada método pode ser
// sobrescrito por função; sem override os dados vêm do mapa drafts.
type fakeAPI struct {
	mu     sync.Mutex
	drafts map[string][]dto.DraftResponse

	listFn    func(emitterID, status string) ([]dto.DraftResponse, error)
	previewFn func(emitterID, filename string) (*dto.PreviewResponse, error)
	importFn  func(req dto.DraftImportRequest) (*dto.DraftImportResponse, error)
	statusFn  func(jobID string) (*dto.ImportStatusResponse, error)

	listCalls      int
	importRequests []dto.DraftImportRequest
	confirmReqs    []dto.ConfirmRequest
	reconcileReqs  []dto.ReconcileRequest
	deleted        []string
}

func newFakeAPI(rows ...dto.DraftResponse) *fakeAPI {
	return &fakeAPI{drafts: map[string][]dto.DraftResponse{testEmitter: rows}}
}

func (f *fakeAPI) setDrafts(emitterID string, rows ...dto.DraftResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drafts[emitterID] = rows
}

func (f *fakeAPI) ListDrafts(_ context.Context, emitterID, status string) ([]dto.DraftResponse, error) {
	f.mu.Lock()
	f.listCalls++
	fn := f.listFn
	rows := append([]dto.DraftResponse(nil), f.drafts[emitterID]...)
	f.mu.Unlock()
	if fn != nil {
		return fn(emitterID, status)
	}
	return rows, nil
}

func (f *fakeAPI) PreviewUpload(_ context.Context, emitterID, filename string, _ []byte, _ bool) (*dto.PreviewResponse, error) {
	if f.previewFn != nil {
		return f.previewFn(emitterID, filename)
	}
	return &dto.PreviewResponse{PreviewBatchID: "batch-1"}, nil
}

func (f *fakeAPI) ImportDrafts(_ context.Context, req dto.DraftImportRequest) (*dto.DraftImportResponse, error) {
	f.mu.Lock()
	f.importRequests = append(f.importRequests, req)
	f.mu.Unlock()
	if f.importFn != nil {
		return f.importFn(req)
	}
	return &dto.DraftImportResponse{Message: "1 rascunho criado", Created: 1, DraftIDs: []string{"novo"}}, nil
}

func (f *fakeAPI) Reconcile(_ context.Context, req dto.ReconcileRequest) (*dto.ReconcileResponse, error) {
	f.mu.Lock()
	f.reconcileReqs = append(f.reconcileReqs, req)
	f.mu.Unlock()
	return &dto.ReconcileResponse{Message: "Reconciliação aplicada", Deleted: 1, Updated: 1}, nil
}

func (f *fakeAPI) ConfirmFromDrafts(_ context.Context, req dto.ConfirmRequest) (*dto.ConfirmResponse, error) {
	f.mu.Lock()
	f.confirmReqs = append(f.confirmReqs, req)
	f.mu.Unlock()
	n := len(req.DraftIDs)
	msg := "1 solicitação criada com sucesso"
	if n != 1 {
		msg = "solicitações criadas com sucesso"
	}
	return &dto.ConfirmResponse{Message: msg, TaskIDs: make([]string, n)}, nil
}

func (f *fakeAPI) DeleteDraft(_ context.Context, draftID string) error {
	f.mu.Lock()
	f.deleted = append(f.deleted, draftID)
	f.mu.Unlock()
	return nil
}

func (f *fakeAPI) SubmitImport(_ context.Context, _ string, _ []byte) (string, error) {
	return "job-1", nil
}

func (f *fakeAPI) GetImportStatus(_ context.Context, jobID string) (*dto.ImportStatusResponse, error) {
	if f.statusFn != nil {
		return f.statusFn(jobID)
	}
	return &dto.ImportStatusResponse{JobID: jobID, Status: "running"}, nil
}

// fakeNotifier acumula as notificações emitidas.
type fakeNotifier struct {
	mu       sync.Mutex
	successs []string
	errors   []string
	infos    []string
}

func (n *fakeNotifier) Success(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.successs = append(n.successs, msg)
}

func (n *fakeNotifier) Error(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, msg)
}

func (n *fakeNotifier) Info(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.infos = append(n.infos, msg)
}

func (n *fakeNotifier) counts() (success, errs, infos int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.successs), len(n.errors), len(n.infos)
}

// fakeConfirmer responde sempre answer e guarda a pergunta feita.
type fakeConfirmer struct {
	answer    bool
	questions []string
}

func (c *fakeConfirmer) Confirm(_ context.Context, question string) bool {
	c.questions = append(c.questions, question)
	return c.answer
}

// fakeHandleStore HandleStore em memória.
type fakeHandleStore struct {
	mu    sync.Mutex
	jobID string
	saves int
}

func (h *fakeHandleStore) Save(jobID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.jobID = jobID
	h.saves++
	return nil
}

func (h *fakeHandleStore) Load() (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.jobID, nil
}

func (h *fakeHandleStore) Clear() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.jobID = ""
	return nil
}

func (h *fakeHandleStore) current() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.jobID
}
