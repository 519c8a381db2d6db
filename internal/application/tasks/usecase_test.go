package tasks_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/notafacil/nfse-api/internal/application/tasks"
	"github.com/notafacil/nfse-api/internal/domain"
	"github.com/notafacil/nfse-api/internal/domain/entity"
	"github.com/notafacil/nfse-api/internal/domain/repository"
	"github.com/notafacil/nfse-api/pkg/logger"
)

const testUser = "user-1"

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Env: "production", Level: "error"})
}

// ──────────────────────────────────────────────────────────────────────────────
// Fakes em memória
// ──────────────────────────────────────────────────────────────────────────────

type fakeTasks struct {
	tasks      []*entity.Task
	lastFilter repository.TaskFilter
	statusLog  []string
}

func (f *fakeTasks) Create(task *entity.Task) error {
	f.tasks = append(f.tasks, task)
	return nil
}

func (f *fakeTasks) GetByID(id, userID string) (*entity.Task, error) {
	for _, t := range f.tasks {
		if t.ID == id && t.UserID == userID {
			return t, nil
		}
	}
	return nil, nil
}

func (f *fakeTasks) List(userID string, filter repository.TaskFilter) ([]*entity.Task, error) {
	f.lastFilter = filter
	var out []*entity.Task
	for _, t := range f.tasks {
		if t.UserID != userID {
			continue
		}
		if filter.EmitterID != "" && t.EmitterID != filter.EmitterID {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.From != "" && t.Competency < filter.From {
			continue
		}
		if filter.To != "" && t.Competency > filter.To {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeTasks) Summary(userID, emitterID string) ([]repository.TaskSummary, error) {
	counts := map[string]int{}
	for _, t := range f.tasks {
		if t.UserID == userID && t.EmitterID == emitterID {
			counts[t.Status]++
		}
	}
	var out []repository.TaskSummary
	for _, status := range []string{"accepted", "canceled", "error", "pending"} {
		if counts[status] > 0 {
			out = append(out, repository.TaskSummary{Status: status, Count: counts[status]})
		}
	}
	return out, nil
}

func (f *fakeTasks) UpdateStatus(id, userID, status, message string) error {
	for _, t := range f.tasks {
		if t.ID == id && t.UserID == userID {
			t.Status = status
			t.Message = message
			f.statusLog = append(f.statusLog, id+":"+status)
			return nil
		}
	}
	return domain.ErrNotFound
}

type fakeEmitters struct {
	emitters map[string]*entity.Emitter
}

func (f *fakeEmitters) GetByID(id, userID string) (*entity.Emitter, error) {
	return f.emitters[id], nil
}

func (f *fakeEmitters) Create(emitter *entity.Emitter) error { return nil }

func (f *fakeEmitters) GetByCNPJ(cnpj, userID string) (*entity.Emitter, error) { return nil, nil }

func (f *fakeEmitters) ListByUser(userID string) ([]*entity.Emitter, error) { return nil, nil }

func (f *fakeEmitters) Update(emitter *entity.Emitter) error { return nil }

func (f *fakeEmitters) Delete(id, userID string) error { return nil }

type fakeClients struct {
	clients map[string]*entity.Client
}

func (f *fakeClients) GetByID(id, userID string) (*entity.Client, error) {
	return f.clients[id], nil
}

func (f *fakeClients) Create(client *entity.Client) error { return nil }

func (f *fakeClients) GetByDocument(digits, userID string) (*entity.Client, error) { return nil, nil }

func (f *fakeClients) GetUnidentified(emitterID, userID string) (*entity.Client, error) {
	return nil, nil
}

func (f *fakeClients) List(userID string, filter repository.ClientFilter) ([]*entity.Client, error) {
	return nil, nil
}

func (f *fakeClients) Count(userID string, filter repository.ClientFilter) (int, error) {
	return 0, nil
}

func (f *fakeClients) Update(client *entity.Client) error { return nil }

func (f *fakeClients) SetActive(id, userID string, active bool) error { return nil }

func testTask(id, emitterID, clientID, status, competency string) *entity.Task {
	return &entity.Task{
		ID:          id,
		UserID:      testUser,
		EmitterID:   emitterID,
		ClientID:    clientID,
		Description: "Consultoria mensal",
		Amount:      decimal.NewFromInt(1500),
		Competency:  competency,
		ServiceCode: "010701",
		TaxRate:     decimal.NewFromFloat(0.02),
		DPS:         entity.DPS{Series: "00001", Number: 7},
		Status:      status,
		CreatedAt:   time.Date(2025, 11, 10, 12, 0, 0, 0, time.UTC),
		UpdatedAt:   time.Date(2025, 11, 10, 12, 0, 0, 0, time.UTC),
	}
}

func newTestUseCase(tk *fakeTasks) *tasks.TaskUseCase {
	emitters := &fakeEmitters{emitters: map[string]*entity.Emitter{
		"emit-1": {ID: "emit-1", UserID: testUser, Name: "Alfa Serviços LTDA", CNPJ: "11222333000181"},
		"emit-2": {ID: "emit-2", UserID: testUser, Name: "Beta Consultoria ME", CNPJ: "99888777000166"},
	}}
	clients := &fakeClients{clients: map[string]*entity.Client{
		"cli-1": {
			ID: "cli-1", UserID: testUser, Name: "Maria Silva", CPF: "11111111111",
			Street: "Rua das Flores", Number: "42", District: "Centro", City: "São Paulo",
		},
	}}
	return tasks.NewTaskUseCase(tk, emitters, clients, testLogger())
}

// ──────────────────────────────────────────────────────────────────────────────
// Testes
// ──────────────────────────────────────────────────────────────────────────────

func TestMonthRange(t *testing.T) {
	from, to, err := tasks.MonthRange(2025, 11)
	require.NoError(t, err)
	assert.Equal(t, "2025-11-01", from)
	assert.Equal(t, "2025-11-30", to)

	from, to, err = tasks.MonthRange(2024, 2)
	require.NoError(t, err)
	assert.Equal(t, "2024-02-01", from)
	assert.Equal(t, "2024-02-29", to, "ano bissexto")

	_, _, err = tasks.MonthRange(2025, 13)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestList_FiltraPorCompetencia(t *testing.T) {
	tk := &fakeTasks{tasks: []*entity.Task{
		testTask("t-1", "emit-1", "cli-1", "accepted", "2025-11-10"),
		testTask("t-2", "emit-1", "cli-1", "accepted", "2025-12-01"),
	}}
	uc := newTestUseCase(tk)

	list, err := uc.List(testUser, repository.TaskFilter{From: "2025-11-01", To: "2025-11-30"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "t-1", list[0].ID)
	assert.Equal(t, "00001", list[0].DPSSeries)
}

func TestGet_NaoEncontrada(t *testing.T) {
	uc := newTestUseCase(&fakeTasks{})

	_, err := uc.Get(testUser, "nao-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSummary_AgrupaPorStatus(t *testing.T) {
	tk := &fakeTasks{tasks: []*entity.Task{
		testTask("t-1", "emit-1", "cli-1", "accepted", "2025-11-10"),
		testTask("t-2", "emit-1", "cli-1", "accepted", "2025-11-11"),
		testTask("t-3", "emit-1", "cli-1", "pending", "2025-11-12"),
		testTask("t-4", "emit-2", "cli-1", "error", "2025-11-12"),
	}}
	uc := newTestUseCase(tk)

	summary, err := uc.Summary(testUser, "emit-1")
	require.NoError(t, err)
	require.Len(t, summary, 2)
	assert.Equal(t, "accepted", summary[0].Status)
	assert.Equal(t, 2, summary[0].Count)
	assert.Equal(t, "pending", summary[1].Status)
	assert.Equal(t, 1, summary[1].Count)

	_, err = uc.Summary(testUser, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRequestCancel_ApenasNotasAceitas(t *testing.T) {
	tk := &fakeTasks{tasks: []*entity.Task{
		testTask("t-1", "emit-1", "cli-1", "accepted", "2025-11-10"),
		testTask("t-2", "emit-1", "cli-1", "pending", "2025-11-10"),
	}}
	uc := newTestUseCase(tk)

	require.NoError(t, uc.RequestCancel(testUser, "t-1", "emitida por engano"))
	assert.Equal(t, entity.TaskStatusCancelRequest, tk.tasks[0].Status)
	assert.Equal(t, "emitida por engano", tk.tasks[0].Message)

	err := uc.RequestCancel(testUser, "t-2", "")
	assert.ErrorIs(t, err, domain.ErrTaskNotCancelable)
	assert.Equal(t, entity.TaskStatusPending, tk.tasks[1].Status, "task pendente fica intacta")

	err = uc.RequestCancel(testUser, "nao-existe", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestExportXLSX_UmaAbaPorEmissor(t *testing.T) {
	tk := &fakeTasks{tasks: []*entity.Task{
		testTask("t-1", "emit-1", "cli-1", "accepted", "2025-11-10"),
		testTask("t-2", "emit-2", "cli-1", "canceled", "2025-11-12"),
	}}
	uc := newTestUseCase(tk)

	content, filename, err := uc.ExportXLSX(testUser, 2025, 11, "")
	require.NoError(t, err)
	assert.Equal(t, "nfse_112025.xlsx", filename)

	f, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	assert.ElementsMatch(t, []string{"Alfa Serviços LTDA", "Beta Consultoria ME"}, sheets)

	rows, err := f.GetRows("Alfa Serviços LTDA")
	require.NoError(t, err)
	require.Len(t, rows, 2, "cabeçalho + uma nota")
	assert.Equal(t, "STATUS", rows[0][0])
	assert.Equal(t, "AUTORIZADA", rows[1][0])
	assert.Equal(t, "7", rows[1][1], "número da DPS")
	assert.Equal(t, "Maria Silva", rows[1][9])
	assert.Equal(t, "11111111111", rows[1][10])
	assert.Equal(t, "Rua das Flores 42 Centro", rows[1][14])

	rows, err = f.GetRows("Beta Consultoria ME")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "CANCELADA", rows[1][0])
}

func TestExportXLSX_MesSemNotas(t *testing.T) {
	uc := newTestUseCase(&fakeTasks{})

	content, _, err := uc.ExportXLSX(testUser, 2025, 1, "")
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Sem Dados"}, f.GetSheetList())
}
