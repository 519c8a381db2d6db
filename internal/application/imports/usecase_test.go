package imports_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notafacil/nfse-api/internal/application/imports"
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

type fakeJobs struct {
	mu   sync.Mutex
	jobs map[string]entity.ImportJob
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{jobs: map[string]entity.ImportJob{}}
}

func (f *fakeJobs) Create(job *entity.ImportJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[job.ID] = *job
	return nil
}

func (f *fakeJobs) GetByID(id, userID string) (*entity.ImportJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok || job.UserID != userID {
		return nil, nil
	}
	copied := job
	copied.Errors = append([]entity.ImportRowError{}, job.Errors...)
	return &copied, nil
}

func (f *fakeJobs) Update(job *entity.ImportJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *job
	copied.Errors = append([]entity.ImportRowError{}, job.Errors...)
	f.jobs[job.ID] = copied
	return nil
}

type fakeClients struct {
	mu      sync.Mutex
	created []entity.Client
}

func (f *fakeClients) Create(client *entity.Client) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, *client)
	return nil
}

func (f *fakeClients) GetByDocument(document, userID string) (*entity.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.created {
		c := f.created[i]
		if c.UserID == userID && (c.CPF == document || c.CNPJ == document) {
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeClients) all() []entity.Client {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]entity.Client{}, f.created...)
}

// Métodos do porto que a importação não exercita.
func (f *fakeClients) GetByID(id, userID string) (*entity.Client, error) { return nil, nil }
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

type fakeEmitters struct {
	emitters []*entity.Emitter
}

func (f *fakeEmitters) ListByUser(userID string) ([]*entity.Emitter, error) {
	return f.emitters, nil
}

// Métodos do porto que a importação não exercita.
func (f *fakeEmitters) Create(emitter *entity.Emitter) error { return nil }

func (f *fakeEmitters) GetByID(id, userID string) (*entity.Emitter, error) { return nil, nil }

func (f *fakeEmitters) GetByCNPJ(cnpj, userID string) (*entity.Emitter, error) { return nil, nil }

func (f *fakeEmitters) Update(emitter *entity.Emitter) error { return nil }

func (f *fakeEmitters) Delete(id, userID string) error { return nil }

type fakeReader struct {
	rows []map[string]string
	err  error
}

func (f *fakeReader) Read(filename string, content []byte) ([]map[string]string, error) {
	return f.rows, f.err
}

type fakeLookup struct {
	mu    sync.Mutex
	addrs map[string]*imports.Address
	calls int
}

func (f *fakeLookup) Lookup(ctx context.Context, cep string) (*imports.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.addrs[cep], nil
}

// clientRow monta uma linha da planilha de importação de clientes.
func clientRow(doc, nome, cep, numero, emissores string) map[string]string {
	return map[string]string{
		"cpf_cnpj":        doc,
		"nome":            nome,
		"cep":             cep,
		"numero":          numero,
		"emissores_cnpjs": emissores,
	}
}

// waitTerminal espera o job de fundo chegar em finished ou error.
func waitTerminal(t *testing.T, uc *imports.ImportUseCase, jobID string) *entity.ImportJob {
	t.Helper()
	var job *entity.ImportJob
	require.Eventually(t, func() bool {
		j, err := uc.Status(testUser, jobID)
		if err != nil {
			return false
		}
		job = j
		return j.Terminal()
	}, 5*time.Second, 5*time.Millisecond, "job não terminou a tempo")
	return job
}

// ──────────────────────────────────────────────────────────────────────────────
// Testes
// ──────────────────────────────────────────────────────────────────────────────

func TestSubmit_ProcessaPlanilhaCompleta(t *testing.T) {
	clients := &fakeClients{}
	lookup := &fakeLookup{addrs: map[string]*imports.Address{
		"01001000": {Street: "Praça da Sé", District: "Sé", City: "São Paulo", State: "SP", MunicipalityIBGE: "3550308"},
	}}
	emitters := &fakeEmitters{emitters: []*entity.Emitter{
		{ID: "emit-1", UserID: testUser, CNPJ: "11222333000181"},
	}}
	reader := &fakeReader{rows: []map[string]string{
		clientRow("12.345.678/0001-95", "Empresa Alfa", "", "100", "11.222.333/0001-81"),
		clientRow("111", "Maria", "1001-000", "42", ""),
	}}
	uc := imports.NewImportUseCase(newFakeJobs(), clients, emitters, reader, lookup, imports.Options{}, testLogger())

	job, err := uc.Submit(testUser, "clientes.xlsx", []byte("fake"))
	require.NoError(t, err)
	require.Equal(t, entity.ImportJobPending, job.Status, "submit devolve o job ainda pendente")

	final := waitTerminal(t, uc, job.ID)
	assert.Equal(t, entity.ImportJobFinished, final.Status)
	assert.Equal(t, 2, final.Total)
	assert.Equal(t, 2, final.Inserted)
	assert.Equal(t, 0, final.Skipped)
	assert.Empty(t, final.Errors)
	require.NotNil(t, final.FinishedAt)

	created := clients.all()
	require.Len(t, created, 2)

	// Pessoa jurídica vinculada ao emissor pelo CNPJ sanitizado.
	assert.Equal(t, "12345678000195", created[0].CNPJ)
	assert.Equal(t, []string{"emit-1"}, created[0].EmitterIDs)
	assert.True(t, created[0].Active)

	// CPF truncado pela planilha completado com zeros; CEP também, e o
	// endereço vem da consulta.
	assert.Equal(t, "00000000111", created[1].CPF)
	assert.Equal(t, "01001000", created[1].CEP)
	assert.Equal(t, "Praça da Sé", created[1].Street)
	assert.Equal(t, "3550308", created[1].MunicipalityIBGE)
	assert.Equal(t, 1, lookup.calls, "só a linha com CEP consulta o endereço")
}

func TestSubmit_LinhasInvalidasViramErrosDeLinha(t *testing.T) {
	clients := &fakeClients{}
	clients.created = append(clients.created, entity.Client{
		ID: "c-1", UserID: testUser, Name: "Já Existe", CNPJ: "12345678000195",
	})
	reader := &fakeReader{rows: []map[string]string{
		clientRow("", "Sem Documento", "", "10", ""),
		clientRow("12.345.678/0001-95", "Duplicado", "", "10", ""),
		clientRow("111.111.111-11", "", "01001000", "10", ""),
		clientRow("222.222.222-22", "Sem CEP", "", "10", ""),
		clientRow("333.333.333-33", "Completo", "01001000", "10", ""),
	}}
	uc := imports.NewImportUseCase(newFakeJobs(), clients, &fakeEmitters{}, reader, nil, imports.Options{}, testLogger())

	job, err := uc.Submit(testUser, "clientes.csv", []byte("fake"))
	require.NoError(t, err)

	final := waitTerminal(t, uc, job.ID)
	assert.Equal(t, entity.ImportJobFinished, final.Status)
	assert.Equal(t, 5, final.Processed)
	assert.Equal(t, 1, final.Inserted)
	assert.Equal(t, 4, final.Skipped)
	require.Len(t, final.Errors, 4)

	// A linha 1 da planilha é o cabeçalho, então a primeira linha de dados é a 2.
	assert.Equal(t, 2, final.Errors[0].Row)
	assert.Contains(t, final.Errors[0].Reason, "Documento obrigatório")
	assert.Contains(t, final.Errors[1].Reason, "já existe")
	assert.Contains(t, final.Errors[2].Reason, "Nome obrigatório")
	assert.Contains(t, final.Errors[3].Reason, "CEP obrigatório")
	assert.Equal(t, "222.222.222-22", final.Errors[3].Document)
}

func TestSubmit_ExtensaoInvalidaRejeitaNaHora(t *testing.T) {
	uc := imports.NewImportUseCase(newFakeJobs(), &fakeClients{}, &fakeEmitters{}, &fakeReader{}, nil, imports.Options{}, testLogger())

	_, err := uc.Submit(testUser, "clientes.pdf", []byte("fake"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSubmit_PlanilhaIlegivelEncerraEmErro(t *testing.T) {
	reader := &fakeReader{err: fmt.Errorf("zip corrompido")}
	uc := imports.NewImportUseCase(newFakeJobs(), &fakeClients{}, &fakeEmitters{}, reader, nil, imports.Options{}, testLogger())

	job, err := uc.Submit(testUser, "clientes.xlsx", []byte("fake"))
	require.NoError(t, err)

	final := waitTerminal(t, uc, job.ID)
	assert.Equal(t, entity.ImportJobError, final.Status)
	assert.Contains(t, final.Message, "planilha ilegível")
	require.NotNil(t, final.FinishedAt)
}

func TestSubmit_ColunasErradasEncerraEmErro(t *testing.T) {
	reader := &fakeReader{rows: []map[string]string{{"valor": "100", "descricao": "serviço"}}}
	uc := imports.NewImportUseCase(newFakeJobs(), &fakeClients{}, &fakeEmitters{}, reader, nil, imports.Options{}, testLogger())

	job, err := uc.Submit(testUser, "clientes.csv", []byte("fake"))
	require.NoError(t, err)

	final := waitTerminal(t, uc, job.ID)
	assert.Equal(t, entity.ImportJobError, final.Status)
	assert.Contains(t, final.Message, "colunas esperadas")
}

func TestStatus_JobDesconhecido(t *testing.T) {
	uc := imports.NewImportUseCase(newFakeJobs(), &fakeClients{}, &fakeEmitters{}, &fakeReader{}, nil, imports.Options{}, testLogger())

	_, err := uc.Status(testUser, "nao-existe")
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}
