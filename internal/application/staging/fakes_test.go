package staging_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/notafacil/nfse-api/internal/application/staging"
	"github.com/notafacil/nfse-api/internal/domain/entity"
	"github.com/notafacil/nfse-api/internal/domain/repository"
	"github.com/notafacil/nfse-api/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes em memória dos repositórios, compartilhados pelos tests do pacote.
// ──────────────────────────────────────────────────────────────────────────────

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Env: "production", Level: "error"})
}

// ── emissores ────────────────────────────────────────────────────────────────

type fakeEmitterRepo struct {
	emitters map[string]*entity.Emitter
}

func newFakeEmitterRepo(es ...*entity.Emitter) *fakeEmitterRepo {
	r := &fakeEmitterRepo{emitters: map[string]*entity.Emitter{}}
	for _, e := range es {
		r.emitters[e.ID] = e
	}
	return r
}

func (r *fakeEmitterRepo) Create(e *entity.Emitter) error { r.emitters[e.ID] = e; return nil }
func (r *fakeEmitterRepo) GetByID(id, userID string) (*entity.Emitter, error) {
	e, ok := r.emitters[id]
	if !ok || e.UserID != userID {
		return nil, nil
	}
	return e, nil
}
func (r *fakeEmitterRepo) GetByCNPJ(cnpj, userID string) (*entity.Emitter, error) {
	for _, e := range r.emitters {
		if e.CNPJ == cnpj && e.UserID == userID {
			return e, nil
		}
	}
	return nil, nil
}
func (r *fakeEmitterRepo) ListByUser(userID string) ([]*entity.Emitter, error) {
	var out []*entity.Emitter
	for _, e := range r.emitters {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}
func (r *fakeEmitterRepo) Update(e *entity.Emitter) error { r.emitters[e.ID] = e; return nil }
func (r *fakeEmitterRepo) Delete(id, userID string) error { delete(r.emitters, id); return nil }

// ── clientes ─────────────────────────────────────────────────────────────────

type fakeClientRepo struct {
	clients map[string]*entity.Client
}

func newFakeClientRepo(cs ...*entity.Client) *fakeClientRepo {
	r := &fakeClientRepo{clients: map[string]*entity.Client{}}
	for _, c := range cs {
		r.clients[c.ID] = c
	}
	return r
}

func (r *fakeClientRepo) Create(c *entity.Client) error { r.clients[c.ID] = c; return nil }
func (r *fakeClientRepo) GetByID(id, userID string) (*entity.Client, error) {
	c, ok := r.clients[id]
	if !ok || c.UserID != userID {
		return nil, nil
	}
	return c, nil
}
func (r *fakeClientRepo) GetByDocument(digits, userID string) (*entity.Client, error) {
	for _, c := range r.clients {
		if c.UserID != userID || !c.Active {
			continue
		}
		if c.CPF == digits || c.CNPJ == digits {
			return c, nil
		}
	}
	return nil, nil
}
func (r *fakeClientRepo) GetUnidentified(emitterID, userID string) (*entity.Client, error) {
	for _, c := range r.clients {
		if c.UserID != userID || !c.Unidentified {
			continue
		}
		for _, eid := range c.EmitterIDs {
			if eid == emitterID {
				return c, nil
			}
		}
	}
	return nil, nil
}
func (r *fakeClientRepo) List(userID string, f repository.ClientFilter) ([]*entity.Client, error) {
	var out []*entity.Client
	for _, c := range r.clients {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}
func (r *fakeClientRepo) Count(userID string, f repository.ClientFilter) (int, error) {
	list, _ := r.List(userID, f)
	return len(list), nil
}
func (r *fakeClientRepo) Update(c *entity.Client) error { r.clients[c.ID] = c; return nil }
func (r *fakeClientRepo) SetActive(id, userID string, active bool) error {
	if c, ok := r.clients[id]; ok {
		c.Active = active
	}
	return nil
}

// ── rascunhos ────────────────────────────────────────────────────────────────

type fakeDraftRepo struct {
	mu     sync.Mutex
	drafts map[string]*entity.Draft
}

func newFakeDraftRepo() *fakeDraftRepo {
	return &fakeDraftRepo{drafts: map[string]*entity.Draft{}}
}

func (r *fakeDraftRepo) clone(d *entity.Draft) *entity.Draft {
	cp := *d
	return &cp
}

func (r *fakeDraftRepo) Create(d *entity.Draft) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drafts[d.ID] = r.clone(d)
	return nil
}

func (r *fakeDraftRepo) UpsertByUniqKey(d *entity.Draft) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, e := range r.drafts {
		if e.UserID == d.UserID && e.UniqKey == d.UniqKey && e.Status == d.Status {
			cp := r.clone(d)
			cp.ID = id
			r.drafts[id] = cp
			return nil
		}
	}
	r.drafts[d.ID] = r.clone(d)
	return nil
}

func (r *fakeDraftRepo) GetByID(id, userID string) (*entity.Draft, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.drafts[id]
	if !ok || d.UserID != userID {
		return nil, nil
	}
	return r.clone(d), nil
}

func isOpen(status string) bool {
	return status == entity.DraftStatusActive || status == entity.DraftStatusInvalid
}

func (r *fakeDraftRepo) List(userID string, f repository.DraftFilter) ([]*entity.Draft, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Draft
	for _, d := range r.drafts {
		if d.UserID != userID || d.EmitterID != f.EmitterID {
			continue
		}
		switch f.Status {
		case "", "active":
			if !isOpen(d.Status) {
				continue
			}
		default:
			if d.Status != f.Status {
				continue
			}
		}
		if f.ClientID != "" && d.ClientID != f.ClientID {
			continue
		}
		out = append(out, r.clone(d))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CompetencyMonth != out[j].CompetencyMonth {
			return out[i].CompetencyMonth < out[j].CompetencyMonth
		}
		return out[i].Seq < out[j].Seq
	})
	return out, nil
}

func (r *fakeDraftRepo) ListGroup(userID, emitterID, clientID, compMonth string, excludeIDs []string) ([]*entity.Draft, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	excluded := map[string]bool{}
	for _, id := range excludeIDs {
		excluded[id] = true
	}
	var out []*entity.Draft
	for _, d := range r.drafts {
		if d.UserID != userID || d.EmitterID != emitterID || d.ClientID != clientID ||
			d.CompetencyMonth != compMonth || d.Status != entity.DraftStatusActive || excluded[d.ID] {
			continue
		}
		out = append(out, r.clone(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func (r *fakeDraftRepo) FindOpenByGroup(userID, emitterID, clientID, compMonth string) (*entity.Draft, error) {
	list, _ := r.ListGroup(userID, emitterID, clientID, compMonth, nil)
	if len(list) == 0 {
		return nil, nil
	}
	// mais recente
	latest := list[0]
	for _, d := range list {
		if d.UpdatedAt.After(latest.UpdatedAt) {
			latest = d
		}
	}
	return latest, nil
}

func (r *fakeDraftRepo) Update(d *entity.Draft) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drafts[d.ID] = r.clone(d)
	return nil
}

func (r *fakeDraftRepo) Delete(id, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.drafts, id)
	return nil
}

func (r *fakeDraftRepo) MarkConfirmed(id, userID, taskID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.drafts[id]
	if !ok {
		return nil
	}
	d.Status = entity.DraftStatusConfirmed
	d.TaskID = taskID
	d.UpdatedAt = time.Now().UTC()
	return nil
}

// DraftTxRepository — o fake não distingue dentro/fora de transação.

func (r *fakeDraftRepo) DeleteByPreviewIndices(userID, emitterID, previewBatchID string, indices, keep []int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inGroup := map[int]bool{}
	for _, i := range indices {
		inGroup[i] = true
	}
	kept := map[int]bool{}
	for _, i := range keep {
		kept[i] = true
	}
	deleted := 0
	for id, d := range r.drafts {
		if d.UserID != userID || d.EmitterID != emitterID || d.PreviewBatchID != previewBatchID {
			continue
		}
		if !isOpen(d.Status) {
			continue
		}
		if inGroup[d.PreviewIndex] && !kept[d.PreviewIndex] {
			delete(r.drafts, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *fakeDraftRepo) ListKeptByPreview(userID, emitterID, previewBatchID string, keep []int) ([]*entity.Draft, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := map[int]bool{}
	for _, i := range keep {
		kept[i] = true
	}
	var out []*entity.Draft
	for _, d := range r.drafts {
		if d.UserID != userID || d.EmitterID != emitterID || d.PreviewBatchID != previewBatchID {
			continue
		}
		if isOpen(d.Status) && kept[d.PreviewIndex] {
			out = append(out, r.clone(d))
		}
	}
	return out, nil
}

func (r *fakeDraftRepo) UpdateGrouping(id, groupID string, seq int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.drafts[id]; ok {
		d.DuplicateGroupID = groupID
		d.Seq = seq
		d.UpdatedAt = time.Now().UTC()
	}
	return nil
}

// fakeTxRunner executa o callback diretamente sobre o fake (sem transação real).
type fakeTxRunner struct {
	drafts *fakeDraftRepo
}

var _ staging.ReconcileTxRunner = (*fakeTxRunner)(nil)

func (r *fakeTxRunner) Run(ctx context.Context, fn func(tx repository.DraftTxRepository) error) error {
	return fn(r.drafts)
}

// ── alíquotas ────────────────────────────────────────────────────────────────

type fakeRateRepo struct {
	rates []*entity.TaxRate
}

func (r *fakeRateRepo) Upsert(rate *entity.TaxRate) error {
	r.rates = append(r.rates, rate)
	return nil
}
func (r *fakeRateRepo) GetForMonth(emitterID string, year, month int) (*entity.TaxRate, error) {
	for _, t := range r.rates {
		if t.EmitterID == emitterID && t.Year == year && t.Month == month {
			return t, nil
		}
	}
	return nil, nil
}
func (r *fakeRateRepo) GetLatestUpTo(emitterID string, year, month int) (*entity.TaxRate, error) {
	var best *entity.TaxRate
	for _, t := range r.rates {
		if t.EmitterID != emitterID {
			continue
		}
		if t.Year > year || (t.Year == year && t.Month > month) {
			continue
		}
		if best == nil || t.Year > best.Year || (t.Year == best.Year && t.Month > best.Month) {
			best = t
		}
	}
	return best, nil
}
func (r *fakeRateRepo) GetCurrent(emitterID string) (*entity.TaxRate, error) {
	var best *entity.TaxRate
	for _, t := range r.rates {
		if t.EmitterID != emitterID {
			continue
		}
		if best == nil || t.Year > best.Year || (t.Year == best.Year && t.Month > best.Month) {
			best = t
		}
	}
	return best, nil
}
func (r *fakeRateRepo) ListByEmitter(emitterID string) ([]*entity.TaxRate, error) {
	var out []*entity.TaxRate
	for _, t := range r.rates {
		if t.EmitterID == emitterID {
			out = append(out, t)
		}
	}
	return out, nil
}
func (r *fakeRateRepo) Delete(id, userID string) error { return nil }

// ── tasks + contador DPS ─────────────────────────────────────────────────────

var errTaskInsert = errors.New("falha simulada ao inserir task")

type fakeTaskRepo struct {
	mu    sync.Mutex
	tasks map[string]*entity.Task
	// failOnDraftID força erro ao criar a task deste rascunho (falha parcial).
	failOnDraftID string
}

func newFakeTaskRepo() *fakeTaskRepo { return &fakeTaskRepo{tasks: map[string]*entity.Task{}} }

func (r *fakeTaskRepo) Create(t *entity.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failOnDraftID != "" && t.DraftID == r.failOnDraftID {
		return errTaskInsert
	}
	cp := *t
	r.tasks[t.ID] = &cp
	return nil
}
func (r *fakeTaskRepo) GetByID(id, userID string) (*entity.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok || t.UserID != userID {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}
func (r *fakeTaskRepo) List(userID string, f repository.TaskFilter) ([]*entity.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Task
	for _, t := range r.tasks {
		if t.UserID == userID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}
func (r *fakeTaskRepo) Summary(userID, emitterID string) ([]repository.TaskSummary, error) {
	return nil, nil
}
func (r *fakeTaskRepo) UpdateStatus(id, userID, status, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tasks[id]; ok {
		t.Status = status
		t.Message = message
	}
	return nil
}

type fakeDPSCounter struct {
	mu   sync.Mutex
	next map[string]int64
}

func newFakeDPSCounter() *fakeDPSCounter { return &fakeDPSCounter{next: map[string]int64{}} }

func (c *fakeDPSCounter) Next(emitterID, series string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := emitterID + "|" + series
	c.next[key]++
	return c.next[key], nil
}

// ── entidades de apoio ───────────────────────────────────────────────────────

const (
	testUserID    = "user-1"
	testEmitterID = "emitter-1"
)

func testEmitter() *entity.Emitter {
	return &entity.Emitter{
		ID:               testEmitterID,
		UserID:           testUserID,
		Name:             "Prestadora Exemplo LTDA",
		CNPJ:             "12345678000195",
		MunicipalityIBGE: "3550308",
		DPSSeries:        "00001",
		Active:           true,
	}
}

func testClient(id, name, cpf string) *entity.Client {
	return &entity.Client{
		ID:     id,
		UserID: testUserID,
		Name:   name,
		CPF:    cpf,
		Active: true,
	}
}

func testRate(year, month int, rate string) *entity.TaxRate {
	return &entity.TaxRate{
		ID:        "rate-" + rate,
		UserID:    testUserID,
		EmitterID: testEmitterID,
		Year:      year,
		Month:     month,
		Rate:      decimal.RequireFromString(rate),
	}
}
