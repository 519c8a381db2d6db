package session

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/notafacil/nfse-api/internal/application/dto"
	"github.com/notafacil/nfse-api/internal/application/staging"
	"github.com/notafacil/nfse-api/internal/domain"
)

// emitterState projeção local dos rascunhos de um emissor.
type emitterState struct {
	rows      map[string]dto.DraftResponse
	selection *Selection
	// fence é o último token de refresh emitido para o emissor; uma resposta
	// cujo token não for mais o corrente é descartada (chegou atrasada).
	fence uint64
}

// Store é o objeto de sessão que mantém a projeção dos rascunhos por emissor.
// Todos os métodos são seguros para uso concorrente. Nada aqui é global: cada
// sessão (aba, comando de CLI) constrói o seu Store com suas capacidades.
type Store struct {
	mu       sync.Mutex
	api      Client
	notify   Notifier
	confirm  Confirmer
	emitters map[string]*emitterState
	active   string
	inFlight map[string]bool // guarda por ação: upload, save, reconcile, confirm, clear
}

// NewStore constrói a sessão com as capacidades injetadas.
func NewStore(api Client, notify Notifier, confirm Confirmer) *Store {
	return &Store{
		api:      api,
		notify:   notify,
		confirm:  confirm,
		emitters: map[string]*emitterState{},
		inFlight: map[string]bool{},
	}
}

func (s *Store) state(emitterID string) *emitterState {
	st, ok := s.emitters[emitterID]
	if !ok {
		st = &emitterState{rows: map[string]dto.DraftResponse{}, selection: newSelection()}
		s.emitters[emitterID] = st
	}
	return st
}

// SetActiveEmitter troca o emissor ativo e recarrega os rascunhos dele do
// servidor: a troca sempre entrega uma visão recém-carregada, nunca uma
// projeção velha de uma sessão anterior. As seleções dos demais emissores são
// preservadas.
func (s *Store) SetActiveEmitter(ctx context.Context, emitterID string) error {
	s.mu.Lock()
	s.active = emitterID
	s.state(emitterID)
	s.mu.Unlock()
	return s.Hydrate(ctx, emitterID)
}

// ActiveEmitter devolve o emissor ativo.
func (s *Store) ActiveEmitter() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// ── guarda de reentrância ────────────────────────────────────────────────────

// acquire marca a ação como em voo; devolve ErrOperationInFlight se já houver
// uma execução corrente. release é chamado em defer pelo chamador.
func (s *Store) acquire(action string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[action] {
		return domain.ErrOperationInFlight
	}
	s.inFlight[action] = true
	return nil
}

func (s *Store) release(action string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, action)
}

// ── refresh com token de cerca ───────────────────────────────────────────────

// nextFence emite um novo token de refresh para o emissor.
func (s *Store) nextFence(emitterID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(emitterID)
	st.fence++
	return st.fence
}

// Hydrate recarrega a projeção inteira do emissor (substituição). Uma resposta
// que chegar depois de outro refresh mais novo do mesmo emissor é descartada.
func (s *Store) Hydrate(ctx context.Context, emitterID string) error {
	token := s.nextFence(emitterID)

	drafts, err := s.api.ListDrafts(ctx, emitterID, "active")
	if err != nil {
		return fmt.Errorf("hidratando rascunhos: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(emitterID)
	if token != st.fence {
		// Resposta velha: outro refresh já foi emitido. Descarta.
		return nil
	}

	st.rows = make(map[string]dto.DraftResponse, len(drafts))
	alive := make(map[string]bool, len(drafts))
	for _, d := range drafts {
		st.rows[d.ID] = d
		alive[d.ID] = true
	}
	// Seleções de rascunhos que deixaram de existir são removidas.
	st.selection.Prune(alive)
	return nil
}

// Merge aplica um refresh parcial: somente os rascunhos devolvidos são
// atualizados/inseridos, o restante da projeção fica como está. Usa a mesma
// cerca do Hydrate.
func (s *Store) Merge(ctx context.Context, emitterID string, draftIDs []string) error {
	token := s.nextFence(emitterID)

	// Busca tudo e aplica só o pedido: a API não tem endpoint de lote por ID.
	drafts, err := s.api.ListDrafts(ctx, emitterID, "active")
	if err != nil {
		return fmt.Errorf("mesclando rascunhos: %w", err)
	}

	wanted := map[string]bool{}
	for _, id := range draftIDs {
		wanted[id] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(emitterID)
	if token != st.fence {
		return nil
	}
	for _, d := range drafts {
		if len(wanted) == 0 || wanted[d.ID] {
			st.rows[d.ID] = d
		}
	}
	return nil
}

// Rows devolve a projeção do emissor ordenada por (mês de competência, seq),
// agrupada implicitamente por cliente pela ordenação secundária.
func (s *Store) Rows(emitterID string) []dto.DraftResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(emitterID)
	out := make([]dto.DraftResponse, 0, len(st.rows))
	for _, d := range st.rows {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.CompetencyMonth != b.CompetencyMonth {
			return a.CompetencyMonth < b.CompetencyMonth
		}
		if a.ClientID != b.ClientID {
			return a.ClientID < b.ClientID
		}
		return a.Seq < b.Seq
	})
	return out
}

// Selection devolve o conjunto de seleção do emissor.
func (s *Store) Selection(emitterID string) *Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state(emitterID).selection
}

func allIDs(rows map[string]dto.DraftResponse) []string {
	ids := make([]string, 0, len(rows))
	for id := range rows {
		ids = append(ids, id)
	}
	return ids
}

// ── ações guardadas ──────────────────────────────────────────────────────────

// UploadResult resultado do upload de planilha: a prévia e os grupos de
// duplicidade que ainda exigem reconciliação.
type UploadResult struct {
	Preview *dto.PreviewResponse
	Groups  []dto.DuplicateGroupDTO
}

// Upload envia a planilha, grava os rascunhos do lote e detecta duplicidades.
// A ação termina somente após o refresh pós-mutação. Grupos não vazios exigem
// uma chamada subsequente a Reconcile antes da confirmação.
func (s *Store) Upload(ctx context.Context, emitterID, filename string, content []byte) (*UploadResult, error) {
	if err := s.acquire("upload"); err != nil {
		return nil, err
	}
	defer s.release("upload")

	preview, err := s.api.PreviewUpload(ctx, emitterID, filename, content, true)
	if err != nil {
		s.notify.Error(fmt.Sprintf("Falha no upload: %v", err))
		return nil, err
	}

	groups, err := staging.FindDuplicateGroups(emitterID, preview.Lines)
	if err != nil {
		// Lote rejeitado por cliente não resolvido: nada a reconciliar.
		s.notify.Error(err.Error())
		return nil, err
	}

	if err := s.Hydrate(ctx, emitterID); err != nil {
		return nil, err
	}

	if len(groups) > 0 {
		s.notify.Info(fmt.Sprintf("%d grupo(s) de possíveis duplicidades aguardando revisão", len(groups)))
	} else {
		s.notify.Success(fmt.Sprintf("%d linha(s) válidas importadas", preview.Valid))
	}
	return &UploadResult{Preview: preview, Groups: groups}, nil
}

// Reconcile aplica a decisão do usuário sobre os grupos duplicados e
// re-hidrata a projeção (a renumeração de seq só existe no servidor).
func (s *Store) Reconcile(ctx context.Context, req dto.ReconcileRequest) error {
	if err := s.acquire("reconcile"); err != nil {
		return err
	}
	defer s.release("reconcile")

	resp, err := s.api.Reconcile(ctx, req)
	if err != nil {
		s.notify.Error(fmt.Sprintf("Falha na reconciliação: %v", err))
		return err
	}

	if err := s.Hydrate(ctx, req.EmitterID); err != nil {
		return err
	}
	s.notify.Success(fmt.Sprintf("Reconciliação aplicada: %d removidas, %d renumeradas", resp.Deleted, resp.Updated))
	return nil
}

// SaveManual salva uma entrada manual como rascunho. Se já houver rascunho do
// mesmo (cliente, mês) na projeção, pede confirmação para criar um duplicado
// intencional (force_new); sem confirmação a ação é cancelada sem efeito.
func (s *Store) SaveManual(ctx context.Context, emitterID string, item dto.DraftImportItem) error {
	if err := s.acquire("save"); err != nil {
		return err
	}
	defer s.release("save")

	if s.hasGroupDraft(emitterID, item) {
		question := fmt.Sprintf("Já existe rascunho para este cliente na competência %s. Criar mesmo assim?",
			item.Competency)
		if !s.confirm.Confirm(ctx, question) {
			s.notify.Info("Criação cancelada")
			return nil
		}
		item.ForceNew = true
	}

	resp, err := s.api.ImportDrafts(ctx, dto.DraftImportRequest{
		EmitterID: emitterID,
		Items:     []dto.DraftImportItem{item},
	})
	if err != nil {
		s.notify.Error(fmt.Sprintf("Falha ao salvar rascunho: %v", err))
		return err
	}

	// Refresh parcial: só as linhas devolvidas mudaram.
	if err := s.Merge(ctx, emitterID, resp.DraftIDs); err != nil {
		return err
	}
	s.notify.Success(resp.Message)
	return nil
}

func (s *Store) hasGroupDraft(emitterID string, item dto.DraftImportItem) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(emitterID)
	month := ""
	if len(item.Competency) >= 7 {
		month = item.Competency[:7]
	}
	for _, d := range st.rows {
		if d.ClientID == item.ClientID && d.CompetencyMonth == month {
			return true
		}
	}
	return false
}

// Confirm envia os rascunhos selecionados para emissão e re-hidrata. Erros
// por item são reportados sem desfazer os confirmados.
func (s *Store) Confirm(ctx context.Context, emitterID string) (*dto.ConfirmResponse, error) {
	if err := s.acquire("confirm"); err != nil {
		return nil, err
	}
	defer s.release("confirm")

	s.mu.Lock()
	st := s.state(emitterID)
	filtered := allIDs(st.rows)
	sort.Strings(filtered)
	ids := st.selection.IDs(filtered)
	s.mu.Unlock()

	if len(ids) == 0 {
		s.notify.Info("Nenhum rascunho selecionado")
		return nil, fmt.Errorf("%w: nenhum rascunho selecionado", domain.ErrInvalidInput)
	}

	resp, err := s.api.ConfirmFromDrafts(ctx, dto.ConfirmRequest{EmitterID: emitterID, DraftIDs: ids})
	if err != nil {
		s.notify.Error(fmt.Sprintf("Falha na confirmação: %v", err))
		return nil, err
	}

	if err := s.Hydrate(ctx, emitterID); err != nil {
		return resp, err
	}

	if len(resp.Errors) > 0 {
		s.notify.Error(fmt.Sprintf("%s; %d com erro", resp.Message, len(resp.Errors)))
	} else {
		s.notify.Success(resp.Message)
	}
	return resp, nil
}

// ClearDraft remove um rascunho e re-hidrata a projeção.
func (s *Store) ClearDraft(ctx context.Context, emitterID, draftID string) error {
	if err := s.acquire("clear"); err != nil {
		return err
	}
	defer s.release("clear")

	if err := s.api.DeleteDraft(ctx, draftID); err != nil {
		s.notify.Error(fmt.Sprintf("Falha ao remover rascunho: %v", err))
		return err
	}

	s.mu.Lock()
	s.state(emitterID).selection.Remove(draftID)
	s.mu.Unlock()

	if err := s.Hydrate(ctx, emitterID); err != nil {
		return err
	}
	s.notify.Success("Rascunho removido")
	return nil
}
