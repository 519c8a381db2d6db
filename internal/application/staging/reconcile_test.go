package staging_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notafacil/nfse-api/internal/application/dto"
	"github.com/notafacil/nfse-api/internal/application/staging"
	"github.com/notafacil/nfse-api/internal/domain"
	"github.com/notafacil/nfse-api/internal/domain/entity"
	"github.com/notafacil/nfse-api/internal/domain/repository"
)

const testBatchID = "batch-1"

func newReconcileUC(t *testing.T) (*staging.ReconcileUseCase, *fakeDraftRepo) {
	t.Helper()
	drafts := newFakeDraftRepo()
	emitters := newFakeEmitterRepo(testEmitter())
	uc := staging.NewReconcileUseCase(emitters, &fakeTxRunner{drafts: drafts}, testLogger())
	return uc, drafts
}

// stageDraft grava um rascunho vindo de prévia de planilha.
func stageDraft(t *testing.T, repo *fakeDraftRepo, id, clientID, compMonth string, previewIndex int) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, repo.Create(&entity.Draft{
		ID:              id,
		UserID:          testUserID,
		EmitterID:       testEmitterID,
		ClientID:        clientID,
		Description:     "Serviço prestado",
		Amount:          decimal.NewFromInt(100),
		Competency:      compMonth + "-01",
		CompetencyMonth: compMonth,
		Status:          entity.DraftStatusActive,
		PreviewBatchID:  testBatchID,
		PreviewIndex:    previewIndex,
		Source:          entity.DraftSourceSpreadsheet,
		CreatedAt:       now,
		UpdatedAt:       now,
	}))
}

// ──────────────────────────────────────────────────────────────────────────────
// Reconciliação
// ──────────────────────────────────────────────────────────────────────────────

// Grupo de 3 linhas, usuário mantém 2: a não mantida é apagada e as mantidas
// são renumeradas seq=1,2 na ordem da planilha.
func TestReconcile_MantemDuasDeTres(t *testing.T) {
	uc, drafts := newReconcileUC(t)
	stageDraft(t, drafts, "d1", "cli-a", "2025-11", 2)
	stageDraft(t, drafts, "d2", "cli-a", "2025-11", 3)
	stageDraft(t, drafts, "d3", "cli-a", "2025-11", 4)

	resp, err := uc.Reconcile(context.Background(), testUserID, dto.ReconcileRequest{
		EmitterID:      testEmitterID,
		PreviewBatchID: testBatchID,
		GroupIndices:   []int{2, 3, 4},
		KeepIndices:    []int{2, 4},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, resp.Deleted)
	assert.Equal(t, 2, resp.Updated)

	gone, err := drafts.GetByID("d2", testUserID)
	require.NoError(t, err)
	assert.Nil(t, gone, "a linha não mantida deve ser apagada")

	d1, _ := drafts.GetByID("d1", testUserID)
	d3, _ := drafts.GetByID("d3", testUserID)
	require.NotNil(t, d1)
	require.NotNil(t, d3)
	assert.Equal(t, 1, d1.Seq, "mantidas renumeradas na ordem da planilha")
	assert.Equal(t, 2, d3.Seq)
	assert.Equal(t, d1.DuplicateGroupID, d3.DuplicateGroupID)
	assert.NotEmpty(t, d1.DuplicateGroupID)
}

// Mantendo todas as linhas nada é apagado e todas recebem seq sequencial.
func TestReconcile_ManterTodasNadaApaga(t *testing.T) {
	uc, drafts := newReconcileUC(t)
	stageDraft(t, drafts, "d1", "cli-a", "2025-11", 2)
	stageDraft(t, drafts, "d2", "cli-a", "2025-11", 3)

	resp, err := uc.Reconcile(context.Background(), testUserID, dto.ReconcileRequest{
		EmitterID:      testEmitterID,
		PreviewBatchID: testBatchID,
		GroupIndices:   []int{2, 3},
		KeepIndices:    []int{2, 3},
	})
	require.NoError(t, err)

	assert.Equal(t, 0, resp.Deleted, "manter tudo é uma decisão válida, nada deve sumir")
	assert.Equal(t, 2, resp.Updated)
}

// Rascunhos pré-existentes do mesmo grupo (fora do preview) mantêm seu seq; os
// mantidos continuam a numeração a partir deles.
func TestReconcile_ContinuaNumeracaoExistente(t *testing.T) {
	uc, drafts := newReconcileUC(t)

	// rascunho antigo do mesmo cliente+mês, seq 1, fora do lote
	now := time.Now().UTC()
	require.NoError(t, drafts.Create(&entity.Draft{
		ID:               "antigo",
		UserID:           testUserID,
		EmitterID:        testEmitterID,
		ClientID:         "cli-a",
		CompetencyMonth:  "2025-11",
		Competency:       "2025-11-01",
		Status:           entity.DraftStatusActive,
		Seq:              1,
		DuplicateGroupID: "grupo-antigo",
		CreatedAt:        now,
		UpdatedAt:        now,
	}))

	stageDraft(t, drafts, "d1", "cli-a", "2025-11", 2)
	stageDraft(t, drafts, "d2", "cli-a", "2025-11", 3)

	_, err := uc.Reconcile(context.Background(), testUserID, dto.ReconcileRequest{
		EmitterID:      testEmitterID,
		PreviewBatchID: testBatchID,
		GroupIndices:   []int{2, 3},
		KeepIndices:    []int{2, 3},
	})
	require.NoError(t, err)

	antigo, _ := drafts.GetByID("antigo", testUserID)
	d1, _ := drafts.GetByID("d1", testUserID)
	d2, _ := drafts.GetByID("d2", testUserID)

	assert.Equal(t, 1, antigo.Seq, "o rascunho pré-existente não deve ser renumerado")
	assert.Equal(t, 2, d1.Seq, "numeração continua após os existentes")
	assert.Equal(t, 3, d2.Seq)
	assert.Equal(t, "grupo-antigo", d1.DuplicateGroupID,
		"os mantidos herdam o group id do grupo existente")
}

// Grupos de clientes distintos são renumerados de forma independente.
func TestReconcile_GruposIndependentes(t *testing.T) {
	uc, drafts := newReconcileUC(t)
	stageDraft(t, drafts, "a1", "cli-a", "2025-11", 2)
	stageDraft(t, drafts, "a2", "cli-a", "2025-11", 3)
	stageDraft(t, drafts, "b1", "cli-b", "2025-11", 4)
	stageDraft(t, drafts, "b2", "cli-b", "2025-11", 5)

	_, err := uc.Reconcile(context.Background(), testUserID, dto.ReconcileRequest{
		EmitterID:      testEmitterID,
		PreviewBatchID: testBatchID,
		GroupIndices:   []int{2, 3, 4, 5},
		KeepIndices:    []int{2, 3, 4, 5},
	})
	require.NoError(t, err)

	a2, _ := drafts.GetByID("a2", testUserID)
	b2, _ := drafts.GetByID("b2", testUserID)
	assert.Equal(t, 2, a2.Seq)
	assert.Equal(t, 2, b2.Seq, "cada grupo numera do 1 independentemente")
}

func TestReconcile_ParametrosObrigatorios(t *testing.T) {
	uc, _ := newReconcileUC(t)

	_, err := uc.Reconcile(context.Background(), testUserID, dto.ReconcileRequest{
		EmitterID: testEmitterID, // sem preview_batch_id
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestReconcile_EmissorDeOutroUsuario(t *testing.T) {
	uc, _ := newReconcileUC(t)

	_, err := uc.Reconcile(context.Background(), "outro-usuario", dto.ReconcileRequest{
		EmitterID:      testEmitterID,
		PreviewBatchID: testBatchID,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// Interface usada apenas para garantir em tempo de compilação que o fake de
// transação cobre o mesmo contrato do repositório real.
var _ repository.DraftTxRepository = (*fakeDraftRepo)(nil)
