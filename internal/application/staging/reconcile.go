package staging

import (
	"context"
	"fmt"
	"sort"

	"github.com/notafacil/nfse-api/internal/application/dto"
	"github.com/notafacil/nfse-api/internal/domain"
	"github.com/notafacil/nfse-api/internal/domain/entity"
	"github.com/notafacil/nfse-api/internal/domain/repository"
	"github.com/notafacil/nfse-api/pkg/logger"
)

// ReconcileUseCase resolve duplicidades de um lote de prévia: apaga as linhas
// não mantidas dos grupos informados e renumera as mantidas por
// (cliente, mês), continuando a sequência de rascunhos pré-existentes.
// Tudo dentro de uma única transação: ou a reconciliação inteira vale, ou nada.
type ReconcileUseCase struct {
	emitters repository.EmitterRepository
	tx       ReconcileTxRunner
	log      *logger.Logger
}

// NewReconcileUseCase constrói o caso de uso de reconciliação.
func NewReconcileUseCase(emitters repository.EmitterRepository, tx ReconcileTxRunner, log *logger.Logger) *ReconcileUseCase {
	return &ReconcileUseCase{emitters: emitters, tx: tx, log: log}
}

// Reconcile aplica a decisão do usuário sobre os grupos duplicados do lote.
// KeepIndices e GroupIndices referem-se ao preview_index das linhas. Após o
// retorno o chamador deve re-hidratar sua visão dos rascunhos.
func (uc *ReconcileUseCase) Reconcile(ctx context.Context, userID string, req dto.ReconcileRequest) (*dto.ReconcileResponse, error) {
	if req.EmitterID == "" || req.PreviewBatchID == "" {
		return nil, fmt.Errorf("%w: emitterId e preview_batch_id são obrigatórios", domain.ErrInvalidInput)
	}

	emitter, err := uc.emitters.GetByID(req.EmitterID, userID)
	if err != nil {
		return nil, fmt.Errorf("buscando emissor: %w", err)
	}
	if emitter == nil {
		return nil, fmt.Errorf("emissor: %w", domain.ErrNotFound)
	}

	resp := &dto.ReconcileResponse{Message: "Reconciliação aplicada"}

	err = uc.tx.Run(ctx, func(tx repository.DraftTxRepository) error {
		// 1) Apaga as linhas dos grupos que não foram mantidas.
		deleted, err := tx.DeleteByPreviewIndices(userID, req.EmitterID, req.PreviewBatchID,
			req.GroupIndices, req.KeepIndices)
		if err != nil {
			return fmt.Errorf("apagando não mantidas: %w", err)
		}
		resp.Deleted = deleted

		// 2) Reagrupa as mantidas por (cliente, mês) e renumera.
		kept, err := tx.ListKeptByPreview(userID, req.EmitterID, req.PreviewBatchID, req.KeepIndices)
		if err != nil {
			return fmt.Errorf("listando mantidas: %w", err)
		}

		groups := map[string][]*entity.Draft{}
		for _, d := range kept {
			key := d.ClientID + "|" + d.CompetencyMonth
			groups[key] = append(groups[key], d)
		}

		for _, docs := range groups {
			clientID := docs[0].ClientID
			compMonth := docs[0].CompetencyMonth

			ids := make([]string, len(docs))
			for i, d := range docs {
				ids[i] = d.ID
			}
			// Rascunhos do mesmo grupo fora deste lote: a numeração continua após eles.
			existing, err := tx.ListGroup(userID, req.EmitterID, clientID, compMonth, ids)
			if err != nil {
				return fmt.Errorf("listando grupo existente: %w", err)
			}

			groupID := fmt.Sprintf("%s:%s:%s", req.EmitterID, clientID, compMonth)
			if len(existing) > 0 && existing[0].DuplicateGroupID != "" {
				groupID = existing[0].DuplicateGroupID
			}
			seq := maxSeq(existing)

			// Ordena pelo índice da planilha para dar sequência previsível.
			sort.Slice(docs, func(i, j int) bool { return docs[i].PreviewIndex < docs[j].PreviewIndex })
			for _, d := range docs {
				seq++
				if err := tx.UpdateGrouping(d.ID, groupID, seq); err != nil {
					return fmt.Errorf("renumerando rascunho %s: %w", d.ID, err)
				}
				resp.Updated++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info().Str("emitter_id", req.EmitterID).Str("preview_batch_id", req.PreviewBatchID).
		Int("deleted", resp.Deleted).Int("updated", resp.Updated).Msg("reconciliação aplicada")
	return resp, nil
}
