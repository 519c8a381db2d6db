package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/notafacil/nfse-api/internal/domain"
	"github.com/notafacil/nfse-api/internal/domain/entity"
	"github.com/notafacil/nfse-api/internal/domain/repository"
)

var (
	_ repository.DraftRepository   = (*DraftRepo)(nil)
	_ repository.DraftTxRepository = (*DraftRepo)(nil)
)

// DraftRepo implementação dos portos de rascunho sobre PostgreSQL. Serve
// tanto fora quanto dentro de transação (Querier).
type DraftRepo struct {
	q Querier
}

// NewDraftRepository constrói o adaptador. Aceita pool ou tx (Querier).
func NewDraftRepository(q Querier) *DraftRepo {
	return &DraftRepo{q: q}
}

// NewDraftTxRepository constrói o adaptador atado a uma transação, para a
// reconciliação.
func NewDraftTxRepository(q Querier) *DraftRepo {
	return &DraftRepo{q: q}
}

const draftColumns = `id, user_id, emitter_id, client_id, document, client_name, description,
	amount, competency, competency_month, service_code, tax_rate, municipality_ibge,
	country, tax_withheld, emission_date, status, seq, duplicate_group_id, uniq_key,
	errors, preview_batch_id, preview_index, source, task_id, created_at, updated_at`

func scanDraft(row pgx.Row) (*entity.Draft, error) {
	var d entity.Draft
	err := row.Scan(
		&d.ID, &d.UserID, &d.EmitterID, &d.ClientID, &d.Document, &d.ClientName, &d.Description,
		&d.Amount, &d.Competency, &d.CompetencyMonth, &d.ServiceCode, &d.TaxRate, &d.MunicipalityIBGE,
		&d.Country, &d.TaxWithheld, &d.EmissionDate, &d.Status, &d.Seq, &d.DuplicateGroupID, &d.UniqKey,
		&d.Errors, &d.PreviewBatchID, &d.PreviewIndex, &d.Source, &d.TaskID, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Create persiste um novo rascunho.
func (r *DraftRepo) Create(draft *entity.Draft) error {
	query := `
		INSERT INTO drafts (id, user_id, emitter_id, client_id, document, client_name, description,
			amount, competency, competency_month, service_code, tax_rate, municipality_ibge,
			country, tax_withheld, emission_date, status, seq, duplicate_group_id, uniq_key,
			errors, preview_batch_id, preview_index, source, task_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
			$18, $19, $20, $21, $22, $23, $24, $25, $26, $27)`
	_, err := r.q.Exec(context.Background(), query, draftArgs(draft)...)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert draft: %w", err)
	}
	return nil
}

// UpsertByUniqKey cria ou substitui o rascunho em aberto com a mesma
// (user_id, uniq_key). Reprocessar a mesma planilha não duplica rascunhos: a
// linha reaproveita o id e o created_at existentes.
func (r *DraftRepo) UpsertByUniqKey(draft *entity.Draft) error {
	query := `
		INSERT INTO drafts (id, user_id, emitter_id, client_id, document, client_name, description,
			amount, competency, competency_month, service_code, tax_rate, municipality_ibge,
			country, tax_withheld, emission_date, status, seq, duplicate_group_id, uniq_key,
			errors, preview_batch_id, preview_index, source, task_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
			$18, $19, $20, $21, $22, $23, $24, $25, $26, $27)
		ON CONFLICT (user_id, uniq_key) WHERE status IN ('active', 'invalid')
		DO UPDATE SET
			client_id = EXCLUDED.client_id, document = EXCLUDED.document,
			client_name = EXCLUDED.client_name, description = EXCLUDED.description,
			amount = EXCLUDED.amount, competency = EXCLUDED.competency,
			competency_month = EXCLUDED.competency_month, service_code = EXCLUDED.service_code,
			tax_rate = EXCLUDED.tax_rate, municipality_ibge = EXCLUDED.municipality_ibge,
			country = EXCLUDED.country, tax_withheld = EXCLUDED.tax_withheld,
			emission_date = EXCLUDED.emission_date, status = EXCLUDED.status,
			errors = EXCLUDED.errors, preview_batch_id = EXCLUDED.preview_batch_id,
			preview_index = EXCLUDED.preview_index, source = EXCLUDED.source,
			updated_at = EXCLUDED.updated_at`
	_, err := r.q.Exec(context.Background(), query, draftArgs(draft)...)
	if err != nil {
		return fmt.Errorf("upsert draft: %w", err)
	}
	return nil
}

func draftArgs(d *entity.Draft) []any {
	errs := d.Errors
	if errs == nil {
		errs = []string{}
	}
	return []any{
		d.ID, d.UserID, d.EmitterID, d.ClientID, d.Document, d.ClientName, d.Description,
		d.Amount, d.Competency, d.CompetencyMonth, d.ServiceCode, d.TaxRate, d.MunicipalityIBGE,
		d.Country, d.TaxWithheld, d.EmissionDate, d.Status, d.Seq, d.DuplicateGroupID, d.UniqKey,
		errs, d.PreviewBatchID, d.PreviewIndex, d.Source, d.TaskID, d.CreatedAt, d.UpdatedAt,
	}
}

// GetByID devolve o rascunho do usuário ou (nil, nil).
func (r *DraftRepo) GetByID(id, userID string) (*entity.Draft, error) {
	query := `SELECT ` + draftColumns + ` FROM drafts WHERE id = $1 AND user_id = $2`
	d, err := scanDraft(r.q.QueryRow(context.Background(), query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get draft by id: %w", err)
	}
	return d, nil
}

// List devolve os rascunhos do usuário ordenados por (mês de competência,
// cliente, seq). Status vazio ou "active" cobre os em aberto (active+invalid).
func (r *DraftRepo) List(userID string, filter repository.DraftFilter) ([]*entity.Draft, error) {
	query := `SELECT ` + draftColumns + ` FROM drafts WHERE user_id = $1`
	args := []any{userID}

	switch filter.Status {
	case "", entity.DraftStatusActive:
		query += ` AND status IN ('active', 'invalid')`
	default:
		args = append(args, filter.Status)
		query += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	if filter.EmitterID != "" {
		args = append(args, filter.EmitterID)
		query += fmt.Sprintf(` AND emitter_id = $%d`, len(args))
	}
	if filter.ClientID != "" {
		args = append(args, filter.ClientID)
		query += fmt.Sprintf(` AND client_id = $%d`, len(args))
	}
	query += ` ORDER BY competency_month ASC, client_id ASC, seq ASC, created_at ASC`

	rows, err := r.q.Query(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	defer rows.Close()
	return collectDrafts(rows)
}

// ListGroup devolve os rascunhos ativos do grupo (emissor, cliente, mês) por
// seq, excluindo os IDs informados.
func (r *DraftRepo) ListGroup(userID, emitterID, clientID, compMonth string, excludeIDs []string) ([]*entity.Draft, error) {
	if excludeIDs == nil {
		excludeIDs = []string{}
	}
	query := `SELECT ` + draftColumns + `
		FROM drafts
		WHERE user_id = $1 AND emitter_id = $2 AND client_id = $3 AND competency_month = $4
		  AND status = 'active' AND NOT (id = ANY($5))
		ORDER BY seq ASC, created_at ASC`
	rows, err := r.q.Query(context.Background(), query, userID, emitterID, clientID, compMonth, excludeIDs)
	if err != nil {
		return nil, fmt.Errorf("list draft group: %w", err)
	}
	defer rows.Close()
	return collectDrafts(rows)
}

// FindOpenByGroup devolve o rascunho ativo mais recente do grupo, para o
// upsert do import.
func (r *DraftRepo) FindOpenByGroup(userID, emitterID, clientID, compMonth string) (*entity.Draft, error) {
	query := `SELECT ` + draftColumns + `
		FROM drafts
		WHERE user_id = $1 AND emitter_id = $2 AND client_id = $3 AND competency_month = $4
		  AND status = 'active'
		ORDER BY created_at DESC
		LIMIT 1`
	d, err := scanDraft(r.q.QueryRow(context.Background(), query, userID, emitterID, clientID, compMonth))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find open draft: %w", err)
	}
	return d, nil
}

// Update substitui os campos do rascunho.
func (r *DraftRepo) Update(draft *entity.Draft) error {
	query := `
		UPDATE drafts
		SET client_id = $3, document = $4, client_name = $5, description = $6, amount = $7,
		    competency = $8, competency_month = $9, service_code = $10, tax_rate = $11,
		    municipality_ibge = $12, country = $13, tax_withheld = $14, emission_date = $15,
		    status = $16, seq = $17, duplicate_group_id = $18, uniq_key = $19, errors = $20,
		    preview_batch_id = $21, preview_index = $22, source = $23, updated_at = $24
		WHERE id = $1 AND user_id = $2`
	errs := draft.Errors
	if errs == nil {
		errs = []string{}
	}
	tag, err := r.q.Exec(context.Background(), query,
		draft.ID, draft.UserID, draft.ClientID, draft.Document, draft.ClientName,
		draft.Description, draft.Amount, draft.Competency, draft.CompetencyMonth,
		draft.ServiceCode, draft.TaxRate, draft.MunicipalityIBGE, draft.Country,
		draft.TaxWithheld, draft.EmissionDate, draft.Status, draft.Seq,
		draft.DuplicateGroupID, draft.UniqKey, errs, draft.PreviewBatchID,
		draft.PreviewIndex, draft.Source, draft.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update draft: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete remove o rascunho do usuário.
func (r *DraftRepo) Delete(id, userID string) error {
	tag, err := r.q.Exec(context.Background(), `DELETE FROM drafts WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkConfirmed marca o rascunho ativo como confirmado apontando para a task.
func (r *DraftRepo) MarkConfirmed(id, userID, taskID string) error {
	query := `
		UPDATE drafts SET status = 'confirmed', task_id = $3, updated_at = now()
		WHERE id = $1 AND user_id = $2 AND status = 'active'`
	tag, err := r.q.Exec(context.Background(), query, id, userID, taskID)
	if err != nil {
		return fmt.Errorf("mark draft confirmed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDraftNotEditable
	}
	return nil
}

// ── operações da reconciliação (dentro de transação) ─────────────────────────

// DeleteByPreviewIndices apaga os rascunhos em aberto do lote cujos índices
// estão em indices mas não em keep. Devolve o total apagado.
func (r *DraftRepo) DeleteByPreviewIndices(userID, emitterID, previewBatchID string, indices, keep []int) (int, error) {
	if keep == nil {
		keep = []int{}
	}
	query := `
		DELETE FROM drafts
		WHERE user_id = $1 AND emitter_id = $2 AND preview_batch_id = $3
		  AND status IN ('active', 'invalid')
		  AND preview_index = ANY($4) AND NOT (preview_index = ANY($5))`
	tag, err := r.q.Exec(context.Background(), query, userID, emitterID, previewBatchID, indices, keep)
	if err != nil {
		return 0, fmt.Errorf("delete drafts by preview index: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// ListKeptByPreview devolve os rascunhos em aberto do lote cujos índices foram
// mantidos, na ordem da planilha.
func (r *DraftRepo) ListKeptByPreview(userID, emitterID, previewBatchID string, keep []int) ([]*entity.Draft, error) {
	if keep == nil {
		keep = []int{}
	}
	query := `SELECT ` + draftColumns + `
		FROM drafts
		WHERE user_id = $1 AND emitter_id = $2 AND preview_batch_id = $3
		  AND status IN ('active', 'invalid') AND preview_index = ANY($4)
		ORDER BY preview_index ASC`
	rows, err := r.q.Query(context.Background(), query, userID, emitterID, previewBatchID, keep)
	if err != nil {
		return nil, fmt.Errorf("list kept drafts: %w", err)
	}
	defer rows.Close()
	return collectDrafts(rows)
}

// UpdateGrouping grava o grupo de duplicidade e o seq renumerado.
func (r *DraftRepo) UpdateGrouping(id, groupID string, seq int) error {
	query := `UPDATE drafts SET duplicate_group_id = $2, seq = $3, updated_at = now() WHERE id = $1`
	_, err := r.q.Exec(context.Background(), query, id, groupID, seq)
	if err != nil {
		return fmt.Errorf("update draft grouping: %w", err)
	}
	return nil
}

func collectDrafts(rows pgx.Rows) ([]*entity.Draft, error) {
	var list []*entity.Draft
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, fmt.Errorf("scan draft: %w", err)
		}
		list = append(list, d)
	}
	return list, rows.Err()
}
