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

var _ repository.TaskRepository = (*TaskRepo)(nil)

// TaskRepo implementação do porto TaskRepository sobre PostgreSQL.
type TaskRepo struct {
	q Querier
}

// NewTaskRepository constrói o adaptador. Aceita pool ou tx (Querier).
func NewTaskRepository(q Querier) *TaskRepo {
	return &TaskRepo{q: q}
}

const taskColumns = `id, user_id, emitter_id, client_id, draft_id, description, amount,
	competency, service_code, tax_rate, dps_series, dps_number, status, invoice_num,
	message, created_at, updated_at`

func scanTask(row pgx.Row) (*entity.Task, error) {
	var t entity.Task
	err := row.Scan(
		&t.ID, &t.UserID, &t.EmitterID, &t.ClientID, &t.DraftID, &t.Description, &t.Amount,
		&t.Competency, &t.ServiceCode, &t.TaxRate, &t.DPS.Series, &t.DPS.Number, &t.Status,
		&t.InvoiceNum, &t.Message, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create persiste uma nova task de emissão.
func (r *TaskRepo) Create(task *entity.Task) error {
	query := `
		INSERT INTO tasks (id, user_id, emitter_id, client_id, draft_id, description, amount,
			competency, service_code, tax_rate, dps_series, dps_number, status, invoice_num,
			message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`
	_, err := r.q.Exec(context.Background(), query,
		task.ID, task.UserID, task.EmitterID, task.ClientID, task.DraftID, task.Description,
		task.Amount, task.Competency, task.ServiceCode, task.TaxRate, task.DPS.Series,
		task.DPS.Number, task.Status, task.InvoiceNum, task.Message, task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// GetByID devolve a task do usuário ou (nil, nil).
func (r *TaskRepo) GetByID(id, userID string) (*entity.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND user_id = $2`
	t, err := scanTask(r.q.QueryRow(context.Background(), query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get task by id: %w", err)
	}
	return t, nil
}

// List lista as tasks do usuário com filtros, da mais recente para a mais antiga.
func (r *TaskRepo) List(userID string, filter repository.TaskFilter) ([]*entity.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = $1`
	args := []any{userID}

	if filter.EmitterID != "" {
		args = append(args, filter.EmitterID)
		query += fmt.Sprintf(` AND emitter_id = $%d`, len(args))
	}
	if filter.ClientID != "" {
		args = append(args, filter.ClientID)
		query += fmt.Sprintf(` AND client_id = $%d`, len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	if filter.From != "" {
		args = append(args, filter.From)
		query += fmt.Sprintf(` AND competency >= $%d`, len(args))
	}
	if filter.To != "" {
		args = append(args, filter.To)
		query += fmt.Sprintf(` AND competency <= $%d`, len(args))
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	}

	rows, err := r.q.Query(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()
	var list []*entity.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// Summary agrega as tasks do emissor por status.
func (r *TaskRepo) Summary(userID, emitterID string) ([]repository.TaskSummary, error) {
	query := `
		SELECT status, count(*)
		FROM tasks WHERE user_id = $1 AND emitter_id = $2
		GROUP BY status ORDER BY status`
	rows, err := r.q.Query(context.Background(), query, userID, emitterID)
	if err != nil {
		return nil, fmt.Errorf("task summary: %w", err)
	}
	defer rows.Close()
	var list []repository.TaskSummary
	for rows.Next() {
		var s repository.TaskSummary
		if err := rows.Scan(&s.Status, &s.Count); err != nil {
			return nil, fmt.Errorf("scan task summary: %w", err)
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// UpdateStatus troca o status da task registrando o retorno do motor.
func (r *TaskRepo) UpdateStatus(id, userID, status, message string) error {
	query := `UPDATE tasks SET status = $3, message = $4, updated_at = now() WHERE id = $1 AND user_id = $2`
	tag, err := r.q.Exec(context.Background(), query, id, userID, status, message)
	if err != nil {
		return fmt.Errorf("update task status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var _ repository.DPSCounterRepository = (*DPSCounterRepo)(nil)

// DPSCounterRepo numeração de DPS por (emissor, série), atômica no banco.
type DPSCounterRepo struct {
	q Querier
}

// NewDPSCounterRepository constrói o contador de DPS.
func NewDPSCounterRepository(q Querier) *DPSCounterRepo {
	return &DPSCounterRepo{q: q}
}

// Next reserva e devolve o próximo número da série. Números reservados nunca
// são reaproveitados, mesmo que a task correspondente falhe depois.
func (r *DPSCounterRepo) Next(emitterID, series string) (int64, error) {
	query := `
		INSERT INTO dps_counters (emitter_id, series, last_number)
		VALUES ($1, $2, 1)
		ON CONFLICT (emitter_id, series)
		DO UPDATE SET last_number = dps_counters.last_number + 1
		RETURNING last_number`
	var n int64
	if err := r.q.QueryRow(context.Background(), query, emitterID, series).Scan(&n); err != nil {
		return 0, fmt.Errorf("next dps number: %w", err)
	}
	return n, nil
}
