// Package tasks consulta e acompanha as tasks de emissão geradas pela
// confirmação de rascunhos: listagem com filtros, resumo por status,
// solicitação de cancelamento e exportação de relatório em XLSX.
package tasks

import (
	"fmt"
	"time"

	"github.com/notafacil/nfse-api/internal/application/dto"
	"github.com/notafacil/nfse-api/internal/domain"
	"github.com/notafacil/nfse-api/internal/domain/entity"
	"github.com/notafacil/nfse-api/internal/domain/repository"
	"github.com/notafacil/nfse-api/pkg/logger"
)

// TaskUseCase operações de consulta e acompanhamento das tasks de emissão.
type TaskUseCase struct {
	tasks    repository.TaskRepository
	emitters repository.EmitterRepository
	clients  repository.ClientRepository
	log      *logger.Logger
}

// NewTaskUseCase constrói o caso de uso de tasks.
func NewTaskUseCase(
	tasks repository.TaskRepository,
	emitters repository.EmitterRepository,
	clients repository.ClientRepository,
	log *logger.Logger,
) *TaskUseCase {
	return &TaskUseCase{tasks: tasks, emitters: emitters, clients: clients, log: log}
}

// MonthRange devolve o primeiro e o último dia do mês no formato YYYY-MM-DD,
// para filtrar por competência.
func MonthRange(year, month int) (from, to string, err error) {
	if year < 2000 || month < 1 || month > 12 {
		return "", "", fmt.Errorf("%w: competência inválida (%d-%d)", domain.ErrInvalidInput, year, month)
	}
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return first.Format("2006-01-02"), last.Format("2006-01-02"), nil
}

// List devolve as tasks do usuário, da mais recente para a mais antiga.
func (uc *TaskUseCase) List(userID string, filter repository.TaskFilter) ([]dto.TaskResponse, error) {
	list, err := uc.tasks.List(userID, filter)
	if err != nil {
		return nil, fmt.Errorf("listando tasks: %w", err)
	}
	out := make([]dto.TaskResponse, 0, len(list))
	for _, t := range list {
		out = append(out, dto.TaskFromEntity(t))
	}
	return out, nil
}

// Get devolve uma task do usuário.
func (uc *TaskUseCase) Get(userID, taskID string) (*dto.TaskResponse, error) {
	t, err := uc.tasks.GetByID(taskID, userID)
	if err != nil {
		return nil, fmt.Errorf("buscando task: %w", err)
	}
	if t == nil {
		return nil, fmt.Errorf("task: %w", domain.ErrNotFound)
	}
	resp := dto.TaskFromEntity(t)
	return &resp, nil
}

// Summary agrega as tasks do emissor por status, para o painel.
func (uc *TaskUseCase) Summary(userID, emitterID string) ([]dto.TaskSummaryResponse, error) {
	if emitterID == "" {
		return nil, fmt.Errorf("%w: emitterId é obrigatório", domain.ErrInvalidInput)
	}
	rows, err := uc.tasks.Summary(userID, emitterID)
	if err != nil {
		return nil, fmt.Errorf("resumo de tasks: %w", err)
	}
	out := make([]dto.TaskSummaryResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, dto.TaskSummaryResponse{Status: r.Status, Count: r.Count})
	}
	return out, nil
}

// RequestCancel marca uma task aceita como cancelamento solicitado; o motor de
// cancelamento externo consome essa marcação. Apenas tasks accepted podem ser
// canceladas.
func (uc *TaskUseCase) RequestCancel(userID, taskID, reason string) error {
	t, err := uc.tasks.GetByID(taskID, userID)
	if err != nil {
		return fmt.Errorf("buscando task: %w", err)
	}
	if t == nil {
		return fmt.Errorf("task: %w", domain.ErrNotFound)
	}
	if t.Status != entity.TaskStatusAccepted {
		return domain.ErrTaskNotCancelable
	}

	if reason == "" {
		reason = "Cancelamento solicitado pelo usuário"
	}
	if err := uc.tasks.UpdateStatus(taskID, userID, entity.TaskStatusCancelRequest, reason); err != nil {
		return fmt.Errorf("marcando cancelamento: %w", err)
	}
	uc.log.Info().Str("task_id", taskID).Msg("cancelamento de NFS-e solicitado")
	return nil
}
