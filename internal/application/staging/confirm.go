package staging

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/notafacil/nfse-api/internal/application/dto"
	"github.com/notafacil/nfse-api/internal/domain"
	"github.com/notafacil/nfse-api/internal/domain/entity"
	"github.com/notafacil/nfse-api/internal/domain/repository"
	"github.com/notafacil/nfse-api/pkg/logger"
)

// ConfirmUseCase transforma rascunhos ativos em tasks de emissão. O lote é
// processado item a item: cada falha entra na lista de erros da resposta sem
// desfazer os itens já confirmados — falha parcial é o resultado esperado.
type ConfirmUseCase struct {
	emitters repository.EmitterRepository
	clients  repository.ClientRepository
	drafts   repository.DraftRepository
	tasks    repository.TaskRepository
	counter  repository.DPSCounterRepository
	log      *logger.Logger
}

// NewConfirmUseCase constrói o caso de uso de confirmação.
func NewConfirmUseCase(
	emitters repository.EmitterRepository,
	clients repository.ClientRepository,
	drafts repository.DraftRepository,
	tasks repository.TaskRepository,
	counter repository.DPSCounterRepository,
	log *logger.Logger,
) *ConfirmUseCase {
	return &ConfirmUseCase{emitters: emitters, clients: clients, drafts: drafts,
		tasks: tasks, counter: counter, log: log}
}

// ConfirmFromDrafts confirma os rascunhos informados para o emissor. Todos os
// rascunhos devem pertencer ao mesmo emissor do pedido.
func (uc *ConfirmUseCase) ConfirmFromDrafts(userID string, req dto.ConfirmRequest) (*dto.ConfirmResponse, error) {
	if req.EmitterID == "" {
		return nil, fmt.Errorf("%w: emitterId é obrigatório", domain.ErrInvalidInput)
	}
	if len(req.DraftIDs) == 0 {
		return nil, fmt.Errorf("%w: informe draftIds", domain.ErrInvalidInput)
	}

	emitter, err := uc.emitters.GetByID(req.EmitterID, userID)
	if err != nil {
		return nil, fmt.Errorf("buscando emissor: %w", err)
	}
	if emitter == nil {
		return nil, fmt.Errorf("emissor: %w", domain.ErrNotFound)
	}

	series := emitter.DPSSeries
	if series == "" {
		series = "00001"
	}

	resp := &dto.ConfirmResponse{TaskIDs: []string{}, Errors: []dto.ConfirmItemError{}}
	created := 0

	seen := map[string]bool{}
	for _, draftID := range req.DraftIDs {
		if seen[draftID] {
			continue
		}
		seen[draftID] = true

		taskID, err := uc.confirmOne(userID, emitter, series, draftID)
		if err != nil {
			resp.Errors = append(resp.Errors, dto.ConfirmItemError{DraftID: draftID, Reason: err.Error()})
			continue
		}
		resp.TaskIDs = append(resp.TaskIDs, taskID)
		created++
	}

	if created == 1 {
		resp.Message = "1 solicitação criada com sucesso"
	} else {
		resp.Message = fmt.Sprintf("%d solicitações criadas com sucesso", created)
	}

	uc.log.Info().Str("emitter_id", req.EmitterID).Int("created", created).
		Int("erros", len(resp.Errors)).Msg("confirmação de rascunhos")
	return resp, nil
}

// confirmOne confirma um único rascunho: valida estado, resolve o tomador,
// reserva o número de DPS, cria a task snapshot e consome o rascunho.
func (uc *ConfirmUseCase) confirmOne(userID string, emitter *entity.Emitter, series, draftID string) (string, error) {
	draft, err := uc.drafts.GetByID(draftID, userID)
	if err != nil {
		return "", fmt.Errorf("buscando rascunho: %w", err)
	}
	if draft == nil {
		return "", domain.ErrNotFound
	}
	if draft.EmitterID != emitter.ID {
		return "", domain.ErrEmitterMismatch
	}
	if draft.Status != entity.DraftStatusActive {
		return "", fmt.Errorf("%w: status %s", domain.ErrConflict, draft.Status)
	}

	client, err := uc.resolveClient(userID, emitter.ID, draft.ClientID)
	if err != nil {
		return "", err
	}

	number, err := uc.counter.Next(emitter.ID, series)
	if err != nil {
		return "", fmt.Errorf("reservando número de DPS: %w", err)
	}

	now := time.Now().UTC()
	task := &entity.Task{
		ID:          uuid.NewString(),
		UserID:      userID,
		EmitterID:   emitter.ID,
		ClientID:    client.ID,
		DraftID:     draft.ID,
		Description: draft.Description,
		Amount:      draft.Amount,
		Competency:  draft.Competency,
		ServiceCode: draft.ServiceCode,
		TaxRate:     draft.TaxRate,
		DPS:         entity.DPS{Series: series, Number: number},
		Status:      entity.TaskStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := uc.tasks.Create(task); err != nil {
		return "", fmt.Errorf("criando task: %w", err)
	}

	if err := uc.drafts.MarkConfirmed(draft.ID, userID, task.ID); err != nil {
		// A task já existe; o rascunho inconsistente aparece na lista de erros
		// e pode ser reprocessado.
		return "", fmt.Errorf("consumindo rascunho: %w", err)
	}
	return task.ID, nil
}

// resolveClient busca o tomador do rascunho; sem cliente (ou inativo), cai no
// tomador não identificado do emissor.
func (uc *ConfirmUseCase) resolveClient(userID, emitterID, clientID string) (*entity.Client, error) {
	if clientID != "" {
		client, err := uc.clients.GetByID(clientID, userID)
		if err != nil {
			return nil, fmt.Errorf("buscando cliente: %w", err)
		}
		if client != nil && client.Active {
			return client, nil
		}
	}
	client, err := uc.clients.GetUnidentified(emitterID, userID)
	if err != nil {
		return nil, fmt.Errorf("buscando tomador não identificado: %w", err)
	}
	if client == nil {
		return nil, domain.ErrUnresolvedClient
	}
	return client, nil
}
