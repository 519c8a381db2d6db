// Package usecase reúne os CRUDs de apoio ao fluxo de emissão: emissores,
// clientes e alíquotas mensais.
package usecase

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/notafacil/nfse-api/internal/application/dto"
	"github.com/notafacil/nfse-api/internal/domain"
	"github.com/notafacil/nfse-api/internal/domain/entity"
	"github.com/notafacil/nfse-api/internal/domain/repository"
	"github.com/notafacil/nfse-api/pkg/fiscal"
)

// EmitterUseCase CRUD de emissores. Cada emissor ganha um cliente reservado
// "Tomador não identificado" que recebe as linhas de planilha sem documento.
type EmitterUseCase struct {
	emitters repository.EmitterRepository
	clients  repository.ClientRepository
}

// NewEmitterUseCase constrói o caso de uso de emissores.
func NewEmitterUseCase(emitters repository.EmitterRepository, clients repository.ClientRepository) *EmitterUseCase {
	return &EmitterUseCase{emitters: emitters, clients: clients}
}

// Create cadastra o emissor e o tomador não identificado associado.
func (uc *EmitterUseCase) Create(userID string, in dto.EmitterRequest) (*dto.EmitterResponse, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: razão social é obrigatória", domain.ErrInvalidInput)
	}
	kind, digits, err := fiscal.IdentifyDocument(in.Document)
	if err != nil {
		return nil, fmt.Errorf("%w: documento inválido", domain.ErrInvalidInput)
	}

	existing, err := uc.emitters.GetByCNPJ(digits, userID)
	if err != nil {
		return nil, fmt.Errorf("consultando documento: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: documento já cadastrado para este usuário", domain.ErrDuplicate)
	}

	series := in.DPSSeries
	if series == "" {
		series = "00001"
	}

	now := time.Now().UTC()
	emitter := &entity.Emitter{
		ID:               uuid.NewString(),
		UserID:           userID,
		Name:             name,
		TradeName:        strings.TrimSpace(in.TradeName),
		MunicipalityIBGE: in.MunicipalityIBGE,
		DPSSeries:        series,
		Active:           true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	switch kind {
	case fiscal.DocumentCNPJ:
		emitter.CNPJ = digits
	case fiscal.DocumentCPF:
		emitter.CPF = digits
	}
	if err := uc.emitters.Create(emitter); err != nil {
		return nil, err
	}

	// Tomador reservado para linhas sem documento.
	anon := &entity.Client{
		ID:           uuid.NewString(),
		UserID:       userID,
		Name:         "Tomador não identificado",
		Unidentified: true,
		EmitterIDs:   []string{emitter.ID},
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.clients.Create(anon); err != nil {
		return nil, fmt.Errorf("criando tomador não identificado: %w", err)
	}

	resp := dto.EmitterFromEntity(emitter)
	return &resp, nil
}

// Get devolve um emissor do usuário.
func (uc *EmitterUseCase) Get(userID, id string) (*dto.EmitterResponse, error) {
	e, err := uc.emitters.GetByID(id, userID)
	if err != nil {
		return nil, fmt.Errorf("buscando emissor: %w", err)
	}
	if e == nil {
		return nil, fmt.Errorf("emissor: %w", domain.ErrNotFound)
	}
	resp := dto.EmitterFromEntity(e)
	return &resp, nil
}

// List lista os emissores do usuário.
func (uc *EmitterUseCase) List(userID string) ([]dto.EmitterResponse, error) {
	list, err := uc.emitters.ListByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("listando emissores: %w", err)
	}
	out := make([]dto.EmitterResponse, 0, len(list))
	for _, e := range list {
		out = append(out, dto.EmitterFromEntity(e))
	}
	return out, nil
}

// Update altera os campos informados do emissor.
func (uc *EmitterUseCase) Update(userID, id string, in dto.EmitterRequest) (*dto.EmitterResponse, error) {
	e, err := uc.emitters.GetByID(id, userID)
	if err != nil {
		return nil, fmt.Errorf("buscando emissor: %w", err)
	}
	if e == nil {
		return nil, fmt.Errorf("emissor: %w", domain.ErrNotFound)
	}

	if name := strings.TrimSpace(in.Name); name != "" {
		e.Name = name
	}
	if in.TradeName != "" {
		e.TradeName = strings.TrimSpace(in.TradeName)
	}
	if in.Document != "" {
		kind, digits, derr := fiscal.IdentifyDocument(in.Document)
		if derr != nil {
			return nil, fmt.Errorf("%w: documento inválido", domain.ErrInvalidInput)
		}
		e.CNPJ, e.CPF = "", ""
		if kind == fiscal.DocumentCNPJ {
			e.CNPJ = digits
		} else {
			e.CPF = digits
		}
	}
	if in.MunicipalityIBGE != "" {
		e.MunicipalityIBGE = in.MunicipalityIBGE
	}
	if in.DPSSeries != "" {
		e.DPSSeries = in.DPSSeries
	}
	e.UpdatedAt = time.Now().UTC()

	if err := uc.emitters.Update(e); err != nil {
		return nil, fmt.Errorf("atualizando emissor: %w", err)
	}
	resp := dto.EmitterFromEntity(e)
	return &resp, nil
}

// Delete remove o emissor e desativa o tomador não identificado associado.
func (uc *EmitterUseCase) Delete(userID, id string) error {
	anon, err := uc.clients.GetUnidentified(id, userID)
	if err != nil {
		return fmt.Errorf("buscando tomador não identificado: %w", err)
	}
	if err := uc.emitters.Delete(id, userID); err != nil {
		return err
	}
	if anon != nil {
		if err := uc.clients.SetActive(anon.ID, userID, false); err != nil {
			return fmt.Errorf("desativando tomador não identificado: %w", err)
		}
	}
	return nil
}
