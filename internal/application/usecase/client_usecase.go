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

// ClientUseCase CRUD de clientes (tomadores). Remoção é soft delete: o
// cliente fica inativo e some da resolução de documento nas prévias.
type ClientUseCase struct {
	clients repository.ClientRepository
}

// NewClientUseCase constrói o caso de uso de clientes.
func NewClientUseCase(clients repository.ClientRepository) *ClientUseCase {
	return &ClientUseCase{clients: clients}
}

// Create cadastra um cliente. Documento duplicado por usuário é rejeitado.
func (uc *ClientUseCase) Create(userID string, in dto.ClientRequest) (*dto.ClientResponse, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: nome é obrigatório", domain.ErrInvalidInput)
	}
	kind, digits, err := fiscal.IdentifyDocument(in.Document)
	if err != nil {
		return nil, fmt.Errorf("%w: documento inválido", domain.ErrInvalidInput)
	}

	existing, err := uc.clients.GetByDocument(digits, userID)
	if err != nil {
		return nil, fmt.Errorf("consultando documento: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: documento já cadastrado para este usuário", domain.ErrDuplicate)
	}

	now := time.Now().UTC()
	client := &entity.Client{
		ID:               uuid.NewString(),
		UserID:           userID,
		Name:             name,
		Email:            strings.TrimSpace(in.Email),
		Phone:            strings.TrimSpace(in.Phone),
		CEP:              fiscal.SanitizeDocument(in.CEP),
		Street:           in.Street,
		Number:           in.Number,
		Complement:       in.Complement,
		District:         in.District,
		City:             in.City,
		State:            in.State,
		MunicipalityIBGE: in.MunicipalityIBGE,
		EmitterIDs:       in.EmitterIDs,
		Active:           true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if kind == fiscal.DocumentCPF {
		client.CPF = digits
	} else {
		client.CNPJ = digits
	}

	if err := uc.clients.Create(client); err != nil {
		return nil, err
	}
	resp := dto.ClientFromEntity(client)
	return &resp, nil
}

// Get devolve um cliente do usuário.
func (uc *ClientUseCase) Get(userID, id string) (*dto.ClientResponse, error) {
	c, err := uc.clients.GetByID(id, userID)
	if err != nil {
		return nil, fmt.Errorf("buscando cliente: %w", err)
	}
	if c == nil {
		return nil, fmt.Errorf("cliente: %w", domain.ErrNotFound)
	}
	resp := dto.ClientFromEntity(c)
	return &resp, nil
}

// List lista clientes do usuário com filtros e paginação.
func (uc *ClientUseCase) List(userID string, filter repository.ClientFilter) ([]dto.ClientResponse, int, error) {
	list, err := uc.clients.List(userID, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("listando clientes: %w", err)
	}
	total, err := uc.clients.Count(userID, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("contando clientes: %w", err)
	}
	out := make([]dto.ClientResponse, 0, len(list))
	for _, c := range list {
		out = append(out, dto.ClientFromEntity(c))
	}
	return out, total, nil
}

// Update altera os campos informados do cliente. O tomador não identificado é
// reservado e não pode ser editado.
func (uc *ClientUseCase) Update(userID, id string, in dto.ClientRequest) (*dto.ClientResponse, error) {
	c, err := uc.clients.GetByID(id, userID)
	if err != nil {
		return nil, fmt.Errorf("buscando cliente: %w", err)
	}
	if c == nil {
		return nil, fmt.Errorf("cliente: %w", domain.ErrNotFound)
	}
	if c.Unidentified {
		return nil, fmt.Errorf("%w: tomador não identificado é reservado", domain.ErrForbidden)
	}

	if name := strings.TrimSpace(in.Name); name != "" {
		c.Name = name
	}
	if in.Document != "" {
		kind, digits, derr := fiscal.IdentifyDocument(in.Document)
		if derr != nil {
			return nil, fmt.Errorf("%w: documento inválido", domain.ErrInvalidInput)
		}
		c.CPF, c.CNPJ = "", ""
		if kind == fiscal.DocumentCPF {
			c.CPF = digits
		} else {
			c.CNPJ = digits
		}
	}
	if in.Email != "" {
		c.Email = strings.TrimSpace(in.Email)
	}
	if in.Phone != "" {
		c.Phone = strings.TrimSpace(in.Phone)
	}
	if in.CEP != "" {
		c.CEP = fiscal.SanitizeDocument(in.CEP)
	}
	if in.Street != "" {
		c.Street = in.Street
	}
	if in.Number != "" {
		c.Number = in.Number
	}
	if in.Complement != "" {
		c.Complement = in.Complement
	}
	if in.District != "" {
		c.District = in.District
	}
	if in.City != "" {
		c.City = in.City
	}
	if in.State != "" {
		c.State = in.State
	}
	if in.MunicipalityIBGE != "" {
		c.MunicipalityIBGE = in.MunicipalityIBGE
	}
	if in.EmitterIDs != nil {
		c.EmitterIDs = in.EmitterIDs
	}
	c.UpdatedAt = time.Now().UTC()

	if err := uc.clients.Update(c); err != nil {
		return nil, fmt.Errorf("atualizando cliente: %w", err)
	}
	resp := dto.ClientFromEntity(c)
	return &resp, nil
}

// Deactivate desativa o cliente (soft delete).
func (uc *ClientUseCase) Deactivate(userID, id string) error {
	return uc.clients.SetActive(id, userID, false)
}

// Reactivate reativa um cliente desativado.
func (uc *ClientUseCase) Reactivate(userID, id string) error {
	return uc.clients.SetActive(id, userID, true)
}

// Stats conta clientes ativos e inativos do usuário.
func (uc *ClientUseCase) Stats(userID string) (*dto.ClientStatsResponse, error) {
	total, err := uc.clients.Count(userID, repository.ClientFilter{})
	if err != nil {
		return nil, fmt.Errorf("contando clientes: %w", err)
	}
	active, err := uc.clients.Count(userID, repository.ClientFilter{OnlyActive: true})
	if err != nil {
		return nil, fmt.Errorf("contando clientes ativos: %w", err)
	}
	return &dto.ClientStatsResponse{Total: total, Active: active, Inactive: total - active}, nil
}
