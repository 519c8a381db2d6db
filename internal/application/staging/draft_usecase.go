package staging

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/notafacil/nfse-api/internal/application/dto"
	"github.com/notafacil/nfse-api/internal/domain"
	"github.com/notafacil/nfse-api/internal/domain/entity"
	"github.com/notafacil/nfse-api/internal/domain/repository"
	"github.com/notafacil/nfse-api/pkg/fiscal"
	"github.com/notafacil/nfse-api/pkg/logger"
)

// DraftUseCase CRUD de rascunhos e import em lote com semântica de grupo de
// duplicidade: por padrão upsert no rascunho ativo do (emissor, cliente, mês);
// com force_new sempre cria um novo rascunho com seq incrementado.
type DraftUseCase struct {
	emitters repository.EmitterRepository
	clients  repository.ClientRepository
	drafts   repository.DraftRepository
	rates    repository.TaxRateRepository
	log      *logger.Logger
}

// NewDraftUseCase constrói o caso de uso de rascunhos.
func NewDraftUseCase(
	emitters repository.EmitterRepository,
	clients repository.ClientRepository,
	drafts repository.DraftRepository,
	rates repository.TaxRateRepository,
	log *logger.Logger,
) *DraftUseCase {
	return &DraftUseCase{emitters: emitters, clients: clients, drafts: drafts, rates: rates, log: log}
}

// ImportDrafts processa o lote item a item. Itens inválidos são ignorados e
// contados em Skipped; alíquota ausente para a competência aborta o lote.
func (uc *DraftUseCase) ImportDrafts(userID string, req dto.DraftImportRequest) (*dto.DraftImportResponse, error) {
	if req.EmitterID == "" {
		return nil, fmt.Errorf("%w: emitterId é obrigatório", domain.ErrInvalidInput)
	}
	emitter, err := uc.emitters.GetByID(req.EmitterID, userID)
	if err != nil {
		return nil, fmt.Errorf("buscando emissor: %w", err)
	}
	if emitter == nil {
		return nil, fmt.Errorf("emissor: %w", domain.ErrNotFound)
	}

	resp := &dto.DraftImportResponse{DraftIDs: []string{}}
	rateCache := map[string]decimal.Decimal{}

	for _, item := range req.Items {
		id, created, err := uc.importItem(userID, req.EmitterID, item, rateCache)
		if err != nil {
			if errors.Is(err, domain.ErrMissingTaxRate) {
				return nil, err
			}
			uc.log.Warn().Err(err).Str("emitter_id", req.EmitterID).Msg("item de rascunho ignorado")
			resp.Skipped++
			continue
		}
		resp.DraftIDs = append(resp.DraftIDs, id)
		if created {
			resp.Created++
		} else {
			resp.Updated++
		}
	}

	resp.Message = fmt.Sprintf("%d rascunhos criados, %d atualizados, %d ignorados",
		resp.Created, resp.Updated, resp.Skipped)
	return resp, nil
}

// importItem valida e grava um item. Devolve (id, criado?, erro).
func (uc *DraftUseCase) importItem(userID, emitterID string, item dto.DraftImportItem,
	rateCache map[string]decimal.Decimal) (string, bool, error) {

	if item.ClientID == "" {
		return "", false, domain.ErrUnresolvedClient
	}
	client, err := uc.clients.GetByID(item.ClientID, userID)
	if err != nil {
		return "", false, fmt.Errorf("buscando cliente: %w", err)
	}
	if client == nil || !client.Active {
		return "", false, domain.ErrUnresolvedClient
	}

	amount, ok := fiscal.ParseValor(item.Amount)
	if !ok || amount.LessThanOrEqual(decimal.Zero) {
		return "", false, fmt.Errorf("%w: valor inválido", domain.ErrInvalidInput)
	}

	comp, ok := fiscal.NormalizeCompetencia(firstNonEmpty(item.EmissionDate, item.Competency), false)
	if !ok {
		return "", false, fmt.Errorf("%w: competência inválida", domain.ErrInvalidInput)
	}

	rate, err := uc.resolveRate(emitterID, comp.Month, rateCache)
	if err != nil {
		return "", false, err
	}

	serviceCode := item.ServiceCode
	if serviceCode == "" {
		serviceCode = fiscal.DefaultCTN
	} else if canon, cerr := fiscal.CanonicalCTN(serviceCode); cerr == nil {
		serviceCode = canon
	} else {
		return "", false, fmt.Errorf("%w: código de serviço inválido", domain.ErrInvalidInput)
	}

	now := time.Now().UTC()
	uniqKey := fmt.Sprintf("%s:%s:%s", emitterID, item.ClientID, comp.Month)

	draft := &entity.Draft{
		UserID:           userID,
		EmitterID:        emitterID,
		ClientID:         item.ClientID,
		Document:         fiscal.SanitizeDocument(item.Document),
		ClientName:       firstNonEmpty(item.ClientName, client.Name),
		Description:      item.Description,
		Amount:           amount,
		Competency:       comp.Full,
		CompetencyMonth:  comp.Month,
		ServiceCode:      serviceCode,
		TaxRate:          rate,
		MunicipalityIBGE: firstNonEmpty(item.MunicipalityIBGE, client.MunicipalityIBGE),
		Country:          firstNonEmpty(item.Country, "BRASIL"),
		TaxWithheld:      item.TaxWithheld,
		EmissionDate:     firstNonEmpty(item.EmissionDate, comp.Full+"T00:00:00-03:00"),
		Status:           entity.DraftStatusActive,
		UniqKey:          uniqKey,
		Source:           entity.DraftSourceManual,
		UpdatedAt:        now,
	}

	if item.ForceNew {
		// Novo rascunho no grupo: continua a numeração e herda o group id.
		group, err := uc.drafts.ListGroup(userID, emitterID, item.ClientID, comp.Month, nil)
		if err != nil {
			return "", false, fmt.Errorf("listando grupo: %w", err)
		}
		groupID := uniqKey
		nextSeq := 1
		if len(group) > 0 {
			if group[0].DuplicateGroupID != "" {
				groupID = group[0].DuplicateGroupID
			}
			nextSeq = maxSeq(group) + 1
		}
		draft.ID = uuid.NewString()
		draft.DuplicateGroupID = groupID
		draft.Seq = nextSeq
		draft.UniqKey = fmt.Sprintf("%s:%d", uniqKey, nextSeq)
		draft.CreatedAt = now
		if err := uc.drafts.Create(draft); err != nil {
			return "", false, fmt.Errorf("criando rascunho: %w", err)
		}
		return draft.ID, true, nil
	}

	// Upsert: substitui o rascunho ativo mais recente do grupo, se houver.
	existing, err := uc.drafts.FindOpenByGroup(userID, emitterID, item.ClientID, comp.Month)
	if err != nil {
		return "", false, fmt.Errorf("buscando rascunho do grupo: %w", err)
	}
	if existing != nil {
		draft.ID = existing.ID
		draft.DuplicateGroupID = existing.DuplicateGroupID
		draft.Seq = existing.Seq
		draft.CreatedAt = existing.CreatedAt
		if err := uc.drafts.Update(draft); err != nil {
			return "", false, fmt.Errorf("atualizando rascunho: %w", err)
		}
		return draft.ID, false, nil
	}

	draft.ID = uuid.NewString()
	draft.DuplicateGroupID = uniqKey
	draft.Seq = 1
	draft.CreatedAt = now
	if err := uc.drafts.Create(draft); err != nil {
		return "", false, fmt.Errorf("criando rascunho: %w", err)
	}
	return draft.ID, true, nil
}

func (uc *DraftUseCase) resolveRate(emitterID, compMonth string, cache map[string]decimal.Decimal) (decimal.Decimal, error) {
	if v, ok := cache[compMonth]; ok {
		return v, nil
	}
	year, month, ok := splitMonth(compMonth)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w (%s)", domain.ErrMissingTaxRate, compMonth)
	}
	rate, err := uc.rates.GetForMonth(emitterID, year, month)
	if err != nil {
		return decimal.Zero, fmt.Errorf("buscando alíquota: %w", err)
	}
	if rate == nil {
		rate, err = uc.rates.GetLatestUpTo(emitterID, year, month)
		if err != nil {
			return decimal.Zero, fmt.Errorf("buscando alíquota: %w", err)
		}
	}
	if rate == nil || rate.Rate.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, fmt.Errorf("%w (%s)", domain.ErrMissingTaxRate, compMonth)
	}
	cache[compMonth] = rate.Rate
	return rate.Rate, nil
}

// Get devolve um rascunho do usuário.
func (uc *DraftUseCase) Get(userID, draftID string) (*dto.DraftResponse, error) {
	d, err := uc.drafts.GetByID(draftID, userID)
	if err != nil {
		return nil, fmt.Errorf("buscando rascunho: %w", err)
	}
	if d == nil {
		return nil, fmt.Errorf("rascunho: %w", domain.ErrNotFound)
	}
	resp := dto.DraftFromEntity(d)
	return &resp, nil
}

// List devolve os rascunhos do emissor ordenados por (mês, seq).
func (uc *DraftUseCase) List(userID string, filter repository.DraftFilter) ([]dto.DraftResponse, error) {
	if filter.EmitterID == "" {
		return []dto.DraftResponse{}, nil
	}
	list, err := uc.drafts.List(userID, filter)
	if err != nil {
		return nil, fmt.Errorf("listando rascunhos: %w", err)
	}
	out := make([]dto.DraftResponse, 0, len(list))
	for _, d := range list {
		out = append(out, dto.DraftFromEntity(d))
	}
	return out, nil
}

// Update altera campos de um rascunho ativo. Payload idêntico ainda atualiza
// o timestamp (o chamador decide se isso importa).
func (uc *DraftUseCase) Update(userID, draftID string, req dto.DraftUpdateRequest) error {
	d, err := uc.drafts.GetByID(draftID, userID)
	if err != nil {
		return fmt.Errorf("buscando rascunho: %w", err)
	}
	if d == nil {
		return fmt.Errorf("rascunho: %w", domain.ErrNotFound)
	}
	if !d.Editable() {
		return domain.ErrDraftNotEditable
	}

	if req.Description != nil {
		d.Description = *req.Description
	}
	if req.Amount != nil {
		amount, ok := fiscal.ParseValor(*req.Amount)
		if !ok || amount.LessThanOrEqual(decimal.Zero) {
			return fmt.Errorf("%w: valor inválido", domain.ErrInvalidInput)
		}
		d.Amount = amount
	}
	if req.Competency != nil {
		comp, ok := fiscal.NormalizeCompetencia(*req.Competency, false)
		if !ok {
			return fmt.Errorf("%w: competência inválida", domain.ErrInvalidInput)
		}
		d.Competency = comp.Full
		d.CompetencyMonth = comp.Month
	}
	if req.ServiceCode != nil {
		canon, cerr := fiscal.CanonicalCTN(*req.ServiceCode)
		if cerr != nil {
			return fmt.Errorf("%w: código de serviço inválido", domain.ErrInvalidInput)
		}
		d.ServiceCode = canon
	}
	if req.MunicipalityIBGE != nil {
		d.MunicipalityIBGE = *req.MunicipalityIBGE
	}
	if req.Country != nil {
		d.Country = *req.Country
	}
	if req.TaxWithheld != nil {
		d.TaxWithheld = *req.TaxWithheld
	}
	if req.EmissionDate != nil {
		d.EmissionDate = *req.EmissionDate
	}

	d.UpdatedAt = time.Now().UTC()
	if err := uc.drafts.Update(d); err != nil {
		return fmt.Errorf("atualizando rascunho: %w", err)
	}
	return nil
}

// Delete remove um rascunho do usuário.
func (uc *DraftUseCase) Delete(userID, draftID string) error {
	d, err := uc.drafts.GetByID(draftID, userID)
	if err != nil {
		return fmt.Errorf("buscando rascunho: %w", err)
	}
	if d == nil {
		return fmt.Errorf("rascunho: %w", domain.ErrNotFound)
	}
	if err := uc.drafts.Delete(draftID, userID); err != nil {
		return fmt.Errorf("removendo rascunho: %w", err)
	}
	return nil
}

// Duplicate cria uma cópia do rascunho com o próximo seq do grupo.
func (uc *DraftUseCase) Duplicate(userID, draftID string) (string, error) {
	original, err := uc.drafts.GetByID(draftID, userID)
	if err != nil {
		return "", fmt.Errorf("buscando rascunho: %w", err)
	}
	if original == nil {
		return "", fmt.Errorf("rascunho: %w", domain.ErrNotFound)
	}
	if !original.Editable() {
		return "", domain.ErrDraftNotEditable
	}

	group, err := uc.drafts.ListGroup(userID, original.EmitterID, original.ClientID, original.CompetencyMonth, nil)
	if err != nil {
		return "", fmt.Errorf("listando grupo: %w", err)
	}
	nextSeq := maxSeq(group) + 1

	now := time.Now().UTC()
	copy := *original
	copy.ID = uuid.NewString()
	copy.Seq = nextSeq
	copy.DuplicateGroupID = firstNonEmpty(original.DuplicateGroupID, original.UniqKey)
	copy.UniqKey = fmt.Sprintf("%s:%d", original.UniqKey, nextSeq)
	copy.TaskID = ""
	copy.CreatedAt = now
	copy.UpdatedAt = now

	if err := uc.drafts.Create(&copy); err != nil {
		return "", fmt.Errorf("duplicando rascunho: %w", err)
	}
	return copy.ID, nil
}

func maxSeq(drafts []*entity.Draft) int {
	max := 0
	for _, d := range drafts {
		if d.Seq > max {
			max = d.Seq
		}
	}
	return max
}
