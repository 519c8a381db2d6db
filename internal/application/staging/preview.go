package staging

import (
	"fmt"
	"strconv"
	"strings"
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

// PreviewUseCase valida lotes (planilha ou entrada manual) e opcionalmente os
// grava como rascunhos marcados com o lote de prévia.
type PreviewUseCase struct {
	emitters repository.EmitterRepository
	clients  repository.ClientRepository
	drafts   repository.DraftRepository
	rates    repository.TaxRateRepository
	reader   TableReader
	log      *logger.Logger
}

// NewPreviewUseCase constrói o caso de uso de prévia.
func NewPreviewUseCase(
	emitters repository.EmitterRepository,
	clients repository.ClientRepository,
	drafts repository.DraftRepository,
	rates repository.TaxRateRepository,
	reader TableReader,
	log *logger.Logger,
) *PreviewUseCase {
	return &PreviewUseCase{
		emitters: emitters,
		clients:  clients,
		drafts:   drafts,
		rates:    rates,
		reader:   reader,
		log:      log,
	}
}

// PreviewUpload valida uma planilha enviada. Com persist=true, toda linha com
// cliente resolvido vira rascunho (active ou invalid) marcado com o lote.
func (uc *PreviewUseCase) PreviewUpload(userID, emitterID, filename string, content []byte,
	competencyDefault string, persist bool) (*dto.PreviewResponse, error) {

	emitter, err := uc.emitters.GetByID(emitterID, userID)
	if err != nil {
		return nil, fmt.Errorf("buscando emissor: %w", err)
	}
	if emitter == nil {
		return nil, fmt.Errorf("emissor: %w", domain.ErrNotFound)
	}

	rows, err := uc.reader.Read(filename, content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if err := requireColumns(rows, "cpf_cnpj", "valor", "descricao"); err != nil {
		return nil, err
	}

	previewBatchID := uuid.NewString()
	rateCache := map[string]decimal.Decimal{}

	lines := make([]dto.PreviewLine, 0, len(rows))
	for i, row := range rows {
		line := uc.validateRow(userID, emitterID, i+2, row, competencyDefault, rateCache, persist)
		lines = append(lines, line)
	}

	if persist {
		// Importação parcial contra clientes desconhecidos é proibida: uma
		// linha com documento que não bateu com nenhum cliente derruba o lote
		// inteiro antes de qualquer gravação.
		for _, l := range lines {
			if l.ClientID == "" && l.Document != "" {
				return nil, fmt.Errorf("linha %d: %w", l.Index, domain.ErrUnresolvedClient)
			}
		}
		if err := uc.persistLines(userID, emitterID, previewBatchID, lines); err != nil {
			return nil, err
		}
	}

	resp := &dto.PreviewResponse{Lines: lines, PreviewBatchID: previewBatchID}
	for _, l := range lines {
		if l.OK {
			resp.Valid++
		} else {
			resp.Invalid++
		}
	}
	uc.log.Info().Str("emitter_id", emitterID).Str("preview_batch_id", previewBatchID).
		Int("validas", resp.Valid).Int("invalidas", resp.Invalid).Bool("persist", persist).
		Msg("prévia processada")
	return resp, nil
}

// PreviewManual valida uma entrada manual única. Com persist=false apenas
// valida (o salvamento passa pelo import de rascunhos, que trata force_new).
func (uc *PreviewUseCase) PreviewManual(userID, emitterID string, entry dto.PreviewManualEntry,
	persist bool) (*dto.PreviewResponse, error) {

	emitter, err := uc.emitters.GetByID(emitterID, userID)
	if err != nil {
		return nil, fmt.Errorf("buscando emissor: %w", err)
	}
	if emitter == nil {
		return nil, fmt.Errorf("emissor: %w", domain.ErrNotFound)
	}

	row := map[string]string{
		"cpf_cnpj":       entry.Document,
		"cliente_nome":   entry.ClientName,
		"descricao":      entry.Description,
		"valor":          entry.Amount,
		"competencia":    entry.Competency,
		"cod_servico":    entry.ServiceCode,
		"municipio_ibge": entry.MunicipalityIBGE,
		"pais_prestacao": entry.Country,
		"dataemissao":    entry.EmissionDate,
	}
	if entry.TaxWithheld {
		row["iss_retido"] = "true"
	}

	rateCache := map[string]decimal.Decimal{}
	line := uc.validateRow(userID, emitterID, 2, row, "", rateCache, persist)

	previewBatchID := uuid.NewString()
	if persist && line.OK {
		if err := uc.persistLines(userID, emitterID, previewBatchID, []dto.PreviewLine{line}); err != nil {
			return nil, err
		}
	}

	resp := &dto.PreviewResponse{Lines: []dto.PreviewLine{line}, PreviewBatchID: previewBatchID}
	if line.OK {
		resp.Valid = 1
	} else {
		resp.Invalid = 1
	}
	return resp, nil
}

// validateRow aplica as regras de validação de uma linha e resolve cliente,
// competência, CTN e alíquota.
func (uc *PreviewUseCase) validateRow(userID, emitterID string, index int, row map[string]string,
	competencyDefault string, rateCache map[string]decimal.Decimal, persisting bool) dto.PreviewLine {

	var errs []string

	digits := fiscal.SanitizeDocument(row["cpf_cnpj"])

	var client *entity.Client
	var err error
	if digits != "" {
		client, err = uc.clients.GetByDocument(digits, userID)
		if err != nil {
			errs = append(errs, "erro consultando cliente")
		} else if client == nil {
			errs = append(errs, domain.ErrUnresolvedClient.Error())
		}
	} else {
		// Sem documento: cai no tomador não identificado do emissor, se houver.
		client, err = uc.clients.GetUnidentified(emitterID, userID)
		if err != nil || client == nil {
			errs = append(errs, domain.ErrUnresolvedClient.Error())
		}
	}

	amount, ok := fiscal.ParseValor(row["valor"])
	if !ok || amount.LessThanOrEqual(decimal.Zero) {
		errs = append(errs, "Valor inválido")
	}

	description := strings.TrimSpace(row["descricao"])
	if description == "" {
		errs = append(errs, "Descrição obrigatória")
	}

	serviceCode := strings.TrimSpace(row["cod_servico"])
	if serviceCode == "" {
		serviceCode = fiscal.DefaultCTN
	} else if canon, cerr := fiscal.CanonicalCTN(serviceCode); cerr != nil {
		errs = append(errs, "Código de serviço inválido")
	} else {
		serviceCode = canon
	}

	compRaw := firstNonEmpty(row["dataemissao"], row["competencia"], competencyDefault)
	comp, _ := fiscal.NormalizeCompetencia(compRaw, true)

	emissionDate := strings.TrimSpace(row["dataemissao"])
	if emissionDate == "" {
		emissionDate = comp.Full + "T00:00:00-03:00"
	}

	rate, rerr := uc.rateForMonth(emitterID, comp.Month, rateCache)
	if rerr != nil && persisting {
		// Sem alíquota não há como gravar o rascunho com valor correto.
		errs = append(errs, fmt.Sprintf("%s (%s)", domain.ErrMissingTaxRate.Error(), comp.Month))
	}

	line := dto.PreviewLine{
		Index:            index,
		Errors:           errs,
		Document:         digits,
		ClientName:       strings.TrimSpace(row["cliente_nome"]),
		Description:      description,
		Amount:           amount,
		Competency:       comp.Full,
		CompetencyMonth:  comp.Month,
		ServiceCode:      serviceCode,
		TaxRate:          rate,
		MunicipalityIBGE: strings.TrimSpace(row["municipio_ibge"]),
		Country:          firstNonEmpty(row["pais_prestacao"], "BRASIL"),
		TaxWithheld:      parseBool(row["iss_retido"]),
		EmissionDate:     emissionDate,
	}
	if client != nil {
		line.ClientID = client.ID
		if line.ClientName == "" {
			line.ClientName = client.Name
		}
		if line.MunicipalityIBGE == "" {
			line.MunicipalityIBGE = client.MunicipalityIBGE
		}
	}
	line.OK = len(errs) == 0
	return line
}

// rateForMonth resolve a alíquota da competência: mês exato, senão a mais
// recente anterior ou igual. Cacheia por mês dentro do lote.
func (uc *PreviewUseCase) rateForMonth(emitterID, compMonth string, cache map[string]decimal.Decimal) (decimal.Decimal, error) {
	if v, ok := cache[compMonth]; ok {
		if v.IsZero() {
			return v, domain.ErrMissingTaxRate
		}
		return v, nil
	}

	year, month, ok := splitMonth(compMonth)
	if !ok {
		return decimal.Zero, domain.ErrMissingTaxRate
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
		cache[compMonth] = decimal.Zero
		return decimal.Zero, domain.ErrMissingTaxRate
	}
	cache[compMonth] = rate.Rate
	return rate.Rate, nil
}

// persistLines grava as linhas com cliente resolvido como rascunhos do lote,
// com upsert por chave para manter idempotência dentro do mesmo preview.
func (uc *PreviewUseCase) persistLines(userID, emitterID, previewBatchID string, lines []dto.PreviewLine) error {
	now := time.Now().UTC()
	for _, l := range lines {
		if l.ClientID == "" {
			continue
		}
		status := entity.DraftStatusActive
		if !l.OK {
			status = entity.DraftStatusInvalid
		}

		// Descrição e valor entram na chave para distinguir linhas legítimas
		// iguais em cliente+mês dentro do mesmo arquivo.
		uniqKey := fmt.Sprintf("%s:%s:%s:%s:%s",
			emitterID, l.ClientID, l.CompetencyMonth, hashDescription(l.Description), l.Amount.String())

		draft := &entity.Draft{
			ID:               uuid.NewString(),
			UserID:           userID,
			EmitterID:        emitterID,
			ClientID:         l.ClientID,
			Document:         l.Document,
			ClientName:       l.ClientName,
			Description:      l.Description,
			Amount:           l.Amount,
			Competency:       l.Competency,
			CompetencyMonth:  l.CompetencyMonth,
			ServiceCode:      l.ServiceCode,
			TaxRate:          l.TaxRate,
			MunicipalityIBGE: l.MunicipalityIBGE,
			Country:          l.Country,
			TaxWithheld:      l.TaxWithheld,
			EmissionDate:     l.EmissionDate,
			Status:           status,
			Errors:           l.Errors,
			UniqKey:          uniqKey,
			PreviewBatchID:   previewBatchID,
			PreviewIndex:     l.Index,
			Source:           entity.DraftSourceSpreadsheet,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := uc.drafts.UpsertByUniqKey(draft); err != nil {
			return fmt.Errorf("gravando rascunho da linha %d: %w", l.Index, err)
		}
	}
	return nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

func requireColumns(rows []map[string]string, cols ...string) error {
	if len(rows) == 0 {
		return fmt.Errorf("%w: planilha vazia", domain.ErrInvalidInput)
	}
	for _, c := range cols {
		if _, ok := rows[0][c]; !ok {
			return fmt.Errorf("%w: colunas obrigatórias ausentes: cpf_cnpj, valor, descricao", domain.ErrInvalidInput)
		}
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "sim", "s", "yes", "y":
		return true
	}
	return false
}

func splitMonth(compMonth string) (year, month int, ok bool) {
	parts := strings.SplitN(compMonth, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	y, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || m < 1 || m > 12 {
		return 0, 0, false
	}
	return y, m, true
}

// hashDescription resumo curto e estável da descrição para compor a chave do
// rascunho sem carregar o texto inteiro.
func hashDescription(s string) string {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return strconv.FormatUint(uint64(h), 16)
}
