// Package imports implementa a importação em massa de clientes por planilha,
// processada em segundo plano com progresso consultável por job.
package imports

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/notafacil/nfse-api/internal/application/staging"
	"github.com/notafacil/nfse-api/internal/domain"
	"github.com/notafacil/nfse-api/internal/domain/entity"
	"github.com/notafacil/nfse-api/internal/domain/repository"
	"github.com/notafacil/nfse-api/pkg/fiscal"
	"github.com/notafacil/nfse-api/pkg/logger"
)

// Options ajustes do processamento em lote.
type Options struct {
	// RowThrottle pausa entre linhas que consultam o serviço de endereço,
	// para respeitar o rate limit do provedor. Zero desliga.
	RowThrottle time.Duration
	// LookupTimeout timeout por consulta de endereço.
	LookupTimeout time.Duration
}

// ImportUseCase importação em massa de clientes. Submit devolve imediatamente
// com o job em pending; um goroutine processa as linhas atualizando o
// progresso no repositório a cada uma.
type ImportUseCase struct {
	jobs     repository.ImportJobRepository
	clients  repository.ClientRepository
	emitters repository.EmitterRepository
	reader   staging.TableReader
	lookup   AddressLookup
	opts     Options
	log      *logger.Logger
}

// NewImportUseCase constrói o caso de uso. lookup pode ser nil (sem
// enriquecimento de endereço).
func NewImportUseCase(
	jobs repository.ImportJobRepository,
	clients repository.ClientRepository,
	emitters repository.EmitterRepository,
	reader staging.TableReader,
	lookup AddressLookup,
	opts Options,
	log *logger.Logger,
) *ImportUseCase {
	if opts.LookupTimeout <= 0 {
		opts.LookupTimeout = 10 * time.Second
	}
	return &ImportUseCase{
		jobs:     jobs,
		clients:  clients,
		emitters: emitters,
		reader:   reader,
		lookup:   lookup,
		opts:     opts,
		log:      log,
	}
}

// Submit registra o job e dispara o processamento em segundo plano.
func (uc *ImportUseCase) Submit(userID, filename string, content []byte) (*entity.ImportJob, error) {
	lower := strings.ToLower(filename)
	if !strings.HasSuffix(lower, ".xlsx") && !strings.HasSuffix(lower, ".csv") {
		return nil, fmt.Errorf("%w: arquivo inválido (esperado .xlsx ou .csv)", domain.ErrInvalidInput)
	}

	now := time.Now().UTC()
	job := &entity.ImportJob{
		ID:        uuid.NewString(),
		UserID:    userID,
		Filename:  filename,
		Status:    entity.ImportJobPending,
		Errors:    []entity.ImportRowError{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.jobs.Create(job); err != nil {
		return nil, fmt.Errorf("registrando job de importação: %w", err)
	}

	go uc.process(job.ID, userID, filename, content)

	uc.log.Info().Str("job_id", job.ID).Str("filename", filename).Msg("importação de clientes iniciada")
	return job, nil
}

// Status devolve o progresso do job ou ErrJobNotFound.
func (uc *ImportUseCase) Status(userID, jobID string) (*entity.ImportJob, error) {
	job, err := uc.jobs.GetByID(jobID, userID)
	if err != nil {
		return nil, fmt.Errorf("buscando job: %w", err)
	}
	if job == nil {
		return nil, domain.ErrJobNotFound
	}
	return job, nil
}

// process roda no goroutine de fundo. Qualquer falha estrutural (planilha
// ilegível, colunas erradas) encerra o job em error; falhas por linha apenas
// acumulam em Errors.
func (uc *ImportUseCase) process(jobID, userID, filename string, content []byte) {
	job, err := uc.jobs.GetByID(jobID, userID)
	if err != nil || job == nil {
		uc.log.Error().Err(err).Str("job_id", jobID).Msg("job de importação sumiu antes do processamento")
		return
	}

	fail := func(reason string) {
		now := time.Now().UTC()
		job.Status = entity.ImportJobError
		job.Message = reason
		job.UpdatedAt = now
		job.FinishedAt = &now
		if err := uc.jobs.Update(job); err != nil {
			uc.log.Error().Err(err).Str("job_id", jobID).Msg("falha ao gravar erro do job")
		}
	}

	rows, err := uc.reader.Read(filename, content)
	if err != nil {
		fail(fmt.Sprintf("planilha ilegível: %v", err))
		return
	}
	if len(rows) == 0 {
		fail("planilha vazia")
		return
	}
	for _, col := range []string{"cpf_cnpj", "nome", "cep", "numero", "emissores_cnpjs"} {
		if _, ok := rows[0][col]; !ok {
			fail("planilha inválida: colunas esperadas documento (CNPJ/CPF), nome, cep, numero, emissores_cnpjs")
			return
		}
	}

	// CNPJs dos emissores do usuário, para o vínculo por linha.
	emitters, err := uc.emitters.ListByUser(userID)
	if err != nil {
		fail(fmt.Sprintf("carregando emissores: %v", err))
		return
	}
	emitterByCNPJ := map[string]string{}
	for _, e := range emitters {
		if e.CNPJ != "" {
			emitterByCNPJ[e.CNPJ] = e.ID
		}
	}

	job.Status = entity.ImportJobRunning
	job.Total = len(rows)
	job.UpdatedAt = time.Now().UTC()
	if err := uc.jobs.Update(job); err != nil {
		uc.log.Error().Err(err).Str("job_id", jobID).Msg("falha ao marcar job como running")
	}

	for i, row := range rows {
		if err := uc.processRow(userID, row, emitterByCNPJ); err != nil {
			job.Skipped++
			job.Errors = append(job.Errors, entity.ImportRowError{
				Row:      i + 2,
				Document: row["cpf_cnpj"],
				Reason:   err.Error(),
			})
		} else {
			job.Inserted++
		}
		job.Processed = i + 1
		job.UpdatedAt = time.Now().UTC()
		if err := uc.jobs.Update(job); err != nil {
			uc.log.Error().Err(err).Str("job_id", jobID).Msg("falha ao gravar progresso do job")
		}
		if uc.opts.RowThrottle > 0 && i < len(rows)-1 {
			time.Sleep(uc.opts.RowThrottle)
		}
	}

	now := time.Now().UTC()
	job.Status = entity.ImportJobFinished
	job.UpdatedAt = now
	job.FinishedAt = &now
	if err := uc.jobs.Update(job); err != nil {
		uc.log.Error().Err(err).Str("job_id", jobID).Msg("falha ao finalizar job")
	}
	uc.log.Info().Str("job_id", jobID).Int("inserted", job.Inserted).Int("skipped", job.Skipped).
		Msg("importação de clientes concluída")
}

// processRow valida e insere o cliente de uma linha.
func (uc *ImportUseCase) processRow(userID string, row map[string]string, emitterByCNPJ map[string]string) error {
	docRaw := strings.TrimSpace(row["cpf_cnpj"])
	name := strings.TrimSpace(row["nome"])
	cep := fiscal.SanitizeDocument(row["cep"])
	number := strings.TrimSpace(row["numero"])

	doc, err := normalizeImportDocument(docRaw)
	if err != nil {
		return err
	}
	if doc == "" {
		return fmt.Errorf("Documento obrigatório não informado")
	}
	if len(cep) > 0 && len(cep) < 8 {
		cep = strings.Repeat("0", 8-len(cep)) + cep
	}

	kind, digits, err := fiscal.IdentifyDocument(doc)
	if err != nil {
		return fmt.Errorf("documento inválido: %s", docRaw)
	}

	existing, err := uc.clients.GetByDocument(digits, userID)
	if err != nil {
		return fmt.Errorf("consultando duplicidade: %v", err)
	}
	if existing != nil {
		return fmt.Errorf("Cliente com este documento já existe para este usuário")
	}

	// Vínculo com emissores por CNPJ (múltiplos separados por vírgula).
	var emitterIDs []string
	for _, part := range strings.Split(row["emissores_cnpjs"], ",") {
		cnpj := fiscal.SanitizeDocument(strings.TrimSpace(part))
		if cnpj == "" {
			continue
		}
		if id, ok := emitterByCNPJ[cnpj]; ok {
			emitterIDs = append(emitterIDs, id)
		}
	}

	client := &entity.Client{
		ID:         uuid.NewString(),
		UserID:     userID,
		Name:       name,
		CEP:        cep,
		Number:     number,
		EmitterIDs: emitterIDs,
		Active:     true,
	}
	switch kind {
	case fiscal.DocumentCPF:
		client.CPF = digits
	case fiscal.DocumentCNPJ:
		client.CNPJ = digits
	}

	// Enriquecimento de endereço por CEP, melhor esforço.
	if uc.lookup != nil && len(cep) == 8 {
		ctx, cancel := context.WithTimeout(context.Background(), uc.opts.LookupTimeout)
		addr, lerr := uc.lookup.Lookup(ctx, cep)
		cancel()
		if lerr != nil {
			uc.log.Warn().Err(lerr).Str("cep", cep).Msg("falha na consulta de endereço")
		} else if addr != nil {
			client.Street = addr.Street
			client.District = addr.District
			client.City = addr.City
			client.State = addr.State
			client.MunicipalityIBGE = addr.MunicipalityIBGE
		}
	}

	if client.CPF != "" && client.Name == "" {
		return fmt.Errorf("Nome obrigatório para CPF")
	}
	if client.CPF != "" && client.CEP == "" {
		return fmt.Errorf("CEP obrigatório para CPF")
	}
	if client.Number == "" {
		return fmt.Errorf("Número do logradouro é obrigatório")
	}
	if client.Name == "" {
		return fmt.Errorf("Nome não informado")
	}

	now := time.Now().UTC()
	client.CreatedAt = now
	client.UpdatedAt = now
	if err := uc.clients.Create(client); err != nil {
		return fmt.Errorf("gravando cliente: %v", err)
	}
	return nil
}

// normalizeImportDocument completa com zeros à esquerda documentos truncados
// pela planilha: até 11 dígitos vira CPF, de 12 a 14 vira CNPJ.
func normalizeImportDocument(raw string) (string, error) {
	doc := fiscal.SanitizeDocument(raw)
	switch {
	case doc == "":
		return "", nil
	case len(doc) <= 11:
		return strings.Repeat("0", 11-len(doc)) + doc, nil
	case len(doc) <= 14:
		return strings.Repeat("0", 14-len(doc)) + doc, nil
	default:
		return "", fmt.Errorf("Documento com %d dígitos inválido: %s", len(doc), raw)
	}
}
