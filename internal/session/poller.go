package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/notafacil/nfse-api/internal/application/dto"
	"github.com/notafacil/nfse-api/internal/domain"
	"github.com/notafacil/nfse-api/pkg/logger"
)

// DefaultPollInterval intervalo entre consultas de status do job.
const DefaultPollInterval = 10 * time.Second

// Poller acompanha um job de importação de clientes em background. Só existe
// um job acompanhado por vez: Track de um novo job encerra o loop anterior.
// O handle é persistido via HandleStore para sobreviver a reinícios.
type Poller struct {
	mu       sync.Mutex
	api      Client
	notify   Notifier
	handles  HandleStore
	log      *logger.Logger
	interval time.Duration

	jobID  string
	last   *dto.ImportStatusResponse
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller constrói o poller; interval <= 0 usa DefaultPollInterval.
func NewPoller(api Client, notify Notifier, handles HandleStore, log *logger.Logger, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{api: api, notify: notify, handles: handles, log: log, interval: interval}
}

// Track começa a acompanhar o job e devolve a função que encerra o loop.
// O loop anterior, se houver, é cancelado antes. O handle é gravado de forma
// durável antes do primeiro poll.
func (p *Poller) Track(ctx context.Context, jobID string) (stop func(), err error) {
	if jobID == "" {
		return nil, fmt.Errorf("%w: job_id é obrigatório", domain.ErrInvalidInput)
	}

	p.mu.Lock()
	p.stopLocked()
	if err := p.handles.Save(jobID); err != nil {
		p.mu.Unlock()
		return nil, fmt.Errorf("persistindo handle do job: %w", err)
	}
	p.jobID = jobID
	p.last = nil

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done
	p.mu.Unlock()

	go p.loop(loopCtx, jobID, done)

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.jobID == jobID {
			p.stopLocked()
		}
	}, nil
}

// Resume retoma o acompanhamento do handle salvo, se houver. Devolve o job
// retomado ou "" quando não havia nada pendente.
func (p *Poller) Resume(ctx context.Context) (string, error) {
	jobID, err := p.handles.Load()
	if err != nil {
		return "", fmt.Errorf("lendo handle do job: %w", err)
	}
	if jobID == "" {
		return "", nil
	}
	if _, err := p.Track(ctx, jobID); err != nil {
		return "", err
	}
	return jobID, nil
}

// Status devolve o último status observado do job acompanhado (ou nil). O
// último status terminal fica disponível até Dismiss.
func (p *Poller) Status() *dto.ImportStatusResponse {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return nil
	}
	st := *p.last
	return &st
}

// Dismiss descarta o último status exibido (o usuário fechou o aviso).
func (p *Poller) Dismiss() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = nil
}

// Stop encerra o loop corrente, sem limpar o handle durável: um Resume
// posterior volta a acompanhar o mesmo job.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Poller) stopLocked() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.done = nil
	p.jobID = ""
}

func (p *Poller) loop(ctx context.Context, jobID string, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// Primeiro poll imediato, para não esperar o intervalo inteiro depois do
	// submit.
	if p.poll(ctx, jobID) {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if p.poll(ctx, jobID) {
				return
			}
		}
	}
}

// poll consulta o status uma vez; devolve true quando o loop deve parar.
func (p *Poller) poll(ctx context.Context, jobID string) bool {
	status, err := p.api.GetImportStatus(ctx, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			// Job desconhecido pelo servidor (expirou ou outro processo já
			// consumiu): limpa em silêncio, sem alarmar o usuário.
			p.clearHandle(jobID)
			return true
		}
		if ctx.Err() != nil {
			return true
		}
		// Falha transitória de rede: mantém o loop, tenta de novo no próximo
		// tick.
		p.log.Warn().Err(err).Str("job_id", jobID).Msg("falha ao consultar status do job")
		return false
	}

	p.mu.Lock()
	if p.jobID == jobID {
		p.last = status
	}
	p.mu.Unlock()

	switch status.Status {
	case "finished":
		p.notify.Success(fmt.Sprintf("Importação concluída: %d inseridos, %d ignorados, %d erros",
			status.Inserted, status.Skipped, len(status.Errors)))
		p.clearHandle(jobID)
		return true
	case "error":
		msg := status.Message
		if msg == "" {
			msg = "erro não especificado"
		}
		p.notify.Error(fmt.Sprintf("Importação falhou: %s", msg))
		p.clearHandle(jobID)
		return true
	}
	return false
}

// clearHandle limpa o handle durável e o estado do loop, preservando o último
// status para exibição até Dismiss. Um loop atrasado de um job antigo não pode
// limpar o handle do job corrente, por isso a checagem de posse sob o lock.
func (p *Poller) clearHandle(jobID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.jobID != jobID {
		return
	}
	if err := p.handles.Clear(); err != nil {
		p.log.Warn().Err(err).Msg("falha ao limpar handle do job")
	}
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.done = nil
	p.jobID = ""
}
