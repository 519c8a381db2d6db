package repository

import "github.com/notafacil/nfse-api/internal/domain/entity"

// TaskFilter filtros de listagem de tasks de emissão.
type TaskFilter struct {
	EmitterID string
	ClientID  string
	Status    string
	From      string // competência YYYY-MM-DD inclusive
	To        string
	Limit     int
	Offset    int
}

// TaskSummary agregado por status para o painel do emissor.
type TaskSummary struct {
	Status string
	Count  int
}

// TaskRepository define o porto de persistência para Task.
type TaskRepository interface {
	Create(task *entity.Task) error
	GetByID(id, userID string) (*entity.Task, error)
	List(userID string, filter TaskFilter) ([]*entity.Task, error)
	Summary(userID, emitterID string) ([]TaskSummary, error)
	UpdateStatus(id, userID, status, message string) error
}

// DPSCounterRepository contador atômico de numeração de DPS por (emissor, série).
type DPSCounterRepository interface {
	// Next reserva e devolve o próximo número da série do emissor.
	Next(emitterID, series string) (int64, error)
}
