package entity

import "time"

// Status de job de importação em massa de clientes.
const (
	ImportJobPending  = "pending"
	ImportJobRunning  = "running"
	ImportJobFinished = "finished"
	ImportJobError    = "error"
)

// ImportRowError erro de uma linha específica da planilha importada.
type ImportRowError struct {
	Row      int    `json:"linha"`
	Document string `json:"documento"`
	Reason   string `json:"erro"`
}

// ImportJob progresso de uma importação em massa de clientes, atualizado pelo
// worker em segundo plano conforme as linhas são processadas.
type ImportJob struct {
	ID         string
	UserID     string
	Filename   string
	Status     string
	Total      int
	Processed  int
	Inserted   int
	Skipped    int
	Errors     []ImportRowError
	Message    string // detalhe quando Status == error
	CreatedAt  time.Time
	UpdatedAt  time.Time
	FinishedAt *time.Time
}

// Terminal indica se o job não muda mais de estado.
func (j *ImportJob) Terminal() bool {
	return j.Status == ImportJobFinished || j.Status == ImportJobError
}
