// Package session implementa o núcleo de sessão do lado cliente: a projeção
// local dos rascunhos por emissor (com tokens de cerca contra respostas
// atrasadas), o conjunto de seleção independente de paginação, as ações
// guardadas contra reentrância e o poller de jobs de importação.
package session

import (
	"context"

	"github.com/notafacil/nfse-api/internal/application/dto"
)

// Client superfície da API consumida pelo núcleo de sessão. A implementação
// HTTP vive em infrastructure/api; os tests usam fakes.
type Client interface {
	ListDrafts(ctx context.Context, emitterID, status string) ([]dto.DraftResponse, error)
	PreviewUpload(ctx context.Context, emitterID, filename string, content []byte, persist bool) (*dto.PreviewResponse, error)
	ImportDrafts(ctx context.Context, req dto.DraftImportRequest) (*dto.DraftImportResponse, error)
	Reconcile(ctx context.Context, req dto.ReconcileRequest) (*dto.ReconcileResponse, error)
	ConfirmFromDrafts(ctx context.Context, req dto.ConfirmRequest) (*dto.ConfirmResponse, error)
	DeleteDraft(ctx context.Context, draftID string) error
	SubmitImport(ctx context.Context, filename string, content []byte) (string, error)
	GetImportStatus(ctx context.Context, jobID string) (*dto.ImportStatusResponse, error)
}

// Notifier capacidade injetada de avisar o usuário (toast, stderr, log).
// Nunca um global: quem constrói a sessão decide o destino.
type Notifier interface {
	Success(msg string)
	Error(msg string)
	Info(msg string)
}

// Confirmer capacidade injetada de pedir confirmação ao usuário (modal,
// prompt). Devolve true se o usuário confirmou.
type Confirmer interface {
	Confirm(ctx context.Context, question string) bool
}

// HandleStore persistência durável do handle do job em acompanhamento, para
// retomar o polling após reinício do processo.
type HandleStore interface {
	Save(jobID string) error
	// Load devolve "" sem erro quando não há handle salvo.
	Load() (string, error)
	Clear() error
}
