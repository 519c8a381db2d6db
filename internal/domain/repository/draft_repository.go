package repository

import "github.com/notafacil/nfse-api/internal/domain/entity"

// DraftFilter filtros de listagem de rascunhos. Status vazio ou "active"
// cobre os rascunhos em aberto (active + invalid).
type DraftFilter struct {
	EmitterID string
	Status    string
	ClientID  string
}

// DraftRepository define o porto de persistência para Draft.
type DraftRepository interface {
	Create(draft *entity.Draft) error
	// UpsertByUniqKey cria ou substitui o rascunho com a mesma
	// (user_id, uniq_key, status); mantém a prévia idempotente.
	UpsertByUniqKey(draft *entity.Draft) error
	GetByID(id, userID string) (*entity.Draft, error)
	// List devolve os rascunhos ordenados por (mês de competência asc, seq asc).
	List(userID string, filter DraftFilter) ([]*entity.Draft, error)
	// ListGroup devolve os rascunhos ativos do grupo (emissor, cliente, mês),
	// opcionalmente excluindo IDs já conhecidos.
	ListGroup(userID, emitterID, clientID, compMonth string, excludeIDs []string) ([]*entity.Draft, error)
	// FindOpenByGroup devolve o rascunho ativo mais recente do grupo, para upsert.
	FindOpenByGroup(userID, emitterID, clientID, compMonth string) (*entity.Draft, error)
	Update(draft *entity.Draft) error
	Delete(id, userID string) error
	// MarkConfirmed marca o rascunho como confirmado e grava a task gerada.
	MarkConfirmed(id, userID, taskID string) error
}

// DraftTxRepository operações do Draft executadas dentro de uma transação da
// reconciliação.
type DraftTxRepository interface {
	// DeleteByPreviewIndices apaga rascunhos em aberto do lote de preview cujos
	// índices estão em indices mas não em keep. Devolve o total apagado.
	DeleteByPreviewIndices(userID, emitterID, previewBatchID string, indices, keep []int) (int, error)
	// ListKeptByPreview devolve os rascunhos em aberto do lote cujos índices estão em keep.
	ListKeptByPreview(userID, emitterID, previewBatchID string, keep []int) ([]*entity.Draft, error)
	// UpdateGrouping grava duplicate_group_id e seq de um rascunho mantido.
	UpdateGrouping(id, groupID string, seq int) error
	// ListGroup igual ao do DraftRepository, mas dentro da transação.
	ListGroup(userID, emitterID, clientID, compMonth string, excludeIDs []string) ([]*entity.Draft, error)
}
