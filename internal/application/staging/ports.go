package staging

import (
	"context"

	"github.com/notafacil/nfse-api/internal/domain/repository"
)

// ReconcileTxRunner executa fn dentro de uma transação de BD, passando o
// repositório de rascunhos atado a essa transação. Commit se fn devolver nil,
// Rollback caso contrário.
type ReconcileTxRunner interface {
	Run(ctx context.Context, fn func(tx repository.DraftTxRepository) error) error
}

// TableReader porto de leitura tabular (XLSX/CSV). A implementação devolve as
// linhas como mapas coluna canônica → valor bruto, preservando a ordem.
type TableReader interface {
	Read(filename string, content []byte) ([]map[string]string, error)
}
