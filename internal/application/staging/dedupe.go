// Package staging implementa o fluxo de preparação de NFS-e: prévia e
// validação de lotes, detecção e reconciliação de duplicidades, CRUD de
// rascunhos e confirmação em lote.
package staging

import (
	"fmt"
	"sort"

	"github.com/notafacil/nfse-api/internal/application/dto"
	"github.com/notafacil/nfse-api/internal/domain"
)

// AnonGroupKey marcador de grupo para linhas sem documento resolvidas no
// tomador não identificado. Todas as linhas anônimas de um mesmo mês caem no
// mesmo grupo.
const AnonGroupKey = "ANON"

// DuplicateKey monta a chave de particionamento de duplicidades:
// cliente (ou documento, ou ANON) + mês de competência + emissor.
func DuplicateKey(clientID, documentDigits, compMonth, emitterID string) string {
	id := clientID
	if id == "" {
		id = documentDigits
	}
	if id == "" {
		id = AnonGroupKey
	}
	return fmt.Sprintf("%s|%s|%s", id, compMonth, emitterID)
}

// FindDuplicateGroups particiona as linhas da prévia por chave de duplicidade
// e devolve apenas os grupos com duas ou mais linhas, que exigem reconciliação.
// Linhas cujo cliente não foi resolvido e que não são elegíveis ao tomador
// anônimo (têm documento, mas ele não bateu com nenhum cliente) invalidam o
// lote inteiro, válidas ou não: duplicidade não pode ser decidida sobre
// identidade incerta. Todas as linhas entram no particionamento, inclusive as
// inválidas; cada linha pertence a exatamente um grupo.
func FindDuplicateGroups(emitterID string, lines []dto.PreviewLine) ([]dto.DuplicateGroupDTO, error) {
	for _, l := range lines {
		if l.ClientID == "" && l.Document != "" {
			return nil, fmt.Errorf("linha %d: %w", l.Index, domain.ErrUnresolvedClient)
		}
	}

	byKey := make(map[string][]int)
	for _, l := range lines {
		key := DuplicateKey(l.ClientID, l.Document, l.CompetencyMonth, emitterID)
		byKey[key] = append(byKey[key], l.Index)
	}

	groups := make([]dto.DuplicateGroupDTO, 0)
	for key, indices := range byKey {
		if len(indices) < 2 {
			continue
		}
		sort.Ints(indices)
		groups = append(groups, dto.DuplicateGroupDTO{Key: key, Indices: indices})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Indices[0] < groups[j].Indices[0] })
	return groups, nil
}
