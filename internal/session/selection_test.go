package session_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/notafacil/nfse-api/internal/session"
)

// ──────────────────────────────────────────────────────────────────────────────
// Conjunto de seleção
// ──────────────────────────────────────────────────────────────────────────────

func TestSelection_TriEstado(t *testing.T) {
	store := session.NewStore(newFakeAPI(), &fakeNotifier{}, &fakeConfirmer{})
	sel := store.Selection(testEmitter)
	filtered := []string{"a", "b", "c"}

	assert.Equal(t, session.SelectionNone, sel.State(filtered))

	sel.Toggle("a")
	assert.Equal(t, session.SelectionSome, sel.State(filtered))

	sel.SetAllFiltered(filtered, true)
	assert.Equal(t, session.SelectionAll, sel.State(filtered))

	sel.SetAllFiltered(filtered, false)
	assert.Equal(t, session.SelectionNone, sel.State(filtered))

	assert.Equal(t, session.SelectionNone, sel.State(nil),
		"conjunto filtrado vazio conta como nenhum selecionado")
}

// Selecionar tudo age sobre o conjunto lógico filtrado inteiro, não sobre a
// página visível; e não mexe no que está selecionado fora do filtro atual.
func TestSelection_SetAllFiltradoPreservaForaDoFiltro(t *testing.T) {
	store := session.NewStore(newFakeAPI(), &fakeNotifier{}, &fakeConfirmer{})
	sel := store.Selection(testEmitter)

	sel.Toggle("fora") // selecionado sob outro filtro
	sel.SetAllFiltered([]string{"a", "b"}, true)

	assert.True(t, sel.Selected("fora"), "seleção fora do filtro atual deve sobreviver")
	assert.Equal(t, 3, sel.Count())

	sel.SetAllFiltered([]string{"a", "b"}, false)
	assert.True(t, sel.Selected("fora"))
	assert.Equal(t, 1, sel.Count())
}

func TestSelection_IDsNaOrdemDoFiltro(t *testing.T) {
	store := session.NewStore(newFakeAPI(), &fakeNotifier{}, &fakeConfirmer{})
	sel := store.Selection(testEmitter)

	sel.Toggle("c")
	sel.Toggle("a")

	assert.Equal(t, []string{"a", "c"}, sel.IDs([]string{"a", "b", "c"}),
		"os IDs saem na ordem lógica do filtro, não na ordem de seleção")
}

func TestSelection_PruneRemoveInexistentes(t *testing.T) {
	store := session.NewStore(newFakeAPI(), &fakeNotifier{}, &fakeConfirmer{})
	sel := store.Selection(testEmitter)

	sel.Toggle("vivo")
	sel.Toggle("morto")
	sel.Prune(map[string]bool{"vivo": true})

	assert.True(t, sel.Selected("vivo"))
	assert.False(t, sel.Selected("morto"))
	assert.Equal(t, 1, sel.Count())
}
