package session

// TriState estado do indicador mestre de seleção sobre o conjunto filtrado.
type TriState int

const (
	SelectionNone TriState = iota
	SelectionSome
	SelectionAll
)

// Selection conjunto esparso de rascunhos selecionados de UM emissor. As
// operações em massa agem sobre o conjunto lógico filtrado+ordenado inteiro,
// nunca sobre a página visível.
type Selection struct {
	ids map[string]bool
}

func newSelection() *Selection {
	return &Selection{ids: map[string]bool{}}
}

// Toggle inverte a seleção de um rascunho.
func (s *Selection) Toggle(id string) {
	if s.ids[id] {
		delete(s.ids, id)
		return
	}
	s.ids[id] = true
}

// Selected indica se o rascunho está selecionado.
func (s *Selection) Selected(id string) bool {
	return s.ids[id]
}

// SetAllFiltered marca ou desmarca o conjunto filtrado inteiro. IDs já
// selecionados fora do filtro atual não são afetados.
func (s *Selection) SetAllFiltered(filteredIDs []string, selected bool) {
	for _, id := range filteredIDs {
		if selected {
			s.ids[id] = true
		} else {
			delete(s.ids, id)
		}
	}
}

// State devolve o tri-estado do conjunto filtrado: nenhum, alguns ou todos
// selecionados. Conjunto filtrado vazio conta como nenhum.
func (s *Selection) State(filteredIDs []string) TriState {
	if len(filteredIDs) == 0 {
		return SelectionNone
	}
	selected := 0
	for _, id := range filteredIDs {
		if s.ids[id] {
			selected++
		}
	}
	switch selected {
	case 0:
		return SelectionNone
	case len(filteredIDs):
		return SelectionAll
	default:
		return SelectionSome
	}
}

// IDs devolve os selecionados presentes no conjunto filtrado, na ordem do
// filtro (que é a ordem lógica de exibição).
func (s *Selection) IDs(filteredIDs []string) []string {
	out := make([]string, 0, len(s.ids))
	for _, id := range filteredIDs {
		if s.ids[id] {
			out = append(out, id)
		}
	}
	return out
}

// Count total de selecionados, incluindo os fora do filtro atual.
func (s *Selection) Count() int {
	return len(s.ids)
}

// Prune remove seleções de rascunhos que deixaram de existir na projeção.
func (s *Selection) Prune(alive map[string]bool) {
	for id := range s.ids {
		if !alive[id] {
			delete(s.ids, id)
		}
	}
}

// Remove tira IDs do conjunto (rascunhos que deixaram de existir).
func (s *Selection) Remove(ids ...string) {
	for _, id := range ids {
		delete(s.ids, id)
	}
}

// Clear esvazia o conjunto.
func (s *Selection) Clear() {
	s.ids = map[string]bool{}
}
