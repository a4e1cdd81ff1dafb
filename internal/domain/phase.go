package domain

// Shows devolve os shows julgados na fase. Hoje cada fase nasce de exatamente um show;
// uma fase com vários shows só precisa mudar aqui.
func (p Phase) Shows() []ShowID {
	return []ShowID{p.ShowID}
}

// ActivePhase procura a fase ativa numa lista de fases do mesmo evento.
// Mais de uma fase ativa é falha de consistência, nunca corrigida aqui.
func ActivePhase(phases []Phase) (Phase, bool, error) {
	var (
		active Phase
		found  int
	)
	for _, p := range phases {
		if p.Status == PhaseActive {
			if found == 0 {
				active = p
			}
			found++
		}
	}
	switch {
	case found > 1:
		return Phase{}, false, Inconsistent("evento %s tem %d fases ativas", active.EventID, found)
	case found == 0:
		return Phase{}, false, nil
	}
	return active, true, nil
}

// NextPhase devolve a fase de ordem imediatamente superior a current.
func NextPhase(phases []Phase, current Phase) (Phase, bool) {
	var (
		next  Phase
		found bool
	)
	for _, p := range phases {
		if p.Order <= current.Order {
			continue
		}
		if !found || p.Order < next.Order {
			next = p
			found = true
		}
	}
	return next, found
}

// FirstPending devolve a fase pendente de menor ordem.
func FirstPending(phases []Phase) (Phase, bool) {
	var (
		first Phase
		found bool
	)
	for _, p := range phases {
		if p.Status != PhasePending {
			continue
		}
		if !found || p.Order < first.Order {
			first = p
			found = true
		}
	}
	return first, found
}
