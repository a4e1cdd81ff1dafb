package scoring

import (
	"cmp"
	"math"
	"slices"

	"github.com/marcelojr/pageant-scoring/internal/domain"
)

// RankingInput é tudo que o cálculo precisa, lido de uma única visão do banco.
type RankingInput struct {
	// Contestants são apenas as candidatas elegíveis na fase.
	Contestants []domain.Contestant
	Shows       []domain.Show
	Criteria    []domain.Criteria
	Scores      []domain.Score
}

type tally struct {
	sum   float64
	count int
}

// Rank calcula o total ponderado de cada candidata e ordena por total decrescente,
// desempatando pelo número da candidata.
//
// Por critério usa a média entre jurados; critério sem nota contribui 0.
// Pesos são normalizados pela soma observada, e soma zero vira peso igual.
func Rank(in RankingInput) ([]domain.Result, error) {
	criteriaByID := make(map[domain.CriteriaID]domain.Criteria, len(in.Criteria))
	criteriaByShow := make(map[domain.ShowID][]domain.Criteria, len(in.Shows))
	for _, c := range in.Criteria {
		criteriaByID[c.ID] = c
		criteriaByShow[c.ShowID] = append(criteriaByShow[c.ShowID], c)
	}

	eligible := make(map[domain.ContestantID]bool, len(in.Contestants))
	for _, c := range in.Contestants {
		eligible[c.ID] = true
	}

	tallies := make(map[domain.ContestantID]map[domain.CriteriaID]*tally, len(in.Contestants))
	for _, s := range in.Scores {
		c, ok := criteriaByID[s.CriteriaID]
		if !ok {
			continue
		}
		if s.ShowID != c.ShowID {
			return nil, domain.Inconsistent("nota %s aponta show %s mas o criterio %s pertence ao show %s", s.ID, s.ShowID, c.ID, c.ShowID)
		}
		if !eligible[s.ContestantID] {
			continue
		}
		byCriteria, ok := tallies[s.ContestantID]
		if !ok {
			byCriteria = make(map[domain.CriteriaID]*tally)
			tallies[s.ContestantID] = byCriteria
		}
		t, ok := byCriteria[s.CriteriaID]
		if !ok {
			t = &tally{}
			byCriteria[s.CriteriaID] = t
		}
		t.sum += s.Value
		t.count++
	}

	showWeights := make([]float64, len(in.Shows))
	for i, sh := range in.Shows {
		showWeights[i] = sh.Weight
	}

	results := make([]domain.Result, 0, len(in.Contestants))
	for _, contestant := range in.Contestants {
		r := domain.Result{
			ContestantID:     contestant.ID,
			ContestantNumber: contestant.ContestantNumber,
			Name:             contestant.Name,
			Shows:            make([]domain.ShowTotal, 0, len(in.Shows)),
			Breakdown:        []domain.CriterionBreakdown{},
		}

		var total float64
		for i, sh := range in.Shows {
			crits := criteriaByShow[sh.ID]
			weights := make([]float64, len(crits))
			for j, c := range crits {
				weights[j] = c.Weight
			}

			var showScore float64
			for j, c := range crits {
				var mean float64
				var judges int
				if t := tallies[contestant.ID][c.ID]; t != nil && t.count > 0 {
					mean = t.sum / float64(t.count)
					judges = t.count
				}
				contribution := mean * share(weights, j)
				showScore += contribution
				r.Breakdown = append(r.Breakdown, domain.CriterionBreakdown{
					CriteriaID:   c.ID,
					ShowID:       sh.ID,
					Name:         c.Name,
					MeanScore:    round(mean),
					JudgeCount:   judges,
					Contribution: round(contribution),
				})
			}

			r.Shows = append(r.Shows, domain.ShowTotal{ShowID: sh.ID, Name: sh.Name, Score: round(showScore)})
			total += showScore * share(showWeights, i)
		}

		r.TotalScore = round(total)
		results = append(results, r)
	}

	slices.SortStableFunc(results, func(a, b domain.Result) int {
		if c := cmp.Compare(b.TotalScore, a.TotalScore); c != 0 {
			return c
		}
		return cmp.Compare(a.ContestantNumber, b.ContestantNumber)
	})
	for i := range results {
		results[i].Rank = i + 1
	}

	return results, nil
}

// share devolve a fração do peso i sobre a soma dos pesos.
func share(weights []float64, i int) float64 {
	var sum float64
	for _, w := range weights {
		sum += w
	}
	if sum <= 0 {
		return 1 / float64(len(weights))
	}
	return weights[i] / sum
}

// round corta ruído de ponto flutuante para que totais iguais empatem de fato.
func round(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
