package crawler

import "github.com/PuerkitoBio/goquery"

// Candidate is a raw, unvalidated listing as found in the page
type Candidate struct {
	Title     string
	PriceText string
	Link      string
	Image     string
}

// StrategyOutcome is what a strategy produced
type StrategyOutcome struct {
	Name       string
	Candidates []Candidate
	Count      int
}

// Strategy locates listing candidates in a page snapshot
type Strategy struct {
	Name string
	Find func(doc *goquery.Document) []Candidate
}

// Run applies the strategy and tags the result with its name
func (s Strategy) Run(doc *goquery.Document) StrategyOutcome {
	candidates := s.Find(doc)
	return StrategyOutcome{
		Name:       s.Name,
		Candidates: candidates,
		Count:      len(candidates),
	}
}

// RunCascade tries strategies in order and returns the first outcome whose
// count exceeds minMatches. When none does, the outcome with the most
// candidates is returned, the earliest one on ties.
func RunCascade(doc *goquery.Document, strategies []Strategy, minMatches int) StrategyOutcome {
	var best StrategyOutcome
	for i, strategy := range strategies {
		outcome := strategy.Run(doc)
		if outcome.Count > minMatches {
			return outcome
		}
		if i == 0 || outcome.Count > best.Count {
			best = outcome
		}
	}
	return best
}
