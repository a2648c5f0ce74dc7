// Package match scores normalized document text against disease
// templates by weighted keyword occurrence.
package match

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/clinovia/medextract/internal/entity"
)

// DefaultThreshold is the confidence floor a template must strictly
// exceed to qualify. 25 tolerates OCR noise without matching on
// incidental vocabulary.
const DefaultThreshold = 25.0

// KeywordMatch is matching evidence: one keyword and how often it
// occurred in the text.
type KeywordMatch struct {
	Keyword string `json:"keyword"`
	Count   int    `json:"count"`
}

// Result is the winning template with its confidence and evidence.
type Result struct {
	Template   entity.DiseaseTemplate
	Confidence float64
	Matches    []KeywordMatch
}

type Matcher struct {
	threshold float64
	logger    *slog.Logger
}

func NewMatcher(threshold float64, logger *slog.Logger) *Matcher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{threshold: threshold, logger: logger}
}

// Best returns the highest-confidence template strictly above the
// threshold, or nil when none qualifies. Templates are visited in
// identifier order and ties keep the earlier template, so the outcome
// is independent of input ordering.
func (m *Matcher) Best(text string, templates []entity.DiseaseTemplate) *Result {
	ordered := make([]entity.DiseaseTemplate, len(templates))
	copy(ordered, templates)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].ID.String() < ordered[j].ID.String()
	})

	var best *Result
	bestConf := m.threshold
	for _, t := range ordered {
		if len(t.Keywords) == 0 {
			continue
		}
		score, matches := scoreTemplate(text, t.Keywords)
		conf := confidence(score, len(t.Keywords))
		m.logger.Debug("match.scored",
			"template", t.Name, "score", score, "confidence", conf)
		if conf > bestConf {
			best = &Result{Template: t, Confidence: conf, Matches: matches}
			bestConf = conf
		}
	}
	return best
}

// scoreTemplate counts whole-word, case-insensitive occurrences of each
// keyword. Word boundaries matter: "flu" must not score inside
// "influenza".
func scoreTemplate(text string, keywords []string) (int, []KeywordMatch) {
	score := 0
	var matches []KeywordMatch
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(kw) + `\b`)
		if err != nil {
			continue
		}
		n := len(re.FindAllStringIndex(text, -1))
		if n > 0 {
			score += n
			matches = append(matches, KeywordMatch{Keyword: kw, Count: n})
		}
	}
	return score, matches
}

// confidence combines coverage with an occurrence bonus, clamped to 100:
//
//	base       = (score / totalKeywords) * 100
//	bonus      = min(score*5, 30)
//	confidence = min(base+bonus, 100)
func confidence(score, totalKeywords int) float64 {
	if totalKeywords == 0 {
		return 0
	}
	base := float64(score) / float64(totalKeywords) * 100
	bonus := float64(score * 5)
	if bonus > 30 {
		bonus = 30
	}
	conf := base + bonus
	if conf > 100 {
		conf = 100
	}
	return conf
}
