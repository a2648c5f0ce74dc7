package match

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinovia/medextract/internal/entity"
)

func template(id byte, name string, keywords ...string) entity.DiseaseTemplate {
	return entity.DiseaseTemplate{
		ID:       uuid.UUID{id}, // fixed leading byte pins the iteration order
		Name:     name,
		Keywords: keywords,
	}
}

func TestBestFullCoverage(t *testing.T) {
	m := NewMatcher(0, nil)
	diabetes := template(1, "Diabetes", "diabetes", "blood sugar", "insulin")

	res := m.Best("Patient has diabetes, blood sugar: 180, insulin: Humalog",
		[]entity.DiseaseTemplate{diabetes})

	require.NotNil(t, res)
	assert.Equal(t, "Diabetes", res.Template.Name)
	// 3/3 keywords once each: base 100, bonus 15, clamped to 100
	assert.Equal(t, 100.0, res.Confidence)
	assert.ElementsMatch(t, []KeywordMatch{
		{Keyword: "diabetes", Count: 1},
		{Keyword: "blood sugar", Count: 1},
		{Keyword: "insulin", Count: 1},
	}, res.Matches)
}

func TestBestThresholdIsExclusive(t *testing.T) {
	m := NewMatcher(0, nil)
	// 1 hit out of 5 keywords: base 20, bonus 5, confidence exactly 25
	tpl := template(1, "Asthma", "wheezing", "inhaler", "bronchial", "dyspnea", "spirometry")

	res := m.Best("patient reports wheezing at night", []entity.DiseaseTemplate{tpl})
	assert.Nil(t, res, "confidence of exactly 25 must not match")
}

func TestBestJustAboveThresholdMatches(t *testing.T) {
	m := NewMatcher(0, nil)
	// 1 hit out of 4 keywords: base 25, bonus 5, confidence 30
	tpl := template(1, "Asthma", "wheezing", "inhaler", "bronchial", "dyspnea")

	res := m.Best("patient reports wheezing at night", []entity.DiseaseTemplate{tpl})
	require.NotNil(t, res)
	assert.Equal(t, 30.0, res.Confidence)
}

func TestBestWholeWordOnly(t *testing.T) {
	m := NewMatcher(0, nil)
	tpl := template(1, "Influenza", "flu")

	assert.Nil(t, m.Best("influenza outbreak reported", []entity.DiseaseTemplate{tpl}),
		"substring containment must not count")

	res := m.Best("flu flu season this flu year", []entity.DiseaseTemplate{tpl})
	require.NotNil(t, res)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, 3, res.Matches[0].Count)
}

func TestBestCaseInsensitive(t *testing.T) {
	m := NewMatcher(0, nil)
	tpl := template(1, "Diabetes", "diabetes")

	res := m.Best("DIABETES Mellitus Type 2", []entity.DiseaseTemplate{tpl})
	require.NotNil(t, res)
	assert.Equal(t, 1, res.Matches[0].Count)
}

func TestConfidenceMonotonicAndClamped(t *testing.T) {
	prev := 0.0
	for score := 0; score <= 30; score++ {
		conf := confidence(score, 10)
		assert.GreaterOrEqual(t, conf, prev, "score %d", score)
		assert.LessOrEqual(t, conf, 100.0, "score %d", score)
		assert.GreaterOrEqual(t, conf, 0.0, "score %d", score)
		prev = conf
	}
	assert.Equal(t, 100.0, confidence(1000, 3))
}

func TestBestTieKeepsEarlierTemplate(t *testing.T) {
	m := NewMatcher(0, nil)
	first := template(1, "First", "fever", "cough")
	second := template(2, "Second", "fever", "cough")

	// identical scores; the template earlier in identifier order wins
	// regardless of the caller's slice order
	res := m.Best("fever and cough", []entity.DiseaseTemplate{second, first})
	require.NotNil(t, res)
	assert.Equal(t, "First", res.Template.Name)
}

func TestBestPrefersHigherConfidence(t *testing.T) {
	m := NewMatcher(0, nil)
	weak := template(1, "Weak", "fever", "rash", "joint pain", "headache")
	strong := template(2, "Strong", "fever", "rash")

	res := m.Best("fever with rash", []entity.DiseaseTemplate{weak, strong})
	require.NotNil(t, res)
	assert.Equal(t, "Strong", res.Template.Name)
}

func TestBestSkipsKeywordlessTemplates(t *testing.T) {
	m := NewMatcher(0, nil)
	empty := template(1, "Empty")

	assert.Nil(t, m.Best("any text at all", []entity.DiseaseTemplate{empty}))
}
