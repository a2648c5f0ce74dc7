// Package fields extracts typed values from document text, one
// strategy chain per declared field type.
package fields

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/clinovia/medextract/constants"
	"github.com/clinovia/medextract/internal/common"
	"github.com/clinovia/medextract/internal/entity"
	"github.com/clinovia/medextract/internal/outcome"
)

// booleanWindowRadius is the number of characters inspected on each
// side of a boolean field's name.
const booleanWindowRadius = 100

var (
	reNumber = regexp.MustCompile(`\d+(\.\d+)?`)

	rePositive = regexp.MustCompile(`(?i)\b(yes|positive|present|true|confirmed|detected|found)\b`)
	reNegative = regexp.MustCompile(`(?i)\b(no|negative|absent|false|denied|not detected|not found)\b`)
)

// dateFormats are tried in order against the whole document text.
var dateFormats = []struct {
	re     *regexp.Regexp
	layout string
}{
	{regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{4}\b`), "2/1/2006"},
	{regexp.MustCompile(`\b\d{1,2}-\d{1,2}-\d{4}\b`), "2-1-2006"},
	{regexp.MustCompile(`\b\d{4}-\d{1,2}-\d{1,2}\b`), "2006-1-2"},
	{regexp.MustCompile(`(?i)\b\d{1,2} (?:january|february|march|april|may|june|july|august|september|october|november|december) \d{4}\b`), "2 January 2006"},
}

type Extractor struct {
	logger *slog.Logger
}

func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger}
}

// Extract applies every FieldSpec against the text. Field failures
// (a malformed custom pattern) are recorded and isolated; a single bad
// field never aborts the record. Fields without a hit stay absent.
func (e *Extractor) Extract(text string, specs []entity.FieldSpec) (entity.ExtractedData, outcome.Summary) {
	var data entity.ExtractedData
	var sum outcome.Summary

	for _, spec := range specs {
		unit := "field " + spec.Name
		v, found, err := e.extractField(text, spec)
		switch {
		case err != nil:
			e.logger.Warn("fields.field.failed", "field", spec.Name, "error", err)
			sum.Add(outcome.Fail(unit, err))
		case !found:
			reason := "not found"
			if spec.Required {
				reason = "required field not found"
			}
			sum.Add(outcome.Skip(unit, reason))
		default:
			data.Set(spec.Name, v)
			sum.Add(outcome.Ok(unit))
		}
	}
	return data, sum
}

func (e *Extractor) extractField(text string, spec entity.FieldSpec) (entity.FieldValue, bool, error) {
	switch spec.Type {
	case constants.FieldText:
		s, ok, err := textValue(text, spec)
		if err != nil || !ok {
			return entity.FieldValue{}, false, err
		}
		return entity.TextValue(s), true, nil
	case constants.FieldNumber:
		f, ok, err := numberValue(text, spec)
		if err != nil || !ok {
			return entity.FieldValue{}, false, err
		}
		return entity.NumberValue(f), true, nil
	case constants.FieldDate:
		t, ok := dateValue(text)
		if !ok {
			return entity.FieldValue{}, false, nil
		}
		return entity.DateValue(t), true, nil
	case constants.FieldBoolean:
		b, ok := booleanValue(text, spec.Name)
		if !ok {
			return entity.FieldValue{}, false, nil
		}
		return entity.BoolValue(b), true, nil
	default:
		return entity.FieldValue{}, false, common.NewFieldExtractionError(
			fmt.Sprintf("field %q: unknown type %q", spec.Name, spec.Type), nil)
	}
}

// patternChain builds the ordered strategies for a field: the custom
// pattern first, then three generated label patterns (exact name,
// underscores as spaces, underscores as flexible whitespace). All
// compile case-insensitive.
func patternChain(spec entity.FieldSpec) ([]*regexp.Regexp, error) {
	var chain []*regexp.Regexp
	if spec.Pattern != "" {
		re, err := regexp.Compile("(?i)" + spec.Pattern)
		if err != nil {
			return nil, common.NewFieldExtractionError(
				fmt.Sprintf("field %q: invalid pattern", spec.Name), err)
		}
		chain = append(chain, re)
	}

	parts := strings.Split(spec.Name, "_")
	for i := range parts {
		parts[i] = regexp.QuoteMeta(parts[i])
	}
	labels := []string{
		regexp.QuoteMeta(spec.Name),
		regexp.QuoteMeta(strings.ReplaceAll(spec.Name, "_", " ")),
		strings.Join(parts, `\s+`),
	}
	for _, label := range labels {
		chain = append(chain, regexp.MustCompile(`(?i)`+label+`[:\s]+([^\n\r]+)`))
	}
	return chain, nil
}

// captureValue runs one pattern and returns the trimmed candidate: the
// first capture group, or the whole match for group-less patterns, with
// a repeated label prefix stripped.
func captureValue(re *regexp.Regexp, text, name string) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	candidate := m[0]
	if len(m) > 1 {
		candidate = m[1]
	}
	return trimLabelPrefix(strings.TrimSpace(candidate), name)
}

func trimLabelPrefix(value, name string) string {
	for _, label := range []string{name, strings.ReplaceAll(name, "_", " ")} {
		if len(value) >= len(label) && strings.EqualFold(value[:len(label)], label) {
			value = strings.TrimSpace(strings.TrimLeft(value[len(label):], ": \t"))
			break
		}
	}
	return value
}

func textValue(text string, spec entity.FieldSpec) (string, bool, error) {
	chain, err := patternChain(spec)
	if err != nil {
		return "", false, err
	}
	for _, re := range chain {
		if v := captureValue(re, text, spec.Name); v != "" {
			return v, true, nil
		}
	}
	return "", false, nil
}

func numberValue(text string, spec entity.FieldSpec) (float64, bool, error) {
	chain, err := patternChain(spec)
	if err != nil {
		return 0, false, err
	}
	for _, re := range chain {
		candidate := captureValue(re, text, spec.Name)
		if candidate == "" {
			continue
		}
		numStr := reNumber.FindString(candidate)
		if numStr == "" {
			continue
		}
		f, perr := strconv.ParseFloat(numStr, 64)
		if perr != nil {
			continue
		}
		return f, true, nil
	}
	return 0, false, nil
}

// dateValue scans the whole text, not a field-local region. Matches
// that fail to parse (like 31/02/2024) are skipped, not treated as
// found.
func dateValue(text string) (time.Time, bool) {
	for _, f := range dateFormats {
		for _, candidate := range f.re.FindAllString(text, -1) {
			c := candidate
			if strings.Contains(f.layout, "January") {
				c = canonicalMonthCase(c)
			}
			if t, err := time.Parse(f.layout, c); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// canonicalMonthCase rewrites "15 march 2024" as "15 March 2024" so the
// fixed layout parses it.
func canonicalMonthCase(s string) string {
	parts := strings.Fields(s)
	if len(parts) != 3 {
		return s
	}
	m := strings.ToLower(parts[1])
	parts[1] = strings.ToUpper(m[:1]) + m[1:]
	return strings.Join(parts, " ")
}

// booleanValue inspects a context window around the field name and
// scans the positive word list before the negative one; the first
// category with a hit wins. No hit leaves the field unknown, not false.
func booleanValue(text, name string) (value, found bool) {
	window, ok := contextWindow(text, name, booleanWindowRadius)
	if !ok {
		return false, false
	}
	if rePositive.MatchString(window) {
		return true, true
	}
	if reNegative.MatchString(window) {
		return false, true
	}
	return false, false
}

// contextWindow locates the first occurrence of the field name (literal
// or with underscores as spaces) and returns radius characters of
// context on each side.
func contextWindow(text, name string, radius int) (string, bool) {
	lower := strings.ToLower(text)
	for _, label := range []string{name, strings.ReplaceAll(name, "_", " ")} {
		idx := strings.Index(lower, strings.ToLower(label))
		if idx < 0 {
			continue
		}
		start := idx - radius
		if start < 0 {
			start = 0
		}
		end := idx + len(label) + radius
		if end > len(text) {
			end = len(text)
		}
		return text[start:end], true
	}
	return "", false
}
