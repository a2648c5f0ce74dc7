// Package outcome models skip-and-continue results explicitly: every
// unit of work (an OCR page, a template field) records ok, skipped or
// failed instead of silently swallowing its error.
package outcome

type Status string

const (
	OK      Status = "ok"
	Skipped Status = "skipped"
	Failed  Status = "failed"
)

// Outcome is the result of one unit of work.
type Outcome struct {
	Unit   string `json:"unit"`
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
}

func Ok(unit string) Outcome {
	return Outcome{Unit: unit, Status: OK}
}

func Skip(unit, reason string) Outcome {
	return Outcome{Unit: unit, Status: Skipped, Reason: reason}
}

func Fail(unit string, err error) Outcome {
	o := Outcome{Unit: unit, Status: Failed}
	if err != nil {
		o.Reason = err.Error()
	}
	return o
}

// Summary aggregates outcomes across the stages of a run.
type Summary struct {
	Units []Outcome `json:"units,omitempty"`
}

func (s *Summary) Add(o Outcome) {
	s.Units = append(s.Units, o)
}

func (s *Summary) Merge(other Summary) {
	s.Units = append(s.Units, other.Units...)
}

// Counts returns the number of ok, skipped and failed units.
func (s Summary) Counts() (ok, skipped, failed int) {
	for _, o := range s.Units {
		switch o.Status {
		case OK:
			ok++
		case Skipped:
			skipped++
		case Failed:
			failed++
		}
	}
	return ok, skipped, failed
}
