package coverage

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/Sumatoshi-tech/tracecov/pkg/trace"
)

// percentScale converts a ratio to a percentage.
const percentScale = 100

// ErrUnknownVerdict is returned by ParseVerdict for unrecognized names.
var ErrUnknownVerdict = errors.New("unknown verdict")

// Verdict is the coverage classification of one executable source line.
type Verdict uint8

// Verdicts. The zero value is not a valid verdict.
const (
	VerdictFull Verdict = iota + 1
	VerdictSome
	VerdictNone
	VerdictDead
)

// Verdicts lists every verdict in report order.
var Verdicts = []Verdict{VerdictFull, VerdictSome, VerdictNone, VerdictDead}

// String returns the short lowercase name used in reports.
func (v Verdict) String() string {
	switch v {
	case VerdictFull:
		return "full"
	case VerdictSome:
		return "some"
	case VerdictNone:
		return "none"
	case VerdictDead:
		return "dead"
	default:
		return "verdict(" + strconv.Itoa(int(v)) + ")"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (v Verdict) MarshalText() ([]byte, error) {
	switch v {
	case VerdictFull, VerdictSome, VerdictNone, VerdictDead:
		return []byte(v.String()), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownVerdict, v)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Verdict) UnmarshalText(text []byte) error {
	parsed, err := ParseVerdict(string(text))
	if err != nil {
		return err
	}

	*v = parsed

	return nil
}

// ParseVerdict converts a report name back to a Verdict.
func ParseVerdict(name string) (Verdict, error) {
	for _, v := range Verdicts {
		if v.String() == name {
			return v, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownVerdict, name)
}

// Classify computes the verdict for the instructions attributed to one line.
// It reports false when there are no instructions: such a line is not
// executable and takes no part in statistics.
func Classify(instructions []trace.Instruction) (Verdict, bool) {
	if len(instructions) == 0 {
		return 0, false
	}

	var hit, miss, unreachable bool

	for _, in := range instructions {
		if in.Count > 0 {
			hit = true
		} else {
			miss = true
		}

		if in.Unreachable {
			unreachable = true
		}
	}

	switch {
	case !hit && unreachable:
		return VerdictDead, true
	case !hit:
		return VerdictNone, true
	case miss:
		return VerdictSome, true
	default:
		return VerdictFull, true
	}
}

// Tally counts executable lines per verdict.
type Tally struct {
	Covered   int `json:"covered"   yaml:"covered"`
	Partial   int `json:"partial"   yaml:"partial"`
	Uncovered int `json:"uncovered" yaml:"uncovered"`
	Dead      int `json:"dead"      yaml:"dead"`
}

// Total is the number of executable lines in the tally.
func (t Tally) Total() int {
	return t.Covered + t.Partial + t.Uncovered + t.Dead
}

// Add returns the element-wise sum of two tallies.
func (t Tally) Add(other Tally) Tally {
	return Tally{
		Covered:   t.Covered + other.Covered,
		Partial:   t.Partial + other.Partial,
		Uncovered: t.Uncovered + other.Uncovered,
		Dead:      t.Dead + other.Dead,
	}
}

// Count returns the number of lines with verdict v.
func (t Tally) Count(v Verdict) int {
	switch v {
	case VerdictFull:
		return t.Covered
	case VerdictSome:
		return t.Partial
	case VerdictNone:
		return t.Uncovered
	case VerdictDead:
		return t.Dead
	default:
		return 0
	}
}

// Percent returns the share of lines with verdict v.
func (t Tally) Percent(v Verdict) float64 {
	return Percent(t.Count(v), t.Total())
}

func (t *Tally) record(v Verdict) {
	switch v {
	case VerdictFull:
		t.Covered++
	case VerdictSome:
		t.Partial++
	case VerdictNone:
		t.Uncovered++
	case VerdictDead:
		t.Dead++
	}
}

// Percent returns 100*count/total, or 0 when total is zero.
func Percent(count, total int) float64 {
	if total == 0 {
		return 0
	}

	return percentScale * float64(count) / float64(total)
}

// FormatPercent renders Percent with one decimal place.
func FormatPercent(count, total int) string {
	return strconv.FormatFloat(Percent(count, total), 'f', 1, 64)
}

// Overall sums the tallies of files.
func Overall(files []*File) Tally {
	var sum Tally

	for _, f := range files {
		sum = sum.Add(f.Tally())
	}

	return sum
}
