package trace

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	headerPattern      = regexp.MustCompile(`^--- SCRIPT (.+):(\d+) ---$`)
	footerPattern      = regexp.MustCompile(`^--- END SCRIPT\b.* ---$`)
	instructionPattern = regexp.MustCompile(`^(\d+):\s+(\d+)\s+\[\s*(\d+)\s*\]\s+([^;\s].*?)(\s*;\s*unreachable)?$`)
)

type recordKind int

const (
	recordNone recordKind = iota
	recordHeader
	recordFooter
	recordInstruction
)

// record is one recognized trace line before remapping.
type record struct {
	kind recordKind

	// Header fields.
	name string
	file string

	// Instruction fields.
	pc          int
	line        int
	count       uint64
	disasm      string
	unreachable bool
}

// classify matches a single line against the trace grammar. Numeric fields
// that overflow make the line unrecognized rather than partially applied.
func classify(text string) record {
	text = strings.TrimSpace(text)
	if text == "" {
		return record{}
	}

	if m := instructionPattern.FindStringSubmatch(text); m != nil {
		pc, pcErr := strconv.Atoi(m[1])
		line, lineErr := strconv.Atoi(m[2])
		count, countErr := strconv.ParseUint(m[3], 10, 64)

		if pcErr != nil || lineErr != nil || countErr != nil {
			return record{}
		}

		return record{
			kind:        recordInstruction,
			pc:          pc,
			line:        line,
			count:       count,
			disasm:      m[4],
			unreachable: m[5] != "",
		}
	}

	if footerPattern.MatchString(text) {
		return record{kind: recordFooter}
	}

	if m := headerPattern.FindStringSubmatch(text); m != nil {
		return record{
			kind: recordHeader,
			name: m[1] + ":" + m[2],
			file: m[1],
		}
	}

	return record{}
}
