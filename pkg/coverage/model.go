// Package coverage folds parsed trace scripts into a per-file, per-line model
// and classifies every executable line as full, some, none or dead.
package coverage

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"sort"

	"github.com/Sumatoshi-tech/tracecov/pkg/trace"
)

// Target resolution errors.
var (
	ErrUnknownTarget   = errors.New("unknown target")
	ErrAmbiguousTarget = errors.New("ambiguous target")
)

type position struct {
	file string
	line int
}

// Model is the durable coverage structure built from a trace. It is built
// sequentially and is not safe for concurrent mutation.
type Model struct {
	files  map[string]*File
	byBase map[string][]string
	index  map[trace.Key]position
}

// NewModel creates an empty Model.
func NewModel() *Model {
	return &Model{
		files:  make(map[string]*File),
		byBase: make(map[string][]string),
		index:  make(map[trace.Key]position),
	}
}

// AddScript files every instruction of a completed script.
func (m *Model) AddScript(script *trace.Script) {
	for _, in := range script.Instructions {
		m.Add(in)
	}
}

// Add files one instruction under its (file, line). A later instruction with
// the same (script, pc) replaces the earlier one.
func (m *Model) Add(in trace.Instruction) {
	key := in.Key()
	pos := position{file: in.File, line: in.Line}

	if prev, ok := m.index[key]; ok && prev != pos {
		m.files[prev.file].remove(prev.line, key)
	}

	m.index[key] = pos
	m.file(in.File).put(in)
}

// File returns the entry for an exact filename.
func (m *Model) File(name string) (*File, bool) {
	f, ok := m.files[name]

	return f, ok
}

// Files returns every file in name order.
func (m *Model) Files() []*File {
	names := make([]string, 0, len(m.files))
	for name := range m.files {
		names = append(names, name)
	}

	sort.Strings(names)

	files := make([]*File, len(names))
	for i, name := range names {
		files[i] = m.files[name]
	}

	return files
}

// Len is the number of files in the model.
func (m *Model) Len() int {
	return len(m.files)
}

// Resolve finds the file for a caller-supplied path: an exact match first,
// then a unique match on the base filename.
func (m *Model) Resolve(target string) (*File, error) {
	if f, ok := m.files[target]; ok {
		return f, nil
	}

	candidates := m.byBase[baseName(target)]

	switch len(candidates) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTarget, target)
	case 1:
		return m.files[candidates[0]], nil
	default:
		return nil, fmt.Errorf("%w: %s matches %v", ErrAmbiguousTarget, target, candidates)
	}
}

// Select resolves every target. Targets that cannot be resolved are reported
// as warnings and skipped; duplicates resolve once.
func (m *Model) Select(targets []string) ([]*File, []error) {
	var (
		files    []*File
		warnings []error
	)

	seen := make(map[*File]bool, len(targets))

	for _, target := range targets {
		f, err := m.Resolve(target)
		if err != nil {
			warnings = append(warnings, err)

			continue
		}

		if seen[f] {
			continue
		}

		seen[f] = true
		files = append(files, f)
	}

	return files, warnings
}

func (m *Model) file(name string) *File {
	if f, ok := m.files[name]; ok {
		return f
	}

	f := &File{name: name, lines: make(map[int]*line)}
	m.files[name] = f

	base := baseName(name)
	m.byBase[base] = append(m.byBase[base], name)
	sort.Strings(m.byBase[base])

	return f
}

// baseName accepts both slash and OS-specific separators, since trace paths
// and caller paths may come from different platforms.
func baseName(name string) string {
	return path.Base(filepath.ToSlash(name))
}

// line holds the instructions filed under one source line.
type line struct {
	instructions map[trace.Key]trace.Instruction
}

// File holds every line observed for one source filename.
type File struct {
	name  string
	lines map[int]*line
}

// Name returns the (virtual, when remapping) filename.
func (f *File) Name() string {
	return f.name
}

// Lines returns the executable line numbers in ascending order.
func (f *File) Lines() []int {
	numbers := make([]int, 0, len(f.lines))

	for n, l := range f.lines {
		if len(l.instructions) > 0 {
			numbers = append(numbers, n)
		}
	}

	sort.Ints(numbers)

	return numbers
}

// ExecutableLines is the number of lines with at least one instruction.
func (f *File) ExecutableLines() int {
	count := 0

	for _, l := range f.lines {
		if len(l.instructions) > 0 {
			count++
		}
	}

	return count
}

// Instructions returns the instructions attributed to a line, ordered by
// script name then pc.
func (f *File) Instructions(number int) []trace.Instruction {
	l, ok := f.lines[number]
	if !ok {
		return nil
	}

	out := make([]trace.Instruction, 0, len(l.instructions))
	for _, in := range l.instructions {
		out = append(out, in)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Script != out[j].Script {
			return out[i].Script < out[j].Script
		}

		return out[i].PC < out[j].PC
	})

	return out
}

// Verdict classifies one line. It reports false for non-executable lines.
func (f *File) Verdict(number int) (Verdict, bool) {
	l, ok := f.lines[number]
	if !ok {
		return 0, false
	}

	return classifyLine(l)
}

// Tally classifies every executable line once and counts the verdicts.
func (f *File) Tally() Tally {
	var t Tally

	for _, l := range f.lines {
		v, ok := classifyLine(l)
		if ok {
			t.record(v)
		}
	}

	return t
}

func classifyLine(l *line) (Verdict, bool) {
	instructions := make([]trace.Instruction, 0, len(l.instructions))
	for _, in := range l.instructions {
		instructions = append(instructions, in)
	}

	return Classify(instructions)
}

func (f *File) put(in trace.Instruction) {
	l, ok := f.lines[in.Line]
	if !ok {
		l = &line{instructions: make(map[trace.Key]trace.Instruction)}
		f.lines[in.Line] = l
	}

	l.instructions[in.Key()] = in
}

func (f *File) remove(number int, key trace.Key) {
	if l, ok := f.lines[number]; ok {
		delete(l.instructions, key)
	}
}
