// Package remap resolves preprocessor-relocated line numbers back to the
// original source coordinates declared by //@line directives.
package remap

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
)

// maxLineBytes bounds a single scanned source line. Minified sources put
// whole programs on one line, so the bufio default of 64 KiB is too small.
const maxLineBytes = 1 << 20

// ErrSourceUnreadable is returned when a source file cannot be read for
// directive scanning.
var ErrSourceUnreadable = errors.New("source file unreadable")

var directivePattern = regexp.MustCompile(`//@line\s+(\d+)\s+"([^"]+)"`)

// Directive is a relocation comment: physical lines after Physical belong
// to File starting at Virtual.
type Directive struct {
	Physical int
	Virtual  int
	File     string
}

// Stats counts how remap queries were served.
type Stats struct {
	// MemoHits is the number of queries answered by the last-query memo.
	MemoHits int64
	// Lookups is the number of queries that scanned a directive table.
	Lookups int64
	// FilesScanned is the number of distinct source files read.
	FilesScanned int64
}

type location struct {
	file string
	line int
}

// Remapper maps physical (file, line) pairs to virtual ones. Directive tables
// are read once per file and kept for the lifetime of the Remapper.
// A Remapper is not safe for concurrent use.
type Remapper struct {
	readFile   func(string) ([]byte, error)
	directives map[string][]Directive

	memoValid bool
	memoQuery location
	memoValue location

	stats Stats
}

// Option configures a Remapper.
type Option func(*Remapper)

// WithReadFile replaces the function used to load source files.
func WithReadFile(fn func(string) ([]byte, error)) Option {
	return func(r *Remapper) {
		r.readFile = fn
	}
}

// New creates a Remapper with an empty directive cache.
func New(opts ...Option) *Remapper {
	r := &Remapper{
		readFile:   os.ReadFile,
		directives: make(map[string][]Directive),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Remap returns the virtual file and line for a physical position.
// Lines before the first directive map to themselves.
func (r *Remapper) Remap(file string, line int) (string, int, error) {
	query := location{file: file, line: line}
	if r.memoValid && r.memoQuery == query {
		r.stats.MemoHits++

		return r.memoValue.file, r.memoValue.line, nil
	}

	table, err := r.Directives(file)
	if err != nil {
		return "", 0, err
	}

	r.stats.Lookups++

	result := query

	for i := len(table) - 1; i >= 0; i-- {
		d := table[i]
		if d.Physical < line {
			result = location{file: d.File, line: line - d.Physical + d.Virtual - 1}

			break
		}
	}

	r.memoQuery = query
	r.memoValue = result
	r.memoValid = true

	return result.file, result.line, nil
}

// Directives returns the directive table for file in ascending physical
// line order, scanning the file on first use.
func (r *Remapper) Directives(file string) ([]Directive, error) {
	if table, ok := r.directives[file]; ok {
		return table, nil
	}

	data, err := r.readFile(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSourceUnreadable, file, err)
	}

	table, err := scanDirectives(data)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", file, err)
	}

	r.directives[file] = table
	r.stats.FilesScanned++

	return table, nil
}

// Stats returns a snapshot of the query counters.
func (r *Remapper) Stats() Stats {
	return r.stats
}

func scanDirectives(data []byte) ([]Directive, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxLineBytes)

	var table []Directive

	physical := 0

	for scanner.Scan() {
		physical++

		match := directivePattern.FindSubmatch(scanner.Bytes())
		if match == nil {
			continue
		}

		virtual, err := strconv.Atoi(string(match[1]))
		if err != nil {
			continue
		}

		table = append(table, Directive{
			Physical: physical,
			Virtual:  virtual,
			File:     string(match[2]),
		})
	}

	err := scanner.Err()
	if err != nil {
		return nil, fmt.Errorf("read lines: %w", err)
	}

	return table, nil
}
