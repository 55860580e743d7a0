// Package trace parses the line-oriented execution trace emitted by a
// debug-instrumented script engine into per-script instruction records.
//
// The parser is push-driven: callers hand it chunks of arbitrary size and
// alignment with Feed and signal end of stream with Close. Every physical
// input line is reported back with a flag telling whether it belonged to the
// trace grammar, so interleaved program output can be passed through.
package trace

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

// ErrClosed is returned when Feed or Close is called on a closed Parser.
var ErrClosed = errors.New("trace parser closed")

// Remapper translates a physical source coordinate to a virtual one.
type Remapper interface {
	Remap(file string, line int) (string, int, error)
}

// Instruction is one executed bytecode operation. File and Line are the
// coordinates after remapping.
type Instruction struct {
	Script      string
	PC          int
	File        string
	Line        int
	Count       uint64
	Disasm      string
	Unreachable bool
}

// Key identifies an instruction across the whole trace.
type Key struct {
	Script string
	PC     int
}

// Key returns the (script, pc) identity of the instruction.
func (in Instruction) Key() Key {
	return Key{Script: in.Script, PC: in.PC}
}

// Script is a completed script section of the trace.
type Script struct {
	Name         string
	File         string
	Instructions []Instruction
}

// LineResult reports one physical input line and whether the parser
// recognized it as trace syntax.
type LineResult struct {
	Text     string
	Consumed bool
}

// Result is the output of a single Feed or Close call.
type Result struct {
	Lines   []LineResult
	Scripts []*Script

	// NoData is set by Close when the whole stream produced no scripts.
	NoData bool
}

// Stats counts what the parser has seen so far.
type Stats struct {
	Lines        int64
	Consumed     int64
	Scripts      int64
	Instructions int64
}

// Parser incrementally parses a chunked trace stream. It is not safe for
// concurrent use.
type Parser struct {
	remapper Remapper

	carry   []byte
	current *Script
	closed  bool

	stats Stats
}

// Option configures a Parser.
type Option func(*Parser)

// WithRemapper makes the parser translate every instruction's source
// coordinate through remapper before recording it.
func WithRemapper(remapper Remapper) Option {
	return func(p *Parser) {
		p.remapper = remapper
	}
}

// NewParser creates a Parser.
func NewParser(opts ...Option) *Parser {
	p := &Parser{}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Feed processes every complete line in carry+chunk and keeps the trailing
// unterminated fragment for the next call.
func (p *Parser) Feed(chunk []byte) (Result, error) {
	if p.closed {
		return Result{}, ErrClosed
	}

	var res Result

	// The carry never holds a newline, so only the new bytes are searched
	// and an unterminated line grows in place.
	data, searchFrom := chunk, 0

	carried := len(p.carry) > 0
	if carried {
		searchFrom = len(p.carry)
		p.carry = append(p.carry, chunk...)
		data = p.carry
	}

	consumed := 0

	for {
		idx := bytes.IndexByte(data[searchFrom:], '\n')
		if idx < 0 {
			break
		}

		end := searchFrom + idx

		err := p.processLine(string(data[consumed:end]), &res)
		consumed, searchFrom = end+1, end+1

		if err != nil {
			// Keep the unprocessed remainder so the stream position stays consistent.
			p.retain(data, consumed, carried)

			return res, err
		}
	}

	p.retain(data, consumed, carried)

	return res, nil
}

// retain keeps data[consumed:] as the carry. When data already is the carry
// and nothing was consumed there is nothing to move.
func (p *Parser) retain(data []byte, consumed int, carried bool) {
	if carried && consumed == 0 {
		return
	}

	p.carry = append(p.carry[:0], data[consumed:]...)
}

// Close processes any retained fragment as a complete line and flushes the
// open script. The parser cannot be used afterwards.
func (p *Parser) Close() (Result, error) {
	if p.closed {
		return Result{}, ErrClosed
	}

	p.closed = true

	var res Result

	if len(p.carry) > 0 {
		text := string(p.carry)
		p.carry = nil

		err := p.processLine(text, &res)
		if err != nil {
			return res, err
		}
	}

	p.flush(&res)

	res.NoData = p.stats.Scripts == 0

	return res, nil
}

// Stats returns a snapshot of the parser counters.
func (p *Parser) Stats() Stats {
	return p.stats
}

func (p *Parser) processLine(text string, res *Result) error {
	text = strings.TrimSuffix(text, "\r")

	consumed, err := p.apply(classify(text), res)
	if err != nil {
		return fmt.Errorf("trace line %d: %w", p.stats.Lines+1, err)
	}

	p.stats.Lines++
	if consumed {
		p.stats.Consumed++
	}

	res.Lines = append(res.Lines, LineResult{Text: text, Consumed: consumed})

	return nil
}

func (p *Parser) apply(rec record, res *Result) (bool, error) {
	switch rec.kind {
	case recordHeader:
		p.flush(res)
		p.current = &Script{Name: rec.name, File: rec.file}

		return true, nil

	case recordFooter:
		p.flush(res)

		return true, nil

	case recordInstruction:
		if p.current == nil {
			return false, nil
		}

		file, line := p.current.File, rec.line

		if p.remapper != nil {
			var err error

			file, line, err = p.remapper.Remap(p.current.File, rec.line)
			if err != nil {
				return false, fmt.Errorf("remap %s:%d: %w", p.current.File, rec.line, err)
			}
		}

		p.current.Instructions = append(p.current.Instructions, Instruction{
			Script:      p.current.Name,
			PC:          rec.pc,
			File:        file,
			Line:        line,
			Count:       rec.count,
			Disasm:      rec.disasm,
			Unreachable: rec.unreachable,
		})
		p.stats.Instructions++

		return true, nil

	case recordNone:
	}

	return false, nil
}

func (p *Parser) flush(res *Result) {
	if p.current == nil {
		return
	}

	res.Scripts = append(res.Scripts, p.current)
	p.current = nil
	p.stats.Scripts++
}
