package fmlog

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

// maxLineBytes bounds a single log line. Longer lines are recorded as
// parse errors and skipped.
const maxLineBytes = 1 << 20

// previewBytes is how much of an over-long line is kept in its ParseError.
const previewBytes = 64

// ParseResult is the outcome of reading a whole log.
type ParseResult struct {
	Table *ResultTable
	// RunID is the id of the last RUN_START seen, if any.
	RunID    string
	Complete bool // a RUN_END matched RunID
	Lines    int
	Records  int
	Errors   []*ParseError
}

// ParseReader streams r through p and aggregates every valid record.
// Malformed lines are collected in Errors and skipped.
func ParseReader(r io.Reader, p *Parser) (*ParseResult, error) {
	if p == nil {
		p = NewParser("", "")
	}
	res := &ParseResult{Table: NewResultTable()}

	br := bufio.NewReaderSize(r, 64*1024)
	for done := false; !done; {
		raw, tooLong, err := readLine(br, maxLineBytes)
		switch {
		case err == io.EOF:
			done = true
			if len(raw) == 0 && !tooLong {
				continue
			}
		case err != nil:
			return res, fmt.Errorf("fmlog: reading log: %w", err)
		}
		res.Lines++

		if tooLong {
			res.fail(&ParseError{Text: string(raw), Reason: fmt.Sprintf("line exceeds %d bytes", maxLineBytes)})
			continue
		}
		rec, err := p.ParseLine(string(raw))
		if err != nil {
			var perr *ParseError
			if errors.As(err, &perr) {
				res.fail(perr)
				continue
			}
			return res, err
		}
		if rec != nil {
			res.add(rec)
		}
	}
	return res, nil
}

func (res *ParseResult) fail(perr *ParseError) {
	perr.Line = res.Lines
	res.Errors = append(res.Errors, perr)
}

func (res *ParseResult) add(rec *Record) {
	rec.Line = res.Lines
	res.Records++

	switch rec.Kind {
	case KindRunStart:
		if rec.RunID != res.RunID {
			res.Complete = false
		}
		res.RunID = rec.RunID
	case KindRunEnd:
		if rec.RunID == res.RunID {
			res.Complete = true
		}
	default:
		res.Table.Add(rec)
	}
}

// readLine returns the next line without its line ending. A line longer
// than limit is consumed to its end; only its first previewBytes are
// returned and tooLong is set.
func readLine(br *bufio.Reader, limit int) (line []byte, tooLong bool, err error) {
	for {
		var chunk []byte
		chunk, err = br.ReadSlice('\n')
		if !tooLong {
			line = append(line, chunk...)
			if len(line) > limit+2 {
				tooLong = true
				line = line[:previewBytes]
			}
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		if !tooLong {
			line = bytes.TrimRight(line, "\r\n")
			if len(line) > limit {
				tooLong = true
				line = line[:previewBytes]
			}
		}
		return line, tooLong, err
	}
}

// ParseFile opens path and parses it.
func ParseFile(path string, p *Parser) (*ParseResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("fmlog: cannot open log: %w", err)
	}
	defer f.Close()
	return ParseReader(f, p)
}
