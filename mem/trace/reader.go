package trace

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

const maxLineLength = 1 << 20

// A Source provides trace records in order. Read returns io.EOF after the last
// record.
type Source interface {
	Read() (Record, error)
}

// A Reader parses records from a text trace.
//
// Each data access is a line of the form " <op> <hex-address>,<length>", with
// op one of L, S or M. Every other line, including instruction fetches, blank
// lines, lines that fail to parse and lines longer than 1 MiB, is skipped.
type Reader struct {
	reader  *bufio.Reader
	line    []byte
	lineNum int
	skipped int
}

// NewReader creates a Reader that parses r.
func NewReader(r io.Reader) *Reader {
	return &Reader{
		reader: bufio.NewReaderSize(r, 4096),
	}
}

// Read returns the next record. It returns io.EOF at the end of the trace.
func (r *Reader) Read() (Record, error) {
	for {
		line, tooLong, err := r.readLine()
		if err != nil {
			return Record{}, err
		}

		r.lineNum++

		if tooLong {
			r.skipped++
			logrus.Debugf("trace line %d skipped: longer than %d bytes",
				r.lineNum, maxLineLength)

			continue
		}

		record, ok := ParseLine(string(line))
		if ok {
			return record, nil
		}

		if strings.TrimSpace(string(line)) != "" {
			r.skipped++
			logrus.Debugf("trace line %d skipped: %q", r.lineNum, line)
		}
	}
}

// readLine returns the next line without its line ending. Lines longer than
// maxLineLength are drained and reported as too long with no content.
func (r *Reader) readLine() (line []byte, tooLong bool, err error) {
	r.line = r.line[:0]
	started := false

	for {
		chunk, isPrefix, err := r.reader.ReadLine()
		if err != nil {
			if err == io.EOF && started {
				return r.line, tooLong, nil
			}

			return nil, false, err
		}

		started = true

		if !tooLong {
			if len(r.line)+len(chunk) > maxLineLength {
				tooLong = true
				r.line = r.line[:0]
			} else {
				r.line = append(r.line, chunk...)
			}
		}

		if !isPrefix {
			return r.line, tooLong, nil
		}
	}
}

// LineNumber returns the number of lines consumed so far.
func (r *Reader) LineNumber() int {
	return r.lineNum
}

// Skipped returns the number of non-blank lines that were not data accesses.
func (r *Reader) Skipped() int {
	return r.skipped
}

// ParseLine parses one trace line. It reports false if the line is not a data
// access.
func ParseLine(line string) (Record, bool) {
	if len(line) < 2 || line[0] != ' ' {
		return Record{}, false
	}

	kind, ok := ParseKind(line[1])
	if !ok {
		return Record{}, false
	}

	addrText, lengthText, found := strings.Cut(line[2:], ",")
	if !found {
		return Record{}, false
	}

	addr, ok := parseHex(addrText)
	if !ok {
		return Record{}, false
	}

	length, ok := parseDecimalPrefix(lengthText)
	if !ok {
		return Record{}, false
	}

	return Record{Kind: kind, Address: addr, Length: length}, true
}

func parseHex(s string) (uint64, bool) {
	s = strings.TrimSpace(s)
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}

	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, false
	}

	return v, true
}

// parseDecimalPrefix parses the leading digits of s and ignores anything that
// follows them.
func parseDecimalPrefix(s string) (uint64, bool) {
	s = strings.TrimLeft(s, " \t")

	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}

	v, err := strconv.ParseUint(s[:end], 10, 64)
	if err != nil {
		return 0, false
	}

	return v, true
}
