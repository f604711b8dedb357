/*
rv32ima configuration file parser.

	Copyright (c) 2024, Richard Cornwell

	Permission is hereby granted, free of charge, to any person obtaining a
	copy of this software and associated documentation files (the "Software"),
	to deal in the Software without restriction, including without limitation
	the rights to use, copy, modify, merge, publish, distribute, sublicense,
	and/or sell copies of the Software, and to permit persons to whom the
	Software is furnished to do so, subject to the following conditions:

	The above copyright notice and this permission notice shall be included in
	all copies or substantial portions of the Software.

	THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
	IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
	FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.  IN NO EVENT SHALL
	RICHARD CORNWELL BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
	IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
	CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
*/

// Package configparser reads a line-oriented configuration file describing
// memory size, device instantiation and log options (component A2). Each
// keyword is handled by a callback registered (from an init function, the
// same shape the teacher's device models register in) rather than hardcoded
// here, so adding a new keyword never touches this file.
//
// Configuration file format:
//
//	'#' starts a comment, rest of line ignored
//	<line> := <keyword> *(<whitespace> <option>)
//	<option> := <name> ['=' <quotedstring>] *(',' <name>)
package configparser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"
)

// Option is one whitespace-separated token on a config line: a bare name,
// optionally followed by =value, optionally followed by ,more,names.
type Option struct {
	Name     string
	EqualOpt string
	Value    []string
}

type handler func(options []Option) error

var keywords = map[string]handler{}

// Register binds a keyword (case-insensitive) to the callback invoked when
// that keyword starts a config line. Intended to be called from package
// init functions, mirroring the teacher's device-model registration.
func Register(keyword string, fn handler) {
	keywords[strings.ToUpper(keyword)] = fn
}

// LoadFile reads and applies every line of a configuration file.
func LoadFile(name string) error {
	file, err := os.Open(name)
	if err != nil {
		return err
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	lineNumber := 0
	for {
		text, err := reader.ReadString('\n')
		lineNumber++
		if len(text) == 0 && err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if parseErr := parseLine(text); parseErr != nil {
			return fmt.Errorf("config line %d: %w", lineNumber, parseErr)
		}
		if err != nil {
			return nil // last line had no trailing newline, but it parsed fine
		}
	}
}

type cursor struct {
	line string
	pos  int
}

func parseLine(text string) error {
	c := &cursor{line: text}
	c.skipSpace()
	if c.isEOL() {
		return nil
	}

	keyword := c.readWord()
	handle, ok := keywords[strings.ToUpper(keyword)]
	if !ok {
		return fmt.Errorf("unknown config keyword %q", keyword)
	}

	options, err := c.parseOptions()
	if err != nil {
		return err
	}
	return handle(options)
}

func (c *cursor) skipSpace() {
	for c.pos < len(c.line) && unicode.IsSpace(rune(c.line[c.pos])) {
		c.pos++
	}
}

func (c *cursor) isEOL() bool {
	return c.pos >= len(c.line) || c.line[c.pos] == '#'
}

// readWord consumes a run of letters, digits, '.', '_', '-', '/' or ':' —
// enough to cover keywords, file paths, host:port addresses and hex/decimal
// numbers.
func (c *cursor) readWord() string {
	start := c.pos
	for c.pos < len(c.line) {
		b := rune(c.line[c.pos])
		if unicode.IsLetter(b) || unicode.IsDigit(b) || strings.ContainsRune("._-/:", b) {
			c.pos++
			continue
		}
		break
	}
	return c.line[start:c.pos]
}

// parseQuoted reads either a bare word or a "quoted string" (doubled quotes
// escape a literal quote, matching the teacher's quoting convention).
func (c *cursor) parseQuoted() string {
	if c.pos < len(c.line) && c.line[c.pos] == '"' {
		c.pos++
		var sb strings.Builder
		for c.pos < len(c.line) {
			if c.line[c.pos] == '"' {
				if c.pos+1 < len(c.line) && c.line[c.pos+1] == '"' {
					sb.WriteByte('"')
					c.pos += 2
					continue
				}
				c.pos++
				break
			}
			sb.WriteByte(c.line[c.pos])
			c.pos++
		}
		return sb.String()
	}
	return c.readWord()
}

func (c *cursor) parseOptions() ([]Option, error) {
	var opts []Option
	for {
		c.skipSpace()
		if c.isEOL() {
			return opts, nil
		}
		name := c.readWord()
		if name == "" {
			return nil, fmt.Errorf("invalid character %q", c.line[c.pos])
		}
		opt := Option{Name: name}
		if c.pos < len(c.line) && c.line[c.pos] == '=' {
			c.pos++
			opt.EqualOpt = c.parseQuoted()
		}
		for c.pos < len(c.line) && c.line[c.pos] == ',' {
			c.pos++
			opt.Value = append(opt.Value, c.readWord())
		}
		opts = append(opts, opt)
	}
}
