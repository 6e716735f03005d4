// Package parfile reads runtime parameter files in the host framework's
// `impl::name = value` format and derives the grid hierarchy setup the
// standard driver, grid, and time components would produce.
package parfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

// ParseError reports a malformed parameter file line.
type ParseError struct {
	Line int
	Text string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parameter file line %d: syntax error in %q", e.Line, e.Text)
}

var (
	commentRe = regexp.MustCompile(`^\s*[#!]`)
	blankRe   = regexp.MustCompile(`^\s*$`)
	paramRe   = regexp.MustCompile(`(?i)^\s*(\w+::\w+|ActiveThorns)\s*=\s*(.*)$`)
)

// Values holds parsed parameters. Keys are case-folded at insertion and at
// lookup; the framework treats parameter names case-insensitively.
type Values struct {
	m    map[string]string
	fold cases.Caser
}

// Parse reads a parameter file. Lines starting with # or ! and blank lines
// are skipped; anything else must be `impl::name = value`.
func Parse(r io.Reader) (*Values, error) {
	v := &Values{
		m:    make(map[string]string),
		fold: cases.Fold(),
	}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if commentRe.MatchString(line) || blankRe.MatchString(line) {
			continue
		}
		m := paramRe.FindStringSubmatch(line)
		if m == nil {
			return nil, &ParseError{Line: lineNo, Text: line}
		}
		v.m[v.fold.String(m[1])] = m[2]
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading parameter file: %w", err)
	}

	v.prepare()
	return v, nil
}

// ParseFile opens and parses a parameter file from disk.
func ParseFile(path string) (*Values, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening parameter file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// prepare normalizes raw values: strips quotes, trims whitespace, and maps
// the framework's boolean spellings to "1"/"0".
func (v *Values) prepare() {
	for k, raw := range v.m {
		val := strings.ReplaceAll(raw, `"`, "")
		val = strings.TrimSpace(val)

		switch {
		case equalsAny(val, "yes", "y", "true", "t"):
			val = "1"
		case equalsAny(val, "no", "n", "false", "f"):
			val = "0"
		}
		v.m[k] = val
	}
}

func equalsAny(s string, candidates ...string) bool {
	for _, c := range candidates {
		if strings.EqualFold(s, c) {
			return true
		}
	}
	return false
}

// Exists reports whether a parameter is given.
func (v *Values) Exists(key string) bool {
	_, ok := v.m[v.fold.String(key)]
	return ok
}

// Lookup returns the prepared string value.
func (v *Values) Lookup(key string) (string, bool) {
	val, ok := v.m[v.fold.String(key)]
	return val, ok
}

// Int returns an integer parameter. ok is false when the parameter is not
// given; a given but malformed value is an error.
func (v *Values) Int(key string) (val int, ok bool, err error) {
	s, ok := v.Lookup(key)
	if !ok {
		return 0, false, nil
	}
	val, err = strconv.Atoi(s)
	if err != nil {
		return 0, true, fmt.Errorf("parameter %s: %w", key, err)
	}
	return val, true, nil
}

// Real returns a floating-point parameter.
func (v *Values) Real(key string) (val float64, ok bool, err error) {
	s, ok := v.Lookup(key)
	if !ok {
		return 0, false, nil
	}
	val, err = strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, true, fmt.Errorf("parameter %s: %w", key, err)
	}
	return val, true, nil
}

// Bool returns a boolean parameter; prepare() has already mapped the
// framework's yes/no spellings to "1"/"0".
func (v *Values) Bool(key string) (val, ok bool, err error) {
	s, ok := v.Lookup(key)
	if !ok {
		return false, false, nil
	}
	switch s {
	case "1":
		return true, true, nil
	case "0":
		return false, true, nil
	default:
		return false, true, fmt.Errorf("parameter %s: not a boolean: %q", key, s)
	}
}
