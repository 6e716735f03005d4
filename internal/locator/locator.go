// Package locator finds a scheduled step's implementation body inside the
// component's source files. Given a resolved step name, it extracts the
// function's signature and brace-balanced body so the emitter can weld them
// into the generated output.
package locator

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Body is one extracted implementation.
type Body struct {
	StepName   string
	SourceFile string
	Signature  string // parameter list text, parentheses included
	Code       string // function body, braces included
	Line       int    // 1-based line of the definition
}

// NotFoundError reports that a step has no implementation in its declared
// source file.
type NotFoundError struct {
	Step string
	File string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no implementation of step %q found in %s", e.Step, e.File)
}

// FindBody locates the definition of step in the given source file. The
// definition must be a C-style function whose name equals the step name;
// the return type is not inspected. Occurrences inside comments or string
// literals are not recognized as definitions because they are not followed
// by a parameter list and an opening brace at top level.
func FindBody(path, step string) (*Body, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading source file: %w", err)
	}
	return findInSource(string(src), path, step)
}

func findInSource(src, path, step string) (*Body, error) {
	// Anchored at the definition: name, parameter list, opening brace.
	// regexp.QuoteMeta guards step names containing regex metacharacters,
	// even though valid identifiers never do.
	defRe := regexp.MustCompile(`(?ms)^[^\S\n]*(?:[\w\*]+[^\S\n]+)+` +
		regexp.QuoteMeta(step) + `[^\S\n]*(\([^)]*\))[^\S\n]*\n?[^\S\n]*\{`)

	loc := defRe.FindStringSubmatchIndex(src)
	if loc == nil {
		return nil, &NotFoundError{Step: step, File: path}
	}

	signature := src[loc[2]:loc[3]]
	braceStart := loc[1] - 1 // index of the opening brace matched above

	code, err := balancedBlock(src[braceStart:])
	if err != nil {
		return nil, fmt.Errorf("step %q in %s: %w", step, path, err)
	}

	return &Body{
		StepName:   step,
		SourceFile: path,
		Signature:  signature,
		Code:       code,
		Line:       1 + strings.Count(src[:loc[0]], "\n"),
	}, nil
}

// balancedBlock returns the prefix of src spanning one brace-balanced
// block, starting at an opening brace. Braces inside string and character
// literals and comments are skipped.
func balancedBlock(src string) (string, error) {
	depth := 0
	i := 0
	for i < len(src) {
		switch c := src[i]; c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return src[:i+1], nil
			}
		case '"', '\'':
			// Skip the literal, honoring backslash escapes.
			quote := c
			for i++; i < len(src); i++ {
				if src[i] == '\\' {
					i++
					continue
				}
				if src[i] == quote {
					break
				}
			}
		case '/':
			if i+1 < len(src) && src[i+1] == '/' {
				for i < len(src) && src[i] != '\n' {
					i++
				}
				continue
			}
			if i+1 < len(src) && src[i+1] == '*' {
				end := strings.Index(src[i+2:], "*/")
				if end < 0 {
					return "", fmt.Errorf("unterminated comment")
				}
				i += 2 + end + 1
			}
		}
		i++
	}
	return "", fmt.Errorf("unbalanced braces")
}
