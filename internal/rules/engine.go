// Package rules rewrites transcriptions with user-defined substitutions.
//
// A rules file holds one rule per line. Blank lines and lines starting with
// '#' are skipped.
//
//	teh => the                  case-insensitive literal replacement
//	s/\bum,?\s*//gi             regex replacement, flags i and g
//
// Rules run in file order and the whole list is re-applied until the text
// stops changing or the iteration limit is reached.
package rules

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

const defaultIterationLimit = 30

type rule struct {
	re        *regexp.Regexp
	with      string
	firstOnly bool
}

func (r rule) rewrite(text string) string {
	if !r.firstOnly {
		return r.re.ReplaceAllString(text, r.with)
	}
	loc := r.re.FindStringSubmatchIndex(text)
	if loc == nil {
		return text
	}
	var out []byte
	out = r.re.ExpandString(out, r.with, text, loc)
	return text[:loc[0]] + string(out) + text[loc[1]:]
}

// Engine holds a compiled rule list. The zero value applies no rules.
type Engine struct {
	rules []rule
	limit int
}

// Load reads rules from path. An empty path or a missing file yields an
// engine without rules.
func Load(path string, limit int) (*Engine, error) {
	if strings.TrimSpace(path) == "" {
		return &Engine{limit: limit}, nil
	}
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Engine{limit: limit}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open rules file %q: %w", path, err)
	}
	defer file.Close()

	engine, err := Parse(file, limit)
	if err != nil {
		return nil, fmt.Errorf("rules file %q: %w", path, err)
	}
	return engine, nil
}

// Parse compiles rules from r.
func Parse(r io.Reader, limit int) (*Engine, error) {
	engine := &Engine{limit: limit}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		compiled, err := compileLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		engine.rules = append(engine.rules, compiled)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	return engine, nil
}

// Len reports how many rules are loaded.
func (e *Engine) Len() int {
	if e == nil {
		return 0
	}
	return len(e.rules)
}

// Apply rewrites text until no rule changes it.
func (e *Engine) Apply(text string) (string, error) {
	if e.Len() == 0 {
		return text, nil
	}
	limit := e.limit
	if limit <= 0 {
		limit = defaultIterationLimit
	}

	for pass := 0; pass < limit; pass++ {
		before := text
		for _, r := range e.rules {
			text = r.rewrite(text)
		}
		if text == before {
			return text, nil
		}
	}
	return text, nil
}

func compileLine(line string) (rule, error) {
	if isSubstitution(line) {
		return compileSubstitution(line)
	}
	from, to, ok := strings.Cut(line, "=>")
	if !ok {
		return rule{}, errors.New("expected 'from => to' or 's/pattern/replacement/flags'")
	}
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if from == "" {
		return rule{}, errors.New("empty literal")
	}
	return rule{
		re: regexp.MustCompile("(?i)" + regexp.QuoteMeta(from)),
		// Literal replacements must not expand $ references.
		with: strings.ReplaceAll(to, "$", "$$"),
	}, nil
}

// isSubstitution matches s followed by a punctuation delimiter, e.g. s/ or s|.
func isSubstitution(line string) bool {
	if len(line) < 2 || line[0] != 's' {
		return false
	}
	d := line[1]
	return d != ' ' && d != '\t' && d != '\\' && !isWordByte(d)
}

func compileSubstitution(line string) (rule, error) {
	delim := line[1]
	fields, rest, err := splitDelimited(line[2:], delim, 2)
	if err != nil {
		return rule{}, err
	}

	prefix := ""
	firstOnly := true
	for _, flag := range strings.TrimSpace(rest) {
		switch flag {
		case 'i':
			prefix = "(?i)"
		case 'g':
			firstOnly = false
		default:
			return rule{}, fmt.Errorf("unknown flag %q", flag)
		}
	}

	re, err := regexp.Compile(prefix + fields[0])
	if err != nil {
		return rule{}, fmt.Errorf("bad pattern: %w", err)
	}
	return rule{re: re, with: fields[1], firstOnly: firstOnly}, nil
}

// splitDelimited reads n fields terminated by delim. A backslash before the
// delimiter makes it literal; other escapes are passed through to the regexp.
func splitDelimited(s string, delim byte, n int) ([]string, string, error) {
	fields := make([]string, 0, n)
	var current strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' && i+1 < len(s) {
			if s[i+1] == delim {
				current.WriteByte(delim)
			} else {
				current.WriteByte(c)
				current.WriteByte(s[i+1])
			}
			i++
			continue
		}
		if c == delim {
			fields = append(fields, current.String())
			current.Reset()
			if len(fields) == n {
				return fields, s[i+1:], nil
			}
			continue
		}
		current.WriteByte(c)
	}
	return nil, "", errors.New("unterminated substitution")
}

func isWordByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
