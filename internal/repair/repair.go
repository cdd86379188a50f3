// Package repair turns near-valid JSON text from a language model into
// parseable JSON. The heavy lifting is delegated to a best-effort repair
// library; this package wraps it behind a small strategy interface so the
// pipeline can swap implementations, and re-formats the result the way the
// rest of the application expects.
package repair

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/kaptinlin/jsonrepair"
)

// Options control how repaired JSON is re-serialized.
type Options struct {
	// ASCIIOnly escapes every non-ASCII rune as \uXXXX. Off by default so
	// CJK script text survives untouched.
	ASCIIOnly bool
	// Indent is the number of spaces per indentation level; 0 emits
	// compact output.
	Indent int
}

// Repairer is the strategy consumed by the pipeline: given near-valid JSON
// text, return syntactically valid JSON text or fail.
type Repairer interface {
	Repair(text string, opts Options) (string, error)
}

// JSONRepairer is the default Repairer, backed by the jsonrepair library
// (the Go counterpart of the json_repair package the original tooling
// shelled out to). It fixes unbalanced brackets, trailing commas, unquoted
// keys, stray quotes and similar LLM damage.
type JSONRepairer struct{}

// Repair fixes text and re-formats it per opts.
func (JSONRepairer) Repair(text string, opts Options) (string, error) {
	repaired, err := jsonrepair.JSONRepair(text)
	if err != nil {
		return "", fmt.Errorf("repair json: %w", err)
	}
	return Format(repaired, opts)
}

// Format re-serializes valid JSON text with the requested indentation and
// escaping. Number literals pass through verbatim.
func Format(text string, opts Options) (string, error) {
	decoder := json.NewDecoder(strings.NewReader(text))
	decoder.UseNumber()
	var value any
	if err := decoder.Decode(&value); err != nil {
		return "", fmt.Errorf("decode repaired json: %w", err)
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if opts.Indent > 0 {
		encoder.SetIndent("", strings.Repeat(" ", opts.Indent))
	}
	if err := encoder.Encode(value); err != nil {
		return "", fmt.Errorf("encode repaired json: %w", err)
	}

	out := strings.TrimSuffix(buf.String(), "\n")
	if opts.ASCIIOnly {
		out = escapeNonASCII(out)
	}
	return out, nil
}

func escapeNonASCII(s string) string {
	if isASCII(s) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < utf8.RuneSelf {
			b.WriteRune(r)
			continue
		}
		if r > 0xFFFF {
			hi, lo := utf16.EncodeRune(r)
			fmt.Fprintf(&b, `\u%04x\u%04x`, hi, lo)
			continue
		}
		fmt.Fprintf(&b, `\u%04x`, r)
	}
	return b.String()
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
