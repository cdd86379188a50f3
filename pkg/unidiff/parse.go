package unidiff

import (
	"regexp"
	"strconv"
	"strings"
)

// LineKind classifies a single body line inside a hunk.
type LineKind string

const (
	// Context marks a line present unchanged on both sides of the hunk.
	Context LineKind = "context"
	// Addition marks a line present only on the new side.
	Addition LineKind = "addition"
	// Deletion marks a line present only on the old side.
	Deletion LineKind = "deletion"
)

// Line is one classified body line of a hunk. Content carries the raw text
// with the diff marker and trailing newline stripped.
type Line struct {
	Kind    LineKind
	Content string
}

// Hunk is one @@ -oldStart,oldCount +newStart,newCount @@ block. Starts are
// 1-based per the unified-diff convention; a start of 0 only appears for
// empty-file hunks.
type Hunk struct {
	OldStart int
	OldCount int
	NewStart int
	NewCount int
	Lines    []Line
}

// OldBlock returns the hunk body as it should appear in the original text:
// the context and deletion lines, in order.
func (h Hunk) OldBlock() []string {
	block := make([]string, 0, h.OldCount)
	for _, line := range h.Lines {
		if line.Kind == Context || line.Kind == Deletion {
			block = append(block, line.Content)
		}
	}
	return block
}

// NewBlock returns the hunk body as it should appear in the patched text:
// the context and addition lines, in order.
func (h Hunk) NewBlock() []string {
	block := make([]string, 0, h.NewCount)
	for _, line := range h.Lines {
		if line.Kind == Context || line.Kind == Addition {
			block = append(block, line.Content)
		}
	}
	return block
}

// Diff is the ordered sequence of hunks parsed from one diff payload. Order
// matters: hunks are applied top to bottom against an advancing cursor.
type Diff []Hunk

var hunkHeaderRe = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

// Parse tokenizes raw diff text into hunks. Model output is frequently messy,
// so the parser is deliberately lenient: prose, ---/+++ file-identity lines
// and anything else preceding the first hunk header is skipped, and input
// without a single header yields an empty Diff rather than an error. Callers
// treat "no hunks" as a no-op.
func Parse(raw string) Diff {
	lines := splitLines(raw)
	var diff Diff

	for i := 0; i < len(lines); {
		m := hunkHeaderRe.FindStringSubmatch(lines[i])
		if m == nil {
			i++
			continue
		}
		hunk := parseHeader(m)
		i++

		oldSeen, newSeen := 0, 0
	body:
		for i < len(lines) {
			line := lines[i]
			if hunkHeaderRe.MatchString(line) {
				break
			}
			if strings.HasPrefix(line, `\ No newline at end of file`) {
				i++
				continue
			}

			var parsed Line
			switch {
			case strings.HasPrefix(line, "+"):
				parsed = Line{Kind: Addition, Content: line[1:]}
			case strings.HasPrefix(line, "-"):
				parsed = Line{Kind: Deletion, Content: line[1:]}
			case strings.HasPrefix(line, " "):
				parsed = Line{Kind: Context, Content: line[1:]}
			default:
				// No marker at all. Models often drop the leading space on
				// context lines, so treat the line as context while the hunk
				// is still owed body lines; once the declared counts are
				// satisfied this is trailing prose and the hunk is done.
				if oldSeen >= hunk.OldCount && newSeen >= hunk.NewCount {
					i++
					break body
				}
				parsed = Line{Kind: Context, Content: line}
			}

			switch parsed.Kind {
			case Context:
				oldSeen++
				newSeen++
			case Addition:
				newSeen++
			case Deletion:
				oldSeen++
			}
			hunk.Lines = append(hunk.Lines, parsed)
			i++
		}
		diff = append(diff, hunk)
	}

	return diff
}

func parseHeader(m []string) Hunk {
	oldStart, _ := strconv.Atoi(m[1])
	newStart, _ := strconv.Atoi(m[3])
	oldCount, newCount := 1, 1
	if m[2] != "" {
		oldCount, _ = strconv.Atoi(m[2])
	}
	if m[4] != "" {
		newCount, _ = strconv.Atoi(m[4])
	}
	return Hunk{OldStart: oldStart, OldCount: oldCount, NewStart: newStart, NewCount: newCount}
}

func splitLines(input string) []string {
	normalized := strings.ReplaceAll(input, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	return strings.Split(normalized, "\n")
}
