package unidiff

import "strings"

// searchWindow bounds how far (in lines) a hunk's anchor may drift from its
// declared OldStart before the hunk is skipped. Model-emitted line numbers
// drift by a handful of lines in practice; a window this size catches them
// all while keeping a bad hunk from matching unrelated text far away.
const searchWindow = 200

// HunkStatus reports how a single hunk fared during application.
type HunkStatus struct {
	Number  int    `json:"number"`
	Status  string `json:"status"`
	Matched int    `json:"matched,omitempty"`
}

const (
	// StatusApplied means the hunk's old block was found and replaced.
	StatusApplied = "applied"
	// StatusSkipped means no safe anchor was found and the region was left
	// untouched.
	StatusSkipped = "skipped"
)

// ApplyResult carries the patched text together with per-hunk diagnostics.
type ApplyResult struct {
	Text     string
	Statuses []HunkStatus
	Skipped  int
}

// Apply replays hunks on top of originalText and returns the patched text.
//
// Line numbers emitted by a language model cannot be trusted: the model sees
// its own earlier output rather than authoritative positions. Each hunk is
// therefore anchored by content. The declared OldStart is tried first; on a
// mismatch the old block is searched for near the declared position, at or
// after the cursor left by the previous hunk, and the candidate closest to
// the declaration wins. A hunk with no safe anchor inside the search window
// is skipped, never spliced somewhere it half-fits: the downstream JSON
// parse catches structural damage, a misapplied hunk silently corrupts.
//
// Apply never fails. An empty Diff returns originalText byte for byte.
func Apply(originalText string, hunks Diff) ApplyResult {
	if len(hunks) == 0 {
		return ApplyResult{Text: originalText}
	}

	eol := "\n"
	if strings.Contains(originalText, "\r\n") {
		eol = "\r\n"
	}
	lines := splitLines(originalText)

	result := ApplyResult{}
	cursor := 0
	for index, hunk := range hunks {
		number := index + 1
		oldBlock := hunk.OldBlock()
		newBlock := hunk.NewBlock()

		if len(oldBlock) == 0 {
			// Pure insertion: OldStart names the line after which to insert.
			at := clamp(hunk.OldStart, cursor, len(lines))
			lines = splice(lines, at, 0, newBlock)
			cursor = at + len(newBlock)
			result.Statuses = append(result.Statuses, HunkStatus{Number: number, Status: StatusApplied, Matched: at + 1})
			continue
		}

		matchIndex := locate(lines, oldBlock, cursor, hunk.OldStart-1)
		if matchIndex == -1 {
			result.Statuses = append(result.Statuses, HunkStatus{Number: number, Status: StatusSkipped})
			result.Skipped++
			continue
		}

		lines = splice(lines, matchIndex, len(oldBlock), newBlock)
		cursor = matchIndex + len(newBlock)
		result.Statuses = append(result.Statuses, HunkStatus{Number: number, Status: StatusApplied, Matched: matchIndex + 1})
	}

	result.Text = strings.Join(lines, eol)
	return result
}

// locate finds the anchor index for block, at or after cursor. declared is
// the 0-based index implied by the hunk header; the exact declared position
// wins outright, otherwise the in-window candidate closest to it does.
func locate(lines, block []string, cursor, declared int) int {
	last := len(lines) - len(block)
	if last < cursor {
		return -1
	}

	if declared >= cursor && declared <= last && matchesAt(lines, block, declared) {
		return declared
	}

	best := -1
	bestDistance := 0
	for i := cursor; i <= last; i++ {
		distance := i - declared
		if distance < 0 {
			distance = -distance
		}
		if distance > searchWindow {
			if i > declared {
				break
			}
			continue
		}
		if !matchesAt(lines, block, i) {
			continue
		}
		if best == -1 || distance < bestDistance {
			best = i
			bestDistance = distance
		}
	}
	return best
}

func matchesAt(lines, block []string, index int) bool {
	for j, want := range block {
		if lines[index+j] != want {
			return false
		}
	}
	return true
}

func splice(target []string, index, deleteCount int, replacement []string) []string {
	if deleteCount == 0 && len(replacement) == 0 {
		return target
	}
	result := make([]string, 0, len(target)-deleteCount+len(replacement))
	result = append(result, target[:index]...)
	result = append(result, replacement...)
	result = append(result, target[index+deleteCount:]...)
	return result
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
