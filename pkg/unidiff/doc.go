// Package unidiff parses unified-diff text produced by language models and
// replays it onto an in-memory document.
//
// Model-emitted diffs are unreliable in two distinct ways: the surrounding
// text may not be a diff at all, and the line numbers inside hunk headers
// routinely drift from the true positions. The parser therefore never fails
// (non-diff input yields an empty hunk list) and the applier anchors hunks by
// their context rather than by their declared offsets, skipping any hunk it
// cannot place safely.
package unidiff
