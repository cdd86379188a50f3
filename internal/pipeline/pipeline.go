// Package pipeline turns a free-text unified diff emitted by a language
// model into a validated list of RFC 6902 patch operations against a JSON
// document.
//
// The stages run strictly forward: parse the diff, replay its hunks onto the
// document text, parse the result (repairing it first if the model bent the
// JSON), then structurally diff the before and after values. Every stage
// output is kept on the Result so callers that only need the patched text,
// or only the hunks, do not re-run earlier stages.
package pipeline

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/settinghead/script-writer-sub003/internal/repair"
	"github.com/settinghead/script-writer-sub003/pkg/jsondiff"
	"github.com/settinghead/script-writer-sub003/pkg/unidiff"
)

// Result carries the final patch list plus every intermediate artifact for
// diagnostics and UI display.
type Result struct {
	// Hunks is the parsed diff, in source order.
	Hunks unidiff.Diff
	// HunkStatuses records how each hunk fared during application.
	HunkStatuses []unidiff.HunkStatus
	// SkippedHunks counts hunks whose context could not be located.
	SkippedHunks int
	// PatchedText is the applier output, before any repair.
	PatchedText string
	// RepairedText is non-empty only when a repair pass was needed to make
	// PatchedText parse.
	RepairedText string
	// PatchedDocument is the parsed post-patch value.
	PatchedDocument any
	// Patches transforms the original document into PatchedDocument.
	Patches []jsondiff.Operation
}

// Pipeline composes the diff-to-patch stages. The zero value is not usable;
// construct with New. A Pipeline holds no per-run state and is safe for
// concurrent use.
type Pipeline struct {
	repairer   repair.Repairer
	repairOpts repair.Options
	logger     *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRepairer substitutes the JSON repair strategy.
func WithRepairer(r repair.Repairer) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.repairer = r
		}
	}
}

// WithRepairOptions sets the serialization options handed to the repairer.
func WithRepairOptions(opts repair.Options) Option {
	return func(p *Pipeline) {
		p.repairOpts = opts
	}
}

// WithLogger routes stage diagnostics to the given logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New builds a Pipeline with the default repairer and a silent logger.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		repairer:   repair.JSONRepairer{},
		repairOpts: repair.Options{Indent: 2},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes the full pipeline. originalDocumentText must be valid JSON;
// rawDiffText may be anything the model produced, including text that is
// not a diff at all (which degrades to an empty patch list).
//
// The only surfaced failure is *MalformedDocumentError: the patched text
// still did not parse after one repair attempt. Everything else — missing
// hunk headers, hunks whose context cannot be found, an initially malformed
// parse — recovers locally and shows up in the Result diagnostics instead.
func (p *Pipeline) Run(originalDocumentText, rawDiffText string) (*Result, error) {
	var before any
	if err := json.Unmarshal([]byte(originalDocumentText), &before); err != nil {
		return nil, fmt.Errorf("parse original document: %w", err)
	}

	hunks := unidiff.Parse(rawDiffText)
	if len(hunks) == 0 {
		p.logger.Debug("diff contained no hunks, treating as no-op")
	}

	applied := unidiff.Apply(originalDocumentText, hunks)
	if applied.Skipped > 0 {
		p.logger.Warn("hunks skipped during application",
			zap.Int("skipped", applied.Skipped),
			zap.Int("total", len(hunks)))
	}

	after, repairedText, err := p.parseOrRepair(applied.Text)
	if err != nil {
		return nil, err
	}

	return &Result{
		Hunks:           hunks,
		HunkStatuses:    applied.Statuses,
		SkippedHunks:    applied.Skipped,
		PatchedText:     applied.Text,
		RepairedText:    repairedText,
		PatchedDocument: after,
		Patches:         jsondiff.Diff(before, after),
	}, nil
}

// parseOrRepair parses text directly and falls back to one repair pass. The
// returned string is the repaired text, empty when no repair was needed.
func (p *Pipeline) parseOrRepair(text string) (any, string, error) {
	var value any
	directErr := json.Unmarshal([]byte(text), &value)
	if directErr == nil {
		return value, "", nil
	}
	p.logger.Debug("patched text failed direct parse, attempting repair", zap.Error(directErr))

	repaired, err := p.repairer.Repair(text, p.repairOpts)
	if err != nil {
		return nil, "", &MalformedDocumentError{PatchedText: text, Err: err}
	}
	if err := json.Unmarshal([]byte(repaired), &value); err != nil {
		return nil, "", &MalformedDocumentError{PatchedText: text, RepairedText: repaired, Err: err}
	}
	return value, repaired, nil
}
