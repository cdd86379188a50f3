package pipeline

// MalformedDocumentError is the only failure this subsystem surfaces: the
// patched text could not be parsed as JSON even after a repair attempt. It
// carries both the unrepaired text and whatever the repairer produced so an
// operator can see how far the document got.
type MalformedDocumentError struct {
	// PatchedText is the applier output that failed to parse directly.
	PatchedText string
	// RepairedText is the repair attempt's output, empty when the repairer
	// itself failed before producing any.
	RepairedText string
	// Err is the underlying parse or repair failure.
	Err error
}

func (e *MalformedDocumentError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return "patched document is not valid JSON after repair: " + e.Err.Error()
	}
	return "patched document is not valid JSON after repair"
}

func (e *MalformedDocumentError) Unwrap() error {
	return e.Err
}
