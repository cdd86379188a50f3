package pipeline

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/stretchr/testify/require"

	"github.com/settinghead/script-writer-sub003/internal/repair"
	"github.com/settinghead/script-writer-sub003/pkg/jsondiff"
)

const scriptDocument = `{
  "characters": [
    {
      "name": "Mei"
    },
    {
      "name": "Jun"
    }
  ],
  "setting": {
    "city": "Shanghai"
  }
}`

var scriptDiff = strings.Join([]string{
	"@@ -6,4 +6,7 @@",
	"     {",
	`       "name": "Jun"`,
	"-    }",
	"+    },",
	"+    {",
	`+      "name": "Lao Wang"`,
	"+    }",
	"   ],",
	"@@ -14,2 +17,4 @@",
	`-    "city": "Shanghai"`,
	`+    "city": "Shanghai",`,
	`+    "era": "1990s",`,
	`+    "mood": "nostalgic"`,
	"   }",
}, "\n")

// stubRepairer lets tests force repair outcomes without depending on the
// real repair library's heuristics.
type stubRepairer struct {
	output string
	err    error
}

func (s stubRepairer) Repair(string, repair.Options) (string, error) {
	return s.output, s.err
}

func TestRunScriptEditScenario(t *testing.T) {
	t.Parallel()

	result, err := New().Run(scriptDocument, scriptDiff)
	require.NoError(t, err)

	require.Len(t, result.Hunks, 2)
	require.Zero(t, result.SkippedHunks)
	require.Empty(t, result.RepairedText, "well-formed edit should not need repair")

	require.Len(t, result.Patches, 3)
	for _, op := range result.Patches {
		require.Equal(t, jsondiff.OpAdd, op.Op, "scenario expects additions only: %+v", result.Patches)
	}
	paths := make([]string, 0, len(result.Patches))
	for _, op := range result.Patches {
		paths = append(paths, op.Path)
	}
	require.ElementsMatch(t, []string{"/characters/2", "/setting/era", "/setting/mood"}, paths)

	require.NoError(t, jsondiff.Validate(result.Patches))

	// The patch list must carry the original document to the patched one
	// under an independent RFC 6902 applier.
	payload, err := json.Marshal(result.Patches)
	require.NoError(t, err)
	patch, err := jsonpatch.DecodePatch(payload)
	require.NoError(t, err)
	patchedBytes, err := patch.Apply([]byte(scriptDocument))
	require.NoError(t, err)
	var independent any
	require.NoError(t, json.Unmarshal(patchedBytes, &independent))
	require.True(t, reflect.DeepEqual(independent, result.PatchedDocument))
}

func TestRunEmptyDiffIsNoOp(t *testing.T) {
	t.Parallel()

	result, err := New().Run(scriptDocument, "")
	require.NoError(t, err)
	require.Empty(t, result.Hunks)
	require.Equal(t, scriptDocument, result.PatchedText)
	require.Empty(t, result.Patches)
}

func TestRunNonDiffTextIsNoOp(t *testing.T) {
	t.Parallel()

	result, err := New().Run(scriptDocument, "Sorry, I cannot produce a diff for that request.")
	require.NoError(t, err)
	require.Empty(t, result.Hunks)
	require.Equal(t, scriptDocument, result.PatchedText)
	require.Empty(t, result.Patches)
}

func TestRunRelocatesDriftedHunk(t *testing.T) {
	t.Parallel()

	// Declared start is one line off; unique context nearby must rescue it.
	diff := strings.Join([]string{
		"@@ -10,2 +10,2 @@",
		`-    "city": "Shanghai"`,
		`+    "city": "Chongqing"`,
		"   }",
	}, "\n")

	result, err := New().Run(scriptDocument, diff)
	require.NoError(t, err)
	require.Zero(t, result.SkippedHunks)
	require.Len(t, result.Patches, 1)
	require.Equal(t, jsondiff.OpReplace, result.Patches[0].Op)
	require.Equal(t, "/setting/city", result.Patches[0].Path)
	require.Equal(t, "Chongqing", result.Patches[0].Value)
}

func TestRunSkippedHunkIsRecoveredNotFatal(t *testing.T) {
	t.Parallel()

	diff := strings.Join([]string{
		"@@ -2,1 +2,1 @@",
		"-this text exists nowhere",
		"+and never will",
	}, "\n")

	result, err := New().Run(scriptDocument, diff)
	require.NoError(t, err)
	require.Equal(t, 1, result.SkippedHunks)
	require.Equal(t, scriptDocument, result.PatchedText)
	require.Empty(t, result.Patches)
}

func TestRunRepairsDamagedPatchOutput(t *testing.T) {
	t.Parallel()

	// The hunk leaves a trailing comma behind, so the direct parse fails
	// and the repairer has to step in.
	diff := strings.Join([]string{
		"@@ -11,1 +11,1 @@",
		`-    "city": "Shanghai"`,
		`+    "city": "Shanghai",`,
	}, "\n")

	result, err := New().Run(scriptDocument, diff)
	require.NoError(t, err)
	require.NotEmpty(t, result.RepairedText, "repair pass should have run")
	require.Empty(t, result.Patches, "repair restores the original structure")
}

func TestRunFailsWhenRepairOutputStillInvalid(t *testing.T) {
	t.Parallel()

	breakingDiff := strings.Join([]string{
		"@@ -1,1 +1,1 @@",
		"-{",
		"+{{{",
	}, "\n")

	p := New(WithRepairer(stubRepairer{output: "still not json"}))
	_, err := p.Run(scriptDocument, breakingDiff)
	require.Error(t, err)

	var malformed *MalformedDocumentError
	require.ErrorAs(t, err, &malformed)
	require.Equal(t, "still not json", malformed.RepairedText)
	require.NotEmpty(t, malformed.PatchedText)
}

func TestRunFailsWhenRepairerErrors(t *testing.T) {
	t.Parallel()

	breakingDiff := strings.Join([]string{
		"@@ -1,1 +1,1 @@",
		"-{",
		"+{{{",
	}, "\n")

	wantErr := errors.New("repairer exploded")
	p := New(WithRepairer(stubRepairer{err: wantErr}))
	_, err := p.Run(scriptDocument, breakingDiff)

	var malformed *MalformedDocumentError
	require.ErrorAs(t, err, &malformed)
	require.ErrorIs(t, err, wantErr)
	require.Empty(t, malformed.RepairedText)
}

func TestRunRejectsNonJSONOriginal(t *testing.T) {
	t.Parallel()

	_, err := New().Run("FADE IN: not a JSON document", "")
	require.Error(t, err)

	var malformed *MalformedDocumentError
	require.False(t, errors.As(err, &malformed), "input contract violation is not a pipeline failure")
}

func TestRunIsPureAcrossInvocations(t *testing.T) {
	t.Parallel()

	p := New()
	first, err := p.Run(scriptDocument, scriptDiff)
	require.NoError(t, err)
	second, err := p.Run(scriptDocument, scriptDiff)
	require.NoError(t, err)
	require.Equal(t, first.Patches, second.Patches)
	require.Equal(t, first.PatchedText, second.PatchedText)
}
