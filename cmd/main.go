package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/settinghead/script-writer-sub003/internal/pipeline"
	"github.com/settinghead/script-writer-sub003/internal/repair"
	"github.com/settinghead/script-writer-sub003/pkg/jsondiff"
)

// main wires the diff-to-patch pipeline into a small command line tool.
//
// With -doc and -diff it runs the full pipeline and prints the RFC 6902
// patch list. Without -doc it degrades to a standalone JSON repair utility
// reading a file argument or stdin, mirroring the repair tool shipped with
// the original application.
func main() {
	var (
		docPath     = flag.String("doc", "", "path to the original JSON document")
		diffPath    = flag.String("diff", "", "path to the model-emitted unified diff (stdin when omitted)")
		ensureASCII = flag.Bool("ensure-ascii", false, "escape non-ASCII characters in repaired output")
		indent      = flag.Int("indent", 2, "JSON indentation spaces (0 for compact output)")
	)
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		// A missing .env file is fine, but other errors should be surfaced to help with debugging.
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
			os.Exit(1)
		}
	}

	logger, err := buildLogger(os.Getenv("SCRIPTWRITER_LOG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open log file: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	opts := repair.Options{ASCIIOnly: *ensureASCII, Indent: *indent}

	if *docPath == "" {
		if err := repairOnly(flag.Arg(0), opts); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := runPipeline(*docPath, *diffPath, opts, logger); err != nil {
		var malformed *pipeline.MalformedDocumentError
		if errors.As(err, &malformed) {
			fmt.Fprintf(os.Stderr, "%v\n", malformed)
			if malformed.RepairedText != "" {
				fmt.Fprintf(os.Stderr, "repair attempt produced:\n%s\n", malformed.RepairedText)
			}
		} else {
			fmt.Fprintf(os.Stderr, "%v\n", err)
		}
		os.Exit(1)
	}
}

func runPipeline(docPath, diffPath string, opts repair.Options, logger *zap.Logger) error {
	document, err := os.ReadFile(docPath)
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}
	rawDiff, err := readInput(diffPath)
	if err != nil {
		return fmt.Errorf("read diff: %w", err)
	}

	p := pipeline.New(
		pipeline.WithRepairOptions(opts),
		pipeline.WithLogger(logger),
	)
	result, err := p.Run(string(document), rawDiff)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "hunks: %d parsed, %d skipped\n", len(result.Hunks), result.SkippedHunks)

	patches := result.Patches
	if patches == nil {
		patches = []jsondiff.Operation{}
	}
	payload, err := json.MarshalIndent(patches, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal patches: %w", err)
	}
	fmt.Println(string(payload))
	return nil
}

// repairOnly reads near-valid JSON from path (or stdin when path is empty),
// repairs it and prints the result.
func repairOnly(path string, opts repair.Options) error {
	input, err := readInput(path)
	if err != nil {
		return err
	}
	repaired, err := repair.JSONRepairer{}.Repair(input, opts)
	if err != nil {
		return err
	}
	fmt.Println(repaired)
	return nil
}

func readInput(path string) (string, error) {
	if path == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// buildLogger returns a file-backed JSON logger when logPath is set and a
// no-op logger otherwise, so normal CLI runs stay quiet on stderr.
func buildLogger(logPath string) (*zap.Logger, error) {
	if logPath == "" {
		return zap.NewNop(), nil
	}
	logFile, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(logFile),
		zapcore.DebugLevel,
	)
	return zap.New(core), nil
}
