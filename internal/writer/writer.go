// Package writer persists a generated SDK to disk. Every file is checked
// on its own against the never-override policy and produces exactly one
// Report, so callers can print a line per decision.
package writer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/tidwall/gjson"

	"github.com/mark3labs/sdkgen/internal/generator"
)

const (
	// NeverOverrideToken protects a source file when it appears anywhere in
	// its text.
	NeverOverrideToken = "@sdk-never-override"
	// NeverOverrideField protects a JSON manifest when it is a top-level
	// field set to true.
	NeverOverrideField = "x-sdk-never-override"
)

type Action string

const (
	ActionCreated   Action = "created"
	ActionExists    Action = "exists"
	ActionProtected Action = "protected"
	ActionFailed    Action = "failed"
)

// Report is the outcome for one path.
type Report struct {
	Action Action
	Path   string
	Err    error
}

func (r Report) String() string {
	switch r.Action {
	case ActionCreated:
		return "- Created: " + r.Path
	case ActionExists:
		return "- File already exists: " + r.Path
	case ActionProtected:
		return "- Protected by " + NeverOverrideToken + ": " + r.Path
	default:
		return "- Failed to write: " + r.Path
	}
}

// Options configures a Writer. A nil Fs writes to the OS filesystem.
type Options struct {
	OutDir string
	Force  bool
	Logger *slog.Logger
	Fs     afero.Fs
}

type Writer struct {
	fs     afero.Fs
	outDir string
	force  bool
	log    *slog.Logger
}

func New(opts Options) *Writer {
	w := &Writer{
		fs:     opts.Fs,
		outDir: opts.OutDir,
		force:  opts.Force,
		log:    opts.Logger,
	}
	if w.fs == nil {
		w.fs = afero.NewOsFs()
	}
	if w.log == nil {
		w.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if strings.TrimSpace(w.outDir) == "" {
		w.outDir = "."
	}
	return w
}

// Write persists files under the output directory and returns one report
// per file in input order. A failure on one file never stops the rest;
// only context cancellation ends the run early.
func (w *Writer) Write(ctx context.Context, files []generator.OutputFile) ([]Report, error) {
	reports := make([]Report, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		r := w.writeFile(f)
		if r.Err != nil {
			w.log.Warn("write failed", "path", r.Path, "error", r.Err)
		} else {
			w.log.Debug("write decision", "path", r.Path, "action", string(r.Action))
		}
		reports = append(reports, r)
	}
	return reports, nil
}

func (w *Writer) writeFile(f generator.OutputFile) Report {
	target := filepath.Join(w.outDir, filepath.FromSlash(f.Path))

	existing, err := afero.ReadFile(w.fs, target)
	switch {
	case err == nil:
		// Protection wins over --force.
		if IsProtected(target, existing) {
			return Report{Action: ActionProtected, Path: target}
		}
		if !w.force {
			return Report{Action: ActionExists, Path: target}
		}
	case !errors.Is(err, fs.ErrNotExist):
		return Report{Action: ActionFailed, Path: target, Err: err}
	}

	if err := writeAtomic(w.fs, target, []byte(f.Content)); err != nil {
		return Report{Action: ActionFailed, Path: target, Err: err}
	}
	return Report{Action: ActionCreated, Path: target}
}

// IsProtected reports whether existing content at path carries the
// never-override marker. JSON files are protected only by a top-level
// boolean field; a file that does not parse is not protected.
func IsProtected(path string, content []byte) bool {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if !gjson.ValidBytes(content) {
			return false
		}
		return gjson.GetBytes(content, NeverOverrideField).Type == gjson.True
	}
	return bytes.Contains(content, []byte(NeverOverrideToken))
}

// writeAtomic writes through a temp file and a rename so readers never see
// a half-written file.
func writeAtomic(fsys afero.Fs, path string, data []byte) error {
	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := afero.WriteFile(fsys, tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := fsys.Rename(tmp, path); err != nil {
		_ = fsys.Remove(tmp)
		return fmt.Errorf("place file: %w", err)
	}
	return nil
}
