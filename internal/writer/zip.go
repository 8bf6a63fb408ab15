package writer

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/mark3labs/sdkgen/internal/generator"
)

// archiveTime stamps every entry so archives of the same output are
// byte-identical.
var archiveTime = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// ArchiveName is the file name of the zip bundle for a connector.
func ArchiveName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "sdk"
	}
	return name + "_sdk.zip"
}

// ZipReport is the outcome of WriteZip.
type ZipReport struct {
	Path    string
	Skipped bool
	Entries []string
}

func (r ZipReport) String() string {
	if r.Skipped {
		return "- Zip archive already exists: " + r.Path
	}
	return "- Created zip archive: " + r.Path
}

// WriteZip bundles all files into one archive in the output directory.
// Per-file protection does not apply; the archive is skipped as a whole
// when it exists and force is unset.
func (w *Writer) WriteZip(ctx context.Context, name string, files []generator.OutputFile) (ZipReport, error) {
	target := filepath.Join(w.outDir, ArchiveName(name))
	report := ZipReport{Path: target}

	exists, err := afero.Exists(w.fs, target)
	if err != nil {
		return report, fmt.Errorf("stat %s: %w", target, err)
	}
	if exists && !w.force {
		report.Skipped = true
		return report, nil
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		entry := filepath.ToSlash(f.Path)
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     entry,
			Method:   zip.Deflate,
			Modified: archiveTime,
		})
		if err != nil {
			return report, fmt.Errorf("add %s: %w", entry, err)
		}
		if _, err := fw.Write([]byte(f.Content)); err != nil {
			return report, fmt.Errorf("add %s: %w", entry, err)
		}
		report.Entries = append(report.Entries, entry)
	}
	if err := zw.Close(); err != nil {
		return report, fmt.Errorf("finish archive: %w", err)
	}

	if err := writeAtomic(w.fs, target, buf.Bytes()); err != nil {
		return report, fmt.Errorf("write %s: %w", target, err)
	}
	w.log.Debug("wrote archive", "path", target, "entries", len(report.Entries))
	return report, nil
}
