package writer

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/mark3labs/sdkgen/internal/generator"
)

var planGroups = []string{
	generator.GroupConnector,
	generator.GroupResources,
	generator.GroupRequests,
	generator.GroupDTOs,
	generator.GroupTests,
	generator.GroupProject,
}

// PrintPlan lists the files a run would write, grouped by kind, without
// touching the filesystem.
func PrintPlan(out io.Writer, outDir string, files []generator.OutputFile) {
	fmt.Fprintf(out, "Planned writes to %s (%d files):\n", outDir, len(files))
	for _, group := range planGroups {
		var paths []string
		for _, f := range files {
			if f.Group == group {
				paths = append(paths, filepath.ToSlash(f.Path))
			}
		}
		if len(paths) == 0 {
			continue
		}
		fmt.Fprintf(out, "\n%s:\n", group)
		for _, p := range paths {
			fmt.Fprintf(out, "- %s\n", p)
		}
	}
}
