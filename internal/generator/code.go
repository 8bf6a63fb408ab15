package generator

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/mark3labs/sdkgen/internal/phpgen"
)

// TaggedOutputFile is a generated artifact that is not a structured class:
// manifests, configs, fixtures and tests kept as plain text.
type TaggedOutputFile struct {
	Tag     string
	Path    string
	Content string
}

// Issue records an artifact that was skipped because generating it failed.
type Issue struct {
	Stage    string
	Artifact string
	Err      error
}

func (i Issue) Error() string {
	if i.Artifact == "" {
		return fmt.Sprintf("%s: %v", i.Stage, i.Err)
	}
	return fmt.Sprintf("%s: %s: %v", i.Stage, i.Artifact, i.Err)
}

func (i Issue) Unwrap() error { return i.Err }

// GeneratedCode is the output bundle. Values are never modified in place:
// every With method returns a new bundle and leaves the receiver intact, so
// each pipeline stage hands its result to the next one explicitly.
type GeneratedCode struct {
	connector  *phpgen.File
	resources  []*phpgen.File
	requests   []*phpgen.File
	dtos       []*phpgen.File
	additional []TaggedOutputFile
	issues     []Issue
}

func (g GeneratedCode) Connector() *phpgen.File   { return g.connector }
func (g GeneratedCode) Resources() []*phpgen.File { return slices.Clone(g.resources) }
func (g GeneratedCode) Requests() []*phpgen.File  { return slices.Clone(g.requests) }
func (g GeneratedCode) DTOs() []*phpgen.File      { return slices.Clone(g.dtos) }
func (g GeneratedCode) Files() []TaggedOutputFile { return slices.Clone(g.additional) }
func (g GeneratedCode) Issues() []Issue           { return slices.Clone(g.issues) }

func (g GeneratedCode) WithConnector(f *phpgen.File) GeneratedCode {
	g.connector = f
	return g
}

func (g GeneratedCode) WithResources(files ...*phpgen.File) GeneratedCode {
	g.resources = append(slices.Clone(g.resources), files...)
	return g
}

func (g GeneratedCode) WithRequests(files ...*phpgen.File) GeneratedCode {
	g.requests = append(slices.Clone(g.requests), files...)
	return g
}

func (g GeneratedCode) WithDTOs(files ...*phpgen.File) GeneratedCode {
	g.dtos = append(slices.Clone(g.dtos), files...)
	return g
}

func (g GeneratedCode) WithFiles(files ...TaggedOutputFile) GeneratedCode {
	g.additional = append(slices.Clone(g.additional), files...)
	return g
}

func (g GeneratedCode) WithIssues(issues ...Issue) GeneratedCode {
	g.issues = append(slices.Clone(g.issues), issues...)
	return g
}

// DTO looks up a generated DTO by class name.
func (g GeneratedCode) DTO(class string) (*phpgen.File, bool) {
	for _, f := range g.dtos {
		if f.Class != nil && f.Class.Name == class {
			return f, true
		}
	}
	return nil, false
}

// FilesWithTag returns the additional files carrying tag.
func (g GeneratedCode) FilesWithTag(tag string) []TaggedOutputFile {
	var out []TaggedOutputFile
	for _, f := range g.additional {
		if f.Tag == tag {
			out = append(out, f)
		}
	}
	return out
}

// Output groups, in listing order.
const (
	GroupConnector = "Connector"
	GroupResources = "Resources"
	GroupRequests  = "Requests"
	GroupDTOs      = "DTOs"
	GroupTests     = "Tests"
	GroupProject   = "Project Files"
)

// OutputFile is one file ready to be written, with its relative path.
type OutputFile struct {
	Group   string
	Path    string
	Content string
}

// OutputFiles flattens the bundle into relative paths and contents in a
// stable order: connector, resources, requests, DTOs, then additional files
// sorted by path.
func (g GeneratedCode) OutputFiles(cfg Config) []OutputFile {
	var out []OutputFile
	add := func(group string, f *phpgen.File) {
		if f == nil || f.Class == nil {
			return
		}
		out = append(out, OutputFile{
			Group:   group,
			Path:    cfg.ClassPath(f.Namespace + `\` + f.Class.Name),
			Content: f.String(),
		})
	}
	add(GroupConnector, g.connector)
	for _, f := range g.resources {
		add(GroupResources, f)
	}
	for _, f := range g.requests {
		add(GroupRequests, f)
	}
	for _, f := range g.dtos {
		add(GroupDTOs, f)
	}

	extra := slices.Clone(g.additional)
	sort.SliceStable(extra, func(i, j int) bool { return extra[i].Path < extra[j].Path })
	for _, f := range extra {
		group := GroupProject
		if strings.HasPrefix(f.Path, "tests/") {
			group = GroupTests
		}
		out = append(out, OutputFile{Group: group, Path: f.Path, Content: f.Content})
	}
	return out
}
