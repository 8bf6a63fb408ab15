package generator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mark3labs/sdkgen/internal/spec"
)

// Input is what every stage reads. Neither field is modified by stages.
type Input struct {
	Config Config
	Spec   *spec.Specification
}

// Stage is one step of the pipeline. It receives the bundle built so far
// and returns an extended copy. Post-processors implement the same
// interface and run after the class generators.
type Stage interface {
	Name() string
	Apply(ctx context.Context, in Input, code GeneratedCode) (GeneratedCode, error)
}

// StageFunc adapts a function to Stage.
type StageFunc struct {
	StageName string
	Fn        func(ctx context.Context, in Input, code GeneratedCode) (GeneratedCode, error)
}

func (s StageFunc) Name() string { return s.StageName }

func (s StageFunc) Apply(ctx context.Context, in Input, code GeneratedCode) (GeneratedCode, error) {
	return s.Fn(ctx, in, code)
}

// CodeGenerator runs the class generators, then the post-processors, in a
// fixed order.
type CodeGenerator struct {
	stages         []Stage
	postProcessors []Stage
	logger         *slog.Logger
}

type Option func(*CodeGenerator)

// WithLogger sets the logger used for skipped artifacts and stage timing.
func WithLogger(l *slog.Logger) Option {
	return func(g *CodeGenerator) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithPostProcessors appends post-processors, run in the given order.
func WithPostProcessors(p ...Stage) Option {
	return func(g *CodeGenerator) { g.postProcessors = append(g.postProcessors, p...) }
}

// New returns a generator with the DTO, request, resource and connector
// stages installed.
func New(opts ...Option) *CodeGenerator {
	g := &CodeGenerator{
		stages: []Stage{DTOStage{}, RequestStage{}, ResourceStage{}, ConnectorStage{}},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

var ErrNoSpecification = errors.New("generator: no specification")

// Run builds the output bundle for sp. Failures inside a stage are recorded
// as issues on the bundle and the run continues; only a missing
// specification or a cancelled context abort it.
func (g *CodeGenerator) Run(ctx context.Context, cfg Config, sp *spec.Specification) (GeneratedCode, error) {
	if sp == nil {
		return GeneratedCode{}, ErrNoSpecification
	}
	in := Input{Config: cfg, Spec: sp}
	code := GeneratedCode{}
	for _, st := range append(append([]Stage(nil), g.stages...), g.postProcessors...) {
		if err := ctx.Err(); err != nil {
			return code, err
		}
		before := len(code.issues)
		next, err := st.Apply(ctx, in, code)
		if err != nil {
			g.logger.Warn("stage failed", "stage", st.Name(), "error", err)
			code = code.WithIssues(Issue{Stage: st.Name(), Err: err})
			continue
		}
		code = next
		for _, issue := range code.issues[before:] {
			g.logger.Warn("artifact skipped", "stage", issue.Stage, "artifact", issue.Artifact, "error", issue.Err)
		}
		g.logger.Debug("stage complete", "stage", st.Name(),
			"dtos", len(code.dtos), "requests", len(code.requests), "files", len(code.additional))
	}
	return code, nil
}

func issue(stage, artifact string, format string, args ...any) Issue {
	return Issue{Stage: stage, Artifact: artifact, Err: fmt.Errorf(format, args...)}
}
