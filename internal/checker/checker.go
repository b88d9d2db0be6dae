// Package checker runs every contract check over a documentation tree and
// merges the results in a fixed order.
package checker

import (
	"context"
	"io/fs"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kipp7/landslide-monitoring-v2/internal/config"
	"github.com/kipp7/landslide-monitoring-v2/internal/narrative"
	"github.com/kipp7/landslide-monitoring-v2/internal/openapi"
	"github.com/kipp7/landslide-monitoring-v2/internal/problem"
	"github.com/kipp7/landslide-monitoring-v2/internal/registry"
	"github.com/kipp7/landslide-monitoring-v2/internal/schemacheck"
)

// Engine checks one repository tree. It is safe to call Run repeatedly; each
// call re-reads every file.
type Engine struct {
	fsys      fs.FS
	cfg       *config.Config
	logger    *zap.Logger
	validator *schemacheck.Validator
	policy    []openapi.Rule
}

// New creates an engine reading from fsys, whose root is the repository root.
func New(fsys fs.FS, cfg *config.Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		fsys:   fsys,
		cfg:    cfg,
		logger: logger,
		validator: schemacheck.New(fsys, schemacheck.Options{
			ItemLimit:    cfg.Limits.SchemaItems,
			AssertFormat: cfg.Schema.AssertFormat,
			Logger:       logger,
		}),
		policy: openapi.DefaultPolicy,
	}
}

// stage is one independent check. Stages only read from the file system and
// write their own result slot.
type stage struct {
	name string
	run  func(ctx context.Context) []problem.Problem
}

// stages returns the checks in report order: specification, cross-reference,
// one per message domain, rules, registry.
func (e *Engine) stages() []stage {
	// The cross-reference needs the parsed specification, so both share one
	// stage and are split into two slots afterwards.
	var apiProblems []problem.Problem
	apiDone := make(chan struct{})

	stages := []stage{
		{name: "openapi", run: func(ctx context.Context) []problem.Problem {
			defer close(apiDone)
			specProblems, crossRef := e.checkAPI(ctx)
			apiProblems = crossRef
			return specProblems
		}},
		{name: "api", run: func(ctx context.Context) []problem.Problem {
			select {
			case <-apiDone:
			case <-ctx.Done():
				return nil
			}
			return apiProblems
		}},
	}

	for _, d := range e.cfg.Domains {
		d := d
		stages = append(stages, stage{name: "schema:" + d.Name, run: func(context.Context) []problem.Problem {
			return e.validator.CheckDomain(schemacheck.Domain{
				Name:         d.Name,
				SchemaDir:    d.Schemas,
				ExamplesDir:  d.Examples,
				SchemaSuffix: d.Suffix,
			})
		}})
	}

	if e.cfg.Rules.Schema != "" {
		stages = append(stages, stage{name: "rules", run: func(context.Context) []problem.Problem {
			return e.validator.CheckRuleDomain(schemacheck.RuleDomain{
				Name:        "rules",
				Schema:      e.cfg.Rules.Schema,
				ExamplesDir: e.cfg.Rules.Examples,
				ExampleGlob: e.cfg.Rules.Glob,
			})
		}})
	}

	if e.cfg.Registry != "" {
		stages = append(stages, stage{name: "registry", run: func(context.Context) []problem.Problem {
			return registry.Check(e.fsys, e.cfg.Registry, strings.TrimSuffix(e.cfg.DocsRoot, "/")+"/")
		}})
	}
	return stages
}

// checkAPI loads the specification once and returns the specification
// problems and the cross-reference problems. The cross-reference is skipped
// when the specification is unusable.
func (e *Engine) checkAPI(ctx context.Context) (spec, crossRef []problem.Problem) {
	doc, spec := openapi.Load(e.fsys, e.cfg.OpenAPI.Spec)
	if doc == nil {
		return spec, nil
	}
	spec = append(spec, openapi.CheckCompleteness(doc, e.policy)...)
	if e.cfg.OpenAPI.Strict {
		spec = append(spec, openapi.StructuralCheck(ctx, e.fsys, e.cfg.OpenAPI.Spec)...)
	}
	e.logger.Debug("openapi checked",
		zap.String("spec", e.cfg.OpenAPI.Spec),
		zap.Int("operations", len(doc.Operations)),
		zap.Int("problems", len(spec)),
	)

	crossRef = narrative.Check(e.fsys, e.cfg.Narrative.Dir, e.cfg.Narrative.Glob, doc, e.cfg.Limits.EndpointItems)
	return spec, crossRef
}

// Run executes every check and returns the merged problems. The result does
// not depend on whether checks ran in parallel. The only error is the
// context's.
func (e *Engine) Run(ctx context.Context) (problem.List, error) {
	start := time.Now()
	stages := e.stages()
	results := make([][]problem.Problem, len(stages))

	if e.cfg.Parallel {
		g, gctx := errgroup.WithContext(ctx)
		for i, s := range stages {
			i, s := i, s
			g.Go(func() error {
				results[i] = e.timed(gctx, s)
				return gctx.Err()
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i, s := range stages {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			results[i] = e.timed(ctx, s)
		}
	}

	merged := problem.Merge(results...)
	e.logger.Info("contract checks finished",
		zap.Int("checks", len(stages)),
		zap.Int("problems", len(merged)),
		zap.Bool("parallel", e.cfg.Parallel),
		zap.Duration("took", time.Since(start)),
	)
	return merged, nil
}

func (e *Engine) timed(ctx context.Context, s stage) []problem.Problem {
	start := time.Now()
	ps := s.run(ctx)
	e.logger.Debug("check finished",
		zap.String("check", s.name),
		zap.Int("problems", len(ps)),
		zap.Duration("took", time.Since(start)),
	)
	return ps
}
