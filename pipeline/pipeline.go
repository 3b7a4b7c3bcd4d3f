// Package pipeline drives the deobfuscation passes over one program.
package pipeline

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/t14raptor/go-fast/ast"
	fastgen "github.com/t14raptor/go-fast/generator"
	"github.com/t14raptor/go-fast/parser"
	"github.com/t14raptor/go-fast/resolver"

	"github.com/fxnatic/jsdeob-go/config"
	"github.com/fxnatic/jsdeob-go/scope"
	"github.com/fxnatic/jsdeob-go/visitors"
)

type Stage int

const (
	StageParsed Stage = iota
	StageStringsResolved
	StageProxiesResolved
	StageConstantsResolved
	StageBranchesFolded
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageParsed:
		return "parsed"
	case StageStringsResolved:
		return "strings-resolved"
	case StageProxiesResolved:
		return "proxies-resolved"
	case StageConstantsResolved:
		return "constants-resolved"
	case StageBranchesFolded:
		return "branches-folded"
	case StageDone:
		return "done"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// ParseError is returned when the input is not valid JavaScript. Nothing is
// rewritten in that case.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

type Options struct {
	Config config.Config
	// Logger receives per-pass diagnostics. Nil discards them.
	Logger *slog.Logger
}

type pass struct {
	stage  Stage
	repeat bool
	apply  func(p *ast.Program, env visitors.Env) int
}

func (o Options) passes() []pass {
	cfg := o.Config
	return []pass{
		{
			stage: StageStringsResolved,
			apply: func(p *ast.Program, env visitors.Env) int {
				return visitors.ResolveStrings(p, env, visitors.StringOptions{
					MainArray: cfg.MainArray,
					HexPrefix: cfg.HexPrefix,
				})
			},
		},
		{
			stage:  StageProxiesResolved,
			repeat: true,
			apply:  visitors.ResolveProxies,
		},
		{
			stage:  StageConstantsResolved,
			repeat: true,
			apply: func(p *ast.Program, env visitors.Env) int {
				return visitors.ResolveConstants(p, env, visitors.ConstantOptions{
					FoldReassigned: cfg.FoldReassignedConstants,
				})
			},
		},
		{
			stage: StageBranchesFolded,
			apply: visitors.FoldBranches,
		},
	}
}

// Run resolves scopes on p and applies every pass in order, mutating p.
// Repeating passes run until a walk rewrites nothing or the configured cap
// is reached. Run never fails: sites that do not match are left as they are.
func Run(p *ast.Program, opts Options) *Report {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	limit := opts.Config.MaxIterations
	if limit < 1 {
		limit = config.Default().MaxIterations
	}

	resolver.Resolve(p)

	report := &Report{Final: StageParsed}
	step := 0
	for _, ps := range opts.passes() {
		for iteration := 1; ; iteration++ {
			step++
			env := visitors.Env{
				Scope: scope.Build(p),
				Log: log.With(
					slog.Int("step", step),
					slog.String("pass", ps.stage.String()),
					slog.Int("iteration", iteration),
				),
			}
			rewrites := ps.apply(p, env)
			report.add(ps.stage, iteration, rewrites)
			env.Log.Debug("pass finished",
				slog.Int("rewrites", rewrites),
				slog.Int("bindings", env.Scope.Len()))

			if !ps.repeat || rewrites == 0 {
				break
			}
			if iteration >= limit {
				env.Log.Warn("iteration cap reached before fixpoint", slog.Int("cap", limit))
				break
			}
		}
		report.Final = ps.stage
	}
	report.Final = StageDone
	return report
}

// Deobfuscate parses src, runs every pass and prints the result.
func Deobfuscate(src string, opts Options) (string, *Report, error) {
	prog, err := parser.ParseFile(src)
	if err != nil {
		return "", nil, &ParseError{Err: err}
	}

	report := Run(prog, opts)
	return fastgen.Generate(prog), report, nil
}
