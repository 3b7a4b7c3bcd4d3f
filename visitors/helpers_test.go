package visitors

import (
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/t14raptor/go-fast/ast"
	fastgen "github.com/t14raptor/go-fast/generator"
	"github.com/t14raptor/go-fast/parser"
	"github.com/t14raptor/go-fast/resolver"

	"github.com/fxnatic/jsdeob-go/scope"
)

// pass is the shape shared by every rewrite entry point once its options
// are bound.
type pass func(p *ast.Program, env Env) int

func prepare(t *testing.T, src string) (*ast.Program, Env) {
	t.Helper()
	p, err := parser.ParseFile(src)
	assert.NoError(t, err)
	resolver.Resolve(p)
	return p, Env{Scope: scope.Build(p)}
}

// normalize prints src through the same parser and printer as the pass
// output, so fixtures need not match the printer's layout.
func normalize(t *testing.T, src string) string {
	t.Helper()
	p, err := parser.ParseFile(src)
	assert.NoError(t, err)
	return fastgen.Generate(p)
}

// runPass applies fn once and returns the reprinted program and the number
// of rewrites.
func runPass(t *testing.T, src string, fn pass) (string, int) {
	t.Helper()
	p, env := prepare(t, src)
	rewrites := fn(p, env)
	return normalize(t, fastgen.Generate(p)), rewrites
}

type passCase struct {
	name     string
	src      string
	want     string
	rewrites int
}

func runPassCases(t *testing.T, fn pass, cases []passCase) {
	t.Helper()
	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			got, rewrites := runPass(t, test.src, fn)
			assert.Equal(t, normalize(t, test.want), got)
			assert.Equal(t, test.rewrites, rewrites)
		})
	}
}

func stringsPass(opts StringOptions) pass {
	return func(p *ast.Program, env Env) int {
		return ResolveStrings(p, env, opts)
	}
}

func constantsPass(opts ConstantOptions) pass {
	return func(p *ast.Program, env Env) int {
		return ResolveConstants(p, env, opts)
	}
}

var defaultStrings = StringOptions{MainArray: "_", HexPrefix: "0x"}
