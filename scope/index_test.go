package scope

import (
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/t14raptor/go-fast/ast"
	"github.com/t14raptor/go-fast/parser"
	"github.com/t14raptor/go-fast/resolver"
)

func build(t *testing.T, src string) (*ast.Program, *Index) {
	t.Helper()
	p, err := parser.ParseFile(src)
	assert.NoError(t, err)
	resolver.Resolve(p)
	return p, Build(p)
}

func single(t *testing.T, ix *Index, name string) *Binding {
	t.Helper()
	bindings := ix.Named(name)
	assert.Equal(t, 1, len(bindings))
	return bindings[0]
}

func TestBindingSites(t *testing.T) {
	_, ix := build(t, `var a = 1; a = 2; f(a);`)

	b := single(t, ix, "a")
	assert.NotZero(t, b.Declaration)
	assert.Equal(t, "a", b.Declaration.Name)
	assert.Equal(t, 2, len(b.Assignments))
	assert.Equal(t, 2, len(b.References))

	first, ok := b.Assignments[0].Value.Expr.(*ast.NumberLiteral)
	assert.True(t, ok)
	assert.Equal(t, 1.0, first.Value)

	second, ok := b.Assignments[1].Value.Expr.(*ast.NumberLiteral)
	assert.True(t, ok)
	assert.Equal(t, 2.0, second.Value)

	found, ok := ix.Lookup(b.References[1])
	assert.True(t, ok)
	assert.True(t, b == found)
}

func TestShadowedBindingsAreDistinct(t *testing.T) {
	_, ix := build(t, `
var a = 1;
function f() {
	var a = 2;
	return a;
}
f(a);
`)

	bindings := ix.Named("a")
	assert.Equal(t, 2, len(bindings))
	assert.NotEqual(t, bindings[0].Id, bindings[1].Id)
	for _, b := range bindings {
		assert.Equal(t, 1, len(b.Assignments))
		assert.Equal(t, 1, len(b.References))
	}
}

func TestFirstFunction(t *testing.T) {
	p, ix := build(t, `
var get;
get = 5;
get = function (i) {
	return i;
};
get = function () {};
`)

	b := single(t, ix, "get")
	assign, fn, ok := b.FirstFunction()
	assert.True(t, ok)
	assert.Equal(t, 1, len(fn.ParameterList.List))
	assert.True(t, assign.Region == Walkable(p))
}

func TestAssignmentRegion(t *testing.T) {
	_, ix := build(t, `
function outer() {
	var inner = function (x) {
		return x;
	};
	return inner;
}
`)

	outer := single(t, ix, "outer")
	_, outerFn, ok := outer.FirstFunction()
	assert.True(t, ok)

	inner := single(t, ix, "inner")
	assign, _, ok := inner.FirstFunction()
	assert.True(t, ok)
	assert.True(t, assign.Region == Walkable(outerFn))
}

func TestMemberPropertiesAreNotReferences(t *testing.T) {
	_, ix := build(t, `var o = {}; o.length = 1; o["size"] = 2;`)

	assert.Equal(t, 0, len(ix.Named("length")))
	b := single(t, ix, "o")
	assert.Equal(t, 2, len(b.References))
}

func TestLookupUnknown(t *testing.T) {
	_, ix := build(t, `var a = 1;`)

	_, ok := ix.Lookup(nil)
	assert.False(t, ok)
	_, ok = ix.Lookup(&ast.Identifier{Name: "missing"})
	assert.False(t, ok)
}

func TestParametersAreDeclared(t *testing.T) {
	_, ix := build(t, `
_ = 1;
function f(_) {
	return _;
}
var g = function (a) {
	return a;
};
var h = (b) => b;
try {
	x();
} catch (e) {
	use(e);
}
`)

	for _, name := range []string{"a", "b", "e"} {
		b := single(t, ix, name)
		assert.NotZero(t, b.Declaration, name)
		assert.Equal(t, 1, len(b.References), name)
	}

	// The global write and the parameter are separate bindings; only the
	// parameter is declared.
	var declared, undeclared int
	for _, b := range ix.Named("_") {
		if b.Declaration != nil {
			declared++
			assert.Equal(t, 1, len(b.References))
		} else {
			undeclared++
		}
	}
	assert.Equal(t, 1, declared)
	assert.Equal(t, 1, undeclared)
}
