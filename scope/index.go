// Package scope projects the resolver's identifier marks into bindings.
//
// The go-fast resolver tags every identifier with a scope context, so an
// ast.Id (name + context) already names one binding. Index groups the tree's
// identifiers by that key and remembers where each binding is declared,
// referenced and assigned.
package scope

import (
	"github.com/t14raptor/go-fast/ast"
)

// Walkable is a node a visitor can be run over.
type Walkable interface {
	VisitWith(v ast.Visitor)
}

// Assignment is one write of a whole value to a binding.
type Assignment struct {
	Target ast.Id
	Value  *ast.Expression
	// Region is the innermost function (or the program) holding the write.
	Region Walkable
}

// Function returns the assigned function literal.
func (a *Assignment) Function() (*ast.FunctionLiteral, bool) {
	if a == nil || a.Value == nil {
		return nil, false
	}
	fn, ok := a.Value.Expr.(*ast.FunctionLiteral)
	if !ok || fn.Body == nil {
		return nil, false
	}
	return fn, true
}

type Binding struct {
	Id          ast.Id
	Declaration *ast.Identifier
	// References are in pre-order encounter order.
	References  []*ast.Identifier
	Assignments []*Assignment
}

func (b *Binding) name() string {
	if b.Declaration != nil {
		return b.Declaration.Name
	}
	if len(b.References) > 0 {
		return b.References[0].Name
	}
	return ""
}

// FirstFunction returns the first assignment giving the binding a function.
func (b *Binding) FirstFunction() (*Assignment, *ast.FunctionLiteral, bool) {
	for _, a := range b.Assignments {
		if fn, ok := a.Function(); ok {
			return a, fn, true
		}
	}
	return nil, nil, false
}

type Index struct {
	bindings map[ast.Id]*Binding
}

// Build indexes p. The program must already have been through
// resolver.Resolve, otherwise every identifier shares one scope context and
// bindings collapse to plain names.
func Build(p *ast.Program) *Index {
	c := &collector{
		ix:      &Index{bindings: make(map[ast.Id]*Binding)},
		regions: []Walkable{p},
	}
	c.V = c
	p.VisitWith(c)
	return c.ix
}

// Lookup resolves an identifier use to its binding.
func (ix *Index) Lookup(id *ast.Identifier) (*Binding, bool) {
	if id == nil {
		return nil, false
	}
	return ix.LookupId(id.ToId())
}

func (ix *Index) LookupId(id ast.Id) (*Binding, bool) {
	b, ok := ix.bindings[id]
	return b, ok
}

// Named returns every binding spelled name, one per scope.
func (ix *Index) Named(name string) []*Binding {
	var out []*Binding
	for _, b := range ix.bindings {
		if b.name() == name {
			out = append(out, b)
		}
	}
	return out
}

// Len reports the number of bindings.
func (ix *Index) Len() int {
	return len(ix.bindings)
}

type collector struct {
	ast.NoopVisitor
	ix      *Index
	regions []Walkable
}

func (c *collector) binding(id ast.Id) *Binding {
	b := c.ix.bindings[id]
	if b == nil {
		b = &Binding{Id: id}
		c.ix.bindings[id] = b
	}
	return b
}

func (c *collector) region() Walkable {
	return c.regions[len(c.regions)-1]
}

func (c *collector) assign(id *ast.Identifier, value *ast.Expression) {
	b := c.binding(id.ToId())
	b.Assignments = append(b.Assignments, &Assignment{
		Target: b.Id,
		Value:  value,
		Region: c.region(),
	})
}

func (c *collector) declare(id *ast.Identifier) {
	b := c.binding(id.ToId())
	if b.Declaration == nil {
		b.Declaration = id
	}
}

func (c *collector) VisitIdentifier(n *ast.Identifier) {
	b := c.binding(n.ToId())
	if b.Declaration == n {
		return
	}
	b.References = append(b.References, n)
}

func (c *collector) VisitVariableDeclarator(n *ast.VariableDeclarator) {
	if n.Target == nil || n.Target.Target == nil {
		n.VisitChildrenWith(c)
		return
	}
	id, ok := n.Target.Target.(*ast.Identifier)
	if !ok {
		n.VisitChildrenWith(c)
		return
	}
	c.declare(id)
	if n.Initializer != nil && n.Initializer.Expr != nil {
		c.assign(id, n.Initializer)
		n.Initializer.VisitWith(c)
	}
}

// declareTarget declares a plain identifier binding target. Patterns are
// left to the generic walk.
func (c *collector) declareTarget(target ast.Target) {
	if id, ok := target.(*ast.Identifier); ok {
		c.declare(id)
	}
}

func (c *collector) declareParams(params []ast.VariableDeclarator) {
	for i := range params {
		if params[i].Target != nil {
			c.declareTarget(params[i].Target.Target)
		}
	}
}

func (c *collector) VisitStatement(n *ast.Statement) {
	switch s := n.Stmt.(type) {
	case *ast.FunctionDeclaration:
		if s.Function == nil {
			break
		}
		if s.Function.Name != nil {
			c.declare(s.Function.Name)
			c.assign(s.Function.Name, &ast.Expression{Expr: s.Function})
		}
		c.regions = append(c.regions, s.Function)
		c.declareParams(s.Function.ParameterList.List)
		s.Function.VisitChildrenWith(c)
		c.regions = c.regions[:len(c.regions)-1]
		return
	case *ast.TryStatement:
		if s.Catch != nil && s.Catch.Parameter != nil {
			c.declareTarget(s.Catch.Parameter.Target)
		}
	}
	n.VisitChildrenWith(c)
}

func (c *collector) VisitExpression(n *ast.Expression) {
	switch expr := n.Expr.(type) {
	case *ast.FunctionLiteral:
		c.regions = append(c.regions, expr)
		c.declareParams(expr.ParameterList.List)
		expr.VisitChildrenWith(c)
		c.regions = c.regions[:len(c.regions)-1]
		return
	case *ast.ArrowFunctionLiteral:
		c.regions = append(c.regions, expr)
		c.declareParams(expr.ParameterList.List)
		expr.VisitChildrenWith(c)
		c.regions = c.regions[:len(c.regions)-1]
		return
	case *ast.MemberExpression:
		// Non-computed property names are not identifier uses.
		if expr.Object != nil {
			expr.Object.VisitWith(c)
		}
		if expr.Property != nil {
			if _, ok := expr.Property.Prop.(*ast.ComputedProperty); ok {
				expr.Property.VisitWith(c)
			}
		}
		return
	case *ast.AssignExpression:
		if expr.Operator.String() == "=" && expr.Left != nil {
			if id, ok := expr.Left.Expr.(*ast.Identifier); ok {
				c.assign(id, expr.Right)
			}
		}
	}
	n.VisitChildrenWith(c)
}
