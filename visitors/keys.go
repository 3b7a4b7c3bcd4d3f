package visitors

import (
	"github.com/t14raptor/go-fast/ast"
)

// memberKey names one property of one owner binding. The owner's ast.Id
// carries the resolver scope, so equal names in different scopes never mix.
type memberKey struct {
	owner  ast.Id
	member string
}

// aliasEdge records `alias = source` between two identifiers.
type aliasEdge struct {
	alias  ast.Id
	source ast.Id
}

// propagate copies every entry owned by an aliased binding to its aliases,
// following chains until nothing new is added. Existing entries win.
func propagate[T any](table map[memberKey]T, edges []aliasEdge) {
	for changed := true; changed; {
		changed = false
		for _, edge := range edges {
			for key, value := range table {
				if key.owner != edge.source {
					continue
				}
				aliased := memberKey{owner: edge.alias, member: key.member}
				if _, exists := table[aliased]; exists {
					continue
				}
				table[aliased] = value
				changed = true
			}
		}
	}
}

// memberTarget splits `owner.member` / `owner["member"]`.
func memberTarget(m *ast.MemberExpression) (*ast.Identifier, string, bool) {
	if m == nil || m.Object == nil || m.Object.Expr == nil {
		return nil, "", false
	}
	owner, ok := m.Object.Expr.(*ast.Identifier)
	if !ok {
		return nil, "", false
	}
	name, ok := propertyName(m.Property)
	if !ok {
		return nil, "", false
	}
	return owner, name, true
}

// propertyName normalises the dotted and the string-computed form of a
// member access to one key.
func propertyName(mp *ast.MemberProperty) (string, bool) {
	if mp == nil || mp.Prop == nil {
		return "", false
	}
	switch p := mp.Prop.(type) {
	case *ast.Identifier:
		return p.Name, true
	case *ast.ComputedProperty:
		if p.Expr == nil {
			return "", false
		}
		if key, ok := p.Expr.Expr.(*ast.StringLiteral); ok {
			return key.Value, true
		}
	}
	return "", false
}

func literalKeyName(keyExpr *ast.Expression) (string, bool) {
	if keyExpr == nil || keyExpr.Expr == nil {
		return "", false
	}
	switch k := keyExpr.Expr.(type) {
	case *ast.Identifier:
		return k.Name, true
	case *ast.StringLiteral:
		return k.Value, true
	default:
		return "", false
	}
}

func unwrapSequenceTail(expr ast.Expr) ast.Expr {
	for {
		seq, ok := expr.(*ast.SequenceExpression)
		if !ok || len(seq.Sequence) == 0 {
			return expr
		}
		expr = seq.Sequence[len(seq.Sequence)-1].Expr
	}
}

// visitWriteTarget visits what an assignment target reads (the object and a
// computed key) without handing the target itself to v.
func visitWriteTarget(target *ast.Expression, v ast.Visitor) {
	if target == nil || target.Expr == nil {
		return
	}
	m, ok := target.Expr.(*ast.MemberExpression)
	if !ok {
		target.VisitWith(v)
		return
	}
	if m.Object != nil {
		m.Object.VisitWith(v)
	}
	if m.Property != nil {
		if _, ok := m.Property.Prop.(*ast.ComputedProperty); ok {
			m.Property.VisitWith(v)
		}
	}
}

func isWriteOperator(op string) bool {
	switch op {
	case "++", "--", "delete":
		return true
	}
	return false
}
