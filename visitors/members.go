package visitors

import (
	"github.com/t14raptor/go-fast/ast"
)

// memberSink receives the member writes found by memberCollector.
type memberSink interface {
	// memberAssigned reports `owner.member = value` or an object literal
	// entry. unconditional is false when the write sits under a branch, a
	// loop or a short-circuit operator of its function.
	memberAssigned(key memberKey, value *ast.Expression, unconditional bool)
	// memberWritten reports every other kind of write: compound
	// assignment, ++/--, delete.
	memberWritten(key memberKey)
}

// memberCollector is the discovery walk shared by the proxy and constant
// resolvers. It finds writes to owner members and identifier copies.
type memberCollector struct {
	ast.NoopVisitor
	sink    memberSink
	aliases []aliasEdge
	depth   int
}

func collectMembers(p *ast.Program, sink memberSink) []aliasEdge {
	c := &memberCollector{sink: sink}
	c.V = c
	p.VisitWith(c)
	return c.aliases
}

func (c *memberCollector) VisitStatement(n *ast.Statement) {
	switch s := n.Stmt.(type) {
	case *ast.IfStatement, *ast.ForStatement, *ast.ForInStatement, *ast.WhileStatement,
		*ast.DoWhileStatement, *ast.SwitchStatement, *ast.TryStatement:
		c.depth++
		n.VisitChildrenWith(c)
		c.depth--
		return
	case *ast.FunctionDeclaration:
		saved := c.depth
		c.depth = 0
		n.VisitChildrenWith(c)
		c.depth = saved
		return
	case *ast.VariableDeclaration:
		for i := range s.List {
			d := s.List[i]
			if d.Initializer == nil || d.Target == nil || d.Target.Target == nil {
				continue
			}
			id, ok := d.Target.Target.(*ast.Identifier)
			if !ok {
				continue
			}
			c.identifierAssigned(id, d.Initializer)
		}
	}
	n.VisitChildrenWith(c)
}

func (c *memberCollector) VisitExpression(n *ast.Expression) {
	switch expr := n.Expr.(type) {
	case *ast.FunctionLiteral, *ast.ArrowFunctionLiteral:
		saved := c.depth
		c.depth = 0
		n.VisitChildrenWith(c)
		c.depth = saved
		return
	case *ast.ConditionalExpression:
		c.depth++
		n.VisitChildrenWith(c)
		c.depth--
		return
	case *ast.BinaryExpression:
		switch expr.Operator.String() {
		case "&&", "||", "??":
			c.depth++
			n.VisitChildrenWith(c)
			c.depth--
			return
		}
	case *ast.AssignExpression:
		c.assignment(expr)
	case *ast.UnaryExpression:
		if isWriteOperator(expr.Operator.String()) && expr.Operand != nil {
			if m, ok := expr.Operand.Expr.(*ast.MemberExpression); ok {
				if owner, name, ok := memberTarget(m); ok {
					c.sink.memberWritten(memberKey{owner: owner.ToId(), member: name})
				}
			}
		}
	}
	n.VisitChildrenWith(c)
}

func (c *memberCollector) assignment(expr *ast.AssignExpression) {
	if expr.Left == nil || expr.Right == nil {
		return
	}
	switch left := expr.Left.Expr.(type) {
	case *ast.MemberExpression:
		owner, name, ok := memberTarget(left)
		if !ok {
			return
		}
		key := memberKey{owner: owner.ToId(), member: name}
		if expr.Operator.String() != "=" {
			c.sink.memberWritten(key)
			return
		}
		c.sink.memberAssigned(key, expr.Right, c.depth == 0)
	case *ast.Identifier:
		if expr.Operator.String() == "=" {
			c.identifierAssigned(left, expr.Right)
		}
	}
}

// identifierAssigned handles `id = value`: a copy of another identifier is
// an alias, an object literal is a batch of member writes.
func (c *memberCollector) identifierAssigned(id *ast.Identifier, value *ast.Expression) {
	if value == nil || value.Expr == nil {
		return
	}
	switch right := unwrapSequenceTail(value.Expr).(type) {
	case *ast.Identifier:
		if right.ToId() != id.ToId() {
			c.aliases = append(c.aliases, aliasEdge{alias: id.ToId(), source: right.ToId()})
		}
	case *ast.ObjectLiteral:
		c.captureObjectLiteral(id, right)
	}
}

func (c *memberCollector) captureObjectLiteral(owner *ast.Identifier, obj *ast.ObjectLiteral) {
	for _, entry := range obj.Value {
		prop, ok := entry.Prop.(*ast.PropertyKeyed)
		if !ok {
			continue
		}
		keyName, ok := literalKeyName(prop.Key)
		if !ok || prop.Value == nil || prop.Value.Expr == nil {
			continue
		}
		c.sink.memberAssigned(memberKey{owner: owner.ToId(), member: keyName}, prop.Value, c.depth == 0)
	}
}
