package visitors

import (
	"log/slog"

	"github.com/t14raptor/go-fast/ast"
)

type branchFolder struct {
	ast.NoopVisitor
	// Statements put in place of a folded if; blocks are spliced into the
	// enclosing list and empty statements dropped.
	produced map[any]struct{}
	rewrites int
}

// FoldBranches collapses if-statements and conditional expressions whose
// test evaluates to a definite boolean. Tests that cannot be evaluated are
// left alone. It returns the number of folded constructs.
func FoldBranches(p *ast.Program, env Env) int {
	f := &branchFolder{produced: make(map[any]struct{})}
	f.V = f
	p.VisitWith(f)
	if f.rewrites > 0 {
		env.logger().Debug("branches folded", slog.Int("count", f.rewrites))
	}
	return f.rewrites
}

func (f *branchFolder) VisitProgram(n *ast.Program) {
	n.VisitChildrenWith(f)
	n.Body = f.splice(n.Body)
}

func (f *branchFolder) VisitBlockStatement(n *ast.BlockStatement) {
	n.VisitChildrenWith(f)
	n.List = f.splice(n.List)
}

func (f *branchFolder) VisitStatement(n *ast.Statement) {
	n.VisitChildrenWith(f)

	stmt, ok := n.Stmt.(*ast.IfStatement)
	if !ok {
		return
	}
	taken, known := truthy(stmt.Test)
	if !known {
		return
	}
	f.rewrites++

	branch := stmt.Alternate
	if taken {
		branch = stmt.Consequent
	}
	if branch == nil || branch.Stmt == nil {
		empty := &ast.EmptyStatement{}
		f.produced[empty] = struct{}{}
		n.Stmt = empty
		return
	}
	if block, ok := branch.Stmt.(*ast.BlockStatement); ok {
		f.produced[block] = struct{}{}
	}
	n.Stmt = branch.Stmt
}

func (f *branchFolder) VisitExpression(n *ast.Expression) {
	n.VisitChildrenWith(f)

	cond, ok := n.Expr.(*ast.ConditionalExpression)
	if !ok {
		return
	}
	taken, known := truthy(cond.Test)
	if !known {
		return
	}
	arm := cond.Alternate
	if taken {
		arm = cond.Consequent
	}
	if arm == nil || arm.Expr == nil {
		return
	}
	n.Expr = arm.Expr
	f.rewrites++
}

func (f *branchFolder) splice(list []ast.Statement) []ast.Statement {
	if len(f.produced) == 0 {
		return list
	}
	out := make([]ast.Statement, 0, len(list))
	for _, s := range list {
		if _, ok := f.produced[s.Stmt]; !ok {
			out = append(out, s)
			continue
		}
		if block, ok := s.Stmt.(*ast.BlockStatement); ok {
			out = append(out, block.List...)
		}
	}
	return out
}
