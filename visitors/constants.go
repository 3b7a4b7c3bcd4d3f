package visitors

import (
	"errors"
	"log/slog"

	"github.com/t14raptor/go-fast/ast"
)

type ConstantOptions struct {
	// FoldReassigned folds a member even when it is written more than once,
	// using the first literal found. Off by default: a later write may run
	// before a textually earlier read.
	FoldReassigned bool
}

type constantResolver struct {
	ast.NoopVisitor
	log       *slog.Logger
	opts      ConstantOptions
	constants map[memberKey]*ast.Expression
	writes    map[memberKey]int
	rewrites  int
}

// ResolveConstants replaces reads of `owner.member` with the string or
// number literal the member was unconditionally assigned, following alias
// copies of the owner like ResolveProxies does. Assignment targets are never
// replaced. It returns the number of replaced reads.
func ResolveConstants(p *ast.Program, env Env, opts ConstantOptions) int {
	r := &constantResolver{
		log:       env.logger(),
		opts:      opts,
		constants: make(map[memberKey]*ast.Expression),
		writes:    make(map[memberKey]int),
	}
	r.V = r

	aliases := collectMembers(p, r)
	r.settle(aliases)
	propagate(r.constants, aliases)
	r.log.Debug("constants collected", slog.Int("constants", len(r.constants)))

	p.VisitWith(r)
	return r.rewrites
}

func (r *constantResolver) memberAssigned(key memberKey, value *ast.Expression, unconditional bool) {
	r.writes[key]++
	if !unconditional {
		return
	}
	if err := checkFoldable(value); err != nil {
		if errors.Is(err, ErrAmbiguousLiteral) {
			r.log.Debug("constant not folded",
				slog.String("member", key.member),
				slog.Any("reason", err))
		}
		return
	}
	if _, exists := r.constants[key]; !exists {
		r.constants[key] = value.Clone()
	}
}

func (r *constantResolver) memberWritten(key memberKey) {
	r.writes[key]++
}

// settle drops members written more than once. A write through either side
// of an alias counts against both owners.
func (r *constantResolver) settle(aliases []aliasEdge) {
	if r.opts.FoldReassigned {
		return
	}
	total := make(map[memberKey]int, len(r.writes))
	for key, n := range r.writes {
		total[key] += n
	}
	for _, edge := range aliases {
		for key, n := range r.writes {
			switch key.owner {
			case edge.alias:
				total[memberKey{owner: edge.source, member: key.member}] += n
			case edge.source:
				total[memberKey{owner: edge.alias, member: key.member}] += n
			}
		}
	}
	for key := range r.constants {
		if total[key] != 1 {
			r.log.Debug("constant is reassigned",
				slog.String("member", key.member),
				slog.Int("writes", total[key]))
			delete(r.constants, key)
		}
	}
}

func (r *constantResolver) VisitExpression(n *ast.Expression) {
	switch expr := n.Expr.(type) {
	case *ast.AssignExpression:
		visitWriteTarget(expr.Left, r)
		if expr.Right != nil {
			expr.Right.VisitWith(r)
		}
		return
	case *ast.UnaryExpression:
		if isWriteOperator(expr.Operator.String()) {
			visitWriteTarget(expr.Operand, r)
			return
		}
	}
	n.VisitChildrenWith(r)

	member, ok := n.Expr.(*ast.MemberExpression)
	if !ok {
		return
	}
	owner, name, ok := memberTarget(member)
	if !ok {
		return
	}
	value := r.constants[memberKey{owner: owner.ToId(), member: name}]
	if value == nil {
		return
	}
	n.Expr = value.Clone().Expr
	r.rewrites++
}

// checkFoldable accepts string and number literals, including a signed
// number.
func checkFoldable(value *ast.Expression) error {
	if value == nil || value.Expr == nil {
		return ErrPatternNotFound
	}
	switch v := value.Expr.(type) {
	case *ast.StringLiteral, *ast.NumberLiteral:
		return nil
	case *ast.UnaryExpression:
		if v.Operand == nil || v.Operand.Expr == nil {
			return ErrPatternNotFound
		}
		if _, ok := v.Operand.Expr.(*ast.NumberLiteral); ok {
			switch v.Operator.String() {
			case "-", "+":
				return nil
			}
		}
	case *ast.BooleanLiteral, *ast.NullLiteral:
		return ErrAmbiguousLiteral
	}
	return ErrPatternNotFound
}
