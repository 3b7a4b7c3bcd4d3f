package visitors

import (
	"log/slog"

	"github.com/t14raptor/go-fast/ast"
)

// proxyTemplate is what a generated proxy function returns. Exactly one of
// binary and call is set.
type proxyTemplate struct {
	binary *ast.BinaryExpression
	call   *ast.CallExpression
	// Parameter positions of the binary operands.
	left, right int
}

type proxyResolver struct {
	ast.NoopVisitor
	log       *slog.Logger
	templates map[memberKey]*proxyTemplate
	rewrites  int
	deferred  int
}

// ResolveProxies inlines calls to operator proxies: given
// `p.q = function(a, b) { return a + b; }`, every `p.q(x, y)` (and
// `r.q(x, y)` after `r = p`) becomes `x + y`. Proxies returning a call are
// recognised but not inlined. It returns the number of rewritten calls.
func ResolveProxies(p *ast.Program, env Env) int {
	r := &proxyResolver{
		log:       env.logger(),
		templates: make(map[memberKey]*proxyTemplate),
	}
	r.V = r

	aliases := collectMembers(p, r)
	propagate(r.templates, aliases)
	r.log.Debug("proxy templates collected",
		slog.Int("templates", len(r.templates)),
		slog.Int("aliases", len(aliases)))

	p.VisitWith(r)
	if r.deferred > 0 {
		r.log.Debug("call proxies left in place", slog.Int("count", r.deferred))
	}
	return r.rewrites
}

func (r *proxyResolver) memberAssigned(key memberKey, value *ast.Expression, _ bool) {
	tmpl, ok := proxyFromFunction(value)
	if !ok {
		return
	}
	if _, exists := r.templates[key]; !exists {
		r.templates[key] = tmpl
	}
}

func (r *proxyResolver) memberWritten(memberKey) {}

func (r *proxyResolver) VisitExpression(n *ast.Expression) {
	n.VisitChildrenWith(r)

	call, ok := n.Expr.(*ast.CallExpression)
	if !ok || call.Callee == nil {
		return
	}
	member, ok := call.Callee.Expr.(*ast.MemberExpression)
	if !ok {
		return
	}
	owner, name, ok := memberTarget(member)
	if !ok {
		return
	}
	tmpl := r.templates[memberKey{owner: owner.ToId(), member: name}]
	if tmpl == nil {
		return
	}
	if tmpl.call != nil {
		r.deferred++
		return
	}
	if tmpl.left >= len(call.ArgumentList) || tmpl.right >= len(call.ArgumentList) {
		r.log.Debug("proxy call has too few arguments",
			slog.String("owner", owner.Name),
			slog.String("member", name),
			slog.Any("reason", ErrPatternNotFound))
		return
	}

	n.Expr = &ast.BinaryExpression{
		Operator: tmpl.binary.Operator,
		Left:     &ast.Expression{Expr: call.ArgumentList[tmpl.left].Expr},
		Right:    &ast.Expression{Expr: call.ArgumentList[tmpl.right].Expr},
	}
	r.rewrites++
}

// proxyFromFunction matches `function(a, b) { return a OP b; }` and
// `function(f, ...) { return f(...); }`.
func proxyFromFunction(value *ast.Expression) (*proxyTemplate, bool) {
	if value == nil {
		return nil, false
	}
	fn, ok := value.Expr.(*ast.FunctionLiteral)
	if !ok || fn.Body == nil || len(fn.Body.List) != 1 {
		return nil, false
	}
	ret, ok := fn.Body.List[0].Stmt.(*ast.ReturnStatement)
	if !ok || ret.Argument == nil {
		return nil, false
	}

	switch arg := ret.Argument.Expr.(type) {
	case *ast.BinaryExpression:
		params := parameterNames(fn)
		left := parameterIndex(params, arg.Left)
		right := parameterIndex(params, arg.Right)
		if left < 0 || right < 0 || left == right {
			return nil, false
		}
		return &proxyTemplate{binary: arg, left: left, right: right}, true
	case *ast.CallExpression:
		return &proxyTemplate{call: arg}, true
	}
	return nil, false
}

func parameterNames(fn *ast.FunctionLiteral) []string {
	list := fn.ParameterList.List
	names := make([]string, 0, len(list))
	for i := range list {
		if list[i].Target == nil || list[i].Target.Target == nil {
			names = append(names, "")
			continue
		}
		id, ok := list[i].Target.Target.(*ast.Identifier)
		if !ok {
			names = append(names, "")
			continue
		}
		names = append(names, id.Name)
	}
	return names
}

func parameterIndex(params []string, e *ast.Expression) int {
	if e == nil {
		return -1
	}
	id, ok := e.Expr.(*ast.Identifier)
	if !ok {
		return -1
	}
	for i, name := range params {
		if name != "" && name == id.Name {
			return i
		}
	}
	return -1
}
