package visitors

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/t14raptor/go-fast/ast"

	"github.com/fxnatic/jsdeob-go/scope"
)

type StringOptions struct {
	// MainArray is the identifier holding the plain string array.
	MainArray string
	// HexPrefix marks the encoded index argument of accessor calls.
	HexPrefix string
}

// decoder is a recovered accessor: the rotated table and the offset the
// accessor adds to every index.
type decoder struct {
	table  []string
	offset int
}

func (d *decoder) lookup(index int) (string, bool) {
	pos := index + d.offset
	if pos < 0 || pos >= len(d.table) {
		return "", false
	}
	return d.table[pos], true
}

type stringResolver struct {
	ast.NoopVisitor
	env  Env
	log  *slog.Logger
	opts StringOptions

	main          []*ast.StringLiteral
	mainId        ast.Id
	mainViaMember bool
	haveMain      bool

	// Keyed by the accessor binding; a nil entry caches a failed discovery.
	decoders map[ast.Id]*decoder
	rewrites int
}

// ResolveStrings inlines the string array: direct reads `_[3]` of the main
// array, and accessor calls `f("0x1f")` whose accessor indexes a split and
// rotated string table. It returns the number of rewritten sites.
func ResolveStrings(p *ast.Program, env Env, opts StringOptions) int {
	r := &stringResolver{
		env:      env,
		log:      env.logger(),
		opts:     opts,
		decoders: make(map[ast.Id]*decoder),
	}
	r.V = r
	r.findMainArray(p)
	p.VisitWith(r)
	return r.rewrites
}

func (r *stringResolver) findMainArray(p *ast.Program) {
	if r.opts.MainArray == "" {
		return
	}
	f := &mainArrayFinder{name: r.opts.MainArray}
	f.V = f
	p.VisitWith(f)
	if f.array == nil {
		r.log.Debug("no main array", slog.String("name", r.opts.MainArray))
		return
	}

	r.main = make([]*ast.StringLiteral, len(f.array.Value))
	for i := range f.array.Value {
		if lit, ok := f.array.Value[i].Expr.(*ast.StringLiteral); ok {
			r.main[i] = lit
		}
	}
	r.mainId = f.id
	r.mainViaMember = f.viaMember
	r.haveMain = true
	r.log.Debug("main array found", slog.Int("length", len(r.main)))
}

func (r *stringResolver) VisitExpression(n *ast.Expression) {
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

	switch expr := n.Expr.(type) {
	case *ast.MemberExpression:
		r.replaceArrayRead(n, expr)
	case *ast.CallExpression:
		r.replaceAccessorCall(n, expr)
	}
}

func (r *stringResolver) isMainArray(id *ast.Identifier) bool {
	if !r.haveMain || id.Name != r.opts.MainArray {
		return false
	}
	if !r.mainViaMember {
		return id.ToId() == r.mainId
	}
	// Assigned as a global property: only undeclared uses see it.
	b, ok := r.env.Scope.Lookup(id)
	return !ok || b.Declaration == nil
}

func (r *stringResolver) replaceArrayRead(n *ast.Expression, m *ast.MemberExpression) {
	if m.Object == nil || m.Property == nil {
		return
	}
	id, ok := m.Object.Expr.(*ast.Identifier)
	if !ok || !r.isMainArray(id) {
		return
	}
	prop, ok := m.Property.Prop.(*ast.ComputedProperty)
	if !ok || prop.Expr == nil {
		return
	}
	num, ok := prop.Expr.Expr.(*ast.NumberLiteral)
	if !ok || num.Value != math.Trunc(num.Value) {
		return
	}
	index := int(num.Value)
	if index < 0 || index >= len(r.main) || r.main[index] == nil {
		r.log.Debug("main array read not folded",
			slog.Int("index", index),
			slog.Any("reason", ErrAmbiguousLiteral))
		return
	}
	n.Expr = &ast.StringLiteral{Value: r.main[index].Value}
	r.rewrites++
}

func (r *stringResolver) replaceAccessorCall(n *ast.Expression, call *ast.CallExpression) {
	if len(call.ArgumentList) != 1 || call.Callee == nil {
		return
	}
	arg, ok := call.ArgumentList[0].Expr.(*ast.StringLiteral)
	if !ok || !strings.HasPrefix(arg.Value, r.opts.HexPrefix) {
		return
	}
	callee, ok := call.Callee.Expr.(*ast.Identifier)
	if !ok {
		return
	}
	index, err := strconv.ParseInt(strings.TrimPrefix(arg.Value, r.opts.HexPrefix), 16, 64)
	if err != nil {
		return
	}

	dec := r.decoderFor(callee)
	if dec == nil {
		return
	}
	value, ok := dec.lookup(int(index))
	if !ok {
		r.log.Debug("encoded index out of range",
			slog.String("accessor", callee.Name),
			slog.Int64("index", index),
			slog.Int("offset", dec.offset))
		return
	}
	n.Expr = &ast.StringLiteral{Value: value}
	r.rewrites++
}

func (r *stringResolver) decoderFor(callee *ast.Identifier) *decoder {
	b, ok := r.env.Scope.Lookup(callee)
	if !ok {
		r.log.Debug("accessor not bound",
			slog.String("accessor", callee.Name),
			slog.Any("reason", ErrUnresolvedBinding))
		return nil
	}
	if dec, seen := r.decoders[b.Id]; seen {
		return dec
	}

	dec, err := buildDecoder(callee.Name, b, r.env.Scope)
	if err != nil {
		r.log.Debug("accessor not recovered",
			slog.String("accessor", callee.Name),
			slog.Any("reason", err))
	} else {
		r.log.Debug("accessor recovered",
			slog.String("accessor", callee.Name),
			slog.Int("length", len(dec.table)),
			slog.Int("offset", dec.offset))
	}
	r.decoders[b.Id] = dec
	return dec
}

// buildDecoder follows an accessor binding to its function, the table it
// indexes, the rotations applied to that table and its index offset.
func buildDecoder(name string, b *scope.Binding, ix *scope.Index) (*decoder, error) {
	assign, fn, ok := b.FirstFunction()
	if !ok {
		return nil, fmt.Errorf("%w: %s is never assigned a function", ErrPatternNotFound, name)
	}

	array, ok := indexedArray(fn)
	if !ok {
		return nil, fmt.Errorf("%w: accessor indexes no array", ErrPatternNotFound)
	}

	table, ok := splitTable(array.ToId(), fn, assign.Region, ix)
	if !ok {
		return nil, fmt.Errorf("%w: no split string for %s", ErrPatternNotFound, array.Name)
	}

	rotations := findRotations(assign.Region, array.ToId())
	for _, count := range rotations {
		if count > maxRotation {
			return nil, fmt.Errorf("%w: rotation count %g exceeds %d", ErrPatternNotFound, count, maxRotation)
		}
	}
	for _, count := range rotations {
		table = rotate(table, int(count))
	}

	return &decoder{
		table:  table,
		offset: indexOffset(fn),
	}, nil
}

// maxRotation bounds a single rotation count. Obfuscators emit counts in
// the hundreds; anything this large is not a table shuffle.
const maxRotation = 1 << 20

// rotate moves the front element to the back count times. The count is not
// reduced modulo the length.
func rotate(table []string, count int) []string {
	if len(table) == 0 {
		return table
	}
	for i := 0; i < count; i++ {
		table = append(table[1:], table[0])
	}
	return table
}

// indexedArray returns the identifier the accessor reads with `arr[i]`.
func indexedArray(fn *ast.FunctionLiteral) (*ast.Identifier, bool) {
	f := &indexedArrayFinder{}
	f.V = f
	fn.Body.VisitWith(f)
	return f.id, f.id != nil
}

type indexedArrayFinder struct {
	ast.NoopVisitor
	id *ast.Identifier
}

func (v *indexedArrayFinder) VisitExpression(n *ast.Expression) {
	if v.id != nil {
		return
	}
	if m, ok := n.Expr.(*ast.MemberExpression); ok && m.Object != nil && m.Property != nil {
		if _, computed := m.Property.Prop.(*ast.ComputedProperty); computed {
			if id, ok := m.Object.Expr.(*ast.Identifier); ok {
				v.id = id
				return
			}
		}
	}
	n.VisitChildrenWith(v)
}

// splitTable recovers `"a|b|c".split("|")`, preferring the split that
// initialises the array binding, then one inside the accessor, then one in
// the accessor's region.
func splitTable(array ast.Id, fn *ast.FunctionLiteral, region scope.Walkable, ix *scope.Index) ([]string, bool) {
	if b, ok := ix.LookupId(array); ok {
		for _, a := range b.Assignments {
			if a.Value == nil {
				continue
			}
			if call, ok := unwrapSequenceTail(a.Value.Expr).(*ast.CallExpression); ok {
				if table, ok := splitCall(call); ok {
					return table, true
				}
			}
		}
	}
	for _, node := range []scope.Walkable{fn.Body, region} {
		if node == nil {
			continue
		}
		f := &splitFinder{}
		f.V = f
		node.VisitWith(f)
		if f.found {
			return f.table, true
		}
	}
	return nil, false
}

type splitFinder struct {
	ast.NoopVisitor
	table []string
	found bool
}

func (v *splitFinder) VisitExpression(n *ast.Expression) {
	if v.found {
		return
	}
	if call, ok := n.Expr.(*ast.CallExpression); ok {
		if table, ok := splitCall(call); ok {
			v.table = table
			v.found = true
			return
		}
	}
	n.VisitChildrenWith(v)
}

func splitCall(call *ast.CallExpression) ([]string, bool) {
	if call == nil || call.Callee == nil || len(call.ArgumentList) != 1 {
		return nil, false
	}
	member, ok := call.Callee.Expr.(*ast.MemberExpression)
	if !ok || member.Object == nil {
		return nil, false
	}
	source, ok := member.Object.Expr.(*ast.StringLiteral)
	if !ok {
		return nil, false
	}
	if name, ok := propertyName(member.Property); !ok || name != "split" {
		return nil, false
	}
	delimiter, ok := call.ArgumentList[0].Expr.(*ast.StringLiteral)
	if !ok {
		return nil, false
	}
	return strings.Split(source.Value, delimiter.Value), true
}

// findRotations lists, in encounter order, the counts of every two-argument
// call `(array, <number>)` in region.
func findRotations(region scope.Walkable, array ast.Id) []float64 {
	if region == nil {
		return nil
	}
	f := &rotationFinder{array: array}
	f.V = f
	region.VisitWith(f)
	return f.counts
}

type rotationFinder struct {
	ast.NoopVisitor
	array  ast.Id
	counts []float64
}

func (v *rotationFinder) VisitExpression(n *ast.Expression) {
	if call, ok := n.Expr.(*ast.CallExpression); ok && len(call.ArgumentList) == 2 {
		target, ok := call.ArgumentList[0].Expr.(*ast.Identifier)
		count, isNum := call.ArgumentList[1].Expr.(*ast.NumberLiteral)
		if ok && isNum && target.ToId() == v.array && count.Value >= 0 {
			v.counts = append(v.counts, math.Trunc(count.Value))
		}
	}
	n.VisitChildrenWith(v)
}

// indexOffset finds `i = i - N` (or `+ N`, `-= N`, `+= N`) in the accessor.
func indexOffset(fn *ast.FunctionLiteral) int {
	f := &offsetFinder{}
	f.V = f
	fn.Body.VisitWith(f)
	return f.offset
}

type offsetFinder struct {
	ast.NoopVisitor
	offset int
	found  bool
}

func (v *offsetFinder) VisitExpression(n *ast.Expression) {
	n.VisitChildrenWith(v)
	if v.found {
		return
	}

	assign, ok := n.Expr.(*ast.AssignExpression)
	if !ok || assign.Left == nil || assign.Right == nil {
		return
	}
	leftId, ok := assign.Left.Expr.(*ast.Identifier)
	if !ok {
		return
	}

	switch assign.Operator.String() {
	case "-=", "+=":
		num, ok := assign.Right.Expr.(*ast.NumberLiteral)
		if !ok {
			return
		}
		v.set(assign.Operator.String()[:1], num.Value)
	case "=":
		binary, ok := assign.Right.Expr.(*ast.BinaryExpression)
		if !ok {
			return
		}
		rightId, ok := binary.Left.Expr.(*ast.Identifier)
		if !ok || rightId.Name != leftId.Name {
			return
		}
		num, ok := binary.Right.Expr.(*ast.NumberLiteral)
		if !ok {
			return
		}
		v.set(binary.Operator.String(), num.Value)
	}
}

func (v *offsetFinder) set(op string, value float64) {
	switch op {
	case "-":
		v.offset = -int(value)
	case "+":
		v.offset = int(value)
	default:
		return
	}
	v.found = true
}

// mainArrayFinder finds the first `name = [...]`, `var name = [...]` or
// `obj.name = [...]`.
type mainArrayFinder struct {
	ast.NoopVisitor
	name      string
	array     *ast.ArrayLiteral
	id        ast.Id
	viaMember bool
}

func (v *mainArrayFinder) VisitStatement(n *ast.Statement) {
	if v.array != nil {
		return
	}
	if decl, ok := n.Stmt.(*ast.VariableDeclaration); ok {
		for i := range decl.List {
			d := decl.List[i]
			if d.Initializer == nil || d.Target == nil || d.Target.Target == nil {
				continue
			}
			id, ok := d.Target.Target.(*ast.Identifier)
			if !ok || id.Name != v.name {
				continue
			}
			if arr, ok := d.Initializer.Expr.(*ast.ArrayLiteral); ok {
				v.array, v.id = arr, id.ToId()
				return
			}
		}
	}
	n.VisitChildrenWith(v)
}

func (v *mainArrayFinder) VisitExpression(n *ast.Expression) {
	if v.array != nil {
		return
	}
	assign, ok := n.Expr.(*ast.AssignExpression)
	if !ok || assign.Operator.String() != "=" || assign.Left == nil || assign.Right == nil {
		n.VisitChildrenWith(v)
		return
	}
	arr, ok := assign.Right.Expr.(*ast.ArrayLiteral)
	if !ok {
		n.VisitChildrenWith(v)
		return
	}
	switch left := assign.Left.Expr.(type) {
	case *ast.Identifier:
		if left.Name == v.name {
			v.array, v.id = arr, left.ToId()
			return
		}
	case *ast.MemberExpression:
		if name, ok := propertyName(left.Property); ok && name == v.name {
			v.array, v.viaMember = arr, true
			return
		}
	}
	n.VisitChildrenWith(v)
}
