package visitors

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/t14raptor/go-fast/ast"
)

type valueKind int

const (
	kindUndefined valueKind = iota
	kindNull
	kindBoolean
	kindNumber
	kindString
	// kindArray and kindObject are empty array and object literals. Each
	// literal is a fresh object, so two of them are never strictly equal.
	kindArray
	kindObject
)

// value is the result of evaluating a side-effect free expression.
type value struct {
	kind valueKind
	b    bool
	n    float64
	s    string
}

// truthy reduces a condition to a definite boolean. known is false whenever
// any part of the expression could not be evaluated.
func truthy(e *ast.Expression) (result, known bool) {
	v, ok := evaluate(e)
	if !ok {
		return false, false
	}
	return v.toBoolean(), true
}

func evaluate(e *ast.Expression) (value, bool) {
	if e == nil || e.Expr == nil {
		return value{}, false
	}
	switch expr := e.Expr.(type) {
	case *ast.BooleanLiteral:
		return value{kind: kindBoolean, b: expr.Value}, true
	case *ast.NumberLiteral:
		return value{kind: kindNumber, n: expr.Value}, true
	case *ast.StringLiteral:
		return value{kind: kindString, s: expr.Value}, true
	case *ast.NullLiteral:
		return value{kind: kindNull}, true
	case *ast.ArrayLiteral:
		if len(expr.Value) == 0 {
			return value{kind: kindArray}, true
		}
	case *ast.ObjectLiteral:
		if len(expr.Value) == 0 {
			return value{kind: kindObject}, true
		}
	case *ast.UnaryExpression:
		return evaluateUnary(expr)
	case *ast.BinaryExpression:
		return evaluateBinary(expr)
	}
	return value{}, false
}

func evaluateUnary(expr *ast.UnaryExpression) (value, bool) {
	operand, ok := evaluate(expr.Operand)
	if !ok {
		return value{}, false
	}
	switch expr.Operator.String() {
	case "!":
		return value{kind: kindBoolean, b: !operand.toBoolean()}, true
	case "-":
		return value{kind: kindNumber, n: -operand.toNumber()}, true
	case "+":
		return value{kind: kindNumber, n: operand.toNumber()}, true
	case "void":
		return value{kind: kindUndefined}, true
	case "typeof":
		return value{kind: kindString, s: operand.typeOf()}, true
	}
	return value{}, false
}

func evaluateBinary(expr *ast.BinaryExpression) (value, bool) {
	op := expr.Operator.String()
	left, ok := evaluate(expr.Left)
	if !ok {
		return value{}, false
	}

	// The right operand of a short-circuit is only evaluated when reached.
	switch op {
	case "&&":
		if !left.toBoolean() {
			return left, true
		}
		return evaluate(expr.Right)
	case "||":
		if left.toBoolean() {
			return left, true
		}
		return evaluate(expr.Right)
	case "??":
		if left.kind != kindNull && left.kind != kindUndefined {
			return left, true
		}
		return evaluate(expr.Right)
	}

	right, ok := evaluate(expr.Right)
	if !ok {
		return value{}, false
	}

	switch op {
	case "===":
		eq, ok := strictEquals(left, right)
		return value{kind: kindBoolean, b: eq}, ok
	case "!==":
		eq, ok := strictEquals(left, right)
		return value{kind: kindBoolean, b: !eq}, ok
	case "==":
		eq, ok := looseEquals(left, right)
		return value{kind: kindBoolean, b: eq}, ok
	case "!=":
		eq, ok := looseEquals(left, right)
		return value{kind: kindBoolean, b: !eq}, ok
	case "<", ">", "<=", ">=":
		return compare(op, left, right)
	case "+":
		left, right = left.toPrimitive(), right.toPrimitive()
		if left.kind == kindString || right.kind == kindString {
			return value{kind: kindString, s: left.toString() + right.toString()}, true
		}
		return value{kind: kindNumber, n: left.toNumber() + right.toNumber()}, true
	case "-", "*", "/", "%":
		l, r := left.toNumber(), right.toNumber()
		switch op {
		case "-":
			return value{kind: kindNumber, n: l - r}, true
		case "*":
			return value{kind: kindNumber, n: l * r}, true
		case "/":
			return value{kind: kindNumber, n: l / r}, true
		default:
			return value{kind: kindNumber, n: math.Mod(l, r)}, true
		}
	}
	return value{}, false
}

func strictEquals(left, right value) (bool, bool) {
	if left.kind != right.kind || left.isObject() {
		return false, true
	}
	switch left.kind {
	case kindBoolean:
		return left.b == right.b, true
	case kindNumber:
		return left.n == right.n, true
	case kindString:
		return left.s == right.s, true
	}
	return true, true
}

func looseEquals(left, right value) (bool, bool) {
	if left.kind == right.kind {
		return strictEquals(left, right)
	}
	leftNullish := left.kind == kindNull || left.kind == kindUndefined
	rightNullish := right.kind == kindNull || right.kind == kindUndefined
	if leftNullish || rightNullish {
		return leftNullish && rightNullish, true
	}
	if left.isObject() && right.isObject() {
		return false, true
	}
	if left.isObject() || right.isObject() {
		return looseEquals(left.toPrimitive(), right.toPrimitive())
	}
	return left.toNumber() == right.toNumber(), true
}

func compare(op string, left, right value) (value, bool) {
	left, right = left.toPrimitive(), right.toPrimitive()
	var less, equal bool
	if left.kind == kindString && right.kind == kindString {
		c := compareUTF16(left.s, right.s)
		less, equal = c < 0, c == 0
	} else {
		l, r := left.toNumber(), right.toNumber()
		if math.IsNaN(l) || math.IsNaN(r) {
			return value{kind: kindBoolean, b: false}, true
		}
		less, equal = l < r, l == r
	}
	var b bool
	switch op {
	case "<":
		b = less
	case ">":
		b = !less && !equal
	case "<=":
		b = less || equal
	case ">=":
		b = !less
	}
	return value{kind: kindBoolean, b: b}, true
}

func (v value) toBoolean() bool {
	switch v.kind {
	case kindBoolean:
		return v.b
	case kindNumber:
		return v.n != 0 && !math.IsNaN(v.n)
	case kindString:
		return v.s != ""
	case kindArray, kindObject:
		return true
	}
	return false
}

func (v value) isObject() bool {
	return v.kind == kindArray || v.kind == kindObject
}

// toPrimitive converts an empty array or object literal the way the
// default valueOf/toString chain does.
func (v value) toPrimitive() value {
	if v.isObject() {
		return value{kind: kindString, s: v.toString()}
	}
	return v
}

func (v value) toNumber() float64 {
	switch v.kind {
	case kindNull:
		return 0
	case kindBoolean:
		if v.b {
			return 1
		}
		return 0
	case kindNumber:
		return v.n
	case kindString:
		return stringToNumber(v.s)
	case kindArray:
		return 0
	}
	return math.NaN()
}

func (v value) toString() string {
	switch v.kind {
	case kindUndefined:
		return "undefined"
	case kindNull:
		return "null"
	case kindBoolean:
		return strconv.FormatBool(v.b)
	case kindNumber:
		return numberToString(v.n)
	case kindString:
		return v.s
	case kindObject:
		return "[object Object]"
	}
	return ""
}

func (v value) typeOf() string {
	switch v.kind {
	case kindUndefined:
		return "undefined"
	case kindBoolean:
		return "boolean"
	case kindNumber:
		return "number"
	case kindString:
		return "string"
	}
	return "object"
}

func stringToNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	lower := strings.ToLower(s)
	for prefix, base := range map[string]int{"0x": 16, "0o": 8, "0b": 2} {
		if strings.HasPrefix(lower, prefix) {
			n, err := strconv.ParseUint(lower[2:], base, 64)
			if err != nil {
				return math.NaN()
			}
			return float64(n)
		}
	}
	switch s {
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	if strings.Contains(lower, "inf") || strings.Contains(lower, "nan") {
		return math.NaN()
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return math.NaN()
	}
	return n
}

func numberToString(n float64) string {
	switch {
	case math.IsNaN(n):
		return "NaN"
	case math.IsInf(n, 1):
		return "Infinity"
	case math.IsInf(n, -1):
		return "-Infinity"
	case n == 0:
		return "0"
	}
	if abs := math.Abs(n); abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	// Go writes "1e-07" and "1e+21"; JS drops the exponent's leading zeros.
	mantissa, exp, _ := strings.Cut(strconv.FormatFloat(n, 'e', -1, 64), "e")
	return mantissa + "e" + exp[:1] + strings.TrimLeft(exp[1:], "0")
}

// compareUTF16 orders strings by UTF-16 code units, as JS relational
// operators do.
func compareUTF16(a, b string) int {
	x, y := utf16.Encode([]rune(a)), utf16.Encode([]rune(b))
	for i := 0; i < len(x) && i < len(y); i++ {
		if x[i] != y[i] {
			if x[i] < y[i] {
				return -1
			}
			return 1
		}
	}
	return len(x) - len(y)
}
