package visitors

import (
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestResolveStringsMainArray(t *testing.T) {
	runPassCases(t, stringsPass(defaultStrings), []passCase{
		{
			name:     "declared array",
			src:      `var _ = ["foo", "bar", "baz"]; console.log(_[1]);`,
			want:     `var _ = ["foo", "bar", "baz"]; console.log("bar");`,
			rewrites: 1,
		},
		{
			name:     "global property",
			src:      `window._ = ["x", "y"]; use(_[0], _[1]);`,
			want:     `window._ = ["x", "y"]; use("x", "y");`,
			rewrites: 2,
		},
		{
			name:     "out of range index",
			src:      `var _ = ["foo"]; use(_[4]);`,
			want:     `var _ = ["foo"]; use(_[4]);`,
			rewrites: 0,
		},
		{
			name:     "fractional index",
			src:      `var _ = ["foo", "bar"]; use(_[0.5]);`,
			want:     `var _ = ["foo", "bar"]; use(_[0.5]);`,
			rewrites: 0,
		},
		{
			name:     "non string element",
			src:      `var _ = ["foo", 7]; use(_[1]);`,
			want:     `var _ = ["foo", 7]; use(_[1]);`,
			rewrites: 0,
		},
		{
			name:     "shadowed name",
			src:      `var _ = ["foo"]; function f(_) { return _[0]; }`,
			want:     `var _ = ["foo"]; function f(_) { return _[0]; }`,
			rewrites: 0,
		},
		{
			name:     "write target kept",
			src:      `var _ = ["foo"]; _[0] = "baz"; use(_[0]);`,
			want:     `var _ = ["foo"]; _[0] = "baz"; use("foo");`,
			rewrites: 1,
		},
		{
			name:     "update and delete operands kept",
			src:      `var _ = ["foo"]; _[0]++; --_[0]; delete _[0]; use(_[0]);`,
			want:     `var _ = ["foo"]; _[0]++; --_[0]; delete _[0]; use("foo");`,
			rewrites: 1,
		},
		{
			name:     "global property shadowed by parameter",
			src:      `window._ = ["x"]; function f(_) { return _[0]; } use(_[0]);`,
			want:     `window._ = ["x"]; function f(_) { return _[0]; } use("x");`,
			rewrites: 1,
		},
		{
			name:     "global property shadowed by arrow parameter",
			src:      `window._ = ["x"]; var g = (_) => _[0];`,
			want:     `window._ = ["x"]; var g = (_) => _[0];`,
			rewrites: 0,
		},
		{
			name:     "global property shadowed by catch parameter",
			src:      `window._ = ["x"]; try { a(); } catch (_) { use(_[0]); }`,
			want:     `window._ = ["x"]; try { a(); } catch (_) { use(_[0]); }`,
			rewrites: 0,
		},
	})
}

func TestResolveStringsAccessor(t *testing.T) {
	const rotated = `
var arr = "a|b|c|d".split("|");
(function (t, n) {
	var s = n + 1;
	for (; --s;) {
		t.push(t.shift());
	}
})(arr, 2);
var get = function (i) {
	i = i - 0;
	return arr[i];
};
`
	// Rotations apply in call order: one then two places.
	const repeated = `
var arr = "a|b|c|d".split("|");
(function (t, n) {
	var s = n + 1;
	for (; --s;) {
		t.push(t.shift());
	}
})(arr, 1);
(function (t, n) {
	var s = n + 1;
	for (; --s;) {
		t.push(t.shift());
	}
})(arr, 2);
function get(i) {
	i = i - 0;
	return arr[i];
}
`
	const runaway = `
var arr = "a|b|c|d".split("|");
(function (t, n) {
	var s = n + 1;
	for (; --s;) {
		t.push(t.shift());
	}
})(arr, 1e9);
function get(i) {
	i = i - 0;
	return arr[i];
}
`
	const offset = `
var arr = "a|b|c|d".split("|");
function get(i) {
	i = i - 1;
	return arr[i];
}
`
	const compound = `
function get(i) {
	var arr = "a|b|c|d".split("|");
	i -= 2;
	return arr[i];
}
`

	runPassCases(t, stringsPass(defaultStrings), []passCase{
		{
			name:     "rotated table",
			src:      rotated + `use(get("0x0"), get("0x3"));`,
			want:     rotated + `use("c", "b");`,
			rewrites: 2,
		},
		{
			name:     "repeated rotations",
			src:      repeated + `use(get("0x0"), get("0x1"));`,
			want:     repeated + `use("d", "a");`,
			rewrites: 2,
		},
		{
			name:     "implausible rotation count",
			src:      runaway + `use(get("0x0"));`,
			want:     runaway + `use(get("0x0"));`,
			rewrites: 0,
		},
		{
			name:     "subtracted offset",
			src:      offset + `use(get("0x1"), get("0x4"));`,
			want:     offset + `use("a", "d");`,
			rewrites: 2,
		},
		{
			name:     "compound offset and local table",
			src:      compound + `use(get("0x5"));`,
			want:     compound + `use("d");`,
			rewrites: 1,
		},
		{
			name:     "encoded index out of range",
			src:      offset + `use(get("0x9"));`,
			want:     offset + `use(get("0x9"));`,
			rewrites: 0,
		},
		{
			name:     "argument without prefix",
			src:      offset + `use(get("1"), get(1));`,
			want:     offset + `use(get("1"), get(1));`,
			rewrites: 0,
		},
		{
			name:     "unknown accessor",
			src:      `use(missing("0x1"));`,
			want:     `use(missing("0x1"));`,
			rewrites: 0,
		},
		{
			name:     "accessor without table",
			src:      `function get(i) { return i; } use(get("0x1"));`,
			want:     `function get(i) { return i; } use(get("0x1"));`,
			rewrites: 0,
		},
	})
}

func TestResolveStringsCustomPrefix(t *testing.T) {
	const accessor = `
var arr = "p|q".split("|");
function get(i) {
	return arr[i];
}
`
	got, rewrites := runPass(t, accessor+`use(get("$1"), get("0x0"));`, stringsPass(StringOptions{
		MainArray: "_",
		HexPrefix: "$",
	}))
	assert.Equal(t, normalize(t, accessor+`use("q", get("0x0"));`), got)
	assert.Equal(t, 1, rewrites)
}

func TestRotate(t *testing.T) {
	tests := []struct {
		name  string
		count int
		want  []string
	}{
		{name: "none", count: 0, want: []string{"a", "b", "c", "d"}},
		{name: "two", count: 2, want: []string{"c", "d", "a", "b"}},
		{name: "full cycle", count: 4, want: []string{"a", "b", "c", "d"}},
		{name: "past length", count: 5, want: []string{"b", "c", "d", "a"}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, rotate([]string{"a", "b", "c", "d"}, test.count))
		})
	}
}

func TestDecoderLookup(t *testing.T) {
	d := &decoder{table: []string{"a", "b"}, offset: -1}

	v, ok := d.lookup(1)
	assert.True(t, ok)
	assert.Equal(t, "a", v)

	_, ok = d.lookup(0)
	assert.False(t, ok)
	_, ok = d.lookup(3)
	assert.False(t, ok)
}
