package matcher

import (
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/coregx/redfa/dfa"
	"github.com/coregx/redfa/nfa"
	"github.com/coregx/redfa/predict"
)

func compile(t *testing.T, pattern string) (*dfa.Opcodes, *predict.Predictor) {
	t.Helper()
	prog, err := nfa.Parse(pattern, 0, nil, nfa.DefaultLimits())
	if err != nil {
		t.Fatalf("Parse(%q): %v", pattern, err)
	}
	d, err := dfa.Build(prog, dfa.DefaultConfig())
	if err != nil {
		t.Fatalf("Build(%q): %v", pattern, err)
	}
	return d.Encode(false), predict.New(d.Analyze(), nil)
}

func findAll(ops *dfa.Opcodes, pred *predict.Predictor, data []byte) [][3]int {
	m := NewBytes(ops, pred, data)
	var out [][3]int
	for len(out) < 100 {
		s, e, c, ok := m.Find()
		if !ok {
			break
		}
		out = append(out, [3]int{s, e, c})
	}
	return out
}

func TestFindLiteral(t *testing.T) {
	ops, pred := compile(t, "hello")
	got := findAll(ops, pred, []byte("say hello twice hello."))

	want := [][3]int{{4, 9, 1}, {16, 21, 1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("matches mismatch (-want +got):\n%s", diff)
	}
}

func TestLeftmostLongest(t *testing.T) {
	ops, pred := compile(t, "a|ab")
	got := findAll(ops, pred, []byte("xab"))

	want := [][3]int{{1, 3, 2}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("matches mismatch (-want +got):\n%s", diff)
	}
}

func TestQuantifierBounds(t *testing.T) {
	ops, pred := compile(t, "a{2,4}")

	tests := []struct {
		input string
		want  [][3]int
	}{
		{"a", nil},
		{"aa", [][3]int{{0, 2, 1}}},
		{"aaa", [][3]int{{0, 3, 1}}},
		{"aaaa", [][3]int{{0, 4, 1}}},
		{"aaaaa", [][3]int{{0, 4, 1}}},
	}
	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got := findAll(ops, pred, []byte(tc.input))
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("matches mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAnchors(t *testing.T) {
	ops, pred := compile(t, "^ab$")

	m := NewBytes(ops, pred, []byte("ab"))
	if !m.Matches() {
		t.Error("Matches(\"ab\") = false, want true")
	}
	if got := findAll(ops, pred, []byte("xab")); got != nil {
		t.Errorf("anchored pattern matched mid-input: %v", got)
	}

	ops, pred = compile(t, "(?m)^b")
	got := findAll(ops, pred, []byte("a\nb"))
	want := [][3]int{{2, 3, 1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("multiline matches mismatch (-want +got):\n%s", diff)
	}
}

func TestWordBoundaries(t *testing.T) {
	ops, pred := compile(t, `\bfoo\b`)

	got := findAll(ops, pred, []byte("a foo bar"))
	want := [][3]int{{2, 5, 1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("matches mismatch (-want +got):\n%s", diff)
	}
	if got := findAll(ops, pred, []byte("foods")); got != nil {
		t.Errorf("boundary matched inside a word: %v", got)
	}
}

func TestLookahead(t *testing.T) {
	ops, pred := compile(t, "foo(?=bar)")

	got := findAll(ops, pred, []byte("xfoobar"))
	want := [][3]int{{1, 4, 1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("matches mismatch (-want +got):\n%s", diff)
	}
	if got := findAll(ops, pred, []byte("foobaz")); got != nil {
		t.Errorf("lookahead matched without its suffix: %v", got)
	}
}

func TestUnicodeCaseFolding(t *testing.T) {
	// U+03C3 folds across {sigma, capital Sigma, final sigma}.
	ops, pred := compile(t, "(?iu)σ")
	got := findAll(ops, pred, []byte("x Σ ς"))
	want := [][3]int{{2, 4, 1}, {5, 7, 1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("literal fold matches mismatch (-want +got):\n%s", diff)
	}

	ops, pred = compile(t, "(?iu)[α-ω]+")
	got = findAll(ops, pred, []byte("ΒΗΤΑ"))
	want = [][3]int{{0, 8, 1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("class fold matches mismatch (-want +got):\n%s", diff)
	}
}

func TestNegativePattern(t *testing.T) {
	ops, pred := compile(t, "(?^ab)")
	if got := findAll(ops, pred, []byte("ab")); got != nil {
		t.Errorf("negative pattern produced matches: %v", got)
	}
}

func TestMatches(t *testing.T) {
	tests := []struct {
		pattern, input string
		want           bool
	}{
		{"a+b", "aaab", true},
		{"a+b", "aab x", false},
		{"a+b", "b", false},
		{"a*", "", true},
	}
	for _, tc := range tests {
		t.Run(tc.pattern+"/"+tc.input, func(t *testing.T) {
			ops, pred := compile(t, tc.pattern)
			m := NewBytes(ops, pred, []byte(tc.input))
			if got := m.Matches(); got != tc.want {
				t.Errorf("Matches(%q) = %v, want %v", tc.input, got, tc.want)
			}
		})
	}
}

func TestScanTokens(t *testing.T) {
	ops, pred := compile(t, "ab|cd| +")
	m := NewBytes(ops, pred, []byte("ab cd"))

	want := []int{1, 3, 2, 0}
	for i, w := range want {
		if got := m.Scan(); got != w {
			t.Fatalf("Scan() #%d = %d, want %d", i, got, w)
		}
	}
}

func TestEmptyMatches(t *testing.T) {
	ops, pred := compile(t, "a*")
	got := findAll(ops, pred, []byte("bba"))

	want := [][3]int{{0, 0, 1}, {1, 1, 1}, {2, 3, 1}, {3, 3, 1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("matches mismatch (-want +got):\n%s", diff)
	}
}

func TestStreamedInput(t *testing.T) {
	// The needle sits well past the initial window, forcing refills,
	// and straddles a window-size boundary.
	pad := strings.Repeat("x", 20000)
	input := pad + "needle" + strings.Repeat("y", 500)

	ops, pred := compile(t, "needle")
	m := New(ops, pred, strings.NewReader(input))

	s, e, c, ok := m.Find()
	if !ok {
		t.Fatal("Find() found nothing")
	}
	if s != 20000 || e != 20006 || c != 1 {
		t.Errorf("Find() = (%d, %d, %d), want (20000, 20006, 1)", s, e, c)
	}
	if string(m.Text()) != "needle" {
		t.Errorf("Text() = %q, want \"needle\"", m.Text())
	}
	if _, _, _, ok := m.Find(); ok {
		t.Error("second Find() = true, want false")
	}
}

// stutterReader delivers one byte at a time with empty reads between
// chunks, the way a slow pipe behaves.
type stutterReader struct {
	data []byte
	gaps int
}

func (r *stutterReader) Read(p []byte) (int, error) {
	if r.gaps > 0 {
		r.gaps--
		return 0, nil
	}
	if len(r.data) == 0 {
		return 0, io.EOF
	}
	r.gaps = 3
	n := copy(p, r.data[:1])
	r.data = r.data[n:]
	return n, nil
}

func TestStutteringReader(t *testing.T) {
	ops, pred := compile(t, "ab")
	m := New(ops, pred, &stutterReader{data: []byte("xxabxx"), gaps: 2})
	s, e, _, ok := m.Find()
	if !ok || s != 2 || e != 4 {
		t.Errorf("Find() = (%d, %d, _, %v), want (2, 4, _, true)", s, e, ok)
	}
	if err := m.Err(); err != nil {
		t.Errorf("Err() = %v, want nil", err)
	}
}

// brokenReader never delivers bytes and never errors.
type brokenReader struct{}

func (brokenReader) Read(p []byte) (int, error) { return 0, nil }

func TestNoProgressReader(t *testing.T) {
	ops, pred := compile(t, "ab")
	m := New(ops, pred, brokenReader{})
	if _, _, _, ok := m.Find(); ok {
		t.Error("Find() on a no-progress reader = true, want false")
	}
	if err := m.Err(); err != io.ErrNoProgress {
		t.Errorf("Err() = %v, want io.ErrNoProgress", err)
	}
}

// TestAccelerationEquivalence checks that the predicted scan path and a
// bare walk attempting every position report identical matches.
func TestAccelerationEquivalence(t *testing.T) {
	patterns := []string{
		"hello", "[a-z]X", "[0-9][0-9]", "a|ab", "ab|cd",
		"a{2,4}", `\bword\b`, "foo(?=bar)", "x.*z", "abcdefghij",
	}
	input := []byte("hello aX 42 ab cd aaaa word foobar x__z abcdefghij word2 9X")

	for _, pattern := range patterns {
		t.Run(pattern, func(t *testing.T) {
			ops, pred := compile(t, pattern)
			fast := findAll(ops, pred, input)
			slow := findAll(ops, &predict.Predictor{}, input)
			if diff := cmp.Diff(slow, fast); diff != "" {
				t.Errorf("accelerated path diverges (-bare +accelerated):\n%s", diff)
			}
		})
	}
}

func TestDeterminism(t *testing.T) {
	ops, pred := compile(t, "[a-z]+[0-9]")
	input := []byte("abc1 zz9 q5 mixed77")

	first := findAll(ops, pred, input)
	for trial := 0; trial < 5; trial++ {
		if diff := cmp.Diff(first, findAll(ops, pred, input)); diff != "" {
			t.Fatalf("trial %d diverged (-first +now):\n%s", trial, diff)
		}
	}
}
