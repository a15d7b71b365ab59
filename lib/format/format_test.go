package format

import (
	"testing"

	"github.com/phil-mansfield/amrpar/lib/eq"
)

func TestIsSequenceFormatToken(t *testing.T) {
	tests := []struct {
		tok   string
		valid bool
	}{
		{"", false},
		{"1", true},
		{"a", false},
		{"1..30", true},
		{"a..30", false},
		{"1..a", false},
		{"30..1", false},
		{"a..b", false},
		{"1..30..60", false},
		{"0..100000000", false},
	}

	for i := range tests {
		err := isSequenceFormatToken(tests[i].tok)
		if tests[i].valid && err != nil {
			t.Errorf("%d) Expected token '%s' to be valid, but got error '%s'.",
				i, tests[i].tok, err.Error())
		} else if !tests[i].valid && err == nil {
			t.Errorf("%d) Expected token '%s' to be invalid, but got no error.",
				i, tests[i].tok)
		}
	}
}

func TestParseSequenceFormatToken(t *testing.T) {
	tests := []struct {
		tok string
		seq []int
	}{
		{"0", []int{0}},
		{"1000", []int{1000}},
		{"1..4", []int{1, 2, 3, 4}},
		{"10..20", []int{10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20}},
	}

	for i := range tests {
		seq := parseSequenceFormatToken(tests[i].tok)
		if !eq.Ints(tests[i].seq, seq) {
			t.Errorf("%d) Expected token '%s' to expand to %d, got %d.",
				i, tests[i].tok, tests[i].seq, seq)
		}
	}
}

func TestTokeniseSequenceFormat(t *testing.T) {
	tests := []struct {
		format string
		tok    []string
		valid  bool
	}{
		{"", []string{""}, false},
		{"   ", []string{""}, false},
		{"0", []string{"0"}, true},
		{"101", []string{"101"}, true},
		{"10..20", []string{"10..20"}, true},
		{"a..b", []string{"a..b"}, true},
		{"0+1", []string{"0", "+", "1"}, true},
		{"0 + 1", []string{"0", "+", "1"}, true},
		{"0-1", []string{"0", "-", "1"}, true},
		{"0 - 1", []string{"0", "-", "1"}, true},
		{"  0+       1    ", []string{"0", "+", "1"}, true},
		{"-0..100 + 0..200-9", []string{"-", "0..100", "+", "0..200",
			"-", "9"}, true},
		{"+-+-", []string{"+", "-", "+", "-"}, true},
	}

	for i := range tests {
		tok, err := tokeniseSequenceFormat(tests[i].format)
		if tests[i].valid && err != nil {
			t.Errorf("%d) Expected '%s' to be valid, but got error '%s'.",
				i, tests[i].format, err.Error())
		} else if !tests[i].valid && err == nil {
			t.Errorf("%d) Expected '%s' to be invalid, but got no error.",
				i, tests[i].format)
		}

		if tests[i].valid && !stringsEq(tok, tests[i].tok) {
			t.Errorf("%d) Expected '%s' to tokenize to %s, got %s.",
				i, tests[i].format, tests[i].tok, tok)
		}
	}
}

func TestAddsSubsSequenceFormat(t *testing.T) {
	tests := []struct {
		tok, adds, subs []string
		valid           bool
	}{
		{[]string{}, nil, nil, false},
		{[]string{"1"}, []string{"1"}, []string{}, true},
		{[]string{"+", "1"}, []string{"1"}, []string{}, true},
		{[]string{"-", "1"}, []string{}, []string{"1"}, true},
		{[]string{"1", "+", "2"}, []string{"1", "2"}, []string{}, true},
		{[]string{"1", "+", "2..10"}, []string{"1", "2..10"}, []string{}, true},
		{[]string{"1", "-", "2"}, []string{"1"}, []string{"2"}, true},
		{[]string{"1", "-", "2..10"}, []string{"1"}, []string{"2..10"}, true},
		{[]string{"-", "1", "-", "2"}, []string{}, []string{"1", "2"}, true},
		{[]string{"1", "2"}, nil, nil, false},
		{[]string{"1", "+", "2", "+"}, nil, nil, false},
		{[]string{"1", "+", "+", "2"}, nil, nil, false},
		{[]string{"1", "-", "-", "2"}, nil, nil, false},
		{[]string{"1", "+", "-", "2"}, nil, nil, false},
		{[]string{"1", "+"}, nil, nil, false},
		{[]string{"1", "*", "2"}, nil, nil, false},
		{[]string{"+", "+", "1", "+", "2"}, nil, nil, false},
		{[]string{"a", "+", "2"}, nil, nil, false},
		{[]string{"1", "+", "a"}, nil, nil, false},
		{[]string{"1", "+", "a..2"}, nil, nil, false},
	}

	for i := range tests {
		adds, subs, err := addsSubsSequenceFormat(tests[i].tok)
		if tests[i].valid && err != nil {
			t.Errorf("%d) Expected %s could be processed, got error '%s'",
				i, tests[i].tok, err.Error())
		} else if !tests[i].valid && err == nil {
			t.Errorf("%d) Expected %s could not be processed, but got no "+
				"error.", i, tests[i].tok)
		} else if tests[i].valid && (!stringsEq(adds, tests[i].adds) ||
			!stringsEq(subs, tests[i].subs)) {
			t.Errorf("%d) Expected %s would be processed into adds = %s, "+
				"subs= %s, but got adds = %s, subs = %s",
				i, tests[i].tok, tests[i].adds, tests[i].subs, adds, subs)
		}
	}
}

func TestExpandSequenceFormat(t *testing.T) {
	tests := []struct {
		format string
		n      []int
		valid  bool
	}{
		{"", nil, false},
		{"a", nil, false},
		{"10..a", nil, false},
		{"a..10", nil, false},
		{"1", []int{1}, true},
		{"1..5", []int{1, 2, 3, 4, 5}, true},
		{"+1", []int{1}, true},
		{"+ 1..5", []int{1, 2, 3, 4, 5}, true},
		{"-1", nil, false},
		{"- 1..5", nil, false},
		{"1 + 2", []int{1, 2}, true},
		{"1+2", []int{1, 2}, true},
		{"1 + 1", nil, false},
		{"1 + 3..5", []int{1, 3, 4, 5}, true},
		{"3..5 + 1 + 7..9", []int{1, 3, 4, 5, 7, 8, 9}, true},
		{"-3 + 3..5 - 4", []int{5}, true},
		{"1..10 - 2..9", []int{1, 10}, true},
		{"0..100 - 1..99", []int{0, 100}, true},
		{"3..5 - 1", nil, false},
		{"3..5 - 4 - 4", nil, false},
		{"3..5 + 6+", nil, false},
		{"3..5 + 6-", nil, false},
	}

	for i := range tests {
		n, err := ExpandSequenceFormat(tests[i].format)

		if tests[i].valid && err != nil {
			t.Errorf("%d) Expected '%s' could be expanded, got error '%s'",
				i, tests[i].format, err.Error())
		} else if !tests[i].valid && err == nil {
			t.Errorf("%d) Expected '%s' should fail, but got no error.",
				i, tests[i].format)
		} else if tests[i].valid && !eq.Ints(n, tests[i].n) {
			t.Errorf("%d) Expected '%s' to expand to %d, got %d",
				i, tests[i].format, tests[i].n, n)
		}
	}
}

func TestSequenceContains(t *testing.T) {
	seq, err := ParseSequence("0..20 - 5..9 + 100")
	if err != nil {
		t.Fatalf("Expected valid sequence, got error '%s'.", err.Error())
	}

	tests := []struct {
		n        int
		contains bool
	}{
		{-1, false}, {0, true}, {4, true}, {5, false}, {9, false},
		{10, true}, {20, true}, {21, false}, {100, true}, {101, false},
	}
	for i := range tests {
		if seq.Contains(tests[i].n) != tests[i].contains {
			t.Errorf("%d) Expected Contains(%d) = %v, got %v.", i,
				tests[i].n, tests[i].contains, !tests[i].contains)
		}
	}
}

func TestStartsEndsFormatString(t *testing.T) {
	tests := []struct {
		format       string
		starts, ends []int
		valid        bool
	}{
		{"aaaaaa", []int{}, []int{}, true},
		{"a{bb}a", []int{1}, []int{5}, true},
		{"{bb}aa", []int{0}, []int{4}, true},
		{"aa{bb}", []int{2}, []int{6}, true},
		{"{}", []int{0}, []int{2}, true},
		{"{}{bb}{}{}", []int{0, 2, 6, 8}, []int{2, 6, 8, 10}, true},
		{"{}{bb}a{}{}", []int{0, 2, 7, 9}, []int{2, 6, 9, 11}, true},
		{"{", nil, nil, false},
		{"}", nil, nil, false},
		{"{{", nil, nil, false},
		{"{{}}", nil, nil, false},
		{"{}{", nil, nil, false},
		{"{}}", nil, nil, false},
		{"}{}", nil, nil, false},
		{"{{}", nil, nil, false},
	}

	for i := range tests {
		starts, ends, err := startsEndsFormatString(tests[i].format)
		if tests[i].valid && err != nil {
			t.Errorf("%d) Expected '%s' could be processed, but got error '%s'",
				i, tests[i].format, err.Error())
		} else if !tests[i].valid && err == nil {
			t.Errorf("%d) Expected '%s' should fail, but got no error.",
				i, tests[i].format)
		} else if tests[i].valid && (!eq.Ints(starts, tests[i].starts) ||
			!eq.Ints(ends, tests[i].ends)) {
			t.Errorf("%d) Expected '%s' should have starts = %d, ends = %d, "+
				"but got starts = %d, ends = %d", i, tests[i].format,
				tests[i].starts, tests[i].ends, starts, ends)
		}
	}
}

func TestExpandFileFormat(t *testing.T) {
	tests := []struct {
		format string
		files  []string
		valid  bool
	}{
		{"halo.par", []string{"halo.par"}, true},
		{"halo.{%d,0..2}.par", []string{
			"halo.0.par", "halo.1.par", "halo.2.par",
		}, true},
		{"d{%02d, 8..9}/s{%03d,1..2}", []string{"d08/s001", "d09/s002"}, true},
		{"halo.{%d,0..2 - 1}", []string{"halo.0", "halo.2"}, true},
		{"halo.{%d}", nil, false},
		{"halo.{%s,0..2}", nil, false},
		{"halo.{%d,2..0}", nil, false},
		{"d{%d,0..1}/s{%d,0..2}", nil, false},
		{"halo.{%d,0..2", nil, false},
	}

	for i := range tests {
		files, err := ExpandFileFormat(tests[i].format)
		if tests[i].valid && err != nil {
			t.Errorf("%d) Expected '%s' could be expanded, but got error "+
				"'%s'", i, tests[i].format, err.Error())
		} else if !tests[i].valid && err == nil {
			t.Errorf("%d) Expected '%s' should fail, but got no error.",
				i, tests[i].format)
		} else if tests[i].valid && !stringsEq(files, tests[i].files) {
			t.Errorf("%d) Expected '%s' to expand to %s, got %s.",
				i, tests[i].format, tests[i].files, files)
		}
	}
}

func stringsEq(x, y []string) bool {
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}
