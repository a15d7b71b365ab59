/*package format handles amrpar's two miniature formatting languages: step
sequences and file templates. E.g.:

   Steps = 0..100 - 63
   Files = "cluster/halo.{%03d,0..7}.par"

Sequence formats are a generic way to specify non-contiguous sequences of
natural numbers. They consist of a series of n tokens separated by "+" or "-".
Each token can be either a number or two numbers separted by "..". E.g.:

  100
  0..100
  0..10 + 100
  0..100 - 63 - 10..20

These strings build up sequences of numbers by adding/removing individual
numbers and contiguous sequences. For example, 1, 2, 3, 15, 16, 17 could be
written as 1..17 - 4..14. Every addition is applied before any removal.

File templates are a combination of fixed text and variables. Variables are
written as {verb,sequence}, where "verb" is a printf() verb (e.g. %03d) and
"sequence" is a sequence format giving the values the variable takes on. If a
template has more than one variable, they all advance together and must
expand to the same number of values:

  "snapdir{%03d,0..2}/snap{%03d,0..2}.par"

All spaces around "-", "+", and "," symbols are ignored.
*/
package format

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const (
	// Any expanded formats which would have more than BigNumber elements are
	// assumed to be bugs.
	BigNumber = 1 << 20
)

// ExpandSequenceFormat expands a sequence format string into a sorted sequence
// of integers.
func ExpandSequenceFormat(format string) ([]int, error) {
	tok, err := tokeniseSequenceFormat(format)
	if err != nil {
		return nil, err
	}
	adds, subs, err := addsSubsSequenceFormat(tok)
	if err != nil {
		return nil, err
	}

	set := map[int]bool{}
	for _, tok := range adds {
		for _, n := range parseSequenceFormatToken(tok) {
			if set[n] {
				return nil, fmt.Errorf("The number %d is added more "+
					"than once.", n)
			}
			set[n] = true
		}
		if len(set) > BigNumber {
			return nil, fmt.Errorf("This sequence would have more than "+
				"%d elements, which is almost certianly a bug.", BigNumber)
		}
	}

	for _, tok := range subs {
		for _, n := range parseSequenceFormatToken(tok) {
			if !set[n] {
				return nil, fmt.Errorf("The number %d is removed more "+
					"times than it was inserted.", n)
			}
			delete(set, n)
		}
	}

	out := make([]int, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Ints(out)

	return out, nil
}

// Sequence is an expanded sequence format.
type Sequence []int

// ParseSequence expands format into a Sequence.
func ParseSequence(format string) (Sequence, error) {
	seq, err := ExpandSequenceFormat(format)
	return Sequence(seq), err
}

// Contains returns true if n is in the sequence.
func (seq Sequence) Contains(n int) bool {
	i := sort.SearchInts(seq, n)
	return i < len(seq) && seq[i] == n
}

// tokeniseSequenceFormat splits a sequence format into its numbers, ranges,
// and operators.
func tokeniseSequenceFormat(format string) ([]string, error) {
	clean := strings.ReplaceAll(format, "+", " + ")
	clean = strings.ReplaceAll(clean, "-", " - ")

	tok := strings.Fields(clean)
	if len(tok) == 0 {
		return nil, fmt.Errorf("The format string is empty.")
	}
	return tok, nil
}

func addsSubsSequenceFormat(tok []string) (adds, subs []string, err error) {
	if len(tok) == 0 {
		return nil, nil, fmt.Errorf("Format string is empty")
	}

	// The leading "+" may be dropped.
	adds, subs = []string{}, []string{}
	start := 0
	if tok[0] != "+" && tok[0] != "-" {
		if err := isSequenceFormatToken(tok[0]); err != nil {
			return nil, nil, fmt.Errorf("Element number %d, '%s', cannot "+
				"be parsed because %s", 1, tok[0], err.Error())
		}
		adds = append(adds, tok[0])
		start = 1
	}

	for i := start; i < len(tok); i += 2 {
		if tok[i] != "-" && tok[i] != "+" {
			return nil, nil, fmt.Errorf("Element number %d, '%s', should "+
				"be a '-' or '+', but isn't.", i+1, tok[i])
		} else if i+1 >= len(tok) {
			return nil, nil, fmt.Errorf("The format string ends in a "+
				"trailing '%s'", tok[i])
		}

		if err := isSequenceFormatToken(tok[i+1]); err != nil {
			return nil, nil, fmt.Errorf("Element number %d, '%s', cannot "+
				"be parsed because %s", i+2, tok[i+1], err.Error())
		}

		if tok[i] == "+" {
			adds = append(adds, tok[i+1])
		} else {
			subs = append(subs, tok[i+1])
		}
	}

	return adds, subs, nil
}

// isSequenceFormatToken returns a nil error is tok is a valid token for
// a sequence format and an error describing the problem otherwise. The error
// message assumes it is printed after a trailing "because".
func isSequenceFormatToken(tok string) error {
	if len(tok) == 0 {
		return fmt.Errorf("the format string is empty.")
	}

	bounds := strings.Split(tok, "..")
	switch len(bounds) {
	case 1:
		if _, err := strconv.Atoi(bounds[0]); err != nil {
			return fmt.Errorf("'%s' is not an integer.", bounds[0])
		}
		return nil
	case 2:
		start, err := strconv.Atoi(bounds[0])
		if err != nil {
			return fmt.Errorf("'%s' is not an integer.", bounds[0])
		}
		end, err := strconv.Atoi(bounds[1])
		if err != nil {
			return fmt.Errorf("'%s' is not an integer.", bounds[1])
		}
		if end < start {
			return fmt.Errorf("lower bound %d is larger than upper bound %d.",
				start, end)
		} else if end-start >= BigNumber {
			return fmt.Errorf("the range %d..%d has more than %d elements.",
				start, end, BigNumber)
		}
		return nil
	}
	return fmt.Errorf("it has more than one '..'.")
}

// parseSequenceFormatToken returns the numbers in a single token. tok must
// already have passed isSequenceFormatToken.
func parseSequenceFormatToken(tok string) []int {
	bounds := strings.Split(tok, "..")

	switch len(bounds) {
	case 1:
		n, _ := strconv.Atoi(tok)
		return []int{n}
	case 2:
		start, _ := strconv.Atoi(bounds[0])
		end, _ := strconv.Atoi(bounds[1])
		out := make([]int, 0, end-start+1)
		for n := start; n <= end; n++ {
			out = append(out, n)
		}
		return out
	}

	panic(fmt.Sprintf("Internal error: invalid sequence format token, "+
		"'%s', passed isSequenceFormatToken()", tok))
}

// ExpandFileFormat expands a file template into the list of file names it
// describes. A template without variables expands to itself.
func ExpandFileFormat(format string) ([]string, error) {
	starts, ends, err := startsEndsFormatString(format)
	if err != nil {
		return nil, err
	}

	seps := make([]string, 0, len(starts)+1)
	verbs := make([]string, len(starts))
	vals := make([][]int, len(starts))

	sepStart := 0
	for i := range starts {
		seps = append(seps, format[sepStart:starts[i]])
		sepStart = ends[i]

		v := format[starts[i]+1 : ends[i]-1]
		tok := strings.SplitN(v, ",", 2)
		if len(tok) != 2 {
			return nil, fmt.Errorf("The file format '%s' has an invalid "+
				"variable, '{%s}'. Variables should contain a printf verb "+
				"(e.g. '%%d' or '%%03d'), a comma, and a sequence giving "+
				"the values the variable takes on (e.g. '0..511').",
				format, v)
		}

		verbs[i] = strings.TrimSpace(tok[0])
		if !strings.HasPrefix(verbs[i], "%") ||
			!strings.HasSuffix(verbs[i], "d") {
			return nil, fmt.Errorf("The file format '%s' uses the verb "+
				"'%s', but only integer verbs like '%%d' and '%%03d' are "+
				"supported.", format, verbs[i])
		}
		vals[i], err = ExpandSequenceFormat(tok[1])
		if err != nil {
			return nil, fmt.Errorf("The file format '%s' has an invalid "+
				"sequence, '%s': %s", format, tok[1], err.Error())
		}
		if len(vals[i]) != len(vals[0]) {
			return nil, fmt.Errorf("The variables in the file format "+
				"'%s' expand to different numbers of values, %d and %d.",
				format, len(vals[0]), len(vals[i]))
		}
	}
	seps = append(seps, format[sepStart:])

	if len(starts) == 0 {
		return []string{format}, nil
	}

	out := make([]string, len(vals[0]))
	for j := range out {
		sb := &strings.Builder{}
		for i := range verbs {
			sb.WriteString(seps[i])
			fmt.Fprintf(sb, verbs[i], vals[i][j])
		}
		sb.WriteString(seps[len(seps)-1])
		out[j] = sb.String()
	}
	return out, nil
}

// startsEndsFormatString returns the indices of the beginning and end of each
// format variable.
func startsEndsFormatString(format string) (starts, ends []int, err error) {
	starts, ends = []int{}, []int{}
	nested := 0
	ending := "Make sure variables in file formats are enclosed in " +
		"matching { ... } pairs."

	for i := range format {
		switch format[i] {
		case '{':
			nested++
			starts = append(starts, i)
		case '}':
			nested--
			ends = append(ends, i+1)
		}

		if nested > 1 {
			return nil, nil, fmt.Errorf("The file format '%s' has nested "+
				"'{' characters at indices %d and %d. %s", format,
				starts[len(starts)-2], starts[len(starts)-1], ending)
		} else if nested < 0 {
			return nil, nil, fmt.Errorf("The file format '%s' has a '}' "+
				"that doesn't come after a '{' at index %d. %s", format,
				i, ending)
		}
	}

	if nested != 0 {
		return nil, nil, fmt.Errorf("The file format '%s' has a '{' "+
			"without a matching '}' at index %d. %s", format,
			starts[len(starts)-1], ending)
	}

	return starts, ends, nil
}
