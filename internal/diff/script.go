package diff

import (
	"fmt"
	"slices"
)

// Op is the kind of an edit.
type Op int

const (
	Match Op = iota
	Insert
	Delete
)

func (o Op) String() string {
	switch o {
	case Match:
		return "match"
	case Insert:
		return "insert"
	case Delete:
		return "delete"
	}
	return fmt.Sprintf("op(%d)", int(o))
}

// Symbol returns the one-character form used in compact listings.
func (o Op) Symbol() string {
	switch o {
	case Insert:
		return "+"
	case Delete:
		return "-"
	}
	return "="
}

// NoIndex marks the side an edit does not touch.
const NoIndex = -1

// Edit is one step of a script. Insert carries only IndexB, Delete only
// IndexA, Match both.
type Edit struct {
	Op     Op
	IndexA int
	IndexB int
}

// Script is an ordered edit list that turns A into B.
type Script []Edit

// Key projects a token onto the value compared for equality.
type Key[T any] func(T) string

// Counts returns the number of matches, insertions and deletions.
func (s Script) Counts() (matches, inserts, deletes int) {
	for _, e := range s {
		switch e.Op {
		case Match:
			matches++
		case Insert:
			inserts++
		case Delete:
			deletes++
		}
	}
	return matches, inserts, deletes
}

// Identical reports whether the script contains only matches.
func (s Script) Identical() bool {
	_, ins, del := s.Counts()
	return ins == 0 && del == 0
}

// Pairs returns the matched (IndexA, IndexB) pairs in order.
func (s Script) Pairs() [][2]int {
	var out [][2]int
	for _, e := range s {
		if e.Op == Match {
			out = append(out, [2]int{e.IndexA, e.IndexB})
		}
	}
	return out
}

// Invert returns the script turning B into A.
func (s Script) Invert() Script {
	out := make(Script, len(s))
	for i, e := range s {
		inv := Edit{Op: e.Op, IndexA: e.IndexB, IndexB: e.IndexA}
		switch e.Op {
		case Insert:
			inv.Op = Delete
		case Delete:
			inv.Op = Insert
		}
		out[i] = inv
	}
	return normalizeRuns(out)
}

// String renders the ops compactly, e.g. "==--+=".
func (s Script) String() string {
	b := make([]byte, 0, len(s))
	for _, e := range s {
		b = append(b, e.Op.Symbol()...)
	}
	return string(b)
}

// Diff computes the shortest edit script from a to b, comparing keyA of
// tokens in a with keyB of tokens in b. A nil keyB reuses keyA.
func Diff[T any](a, b []T, keyA, keyB Key[T]) Script {
	if keyB == nil {
		keyB = keyA
	}
	ka := make([]string, len(a))
	for i, tok := range a {
		ka[i] = keyA(tok)
	}
	kb := make([]string, len(b))
	for i, tok := range b {
		kb[i] = keyB(tok)
	}
	return diffKeys(ka, kb)
}

// Strings diffs two key sequences directly.
func Strings(a, b []string) Script {
	return diffKeys(a, b)
}

func diffKeys(ka, kb []string) Script {
	n, m := len(ka), len(kb)
	script := make(Script, 0, max(n, m))

	prefix := 0
	for prefix < n && prefix < m && ka[prefix] == kb[prefix] {
		script = append(script, Edit{Op: Match, IndexA: prefix, IndexB: prefix})
		prefix++
	}
	suffix := 0
	for suffix < n-prefix && suffix < m-prefix && ka[n-1-suffix] == kb[m-1-suffix] {
		suffix++
	}

	a, b := ka[prefix:n-suffix], kb[prefix:m-suffix]
	if len(a)*len(b) <= tableCells {
		script = append(script, lcsScript(a, b, prefix)...)
	} else {
		script = append(script, linearScript(a, b, prefix)...)
	}

	for k := suffix; k > 0; k-- {
		script = append(script, Edit{Op: Match, IndexA: n - k, IndexB: m - k})
	}
	return normalizeRuns(script)
}

// tableCells bounds the LCS table of lcsScript; larger middles are aligned
// in linear space.
const tableCells = 1 << 22

// lcsScript aligns the untrimmed middle. table[i][j] holds the LCS length of
// a[i:] and b[j:]; the walk takes a match whenever keys are equal and
// otherwise follows the longer remainder. On a tie the token with the
// smaller key is skipped, which is the same choice whichever side it is on.
func lcsScript(a, b []string, offset int) Script {
	n, m := len(a), len(b)
	if n == 0 && m == 0 {
		return nil
	}
	width := m + 1
	table := make([]int32, (n+1)*width)
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if a[i] == b[j] {
				table[i*width+j] = table[(i+1)*width+j+1] + 1
			} else {
				table[i*width+j] = max(table[(i+1)*width+j], table[i*width+j+1])
			}
		}
	}

	out := make(Script, 0, n+m)
	i, j := 0, 0
	for i < n || j < m {
		switch {
		case i == n:
			out = append(out, Edit{Op: Insert, IndexA: NoIndex, IndexB: offset + j})
			j++
		case j == m:
			out = append(out, Edit{Op: Delete, IndexA: offset + i, IndexB: NoIndex})
			i++
		case a[i] == b[j]:
			out = append(out, Edit{Op: Match, IndexA: offset + i, IndexB: offset + j})
			i++
			j++
		default:
			down, right := table[(i+1)*width+j], table[i*width+j+1]
			if down > right || (down == right && a[i] < b[j]) {
				out = append(out, Edit{Op: Delete, IndexA: offset + i, IndexB: NoIndex})
				i++
			} else {
				out = append(out, Edit{Op: Insert, IndexA: NoIndex, IndexB: offset + j})
				j++
			}
		}
	}
	return out
}

// linearScript aligns a and b with Hirschberg's divide and conquer, keeping
// two rows of LCS lengths instead of the whole table. The pair is always
// solved with the lexicographically smaller side as A and inverted
// otherwise, so swapping the inputs mirrors the result.
func linearScript(a, b []string, offset int) Script {
	if slices.Compare(a, b) > 0 {
		return linearScript(b, a, offset).Invert()
	}
	h := &hirschberg{
		a:      a,
		b:      b,
		offset: offset,
		fwd:    make([]int32, len(b)+1),
		bwd:    make([]int32, len(b)+1),
		out:    make(Script, 0, len(a)+len(b)),
	}
	h.solve(0, len(a), 0, len(b))
	return h.out
}

type hirschberg struct {
	a, b     []string
	offset   int
	fwd, bwd []int32
	out      Script
}

func (h *hirschberg) match(i, j int) {
	h.out = append(h.out, Edit{Op: Match, IndexA: h.offset + i, IndexB: h.offset + j})
}

func (h *hirschberg) insert(from, to int) {
	for j := from; j < to; j++ {
		h.out = append(h.out, Edit{Op: Insert, IndexA: NoIndex, IndexB: h.offset + j})
	}
}

func (h *hirschberg) delete(from, to int) {
	for i := from; i < to; i++ {
		h.out = append(h.out, Edit{Op: Delete, IndexA: h.offset + i, IndexB: NoIndex})
	}
}

func (h *hirschberg) solve(aLo, aHi, bLo, bHi int) {
	for aLo < aHi && bLo < bHi && h.a[aLo] == h.b[bLo] {
		h.match(aLo, bLo)
		aLo++
		bLo++
	}
	tail := 0
	for aLo < aHi && bLo < bHi && h.a[aHi-1] == h.b[bHi-1] {
		aHi--
		bHi--
		tail++
	}

	switch {
	case aLo == aHi:
		h.insert(bLo, bHi)
	case bLo == bHi:
		h.delete(aLo, aHi)
	case aHi-aLo == 1:
		j := slices.Index(h.b[bLo:bHi], h.a[aLo])
		if j < 0 {
			h.delete(aLo, aHi)
			h.insert(bLo, bHi)
			break
		}
		h.insert(bLo, bLo+j)
		h.match(aLo, bLo+j)
		h.insert(bLo+j+1, bHi)
	default:
		mid := (aLo + aHi) / 2
		col := h.split(aLo, mid, aHi, bLo, bHi)
		h.solve(aLo, mid, bLo, col)
		h.solve(mid, aHi, col, bHi)
	}

	for k := 0; k < tail; k++ {
		h.match(aHi+k, bHi+k)
	}
}

// split returns the column where an optimal path crosses row mid: fwd holds
// the LCS lengths of a[aLo:mid] against every prefix of b[bLo:bHi], bwd those
// of a[mid:aHi] against every suffix.
func (h *hirschberg) split(aLo, mid, aHi, bLo, bHi int) int {
	m := bHi - bLo
	fwd, bwd := h.fwd[:m+1], h.bwd[:m+1]

	clear(fwd)
	for i := aLo; i < mid; i++ {
		var diag int32
		for j := 1; j <= m; j++ {
			up := fwd[j]
			if h.a[i] == h.b[bLo+j-1] {
				fwd[j] = diag + 1
			} else if fwd[j-1] > fwd[j] {
				fwd[j] = fwd[j-1]
			}
			diag = up
		}
	}

	clear(bwd)
	for i := aHi - 1; i >= mid; i-- {
		var diag int32
		for j := m - 1; j >= 0; j-- {
			down := bwd[j]
			if h.a[i] == h.b[bLo+j] {
				bwd[j] = diag + 1
			} else if bwd[j+1] > bwd[j] {
				bwd[j] = bwd[j+1]
			}
			diag = down
		}
	}

	best, col := int32(-1), 0
	for j := 0; j <= m; j++ {
		if total := fwd[j] + bwd[j]; total > best {
			best, col = total, j
		}
	}
	return bLo + col
}

// normalizeRuns reorders every maximal run of non-matches so that its
// deletions come before its insertions, each side in index order.
func normalizeRuns(s Script) Script {
	for start := 0; start < len(s); {
		if s[start].Op == Match {
			start++
			continue
		}
		end := start
		var dels, ins []Edit
		for end < len(s) && s[end].Op != Match {
			if s[end].Op == Delete {
				dels = append(dels, s[end])
			} else {
				ins = append(ins, s[end])
			}
			end++
		}
		copy(s[start:], dels)
		copy(s[start+len(dels):], ins)
		start = end
	}
	return s
}
