package packfile

// matcher finds the longest common subsequences between two byte slices,
// the same algorithm as Python's difflib.SequenceMatcher, specialized to
// a byte alphabet. DiffDelta walks the opcodes it produces to emit
// copy/insert delta instructions.
type matcher struct {
	a, b []byte
	// b2j maps a byte value to every offset in b where it occurs.
	b2j [256][]int
}

const (
	tagReplace = iota
	tagDelete
	tagInsert
	tagEqual
)

type opCode struct {
	Tag    int
	I1, I2 int
	J1, J2 int
}

// match is a maximal run of a[I:I+Size] == b[J:J+Size].
type match struct {
	I, J, Size int
}

func newMatcher(a, b []byte) *matcher {
	m := &matcher{a: a, b: b}
	for j, c := range b {
		m.b2j[c] = append(m.b2j[c], j)
	}
	return m
}

// findLongestMatch returns the longest run common to a[alo:ahi] and
// b[blo:bhi], preferring the earliest such run in a, and among ties in a,
// the earliest in b.
func (m *matcher) findLongestMatch(alo, ahi, blo, bhi int) match {
	besti, bestj, bestsize := alo, blo, 0

	// j2len[j] is the length of the run ending at b[j-1] that is also
	// currently being extended from a[i-1]; rebuilt fresh each outer step.
	j2len := make(map[int]int)
	for i := alo; i < ahi; i++ {
		newj2len := make(map[int]int)
		for _, j := range m.b2j[m.a[i]] {
			if j < blo {
				continue
			}
			if j >= bhi {
				break
			}

			k := j2len[j-1] + 1
			newj2len[j] = k
			if k > bestsize {
				besti, bestj, bestsize = i-k+1, j-k+1, k
			}
		}
		j2len = newj2len
	}

	// Extend the match through any surrounding bytes that happen to be
	// equal but weren't reachable from the b2j index walk above (this
	// only matters when bestsize is 0 coming in, which can't happen
	// here since the loop above already finds maximal runs byte by
	// byte), so no further extension pass is required.

	return match{I: besti, J: bestj, Size: bestsize}
}

// getMatchingBlocks returns every maximal common run between a and b, in
// order, terminated by a zero-size sentinel at (len(a), len(b)).
func (m *matcher) getMatchingBlocks() []match {
	var queue [][4]int
	queue = append(queue, [4]int{0, len(m.a), 0, len(m.b)})

	var matching []match
	for len(queue) > 0 {
		alo, ahi, blo, bhi := queue[0][0], queue[0][1], queue[0][2], queue[0][3]
		queue = queue[1:]

		mb := m.findLongestMatch(alo, ahi, blo, bhi)
		if mb.Size == 0 {
			continue
		}

		matching = append(matching, mb)

		if alo < mb.I && blo < mb.J {
			queue = append(queue, [4]int{alo, mb.I, blo, mb.J})
		}
		if mb.I+mb.Size < ahi && mb.J+mb.Size < bhi {
			queue = append(queue, [4]int{mb.I + mb.Size, ahi, mb.J + mb.Size, bhi})
		}
	}

	// Sort by starting position in a (queue order from a BFS over
	// recursive halves is not increasing, since a range's match is
	// recorded before the matches found in its left half), then merge
	// adjacent runs.
	sortMatches(matching)

	merged := matching[:0]
	for _, mb := range matching {
		if n := len(merged); n > 0 {
			last := &merged[n-1]
			if last.I+last.Size == mb.I && last.J+last.Size == mb.J {
				last.Size += mb.Size
				continue
			}
		}
		merged = append(merged, mb)
	}

	merged = append(merged, match{I: len(m.a), J: len(m.b), Size: 0})
	return merged
}

func sortMatches(ms []match) {
	for i := 1; i < len(ms); i++ {
		for j := i; j > 0 && ms[j-1].I > ms[j].I; j-- {
			ms[j-1], ms[j] = ms[j], ms[j-1]
		}
	}
}

// GetOpCodes converts the matching blocks between a and b into a sequence
// of copy (tagEqual) and replace/insert/delete operations that transform
// a into b.
func (m *matcher) GetOpCodes() []opCode {
	i, j := 0, 0
	var codes []opCode

	for _, mb := range m.getMatchingBlocks() {
		tag := -1
		if i < mb.I && j < mb.J {
			tag = tagReplace
		} else if i < mb.I {
			tag = tagDelete
		} else if j < mb.J {
			tag = tagInsert
		}
		if tag != -1 {
			codes = append(codes, opCode{Tag: tag, I1: i, I2: mb.I, J1: j, J2: mb.J})
		}

		i, j = mb.I+mb.Size, mb.J+mb.Size
		if mb.Size > 0 {
			codes = append(codes, opCode{Tag: tagEqual, I1: mb.I, I2: i, J1: mb.J, J2: j})
		}
	}

	return codes
}
