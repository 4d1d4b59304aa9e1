// Package sequence generates index sequences that revisit n batches in an
// order guaranteeing every ordering of the batches appears as a
// subsequence. Subtracting batches in such an order resolves every
// front-to-back arrangement of subtracted primitives without pairwise tests.
package sequence

// Sequencer produces an index sequence over n elements.
type Sequencer interface {
	// Len returns the length of the full sequence.
	Len() int
	// At returns the element index at position i.
	At(i int) int
}

// Simple cycles 0, 1, ..., n-1, 0, 1, ... for n(n-1)+1 positions.
type Simple struct{ n int }

// NewSimple returns a cyclic sequencer over n elements.
func NewSimple(n int) Simple { return Simple{n: n} }

func (s Simple) Len() int {
	if s.n <= 0 {
		return 0
	}
	return s.n*(s.n-1) + 1
}

func (s Simple) At(i int) int { return i % s.n }

// Bouncing runs a triangle wave 0, 1, ..., n-1, n-2, ..., 1, 0, 1, ...
// with the same full length as [Simple]. Its prefixes are shorter when the
// depth complexity of the scene is known; see [Bouncing.LenForDepthComplexity].
type Bouncing struct{ n int }

// NewBouncing returns a triangle-wave sequencer over n elements.
func NewBouncing(n int) Bouncing { return Bouncing{n: n} }

func (b Bouncing) Len() int {
	if b.n <= 0 {
		return 0
	}
	return b.n*(b.n-1) + 1
}

func (b Bouncing) At(i int) int {
	if b.n == 1 {
		return 0
	}
	period := 2 * (b.n - 1)
	p := i % period
	if p < b.n {
		return p
	}
	return period - p
}

// LenForDepthComplexity returns the prefix length that covers every
// ordering of dc overlapping elements.
func (b Bouncing) LenForDepthComplexity(dc int) int {
	if b.n <= 0 || dc <= 0 {
		return 0
	}
	if dc%2 == 1 {
		return (dc-1)*(b.n-1) + b.n
	}
	return dc*(b.n-1) + 1
}

// Schoenfield is the shortest of the three sequencers, of length n²-2n+4
// for n >= 3. Use it in full when the depth complexity is unknown.
type Schoenfield struct{ n int }

// NewSchoenfield returns a Schoenfield sequencer over n elements.
func NewSchoenfield(n int) Schoenfield { return Schoenfield{n: n} }

func (s Schoenfield) Len() int {
	switch {
	case s.n <= 0:
		return 0
	case s.n == 1:
		return 1
	case s.n == 2:
		return 3
	default:
		return s.n*s.n - 2*s.n + 4
	}
}

func (s Schoenfield) At(i int) int {
	switch {
	case s.n == 1:
		return 0
	case s.n == 2:
		return i % 2
	case i < s.n:
		return i
	case i%(s.n-1) == 1:
		return 0
	default:
		return (i*(s.n-2)/(s.n-1))%(s.n-1) + 1
	}
}

// Truncated limits a sequencer to its first length positions.
type Truncated struct {
	Sequencer
	length int
}

// Truncate returns the first length positions of s.
func Truncate(s Sequencer, length int) Truncated {
	return Truncated{Sequencer: s, length: min(length, s.Len())}
}

func (t Truncated) Len() int { return t.length }

// Indices expands s into a slice.
func Indices(s Sequencer) []int {
	out := make([]int, s.Len())
	for i := range out {
		out[i] = s.At(i)
	}
	return out
}
