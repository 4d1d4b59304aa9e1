package batch

import (
	"math/rand"
	"testing"

	"github.com/gogpu/csg/gpucore"
	"github.com/gogpu/csg/internal/area"
)

type boxPrim struct {
	gpucore.PrimitiveBase
	name string
}

func (*boxPrim) Render(gpucore.Canvas) {}

func newBox(name string, minX, minY, maxX, maxY float32) *boxPrim {
	p := &boxPrim{name: name}
	p.SetBoundingBox(gpucore.BoundingBox{MinX: minX, MinY: minY, MinZ: -1, MaxX: maxX, MaxY: maxY, MaxZ: 1})
	return p
}

func TestMakeGreedyPlacement(t *testing.T) {
	a := newBox("a", -0.9, -0.9, -0.5, -0.5)
	b := newBox("b", -0.6, -0.6, -0.2, -0.2) // overlaps a
	c := newBox("c", 0.5, 0.5, 0.9, 0.9)     // fits with a
	d := newBox("d", -1.5, -1.5, 1.5, 1.5)   // covers viewport
	e := newBox("e", 2, 2, 3, 3)             // off screen

	got := Make([]gpucore.Primitive{a, b, c, d, e})
	want := [][]string{{"d"}, {"a", "c"}, {"b"}}
	if len(got) != len(want) {
		t.Fatalf("got %d batches, want %d", len(got), len(want))
	}
	for i, bt := range got {
		if len(bt) != len(want[i]) {
			t.Fatalf("batch %d has %d members, want %d", i, len(bt), len(want[i]))
		}
		for j, p := range bt {
			if name := p.(*boxPrim).name; name != want[i][j] {
				t.Errorf("batch %d member %d = %s, want %s", i, j, name, want[i][j])
			}
		}
	}
}

func TestMakeInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for iter := 0; iter < 200; iter++ {
		n := rng.Intn(30)
		prims := make([]gpucore.Primitive, n)
		for i := range prims {
			x := rng.Float32()*3 - 1.5
			y := rng.Float32()*3 - 1.5
			w := rng.Float32() * 0.8
			h := rng.Float32() * 0.8
			if rng.Intn(20) == 0 {
				x, y, w, h = -1.2, -1.1, 2.5, 2.3
			}
			prims[i] = newBox("", x, y, x+w, y+h)
		}

		batches := Make(prims)

		seen := map[gpucore.Primitive]int{}
		for _, bt := range batches {
			if len(bt) == 0 {
				t.Fatal("empty batch")
			}
			for i := range bt {
				seen[bt[i]]++
				for j := i + 1; j < len(bt); j++ {
					if IntersectXY(bt[i], bt[j]) {
						t.Fatalf("iteration %d: overlapping primitives share a batch", iter)
					}
				}
			}
		}
		for _, p := range prims {
			want := 0
			if Visible(p) {
				want = 1
			}
			if seen[p] != want {
				t.Fatalf("iteration %d: primitive appears %d times, want %d", iter, seen[p], want)
			}
		}
	}
}

func TestMakePreservesOrderWithinBatch(t *testing.T) {
	var prims []gpucore.Primitive
	for i := 0; i < 8; i++ {
		x := -1 + float32(i)*0.25
		prims = append(prims, newBox("", x, -0.1, x+0.2, 0.1))
	}
	batches := Make(prims)
	if len(batches) != 1 {
		t.Fatalf("disjoint primitives produced %d batches, want 1", len(batches))
	}
	for i, p := range batches[0] {
		if p != prims[i] {
			t.Fatalf("member %d out of order", i)
		}
	}
}

func TestSplitAndConvexity(t *testing.T) {
	a := newBox("a", 0, 0, 1, 1)
	b := newBox("b", 0, 0, 1, 1)
	b.SetOperation(gpucore.Subtraction)
	b.SetConvexity(3)
	c := newBox("c", 0, 0, 1, 1)

	in, sub := Split([]gpucore.Primitive{a, b, c})
	if len(in) != 2 || in[0] != a || in[1] != c {
		t.Errorf("intersected = %v", in)
	}
	if len(sub) != 1 || sub[0] != b {
		t.Errorf("subtracted = %v", sub)
	}
	if m := MaxConvexity([]gpucore.Primitive{a, b, c}); m != 3 {
		t.Errorf("MaxConvexity = %d, want 3", m)
	}
}

func TestIntersectsVolume(t *testing.T) {
	p := newBox("p", -0.5, -0.5, 0.5, 0.5)
	p.SetBoundingBox(gpucore.BoundingBox{MinX: -0.5, MinY: -0.5, MinZ: -0.2, MaxX: 0.5, MaxY: 0.5, MaxZ: 0.1})
	tests := []struct {
		name string
		v    area.Volume
		want bool
	}{
		{"overlapping", area.Volume{MinX: 0, MinY: 0, MinZ: 0, MaxX: 1, MaxY: 1, MaxZ: 1}, true},
		{"touching in depth", area.Volume{MinX: -1, MinY: -1, MinZ: 0.1, MaxX: 1, MaxY: 1, MaxZ: 1}, true},
		{"behind", area.Volume{MinX: -1, MinY: -1, MinZ: 0.2, MaxX: 1, MaxY: 1, MaxZ: 1}, false},
		{"in front", area.Volume{MinX: -1, MinY: -1, MinZ: -1, MaxX: 1, MaxY: 1, MaxZ: -0.3}, false},
		{"beside", area.Volume{MinX: 0.6, MinY: -1, MinZ: -1, MaxX: 1, MaxY: 1, MaxZ: 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IntersectsVolume(p, tt.v); got != tt.want {
				t.Errorf("IntersectsVolume() = %v, want %v", got, tt.want)
			}
		})
	}
}

func BenchmarkMake(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	prims := make([]gpucore.Primitive, 500)
	for i := range prims {
		x, y := rng.Float32()*2-1, rng.Float32()*2-1
		prims[i] = newBox("", x, y, x+0.05, y+0.05)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Make(prims)
	}
}
