package area

import (
	"testing"

	"github.com/gogpu/csg/gpucore"
)

func TestToPixels(t *testing.T) {
	tests := []struct {
		name string
		v    Volume
		want PixelArea
	}{
		{"full", Full, PixelArea{0, 0, 100, 50}},
		{"left half", Volume{MinX: -1, MinY: -1, MinZ: -1, MaxX: 0, MaxY: 1, MaxZ: 1}, PixelArea{0, 0, 51, 50}},
		{"center", Volume{MinX: -0.5, MinY: -0.5, MinZ: -1, MaxX: 0.5, MaxY: 0.5, MaxZ: 1}, PixelArea{24, 11, 76, 39}},
		{"outside", Volume{MinX: 2, MinY: 2, MinZ: -1, MaxX: 3, MaxY: 3, MaxZ: 1}, PixelArea{}},
		{"empty", Volume{MinX: 0.5, MinY: 0, MaxX: 0.2, MaxY: 1}, PixelArea{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToPixels(tt.v, 100, 50); got != tt.want {
				t.Errorf("ToPixels = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRectOffsetsByViewport(t *testing.T) {
	a := PixelArea{MinX: 2, MinY: 3, MaxX: 10, MaxY: 7}
	got := a.Rect(gpucore.Rect{X: 5, Y: 6, Width: 20, Height: 20})
	want := gpucore.Rect{X: 7, Y: 9, Width: 8, Height: 4}
	if got != want {
		t.Errorf("Rect = %+v, want %+v", got, want)
	}
}

func TestIntersectAndUnion(t *testing.T) {
	a := Volume{MinX: -1, MinY: -1, MinZ: -1, MaxX: 0.5, MaxY: 0.5, MaxZ: 0}
	b := Volume{MinX: 0, MinY: -0.5, MinZ: -0.5, MaxX: 1, MaxY: 1, MaxZ: 1}

	got := Intersect(a, b)
	want := Volume{MinX: 0, MinY: -0.5, MinZ: -0.5, MaxX: 0.5, MaxY: 0.5, MaxZ: 0}
	if got != want {
		t.Errorf("Intersect = %+v, want %+v", got, want)
	}
	if u := Union(a, b); u != Full {
		t.Errorf("Union = %+v, want full volume", u)
	}

	far := Volume{MinX: 0.8, MinY: 0.8, MaxX: 1, MaxY: 1}
	if !Intersect(a, far).IsEmpty() {
		t.Error("disjoint volumes should intersect to an empty volume")
	}
}

func TestDepthRange(t *testing.T) {
	near, far := DepthRange(Volume{MinZ: -0.5, MaxZ: 2})
	if near != 0.25 || far != 1 {
		t.Errorf("DepthRange = (%v, %v), want (0.25, 1)", near, far)
	}
}
