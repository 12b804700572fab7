package images

import (
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestIoU_Correctness validates the IoU implementation against known test cases
func TestIoU_Correctness(t *testing.T) {
	tests := []struct {
		name     string
		r1       Rect
		r2       Rect
		expected float32
		epsilon  float32
	}{
		{
			name:     "Identical rectangles",
			r1:       Rect{0, 0, 100, 100},
			r2:       Rect{0, 0, 100, 100},
			expected: 1.0,
			epsilon:  0.001,
		},
		{
			name:     "No overlap",
			r1:       Rect{0, 0, 100, 100},
			r2:       Rect{200, 200, 300, 300},
			expected: 0.0,
			epsilon:  0.001,
		},
		{
			name:     "Touching edges",
			r1:       Rect{0, 0, 100, 100},
			r2:       Rect{100, 0, 200, 100},
			expected: 0.0,
			epsilon:  0.001,
		},
		{
			name:     "Half overlap",
			r1:       Rect{0, 0, 100, 100},
			r2:       Rect{50, 50, 150, 150},
			expected: 0.142857, // 2500 / 17500
			epsilon:  0.001,
		},
		{
			name:     "One inside other",
			r1:       Rect{0, 0, 100, 100},
			r2:       Rect{25, 25, 75, 75},
			expected: 0.25,
			epsilon:  0.001,
		},
		{
			name:     "Fractional coordinates",
			r1:       Rect{0.5, 0.5, 10.5, 10.5},
			r2:       Rect{5.5, 5.5, 15.5, 15.5},
			expected: 0.142857,
			epsilon:  0.001,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CalculateIoU(tt.r1, tt.r2)
			assert.InDelta(t, tt.expected, result, float64(tt.epsilon))

			// IoU(A, B) should equal IoU(B, A)
			reverse := CalculateIoU(tt.r2, tt.r1)
			assert.InDelta(t, result, reverse, float64(tt.epsilon), "IoU not symmetric")
		})
	}
}

// TestIoU_vs_ImageRectangle compares our implementation against image.Rectangle
func TestIoU_vs_ImageRectangle(t *testing.T) {
	testCases := []struct {
		name string
		r1   image.Rectangle
		r2   image.Rectangle
	}{
		{"No overlap", image.Rect(0, 0, 100, 100), image.Rect(200, 200, 300, 300)},
		{"Partial overlap", image.Rect(0, 0, 100, 100), image.Rect(50, 50, 150, 150)},
		{"Full overlap", image.Rect(50, 50, 150, 150), image.Rect(50, 50, 150, 150)},
		{"One inside other", image.Rect(0, 0, 100, 100), image.Rect(25, 25, 75, 75)},
		{"Large boxes", image.Rect(0, 0, 1920, 1080), image.Rect(960, 540, 1920, 1080)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			customResult := CalculateIoU(FromRectangle(tc.r1), FromRectangle(tc.r2))
			imageResult := imageRectangleIoU(tc.r1, tc.r2)
			assert.InDelta(t, imageResult, customResult, 0.0001)
		})
	}
}

// imageRectangleIoU implements IoU using Go's standard library image.Rectangle
func imageRectangleIoU(r1, r2 image.Rectangle) float32 {
	intersect := r1.Intersect(r2)
	if intersect.Empty() {
		return 0.0
	}

	intersectArea := intersect.Dx() * intersect.Dy()
	union := r1.Dx()*r1.Dy() + r2.Dx()*r2.Dy() - intersectArea

	return float32(intersectArea) / float32(union)
}

func TestOverlap_Correctness(t *testing.T) {
	person := Rect{0, 0, 100, 200}

	tests := []struct {
		name      string
		item      Rect
		container Rect
		expected  float32
	}{
		{"Item fully inside", Rect{10, 0, 90, 50}, person, 1.0},
		{"Item identical", person, person, 1.0},
		{"Disjoint", Rect{200, 200, 250, 250}, person, 0.0},
		{"Touching edge", Rect{100, 0, 150, 50}, person, 0.0},
		{"Half outside", Rect{50, 0, 150, 100}, person, 0.5},
		{"Container inside item", person, Rect{10, 0, 90, 50}, 0.2},
		{"Zero area item", Rect{10, 10, 10, 50}, person, 0.0},
		{"Inverted item", Rect{90, 50, 10, 0}, person, 0.0},
		{"Degenerate container", Rect{10, 10, 20, 20}, Rect{0, 0, 0, 0}, 0.0},
		{"Inverted container", Rect{10, 10, 20, 20}, Rect{100, 200, 0, 0}, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, CalculateOverlap(tt.item, tt.container), 0.0001)
		})
	}
}

func TestOverlap_IsAsymmetric(t *testing.T) {
	small := Rect{10, 10, 20, 20}
	large := Rect{0, 0, 100, 100}

	assert.Equal(t, float32(1.0), CalculateOverlap(small, large))
	assert.InDelta(t, 0.01, CalculateOverlap(large, small), 0.0001)
}

// TestOverlap_Bounds sweeps a grid of box pairs, including inverted and
// degenerate ones, and checks the result always stays in [0, 1].
func TestOverlap_Bounds(t *testing.T) {
	coords := []float32{-50, 0, 0.5, 10, 30, 99.9, 100, 250}
	var boxes []Rect
	for _, x1 := range coords {
		for _, x2 := range coords {
			boxes = append(boxes, Rect{x1, x1 / 2, x2, x2 * 2})
		}
	}

	for _, a := range boxes {
		for _, b := range boxes {
			v := CalculateOverlap(a, b)
			if v < 0 || v > 1 || math.IsNaN(float64(v)) {
				t.Fatalf("overlap(%v, %v) = %v outside [0, 1]", a, b, v)
			}
			if a.Empty() {
				assert.Zero(t, v)
			}
			iou := CalculateIoU(a, b)
			if iou < 0 || iou > 1 {
				t.Fatalf("iou(%v, %v) = %v outside [0, 1]", a, b, iou)
			}
		}
	}
}

func TestRect_Area(t *testing.T) {
	assert.Equal(t, float32(20000), Rect{0, 0, 100, 200}.Area())
	assert.Zero(t, Rect{10, 10, 5, 5}.Area())
	assert.True(t, Rect{10, 10, 10, 20}.Empty())
	assert.Equal(t, image.Rect(1, 2, 3, 4), Rect{1.7, 2.2, 3.9, 4.1}.ToRectangle())
	assert.Equal(t, Rect{10, 20, 30, 40}, Rect{5, 10, 15, 20}.Scale(2, 2))
}
