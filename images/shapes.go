// Package images - Geometry and decoding utilities for detector frames.
package images

import (
	"fmt"
	"image"

	"github.com/chewxy/math32"
)

// Rect is an axis-aligned box in image pixel coordinates.
//
// X1,Y1 is the top-left corner and X2,Y2 the bottom-right corner. A well
// formed box has X1 < X2 and Y1 < Y2; anything else is degenerate and has
// zero area.
type Rect struct {
	X1, Y1, X2, Y2 float32
}

// NewRect returns a Rect from the four corner coordinates.
func NewRect(x1, y1, x2, y2 float32) Rect {
	return Rect{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// Width is zero for inverted boxes.
func (r Rect) Width() float32 {
	return math32.Max(0, r.X2-r.X1)
}

// Height is zero for inverted boxes.
func (r Rect) Height() float32 {
	return math32.Max(0, r.Y2-r.Y1)
}

// Area returns the box area, or zero for degenerate and inverted boxes.
func (r Rect) Area() float32 {
	return r.Width() * r.Height()
}

// Empty reports whether the box has no area.
func (r Rect) Empty() bool {
	return r.Area() <= 0
}

// Intersect returns the overlapping region of r and o. The result is
// degenerate (Empty) when the boxes do not overlap.
func (r Rect) Intersect(o Rect) Rect {
	return Rect{
		X1: math32.Max(r.X1, o.X1),
		Y1: math32.Max(r.Y1, o.Y1),
		X2: math32.Min(r.X2, o.X2),
		Y2: math32.Min(r.Y2, o.Y2),
	}
}

// Scale multiplies the coordinates by sx horizontally and sy vertically.
func (r Rect) Scale(sx, sy float32) Rect {
	return Rect{X1: r.X1 * sx, Y1: r.Y1 * sy, X2: r.X2 * sx, Y2: r.Y2 * sy}
}

// ToRectangle converts to an integer image.Rectangle, truncating fractional
// pixels. Used when drawing or cropping.
func (r Rect) ToRectangle() image.Rectangle {
	return image.Rect(int(r.X1), int(r.Y1), int(r.X2), int(r.Y2)).Canon()
}

func (r Rect) String() string {
	return fmt.Sprintf("(%.1f, %.1f)-(%.1f, %.1f)", r.X1, r.Y1, r.X2, r.Y2)
}

// FromRectangle converts an image.Rectangle into a Rect.
func FromRectangle(r image.Rectangle) Rect {
	return Rect{X1: float32(r.Min.X), Y1: float32(r.Min.Y), X2: float32(r.Max.X), Y2: float32(r.Max.Y)}
}

// CalculateIoU (Intersection over Union) measures how much two boxes overlap.
//
//	IoU = Area of Intersection / Area of Union
//
// A value of 1.0 means the boxes are identical and 0.0 means they do not
// overlap at all. IoU is symmetric and is what Non-Maximum Suppression uses to
// decide whether two detections of the same class describe the same object.
//
// Arguments:
//   - r: The first box.
//   - o: The other box to compare against.
//
// Returns:
//   - float32: A value between 0.0 and 1.0. Boxes with no overlap, and pairs
//     whose union is empty, return 0.0.
//
// Example Usage:
// ```go
//
//	a := Rect{X1: 0, Y1: 0, X2: 10, Y2: 10}
//	b := Rect{X1: 5, Y1: 5, X2: 15, Y2: 15}
//	fmt.Printf("%f\n", CalculateIoU(a, b)) // 25 / 175 = 0.142857
//
// ```
func CalculateIoU(r, o Rect) float32 {
	// Overlap can't start before both boxes have begun, and must end as soon
	// as the first one ends.
	interW := math32.Min(r.X2, o.X2) - math32.Max(r.X1, o.X1)
	interH := math32.Min(r.Y2, o.Y2) - math32.Max(r.Y1, o.Y1)
	if interW <= 0 || interH <= 0 {
		return 0.0
	}
	interArea := interW * interH

	// Union(A, B) = Area(A) + Area(B) - Intersection(A, B)
	unionArea := r.Area() + o.Area() - interArea
	if unionArea <= 0 {
		return 0.0
	}
	return clampUnit(interArea / unionArea)
}

// CalculateOverlap returns the fraction of item's area that lies inside
// container.
//
// Unlike IoU this is asymmetric: it answers "how much of the
// gear box sits inside the person box", so a small hardhat box fully inside
// a large person box scores 1.0 no matter how large the person is.
// CalculateOverlap(a, b) and CalculateOverlap(b, a) generally differ.
//
// Arguments:
//   - item: The box whose ownership is being decided (e.g. a hardhat).
//   - container: The box that may own it (e.g. a person).
//
// Returns:
//   - float32: intersection area / item area, in [0.0, 1.0]. Disjoint boxes
//     and degenerate (zero or negative area) item boxes return 0.0.
//
// Example Usage:
// ```go
//
//	person := Rect{X1: 0, Y1: 0, X2: 100, Y2: 200}
//	hat := Rect{X1: 10, Y1: 0, X2: 90, Y2: 50}
//	CalculateOverlap(hat, person) // 1.0
//	CalculateOverlap(person, hat) // 0.2
//
// ```
func CalculateOverlap(item, container Rect) float32 {
	interW := math32.Min(item.X2, container.X2) - math32.Max(item.X1, container.X1)
	interH := math32.Min(item.Y2, container.Y2) - math32.Max(item.Y1, container.Y1)
	if interW <= 0 || interH <= 0 {
		return 0.0
	}

	itemArea := (item.X2 - item.X1) * (item.Y2 - item.Y1)
	if item.X2 <= item.X1 || item.Y2 <= item.Y1 || itemArea <= 0 {
		return 0.0
	}
	return clampUnit((interW * interH) / itemArea)
}

// clampUnit guards against float rounding pushing a ratio past its bounds.
func clampUnit(v float32) float32 {
	if math32.IsNaN(v) {
		return 0
	}
	return math32.Max(0, math32.Min(1, v))
}
