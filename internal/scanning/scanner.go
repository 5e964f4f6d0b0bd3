package scanning

import (
	"context"
	"encoding/json"
	"math"
)

// Point is a vertex in image pixel coordinates. It encodes as [x, y].
type Point struct {
	X float64
	Y float64
}

// MarshalJSON encodes the point as a two element array
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.X, p.Y})
}

// UnmarshalJSON decodes a two element array
func (p *Point) UnmarshalJSON(data []byte) error {
	var xy [2]float64
	if err := json.Unmarshal(data, &xy); err != nil {
		return err
	}
	p.X, p.Y = xy[0], xy[1]
	return nil
}

// BBox is a polygon locating a line of text. Rectangles are stored as their
// four corners, clockwise from top-left.
type BBox []Point

// RectBBox builds a four corner polygon from a rectangle
func RectBBox(minX, minY, maxX, maxY float64) BBox {
	return BBox{
		{X: minX, Y: minY},
		{X: maxX, Y: minY},
		{X: maxX, Y: maxY},
		{X: minX, Y: maxY},
	}
}

// Bounds returns the axis-aligned rectangle enclosing the polygon.
// ok is false for an empty polygon.
func (b BBox) Bounds() (minX, minY, maxX, maxY float64, ok bool) {
	if len(b) == 0 {
		return 0, 0, 0, 0, false
	}
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, p := range b {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return minX, minY, maxX, maxY, true
}

// Line is one recognized line of text as reported by an engine
type Line struct {
	Text       string  `json:"text"`
	BBox       BBox    `json:"bbox"`
	Confidence float64 `json:"confidence"`
	Engine     string  `json:"engine"`
}

// Engine defines the interface every OCR backend implements
type Engine interface {
	// Name identifies the engine in lines, logs and debug output
	Name() string
	// Recognize returns the text lines found in a PNG image
	Recognize(ctx context.Context, image []byte, language string) ([]Line, error)
	// Close releases resources held by the engine
	Close() error
}

// clampConfidence maps engine scores into [0,1]
func clampConfidence(c float64) float64 {
	if math.IsNaN(c) || c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
