package headshape

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// RenderColors defines the colors for the rendered point sets.
type RenderColors struct {
	Visible   color.RGBA
	Reference color.RGBA
	Text      color.RGBA
}

// DefaultRenderColors matches the interactive viewer: cyan decimated points
// over a light grey reference cloud.
func DefaultRenderColors() RenderColors {
	return RenderColors{
		Visible:   color.RGBA{26, 230, 255, 255},
		Reference: color.RGBA{230, 230, 230, 255},
		Text:      color.RGBA{0, 0, 0, 255},
	}
}

// PointRenderer renders a visible point set and the reference set as a 2-D
// projection PNG for quick inspection without the 3-D viewer.
type PointRenderer struct {
	Visible   Cloud
	Reference Cloud
	Plane     Plane
	Colors    RenderColors
	Scale     float64 // pixels per millimeter
	Padding   int     // padding around the image in pixels

	// Point radii in pixels; the visible set is drawn larger so it reads
	// on top of the reference cloud.
	VisibleRadius   int
	ReferenceRadius int
}

// NewPointRenderer creates a renderer with default settings.
func NewPointRenderer(visible, reference Cloud) *PointRenderer {
	return &PointRenderer{
		Visible:         visible,
		Reference:       reference,
		Plane:           PlaneXY,
		Colors:          DefaultRenderColors(),
		Scale:           2.0,
		Padding:         30,
		VisibleRadius:   4,
		ReferenceRadius: 1,
	}
}

// bounds computes the projected bounding box across both point sets.
func (r *PointRenderer) bounds() (minX, minY, maxX, maxY float64, ok bool) {
	minX, minY = math.MaxFloat64, math.MaxFloat64
	maxX, maxY = -math.MaxFloat64, -math.MaxFloat64

	expand := func(cloud Cloud) {
		for _, p := range cloud {
			pp := r.Plane.Project(p)
			minX = math.Min(minX, pp[0])
			minY = math.Min(minY, pp[1])
			maxX = math.Max(maxX, pp[0])
			maxY = math.Max(maxY, pp[1])
		}
	}
	expand(r.Visible)
	expand(r.Reference)

	return minX, minY, maxX, maxY, len(r.Visible)+len(r.Reference) > 0
}

// Render draws both point sets into an RGBA image. Y grows downward in image
// space, so the projection is flipped vertically to keep "up" up.
func (r *PointRenderer) Render() *image.RGBA {
	minX, minY, maxX, maxY, ok := r.bounds()
	if !ok {
		img := image.NewRGBA(image.Rect(0, 0, 200, 60))
		fillWhite(img)
		drawText(img, 10, 30, "no points", r.Colors.Text)
		return img
	}

	width := int((maxX-minX)*r.Scale) + 2*r.Padding
	height := int((maxY-minY)*r.Scale) + 2*r.Padding
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	fillWhite(img)

	toImage := func(p Point) (int, int) {
		pp := r.Plane.Project(p)
		x := int((pp[0]-minX)*r.Scale) + r.Padding
		y := height - (int((pp[1]-minY)*r.Scale) + r.Padding)
		return x, y
	}

	// Reference first so the visible set draws on top.
	for _, p := range r.Reference {
		x, y := toImage(p)
		drawDot(img, x, y, r.ReferenceRadius, r.Colors.Reference)
	}
	for _, p := range r.Visible {
		x, y := toImage(p)
		drawDot(img, x, y, r.VisibleRadius, r.Colors.Visible)
	}

	label := fmt.Sprintf("%d points (%d reference)", len(r.Visible), len(r.Reference))
	drawText(img, 10, height-8, label, r.Colors.Text)

	return img
}

// SavePNG renders and writes the image to disk.
func (r *PointRenderer) SavePNG(path string) error {
	img := r.Render()
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating PNG file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encoding PNG: %w", err)
	}
	return nil
}

func fillWhite(img *image.RGBA) {
	white := color.RGBA{255, 255, 255, 255}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			img.Set(x, y, white)
		}
	}
}

// drawDot draws a filled circle clipped to the image bounds.
func drawDot(img *image.RGBA, cx, cy, radius int, c color.RGBA) {
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy <= radius*radius {
				x, y := cx+dx, cy+dy
				if x >= 0 && x < img.Bounds().Max.X && y >= 0 && y < img.Bounds().Max.Y {
					img.Set(x, y, c)
				}
			}
		}
	}
}

// drawText renders text onto an image at the specified position.
func drawText(img *image.RGBA, x, y int, text string, c color.RGBA) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}
