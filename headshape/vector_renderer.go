package headshape

import (
	"image/color"
	"image/png"
	"io"
	"math"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"github.com/tdewolff/canvas/renderers/svg"
)

// nrgbaToRGBA converts color.NRGBA to color.RGBA by premultiplying alpha
// This is needed for the canvas library which expects premultiplied RGBA
func nrgbaToRGBA(c color.NRGBA) color.RGBA {
	if c.A == 0 {
		return color.RGBA{0, 0, 0, 0}
	}
	if c.A == 255 {
		return color.RGBA{c.R, c.G, c.B, 255}
	}
	// Premultiply: multiply RGB by alpha
	alpha32 := uint32(c.A)
	return color.RGBA{
		R: uint8((uint32(c.R) * alpha32) / 255),
		G: uint8((uint32(c.G) * alpha32) / 255),
		B: uint8((uint32(c.B) * alpha32) / 255),
		A: c.A,
	}
}

// VectorColors defines the NRGBA colors for vector output.
type VectorColors struct {
	Visible   color.NRGBA
	Reference color.NRGBA
}

// VectorPointRenderer renders the visible and reference point sets as vector
// graphics (SVG or rasterized PNG). Coordinates are in millimeters.
type VectorPointRenderer struct {
	Visible     Cloud
	Reference   Cloud
	Plane       Plane
	Colors      VectorColors
	Padding     float64           // padding in millimeters
	DotRadius   float64           // visible point radius in millimeters
	RefRadius   float64           // reference point radius in millimeters
	Resolution  canvas.Resolution // resolution for PNG output (default: 300 DPI)
	GridSpacing float64           // grid line spacing in millimeters; 0 disables
}

// NewVectorPointRenderer creates a vector renderer with default settings.
func NewVectorPointRenderer(visible, reference Cloud) *VectorPointRenderer {
	return &VectorPointRenderer{
		Visible:   visible,
		Reference: reference,
		Plane:     PlaneXY,
		Colors: VectorColors{
			Visible:   color.NRGBA{R: 26, G: 230, B: 255, A: 255},
			Reference: color.NRGBA{R: 210, G: 210, B: 210, A: 255},
		},
		Padding:     20.0,
		DotRadius:   2.0,
		RefRadius:   0.5,
		Resolution:  canvas.DPI(300),
		GridSpacing: 50.0, // 50mm grid spacing
	}
}

// canvasRenderer is an interface that both svg and rasterizer renderers implement
type canvasRenderer interface {
	RenderPath(path *canvas.Path, style canvas.Style, m canvas.Matrix)
}

// RenderToSVG writes the point cloud as an SVG to the provided writer.
func (r *VectorPointRenderer) RenderToSVG(w io.Writer) error {
	minX, minY, maxX, maxY := r.projectedBounds()

	width := (maxX - minX) + 2*r.Padding
	height := (maxY - minY) + 2*r.Padding

	svgRenderer := svg.New(w, width, height, nil)
	r.renderToCanvas(svgRenderer, minX, minY, maxX, maxY, width, height)

	// Close writes the SVG closing tags.
	return svgRenderer.Close()
}

// RenderToPNG writes the point cloud as a rasterized PNG to the provided writer.
func (r *VectorPointRenderer) RenderToPNG(w io.Writer) error {
	minX, minY, maxX, maxY := r.projectedBounds()

	width := (maxX - minX) + 2*r.Padding
	height := (maxY - minY) + 2*r.Padding

	rast := rasterizer.New(width, height, r.Resolution, canvas.DefaultColorSpace)
	r.renderToCanvas(rast, minX, minY, maxX, maxY, width, height)

	// Rasterizer implements draw.Image, which embeds image.Image
	return png.Encode(w, rast)
}

// renderToCanvas renders the point sets to a canvas renderer (shared logic for SVG and PNG)
func (r *VectorPointRenderer) renderToCanvas(renderer canvasRenderer, minX, minY, maxX, maxY, width, height float64) {
	// White background
	bgStyle := canvas.DefaultStyle
	bgStyle.Fill = canvas.Paint{Color: canvas.White}
	renderer.RenderPath(canvas.Rectangle(width, height), bgStyle, canvas.Identity)

	toCanvas := func(p Point) (float64, float64) {
		pp := r.Plane.Project(p)
		return (pp[0] - minX) + r.Padding, (pp[1] - minY) + r.Padding
	}

	// Grid lines
	if r.GridSpacing > 0 {
		gridStyle := canvas.DefaultStyle
		gridStyle.Fill = canvas.Paint{Color: canvas.Transparent}
		gridStyle.Stroke = canvas.Paint{Color: canvas.Gray}
		gridStyle.StrokeWidth = 0.2
		gridStyle.Dashes = []float64{1.0, 1.0}

		for x := math.Floor(minX/r.GridSpacing) * r.GridSpacing; x <= maxX; x += r.GridSpacing {
			gridPath := &canvas.Path{}
			gridPath.MoveTo((x-minX)+r.Padding, r.Padding)
			gridPath.LineTo((x-minX)+r.Padding, (maxY-minY)+r.Padding)
			renderer.RenderPath(gridPath, gridStyle, canvas.Identity)
		}
		for y := math.Floor(minY/r.GridSpacing) * r.GridSpacing; y <= maxY; y += r.GridSpacing {
			gridPath := &canvas.Path{}
			gridPath.MoveTo(r.Padding, (y-minY)+r.Padding)
			gridPath.LineTo((maxX-minX)+r.Padding, (y-minY)+r.Padding)
			renderer.RenderPath(gridPath, gridStyle, canvas.Identity)
		}
	}

	// Reference set first so the visible set draws on top.
	refStyle := canvas.DefaultStyle
	refStyle.Fill = canvas.Paint{Color: nrgbaToRGBA(r.Colors.Reference)}
	refStyle.Stroke = canvas.Paint{Color: canvas.Transparent}

	for _, p := range r.Reference {
		cx, cy := toCanvas(p)
		dot := canvas.Circle(r.RefRadius)
		dot = dot.Translate(cx, cy)
		renderer.RenderPath(dot, refStyle, canvas.Identity)
	}

	visStyle := canvas.DefaultStyle
	visStyle.Fill = canvas.Paint{Color: nrgbaToRGBA(r.Colors.Visible)}
	visStyle.Stroke = canvas.Paint{Color: canvas.Black}
	visStyle.StrokeWidth = 0.3

	for _, p := range r.Visible {
		cx, cy := toCanvas(p)
		dot := canvas.Circle(r.DotRadius)
		dot = dot.Translate(cx, cy)
		renderer.RenderPath(dot, visStyle, canvas.Identity)
	}
}

func (r *VectorPointRenderer) projectedBounds() (minX, minY, maxX, maxY float64) {
	minX, minY = math.MaxFloat64, math.MaxFloat64
	maxX, maxY = -math.MaxFloat64, -math.MaxFloat64

	expand := func(cloud Cloud) {
		for _, p := range cloud {
			pp := r.Plane.Project(p)
			if pp[0] < minX {
				minX = pp[0]
			}
			if pp[1] < minY {
				minY = pp[1]
			}
			if pp[0] > maxX {
				maxX = pp[0]
			}
			if pp[1] > maxY {
				maxY = pp[1]
			}
		}
	}
	expand(r.Visible)
	expand(r.Reference)

	if len(r.Visible)+len(r.Reference) == 0 {
		return 0, 0, 100, 100
	}
	return
}
