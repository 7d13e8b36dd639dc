package cell_views

import (
	"fmt"
	"html/template"
	"math"

	"cleanbot/server/fastview"

	channerics "github.com/niceyeti/channerics/channels"
)

// ValueFunction provides a view of the current value function as a 2d
// projection of the 3d surface (x, y, value).
type ValueFunction struct {
	id      string
	updates <-chan []fastview.EleUpdate
}

func NewValueFunction(
	done <-chan struct{},
	frames <-chan Frame,
) (vf *ValueFunction) {
	vf = &ValueFunction{id: "valuefunction"}
	vf.updates = channerics.Convert(done, frames, vf.onUpdate)
	return
}

func (vf *ValueFunction) Updates() <-chan []fastview.EleUpdate {
	return vf.updates
}

const (
	cellDim float64 = 80 // Cell height/width size in pixels
	xyscale         = cellDim
	// Height in pixels of the tallest point of the surface above the lowest.
	surfaceHeight = cellDim * 1.5
	// ang could easily be a dynamic parameter, for a fixed set of view angles (30, 45, etc.)
	ang = math.Pi / 6 // angle of x, y axes (e.g. =30°)
)

var sinAng, cosAng = math.Sin(ang), math.Cos(ang)

// project applies an isometric projection to the passed point; z is normalized to [0,1].
func project(x, y, z float64) (float64, float64) {
	sx := (x - y) * cosAng * xyscale
	sy := (x+y)*sinAng*xyscale - z*surfaceHeight
	return sx, sy
}

type funcPolygon struct {
	Id     string
	Fill   string
	ax, ay float64
	bx, by float64
	cx, cy float64
	dx, dy float64
}

// Cell-A is bottom left, Cell-B is top left, Cell-C is top right, and Cell-D is bottom right.
// The polygon is projected into 2d similar to the lissajous transformation described in
// The Go Programming Language.
func makeFuncPolygon(
	id string,
	norm func(float64) float64,
	cellA, cellB, cellC, cellD Cell,
) (fp *funcPolygon) {
	fp = &funcPolygon{
		Id: id,
	}
	fp.ax, fp.ay = project(float64(cellA.X), float64(cellA.Y), norm(cellA.Max))
	fp.bx, fp.by = project(float64(cellB.X), float64(cellB.Y), norm(cellB.Max))
	fp.cx, fp.cy = project(float64(cellC.X), float64(cellC.Y), norm(cellC.Max))
	fp.dx, fp.dy = project(float64(cellD.X), float64(cellD.Y), norm(cellD.Max))
	fp.Fill = getRGBFill(norm(avg(cellA.Max, cellB.Max, cellC.Max, cellD.Max)))
	return
}

// Points returns a string suitable for the svg-polygon 'points' attribute.
// The values are truncated to ints, which is a bit of premature svg-optimization.
func (fp *funcPolygon) Points() string {
	return fmt.Sprintf("%d,%d %d,%d %d,%d %d,%d",
		int(fp.ax), int(fp.ay),
		int(fp.bx), int(fp.by),
		int(fp.cx), int(fp.cy),
		int(fp.dx), int(fp.dy),
	)
}

func minFour(f1, f2, f3, f4 float64) float64 {
	return math.Min(math.Min(f1, f2), math.Min(f3, f4))
}

func maxFour(f1, f2, f3, f4 float64) float64 {
	return math.Max(math.Max(f1, f2), math.Max(f3, f4))
}

func avg(f ...float64) float64 {
	n, sum := 0.0, 0.0
	for _, fn := range f {
		sum += fn
		n++
	}
	return sum / n
}

// surface holds the projected polygons of a frame and the transform fitting them into the view.
type surface struct {
	Polygons  []*funcPolygon
	Transform string
	Width     int
	Height    int
}

// newSurface projects the cells into polygons, ordered back to front so that nearer
// polygons obscure the ones behind them. Grids narrower than two cells have no surface.
func newSurface(cells [][]Cell) *surface {
	sf := &surface{Transform: "translate(0 0)"}
	if len(cells) < 2 || len(cells[0]) < 2 {
		return sf
	}
	sf.Width = int(2 * cellDim * float64(len(cells)))
	sf.Height = int(2 * cellDim * float64(len(cells[0])))

	// The surface height is scaled to the range of the values.
	minVal, maxVal := math.MaxFloat64, -math.MaxFloat64
	for _, row := range cells {
		for _, cell := range row {
			minVal = math.Min(minVal, cell.Max)
			maxVal = math.Max(maxVal, cell.Max)
		}
	}
	norm := func(v float64) float64 {
		if maxVal-minVal == 0 {
			return 0
		}
		return (v - minVal) / (maxVal - minVal)
	}

	xmin, ymin := math.MaxFloat64, math.MaxFloat64
	xmax, ymax := -math.MaxFloat64, -math.MaxFloat64
	for ri := 0; ri < len(cells)-1; ri++ {
		row := cells[ri]
		for ci := len(row) - 2; ci >= 0; ci-- {
			cell := row[ci]
			polygon := makeFuncPolygon(
				fmt.Sprintf("%d-%d-value-polygon", cell.X, cell.Y),
				norm,
				cells[ri+1][ci],
				cells[ri][ci],
				cells[ri][ci+1],
				cells[ri+1][ci+1],
			)
			xmin = math.Min(xmin, minFour(polygon.ax, polygon.bx, polygon.cx, polygon.dx))
			xmax = math.Max(xmax, maxFour(polygon.ax, polygon.bx, polygon.cx, polygon.dx))
			ymin = math.Min(ymin, minFour(polygon.ay, polygon.by, polygon.cy, polygon.dy))
			ymax = math.Max(ymax, maxFour(polygon.ay, polygon.by, polygon.cy, polygon.dy))
			sf.Polygons = append(sf.Polygons, polygon)
		}
	}

	// Scale down by the maximum required to fit the full plot in view, but only if needed.
	scaler := math.Min(
		math.Min(
			math.Abs(float64(sf.Width)/(xmax-xmin)),
			math.Abs(float64(sf.Height)/(ymax-ymin)),
		),
		1.0,
	)
	sf.Transform = fmt.Sprintf("scale(%f) translate(%d %d)", scaler, int(-xmin), int(-ymin))
	return sf
}

// Returns the set of view updates needed for the view to reflect current values.
func (vf *ValueFunction) onUpdate(frame Frame) (ops []fastview.EleUpdate) {
	sf := newSurface(frame.Cells)
	for _, polygon := range sf.Polygons {
		ops = append(ops, fastview.EleUpdate{
			EleId: polygon.Id,
			Ops: []fastview.Op{
				{Key: "points", Value: polygon.Points()},
				{Key: "fill", Value: polygon.Fill},
			},
		})
	}
	ops = append(ops, fastview.EleUpdate{
		EleId: vf.id + "-group",
		Ops: []fastview.Op{
			{Key: "transform", Value: sf.Transform},
		},
	})
	return
}

// getRGBFill shades from blue at the lowest values to red at the highest.
func getRGBFill(normalized float64) string {
	redPct := int(100.0 * normalized)
	return fmt.Sprintf("rgb(%d%%,0%%,%d%%)", redPct, 100-redPct)
}

// Parse returns an svg of polygons plotting the value function surface as a 2D projection.
func (vf *ValueFunction) Parse(
	t *template.Template,
) (name string, err error) {
	name = vf.id
	addedMap := template.FuncMap{
		"surface": newSurface,
	}
	_, err = t.Funcs(addedMap).Parse(
		`{{ define "` + name + `" }}
		<div style="padding:40px;">
			{{ $surface := surface .Cells }}
			<svg id="` + vf.id + `" xmlns='http://www.w3.org/2000/svg'
				width="{{ $surface.Width }}px"
				height="{{ $surface.Height }}px"
				style="shape-rendering: crispEdges; stroke: lightgrey; stroke-opacity: 1.0; stroke-width: 3;">
				<g id="` + vf.id + `-group" transform="{{ $surface.Transform }}">
				{{ range $polygon := $surface.Polygons }}
					<polygon id="{{ $polygon.Id }}"
						fill="{{ $polygon.Fill }}" fill-opacity="1.0"
						points="{{ $polygon.Points }}" />
				{{ end }}
				</g>
			</svg>
		</div>
		{{ end }}`)
	return
}
