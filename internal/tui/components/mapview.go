package components

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/rendis/denguemap/internal/engine/overlay"
	"github.com/rendis/denguemap/internal/model"
	"github.com/rendis/denguemap/internal/tui/styles"
)

// zoom level at which the full coverage bound fills the view
const baseZoom = 13.0

// MapView is a braille drawing surface for overlay sets. It holds the
// overlays last applied to it plus a cursor the user moves around.
type MapView struct {
	width  int
	height int
	layers overlay.Set
	cursor orb.Point
	// Viewport bounds
	minLat, maxLat float64
	minLng, maxLng float64
	// Base bounds (for zoom reference)
	base           orb.Bound
	zoomLevel      float64 // 1.0 = no zoom, >1 = zoomed in
	panLat, panLng float64 // pan offset in degrees
}

func NewMapView(width, height int) MapView {
	return MapView{
		width:     width,
		height:    height,
		layers:    overlay.Set{},
		zoomLevel: 1.0,
	}
}

func (m *MapView) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// SetBounds sets the region shown at zoom 1 and centers the cursor in it.
func (m *MapView) SetBounds(b orb.Bound) {
	latPad := (b.Max.Lat() - b.Min.Lat()) * 0.05
	lngPad := (b.Max.Lon() - b.Min.Lon()) * 0.05
	if latPad == 0 {
		latPad = 0.01
	}
	if lngPad == 0 {
		lngPad = 0.01
	}
	m.base = orb.Bound{
		Min: orb.Point{b.Min.Lon() - lngPad, b.Min.Lat() - latPad},
		Max: orb.Point{b.Max.Lon() + lngPad, b.Max.Lat() + latPad},
	}
	m.cursor = b.Center()
	m.applyZoom()
}

func (m MapView) HasBounds() bool {
	return m.base.Max.Lat() > m.base.Min.Lat()
}

// Apply draws a diff from the renderer onto the surface.
func (m *MapView) Apply(d overlay.Diff) {
	m.layers = m.layers.Apply(d)
}

func (m MapView) Layers() overlay.Set {
	return m.layers
}

// Focus moves the camera to a focus command's target.
func (m *MapView) Focus(cmd model.FocusCommand) {
	if !m.HasBounds() {
		return
	}
	center := m.base.Center()
	m.panLat = cmd.Target.Lat() - center.Lat()
	m.panLng = cmd.Target.Lon() - center.Lon()
	if cmd.Zoom > 0 {
		m.zoomLevel = clampZoom(math.Pow(2, cmd.Zoom-baseZoom))
	}
	m.cursor = cmd.Target
	m.applyZoom()
}

func (m MapView) viewport() orb.Bound {
	return orb.Bound{Min: orb.Point{m.minLng, m.minLat}, Max: orb.Point{m.maxLng, m.maxLat}}
}

func (m MapView) Cursor() orb.Point {
	return m.cursor
}

// MoveCursor moves the cursor by whole terminal cells, panning when it
// leaves the viewport.
func (m *MapView) MoveCursor(dRows, dCols int) {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	latStep := (m.maxLat - m.minLat) / float64(m.height)
	lngStep := (m.maxLng - m.minLng) / float64(m.width)
	m.cursor = orb.Point{m.cursor.Lon() + float64(dCols)*lngStep, m.cursor.Lat() - float64(dRows)*latStep}

	switch {
	case m.cursor.Lat() > m.maxLat:
		m.panLat += m.cursor.Lat() - m.maxLat
	case m.cursor.Lat() < m.minLat:
		m.panLat -= m.minLat - m.cursor.Lat()
	}
	switch {
	case m.cursor.Lon() > m.maxLng:
		m.panLng += m.cursor.Lon() - m.maxLng
	case m.cursor.Lon() < m.minLng:
		m.panLng -= m.minLng - m.cursor.Lon()
	}
	m.applyZoom()
}

func (m *MapView) ZoomIn() {
	m.zoomLevel = clampZoom(m.zoomLevel * 1.5)
	m.applyZoom()
}

func (m *MapView) ZoomOut() {
	m.zoomLevel = clampZoom(m.zoomLevel / 1.5)
	m.applyZoom()
}

func (m *MapView) ZoomReset() {
	m.zoomLevel = 1.0
	m.panLat = 0
	m.panLng = 0
	m.applyZoom()
}

func (m *MapView) Pan(dLat, dLng float64) {
	latRange := m.base.Max.Lat() - m.base.Min.Lat()
	lngRange := m.base.Max.Lon() - m.base.Min.Lon()
	m.panLat += dLat * latRange * 0.1 / m.zoomLevel
	m.panLng += dLng * lngRange * 0.1 / m.zoomLevel
	m.applyZoom()
}

func clampZoom(z float64) float64 {
	return math.Max(0.5, math.Min(z, 64))
}

func (m *MapView) applyZoom() {
	center := m.base.Center()
	centerLat := center.Lat() + m.panLat
	centerLng := center.Lon() + m.panLng
	halfLat := (m.base.Max.Lat() - m.base.Min.Lat()) / 2 / m.zoomLevel
	halfLng := (m.base.Max.Lon() - m.base.Min.Lon()) / 2 / m.zoomLevel
	m.minLat = centerLat - halfLat
	m.maxLat = centerLat + halfLat
	m.minLng = centerLng - halfLng
	m.maxLng = centerLng + halfLng
}

// Braille character encoding:
// Each braille char is a 2x4 dot grid.
// Dot positions:  0 3
//
//	1 4
//	2 5
//	6 7
//
// Unicode: 0x2800 + sum of raised dot bits
var brailleDots = [8]rune{0x01, 0x02, 0x04, 0x08, 0x10, 0x20, 0x40, 0x80}

var dotPositions = [8][2]int{
	{0, 0}, {1, 0}, {2, 0}, {0, 1},
	{1, 1}, {2, 1}, {3, 0}, {3, 1},
}

// dot is one braille dot; the highest z-index drawn on a cell picks its color.
type dot struct {
	on    bool
	z     int
	color string
}

type canvas struct {
	dots [][]dot
	w, h int
}

func newCanvas(w, h int) *canvas {
	dots := make([][]dot, h)
	for i := range dots {
		dots[i] = make([]dot, w)
	}
	return &canvas{dots: dots, w: w, h: h}
}

func (c *canvas) set(x, y, z int, color string) {
	if x < 0 || x >= c.w || y < 0 || y >= c.h {
		return
	}
	d := &c.dots[y][x]
	if !d.on || z >= d.z {
		*d = dot{on: true, z: z, color: color}
	}
}

func (m MapView) View() string {
	if m.width <= 0 || m.height <= 0 {
		return ""
	}

	// Each braille char represents 2 columns x 4 rows of dots
	cols := m.width
	rows := m.height
	dotW := cols * 2
	dotH := rows * 4

	latRange := m.maxLat - m.minLat
	lngRange := m.maxLng - m.minLng
	if latRange == 0 || lngRange == 0 {
		return strings.Repeat(strings.Repeat(" ", cols)+"\n", rows)
	}

	toDot := func(p orb.Point) (int, int) {
		x := int((p.Lon() - m.minLng) / lngRange * float64(dotW-1))
		y := int((m.maxLat - p.Lat()) / latRange * float64(dotH-1))
		return x, y
	}
	fromDot := func(x, y int) orb.Point {
		return orb.Point{
			m.minLng + float64(x)/float64(dotW-1)*lngRange,
			m.maxLat - float64(y)/float64(dotH-1)*latRange,
		}
	}

	c := newCanvas(dotW, dotH)
	for _, o := range m.layers {
		switch o.Kind {
		case overlay.KindArea:
			mp, ok := o.Geometry.(orb.MultiPolygon)
			if !ok {
				continue
			}
			for _, poly := range mp {
				for _, ring := range poly {
					for i := 0; i+1 < len(ring); i++ {
						x0, y0 := toDot(ring[i])
						x1, y1 := toDot(ring[i+1])
						drawLine(c, x0, y0, x1, y1, o.Visual.ZIndex, o.Visual.Color.Hex)
					}
				}
			}
			if o.Visual.Selected {
				fillArea(c, mp, o.Visual.ZIndex, o.Visual.Color.Hex, toDot, fromDot)
			}
		case overlay.KindMarker:
			x, y := toDot(o.Visual.Position)
			c.set(x, y, o.Visual.ZIndex, o.Visual.Color.Hex)
			c.set(x+1, y, o.Visual.ZIndex, o.Visual.Color.Hex)
		case overlay.KindCluster:
			x, y := toDot(o.Visual.Position)
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					c.set(x+dx, y+dy, o.Visual.ZIndex, o.Visual.Color.Hex)
				}
			}
		case overlay.KindPin:
			x, y := toDot(o.Visual.Position)
			for i := -2; i <= 2; i++ {
				c.set(x+i, y, o.Visual.ZIndex, o.Visual.Color.Hex)
				c.set(x, y+i, o.Visual.ZIndex, o.Visual.Color.Hex)
			}
		}
	}

	cursorCol, cursorRow := -1, -1
	if m.viewport().Contains(m.cursor) {
		cx, cy := toDot(m.cursor)
		cursorCol, cursorRow = cx/2, cy/4
	}
	cursorStyle := lipgloss.NewStyle().Foreground(styles.Text).Bold(true)

	var sb strings.Builder
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			if row == cursorRow && col == cursorCol {
				sb.WriteString(cursorStyle.Render("┼"))
				continue
			}

			var val rune = 0x2800
			topZ, color := -1, ""
			for i := 0; i < 8; i++ {
				dy := row*4 + dotPositions[i][0]
				dx := col*2 + dotPositions[i][1]
				d := c.dots[dy][dx]
				if !d.on {
					continue
				}
				val |= brailleDots[i]
				if d.z > topZ {
					topZ, color = d.z, d.color
				}
			}

			if val == 0x2800 {
				sb.WriteRune(' ')
				continue
			}
			sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(string(val)))
		}
		if row < rows-1 {
			sb.WriteRune('\n')
		}
	}

	return sb.String()
}

// fillArea stipples every other dot inside the polygon.
func fillArea(c *canvas, mp orb.MultiPolygon, z int, color string, toDot func(orb.Point) (int, int), fromDot func(int, int) orb.Point) {
	b := mp.Bound()
	x0, y0 := toDot(orb.Point{b.Min.Lon(), b.Max.Lat()})
	x1, y1 := toDot(orb.Point{b.Max.Lon(), b.Min.Lat()})
	for y := max(y0, 0); y <= min(y1, c.h-1); y++ {
		for x := max(x0, 0); x <= min(x1, c.w-1); x++ {
			if (x+y)%2 != 0 {
				continue
			}
			if planar.MultiPolygonContains(mp, fromDot(x, y)) {
				c.set(x, y, z, color)
			}
		}
	}
}

// drawLine draws a line between two points using Bresenham's algorithm.
func drawLine(c *canvas, x0, y0, x1, y1, z int, color string) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx := 1
	if x0 >= x1 {
		sx = -1
	}
	sy := 1
	if y0 >= y1 {
		sy = -1
	}
	err := dx + dy

	for {
		c.set(x0, y0, z, color)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
