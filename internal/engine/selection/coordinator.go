// Package selection owns the single "current focus" of the map.
//
// Every selection source (map clicks, search box, dropdown, external focus
// requests) goes through a Coordinator, which applies commands strictly in
// arrival order. Commands that arrive before the boundary dataset is loaded
// are queued and replayed once SetIndex is called.
package selection

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"github.com/rendis/denguemap/internal/model"
)

// Index is the boundary lookup the coordinator resolves against.
type Index interface {
	Locate(p orb.Point) *model.BoundaryFeature
	ByName(name string) *model.BoundaryFeature
	Centroid(f *model.BoundaryFeature) orb.Point
}

// AreaResolver joins a boundary with the current classification data.
type AreaResolver func(*model.BoundaryFeature) model.ResolvedArea

type State int

const (
	Idle State = iota
	AreaFocused
	PinFocused
)

func (s State) String() string {
	switch s {
	case AreaFocused:
		return "area"
	case PinFocused:
		return "pin"
	default:
		return "idle"
	}
}

// Validation is the outcome of the last command, surfaced to the host as state.
type Validation int

const (
	Valid Validation = iota
	OutsideCoverage
	Pending
	NotFound
)

func (v Validation) String() string {
	switch v {
	case OutsideCoverage:
		return "outside coverage"
	case Pending:
		return "pending"
	case NotFound:
		return "not found"
	default:
		return "ok"
	}
}

// Focus is a snapshot of the coordinator.
type Focus struct {
	State      State
	Area       *model.ResolvedArea
	Pin        *model.Pin
	Camera     *model.FocusCommand
	Validation Validation
}

// Callbacks are invoked synchronously after each transition. They must not
// issue commands back into the coordinator.
type Callbacks struct {
	OnAreaSelected func(model.ResolvedArea)
	OnPinChanged   func(*model.Pin)
	OnFocusCommand func(model.FocusCommand)
}

type Options struct {
	Resolve  AreaResolver
	AreaZoom float64
	PinZoom  float64
	Callbacks
	Logger *slog.Logger
}

type commandKind int

const (
	cmdSelectArea commandKind = iota
	cmdPlacePin
	cmdExternalFocus
)

type command struct {
	kind  commandKind
	name  string
	point orb.Point
	focus model.FocusCommand
}

// Coordinator is the only writer of the current focus. It is not safe for
// concurrent use; callers serialize commands on one event loop.
type Coordinator struct {
	opts    Options
	index   Index
	pending []command

	area       *model.BoundaryFeature
	pin        *model.Pin
	camera     *model.FocusCommand
	validation Validation
}

func New(opts Options) *Coordinator {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.AreaZoom == 0 {
		opts.AreaZoom = 15
	}
	if opts.PinZoom == 0 {
		opts.PinZoom = 17
	}
	if opts.Resolve == nil {
		opts.Resolve = func(b *model.BoundaryFeature) model.ResolvedArea {
			return model.ResolvedArea{Boundary: b}
		}
	}
	return &Coordinator{opts: opts}
}

// Ready reports whether boundary data is available.
func (c *Coordinator) Ready() bool {
	return c.index != nil
}

// SetIndex installs (or replaces) the boundary index, replays queued commands
// in arrival order and re-resolves the current focus against the new data.
func (c *Coordinator) SetIndex(idx Index) {
	c.index = idx
	if idx == nil {
		return
	}

	queued := c.pending
	c.pending = nil
	if len(queued) == 0 {
		c.Refresh()
		return
	}
	c.opts.Logger.Debug("replaying queued selection commands", "count", len(queued))
	for _, cmd := range queued {
		if _, err := c.apply(cmd); err != nil {
			c.opts.Logger.Warn("queued selection command failed", "err", err)
		}
	}
}

// SelectArea focuses the named area. An existing pin is kept.
func (c *Coordinator) SelectArea(name string) (Validation, error) {
	return c.submit(command{kind: cmdSelectArea, name: name})
}

// PlacePin creates the pin, or moves the existing one, at p ([lng, lat]).
func (c *Coordinator) PlacePin(p orb.Point) (Validation, error) {
	return c.submit(command{kind: cmdPlacePin, point: p})
}

// ExternalFocus applies a directive from a non-map UI element. It always
// replaces the current focus target; an area-only command keeps a valid pin.
func (c *Coordinator) ExternalFocus(fc model.FocusCommand) (Validation, error) {
	return c.submit(command{kind: cmdExternalFocus, focus: fc})
}

// Clear drops pin, area and camera, and any queued commands.
func (c *Coordinator) Clear() {
	hadPin := c.pin != nil
	c.pending = nil
	c.area = nil
	c.pin = nil
	c.camera = nil
	c.validation = Valid
	if hadPin && c.opts.OnPinChanged != nil {
		c.opts.OnPinChanged(nil)
	}
}

// ClearPin removes only the pin.
func (c *Coordinator) ClearPin() {
	if c.pin == nil {
		return
	}
	c.pin = nil
	c.validation = Valid
	if c.opts.OnPinChanged != nil {
		c.opts.OnPinChanged(nil)
	}
}

// Focus returns a snapshot of the current state.
func (c *Coordinator) Focus() Focus {
	f := Focus{Validation: c.validation}
	if c.area != nil {
		ra := c.opts.Resolve(c.area)
		f.Area = &ra
	}
	if c.pin != nil {
		p := *c.pin
		f.Pin = &p
	}
	if c.camera != nil {
		cam := *c.camera
		f.Camera = &cam
	}
	f.State = c.state()
	return f
}

func (c *Coordinator) state() State {
	switch {
	case c.pin != nil:
		return PinFocused
	case c.area != nil:
		return AreaFocused
	default:
		return Idle
	}
}

// Refresh re-resolves the selected area and the pin against the current index
// and classification data, notifying the host when the resolved view changed.
func (c *Coordinator) Refresh() {
	if c.index == nil {
		return
	}
	if c.area != nil {
		// Exact spelling keeps a duplicate-named boundary bound to its own geometry.
		if f := c.index.ByName(c.area.Name); f != nil && f.Name == c.area.Name {
			c.area = f
		}
		if c.opts.OnAreaSelected != nil {
			c.opts.OnAreaSelected(c.opts.Resolve(c.area))
		}
	}
	if c.pin != nil {
		c.resolvePin(c.pin.ID, c.pin.Point)
		if c.opts.OnPinChanged != nil {
			p := *c.pin
			c.opts.OnPinChanged(&p)
		}
	}
}

func (c *Coordinator) submit(cmd command) (Validation, error) {
	if c.index == nil {
		c.pending = append(c.pending, cmd)
		c.validation = Pending
		return Pending, nil
	}
	return c.apply(cmd)
}

func (c *Coordinator) apply(cmd command) (Validation, error) {
	switch cmd.kind {
	case cmdSelectArea:
		return c.selectArea(cmd.name, 0)
	case cmdPlacePin:
		return c.placePin(cmd.point, 0)
	case cmdExternalFocus:
		return c.externalFocus(cmd.focus)
	}
	return c.validation, fmt.Errorf("unknown command %d", cmd.kind)
}

func (c *Coordinator) selectArea(name string, zoom float64) (Validation, error) {
	f := c.index.ByName(name)
	if f == nil {
		c.validation = NotFound
		c.opts.Logger.Debug("area not found", "name", name)
		return NotFound, fmt.Errorf("selecting %q: %w", name, model.ErrAreaNotFound)
	}
	return c.focusArea(f, zoom)
}

func (c *Coordinator) focusArea(f *model.BoundaryFeature, zoom float64) (Validation, error) {
	if zoom == 0 {
		zoom = c.opts.AreaZoom
	}

	c.area = f
	c.validation = Valid
	cmd := model.FocusCommand{
		Kind:   model.FocusArea,
		Area:   f.DisplayName,
		Target: c.index.Centroid(f),
		Zoom:   zoom,
	}
	c.camera = &cmd

	if c.opts.OnAreaSelected != nil {
		c.opts.OnAreaSelected(c.opts.Resolve(f))
	}
	if c.opts.OnFocusCommand != nil {
		c.opts.OnFocusCommand(cmd)
	}
	return Valid, nil
}

func (c *Coordinator) placePin(p orb.Point, zoom float64) (Validation, error) {
	id := ""
	if c.pin != nil {
		id = c.pin.ID
	}
	c.resolvePin(id, p)

	if c.opts.OnPinChanged != nil {
		pin := *c.pin
		c.opts.OnPinChanged(&pin)
	}

	if !c.pin.Valid {
		// The camera stays where it is; the host shows the validation state.
		c.validation = OutsideCoverage
		return OutsideCoverage, nil
	}

	if zoom == 0 {
		zoom = c.opts.PinZoom
	}
	cmd := model.FocusCommand{Kind: model.FocusPin, Target: p, Zoom: zoom}
	if c.pin.ContainingArea != nil && c.pin.ContainingArea.Boundary != nil {
		cmd.Area = c.pin.ContainingArea.Boundary.DisplayName
	}
	c.camera = &cmd
	c.validation = Valid
	if c.opts.OnFocusCommand != nil {
		c.opts.OnFocusCommand(cmd)
	}
	return Valid, nil
}

func (c *Coordinator) resolvePin(id string, p orb.Point) {
	if id == "" {
		id = uuid.NewString()
	}
	pin := &model.Pin{ID: id, Point: p}
	if model.ValidCoordinates(p.Lat(), p.Lon()) {
		if f := c.index.Locate(p); f != nil {
			ra := c.opts.Resolve(f)
			pin.ContainingArea = &ra
			pin.Valid = true
		}
	}
	c.pin = pin
}

func (c *Coordinator) externalFocus(fc model.FocusCommand) (Validation, error) {
	switch fc.Kind {
	case model.FocusPin:
		return c.placePin(fc.Target, fc.Zoom)
	case model.FocusArea:
		if c.pin != nil && !c.pin.Valid {
			// an invalid pin does not survive an external focus change
			c.ClearPin()
		}
		if fc.Area == "" {
			if f := c.index.Locate(fc.Target); f != nil {
				return c.focusArea(f, fc.Zoom)
			}
		}
		return c.selectArea(fc.Area, fc.Zoom)
	default:
		return c.validation, fmt.Errorf("unknown focus kind %q", fc.Kind)
	}
}
