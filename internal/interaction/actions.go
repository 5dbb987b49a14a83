package interaction

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/geom"
)

// hover moves the synthetic pointer to p: leave/out on the old element, then
// over/enter on the new one, then a move on whatever is under p.
func (d *Dispatcher) hover(ctx context.Context, p geom.Point) {
	hit := d.hitTest(ctx, p).Handle

	if hit != d.state.LastHovered {
		prev := d.state.LastHovered
		d.state.LastHovered = hit
		if prev != NoElement && d.exists(ctx, prev) {
			d.send(ctx, Element(prev), p, 0, PointerOut, PointerLeave, MouseOut, MouseLeave)
		}
		if hit != NoElement {
			d.send(ctx, Element(hit), p, 0, PointerOver, PointerEnter, MouseOver, MouseEnter)
		}
	}
	if hit != NoElement {
		d.send(ctx, Element(hit), p, 0, PointerMove, MouseMove)
	}
}

// click fires one down/up/click sequence per cooldown window. The target is
// resolved fuzzily but the events carry the exact coordinates.
func (d *Dispatcher) click(ctx context.Context, p geom.Point) {
	if !d.clicks.AllowN(d.now(), 1) {
		return
	}
	target := d.resolveClickTarget(ctx, p)
	if target == NoElement {
		d.logger.Debug("Click with nothing under cursor", zap.Float64("x", p.X), zap.Float64("y", p.Y))
		return
	}
	el := Element(target)
	d.send(ctx, el, p, 1, PointerDown, MouseDown)
	d.send(ctx, el, p, 0, PointerUp, MouseUp, Click)
	d.logger.Debug("Click dispatched", zap.String("handle", string(target)))
}

// resolveClickTarget probes the offset ring and returns the first actionable
// element, falling back to whatever is exactly under p.
func (d *Dispatcher) resolveClickTarget(ctx context.Context, p geom.Point) Handle {
	var exact Handle
	for i, off := range d.cfg.offsets() {
		hit := d.hitTest(ctx, p.Add(off))
		if i == 0 {
			exact = hit.Handle
		}
		if hit.Handle != NoElement && hit.Actionable {
			return hit.Handle
		}
	}
	return exact
}

// grab presses on the element under p and tries to capture the pointer.
func (d *Dispatcher) grab(ctx context.Context, p geom.Point) {
	target := d.hitTest(ctx, p).Handle
	d.state.Grabbing = true
	d.state.GrabTarget = target
	if target == NoElement {
		return
	}

	d.send(ctx, Element(target), p, 1, PointerDown, MouseDown)
	if err := d.page.SetPointerCapture(ctx, target, d.cfg.PointerID); err != nil {
		d.logger.Debug("Set pointer capture failed", zap.String("handle", string(target)), zap.Error(err))
	}
	d.logger.Debug("Grab started", zap.String("handle", string(target)))
}

// drag sends moves to the grabbed element and to the document, since drag
// libraries listen on either.
func (d *Dispatcher) drag(ctx context.Context, p geom.Point) {
	if target := d.state.GrabTarget; target != NoElement && d.exists(ctx, target) {
		d.send(ctx, Element(target), p, 1, PointerMove, MouseMove)
	}
	d.send(ctx, Document(), p, 1, PointerMove, MouseMove)
}

// scroll emits one wheel event on the window. The upper half of the viewport
// scrolls up. Holding a direction ramps the speed; flipping resets it.
func (d *Dispatcher) scroll(ctx context.Context, p geom.Point) {
	dir := DirectionDown
	if p.Y < d.viewport.Height/2 {
		dir = DirectionUp
	}

	if dir != d.state.ScrollDirection {
		d.state.ScrollDirection = dir
		d.state.ScrollSpeed = d.cfg.ScrollBaseline
	} else {
		d.state.ScrollSpeed = math.Min(d.state.ScrollSpeed+d.cfg.ScrollStep, d.cfg.ScrollMax)
	}

	ev := d.event(Wheel, Window(), p, 0)
	ev.DeltaY = float64(dir) * d.state.ScrollSpeed
	d.dispatch(ctx, ev)
}

func (d *Dispatcher) resetScroll() {
	d.state.ScrollDirection = DirectionNone
	d.state.ScrollSpeed = 0
}

func (d *Dispatcher) hitTest(ctx context.Context, p geom.Point) Hit {
	hit, err := d.page.HitTest(ctx, p)
	if err != nil {
		d.logger.Debug("Hit test failed", zap.Float64("x", p.X), zap.Float64("y", p.Y), zap.Error(err))
		return Hit{}
	}
	return hit
}

func (d *Dispatcher) exists(ctx context.Context, h Handle) bool {
	ok, err := d.page.Exists(ctx, h)
	if err != nil {
		d.logger.Debug("Existence check failed", zap.String("handle", string(h)), zap.Error(err))
		return false
	}
	return ok
}

func (d *Dispatcher) event(t EventType, target Target, p geom.Point, buttons int) Event {
	return Event{
		Type:        t,
		Target:      target,
		X:           p.X,
		Y:           p.Y,
		Buttons:     buttons,
		PointerID:   d.cfg.PointerID,
		PointerType: d.cfg.PointerType,
		IsPrimary:   true,
		Bubbles:     true,
		Cancelable:  true,
	}
}

func (d *Dispatcher) send(ctx context.Context, target Target, p geom.Point, buttons int, types ...EventType) {
	for _, t := range types {
		d.dispatch(ctx, d.event(t, target, p, buttons))
	}
}

// dispatch delivers ev and swallows failures; one bad event must never stop
// the frame loop.
func (d *Dispatcher) dispatch(ctx context.Context, ev Event) {
	if err := d.page.Dispatch(ctx, ev); err != nil {
		d.logger.Debug("Dispatch failed",
			zap.String("type", string(ev.Type)),
			zap.String("target", string(ev.Target.Kind)),
			zap.String("handle", string(ev.Target.Handle)),
			zap.Error(err))
	}
}
