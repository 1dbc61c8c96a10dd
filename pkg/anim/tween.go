// Package anim derives eased behaviors from frame ticks.
//
// Animation state lives outside the engine: a frame clock is just a Source
// that the host emits once per frame with the elapsed seconds.
package anim

import (
	"fmt"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"

	"github.com/roach88/pulse/pkg/frp"
)

// Tween returns a behavior that eases toward target. Each time target
// changes a new tween starts from the current value, and each firing of tick
// advances it by dt seconds. A non-positive duration jumps straight to the
// new target. A nil easing function means ease.Linear.
func Tween(net *frp.Network, label string, target frp.Behavior[float32], tick frp.Event[float32], duration float32, fn ease.TweenFunc) (frp.Behavior[float32], error) {
	if fn == nil {
		fn = ease.Linear
	}
	start, err := target.Peek()
	if err != nil {
		return frp.Behavior[float32]{}, fmt.Errorf("%s: %w", label, err)
	}

	var (
		current = start
		tween   *gween.Tween
	)

	changes, err := frp.Changes(net, label+"/target", target)
	if err != nil {
		return frp.Behavior[float32]{}, err
	}
	restart, err := frp.FilterMap(net, label+"/restart", changes, func(to float32) (float32, bool) {
		if duration <= 0 {
			tween = nil
			current = to
			return to, true
		}
		tween = gween.New(current, to, duration, fn)
		return 0, false
	})
	if err != nil {
		return frp.Behavior[float32]{}, err
	}
	frames, err := frp.FilterMap(net, label+"/frame", tick, func(dt float32) (float32, bool) {
		if tween == nil {
			return 0, false
		}
		v, finished := tween.Update(dt)
		current = v
		if finished {
			tween = nil
		}
		return v, true
	})
	if err != nil {
		return frp.Behavior[float32]{}, err
	}
	steps, err := frp.Merge(net, label+"/step", restart, frames)
	if err != nil {
		return frp.Behavior[float32]{}, err
	}
	return frp.Hold(net, label, start, steps)
}
