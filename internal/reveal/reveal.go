// Package reveal attaches a one-shot "fade in when scrolled into view"
// trigger to elements.
package reveal

import (
	"fmt"
	"reflect"
	"sync/atomic"
)

// Threshold is the visible fraction at which an element is revealed.
const Threshold = 0.15

// Style is the visual state applied to an element.
type Style struct {
	Opacity    float64
	OffsetY    float64 // px below the resting position
	Transition string
}

const transition = "opacity 0.6s ease, transform 0.6s ease"

var (
	// Hidden is applied on attach.
	Hidden = Style{Opacity: 0, OffsetY: 30, Transition: transition}
	// Resting is applied once the element comes into view.
	Resting = Style{Opacity: 1, OffsetY: 0, Transition: transition}
)

// Element is anything that can be styled. Elements are matched by ==, so the
// dynamic type must be comparable; pointers are the usual choice. Attach and
// Viewport.Place panic on anything else.
type Element interface {
	SetStyle(Style)
}

func mustComparable(el Element) {
	if t := reflect.TypeOf(el); t == nil || !t.Comparable() {
		panic(fmt.Sprintf("reveal: element of type %v is not comparable", t))
	}
}

// Entry reports an observed element's visible fraction.
type Entry struct {
	Target Element
	Ratio  float64
}

// Observer watches elements for visibility changes.
type Observer interface {
	Observe(Element)
	Unobserve(Element)
}

// ObserverFunc creates an Observer that calls cb whenever an observed
// element's ratio crosses threshold, and once right after Observe.
type ObserverFunc func(threshold float64, cb func([]Entry)) Observer

// Attach hides el and reveals it the first time at least Threshold of it is
// visible. Later entries are ignored. The returned func cancels a pending
// reveal.
func Attach(newObserver ObserverFunc, el Element) (cancel func()) {
	mustComparable(el)
	var (
		done atomic.Bool
		obs  Observer
	)
	el.SetStyle(Hidden)

	obs = newObserver(Threshold, func(entries []Entry) {
		for _, e := range entries {
			if e.Target != el || e.Ratio < Threshold {
				continue
			}
			if !done.CompareAndSwap(false, true) {
				return
			}
			el.SetStyle(Resting)
			obs.Unobserve(el)
			return
		}
	})
	obs.Observe(el)

	return func() {
		done.Store(true)
		obs.Unobserve(el)
	}
}
