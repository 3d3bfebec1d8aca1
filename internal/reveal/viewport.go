package reveal

import "sync"

// Rect is an axis-aligned box in page coordinates.
type Rect struct {
	X, Y, W, H float64
}

func (r Rect) area() float64 { return max(r.W, 0) * max(r.H, 0) }

func (r Rect) intersect(o Rect) Rect {
	x0, y0 := max(r.X, o.X), max(r.Y, o.Y)
	x1, y1 := min(r.X+r.W, o.X+o.W), min(r.Y+r.H, o.Y+o.H)
	if x1 <= x0 || y1 <= y0 {
		return Rect{}
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Viewport is a headless scroll container. It lays out elements by
// rectangle and computes their visible ratios on Scroll and Resize.
type Viewport struct {
	mu     sync.Mutex
	view   Rect
	layout map[Element]Rect
	obs    []*viewportObserver
}

// NewViewport returns a viewport showing view.
func NewViewport(view Rect) *Viewport {
	return &Viewport{view: view, layout: map[Element]Rect{}}
}

// Place sets the page rectangle of el, which must be comparable.
func (v *Viewport) Place(el Element, r Rect) {
	mustComparable(el)
	v.mu.Lock()
	v.layout[el] = r
	v.mu.Unlock()
	v.recompute()
}

// Scroll moves the visible window vertically by dy.
func (v *Viewport) Scroll(dy float64) {
	v.mu.Lock()
	v.view.Y += dy
	v.mu.Unlock()
	v.recompute()
}

// Resize changes the visible window size.
func (v *Viewport) Resize(w, h float64) {
	v.mu.Lock()
	v.view.W, v.view.H = w, h
	v.mu.Unlock()
	v.recompute()
}

// Observer satisfies ObserverFunc.
func (v *Viewport) Observer(threshold float64, cb func([]Entry)) Observer {
	o := &viewportObserver{vp: v, threshold: threshold, cb: cb, above: map[Element]bool{}}
	v.mu.Lock()
	v.obs = append(v.obs, o)
	v.mu.Unlock()
	return o
}

// ratio returns the visible fraction of el; callers hold v.mu.
func (v *Viewport) ratio(el Element) float64 {
	r, ok := v.layout[el]
	if !ok || r.area() == 0 {
		return 0
	}
	return r.intersect(v.view).area() / r.area()
}

type delivery struct {
	cb      func([]Entry)
	entries []Entry
}

// recompute collects threshold crossings under the lock and delivers them after it.
func (v *Viewport) recompute() {
	var out []delivery
	v.mu.Lock()
	for _, o := range v.obs {
		var entries []Entry
		for el, was := range o.above {
			r := v.ratio(el)
			if now := r >= o.threshold; now != was {
				o.above[el] = now
				entries = append(entries, Entry{Target: el, Ratio: r})
			}
		}
		if len(entries) > 0 {
			out = append(out, delivery{cb: o.cb, entries: entries})
		}
	}
	v.mu.Unlock()
	for _, d := range out {
		d.cb(d.entries)
	}
}

type viewportObserver struct {
	vp        *Viewport
	threshold float64
	cb        func([]Entry)
	above     map[Element]bool // guarded by vp.mu
}

// Observe starts watching el and reports its current ratio once.
func (o *viewportObserver) Observe(el Element) {
	o.vp.mu.Lock()
	r := o.vp.ratio(el)
	o.above[el] = r >= o.threshold
	o.vp.mu.Unlock()
	o.cb([]Entry{{Target: el, Ratio: r}})
}

func (o *viewportObserver) Unobserve(el Element) {
	o.vp.mu.Lock()
	delete(o.above, el)
	o.vp.mu.Unlock()
}
