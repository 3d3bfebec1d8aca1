package reveal

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type box struct {
	mu     sync.Mutex
	styles []Style
}

func (b *box) SetStyle(s Style) {
	b.mu.Lock()
	b.styles = append(b.styles, s)
	b.mu.Unlock()
}

func (b *box) history() []Style {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Style(nil), b.styles...)
}

// manual is an observer whose callbacks are fired by the test.
type manual struct {
	threshold  float64
	cb         func([]Entry)
	observed   map[Element]bool
	unobserved int
}

func (m *manual) Observe(el Element)   { m.observed[el] = true }
func (m *manual) Unobserve(el Element) { delete(m.observed, el); m.unobserved++ }

func (m *manual) factory() ObserverFunc {
	return func(threshold float64, cb func([]Entry)) Observer {
		m.threshold, m.cb = threshold, cb
		return m
	}
}

func TestAttach_AnimatesOnce(t *testing.T) {
	t.Parallel()
	m := &manual{observed: map[Element]bool{}}
	b := &box{}

	Attach(m.factory(), b)
	require.Equal(t, []Style{Hidden}, b.history())
	require.Equal(t, Threshold, m.threshold)
	require.True(t, m.observed[b])

	m.cb([]Entry{{Target: b, Ratio: 0.1}})
	require.Equal(t, []Style{Hidden}, b.history())

	m.cb([]Entry{{Target: b, Ratio: 0.5}})
	m.cb([]Entry{{Target: b, Ratio: 1}})
	require.Equal(t, []Style{Hidden, Resting}, b.history())
	require.False(t, m.observed[b])
	require.Equal(t, 1, m.unobserved)
}

func TestAttach_IgnoresOtherTargets(t *testing.T) {
	t.Parallel()
	m := &manual{observed: map[Element]bool{}}
	a, other := &box{}, &box{}

	Attach(m.factory(), a)
	m.cb([]Entry{{Target: other, Ratio: 1}})
	require.Equal(t, []Style{Hidden}, a.history())
	require.Empty(t, other.history())
}

func TestAttach_Cancel(t *testing.T) {
	t.Parallel()
	m := &manual{observed: map[Element]bool{}}
	b := &box{}

	cancel := Attach(m.factory(), b)
	cancel()
	m.cb([]Entry{{Target: b, Ratio: 1}})
	require.Equal(t, []Style{Hidden}, b.history())
	require.False(t, m.observed[b])
}

func TestViewport_RevealsOnScroll(t *testing.T) {
	t.Parallel()
	vp := NewViewport(Rect{W: 100, H: 100})
	top, below, far := &box{}, &box{}, &box{}
	vp.Place(top, Rect{Y: 10, W: 100, H: 50})
	vp.Place(below, Rect{Y: 150, W: 100, H: 100})
	vp.Place(far, Rect{Y: 1000, W: 100, H: 100})

	for _, b := range []*box{top, below, far} {
		Attach(vp.Observer, b)
	}
	require.Equal(t, []Style{Hidden, Resting}, top.history())
	require.Equal(t, []Style{Hidden}, below.history())

	vp.Scroll(60) // view 60..160 shows 10% of below
	require.Equal(t, []Style{Hidden}, below.history())

	vp.Scroll(10) // 20%
	require.Equal(t, []Style{Hidden, Resting}, below.history())

	vp.Scroll(-70)
	vp.Scroll(70)
	require.Equal(t, []Style{Hidden, Resting}, below.history())
	require.Equal(t, []Style{Hidden}, far.history())

	vp.Resize(100, 1200)
	require.Equal(t, []Style{Hidden, Resting}, far.history())
}

func TestRect_Intersect(t *testing.T) {
	t.Parallel()
	a := Rect{X: 0, Y: 0, W: 10, H: 10}
	require.Equal(t, Rect{X: 5, Y: 5, W: 5, H: 5}, a.intersect(Rect{X: 5, Y: 5, W: 10, H: 10}))
	require.Equal(t, Rect{}, a.intersect(Rect{X: 20, Y: 20, W: 1, H: 1}))
}

// sliceEl has a slice field, so == on two of them panics at run time.
type sliceEl struct{ log []Style }

func (sliceEl) SetStyle(Style) {}

func TestAttach_RejectsNonComparableElement(t *testing.T) {
	t.Parallel()

	m := &manual{observed: map[Element]bool{}}
	require.PanicsWithValue(t, "reveal: element of type reveal.sliceEl is not comparable", func() {
		Attach(m.factory(), sliceEl{})
	})
	require.Nil(t, m.cb, "no observer is created for a rejected element")

	vp := NewViewport(Rect{W: 10, H: 10})
	require.Panics(t, func() { vp.Place(sliceEl{}, Rect{W: 1, H: 1}) })

	// pointers to the same type are fine
	require.NotPanics(t, func() { Attach(m.factory(), &sliceEl{}) })
}
