package reactive

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValue_SetPublishes(t *testing.T) {
	t.Parallel()

	v := NewValue(1)
	var got []int
	cancel := v.Subscribe(func(n int) { got = append(got, n) })

	v.Set(2)
	v.Update(func(n int) int { return n * 10 })
	require.Equal(t, 20, v.Get())
	require.Equal(t, []int{2, 20}, got)

	cancel()
	cancel() // idempotent
	v.Set(3)
	require.Equal(t, []int{2, 20}, got)
}

func TestValue_SubscriberMayReadValue(t *testing.T) {
	t.Parallel()

	v := NewValue("a")
	var seen string
	v.Subscribe(func(string) { seen = v.Get() })
	v.Set("b")
	require.Equal(t, "b", seen)
}

func TestValue_ConcurrentUpdates(t *testing.T) {
	t.Parallel()

	v := NewValue(0)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v.Update(func(n int) int { return n + 1 })
		}()
	}
	wg.Wait()
	require.Equal(t, 50, v.Get())
}

func TestValue_UpdateIf(t *testing.T) {
	t.Parallel()

	v := NewValue(5)
	var got []int
	v.Subscribe(func(n int) { got = append(got, n) })

	require.False(t, v.UpdateIf(func(n int) (int, bool) { return 99, false }))
	require.Equal(t, 5, v.Get())
	require.Empty(t, got)

	require.True(t, v.UpdateIf(func(n int) (int, bool) { return n + 1, true }))
	require.Equal(t, 6, v.Get())
	require.Equal(t, []int{6}, got)
}

func TestValue_SubscriberMayWrite(t *testing.T) {
	t.Parallel()

	v := NewValue(0)
	v.Subscribe(func(n int) {
		if n == 1 {
			v.Set(2)
		}
	})
	v.Set(1)
	require.Equal(t, 2, v.Get())
}
