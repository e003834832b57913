package hero

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestimonials(t *testing.T) {
	items := Testimonials()
	require.Len(t, items, 4)
	assert.Equal(t, []string{"KS", "LM", "TK", "AZ"},
		[]string{items[0].Initials, items[1].Initials, items[2].Initials, items[3].Initials})
}

func TestRotator_NextWraps(t *testing.T) {
	r := NewRotator(0, nil)
	assert.Equal(t, DefaultInterval, r.interval)

	for want := 1; want < 4; want++ {
		assert.Equal(t, want, r.Next())
	}
	assert.Equal(t, 0, r.Next())
	_, current := r.Current()
	assert.Equal(t, "Khosi Sambo", current.Name)
}

func TestRotator_Select(t *testing.T) {
	var changes atomic.Int32
	r := NewRotator(time.Hour, func(int) { changes.Add(1) })

	require.NoError(t, r.Select(2))
	i, current := r.Current()
	assert.Equal(t, 2, i)
	assert.Equal(t, "Thabo K.", current.Name)
	assert.Equal(t, int32(1), changes.Load())

	assert.Error(t, r.Select(4))
	assert.Error(t, r.Select(-1))
}

func TestRotator_Run(t *testing.T) {
	var last atomic.Int32
	r := NewRotator(10*time.Millisecond, func(i int) { last.Store(int32(i)) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return last.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestRotator_View(t *testing.T) {
	v := NewRotator(DefaultInterval, nil).View()
	assert.Equal(t, 0, v.Index)
	assert.Equal(t, 4, v.Dots)
	assert.Equal(t, int64(3000), v.IntervalMS)
}
