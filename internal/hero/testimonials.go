// Package hero rotates the landing-page testimonials.
package hero

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultInterval is the time each testimonial stays on screen.
const DefaultInterval = 3 * time.Second

// Testimonial is one landing-page quote.
type Testimonial struct {
	Initials string `json:"initials"`
	Name     string `json:"name"`
	Meta     string `json:"meta"`
	Quote    string `json:"quote"`
}

var testimonials = []Testimonial{
	{
		Initials: "KS",
		Name:     "Khosi Sambo",
		Meta:     "Retail & Customer Support · Johannesburg",
		Quote:    `"SpaniSami turned my weekend spaza hustle into a real CV. I finally felt confident applying for jobs."`,
	},
	{
		Initials: "LM",
		Name:     "Lerato M.",
		Meta:     "First‑time job seeker · Soweto",
		Quote:    `"I spoke in isiZulu and English mix, and it still understood me. Now my CV actually looks professional."`,
	},
	{
		Initials: "TK",
		Name:     "Thabo K.",
		Meta:     "Student & Maths tutor · Pretoria",
		Quote:    `"I used my tutoring and church work as experience. SpaniSami helped me explain it nicely for bursary forms."`,
	},
	{
		Initials: "AZ",
		Name:     "Ayanda Z.",
		Meta:     "Side‑hustle hairstylist · Durban",
		Quote:    `"I always thought my braiding hustle was small. Seeing it as real work experience on my CV changed my mindset."`,
	},
}

// Testimonials returns the quotes in display order.
func Testimonials() []Testimonial {
	out := make([]Testimonial, len(testimonials))
	copy(out, testimonials)
	return out
}

// Rotator advances through the testimonials on a fixed interval.
type Rotator struct {
	items    []Testimonial
	interval time.Duration
	onChange func(index int)

	mu    sync.Mutex
	index int
	reset chan struct{}
}

// NewRotator creates a rotator. onChange, when set, is called after every
// index change, from the rotation goroutine or from Select.
func NewRotator(interval time.Duration, onChange func(index int)) *Rotator {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Rotator{
		items:    Testimonials(),
		interval: interval,
		onChange: onChange,
		reset:    make(chan struct{}, 1),
	}
}

// Current returns the index and testimonial on screen.
func (r *Rotator) Current() (int, Testimonial) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.index, r.items[r.index]
}

// Next advances to the following testimonial, wrapping around.
func (r *Rotator) Next() int {
	r.mu.Lock()
	r.index = (r.index + 1) % len(r.items)
	i := r.index
	r.mu.Unlock()
	r.notify(i)
	return i
}

// Select jumps to a testimonial and restarts the interval.
func (r *Rotator) Select(index int) error {
	if index < 0 || index >= len(r.items) {
		return fmt.Errorf("testimonial index out of range: %d", index)
	}
	r.mu.Lock()
	r.index = index
	r.mu.Unlock()

	select {
	case r.reset <- struct{}{}:
	default:
	}
	r.notify(index)
	return nil
}

func (r *Rotator) notify(i int) {
	if r.onChange != nil {
		r.onChange(i)
	}
}

// Run rotates until ctx is cancelled.
func (r *Rotator) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.reset:
			ticker.Reset(r.interval)
		case <-ticker.C:
			r.Next()
		}
	}
}

// View is the renderable testimonial card.
type View struct {
	Index      int         `json:"index"`
	Current    Testimonial `json:"current"`
	Dots       int         `json:"dots"`
	IntervalMS int64       `json:"interval_ms"`
}

// View returns a snapshot of the card.
func (r *Rotator) View() View {
	i, t := r.Current()
	return View{Index: i, Current: t, Dots: len(r.items), IntervalMS: r.interval.Milliseconds()}
}
