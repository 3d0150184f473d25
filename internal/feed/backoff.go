package feed

import "time"

// backoff produces doubling delays between a floor and a ceiling. Reset puts
// the next delay back at the floor.
type backoff struct {
	floor   time.Duration
	ceiling time.Duration
	next    time.Duration
}

func newBackoff(floor, ceiling time.Duration) *backoff {
	return &backoff{floor: floor, ceiling: ceiling, next: floor}
}

// Next returns the current delay and doubles the one after it, clamped to the
// ceiling.
func (b *backoff) Next() time.Duration {
	d := b.next
	b.next *= 2
	if b.next > b.ceiling {
		b.next = b.ceiling
	}
	return d
}

// Floor returns the minimum delay without advancing the sequence.
func (b *backoff) Floor() time.Duration {
	return b.floor
}

func (b *backoff) Reset() {
	b.next = b.floor
}
