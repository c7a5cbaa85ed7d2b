package engine

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"time"
)

// Clock supplies the current time. Engine code only ever sees UTC.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f().UTC() }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Random draws integers from an inclusive range.
type Random interface {
	IntRange(min, max int) int
}

type pcgRandom struct {
	r *rand.Rand
}

// NewRandom returns a Random seeded from crypto/rand.
func NewRandom() Random {
	return &pcgRandom{r: rand.New(rand.NewPCG(newSeed(), newSeed()))}
}

// NewSeededRandom returns a reproducible Random.
func NewSeededRandom(seed uint64) Random {
	return &pcgRandom{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (p *pcgRandom) IntRange(min, max int) int {
	if max <= min {
		return min
	}
	return min + p.r.IntN(max-min+1)
}

func newSeed() uint64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return uint64(time.Now().UnixNano())
	}
	return binary.LittleEndian.Uint64(b[:])
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func startOfMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// startOfWeek returns midnight of the Monday on or before t.
func startOfWeek(t time.Time) time.Time {
	d := startOfDay(t)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

func sameDay(a, b time.Time) bool {
	return startOfDay(a).Equal(startOfDay(b))
}
