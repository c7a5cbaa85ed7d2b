package engine

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

const (
	ColorRed     = "#b42828"
	ColorOrange  = "#d2642d"
	ColorCyan    = "#44b8c7"
	ColorBlue    = "#2396b4"
	ColorAmber   = "#ff9800"
	ColorDueSoon = "#c54028"

	streakColorSpan = 15
)

// HabitStrong reports a habit that is clearly winning.
func HabitStrong(pos, neg int) bool {
	if neg == 0 {
		return pos > 0
	}
	return pos > neg*3
}

// HabitWeak reports a habit that is losing.
func HabitWeak(pos, neg int) bool {
	if pos == 0 {
		return neg > 0
	}
	return neg > pos
}

// HabitColor maps the positive ratio onto red, orange, cyan and blue with
// break points at 0.33 and 0.50. No activity gives orange.
func HabitColor(pos, neg int) string {
	total := pos + neg
	if total <= 0 {
		return ColorOrange
	}
	ratio := float64(pos) / float64(total)
	switch {
	case ratio <= 0.33:
		return interpolateHSL(ColorRed, ColorOrange, ratio/0.33)
	case ratio <= 0.50:
		return interpolateHSL(ColorOrange, ColorCyan, (ratio-0.33)/0.17)
	default:
		return interpolateHSL(ColorCyan, ColorBlue, (ratio-0.50)/0.50)
	}
}

// TaskColor colors scheduled tasks by due proximity and dailies by streak band.
func TaskColor(kind TaskKind, due *time.Time, streak int, now time.Time) string {
	if kind == TaskDaily {
		if streak <= 0 {
			return ColorOrange
		}
		if streak >= streakColorSpan {
			return ColorBlue
		}
		ratio := float64(streak) / streakColorSpan
		switch {
		case ratio < 0.25:
			return ColorOrange
		case ratio < 0.5:
			return ColorAmber
		case ratio < 0.75:
			return ColorCyan
		default:
			return ColorBlue
		}
	}

	if due == nil {
		return ColorOrange
	}
	if due.Before(now) {
		return ColorRed
	}
	daysLeft := int(due.Sub(now) / (24 * time.Hour))
	switch {
	case daysLeft == 0:
		return ColorRed
	case daysLeft <= 3:
		return ColorDueSoon
	default:
		return ColorOrange
	}
}

type hsl struct{ h, s, l float64 }

func interpolateHSL(from, to string, t float64) string {
	t = math.Max(0, math.Min(1, t))
	a := rgbToHSL(parseHex(from))
	b := rgbToHSL(parseHex(to))

	// Shortest path around the hue circle.
	if math.Abs(b.h-a.h) > 0.5 {
		if a.h > b.h {
			b.h += 1
		} else {
			a.h += 1
		}
	}

	h := math.Mod(a.h+(b.h-a.h)*t, 1)
	s := a.s + (b.s-a.s)*t
	l := a.l + (b.l-a.l)*t
	r, g, bl := hslToRGB(hsl{h, s, l})
	return fmt.Sprintf("#%02x%02x%02x", r, g, bl)
}

func parseHex(c string) (r, g, b float64) {
	if len(c) != 7 || c[0] != '#' {
		return 0, 0, 0
	}
	ch := func(s string) float64 {
		v, _ := strconv.ParseUint(s, 16, 8)
		return float64(v) / 255
	}
	return ch(c[1:3]), ch(c[3:5]), ch(c[5:7])
}

func rgbToHSL(r, g, b float64) hsl {
	hi := math.Max(r, math.Max(g, b))
	lo := math.Min(r, math.Min(g, b))
	l := (hi + lo) / 2
	d := hi - lo
	if d == 0 {
		return hsl{0, 0, l}
	}

	var s float64
	if l > 0.5 {
		s = d / (2 - hi - lo)
	} else {
		s = d / (hi + lo)
	}

	var h float64
	switch hi {
	case r:
		h = (g - b) / d
		if g < b {
			h += 6
		}
	case g:
		h = (b-r)/d + 2
	default:
		h = (r-g)/d + 4
	}
	return hsl{h / 6, s, l}
}

func hslToRGB(c hsl) (int, int, int) {
	if c.s == 0 {
		v := int(c.l * 255)
		return v, v, v
	}
	var q float64
	if c.l < 0.5 {
		q = c.l * (1 + c.s)
	} else {
		q = c.l + c.s - c.l*c.s
	}
	p := 2*c.l - q
	r := hueToRGB(p, q, c.h+1.0/3)
	g := hueToRGB(p, q, c.h)
	b := hueToRGB(p, q, c.h-1.0/3)
	return int(r * 255), int(g * 255), int(b * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6:
		return p + (q-p)*6*t
	case t < 0.5:
		return q
	case t < 2.0/3:
		return p + (q-p)*(2.0/3-t)*6
	default:
		return p
	}
}
