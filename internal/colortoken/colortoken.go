// Package colortoken derives the rotating QR color for an event palette.
package colortoken

import (
	"fmt"
	"time"
)

// Window is how long a palette index stays valid.
const Window = 30 * time.Second

// DefaultPalette is used for events created without an explicit palette.
var DefaultPalette = []string{"red", "green", "blue"}

// Index returns the palette index valid at now for a palette of size n.
// It panics when n is not positive: an empty palette is a programming error.
func Index(n int, now time.Time) int {
	if n <= 0 {
		panic(fmt.Sprintf("colortoken: palette size must be positive, got %d", n))
	}
	window := now.Unix() / int64(Window/time.Second)
	idx := window % int64(n)
	if idx < 0 {
		idx += int64(n)
	}
	return int(idx)
}

// Current returns the token of palette that is valid at now.
func Current(palette []string, now time.Time) string {
	return palette[Index(len(palette), now)]
}

// WindowEnd returns the instant the window containing now closes.
func WindowEnd(now time.Time) time.Time {
	secs := int64(Window / time.Second)
	start := now.Unix() - mod(now.Unix(), secs)
	return time.Unix(start+secs, 0).UTC()
}

func mod(a, b int64) int64 {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
