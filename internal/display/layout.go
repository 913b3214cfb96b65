package display

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
)

const (
	// DefaultColumns is the stimulus grid width on startup.
	DefaultColumns = 6
	// defaultPaddingRatio is the gap fraction between neighbouring patches.
	defaultPaddingRatio = 0.2
)

// Patch is one flickering stimulus square: its position, edge length and
// the character it currently shows.
type Patch struct {
	ID   int    `json:"patch_id"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
	Size int    `json:"size"`
	Char string `json:"char"`
}

// Layout computes the stimulus patch grid. Patches fill the box between the
// west/north and east/south bounds: `columns` per row, as many rows as fit,
// each patch inset by the padding ratio of the column step.
type Layout struct {
	mu           sync.Mutex
	west         float64
	north        float64
	east         float64
	south        float64
	columns      int
	paddingRatio float64
	chars        []string
}

// NewLayout constructs a layout over a degenerate box; callers set real
// bounds with ResetBox once the screen size is known.
func NewLayout() *Layout {
	return &Layout{
		east:         100,
		south:        100,
		columns:      DefaultColumns,
		paddingRatio: defaultPaddingRatio,
		chars:        strings.Split("abcdefghijklmnopqrstuvwxyz1234567890", ""),
	}
}

// ResetBox repositions the grid bounds.
func (l *Layout) ResetBox(west, north, east, south float64) {
	l.mu.Lock()
	l.west, l.north, l.east, l.south = west, north, east, south
	l.mu.Unlock()
}

// ResetColumns changes the number of columns. Values below 1 are rejected.
func (l *Layout) ResetColumns(columns int) error {
	if columns < 1 {
		return fmt.Errorf("invalid column count %d", columns)
	}
	l.mu.Lock()
	l.columns = columns
	l.mu.Unlock()
	return nil
}

// Columns returns the current column count.
func (l *Layout) Columns() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.columns
}

// ShuffleChars randomizes the character sequence painted onto the patches.
func (l *Layout) ShuffleChars() {
	l.mu.Lock()
	rand.Shuffle(len(l.chars), func(i, j int) {
		l.chars[i], l.chars[j] = l.chars[j], l.chars[i]
	})
	l.mu.Unlock()
}

// SetChars replaces the character sequence.
func (l *Layout) SetChars(chars []string) {
	l.mu.Lock()
	l.chars = append([]string(nil), chars...)
	l.mu.Unlock()
}

// Patches returns the current grid. Patch IDs run row-major from the top
// left; characters repeat when the grid is larger than the sequence.
func (l *Layout) Patches() []Patch {
	l.mu.Lock()
	defer l.mu.Unlock()

	step := (l.east - l.west) / float64(l.columns)
	d := int(step)
	if d <= 0 {
		return nil
	}
	rows := int((l.south - l.north) / float64(d))
	size := int(step * (1 - l.paddingRatio))

	patches := make([]Patch, 0, rows*l.columns)
	id := 0
	for i := 0; i < rows; i++ {
		for j := 0; j < l.columns; j++ {
			patches = append(patches, Patch{
				ID:   id,
				X:    int(l.west + float64(d*j) + float64(d-size)/2),
				Y:    int(l.north + float64(d*i) + float64(d-size)/2),
				Size: size,
				Char: l.chars[id%len(l.chars)],
			})
			id++
		}
	}
	return patches
}
