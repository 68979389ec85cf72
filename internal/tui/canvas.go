package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Braille cells hold 2x4 dots:
// 1 4
// 2 5
// 3 6
// 7 8
var pixelMap = [4][2]rune{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const blank = 0x2800

// Canvas is a braille sub-pixel canvas. Each cell also keeps the freshest
// shade written into it so rendering can fade particles by age.
type Canvas struct {
	Width, Height int
	Grid          [][]rune
	Shade         [][]float32
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{Width: w, Height: h}
	c.Resize(w, h)
	return c
}

// Resize reallocates the grid when the cell size changes and clears it.
func (c *Canvas) Resize(w, h int) {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	if w != c.Width || h != c.Height || c.Grid == nil {
		c.Width, c.Height = w, h
		c.Grid = make([][]rune, h)
		c.Shade = make([][]float32, h)
		for i := range c.Grid {
			c.Grid[i] = make([]rune, w)
			c.Shade[i] = make([]float32, w)
		}
	}
	c.Clear()
}

// SubWidth and SubHeight are the canvas size in dots.
func (c *Canvas) SubWidth() int  { return c.Width * 2 }
func (c *Canvas) SubHeight() int { return c.Height * 4 }

// Set lights the dot at (x, y) in sub-pixel coordinates. shade in [0, 1] is
// kept per cell as the maximum of everything drawn there.
func (c *Canvas) Set(x, y int, shade float32) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.Grid[row][col] |= pixelMap[y%4][x%2]
	if shade > c.Shade[row][col] {
		c.Shade[row][col] = shade
	}
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = blank
			c.Shade[i][j] = 0
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int, shade float32) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0, shade)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	return b.String()
}

// Render draws the canvas with one lipgloss style per shade bucket. Cells with
// no dots are written as spaces.
func (c *Canvas) Render(palette []lipgloss.Style, indent string) string {
	var b strings.Builder
	for i, row := range c.Grid {
		b.WriteString(indent)
		for j, r := range row {
			if r == blank {
				b.WriteByte(' ')
				continue
			}
			b.WriteString(palette[shadeIndex(c.Shade[i][j], len(palette))].Render(string(r)))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func shadeIndex(shade float32, n int) int {
	idx := int(shade * float32(n))
	if idx >= n {
		idx = n - 1
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
