// Package viz renders heading traces on a Braille pixel canvas.
package viz

import (
	"strings"
)

// A Braille cell packs a 2x4 dot grid into one rune starting at
// codepoint 0x2800, so a WxH canvas has 2W x 4H addressable dots.
var dotBits = [4][2]rune{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

type Canvas struct {
	Width, Height int
	cells         [][]rune
}

func NewCanvas(width, height int) *Canvas {
	c := &Canvas{
		Width:  width,
		Height: height,
		cells:  make([][]rune, height),
	}
	for i := range c.cells {
		c.cells[i] = make([]rune, width)
		for j := range c.cells[i] {
			c.cells[i][j] = 0x2800
		}
	}
	return c
}

// Set turns on the dot at (x, y) in dot coordinates. Out-of-range
// coordinates are ignored.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.cells[row][col] |= dotBits[y%4][x%2]
}

// IsSet reports whether the dot at (x, y) is on.
func (c *Canvas) IsSet(x, y int) bool {
	if x < 0 || y < 0 {
		return false
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return false
	}
	return c.cells[row][col]&dotBits[y%4][x%2] != 0
}

// Line draws a line between two dots with Bresenham's algorithm.
func (c *Canvas) Line(x0, y0, x1, y1 int) {
	dx := abs(x1 - x0)
	dy := abs(y1 - y0)
	sx, sy := -1, -1
	if x0 < x1 {
		sx = 1
	}
	if y0 < y1 {
		sy = 1
	}
	e := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 > -dy {
			e -= dy
			x0 += sx
		}
		if e2 < dx {
			e += dx
			y0 += sy
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.cells {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	return b.String()
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
