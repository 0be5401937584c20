package viz

import (
	"math"
)

// HeadingTrace plots two heading series over time, wrapped to
// [-pi, pi). The polyline breaks where the angle wraps around so the
// jump is not drawn as a vertical line.
func HeadingTrace(pred, target []float64, width, height int) *Canvas {
	c := NewCanvas(width, height)
	plotWrapped(c, target)
	plotWrapped(c, pred)
	return c
}

func plotWrapped(c *Canvas, series []float64) {
	if len(series) == 0 {
		return
	}
	w, h := c.Width*2, c.Height*4

	prevX, prevY := -1, -1
	for t, theta := range series {
		a := wrap(theta)
		x := 0
		if len(series) > 1 {
			x = t * (w - 1) / (len(series) - 1)
		}
		y := int((math.Pi - a) / (2 * math.Pi) * float64(h-1))

		if prevX >= 0 && abs(y-prevY) < h/2 {
			c.Line(prevX, prevY, x, y)
		} else {
			c.Set(x, y)
		}
		prevX, prevY = x, y
	}
}

// RingTrace scatters unit-circle points (sin, cos pairs) onto a
// square canvas, one dot per timestep.
func RingTrace(points [][]float64, size int) *Canvas {
	c := NewCanvas(size*2, size)
	w, h := c.Width*2, c.Height*4
	cx, cy := float64(w-1)/2, float64(h-1)/2
	rx, ry := cx*0.9, cy*0.9

	for _, p := range points {
		if len(p) < 2 {
			continue
		}
		norm := math.Hypot(p[0], p[1])
		if norm == 0 {
			continue
		}
		sin, cos := p[0]/norm, p[1]/norm
		c.Set(int(cx+sin*rx), int(cy-cos*ry))
	}
	return c
}

func wrap(a float64) float64 {
	a = math.Mod(a+math.Pi, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}
