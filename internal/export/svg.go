// Package export writes canvas renderings to standalone SVG files.
package export

import (
	"fmt"
	"os"
	"strings"

	"github.com/san-kum/ringsim/internal/viz"
)

// CanvasSVG renders each lit canvas dot as a small circle. scale is
// the SVG pixel size of one dot.
func CanvasSVG(c *viz.Canvas, scale float64) string {
	if c == nil {
		return ""
	}

	w := float64(c.Width*2) * scale
	h := float64(c.Height*4) * scale

	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	sb.WriteString(fmt.Sprintf(
		`<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">`+"\n",
		w, h, w, h))
	sb.WriteString(`<rect width="100%" height="100%" fill="#0a0a0a"/>` + "\n")
	sb.WriteString(`<g fill="#00d7af">` + "\n")

	r := scale * 0.45
	for y := 0; y < c.Height*4; y++ {
		for x := 0; x < c.Width*2; x++ {
			if !c.IsSet(x, y) {
				continue
			}
			sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="%.1f"/>`+"\n",
				(float64(x)+0.5)*scale, (float64(y)+0.5)*scale, r))
		}
	}

	sb.WriteString("</g>\n</svg>\n")
	return sb.String()
}

// WriteSVG renders the canvas and writes it to path.
func WriteSVG(c *viz.Canvas, path string, scale float64) error {
	svg := CanvasSVG(c, scale)
	if svg == "" {
		return fmt.Errorf("nothing to export")
	}
	return os.WriteFile(path, []byte(svg), 0o644)
}
