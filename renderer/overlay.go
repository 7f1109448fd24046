package renderer

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const overlayPadding = 4

// Draw text lines in the top-left corner of img over a dimmed backdrop.
func DrawOverlay(img *image.RGBA, lines []string, textColor color.Color) {
	if len(lines) == 0 {
		return
	}

	face := basicfont.Face7x13
	lineH := face.Metrics().Height.Ceil()

	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(textColor),
		Face: face,
	}

	var width int
	for _, line := range lines {
		if w := drawer.MeasureString(line).Ceil(); w > width {
			width = w
		}
	}
	backdrop := image.Rect(0, 0, width+2*overlayPadding, len(lines)*lineH+2*overlayPadding).Intersect(img.Bounds())
	draw.Draw(img, backdrop, image.NewUniform(color.RGBA{0, 0, 0, 160}), image.Point{}, draw.Over)

	for idx, line := range lines {
		drawer.Dot = fixed.P(overlayPadding, overlayPadding+idx*lineH+face.Metrics().Ascent.Ceil())
		drawer.DrawString(line)
	}
}
