package view

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// Rasterize draws a frame onto a monochrome image: the title centered at the
// top, a rule, the rows and the footer pinned to the bottom edge.
func Rasterize(f *Frame, bounds image.Rectangle) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(bounds)
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	face := basicfont.Face7x13
	metrics := face.Metrics()
	lineHeight := metrics.Height.Ceil()
	drawer := font.Drawer{
		Dst:  img,
		Src:  image.Black,
		Face: face,
	}

	x0, y := bounds.Min.X+2, bounds.Min.Y+metrics.Ascent.Ceil()+1

	title := f.Title
	width := drawer.MeasureString(title).Ceil()
	drawer.Dot = fixed.P(bounds.Min.X+max((bounds.Dx()-width)/2, 0), y)
	drawer.DrawString(title)

	y += metrics.Descent.Ceil() + 2
	hline(img, bounds.Min.X, bounds.Max.X, y)
	y += 1 + metrics.Ascent.Ceil()

	// rows never overlap the footer
	last := bounds.Max.Y - metrics.Descent.Ceil() - lineHeight - 3
	for _, line := range RowText(f.Rows) {
		if y > last {
			break
		}
		drawer.Dot = fixed.P(x0, y)
		drawer.DrawString(line)
		y += lineHeight
	}

	footerY := bounds.Max.Y - metrics.Descent.Ceil() - 1
	hline(img, bounds.Min.X, bounds.Max.X, footerY-metrics.Ascent.Ceil()-2)
	drawer.Dot = fixed.P(x0, footerY)
	drawer.DrawString(f.Footer)

	if f.Pages > 1 {
		page := pageLabel(f)
		w := drawer.MeasureString(page).Ceil()
		drawer.Dot = fixed.P(bounds.Max.X-w-2, footerY)
		drawer.DrawString(page)
	}
	return img
}

func hline(img *image1bit.VerticalLSB, x0, x1, y int) {
	for x := x0; x < x1; x++ {
		img.Set(x, y, color.Black)
	}
}

func pageLabel(f *Frame) string {
	return fmt.Sprintf("%d/%d", f.Page, f.Pages)
}
