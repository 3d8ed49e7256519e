package selection

import (
	"fmt"
	"image"
	"math"

	"golang.org/x/image/draw"

	"comicvox/pkg/model"
)

// minOCRWidth is the narrowest crop handed to the OCR engine. Small
// speech bubbles are upscaled to this width; Tesseract accuracy drops
// sharply below ~20px glyph height.
const minOCRWidth = 400

// RenderRegion cuts the selected region out of the source image. The
// selection rect is in display pixels; the source image is at natural
// resolution, so the rect is scaled by the natural/display ratio first.
// Undersized crops are upscaled for OCR legibility.
func RenderRegion(src image.Image, rect model.Rect, page *model.PageImage) (image.Image, error) {
	sx, sy := 1.0, 1.0
	if page.DisplayWidth > 0 && page.NaturalWidth > 0 {
		sx = float64(page.NaturalWidth) / page.DisplayWidth
	}
	if page.DisplayHeight > 0 && page.NaturalHeight > 0 {
		sy = float64(page.NaturalHeight) / page.DisplayHeight
	}

	crop := image.Rect(
		int(math.Round(rect.Left*sx)),
		int(math.Round(rect.Top*sy)),
		int(math.Round(rect.Right()*sx)),
		int(math.Round(rect.Bottom()*sy)),
	).Intersect(src.Bounds())
	if crop.Empty() {
		return nil, fmt.Errorf("selection region outside image bounds")
	}

	out := image.NewRGBA(image.Rect(0, 0, crop.Dx(), crop.Dy()))
	draw.Copy(out, image.Point{}, src, crop, draw.Src, nil)

	if out.Bounds().Dx() >= minOCRWidth {
		return out, nil
	}

	scale := float64(minOCRWidth) / float64(out.Bounds().Dx())
	scaled := image.NewRGBA(image.Rect(0, 0, minOCRWidth, int(math.Round(float64(out.Bounds().Dy())*scale))))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), out, out.Bounds(), draw.Src, nil)
	return scaled, nil
}
