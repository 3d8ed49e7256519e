// Package ocr adapts image regions into text. The engine contract is
// deliberately small: one encoded image in, one result out. Engines are
// not assumed to be reentrant; the Processor serializes access.
package ocr

import "context"

// ImageFormat identifies the content type of an OCR input image.
type ImageFormat string

const (
	ImageFormatPNG  ImageFormat = "image/png"
	ImageFormatJPEG ImageFormat = "image/jpeg"
)

// Region describes a rectangular area in pixel coordinates with the
// origin in the upper-left corner of the image.
type Region struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// IsEmpty reports whether the region has non-positive dimensions.
func (r Region) IsEmpty() bool { return r.Width <= 0 || r.Height <= 0 }

// Input encapsulates a single image submitted for OCR.
type Input struct {
	// ID is an optional caller-provided identifier echoed back in the
	// corresponding Result.
	ID string
	// Image is the encoded image payload in the format given by Format.
	Image []byte
	// Format declares the image content type.
	Format ImageFormat
	// Languages is a list of language hints (e.g., "eng", "deu").
	Languages []string
	// Region restricts recognition to a subsection of the image. Nil
	// means the full image is processed.
	Region *Region
	// Metadata passes engine-specific knobs (e.g., "psm" for Tesseract)
	// without hard-coding them into the API surface.
	Metadata map[string]string
}

// Result captures OCR output for a single input image.
type Result struct {
	// InputID mirrors the Input.ID that produced this result.
	InputID string
	// PlainText contains the linearized text extracted from the image.
	PlainText string
}

// Engine is the OCR provider contract: one image in, one result out.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, input Input) (Result, error)
}
