//go:build !tesseract

package scalebar

import (
	"image"

	apperrors "github.com/ironsheep/wire-analysis/internal/errors"
)

// OCRBackend names the text recognizer compiled into this build.
const OCRBackend = "none"

// TesseractReader stands in for the Tesseract reader in builds without the
// tesseract tag.
type TesseractReader struct {
	Language       string
	TessdataPrefix string
}

// NewTesseractReader returns a reader that always fails.
func NewTesseractReader(language string) Reader {
	return &TesseractReader{Language: language}
}

// ReadText implements Reader.
func (r *TesseractReader) ReadText(image.Image) (string, error) {
	return "", apperrors.NewInvalidInput("OCR unavailable: rebuild with -tags tesseract", nil)
}

// OCRVersion reports the linked Tesseract version.
func OCRVersion() string {
	return ""
}
