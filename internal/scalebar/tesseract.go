//go:build tesseract

package scalebar

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// OCRBackend names the text recognizer compiled into this build.
const OCRBackend = "gosseract"

// labelWhitelist covers digits, separators and the unit letters.
const labelWhitelist = "0123456789.,nmuµμicros "

// TesseractReader reads scale bar labels with Tesseract.
type TesseractReader struct {
	// Language is the Tesseract language code; empty means "eng".
	Language string

	// TessdataPrefix overrides the training data directory when set.
	TessdataPrefix string
}

// NewTesseractReader returns a reader for the given language.
func NewTesseractReader(language string) Reader {
	return &TesseractReader{Language: language}
}

// ReadText implements Reader. The image is handed to Tesseract as PNG bytes
// and read as a single block of text.
func (r *TesseractReader) ReadText(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return "", fmt.Errorf("failed to encode label image: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	lang := r.Language
	if lang == "" {
		lang = "eng"
	}
	if err := client.SetLanguage(lang); err != nil {
		return "", fmt.Errorf("failed to set language: %w", err)
	}
	if r.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(r.TessdataPrefix); err != nil {
			return "", fmt.Errorf("failed to set tessdata path: %w", err)
		}
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		return "", fmt.Errorf("failed to set page segmentation: %w", err)
	}
	if err := client.SetWhitelist(labelWhitelist); err != nil {
		return "", fmt.Errorf("failed to set whitelist: %w", err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	return text, nil
}

// OCRVersion reports the linked Tesseract version.
func OCRVersion() string {
	return gosseract.Version()
}
