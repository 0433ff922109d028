package aggregate

import (
	"bufio"
	"fmt"
	"os"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"

	apperrors "github.com/ironsheep/wire-analysis/internal/errors"
)

// SaveNPY writes the map as a float64 NumPy array of shape (rows, cols).
func SaveNPY(path string, m *mat.Dense) error {
	if m == nil {
		return apperrors.NewInvalidInput("cannot save an empty diameter map", nil)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	w := bufio.NewWriter(f)

	if err := npyio.Write(w, m); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// LoadNPY reads a map written by SaveNPY or by numpy.save. A file that does
// not exist is a MissingInput; one that cannot be decoded is an InvalidInput.
func LoadNPY(path string) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewMissingInput("diameter map "+path+" not found", err)
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var m mat.Dense
	if err := npyio.Read(bufio.NewReader(f), &m); err != nil {
		return nil, apperrors.NewInvalidInput("cannot decode diameter map "+path, err)
	}
	return &m, nil
}
