package pipeline

import (
	"path/filepath"
	"strings"
)

// Outputs names the files one analysis writes next to its input. The small
// run writes SmallMap and Wires; the large run reads them and writes the
// merged Diameters map and the Report.
type Outputs struct {
	SmallMap  string `json:"small_map"`
	Wires     string `json:"wires"`
	Diameters string `json:"diameters"`
	Report    string `json:"report"`
}

// OutputsFor derives output names from the mask path. With dir empty the
// files land beside the mask.
func OutputsFor(maskPath, dir string) Outputs {
	base := strings.TrimSuffix(filepath.Base(maskPath), filepath.Ext(maskPath))
	if dir == "" {
		dir = filepath.Dir(maskPath)
	}
	prefix := filepath.Join(dir, base)
	return Outputs{
		SmallMap:  prefix + "_small_features.npy",
		Wires:     prefix + "_wires.tif",
		Diameters: prefix + "_diameters.npy",
		Report:    prefix + "_report.json",
	}
}
