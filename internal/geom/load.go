package geom

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Supported reports whether Load understands files with this extension.
func Supported(ext string) bool {
	switch strings.ToLower(ext) {
	case ".geojson", ".json", ".csv", ".kml", ".wkt":
		return true
	}
	return false
}

// Load picks a loader by file extension.
func Load(path string) (Dataset, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".geojson", ".json":
		return LoadGeo(path)
	case ".csv":
		return LoadCSV(path)
	case ".kml":
		return LoadKML(path)
	case ".wkt":
		return LoadWKT(path)
	}
	return Dataset{}, errors.Errorf("unsupported file: %s", ext)
}
