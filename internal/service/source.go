package service

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joeblew999/plat-rezone/internal/dataset"
)

// Supported dataset extensions and their types.
var extToType = map[string]string{
	".geojson": "GeoJSON",
	".json":    "GeoJSON",
	".shp":     "Shapefile",
}

// describeSources reports every dataset in registration order.
func describeSources(paths dataset.Paths, res dataset.Result) []SourceInfo {
	byName := map[string]string{
		dataset.Zoning:   paths.Zoning,
		dataset.Building: paths.Building,
		dataset.Value:    paths.Value,
	}
	out := make([]SourceInfo, 0, len(dataset.Names))
	for _, name := range dataset.Names {
		p := byName[name]
		info := SourceInfo{Name: name, Path: p}

		ext := strings.ToLower(filepath.Ext(p))
		if i := strings.IndexByte(ext, '?'); i >= 0 {
			ext = ext[:i]
		}
		info.FileType = extToType[ext]
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			info.Size = formatSize(st.Size())
		}

		if fc := res.Collection(name); fc != nil {
			info.Loaded = true
			info.Features = len(fc.Features)
		}
		if err := res.Errors[name]; err != nil {
			info.Error = err.Error()
		}
		out = append(out, info)
	}
	return out
}

// formatSize returns a human-readable file size.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
