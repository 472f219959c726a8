package dataset

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/paulmach/orb/geojson"
	"github.com/rotisserie/eris"
)

// ErrFormat is returned for a path whose extension is not understood.
var ErrFormat = eris.New("dataset: unsupported format")

func (l *Loader) read(ctx context.Context, p string) (*geojson.FeatureCollection, error) {
	remote := isRemote(p)
	switch ext(p) {
	case ".geojson", ".json":
		var (
			data []byte
			err  error
		)
		if remote {
			data, err = l.fetch(ctx, p)
		} else {
			data, err = os.ReadFile(p)
		}
		if err != nil {
			return nil, eris.Wrapf(err, "dataset: read %s", p)
		}
		return decodeGeoJSON(data)
	case ".shp":
		if remote {
			return nil, eris.Wrapf(ErrFormat, "dataset: shapefiles must be local: %s", p)
		}
		return readShapefile(p)
	default:
		return nil, eris.Wrapf(ErrFormat, "dataset: %s", p)
	}
}

// decodeGeoJSON accepts a FeatureCollection or a single Feature.
func decodeGeoJSON(data []byte) (*geojson.FeatureCollection, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err == nil {
		return fc, nil
	}
	f, ferr := geojson.UnmarshalFeature(data)
	if ferr != nil || f.Geometry == nil {
		if err == nil {
			err = ferr
		}
		if err == nil {
			err = eris.New("not a feature or feature collection")
		}
		return nil, eris.Wrap(err, "dataset: decode geojson")
	}
	fc = geojson.NewFeatureCollection()
	fc.Append(f)
	return fc, nil
}

func (l *Loader) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "build request")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "download")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("download returned status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "read body")
	}
	return data, nil
}

func isRemote(p string) bool {
	return strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://")
}

func ext(p string) string {
	if isRemote(p) {
		if u, err := url.Parse(p); err == nil {
			p = u.Path
		}
	}
	return strings.ToLower(path.Ext(p))
}
