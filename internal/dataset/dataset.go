// Package dataset loads the zoning and block collections the viewer draws.
// Every configured dataset is read concurrently; callers receive a single
// Result once all reads have finished.
package dataset

import (
	"context"
	"net/http"
	"sync"

	"github.com/paulmach/orb/geojson"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/joeblew999/plat-rezone/internal/zoning"
)

// Dataset names.
const (
	Zoning   = "zoning"
	Building = "building"
	Value    = "value"
)

// Names lists the datasets in registration order.
var Names = []string{Zoning, Building, Value}

// ErrNotConfigured is recorded for a dataset without a path.
var ErrNotConfigured = eris.New("dataset: no path configured")

// Paths locates each dataset. A path is a local file or an http(s) URL;
// .geojson, .json and .shp are understood.
type Paths struct {
	Zoning   string
	Building string
	Value    string
}

func (p Paths) byName() map[string]string {
	return map[string]string{Zoning: p.Zoning, Building: p.Building, Value: p.Value}
}

// Result carries every loaded collection. A dataset that failed is nil and
// has an entry in Errors. Datasets sharing a path share one collection.
type Result struct {
	Collections map[string]*geojson.FeatureCollection
	Errors      map[string]error
	Parcels     zoning.ParcelSummary
	Blocks      int
}

// Collection returns the named collection, nil if it failed to load.
func (r Result) Collection(name string) *geojson.FeatureCollection {
	return r.Collections[name]
}

// OK reports whether every dataset loaded.
func (r Result) OK() bool { return len(r.Errors) == 0 }

// Loader reads and annotates datasets.
type Loader struct {
	Annotator zoning.Annotator
	Client    *http.Client
	// Limit bounds concurrent reads; zero means one per distinct path.
	Limit int
}

// NewLoader returns a loader annotating parcels with a.
func NewLoader(a zoning.Annotator) *Loader {
	return &Loader{Annotator: a, Client: http.DefaultClient}
}

// Load reads every dataset in paths and waits for all of them. Per-dataset
// failures are reported in Result.Errors; the returned error is only set
// when ctx is cancelled.
func (l *Loader) Load(ctx context.Context, paths Paths) (Result, error) {
	log := zap.L().With(zap.String("component", "dataset.loader"))

	res := Result{
		Collections: make(map[string]*geojson.FeatureCollection),
		Errors:      make(map[string]error),
	}

	byName := paths.byName()
	var distinct []string
	seen := make(map[string]bool)
	for _, name := range Names {
		p := byName[name]
		if p == "" {
			res.Errors[name] = eris.Wrapf(ErrNotConfigured, "dataset: %s", name)
			continue
		}
		if !seen[p] {
			seen[p] = true
			distinct = append(distinct, p)
		}
	}

	var (
		mu      sync.Mutex
		loaded  = make(map[string]*geojson.FeatureCollection, len(distinct))
		failed  = make(map[string]error)
		g, gctx = errgroup.WithContext(ctx)
	)
	if l.Limit > 0 {
		g.SetLimit(l.Limit)
	}
	for _, p := range distinct {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fc, err := l.read(gctx, p)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed[p] = err
				return nil
			}
			loaded[p] = fc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, eris.Wrap(err, "dataset: load cancelled")
	}
	if err := ctx.Err(); err != nil {
		return res, eris.Wrap(err, "dataset: load cancelled")
	}

	annotated := make(map[string]bool)
	for _, name := range Names {
		p := byName[name]
		if p == "" {
			continue
		}
		if err, ok := failed[p]; ok {
			res.Errors[name] = eris.Wrapf(err, "dataset: read %s", name)
			log.Error("dataset failed to load", zap.String("dataset", name), zap.String("path", p), zap.Error(err))
			continue
		}
		fc := loaded[p]
		res.Collections[name] = fc
		if annotated[p] {
			continue
		}
		annotated[p] = true
		if name == Zoning {
			res.Parcels = l.Annotator.Parcels(fc)
		} else {
			res.Blocks += zoning.Blocks(fc)
		}
		log.Info("dataset loaded", zap.String("dataset", name), zap.String("path", p), zap.Int("features", len(fc.Features)))
	}
	return res, nil
}
