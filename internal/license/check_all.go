package license

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// maxParallelChecks bounds concurrent device handles in InspectAll.
const maxParallelChecks = 4

// InspectResult is the outcome of inspecting one device.
type InspectResult struct {
	Path  string
	Count uint16
	Err   error
}

// InspectAll inspects each distinct device concurrently. Results follow the
// order of paths; duplicate paths are inspected once. The returned error
// joins every per-device failure.
func (m *Manager) InspectAll(ctx context.Context, paths []string) ([]InspectResult, error) {
	seen := make(map[string]struct{}, len(paths))
	results := make([]InspectResult, 0, len(paths))
	for _, p := range paths {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		results = append(results, InspectResult{Path: p})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelChecks)
	for i := range results {
		res := &results[i]
		g.Go(func() error {
			res.Count, res.Err = m.Inspect(gctx, res.Path)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, res := range results {
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	return results, errors.Join(errs...)
}
