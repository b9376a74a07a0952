package external

import (
	"context"
	"log"
	"sync"

	"github.com/alpacaswillrule/BlueShark/pkg/models"
)

// Aggregator fans a query out to every configured source and groups the
// results by source name. A failing source contributes an empty list and is
// logged; it never aborts the other sources.
type Aggregator struct {
	sources []Source
}

func NewAggregator(sources ...Source) *Aggregator {
	return &Aggregator{sources: sources}
}

func (a *Aggregator) FetchAll(ctx context.Context, p Params) map[string][]*models.Location {
	results := make(map[string][]*models.Location, len(a.sources))

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, src := range a.sources {
		wg.Add(1)
		go func(src Source) {
			defer wg.Done()
			locs, err := src.Fetch(ctx, p)
			if err != nil {
				log.Printf("aggregator: source %s failed: %v", src.Name(), err)
				locs = []*models.Location{}
			}
			mu.Lock()
			results[src.Name()] = locs
			mu.Unlock()
		}(src)
	}
	wg.Wait()

	return results
}

// Flatten concatenates a grouped result into one list.
func Flatten(grouped map[string][]*models.Location) []*models.Location {
	out := []*models.Location{}
	for _, locs := range grouped {
		out = append(out, locs...)
	}
	return out
}
