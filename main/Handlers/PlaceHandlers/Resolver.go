package PlaceHandlers

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const resolveRegionMeters = 1000

type resolution struct {
	place Place
	err   error
}

// Resolver turns stored place keys back into places using the map gateway.
type Resolver struct {
	Search       Searcher
	Cache        PlaceCache
	Workers      int
	ItemTimeout  time.Duration
	BatchTimeout time.Duration
}

func NewResolver(search Searcher, cache PlaceCache) *Resolver {
	return &Resolver{
		Search:       search,
		Cache:        cache,
		Workers:      8,
		ItemTimeout:  5 * time.Second,
		BatchTimeout: 20 * time.Second,
	}
}

// ResolveOne resolves a single key. The returned place keeps the stored key so
// ratings filed under it still join, whatever the gateway describes it as today.
func (r *Resolver) ResolveOne(ctx context.Context, placeKey string) (Place, error) {
	query, coordinate, ok := Decode(placeKey)
	if !ok {
		return Place{}, ErrUnknownLocation
	}

	if r.Cache != nil {
		cached, err := r.Cache.FetchFromCache(ctx, placeKey)
		if err != nil {
			log.Println("Failed to fetch place from cache:", err)
		} else if cached.Key != "" {
			return cached, nil
		}
	}

	region := RegionAround(coordinate, resolveRegionMeters)
	places, err := r.Search.Search(ctx, query, &region, 1)
	if err != nil {
		return Place{}, err
	}
	if len(places) == 0 {
		return Place{}, ErrUnknownLocation
	}

	place := places[0]
	place.Key = placeKey
	if r.Cache != nil {
		go r.Cache.SaveInCache(context.Background(), []Place{place})
	}
	return place, nil
}

// Resolve looks up every key concurrently and returns the places that resolved.
// Undecodable keys, failed lookups and lookups that miss their deadline are
// skipped. Result order is unspecified.
func (r *Resolver) Resolve(ctx context.Context, placeKeys []string) []Place {
	if r.BatchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.BatchTimeout)
		defer cancel()
	}

	var (
		mu     sync.Mutex
		places = make([]Place, 0, len(placeKeys))
	)
	group, groupCtx := errgroup.WithContext(ctx)
	if r.Workers > 0 {
		group.SetLimit(r.Workers)
	}

	for _, placeKey := range placeKeys {
		if _, _, ok := Decode(placeKey); !ok {
			log.Printf("Error parsing place key %q", placeKey)
			continue
		}
		placeKey := placeKey
		group.Go(func() error {
			if groupCtx.Err() != nil {
				return nil
			}
			itemCtx := groupCtx
			if r.ItemTimeout > 0 {
				var cancel context.CancelFunc
				itemCtx, cancel = context.WithTimeout(groupCtx, r.ItemTimeout)
				defer cancel()
			}
			// the gateway may ignore cancellation, so wait on the context as well
			done := make(chan resolution, 1)
			go func() {
				place, err := r.ResolveOne(itemCtx, placeKey)
				done <- resolution{place, err}
			}()
			select {
			case res := <-done:
				if res.err != nil {
					log.Printf("Error searching for place %q: %v", placeKey, res.err)
					return nil
				}
				mu.Lock()
				places = append(places, res.place)
				mu.Unlock()
			case <-itemCtx.Done():
				log.Printf("Gave up on place %q: %v", placeKey, itemCtx.Err())
			}
			return nil
		})
	}
	_ = group.Wait()
	return places
}
