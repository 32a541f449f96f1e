package domain

import "context"

// Provider is one external listing source. Search returns a *ProviderError
// (never a panic) when it contributes nothing because of a failure.
type Provider interface {
	Name() Source
	Search(ctx context.Context, req SearchRequest) ([]Listing, error)
}

type Geocoder interface {
	// Geocode returns ErrNoMatch when the place resolves to nothing.
	Geocode(ctx context.Context, place string) (*Coords, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// LocationCodeSource supplies extra alias -> provider location code rows
// (e.g. "outer banks" -> "ORF") on top of the built-in table.
type LocationCodeSource interface {
	ListLocationCodes(ctx context.Context) (map[string]string, error)
}

type SearchLog interface {
	RecordSearch(ctx context.Context, run SearchRun) error
	RecentSearches(ctx context.Context, limit int) ([]SearchRun, error)
}
