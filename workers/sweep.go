package workers

import (
	"context"
	"log"
	"strings"

	"immodex/prefstore"
	"immodex/search"
)

// ZoneIndex is the slice of the search session the sweeper needs.
type ZoneIndex interface {
	DeleteOlderThan(ctx context.Context, days int) (int, error)
}

// Sweeper removes obsolete listings: anything whose last ingest is older
// than the zone's threshold is no longer offered and gets deleted. The
// reconciler cleans up the user references this leaves dangling.
type Sweeper struct {
	indexes func(zone string) ZoneIndex
}

func NewSweeper(indexes func(zone string) ZoneIndex) *Sweeper {
	return &Sweeper{indexes: indexes}
}

func (s *Sweeper) SweepZone(ctx context.Context, zone string, maxDays int) (int, error) {
	if strings.TrimSpace(zone) == "" || maxDays <= 0 {
		return 0, prefstore.ErrInvalidArgument
	}

	deleted, err := s.indexes(zone).DeleteOlderThan(ctx, maxDays)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		log.Printf("Sweep of %s removed %d listings older than %d days", zone, deleted, maxDays)
	}
	return deleted, nil
}

var _ ZoneIndex = (*search.Session)(nil)
