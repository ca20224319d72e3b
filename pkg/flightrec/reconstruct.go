package flightrec

import (
	"context"

	"github.com/bft-labs/flightrec/internal/adapters/sqlstore"
	"github.com/bft-labs/flightrec/internal/app"
)

// Reconstruct opens the store at location read-only and returns its
// chronology. Open failures wrap ErrStoreOpen and read failures wrap
// ErrStoreRead; on a read failure no events are returned.
func Reconstruct(ctx context.Context, location string, tb TieBreak) ([]Event, error) {
	store, err := sqlstore.Open(ctx, location, sqlstore.Options{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer store.Close()

	return app.ReconstructStore(ctx, store, tb)
}
