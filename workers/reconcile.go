package workers

import (
	"context"
	"log"
	"strings"

	"immodex/models"
	"immodex/prefstore"
	"immodex/search"
)

// Prober answers whether a listing id still resolves in a zone's index.
type Prober interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// UserStore is the slice of the preference store the reconciler needs.
type UserStore interface {
	Get(ctx context.Context, id string) (*models.User, error)
	Save(ctx context.Context, user *models.User) (*models.User, error)
}

// ReconcileResult lists the orphaned ids removed from each reference list.
type ReconcileResult struct {
	DejaVu []string `json:"deja_vu"`
	TBV    []string `json:"tbv"`
}

// Reconciler repairs user records whose seen/shortlist ids reference
// listings that have been swept from the search store.
type Reconciler struct {
	users   UserStore
	probers func(zone string) Prober
}

func NewReconciler(users UserStore, probers func(zone string) Prober) *Reconciler {
	return &Reconciler{users: users, probers: probers}
}

// CleanupUser walks the user's deja-vu and to-be-visited lists for the
// zone, drops every id the search store no longer resolves, and persists
// the corrected record once at the end. Idempotent: a second run with no
// intervening deletions finds nothing to drop.
func (r *Reconciler) CleanupUser(ctx context.Context, zone, userID string) (*ReconcileResult, error) {
	if strings.TrimSpace(zone) == "" || strings.TrimSpace(userID) == "" {
		return nil, prefstore.ErrInvalidArgument
	}

	user, err := r.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if user.DejaVu == nil {
		user.DejaVu = map[string][]string{}
	}
	if user.TBV == nil {
		user.TBV = map[string][]string{}
	}

	prober := r.probers(zone)
	result := &ReconcileResult{DejaVu: []string{}, TBV: []string{}}

	user.DejaVu[zone], result.DejaVu = r.surviving(ctx, prober, user.DejaVu[zone])
	user.TBV[zone], result.TBV = r.surviving(ctx, prober, user.TBV[zone])

	// one write covering both corrected lists
	if _, err := r.users.Save(ctx, user); err != nil {
		return nil, err
	}

	if len(result.DejaVu) > 0 || len(result.TBV) > 0 {
		log.Printf("Cleaned up user %s in %s: %d deja-vu orphans, %d tbv orphans",
			userID, zone, len(result.DejaVu), len(result.TBV))
	}
	return result, nil
}

// surviving splits ids into kept and orphaned. A probe error keeps the id:
// a transient search-store failure must never cause a spurious deletion.
func (r *Reconciler) surviving(ctx context.Context, prober Prober, ids []string) ([]string, []string) {
	kept := make([]string, 0, len(ids))
	orphans := []string{}

	for _, id := range ids {
		found, err := prober.Exists(ctx, id)
		if err != nil {
			log.Printf("Probe of %s failed, keeping it: %v", id, err)
			kept = append(kept, id)
			continue
		}
		if !found {
			orphans = append(orphans, id)
			continue
		}
		kept = append(kept, id)
	}
	return kept, orphans
}

var (
	_ Prober    = (*search.Session)(nil)
	_ UserStore = (*prefstore.Users)(nil)
)
