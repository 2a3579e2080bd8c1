package prefstore

import (
	"context"
	"strings"

	"immodex/models"
)

// Users stores user records under "{root}/users/{id}".
type Users struct {
	store  *Store
	tenant string
}

func NewUsers(store *Store, rootNode string) *Users {
	return &Users{store: store, tenant: rootNode + "/users"}
}

// Get fetches a user. Reads always go to the live store: user records are
// updated from several places (API writes, reconciliation) and a stale
// seen-list produces wrong search exclusions.
func (u *Users) Get(ctx context.Context, id string) (*models.User, error) {
	raw, err := u.store.Get(ctx, u.tenant, id, false)
	if err != nil {
		return nil, err
	}
	return decodeUser(id, asMap(raw)), nil
}

// Save writes the full record, then reads it back uncached so the caller
// sees the record exactly as stored, wire flattening included.
func (u *Users) Save(ctx context.Context, user *models.User) (*models.User, error) {
	if user == nil || strings.TrimSpace(user.ID) == "" {
		return nil, ErrInvalidArgument
	}
	if err := u.store.Set(ctx, u.tenant, user.ID, encodeUser(user)); err != nil {
		return nil, err
	}
	return u.Get(ctx, user.ID)
}

// Merge applies a shallow overlay: each top-level key in patch replaces
// the stored key wholesale, untouched keys survive. Patching a nested
// field therefore requires sending its whole top-level subtree.
func (u *Users) Merge(ctx context.Context, id string, patch map[string]any) (*models.User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrInvalidArgument
	}

	raw, err := u.store.Get(ctx, u.tenant, id, false)
	if err != nil {
		return nil, err
	}

	record := asMap(raw)
	if record == nil {
		record = make(map[string]any)
	}
	for k, v := range patch {
		record[k] = v
	}

	if err := u.store.Set(ctx, u.tenant, id, record); err != nil {
		return nil, err
	}
	return u.Get(ctx, id)
}

// List returns every user record. Uncached; used by the reconciliation
// sweep, which must not act on stale ids.
func (u *Users) List(ctx context.Context) ([]models.User, error) {
	values, err := u.store.ListAll(ctx, u.tenant)
	if err != nil {
		return nil, err
	}

	users := make([]models.User, 0, len(values))
	for _, v := range values {
		m := asMap(v)
		if m == nil {
			continue
		}
		users = append(users, *decodeUser(asString(m["id"]), m))
	}
	return users, nil
}

func encodeUser(user *models.User) map[string]any {
	return map[string]any{
		"id":        user.ID,
		"firstname": user.Firstname,
		"lastname":  user.Lastname,
		"filter": map[string]any{
			"city":            user.Filter.City,
			"max_price":       user.Filter.MaxPrice,
			"include_deja_vu": user.Filter.IncludeDejaVu,
			"area":            user.Filter.Area,
		},
		"deja_vu": encodeSeen(user.DejaVu),
		"tbv":     encodeSeen(user.TBV),
	}
}

func encodeSeen(seen map[string][]string) map[string]any {
	out := make(map[string]any, len(seen))
	for catalog, ids := range seen {
		out[catalog] = ids
	}
	return out
}

func decodeUser(id string, m map[string]any) *models.User {
	user := &models.User{ID: id}
	if m == nil {
		return user
	}

	if stored := asString(m["id"]); stored != "" {
		user.ID = stored
	}
	user.Firstname = asString(m["firstname"])
	user.Lastname = asString(m["lastname"])

	if filter := asMap(m["filter"]); filter != nil {
		user.Filter = models.UserFilter{
			City:          asList(filter["city"]),
			MaxPrice:      asFloat(filter["max_price"]),
			IncludeDejaVu: asBool(filter["include_deja_vu"]),
			Area:          asString(filter["area"]),
		}
	}

	user.DejaVu = decodeSeen(m["deja_vu"])
	user.TBV = decodeSeen(m["tbv"])
	return user
}

func decodeSeen(v any) map[string][]string {
	m := asMap(v)
	if m == nil {
		return map[string][]string{}
	}
	out := make(map[string][]string, len(m))
	for catalog, ids := range m {
		out[catalog] = asList(ids)
	}
	return out
}
