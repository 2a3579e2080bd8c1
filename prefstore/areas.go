package prefstore

import (
	"context"
	"strings"

	"immodex/models"
	"immodex/textutil"
)

// Areas stores named city groups under "{root}/areas/{zone}/{name}". Areas
// are scoped per zone: the same name can mean different cities in two
// zones.
type Areas struct {
	store *Store
	root  string
}

func NewAreas(store *Store, rootNode string) *Areas {
	return &Areas{store: store, root: rootNode + "/areas"}
}

func (a *Areas) tenant(zone string) string {
	return a.root + "/" + zone
}

func (a *Areas) Register(ctx context.Context, zone string, area *models.Area) error {
	if strings.TrimSpace(zone) == "" || area == nil || strings.TrimSpace(area.Name) == "" {
		return ErrInvalidArgument
	}
	return a.store.Set(ctx, a.tenant(zone), textutil.SafeKey(area.Name), map[string]any{
		"name":   area.Name,
		"cities": area.Cities,
	})
}

func (a *Areas) Get(ctx context.Context, zone, name string) (*models.Area, error) {
	if strings.TrimSpace(zone) == "" {
		return nil, ErrInvalidArgument
	}
	raw, err := a.store.Get(ctx, a.tenant(zone), textutil.SafeKey(name), true)
	if err != nil {
		return nil, err
	}
	return decodeArea(asMap(raw)), nil
}

func (a *Areas) List(ctx context.Context, zone string) ([]models.Area, error) {
	if strings.TrimSpace(zone) == "" {
		return nil, ErrInvalidArgument
	}
	values, err := a.store.ListAll(ctx, a.tenant(zone))
	if err != nil {
		return nil, err
	}

	areas := make([]models.Area, 0, len(values))
	for _, v := range values {
		m := asMap(v)
		if m == nil {
			continue
		}
		areas = append(areas, *decodeArea(m))
	}
	return areas, nil
}

func decodeArea(m map[string]any) *models.Area {
	if m == nil {
		return &models.Area{}
	}
	return &models.Area{
		Name:   asString(m["name"]),
		Cities: asList(m["cities"]),
	}
}
