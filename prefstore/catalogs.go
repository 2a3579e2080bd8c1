package prefstore

import (
	"context"
	"strings"

	"immodex/models"
	"immodex/textutil"
)

// Catalogs stores catalog registrations under "{root}/catalogs/{id}".
type Catalogs struct {
	store  *Store
	tenant string
}

func NewCatalogs(store *Store, rootNode string) *Catalogs {
	return &Catalogs{store: store, tenant: rootNode + "/catalogs"}
}

// Register upserts a catalog. The short name is the identity: registering
// it twice overwrites the previous registration.
func (c *Catalogs) Register(ctx context.Context, catalog *models.Catalog) error {
	if catalog == nil || strings.TrimSpace(catalog.ShortName) == "" {
		return ErrInvalidArgument
	}
	return c.store.Set(ctx, c.tenant, textutil.SafeKey(catalog.ID()), map[string]any{
		"short_name": catalog.ShortName,
		"long_name":  catalog.LongName,
		"zone":       catalog.Zone,
	})
}

// Unregister removes the catalog registration. Listings already ingested
// under the catalog are left alone.
func (c *Catalogs) Unregister(ctx context.Context, shortName string) error {
	if strings.TrimSpace(shortName) == "" {
		return ErrInvalidArgument
	}
	return c.store.Delete(ctx, c.tenant, textutil.SafeKey(shortName))
}

func (c *Catalogs) Get(ctx context.Context, shortName string) (*models.Catalog, error) {
	raw, err := c.store.Get(ctx, c.tenant, textutil.SafeKey(shortName), true)
	if err != nil {
		return nil, err
	}
	return decodeCatalog(asMap(raw)), nil
}

func (c *Catalogs) List(ctx context.Context) ([]models.Catalog, error) {
	values, err := c.store.ListAll(ctx, c.tenant)
	if err != nil {
		return nil, err
	}

	catalogs := make([]models.Catalog, 0, len(values))
	for _, v := range values {
		m := asMap(v)
		if m == nil {
			continue
		}
		catalogs = append(catalogs, *decodeCatalog(m))
	}
	return catalogs, nil
}

func decodeCatalog(m map[string]any) *models.Catalog {
	if m == nil {
		return &models.Catalog{}
	}
	return &models.Catalog{
		ShortName: asString(m["short_name"]),
		LongName:  asString(m["long_name"]),
		Zone:      asString(m["zone"]),
	}
}
