package prefstore

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"immodex/models"
)

func TestCatalogsRegisterAndGet(t *testing.T) {
	backend := newFakeBackend(t)
	store := newTestStore(t, backend.config())
	catalogs := NewCatalogs(store, "real-estate")
	ctx := context.Background()

	err := catalogs.Register(ctx, &models.Catalog{
		ShortName: "c1",
		LongName:  "Catalog One",
		Zone:      "z1",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	got, err := catalogs.Get(ctx, "c1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.LongName != "Catalog One" || got.Zone != "z1" {
		t.Fatalf("catalog = %+v", got)
	}
}

func TestCatalogsRejectBlankShortName(t *testing.T) {
	backend := newFakeBackend(t)
	catalogs := NewCatalogs(newTestStore(t, backend.config()), "real-estate")
	ctx := context.Background()

	if err := catalogs.Register(ctx, &models.Catalog{ShortName: "  "}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("got %v, want ErrInvalidArgument", err)
	}
	if err := catalogs.Unregister(ctx, ""); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("got %v, want ErrInvalidArgument", err)
	}
}

func TestCatalogsUnregister(t *testing.T) {
	backend := newFakeBackend(t)
	catalogs := NewCatalogs(newTestStore(t, backend.config()), "real-estate")
	ctx := context.Background()

	catalogs.Register(ctx, &models.Catalog{ShortName: "c1", Zone: "z1"})
	if err := catalogs.Unregister(ctx, "c1"); err != nil {
		t.Fatalf("Unregister: %v", err)
	}
	if _, err := catalogs.Get(ctx, "c1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v after unregister, want ErrNotFound", err)
	}
}

func TestAreasScopedPerZone(t *testing.T) {
	backend := newFakeBackend(t)
	areas := NewAreas(newTestStore(t, backend.config()), "real-estate")
	ctx := context.Background()

	err := areas.Register(ctx, "z1", &models.Area{
		Name:   "centre",
		Cities: []string{"lille", "la madeleine"},
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	areas.Register(ctx, "z2", &models.Area{Name: "centre", Cities: []string{"paris"}})

	got, err := areas.Get(ctx, "z1", "centre")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if want := []string{"la madeleine", "lille"}; !reflect.DeepEqual(got.Cities, want) {
		t.Fatalf("cities = %v, want %v", got.Cities, want)
	}

	other, err := areas.Get(ctx, "z2", "centre")
	if err != nil {
		t.Fatalf("Get z2: %v", err)
	}
	if !reflect.DeepEqual(other.Cities, []string{"paris"}) {
		t.Fatalf("z2 cities = %v, zones must not share areas", other.Cities)
	}

	all, err := areas.List(ctx, "z1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("z1 has %d areas, want 1", len(all))
	}
}
