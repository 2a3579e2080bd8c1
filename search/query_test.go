package search

import (
	"reflect"
	"testing"
)

func TestEmptyPredicatesAreNeutral(t *testing.T) {
	implicit := Predicates{}.query()
	explicit := Predicates{
		Cities:           []string{},
		MaxPrice:         0,
		ExcludeIDs:       []string{},
		RequiredFeatures: []string{},
	}.query()

	if !reflect.DeepEqual(implicit, explicit) {
		t.Fatalf("zero-value and explicitly-empty predicates differ:\n%#v\n%#v", implicit, explicit)
	}
	if _, ok := implicit["match_all"]; !ok {
		t.Fatalf("empty predicates must build match_all, got %#v", implicit)
	}
}

func TestZeroMaxPriceMeansNoFilter(t *testing.T) {
	q := Predicates{MaxPrice: 0}.query()
	if _, ok := q["match_all"]; !ok {
		t.Fatalf("maxPrice 0 must not add a price clause, got %#v", q)
	}

	q = Predicates{MaxPrice: 100000}.query()
	must := q["bool"].(map[string]any)["must"].([]any)
	rng := must[0].(map[string]any)["range"].(map[string]any)["price"].(map[string]any)
	if rng["lte"] != 100000.0 || rng["gte"] != 0 {
		t.Fatalf("price range = %#v, want [0, 100000]", rng)
	}
}

func TestCityPredicateFoldsAccents(t *testing.T) {
	q := Predicates{Cities: []string{"Hellemmes-Lille", "Wambrechies "}}.query()
	must := q["bool"].(map[string]any)["must"].([]any)
	pattern := must[0].(map[string]any)["regexp"].(map[string]any)["city"].(string)

	want := `.*(hellemmes\-lille|wambrechies).*`
	if pattern != want {
		t.Fatalf("city pattern = %q, want %q", pattern, want)
	}
}

func TestFeaturesComposeWithAnd(t *testing.T) {
	q := Predicates{RequiredFeatures: []string{"jardin", "garage"}}.query()
	must := q["bool"].(map[string]any)["must"].([]any)
	if len(must) != 2 {
		t.Fatalf("expected one term clause per feature, got %d clauses", len(must))
	}
	for i, feature := range []string{"jardin", "garage"} {
		term := must[i].(map[string]any)["term"].(map[string]any)
		if term["features"] != feature {
			t.Fatalf("clause %d = %#v, want features term on %q", i, term, feature)
		}
	}
}

func TestBlankExcludeIdsAreFiltered(t *testing.T) {
	q := Predicates{ExcludeIDs: []string{"C_X", "", "  ", "C_Y"}}.query()
	mustNot := q["bool"].(map[string]any)["must_not"].([]any)
	values := mustNot[0].(map[string]any)["ids"].(map[string]any)["values"].([]string)

	want := []string{"C_X", "C_Y"}
	if !reflect.DeepEqual(values, want) {
		t.Fatalf("excluded ids = %v, want %v", values, want)
	}
}

func TestAllBlankExcludeIdsMeanNoClause(t *testing.T) {
	q := Predicates{ExcludeIDs: []string{"", "  "}}.query()
	if _, ok := q["match_all"]; !ok {
		t.Fatalf("all-blank exclude ids must be neutral, got %#v", q)
	}
}

func TestCatalogPredicate(t *testing.T) {
	q := Predicates{Catalog: "c1"}.query()
	must := q["bool"].(map[string]any)["must"].([]any)
	term := must[0].(map[string]any)["term"].(map[string]any)
	if term["catalog"] != "c1" {
		t.Fatalf("catalog clause = %#v", term)
	}
}
