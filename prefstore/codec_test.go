package prefstore

import (
	"reflect"
	"testing"
)

func TestFlattenLists(t *testing.T) {
	cases := map[string]struct {
		in   any
		want any
	}{
		"string slice":   {[]string{"lille", "roubaix", "lille"}, "lille,roubaix"},
		"any slice":      {[]any{"b", "a"}, "a,b"},
		"comma string":   {"roubaix, lille,lille", "lille,roubaix"},
		"blank items":    {[]string{" ", "lille", ""}, "lille"},
		"number":         {350000, "350000"},
		"bool":           {true, "true"},
		"empty list":     {[]string{}, ""},
	}

	for name, tc := range cases {
		if got := Flatten(tc.in); got != tc.want {
			t.Fatalf("%s: Flatten(%v) = %v, want %v", name, tc.in, got, tc.want)
		}
	}
}

func TestFlattenNestedMap(t *testing.T) {
	in := map[string]any{
		"filter": map[string]any{
			"city":      []string{"wasquehal", "croix", "croix"},
			"max_price": 250000.0,
		},
		"firstname": "ada",
	}

	got := Flatten(in)
	want := map[string]any{
		"filter": map[string]any{
			"city":      "croix,wasquehal",
			"max_price": "250000",
		},
		"firstname": "ada",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Flatten nested = %#v, want %#v", got, want)
	}
}

func TestSplitList(t *testing.T) {
	cases := map[string][]string{
		"croix,wasquehal": {"croix", "wasquehal"},
		" croix , ,":      {"croix"},
		"":                {},
		"lille":           {"lille"},
	}

	for in, want := range cases {
		if got := SplitList(in); !reflect.DeepEqual(got, want) {
			t.Fatalf("SplitList(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFlattenRoundTrip(t *testing.T) {
	stored := Flatten([]string{"garage", "jardin"})
	s, ok := stored.(string)
	if !ok {
		t.Fatalf("expected string wire form, got %T", stored)
	}
	got := SplitList(s)
	want := []string{"garage", "jardin"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip = %v, want %v", got, want)
	}
}
