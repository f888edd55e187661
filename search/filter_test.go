package search

import (
	"reflect"
	"strings"
	"testing"
)

type product struct {
	Name        string
	Description string
	Category    string
}

var menu = []product{
	{Name: "Margherita Pizza", Description: "Tomato, mozzarella, basil", Category: "pizza"},
	{Name: "Caesar Salad", Description: "Romaine, parmesan, croutons", Category: "salads"},
	{Name: "Tiramisu", Description: "Coffee soaked ladyfingers", Category: "desserts"},
	{Name: "Café con Leche", Description: "Espresso with steamed milk", Category: "drinks"},
}

func TestMatches(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		fields []string
		want   bool
	}{
		{name: "emptyQuery", query: "", fields: []string{"x"}, want: true},
		{name: "blankQuery", query: "   ", fields: []string{"x"}, want: true},
		{name: "caseInsensitive", query: "PIZZA", fields: []string{"Margherita Pizza"}, want: true},
		{name: "secondField", query: "basil", fields: []string{"Margherita", "tomato, basil"}, want: true},
		{name: "noMatch", query: "sushi", fields: []string{"Margherita", "tomato"}, want: false},
		{name: "accentedRunes", query: "CAFÉ", fields: []string{"café con leche"}, want: true},
		{name: "noFields", query: "a", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(tt.query, tt.fields...); got != tt.want {
				t.Errorf("Matches(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestFilterOnlyReturnsMatches(t *testing.T) {
	queries := []string{"a", "PAR", "coffee", "zzz", "Caf", ""}
	for _, q := range queries {
		got := Filter(menu, func(p product) bool { return Matches(q, p.Name, p.Description) })
		for _, p := range got {
			lq := strings.ToLower(q)
			if !strings.Contains(strings.ToLower(p.Name), lq) && !strings.Contains(strings.ToLower(p.Description), lq) {
				t.Errorf("query %q returned non matching %q", q, p.Name)
			}
		}
		// and nothing that matches was dropped
		want := 0
		for _, p := range menu {
			if Matches(q, p.Name, p.Description) {
				want++
			}
		}
		if len(got) != want {
			t.Errorf("query %q returned %d items, want %d", q, len(got), want)
		}
	}
}

func TestFacet(t *testing.T) {
	all := NewFacet[string]()
	if !all.Allows("anything") {
		t.Error("empty facet should allow everything")
	}
	f := NewFacet("pizza", "desserts")
	got := Filter(menu, func(p product) bool { return f.Allows(p.Category) })
	names := []string{}
	for _, p := range got {
		names = append(names, p.Name)
	}
	want := []string{"Margherita Pizza", "Tiramisu"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("facet filter = %v, want %v", names, want)
	}
}

func TestParseList(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{"", nil},
		{"pending", []string{"pending"}},
		{"pending, ready ,,", []string{"pending", "ready"}},
	}
	for _, tt := range tests {
		if got := ParseList(tt.raw); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseList(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestGroupBy(t *testing.T) {
	groups := GroupBy(menu, func(p product) int { return len(p.Category) })
	if len(groups[5]) != 1 || groups[5][0].Name != "Margherita Pizza" {
		t.Errorf("GroupBy()[5] = %v", groups[5])
	}
	if len(groups[6]) != 2 {
		t.Errorf("GroupBy()[6] has %d items, want 2", len(groups[6]))
	}
}
