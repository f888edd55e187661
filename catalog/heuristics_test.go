package catalog

import "testing"

func TestSuggestIcon(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "english", in: "Pizzas", want: "pizza"},
		{name: "spanish", in: "Hamburguesas Gourmet", want: "hamburger"},
		{name: "accentInsensitive", in: "CAFÉ y Té", want: "mug-hot"},
		{name: "accentInKeyword", in: "Menu Ninos", want: "child"},
		{name: "firstHitWins", in: "Pizza Burger", want: "pizza"},
		{name: "unknown", in: "Chef Specials", want: DefaultIcon},
		{name: "empty", in: "  ", want: DefaultIcon},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SuggestIcon(tt.in); got != tt.want {
				t.Errorf("SuggestIcon(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSuggestDescription(t *testing.T) {
	if got := SuggestDescription("Vinos de la casa"); got != "Selected red, white and rosé wines" {
		t.Errorf("SuggestDescription(vinos) = %q", got)
	}
	if got := SuggestDescription("Chef Specials"); got != "House selection of chef specials" {
		t.Errorf("SuggestDescription(fallback) = %q", got)
	}
	if got := SuggestDescription(""); got != "" {
		t.Errorf("SuggestDescription(empty) = %q, want empty", got)
	}
}
