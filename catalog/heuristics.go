package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const DefaultIcon = "utensils"

type hint struct {
	keywords    []string
	icon        string
	description string
}

// hints is checked in order; the first keyword hit wins.
var hints = []hint{
	{[]string{"pizza"}, "pizza", "Stone-baked pizzas made to order"},
	{[]string{"burger", "hamburguesa"}, "hamburger", "Grilled burgers served with sides"},
	{[]string{"sushi", "roll", "maki"}, "fish", "Fresh sushi and rolls"},
	{[]string{"pasta", "spaghetti", "lasagna"}, "bowl-food", "Homemade pasta dishes"},
	{[]string{"ensalada", "salad"}, "leaf", "Fresh salads and greens"},
	{[]string{"postre", "dessert", "helado", "ice cream", "pastel", "cake"}, "ice-cream", "Sweet treats to finish the meal"},
	{[]string{"cafe", "coffee", "espresso", "latte"}, "mug-hot", "Hot coffee and espresso drinks"},
	{[]string{"cerveza", "beer"}, "beer", "Draft and bottled beers"},
	{[]string{"vino", "wine"}, "wine-glass", "Selected red, white and rosé wines"},
	{[]string{"coctel", "cocktail", "trago"}, "martini-glass", "Classic and signature cocktails"},
	{[]string{"bebida", "drink", "jugo", "juice", "refresco", "soda"}, "glass-water", "Cold drinks and juices"},
	{[]string{"sopa", "soup", "caldo"}, "bowl-hot", "Soups of the day"},
	{[]string{"carne", "steak", "parrilla", "grill"}, "drumstick-bite", "Grilled meats and steaks"},
	{[]string{"pollo", "chicken"}, "drumstick-bite", "Chicken specialties"},
	{[]string{"pescado", "mariscos", "seafood", "fish"}, "fish", "Fish and seafood from the daily catch"},
	{[]string{"taco", "burrito", "mexican"}, "pepper-hot", "Mexican street food"},
	{[]string{"desayuno", "breakfast", "brunch"}, "egg", "Breakfast served all morning"},
	{[]string{"entrada", "starter", "appetizer", "tapas"}, "cheese", "Starters to share"},
	{[]string{"vegano", "vegan", "vegetariano", "vegetarian"}, "seedling", "Plant-based dishes"},
	{[]string{"infantil", "kids", "niños"}, "child", "Smaller plates for kids"},
}

// normalize lower-cases and strips accents so "Café" matches "cafe".
// Chains carry state, so each call builds its own.
func normalize(s string) string {
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(fold, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

func lookup(name string) (hint, bool) {
	n := normalize(name)
	if n == "" {
		return hint{}, false
	}
	for _, h := range hints {
		for _, kw := range h.keywords {
			if strings.Contains(n, normalize(kw)) {
				return h, true
			}
		}
	}
	return hint{}, false
}

// SuggestIcon picks an icon name for a category or product from its name.
func SuggestIcon(name string) string {
	if h, ok := lookup(name); ok {
		return h.icon
	}
	return DefaultIcon
}

// SuggestDescription returns a stock description, or a generic one built from the name.
func SuggestDescription(name string) string {
	if h, ok := lookup(name); ok {
		return h.description
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return "House selection of " + strings.ToLower(name)
}
