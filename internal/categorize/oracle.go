// Package categorize maps free-text transaction descriptions to registry
// categories using a static keyword table.
package categorize

import (
	"sort"
	"strings"

	"fintrack/internal/core"
)

// confidencePerMatchTenths is the confidence, in tenths, added per matching keyword.
const (
	confidencePerMatchTenths = 3
	maxSuggestions           = 3
)

type rule struct {
	category string
	keywords []string
}

// Suggestion is a candidate category with a confidence in (0, 1].
type Suggestion struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// Result is the full answer for one description.
type Result struct {
	Category    string       `json:"category"`
	Confidence  float64      `json:"confidence"`
	Suggestions []Suggestion `json:"suggestions"`
}

// Oracle is safe for concurrent use; its table is never mutated.
type Oracle struct {
	rules []rule
}

// New returns an oracle with the default keyword table. Rules are tried in
// order and the first category with any matching keyword wins.
func New() *Oracle {
	return &Oracle{rules: defaultRules}
}

var defaultRules = []rule{
	{"Food & Dining", []string{
		"restaurant", "coffee", "starbucks", "mcdonald", "pizza", "burger", "taco", "food", "dining",
		"cafe", "bakery", "bar", "pub", "kitchen", "eat", "grocery", "supermarket", "market",
		"whole foods", "trader joe", "safeway",
	}},
	{"Transportation", []string{
		"gas", "fuel", "shell", "exxon", "chevron", "bp", "uber", "lyft", "taxi", "metro", "bus",
		"train", "parking", "toll", "car", "auto", "repair", "tire", "oil change", "airline",
		"flight", "airport",
	}},
	{"Entertainment", []string{
		"movie", "cinema", "theater", "netflix", "spotify", "apple music", "hulu", "disney",
		"amazon prime", "youtube", "game", "gaming", "steam", "xbox", "playstation", "concert",
		"show", "event", "ticket", "music", "book",
	}},
	{"Shopping", []string{
		"amazon", "target", "walmart", "costco", "best buy", "apple store", "clothing", "shoes",
		"electronics", "home depot", "lowes", "ikea", "mall", "store", "shop", "purchase", "buy", "order",
	}},
	{"Utilities", []string{
		"electric", "electricity", "gas bill", "water", "internet", "phone", "cable", "utility",
		"bill", "comcast", "verizon", "att", "sprint", "energy", "power", "waste", "garbage", "recycling",
	}},
	{"Healthcare", []string{
		"doctor", "hospital", "clinic", "pharmacy", "cvs", "walgreens", "medical", "health",
		"dentist", "dental", "vision", "eye", "prescription", "medicine", "insurance", "copay",
		"therapy", "physical therapy",
	}},
	{"Income", []string{
		"salary", "paycheck", "deposit", "direct deposit", "bonus", "refund", "tax refund",
		"cashback", "dividend", "interest", "freelance", "contract",
	}},
}

func normalize(description string) string {
	return strings.ToLower(strings.TrimSpace(description))
}

// Categorize returns the first category whose keywords occur in the
// description, or "Other" when the description is empty or nothing matches.
func (o *Oracle) Categorize(description string) string {
	desc := normalize(description)
	if desc == "" {
		return core.OtherCategory
	}
	for _, r := range o.rules {
		if r.matches(desc) > 0 {
			return r.category
		}
	}
	return core.OtherCategory
}

// Confidence is 0.3 per matching keyword of category, capped at 1.
func (o *Oracle) Confidence(description, category string) float64 {
	desc := normalize(description)
	if desc == "" {
		return 0
	}
	for _, r := range o.rules {
		if r.category == category {
			return confidence(r.matches(desc))
		}
	}
	return 0
}

// Suggest returns up to three categories with a positive confidence, most
// confident first. Ties keep table order.
func (o *Oracle) Suggest(description string) []Suggestion {
	desc := normalize(description)
	out := []Suggestion{}
	if desc == "" {
		return out
	}
	for _, r := range o.rules {
		if n := r.matches(desc); n > 0 {
			out = append(out, Suggestion{Category: r.category, Confidence: confidence(n)})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	if len(out) > maxSuggestions {
		out = out[:maxSuggestions]
	}
	return out
}

// Analyze combines Categorize, Confidence and Suggest.
func (o *Oracle) Analyze(description string) Result {
	category := o.Categorize(description)
	return Result{
		Category:    category,
		Confidence:  o.Confidence(description, category),
		Suggestions: o.Suggest(description),
	}
}

func (r rule) matches(desc string) int {
	n := 0
	for _, kw := range r.keywords {
		if strings.Contains(desc, kw) {
			n++
		}
	}
	return n
}

func confidence(matches int) float64 {
	tenths := matches * confidencePerMatchTenths
	if tenths >= 10 {
		return 1
	}
	return float64(tenths) / 10
}
