package core

const (
	// OtherCategory is the fallback when no keyword matches.
	OtherCategory = "Other"
	// DefaultCategoryColor is used for categories missing from the registry.
	DefaultCategoryColor = "#6b7280"
)

// DefaultCategories is the registry seeded on first access. IDs are assigned
// by the store.
func DefaultCategories() []Category {
	return []Category{
		{Name: "Food & Dining", Icon: "fas fa-utensils", Color: "#f59e0b"},
		{Name: "Transportation", Icon: "fas fa-car", Color: "#3b82f6"},
		{Name: "Entertainment", Icon: "fas fa-gamepad", Color: "#8b5cf6"},
		{Name: "Shopping", Icon: "fas fa-shopping-cart", Color: "#06b6d4"},
		{Name: "Utilities", Icon: "fas fa-bolt", Color: "#ef4444"},
		{Name: "Healthcare", Icon: "fas fa-heartbeat", Color: "#10b981"},
		{Name: "Income", Icon: "fas fa-plus", Color: "#10b981"},
		{Name: OtherCategory, Icon: "fas fa-question", Color: DefaultCategoryColor},
	}
}

// CategoryColors maps category names to their display color.
func CategoryColors(cats []Category) map[string]string {
	out := make(map[string]string, len(cats))
	for _, c := range cats {
		out[c.Name] = c.Color
	}
	return out
}
