package domain

// Category is the single best-matching merchant class for a description,
// assigned by first-match keyword lookup over a fixed priority order.
type Category string

const (
	CategoryHealthcare    Category = "healthcare"
	CategoryTransport     Category = "transport"
	CategoryFood          Category = "food"
	CategoryBills         Category = "bills"
	CategoryEducation     Category = "education"
	CategoryShopping      Category = "shopping"
	CategoryGrocery       Category = "grocery"
	CategoryEntertainment Category = "entertainment"
	CategoryUnknown       Category = "unknown"
)

// FeatureSet is the read-only lexical snapshot derived from a transaction
// description. Computed once per request and never mutated afterwards.
type FeatureSet struct {
	TextLength      int      `json:"textLength"`
	WordCount       int      `json:"wordCount"`
	SuspiciousCount int      `json:"suspiciousKeywordCount"`
	SafeCount       int      `json:"safeKeywordCount"`
	Category        Category `json:"category"`
	IsEmergency     bool     `json:"isEmergency"`
	IsAllCaps       bool     `json:"isAllCaps"`
	HasDigits       bool     `json:"hasDigits"`
}
