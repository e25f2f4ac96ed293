// Package text derives lexical fraud signals from transaction descriptions.
package text

import (
	"strings"
	"unicode"

	"github.com/opensource-finance/fraudguard/internal/domain"
)

// suspiciousKeywords flag scam language. Matching is case-insensitive
// substring presence; each keyword counts at most once.
var suspiciousKeywords = []string{
	"urgent", "verify", "account", "claim", "prize", "lottery",
	"inheritance", "prince", "wire", "overseas", "cryptocurrency",
	"bitcoin", "gift card", "western union", "money gram", "confirm",
	"security", "bank details", "password", "otp", "winning",
	"congratulations", "selected", "award", "million", "billion",
	"transfer to unknown", "verify now", "action required", "click here",
	"limited time", "expires today", "last chance", "act now",
}

// categoryOrder fixes category resolution priority: the first category in
// this list with any keyword match wins.
var categoryOrder = []domain.Category{
	domain.CategoryHealthcare,
	domain.CategoryTransport,
	domain.CategoryFood,
	domain.CategoryBills,
	domain.CategoryEducation,
	domain.CategoryShopping,
	domain.CategoryGrocery,
	domain.CategoryEntertainment,
}

var categoryKeywords = map[domain.Category][]string{
	domain.CategoryHealthcare: {
		"hospital", "apollo", "max", "fortis", "aiims", "clinic", "doctor",
		"medicine", "pharmacy", "medical", "health", "dental", "eye", "chemist",
	},
	domain.CategoryTransport: {
		"uber", "ola", "rapido", "taxi", "cab", "auto", "metro", "bus",
		"train", "flight", "petrol", "fuel", "toll",
	},
	domain.CategoryFood: {
		"swiggy", "zomato", "restaurant", "cafe", "dinner", "lunch",
		"breakfast", "food", "pizza", "burger", "mcdonalds", "dominos",
	},
	domain.CategoryBills: {
		"electricity", "water", "gas", "bill", "rent", "maintenance",
		"society", "broadband", "internet", "phone",
	},
	domain.CategoryEducation: {
		"school", "college", "university", "tuition", "fees", "education", "class",
	},
	domain.CategoryShopping: {
		"amazon", "flipkart", "myntra", "ajio", "shopping", "mall", "store",
	},
	domain.CategoryGrocery: {
		"bigbasket", "grofers", "zepto", "blinkit", "grocery", "vegetables", "milk",
	},
	domain.CategoryEntertainment: {
		"netflix", "prime", "hotstar", "sony liv", "spotify", "youtube",
		"movie", "cinema",
	},
}

// emergencyServices can be trusted even at night. Checked independently of
// category resolution.
var emergencyServices = []string{"hospital", "ambulance", "police", "fire", "emergency"}

// Extract computes the FeatureSet for a description. Pure function of its
// input and the fixed keyword tables; an absent description is treated as
// empty text.
func Extract(description string) domain.FeatureSet {
	fs := domain.FeatureSet{Category: domain.CategoryUnknown}
	if description == "" {
		return fs
	}

	lower := strings.ToLower(description)

	fs.TextLength = len(description)
	fs.WordCount = len(strings.Fields(lower))
	fs.IsAllCaps = isAllCaps(description)
	fs.HasDigits = strings.ContainsFunc(description, unicode.IsDigit)

	for _, kw := range suspiciousKeywords {
		if strings.Contains(lower, kw) {
			fs.SuspiciousCount++
		}
	}

	for _, keywords := range categoryKeywords {
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				fs.SafeCount++
			}
		}
	}

	// First matching category in priority order wins.
	for _, cat := range categoryOrder {
		if anyKeyword(lower, categoryKeywords[cat]) {
			fs.Category = cat
			break
		}
	}

	fs.IsEmergency = anyKeyword(lower, emergencyServices)

	return fs
}

func anyKeyword(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// isAllCaps is true only for raw text longer than 3 characters that is
// entirely upper-case and contains at least one letter.
func isAllCaps(s string) bool {
	if len(s) <= 3 {
		return false
	}
	hasLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}
