package commission

import "strings"

// MatchKeyword reports the first keyword contained in text, ignoring case.
// Blank keywords never match.
func MatchKeyword(text string, keywords []string) (string, bool) {
	if text == "" {
		return "", false
	}
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.TrimSpace(kw) == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(kw)) {
			return kw, true
		}
	}
	return "", false
}

// MatchPrefix reports whether text starts with any prefix, ignoring case.
func MatchPrefix(text string, prefixes []string) bool {
	if text == "" {
		return false
	}
	upper := strings.ToUpper(text)
	for _, p := range prefixes {
		if strings.TrimSpace(p) == "" {
			continue
		}
		if strings.HasPrefix(upper, strings.ToUpper(p)) {
			return true
		}
	}
	return false
}

func containsKeyword(text string, keywords []string) bool {
	_, ok := MatchKeyword(text, keywords)
	return ok
}

// Matches reports whether a sale's product or SKU falls in the category.
func (c FlatRateCategory) Matches(productName, sku string) bool {
	return containsKeyword(productName, c.ProductKeywords) || MatchPrefix(sku, c.SKUPrefixes)
}
