package genre

import "strings"

// Normalize maps an arbitrary free-text genre string to a canonical genre.
// Lookup order: exact match against the taxonomy's reverse index, then the
// ordered keyword rules, then Other. The function is pure and idempotent:
// canonical genres map to themselves.
func Normalize(raw string) Canonical {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return Other
	}

	if canonical, ok := reverseIndex[s]; ok {
		return canonical
	}

	for _, rule := range keywordRules {
		for _, kw := range rule.keywords {
			if strings.Contains(s, kw) {
				return rule.family
			}
		}
	}

	return Other
}
