// Package sports holds the static sport code table used by subscription
// filters and the broadcast dispatcher.
package sports

// SlugUnknown is returned for sport ids outside the table. Events carrying
// an unknown sport are still delivered to "all" subscribers but never match
// a sport filter.
const SlugUnknown = "unknown"

var codeToSlug = map[int]string{
	1: "football",
	2: "basketball",
	3: "tennis",
	4: "baseball",
	5: "hockey",
	6: "volleyball",
	7: "handball",
	8: "esports",
}

var slugToCode = func() map[string]int {
	m := make(map[string]int, len(codeToSlug))
	for code, slug := range codeToSlug {
		m[slug] = code
	}
	return m
}()

// SlugOf maps a numeric sport id to its slug. Unmapped ids return SlugUnknown.
func SlugOf(id int) string {
	if slug, ok := codeToSlug[id]; ok {
		return slug
	}
	return SlugUnknown
}

// CodeOf maps a sport slug back to its numeric id.
func CodeOf(slug string) (int, bool) {
	code, ok := slugToCode[slug]
	return code, ok
}

// Slugs returns every known sport slug.
func Slugs() []string {
	slugs := make([]string, 0, len(codeToSlug))
	for _, slug := range codeToSlug {
		slugs = append(slugs, slug)
	}
	return slugs
}

// IsKnown reports whether slug appears in the table.
func IsKnown(slug string) bool {
	_, ok := slugToCode[slug]
	return ok
}
