package classifier

import (
	"regexp"
	"strings"
)

var (
	urlPattern = regexp.MustCompile(`https?://[^\s"<>]+`)

	excludedURLFragments = []string{".png", ".jpg", ".jpeg", ".gif", ".css", ".js", "static.zohocdn"}
	preferredURLTokens   = []string{"signform", "request"}
)

const signBrandToken = "zoho"

// ExtractSignURL picks the signing link out of a sign-request body, or nil.
func ExtractSignURL(body string) *string {
	var candidates []string
	for _, link := range urlPattern.FindAllString(body, -1) {
		lower := strings.ToLower(link)
		if containsAny(lower, excludedURLFragments) {
			continue
		}
		if strings.Contains(lower, signBrandToken) && strings.Contains(lower, "sign") {
			candidates = append(candidates, link)
		}
	}

	for _, link := range candidates {
		if containsAny(strings.ToLower(link), preferredURLTokens) {
			return &link
		}
	}
	if len(candidates) > 0 {
		return &candidates[0]
	}
	return nil
}

func containsAny(s string, fragments []string) bool {
	for _, fragment := range fragments {
		if strings.Contains(s, fragment) {
			return true
		}
	}
	return false
}
