package classifier

import (
	"regexp"
	"strings"

	"github.com/kotsworld/mailsync/internal/enum"
)

var cirPrefixes = []string{
	"kitchen flat condition :: part a",
	"kitchen flat condition :: part b",
	"living room flat condition ::",
	"bathrooms flat condition ::",
	"balcony & other flat condition ::",
	"first bedroom pictures ::",
	"second bedroom pictures ::",
}

var (
	signRequestSubjectPattern = regexp.MustCompile(`(?i)request(s)?\s+you\s+to\s+sign|signature\s+request|sign\s+tenant`)
	signRequestBodyPattern    = regexp.MustCompile(`zoho\s+sign|digital\s+signature\s+request|start\s+signing`)
)

// DocumentRule maps a message to a category when Match holds.
type DocumentRule struct {
	Category enum.DocumentCategory
	Match    func(subject, body string) bool
}

// DocumentRules are evaluated in order, first match wins.
var DocumentRules = []DocumentRule{
	{Category: enum.DocumentCIR, Match: isCIRSubject},
	{Category: enum.DocumentSigned, Match: func(subject, _ string) bool {
		return strings.Contains(strings.ToLower(subject), "has been completed")
	}},
	{Category: enum.DocumentSignRequest, Match: isSignRequest},
}

// ClassifyDocument returns false when the message is not a contract document.
func ClassifyDocument(subject, body string) (enum.DocumentCategory, bool) {
	for _, rule := range DocumentRules {
		if rule.Match(subject, body) {
			return rule.Category, true
		}
	}
	return "", false
}

func isCIRSubject(subject, _ string) bool {
	lower := strings.ToLower(strings.TrimSpace(subject))
	for _, prefix := range cirPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

func isSignRequest(subject, body string) bool {
	if !strings.Contains(strings.ToLower(subject), "request") {
		return false
	}
	return signRequestSubjectPattern.MatchString(subject) ||
		signRequestBodyPattern.MatchString(strings.ToLower(body))
}
