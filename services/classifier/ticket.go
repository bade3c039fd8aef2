package classifier

import (
	"regexp"
	"strings"

	"github.com/kotsworld/mailsync/dto"
)

var (
	ticketNumberPattern = regexp.MustCompile(`\[?##\s*(\d+)\s*##\]?`)
	replyPrefixPattern  = regexp.MustCompile(`(?i)^(Re:\s*)`)

	issueClosedPattern   = regexp.MustCompile(`(?i)Issue\s+Closed`)
	closureNumberPattern = regexp.MustCompile(`(?i)Ticket\s*no\s*(\d+)`)
)

const subjectSeparator = "::"

// ParseTicketSubject reads a ticket-creation subject such as
// "[## 275482 ##] Classification :: Category :: K15A4032411202".
// It returns false when the subject carries no ticket number.
func ParseTicketSubject(subject string) (dto.TicketSubject, bool) {
	match := ticketNumberPattern.FindStringSubmatch(subject)
	if match == nil {
		return dto.TicketSubject{}, false
	}

	rest := replyPrefixPattern.ReplaceAllString(strings.TrimSpace(subject), "")
	rest = ticketNumberPattern.ReplaceAllString(rest, "")

	var segments []string
	for _, part := range strings.Split(rest, subjectSeparator) {
		part = strings.TrimSpace(part)
		if part == "" || IsBookingID(part) {
			continue
		}
		segments = append(segments, part)
	}

	parsed := dto.TicketSubject{TicketNumber: match[1]}
	if len(segments) > 0 {
		parsed.Classification = segments[0]
	}
	if len(segments) > 1 {
		category := segments[1]
		parsed.Category = &category
	}
	return parsed, true
}

// ParseClosureSubject returns the ticket number of an "Issue Closed - Ticket no N" subject.
func ParseClosureSubject(subject string) (string, bool) {
	if !issueClosedPattern.MatchString(subject) {
		return "", false
	}
	match := closureNumberPattern.FindStringSubmatch(subject)
	if match == nil {
		return "", false
	}
	return match[1], true
}
