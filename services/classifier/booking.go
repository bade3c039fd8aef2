package classifier

import "regexp"

var (
	bookingIDPattern     = regexp.MustCompile(`K[0-9A-Z]{8,20}`)
	bookingIDFullPattern = regexp.MustCompile(`^K[0-9A-Z]{8,20}$`)
)

// ExtractBookingID returns the first booking id found in text, or "".
func ExtractBookingID(text string) string {
	return bookingIDPattern.FindString(text)
}

func IsBookingID(s string) bool {
	return bookingIDFullPattern.MatchString(s)
}

// BookingFrom prefers the subject over the body.
func BookingFrom(subject, body string) string {
	if id := ExtractBookingID(subject); id != "" {
		return id
	}
	return ExtractBookingID(body)
}
