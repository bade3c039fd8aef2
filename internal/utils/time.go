package utils

import "time"

// IMAPDateLayout is the DD-Mon-YYYY form used by IMAP SINCE searches and the sync cursor.
const IMAPDateLayout = "02-Jan-2006"

func Now() time.Time {
	return time.Now().UTC()
}

func NowPtr() *time.Time {
	now := Now()
	return &now
}

// StartOfDay truncates t to midnight in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func FormatIMAPDate(t time.Time) string {
	return t.Format(IMAPDateLayout)
}
