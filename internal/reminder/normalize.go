package reminder

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"WasteReminder/internal/domain"
)

var (
	weekdays = []string{"maandag", "dinsdag", "woensdag", "donderdag", "vrijdag", "zaterdag", "zondag"}
	months   = []string{
		"januari", "februari", "maart", "april", "mei", "juni",
		"juli", "augustus", "september", "oktober", "november", "december",
	}
)

var monthNumbers = func() map[string]time.Month {
	m := make(map[string]time.Month, len(months))
	for i, name := range months {
		m[name] = time.Month(i + 1)
	}
	return m
}()

// localePattern matches "<weekday> <day> <month>", e.g. "maandag 3 maart".
// Both names must be whole words: "maartje" is not a month.
var localePattern = regexp.MustCompile(
	`\b(` + strings.Join(weekdays, "|") + `) \d{1,2} (` + strings.Join(months, "|") + `)\b`,
)

// MatchLocale returns the first "<weekday> <day> <month>" occurrence inside text.
func MatchLocale(text string) (string, bool) {
	match := localePattern.FindString(text)
	return match, match != ""
}

// Normalizer turns raw date tokens into reminder dates.
//
// Locale tokens carry no year; the year of now() is assumed. With a positive
// rolloverMonths, a pickup lying more than that many months in the past is
// moved to the following year.
type Normalizer struct {
	now            func() time.Time
	rolloverMonths int
}

// NewNormalizer wires a clock; nil falls back to time.Now.
func NewNormalizer(now func() time.Time, rolloverMonths int) *Normalizer {
	if now == nil {
		now = time.Now
	}
	if rolloverMonths < 0 {
		rolloverMonths = 0
	}
	return &Normalizer{now: now, rolloverMonths: rolloverMonths}
}

// Locale parses "<weekday> <day> <month-name>" and returns the day before.
func (n *Normalizer) Locale(token string) (domain.ReminderDate, error) {
	fields := strings.Fields(token)
	if len(fields) != 3 {
		return "", domain.DateParse(token, "expected <weekday> <day> <month>")
	}

	day, err := strconv.Atoi(fields[1])
	if err != nil || day < 1 || day > 31 {
		return "", domain.DateParse(token, "invalid day")
	}

	month, ok := monthNumbers[strings.ToLower(fields[2])]
	if !ok {
		return "", domain.DateParse(token, "unknown month name")
	}

	now := n.now()
	years := []int{now.Year()}
	if n.pastCutoff(now, month, day) {
		// a leap day that only existed this year stays in this year
		years = []int{now.Year() + 1, now.Year()}
	}

	for _, year := range years {
		pickup := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
		if pickup.Month() == month {
			return DayBefore(pickup), nil
		}
	}
	return "", domain.DateParse(token, "day out of range for month")
}

// pastCutoff reports whether month/day of the current year lies more than
// rolloverMonths before today. It never builds the candidate date, so a
// day that does not exist this year can still roll forward.
func (n *Normalizer) pastCutoff(now time.Time, month time.Month, day int) bool {
	if n.rolloverMonths <= 0 {
		return false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	cutoff := today.AddDate(0, -n.rolloverMonths, 0)
	if cutoff.Year() < now.Year() {
		return false
	}
	return month < cutoff.Month() || (month == cutoff.Month() && day < cutoff.Day())
}

// ISO parses "YYYY-MM-DD", optionally followed by a time component.
func (n *Normalizer) ISO(token string) (domain.ReminderDate, error) {
	token = strings.TrimSpace(token)
	if len(token) < len(domain.DateLayout) {
		return "", domain.DateParse(token, "too short for an ISO date")
	}
	if len(token) > len(domain.DateLayout) {
		if sep := token[len(domain.DateLayout)]; sep != 'T' && sep != ' ' {
			return "", domain.DateParse(token, "unexpected characters after date")
		}
	}

	pickup, err := time.Parse(domain.DateLayout, token[:len(domain.DateLayout)])
	if err != nil {
		return "", domain.DateParse(token, "invalid ISO date")
	}
	return DayBefore(pickup), nil
}

// DayBefore formats pickup minus one calendar day.
func DayBefore(pickup time.Time) domain.ReminderDate {
	return domain.ReminderDate(pickup.AddDate(0, 0, -1).Format(domain.DateLayout))
}
