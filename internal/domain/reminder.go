package domain

import "fmt"

// Address identifies the household whose collection calendar is acquired.
type Address struct {
	PostalCode  string
	HouseNumber int
}

func (a Address) String() string {
	return fmt.Sprintf("%s %d", a.PostalCode, a.HouseNumber)
}

// Category is a waste collection stream. Its value doubles as the upstream markup label.
type Category string

const (
	CategoryPaper    Category = "papier"
	CategoryOrganic  Category = "gft"
	CategoryResidual Category = "restafval"
	CategoryPlastic  Category = "pd"
)

// Categories is the canonical, ordered set every run reports on.
var Categories = []Category{
	CategoryPaper,
	CategoryOrganic,
	CategoryResidual,
	CategoryPlastic,
}

// ParseCategory validates a label against the canonical set.
func ParseCategory(label string) (Category, bool) {
	for _, c := range Categories {
		if string(c) == label {
			return c, true
		}
	}
	return "", false
}

// ReminderDate is an ISO 8601 calendar day (YYYY-MM-DD), one day before a pickup.
type ReminderDate string

// DateLayout is the wire and storage format of a ReminderDate.
const DateLayout = "2006-01-02"

// ReminderMapping is the sole output of an acquisition run.
type ReminderMapping map[Category][]ReminderDate

// StoredDate is one persisted (category, date) row.
type StoredDate struct {
	ID   int64        `json:"id"`
	Kind Category     `json:"kind"`
	Date ReminderDate `json:"date"`
}
