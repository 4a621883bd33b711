package reminder

import (
	"slices"

	"WasteReminder/internal/domain"
)

// Aggregate builds the mapping every run returns: one key per canonical
// category, dates sorted ascending without duplicates. Labels outside the
// canonical set are ignored.
func Aggregate(dates map[domain.Category][]domain.ReminderDate) domain.ReminderMapping {
	out := make(domain.ReminderMapping, len(domain.Categories))
	for _, category := range domain.Categories {
		out[category] = sortedUnique(dates[category])
	}
	return out
}

func sortedUnique(in []domain.ReminderDate) []domain.ReminderDate {
	out := make([]domain.ReminderDate, 0, len(in))
	out = append(out, in...)
	// YYYY-MM-DD sorts chronologically as a string.
	slices.Sort(out)
	return slices.Compact(out)
}
