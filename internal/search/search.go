// Package search orders lists of records by composite score tuples. Scorers
// are pure; a scorer may exclude an item entirely, which removes it from the
// output instead of sorting it last.
package search

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/dhsdevclub/ticktock-api/internal/models"
)

// ErrExcluded signals that an item matched too few keywords to be kept.
var ErrExcluded = errors.New("search: insufficient matches for item")

// Scorer computes one component of an item's sort key. Supported score types
// are bool, int, string and time.Time; false, smaller and earlier sort first.
type Scorer[T any] func(item T) (any, error)

// Sort returns the items ordered ascending by their score tuples. Items whose
// scorer returns ErrExcluded are dropped. Equal tuples keep input order, so
// callers should end the scorer list with a unique key for determinism.
func Sort[T any](items []T, scorers ...Scorer[T]) ([]T, error) {
	if len(items) == 0 {
		return nil, nil
	}

	type keyed struct {
		item T
		key  []any
	}
	ranked := make([]keyed, 0, len(items))
	for _, item := range items {
		key := make([]any, 0, len(scorers))
		excluded := false
		for _, score := range scorers {
			v, err := score(item)
			if errors.Is(err, ErrExcluded) {
				excluded = true
				break
			} else if err != nil {
				return nil, err
			}
			key = append(key, v)
		}
		if excluded {
			continue
		}
		ranked = append(ranked, keyed{item: item, key: key})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return compareKeys(ranked[i].key, ranked[j].key) < 0
	})

	out := make([]T, len(ranked))
	for i, r := range ranked {
		out[i] = r.item
	}
	return out, nil
}

func compareKeys(a, b []any) int {
	for i := range a {
		if i >= len(b) {
			return 1
		}
		if c := compareScore(a[i], b[i]); c != 0 {
			return c
		}
	}
	if len(a) < len(b) {
		return -1
	}
	return 0
}

func compareScore(a, b any) int {
	switch av := a.(type) {
	case bool:
		bv, _ := b.(bool)
		if av == bv {
			return 0
		}
		if !av {
			return -1
		}
		return 1
	case int:
		bv, _ := b.(int)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case string:
		return strings.Compare(av, b.(string))
	case time.Time:
		bv, _ := b.(time.Time)
		switch {
		case av.Before(bv):
			return -1
		case av.After(bv):
			return 1
		}
		return 0
	}
	return 0
}

func keywordMatches(haystack, keywords string) (matches, terms int) {
	lowered := strings.ToLower(haystack)
	seen := map[string]struct{}{}
	for _, kw := range strings.Fields(keywords) {
		kw = strings.ToLower(kw)
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}
		terms++
		if strings.Contains(lowered, kw) {
			matches++
		}
	}
	return matches, terms
}

// EventNotStarred sorts starred events before everything else.
func EventNotStarred(e models.EventRecord) (any, error) {
	return !e.Starred, nil
}

// EventStartDate orders events chronologically.
func EventStartDate(e models.EventRecord) (any, error) {
	return e.StartDate, nil
}

// EventName orders events alphabetically, case-insensitive.
func EventName(e models.EventRecord) (any, error) {
	return strings.ToLower(e.Name), nil
}

// EventID is the final tie-break. The order is meaningless but stable, which
// keeps repeated listings of otherwise identical events deterministic.
func EventID(e models.EventRecord) (any, error) {
	return e.ID, nil
}

// EventKeyword scores events by descending keyword match count. With narrow
// set, events matching no terms or fewer than half of them are excluded.
func EventKeyword(keywords string, narrow bool) Scorer[models.EventRecord] {
	return func(e models.EventRecord) (any, error) {
		matches, terms := keywordMatches(e.Name, keywords)
		if narrow && (matches == 0 || matches < terms/2) {
			return nil, ErrExcluded
		}
		return -matches, nil
	}
}

// CalendarName orders calendars alphabetically, case-insensitive.
func CalendarName(c models.CalendarRecord) (any, error) {
	return strings.ToLower(c.Name), nil
}

// CalendarID is the final tie-break for calendars.
func CalendarID(c models.CalendarRecord) (any, error) {
	return c.ID, nil
}

// CalendarKeyword mirrors EventKeyword for calendars.
func CalendarKeyword(keywords string, narrow bool) Scorer[models.CalendarRecord] {
	return func(c models.CalendarRecord) (any, error) {
		matches, terms := keywordMatches(c.Name, keywords)
		if narrow && (matches == 0 || matches < terms/2) {
			return nil, ErrExcluded
		}
		return -matches, nil
	}
}

// EventChronSort orders events chronologically, starred first.
func EventChronSort(events []models.EventRecord) []models.EventRecord {
	sorted, _ := Sort(events, EventNotStarred, EventStartDate, EventName, EventID)
	return sorted
}

// EventKeywordChronSearch narrows by keyword matches, then orders by
// relevance and start date, starred first.
func EventKeywordChronSearch(events []models.EventRecord, keywords string) []models.EventRecord {
	sorted, _ := Sort(events, EventNotStarred, EventKeyword(keywords, true), EventStartDate, EventName, EventID)
	return sorted
}

// CalendarAlphaSort orders calendars alphabetically.
func CalendarAlphaSort(calendars []models.CalendarRecord) []models.CalendarRecord {
	sorted, _ := Sort(calendars, CalendarName, CalendarID)
	return sorted
}

// CalendarKeywordSearch narrows by keyword matches, then orders
// alphabetically.
func CalendarKeywordSearch(calendars []models.CalendarRecord, keywords string) []models.CalendarRecord {
	sorted, _ := Sort(calendars, CalendarKeyword(keywords, true), CalendarName, CalendarID)
	return sorted
}
