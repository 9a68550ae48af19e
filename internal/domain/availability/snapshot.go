package availability

import (
	"context"
	"fmt"
	"sort"

	"availsync/internal/domain/shared/daterange"
)

type Restrictions struct {
	NoArrival   bool `json:"noArrival,omitempty" bson:"no_arrival,omitempty"`
	NoDeparture bool `json:"noDeparture,omitempty" bson:"no_departure,omitempty"`
}

// DayRecord is the inventory of one room type on one calendar date.
type DayRecord struct {
	Date         string        `json:"date" bson:"date"`
	Quantity     int           `json:"quantity" bson:"quantity"`
	Restrictions *Restrictions `json:"restrictions,omitempty" bson:"restrictions,omitempty"`
}

// Snapshot maps room type ids to their day records, ordered by date and contiguous.
type Snapshot map[string][]DayRecord

// Store fetches and replaces the remote availability document.
type Store interface {
	Fetch(ctx context.Context) (Snapshot, error)
	Persist(ctx context.Context, snapshot Snapshot) error
}

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	if s == nil {
		return nil
	}
	out := make(Snapshot, len(s))
	for id, days := range s {
		copied := make([]DayRecord, len(days))
		for i, day := range days {
			copied[i] = day
			if day.Restrictions != nil {
				r := *day.Restrictions
				copied[i].Restrictions = &r
			}
		}
		out[id] = copied
	}
	return out
}

// Day looks up the record of a room type on a date.
func (s Snapshot) Day(roomTypeID, date string) (DayRecord, bool) {
	days, ok := s[roomTypeID]
	if !ok {
		return DayRecord{}, false
	}
	i, ok := indexOf(days, date)
	if !ok {
		return DayRecord{}, false
	}
	return days[i], true
}

func (s Snapshot) RoomTypes() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Validate checks the document shape: known dates, ascending and gap-free, non-negative quantities.
func (s Snapshot) Validate() error {
	for id, days := range s {
		for i, day := range days {
			date, err := daterange.ParseDate(day.Date)
			if err != nil {
				return fmt.Errorf("%w: room type %q: %v", ErrMalformedSnapshot, id, err)
			}
			if day.Quantity < 0 {
				return fmt.Errorf("%w: room type %q has negative quantity on %s", ErrMalformedSnapshot, id, day.Date)
			}
			if i == 0 {
				continue
			}
			prev, _ := daterange.ParseDate(days[i-1].Date)
			if !prev.AddDate(0, 0, 1).Equal(date) {
				return fmt.Errorf("%w: room type %q is not contiguous at %s", ErrMalformedSnapshot, id, day.Date)
			}
		}
	}
	return nil
}

// Normalize puts a document read from an external store into lookup order: dates in
// canonical YYYY-MM-DD form, each room type sorted by date. Unparseable or repeated
// dates make the document unusable and are reported as ErrMalformedSnapshot.
func (s Snapshot) Normalize() error {
	for id, days := range s {
		for i := range days {
			date, err := daterange.ParseDate(days[i].Date)
			if err != nil {
				return fmt.Errorf("%w: room type %q: %v", ErrMalformedSnapshot, id, err)
			}
			days[i].Date = daterange.FormatDate(date)
		}
		sort.SliceStable(days, func(i, j int) bool { return days[i].Date < days[j].Date })
		for i := 1; i < len(days); i++ {
			if days[i].Date == days[i-1].Date {
				return fmt.Errorf("%w: room type %q lists %s twice", ErrMalformedSnapshot, id, days[i].Date)
			}
		}
	}
	return nil
}

// indexOf relies on YYYY-MM-DD sorting lexically in date order.
func indexOf(days []DayRecord, date string) (int, bool) {
	i := sort.Search(len(days), func(i int) bool { return days[i].Date >= date })
	if i < len(days) && days[i].Date == date {
		return i, true
	}
	return 0, false
}
