package daterange

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Layout is the calendar-date wire format used by availability documents.
const Layout = "2006-01-02"

var (
	ErrInvalidRange = errors.New("daterange: departure must be after arrival")
	ErrInvalidDate  = errors.New("daterange: date must be formatted as YYYY-MM-DD")
)

// DateRange represents a half-open interval [checkIn, checkOut) of calendar days.
type DateRange struct {
	CheckIn  time.Time
	CheckOut time.Time
}

func New(checkIn, checkOut time.Time) (DateRange, error) {
	dr := DateRange{CheckIn: truncateDay(checkIn), CheckOut: truncateDay(checkOut)}
	if err := dr.Validate(); err != nil {
		return DateRange{}, err
	}
	return dr, nil
}

// Parse builds a range from two YYYY-MM-DD dates.
func Parse(arrival, departure string) (DateRange, error) {
	in, err := ParseDate(arrival)
	if err != nil {
		return DateRange{}, err
	}
	out, err := ParseDate(departure)
	if err != nil {
		return DateRange{}, err
	}
	return New(in, out)
}

func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(Layout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	return t, nil
}

func FormatDate(t time.Time) string {
	return t.UTC().Format(Layout)
}

func (dr DateRange) Validate() error {
	if dr.CheckOut.IsZero() || dr.CheckIn.IsZero() {
		return ErrInvalidRange
	}
	if !dr.CheckOut.After(dr.CheckIn) {
		return ErrInvalidRange
	}
	return nil
}

func (dr DateRange) Nights() int {
	return int(dr.CheckOut.Sub(dr.CheckIn).Hours() / 24)
}

// Days lists every occupied night; the check-out day is excluded.
func (dr DateRange) Days() []string {
	out := make([]string, 0, dr.Nights())
	for d := dr.CheckIn; d.Before(dr.CheckOut); d = d.AddDate(0, 0, 1) {
		out = append(out, FormatDate(d))
	}
	return out
}

func (dr DateRange) Arrival() string   { return FormatDate(dr.CheckIn) }
func (dr DateRange) Departure() string { return FormatDate(dr.CheckOut) }

func (dr DateRange) String() string {
	return dr.Arrival() + "/" + dr.Departure()
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
