package news

import (
	"time"

	"github.com/haebom/tariff/pkg/errors"
)

// maxRangeDays bounds DatesInRange so a typo cannot expand to decades.
const maxRangeDays = 366

// ParseDay validates a YYYY-MM-DD string.
func ParseDay(s string) (time.Time, error) {
	d, err := time.Parse(DayLayout, s)
	if err != nil {
		return time.Time{}, errors.New(errors.ErrCodeInvalidQuery, "invalid date format, use YYYY-MM-DD").WithDetail(s)
	}
	return d, nil
}

// DatesInRange lists every day from start to end inclusive.  An end before
// start yields an empty list.
func DatesInRange(start, end string) ([]string, error) {
	s, err := ParseDay(start)
	if err != nil {
		return nil, err
	}
	e, err := ParseDay(end)
	if err != nil {
		return nil, err
	}
	if e.Before(s) {
		return []string{}, nil
	}
	if e.Sub(s) > maxRangeDays*24*time.Hour {
		return nil, errors.New(errors.ErrCodeInvalidQuery, "date range too long").WithDetail(start + ".." + end)
	}

	var out []string
	for d := s; !d.After(e); d = d.AddDate(0, 0, 1) {
		out = append(out, d.Format(DayLayout))
	}
	return out, nil
}
