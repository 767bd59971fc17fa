// Package timerange turns --days or --start-date/--end-date flags into an
// absolute [start, end] window.
package timerange

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/smallbiznis/orgadmin/internal/apierr"
)

const DateLayout = "2006-01-02"

var (
	ErrMissingRange = errors.New("either --days or --start-date is required")
	ErrInvalidDays  = errors.New("days must be positive")
	ErrInvalidDate  = errors.New("dates use YYYY-MM-DD")
	ErrEmptyRange   = errors.New("end must be after start")
)

// Options mirrors the command-line flags. Days takes precedence over dates.
type Options struct {
	Days      int
	StartDate string
	EndDate   string
}

func (o Options) IsZero() bool {
	return o.Days == 0 && strings.TrimSpace(o.StartDate) == "" && strings.TrimSpace(o.EndDate) == ""
}

type Range struct {
	Start time.Time
	End   time.Time
}

func (r Range) StartUnix() int64 { return r.Start.Unix() }
func (r Range) EndUnix() int64   { return r.End.Unix() }

func (r Range) String() string {
	return fmt.Sprintf("%s .. %s", r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339))
}

// Resolve computes the window relative to now. With Days the window is
// [now-Days*24h, now]. With dates, StartDate begins at 00:00 UTC and
// EndDate is midnight UTC at the start of that day; a missing EndDate
// means now.
func Resolve(now time.Time, opts Options) (Range, error) {
	now = now.UTC()
	if opts.Days < 0 {
		return Range{}, apierr.Validation("days", ErrInvalidDays)
	}
	if opts.Days > 0 {
		return Range{Start: now.Add(-time.Duration(opts.Days) * 24 * time.Hour), End: now}, nil
	}

	startRaw := strings.TrimSpace(opts.StartDate)
	if startRaw == "" {
		return Range{}, apierr.Validation("start_date", ErrMissingRange)
	}
	start, err := time.ParseInLocation(DateLayout, startRaw, time.UTC)
	if err != nil {
		return Range{}, apierr.Validation("start_date", fmt.Errorf("%w: %q", ErrInvalidDate, startRaw))
	}

	end := now
	if endRaw := strings.TrimSpace(opts.EndDate); endRaw != "" {
		end, err = time.ParseInLocation(DateLayout, endRaw, time.UTC)
		if err != nil {
			return Range{}, apierr.Validation("end_date", fmt.Errorf("%w: %q", ErrInvalidDate, endRaw))
		}
	}
	if !end.After(start) {
		return Range{}, apierr.Validation("end_date", ErrEmptyRange)
	}
	return Range{Start: start, End: end}, nil
}

// ResolveOptional is Resolve for filters where no range means unbounded.
func ResolveOptional(now time.Time, opts Options) (*Range, error) {
	if opts.IsZero() {
		return nil, nil
	}
	r, err := Resolve(now, opts)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
