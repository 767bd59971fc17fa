package domain

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	serviceaccountdomain "github.com/smallbiznis/orgadmin/internal/serviceaccount/domain"
)

// DateFormat is the date suffix style of rotated service account names.
type DateFormat string

const (
	// FormatShort names one key per month: prefix-YY-MM.
	FormatShort DateFormat = "YY-MM"
	// FormatFull names one key per day: prefix-YYYY-MM-DD.
	FormatFull DateFormat = "YYYY-MM-DD"
)

// ParseDateFormat accepts the two supported layouts; empty selects FormatShort.
func ParseDateFormat(raw string) (DateFormat, bool) {
	switch DateFormat(strings.ToUpper(strings.TrimSpace(raw))) {
	case "", FormatShort:
		return FormatShort, true
	case FormatFull:
		return FormatFull, true
	}
	return "", false
}

var (
	fullSuffix   = regexp.MustCompile(`^-(\d{4})-(\d{2})-(\d{2})$`)
	shortSuffix  = regexp.MustCompile(`^-(\d{2})-(\d{2})$`)
	anyDateTrail = regexp.MustCompile(`-(\d{4}-\d{2}-\d{2}|\d{2}-\d{2})$`)
)

// NameFor returns the service account name for the period containing at.
func NameFor(prefix string, format DateFormat, at time.Time) string {
	at = at.UTC()
	if format == FormatFull {
		return fmt.Sprintf("%s-%s", prefix, at.Format("2006-01-02"))
	}
	return fmt.Sprintf("%s-%s", prefix, at.Format("06-01"))
}

// ParseName extracts the date encoded in name for the given prefix.
// YY-MM names resolve to the first day of that month in 20YY.
func ParseName(name, prefix string) (time.Time, bool) {
	if prefix == "" || !strings.HasPrefix(name, prefix) {
		return time.Time{}, false
	}
	suffix := name[len(prefix):]

	if m := fullSuffix.FindStringSubmatch(suffix); m != nil {
		return buildDate(m[1], m[2], m[3])
	}
	if m := shortSuffix.FindStringSubmatch(suffix); m != nil {
		yy, _ := strconv.Atoi(m[1])
		return buildDate(strconv.Itoa(2000+yy), m[2], "01")
	}
	return time.Time{}, false
}

// buildDate rejects dates time.Date would normalize, like 2024-02-30.
func buildDate(year, month, day string) (time.Time, bool) {
	y, _ := strconv.Atoi(year)
	m, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}

// HasDateSuffix reports whether name ends in either rotation date layout.
func HasDateSuffix(name string) bool {
	return anyDateTrail.MatchString(name)
}

// Account is a service account that follows the rotation naming scheme.
type Account struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Date      time.Time `json:"date"`
	CreatedAt int64     `json:"created_at"`
}

// HasDate reports whether the date came from a parsed name.
func (a Account) HasDate() bool { return !a.Date.IsZero() }

// Match keeps the accounts named prefix-<date>, newest date first. Equal
// dates fall back to creation time.
func Match(accounts []serviceaccountdomain.ServiceAccount, prefix string) []Account {
	out := make([]Account, 0, len(accounts))
	for _, sa := range accounts {
		date, ok := ParseName(sa.Name, prefix)
		if !ok {
			continue
		}
		out = append(out, Account{ID: sa.ID, Name: sa.Name, Role: sa.Role, Date: date, CreatedAt: sa.CreatedAt})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt > out[j].CreatedAt
	})
	return out
}

// AgeDays counts whole days between createdAt (Unix seconds) and now.
func AgeDays(now time.Time, createdAt int64) int {
	age := now.Sub(time.Unix(createdAt, 0))
	if age < 0 {
		return 0
	}
	return int(age / (24 * time.Hour))
}

type Advice string

const (
	AdviceCurrent     Advice = "current"
	AdviceRecent      Advice = "recent"
	AdviceConsider    Advice = "consider"
	AdviceRecommended Advice = "recommended"
)

// Advise grades the age of the newest key.
func Advise(ageDays int) Advice {
	switch {
	case ageDays <= 0:
		return AdviceCurrent
	case ageDays <= 7:
		return AdviceRecent
	case ageDays <= 30:
		return AdviceConsider
	default:
		return AdviceRecommended
	}
}

// Message renders the advice for ageDays.
func (a Advice) Message(ageDays int) string {
	switch a {
	case AdviceCurrent:
		return "service account is current (created today)"
	case AdviceRecent:
		return fmt.Sprintf("service account is recent (%d days old)", ageDays)
	case AdviceConsider:
		return fmt.Sprintf("service account is %d days old - consider rotation", ageDays)
	default:
		return fmt.Sprintf("service account is %d days old - rotation recommended", ageDays)
	}
}
