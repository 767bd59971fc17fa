package format

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/orgadmin/internal/apierr"
)

type Format string

const (
	Table Format = "table"
	JSON  Format = "json"
)

const timestampLayout = "2006-01-02 15:04:05"

// ParseFormat validates a --format value.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", Table:
		return Table, nil
	case JSON:
		return JSON, nil
	default:
		return "", apierr.Validationf("format", "unsupported format %q (use table or json)", raw)
	}
}

// Printer writes command results in the selected format.
type Printer struct {
	Out     io.Writer
	Format  Format
	Compact bool
}

// Print renders v. Tables accept a slice of records or a single record;
// columns restricts and orders the table columns.
func (p Printer) Print(v any, columns ...string) error {
	if p.Format == JSON {
		return WriteJSON(p.Out, v, !p.Compact)
	}
	rows, err := Rows(v)
	if err != nil {
		return err
	}
	return WriteTable(p.Out, rows, columns...)
}

// WriteJSON writes v as JSON, indented when pretty is set.
func WriteJSON(w io.Writer, v any, pretty bool) error {
	var (
		data []byte
		err  error
	)
	if pretty {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// FormatTimestamp renders Unix seconds as UTC, or N/A for nil and zero.
func FormatTimestamp(v any) string {
	var sec int64
	switch t := v.(type) {
	case nil:
		return "N/A"
	case int64:
		sec = t
	case *int64:
		if t == nil {
			return "N/A"
		}
		sec = *t
	case int:
		sec = int64(t)
	case float64:
		sec = int64(t)
	case json.Number:
		parsed, err := t.Int64()
		if err != nil {
			return t.String()
		}
		sec = parsed
	default:
		return fmt.Sprint(v)
	}
	if sec == 0 {
		return "N/A"
	}
	return time.Unix(sec, 0).UTC().Format(timestampLayout)
}

var maskRun = regexp.MustCompile(`\*{4,}`)

// ShortenRedacted collapses long runs of mask characters in a redacted
// key value.
func ShortenRedacted(value string) string {
	if value == "" {
		return "N/A"
	}
	return maskRun.ReplaceAllString(value, "*****")
}

// FormatMoney renders an amount as $1,234.5678.
func FormatMoney(amount float64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	raw := strconv.FormatFloat(amount, 'f', 4, 64)
	whole, frac, _ := strings.Cut(raw, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + "$" + b.String() + "." + frac
}
