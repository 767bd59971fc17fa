package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Row is one flattened record with its keys in first-seen order.
type Row struct {
	Keys   []string
	Values map[string]any
}

// Rows projects v (a record or a list of records) into flat rows. v is
// encoded to JSON first, so struct field order and json tags apply;
// nested objects are flattened one level as parent.child.
func Rows(v any) ([]Row, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode rows: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}

	var raws []json.RawMessage
	if data[0] == '[' {
		if err := json.Unmarshal(data, &raws); err != nil {
			return nil, fmt.Errorf("decode rows: %w", err)
		}
	} else {
		raws = []json.RawMessage{data}
	}

	rows := make([]Row, 0, len(raws))
	for _, raw := range raws {
		row := Row{Values: map[string]any{}}
		if err := flatten(raw, "", &row, 0); err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func flatten(raw json.RawMessage, prefix string, row *Row, depth int) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decode row: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		key := strings.TrimSuffix(prefix, ".")
		if key == "" {
			key = "value"
		}
		row.add(key, decodeValue(raw))
		return nil
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("decode row: %w", err)
		}
		key := prefix + keyTok.(string)

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("decode row: %w", err)
		}
		trimmed := bytes.TrimSpace(value)
		if depth == 0 && len(trimmed) > 0 && trimmed[0] == '{' {
			if err := flatten(trimmed, key+".", row, depth+1); err != nil {
				return err
			}
			continue
		}
		row.add(key, decodeValue(trimmed))
	}
	return nil
}

func decodeValue(raw json.RawMessage) any {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return string(raw)
	}
	return v
}

func (r *Row) add(key string, value any) {
	if _, seen := r.Values[key]; !seen {
		r.Keys = append(r.Keys, key)
	}
	r.Values[key] = value
}

// Columns returns the union of keys across rows in first-seen order.
func Columns(rows []Row) []string {
	seen := map[string]struct{}{}
	columns := []string{}
	for _, row := range rows {
		for _, k := range row.Keys {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			columns = append(columns, k)
		}
	}
	return columns
}

// WriteTable renders rows as an aligned table. Missing fields render as
// empty cells. An empty row set prints "No results.".
func WriteTable(w io.Writer, rows []Row, columns ...string) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No results.")
		return err
	}
	if len(columns) == 0 {
		columns = Columns(rows)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	headers := make([]string, len(columns))
	for i, c := range columns {
		headers[i] = strings.ToUpper(c)
	}
	fmt.Fprintln(tw, strings.Join(headers, "\t"))

	for _, row := range rows {
		cells := make([]string, len(columns))
		for i, c := range columns {
			cells[i] = cell(c, row.Values[c])
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

func cell(column string, v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		if column == "redacted_value" || strings.HasSuffix(column, ".redacted_value") {
			return ShortenRedacted(value)
		}
		return strings.ReplaceAll(value, "\n", " ")
	case json.Number:
		if isTimestampColumn(column) {
			return FormatTimestamp(value)
		}
		return value.String()
	case bool:
		if value {
			return "true"
		}
		return "false"
	default:
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprint(value)
		}
		return string(data)
	}
}

func isTimestampColumn(column string) bool {
	name := column
	if idx := strings.LastIndex(column, "."); idx >= 0 {
		name = column[idx+1:]
	}
	return strings.HasSuffix(name, "_at") || name == "start_time" || name == "end_time"
}
