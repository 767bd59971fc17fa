package client

import (
	"net/url"
	"strconv"
	"strings"
)

// Query collects query parameters. Array-valued parameters are sent as
// repeated keys, e.g. project_ids[]=a&project_ids[]=b.
type Query url.Values

func NewQuery() Query { return Query{} }

// Set stores value under key, skipping blank values.
func (q Query) Set(key, value string) Query {
	value = strings.TrimSpace(value)
	if value == "" {
		return q
	}
	url.Values(q).Set(key, value)
	return q
}

// SetInt stores a positive integer.
func (q Query) SetInt(key string, value int) Query {
	if value <= 0 {
		return q
	}
	url.Values(q).Set(key, strconv.Itoa(value))
	return q
}

// SetInt64 stores a positive integer.
func (q Query) SetInt64(key string, value int64) Query {
	if value <= 0 {
		return q
	}
	url.Values(q).Set(key, strconv.FormatInt(value, 10))
	return q
}

// SetBool stores true values only.
func (q Query) SetBool(key string, value bool) Query {
	if !value {
		return q
	}
	url.Values(q).Set(key, "true")
	return q
}

// Add appends each non-blank value under key, preserving order.
func (q Query) Add(key string, values ...string) Query {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		url.Values(q).Add(key, v)
	}
	return q
}

// Encode renders the query in URL form.
func (q Query) Encode() string {
	return url.Values(q).Encode()
}

// Path joins escaped path segments.
func Path(segments ...string) string {
	escaped := make([]string, 0, len(segments))
	for _, s := range segments {
		escaped = append(escaped, url.PathEscape(strings.Trim(s, "/")))
	}
	return strings.Join(escaped, "/")
}
