// Package form converts between cron expressions and the values of the
// simple job form: a time picker (specific time, every n hours, every n
// minutes) and a repeat picker (daily, weekly, monthly, yearly).
package form

import (
	"net/url"
	"sort"
	"strings"
)

// Values holds nested form input. Leaves are strings or string lists.
//
//	time[picker]=everyHour&time[everyHour][step]=2&time[everyHour][minute]=15
//
// becomes
//
//	Values{"time": Values{"picker": "everyHour", "everyHour": Values{"step": "2", "minute": "15"}}}
type Values map[string]any

// ParseValues decodes bracketed form keys. A key ending in "[]" holds a
// list; for any other key the last value wins.
func ParseValues(input url.Values) Values {
	values := Values{}

	keys := make([]string, 0, len(input))
	for key := range input {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		all := input[key]
		if len(all) == 0 {
			continue
		}

		path := splitKey(key)
		if last := len(path) - 1; last > 0 && path[last] == "" {
			values.Set(append([]string(nil), all...), path[:last]...)
			continue
		}
		values.Set(all[len(all)-1], path...)
	}

	return values
}

// ParseQuery is ParseValues for an URL-encoded string.
func ParseQuery(query string) (Values, error) {
	input, err := url.ParseQuery(query)
	if err != nil {
		return nil, err
	}
	return ParseValues(input), nil
}

// splitKey turns "a[b][c]" into [a b c]. Malformed keys are kept whole.
func splitKey(key string) []string {
	i := strings.IndexByte(key, '[')
	if i <= 0 {
		return []string{key}
	}

	path := []string{key[:i]}
	for rest := key[i:]; rest != ""; {
		end := strings.IndexByte(rest, ']')
		if rest[0] != '[' || end < 0 {
			return []string{key}
		}
		path = append(path, rest[1:end])
		rest = rest[end+1:]
	}
	return path
}

// Get returns the value at path, or nil.
func (v Values) Get(path ...string) any {
	var current any = v
	for _, key := range path {
		nested, ok := current.(Values)
		if !ok {
			return nil
		}
		current = nested[key]
	}
	return current
}

// String returns the string at path. A list yields its first item.
func (v Values) String(path ...string) string {
	switch value := v.Get(path...).(type) {
	case string:
		return value
	case []string:
		if len(value) > 0 {
			return value[0]
		}
	}
	return ""
}

// Strings returns the list at path. A single string yields a list of one.
func (v Values) Strings(path ...string) []string {
	switch value := v.Get(path...).(type) {
	case string:
		return []string{value}
	case []string:
		return value
	}
	return nil
}

// Set stores value at path, creating intermediate Values as needed.
func (v Values) Set(value any, path ...string) {
	if len(path) == 0 {
		return
	}

	current := v
	for _, key := range path[:len(path)-1] {
		nested, ok := current[key].(Values)
		if !ok {
			nested = Values{}
			current[key] = nested
		}
		current = nested
	}
	current[path[len(path)-1]] = value
}

// Encode is the inverse of ParseQuery. Keys are written in sorted order.
func (v Values) Encode() string {
	var pairs []string
	v.encode("", &pairs)
	return strings.Join(pairs, "&")
}

func (v Values) encode(prefix string, pairs *[]string) {
	keys := make([]string, 0, len(v))
	for key := range v {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		name := key
		if prefix != "" {
			name = prefix + "[" + key + "]"
		}

		switch value := v[key].(type) {
		case Values:
			value.encode(name, pairs)
		case string:
			*pairs = append(*pairs, name+"="+url.QueryEscape(value))
		case []string:
			for _, item := range value {
				*pairs = append(*pairs, name+"[]="+url.QueryEscape(item))
			}
		}
	}
}
