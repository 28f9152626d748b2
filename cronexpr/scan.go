package cronexpr

import "strings"

// nicknames lists every @-schedule cron understands, including those that
// Create cannot turn into an Expression.
var nicknames = map[string]bool{
	"@reboot":   true,
	"@yearly":   true,
	"@annually": true,
	"@monthly":  true,
	"@weekly":   true,
	"@daily":    true,
	"@midnight": true,
	"@hourly":   true,
}

// Scan recognizes a schedule at the start of a crontab line and returns
// the offset where it ends. The schedule must be followed by a blank or
// by the end of the line.
func Scan(line string) (int, bool) {
	var end int
	var ok bool

	if strings.HasPrefix(line, "@") {
		end = strings.IndexAny(line, " \t")
		if end < 0 {
			end = len(line)
		}
		ok = nicknames[strings.ToLower(line[:end])]
	} else {
		end, ok = scanFields(line)
	}

	if !ok || (end < len(line) && !isBlank(line[end])) {
		return 0, false
	}
	return end, true
}

// scanFields matches five blank-separated fields. Only the characters
// cron accepts are allowed; month and day-of-week fields may also use
// their three-letter names.
func scanFields(s string) (int, bool) {
	pos := 0
	for part := Part(0); part < partCount; part++ {
		if part > 0 {
			start := pos
			for pos < len(s) && isBlank(s[pos]) {
				pos++
			}
			if pos == start {
				return 0, false
			}
		}

		start := pos
		for pos < len(s) && isFieldChar(part, s[pos]) {
			pos++
		}
		if pos == start || !namesValid(part, s[start:pos]) {
			return 0, false
		}
	}
	return pos, true
}

func isBlank(c byte) bool {
	return c == ' ' || c == '\t'
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isFieldChar(part Part, c byte) bool {
	switch {
	case c >= '0' && c <= '9':
		return true
	case strings.IndexByte("*/,-%", c) >= 0:
		return true
	case isLetter(c):
		return part == Month || part == DayOfWeek
	}
	return false
}

// namesValid checks that every run of letters in field is a known name.
func namesValid(part Part, field string) bool {
	for i := 0; i < len(field); {
		if !isLetter(field[i]) {
			i++
			continue
		}
		j := i
		for j < len(field) && isLetter(field[j]) {
			j++
		}
		if _, ok := synonyms[part][strings.ToLower(field[i:j])]; !ok {
			return false
		}
		i = j
	}
	return true
}
