// Package cronexpr models the five-field cron time expression used in a
// crontab: it parses expression text into structured per-field values,
// lets callers build or edit those values, and renders them back to text.
package cronexpr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrParse           = errors.New("expression is not supported")
	ErrOutOfRange      = errors.New("value is outside the valid range")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrOutOfBounds     = errors.New("invalid expression part")
)

// Part identifies one of the five fields of an expression.
type Part int

const (
	Minute Part = iota
	Hour
	DayOfMonth
	Month
	DayOfWeek

	partCount = 5
)

var partNames = [partCount]string{"minute", "hour", "dayOfMonth", "month", "dayOfWeek"}

var bounds = [partCount]struct{ min, max int }{
	Minute:     {0, 59},
	Hour:       {0, 23},
	DayOfMonth: {0, 31},
	Month:      {1, 12},
	DayOfWeek:  {0, 7},
}

var synonyms = [partCount]map[string]int{
	Month: {
		"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
		"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
	},
	DayOfWeek: {
		"7": 0, "sun": 0, "mon": 1, "tue": 2, "wed": 3, "thu": 4, "fri": 5, "sat": 6,
	},
}

// Shorthands maps the supported nicknames to their five-field equivalent.
// @reboot has no time equivalent and is not supported.
var Shorthands = map[string]string{
	"@yearly":   "0 0 1 1 *",
	"@annually": "0 0 1 1 *",
	"@monthly":  "0 0 1 * *",
	"@weekly":   "0 0 * * 0",
	"@daily":    "0 0 * * *",
	"@hourly":   "0 * * * *",
}

func (p Part) String() string {
	if !p.valid() {
		return fmt.Sprintf("Part(%d)", int(p))
	}
	return partNames[p]
}

func (p Part) valid() bool {
	return p >= 0 && p < partCount
}

// Bounds returns the smallest and largest value accepted for the part.
func (p Part) Bounds() (int, int) {
	return bounds[p].min, bounds[p].max
}

// ParsePart resolves a part from its name ("minute", "dayOfWeek", ...).
func ParsePart(name string) (Part, error) {
	for i, n := range partNames {
		if strings.EqualFold(n, name) {
			return Part(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrOutOfBounds, name)
}

// Kind tells how a stored Value is to be read.
type Kind int

const (
	KindNumber Kind = iota
	KindLiteral
	KindRange
	KindEvery
)

// Value is one comma-separated item of an expression part. A plain "*"
// is never stored: a part without values renders as "*".
type Value struct {
	Kind    Kind
	Number  int
	Literal string
	Min     int
	Max     int
	Step    int
}

func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return strconv.Itoa(v.Number)
	case KindRange:
		if v.Step > 1 {
			return fmt.Sprintf("%d-%d/%d", v.Min, v.Max, v.Step)
		}
		return fmt.Sprintf("%d-%d", v.Min, v.Max)
	case KindEvery:
		return "*/" + strconv.Itoa(v.Step)
	default:
		return v.Literal
	}
}

// Range is an AddPart input for "min-max[/step]". Min, Max and Step may
// be ints or numeric strings; a nil Step means 1.
type Range struct {
	Min  any
	Max  any
	Step any
}

// Scalar is an AddPart input pairing a scalar with a step. Only "*"
// combined with a step above 1 is kept as such ("*/step"); anything else
// is added as the plain scalar.
type Scalar struct {
	Scalar any
	Step   any
}

// Expression is a structured cron time expression. The zero value is
// "* * * * *".
type Expression struct {
	parts [partCount][]Value
}

func New() *Expression {
	return &Expression{}
}

// Create parses a five-field expression or one of the Shorthands.
func Create(text string) (*Expression, error) {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "@") {
		expanded, ok := Shorthands[strings.ToLower(text)]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrParse, text)
		}
		return Create(expanded)
	}

	end, ok := scanFields(text)
	if !ok || end != len(text) {
		return nil, fmt.Errorf("%w: %q", ErrParse, text)
	}

	expr := New()
	for i, field := range strings.Fields(text) {
		if err := expr.parseField(Part(i), field); err != nil {
			return nil, err
		}
	}

	return expr, nil
}

func (e *Expression) parseField(part Part, field string) error {
	for _, unit := range strings.Split(field, ",") {
		if unit == "" {
			return fmt.Errorf("%w: empty list item in %s %q", ErrParse, part, field)
		}

		shards := strings.Split(unit, "/")
		limits := strings.Split(shards[0], "-")
		if len(shards) > 2 || len(limits) > 2 {
			return fmt.Errorf("%w: %s %q", ErrParse, part, unit)
		}

		var value any
		switch {
		case len(shards) == 2 && shards[0] == "*":
			value = Scalar{Scalar: "*", Step: shards[1]}
		case len(shards) == 2 && len(limits) == 2:
			value = Range{Min: limits[0], Max: limits[1], Step: shards[1]}
		case len(shards) == 2:
			// cron only accepts a step after a range or an asterisk
			return fmt.Errorf("%w: %s %q", ErrParse, part, unit)
		case len(limits) == 2:
			value = Range{Min: limits[0], Max: limits[1]}
		default:
			value = limits[0]
		}

		if err := e.AddPart(part, value); err != nil {
			return fmt.Errorf("%s: %w", part, err)
		}
	}
	return nil
}

// AddPart appends value to part. Accepted values are an int, a string
// (numeric, a synonym such as "feb", "*" to reset the part, or any other
// literal), a Range, a Scalar, or a list of these ([]any, []int, []string).
//
//	expr.AddPart(Minute, Range{Min: 0, Max: 29, Step: 5})
//	expr.AddPart(Minute, []int{40, 50})
//	expr.AddPart(Hour, Scalar{Scalar: "*", Step: 2})
//
// renders as "0-29/5,40,50 */2 * * *".
func (e *Expression) AddPart(part Part, value any) error {
	if !part.valid() {
		return fmt.Errorf("%w: %s", ErrOutOfBounds, part)
	}

	switch v := value.(type) {
	case int:
		return e.addNumber(part, v)

	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return e.addNumber(part, n)
		}
		if v == "*" {
			e.parts[part] = nil
			return nil
		}
		if n, ok := synonyms[part][strings.ToLower(v)]; ok {
			e.parts[part] = append(e.parts[part], Value{Kind: KindNumber, Number: n})
			return nil
		}
		e.parts[part] = append(e.parts[part], Value{Kind: KindLiteral, Literal: v})
		return nil

	case Range:
		return e.addRange(part, v)

	case Scalar:
		return e.addScalar(part, v)

	case []any:
		for _, item := range v {
			if err := e.AddPart(part, item); err != nil {
				return err
			}
		}
		return nil

	case []int:
		for _, item := range v {
			if err := e.addNumber(part, item); err != nil {
				return err
			}
		}
		return nil

	case []string:
		for _, item := range v {
			if err := e.AddPart(part, item); err != nil {
				return err
			}
		}
		return nil
	}

	return fmt.Errorf("%w: unsupported value %#v for %s", ErrInvalidArgument, value, part)
}

// SetPart replaces every value of part with value.
func (e *Expression) SetPart(part Part, value any) error {
	if !part.valid() {
		return fmt.Errorf("%w: %s", ErrOutOfBounds, part)
	}
	e.parts[part] = nil
	return e.AddPart(part, value)
}

// Part returns the values stored for part. An empty result means "*".
func (e *Expression) Part(part Part) []Value {
	if !part.valid() {
		return nil
	}
	return e.parts[part]
}

func (e *Expression) addNumber(part Part, n int) error {
	if normalized, ok := synonyms[part][strconv.Itoa(n)]; ok {
		n = normalized
	}
	if err := checkBounds(part, n); err != nil {
		return err
	}
	e.parts[part] = append(e.parts[part], Value{Kind: KindNumber, Number: n})
	return nil
}

func (e *Expression) addRange(part Part, r Range) error {
	low, ok := rangeBound(part, r.Min)
	if !ok {
		return fmt.Errorf("%w: invalid value for min: %v", ErrInvalidArgument, r.Min)
	}
	if err := checkBounds(part, low); err != nil {
		return err
	}

	high, ok := rangeBound(part, r.Max)
	if !ok {
		return fmt.Errorf("%w: invalid value for max: %v", ErrInvalidArgument, r.Max)
	}
	// "sun" closing a weekday range is the end of the week: mon-sun is 1-7.
	if part == DayOfWeek && high == 0 && low > 0 {
		high = 7
	}
	if err := checkBounds(part, high); err != nil {
		return err
	}

	step := 1
	if r.Step != nil {
		step, ok = toInt(r.Step)
		if !ok || step < 1 {
			return fmt.Errorf("%w: invalid value for step: %v", ErrInvalidArgument, r.Step)
		}
	}

	e.parts[part] = append(e.parts[part], Value{Kind: KindRange, Min: low, Max: high, Step: step})
	return nil
}

func (e *Expression) addScalar(part Part, s Scalar) error {
	if s.Scalar == nil {
		return fmt.Errorf("%w: scalar is missing", ErrInvalidArgument)
	}

	step := 1
	if s.Step != nil {
		if _, numeric := toInt(s.Scalar); numeric {
			return fmt.Errorf("%w: illegal use of a step in conjunction with a number", ErrInvalidArgument)
		}
		var ok bool
		if step, ok = toInt(s.Step); !ok {
			return fmt.Errorf("%w: invalid value for step: %v", ErrInvalidArgument, s.Step)
		}
	}

	if s.Scalar != "*" || step <= 1 {
		return e.AddPart(part, s.Scalar)
	}

	e.parts[part] = append(e.parts[part], Value{Kind: KindEvery, Step: step})
	return nil
}

func checkBounds(part Part, n int) error {
	b := bounds[part]
	if n < b.min || n > b.max {
		return fmt.Errorf("%w: %d not in [%d, %d] for %s", ErrOutOfRange, n, b.min, b.max, part)
	}
	return nil
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case string:
		i, err := strconv.Atoi(n)
		return i, err == nil
	}
	return 0, false
}

// rangeBound accepts names ("mon-fri") next to numbers; numeric bounds are
// taken as written.
func rangeBound(part Part, v any) (int, bool) {
	if n, ok := toInt(v); ok {
		return n, true
	}
	if s, ok := v.(string); ok {
		n, found := synonyms[part][strings.ToLower(s)]
		return n, found
	}
	return 0, false
}

// Render returns the textual form, always using numbers for months and
// weekdays.
func (e *Expression) Render() string {
	rendered := make([]string, partCount)
	for i, values := range e.parts {
		rendered[i] = renderPart(values)
	}
	return strings.Join(rendered, " ")
}

func (e *Expression) String() string {
	return e.Render()
}

func renderPart(values []Value) string {
	if len(values) == 0 {
		return "*"
	}
	items := make([]string, len(values))
	for i, v := range values {
		items[i] = v.String()
	}
	return strings.Join(items, ",")
}
