package form

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cronkeep/cronkeep/cronexpr"
)

// Picker values. Each also names the nested values holding its options.
const (
	SpecificTime = "specificTime"
	EveryHour    = "everyHour"
	EveryMinute  = "everyMinute"

	Daily   = "daily"
	Weekly  = "weekly"
	Monthly = "monthly"
	Yearly  = "yearly"
)

var (
	ErrNotSimple     = errors.New("expression is too complex to be rendered by the simple form")
	ErrUnknownPicker = errors.New("unknown picker value")
	ErrMissingField  = errors.New("missing form field")
)

// CreateExpression builds an expression from simple form values. Options
// of the pickers that were not chosen are ignored.
func CreateExpression(values Values) (*cronexpr.Expression, error) {
	expr := cronexpr.New()

	timePicker := values.String("time", "picker")
	switch timePicker {
	case SpecificTime:
		hour, err := required(values, "time", SpecificTime, "hour")
		if err != nil {
			return nil, err
		}
		minute, err := required(values, "time", SpecificTime, "minute")
		if err != nil {
			return nil, err
		}
		if err := expr.SetHour(hour); err != nil {
			return nil, err
		}
		if err := expr.SetMinute(minute); err != nil {
			return nil, err
		}

	case EveryHour:
		step, err := required(values, "time", EveryHour, "step")
		if err != nil {
			return nil, err
		}
		minute, err := required(values, "time", EveryHour, "minute")
		if err != nil {
			return nil, err
		}
		if err := expr.SetHour(cronexpr.Scalar{Scalar: "*", Step: step}); err != nil {
			return nil, err
		}
		if err := expr.SetMinute(minute); err != nil {
			return nil, err
		}

	case EveryMinute:
		step, err := required(values, "time", EveryMinute, "step")
		if err != nil {
			return nil, err
		}
		if err := expr.SetMinute(cronexpr.Scalar{Scalar: "*", Step: step}); err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("%w: time %q", ErrUnknownPicker, timePicker)
	}

	repeatPicker := values.String("repeat", "picker")
	switch repeatPicker {
	case Daily:
		// every day: nothing to add

	case Weekly:
		days := values.Strings("repeat", Weekly, "dayOfWeek")
		if len(days) == 0 {
			return nil, fmt.Errorf("%w: repeat.%s.dayOfWeek", ErrMissingField, Weekly)
		}
		for _, day := range days {
			if err := expr.AddDayOfWeek(day); err != nil {
				return nil, err
			}
		}

	case Monthly:
		days := values.Strings("repeat", Monthly, "dayOfMonth")
		if len(days) == 0 {
			return nil, fmt.Errorf("%w: repeat.%s.dayOfMonth", ErrMissingField, Monthly)
		}
		for _, day := range days {
			if err := expr.AddDayOfMonth(day); err != nil {
				return nil, err
			}
		}

	case Yearly:
		month, err := required(values, "repeat", Yearly, "month")
		if err != nil {
			return nil, err
		}
		day, err := required(values, "repeat", Yearly, "dayOfMonth")
		if err != nil {
			return nil, err
		}
		if err := expr.SetMonth(month); err != nil {
			return nil, err
		}
		if err := expr.SetDayOfMonth(day); err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("%w: repeat %q", ErrUnknownPicker, repeatPicker)
	}

	return expr, nil
}

func required(values Values, path ...string) (string, error) {
	value := values.String(path...)
	if value == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingField, strings.Join(path, "."))
	}
	return value, nil
}

// compound values are the ones stored with more than a single number or
// literal: ranges and "*/step".
func compound(v cronexpr.Value) bool {
	return v.Kind == cronexpr.KindRange || v.Kind == cronexpr.KindEvery
}

func stepped(values []cronexpr.Value) bool {
	for _, v := range values {
		if compound(v) && v.Step > 1 {
			return true
		}
	}
	return false
}

// IsSimpleExpression tells whether the simple form can show expr without
// losing information.
func IsSimpleExpression(expr *cronexpr.Expression) bool {
	minute := expr.Minute()
	hour := expr.Hour()
	dayOfMonth := expr.DayOfMonth()
	month := expr.Month()
	dayOfWeek := expr.DayOfWeek()

	// one hour, one minute
	if len(minute) > 1 || len(hour) > 1 {
		return false
	}

	// every n minutes: only "*/n", and no hour
	if len(minute) > 0 && compound(minute[0]) {
		if minute[0].Kind != cronexpr.KindEvery {
			return false
		}
		if len(hour) > 0 {
			return false
		}
	}

	// every n hours: only "*/n", at a given minute
	if len(hour) > 0 && compound(hour[0]) {
		if hour[0].Kind != cronexpr.KindEvery {
			return false
		}
		if len(minute) == 0 || minute[0].Kind != cronexpr.KindNumber {
			return false
		}
	}

	// weekly
	if len(dayOfWeek) > 0 {
		if len(month) > 0 || len(dayOfMonth) > 0 {
			return false
		}
		if stepped(dayOfWeek) {
			return false
		}
	}

	// monthly
	if len(dayOfMonth) > 0 {
		if len(dayOfWeek) > 0 {
			return false
		}
		if stepped(dayOfMonth) {
			return false
		}
	}

	// yearly: one month, one day
	if len(month) > 0 {
		if len(dayOfMonth) != 1 || compound(dayOfMonth[0]) {
			return false
		}
		if len(month) != 1 || compound(month[0]) {
			return false
		}
		if len(dayOfWeek) > 0 {
			return false
		}
	}

	return true
}

// Hydrate returns the simple form values that CreateExpression would turn
// back into expr. It fails with ErrNotSimple unless IsSimpleExpression
// holds.
func Hydrate(expr *cronexpr.Expression) (Values, error) {
	if !IsSimpleExpression(expr) {
		return nil, fmt.Errorf("%w: %s", ErrNotSimple, expr)
	}

	minute := expr.Minute()
	hour := expr.Hour()
	dayOfMonth := expr.DayOfMonth()
	month := expr.Month()
	dayOfWeek := expr.DayOfWeek()

	values := Values{}

	switch {
	case len(hour) > 0 && len(minute) > 0:
		if compound(hour[0]) {
			values.Set(EveryHour, "time", "picker")
			values.Set(strconv.Itoa(hour[0].Step), "time", EveryHour, "step")
			values.Set(minute[0].String(), "time", EveryHour, "minute")
		} else {
			values.Set(SpecificTime, "time", "picker")
			values.Set(hour[0].String(), "time", SpecificTime, "hour")
			values.Set(minute[0].String(), "time", SpecificTime, "minute")
		}

	case len(minute) > 0:
		if compound(minute[0]) {
			values.Set(EveryMinute, "time", "picker")
			values.Set(strconv.Itoa(minute[0].Step), "time", EveryMinute, "step")
		} else {
			values.Set(EveryHour, "time", "picker")
			values.Set("1", "time", EveryHour, "step")
			values.Set(minute[0].String(), "time", EveryHour, "minute")
		}

	default:
		// An hour without a minute ("* 5 * * *") has no simple
		// equivalent and shows as every minute.
		values.Set(EveryMinute, "time", "picker")
		values.Set("1", "time", EveryMinute, "step")
	}

	values.Set(Daily, "repeat", "picker")

	if len(dayOfMonth) > 0 {
		if len(month) > 0 {
			values.Set(Yearly, "repeat", "picker")
			values.Set(dayOfMonth[0].String(), "repeat", Yearly, "dayOfMonth")
			values.Set(month[0].String(), "repeat", Yearly, "month")
		} else {
			values.Set(Monthly, "repeat", "picker")
			values.Set(ExpandRanges(dayOfMonth), "repeat", Monthly, "dayOfMonth")
		}
	}

	if len(dayOfWeek) > 0 {
		values.Set(Weekly, "repeat", "picker")
		values.Set(weekdayValues(dayOfWeek), "repeat", Weekly, "dayOfWeek")
	}

	return values, nil
}

// weekdayValues expands the day-of-week part, writing Sunday as 0 whether
// it came from 0 or from the 7 that closes a range such as mon-sun.
func weekdayValues(values []cronexpr.Value) []string {
	days := make([]string, 0, len(values))
	seen := map[string]bool{}
	for _, day := range ExpandRanges(values) {
		if day == "7" {
			day = "0"
		}
		if !seen[day] {
			seen[day] = true
			days = append(days, day)
		}
	}
	return days
}

// ExpandRanges lists the discrete values of a part: "1-4,7" gives
// [1 2 3 4 7].
func ExpandRanges(values []cronexpr.Value) []string {
	expanded := make([]string, 0, len(values))

	for _, v := range values {
		if v.Kind != cronexpr.KindRange {
			expanded = append(expanded, v.String())
			continue
		}

		step := v.Step
		if step < 1 {
			step = 1
		}
		for n := v.Min; n <= v.Max; n += step {
			expanded = append(expanded, strconv.Itoa(n))
		}
	}

	return expanded
}
