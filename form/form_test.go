package form

import (
	"fmt"
	"net/url"
	"sort"
	"testing"

	"github.com/cronkeep/cronkeep/cronexpr"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValues(t *testing.T) {
	input := url.Values{
		"name":                          {"backup"},
		"time[picker]":                  {"everyHour"},
		"time[everyHour][step]":         {"2"},
		"time[everyHour][minute]":       {"15"},
		"repeat[picker]":                {"weekly"},
		"repeat[weekly][dayOfWeek][]":   {"1", "3", "5"},
		"repeat[monthly][dayOfMonth][]": {},
		"broken[key":                    {"kept"},
	}

	expected := Values{
		"name": "backup",
		"time": Values{
			"picker":    "everyHour",
			"everyHour": Values{"step": "2", "minute": "15"},
		},
		"repeat": Values{
			"picker": "weekly",
			"weekly": Values{"dayOfWeek": []string{"1", "3", "5"}},
		},
		"broken[key": "kept",
	}

	if diff := cmp.Diff(expected, ParseValues(input)); diff != "" {
		t.Errorf("ParseValues() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseQuery(t *testing.T) {
	values, err := ParseQuery("time%5Bpicker%5D=specificTime&time[specificTime][hour]=9&time[specificTime][minute]=30&repeat[picker]=daily")
	require.Nil(t, err)

	assert.Equal(t, SpecificTime, values.String("time", "picker"))
	assert.Equal(t, "9", values.String("time", SpecificTime, "hour"))
	assert.Equal(t, []string{"30"}, values.Strings("time", SpecificTime, "minute"))
	assert.Nil(t, values.Get("time", "picker", "deeper"))
	assert.Equal(t, "", values.String("missing"))

	_, err = ParseQuery("%zz")
	assert.NotNil(t, err)
}

func specificTime(hour, minute string) Values {
	return Values{"picker": SpecificTime, SpecificTime: Values{"hour": hour, "minute": minute}}
}

func everyHour(step, minute string) Values {
	return Values{"picker": EveryHour, EveryHour: Values{"step": step, "minute": minute}}
}

func everyMinute(step string) Values {
	return Values{"picker": EveryMinute, EveryMinute: Values{"step": step}}
}

func daily() Values {
	return Values{"picker": Daily}
}

func weekly(days ...string) Values {
	return Values{"picker": Weekly, Weekly: Values{"dayOfWeek": days}}
}

func monthly(days ...string) Values {
	return Values{"picker": Monthly, Monthly: Values{"dayOfMonth": days}}
}

func yearly(month, day string) Values {
	return Values{"picker": Yearly, Yearly: Values{"month": month, "dayOfMonth": day}}
}

var createExpressionTestCases = []struct {
	label    string
	values   Values
	expected string
}{
	{"specific time, daily", Values{"time": specificTime("9", "30"), "repeat": daily()}, "30 9 * * *"},
	{"every 2 hours", Values{"time": everyHour("2", "15"), "repeat": daily()}, "15 */2 * * *"},
	{"every hour", Values{"time": everyHour("1", "0"), "repeat": daily()}, "0 * * * *"},
	{"every 5 minutes", Values{"time": everyMinute("5"), "repeat": daily()}, "*/5 * * * *"},
	{"every minute", Values{"time": everyMinute("1"), "repeat": daily()}, "* * * * *"},
	{"weekly", Values{"time": specificTime("8", "0"), "repeat": weekly("1", "3", "5")}, "0 8 * * 1,3,5"},
	{"weekly by name", Values{"time": specificTime("8", "0"), "repeat": weekly("sun", "sat")}, "0 8 * * 0,6"},
	{"monthly", Values{"time": specificTime("0", "0"), "repeat": monthly("1", "15")}, "0 0 1,15 * *"},
	{"yearly", Values{"time": specificTime("0", "0"), "repeat": yearly("12", "25")}, "0 0 25 12 *"},
	{
		"options of other pickers are ignored",
		Values{
			"time": Values{
				"picker":     SpecificTime,
				SpecificTime: Values{"hour": "6", "minute": "45"},
				EveryMinute:  Values{"step": "10"},
			},
			"repeat": Values{
				"picker": Daily,
				Weekly:   Values{"dayOfWeek": []string{"2"}},
			},
		},
		"45 6 * * *",
	},
}

func TestCreateExpression(t *testing.T) {
	for _, tt := range createExpressionTestCases {
		expr, err := CreateExpression(tt.values)
		if assert.Nil(t, err, tt.label) {
			assert.Equal(t, tt.expected, expr.Render(), tt.label)
		}
	}
}

var createExpressionFailureTestCases = []struct {
	label    string
	values   Values
	expected error
}{
	{"no time picker", Values{"repeat": daily()}, ErrUnknownPicker},
	{"bad time picker", Values{"time": Values{"picker": "sometimes"}, "repeat": daily()}, ErrUnknownPicker},
	{"bad repeat picker", Values{"time": everyMinute("1"), "repeat": Values{"picker": "hourly"}}, ErrUnknownPicker},
	{"missing hour", Values{"time": Values{"picker": SpecificTime, SpecificTime: Values{"minute": "1"}}, "repeat": daily()}, ErrMissingField},
	{"missing step", Values{"time": Values{"picker": EveryMinute}, "repeat": daily()}, ErrMissingField},
	{"no weekdays", Values{"time": everyMinute("1"), "repeat": Values{"picker": Weekly}}, ErrMissingField},
	{"no month days", Values{"time": everyMinute("1"), "repeat": Values{"picker": Monthly}}, ErrMissingField},
	{"missing yearly month", Values{"time": everyMinute("1"), "repeat": Values{"picker": Yearly, Yearly: Values{"dayOfMonth": "1"}}}, ErrMissingField},
	{"hour out of range", Values{"time": specificTime("24", "0"), "repeat": daily()}, cronexpr.ErrOutOfRange},
	{"minute out of range", Values{"time": everyHour("2", "60"), "repeat": daily()}, cronexpr.ErrOutOfRange},
	{"non-numeric step", Values{"time": everyMinute("often"), "repeat": daily()}, cronexpr.ErrInvalidArgument},
	{"month out of range", Values{"time": specificTime("0", "0"), "repeat": yearly("13", "1")}, cronexpr.ErrOutOfRange},
}

func TestCreateExpressionFailures(t *testing.T) {
	for _, tt := range createExpressionFailureTestCases {
		_, err := CreateExpression(tt.values)
		assert.ErrorIs(t, err, tt.expected, tt.label)
	}
}

var isSimpleExpressionTestCases = []struct {
	expression string
	simple     bool
}{
	{"30 9 * * *", true},
	{"* * * * *", true},
	{"*/5 * * * *", true},
	{"15 */2 * * *", true},
	{"15 * * * *", true},
	{"0 8 * * 1-5", true},
	{"0 8 * * 1,3,5", true},
	{"0 0 1,15 * *", true},
	{"0 0 1-10 * *", true},
	{"0 0 25 12 *", true},
	{"@daily", true},
	{"@weekly", true},
	{"@monthly", true},
	{"@yearly", true},
	{"* 5 * * *", true},

	{"0 9-17/2 * * *", false},
	{"0,30 9 * * *", false},
	{"0 9,17 * * *", false},
	{"0-10 * * * *", false},
	{"*/5 9 * * *", false},
	{"* */2 * * *", false},
	{"*/5 */2 * * *", false},
	{"0 0 1,15 * 1", false},
	{"0 0 * 1 1", false},
	{"0 0 * * 1-5/2", false},
	{"0 0 1-31/2 * *", false},
	{"0 0 * 6 *", false},
	{"0 0 1,15 6 *", false},
	{"0 0 1 1-6 *", false},
	{"0 0 1-5 6 *", false},
}

func TestIsSimpleExpression(t *testing.T) {
	for _, tt := range isSimpleExpressionTestCases {
		label := fmt.Sprintf("IsSimpleExpression(%q)", tt.expression)

		expr, err := cronexpr.Create(tt.expression)
		require.Nil(t, err, label)
		assert.Equal(t, tt.simple, IsSimpleExpression(expr), label)
	}
}

var hydrateTestCases = []struct {
	expression string
	expected   Values
}{
	{"30 9 * * *", Values{"time": specificTime("9", "30"), "repeat": daily()}},
	{"15 */2 * * *", Values{"time": everyHour("2", "15"), "repeat": daily()}},
	{"15 * * * *", Values{"time": everyHour("1", "15"), "repeat": daily()}},
	{"*/10 * * * *", Values{"time": everyMinute("10"), "repeat": daily()}},
	{"* * * * *", Values{"time": everyMinute("1"), "repeat": daily()}},
	{"0 8 * * 1-3,5", Values{"time": specificTime("8", "0"), "repeat": weekly("1", "2", "3", "5")}},
	{"0 8 * * mon-sun", Values{"time": specificTime("8", "0"), "repeat": weekly("1", "2", "3", "4", "5", "6", "0")}},
	{"0 8 * * sat-sun", Values{"time": specificTime("8", "0"), "repeat": weekly("6", "0")}},
	{"0 0 1,15 * *", Values{"time": specificTime("0", "0"), "repeat": monthly("1", "15")}},
	{"0 0 25 dec *", Values{"time": specificTime("0", "0"), "repeat": yearly("12", "25")}},
}

// weekdays lists the days an expression fires on, with 7 folded into 0.
func weekdays(expr *cronexpr.Expression) []string {
	days := ExpandRanges(expr.DayOfWeek())
	for i, day := range days {
		if day == "7" {
			days[i] = "0"
		}
	}
	sort.Strings(days)
	return days
}

func TestHydrate(t *testing.T) {
	for _, tt := range hydrateTestCases {
		label := fmt.Sprintf("Hydrate(%q)", tt.expression)

		expr, err := cronexpr.Create(tt.expression)
		require.Nil(t, err, label)

		values, err := Hydrate(expr)
		if !assert.Nil(t, err, label) {
			continue
		}
		if diff := cmp.Diff(tt.expected, values); diff != "" {
			t.Errorf("%s mismatch (-want +got):\n%s", label, diff)
		}

		// The form gives back an equivalent expression.
		recreated, err := CreateExpression(values)
		if assert.Nil(t, err, label) {
			assert.Equal(t, weekdays(expr), weekdays(recreated), label)
			assert.Equal(t, ExpandRanges(expr.DayOfMonth()), ExpandRanges(recreated.DayOfMonth()), label)
			assert.Equal(t, expr.Minute(), recreated.Minute(), label)
			assert.Equal(t, expr.Hour(), recreated.Hour(), label)
			assert.Equal(t, expr.Month(), recreated.Month(), label)
		}
	}
}

func TestHydrateRejectsComplexExpressions(t *testing.T) {
	expr, err := cronexpr.Create("0 9-17/2 * * *")
	require.Nil(t, err)

	_, err = Hydrate(expr)
	assert.ErrorIs(t, err, ErrNotSimple)
}

func TestHydrateHourWithoutMinute(t *testing.T) {
	expr, err := cronexpr.Create("* 5 * * *")
	require.Nil(t, err)

	values, err := Hydrate(expr)
	require.Nil(t, err)
	assert.Equal(t, EveryMinute, values.String("time", "picker"))
}

func TestExpandRanges(t *testing.T) {
	expr := cronexpr.New()
	require.Nil(t, expr.AddDayOfMonth(cronexpr.Range{Min: 1, Max: 4}))
	require.Nil(t, expr.AddDayOfMonth(7))
	require.Nil(t, expr.AddDayOfMonth(cronexpr.Range{Min: 10, Max: 20, Step: 5}))
	require.Nil(t, expr.AddDayOfMonth("L"))

	assert.Equal(t, []string{"1", "2", "3", "4", "7", "10", "15", "20", "L"}, ExpandRanges(expr.DayOfMonth()))
	assert.Equal(t, []string{}, ExpandRanges(nil))
}

func TestEncode(t *testing.T) {
	values := Values{"time": specificTime("9", "30"), "repeat": weekly("1", "5"), "name": "a b"}

	encoded := values.Encode()
	assert.Equal(t, "name=a+b&repeat[picker]=weekly&repeat[weekly][dayOfWeek][]=1&repeat[weekly][dayOfWeek][]=5&time[picker]=specificTime&time[specificTime][hour]=9&time[specificTime][minute]=30", encoded)

	decoded, err := ParseQuery(encoded)
	require.Nil(t, err)
	if diff := cmp.Diff(values, decoded); diff != "" {
		t.Errorf("ParseQuery(Encode()) mismatch (-want +got):\n%s", diff)
	}
}
