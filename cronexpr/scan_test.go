package cronexpr

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

var scanTestCases = []struct {
	line string
	end  int
	ok   bool
}{
	{"* * * * * foo", 9, true},
	{"*/5 1-3 1,15 jan sun /bin/x", 20, true},
	{"0 0 * * mon-fri job", 15, true},
	{"*\t*\t*\t*\t*\ttabs", 9, true},
	{"@hourly foo", 7, true},
	{"@reboot foo", 7, true},
	{"@Midnight\tfoo", 9, true},
	{"@daily", 6, true},
	{"* * * * *", 9, true},
	{"5% * * * * x", 10, true},

	{"@never foo", 0, false},
	{"@dailyfoo", 0, false},
	{"* * * * foo", 0, false},
	{"* * * *", 0, false},
	{"* * * * *foo", 0, false},
	{"FOO=bar", 0, false},
	{"backup job", 0, false},
	{"", 0, false},
	{" * * * * * x", 0, false},
}

func TestScan(t *testing.T) {
	for _, tt := range scanTestCases {
		label := fmt.Sprintf("Scan(%q)", tt.line)

		end, ok := Scan(tt.line)
		assert.Equal(t, tt.ok, ok, label)
		assert.Equal(t, tt.end, end, label)
	}
}
