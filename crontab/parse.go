package crontab

import (
	"strings"

	"github.com/cronkeep/cronkeep/cronexpr"
)

type crontabLine struct {
	Paused   bool
	Schedule string
	Command  string
}

type line struct {
	text  string
	start int
	end   int
}

// block is a parsed job together with its byte span in the buffer it was
// parsed from. The span covers the comment line, if any, and the command
// line including its line ending.
type block struct {
	crontabLine
	comment string
	start   int
	end     int
}

// splitLines cuts raw into lines. end points past the line ending; text
// excludes it.
func splitLines(raw string) []line {
	lines := make([]line, 0)

	for start := 0; start < len(raw); {
		end := strings.IndexByte(raw[start:], '\n')
		if end < 0 {
			end = len(raw)
		} else {
			end += start + 1
		}

		text := strings.TrimRight(raw[start:end], "\r\n")
		lines = append(lines, line{text: text, start: start, end: end})
		start = end
	}

	return lines
}

// parseJobLine matches "[#] schedule command". A leading "#" marks a
// paused job.
func parseJobLine(text string) (*crontabLine, bool) {
	s := strings.TrimLeft(text, " \t")

	paused := false
	if strings.HasPrefix(s, "#") {
		paused = true
		s = strings.TrimLeft(s[1:], " \t")
	}

	scheduleEnds, ok := cronexpr.Scan(s)
	if !ok {
		return nil, false
	}

	command := strings.Trim(s[scheduleEnds:], " \t")
	if command == "" {
		return nil, false
	}

	return &crontabLine{
		Paused:   paused,
		Schedule: s[:scheduleEnds],
		Command:  command,
	}, true
}

func parseCommentLine(text string) (string, bool) {
	s := strings.TrimLeft(text, " \t")
	if !strings.HasPrefix(s, "#") {
		return "", false
	}

	comment := strings.TrimSpace(s[1:])
	return comment, comment != ""
}

// parseBlocks finds every job in raw. A comment line is attached to the job
// on the line right below it, unless the comment line is itself a job
// (commented out, i.e. paused).
func parseBlocks(raw string) []block {
	lines := splitLines(raw)

	jobLines := make([]*crontabLine, len(lines))
	for i, l := range lines {
		jobLines[i], _ = parseJobLine(l.text)
	}

	blocks := make([]block, 0)
	for i, jobLine := range jobLines {
		if jobLine == nil {
			continue
		}

		b := block{crontabLine: *jobLine, start: lines[i].start, end: lines[i].end}

		if i > 0 && jobLines[i-1] == nil {
			if comment, ok := parseCommentLine(lines[i-1].text); ok {
				b.comment = comment
				b.start = lines[i-1].start
			}
		}

		blocks = append(blocks, b)
	}

	return blocks
}
