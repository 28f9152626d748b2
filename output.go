package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

var (
	Accent = lipgloss.Color("#00D4FF")
	Subtle = lipgloss.Color("#555555")
	Yellow = lipgloss.Color("#E5C07B")

	TitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(Accent)
	HashStyle   = lipgloss.NewStyle().Bold(true)
	PausedStyle = lipgloss.NewStyle().Foreground(Yellow)
	DimStyle    = lipgloss.NewStyle().Foreground(Subtle)
)

type jobView struct {
	Hash       string   `yaml:"hash"`
	Name       string   `yaml:"name,omitempty"`
	Expression string   `yaml:"expression"`
	Command    string   `yaml:"command"`
	Paused     bool     `yaml:"paused"`
	NextRuns   []string `yaml:"next_runs,omitempty"`
	Form       string   `yaml:"form,omitempty"`
}

type listView struct {
	User   string    `yaml:"user"`
	Jobs   []jobView `yaml:"jobs"`
	Notice string    `yaml:"-"`
}

func render[T any](w io.Writer, format string, view T, text func(io.Writer, T)) error {
	switch format {
	case "text":
		text(w, view)
		return nil
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(view); err != nil {
			return fmt.Errorf("failed to encode output: %w", err)
		}
		return enc.Close()
	}
	return &usageError{msg: fmt.Sprintf("unknown format %q", format)}
}

func renderList(w io.Writer, view listView) {
	if view.Notice != "" {
		fmt.Fprintln(w, DimStyle.Render(view.Notice))
	}

	if len(view.Jobs) == 0 {
		fmt.Fprintf(w, "No cron jobs for %s.\n", view.User)
		return
	}

	fmt.Fprintln(w, TitleStyle.Render("Crontab of "+view.User))
	for _, job := range view.Jobs {
		fmt.Fprintln(w)
		renderJob(w, job)
	}
}

func renderJob(w io.Writer, job jobView) {
	header := HashStyle.Render(job.Hash)
	if job.Name != "" {
		header += "  " + job.Name
	}
	if job.Paused {
		header += "  " + PausedStyle.Render("[paused]")
	}
	fmt.Fprintln(w, header)
	fmt.Fprintf(w, "    %s  %s\n", job.Expression, job.Command)

	if len(job.NextRuns) > 0 {
		fmt.Fprintf(w, "    %s %s\n", DimStyle.Render("next:"), strings.Join(job.NextRuns, ", "))
	}
	if job.Form != "" {
		fmt.Fprintf(w, "    %s %s\n", DimStyle.Render("form:"), job.Form)
	}
}
