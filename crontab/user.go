package crontab

import (
	"context"
	"fmt"
	"strings"

	"github.com/cronkeep/cronkeep/process"
)

const DefaultWhoamiBin = "whoami"

// SystemUser returns the name of the user whose crontab is being managed.
func SystemUser(ctx context.Context, runner process.Runner, bin string) (string, error) {
	if bin == "" {
		bin = DefaultWhoamiBin
	}

	res, err := runner.Run(ctx, process.Command{Name: bin})
	if err != nil {
		return "", fmt.Errorf("failed to determine current user: %w", err)
	}

	user := strings.TrimSpace(res.Stdout)
	if !res.Success() || user == "" {
		return "", fmt.Errorf("failed to determine current user: %s", strings.TrimSpace(res.Stderr))
	}

	return user, nil
}
