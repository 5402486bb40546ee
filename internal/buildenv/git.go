package buildenv

import (
	"context"
	"os/exec"
	"strings"
)

// CommitHash returns the commit checked out in dir.
func CommitHash(ctx context.Context, dir string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "-C", dir, "rev-parse", "HEAD")
	output, err := cmd.Output()
	if err != nil {
		return "", &ConfigError{Field: "commit", Reason: "failed to read HEAD commit", Err: err}
	}

	commit := strings.TrimSpace(string(output))
	if commit == "" {
		return "", &ConfigError{Field: "commit", Reason: "git returned an empty commit"}
	}
	return commit, nil
}

// ResolveCommit fills in Commit from the repository at RootDir. Only the
// prod profile embeds it.
func (e *Env) ResolveCommit(ctx context.Context) error {
	commit, err := CommitHash(ctx, e.RootDir)
	if err != nil {
		return err
	}
	e.Commit = commit
	return nil
}
