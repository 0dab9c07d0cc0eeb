package metad

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/tdixon97/legend-simflow/internal/ctxlog"
)

// EnsureCheckout makes sure a metadata checkout exists at dir. If dir is
// already present it is left untouched; otherwise the remote repository is
// cloned and, when ref is non-empty, the given ref is checked out. This is
// the one deliberately slow, blocking, network-touching path of the store:
// it runs once per production area and a failure is fatal for the run.
func EnsureCheckout(ctx context.Context, remote, ref, dir string) error {
	logger := ctxlog.FromContext(ctx)

	if info, err := os.Stat(dir); err == nil {
		if !info.IsDir() {
			return &SourceUnavailableError{Root: dir, Err: fmt.Errorf("exists but is not a directory")}
		}
		logger.Debug("metadata checkout already present", "dir", dir)
		return nil
	}

	if remote == "" {
		return &SourceUnavailableError{Root: dir,
			Err: fmt.Errorf("checkout missing and no remote configured")}
	}

	logger.Info("cloning metadata repository", "remote", remote, "dir", dir)
	if err := runGit(ctx, "", "clone", remote, dir); err != nil {
		return &SourceUnavailableError{Root: dir, Err: err}
	}

	if ref != "" {
		logger.Debug("checking out metadata ref", "ref", ref)
		if err := runGit(ctx, dir, "checkout", ref); err != nil {
			return &SourceUnavailableError{Root: dir, Err: err}
		}
	}
	return nil
}

func runGit(ctx context.Context, dir string, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("git %v: %w: %s", args, err, bytes.TrimSpace(stderr.Bytes()))
	}
	return nil
}
