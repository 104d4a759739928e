package tools

import (
	"bytes"
	"context"
	"os/exec"

	"go.uber.org/zap"
)

// ShellRunner runs arbitrary shell command strings in a fixed working
// directory. The command string is passed to the shell unmodified, with
// no validation or allow-listing; callers must only expose this to
// trusted clients.
type ShellRunner struct {
	Log *zap.SugaredLogger
	// Dir is the working directory for every command.
	Dir string
}

// Run executes the command with "sh -c" and blocks until it exits.
// It returns stdout if non-empty, otherwise stderr, otherwise "".
// The exit code is logged but not returned; that asymmetry is inherited
// from the original service and kept for compatibility.
// If the process cannot be spawned at all, the error text is returned as
// the result rather than propagated.
//
// ctx cancellation does not kill the process: a command that is already
// running when its session disconnects completes (or errors) on its own,
// so its side effects are never half-applied.
func (s *ShellRunner) Run(ctx context.Context, command string) string {
	s.Log.Infof("received command: %s", command)
	s.Log.Debugf("executing in workspace: %s", s.Dir)

	cmd := exec.Command("sh", "-c", command)
	cmd.Dir = s.Dir
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		s.Log.Errorf("command failed to start: %s", err)
		return err.Error()
	}

	// Wait errors for non-zero exits; the exit code below covers that.
	_ = cmd.Wait()

	s.Log.Infof("command finished, exit code %d", cmd.ProcessState.ExitCode())
	if stdout.Len() > 0 {
		s.Log.Debugf("stdout:\n%s", stdout.String())
	}
	if stderr.Len() > 0 {
		s.Log.Warnf("stderr:\n%s", stderr.String())
	}

	if stdout.Len() > 0 {
		return stdout.String()
	}
	return stderr.String()
}
