package remote

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/juju/errors"
)

// ExecRunner executes remote operations by shelling out to the ssh and rsync
// binaries on PATH.
type ExecRunner struct {
	// ExtraSSHOpts are appended to every ssh invocation.
	ExtraSSHOpts []string
}

var _ Runner = (*ExecRunner)(nil)

func (r *ExecRunner) sshArgs(h Host) []string {
	args := []string{"-o", "BatchMode=yes"}
	if h.Port > 0 {
		args = append(args, "-p", strconv.Itoa(h.Port))
	}
	if h.SSHConfig != "" {
		args = append(args, "-F", h.SSHConfig)
	}
	return append(args, r.ExtraSSHOpts...)
}

// sshCommand renders the ssh invocation used as the rsync transport.
func (r *ExecRunner) sshCommand(h Host) string {
	return "ssh " + strings.Join(r.sshArgs(h), " ")
}

func rsyncArgs(opts TransferOptions) []string {
	args := []string{"-az"}
	if opts.Delete {
		args = append(args, "--delete")
	}
	if opts.LinkDest != "" {
		args = append(args, "--link-dest", opts.LinkDest)
	}
	return args
}

func (r *ExecRunner) Run(ctx context.Context, h Host, command string, stdin io.Reader) error {
	args := append(r.sshArgs(h), h.UserHost(), command)
	cmd := exec.CommandContext(ctx, "ssh", args...)
	cmd.Stdin = stdin
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return errors.Annotatef(err, "ssh %s: %s", h.Name, strings.TrimSpace(stderr.String()))
	}
	return nil
}

func (r *ExecRunner) Output(ctx context.Context, h Host, command string) ([]byte, error) {
	args := append(r.sshArgs(h), h.UserHost(), command)
	cmd := exec.CommandContext(ctx, "ssh", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, errors.Annotatef(err, "ssh %s: %s", h.Name, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

func (r *ExecRunner) Upload(ctx context.Context, h Host, local, remote string, opts TransferOptions) error {
	args := append(rsyncArgs(opts), "-e", r.sshCommand(h), local, h.UserHost()+":"+remote)
	return r.runRsync(ctx, h, args)
}

func (r *ExecRunner) Download(ctx context.Context, h Host, remote, local string, opts TransferOptions) error {
	args := append(rsyncArgs(opts), "-e", r.sshCommand(h), h.UserHost()+":"+remote, local)
	return r.runRsync(ctx, h, args)
}

func (r *ExecRunner) runRsync(ctx context.Context, h Host, args []string) error {
	cmd := exec.CommandContext(ctx, "rsync", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return errors.Annotatef(err, "rsync %s: %s", h.Name, strings.TrimSpace(stderr.String()))
	}
	return nil
}
