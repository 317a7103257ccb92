package runner

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/creack/pty"
)

// Job is a running process, owned either by the Controller or by an adapter.
type Job interface {
	// Wait blocks until the job ends and returns its exit code.
	Wait() (int, error)
}

// Canceler is implemented by jobs that can be stopped.
type Canceler interface {
	Cancel() error
}

const (
	// ExitNotStarted is the exit code recorded when a command cannot be spawned.
	ExitNotStarted = 127

	ptyDrainTimeout = 2 * time.Second
	ptyRows         = 24
	ptyCols         = 120
)

type execJob struct {
	cmd    *exec.Cmd
	ptmx   *os.File
	log    *os.File
	copied chan struct{}
}

// startExec spawns argv with stdout and stderr going straight into logFile,
// or through a pseudo-terminal when usePTY is set.
func startExec(argv []string, dir string, env []string, logFile *os.File, usePTY bool) (*execJob, error) {
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = dir
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}

	job := &execJob{cmd: cmd, log: logFile}
	if usePTY {
		ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: ptyRows, Cols: ptyCols})
		if err != nil {
			return nil, fmt.Errorf("start %s in pty: %w", argv[0], err)
		}
		job.ptmx = ptmx
		job.copied = make(chan struct{})
		go func() {
			defer close(job.copied)
			// The pty returns EIO once the child exits.
			_, _ = io.Copy(logFile, ptmx)
		}()
		return job, nil
	}

	cmd.Stdout = logFile
	cmd.Stderr = logFile
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", argv[0], err)
	}
	// The child holds its own descriptor.
	_ = logFile.Close()
	job.log = nil
	return job, nil
}

func (j *execJob) Wait() (int, error) {
	err := j.cmd.Wait()
	if j.ptmx != nil {
		select {
		case <-j.copied:
		case <-time.After(ptyDrainTimeout):
		}
		_ = j.ptmx.Close()
	}
	if j.log != nil {
		_ = j.log.Close()
	}
	return exitCode(err)
}

func (j *execJob) Cancel() error {
	if j.cmd.Process == nil {
		return nil
	}
	if err := j.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill process: %w", err)
	}
	return nil
}

func exitCode(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return 128 + int(ws.Signal()), nil
		}
		return exitErr.ExitCode(), nil
	}
	return 1, err
}

// failedJob stands in for a command that never started.
type failedJob struct {
	err error
}

func (j failedJob) Wait() (int, error) { return ExitNotStarted, j.err }
