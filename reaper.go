package main

import (
	"fmt"
	"os"
	"syscall"

	reaper "github.com/ramr/go-reaper"
	"github.com/sirupsen/logrus"
)

// forkExec runs when cronkeep is PID 1, typically as a container
// entrypoint for "cronkeep watch". Jobs handed to the shell by "run" are
// re-parented to PID 1 once their caller exits, so this process stays
// behind as a reaper and runs the requested command in a child cronkeep
// started with --no-reap. It exits with the child's status.
func forkExec() {
	go reaper.Reap()

	exe, args, err := childCommand(os.Args)
	if err != nil {
		logrus.Fatalf("Failed to locate the cronkeep binary: %s", err)
		return
	}

	dir, err := os.Getwd()
	if err != nil {
		logrus.Fatalf("Failed to get current working directory: %s", err)
		return
	}

	pid, err := syscall.ForkExec(exe, args, &syscall.ProcAttr{
		Dir:   dir,
		Env:   os.Environ(),
		Sys:   &syscall.SysProcAttr{Setsid: true},
		Files: []uintptr{uintptr(syscall.Stdin), uintptr(syscall.Stdout), uintptr(syscall.Stderr)},
	})
	if err != nil {
		logrus.Fatalf("Failed to start the cronkeep child: %s", err)
		return
	}
	logrus.WithFields(logrus.Fields{"pid": pid}).Debug("cronkeep child started, reaping orphans")

	status, err := waitChild(pid)
	if err != nil {
		logrus.Fatalf("Failed to wait for the cronkeep child: %s", err)
		return
	}
	os.Exit(status.ExitStatus())
}

// waitChild waits for pid only, leaving every other exited process to the
// reaper.
func waitChild(pid int) (syscall.WaitStatus, error) {
	var status syscall.WaitStatus
	for {
		_, err := syscall.Wait4(pid, &status, 0, nil)
		if err != syscall.EINTR {
			return status, err
		}
	}
}

// childCommand resolves the path of the running binary, since os.Args[0]
// may be a bare name looked up in PATH, and places --no-reap right after
// it so the child skips this branch.
func childCommand(argv []string) (string, []string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", nil, err
	}
	if len(argv) == 0 {
		return "", nil, fmt.Errorf("empty argument list")
	}

	args := make([]string, 0, len(argv)+1)
	args = append(args, argv[0], "--no-reap")
	for _, arg := range argv[1:] {
		if arg != "--no-reap" {
			args = append(args, arg)
		}
	}
	return exe, args, nil
}
