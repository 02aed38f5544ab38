package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

func cmdRun(args []string) {
	args = reorderArgs(args, map[string]bool{})
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	rawEntry := fs.Bool("raw-entry", false, "suppress the statistics line printed to stderr before executing")
	watchFlag := fs.Bool("watch", false, "re-run automatically whenever the input file changes")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: ncc run [--raw-entry] [--watch] <file>")
		fs.PrintDefaults()
		os.Exit(1)
	}
	fs.Parse(args)
	if fs.NArg() != 1 {
		fs.Usage()
	}
	file := filepath.Clean(fs.Arg(0))

	doRun := func() {
		code, err := runOnce(file, *rawEntry)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			if !*watchFlag {
				os.Exit(1)
			}
			return
		}
		if !*watchFlag {
			os.Exit(code)
		}
	}
	doRun()
	if *watchFlag {
		runUntilInterrupted(file, doRun)
	}
}

// runOnce compiles file, writes the executable to a temporary path, runs
// it with this process's standard streams attached, and forwards its
// exit code.
func runOnce(file string, rawEntry bool) (int, error) {
	binary, report, err := compileToELF(file)
	if err != nil {
		return 1, err
	}

	tmp, err := os.CreateTemp("", "ncc-run-*")
	if err != nil {
		return 1, err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(binary); err != nil {
		tmp.Close()
		return 1, err
	}
	if err := tmp.Close(); err != nil {
		return 1, err
	}
	if err := os.Chmod(tmpPath, 0755); err != nil {
		return 1, err
	}

	if !rawEntry {
		fmt.Fprintln(os.Stderr, report)
	}

	cmd := exec.Command(tmpPath)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	runErr := cmd.Run()
	if runErr == nil {
		return 0, nil
	}
	if exitErr, ok := runErr.(*exec.ExitError); ok {
		return exitErr.ExitCode(), nil
	}
	return 1, runErr
}
