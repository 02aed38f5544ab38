package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nanolang/ncc/internal/compiler"
	"github.com/nanolang/ncc/internal/watch"
	"github.com/nanolang/ncc/pkg/elf"
)

func cmdBuild(args []string) {
	args = reorderArgs(args, map[string]bool{"-o": true})
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	output := fs.String("o", "", "output file (default: a.out)")
	raw := fs.Bool("raw", false, "write only the code+data buffer, not a wrapped ELF64 executable")
	watchFlag := fs.Bool("watch", false, "rebuild automatically whenever the input file changes")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: ncc build [-o output] [--raw] [--watch] <file>")
		fmt.Fprintln(os.Stderr, "\nProduces a native ELF64 Linux executable directly.")
		fs.PrintDefaults()
		os.Exit(1)
	}
	fs.Parse(args)
	if fs.NArg() != 1 {
		fs.Usage()
	}

	file := filepath.Clean(fs.Arg(0))
	outFile := *output
	if outFile == "" {
		outFile = "a.out"
	}

	doBuild := func() {
		if err := buildOnce(file, outFile, *raw); err != nil {
			fmt.Fprintln(os.Stderr, err)
			if !*watchFlag {
				os.Exit(1)
			}
		}
	}
	doBuild()
	if *watchFlag {
		runUntilInterrupted(file, doBuild)
	}
}

// buildOnce compiles file and writes the result to outFile: the bare
// code+data buffer when raw is set, otherwise a full ELF64 executable
// with mode 0755.
func buildOnce(file, outFile string, raw bool) error {
	src, err := readSource(file)
	if err != nil {
		return err
	}
	result, err := compiler.New(src).Compile()
	if err != nil {
		return err
	}

	if raw {
		if err := os.WriteFile(outFile, result.Code, 0644); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "built %s -> %s (raw, %s)\n", file, outFile, result.Report)
		return nil
	}

	b := elf.NewBuilder()
	b.SetCode(result.Code)
	b.SetGlobalBytes(result.GlobalBytes)
	if err := os.WriteFile(outFile, b.Build(), 0755); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "built %s -> %s (%s)\n", file, outFile, result.Report)
	return nil
}

// compileToELF runs the full file-to-executable pipeline: read source,
// compile, wrap in an ELF64 image. Used by `run`, which always executes
// a real ELF binary regardless of `build`'s --raw.
func compileToELF(file string) (binary []byte, report string, err error) {
	src, err := readSource(file)
	if err != nil {
		return nil, "", err
	}
	result, err := compiler.New(src).Compile()
	if err != nil {
		return nil, "", err
	}
	b := elf.NewBuilder()
	b.SetCode(result.Code)
	b.SetGlobalBytes(result.GlobalBytes)
	return b.Build(), result.Report, nil
}

// runUntilInterrupted watches file and calls rebuild on every change,
// blocking until the watcher errors out (including platforms where
// watching isn't supported at all).
func runUntilInterrupted(file string, rebuild func()) {
	w, err := watch.New(file, rebuild)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer w.Close()
	if err := w.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
