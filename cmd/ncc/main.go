// Command ncc compiles programs directly to native Linux/x86-64
// executables: a single-pass parser drives an instruction encoder and a
// minimal ELF64 writer, with no intermediate representation and no
// linker.
package main

import (
	"fmt"
	"os"
	"strings"
)

func usage() {
	fmt.Fprintln(os.Stderr, `usage: ncc <file> [-o output] [--raw] [--watch]
       ncc build [-o output] [--raw] [--watch] <file>
       ncc run [--raw-entry] [--watch] <file>

Bare "ncc <file>" is shorthand for "ncc build <file>".`)
	os.Exit(1)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}
	switch os.Args[1] {
	case "build":
		cmdBuild(os.Args[2:])
	case "run":
		cmdRun(os.Args[2:])
	case "-h", "--help", "help":
		usage()
	default:
		cmdBuild(os.Args[1:])
	}
}

// reorderArgs moves every recognised flag (and its value, for flags in
// valueFlags) to the front of args, leaving positional arguments after.
// The source language places the input file first on the command line
// rather than last, which the standard flag package's stop-at-first-
// positional-argument parsing doesn't tolerate directly.
func reorderArgs(args []string, valueFlags map[string]bool) []string {
	flags := make([]string, 0, len(args))
	positional := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		a := args[i]
		if strings.HasPrefix(a, "-") {
			flags = append(flags, a)
			if valueFlags[a] && i+1 < len(args) {
				i++
				flags = append(flags, args[i])
			}
			continue
		}
		positional = append(positional, a)
	}
	return append(flags, positional...)
}

func readSource(file string) ([]byte, error) {
	return os.ReadFile(file)
}
