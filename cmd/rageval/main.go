package main

import (
	"fmt"
	"log"
	"os"

	"github.com/wordflowlab/rageval"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	switch cmd {
	case "run":
		if err := runEval(os.Args[2:]); err != nil {
			log.Fatalf("rageval run failed: %v", err)
		}
	case "watch":
		if err := runWatch(os.Args[2:]); err != nil {
			log.Fatalf("rageval watch failed: %v", err)
		}
	case "version", "-v", "--version":
		fmt.Println("rageval", rageval.Version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  rageval run [flags]")
	fmt.Println("  rageval watch [flags]")
	fmt.Println()
	fmt.Println("Subcommands:")
	fmt.Println("  run      Evaluate a dataset and write results")
	fmt.Println("  watch    Watch a directory and evaluate new datasets automatically")
	fmt.Println("  version  Print version")
	fmt.Println()
	fmt.Println("Use 'rageval <subcommand> -h' for subcommand-specific flags.")
}
