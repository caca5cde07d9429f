package main

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"ikh/dicom-tree/internal/config"
)

type cliRequest struct {
	configPath     string
	input          string
	output         string
	tagFile        string
	filterFile     string
	csvPath        string
	recursive      int
	recursiveSet   bool
	workers        int
	skipUnreadable bool
	checkTags      bool
	print          bool
	dump           bool
}

const usageHeader = `
Usage:
   dicom-tree -i DIRECTORY -o OUTPUT -t TAGFILE [FLAGS...]

 Reads every DICOM file in DIRECTORY, groups them by study, series and
 instance, and writes the tree to OUTPUT (a file path or s3://bucket/key).

 Flags:
`

func stringFlag(flags *flag.FlagSet, p *string, long, short, usage string) {
	flags.StringVar(p, long, "", usage)
	flags.StringVar(p, short, "", "Shorthand for --"+long)
}

func boolFlag(flags *flag.FlagSet, p *bool, long, short, usage string) {
	flags.BoolVar(p, long, false, usage)
	if short != "" {
		flags.BoolVar(p, short, false, "Shorthand for --"+long)
	}
}

// parseFlags returns a nil request when the run should stop, with the exit
// code to stop with.
func parseFlags(args []string, errOut io.Writer) (request *cliRequest, exitCode int) {
	flags := flag.NewFlagSet("dicom-tree", flag.ContinueOnError)
	flags.SetOutput(errOut)
	flags.Usage = func() {
		io.WriteString(flags.Output(), usageHeader)
		flags.PrintDefaults()
	}

	request = &cliRequest{}
	var helpRequested bool
	stringFlag(flags, &request.input, "input", "i", "Directory containing the DICOM files")
	stringFlag(flags, &request.output, "output", "o", "Output tree path, local or s3://bucket/key")
	stringFlag(flags, &request.tagFile, "tags", "t", "Tag dictionary file (JSON or YAML)")
	stringFlag(flags, &request.filterFile, "filter", "f", "Keep only studies, series and instances passing this filter file (JSON or YAML)")
	stringFlag(flags, &request.configPath, "config", "c", "YAML run configuration; flags override its values")
	boolFlag(flags, &helpRequested, "help", "h", "Display usage help")
	flags.StringVar(&request.csvPath, "csv", "", "Also write one CSV row per series to this path")
	flags.IntVar(&request.recursive, "recursive", 0, "Directory levels to descend below the input (0 = top level only)")
	flags.IntVar(&request.workers, "workers", 0, "Files decoded in parallel (0 = two per CPU)")
	flags.BoolVar(&request.skipUnreadable, "skip-unreadable", false, "Skip files that are not DICOM instead of failing the run")
	flags.BoolVar(&request.checkTags, "check-tags", false, "Warn about dictionary names that differ from the DICOM standard")
	flags.BoolVar(&request.print, "print", false, "Print a summary tree of studies and series")
	flags.BoolVar(&request.dump, "dump", false, "Print the full output tree in indented form")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, 0
		}
		return nil, 1
	}
	flags.Visit(func(f *flag.Flag) {
		if f.Name == "recursive" {
			request.recursiveSet = true
		}
	})
	if helpRequested {
		flags.Usage()
		return nil, 0
	}
	if flags.NArg() > 0 {
		fmt.Fprintf(errOut, "unexpected arguments: %v\n", flags.Args())
		flags.Usage()
		return nil, 1
	}
	return request, 0
}

// apply overlays the flags that were given on top of cfg.
func (rq *cliRequest) apply(cfg *config.Config) {
	if rq.input != "" {
		cfg.DirectoryPath = rq.input
	}
	if rq.output != "" {
		cfg.OutputPath = rq.output
	}
	if rq.tagFile != "" {
		cfg.TagFile = rq.tagFile
	}
	if rq.filterFile != "" {
		cfg.FilterFile = rq.filterFile
	}
	if rq.csvPath != "" {
		cfg.CSVPath = rq.csvPath
	}
	if rq.recursiveSet {
		cfg.Recursive = rq.recursive
	}
	if rq.workers > 0 {
		cfg.Workers = rq.workers
	}
	if rq.skipUnreadable {
		cfg.SkipUnreadable = true
	}
}
