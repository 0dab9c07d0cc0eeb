// Package cli parses the simflow command line.
package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/tdixon97/legend-simflow/internal/app"
)

// ExitError is an error carrying a specific process exit code.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated app
// configuration, a boolean indicating the program should exit cleanly
// (help shown), or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	flagSet := flag.NewFlagSet("simflow", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
simflow - Monte Carlo simulation production pipeline for LEGEND.

Usage:
  simflow [options] <command>

Commands:
  simids    list the simids declared for a tier
  outputs   print the output paths required by the simlist
  macro     render the simulation macros for the simlist entries
  command   print the remage command line for one <tier>.<simid> job
  run       execute the pending jobs of the simlist

Options:
`)
		flagSet.PrintDefaults()
	}

	configFlag := flagSet.String("config", "simflow-config.hcl", "Path to the simflow configuration file.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Logging level. Options: 'debug', 'info', 'warn', 'error'.")
	tierFlag := flagSet.String("tier", "stp", "Tier selector for the 'simids' command.")
	simlistFlag := flagSet.String("simlist", "", "Comma-separated <tier>.<simid> work list overriding the configured one.")
	jobidFlag := flagSet.String("jobid", "0000", "Job identifier for the 'command' command.")
	threadsFlag := flagSet.Int("threads", 1, "Threads per remage invocation.")
	workersFlag := flagSet.Int("workers", 4, "Number of concurrent jobs for the 'run' command.")
	maxFilesFlag := flagSet.Int("max-files", 0, "Limit each simid to its first N jobs. 0 is unlimited.")
	macroFreeFlag := flagSet.Bool("macro-free", false, "Inline macro directives on the remage command line.")
	dryRunFlag := flagSet.Bool("dry-run", false, "Print the execution plan without running anything.")
	forceFlag := flagSet.Bool("force", false, "Re-run jobs even when their outputs are up to date.")
	jsonFlag := flagSet.Bool("json", false, "Print listings as JSON.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	if flagSet.NArg() == 0 {
		flagSet.Usage()
		return nil, true, nil
	}
	command := flagSet.Arg(0)
	switch command {
	case "simids", "outputs", "macro", "command", "run":
	default:
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("unknown command %q", command)}
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}
	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	var simlist []string
	if *simlistFlag != "" {
		for _, e := range strings.Split(*simlistFlag, ",") {
			if e = strings.TrimSpace(e); e != "" {
				simlist = append(simlist, e)
			}
		}
	}

	return &app.Config{
		ConfigPath: *configFlag,
		Command:    command,
		LogFormat:  logFormat,
		LogLevel:   logLevel,
		Tier:       *tierFlag,
		Simlist:    simlist,
		Jobid:      *jobidFlag,
		Threads:    *threadsFlag,
		Workers:    *workersFlag,
		MaxFiles:   *maxFilesFlag,
		MacroFree:  *macroFreeFlag,
		DryRun:     *dryRunFlag,
		Force:      *forceFlag,
		JSON:       *jsonFlag,
	}, false, nil
}
