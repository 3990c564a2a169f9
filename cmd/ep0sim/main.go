// Command ep0sim runs endpoint-0 control transfers against a simulated USB
// device.
//
// Usage:
//
//	ep0sim enumerate [--profile file | --builtin name] [--address n] [--trace file]
//	ep0sim trace [--session id] [--token name] file
//
// Global flags:
//
//	--log-level  debug, info, warn, error (default warn)
//	--log-format text, json (default text)
//	--cpu-profile, --mem-profile  write pprof profiles
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ardnew/usbctrl/pkg"
	"github.com/ardnew/usbctrl/pkg/prof"
)

var (
	logLevel    string
	logFormat   string
	cpuProfile  string
	memProfile  string
	profSession *prof.Session
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "ep0sim",
		Short:         "Simulate USB endpoint-0 control transfers",
		Long:          `ep0sim enumerates a simulated USB device built from a YAML profile and decodes control pipe traces.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := pkg.ParseLogLevel(logLevel)
			if err != nil {
				return err
			}
			format, err := pkg.ParseLogFormat(logFormat)
			if err != nil {
				return err
			}
			pkg.SetLogFormat(format)
			pkg.SetLogLevel(level)

			profSession, err = prof.Start(cpuProfile, memProfile)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if profSession == nil {
				return nil
			}
			return profSession.Stop()
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Minimum log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text, json)")
	root.PersistentFlags().StringVar(&cpuProfile, "cpu-profile", "", "Write a CPU profile to this file")
	root.PersistentFlags().StringVar(&memProfile, "mem-profile", "", "Write a heap profile to this file on exit")
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(newEnumerateCommand())
	root.AddCommand(newTraceCommand())
	return root
}

func main() {
	err := newRootCommand().Execute()
	if profSession != nil {
		// PersistentPostRunE is skipped when the command fails.
		if stopErr := profSession.Stop(); err == nil {
			err = stopErr
		}
	}
	if err != nil {
		pkg.LogError(pkg.ComponentControl, "ep0sim failed", "error", err)
		os.Exit(1)
	}
}
