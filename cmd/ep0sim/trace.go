package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ardnew/usbctrl/device"
	"github.com/ardnew/usbctrl/pkg/trace"
)

type traceOptions struct {
	session string
	token   string
}

func newTraceCommand() *cobra.Command {
	var opts traceOptions
	cmd := &cobra.Command{
		Use:   "trace file",
		Short: "Print a recorded token trace",
		Long:  `trace decodes a CBOR token trace written by enumerate --trace and prints one line per event.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(cmd.OutOrStdout(), args[0], opts)
		},
	}
	cmd.Flags().StringVar(&opts.session, "session", "", "Only print events of this session")
	cmd.Flags().StringVar(&opts.token, "token", "", "Only print events of this token (setup, in, out, resume, reset)")
	return cmd
}

func runTrace(w io.Writer, path string, opts traceOptions) error {
	filter := trace.Filter{Session: opts.session}
	if opts.token != "" {
		token, err := device.ParseToken(opts.token)
		if err != nil {
			return err
		}
		filter.Token = &token
	}

	r, err := trace.OpenFile(path, filter)
	if err != nil {
		return fmt.Errorf("open trace: %w", err)
	}
	defer r.Close()

	events, err := r.ReadAll()
	for _, event := range events {
		fmt.Fprintln(w, event.String())
	}
	if err != nil {
		return fmt.Errorf("read trace: %w", err)
	}
	fmt.Fprintf(w, "%d events\n", len(events))
	return nil
}
