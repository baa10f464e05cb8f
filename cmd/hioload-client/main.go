// File: cmd/hioload-client/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package main is the hioload-client entrypoint.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/momentics/hioload-session/api"
	"github.com/momentics/hioload-session/client"
	"github.com/momentics/hioload-session/internal/log"
)

var logger logrus.FieldLogger = logrus.StandardLogger()

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	cfg := client.DefaultConfig()
	var (
		showVersion bool
		logLevel    string
	)
	cmd := &cobra.Command{
		Use:   "hioload-client [OPTIONS] <host>",
		Short: "Connects to a session peer at <host>, sends one request and tears down.",
		Args: func(cmd *cobra.Command, args []string) error {
			if showVersion || len(args) <= 1 {
				return nil
			}
			return api.Errorf(api.ErrCodeConfig, "invalid command line: %d positional arguments", len(args))
		},
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				fmt.Fprintf(stdout, "version: %s\n", client.Version)
				return nil
			}
			if len(args) == 1 {
				cfg.Host = args[0]
			}
			if _, err := log.ParseLevel(logLevel); err != nil {
				return err
			}
			log.SetLogger(logLevel)
			return runClient(cfg, stdout)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return api.NewError(api.ErrCodeConfig, err.Error())
	})

	f := cmd.Flags()
	f.SortFlags = false
	f.Uint16VarP(&cfg.Port, "port", "p", cfg.Port, "connect to port <port>")
	f.BoolVarP(&showVersion, "version", "v", false, "print the version and exit")
	f.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "bound on the event loop, 0 waits forever")
	f.IntVar(&cfg.PoolSize, "pool-size", cfg.PoolSize, "message pool capacity")
	f.BoolVar(&cfg.Linger, "linger", false, "keep the session open after the reply until the peer closes")
	f.StringVar(&logLevel, "log-level", "error", "log level: "+strings.Join(log.Levels, ", "))
	return cmd
}

func runClient(cfg *client.Config, stdout io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	printBanner(stdout, cfg)
	d, err := client.NewDriver(cfg, client.WithOutput(stdout))
	if err != nil {
		return errors.Wrap(err, "new driver failed")
	}
	res, err := d.Run()
	if err != nil {
		return errors.Wrap(err, "run driver failed")
	}
	if res.Leaked > 0 {
		return api.Errorf(api.ErrCodeBusy, "%d messages were never returned to the pool", res.Leaked)
	}
	logger.WithFields(logrus.Fields{
		"terminal": res.Terminal.String(),
		"reason":   api.StrError(res.Reason),
		"replies":  res.Replies,
	}).Info("session finished")
	return nil
}

func printBanner(w io.Writer, cfg *client.Config) {
	fmt.Fprintln(w, " =============================================")
	fmt.Fprintf(w, " Server Address\t: %s\n", cfg.Host)
	fmt.Fprintf(w, " Server Port\t\t: %d\n", cfg.Port)
	fmt.Fprintln(w, " =============================================")
}

// run executes the command line and returns the process exit status.
func run(args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	if err == nil {
		return 0
	}
	if api.IsConfigError(err) {
		fmt.Fprintf(stderr, " %v\n", err)
		fmt.Fprint(stderr, " please check command line and run again.\n\n")
		fmt.Fprint(stderr, cmd.UsageString())
		return 1
	}
	fmt.Fprintf(stderr, "%v\n", err)
	return 1
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
