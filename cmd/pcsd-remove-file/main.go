package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli"

	"pcsd-remove-file/internal/config"
	"pcsd-remove-file/internal/exitcodes"
)

func main() {
	app := newApp(os.Stdout, os.Stderr)
	err := app.Run(os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
	}
	os.Exit(exitCode(err))
}

func newApp(stdout, stderr io.Writer) *cli.App {
	app := cli.NewApp()
	app.Name = "pcsd-remove-file"
	app.Usage = "remove well-known cluster configuration files"
	app.HideVersion = true
	app.Writer = stdout
	app.ErrWriter = stderr

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "path to configuration file",
			Value: config.DefaultConfigPath,
		},
	}

	app.Commands = []cli.Command{
		{
			Name:      "remove",
			Usage:     "Remove one file and print the result.",
			ArgsUsage: "[TYPE]",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "type, t",
					Usage: "file type, see the types command",
				},
				cli.StringFlag{
					Name:  "id",
					Usage: "opaque request identifier",
				},
				cli.StringFlag{
					Name:  "action",
					Usage: "requested action, passed to the file type's validation",
				},
				cli.BoolFlag{
					Name:  "json",
					Usage: "print the result in pcsd exchange format",
				},
			},
			Action: removeAction,
		},
		{
			Name:   "types",
			Usage:  "List removable file types.",
			Action: typesAction,
		},
		{
			Name:  "history",
			Usage: "Show recorded removal requests.",
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "recent, n",
					Usage: "number of records to show",
					Value: 20,
				},
				cli.StringFlag{
					Name:  "type, t",
					Usage: "only show this file type",
				},
				cli.StringFlag{
					Name:  "code",
					Usage: "only show this result code (deleted, not_found, unexpected, unknown_type, invalid)",
				},
				cli.BoolFlag{
					Name:  "stats",
					Usage: "show counts by result code",
				},
				cli.BoolFlag{
					Name:  "json",
					Usage: "output in JSON format",
				},
			},
			Action: historyAction,
		},
		{
			Name:  "prune",
			Usage: "Delete old history records.",
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "days",
					Usage: "keep records newer than this many days (default: history_retention_days)",
				},
			},
			Action: pruneAction,
		},
	}

	return app
}

// exitError carries the process exit status up to main. It deliberately
// does not implement cli.ExitCoder so the cli package never calls os.Exit.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func withCode(code int, err error) error {
	return &exitError{code: code, err: err}
}

func exitCode(err error) int {
	if err == nil {
		return exitcodes.Success
	}
	if e, ok := err.(*exitError); ok {
		return e.code
	}
	return exitcodes.RuntimeError
}
