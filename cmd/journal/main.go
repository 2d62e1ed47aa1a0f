package main

import (
	"context"
	"log"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:  "journal",
		Usage: "Record and review options trades kept in the remote journal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "endpoint",
				Usage: "Store URL (defaults to JOURNAL_ENDPOINT)",
			},
			&cli.IntFlag{
				Name:  "timeout",
				Usage: "Store call timeout in seconds (defaults to REMOTE_TIMEOUT_SECONDS)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: "warn",
				Usage: "Log level: debug, info, warn, error",
			},
		},
		Commands: []*cli.Command{
			listCommand(),
			statsCommand(),
			exportCommand(),
			importCommand(),
			addCommand(),
			updateCommand(),
			deleteCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
