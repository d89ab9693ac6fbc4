package main

import (
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var logLevelFlag = &cli.StringFlag{
	Name:  "log-level",
	Usage: "logging level: trace, debug, info, warn, error",
	Value: log.InfoLevel.String(),
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "booktrade",
		Usage: "buy and sell books between autonomous agents",
		Description: `booktrade runs nodes hosting seller and buyer agents. Buyers look
   for their book at every seller registered in the directory and buy it from
   the cheapest one.

   booktrade node starts a node from a yaml configuration.
   booktrade add-item lists a book in the catalogue of a running seller.
   booktrade search lists the sellers registered in a directory.`,
		Flags:  []cli.Flag{logLevelFlag},
		Before: setupLogging,
		Commands: []*cli.Command{
			nodeCmd,
			addItemCmd,
			searchCmd,
		},
	}
}

func setupLogging(c *cli.Context) error {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC822,
	})

	level, err := log.ParseLevel(c.String(logLevelFlag.Name))
	if err != nil {
		return err
	}
	log.SetLevel(level)

	return nil
}
