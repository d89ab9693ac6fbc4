package main

import (
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"github.com/vadiminshakov/booktrade/config"
	"github.com/vadiminshakov/booktrade/node"
)

var nodeCmd = &cli.Command{
	Name:  "node",
	Usage: "run a node hosting the configured sellers and buyers",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:      "config",
			Aliases:   []string{"c"},
			Usage:     "path to the yaml configuration",
			EnvVars:   []string{"BOOKTRADE_CONFIG"},
			TakesFile: true,
		},
		&cli.StringFlag{Name: "nodeaddr", Usage: "address to serve the gateway on"},
		&cli.StringFlag{Name: "advertise-addr", Usage: "address other nodes reach this node at"},
		&cli.StringFlag{Name: "directory", Usage: "address of the node hosting the directory"},
		&cli.StringFlag{Name: "metrics-addr", Usage: "address to serve prometheus metrics on"},
		&cli.StringFlag{Name: "journal-dir", Usage: "directory of the sales journal"},
		&cli.DurationFlag{Name: "interval", Usage: "period between purchase attempts"},
		&cli.DurationFlag{Name: "reply-timeout", Usage: "how long a buyer waits for replies, 0 waits forever"},
	},
	Action: func(cctx *cli.Context) error {
		conf, err := config.Load(cctx.String("config"))
		if err != nil {
			return err
		}
		override(cctx, conf)

		if err := conf.Validate(); err != nil {
			return errors.Wrap(err, "invalid config")
		}
		level, _ := log.ParseLevel(conf.LogLevel)
		log.SetLevel(level)

		n, err := node.New(conf)
		if err != nil {
			return err
		}
		if err := n.Start(); err != nil {
			return stopAfter(err, n)
		}

		ctx, stop := signal.NotifyContext(cctx.Context, syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		<-ctx.Done()
		log.Info("shutting down")

		return n.Stop()
	},
}

// override applies the flags set on the command line over conf.
func override(cctx *cli.Context, conf *config.Config) {
	strs := map[string]*string{
		"nodeaddr":       &conf.Nodeaddr,
		"advertise-addr": &conf.AdvertiseAddr,
		"directory":      &conf.Directory,
		"metrics-addr":   &conf.MetricsAddr,
		"journal-dir":    &conf.JournalDir,
	}
	for name, dst := range strs {
		if cctx.IsSet(name) {
			*dst = cctx.String(name)
		}
	}

	if cctx.IsSet(logLevelFlag.Name) {
		conf.LogLevel = cctx.String(logLevelFlag.Name)
	}
	if cctx.IsSet("interval") {
		conf.Interval = cctx.Duration("interval")
	}
	if cctx.IsSet("reply-timeout") {
		conf.ReplyTimeout = cctx.Duration("reply-timeout")
	}
}

// stopAfter releases n after a failed start and returns the start error.
func stopAfter(err error, n *node.Node) error {
	if stopErr := n.Stop(); stopErr != nil {
		log.Warnf("failed to stop node: %v", stopErr)
	}
	return err
}
