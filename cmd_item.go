package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"github.com/vadiminshakov/booktrade/config"
	"github.com/vadiminshakov/booktrade/core/dto"
	"github.com/vadiminshakov/booktrade/io/gateway/grpc/client"
)

const requestTimeout = 10 * time.Second

var nodeFlag = &cli.StringFlag{
	Name:  "node",
	Usage: "address of the node to talk to",
	Value: config.DefaultNodeaddr,
}

var addItemCmd = &cli.Command{
	Name:      "add-item",
	Usage:     "list a book in the catalogue of a seller",
	ArgsUsage: "<title> <price>",
	Flags: []cli.Flag{
		nodeFlag,
		&cli.StringFlag{Name: "seller", Usage: "name of the seller on the node", Required: true},
	},
	Action: func(cctx *cli.Context) error {
		if cctx.NArg() != 2 {
			return errors.New("expected a title and a price")
		}
		title := cctx.Args().Get(0)
		price, err := strconv.Atoi(cctx.Args().Get(1))
		if err != nil {
			return errors.Wrapf(err, "parse price %q", cctx.Args().Get(1))
		}

		c, err := client.New(cctx.String(nodeFlag.Name))
		if err != nil {
			return err
		}
		defer c.Close()

		ctx, cancel := context.WithTimeout(cctx.Context, requestTimeout)
		defer cancel()

		if err := c.AddItem(ctx, dto.AID(cctx.String("seller")), title, price); err != nil {
			return err
		}
		fmt.Fprintf(cctx.App.Writer, "%s listed %q at %d\n", cctx.String("seller"), title, price)

		return nil
	},
}

var searchCmd = &cli.Command{
	Name:  "search",
	Usage: "list the agents registered in a directory",
	Flags: []cli.Flag{
		nodeFlag,
		&cli.StringFlag{Name: "capability", Usage: "capability to look for", Value: dto.CapabilityBookSelling},
	},
	Action: func(cctx *cli.Context) error {
		c, err := client.New(cctx.String(nodeFlag.Name))
		if err != nil {
			return err
		}
		defer c.Close()

		ctx, cancel := context.WithTimeout(cctx.Context, requestTimeout)
		defer cancel()

		found, err := c.Search(ctx, cctx.String("capability"))
		if err != nil {
			return err
		}
		for _, id := range found {
			fmt.Fprintln(cctx.App.Writer, id)
		}

		return nil
	},
}
