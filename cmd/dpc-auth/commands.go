package main

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/urfave/cli"

	"github.com/suffix-labs/dpc-auth/pkg/api"
)

var (
	errNoAuthorization = errors.New("authorization argument is mandatory")
	errNoOutputs       = errors.New("pass outputs with --output or --uri")
)

func newCommands() []cli.Command {
	return []cli.Command{
		{
			Name:   "keygen",
			Usage:  "create a spender key and print it with its address",
			Action: keygen,
			Flags: []cli.Flag{
				cli.BoolFlag{
					Name:  "mainnet",
					Usage: "Encode the key with the mainnet WIF version",
				},
			},
		},
		{
			Name:  "record",
			Usage: "work with shielded records",
			Subcommands: []cli.Command{
				{
					Name:   "new",
					Usage:  "mint a spendable testnet record",
					Action: newRecord,
					Flags: []cli.Flag{
						cli.StringFlag{
							Name:  "address, a",
							Usage: "Owner address",
						},
						cli.Uint64Flag{
							Name:  "value, v",
							Usage: "Record value in base units",
						},
					},
				},
			},
		},
		{
			Name:      "build",
			Usage:     "build a transaction authorization",
			UsageText: "dpc-auth build --input <wif>:<record> [--input ...] (--output <addr>:<amount> [--output ...] | --uri <dpc:...>)",
			Action:    build,
			Flags: []cli.Flag{
				cli.StringSliceFlag{
					Name:  "input, i",
					Usage: "Spend as <wif>:<hex record>, up to two",
				},
				cli.StringSliceFlag{
					Name:  "output, o",
					Usage: "Payment as <address>:<amount>, up to two",
				},
				cli.StringFlag{
					Name:  "uri, u",
					Usage: "Payment request URI supplying the outputs and memo",
				},
				cli.StringFlag{
					Name:  "memo, m",
					Usage: "Transaction memo, at most 64 bytes",
				},
				cli.UintFlag{
					Name:  "network, n",
					Usage: "Network id (defaults to the configured one)",
				},
			},
		},
		{
			Name:      "inspect",
			Usage:     "decode an authorization and print it as JSON",
			ArgsUsage: "<authorization>",
			Action:    inspect,
		},
		{
			Name:      "verify",
			Usage:     "check the signatures and commitments of an authorization",
			ArgsUsage: "<authorization>",
			Action:    verify,
		},
		{
			Name:  "version",
			Usage: "print version information",
			Action: func(ctx *cli.Context) error {
				cli.ShowVersion(ctx)
				return nil
			},
		},
	}
}

func keygen(ctx *cli.Context) error {
	return withEnvironment(ctx, func(e *environment) error {
		wif, addr, err := api.GenerateKey(e.scheme, !ctx.Bool("mainnet"))
		if err != nil {
			return err
		}
		fmt.Fprintf(ctx.App.Writer, "WIF: %s\nAddress: %s\n", wif, addr)
		return nil
	})
}

func newRecord(ctx *cli.Context) error {
	return withEnvironment(ctx, func(e *environment) error {
		address := ctx.String("address")
		if address == "" {
			return errors.New("--address is mandatory")
		}
		record, err := api.NewRecord(e.scheme, address, ctx.Uint64("value"), rand.Reader)
		if err != nil {
			return err
		}
		fmt.Fprintln(ctx.App.Writer, record)
		return nil
	})
}

func build(ctx *cli.Context) error {
	return withEnvironment(ctx, func(e *environment) error {
		proposal := &api.AuthorizationProposal{NetworkID: e.cfg.Network.ID}
		if ctx.IsSet("network") {
			id := ctx.Uint("network")
			if id > 0xff {
				return errors.Newf("network id %d does not fit in a byte", id)
			}
			proposal.NetworkID = uint8(id)
		}

		for _, arg := range ctx.StringSlice("input") {
			wif, record, ok := strings.Cut(arg, ":")
			if !ok {
				return errors.Newf("input %q is not <wif>:<record>", arg)
			}
			proposal.Inputs = append(proposal.Inputs, api.Input{KeyWIF: wif, Record: record})
		}

		for _, arg := range ctx.StringSlice("output") {
			addr, amountStr, ok := strings.Cut(arg, ":")
			if !ok {
				return errors.Newf("output %q is not <address>:<amount>", arg)
			}
			amount, err := strconv.ParseUint(amountStr, 10, 64)
			if err != nil {
				return errors.Wrapf(err, "output %q amount", arg)
			}
			proposal.Outputs = append(proposal.Outputs, api.Output{Address: addr, Amount: amount})
		}

		if uri := ctx.String("uri"); uri != "" {
			outputs, memo, err := api.OutputsFromPaymentRequest(uri)
			if err != nil {
				return err
			}
			proposal.Outputs = append(proposal.Outputs, outputs...)
			proposal.Memo = memo
		}
		if len(proposal.Outputs) == 0 {
			return errNoOutputs
		}

		if memo := ctx.String("memo"); memo != "" {
			proposal.Memo = []byte(memo)
		}

		text, err := api.ProposeAuthorization(e.scheme, proposal, rand.Reader, e.builderOptions()...)
		if err != nil {
			return err
		}
		fmt.Fprintln(ctx.App.Writer, text)
		return nil
	})
}

func inspect(ctx *cli.Context) error {
	return withEnvironment(ctx, func(e *environment) error {
		text := ctx.Args().First()
		if text == "" {
			return errNoAuthorization
		}
		summary, err := api.InspectAuthorization(text)
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(ctx.App.Writer, string(out))
		return nil
	})
}

func verify(ctx *cli.Context) error {
	return withEnvironment(ctx, func(e *environment) error {
		text := ctx.Args().First()
		if text == "" {
			return errNoAuthorization
		}
		if err := api.VerifyAuthorization(e.scheme, text); err != nil {
			return err
		}
		fmt.Fprintln(ctx.App.Writer, "OK")
		return nil
	})
}
