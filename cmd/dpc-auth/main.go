// dpc-auth CLI - shielded transaction authorization builder
//
// Example usage:
//
//	# Create a spender key
//	dpc-auth keygen
//
//	# Mint a testnet record for it
//	dpc-auth record new --address <addr> --value 100
//
//	# Build an authorization
//	dpc-auth build --input <wif>:<record> --output <addr>:<amount>
//	dpc-auth build --input <wif>:<record> --uri "dpc:<addr>?amount=100&memo=coffee"
//
//	# Inspect and verify it
//	dpc-auth inspect <authorization>
//	dpc-auth verify <authorization>
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/urfave/cli"
)

// Version is set at link time.
var Version = "v0.1.0"

func versionPrinter(c *cli.Context) {
	_, _ = fmt.Fprintf(c.App.Writer, "dpc-auth\nVersion: %s\nGoVersion: %s\n",
		Version,
		runtime.Version(),
	)
}

func newApp() *cli.App {
	cli.VersionPrinter = versionPrinter
	ctl := cli.NewApp()
	ctl.Name = "dpc-auth"
	ctl.Version = Version
	ctl.Usage = "Build and check shielded transaction authorizations"
	ctl.Flags = []cli.Flag{configFlag, debugFlag}
	ctl.Commands = newCommands()
	return ctl
}

func main() {
	ctl := newApp()

	if err := ctl.Run(os.Args); err != nil {
		fmt.Fprintln(ctl.ErrWriter, err)
		os.Exit(1)
	}
}
