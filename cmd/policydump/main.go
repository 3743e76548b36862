// Copyright 2024 The fiet-public Authors
// This file is part of the fiet-public library.
//
// The fiet-public library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The fiet-public library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the fiet-public library. If not, see <http://www.gnu.org/licenses/>.

// Command policydump decodes a check program and prints its checks as a
// table, offline and without touching any chain. It exists for policy
// authors and auditors to sanity-check a program before it is embedded
// in a signed envelope.
package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/naoina/toml"
	"github.com/olekukonko/tablewriter"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/usherlabs/fiet-public/log"
	"github.com/usherlabs/fiet-public/policy/check"
)

// Config is the TOML-configurable set of defaults this tool reads
// before falling back to command-line flags, in the style of the
// teacher's own dumpconfig command.
type Config struct {
	Program string // hex-encoded check program, with or without 0x prefix
}

var programFlag = cli.StringFlag{
	Name:  "program",
	Usage: "hex-encoded check program bytes",
}

var configFlag = cli.StringFlag{
	Name:  "config",
	Usage: "TOML config file providing the program (overridden by --program)",
}

func main() {
	app := cli.NewApp()
	app.Name = "policydump"
	app.Usage = "decode and print a check program"
	app.Flags = []cli.Flag{programFlag, configFlag}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		log.Crit("policydump: fatal error", "err", err)
	}
}

func run(ctx *cli.Context) error {
	programHex := ctx.String(programFlag.Name)
	if programHex == "" {
		if path := ctx.String(configFlag.Name); path != "" {
			cfg, err := loadConfig(path)
			if err != nil {
				return err
			}
			programHex = cfg.Program
		}
	}
	if programHex == "" {
		return fmt.Errorf("policydump: no program provided (use --program or --config)")
	}

	buf, err := hex.DecodeString(strings.TrimPrefix(programHex, "0x"))
	if err != nil {
		return fmt.Errorf("policydump: invalid hex: %w", err)
	}

	checks, err := check.Decode(buf)
	if err != nil {
		color.Red("decode failed: %v", err)
		return err
	}

	printTable(checks)
	color.Green("decoded %d check(s) from %d bytes", len(checks), len(buf))
	return nil
}

func loadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("policydump: invalid config: %w", err)
	}
	return cfg, nil
}

func printTable(checks []check.Check) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"#", "Opcode", "Detail"})
	for i, c := range checks {
		table.Append([]string{fmt.Sprintf("%d", i), c.Op.String(), detail(c)})
	}
	table.Render()
}

func detail(c check.Check) string {
	switch d := c.Data.(type) {
	case check.Deadline:
		return fmt.Sprintf("deadline=%d", d.Deadline)
	case check.Nonce:
		return fmt.Sprintf("expected=%s", d.Expected.Hex())
	case check.CallBundleHash:
		return fmt.Sprintf("hash=%s", d.Hash.Hex())
	case check.TokenAmountLte:
		return fmt.Sprintf("token=%s max=%s", d.Token.Hex(), d.Max.Hex())
	case check.NativeValueLte:
		return fmt.Sprintf("max=%s", d.Max.Hex())
	case check.LiquidityDeltaLte:
		return fmt.Sprintf("max=%s", d.Max.Hex())
	case check.Slot0TickBounds:
		return fmt.Sprintf("pool=%s min=%d max=%d", d.PoolID.Hex(), d.Min, d.Max)
	case check.Slot0SqrtPriceBounds:
		return fmt.Sprintf("pool=%s min=%s max=%s", d.PoolID.Hex(), d.Min.Hex(), d.Max.Hex())
	case check.RfsClosed:
		return fmt.Sprintf("position=%s", d.PositionID.Hex())
	case check.QueueLte:
		return fmt.Sprintf("lcc=%s owner=%s max=%s", d.Lcc.Hex(), d.Owner.Hex(), d.Max.Hex())
	case check.ReserveGte:
		return fmt.Sprintf("lcc=%s min=%s", d.Lcc.Hex(), d.Min.Hex())
	case check.SettledGte:
		return fmt.Sprintf("position=%s min0=%s min1=%s", d.PositionID.Hex(), d.MinAmount0.Hex(), d.MinAmount1.Hex())
	case check.CommitmentDeficitLte:
		return fmt.Sprintf("position=%s max0=%s max1=%s", d.PositionID.Hex(), d.MaxDeficit0.Hex(), d.MaxDeficit1.Hex())
	case check.GracePeriodGte:
		return fmt.Sprintf("position=%s minSeconds=%d", d.PositionID.Hex(), d.MinSeconds)
	case check.StaticCallU256:
		return fmt.Sprintf("target=%s selector=%s op=%s rhs=%s", d.Target.Hex(), d.Selector.String(), d.Op, d.Rhs.Hex())
	default:
		return ""
	}
}
