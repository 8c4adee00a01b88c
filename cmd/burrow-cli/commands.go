package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/84hero/burrow-client/pkg/burrow"
	"github.com/84hero/burrow-client/pkg/convert"
	"github.com/84hero/burrow-client/pkg/wire"
	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/rodaine/table"
	"github.com/spf13/cobra"
)

func newTable(w io.Writer, columns ...any) table.Table {
	return table.New(columns...).
		WithWriter(w).
		WithHeaderFormatter(color.New(color.FgCyan, color.Underline).SprintfFunc())
}

func statusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show chain status and the health of each configured node",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			mc, err := a.dial(ctx)
			if err != nil {
				return err
			}
			defer mc.Close()

			out := cmd.OutOrStdout()
			tbl := newTable(out, "Node", "Chain", "Version", "Height", "Priority", "Errors", "Circuit")
			for _, n := range mc.Nodes() {
				st, err := n.Status(ctx)
				if err != nil {
					tbl.AddRow(n.URL(), color.RedString("unreachable"), "-", "-", n.Priority(), n.GetTotalErrors(), circuit(n.IsCircuitBroken()))
					continue
				}
				var height uint64
				if st.SyncInfo != nil {
					height = st.SyncInfo.LatestBlockHeight
				}
				tbl.AddRow(n.URL(), st.ChainID, st.BurrowVersion, height, n.Priority(), n.GetTotalErrors(), circuit(n.IsCircuitBroken()))
			}
			tbl.Print()
			return nil
		},
	}
}

func circuit(broken bool) string {
	if broken {
		return color.RedString("open")
	}
	return color.GreenString("closed")
}

func metaCmd(a *app) *cobra.Command {
	var hash string
	cmd := &cobra.Command{
		Use:   "meta [address]",
		Short: "List the functions and events of a deployed contract",
		Long:  "List the functions and events of a deployed contract, or print the raw metadata document stored under --hash.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if hash == "" && len(args) == 0 {
				return errors.New("an address or --hash is required")
			}
			ctx := cmd.Context()
			c, err := a.client(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			if hash != "" {
				address := ""
				if len(args) > 0 {
					address = args[0]
				}
				doc, err := c.Metadata(ctx, address, hash)
				if err != nil {
					return errors.Wrapf(err, "metadata %s", hash)
				}
				if doc == "" {
					return errors.Errorf("no metadata stored under hash %s", hash)
				}
				fmt.Fprintln(cmd.OutOrStdout(), doc)
				return nil
			}

			inst, err := c.ContractAt(ctx, args[0])
			if err != nil {
				return err
			}
			tbl := newTable(cmd.OutOrStdout(), "Kind", "Signature")
			for _, sig := range inst.Functions() {
				tbl.AddRow("function", sig)
			}
			for _, sig := range inst.Events() {
				tbl.AddRow("event", sig)
			}
			tbl.Print()
			return nil
		},
	}
	cmd.Flags().StringVar(&hash, "hash", "", "metadata hash (hex) to fetch the raw document by")
	return cmd
}

func callCmd(a *app, sim bool) *cobra.Command {
	use, short := "call", "Send a transaction calling a contract function"
	if sim {
		use, short = "sim", "Simulate a contract function call without committing it"
	}
	return &cobra.Command{
		Use:   use + " <address> <function> [args...]",
		Short: short,
		Long: short + ".\n\nArguments are read as JSON when they parse, otherwise as plain strings:\n" +
			"  burrow-cli " + use + " 0xCCCC... 'transfer(address,uint256)' 0x1111... 100",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := a.client(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			inst, err := c.ContractAt(ctx, args[0])
			if err != nil {
				return err
			}
			values := parseArgs(args[2:])

			var res *burrow.CallResult
			if sim {
				res, err = inst.Simulate(ctx, args[1], values...)
			} else {
				res, err = inst.Invoke(ctx, args[1], values...)
			}
			if err != nil {
				return errors.WithMessage(err, args[1])
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
}

// parseArgs reads each argument as JSON, keeping numbers exact, and falls back
// to the raw string.
func parseArgs(args []string) []any {
	out := make([]any, len(args))
	for i, s := range args {
		dec := json.NewDecoder(strings.NewReader(s))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil || dec.More() {
			out[i] = s
			continue
		}
		out[i] = v
	}
	return out
}

func nameCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "name",
		Short: "Read and write the name registry",
	}

	get := &cobra.Command{
		Use:   "get <name>",
		Short: "Show a name registry entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			mc, err := a.dial(ctx)
			if err != nil {
				return err
			}
			defer mc.Close()

			entry, err := mc.GetName(ctx, args[0])
			if err != nil {
				return errors.WithMessagef(err, "get name %s", args[0])
			}
			printName(cmd.OutOrStdout(), entry)
			return nil
		},
	}

	var lease uint64
	set := &cobra.Command{
		Use:   "set <name> <data>",
		Short: "Register or update a name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := a.client(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			entry, err := c.SetName(ctx, args[0], args[1], lease)
			if err != nil {
				return errors.WithMessagef(err, "set name %s", args[0])
			}
			printName(cmd.OutOrStdout(), entry)
			return nil
		},
	}
	set.Flags().Uint64Var(&lease, "lease", 50, "amount paid for the lease")

	cmd.AddCommand(get, set)
	return cmd
}

func printName(w io.Writer, entry *wire.NameEntry) {
	tbl := newTable(w, "Name", "Owner", "Data", "Expires")
	tbl.AddRow(entry.Name, convert.UnprefixedHexString(entry.Owner), entry.Data, entry.Expires)
	tbl.Print()
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
