package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/thywilljoshua/inspection-report/internal/slots"
)

type slotRow struct {
	Ordinal   int      `json:"ordinal"`
	Title     string   `json:"title"`
	Canonical string   `json:"canonical_name"`
	Accepted  []string `json:"accepted"`
}

// accepted lists example names that fill s, device token first.
func accepted(reg *slots.Registry, s slots.Slot) []string {
	tok := reg.Tokens(s.Device)
	if s.IsFull() {
		return []string{s.Aliases[0]}
	}
	var out []string
	for _, a := range s.Aliases {
		out = append(out, tok.Long[0]+" "+a)
	}
	if tok.Short != "" {
		out = append(out, tok.Short+s.Aliases[len(s.Aliases)-1])
	}
	return out
}

func slotsCmd(g *globalOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "List the 18 report slots and the photo names each accepts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := slots.Default()
			var rows []slotRow
			for _, s := range reg.Slots() {
				rows = append(rows, slotRow{
					Ordinal:   s.Ordinal,
					Title:     s.Title,
					Canonical: slots.CanonicalName(s, ""),
					Accepted:  accepted(reg, s),
				})
			}
			w := cmd.OutOrStdout()
			if asJSON {
				b, _ := json.MarshalIndent(rows, "", "  ")
				fmt.Fprintln(w, string(b))
				return nil
			}
			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PAGE\tSLOT\tCANONICAL NAME\tALSO ACCEPTS")
			for _, r := range rows {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", r.Ordinal, r.Title, r.Canonical, strings.Join(r.Accepted, ", "))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}
