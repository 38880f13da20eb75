package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	voicesPage     int
	voicesPageSize int
)

var voicesCmd = &cobra.Command{
	Use:   "voices",
	Short: "List the voices the configured provider offers",
	RunE: func(cmd *cobra.Command, _ []string) error {
		d, err := loadDeps(cmd.Context())
		if err != nil {
			return err
		}
		page, err := d.voices.ListVoices(cmd.Context(), voicesPage, voicesPageSize)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "UUID\tNAME\tSTATUS")
		for _, v := range page.Items {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", v.ID, v.Name, v.Status)
		}
		fmt.Fprintf(tw, "page %d/%d\n", page.Page, page.NumPages)
		return tw.Flush()
	},
}

func init() {
	voicesCmd.Flags().IntVar(&voicesPage, "page", 1, "page number")
	voicesCmd.Flags().IntVar(&voicesPageSize, "page-size", 20, "voices per page")
}
