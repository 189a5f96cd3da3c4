package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/parisxmas/lodgeforms/internal/config"
	"github.com/parisxmas/lodgeforms/internal/models"
	"github.com/parisxmas/lodgeforms/internal/repository"
)

func listCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list [bookings|contacts]...",
		Short: "Print stored submissions",
		Long: `Print the stored submissions of one or both collections, oldest first.

Examples:
  lodgectl list
  lodgectl list bookings --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			colls, err := collectionArgs(args)
			if err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			store, closeStore, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			for _, coll := range colls {
				records, err := store.Read(cmd.Context(), coll)
				if err != nil {
					return err
				}
				if asJSON {
					if err := printJSON(cmd.OutOrStdout(), records); err != nil {
						return err
					}
					continue
				}
				if err := printTable(cmd.OutOrStdout(), coll, records); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "output raw JSON")
	return cmd
}

func printJSON(w io.Writer, records []json.RawMessage) error {
	out, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

func printTable(w io.Writer, coll string, records []json.RawMessage) error {
	fmt.Fprintf(w, "\n=== %s (%d) ===\n", strings.ToUpper(coll), len(records))
	if len(records) == 0 {
		fmt.Fprintln(w, "No records found")
		return nil
	}
	for _, raw := range records {
		switch coll {
		case repository.BookingsCollection:
			var b models.Booking
			if err := json.Unmarshal(raw, &b); err != nil {
				return err
			}
			fmt.Fprintf(w, "%-8s  %s  %-20s  %s -> %s  %s\n",
				b.ID, b.Timestamp, b.Name, b.Checkin, b.Checkout, models.RoomTypeName(b.RoomType))
		default:
			var c models.Contact
			if err := json.Unmarshal(raw, &c); err != nil {
				return err
			}
			fmt.Fprintf(w, "%-8s  %s  %-20s  %s\n", c.ID, c.Timestamp, c.Name, c.Subject)
		}
	}
	return nil
}
