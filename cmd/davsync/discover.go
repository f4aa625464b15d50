package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-dav/davsync/dav"
	davsync "github.com/go-dav/davsync/sync"
)

var discoverCmd = &cobra.Command{
	Use:   "discover <profile>",
	Short: "Discover the calendars/address books/collections under a profile's URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var collections []dav.Collection
		events := davsync.Events{
			CollectionsRetrieved: func(cols []dav.Collection) { collections = cols },
			AccessorError: func(msg string, fatal bool) {
				logger.Error().Bool("fatal", fatal).Msg(msg)
			},
		}

		res, _, err := resourceFor(args[0], events)
		if err != nil {
			return err
		}
		if err := res.RetrieveCollections(cmd.Context()); err != nil {
			return err
		}
		for _, c := range collections {
			fmt.Printf("%-40s %-10s ctag=%s write=%v\n", c.URL.String(), c.Protocol, c.CTag, c.CanWrite())
		}
		return nil
	},
}
