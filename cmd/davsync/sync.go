package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-dav/davsync/dav"
	davsync "github.com/go-dav/davsync/sync"
)

var syncCmd = &cobra.Command{
	Use:   "sync <profile>",
	Short: "Run one discover-then-list pass over every collection in a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var collections []dav.Collection
		events := davsync.Events{
			CollectionDiscovered: func(proto dav.ProtocolTag, collectionURL dav.URL, originHomeSet dav.URL) {
				fmt.Printf("discovered %-10s %s (via %s)\n", proto, collectionURL.String(), originHomeSet.String())
			},
			CollectionsRetrieved: func(cols []dav.Collection) { collections = cols },
			ItemsRetrieved: func(collectionURL dav.URL, items []dav.Item) {
				fmt.Printf("%-40s %d items\n", collectionURL.String(), len(items))
			},
			ItemRemoved: func(remoteID string) { fmt.Printf("  removed: %s\n", remoteID) },
			AccessorError: func(msg string, fatal bool) {
				logger.Error().Bool("fatal", fatal).Msg(msg)
			},
		}

		res, _, err := resourceFor(args[0], events)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if err := res.RetrieveCollections(ctx); err != nil {
			return fmt.Errorf("discovering collections: %w", err)
		}
		for _, c := range collections {
			if err := res.RetrieveItems(ctx, c); err != nil {
				logger.Error().Err(err).Str("collection", c.URL.String()).Msg("retrieveItems failed")
				continue
			}
		}
		return nil
	},
}
