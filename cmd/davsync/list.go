package main

import (
	"fmt"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-vcard"
	"github.com/spf13/cobra"

	"github.com/go-dav/davsync/dav"
	davsync "github.com/go-dav/davsync/sync"
)

var listDecode bool

var listCmd = &cobra.Command{
	Use:   "list <profile> <collection-url>",
	Short: "List the items of one collection (the etag cache starts empty on each run, so every item is fetched)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var items []dav.Item
		events := davsync.Events{
			ItemsRetrieved: func(_ dav.URL, got []dav.Item) { items = got },
			ItemRemoved:    func(remoteID string) { fmt.Printf("removed: %s\n", remoteID) },
			AccessorError: func(msg string, fatal bool) {
				logger.Error().Bool("fatal", fatal).Msg(msg)
			},
		}

		res, _, err := resourceFor(args[0], events)
		if err != nil {
			return err
		}
		profile, _ := cfg.Find(args[0])
		tag, err := protocolTag(profile.Protocol)
		if err != nil {
			return err
		}
		collURL, err := dav.NewURL(args[1], tag)
		if err != nil {
			return err
		}

		if err := res.RetrieveItems(cmd.Context(), dav.Collection{URL: collURL, Protocol: tag}); err != nil {
			return err
		}
		conv := icalVcardConverter{}
		for _, it := range items {
			fmt.Printf("%-60s etag=%s bytes=%d\n", it.URL, it.ETag, len(it.Payload))
			if !listDecode || len(it.Payload) == 0 {
				continue
			}
			payload, err := conv.Parse(it.ContentType, it.Payload)
			if err != nil {
				logger.Warn().Err(err).Str("item", it.URL).Msg("decode failed")
				continue
			}
			switch v := payload.(type) {
			case *ical.Calendar:
				fmt.Printf("  %d calendar component(s)\n", len(v.Children))
			case vcard.Card:
				fmt.Printf("  FN=%s\n", v.Value(vcard.FieldFormattedName))
			}
		}
		return nil
	},
}

func init() {
	listCmd.Flags().BoolVar(&listDecode, "decode", false, "parse each item's payload with the demo ical/vcard converter")
}
