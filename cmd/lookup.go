package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/appmeta/internal/lookup"
)

func newLookupCmd() *cobra.Command {
	var pretty bool
	cmd := &cobra.Command{
		Use:   "lookup <package-id>...",
		Short: "Resolves package IDs and prints their metadata",
		Long: `Runs the same cached lookup pipeline as the HTTP API and writes the
results to stdout as a JSON array, streaming each record as it completes.`,
		Example: "  appmeta lookup com.google.android.apps.maps com.spotify.music",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if pretty {
				found, err := appInstance.Service().Search(cmd.Context(), args)
				if err != nil {
					return describeLookupError(err)
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(found); err != nil {
					return fmt.Errorf("write results: %w", err)
				}
				return nil
			}

			results, err := appInstance.Service().Stream(cmd.Context(), args)
			if err != nil {
				return describeLookupError(err)
			}
			n, err := lookup.WriteStream(out, results)
			if err != nil {
				fmt.Fprintln(out)
				return fmt.Errorf("after %d results: %w", n, describeLookupError(err))
			}
			fmt.Fprintln(out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&pretty, "pretty", false, "wait for every lookup and print indented JSON")
	return cmd
}

// describeLookupError prefixes err with the HTTP status the API would answer.
func describeLookupError(err error) error {
	status, _ := lookup.Classify(err)
	return fmt.Errorf("lookup failed (%d): %w", status, err)
}
