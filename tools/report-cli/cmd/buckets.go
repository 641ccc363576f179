package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nicholaszhao/uptime-report-pdf/packages/go/storage"
)

var checkBucketsCmd = &cobra.Command{
	Use:   "check-buckets",
	Short: "Verify the source and destination buckets are reachable",
	RunE:  runCheckBuckets,
}

func runCheckBuckets(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := storage.New(ctx, cfg)
	if err != nil {
		return err
	}

	missing := 0
	for _, b := range []struct{ role, name string }{
		{"source", cfg.SrcBucket},
		{"destination", cfg.DestBucket},
	} {
		exists, err := store.BucketExists(ctx, b.name)
		if err != nil {
			return fmt.Errorf("checking %s bucket %s: %w", b.role, b.name, err)
		}
		status := "ok"
		if !exists {
			status = "MISSING"
			missing++
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%-12s %-40s %s\n", b.role, b.name, status)
	}

	if missing > 0 {
		return fmt.Errorf("%d bucket(s) missing", missing)
	}
	return nil
}
