// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the ranked result cache",
}

var cacheEvictCmd = &cobra.Command{
	Use:   "evict <term>",
	Short: "Remove the cached result for a request",
	Long: `Evict deletes the cached outcome for the request described by the term
and filter flags, so the next rank call queries PubMed again. Flags must
match the original request.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := requestFromFlags(cmd, args)
		eng, err := newEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		if err := eng.Evict(context.Background(), req); err != nil {
			return err
		}
		fmt.Printf("Evicted %q from the %s cache\n", req.Term, cfg.Cache.Backend)
		return nil
	},
}

func init() {
	addRequestFlags(cacheEvictCmd)
	cacheCmd.AddCommand(cacheEvictCmd)
	rootCmd.AddCommand(cacheCmd)
}
