package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alwanrahmanas/kbli2020-matcher/catalog"
	"github.com/alwanrahmanas/kbli2020-matcher/config"
)

func newLookupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <code>",
		Short: "Look up a KBLI code directly in the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			path := catalogPath
			if path == "" {
				path = cfg.Catalog.Path
			}
			if path == "" {
				return fmt.Errorf("no catalog path: set --catalog or catalog.path in the config file")
			}
			idx, err := catalog.LoadFile(path)
			if err != nil {
				return err
			}

			entry, ok := idx.ByCode(args[0])
			if !ok {
				return fmt.Errorf("code %s not found in catalog", args[0])
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				Code      string   `json:"kode_kbli"`
				Title     string   `json:"judul"`
				Hierarchy []string `json:"hierarki"`
				Scope     string   `json:"cakupan"`
			}{entry.Code, entry.Title, entry.HierarchyPath, entry.ScopeText})
		},
	}
}
