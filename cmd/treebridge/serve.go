package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/petervdpas/treebridge/internal/content"
	"github.com/petervdpas/treebridge/internal/host"
	"github.com/petervdpas/treebridge/internal/util"
)

func newServeCmd(opts *options) *cobra.Command {
	var (
		addr  string
		root  string
		depth int
		open  bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a workspace directory to the tree UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Host.HTTPAddr = addr
			}
			if cmd.Flags().Changed("root") {
				// Flag paths are relative to the working directory.
				abs, err := filepath.Abs(root)
				if err != nil {
					return err
				}
				cfg.Host.Root = abs
			}
			if cmd.Flags().Changed("depth") {
				cfg.Host.ScanDepth = depth
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			store, err := content.NewStore(cfg.RootDir(opts.configPath), cfg.Host.Ignore)
			if err != nil {
				return err
			}
			if err := store.EnsureRoot(); err != nil {
				return err
			}

			registry := host.NewRegistry(
				host.NewTreePanel(store, cfg.Host.ScanDepth, cfg.Host.MaxFileBytes),
				host.SidebarPanel{},
			)
			srv := host.NewServer(cfg.Host.HTTPAddr, registry)

			ctx := cmd.Context()
			if err := srv.Start(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "serving %s at %s\n", store.RootAbs(), srv.URL())
			if open {
				if err := util.OpenURL(srv.URL()); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "open browser: %v\n", err)
				}
			}

			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "override host.http_addr")
	cmd.Flags().StringVar(&root, "root", "", "override host.root")
	cmd.Flags().IntVar(&depth, "depth", 0, "override host.scan_depth (0 = unlimited)")
	cmd.Flags().BoolVar(&open, "open", false, "open the shell page in a browser")
	return cmd
}
