package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/petervdpas/treebridge/internal/dom"
	"github.com/petervdpas/treebridge/internal/editor"
	"github.com/petervdpas/treebridge/internal/hostchan"
	"github.com/petervdpas/treebridge/internal/shell"
	"github.com/petervdpas/treebridge/internal/util"
)

const browseHelp = `commands:
  tree            list rendered nodes
  click <path>    click a tree node (toggle folder, open file)
  show            print the editor content
  edit <text>     replace the editor content (\n for newlines)
  save            save the open file
  preview         render the open file on the host
  sidebar         toggle the sidebar
  html            print the document
  quit`

func newBrowseCmd(opts *options) *cobra.Command {
	var hostURL string
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Drive the tree UI from the terminal against a running host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cfg.UI.HostURL = hostURL
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			dctx, dcancel := context.WithTimeout(ctx, util.DefaultConnectTimeout)
			client, err := hostchan.Dial(dctx, cfg.UI.HostURL)
			dcancel()
			if err != nil {
				return err
			}
			defer client.Close()

			sh, err := shell.New(client)
			if err != nil {
				return err
			}
			buf := editor.NewBuffer()

			var quit atomic.Bool
			out := cmd.OutOrStdout()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return sh.Run(gctx) })
			g.Go(func() error {
				// A clean close from the host ends the session too.
				defer cancel()
				return client.Listen(gctx, sh.Deliver)
			})
			g.Go(func() error {
				watchHost(gctx, cmd.Context(), out, &quit)
				return nil
			})
			g.Go(func() error {
				defer cancel()
				defer quit.Store(true)
				sh.Start(buf)
				return repl(gctx, cmd.InOrStdin(), out, sh, buf)
			})

			err = g.Wait()
			if ctx.Err() != nil {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&hostURL, "host", "", "override ui.host_url")
	return cmd
}

// watchHost reports a lost host connection once session ends, unless the
// user quit or the process is shutting down.
func watchHost(session, process context.Context, out io.Writer, quit *atomic.Bool) {
	<-session.Done()
	if !quit.Load() && process.Err() == nil {
		fmt.Fprintln(out, "\nhost disconnected, press Enter to exit")
	}
}

func repl(ctx context.Context, in io.Reader, out io.Writer, sh *shell.Shell, buf *editor.Buffer) error {
	fmt.Fprintln(out, browseHelp)
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !sc.Scan() {
			return sc.Err()
		}
		if ctx.Err() != nil {
			return nil
		}
		verb, arg, _ := strings.Cut(strings.TrimSpace(sc.Text()), " ")
		switch verb {
		case "":
		case "quit", "exit":
			return nil
		case "help":
			fmt.Fprintln(out, browseHelp)
		case "click":
			sh.Click(arg)
		case "save":
			sh.Save()
		case "preview":
			sh.Preview()
		case "sidebar":
			sh.ToggleSidebar()
		case "edit":
			text := strings.ReplaceAll(arg, `\n`, "\n")
			if err := sh.Do(ctx, func() { buf.Edit(text) }); err != nil {
				return err
			}
		case "show", "tree", "html", "status":
			if err := sh.Do(ctx, func() { inspect(out, verb, sh, buf) }); err != nil {
				return err
			}
		default:
			fmt.Fprintf(out, "unknown command %q\n", verb)
		}
	}
}

// inspect prints state; it runs on the shell loop.
func inspect(out io.Writer, verb string, sh *shell.Shell, buf *editor.Buffer) {
	switch verb {
	case "show":
		fmt.Fprintf(out, "-- %s [%s] dirty=%v\n%s\n", sh.Bridge().OpenPath(), buf.Language(), buf.Dirty(), buf.Content())
		if p := sh.LastPreview(); p.HTML != "" {
			fmt.Fprintf(out, "-- preview %s\n%s\n", p.File, p.HTML)
		}
	case "tree":
		v := sh.View()
		for _, p := range v.Paths() {
			depth := strings.Count(p, "/")
			mark := ">"
			if v.IsFile(p) {
				mark = "-"
			} else if open, _ := v.IsOpen(p); open {
				mark = "v"
			}
			fmt.Fprintf(out, "%s%s %s\n", strings.Repeat("  ", depth), mark, p)
		}
		if p, ok := v.Pending(); ok {
			fmt.Fprintf(out, "(expanding %s)\n", p)
		}
	case "html":
		fmt.Fprintln(out, dom.Render(sh.Document().Root()))
	case "status":
		fmt.Fprintf(out, "sidebar visible: %v\n", sh.SidebarVisible())
		if e := sh.LastError(); e.Message != "" {
			fmt.Fprintf(out, "last error: %s %s: %s\n", e.Request, e.Path, e.Message)
		}
		if s := sh.LastSaved(); s.File != "" {
			fmt.Fprintf(out, "last saved: %s %s\n", s.File, s.ETag)
		}
	}
}
