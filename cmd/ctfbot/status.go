package main

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/k17ctf/ctfbot/internal/domain"
	"github.com/k17ctf/ctfbot/internal/ipc"
)

func statusCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the running bot's tracked messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			client := ipc.NewClient(cfg.IPCSocket, cfg.IPCTimeout)
			resp, err := client.Do(context.Background(), ipc.Request{Action: ipc.ActionGetCache})
			if stderrors.Is(err, ipc.ErrUnavailable) {
				fmt.Fprintln(cmd.OutOrStdout(), color.New(color.FgRed).Sprint(ipc.UnavailableMessage))
				return err
			}
			if err != nil {
				return err
			}
			if err := resp.Err(); err != nil {
				return err
			}

			if asJSON {
				var buf bytes.Buffer
				if err := json.Indent(&buf, resp.Data, "", "  "); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), buf.String())
				return nil
			}

			var cache map[string]domain.CacheEntry
			if err := json.Unmarshal(resp.Data, &cache); err != nil {
				return fmt.Errorf("decode cache: %w", err)
			}
			renderStatus(cmd.OutOrStdout(), cache)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw cache as JSON")
	return cmd
}

// renderStatus prints one row per cache entry, ordered by message id.
func renderStatus(out io.Writer, cache map[string]domain.CacheEntry) {
	if len(cache) == 0 {
		fmt.Fprintln(out, color.New(color.FgYellow).Sprint("No tracked messages"))
		return
	}

	ids := make([]string, 0, len(cache))
	for id := range cache {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, _ := domain.ParseSnowflake(ids[i])
		b, _ := domain.ParseSnowflake(ids[j])
		return a < b
	})

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MESSAGE\tCHANNEL\tTYPE\tSTATE")
	for _, id := range ids {
		entry := cache[id]
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", id, entry.ChannelID, entry.Subtype, describe(entry))
	}
	_ = w.Flush()
	fmt.Fprintf(out, "%s tracked message(s)\n", color.New(color.FgGreen).Sprint(len(cache)))
}

func describe(entry domain.CacheEntry) string {
	switch md := entry.Metadata.(type) {
	case *domain.CounterMetadata:
		return fmt.Sprintf("Counting: %d", md.Count)
	case *domain.CTFdMetadata:
		if !md.ForumChannelID.IsZero() {
			return fmt.Sprintf("%s (forum %s)", md.Domain, md.ForumChannelID)
		}
		return md.Domain
	default:
		return color.New(color.FgYellow).Sprint("unknown")
	}
}
