package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/ldaudit/ldaudit/internal/config"
	"github.com/ldaudit/ldaudit/internal/engine/cache"
)

const shortKeyLen = 12

// newCacheCmd creates the cache command group.
func newCacheCmd(deps Deps) *cobra.Command {
	cmd := &cobra.Command{Use: "cache", Short: "Inspect or clear the API response cache"}
	cmd.AddCommand(newCacheListCmd(deps), newCacheClearCmd(deps))
	return cmd
}

type cacheEntryJSON struct {
	Key       string    `json:"key"`
	Operation string    `json:"operation"`
	Project   string    `json:"project"`
	CreatedAt time.Time `json:"created_at"`
	AgeSecs   int64     `json:"age_seconds"`
	Expired   bool      `json:"expired"`
	Corrupt   bool      `json:"corrupt"`
	SizeBytes int64     `json:"size_bytes"`
}

type cacheListJSON struct {
	Directory  string           `json:"directory"`
	TTLSeconds int64            `json:"ttl_seconds"`
	TotalBytes int64            `json:"total_bytes"`
	Entries    []cacheEntryJSON `json:"entries"`
}

func newCacheListCmd(deps Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached API responses with their age and expiry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return executeCacheList(cmd, config.GetGlobalConfig(), deps)
		},
	}
}

func executeCacheList(cmd *cobra.Command, cfg *config.Config, deps Deps) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	store := openCache(cmd, cfg, deps)
	if !store.IsEnabled() {
		_, err := fmt.Fprintln(w, "Cache is disabled.")
		return err
	}

	infos, err := store.List()
	if err != nil {
		return err
	}
	var total int64
	for _, info := range infos {
		total += info.SizeBytes
	}

	v := newView(w, cfg, deps.Now())
	if v.format == formatJSON {
		out := cacheListJSON{
			Directory:  store.GetDirectory(),
			TTLSeconds: int64(store.GetTTL() / time.Second),
			TotalBytes: total,
			Entries:    make([]cacheEntryJSON, 0, len(infos)),
		}
		for _, info := range infos {
			out.Entries = append(out.Entries, cacheEntryJSON{
				Key:       info.Key,
				Operation: info.Operation,
				Project:   info.Label,
				CreatedAt: info.CreatedAt,
				AgeSecs:   int64(info.Age / time.Second),
				Expired:   info.Expired,
				Corrupt:   info.Corrupt,
				SizeBytes: info.SizeBytes,
			})
		}
		return writeJSON(w, out)
	}

	muted := v.style().Foreground(colorMuted())
	if _, err := fmt.Fprintln(w, muted.Render(v.printer.Sprintf("Cache directory: %s (TTL %s)",
		store.GetDirectory(), cache.FormatDuration(store.GetTTL())))); err != nil {
		return err
	}
	if len(infos) == 0 {
		_, err := fmt.Fprintln(w, "Cache is empty.")
		return err
	}

	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		rows = append(rows, []string{
			shortKey(info.Key),
			info.Label,
			info.Operation,
			cache.FormatDuration(info.Age),
			expiryText(info),
			v.printer.Sprintf("%d", info.SizeBytes),
		})
	}
	headerStyle := v.style().Bold(true).Foreground(colorHeader()).Padding(0, 1)
	cellStyle := v.style().Padding(0, 1)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(v.style().Foreground(colorBorder())).
		Headers("Key", "Project", "Operation", "Age", "Expires", "Bytes").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	_, err = fmt.Fprintf(w, "%s\n%s\n", t.Render(), v.printer.Sprintf("%d %s, %d bytes",
		len(infos), pluralize(len(infos), "entry", "entries"), total))
	return err
}

func shortKey(key string) string {
	if len(key) <= shortKeyLen {
		return key
	}
	return key[:shortKeyLen]
}

func expiryText(info cache.EntryInfo) string {
	switch {
	case info.Corrupt:
		return "corrupt"
	case info.Expired:
		return "expired"
	default:
		return "in " + cache.FormatDuration(info.ExpiresIn)
	}
}

func newCacheClearCmd(deps Deps) *cobra.Command {
	var expiredOnly bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove cached API responses",
		Example: `  # Remove everything
  ldaudit cache clear

  # Remove only expired or unreadable entries
  ldaudit cache clear --expired`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return executeCacheClear(cmd, config.GetGlobalConfig(), deps, expiredOnly)
		},
	}
	cmd.Flags().BoolVar(&expiredOnly, "expired", false, "only remove expired or corrupt entries")
	return cmd
}

func executeCacheClear(cmd *cobra.Command, cfg *config.Config, deps Deps, expiredOnly bool) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	store := openCache(cmd, cfg, deps)
	if !store.IsEnabled() {
		cmd.Println("Cache is disabled.")
		return nil
	}

	if expiredOnly {
		removed, err := store.CleanupExpired()
		if err != nil {
			return err
		}
		cmd.Printf("Removed %d expired %s\n", removed, pluralize(removed, "entry", "entries"))
		return nil
	}

	count, err := store.Count()
	if err != nil {
		return err
	}
	if err := store.Clear(); err != nil && !errors.Is(err, cache.ErrCacheDisabled) {
		return err
	}
	cmd.Printf("Cache cleared (%d %s removed)\n", count, pluralize(count, "entry", "entries"))
	return nil
}
