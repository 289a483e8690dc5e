package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mossline/stockwatch/cli"
	"github.com/mossline/stockwatch/internal/directory"
	"github.com/mossline/stockwatch/logging"
	"github.com/mossline/stockwatch/tui/theme"
	"github.com/spf13/cobra"
)

// NewSubscribersCmd creates the `subscribers` command group.
func NewSubscribersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "subscribers",
		Aliases: []string{"subs"},
		Short:   "Manage the alert subscriber list",
	}

	cmd.AddCommand(newSubscribersListCmd())
	cmd.AddCommand(newSubscribersAddCmd())
	cmd.AddCommand(newSubscribersRemoveCmd())

	return cmd
}

func openSubscriberStore(cmd *cobra.Command) (*directory.FileStore, error) {
	opts := cli.GetOptions(cmd)
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, cli.NewErrorHandler(opts.Verbose).Handle(err)
	}
	return directory.NewFileStore(cfg.Directory.Path, logging.NewLogger("directory"))
}

func newSubscribersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List subscribers and their watch lists",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openSubscriberStore(cmd)
			if err != nil {
				return err
			}

			subs := store.List()
			if len(subs) == 0 {
				fmt.Println("No subscribers. Add one with 'stockwatch subscribers add <id>'.")
				return nil
			}

			t := theme.DefaultTheme
			for _, sub := range subs {
				status := t.Success.Render("active")
				if !sub.Active {
					status = t.Muted.Render("inactive")
				}
				fmt.Printf("%s  %s\n", t.Accent.Render(sub.ID), status)

				if len(sub.WatchList) == 0 {
					fmt.Printf("  %s\n", t.Muted.Render("watch list: default"))
					continue
				}
				categories := make([]string, 0, len(sub.WatchList))
				for category := range sub.WatchList {
					categories = append(categories, category)
				}
				sort.Strings(categories)
				for _, category := range categories {
					fmt.Printf("  %s: %s\n", category, strings.Join(sub.WatchList[category], ", "))
				}
			}
			return nil
		},
	}
}

func newSubscribersAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <id>",
		Short: "Add a subscriber",
		Long: `Add a subscriber, optionally with a custom watch list. Without --watch
the subscriber receives alerts for the configured default watch list.

Examples:
  stockwatch subscribers add alice
  stockwatch subscribers add bob --watch "seed=kiwi,sugar_apple" --watch "egg=*_egg"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openSubscriberStore(cmd)
			if err != nil {
				return err
			}

			watchFlags, _ := cmd.Flags().GetStringArray("watch")
			watchList, err := parseWatchFlags(watchFlags)
			if err != nil {
				return err
			}

			sub := directory.Subscriber{
				ID:        args[0],
				Active:    true,
				WatchList: watchList,
			}
			if err := store.Add(sub); err != nil {
				return fmt.Errorf("failed to save subscriber: %w", err)
			}

			fmt.Printf("Added %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringArray("watch", nil, "Watch list entry as category=item1,item2 (repeatable)")
	return cmd
}

func newSubscribersRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a subscriber",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openSubscriberStore(cmd)
			if err != nil {
				return err
			}

			removed, err := store.Remove(args[0])
			if err != nil {
				return fmt.Errorf("failed to update subscribers: %w", err)
			}
			if !removed {
				fmt.Printf("No subscriber named %s\n", args[0])
				return nil
			}
			fmt.Printf("Removed %s\n", args[0])
			return nil
		},
	}
}

// parseWatchFlags converts repeated "category=item1,item2" flags to a watch list.
func parseWatchFlags(flags []string) (map[string][]string, error) {
	if len(flags) == 0 {
		return nil, nil
	}
	watchList := make(map[string][]string, len(flags))
	for _, flag := range flags {
		category, items, ok := strings.Cut(flag, "=")
		if !ok || category == "" || items == "" {
			return nil, fmt.Errorf("invalid --watch entry %q, expected category=item1,item2", flag)
		}
		for _, item := range strings.Split(items, ",") {
			item = strings.TrimSpace(item)
			if item != "" {
				watchList[category] = append(watchList[category], item)
			}
		}
	}
	return watchList, nil
}
