package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/mossline/stockwatch/tui/theme"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

const maxHelpWidth = 72
const minHelpWidth = 40

// helpWidth returns the terminal width capped at maxHelpWidth.
func helpWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width < minHelpWidth {
		return maxHelpWidth
	}
	if width > maxHelpWidth {
		return maxHelpWidth
	}
	return width
}

// wrapText wraps text to the specified width, preserving existing line breaks.
func wrapText(text string, width int) string {
	if width <= 0 {
		width = maxHelpWidth
	}

	var result []string
	for _, paragraph := range strings.Split(text, "\n") {
		if len(paragraph) <= width {
			result = append(result, paragraph)
			continue
		}
		var line string
		for _, word := range strings.Fields(paragraph) {
			if line == "" {
				line = word
			} else if len(line)+1+len(word) <= width {
				line += " " + word
			} else {
				result = append(result, line)
				line = word
			}
		}
		if line != "" {
			result = append(result, line)
		}
	}
	return strings.Join(result, "\n")
}

// SetStyledHelp installs a themed help renderer on the command.
func SetStyledHelp(cmd *cobra.Command) {
	cmd.SetHelpFunc(func(c *cobra.Command, args []string) {
		t := theme.DefaultTheme
		width := helpWidth()

		fmt.Println(t.Title.Render(c.Name()) + " — " + c.Short)
		if c.Long != "" {
			fmt.Println()
			fmt.Println(wrapText(c.Long, width))
		}

		fmt.Println()
		fmt.Println(t.Accent.Render("Usage:"))
		fmt.Printf("  %s\n", c.UseLine())

		if c.HasAvailableSubCommands() {
			fmt.Println()
			fmt.Println(t.Accent.Render("Commands:"))
			for _, sub := range c.Commands() {
				if sub.IsAvailableCommand() {
					fmt.Printf("  %-14s %s\n", sub.Name(), sub.Short)
				}
			}
		}

		if c.HasAvailableLocalFlags() || c.HasAvailableInheritedFlags() {
			fmt.Println()
			fmt.Println(t.Accent.Render("Flags:"))
			printFlags := func(f *pflag.Flag) {
				if f.Hidden {
					return
				}
				name := "--" + f.Name
				if f.Shorthand != "" {
					name = "-" + f.Shorthand + ", " + name
				}
				fmt.Printf("  %-20s %s\n", name, f.Usage)
			}
			c.LocalFlags().VisitAll(printFlags)
			c.InheritedFlags().VisitAll(printFlags)
		}

		if c.Example != "" {
			fmt.Println()
			fmt.Println(t.Accent.Render("Examples:"))
			fmt.Println(c.Example)
		}
	})
}
