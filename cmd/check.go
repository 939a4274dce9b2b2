package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kastheco/monothematic/internal/check"
)

// NewCheckCmd returns `monothematic check`.
func NewCheckCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "audit the wallpaper source and every template mapping",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.load()
			if err != nil {
				return err
			}
			res := check.Audit(s.cfg, s.paths)
			printAudit(cmd.OutOrStdout(), res)

			ok, total := res.Summary()
			if ok < total {
				return fmt.Errorf("%d of %d checks failed", total-ok, total)
			}
			return nil
		},
	}
}

func printAudit(w io.Writer, res *check.AuditResult) {
	if res.ConfigFile == "" {
		fmt.Fprintf(w, "%s %s\n", headingText("config"), mutedText("(defaults, no config file)"))
	} else {
		fmt.Fprintf(w, "%s %s\n", headingText("config"), res.ConfigFile)
	}

	fmt.Fprintf(w, "\n%s\n", headingText("wallpaper"))
	for _, it := range res.Wallpaper {
		printItem(w, it)
	}

	fmt.Fprintf(w, "\n%s\n", headingText("templates"))
	for _, t := range res.Templates {
		fmt.Fprintf(w, "  %s\n", t.Name)
		printItem(w, t.Source)
		printItem(w, t.Destination)
	}

	ok, total := res.Summary()
	fmt.Fprintf(w, "\n%d/%d checks passed\n", ok, total)
}

func printItem(w io.Writer, it check.Item) {
	line := fmt.Sprintf("  %s %-12s %s", statusMark(it.Status), it.Label, it.Path)
	if it.Detail != "" {
		line += " " + mutedText("(%s)", it.Detail)
	}
	fmt.Fprintln(w, line)
}
