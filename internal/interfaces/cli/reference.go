package cli

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/haebom/tariff/internal/application/dashboard"
	"github.com/haebom/tariff/internal/domain/reference"
)

// NewSectionsCmd lists the HS sections with their chapter ranges.
func NewSectionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sections",
		Short: "List HS reference sections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, ctx, cancel, err := commandContext(cmd)
			if err != nil {
				return err
			}
			defer cancel()
			svc, err := cc.Backend.Dashboard(ctx)
			if err != nil {
				return err
			}
			sections, err := svc.Sections(ctx)
			if err != nil {
				return err
			}
			return PrintResult(cmd, sectionsOutput(sections))
		},
	}
}

// NewSearchCmd searches the HS reference table.  Terms are ANDed; "or"
// joins alternatives.
func NewSearchCmd() *cobra.Command {
	var (
		section string
		limit   int
	)
	cmd := &cobra.Command{
		Use:   "search [terms...]",
		Short: "Search HS codes by description or code",
		Example: `  tariff search steel
  tariff search steel or aluminium --section XV`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, ctx, cancel, err := commandContext(cmd)
			if err != nil {
				return err
			}
			defer cancel()
			svc, err := cc.Backend.Dashboard(ctx)
			if err != nil {
				return err
			}
			res, err := svc.Search(ctx, &dashboard.SearchInput{
				Query:   strings.Join(args, " "),
				Section: section,
				Limit:   limit,
			})
			if err != nil {
				return err
			}
			if err := PrintResult(cmd, searchOutput{res}); err != nil {
				return err
			}
			if cc.OutputFormat != FormatJSON {
				fmt.Fprintln(cmd.ErrOrStderr(), res.Summary)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&section, "section", "s", "", "restrict to a section id (e.g. XV)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum rows to show (default from config)")
	return cmd
}

// NewKeywordsCmd prints the keywords extracted from a policy phrase.
func NewKeywordsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keywords <phrase>",
		Short: "Extract cross-link keywords from a policy phrase",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, ctx, cancel, err := commandContext(cmd)
			if err != nil {
				return err
			}
			defer cancel()
			svc, err := cc.Backend.Dashboard(ctx)
			if err != nil {
				return err
			}
			kw := svc.Keywords(ctx, strings.Join(args, " "))
			if kw == nil {
				kw = []string{}
			}
			return PrintResult(cmd, keywordsOutput(kw))
		},
	}
}

type sectionsOutput []reference.Section

func (s sectionsOutput) TableHeaders() []string { return []string{"Section", "Chapters", "Name"} }

func (s sectionsOutput) TableRows() [][]string {
	rows := make([][]string, 0, len(s))
	for _, sec := range s {
		rows = append(rows, []string{sec.ID, sec.ChapterRange, truncate(sec.Name, 70)})
	}
	return rows
}

type searchOutput struct{ r *dashboard.SearchResult }

func (o searchOutput) MarshalJSON() ([]byte, error) { return jsonOf(o.r) }

func (o searchOutput) TableHeaders() []string { return []string{"Section", "HS Code", "Description"} }

func (o searchOutput) TableRows() [][]string {
	rows := make([][]string, 0, len(o.r.Entries))
	for _, e := range o.r.Entries {
		rows = append(rows, []string{e.SectionID, color.CyanString(e.Code), truncate(e.Description, 80)})
	}
	return rows
}

type keywordsOutput []string

func (k keywordsOutput) String() string { return strings.Join(k, "\n") }
