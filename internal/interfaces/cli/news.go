package cli

import (
	"fmt"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/haebom/tariff/internal/application/newsfeed"
	"github.com/haebom/tariff/internal/domain/news"
	"github.com/haebom/tariff/internal/infrastructure/messaging/kafka"
)

// NewNewsCmd groups the news store commands.
func NewNewsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "news",
		Short: "Fetch, query and prune tariff news",
	}
	cmd.AddCommand(
		newNewsFetchCmd(),
		newNewsListCmd(),
		newNewsLiveCmd(),
		newNewsCleanupCmd(),
		newNewsTailCmd(),
	)
	return cmd
}

func newNewsFetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Fetch every configured feed and store new items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, ctx, cancel, err := commandContext(cmd)
			if err != nil {
				return err
			}
			defer cancel()
			svc, err := cc.Backend.News(ctx)
			if err != nil {
				return err
			}
			res, err := svc.Ingest(ctx)
			if err != nil {
				return err
			}
			if err := PrintResult(cmd, ingestOutput{res}); err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("%d new of %d processed", res.New, res.Processed))
			return nil
		},
	}
}

func newNewsListCmd() *cobra.Command {
	var params news.SearchParams
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Query stored news items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, ctx, cancel, err := commandContext(cmd)
			if err != nil {
				return err
			}
			defer cancel()
			svc, err := cc.Backend.News(ctx)
			if err != nil {
				return err
			}
			res, err := svc.Query(ctx, params)
			if err != nil {
				return err
			}
			if err := PrintResult(cmd, itemsOutput(res.Items)); err != nil {
				return err
			}
			if cc.OutputFormat != FormatJSON {
				fmt.Fprintf(cmd.ErrOrStderr(), "page %d of %d, %d items\n", res.Page, res.TotalPages, res.Total)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&params.Query, "query", "q", "", "substring of title or content")
	f.StringVar(&params.Source, "source", "", "source name")
	f.StringVar(&params.StartDate, "from", "", "first day, YYYY-MM-DD")
	f.StringVar(&params.EndDate, "to", "", "last day, YYYY-MM-DD")
	f.IntVar(&params.Page, "page", 1, "page number")
	f.IntVarP(&params.Limit, "limit", "n", news.DefaultPageSize, "items per page (max 100)")
	return cmd
}

func newNewsLiveCmd() *cobra.Command {
	var keywords []string
	cmd := &cobra.Command{
		Use:   "live",
		Short: "Show the live feed, optionally filtered by keywords",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, ctx, cancel, err := commandContext(cmd)
			if err != nil {
				return err
			}
			defer cancel()
			svc, err := cc.Backend.News(ctx)
			if err != nil {
				return err
			}
			res, err := svc.Live(ctx, keywords)
			if err != nil {
				return err
			}
			if cc.OutputFormat == FormatJSON {
				return PrintResult(cmd, res)
			}
			if err := PrintResult(cmd, articlesOutput(res.Articles)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d articles\n", res.Count, res.Total)
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&keywords, "keywords", "k", nil, "comma separated keywords; an article matching any is kept")
	return cmd
}

func newNewsCleanupCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove items older than the retention period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, ctx, cancel, err := commandContext(cmd)
			if err != nil {
				return err
			}
			defer cancel()
			svc, err := cc.Backend.News(ctx)
			if err != nil {
				return err
			}
			res, err := svc.Cleanup(ctx, days)
			if err != nil {
				return err
			}
			if cc.OutputFormat == FormatJSON {
				return PrintResult(cmd, res)
			}
			PrintSuccess(cmd, fmt.Sprintf("removed %d items older than %s (%d days)",
				res.Removed, res.CutoffDate.Format(news.DayLayout), res.Days))
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "retention in days, at least 7 (default from config)")
	return cmd
}

func newNewsTailCmd() *cobra.Command {
	var fromLatest bool
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Stream news ingestion events from Kafka until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			return cc.Backend.Tail(ctx, fromLatest, func(p kafka.NewsIngestedPayload) error {
				if cc.OutputFormat == FormatJSON {
					return printJSON(out, p)
				}
				_, err := fmt.Fprintf(out, "%s  %s  %s\n", p.DateStr, color.CyanString(p.Source), p.Title)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&fromLatest, "latest", true, "start at the end of the topic instead of the beginning")
	return cmd
}

type ingestOutput struct{ r *newsfeed.IngestResult }

func (o ingestOutput) MarshalJSON() ([]byte, error) { return jsonOf(o.r) }

func (o ingestOutput) TableHeaders() []string { return []string{"Feed", "Articles", "Error"} }

func (o ingestOutput) TableRows() [][]string {
	rows := make([][]string, 0, len(o.r.Feeds))
	for _, f := range o.r.Feeds {
		errText := ""
		if f.Error != "" {
			errText = color.RedString(truncate(f.Error, 60))
		}
		rows = append(rows, []string{truncate(f.URL, 70), strconv.Itoa(f.Articles), errText})
	}
	return rows
}

type itemsOutput []news.Item

func (o itemsOutput) TableHeaders() []string { return []string{"Date", "Source", "Title"} }

func (o itemsOutput) TableRows() [][]string {
	rows := make([][]string, 0, len(o))
	for _, it := range o {
		rows = append(rows, []string{it.DateStr, it.Source, truncate(it.Title, 90)})
	}
	return rows
}

type articlesOutput []news.Article

func (o articlesOutput) TableHeaders() []string { return []string{"Published", "Source", "Title"} }

func (o articlesOutput) TableRows() [][]string {
	rows := make([][]string, 0, len(o))
	for _, a := range o {
		published := ""
		if a.PublishDate != nil {
			published = a.PublishDate.Format("2006-01-02 15:04")
		}
		rows = append(rows, []string{published, a.Source, truncate(strings.TrimSpace(a.Title), 90)})
	}
	return rows
}
