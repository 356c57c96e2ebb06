package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/haebom/tariff/internal/domain/policy"
	"github.com/haebom/tariff/internal/infrastructure/datasource"
	"github.com/haebom/tariff/pkg/errors"
)

// NewDatasetCmd groups the dataset maintenance commands.
func NewDatasetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Validate and publish the policy and reference datasets",
	}
	cmd.AddCommand(newDatasetCheckCmd(), newDatasetUploadCmd())
	return cmd
}

func newDatasetCheckCmd() *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Load the configured datasets and report skipped rows and branches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, ctx, cancel, err := commandContext(cmd)
			if err != nil {
				return err
			}
			defer cancel()
			snap, err := cc.Backend.Snapshot(ctx)
			if err != nil {
				return err
			}
			report := newDatasetReport(snap)
			if err := PrintResult(cmd, report); err != nil {
				return err
			}
			if strict && report.Problems() > 0 {
				return errors.Newf(errors.ErrCodeReferenceLoad, "%d dataset problems found", report.Problems())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "fail when any row or branch was skipped")
	return cmd
}

// Object keys used when the configured dataset path is empty.
var defaultObjectKeys = map[string]string{
	"policy":   "datasets/policy.json",
	"sections": "datasets/hs_sections.csv",
	"entries":  "datasets/hs_data.csv",
}

func newDatasetUploadCmd() *cobra.Command {
	var key string
	cmd := &cobra.Command{
		Use:   "upload <policy|sections|entries> <file>",
		Short: "Upload a dataset file to object storage",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, path := args[0], args[1]
			cc, ctx, cancel, err := commandContext(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			if key == "" {
				key = objectKey(cc, kind)
			}
			if key == "" {
				return errors.InvalidParam("dataset kind must be policy, sections or entries").WithDetail(kind)
			}

			f, err := os.Open(path)
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeSourceUnavailable, "cannot open dataset file").WithDetail(path)
			}
			defer f.Close()
			st, err := f.Stat()
			if err != nil {
				return err
			}

			up, err := cc.Backend.Uploader(ctx)
			if err != nil {
				return err
			}
			info, err := up.Put(ctx, key, f, st.Size(), contentTypeFor(path))
			if err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("uploaded %s to %s/%s (%d bytes, etag %s)",
				filepath.Base(path), up.Bucket(), info.Key, info.Size, info.ETag))
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "object key (defaults to the configured dataset path)")
	return cmd
}

// objectKey is the configured dataset path for kind, so that an upload
// lands where the minio dataset source reads from.
func objectKey(cc *CLIContext, kind string) string {
	var configured string
	switch kind {
	case "policy":
		configured = cc.Config.Datasets.PolicyPath
	case "sections":
		configured = cc.Config.Datasets.SectionsPath
	case "entries":
		configured = cc.Config.Datasets.EntriesPath
	}
	if configured != "" {
		return configured
	}
	return defaultObjectKeys[kind]
}

func contentTypeFor(path string) string {
	switch filepath.Ext(path) {
	case ".json":
		return "application/json"
	case ".csv":
		return "text/csv"
	default:
		return "application/octet-stream"
	}
}

// datasetReport summarises a loaded snapshot.
type datasetReport struct {
	Version     uint64            `json:"version"`
	Source      string            `json:"source"`
	PolicyNodes map[string]int    `json:"policy_nodes"`
	Omissions   []policy.Omission `json:"omissions"`
	Sections    int               `json:"sections"`
	Entries     int               `json:"entries"`
	Dropped     []rowProblem      `json:"dropped_rows"`
	Warnings    []rowProblem      `json:"hierarchy_warnings"`
}

type rowProblem struct {
	Where  string `json:"where"`
	Reason string `json:"reason"`
}

func newDatasetReport(s *datasource.Snapshot) *datasetReport {
	r := &datasetReport{
		Version:     s.Version,
		Source:      s.Source,
		PolicyNodes: map[string]int{},
		Omissions:   s.Tree.Omissions,
		Sections:    len(s.Reference.Sections()),
		Entries:     s.Reference.Len(),
		Dropped:     []rowProblem{},
		Warnings:    []rowProblem{},
	}
	if r.Omissions == nil {
		r.Omissions = []policy.Omission{}
	}
	for _, n := range s.Tree.Nodes() {
		r.PolicyNodes[string(n.Kind)]++
	}
	for _, d := range s.Reference.Dropped {
		r.Dropped = append(r.Dropped, rowProblem{Where: fmt.Sprintf("%s:%d", d.Table, d.Line), Reason: d.Reason})
	}
	for _, w := range s.Reference.Warnings {
		r.Warnings = append(r.Warnings, rowProblem{
			Where:  w.Code,
			Reason: fmt.Sprintf("declared parent %s, prefix parent %s", w.DeclaredParent, w.PrefixParent),
		})
	}
	return r
}

// Problems counts skipped rows and branches.  Hierarchy warnings are
// informational.
func (r *datasetReport) Problems() int { return len(r.Omissions) + len(r.Dropped) }

func (r *datasetReport) TableHeaders() []string { return []string{"Check", "Result"} }

func (r *datasetReport) TableRows() [][]string {
	rows := [][]string{
		{"version", strconv.FormatUint(r.Version, 10)},
		{"source", r.Source},
	}
	for _, kind := range []policy.NodeKind{policy.KindCountry, policy.KindQuestion, policy.KindOutcome} {
		rows = append(rows, []string{"policy " + string(kind) + " nodes", strconv.Itoa(r.PolicyNodes[string(kind)])})
	}
	rows = append(rows,
		[]string{"sections", strconv.Itoa(r.Sections)},
		[]string{"entries", strconv.Itoa(r.Entries)},
	)
	for _, o := range r.Omissions {
		rows = append(rows, []string{color.YellowString("omitted branch"), o.Path + ": " + o.Reason})
	}
	for _, d := range r.Dropped {
		rows = append(rows, []string{color.YellowString("dropped row"), d.Where + ": " + d.Reason})
	}
	for _, w := range r.Warnings {
		rows = append(rows, []string{"hierarchy", w.Where + ": " + w.Reason})
	}
	return rows
}
