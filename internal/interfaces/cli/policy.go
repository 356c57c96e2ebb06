package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/haebom/tariff/internal/application/dashboard"
	"github.com/haebom/tariff/internal/domain/policy"
)

// NewTreeCmd prints the policy tree, or one node with its decision path.
func NewTreeCmd() *cobra.Command {
	var depth int
	cmd := &cobra.Command{
		Use:   "tree [node-id]",
		Short: "Show the tariff policy tree or a single node",
		Args:  cobra.MaximumNArgs(1),
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

			if len(args) == 1 {
				detail, err := svc.Node(ctx, args[0])
				if err != nil {
					return err
				}
				return PrintResult(cmd, nodeOutput{detail})
			}
			view, err := svc.Tree(ctx)
			if err != nil {
				return err
			}
			return PrintResult(cmd, treeOutput{view: view, depth: depth})
		},
	}
	cmd.Flags().IntVar(&depth, "depth", 0, "limit the printed depth (0 prints everything)")
	return cmd
}

// NewResolveCmd resolves a free rate expression to a price estimate.
func NewResolveCmd() *cobra.Command {
	var basePrice float64
	cmd := &cobra.Command{
		Use:   "resolve <rate expression>",
		Short: "Resolve a rate expression such as \"145% Tariff on Full Customs Value\"",
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
			input := &dashboard.ResolveInput{RateExpression: strings.Join(args, " ")}
			if cmd.Flags().Changed("price") {
				input.BasePrice = &basePrice
			}
			res, err := svc.Resolve(ctx, input)
			if err != nil {
				return err
			}
			return PrintResult(cmd, resolutionOutput{res})
		},
	}
	cmd.Flags().Float64Var(&basePrice, "price", policy.DefaultBasePrice, "base price of the product")
	return cmd
}

type treeOutput struct {
	view  *dashboard.TreeView
	depth int
}

func (t treeOutput) MarshalJSON() ([]byte, error) { return jsonOf(t.view) }

// String renders the tree with box-drawing indentation.
func (t treeOutput) String() string {
	nodes := make(map[string]policy.Node, len(t.view.Nodes))
	for _, n := range t.view.Nodes {
		nodes[n.ID] = n
	}
	children := make(map[string][]policy.Edge)
	for _, e := range t.view.Edges {
		children[e.Source] = append(children[e.Source], e)
	}

	var b strings.Builder
	b.WriteString(color.New(color.Bold).Sprint(nodes[t.view.Root].Label))
	b.WriteByte('\n')
	var walk func(id, prefix string, level int)
	walk = func(id, prefix string, level int) {
		if t.depth > 0 && level > t.depth {
			return
		}
		kids := children[id]
		for i, e := range kids {
			branch, next := "├── ", "│   "
			if i == len(kids)-1 {
				branch, next = "└── ", "    "
			}
			b.WriteString(prefix + branch)
			if e.BranchLabel != "" {
				b.WriteString(color.CyanString("[%s] ", e.BranchLabel))
			}
			b.WriteString(nodeLabel(nodes[e.Target]))
			b.WriteByte('\n')
			walk(e.Target, prefix+next, level+1)
		}
	}
	walk(t.view.Root, "", 1)
	for _, o := range t.view.Omissions {
		b.WriteString(color.YellowString("omitted %s: %s\n", o.Path, o.Reason))
	}
	return b.String()
}

func (t treeOutput) TableHeaders() []string { return []string{"ID", "Kind", "Label", "Rate"} }

func (t treeOutput) TableRows() [][]string {
	rows := make([][]string, 0, len(t.view.Nodes))
	for _, n := range t.view.Nodes {
		if t.depth > 0 && strings.Count(n.ID, "/")+1 > t.depth {
			continue
		}
		rows = append(rows, []string{n.ID, string(n.Kind), truncate(n.Label, 50), n.RateExpression})
	}
	return rows
}

func nodeLabel(n policy.Node) string {
	switch n.Kind {
	case policy.KindOutcome:
		return color.GreenString(n.Label)
	case policy.KindQuestion:
		return n.Label
	default:
		return color.New(color.Bold).Sprint(n.Label)
	}
}

type nodeOutput struct{ d *dashboard.NodeDetail }

func (n nodeOutput) MarshalJSON() ([]byte, error) { return jsonOf(n.d) }

func (n nodeOutput) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)\n", color.New(color.Bold).Sprint(n.d.Node.Label), n.d.Node.Kind)
	fmt.Fprintf(&b, "path: %s\n", strings.Join(n.d.PathNodes, " > "))
	if len(n.d.Keywords) > 0 {
		fmt.Fprintf(&b, "keywords: %s\n", strings.Join(n.d.Keywords, ", "))
	}
	if n.d.Resolution != nil {
		fmt.Fprintf(&b, "rate: %s (%s)\n", n.d.Node.RateExpression, n.d.Resolution.Rule)
	}
	if n.d.Price != nil {
		fmt.Fprintf(&b, "price: %s\n", color.GreenString(n.d.Price.Display))
	}
	for _, c := range n.d.Children {
		fmt.Fprintf(&b, "  [%s] %s\n", c.BranchLabel, c.Target)
	}
	return b.String()
}

func (n nodeOutput) TableHeaders() []string { return []string{"Field", "Value"} }

func (n nodeOutput) TableRows() [][]string {
	rows := [][]string{
		{"id", n.d.Node.ID},
		{"kind", string(n.d.Node.Kind)},
		{"label", n.d.Node.Label},
		{"path", strings.Join(n.d.PathNodes, " > ")},
		{"keywords", strings.Join(n.d.Keywords, ", ")},
	}
	if n.d.Resolution != nil {
		rows = append(rows,
			[]string{"rate", n.d.Node.RateExpression},
			[]string{"rule", n.d.Resolution.Rule.String()},
			[]string{"base rate", strconv.FormatFloat(n.d.Resolution.BaseRate, 'f', -1, 64)},
			[]string{"applies to", string(n.d.Resolution.AppliesTo)},
		)
	}
	if n.d.Price != nil {
		rows = append(rows, []string{"price", n.d.Price.Display})
	}
	return rows
}

type resolutionOutput struct{ r *dashboard.Resolution }

func (o resolutionOutput) MarshalJSON() ([]byte, error) { return jsonOf(o.r) }

func (o resolutionOutput) String() string {
	return fmt.Sprintf("%s\nrule: %s  rate: %g  applies to: %s\n%s",
		o.r.RateExpression, o.r.Resolution.Rule, o.r.Resolution.BaseRate, o.r.Resolution.AppliesTo,
		color.GreenString(o.r.Price.Display))
}

func (o resolutionOutput) TableHeaders() []string {
	return []string{"Expression", "Rule", "Rate", "Applies To", "Base", "Final", "Note"}
}

func (o resolutionOutput) TableRows() [][]string {
	return [][]string{{
		o.r.RateExpression,
		o.r.Resolution.Rule.String(),
		strconv.FormatFloat(o.r.Resolution.BaseRate, 'f', -1, 64),
		string(o.r.Resolution.AppliesTo),
		fmt.Sprintf("$%.2f", o.r.Price.BasePrice),
		fmt.Sprintf("$%.2f", o.r.Price.FinalPrice),
		o.r.Resolution.Note,
	}}
}
