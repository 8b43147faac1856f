package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"
	"github.com/olekukonko/tablewriter"

	"github.com/napolitain/upgrade-planner/internal/config"
	"github.com/napolitain/upgrade-planner/internal/cost"
	"github.com/napolitain/upgrade-planner/internal/efficiency"
	"github.com/napolitain/upgrade-planner/internal/models"
	"github.com/napolitain/upgrade-planner/internal/resolver"
)

var (
	rootStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	itemStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	branchStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func nodeLabel(n *resolver.Node) string {
	return fmt.Sprintf("%s L%d (%s #%d)", n.Name, n.Level, n.Type, n.ID)
}

func subtree(n *resolver.Node) *tree.Tree {
	t := tree.Root(nodeLabel(n))
	for _, c := range n.Children {
		if len(c.Children) == 0 {
			t.Child(nodeLabel(c))
		} else {
			t.Child(subtree(c))
		}
	}
	return t
}

// renderTree draws the prerequisite tree
func renderTree(root *resolver.Node) string {
	return subtree(root).
		Enumerator(tree.RoundedEnumerator).
		EnumeratorStyle(branchStyle).
		RootStyle(rootStyle).
		ItemStyle(itemStyle).
		String()
}

func formatTime(seconds int64) string {
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, secs)
}

func formatAmount(id models.ResourceID, amount int64) string {
	if models.IsTimeResource(id) {
		return formatTime(amount)
	}
	return fmt.Sprintf("%d", amount)
}

// printCostTable prints one row per requirement type and resource, plus totals
func printCostTable(w io.Writer, s *cost.Summary, withNet bool) {
	header := []string{"Type", "Resource", "Base"}
	if withNet {
		header = append(header, "Net", "Saved")
	}
	table := tablewriter.NewTable(w, tablewriter.WithHeader(header))

	addRows := func(label string, agg *cost.Aggregate) {
		for _, counter := range []models.Counter{agg.BaseCost, agg.BaseTime} {
			for _, id := range counter.Keys() {
				base := counter.Get(id)
				row := []string{label, fmt.Sprintf("%d", id), formatAmount(id, base)}
				if withNet {
					net := agg.NetCost.Get(id)
					if models.IsTimeResource(id) {
						net = agg.NetTime.Get(id)
					}
					row = append(row, formatAmount(id, net), formatAmount(id, base-net))
				}
				_ = table.Append(row)
			}
		}
	}

	types := make([]models.RequirementType, 0, len(s.ByType))
	for t := range s.ByType {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	for _, t := range types {
		addRows(t.String(), s.ByType[t])
	}
	addRows("total", s.Total)

	_ = table.Render()
}

// printInputs lists every buff in play with its selected value
func printInputs(w io.Writer, inputs []efficiency.Input) {
	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Buff", "Bucket", "Modifier", "Class", "Value", "Effective"}),
	)
	for _, in := range inputs {
		class := "-"
		if c, ok := in.Op.Class(); ok {
			class = c.String()
		}
		_ = table.Append([]string{
			fmt.Sprintf("%d", in.Ref.ID),
			in.Bucket,
			in.Modifier.String(),
			class,
			fmt.Sprintf("%.2f%%", in.Value*100),
			fmt.Sprintf("%.2f%%", in.Effective()*100),
		})
	}
	_ = table.Render()
}

// printBonuses shows the combined bonus per modifier and resource
func printBonuses(w io.Writer, bonuses map[models.ModifierCode]models.Bonus) {
	mods := make([]models.ModifierCode, 0, len(bonuses))
	for m := range bonuses {
		mods = append(mods, m)
	}
	sort.Slice(mods, func(i, j int) bool { return mods[i] < mods[j] })

	table := tablewriter.NewTable(w, tablewriter.WithHeader([]string{"Modifier", "Resource", "Bonus"}))
	for _, m := range mods {
		for _, r := range bonuses[m].Keys() {
			_ = table.Append([]string{m.String(), fmt.Sprintf("%d", r), fmt.Sprintf("%.2f%%", bonuses[m].Get(r)*100)})
		}
	}
	_ = table.Render()
}

func auctionScore(s *cost.Summary, cfg *config.Config) int64 {
	net := s.Total.NetCost
	if net == nil {
		net = s.Total.BaseCost
	}
	return cost.AuctionScore(net, cfg.AuctionScores)
}
