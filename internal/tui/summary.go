package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"github.com/vvka-141/graphload/internal/services"
	"github.com/vvka-141/graphload/pkg/graphload"
)

func comma(n int) string { return humanize.Comma(int64(n)) }

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(BorderStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return HeaderStyle
			case col == 0:
				return CellStyle
			default:
				return NumberStyle
			}
		})
}

// RenderSummary draws the per-file table and the run totals.
func RenderSummary(s *graphload.RunSummary) string {
	t := newTable("File", "Kind", "Loaded", "Failed", "Fallback", "Elapsed")
	for _, f := range s.Files {
		fallback := ""
		if f.Outcome.FallbackUsed {
			fallback = "yes"
		}
		t.Row(f.File, f.Kind.String(), comma(f.Outcome.Succeeded), comma(f.Outcome.Failed),
			fallback, f.Outcome.Elapsed.Round(time.Millisecond).String())
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render(fmt.Sprintf("Graph '%s' (%s)", s.Graph, s.Mode)))
	b.WriteString("\n")
	b.WriteString(t.String())
	b.WriteString("\n")
	b.WriteString(totalsLine(s))
	b.WriteString("\n")
	return b.String()
}

func totalsLine(s *graphload.RunSummary) string {
	line := fmt.Sprintf("Nodes %s/%s %s Edges %s/%s %s %v",
		comma(s.Nodes.Succeeded), comma(s.Nodes.Total()), SymbolBullet,
		comma(s.Edges.Succeeded), comma(s.Edges.Total()), SymbolBullet,
		s.Elapsed.Round(time.Millisecond))

	switch total := s.Total(); {
	case s.Aborted:
		return ErrorStyle.Render(SymbolCross + " Aborted: " + line)
	case total.Failed > 0:
		return WarningStyle.Render(fmt.Sprintf("%s %s record(s) failed: %s", SymbolCross, comma(total.Failed), line))
	default:
		return SuccessStyle.Render(SymbolCheck + " " + line)
	}
}

// LogSummary writes the summary as log lines for non-interactive runs.
func LogSummary(logger graphload.Logger, s *graphload.RunSummary) {
	for _, f := range s.Files {
		o := f.Outcome
		logger.Info("%s: %s %s loaded, %s failed, fallback=%t, %v",
			f.File, comma(o.Succeeded), f.Kind, comma(o.Failed), o.FallbackUsed, o.Elapsed.Round(time.Millisecond))
	}
	logger.Info("Run %s: nodes %s/%s, edges %s/%s in %v",
		s.RunID, comma(s.Nodes.Succeeded), comma(s.Nodes.Total()),
		comma(s.Edges.Succeeded), comma(s.Edges.Total()), s.Elapsed.Round(time.Millisecond))
}

// RenderStats draws node and relationship counts.
func RenderStats(graph string, stats *services.GraphStats) string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render(fmt.Sprintf("Graph '%s'", graph)))
	b.WriteString("\n")

	nodes := newTable("Label", "Nodes")
	for _, c := range stats.Nodes {
		nodes.Row(c.Name, humanize.Comma(c.Count))
	}
	nodes.Row("total", humanize.Comma(stats.TotalNodes()))

	rels := newTable("Type", "Relationships")
	for _, c := range stats.Relationships {
		rels.Row(c.Name, humanize.Comma(c.Count))
	}
	rels.Row("total", humanize.Comma(stats.TotalRelationships()))

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, nodes.String(), "  ", rels.String()))
	b.WriteString("\n")
	return b.String()
}

// LogStats writes the counts as log lines for non-interactive runs.
func LogStats(logger graphload.Logger, graph string, stats *services.GraphStats) {
	for _, c := range stats.Nodes {
		logger.Info("(:%s) %s", c.Name, humanize.Comma(c.Count))
	}
	for _, c := range stats.Relationships {
		logger.Info("[:%s] %s", c.Name, humanize.Comma(c.Count))
	}
	logger.Info("Graph '%s': %s nodes, %s relationships", graph,
		humanize.Comma(stats.TotalNodes()), humanize.Comma(stats.TotalRelationships()))
}
