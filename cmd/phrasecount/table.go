package main

import (
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/John-Robertt/phrasecount/internal/domain"
)

// renderBreakdown 渲染 --breakdown 的逐集明细（按索引页顺序），合计放在表尾。
func renderBreakdown(rr domain.Report) string {
	tw := table.NewWriter()
	style := table.StyleRounded
	// 表尾带 humanize 的单位（kB），不做大写。
	style.Format.Footer = text.FormatDefault
	tw.SetStyle(style)

	tw.AppendHeader(table.Row{"#", "Episode", "Matches", "Size", "Script"})
	for i, ep := range rr.Episodes {
		script := "yes"
		if !ep.ScriptFound {
			script = "missing"
		}
		tw.AppendRow(table.Row{
			strconv.Itoa(i + 1),
			episodeLabel(ep.URL),
			strconv.Itoa(ep.Matches),
			formatBytes(ep.Bytes),
			script,
		})
	}
	tw.AppendFooter(table.Row{"", "total", strconv.Itoa(rr.Occurrences), formatBytes(rr.BytesDownloaded), ""})

	right := []table.ColumnConfig{
		{Name: "#", Align: text.AlignRight, AlignFooter: text.AlignRight},
		{Name: "Matches", Align: text.AlignRight, AlignFooter: text.AlignRight},
		{Name: "Size", Align: text.AlignRight, AlignFooter: text.AlignRight},
	}
	tw.SetColumnConfigs(right)

	return tw.Render()
}

func formatBytes(n int64) string {
	return humanize.Bytes(uint64(max(n, 0)))
}
