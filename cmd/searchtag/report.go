package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hnimtadd/searchtag/decorator/dom"
	"github.com/hnimtadd/searchtag/host/memhost"
	"github.com/mattn/go-runewidth"
)

type reportLine struct {
	panel string
	row   int
	tag   string
	class string
}

func collectReport(h *memhost.Host) []reportLine {
	var lines []reportLine
	for _, id := range h.Panels() {
		for i, row := range h.Rows(id) {
			for _, b := range dom.FindAll(row, dom.IsWrapBoundary) {
				var extra []string
				for _, c := range dom.Classes(b) {
					if c != dom.WrapperClass {
						extra = append(extra, c)
					}
				}
				lines = append(lines, reportLine{
					panel: string(id),
					row:   i,
					tag:   dom.Text(b),
					class: strings.Join(extra, " "),
				})
			}
		}
	}
	return lines
}

// writeReport prints one tag per line in aligned columns. Widths are display
// cells so tags in wide scripts still line up.
func writeReport(w io.Writer, lines []reportLine) error {
	header := [4]string{"PANEL", "ROW", "TAG", "CLASS"}
	var widths [4]int
	cells := make([][4]string, 0, len(lines)+1)
	cells = append(cells, header)
	for _, l := range lines {
		cells = append(cells, [4]string{l.panel, strconv.Itoa(l.row), l.tag, l.class})
	}
	for _, row := range cells {
		for i, c := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(c))
		}
	}
	for _, row := range cells {
		var sb strings.Builder
		for i, c := range row {
			if i == len(row)-1 {
				sb.WriteString(c)
				break
			}
			sb.WriteString(runewidth.FillRight(c, widths[i]))
			sb.WriteString("  ")
		}
		if _, err := fmt.Fprintln(w, strings.TrimRight(sb.String(), " ")); err != nil {
			return err
		}
	}
	return nil
}
