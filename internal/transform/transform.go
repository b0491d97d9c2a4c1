// Package transform normalizes HTML fragments into plain text for
// ingestion.
package transform

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// blockSelector matches the nodes that produce output lines: hyperlinks,
// tables, and block-level text containers.
const blockSelector = "a, table, p, div, h1, h2, h3, h4, h5, h6, ul, ol"

// cellDelimiter joins table cell text within a row.
const cellDelimiter = " | "

// Normalize converts an HTML fragment into its plain-text representation.
// Hyperlinks render as [text](href), tables as one delimiter-joined line
// per row, and block containers as their flattened visible text. Output
// lines follow document order and are newline-joined. Nodes outside the
// recognized set emit nothing directly; their text is still visited when
// nested inside a recognized container.
func Normalize(fragment string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return "", fmt.Errorf("parse html fragment: %w", err)
	}

	var lines []string
	doc.Find(blockSelector).Each(func(_ int, sel *goquery.Selection) {
		switch goquery.NodeName(sel) {
		case "a":
			href := sel.AttrOr("href", "")
			lines = append(lines, fmt.Sprintf("[%s](%s)", flatten(sel), href))
		case "table":
			sel.Find("tr").Each(func(_ int, row *goquery.Selection) {
				lines = append(lines, rowText(row))
			})
		default:
			lines = append(lines, flatten(sel))
		}
	})

	return strings.Join(lines, "\n"), nil
}

// rowText joins the visible text of a table row's cells.
func rowText(row *goquery.Selection) string {
	var cells []string
	row.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
		cells = append(cells, flatten(cell))
	})
	return strings.Join(cells, cellDelimiter)
}

// flatten collapses a selection's visible text onto one line.
func flatten(sel *goquery.Selection) string {
	return strings.Join(strings.Fields(sel.Text()), " ")
}
