// Package report renders structured metric/tabular data into a
// self-contained HTML document suitable for an email body.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Data is the payload of a report: a flat metrics mapping plus optional
// detail rows for the tabular section.
type Data struct {
	Metrics map[string]string   `json:"metrics"`
	Details []map[string]string `json:"details,omitempty"`
}

// Format renders a report document. Values are embedded verbatim; any
// escaping is a boundary-layer concern, not handled here.
//
// The detail table takes its column headers from the first row's key set.
// Rows with differing key sets render their own values positionally, so
// cells can end up under the wrong header. Known limitation, not corrected.
func Format(reportType, cluster string, data Data, generatedAt time.Time) string {
	var b strings.Builder

	b.WriteString("<html><body style=\"font-family:Arial,sans-serif;color:#24292e;\">\n")
	b.WriteString(fmt.Sprintf("<h2>%s Report</h2>\n", reportType))
	b.WriteString(fmt.Sprintf("<p><strong>Cluster:</strong> %s<br>\n", cluster))
	b.WriteString(fmt.Sprintf("<strong>Generated:</strong> %s</p>\n", generatedAt.UTC().Format(time.RFC1123)))

	b.WriteString("<h3>Metrics</h3>\n<ul>\n")
	for _, key := range sortedKeys(data.Metrics) {
		b.WriteString(fmt.Sprintf("<li><strong>%s:</strong> %s</li>\n", key, data.Metrics[key]))
	}
	b.WriteString("</ul>\n")

	if len(data.Details) > 0 {
		b.WriteString("<h3>Details</h3>\n")
		b.WriteString("<table border=\"1\" cellpadding=\"6\" cellspacing=\"0\" style=\"border-collapse:collapse;\">\n<tr>")
		for _, key := range sortedKeys(data.Details[0]) {
			b.WriteString(fmt.Sprintf("<th>%s</th>", key))
		}
		b.WriteString("</tr>\n")
		for _, row := range data.Details {
			b.WriteString("<tr>")
			for _, key := range sortedKeys(row) {
				b.WriteString(fmt.Sprintf("<td>%s</td>", row[key]))
			}
			b.WriteString("</tr>\n")
		}
		b.WriteString("</table>\n")
	}

	b.WriteString("</body></html>\n")
	return b.String()
}

// sortedKeys returns map keys in sorted order so output is deterministic.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
