package outline

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/astkeeper/internal/astree"
)

// CSVImporter builds an outline of row-range sections: the first row is
// treated as the header and data rows are grouped into fixed-size batches so
// each section summary stays a manageable size.
type CSVImporter struct{}

const csvBatchSize = 20

func (p *CSVImporter) Import(r io.Reader, filename string) (*astree.Node, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	root := astree.NewNode(baseTitle(filename), "")
	if len(records) == 0 {
		return root, nil
	}

	headers := records[0]
	root.ContentSummary = "Columns: " + strings.Join(headers, ", ")

	dataRows := records[1:]
	for i := 0; i < len(dataRows); i += csvBatchSize {
		end := i + csvBatchSize
		if end > len(dataRows) {
			end = len(dataRows)
		}

		var text strings.Builder
		for _, row := range dataRows[i:end] {
			for j, cell := range row {
				if j > 0 {
					text.WriteString("; ")
				}
				if j < len(headers) {
					text.WriteString(headers[j] + "=" + cell)
				} else {
					text.WriteString(cell)
				}
			}
			text.WriteString("\n")
		}

		root.Children = append(root.Children, astree.NewNode(
			fmt.Sprintf("Rows %d-%d", i+1, end),
			strings.TrimSpace(text.String()),
		))
	}
	return root, nil
}
