package outline

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/astkeeper/internal/astree"
)

// TextImporter handles plain text. There is no heading structure to mine, so
// blank-line-separated paragraphs are joined into the root summary.
type TextImporter struct{}

func (p *TextImporter) Import(r io.Reader, filename string) (*astree.Node, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var paragraphs []string
	var current strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			if current.Len() > 0 {
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		paragraphs = append(paragraphs, current.String())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	root := astree.NewNode(baseTitle(filename), strings.Join(paragraphs, "\n\n"))
	return root, nil
}
