package outline

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dgallion1/astkeeper/internal/astree"
	"github.com/fumiama/go-docx"
)

// DOCXImporter builds an outline from Heading1..Heading6 paragraph styles.
type DOCXImporter struct{}

func (p *DOCXImporter) Import(r io.Reader, filename string) (*astree.Node, error) {
	// go-docx needs a ReadSeeker plus a size, so spool to a temp file.
	tmp, err := os.CreateTemp("", "astkeeper-docx-*.docx")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("seek temp file: %w", err)
	}

	doc, err := docx.Parse(tmp, size)
	tmp.Close()
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	b := newBuilder(baseTitle(filename))
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		text := paragraphText(para)
		if text == "" {
			continue
		}
		if level := styleHeadingLevel(para); level > 0 {
			b.heading(level, text)
		} else {
			b.paragraph(text)
		}
	}
	return b.finish(), nil
}

func styleHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	if !strings.HasPrefix(style, "heading") {
		return 0
	}
	switch style[len(style)-1] {
	case '1', '2', '3', '4', '5', '6':
		return int(style[len(style)-1] - '0')
	}
	return 0
}

func paragraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
