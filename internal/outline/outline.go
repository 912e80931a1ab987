package outline

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/astkeeper/internal/astree"
)

// Importer converts raw document bytes into an outline tree rooted at a
// single node. Import is structural only: headings become section titles,
// surrounding text becomes section summaries.
type Importer interface {
	Import(r io.Reader, filename string) (*astree.Node, error)
}

// ErrUnsupported reports a file extension no importer handles.
var ErrUnsupported = errors.New("unsupported file type")

// ForFile returns the importer for a filename by extension.
func ForFile(filename string) (Importer, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt":
		return &TextImporter{}, nil
	case ".md", ".markdown":
		return &MarkdownImporter{}, nil
	case ".csv":
		return &CSVImporter{}, nil
	case ".html", ".htm":
		return &HTMLImporter{}, nil
	case ".pdf":
		return &PDFImporter{}, nil
	case ".docx":
		return &DOCXImporter{}, nil
	default:
		return nil, fmt.Errorf("%s: %w", filepath.Ext(filename), ErrUnsupported)
	}
}

// IsSupported checks whether any importer handles the filename.
func IsSupported(filename string) bool {
	_, err := ForFile(filename)
	return err == nil
}

// baseTitle strips the extension off a filename for use as a root title.
func baseTitle(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}

// builder assembles a section tree from a stream of heading and paragraph
// events. Headings open sections at their level; paragraph text accumulates
// into the innermost open section's summary.
type builder struct {
	root  *astree.Node
	stack []builderEntry
	text  strings.Builder
}

type builderEntry struct {
	node  *astree.Node
	level int
}

func newBuilder(rootTitle string) *builder {
	root := astree.NewNode(rootTitle, "")
	return &builder{
		root:  root,
		stack: []builderEntry{{node: root, level: 0}},
	}
}

// heading closes sections at or below level and opens a new one under the
// nearest shallower section.
func (b *builder) heading(level int, title string) {
	b.flush()
	node := astree.NewNode(title, "")
	for len(b.stack) > 1 && b.stack[len(b.stack)-1].level >= level {
		b.stack = b.stack[:len(b.stack)-1]
	}
	parent := b.stack[len(b.stack)-1].node
	parent.Children = append(parent.Children, node)
	b.stack = append(b.stack, builderEntry{node: node, level: level})
}

// paragraph queues body text for the current section.
func (b *builder) paragraph(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if b.text.Len() > 0 {
		b.text.WriteString("\n\n")
	}
	b.text.WriteString(text)
}

func (b *builder) flush() {
	t := strings.TrimSpace(b.text.String())
	if t != "" {
		top := b.stack[len(b.stack)-1].node
		if top.ContentSummary != "" {
			top.ContentSummary += "\n\n" + t
		} else {
			top.ContentSummary = t
		}
	}
	b.text.Reset()
}

// finish flushes trailing text and returns the assembled root.
func (b *builder) finish() *astree.Node {
	b.flush()
	return b.root
}
