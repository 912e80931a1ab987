package outline

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/dgallion1/astkeeper/internal/astree"
	pdflib "github.com/ledongthuc/pdf"
)

// PDFImporter builds a page-per-section outline. PDFs carry no reliable
// heading structure, so each page becomes one child under the root. The Go
// library is tried first, then pdftotext when enabled.
type PDFImporter struct {
	FallbackPdftotext bool
}

func (p *PDFImporter) Import(r io.Reader, filename string) (*astree.Node, error) {
	// ledongthuc/pdf requires a ReadSeeker plus a size, so spool to a temp file.
	tmp, err := os.CreateTemp("", "astkeeper-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	text, err := pdfText(tmpPath)
	if err != nil && p.FallbackPdftotext {
		text, err = pdftotext(tmpPath)
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	root := astree.NewNode(baseTitle(filename), "")
	for i, page := range strings.Split(text, "\f") {
		page = strings.TrimSpace(page)
		if page == "" {
			continue
		}
		root.Children = append(root.Children,
			astree.NewNode(fmt.Sprintf("Page %d", i+1), page))
	}
	if len(root.Children) == 0 {
		root.ContentSummary = strings.TrimSpace(text)
	}
	return root, nil
}

func pdfText(path string) (string, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var buf strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if i > 1 {
			buf.WriteString("\f") // form feed separates pages
		}
		buf.WriteString(text)
	}
	return buf.String(), nil
}

func pdftotext(path string) (string, error) {
	out, err := exec.Command("pdftotext", "-layout", path, "-").Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	return string(out), nil
}
