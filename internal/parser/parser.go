// Package parser turns uploaded summary files into plain paragraphs.
package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Parser extracts the paragraphs of a document in reading order.
type Parser interface {
	Parse(r io.Reader) ([]string, error)
}

// SupportedExtensions lists file extensions a summary can be uploaded as.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %q", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// ReadSummary parses r according to filename and returns one paragraph per
// line, ready for segmentation.
func ReadSummary(r io.Reader, filename string) (string, error) {
	p, err := ForFile(filename)
	if err != nil {
		return "", err
	}
	paras, err := p.Parse(r)
	if err != nil {
		return "", err
	}
	return strings.Join(paras, "\n"), nil
}

// blocks splits text on blank lines and joins the lines inside each block
// with single spaces, undoing hard wrapping.
func blocks(text string) []string {
	var out []string
	var cur []string
	flush := func() {
		if len(cur) > 0 {
			out = append(out, strings.Join(cur, " "))
			cur = cur[:0]
		}
	}
	for line := range strings.Lines(text) {
		line = strings.TrimSpace(line)
		if line == "" {
			flush()
			continue
		}
		cur = append(cur, line)
	}
	flush()
	return out
}

// oneLine collapses internal whitespace so a paragraph never spans lines.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
