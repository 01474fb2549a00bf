// Package extract derives plain text from uploaded files. Extraction is
// best-effort: structured formats fall back to a raw-byte prefix when parsing
// fails, so an upload never hard-fails solely due to a poor parse.
package extract

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

const DefaultRawFallbackBytes = 4096

var (
	xmlTagPattern       = regexp.MustCompile(`<[^>]+>`)
	xmlParagraphPattern = regexp.MustCompile(`</w:p>`)
	xmlEntityReplacer   = strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&apos;", "'",
	)
)

type Extractor struct {
	rawFallbackBytes int
}

func New(rawFallbackBytes int) *Extractor {
	if rawFallbackBytes <= 0 {
		rawFallbackBytes = DefaultRawFallbackBytes
	}
	return &Extractor{rawFallbackBytes: rawFallbackBytes}
}

// FromFile opens path and extracts text according to the file extension.
// The returned error is limited to read failures; parse failures degrade to
// the raw-byte fallback.
func (e *Extractor) FromFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open source file failed: %w", err)
	}
	defer f.Close()
	return e.FromReader(f, filepath.Base(path))
}

// FromReader extracts text from r, dispatching on filename's extension.
func (e *Extractor) FromReader(r io.Reader, filename string) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read source file failed: %w", err)
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".md", ".text", ".log":
		return string(b), nil
	case ".csv":
		return e.delimitedText(b, ','), nil
	case ".tsv":
		return e.delimitedText(b, '\t'), nil
	case ".pdf":
		return e.pdfText(b), nil
	case ".docx":
		return e.docxText(b), nil
	default:
		return e.rawFallback(b), nil
	}
}

// delimitedText flattens tabular data row by row, joining fields with a fixed
// separator.
func (e *Extractor) delimitedText(b []byte, comma rune) string {
	reader := csv.NewReader(bytes.NewReader(b))
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var sb strings.Builder
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return e.rawFallback(b)
		}
		sb.WriteString(strings.Join(record, " | "))
		sb.WriteString("\n")
	}
	return sb.String()
}

// pdfText extracts the text layer of a PDF.
func (e *Extractor) pdfText(b []byte) string {
	reader, err := pdf.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return e.rawFallback(b)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return e.rawFallback(b)
	}
	out, err := io.ReadAll(plain)
	if err != nil || len(bytes.TrimSpace(out)) == 0 {
		return e.rawFallback(b)
	}
	return string(out)
}

// docxText scans the zip container for the main document part and strips its
// XML markup.
func (e *Extractor) docxText(b []byte) string {
	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return e.rawFallback(b)
	}
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return e.rawFallback(b)
		}
		xmlBytes, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return e.rawFallback(b)
		}
		text := xmlParagraphPattern.ReplaceAllString(string(xmlBytes), "\n")
		text = xmlTagPattern.ReplaceAllString(text, "")
		text = xmlEntityReplacer.Replace(text)
		if strings.TrimSpace(text) == "" {
			return e.rawFallback(b)
		}
		return text
	}
	return e.rawFallback(b)
}

// rawFallback returns the leading bytes as text, sanitized to valid UTF-8.
func (e *Extractor) rawFallback(b []byte) string {
	if len(b) > e.rawFallbackBytes {
		b = b[:e.rawFallbackBytes]
	}
	s := strings.ToValidUTF8(string(b), "")
	return strings.ReplaceAll(s, "\x00", "")
}
