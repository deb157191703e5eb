// Package extract pulls plain text out of uploaded contract documents.
package extract

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/yaml.v3"
)

// DefaultMaxChars caps extracted text at roughly 10 MiB of characters.
const DefaultMaxChars = 10 * 1024 * 1024

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrExecutable        = errors.New("executable files are not accepted")
	ErrEmpty             = errors.New("no text could be extracted from the file")
)

type options struct {
	maxChars int
}

type Option func(*options)

// WithMaxChars truncates the extracted text to n characters.
func WithMaxChars(n int) Option {
	return func(o *options) { o.maxChars = n }
}

type extractor func(data []byte) (string, error)

var extractors = map[string]extractor{
	".txt":  plainText,
	".md":   markdownText,
	".csv":  csvText,
	".json": jsonText,
	".yaml": yamlText,
	".yml":  yamlText,
	".html": htmlText,
	".htm":  htmlText,
	".xml":  xmlText,
	".docx": docxText,
	".odt":  odtText,
}

// Supported lists the accepted file extensions.
func Supported() []string {
	out := make([]string, 0, len(extractors))
	for ext := range extractors {
		out = append(out, ext)
	}
	return out
}

// Extract returns the text of a document, choosing the parser by the file
// extension. Executables are rejected by their content regardless of name.
func Extract(data []byte, filename string, opts ...Option) (string, error) {
	o := options{maxChars: DefaultMaxChars}
	for _, opt := range opts {
		opt(&o)
	}

	if isExecutable(data) {
		return "", ErrExecutable
	}
	ext := strings.ToLower(filepath.Ext(filename))
	fn, ok := extractors[ext]
	if !ok {
		if ext == "" {
			ext = "(none)"
		}
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	text, err := fn(data)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", ext, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmpty
	}
	return truncate(text, o.maxChars), nil
}

var executableMagic = [][]byte{
	[]byte("MZ"),                 // PE / DOS
	[]byte("\x7fELF"),            // ELF
	{0xfe, 0xed, 0xfa, 0xce},     // Mach-O 32
	{0xfe, 0xed, 0xfa, 0xcf},     // Mach-O 64
	{0xce, 0xfa, 0xed, 0xfe},     // Mach-O 32 LE
	{0xcf, 0xfa, 0xed, 0xfe},     // Mach-O 64 LE
	{0xca, 0xfe, 0xba, 0xbe},     // Mach-O universal
	[]byte("#!"),                 // scripts
}

func isExecutable(data []byte) bool {
	for _, m := range executableMagic {
		if bytes.HasPrefix(data, m) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// plainText decodes UTF-8, dropping invalid bytes.
func plainText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	return strings.ToValidUTF8(string(data), ""), nil
}

// md renders GFM so tables in markdown contracts keep their cell text.
var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

func markdownText(data []byte) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert(data, &buf); err != nil {
		return "", err
	}
	return htmlText(buf.Bytes())
}

func csvText(data []byte) (string, error) {
	s, _ := plainText(data)
	r := csv.NewReader(strings.NewReader(s))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	records, err := r.ReadAll()
	if err != nil {
		return "", err
	}
	lines := make([]string, len(records))
	for i, rec := range records {
		lines[i] = strings.Join(rec, ", ")
	}
	return strings.Join(lines, "\n"), nil
}

func jsonText(data []byte) (string, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")), "", "  "); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func yamlText(data []byte) (string, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return "", err
	}
	if doc.Kind == 0 {
		return "", nil
	}
	out, err := yaml.Marshal(&doc)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
