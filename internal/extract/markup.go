package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// maxArchiveEntry bounds how much of one zipped XML part is read.
const maxArchiveEntry = 64 << 20

var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Li: true, atom.Tr: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Section: true, atom.Article: true, atom.Blockquote: true, atom.Pre: true, atom.Table: true,
}

func htmlText(data []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.DataAtom == atom.Script || n.DataAtom == atom.Style || n.DataAtom == atom.Head) {
			return
		}
		if n.Type == html.TextNode {
			if t := strings.Join(strings.Fields(n.Data), " "); t != "" {
				if sb.Len() > 0 && !strings.HasSuffix(sb.String(), "\n") {
					sb.WriteByte(' ')
				}
				sb.WriteString(t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockElements[n.DataAtom] && sb.Len() > 0 && !strings.HasSuffix(sb.String(), "\n") {
			sb.WriteByte('\n')
		}
	}
	walk(doc)
	return sb.String(), nil
}

// xmlText returns the character data of every element, one element per line.
func xmlText(data []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	var lines []string
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		if cd, ok := tok.(xml.CharData); ok {
			if t := strings.TrimSpace(string(cd)); t != "" {
				lines = append(lines, t)
			}
		}
	}
	return strings.Join(lines, "\n"), nil
}

// officeText walks an OpenDocument or OOXML part. Text runs are collected
// from textTag elements and paragraphs end at paraTags.
type officeLayout struct {
	part     string
	space    string
	textTag  string
	paraTags map[string]bool
	tabTag   string
	breakTag string
	spaceTag string
}

var docxLayout = officeLayout{
	part:     "word/document.xml",
	space:    "http://schemas.openxmlformats.org/wordprocessingml/2006/main",
	textTag:  "t",
	paraTags: map[string]bool{"p": true},
	tabTag:   "tab",
	breakTag: "br",
}

var odtLayout = officeLayout{
	part:     "content.xml",
	space:    "urn:oasis:names:tc:opendocument:xmlns:text:1.0",
	paraTags: map[string]bool{"p": true, "h": true},
	tabTag:   "tab",
	breakTag: "line-break",
	spaceTag: "s",
}

func docxText(data []byte) (string, error) { return officeText(data, docxLayout) }
func odtText(data []byte) (string, error)  { return officeText(data, odtLayout) }

func officeText(data []byte, layout officeLayout) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open archive: %w", err)
	}
	f, err := zr.Open(layout.part)
	if err != nil {
		return "", fmt.Errorf("missing %s: %w", layout.part, err)
	}
	defer f.Close()

	dec := xml.NewDecoder(io.LimitReader(f, maxArchiveEntry))
	var (
		sb     strings.Builder
		inText int
		inPara int
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space != layout.space {
				continue
			}
			switch t.Name.Local {
			case layout.tabTag:
				sb.WriteByte('\t')
			case layout.breakTag:
				sb.WriteByte('\n')
			case layout.spaceTag:
				sb.WriteByte(' ')
			}
			if layout.textTag != "" && t.Name.Local == layout.textTag {
				inText++
			}
			if layout.paraTags[t.Name.Local] {
				inPara++
			}
		case xml.EndElement:
			if t.Name.Space != layout.space {
				continue
			}
			if layout.textTag != "" && t.Name.Local == layout.textTag && inText > 0 {
				inText--
			}
			if layout.paraTags[t.Name.Local] {
				if inPara > 0 {
					inPara--
				}
				sb.WriteByte('\n')
			}
		case xml.CharData:
			// odt keeps text directly inside paragraphs; docx only inside w:t
			if inText > 0 || (layout.textTag == "" && inPara > 0) {
				sb.Write(t)
			}
		}
	}
	return sb.String(), nil
}
