package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	docxDefaultPart = "word/document.xml"
	docxMainType    = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
)

type contentTypes struct {
	Overrides []struct {
		PartName    string `xml:"PartName,attr"`
		ContentType string `xml:"ContentType,attr"`
	} `xml:"Override"`
}

func readZipFile(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("%s not found", name)
}

// docxMainPart locates the main document part through [Content_Types].xml.
// Some producers name it document2.xml or similar.
func docxMainPart(zr *zip.Reader) string {
	raw, err := readZipFile(zr, "[Content_Types].xml")
	if err != nil {
		return docxDefaultPart
	}
	var ct contentTypes
	if err := xml.Unmarshal(raw, &ct); err != nil {
		return docxDefaultPart
	}
	for _, o := range ct.Overrides {
		if o.ContentType == docxMainType {
			return strings.TrimPrefix(o.PartName, "/")
		}
	}
	return docxDefaultPart
}

// extractDOCX streams the WordprocessingML body and keeps one line per
// paragraph. Runs inside a paragraph are concatenated; tabs and breaks
// inside a paragraph become spaces.
func extractDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	doc, err := readZipFile(zr, docxMainPart(zr))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}

	dec := xml.NewDecoder(bytes.NewReader(doc))
	var (
		paragraphs []string
		cur        strings.Builder
		inText     bool
	)
	flush := func() {
		if p := strings.Join(strings.Fields(cur.String()), " "); p != "" {
			paragraphs = append(paragraphs, p)
		}
		cur.Reset()
	}
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse docx: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab", "br":
				cur.WriteByte(' ')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				flush()
			}
		case xml.CharData:
			if inText {
				cur.Write(t)
			}
		}
	}
	flush()
	return strings.Join(paragraphs, "\n"), nil
}
