package pptx

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/markis/content-creator/internal/slides"
)

type presentationXML struct {
	SlideIDs []struct {
		RelID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	} `xml:"sldIdLst>sldId"`
}

type relationshipsXML struct {
	Relationships []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

type paragraphXML struct {
	Runs []struct {
		Text string `xml:"t"`
	} `xml:"r"`
}

type slideXML struct {
	Shapes []struct {
		Placeholder *struct {
			Type string `xml:"type,attr"`
			Idx  string `xml:"idx,attr"`
		} `xml:"nvSpPr>nvPr>ph"`
		Paragraphs []paragraphXML `xml:"txBody>p"`
	} `xml:"cSld>spTree>sp"`
}

// Read extracts the deck stored in the .pptx file at name.
func Read(name string) (slides.Deck, error) {
	zr, err := zip.OpenReader(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer zr.Close()
	return readPackage(&zr.Reader)
}

// ReadFrom extracts the deck from a .pptx package held in r.
func ReadFrom(r io.ReaderAt, size int64) (slides.Deck, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to open package: %w", err)
	}
	return readPackage(zr)
}

func readPackage(zr *zip.Reader) (slides.Deck, error) {
	var pres presentationXML
	if err := decodePart(zr, "ppt/presentation.xml", &pres); err != nil {
		return nil, err
	}
	var rels relationshipsXML
	if err := decodePart(zr, "ppt/_rels/presentation.xml.rels", &rels); err != nil {
		return nil, err
	}

	targets := make(map[string]string, len(rels.Relationships))
	for _, rel := range rels.Relationships {
		targets[rel.ID] = path.Join("ppt", rel.Target)
	}

	deck := slides.Deck{}
	for _, id := range pres.SlideIDs {
		target, ok := targets[id.RelID]
		if !ok {
			return nil, fmt.Errorf("slide relationship %q not found", id.RelID)
		}
		var s slideXML
		if err := decodePart(zr, target, &s); err != nil {
			return nil, err
		}
		deck = append(deck, s.record())
	}
	return deck, nil
}

func (s slideXML) record() slides.Record {
	rec := slides.Record{Bullets: []string{}}
	for _, sh := range s.Shapes {
		if sh.Placeholder == nil {
			continue
		}
		switch {
		case sh.Placeholder.Type == "title" || sh.Placeholder.Type == "ctrTitle":
			lines := make([]string, 0, len(sh.Paragraphs))
			for _, p := range sh.Paragraphs {
				lines = append(lines, p.text())
			}
			rec.Title = strings.Join(lines, "\n")
		case sh.Placeholder.Idx == "1":
			for _, p := range sh.Paragraphs {
				if len(p.Runs) == 0 {
					continue
				}
				rec.Bullets = append(rec.Bullets, p.text())
			}
		}
	}
	return rec
}

func (p paragraphXML) text() string {
	var sb strings.Builder
	for _, r := range p.Runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

func decodePart(zr *zip.Reader, name string, v any) error {
	f, err := zr.Open(name)
	if err != nil {
		return fmt.Errorf("failed to open part %s: %w", name, err)
	}
	defer f.Close()

	if err := xml.NewDecoder(f).Decode(v); err != nil {
		return fmt.Errorf("failed to decode part %s: %w", name, err)
	}
	return nil
}
