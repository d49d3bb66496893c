// Package pptx renders slide decks as PowerPoint (Office Open XML) files and
// reads their titles and bullets back.
package pptx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/markis/content-creator/internal/slides"
)

// Extension is appended to destinations that do not already carry it.
const Extension = ".pptx"

// ErrEmptyDeck is returned when asked to render a deck with no slides.
var ErrEmptyDeck = errors.New("deck has no slides")

// Render writes deck to destination as a .pptx file and returns the path of
// the produced file.
func Render(deck slides.Deck, destination string) (string, error) {
	if deck.Empty() {
		return "", ErrEmptyDeck
	}
	if !strings.EqualFold(filepath.Ext(destination), Extension) {
		destination += Extension
	}
	if dir := filepath.Dir(destination); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(destination)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", destination, err)
	}
	if err := Write(f, deck); err != nil {
		_ = f.Close()
		_ = os.Remove(destination)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", destination, err)
	}
	return destination, nil
}

// part is one file inside the package.
type part struct {
	name, data string
}

// Write encodes deck as a .pptx package to w.
func Write(w io.Writer, deck slides.Deck) error {
	if deck.Empty() {
		return ErrEmptyDeck
	}

	zw := zip.NewWriter(w)
	parts := []part{
		{"[Content_Types].xml", contentTypes(len(deck))},
		{"_rels/.rels", rootRels},
		{"ppt/presentation.xml", presentation(len(deck))},
		{"ppt/_rels/presentation.xml.rels", presentationRels(len(deck))},
		{"ppt/slideMasters/slideMaster1.xml", slideMaster},
		{"ppt/slideMasters/_rels/slideMaster1.xml.rels", masterRels},
		{"ppt/slideLayouts/slideLayout1.xml", slideLayout},
		{"ppt/slideLayouts/_rels/slideLayout1.xml.rels", layoutRels},
		{"ppt/theme/theme1.xml", theme},
	}
	for i, rec := range deck {
		n := i + 1
		parts = append(parts,
			part{fmt.Sprintf("ppt/slides/slide%d.xml", n), slide(rec)},
			part{fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", n), slideRels},
		)
	}

	for _, p := range parts {
		pw, err := zw.Create(p.name)
		if err != nil {
			return fmt.Errorf("failed to add %s: %w", p.name, err)
		}
		if _, err := io.WriteString(pw, p.data); err != nil {
			return fmt.Errorf("failed to write %s: %w", p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finish package: %w", err)
	}
	return nil
}

func contentTypes(n int) string {
	var sb strings.Builder
	sb.WriteString(xmlHeader)
	sb.WriteString(`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">`)
	sb.WriteString(`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>`)
	sb.WriteString(`<Default Extension="xml" ContentType="application/xml"/>`)
	override := func(part, kind string) {
		fmt.Fprintf(&sb, `<Override PartName="%s" ContentType="%s%s"/>`, part, contentPrefix, kind)
	}
	override("/ppt/presentation.xml", "presentationml.presentation.main+xml")
	override("/ppt/slideMasters/slideMaster1.xml", "presentationml.slideMaster+xml")
	override("/ppt/slideLayouts/slideLayout1.xml", "presentationml.slideLayout+xml")
	override("/ppt/theme/theme1.xml", "theme+xml")
	for i := 1; i <= n; i++ {
		override(fmt.Sprintf("/ppt/slides/slide%d.xml", i), "presentationml.slide+xml")
	}
	sb.WriteString(`</Types>`)
	return sb.String()
}

// Relationship ids in presentation.xml.rels: rId1 master, rId2 theme, then
// one per slide starting at rId3.
func slideRelID(i int) string {
	return fmt.Sprintf("rId%d", i+3)
}

func presentation(n int) string {
	var sb strings.Builder
	sb.WriteString(xmlHeader)
	sb.WriteString(`<p:presentation ` + nsA + ` ` + nsR + ` ` + nsP + ` saveSubsetFonts="1">`)
	sb.WriteString(`<p:sldMasterIdLst><p:sldMasterId id="2147483648" r:id="rId1"/></p:sldMasterIdLst>`)
	sb.WriteString(`<p:sldIdLst>`)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, `<p:sldId id="%d" r:id="%s"/>`, 256+i, slideRelID(i))
	}
	sb.WriteString(`</p:sldIdLst>`)
	sb.WriteString(`<p:sldSz cx="9144000" cy="6858000" type="screen4x3"/><p:notesSz cx="6858000" cy="9144000"/>`)
	sb.WriteString(`</p:presentation>`)
	return sb.String()
}

func presentationRels(n int) string {
	var sb strings.Builder
	sb.WriteString(xmlHeader)
	sb.WriteString(`<Relationships xmlns="` + relsNS + `">`)
	sb.WriteString(`<Relationship Id="rId1" Type="` + relTypeBase + `slideMaster" Target="slideMasters/slideMaster1.xml"/>`)
	sb.WriteString(`<Relationship Id="rId2" Type="` + relTypeBase + `theme" Target="theme/theme1.xml"/>`)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, `<Relationship Id="%s" Type="%sslide" Target="slides/slide%d.xml"/>`, slideRelID(i), relTypeBase, i+1)
	}
	sb.WriteString(`</Relationships>`)
	return sb.String()
}

func slide(rec slides.Record) string {
	var sb strings.Builder
	sb.WriteString(xmlHeader)
	sb.WriteString(`<p:sld ` + nsA + ` ` + nsR + ` ` + nsP + `><p:cSld><p:spTree>`)
	sb.WriteString(groupProps)

	sb.WriteString(`<p:sp><p:nvSpPr><p:cNvPr id="2" name="Title 1"/><p:cNvSpPr><a:spLocks noGrp="1"/></p:cNvSpPr><p:nvPr><p:ph type="title"/></p:nvPr></p:nvSpPr><p:spPr/>`)
	sb.WriteString(`<p:txBody><a:bodyPr/><a:lstStyle/>`)
	writeParagraph(&sb, rec.Title)
	sb.WriteString(`</p:txBody></p:sp>`)

	sb.WriteString(`<p:sp><p:nvSpPr><p:cNvPr id="3" name="Content Placeholder 2"/><p:cNvSpPr><a:spLocks noGrp="1"/></p:cNvSpPr><p:nvPr><p:ph idx="1"/></p:nvPr></p:nvSpPr><p:spPr/>`)
	sb.WriteString(`<p:txBody><a:bodyPr/><a:lstStyle/>`)
	if len(rec.Bullets) == 0 {
		// A text body needs at least one paragraph; a run-less one reads back as no bullet.
		sb.WriteString(`<a:p><a:endParaRPr lang="en-US"/></a:p>`)
	}
	for _, b := range rec.Bullets {
		writeParagraph(&sb, b)
	}
	sb.WriteString(`</p:txBody></p:sp>`)

	sb.WriteString(`</p:spTree></p:cSld><p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:sld>`)
	return sb.String()
}

func writeParagraph(sb *strings.Builder, text string) {
	var esc bytes.Buffer
	_ = xml.EscapeText(&esc, []byte(text))
	sb.WriteString(`<a:p><a:r><a:rPr lang="en-US" dirty="0"/><a:t>`)
	sb.Write(esc.Bytes())
	sb.WriteString(`</a:t></a:r></a:p>`)
}
