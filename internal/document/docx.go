package document

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/beevik/etree"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// emuPerInch is the OOXML drawing unit. Inserted images are 6 inches
// wide with height scaled to the source aspect ratio.
const emuPerInch = 914400

const imageWidthEMU = 6 * emuPerInch

// wordDoc is a Word document under edit: the zip package plus the
// parsed main document part.
type wordDoc struct {
	pkg        *pkg
	doc        *etree.Document
	imageCount int
}

// newWordDoc returns an empty document built from the blank skeleton.
func newWordDoc() (*wordDoc, error) {
	return wordDocFromPkg(newPkg(blankDocxParts()))
}

// openWordDoc loads a .docx (or .dotx — the packages are structurally
// identical, so template files are opened as-is).
func openWordDoc(path string) (*wordDoc, error) {
	p, err := openPkg(path)
	if err != nil {
		return nil, err
	}
	return wordDocFromPkg(p)
}

func wordDocFromPkg(p *pkg) (*wordDoc, error) {
	data := p.part("word/document.xml")
	if data == nil {
		return nil, fmt.Errorf("not a Word document: missing word/document.xml")
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("parse word/document.xml: %w", err)
	}
	return &wordDoc{pkg: p, doc: doc}, nil
}

// Save serializes the document part back into the package and writes it.
func (d *wordDoc) Save(path string) error {
	data, err := d.doc.WriteToBytes()
	if err != nil {
		return fmt.Errorf("serialize document: %w", err)
	}
	d.pkg.setPart("word/document.xml", data)
	return d.pkg.save(path)
}

// FillPlaceholders walks every paragraph (body and table cells alike)
// and applies the placeholder map. A key matches when the paragraph
// text contains either the key itself or the key wrapped in square
// brackets. Matching semantics follow the template contract:
//
//   - keys starting with "{image" insert the image file named by the
//     value, centered, or an "[Image not found]" note
//   - a value containing a markdown pipe table becomes a real table
//     inserted after the (cleared) paragraph
//   - other values replace the paragraph text, with **bold**/*italic*
//     spans honored and blank-line-separated parts expanding into
//     consecutive paragraphs
//
// A document with no matching placeholders is left byte-identical.
func (d *wordDoc) FillPlaceholders(placeholders map[string]string) error {
	keys := make([]string, 0, len(placeholders))
	for k := range placeholders {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, p := range d.doc.FindElements("//w:p") {
		current := p
		for _, key := range keys {
			text := paragraphText(current)
			target := ""
			switch {
			case strings.Contains(text, key):
				target = key
			case strings.Contains(text, "["+key+"]"):
				target = "[" + key + "]"
			default:
				continue
			}

			value := placeholders[key]
			switch {
			case strings.HasPrefix(key, "{image"):
				if err := d.insertImage(current, text, target, value); err != nil {
					return err
				}
			case looksLikeTable(value) && parseMarkdownTable(value) != nil:
				clearRuns(current)
				insertTableAfter(current, parseMarkdownTable(value))
			default:
				current = fillTextValue(current, value)
			}
		}
	}
	return nil
}

// AppendContent adds plain content as paragraphs at the end of the
// body, before the section properties.
func (d *wordDoc) AppendContent(content string) {
	body := d.doc.FindElement("//w:body")
	if body == nil {
		return
	}
	for _, part := range strings.Split(content, "\n\n") {
		p := etree.NewElement("w:p")
		if hasInlineMarks(part) {
			addTextRuns(p, parseSpans(part))
		} else {
			addTextRuns(p, []span{{Text: part}})
		}
		if sectPr := body.SelectElement("w:sectPr"); sectPr != nil {
			body.InsertChildAt(sectPr.Index(), p)
		} else {
			body.AddChild(p)
		}
	}
}

// fillTextValue replaces the paragraph content with the value. Parts
// separated by blank lines become consecutive paragraphs; the last
// paragraph written is returned so later keys see the final layout.
func fillTextValue(p *etree.Element, value string) *etree.Element {
	parts := strings.Split(value, "\n\n")

	setParagraphContent(p, parts[0])
	setAlignment(p, "left")

	last := p
	for _, part := range parts[1:] {
		np := etree.NewElement("w:p")
		setParagraphContent(np, part)
		setAlignment(np, "left")

		parent := last.Parent()
		parent.InsertChildAt(last.Index()+1, np)
		last = np
	}
	return last
}

// setParagraphContent clears the runs and writes the text, honoring
// inline markdown emphasis.
func setParagraphContent(p *etree.Element, text string) {
	clearRuns(p)
	if hasInlineMarks(text) {
		addTextRuns(p, parseSpans(text))
	} else {
		addTextRuns(p, []span{{Text: text}})
	}
}

// paragraphText concatenates all text nodes of a paragraph.
func paragraphText(p *etree.Element) string {
	var b strings.Builder
	for _, t := range p.FindElements(".//w:t") {
		b.WriteString(t.Text())
	}
	return b.String()
}

// clearRuns removes all runs from a paragraph, keeping its properties.
func clearRuns(p *etree.Element) {
	for _, r := range p.SelectElements("w:r") {
		p.RemoveChild(r)
	}
}

// addTextRuns appends formatted runs to a paragraph.
func addTextRuns(p *etree.Element, spans []span) {
	for _, s := range spans {
		r := p.CreateElement("w:r")
		if s.Bold || s.Italic {
			rPr := r.CreateElement("w:rPr")
			if s.Bold {
				rPr.CreateElement("w:b")
			}
			if s.Italic {
				rPr.CreateElement("w:i")
			}
		}
		if s.Break {
			r.CreateElement("w:br")
		}
		if s.Text != "" {
			t := r.CreateElement("w:t")
			t.CreateAttr("xml:space", "preserve")
			t.SetText(s.Text)
		}
	}
}

// setAlignment sets paragraph justification (left, center, right).
func setAlignment(p *etree.Element, val string) {
	pPr := p.SelectElement("w:pPr")
	if pPr == nil {
		pPr = etree.NewElement("w:pPr")
		p.InsertChildAt(0, pPr)
	}
	if jc := pPr.SelectElement("w:jc"); jc != nil {
		pPr.RemoveChild(jc)
	}
	jc := pPr.CreateElement("w:jc")
	jc.CreateAttr("w:val", val)
}

// insertTableAfter builds a bordered table from a parsed markdown table
// and inserts it directly after the paragraph.
func insertTableAfter(p *etree.Element, table *mdTable) {
	tbl := etree.NewElement("w:tbl")

	tblPr := tbl.CreateElement("w:tblPr")
	style := tblPr.CreateElement("w:tblStyle")
	style.CreateAttr("w:val", "TableGrid")
	jc := tblPr.CreateElement("w:jc")
	jc.CreateAttr("w:val", "center")
	borders := tblPr.CreateElement("w:tblBorders")
	for _, side := range []string{"top", "left", "bottom", "right", "insideH", "insideV"} {
		b := borders.CreateElement("w:" + side)
		b.CreateAttr("w:val", "single")
		b.CreateAttr("w:sz", "4")
	}

	grid := tbl.CreateElement("w:tblGrid")
	for range table.Headers {
		grid.CreateElement("w:gridCol")
	}

	header := tbl.CreateElement("w:tr")
	for _, h := range table.Headers {
		addTableCell(header, h, true, "center")
	}
	for _, row := range table.Rows {
		tr := tbl.CreateElement("w:tr")
		for i, cell := range row {
			if i >= len(table.Headers) {
				break
			}
			addTableCell(tr, cell, false, "left")
		}
	}

	parent := p.Parent()
	parent.InsertChildAt(p.Index()+1, tbl)
}

func addTableCell(tr *etree.Element, text string, bold bool, align string) {
	tc := tr.CreateElement("w:tc")
	tc.CreateElement("w:tcPr")
	p := tc.CreateElement("w:p")
	addTextRuns(p, []span{{Text: text, Bold: bold}})
	setAlignment(p, align)
}

// insertImage replaces the paragraph content with the image at the
// path in value, or with a not-found note when the file is missing.
func (d *wordDoc) insertImage(p *etree.Element, text, target, imagePath string) error {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		setParagraphContent(p, strings.ReplaceAll(text, target, "[Image not found: "+imagePath+"]"))
		return nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decode image %s: %w", imagePath, err)
	}
	cx := imageWidthEMU
	cy := imageWidthEMU
	if cfg.Width > 0 {
		cy = cx * cfg.Height / cfg.Width
	}

	rID, err := d.addImagePart(data, imageExt(imagePath))
	if err != nil {
		return err
	}

	clearRuns(p)
	r := p.CreateElement("w:r")
	drawing, err := imageDrawing(rID, d.imageCount, cx, cy)
	if err != nil {
		return err
	}
	r.AddChild(drawing)
	setAlignment(p, "center")
	return nil
}

func imageExt(path string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "" {
		ext = "png"
	}
	if ext == "jpg" {
		ext = "jpeg"
	}
	return ext
}

// addImagePart stores the image bytes as a media part, registers the
// content type, and adds a document relationship. Returns the rId.
func (d *wordDoc) addImagePart(data []byte, ext string) (string, error) {
	d.imageCount++
	partName := fmt.Sprintf("word/media/image%d.%s", d.imageCount, ext)
	d.pkg.setPart(partName, data)

	if err := d.ensureContentType(ext); err != nil {
		return "", err
	}

	relsName := "word/_rels/document.xml.rels"
	relsData := d.pkg.part(relsName)
	if relsData == nil {
		relsData = []byte(blankDocxDocumentRels)
	}
	rels := etree.NewDocument()
	if err := rels.ReadFromBytes(relsData); err != nil {
		return "", fmt.Errorf("parse document rels: %w", err)
	}

	maxID := 0
	root := rels.Root()
	for _, rel := range root.SelectElements("Relationship") {
		var n int
		if _, err := fmt.Sscanf(rel.SelectAttrValue("Id", ""), "rId%d", &n); err == nil && n > maxID {
			maxID = n
		}
	}
	rID := fmt.Sprintf("rId%d", maxID+1)

	rel := root.CreateElement("Relationship")
	rel.CreateAttr("Id", rID)
	rel.CreateAttr("Type", "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image")
	rel.CreateAttr("Target", fmt.Sprintf("media/image%d.%s", d.imageCount, ext))

	out, err := rels.WriteToBytes()
	if err != nil {
		return "", fmt.Errorf("serialize document rels: %w", err)
	}
	d.pkg.setPart(relsName, out)
	return rID, nil
}

// ensureContentType registers a Default content type for the extension.
func (d *wordDoc) ensureContentType(ext string) error {
	data := d.pkg.part("[Content_Types].xml")
	types := etree.NewDocument()
	if err := types.ReadFromBytes(data); err != nil {
		return fmt.Errorf("parse content types: %w", err)
	}
	root := types.Root()
	for _, def := range root.SelectElements("Default") {
		if def.SelectAttrValue("Extension", "") == ext {
			return nil
		}
	}
	def := root.CreateElement("Default")
	def.CreateAttr("Extension", ext)
	def.CreateAttr("ContentType", "image/"+ext)

	out, err := types.WriteToBytes()
	if err != nil {
		return fmt.Errorf("serialize content types: %w", err)
	}
	d.pkg.setPart("[Content_Types].xml", out)
	return nil
}

const drawingTemplate = `<w:drawing xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><wp:inline distT="0" distB="0" distL="0" distR="0" xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"><wp:extent cx="%[3]d" cy="%[4]d"/><wp:docPr id="%[2]d" name="Picture %[2]d"/><a:graphic xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/picture"><pic:pic xmlns:pic="http://schemas.openxmlformats.org/drawingml/2006/picture"><pic:nvPicPr><pic:cNvPr id="%[2]d" name="Picture %[2]d"/><pic:cNvPicPr/></pic:nvPicPr><pic:blipFill><a:blip r:embed="%[1]s" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"/><a:stretch><a:fillRect/></a:stretch></pic:blipFill><pic:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%[3]d" cy="%[4]d"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></pic:spPr></pic:pic></a:graphicData></a:graphic></wp:inline></w:drawing>`

// imageDrawing builds the inline drawing element referencing rID.
func imageDrawing(rID string, id, cx, cy int) (*etree.Element, error) {
	frag := etree.NewDocument()
	xml := fmt.Sprintf(drawingTemplate, rID, id, cx, cy)
	if err := frag.ReadFromString(xml); err != nil {
		return nil, fmt.Errorf("build drawing: %w", err)
	}
	root := frag.Root()
	frag.RemoveChild(root)
	return root, nil
}
