package document

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// presentation is a PowerPoint deck under edit.
type presentation struct {
	pkg *pkg
}

func newPresentation() *presentation {
	return &presentation{pkg: newPkg(blankPptxParts())}
}

func openPresentation(path string) (*presentation, error) {
	p, err := openPkg(path)
	if err != nil {
		return nil, err
	}
	if !p.hasPart("ppt/presentation.xml") {
		return nil, fmt.Errorf("not a PowerPoint file: missing ppt/presentation.xml")
	}
	return &presentation{pkg: p}, nil
}

func (pr *presentation) Save(path string) error {
	return pr.pkg.save(path)
}

// AddSlide appends a slide with a title box and a body box. Newlines in
// the body become separate paragraphs. The slide is wired into the
// content types, the presentation relationships, and the slide list.
func (pr *presentation) AddSlide(title, body string) error {
	n := pr.nextSlideNumber()
	slideName := fmt.Sprintf("ppt/slides/slide%d.xml", n)

	pr.pkg.setPart(slideName, []byte(slideXML(title, body)))
	pr.pkg.setPart(fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", n), []byte(slideRelsXML))

	if err := pr.registerSlideContentType(n); err != nil {
		return err
	}
	rID, err := pr.addSlideRelationship(n)
	if err != nil {
		return err
	}
	return pr.appendSlideID(rID)
}

// nextSlideNumber returns one past the highest existing slide number.
func (pr *presentation) nextSlideNumber() int {
	max := 0
	for name := range pr.pkg.parts {
		var n int
		if _, err := fmt.Sscanf(name, "ppt/slides/slide%d.xml", &n); err == nil && n > max {
			max = n
		}
	}
	return max + 1
}

func (pr *presentation) registerSlideContentType(n int) error {
	types := etree.NewDocument()
	if err := types.ReadFromBytes(pr.pkg.part("[Content_Types].xml")); err != nil {
		return fmt.Errorf("parse content types: %w", err)
	}
	ov := types.Root().CreateElement("Override")
	ov.CreateAttr("PartName", fmt.Sprintf("/ppt/slides/slide%d.xml", n))
	ov.CreateAttr("ContentType", "application/vnd.openxmlformats-officedocument.presentationml.slide+xml")

	out, err := types.WriteToBytes()
	if err != nil {
		return fmt.Errorf("serialize content types: %w", err)
	}
	pr.pkg.setPart("[Content_Types].xml", out)
	return nil
}

// addSlideRelationship registers the slide in the presentation rels and
// returns the new rId.
func (pr *presentation) addSlideRelationship(n int) (string, error) {
	rels := etree.NewDocument()
	if err := rels.ReadFromBytes(pr.pkg.part("ppt/_rels/presentation.xml.rels")); err != nil {
		return "", fmt.Errorf("parse presentation rels: %w", err)
	}
	root := rels.Root()

	maxID := 0
	for _, rel := range root.SelectElements("Relationship") {
		var id int
		if _, err := fmt.Sscanf(rel.SelectAttrValue("Id", ""), "rId%d", &id); err == nil && id > maxID {
			maxID = id
		}
	}
	rID := fmt.Sprintf("rId%d", maxID+1)

	rel := root.CreateElement("Relationship")
	rel.CreateAttr("Id", rID)
	rel.CreateAttr("Type", "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide")
	rel.CreateAttr("Target", fmt.Sprintf("slides/slide%d.xml", n))

	out, err := rels.WriteToBytes()
	if err != nil {
		return "", fmt.Errorf("serialize presentation rels: %w", err)
	}
	pr.pkg.setPart("ppt/_rels/presentation.xml.rels", out)
	return rID, nil
}

// appendSlideID adds the slide to the presentation's slide list.
func (pr *presentation) appendSlideID(rID string) error {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(pr.pkg.part("ppt/presentation.xml")); err != nil {
		return fmt.Errorf("parse presentation.xml: %w", err)
	}
	lst := doc.FindElement("//p:sldIdLst")
	if lst == nil {
		root := doc.Root()
		lst = etree.NewElement("p:sldIdLst")
		root.InsertChildAt(0, lst)
	}

	maxID := 255
	for _, sld := range lst.SelectElements("p:sldId") {
		var id int
		if _, err := fmt.Sscanf(sld.SelectAttrValue("id", ""), "%d", &id); err == nil && id > maxID {
			maxID = id
		}
	}

	sld := lst.CreateElement("p:sldId")
	sld.CreateAttr("id", fmt.Sprintf("%d", maxID+1))
	sld.CreateAttr("r:id", rID)

	out, err := doc.WriteToBytes()
	if err != nil {
		return fmt.Errorf("serialize presentation.xml: %w", err)
	}
	pr.pkg.setPart("ppt/presentation.xml", out)
	return nil
}

const slideRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout" Target="../slideLayouts/slideLayout1.xml"/>
</Relationships>`

// slideXML renders a slide with a title text box and a body text box.
func slideXML(title, body string) string {
	var paras strings.Builder
	for _, line := range strings.Split(body, "\n") {
		if strings.TrimSpace(line) == "" {
			paras.WriteString(`<a:p><a:endParaRPr lang="en-US"/></a:p>`)
			continue
		}
		fmt.Fprintf(&paras, `<a:p><a:r><a:rPr lang="en-US" sz="1800"/><a:t>%s</a:t></a:r></a:p>`, xmlEscape(line))
	}

	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">
<p:cSld><p:spTree>
<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>
<p:grpSpPr/>
<p:sp>
<p:nvSpPr><p:cNvPr id="2" name="Title"/><p:cNvSpPr txBox="1"/><p:nvPr/></p:nvSpPr>
<p:spPr><a:xfrm><a:off x="457200" y="274638"/><a:ext cx="8229600" cy="1143000"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr>
<p:txBody><a:bodyPr/><a:lstStyle/><a:p><a:r><a:rPr lang="en-US" sz="3600" b="1"/><a:t>%s</a:t></a:r></a:p></p:txBody>
</p:sp>
<p:sp>
<p:nvSpPr><p:cNvPr id="3" name="Content"/><p:cNvSpPr txBox="1"/><p:nvPr/></p:nvSpPr>
<p:spPr><a:xfrm><a:off x="457200" y="1600200"/><a:ext cx="8229600" cy="4525963"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr>
<p:txBody><a:bodyPr/><a:lstStyle/>%s</p:txBody>
</p:sp>
</p:spTree></p:cSld>
<p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr>
</p:sld>`, xmlEscape(title), paras.String())
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

func xmlEscape(s string) string {
	return xmlEscaper.Replace(s)
}
