package document

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func newGenerator(t *testing.T) *Generator {
	t.Helper()
	return &Generator{
		TemplatesDir: t.TempDir(),
		OutputsDir:   t.TempDir(),
	}
}

// writeWordTemplate saves a document with the given paragraphs into the
// generator's templates dir and returns the template name.
func writeWordTemplate(t *testing.T, gen *Generator, name string, paragraphs ...string) string {
	t.Helper()
	doc, err := newWordDoc()
	if err != nil {
		t.Fatalf("newWordDoc: %v", err)
	}
	for _, p := range paragraphs {
		doc.AppendContent(p)
	}
	if err := doc.Save(filepath.Join(gen.TemplatesDir, name)); err != nil {
		t.Fatalf("save template: %v", err)
	}
	return name
}

func docParagraphTexts(t *testing.T, path string) []string {
	t.Helper()
	doc, err := openWordDoc(path)
	if err != nil {
		t.Fatalf("openWordDoc: %v", err)
	}
	var texts []string
	for _, p := range doc.doc.FindElements("//w:p") {
		texts = append(texts, paragraphText(p))
	}
	return texts
}

func TestGenerateWordPlaceholders(t *testing.T) {
	gen := newGenerator(t)
	tmpl := writeWordTemplate(t, gen, "report.docx", "Prepared for {client}", "Status: [{status}]")

	out, err := gen.GenerateWord(tmpl, "out.docx", "", map[string]string{
		"{client}": "Acme Corp",
		"{status}": "Final",
	})
	if err != nil {
		t.Fatalf("GenerateWord: %v", err)
	}

	texts := strings.Join(docParagraphTexts(t, out), "\n")
	if !strings.Contains(texts, "Acme Corp") || !strings.Contains(texts, "Final") {
		t.Errorf("placeholders not substituted:\n%s", texts)
	}
	if strings.Contains(texts, "{client}") || strings.Contains(texts, "{status}") {
		t.Errorf("placeholder text left behind:\n%s", texts)
	}
}

func TestFillPlaceholdersIdempotent(t *testing.T) {
	gen := newGenerator(t)
	tmpl := writeWordTemplate(t, gen, "plain.docx", "Nothing to replace here")

	doc, err := openWordDoc(filepath.Join(gen.TemplatesDir, tmpl))
	if err != nil {
		t.Fatalf("openWordDoc: %v", err)
	}
	before, err := doc.doc.WriteToBytes()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}

	if err := doc.FillPlaceholders(map[string]string{"{missing}": "value"}); err != nil {
		t.Fatalf("FillPlaceholders: %v", err)
	}
	after, err := doc.doc.WriteToBytes()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}

	if !bytes.Equal(before, after) {
		t.Error("document changed although no placeholder matched")
	}
}

func TestFillPlaceholdersMultiParagraph(t *testing.T) {
	gen := newGenerator(t)
	tmpl := writeWordTemplate(t, gen, "multi.docx", "{body}")

	out, err := gen.GenerateWord(tmpl, "out.docx", "", map[string]string{
		"{body}": "first part\n\nsecond part",
	})
	if err != nil {
		t.Fatalf("GenerateWord: %v", err)
	}

	texts := docParagraphTexts(t, out)
	joined := strings.Join(texts, "|")
	if !strings.Contains(joined, "first part") || !strings.Contains(joined, "second part") {
		t.Fatalf("multi-paragraph value not expanded: %v", texts)
	}
	var first, second int
	for i, text := range texts {
		if text == "first part" {
			first = i
		}
		if text == "second part" {
			second = i
		}
	}
	if second != first+1 {
		t.Errorf("parts not adjacent: %v", texts)
	}
}

func TestFillPlaceholdersMarkdownTable(t *testing.T) {
	gen := newGenerator(t)
	writeWordTemplate(t, gen, "findings.docx", "{findings}")

	doc, err := openWordDoc(filepath.Join(gen.TemplatesDir, "findings.docx"))
	if err != nil {
		t.Fatalf("openWordDoc: %v", err)
	}
	err = doc.FillPlaceholders(map[string]string{
		"{findings}": "| Issue | Risk |\n|---|---|\n| XSS | High |",
	})
	if err != nil {
		t.Fatalf("FillPlaceholders: %v", err)
	}

	tables := doc.doc.FindElements("//w:tbl")
	if len(tables) != 1 {
		t.Fatalf("expected 1 table, got %d", len(tables))
	}
	cells := tables[0].FindElements(".//w:t")
	var cellTexts []string
	for _, c := range cells {
		cellTexts = append(cellTexts, c.Text())
	}
	if !reflect.DeepEqual(cellTexts, []string{"Issue", "Risk", "XSS", "High"}) {
		t.Errorf("cell texts = %v", cellTexts)
	}
}

func TestFillPlaceholdersImageMissing(t *testing.T) {
	gen := newGenerator(t)
	tmpl := writeWordTemplate(t, gen, "img.docx", "Before {image1} after")

	out, err := gen.GenerateWord(tmpl, "out.docx", "", map[string]string{
		"{image1}": "/nonexistent/chart.png",
	})
	if err != nil {
		t.Fatalf("GenerateWord: %v", err)
	}

	texts := strings.Join(docParagraphTexts(t, out), "\n")
	if !strings.Contains(texts, "[Image not found: /nonexistent/chart.png]") {
		t.Errorf("missing-image note absent:\n%s", texts)
	}
}

func TestFillPlaceholdersImageInsert(t *testing.T) {
	imgPath := filepath.Join(t.TempDir(), "chart.png")
	f, err := os.Create(imgPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, 20, 10))); err != nil {
		t.Fatal(err)
	}
	f.Close()

	gen := newGenerator(t)
	writeWordTemplate(t, gen, "img.docx", "{image1}")

	doc, err := openWordDoc(filepath.Join(gen.TemplatesDir, "img.docx"))
	if err != nil {
		t.Fatalf("openWordDoc: %v", err)
	}
	if err := doc.FillPlaceholders(map[string]string{"{image1}": imgPath}); err != nil {
		t.Fatalf("FillPlaceholders: %v", err)
	}

	if len(doc.doc.FindElements("//w:drawing")) != 1 {
		t.Error("drawing element not inserted")
	}
	if !doc.pkg.hasPart("word/media/image1.png") {
		t.Error("image part not stored")
	}
	rels := string(doc.pkg.part("word/_rels/document.xml.rels"))
	if !strings.Contains(rels, "media/image1.png") {
		t.Errorf("relationship missing:\n%s", rels)
	}
}

func TestGenerateWordBoldItalicRuns(t *testing.T) {
	gen := newGenerator(t)
	writeWordTemplate(t, gen, "fmt.docx", "{summary}")

	doc, err := openWordDoc(filepath.Join(gen.TemplatesDir, "fmt.docx"))
	if err != nil {
		t.Fatalf("openWordDoc: %v", err)
	}
	if err := doc.FillPlaceholders(map[string]string{"{summary}": "**critical** and *minor*"}); err != nil {
		t.Fatalf("FillPlaceholders: %v", err)
	}

	if len(doc.doc.FindElements("//w:b")) == 0 {
		t.Error("no bold run produced")
	}
	if len(doc.doc.FindElements("//w:i")) == 0 {
		t.Error("no italic run produced")
	}
}

func TestGenerateWordRequiresExistingTemplate(t *testing.T) {
	gen := newGenerator(t)
	_, err := gen.GenerateWord("missing.docx", "out.docx", "content", nil)
	if !errors.Is(err, ErrTemplateNotFound) {
		t.Fatalf("expected ErrTemplateNotFound, got %v", err)
	}
}

func TestGenerateExcelRows(t *testing.T) {
	gen := newGenerator(t)

	out, err := gen.GenerateExcel("", "data.xlsx", [][]any{{"a", "b"}, {"1", "2"}})
	if err != nil {
		t.Fatalf("GenerateExcel: %v", err)
	}

	f, err := excelize.OpenFile(out)
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	want := [][]string{{"a", "b"}, {"1", "2"}}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("rows = %v, want %v", rows, want)
	}
}

func TestGenerateExcelAppendsToTemplate(t *testing.T) {
	gen := newGenerator(t)

	tmpl := excelize.NewFile()
	sheet := tmpl.GetSheetName(0)
	if err := tmpl.SetSheetRow(sheet, "A1", &[]any{"Header"}); err != nil {
		t.Fatal(err)
	}
	tmplPath := filepath.Join(gen.TemplatesDir, "tpl.xlsx")
	if err := tmpl.SaveAs(tmplPath); err != nil {
		t.Fatal(err)
	}
	tmpl.Close()

	out, err := gen.GenerateExcel("tpl.xlsx", "data.xlsx", [][]any{{"row1"}})
	if err != nil {
		t.Fatalf("GenerateExcel: %v", err)
	}

	f, err := excelize.OpenFile(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		t.Fatal(err)
	}
	want := [][]string{{"Header"}, {"row1"}}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("rows = %v, want %v", rows, want)
	}
}

func TestGeneratePowerPointSlides(t *testing.T) {
	gen := newGenerator(t)

	out, err := gen.GeneratePowerPoint("", "deck.pptx", []Slide{
		{Title: "Intro & Scope", Content: "line one\nline two"},
		{Title: "Findings", Content: "all good"},
	})
	if err != nil {
		t.Fatalf("GeneratePowerPoint: %v", err)
	}

	p, err := openPkg(out)
	if err != nil {
		t.Fatalf("openPkg: %v", err)
	}
	for _, part := range []string{"ppt/slides/slide1.xml", "ppt/slides/slide2.xml"} {
		if !p.hasPart(part) {
			t.Errorf("missing part %s", part)
		}
	}
	slide1 := string(p.part("ppt/slides/slide1.xml"))
	if !strings.Contains(slide1, "Intro &amp; Scope") {
		t.Errorf("title not escaped into slide:\n%s", slide1)
	}
	pres := string(p.part("ppt/presentation.xml"))
	if got := strings.Count(pres, "<p:sldId "); got != 2 {
		t.Errorf("expected 2 slide ids, found %d:\n%s", got, pres)
	}
}

func TestGeneratePDF(t *testing.T) {
	gen := newGenerator(t)

	out, err := gen.GeneratePDF("report.pdf", "line one\nline two")
	if err != nil {
		t.Fatalf("GeneratePDF: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Errorf("output is not a PDF (starts with %q)", data[:8])
	}
}

func TestDefaultOutputNames(t *testing.T) {
	gen := newGenerator(t)
	out, err := gen.GeneratePDF("", "content")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(out) != "document.pdf" {
		t.Errorf("default name = %s", filepath.Base(out))
	}
}
