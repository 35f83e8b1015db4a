// Package document generates Office documents and PDFs, optionally
// starting from templates: Word files with placeholder substitution,
// Excel workbooks with appended rows, PowerPoint decks with generated
// slides, and line-oriented PDFs.
package document

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrTemplateNotFound reports that a named template does not exist in
// the templates directory.
var ErrTemplateNotFound = errors.New("template not found")

// Slide is one generated presentation slide.
type Slide struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Generator produces documents from the templates directory into the
// outputs directory.
type Generator struct {
	TemplatesDir string
	OutputsDir   string
}

// templatePath resolves a template name. An empty name means no
// template; a named template must exist.
func (g *Generator) templatePath(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", nil
	}
	path := filepath.Join(g.TemplatesDir, name)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, path)
	}
	return path, nil
}

// outputPath ensures the outputs directory exists and resolves the
// output file name, applying the default when the name is blank.
func (g *Generator) outputPath(name, fallback string) (string, error) {
	if strings.TrimSpace(name) == "" {
		name = fallback
	}
	if err := os.MkdirAll(g.OutputsDir, 0755); err != nil {
		return "", fmt.Errorf("create outputs dir: %w", err)
	}
	return filepath.Join(g.OutputsDir, name), nil
}

// GenerateWord builds a Word document. Placeholders are substituted
// first, then content is appended as paragraphs. Returns the output
// path.
func (g *Generator) GenerateWord(templateName, outputName, content string, placeholders map[string]string) (string, error) {
	tmpl, err := g.templatePath(templateName)
	if err != nil {
		return "", err
	}
	out, err := g.outputPath(outputName, "document.docx")
	if err != nil {
		return "", err
	}

	var doc *wordDoc
	if tmpl != "" {
		doc, err = openWordDoc(tmpl)
	} else {
		doc, err = newWordDoc()
	}
	if err != nil {
		return "", err
	}

	if len(placeholders) > 0 {
		if err := doc.FillPlaceholders(placeholders); err != nil {
			return "", err
		}
	}
	if strings.TrimSpace(content) != "" {
		doc.AppendContent(content)
	}

	if err := doc.Save(out); err != nil {
		return "", err
	}
	return out, nil
}

// GenerateExcel builds a workbook by appending rows to the template's
// first sheet, or to a fresh workbook. Returns the output path.
func (g *Generator) GenerateExcel(templateName, outputName string, rows [][]any) (string, error) {
	tmpl, err := g.templatePath(templateName)
	if err != nil {
		return "", err
	}
	out, err := g.outputPath(outputName, "document.xlsx")
	if err != nil {
		return "", err
	}
	if err := fillWorkbook(tmpl, rows, out); err != nil {
		return "", err
	}
	return out, nil
}

// GeneratePowerPoint builds a deck with one slide per entry, appended
// after any slides the template already has. Returns the output path.
func (g *Generator) GeneratePowerPoint(templateName, outputName string, slides []Slide) (string, error) {
	tmpl, err := g.templatePath(templateName)
	if err != nil {
		return "", err
	}
	out, err := g.outputPath(outputName, "document.pptx")
	if err != nil {
		return "", err
	}

	var pr *presentation
	if tmpl != "" {
		pr, err = openPresentation(tmpl)
		if err != nil {
			return "", err
		}
	} else {
		pr = newPresentation()
	}

	for _, s := range slides {
		if err := pr.AddSlide(s.Title, s.Content); err != nil {
			return "", err
		}
	}

	if err := pr.Save(out); err != nil {
		return "", err
	}
	return out, nil
}

// GeneratePDF renders content onto Letter pages. Returns the output
// path.
func (g *Generator) GeneratePDF(outputName, content string) (string, error) {
	out, err := g.outputPath(outputName, "document.pdf")
	if err != nil {
		return "", err
	}
	if err := writePDF("", content, out); err != nil {
		return "", err
	}
	return out, nil
}
