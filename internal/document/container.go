package document

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
)

// pkg is an OOXML package: a zip container holding named XML and media
// parts. Part order is preserved on rewrite so diffs against the source
// template stay minimal.
type pkg struct {
	parts map[string][]byte
	order []string
}

// newPkg builds a package from an in-memory part map.
func newPkg(parts map[string][]byte) *pkg {
	p := &pkg{parts: parts}
	for name := range parts {
		p.order = append(p.order, name)
	}
	sort.Strings(p.order)
	return p
}

// openPkg reads an OOXML package from a file.
func openPkg(path string) (*pkg, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read package: %w", err)
	}
	return readPkg(data)
}

// readPkg reads an OOXML package from zip bytes.
func readPkg(data []byte) (*pkg, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open package: %w", err)
	}

	p := &pkg{parts: make(map[string][]byte, len(zr.File))}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open part %s: %w", f.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read part %s: %w", f.Name, err)
		}
		p.parts[f.Name] = content
		p.order = append(p.order, f.Name)
	}
	return p, nil
}

// part returns a part's bytes, or nil when absent.
func (p *pkg) part(name string) []byte {
	return p.parts[name]
}

// setPart stores a part, appending it to the order when new.
func (p *pkg) setPart(name string, content []byte) {
	if _, exists := p.parts[name]; !exists {
		p.order = append(p.order, name)
	}
	p.parts[name] = content
}

// hasPart reports whether a part exists.
func (p *pkg) hasPart(name string) bool {
	_, ok := p.parts[name]
	return ok
}

// save writes the package to a file.
func (p *pkg) save(path string) error {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range p.order {
		w, err := zw.Create(name)
		if err != nil {
			return fmt.Errorf("create part %s: %w", name, err)
		}
		if _, err := w.Write(p.parts[name]); err != nil {
			return fmt.Errorf("write part %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize package: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write package: %w", err)
	}
	return nil
}
