// Package reader opens a PDF document held in memory and provides resolved
// access to its objects and pages. It validates the header, loads the full
// cross-reference chain and caches resolved objects, including objects
// packed in object streams.
package reader

import (
	"bytes"
	"fmt"

	"github.com/tsawler/marginalia/core"
	"github.com/tsawler/marginalia/model"
	"github.com/tsawler/marginalia/pages"
)

// Document is an open PDF document. It is safe for sequential use by one
// export; it is not safe for concurrent use.
type Document struct {
	data  []byte
	table *core.XRefTable

	objCache map[core.IndirectRef]core.Object
	stmCache map[int]*core.ObjectStream

	pageList []*pages.Page
}

// Open parses the buffer as a PDF document. The buffer is retained, not
// copied; callers must not mutate it while the document is in use.
func Open(data []byte) (*Document, error) {
	if err := validateHeader(data); err != nil {
		return nil, err
	}

	table, err := core.LoadXRef(data)
	if err != nil {
		return nil, fmt.Errorf("loading cross-reference data: %w", err)
	}

	doc := &Document{
		data:     data,
		table:    table,
		objCache: make(map[core.IndirectRef]core.Object),
		stmCache: make(map[int]*core.ObjectStream),
	}

	catalog, err := doc.Catalog()
	if err != nil {
		return nil, err
	}
	doc.pageList, err = pages.LoadPageTree(catalog, doc.Resolve)
	if err != nil {
		return nil, fmt.Errorf("loading page tree: %w", err)
	}

	return doc, nil
}

// validateHeader checks for the %PDF- marker, allowing a small amount of
// leading junk as real-world files sometimes carry
func validateHeader(data []byte) error {
	limit := 1024
	if limit > len(data) {
		limit = len(data)
	}
	if bytes.Index(data[:limit], []byte("%PDF-")) < 0 {
		return fmt.Errorf("not a PDF document: %%PDF- header not found")
	}
	return nil
}

// Data returns the original document bytes
func (d *Document) Data() []byte {
	return d.data
}

// XRef returns the merged cross-reference table
func (d *Document) XRef() *core.XRefTable {
	return d.table
}

// Resolve returns the object for an indirect reference, following the xref
// entry to either a file offset or an object stream slot. Missing objects
// resolve to null rather than failing, matching viewer behavior.
func (d *Document) Resolve(ref core.IndirectRef) (core.Object, error) {
	if obj, ok := d.objCache[ref]; ok {
		return obj, nil
	}

	entry, ok := d.table.Entries[ref.Number]
	if !ok || entry.Type == core.XRefFree {
		return core.Null{}, nil
	}

	var obj core.Object
	var err error
	switch entry.Type {
	case core.XRefInUse:
		obj, err = d.loadAt(ref, entry)
	case core.XRefInObjectStream:
		obj, err = d.loadFromObjectStream(entry)
	default:
		return core.Null{}, nil
	}
	if err != nil {
		return nil, err
	}

	d.objCache[ref] = obj
	return obj, nil
}

func (d *Document) loadAt(ref core.IndirectRef, entry core.XRefEntry) (core.Object, error) {
	if entry.Offset < 0 || entry.Offset >= len(d.data) {
		return nil, fmt.Errorf("object %d %d: offset %d out of range", ref.Number, ref.Generation, entry.Offset)
	}
	parser := core.NewParserAt(d.data, entry.Offset)
	parser.SetResolver(d.Resolve)
	ind, err := parser.ParseIndirectObject()
	if err != nil {
		return nil, fmt.Errorf("object %d %d: %w", ref.Number, ref.Generation, err)
	}
	if ind.Ref.Number != ref.Number {
		return nil, fmt.Errorf("object at offset %d has number %d, expected %d", entry.Offset, ind.Ref.Number, ref.Number)
	}
	return ind.Object, nil
}

func (d *Document) loadFromObjectStream(entry core.XRefEntry) (core.Object, error) {
	os, ok := d.stmCache[entry.StreamNum]
	if !ok {
		container, err := d.Resolve(core.IndirectRef{Number: entry.StreamNum})
		if err != nil {
			return nil, fmt.Errorf("resolving object stream %d: %w", entry.StreamNum, err)
		}
		stream, isStream := container.(*core.Stream)
		if !isStream {
			return nil, fmt.Errorf("object %d is not an object stream", entry.StreamNum)
		}
		os, err = core.ParseObjectStream(stream)
		if err != nil {
			return nil, err
		}
		d.stmCache[entry.StreamNum] = os
	}

	_, obj, err := os.ObjectAt(entry.StreamIdx)
	return obj, err
}

// Catalog returns the document catalog from the trailer /Root
func (d *Document) Catalog() (core.Dict, error) {
	rootRef, ok := d.table.Trailer.GetIndirectRef("Root")
	if !ok {
		return nil, fmt.Errorf("trailer has no /Root reference")
	}
	obj, err := d.Resolve(rootRef)
	if err != nil {
		return nil, fmt.Errorf("resolving catalog: %w", err)
	}
	catalog, ok := obj.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("catalog is not a dictionary")
	}
	return catalog, nil
}

// PageCount returns the number of pages in the document
func (d *Document) PageCount() int {
	return len(d.pageList)
}

// Page returns the page at the given zero-based index
func (d *Document) Page(index int) (*pages.Page, error) {
	if index < 0 || index >= len(d.pageList) {
		return nil, fmt.Errorf("page index %d out of range [0,%d)", index, len(d.pageList))
	}
	return d.pageList[index], nil
}

// PageGeometry returns the effective extent of the page at the given index
func (d *Document) PageGeometry(index int) (model.PageGeometry, error) {
	page, err := d.Page(index)
	if err != nil {
		return model.PageGeometry{}, err
	}
	return page.Geometry(), nil
}
