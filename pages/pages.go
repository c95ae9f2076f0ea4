// Package pages walks the document page tree and exposes per-page
// attributes: boxes, rotation, resources, content streams and annotations.
// Inheritable attributes are resolved down the tree per the PDF model.
package pages

import (
	"bytes"
	"fmt"

	"github.com/tsawler/marginalia/core"
	"github.com/tsawler/marginalia/model"
)

// Page is one leaf of the page tree together with its resolved inheritable
// attributes
type Page struct {
	// Ref is the page object's own reference, needed when the page dict
	// is rewritten during an incremental update
	Ref  core.IndirectRef
	Dict core.Dict

	inherited core.Dict
	resolve   core.Resolver
}

// inheritable attributes per the page tree model
var inheritableKeys = []string{"MediaBox", "CropBox", "Rotate", "Resources"}

// LoadPageTree collects the document's pages in order, resolving inherited
// attributes while descending. A cycle or a malformed node is an error.
func LoadPageTree(catalog core.Dict, resolve core.Resolver) ([]*Page, error) {
	var rootRef core.IndirectRef
	if ref, ok := catalog.Get("Pages").(core.IndirectRef); ok {
		rootRef = ref
	}
	rootObj, err := resolved(catalog.Get("Pages"), resolve)
	if err != nil {
		return nil, fmt.Errorf("resolving page tree root: %w", err)
	}
	root, ok := rootObj.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("catalog /Pages is not a dictionary")
	}

	var pages []*Page
	seen := make(map[core.IndirectRef]bool)
	err = walk(root, rootRef, core.Dict{}, resolve, seen, &pages)
	if err != nil {
		return nil, err
	}
	return pages, nil
}

func walk(node core.Dict, ref core.IndirectRef, inherited core.Dict, resolve core.Resolver, seen map[core.IndirectRef]bool, out *[]*Page) error {
	// Merge this node's inheritable attributes over what came down
	merged := inherited.Clone()
	for _, key := range inheritableKeys {
		if v := node.Get(key); v != nil {
			merged[key] = v
		}
	}

	typ, _ := node.GetName("Type")
	if typ == "Page" {
		*out = append(*out, &Page{
			Ref:       ref,
			Dict:      node,
			inherited: merged,
			resolve:   resolve,
		})
		return nil
	}

	kids, ok := node.GetArray("Kids")
	if !ok {
		return fmt.Errorf("page tree node has no /Kids")
	}
	for i := 0; i < kids.Len(); i++ {
		kidRef, ok := kids.Get(i).(core.IndirectRef)
		if !ok {
			return fmt.Errorf("page tree kid %d is not an indirect reference", i)
		}
		if seen[kidRef] {
			return fmt.Errorf("page tree contains a cycle at %s", kidRef)
		}
		seen[kidRef] = true

		kidObj, err := resolve(kidRef)
		if err != nil {
			return fmt.Errorf("resolving page tree kid %s: %w", kidRef, err)
		}
		kid, ok := kidObj.(core.Dict)
		if !ok {
			return fmt.Errorf("page tree kid %s is not a dictionary", kidRef)
		}
		if err := walk(kid, kidRef, merged, resolve, seen, out); err != nil {
			return err
		}
	}
	return nil
}

// attr looks up a key on the page itself, falling back to the inherited set
func (p *Page) attr(key string) core.Object {
	if v := p.Dict.Get(key); v != nil {
		return v
	}
	return p.inherited.Get(key)
}

// MediaBox returns the page's media box. A missing box falls back to US
// Letter, matching common viewer behavior.
func (p *Page) MediaBox() model.BBox {
	if box, ok := p.box("MediaBox"); ok {
		return box
	}
	return model.BBox{Width: 612, Height: 792}
}

// CropBox returns the crop box, defaulting to the media box
func (p *Page) CropBox() model.BBox {
	if box, ok := p.box("CropBox"); ok {
		return box
	}
	return p.MediaBox()
}

func (p *Page) box(key string) (model.BBox, bool) {
	obj, err := resolved(p.attr(key), p.resolve)
	if err != nil {
		return model.BBox{}, false
	}
	arr, ok := obj.(core.Array)
	if !ok || arr.Len() != 4 {
		return model.BBox{}, false
	}
	vals := make([]float64, 4)
	for i := range vals {
		v, ok := arr.GetNumber(i)
		if !ok {
			return model.BBox{}, false
		}
		vals[i] = v
	}
	// The array is [llx lly urx ury] with corners in any order
	x0, y0, x1, y1 := vals[0], vals[1], vals[2], vals[3]
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	return model.BBox{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}, true
}

// Rotate returns the page rotation normalized to 0, 90, 180 or 270
func (p *Page) Rotate() int {
	obj, err := resolved(p.attr("Rotate"), p.resolve)
	if err != nil {
		return 0
	}
	n, ok := obj.(core.Int)
	if !ok {
		return 0
	}
	r := int(n) % 360
	if r < 0 {
		r += 360
	}
	return (r / 90) * 90
}

// Geometry returns the page's effective extent in points. Rotation by 90 or
// 270 degrees swaps the axes.
func (p *Page) Geometry() model.PageGeometry {
	box := p.MediaBox()
	w, h := box.Width, box.Height
	if r := p.Rotate(); r == 90 || r == 270 {
		w, h = h, w
	}
	return model.PageGeometry{Width: w, Height: h}
}

// Resources returns the page's resource dictionary, possibly inherited
func (p *Page) Resources() (core.Dict, error) {
	obj, err := resolved(p.attr("Resources"), p.resolve)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return core.Dict{}, nil
	}
	dict, ok := obj.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("page /Resources is not a dictionary")
	}
	return dict, nil
}

// Contents returns the page's decoded content stream. Multiple streams are
// concatenated with a separating newline, as operators may not span streams
// without one.
func (p *Page) Contents() ([]byte, error) {
	obj, err := resolved(p.Dict.Get("Contents"), p.resolve)
	if err != nil {
		return nil, fmt.Errorf("resolving page contents: %w", err)
	}

	var streams []*core.Stream
	switch v := obj.(type) {
	case nil:
		return nil, nil
	case *core.Stream:
		streams = []*core.Stream{v}
	case core.Array:
		for i := 0; i < v.Len(); i++ {
			sObj, err := resolved(v.Get(i), p.resolve)
			if err != nil {
				return nil, err
			}
			s, ok := sObj.(*core.Stream)
			if !ok {
				return nil, fmt.Errorf("content array entry %d is not a stream", i)
			}
			streams = append(streams, s)
		}
	default:
		return nil, fmt.Errorf("page /Contents has unexpected type %s", obj.Type())
	}

	var buf bytes.Buffer
	for _, s := range streams {
		data, err := s.Decode()
		if err != nil {
			return nil, fmt.Errorf("decoding content stream: %w", err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// Annots returns the page's annotation array, resolved one level deep so
// each element is the annotation dictionary itself
func (p *Page) Annots() ([]core.Dict, error) {
	obj, err := resolved(p.Dict.Get("Annots"), p.resolve)
	if err != nil {
		return nil, err
	}
	arr, ok := obj.(core.Array)
	if !ok {
		return nil, nil
	}

	annots := make([]core.Dict, 0, arr.Len())
	for i := 0; i < arr.Len(); i++ {
		aObj, err := resolved(arr.Get(i), p.resolve)
		if err != nil {
			return nil, err
		}
		if d, ok := aObj.(core.Dict); ok {
			annots = append(annots, d)
		}
	}
	return annots, nil
}

// AnnotsRef returns the raw /Annots value from the page dictionary, which
// the annotation writer extends in place during an incremental update
func (p *Page) AnnotsRef() core.Object {
	return p.Dict.Get("Annots")
}

func resolved(obj core.Object, resolve core.Resolver) (core.Object, error) {
	for depth := 0; depth < 32; depth++ {
		ref, ok := obj.(core.IndirectRef)
		if !ok {
			return obj, nil
		}
		next, err := resolve(ref)
		if err != nil {
			return nil, err
		}
		obj = next
	}
	return nil, fmt.Errorf("indirect reference chain too deep")
}
