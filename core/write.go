package core

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"unicode/utf16"
)

// SerializeObject writes the PDF syntax for an object
func SerializeObject(buf *bytes.Buffer, obj Object) {
	switch v := obj.(type) {
	case nil, Null:
		buf.WriteString("null")
	case Bool:
		if v {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case Int:
		buf.WriteString(strconv.FormatInt(int64(v), 10))
	case Real:
		buf.WriteString(formatReal(float64(v)))
	case String:
		serializeString(buf, string(v))
	case Name:
		serializeName(buf, string(v))
	case Array:
		buf.WriteByte('[')
		for i, e := range v {
			if i > 0 {
				buf.WriteByte(' ')
			}
			SerializeObject(buf, e)
		}
		buf.WriteByte(']')
	case Dict:
		serializeDict(buf, v)
	case *Stream:
		serializeDict(buf, v.Dict)
		buf.WriteString("\nstream\n")
		buf.Write(v.Data)
		buf.WriteString("\nendstream")
	case IndirectRef:
		fmt.Fprintf(buf, "%d %d R", v.Number, v.Generation)
	default:
		buf.WriteString("null")
	}
}

func serializeDict(buf *bytes.Buffer, d Dict) {
	// Deterministic key order keeps output reproducible across runs
	keys := d.Keys()
	sort.Strings(keys)

	buf.WriteString("<<")
	for _, k := range keys {
		buf.WriteByte(' ')
		serializeName(buf, k)
		buf.WriteByte(' ')
		SerializeObject(buf, d[k])
	}
	buf.WriteString(" >>")
}

func serializeString(buf *bytes.Buffer, s string) {
	if !isASCII(s) {
		serializeUTF16String(buf, s)
		return
	}
	buf.WriteByte('(')
	for i := 0; i < len(s); i++ {
		b := s[i]
		switch b {
		case '(', ')', '\\':
			buf.WriteByte('\\')
			buf.WriteByte(b)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			buf.WriteByte(b)
		}
	}
	buf.WriteByte(')')
}

// serializeUTF16String writes a text string as UTF-16BE with a leading BOM.
// Raw UTF-8 in a literal string would be read as PDFDocEncoding by viewers,
// so any non-ASCII text takes this path.
func serializeUTF16String(buf *bytes.Buffer, s string) {
	buf.WriteByte('(')
	buf.WriteByte(0xFE)
	buf.WriteByte(0xFF)
	for _, u := range utf16.Encode([]rune(s)) {
		writeStringByte(buf, byte(u>>8))
		writeStringByte(buf, byte(u))
	}
	buf.WriteByte(')')
}

// writeStringByte escapes the bytes that would end the string or be
// normalized by a reader's end-of-line handling
func writeStringByte(buf *bytes.Buffer, b byte) {
	switch b {
	case '(', ')', '\\':
		buf.WriteByte('\\')
		buf.WriteByte(b)
	case '\r':
		buf.WriteString(`\r`)
	default:
		buf.WriteByte(b)
	}
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

func serializeName(buf *bytes.Buffer, n string) {
	buf.WriteByte('/')
	for i := 0; i < len(n); i++ {
		b := n[i]
		if b <= ' ' || b > '~' || isDelimiter(b) || b == '#' {
			fmt.Fprintf(buf, "#%02X", b)
		} else {
			buf.WriteByte(b)
		}
	}
}

// formatReal renders a float without exponent notation, which PDF syntax
// does not allow
func formatReal(v float64) string {
	s := strconv.FormatFloat(v, 'f', 5, 64)
	s = trimTrailingZeros(s)
	return s
}

func trimTrailingZeros(s string) string {
	if !bytes.ContainsRune([]byte(s), '.') {
		return s
	}
	i := len(s)
	for i > 0 && s[i-1] == '0' {
		i--
	}
	if i > 0 && s[i-1] == '.' {
		i--
	}
	return s[:i]
}

// Updater accumulates changed and new objects and appends them to the
// original document as an incremental update. The original bytes are never
// modified, so a failed write leaves the input intact.
type Updater struct {
	original []byte
	table    *XRefTable

	objects map[int]*IndirectObject
	nextNum int
}

// NewUpdater creates an updater over the original document bytes
func NewUpdater(original []byte, table *XRefTable) *Updater {
	return &Updater{
		original: original,
		table:    table,
		objects:  make(map[int]*IndirectObject),
		nextNum:  table.MaxObjectNumber + 1,
	}
}

// AddObject registers a new object and returns its reference
func (u *Updater) AddObject(obj Object) IndirectRef {
	ref := IndirectRef{Number: u.nextNum}
	u.nextNum++
	u.objects[ref.Number] = &IndirectObject{Ref: ref, Object: obj}
	return ref
}

// ReplaceObject registers an updated version of an existing object. The new
// body shadows the original through the appended xref section.
func (u *Updater) ReplaceObject(ref IndirectRef, obj Object) {
	u.objects[ref.Number] = &IndirectObject{Ref: ref, Object: obj}
}

// Bytes assembles the updated document: the original bytes followed by the
// new object bodies, an xref subsection covering them, and a trailer whose
// /Prev points back at the previous xref section.
func (u *Updater) Bytes() ([]byte, error) {
	if len(u.objects) == 0 {
		return u.original, nil
	}

	root, ok := u.table.Trailer.GetIndirectRef("Root")
	if !ok {
		return nil, fmt.Errorf("trailer has no /Root reference")
	}

	var buf bytes.Buffer
	buf.Write(u.original)
	if buf.Len() > 0 && buf.Bytes()[buf.Len()-1] != '\n' {
		buf.WriteByte('\n')
	}

	nums := make([]int, 0, len(u.objects))
	for n := range u.objects {
		nums = append(nums, n)
	}
	sort.Ints(nums)

	offsets := make(map[int]int, len(nums))
	for _, n := range nums {
		ind := u.objects[n]
		offsets[n] = buf.Len()
		fmt.Fprintf(&buf, "%d %d obj\n", ind.Ref.Number, ind.Ref.Generation)
		SerializeObject(&buf, ind.Object)
		buf.WriteString("\nendobj\n")
	}

	xrefStart := buf.Len()
	buf.WriteString("xref\n")
	for s := 0; s < len(nums); {
		// Contiguous runs of object numbers share a subsection
		e := s + 1
		for e < len(nums) && nums[e] == nums[e-1]+1 {
			e++
		}
		fmt.Fprintf(&buf, "%d %d\n", nums[s], e-s)
		for _, n := range nums[s:e] {
			fmt.Fprintf(&buf, "%010d %05d n \n", offsets[n], u.objects[n].Ref.Generation)
		}
		s = e
	}

	size := u.nextNum
	if prev, ok := u.table.Trailer.GetInt("Size"); ok && int(prev) > size {
		size = int(prev)
	}

	trailer := Dict{
		"Size": Int(size),
		"Root": root,
		"Prev": Int(u.table.StartOffset),
	}
	if info, ok := u.table.Trailer.GetIndirectRef("Info"); ok {
		trailer["Info"] = info
	}

	buf.WriteString("trailer\n")
	SerializeObject(&buf, trailer)
	fmt.Fprintf(&buf, "\nstartxref\n%d\n%%%%EOF\n", xrefStart)

	return buf.Bytes(), nil
}
