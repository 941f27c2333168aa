package opc

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// PartName is an absolute, normalized part path such as "/word/document.xml".
//
// Normalization decodes percent-escapes of unreserved characters, upper-cases
// the remaining escapes and escapes any byte that may not appear raw in a
// URI path segment. Two part names are equal iff their strings are equal.
type PartName string

// packageRoot stands for the package itself as a relationship source.
const packageRoot PartName = ""

// RootRelationshipsPartName is the location of the package relationships.
const RootRelationshipsPartName PartName = "/_rels/.rels"

// NewPartName validates p and returns its normalized form.
func NewPartName(p string) (PartName, error) {
	if p == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidPartName)
	}
	if p[0] != '/' {
		return "", fmt.Errorf("%w: %q is not absolute", ErrInvalidPartName, p)
	}
	norm, err := normalizeEscapes(p)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidPartName, p, err)
	}
	if norm == "/" {
		return "", fmt.Errorf("%w: %q names the package root", ErrInvalidPartName, p)
	}
	for _, seg := range strings.Split(norm[1:], "/") {
		switch {
		case seg == "":
			return "", fmt.Errorf("%w: %q has an empty segment", ErrInvalidPartName, p)
		case seg == "." || seg == "..":
			return "", fmt.Errorf("%w: %q has a dot segment", ErrInvalidPartName, p)
		case strings.HasSuffix(seg, "."):
			return "", fmt.Errorf("%w: %q has a segment ending in '.'", ErrInvalidPartName, p)
		}
	}
	return PartName(norm), nil
}

// MustPartName is like NewPartName but panics on error.
func MustPartName(p string) PartName {
	n, err := NewPartName(p)
	if err != nil {
		panic(err)
	}
	return n
}

func (n PartName) String() string { return string(n) }

// Less orders part names by their normalized form.
func (n PartName) Less(o PartName) bool { return n < o }

// Extension returns the text after the last '.' of the final segment,
// or "" when there is none.
func (n PartName) Extension() string {
	base := path.Base(string(n))
	if i := strings.LastIndexByte(base, '.'); i >= 0 {
		return base[i+1:]
	}
	return ""
}

// IsRelationshipPart reports whether n lives in a _rels folder and carries
// the .rels extension.
func (n PartName) IsRelationshipPart() bool {
	dir := path.Dir(string(n))
	return path.Base(dir) == relationshipsDirName && strings.EqualFold(n.Extension(), relationshipsExt)
}

// RelationshipPartName returns the name of the part holding the
// relationships whose source is n. The zero PartName stands for the package.
func RelationshipPartName(n PartName) PartName {
	if n == packageRoot {
		return RootRelationshipsPartName
	}
	dir, file := path.Split(string(n))
	return PartName(dir + relationshipsDirName + "/" + file + "." + relationshipsExt)
}

// relationshipSource maps a relationship part name back to its source.
// ok is false when rels does not follow the <dir>/_rels/<file>.rels layout.
func relationshipSource(rels PartName) (src PartName, ok bool) {
	if !rels.IsRelationshipPart() {
		return "", false
	}
	if rels == RootRelationshipsPartName {
		return packageRoot, true
	}
	relsDir, file := path.Split(string(rels))
	file = file[:len(file)-len(relationshipsExt)-1]
	if file == "" {
		return "", false
	}
	parent := path.Dir(strings.TrimSuffix(relsDir, "/"))
	if parent == "/" {
		parent = ""
	}
	src, err := NewPartName(parent + "/" + file)
	if err != nil {
		return "", false
	}
	return src, true
}

// ResolvePartName resolves ref against the directory of base following
// RFC 3986 section 5 and normalizes the result. A zero base resolves
// against the package root. Fragments and queries are dropped.
func ResolvePartName(base PartName, ref string) (PartName, error) {
	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidPartName, ref, err)
	}
	if r.Scheme != "" || r.Host != "" || r.User != nil || r.Opaque != "" {
		return "", fmt.Errorf("%w: %q is not a package-relative reference", ErrInvalidPartName, ref)
	}
	baseURL := &url.URL{Path: "/"}
	if base != packageRoot {
		if baseURL, err = url.Parse(string(base)); err != nil {
			return "", fmt.Errorf("%w: base %q: %v", ErrInvalidPartName, base, err)
		}
	}
	return NewPartName(baseURL.ResolveReference(r).EscapedPath())
}

// relativeReference returns a reference to target relative to the directory
// of source, the form written into relationship parts.
func relativeReference(source, target PartName) string {
	var from []string
	if source != packageRoot {
		if dir := path.Dir(string(source)); dir != "/" {
			from = strings.Split(dir[1:], "/")
		}
	}
	to := strings.Split(string(target[1:]), "/")
	common := 0
	for common < len(from) && common < len(to)-1 && from[common] == to[common] {
		common++
	}
	var b strings.Builder
	for i := common; i < len(from); i++ {
		b.WriteString("../")
	}
	rest := strings.Join(to[common:], "/")
	if b.Len() == 0 && strings.Contains(to[common], ":") {
		b.WriteString("./")
	}
	b.WriteString(rest)
	return b.String()
}

// zipItemName is the ZIP entry name for n: the leading slash dropped and
// percent-escapes decoded.
func (n PartName) zipItemName() string {
	s := string(n[1:])
	if dec, err := url.PathUnescape(s); err == nil {
		return dec
	}
	return s
}

// partNameFromZipItem is the inverse of zipItemName. Item names are raw
// text, so a literal '%' is escaped rather than decoded.
func partNameFromZipItem(item string) (PartName, error) {
	return NewPartName("/" + strings.ReplaceAll(item, "%", "%25"))
}

func normalizeEscapes(p string) (string, error) {
	var b strings.Builder
	b.Grow(len(p))
	for i := 0; i < len(p); i++ {
		c := p[i]
		switch {
		case c == '%':
			if i+2 >= len(p) || !isHex(p[i+1]) || !isHex(p[i+2]) {
				return "", fmt.Errorf("invalid percent-encoding at offset %d", i)
			}
			d := unhex(p[i+1])<<4 | unhex(p[i+2])
			if d == '/' || d == '\\' {
				return "", fmt.Errorf("percent-encoded separator at offset %d", i)
			}
			if isUnreserved(d) {
				b.WriteByte(d)
			} else {
				writeEscaped(&b, d)
			}
			i += 2
		case c == '\\' || c == '?' || c == '#':
			return "", fmt.Errorf("character %q not allowed", c)
		case c == '/' || isPChar(c):
			b.WriteByte(c)
		default:
			writeEscaped(&b, c)
		}
	}
	return b.String(), nil
}

const upperhex = "0123456789ABCDEF"

func writeEscaped(b *strings.Builder, c byte) {
	b.WriteByte('%')
	b.WriteByte(upperhex[c>>4])
	b.WriteByte(upperhex[c&0xF])
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}

func isUnreserved(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9' ||
		c == '-' || c == '.' || c == '_' || c == '~'
}

func isPChar(c byte) bool {
	if isUnreserved(c) {
		return true
	}
	switch c {
	case '!', '$', '&', '\'', '(', ')', '*', '+', ',', ';', '=', ':', '@':
		return true
	}
	return false
}
