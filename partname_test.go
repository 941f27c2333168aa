package opc

import (
	"errors"
	"testing"
)

func TestNewPartName(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"/word/document.xml", "/word/document.xml", true},
		{"/_rels/.rels", "/_rels/.rels", true},
		{"/a%41.xml", "/aA.xml", true},
		{"/a b.xml", "/a%20b.xml", true},
		{"/a%2a.xml", "/a%2A.xml", true},
		{"/%e4.xml", "/%E4.xml", true},
		{"/x/[Content].xml", "/x/%5BContent%5D.xml", true},
		{"", "", false},
		{"/", "", false},
		{"word/document.xml", "", false},
		{"/word//document.xml", "", false},
		{"/word/./document.xml", "", false},
		{"/word/../document.xml", "", false},
		{"/word/", "", false},
		{"/word/document.", "", false},
		{"/a%2fb.xml", "", false},
		{"/a%5Cb.xml", "", false},
		{"/a%zz.xml", "", false},
		{"/a%4", "", false},
		{"/a\\b.xml", "", false},
		{"/a?.xml", "", false},
		{"/a#b", "", false},
	}
	for _, tc := range cases {
		got, err := NewPartName(tc.in)
		if !tc.ok {
			if !errors.Is(err, ErrInvalidPartName) {
				t.Fatalf("%q: expected ErrInvalidPartName, got %v", tc.in, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: %v", tc.in, err)
		}
		if string(got) != tc.want {
			t.Fatalf("%q: got %q want %q", tc.in, got, tc.want)
		}
		again, err := NewPartName(string(got))
		if err != nil || again != got {
			t.Fatalf("%q: normalization not idempotent: %q %v", tc.in, again, err)
		}
	}
}

func TestMustPartNamePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	MustPartName("relative")
}

func TestPartNameExtension(t *testing.T) {
	cases := map[PartName]string{
		"/word/document.xml":    "xml",
		"/_rels/.rels":          "rels",
		"/media/image.tar.GZ":   "GZ",
		"/noext":                "",
		"/dir.d/noext":          "",
		"/xl/_rels/wb.xml.rels": "rels",
	}
	for n, want := range cases {
		if got := n.Extension(); got != want {
			t.Fatalf("%s: got %q want %q", n, got, want)
		}
	}
}

func TestRelationshipPartNames(t *testing.T) {
	cases := []struct {
		source PartName
		rels   PartName
	}{
		{packageRoot, "/_rels/.rels"},
		{"/xl/workbook.xml", "/xl/_rels/workbook.xml.rels"},
		{"/foo.xml", "/_rels/foo.xml.rels"},
		{"/a/b/c.bin", "/a/b/_rels/c.bin.rels"},
	}
	for _, tc := range cases {
		got := RelationshipPartName(tc.source)
		if got != tc.rels {
			t.Fatalf("%q: got %s want %s", tc.source, got, tc.rels)
		}
		if !got.IsRelationshipPart() {
			t.Fatalf("%s: expected relationship part", got)
		}
		src, ok := relationshipSource(got)
		if !ok || src != tc.source {
			t.Fatalf("%s: source %q %v, want %q", got, src, ok, tc.source)
		}
	}
	if MustPartName("/xl/workbook.xml").IsRelationshipPart() {
		t.Fatal("workbook is not a relationship part")
	}
	if MustPartName("/xl/rels/a.rels").IsRelationshipPart() {
		t.Fatal("rels extension outside _rels is not a relationship part")
	}
	if _, ok := relationshipSource("/_rels/.rels.rels"); !ok {
		t.Fatal("expected /_rels/.rels.rels to map to /.rels")
	}
}

func TestResolvePartName(t *testing.T) {
	cases := []struct {
		base PartName
		ref  string
		want PartName
	}{
		{packageRoot, "xl/workbook.xml", "/xl/workbook.xml"},
		{packageRoot, "/docProps/core.xml", "/docProps/core.xml"},
		{"/word/document.xml", "media/image1.png", "/word/media/image1.png"},
		{"/word/document.xml", "../customXml/item1.xml", "/customXml/item1.xml"},
		{"/xl/workbook.xml", "worksheets/sheet1.xml#A1", "/xl/worksheets/sheet1.xml"},
		{"/xl/workbook.xml", "a%20b.xml", "/xl/a%20b.xml"},
		{"/xl/workbook.xml", "./styles.xml", "/xl/styles.xml"},
	}
	for _, tc := range cases {
		got, err := ResolvePartName(tc.base, tc.ref)
		if err != nil {
			t.Fatalf("%q against %q: %v", tc.ref, tc.base, err)
		}
		if got != tc.want {
			t.Fatalf("%q against %q: got %s want %s", tc.ref, tc.base, got, tc.want)
		}
	}
	for _, ref := range []string{"http://example.com/a.xml", "//host/a.xml", "mailto:x@y"} {
		if _, err := ResolvePartName("/word/document.xml", ref); !errors.Is(err, ErrInvalidPartName) {
			t.Fatalf("%q: expected ErrInvalidPartName, got %v", ref, err)
		}
	}
}

func TestRelativeReference(t *testing.T) {
	cases := []struct {
		source, target PartName
		want           string
	}{
		{packageRoot, "/xl/workbook.xml", "xl/workbook.xml"},
		{"/xl/workbook.xml", "/xl/worksheets/sheet1.xml", "worksheets/sheet1.xml"},
		{"/xl/worksheets/sheet1.xml", "/xl/styles.xml", "../styles.xml"},
		{"/a/b/c.xml", "/a/d/e.xml", "../d/e.xml"},
		{"/word/document.xml", "/word/a:b.xml", "./a:b.xml"},
		{"/word/document.xml", "/word/document.xml", "document.xml"},
	}
	for _, tc := range cases {
		got := relativeReference(tc.source, tc.target)
		if got != tc.want {
			t.Fatalf("%s -> %s: got %q want %q", tc.source, tc.target, got, tc.want)
		}
		back, err := ResolvePartName(tc.source, got)
		if err != nil || back != tc.target {
			t.Fatalf("%s -> %s: %q resolves to %s %v", tc.source, tc.target, got, back, err)
		}
	}
}

func TestZipItemNameMapping(t *testing.T) {
	for _, item := range []string{"xl/workbook.xml", "a b.xml", "100%.xml", "media/ä.png"} {
		name, err := partNameFromZipItem(item)
		if err != nil {
			t.Fatalf("%q: %v", item, err)
		}
		if got := name.zipItemName(); got != item {
			t.Fatalf("%q: round trip through %s gave %q", item, name, got)
		}
	}
	if _, err := partNameFromZipItem("a/../b.xml"); !errors.Is(err, ErrInvalidPartName) {
		t.Fatalf("expected ErrInvalidPartName, got %v", err)
	}
}
