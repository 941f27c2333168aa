package opc

import (
	"errors"
	"strings"
	"testing"
)

const relsHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`

func TestRelationshipIDs(t *testing.T) {
	c := newRelationshipCollection("/xl/workbook.xml")
	r1, err := c.add("worksheets/sheet1.xml", Internal, "urn:sheet", "")
	if err != nil {
		t.Fatal(err)
	}
	if r1.ID() != "rId1" {
		t.Fatalf("expected rId1, got %s", r1.ID())
	}
	if _, err := c.add("styles.xml", Internal, "urn:styles", "rId3"); err != nil {
		t.Fatal(err)
	}
	r2, _ := c.add("theme.xml", Internal, "urn:theme", "")
	r4, _ := c.add("x.xml", Internal, "urn:x", "")
	if r2.ID() != "rId2" || r4.ID() != "rId4" {
		t.Fatalf("expected rId2 and rId4, got %s and %s", r2.ID(), r4.ID())
	}
	if _, err := c.add("y.xml", Internal, "urn:y", "rId1"); !errors.Is(err, ErrDuplicateRelationshipID) {
		t.Fatalf("expected ErrDuplicateRelationshipID, got %v", err)
	}

	if err := c.remove("rId2"); err != nil {
		t.Fatal(err)
	}
	if got := c.byType("urn:theme"); len(got) != 0 {
		t.Fatalf("removed relationship still listed: %v", got)
	}
	if err := c.remove("rId2"); !errors.Is(err, ErrRelationshipNotFound) {
		t.Fatalf("expected ErrRelationshipNotFound, got %v", err)
	}
	// Removed ids are not handed out again.
	r5, _ := c.add("z.xml", Internal, "urn:z", "")
	if r5.ID() != "rId5" {
		t.Fatalf("expected rId5, got %s", r5.ID())
	}

	seen := map[string]bool{}
	for _, r := range c.all() {
		if seen[r.ID()] {
			t.Fatalf("duplicate id %s", r.ID())
		}
		seen[r.ID()] = true
	}
	if _, err := c.get("rId9"); !errors.Is(err, ErrRelationshipNotFound) {
		t.Fatalf("expected ErrRelationshipNotFound, got %v", err)
	}
}

func TestRelationshipByTypeOrder(t *testing.T) {
	c := newRelationshipCollection(packageRoot)
	for _, target := range []string{"a.xml", "b.xml", "c.xml"} {
		if _, err := c.add(target, Internal, "urn:t", ""); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := c.add("d.xml", Internal, "urn:other", ""); err != nil {
		t.Fatal(err)
	}
	got := c.byType("urn:t")
	if len(got) != 3 || got[0].Target() != "a.xml" || got[2].Target() != "c.xml" {
		t.Fatalf("unexpected order: %v", got)
	}
}

func TestRelationshipValidation(t *testing.T) {
	c := newRelationshipCollection("/word/document.xml")
	cases := []struct {
		name   string
		target string
		mode   TargetMode
		typ    string
		id     string
		want   error
	}{
		{"empty type", "a.xml", Internal, "", "", ErrInvalidOperation},
		{"bad id", "a.xml", Internal, "urn:t", "1abc", ErrInvalidOperation},
		{"rels target", "_rels/a.xml.rels", Internal, "urn:t", "", ErrInvalidOperation},
		{"bad internal", "a/../../%zz", Internal, "urn:t", "", ErrInvalidPartName},
		{"absolute uri internal", "http://example.com/", Internal, "urn:t", "", ErrInvalidPartName},
		{"bad mode", "a.xml", TargetMode(7), "urn:t", "", ErrInvalidOperation},
	}
	for _, tc := range cases {
		if _, err := c.add(tc.target, tc.mode, tc.typ, tc.id); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
	if c.len() != 0 {
		t.Fatalf("failed adds must not change the collection, have %d", c.len())
	}
}

func TestRelationshipResolveTarget(t *testing.T) {
	c := newRelationshipCollection("/xl/worksheets/sheet1.xml")
	link, _ := c.add("https://example.com/?q=1", External, RelationshipTypeHyperlink, "")
	if _, err := link.ResolveTarget(); !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("expected ErrInvalidOperation for external target, got %v", err)
	}
	frag, _ := c.add("#Sheet1!A1", Internal, RelationshipTypeHyperlink, "")
	if got, err := frag.ResolveTarget(); err != nil || got != "/xl/worksheets/sheet1.xml" {
		t.Fatalf("fragment target resolved to %s %v", got, err)
	}
	up, _ := c.add("../drawings/drawing1.xml", Internal, "urn:drawing", "")
	if got, err := up.ResolveTarget(); err != nil || got != "/xl/drawings/drawing1.xml" {
		t.Fatalf("relative target resolved to %s %v", got, err)
	}
	if up.SourceURI() != "/xl/worksheets/sheet1.xml" {
		t.Fatalf("unexpected source %s", up.SourceURI())
	}
	if src, ok := up.SourcePart(); !ok || src != "/xl/worksheets/sheet1.xml" {
		t.Fatalf("unexpected source part %s %v", src, ok)
	}

	root := newRelationshipCollection(packageRoot)
	r, _ := root.add("xl/workbook.xml", Internal, RelationshipTypeCoreDocument, "")
	if r.SourceURI() != "/" {
		t.Fatalf("expected root source, got %s", r.SourceURI())
	}
	if _, ok := r.SourcePart(); ok {
		t.Fatal("package relationship has no source part")
	}
	if _, err := root.add("#frag", Internal, "urn:t", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := root.get("rId2"); err != nil {
		t.Fatal(err)
	}
	rf, _ := root.get("rId2")
	if _, err := rf.ResolveTarget(); !errors.Is(err, ErrInvalidPartName) {
		t.Fatalf("expected ErrInvalidPartName for root fragment, got %v", err)
	}
}

func TestRelationshipsMarshal(t *testing.T) {
	root := newRelationshipCollection(packageRoot)
	root.add("/xl/workbook.xml", Internal, RelationshipTypeCoreDocument, "")
	root.add("https://example.com/a b", External, RelationshipTypeHyperlink, "")

	b, err := root.marshal()
	if err != nil {
		t.Fatal(err)
	}
	s := string(b)
	if !strings.Contains(s, `Target="xl/workbook.xml"`) {
		t.Fatalf("root target must be written without leading slash: %s", s)
	}
	if !strings.Contains(s, `TargetMode="External"`) {
		t.Fatalf("missing external mode: %s", s)
	}
	if strings.Count(s, "TargetMode") != 1 {
		t.Fatalf("internal mode must be implicit: %s", s)
	}

	got, err := parseRelationships(packageRoot, b)
	if err != nil {
		t.Fatal(err)
	}
	rels := got.all()
	if len(rels) != 2 {
		t.Fatalf("expected 2 relationships, got %d", len(rels))
	}
	if rels[0].ID() != "rId1" || rels[0].Target() != "xl/workbook.xml" || rels[0].TargetMode() != Internal {
		t.Fatalf("unexpected first relationship %+v", rels[0])
	}
	if rels[1].Target() != "https://example.com/a b" || rels[1].TargetMode() != External {
		t.Fatalf("unexpected second relationship %+v", rels[1])
	}

	part := newRelationshipCollection("/xl/worksheets/sheet1.xml")
	part.add("/xl/styles.xml#frag", Internal, "urn:t", "")
	b, _ = part.marshal()
	if !strings.Contains(string(b), `Target="../styles.xml#frag"`) {
		t.Fatalf("expected relative target with fragment: %s", b)
	}
}

func TestParseRelationshipsMalformed(t *testing.T) {
	cases := map[string]string{
		"not xml":      "<",
		"wrong root":   `<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`,
		"unknown elem": relsHeader + `<Foo/></Relationships>`,
		"no id":        relsHeader + `<Relationship Type="urn:t" Target="a.xml"/></Relationships>`,
		"no type":      relsHeader + `<Relationship Id="rId1" Target="a.xml"/></Relationships>`,
		"no target":    relsHeader + `<Relationship Id="rId1" Type="urn:t"/></Relationships>`,
		"bad mode":     relsHeader + `<Relationship Id="rId1" Type="urn:t" Target="a.xml" TargetMode="Elsewhere"/></Relationships>`,
		"duplicate id": relsHeader + `<Relationship Id="rId1" Type="urn:t" Target="a.xml"/><Relationship Id="rId1" Type="urn:t" Target="b.xml"/></Relationships>`,
		"rels target":  relsHeader + `<Relationship Id="rId1" Type="urn:t" Target="_rels/x.rels"/></Relationships>`,
	}
	for name, doc := range cases {
		_, err := parseRelationships("/word/document.xml", []byte(doc))
		if !errors.Is(err, ErrMalformedRelationships) || !errors.Is(err, ErrInvalidFormat) {
			t.Fatalf("%s: expected ErrMalformedRelationships, got %v", name, err)
		}
	}

	ok := relsHeader + `<Relationship Id="rId1" Type="urn:t" Target="" TargetMode="External"/></Relationships>`
	if _, err := parseRelationships("/word/document.xml", []byte(ok)); err != nil {
		t.Fatalf("empty external target should parse: %v", err)
	}
}
