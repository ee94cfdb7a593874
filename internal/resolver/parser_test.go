package resolver

import (
	"testing"
)

func TestParseFrontmatter(t *testing.T) {
	content := []byte("---\ndescription: review helper\nmode: agent\ntools: [search]\n---\n# Body\ntext\n")

	fm, body, err := ParseFrontmatter(content)
	if err != nil {
		t.Fatalf("ParseFrontmatter: %v", err)
	}
	if fm.Description != "review helper" {
		t.Fatalf("description = %q", fm.Description)
	}
	if fm.Mode != "agent" {
		t.Fatalf("mode = %q", fm.Mode)
	}
	if len(fm.Tools) != 1 || fm.Tools[0] != "search" {
		t.Fatalf("tools = %v", fm.Tools)
	}
	if body != "# Body\ntext\n" {
		t.Fatalf("body = %q", body)
	}
}

func TestParseFrontmatterAbsent(t *testing.T) {
	fm, body, err := ParseFrontmatter([]byte("# Just markdown\n"))
	if err != nil {
		t.Fatalf("ParseFrontmatter: %v", err)
	}
	if fm.Description != "" || fm.Mode != "" || len(fm.Tools) != 0 {
		t.Fatalf("expected zero frontmatter, got %+v", fm)
	}
	if body != "# Just markdown\n" {
		t.Fatalf("body = %q", body)
	}
}

func TestParseFrontmatterMalformedStillReturnsBody(t *testing.T) {
	_, body, err := ParseFrontmatter([]byte("---\ndescription: [unclosed\n---\nbody\n"))
	if err == nil {
		t.Fatalf("expected error for malformed header")
	}
	if body != "body\n" {
		t.Fatalf("body = %q", body)
	}
}

func TestParseReferencesOrderAndFiltering(t *testing.T) {
	body := "Use [child](sub/child.prompt.md) first.\n" +
		"Then #file:notes.txt and [docs](https://example.com/doc).\n" +
		"Also [anchor](#section) and [mail](mailto:x@y.z).\n" +
		"Finally [leaf](../leaf.md).\n"

	got := ParseReferences(body)
	want := []string{"sub/child.prompt.md", "notes.txt", "../leaf.md"}
	if len(got) != len(want) {
		t.Fatalf("references = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("references[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestParseReferencesEmptyBody(t *testing.T) {
	if refs := ParseReferences("no links here"); len(refs) != 0 {
		t.Fatalf("expected no references, got %v", refs)
	}
}
