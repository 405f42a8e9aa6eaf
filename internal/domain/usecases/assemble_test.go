package usecases

import (
	"reflect"
	"testing"

	"github.com/edgarchat/edgarchat/internal/domain/entities"
)

func TestAssembleContext_OrderPreservingDedup(t *testing.T) {
	matches := []entities.RetrievedMatch{
		{Text: "A", SourceURL: "u1"},
		{Text: "", SourceURL: "u2"},
		{Text: "B", SourceURL: "u1"},
	}

	grounding, sources := AssembleContext(matches)

	if grounding != "A\n\nB" {
		t.Errorf("unexpected grounding context: %q", grounding)
	}
	if !reflect.DeepEqual(sources, []string{"u1"}) {
		t.Errorf("unexpected sources: %v", sources)
	}
}

func TestAssembleContext_EmptyTextDropsURL(t *testing.T) {
	matches := []entities.RetrievedMatch{
		{Text: "", SourceURL: "orphan"},
		{Text: "kept", SourceURL: "kept-url"},
	}

	grounding, sources := AssembleContext(matches)

	if grounding != "kept" {
		t.Errorf("unexpected grounding context: %q", grounding)
	}
	if !reflect.DeepEqual(sources, []string{"kept-url"}) {
		t.Errorf("a match with empty text must not contribute its URL, got %v", sources)
	}
}

func TestAssembleContext_DropsEmptyURLs(t *testing.T) {
	matches := []entities.RetrievedMatch{
		{Text: "Revenue was $5M", SourceURL: ""},
		{Text: "Revenue was $5M", SourceURL: "b"},
	}

	grounding, sources := AssembleContext(matches)

	if grounding != "Revenue was $5M\n\nRevenue was $5M" {
		t.Errorf("unexpected grounding context: %q", grounding)
	}
	if !reflect.DeepEqual(sources, []string{"b"}) {
		t.Errorf("unexpected sources: %v", sources)
	}
}

func TestAssembleContext_EmptyInput(t *testing.T) {
	grounding, sources := AssembleContext(nil)

	if grounding != "" {
		t.Errorf("expected empty grounding, got %q", grounding)
	}
	if sources != nil {
		t.Errorf("expected nil sources so the response key is omitted, got %v", sources)
	}
}

func TestAssembleContext_Idempotent(t *testing.T) {
	matches := []entities.RetrievedMatch{
		{Text: "one", SourceURL: "a"},
		{Text: "two", SourceURL: "b"},
	}

	g1, s1 := AssembleContext(matches)
	g2, s2 := AssembleContext(matches)

	if g1 != g2 || !reflect.DeepEqual(s1, s2) {
		t.Error("assembly is not idempotent")
	}
}
