package render

import (
	"testing"

	"github.com/mostlycached/grain/internal/dimension"
)

func TestParseDimensionTagsTrailingLine(t *testing.T) {
	content := "You leaned into novelty this week, letting curiosity lead.\n\ndimensions: serendipity_following, mobility, nature_mirror"

	got := ParseDimensionTags(content)
	want := []dimension.Dimension{dimension.SerendipityFollowing, dimension.Mobility, dimension.NatureMirror}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestParseDimensionTagsScanFallback(t *testing.T) {
	content := "A session of pure order and quiet enclosure."
	got := ParseDimensionTags(content)
	want := []dimension.Dimension{dimension.Order, dimension.Enclosure}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestParseDimensionTagsUnmatchedText(t *testing.T) {
	if got := ParseDimensionTags("nothing here matches any axis"); len(got) != 0 {
		t.Errorf("got %v, want no tags", got)
	}
	if got := ParseDimensionTags(""); len(got) != 0 {
		t.Errorf("got %v from empty text, want no tags", got)
	}
}

func TestParseDimensionTagsDedup(t *testing.T) {
	got := ParseDimensionTags("dimensions: food, food, power")
	if len(got) != 2 {
		t.Fatalf("got %v, want [food power]", got)
	}
}

func TestMockClientRecordsCalls(t *testing.T) {
	m := &MockClient{Response: &Response{Content: "ok"}}
	resp, err := m.Complete(nil, "prompt-1")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "ok" {
		t.Errorf("Content = %q, want ok", resp.Content)
	}
	if len(m.Calls) != 1 || m.Calls[0] != "prompt-1" {
		t.Errorf("Calls = %v, want [prompt-1]", m.Calls)
	}
}
