package notify

import (
	"strings"
	"testing"
)

func TestFormatRoadmapChange(t *testing.T) {
	before := Counts{Immediate: 2, Planned: 3, Deferred: 1}

	if _, _, ok := FormatRoadmapChange("items", before, before); ok {
		t.Fatalf("unchanged counts should not notify")
	}

	cases := []struct {
		name  string
		after Counts
		title string
	}{
		{"more immediate", Counts{Immediate: 3, Planned: 3, Deferred: 1}, "cisoplan: new immediate work"},
		{"less immediate", Counts{Immediate: 1, Planned: 3, Deferred: 1}, "cisoplan: immediate work done"},
		{"planned only", Counts{Immediate: 2, Planned: 2, Deferred: 1}, "cisoplan: roadmap changed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			title, message, ok := FormatRoadmapChange("items", before, tc.after)
			if !ok {
				t.Fatalf("expected notification")
			}
			if title != tc.title {
				t.Fatalf("title = %q, want %q", title, tc.title)
			}
			if !strings.HasPrefix(message, "items: ") || !strings.HasSuffix(message, "(was 2/3/1)") {
				t.Fatalf("message = %q", message)
			}
		})
	}
}

func TestDisabledNotifierIsNoop(t *testing.T) {
	var nilNotifier *Notifier
	if err := nilNotifier.Send("t", "m"); err != nil {
		t.Fatalf("nil notifier: %v", err)
	}
	if err := (&Notifier{}).Send("t", "m"); err != nil {
		t.Fatalf("disabled notifier: %v", err)
	}
}
