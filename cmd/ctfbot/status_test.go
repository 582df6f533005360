package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/k17ctf/ctfbot/internal/domain"
)

func TestRenderStatus(t *testing.T) {
	color.NoColor = true

	cache := map[string]domain.CacheEntry{
		"1300": {ChannelID: 55, Subtype: domain.SubtypeCTFdTracker, Metadata: &domain.CTFdMetadata{Domain: "https://ctf.example.com", ForumChannelID: 77}},
		"900":  {ChannelID: 55, Subtype: domain.SubtypeCounter, Metadata: &domain.CounterMetadata{Count: 12}},
	}

	var out bytes.Buffer
	renderStatus(&out, cache)
	text := out.String()

	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header, two rows and a footer, got:\n%s", text)
	}
	if !strings.HasPrefix(lines[1], "900 ") {
		t.Errorf("rows should be ordered by numeric id, first row = %q", lines[1])
	}
	for _, want := range []string{"Counting: 12", "https://ctf.example.com (forum 77)", "ctfd_tracker", "2 tracked message(s)"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
}

func TestRenderStatusEmpty(t *testing.T) {
	color.NoColor = true

	var out bytes.Buffer
	renderStatus(&out, nil)
	if !strings.Contains(out.String(), "No tracked messages") {
		t.Errorf("unexpected output %q", out.String())
	}
}
