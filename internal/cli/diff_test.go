package cli

import (
	"fmt"
	"strings"
	"testing"
)

func TestLineDiffUnchanged(t *testing.T) {
	if got := lineDiff("a\nb\n", "a\nb\n"); got != "" {
		t.Fatalf("expected empty diff, got %q", got)
	}
}

func TestLineDiffAppend(t *testing.T) {
	got := lineDiff("a\nb\n", "a\nb\nc\n")
	want := "  a\n  b\n+ c\n"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestLineDiffFromEmpty(t *testing.T) {
	got := lineDiff("", "{\n}\n")
	if got != "+ {\n+ }\n" {
		t.Fatalf("unexpected diff %q", got)
	}
}

func TestLineDiffCollapsesContext(t *testing.T) {
	var before, after []string
	for i := 1; i <= 10; i++ {
		before = append(before, fmt.Sprintf("line %d", i))
		after = append(after, fmt.Sprintf("line %d", i))
	}
	after[9] = "changed"

	got := lineDiff(strings.Join(before, "\n")+"\n", strings.Join(after, "\n")+"\n")
	if !strings.Contains(got, "  ...\n  line 7\n  line 8\n  line 9\n") {
		t.Fatalf("expected collapsed leading context, got %q", got)
	}
	if strings.Contains(got, "  line 1\n") {
		t.Fatalf("expected line 1 to be collapsed, got %q", got)
	}
	if !strings.Contains(got, "- line 10\n") || !strings.Contains(got, "+ changed\n") {
		t.Fatalf("expected change lines, got %q", got)
	}
}
