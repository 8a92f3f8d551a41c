package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/franksops/gopull/engine"
)

func TestViewBeforeFirstResize(t *testing.T) {
	m := NewModel(5, nil)
	if got := m.View(); got != "Initializing..." {
		t.Errorf("Expected the placeholder view, got %q", got)
	}
}

func TestViewShowsCounters(t *testing.T) {
	m := NewModel(4, nil)

	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	next, _ = next.Update(ResultMsg{
		Result: engine.ResultEvent{JobID: "a", Destination: "/out/a.wav", Status: engine.StatusCompleted, Bytes: 10},
		Agg:    engine.Aggregate{Total: 4, Finished: 1, Active: 2},
	})
	next, _ = next.Update(ResultMsg{
		Result: engine.ResultEvent{JobID: "b", Destination: "/out/b.wav", Status: engine.StatusFailed, Err: "boom"},
		Agg:    engine.Aggregate{Total: 4, Finished: 1, Failed: 1, Active: 2},
	})

	view := next.View()
	if !strings.Contains(view, "Progress: 2/4") {
		t.Errorf("Expected settled counters in the view:\n%s", view)
	}
	if !strings.Contains(view, "1 completed, 1 failed") {
		t.Errorf("Expected per-status counters in the view:\n%s", view)
	}
}

func TestViewAfterCompletion(t *testing.T) {
	m := NewModel(2, nil)

	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	next, _ = next.Update(CompletedMsg{Finished: 2, Total: 2})

	view := next.View()
	if !strings.Contains(view, "Run complete") {
		t.Errorf("Expected the completion banner:\n%s", view)
	}
	if !strings.Contains(view, "Press 'q' to exit") {
		t.Errorf("Expected the exit hint:\n%s", view)
	}
}

func TestStopKeyInvokesCallback(t *testing.T) {
	var stops int
	m := NewModel(3, func() { stops++ })

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}})
	// A second press while already stopping must not fire again.
	next, _ = next.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}})
	_ = next

	if stops != 1 {
		t.Errorf("Expected one stop call, got %d", stops)
	}
}

func TestQuitKeyStopsRun(t *testing.T) {
	var stops int
	m := NewModel(3, func() { stops++ })

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("Expected a quit command")
	}
	if stops != 1 {
		t.Errorf("Expected the run to be stopped on quit, got %d stop calls", stops)
	}
}

func TestQuitAfterCompletionDoesNotStop(t *testing.T) {
	var stops int
	m := NewModel(1, func() { stops++ })

	next, _ := m.Update(CompletedMsg{Finished: 1, Total: 1})
	next, _ = next.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	_ = next

	if stops != 0 {
		t.Errorf("A completed run has nothing to stop, got %d stop calls", stops)
	}
}

func TestTruncatePath(t *testing.T) {
	tests := []struct {
		path string
		max  int
		want string
	}{
		{"/short", 60, "/short"},
		{"/a/very/long/path/to/somewhere/deep/file.wav", 20, "...ere/deep/file.wav"},
		{"abc", 2, "abc"},
	}
	for _, tt := range tests {
		got := truncatePath(tt.path, tt.max)
		if got != tt.want {
			t.Errorf("truncatePath(%q, %d) = %q, want %q", tt.path, tt.max, got, tt.want)
		}
		if tt.max >= 4 && len(got) > tt.max {
			t.Errorf("truncatePath(%q, %d) returned %d bytes", tt.path, tt.max, len(got))
		}
	}
}
