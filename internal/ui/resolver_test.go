package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/BurtHarris/dupescan/internal/detector"
	"github.com/BurtHarris/dupescan/internal/scanner"
)

func testGroups() []*detector.DuplicateGroup {
	return []*detector.DuplicateGroup{
		{
			Hash: "aaaa",
			Files: []*scanner.FileRecord{
				{Path: "/dl/invoice.pdf", Size: 1000},
				{Path: "/dl/invoice (1).pdf", Size: 1000},
			},
		},
		{
			Hash: "bbbb",
			Files: []*scanner.FileRecord{
				{Path: "/v/holiday.mp4", Size: 5000},
				{Path: "/v/holiday_copy.mp4", Size: 5000},
			},
		},
	}
}

func key(s string) tea.KeyMsg {
	if s == " " {
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	if s == "enter" {
		return tea.KeyMsg{Type: tea.KeyEnter}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(m tea.Model, keys ...string) tea.Model {
	for _, k := range keys {
		m, _ = m.Update(key(k))
	}
	return m
}

func TestNewResolverModelPreMarksNumberedDuplicates(t *testing.T) {
	m := NewResolverModel(testGroups())

	if !m.marked["/dl/invoice (1).pdf"] {
		t.Error("numbered duplicate should be pre-marked")
	}
	if m.marked["/dl/invoice.pdf"] {
		t.Error("the plain original must not be pre-marked")
	}
	if m.marked["/v/holiday.mp4"] || m.marked["/v/holiday_copy.mp4"] {
		t.Error("ambiguous group should start unmarked")
	}
}

func TestToggleMark(t *testing.T) {
	m := NewResolverModel(testGroups())

	// Move to the second group, mark its second file.
	final := press(m, "n", "j", " ")
	model := final.(*ResolverModel)
	if !model.marked["/v/holiday_copy.mp4"] {
		t.Error("space should mark the file under the cursor")
	}

	// Toggle it back off.
	final = press(model, " ")
	model = final.(*ResolverModel)
	if model.marked["/v/holiday_copy.mp4"] {
		t.Error("space should unmark a marked file")
	}
}

func TestLastCopyGuard(t *testing.T) {
	m := NewResolverModel(testGroups())

	// In group 1 the numbered copy is already marked; marking the original
	// too would delete every copy, which must be refused.
	final := press(m, " ")
	model := final.(*ResolverModel)
	if model.marked["/dl/invoice.pdf"] {
		t.Error("marking the last surviving copy must be refused")
	}
}

func TestUnmarkGroup(t *testing.T) {
	m := NewResolverModel(testGroups())

	final := press(m, "u")
	model := final.(*ResolverModel)
	if model.marked["/dl/invoice (1).pdf"] {
		t.Error("u should clear all marks in the current group")
	}
}

func TestConfirmFlow(t *testing.T) {
	m := NewResolverModel(testGroups())

	final := press(m, "enter", "y")
	model := final.(*ResolverModel)
	if !model.done || model.Aborted() {
		t.Error("enter then y should complete the resolution")
	}

	selected := model.Selected()
	if len(selected) != 1 || selected[0].Path != "/dl/invoice (1).pdf" {
		t.Errorf("Selected = %v, want the pre-marked numbered copy", selected)
	}
}

func TestConfirmBackout(t *testing.T) {
	m := NewResolverModel(testGroups())

	final := press(m, "enter", "n")
	model := final.(*ResolverModel)
	if model.done || model.confirming {
		t.Error("n on the confirm screen should return to browsing")
	}
}

func TestAbort(t *testing.T) {
	m := NewResolverModel(testGroups())

	final := press(m, "q")
	model := final.(*ResolverModel)
	if !model.Aborted() {
		t.Error("q should abort without confirming")
	}
}

func TestViewShowsMarks(t *testing.T) {
	m := NewResolverModel(testGroups())
	m.viewport.Width = 120
	m.viewport.Height = 20

	view := m.View()
	if !strings.Contains(view, "invoice.pdf") {
		t.Errorf("view missing file names:\n%s", view)
	}
}
