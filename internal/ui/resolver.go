// Package ui provides the interactive duplicate resolver: a terminal view
// of duplicate groups where the user marks files for deletion and the
// outcome is a reviewable deletion script, never a direct delete.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/BurtHarris/dupescan/internal/detector"
	"github.com/BurtHarris/dupescan/internal/resolve"
	"github.com/BurtHarris/dupescan/internal/scanner"
	"github.com/BurtHarris/dupescan/internal/ui/styles"
)

// ResolverModel walks the user through duplicate groups one at a time.
type ResolverModel struct {
	groups   []*detector.DuplicateGroup
	groupIdx int
	cursor   int // file cursor within the current group

	// marked holds paths the user (or auto-selection) chose to delete.
	marked map[string]bool

	viewport viewport.Model
	width    int
	height   int

	confirming bool
	done       bool
	aborted    bool
}

// NewResolverModel creates the resolver over the given duplicate groups.
// Numbered browser duplicates are pre-marked where that is unambiguous.
func NewResolverModel(groups []*detector.DuplicateGroup) *ResolverModel {
	marked := make(map[string]bool)
	for _, g := range groups {
		for _, f := range resolve.AutoSelect(g) {
			marked[f.Path] = true
		}
	}

	return &ResolverModel{
		groups:   groups,
		marked:   marked,
		viewport: viewport.New(80, 16),
		width:    80,
		height:   24,
	}
}

// Init implements tea.Model
func (m *ResolverModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m *ResolverModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width - 4
		m.viewport.Height = msg.Height - 10

	case tea.KeyMsg:
		if m.confirming {
			return m.updateConfirm(msg)
		}
		return m.updateBrowse(msg)
	}

	return m, nil
}

func (m *ResolverModel) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	group := m.current()

	switch msg.String() {
	case "q", "esc", "ctrl+c":
		m.aborted = true
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if group != nil && m.cursor < len(group.Files)-1 {
			m.cursor++
		}

	case "left", "p":
		if m.groupIdx > 0 {
			m.groupIdx--
			m.cursor = 0
		}
	case "right", "n":
		if m.groupIdx < len(m.groups)-1 {
			m.groupIdx++
			m.cursor = 0
		}

	case " ":
		if group != nil {
			path := group.Files[m.cursor].Path
			if m.marked[path] {
				delete(m.marked, path)
			} else if m.deletable(group, path) {
				m.marked[path] = true
			}
		}

	case "a":
		// Re-run auto-selection for this group only.
		if group != nil {
			for _, f := range group.Files {
				delete(m.marked, f.Path)
			}
			for _, f := range resolve.AutoSelect(group) {
				m.marked[f.Path] = true
			}
		}

	case "u":
		if group != nil {
			for _, f := range group.Files {
				delete(m.marked, f.Path)
			}
		}

	case "pgup":
		m.viewport.ScrollUp(m.viewport.Height)
	case "pgdown":
		m.viewport.ScrollDown(m.viewport.Height)

	case "enter", "w":
		if len(m.marked) > 0 {
			m.confirming = true
		}
	}

	return m, nil
}

func (m *ResolverModel) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "enter":
		m.done = true
		return m, tea.Quit
	case "n", "esc", "q":
		m.confirming = false
	case "ctrl+c":
		m.aborted = true
		return m, tea.Quit
	}
	return m, nil
}

// deletable refuses to mark the last unmarked member of a group: at least
// one copy always survives.
func (m *ResolverModel) deletable(group *detector.DuplicateGroup, path string) bool {
	remaining := 0
	for _, f := range group.Files {
		if !m.marked[f.Path] && f.Path != path {
			remaining++
		}
	}
	return remaining > 0
}

func (m *ResolverModel) current() *detector.DuplicateGroup {
	if len(m.groups) == 0 {
		return nil
	}
	return m.groups[m.groupIdx]
}

// View implements tea.Model
func (m *ResolverModel) View() string {
	if m.done || m.aborted {
		return ""
	}

	var b strings.Builder

	b.WriteString(styles.TitleStyle.Render("dupescan: resolve duplicates"))
	b.WriteString("\n")

	group := m.current()
	if group == nil {
		b.WriteString("No duplicate groups found.\n\n")
		b.WriteString(styles.HelpStyle.Render("q: quit"))
		return b.String()
	}

	if m.confirming {
		return m.confirmView(&b)
	}

	b.WriteString(fmt.Sprintf("Group %d/%d: %d files, %s reclaimable\n\n",
		m.groupIdx+1, len(m.groups), len(group.Files),
		humanize.IBytes(uint64(group.WastedSpace()))))

	var list strings.Builder
	for i, f := range group.Files {
		cursor := "  "
		if i == m.cursor {
			cursor = styles.SelectedStyle.Render("> ")
		}

		box := styles.KeepStyle.Render("[keep]  ")
		if m.marked[f.Path] {
			box = styles.DeleteStyle.Render("[delete]")
		}

		var markers []string
		if resolve.IsNumberedDuplicate(f.Path) {
			markers = append(markers, "(N)")
		}
		if resolve.IsAutoGeneratedName(f.Path) {
			markers = append(markers, "AUTO")
		}
		if resolve.IsSeriesNumbered(f.Path) {
			markers = append(markers, "SERIES")
		}
		marker := ""
		if len(markers) > 0 {
			marker = " " + styles.MarkerStyle.Render(strings.Join(markers, " "))
		}

		list.WriteString(fmt.Sprintf("%s%s %s (%s)%s\n",
			cursor, box, styles.FilePathStyle.Render(f.Path),
			humanize.IBytes(uint64(f.Size)), marker))
	}
	m.viewport.SetContent(list.String())
	b.WriteString(m.viewport.View())
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("Marked for deletion: %d files\n", len(m.marked)))
	b.WriteString(styles.HelpStyle.Render(
		"↑/↓: file  ←/→: group  space: toggle  a: auto  u: unmark  enter: write script  q: quit"))
	return b.String()
}

func (m *ResolverModel) confirmView(b *strings.Builder) string {
	var total int64
	for _, g := range m.groups {
		for _, f := range g.Files {
			if m.marked[f.Path] {
				total += f.Size
			}
		}
	}

	panel := fmt.Sprintf("Write deletion script for %d files (%s)?\n\n%s",
		len(m.marked), humanize.IBytes(uint64(total)),
		styles.HelpStyle.Render("y: write  n: back"))
	b.WriteString(styles.PanelStyle.Render(panel))
	return b.String()
}

// Selected returns the files marked for deletion, in group order.
func (m *ResolverModel) Selected() []*scanner.FileRecord {
	var files []*scanner.FileRecord
	for _, g := range m.groups {
		for _, f := range g.Files {
			if m.marked[f.Path] {
				files = append(files, f)
			}
		}
	}
	return files
}

// Aborted reports whether the user quit without confirming
func (m *ResolverModel) Aborted() bool {
	return m.aborted
}

// Run starts the resolver and returns the files the user confirmed for
// deletion. An abort returns a nil slice and no error; a confirmed empty
// selection returns an empty non-nil slice.
func Run(groups []*detector.DuplicateGroup) ([]*scanner.FileRecord, error) {
	model := NewResolverModel(groups)
	p := tea.NewProgram(model, tea.WithAltScreen())

	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("interactive resolver failed: %w", err)
	}

	m, ok := final.(*ResolverModel)
	if !ok || m.Aborted() {
		return nil, nil
	}
	files := m.Selected()
	if files == nil {
		files = []*scanner.FileRecord{}
	}
	return files, nil
}
