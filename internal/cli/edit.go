package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/flowscope/flowscope/pkg/diagram"
	"github.com/flowscope/flowscope/pkg/editor"
)

// moveStep is the coordinate step per keypress while moving an element.
const moveStep = 5.0

func newEditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit <diagram.json>",
		Short: "Edit a flow diagram interactively",
		Long: `Edit opens a terminal editor for a flow diagram.

Navigation selects a node, Enter begins moving it (arrow keys, Enter to
commit, Esc to cancel), and the full session history is available through
undo and redo. Manual positions are saved to an overlay file next to the
diagram so the source file stays untouched.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			cfg := configFromContext(cmd.Context())

			sess, err := openSession(args[0], cfg, logger)
			if err != nil {
				return err
			}

			m := newEditModel(sess, args[0])
			p := tea.NewProgram(m, tea.WithAltScreen())
			final, err := p.Run()
			if err != nil {
				return fmt.Errorf("run editor: %w", err)
			}
			if fm, ok := final.(editModel); ok && fm.saveErr != nil {
				return fm.saveErr
			}
			return nil
		},
	}
}

// =============================================================================
// editModel - Interactive diagram editing
// =============================================================================

type editMode int

const (
	modeBrowse editMode = iota
	modeMove
)

// editModel is the bubbletea model for the interactive editor.
type editModel struct {
	session *editor.Session
	path    string

	cursor  int
	mode    editMode
	kind    editor.Kind // target kind for the next move
	status  string
	saveErr error

	// Running keyboard delta of the in-flight move. Key events carry
	// steps, and UpdateDrag wants absolute sample coordinates.
	dx, dy float64
}

func newEditModel(s *editor.Session, path string) editModel {
	return editModel{
		session: s,
		path:    path,
		kind:    editor.KindNode,
		status:  "ready",
	}
}

func (m editModel) Init() tea.Cmd {
	return nil
}

func (m editModel) nodes() []diagram.Node {
	return m.session.Diagram().Nodes
}

func (m editModel) selected() string {
	nodes := m.nodes()
	if len(nodes) == 0 {
		return ""
	}
	if m.cursor >= len(nodes) {
		return nodes[len(nodes)-1].Name
	}
	return nodes[m.cursor].Name
}

func (m editModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	if m.mode == modeMove {
		return m.updateMove(key)
	}
	return m.updateBrowse(key)
}

func (m editModel) updateBrowse(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.nodes())-1 {
			m.cursor++
		}

	case "enter", " ":
		id := m.selected()
		if id == "" {
			break
		}
		if m.session.StartDrag(m.kind, id, 0, 0) {
			m.mode = modeMove
			m.dx, m.dy = 0, 0
			m.status = fmt.Sprintf("moving %s %s", m.kind, id)
		} else {
			m.status = fmt.Sprintf("cannot move %s %s", m.kind, id)
		}

	case "tab":
		if m.kind == editor.KindNode {
			m.kind = editor.KindLabel
		} else {
			m.kind = editor.KindNode
		}
		m.status = fmt.Sprintf("move target: %s", m.kind)

	case "u":
		if m.session.Undo() {
			m.status = "undone"
		} else {
			m.status = "nothing to undo"
		}
	case "r":
		if m.session.Redo() {
			m.status = "redone"
		} else {
			m.status = "nothing to redo"
		}

	case "R":
		m.session.ResetPositions(true)
		m.status = "node positions reset"
	case "L":
		m.session.ResetLabels(true)
		m.status = "labels reset"

	case "s":
		if err := m.save(); err != nil {
			m.saveErr = err
			return m, tea.Quit
		}
		m.status = "saved"
	}
	return m, nil
}

func (m editModel) updateMove(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	dx, dy := 0.0, 0.0
	switch key.String() {
	case "up", "k":
		dy = -moveStep
	case "down", "j":
		dy = moveStep
	case "left", "h":
		dx = -moveStep
	case "right", "l":
		dx = moveStep

	case "enter", " ":
		if m.session.EndDrag() {
			m.status = "move committed"
		} else {
			m.status = "move dropped"
		}
		m.mode = modeBrowse
		return m, nil

	case "esc", "q", "ctrl+c":
		m.session.CancelDrag()
		m.mode = modeBrowse
		m.status = "move cancelled"
		return m, nil

	default:
		return m, nil
	}

	m.dx += dx
	m.dy += dy
	_, _ = m.session.UpdateDrag(m.dx, m.dy)
	return m, nil
}

func (m editModel) save() error {
	if err := diagram.WriteFile(m.session.Diagram(), m.path); err != nil {
		return fmt.Errorf("write diagram: %w", err)
	}
	return saveOverlay(m.session, m.path)
}

// =============================================================================
// View
// =============================================================================

func (m editModel) View() string {
	var b strings.Builder

	title := m.session.Diagram().Title
	if title == "" {
		title = m.path
	}
	b.WriteString(StyleTitle.Render("Flowscope — " + title))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("↑/↓ select  ⏎ move  ⇥ node/label  u undo  r redo  R reset  s save  q quit"))
	b.WriteString("\n\n")

	for i, n := range m.nodes() {
		cursor := "  "
		if i == m.cursor {
			cursor = "▸ "
		}

		pos := m.session.FinalPosition(n.Name)
		line := fmt.Sprintf("%s%-20s", cursor, n.Name)
		if pos != nil {
			line += StyleDim.Render(fmt.Sprintf("  (%.0f, %.0f)", pos.X, pos.Y))
		}
		if off := m.session.Overlay().NodeOffset(n.Name); off != nil {
			line += StyleHighlight.Render(fmt.Sprintf("  Δ%.0f,%.0f", off.DX, off.DY))
		}
		if m.mode == modeMove {
			if _, id, ok := m.session.DragTarget(); ok && id == n.Name {
				if p := m.session.TransientPosition(); p != nil {
					line += StyleWarning.Render(fmt.Sprintf("  → (%.0f, %.0f)", p.X, p.Y))
				}
			}
		}

		if i == m.cursor {
			b.WriteString(listSelectedStyle.Render(line))
		} else {
			b.WriteString(listNormalStyle.Render(line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	st := m.session.StackState()
	stack := fmt.Sprintf("undo:%s redo:%s", mark(st.CanUndo), mark(st.CanRedo))
	b.WriteString(StyleDim.Render(stack))
	b.WriteString("  ")
	b.WriteString(StyleValue.Render(m.status))
	b.WriteString("\n")

	return b.String()
}

func mark(ok bool) string {
	if ok {
		return StyleSuccess.Render("✓")
	}
	return StyleDim.Render("—")
}

// List styles shared with other interactive views.
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
)
