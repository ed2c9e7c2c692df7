// Package ui は todo リストのターミナルUIです (bubbletea)。
// 表示と入力だけを受け持ち、状態の変更はすべて todosync.Engine に依頼します。
package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"theone-todo/internal/models"
	"theone-todo/internal/todosync"
)

// Title は画面のタイトルです。
const Title = "Todo List of 'The One'"

type focus int

const (
	focusText focus = iota
	focusDeadline
	focusList
	focusCount
)

type keyMap struct {
	Add    key.Binding
	Next   key.Binding
	Prev   key.Binding
	Up     key.Binding
	Down   key.Binding
	Toggle key.Binding
	Delete key.Binding
	Quit   key.Binding
}

var keys = keyMap{
	Add:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "add")),
	Next:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
	Prev:   key.NewBinding(key.WithKeys("shift+tab")),
	Up:     key.NewBinding(key.WithKeys("up"), key.WithHelp("↑/↓", "move")),
	Down:   key.NewBinding(key.WithKeys("down")),
	Toggle: key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("space/ctrl+t", "toggle")),
	Delete: key.NewBinding(key.WithKeys("ctrl+d"), key.WithHelp("x/ctrl+d", "delete")),
	Quit:   key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "quit")),
}

// リストにフォーカスがあるときだけ有効なキー
var (
	listToggle = key.NewBinding(key.WithKeys(" ", "space"))
	listDelete = key.NewBinding(key.WithKeys("x"))
	listUp     = key.NewBinding(key.WithKeys("k"))
	listDown   = key.NewBinding(key.WithKeys("j"))
)

// changedMsg はエンジンの状態が変わったことを表します。
type changedMsg struct{}

// opDoneMsg は追加・切り替え・削除が終わったことを表します。
type opDoneMsg struct {
	op  string
	err error
}

// Model は bubbletea のモデルです。
type Model struct {
	ctx    context.Context
	engine *todosync.Engine

	text     textinput.Model
	deadline textinput.Model
	focus    focus
	cursor   int
	items    []models.TodoItem
	status   string
	failed   bool
}

// New は engine を表示するモデルを作成します。
func New(ctx context.Context, engine *todosync.Engine) Model {
	text := textinput.New()
	text.Prompt = "Todo: "
	text.Placeholder = "what needs doing?"
	text.CharLimit = 200
	text.SetValue(engine.PendingText())
	text.Focus()

	deadline := textinput.New()
	deadline.Prompt = "Deadline: "
	deadline.Placeholder = models.DeadlineLayout
	deadline.CharLimit = len(models.DeadlineLayout)
	deadline.SetValue(engine.PendingDeadline().String())

	return Model{
		ctx:      ctx,
		engine:   engine,
		text:     text,
		deadline: deadline,
		items:    engine.Items(),
	}
}

// waitForChange はエンジンの次の変更を待つコマンドです。
func (m Model) waitForChange() tea.Cmd {
	changes := m.engine.Changes()
	ctx := m.ctx
	return func() tea.Msg {
		select {
		case <-changes:
			return changedMsg{}
		case <-ctx.Done():
			return nil
		}
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForChange())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case changedMsg:
		m.refresh()
		if err := m.engine.LastError(); err != nil {
			m.setError(err)
		}
		return m, m.waitForChange()

	case opDoneMsg:
		m.refresh()
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.status, m.failed = msg.op, false
		if msg.op == "added" {
			m.text.SetValue(m.engine.PendingText())
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m.updateInput(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Next):
		m.setFocus((m.focus + 1) % focusCount)
		return m, nil
	case key.Matches(msg, keys.Prev):
		m.setFocus((m.focus + focusCount - 1) % focusCount)
		return m, nil
	case key.Matches(msg, keys.Up), m.focus == focusList && key.Matches(msg, listUp):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case key.Matches(msg, keys.Down), m.focus == focusList && key.Matches(msg, listDown):
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
		return m, nil
	case key.Matches(msg, keys.Toggle), m.focus == focusList && key.Matches(msg, listToggle):
		return m, m.selectedCmd("toggled", m.engine.ToggleTodo)
	case key.Matches(msg, keys.Delete), m.focus == focusList && key.Matches(msg, listDelete):
		return m, m.selectedCmd("deleted", m.engine.DeleteTodo)
	case key.Matches(msg, keys.Add) && m.focus != focusList:
		return m.submit()
	}
	return m.updateInput(msg)
}

// updateInput はフォーカス中の入力欄にメッセージを渡し、エンジンの入力中の値と同期します。
func (m Model) updateInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focus {
	case focusText:
		m.text, cmd = m.text.Update(msg)
		m.engine.SetPendingText(m.text.Value())
	case focusDeadline:
		m.deadline, cmd = m.deadline.Update(msg)
		if d, err := models.ParseDeadline(m.deadline.Value()); err == nil {
			m.engine.SetPendingDeadline(d)
		}
	}
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	d, err := models.ParseDeadline(m.deadline.Value())
	if err != nil {
		m.setError(err)
		return m, nil
	}
	if strings.TrimSpace(m.text.Value()) == "" {
		m.status, m.failed = "nothing to add", false
		return m, nil
	}
	m.engine.SetPendingText(m.text.Value())
	m.engine.SetPendingDeadline(d)

	ctx, engine := m.ctx, m.engine
	m.status, m.failed = "saving…", false
	return m, func() tea.Msg {
		return opDoneMsg{op: "added", err: engine.Submit(ctx)}
	}
}

func (m Model) selectedCmd(op string, fn func(context.Context, string) error) tea.Cmd {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return nil
	}
	id, ctx := m.items[m.cursor].ID, m.ctx
	return func() tea.Msg {
		return opDoneMsg{op: op, err: fn(ctx, id)}
	}
}

func (m *Model) setFocus(f focus) {
	m.focus = f
	m.text.Blur()
	m.deadline.Blur()
	switch f {
	case focusText:
		m.text.Focus()
	case focusDeadline:
		m.deadline.Focus()
	}
}

func (m *Model) refresh() {
	m.items = m.engine.Items()
	if m.cursor >= len(m.items) {
		m.cursor = len(m.items) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) setError(err error) {
	m.status, m.failed = err.Error(), true
}

func (m Model) View() string {
	var b strings.Builder

	done := 0
	for _, it := range m.items {
		if it.Completed {
			done++
		}
	}
	user := m.engine.Current()
	fmt.Fprintf(&b, "%s   %s %d  %s %d  %s\n",
		titleStyle.Render(Title),
		successStyle.Render("✔"), done,
		pendingStyle.Render("•"), len(m.items)-done,
		accentStyle.Render(user.String()),
	)

	textBox, deadlineBox := inputBoxStyle, inputBoxStyle
	switch m.focus {
	case focusText:
		textBox = focusedBoxStyle
	case focusDeadline:
		deadlineBox = focusedBoxStyle
	}
	b.WriteString(textBox.Render(m.text.View()) + "\n")
	b.WriteString(deadlineBox.Render(m.deadline.View()) + "\n")

	if !user.Authenticated() {
		b.WriteString(mutedStyle.Render("not logged in") + "\n")
	} else if len(m.items) == 0 {
		b.WriteString(mutedStyle.Render("nothing to do") + "\n")
	}
	for i, it := range m.items {
		box, text := mutedStyle.Render(boxUnchecked), it.DisplayText
		if it.Completed {
			box, text = successStyle.Render(boxChecked), doneStyle.Render(text)
		}
		prefix := "  "
		if i == m.cursor && m.focus == focusList {
			prefix = selectedStyle.Render("> ")
		} else if i == m.cursor {
			prefix = "> "
		}
		fmt.Fprintf(&b, "%s%s %s\n", prefix, box, text)
	}

	if m.status != "" {
		if m.failed {
			b.WriteString(errorStyle.Render("✖ "+m.status) + "\n")
		} else {
			b.WriteString(mutedStyle.Render(m.status) + "\n")
		}
	}
	b.WriteString(helpStyle.Render(helpLine()))
	return panelStyle.Render(b.String())
}

func helpLine() string {
	var parts []string
	for _, k := range []key.Binding{keys.Add, keys.Next, keys.Up, keys.Toggle, keys.Delete, keys.Quit} {
		h := k.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " • ")
}

// Run は TUI を起動し、終了するまで戻りません。
func Run(ctx context.Context, engine *todosync.Engine, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	_, err := tea.NewProgram(New(ctx, engine), opts...).Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
