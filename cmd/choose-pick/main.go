// choose-pick is an interactive companion to choose-next: it lists the
// files of a directory with their seen/unseen state, lets you fuzzy-filter
// and pick one, then records the pick in the same history log and prints
// its path. Handy for deliberately watching out of order without losing
// the rotation.
package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hayeah/choosenext/internal/histlog"
	"github.com/hayeah/choosenext/internal/lister"
)

var cursorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))

// item is one candidate file and whether the history log marks it seen.
type item struct {
	Path string
	Seen bool
}

// model holds the picker state for Bubble Tea.
type model struct {
	textInput  textinput.Model
	searchTerm string
	dir        string

	allItems      []item
	filteredItems []item

	cursor   int
	chosen   string
	quitting bool
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s DIR\n", os.Args[0])
		os.Exit(1)
	}

	dir, err := filepath.Abs(os.Args[1])
	if err != nil {
		log.Fatalf("Error resolving %s: %v", os.Args[1], err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		log.Fatalf("Error accessing %s: %v", dir, err)
	}
	if !info.IsDir() {
		log.Fatalf("Not a directory: %s", dir)
	}

	store := histlog.NewDirStore(logDir(), dir)
	history, err := store.Read()
	if err != nil {
		log.Fatalf("Failed to read history: %v", err)
	}

	candidates, err := lister.List(dir, lister.Options{Recursive: true})
	if err != nil {
		log.Fatalf("Failed to list files: %v", err)
	}

	seen := make(map[string]bool, len(history))
	for _, h := range history {
		seen[h] = true
	}

	items := make([]item, 0, len(candidates))
	for _, c := range candidates {
		items = append(items, item{Path: c, Seen: seen[c]})
	}

	ti := textinput.New()
	ti.Placeholder = "Type to filter..."
	ti.Prompt = "> "
	ti.Focus()

	m := model{
		textInput:     ti,
		dir:           dir,
		allItems:      items,
		filteredItems: items,
	}

	final, err := tea.NewProgram(m).Run()
	if err != nil {
		log.Fatal(err)
	}

	chosen := final.(model).chosen
	if chosen == "" {
		os.Exit(1)
	}

	if err := store.Append([]string{chosen}); err != nil {
		log.Fatalf("Failed to record pick: %v", err)
	}
	fmt.Println(filepath.Join(dir, chosen))
}

// logDir mirrors the CLI's log directory resolution.
func logDir() string {
	if env := os.Getenv("CHOOSE_NEXT_LOGDIR"); env != "" {
		return env
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".choose_next"
	}
	return filepath.Join(home, ".choose_next")
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.quitting {
		return m, tea.Quit
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {

		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit

		case "enter":
			if len(m.filteredItems) > 0 {
				m.chosen = m.filteredItems[m.cursor].Path
			}
			m.quitting = true
			return m, tea.Quit

		case "up":
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil

		case "down":
			if m.cursor < len(m.filteredItems)-1 {
				m.cursor++
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		return m, nil
	}

	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	newSearchTerm := m.textInput.Value()
	if newSearchTerm != m.searchTerm {
		m.searchTerm = newSearchTerm
		m.refilter()
	}

	return m, cmd
}

func (m model) View() string {
	if m.quitting {
		return ""
	}
	if len(m.allItems) == 0 {
		return "No files found.\n"
	}

	// Left column: the filtered candidates with seen markers.
	var listBuilder strings.Builder
	for i, it := range m.filteredItems {
		cursor := " "
		if i == m.cursor {
			cursor = ">"
		}
		mark := " "
		if it.Seen {
			mark = "x"
		}
		line := fmt.Sprintf("%s [%s] %s", cursor, mark, it.Path)
		if i == m.cursor {
			line = cursorStyle.Render(line)
		}
		listBuilder.WriteString(line)
		listBuilder.WriteByte('\n')
	}

	// Right column: preview of the file under the cursor.
	var previewBuilder strings.Builder
	if len(m.filteredItems) > 0 {
		curr := m.filteredItems[m.cursor]
		lines, err := previewLines(filepath.Join(m.dir, curr.Path), 10)
		if err != nil {
			previewBuilder.WriteString(fmt.Sprintf("Error reading file: %v\n", err))
		} else {
			previewBuilder.WriteString(fmt.Sprintf("Preview of %s:\n\n", curr.Path))
			previewBuilder.WriteString(strings.Join(lines, "\n"))
		}
	}

	return fmt.Sprintf(
		"%s\n––––––––––––––––––––––––––––––––\n%s\n––––––––––––––––––––––––––––––––\n%s\n",
		m.textInput.View(),
		columnize(listBuilder.String(), previewBuilder.String()),
		"(↑/↓ to navigate, Enter to pick, Esc/Ctrl+C to abort)",
	)
}

// previewLines returns the first n lines of the file at path. Binary
// files (most media) get a size placeholder instead of raw bytes.
func previewLines(path string, n int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	head := make([]byte, 512)
	read, err := file.Read(head)
	if err != nil && err != io.EOF {
		return nil, err
	}
	if bytes.IndexByte(head[:read], 0) >= 0 {
		info, err := file.Stat()
		if err != nil {
			return nil, err
		}
		return []string{fmt.Sprintf("(binary file, %d bytes)", info.Size())}, nil
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if len(lines) >= n {
			break
		}
	}
	return lines, scanner.Err()
}

// columnize is a naive function to produce two columns: left and right, split by a gap.
func columnize(left string, right string) string {
	leftLines := strings.Split(strings.TrimSuffix(left, "\n"), "\n")
	rightLines := strings.Split(strings.TrimSuffix(right, "\n"), "\n")

	maxLines := len(leftLines)
	if len(rightLines) > maxLines {
		maxLines = len(rightLines)
	}

	var b strings.Builder
	for i := 0; i < maxLines; i++ {
		var l, r string
		if i < len(leftLines) {
			l = leftLines[i]
		}
		if i < len(rightLines) {
			r = rightLines[i]
		}
		b.WriteString(fmt.Sprintf("%-50s  %s\n", l, r))
	}
	return b.String()
}

// refilter updates filteredItems from the current search term.
func (m *model) refilter() {
	if strings.TrimSpace(m.searchTerm) == "" {
		m.filteredItems = m.allItems
		m.cursor = 0
		return
	}

	term := strings.ToLower(m.searchTerm)
	var matches []item
	for _, it := range m.allItems {
		if strings.Contains(strings.ToLower(it.Path), term) {
			matches = append(matches, it)
		}
	}
	m.filteredItems = matches
	if m.cursor >= len(m.filteredItems) {
		m.cursor = len(m.filteredItems) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}
