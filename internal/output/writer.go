package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lorenzotomasdiez/roulette-duel/internal/game"
)

const (
	recordJSON = "record.json"
	recordYAML = "record.yaml"
	reportFile = "report.md"
	logFile    = "game.log"
)

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// GenerateSlug turns a title into a lowercase dash-separated name of at most 50 characters.
func GenerateSlug(s string) string {
	slug := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(s), "-"), "-")
	if len(slug) > 50 {
		slug = strings.TrimRight(slug[:50], "-")
	}
	return slug
}

// CreateOutputDir makes base/<slug>-<timestamp>.
func CreateOutputDir(base, slug string) (string, error) {
	dir := filepath.Join(base, slug+"-"+time.Now().Format("20060102-150405"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("output: %w", err)
	}
	return dir, nil
}

// Writer stores a game's record, report and log in one directory. It is
// also an io.Writer so a log.Logger can write into game.log.
type Writer struct {
	dir     string
	mu      sync.Mutex
	entries []string
}

// NewWriter writes records and the game log under dir.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

func (w *Writer) Dir() string { return w.dir }

// Log appends a timestamped line to game.log right away.
func (w *Writer) Log(msg string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	line := time.Now().Format("15:04:05") + " " + msg
	w.entries = append(w.entries, line)

	f, err := os.OpenFile(filepath.Join(w.dir, logFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	fmt.Fprintln(f, line)
}

func (w *Writer) Logf(format string, args ...any) {
	w.Log(fmt.Sprintf(format, args...))
}

func (w *Writer) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		w.Log(line)
	}
	return len(p), nil
}

// WriteLog rewrites game.log from every entry logged so far.
func (w *Writer) WriteLog() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	content := strings.Join(w.entries, "\n")
	if content != "" {
		content += "\n"
	}
	if err := os.WriteFile(filepath.Join(w.dir, logFile), []byte(content), 0o644); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	return nil
}

func (w *Writer) WriteJSON(rec *game.Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("output: %w", err)
	}
	return w.writeFile(recordJSON, data)
}

func (w *Writer) WriteYAML(rec *game.Record) error {
	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("output: %w", err)
	}
	return w.writeFile(recordYAML, data)
}

// WriteMarkdown writes a human-readable report of the game.
func (w *Writer) WriteMarkdown(rec *game.Record) error {
	var b strings.Builder
	s := rec.Setup
	fmt.Fprintf(&b, "# %s vs %s\n\n", s.Players[0].Name, s.Players[1].Name)
	fmt.Fprintf(&b, "Game `%s`, seed %d\n\n", rec.GameID, s.Seed)

	b.WriteString("## Players\n\n")
	b.WriteString("| Seat | Name | Role | Style |\n|---|---|---|---|\n")
	for i, p := range s.Players {
		fmt.Fprintf(&b, "| %d | %s | %s | %s |\n", i, p.Name, p.RoleName, p.RoleStyle)
	}

	b.WriteString("\n## Outcome\n\n")
	fmt.Fprintf(&b, "%s after %d turns.\n\n", FormatOutcome(rec), rec.Turns)
	fmt.Fprintf(&b, "Final cylinder: `%s`\n", plainCylinder(rec.FinalChambers))

	b.WriteString("\n## Table talk\n\n")
	talked := false
	for _, ev := range rec.Events {
		if ev.Kind == game.EventMessage {
			fmt.Fprintf(&b, "- **Turn %d** %s\n", ev.Turn, ev.Detail)
			talked = true
		}
	}
	if !talked {
		b.WriteString("Nobody said a word.\n")
	}

	b.WriteString("\n## Events\n\n")
	for _, ev := range rec.Events {
		if ev.Kind == game.EventDecision || ev.Detail == "" {
			continue
		}
		fmt.Fprintf(&b, "%d. Turn %d, round %d: %s\n", ev.Seq, ev.Turn, ev.Round, ev.Detail)
	}
	return w.writeFile(reportFile, []byte(b.String()))
}

func (w *Writer) writeFile(name string, data []byte) error {
	if err := os.WriteFile(filepath.Join(w.dir, name), data, 0o644); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	return nil
}

// LoadRecord reads a record written by WriteJSON or WriteYAML. A directory
// is searched for record.json, then record.yaml.
func LoadRecord(path string) (*game.Record, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, recordJSON)
		if _, err := os.Stat(path); err != nil {
			path = filepath.Join(filepath.Dir(path), recordYAML)
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("output: %w", err)
	}
	var rec game.Record
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &rec)
	default:
		err = json.Unmarshal(data, &rec)
	}
	if err != nil {
		return nil, fmt.Errorf("output: decoding %s: %w", filepath.Base(path), err)
	}
	return &rec, nil
}

func plainCylinder(chambers []bool) string {
	cells := make([]string, len(chambers))
	for i, loaded := range chambers {
		cells[i] = "○"
		if loaded {
			cells[i] = "●"
		}
	}
	return strings.Join(cells, " ")
}
