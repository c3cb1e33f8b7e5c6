package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lorenzotomasdiez/roulette-duel/internal/game"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFA500"))

	turnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	nameStyle = lipgloss.NewStyle().Bold(true)

	talkStyle = lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.Color("#EEEEEE"))

	itemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#5FAFFF"))

	bangStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF5F5F"))

	clickStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#5FAF5F"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD75F"))

	bannerStyle = lipgloss.NewStyle().
			Bold(true).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#FFA500")).
			Padding(0, 2)

	triggerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFA500"))
)

// Printer writes a live view of a game. Spectators see hidden details such
// as which item was used and where the bullets are.
type Printer struct {
	w         io.Writer
	Spectator bool
	Verbose   bool
}

// NewPrinter writes styled output to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Title prints a section header.
func (p *Printer) Title(s string) {
	fmt.Fprintf(p.w, "\n%s\n\n", titleStyle.Render("=== "+s+" ==="))
}

// PrintEvent prints one event, skipping what the current view hides.
func (p *Printer) PrintEvent(ev game.Event) {
	if line := p.FormatEvent(ev); line != "" {
		fmt.Fprintln(p.w, line)
	}
}

// FormatEvent renders ev for this printer's view, or "" when hidden.
func (p *Printer) FormatEvent(ev game.Event) string {
	text := ev.Public
	if p.Spectator || ev.Kind == game.EventMessage {
		text = ev.Detail
	}

	switch ev.Kind {
	case game.EventDecision:
		if !p.Verbose || ev.Decision == nil {
			return ""
		}
		text = fmt.Sprintf("%s decided %s", ev.Actor, describeDecision(*ev.Decision))
	case game.EventAgentRetry, game.EventForcedDefault, game.EventItemRejected:
		if !p.Verbose && !p.Spectator {
			return ""
		}
		text = warnStyle.Render(ev.Detail)
	case game.EventMessage:
		text = nameStyle.Render(ev.Actor) + ": " + talkStyle.Render(strings.TrimPrefix(ev.Detail, ev.Actor+" says: "))
	case game.EventItemUsed:
		text = itemStyle.Render(text)
	case game.EventShot:
		if ev.Loaded {
			text = bangStyle.Render(text)
		} else {
			text = clickStyle.Render(text)
		}
	case game.EventGameOver:
		return ""
	}
	if text == "" {
		return ""
	}
	return fmt.Sprintf("%s %s", turnStyle.Render(fmt.Sprintf("[Turn %d]", ev.Turn)), text)
}

// PrintRevolver prints the cylinder for spectators.
func (p *Printer) PrintRevolver(chambers []bool, trigger int) {
	if !p.Spectator {
		return
	}
	fmt.Fprintf(p.w, "    %s\n", RenderRevolver(chambers, trigger))
}

// PrintOutcome prints the final banner.
func (p *Printer) PrintOutcome(rec *game.Record) {
	banner := fmt.Sprintf("GAME OVER: %s\n%d turns played", FormatOutcome(rec), rec.Turns)
	fmt.Fprintf(p.w, "\n%s\n", bannerStyle.Render(banner))
}

// RenderRevolver draws loaded chambers as ● and empty ones as ○, with the
// chamber under the trigger marked.
func RenderRevolver(chambers []bool, trigger int) string {
	cells := make([]string, len(chambers))
	for i, loaded := range chambers {
		cell := "○"
		if loaded {
			cell = "●"
		}
		if i == trigger {
			cell = triggerStyle.Render("▶" + cell)
		}
		cells[i] = cell
	}
	return "[ " + strings.Join(cells, " ") + " ]"
}

// FormatOutcome summarizes how a game ended.
func FormatOutcome(rec *game.Record) string {
	switch rec.Outcome.Kind {
	case game.Shot:
		for _, p := range rec.Setup.Players {
			if p.Name != rec.Outcome.Loser {
				return fmt.Sprintf("%s wins, %s was shot", p.Name, rec.Outcome.Loser)
			}
		}
	case game.ContractLoss:
		return "both players die under the contract"
	case game.Draw:
		if rec.Outcome.Reason != "" {
			return fmt.Sprintf("draw (%s)", rec.Outcome.Reason)
		}
		return "draw"
	}
	return rec.Outcome.String()
}

func describeDecision(d game.Decision) string {
	var s string
	switch d.Step {
	case game.StepCommunicate:
		s = fmt.Sprintf("to say %q", d.Message)
		if d.ProposeDraw {
			s += " and propose a draw"
		}
	case game.StepDrawResponse:
		s = "to decline the draw"
		if d.Accept {
			s = "to accept the draw"
		}
	case game.StepItem:
		s = "to use no item"
		if d.Item != "" {
			s = "to use " + d.Item
		}
	case game.StepTarget:
		s = "to shoot " + d.Target.String()
	default:
		s = string(d.Step)
	}
	if d.Forced {
		s += " (forced)"
	}
	return s
}
