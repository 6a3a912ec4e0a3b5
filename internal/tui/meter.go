// SPDX-License-Identifier: MIT
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"reactive/internal/uniform"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"
)

// Stepper runs one frame of the pipeline and returns the published snapshot.
type Stepper interface {
	Step() *uniform.Snapshot
}

// Resizer receives the terminal size as the output resolution.
type Resizer interface {
	Resize(width, height int)
}

const (
	meterLabelWidth = 8
	meterMinBar     = 10
	defaultWidth    = 80

	springFrequency = 8.0
	springDamping   = 0.6
)

// Eighth-block glyphs used for the texture strips, lowest first.
var stripGlyphs = []rune(" ▁▂▃▄▅▆▇█")

var (
	labelStyle = lipgloss.NewStyle().Width(meterLabelWidth).Foreground(lipgloss.Color("#A0A0A0"))
	barStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#25A065"))
	beatStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87")).Bold(true)
	stripStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#5FAFFF"))

	stripsKey = key.NewBinding(key.WithKeys("s"))
)

type meterTickMsg time.Time

// level is one spring-animated bar.
type level struct {
	name     string
	pos, vel float64
}

// MeterModel drives the frame loop from the terminal's tick and renders the
// published features as animated bars.
type MeterModel struct {
	step     Stepper
	resize   Resizer
	interval time.Duration
	spring   harmonica.Spring

	levels     [5]level // bass, mid, high, energy, beat
	snap       uniform.Snapshot
	frames     uint64
	width      int
	height     int
	showStrips bool
}

// NewMeter creates a meter that calls step fps times a second. resize may be
// nil.
func NewMeter(step Stepper, resize Resizer, fps int) MeterModel {
	if fps <= 0 {
		fps = 60
	}
	return MeterModel{
		step:       step,
		resize:     resize,
		interval:   time.Second / time.Duration(fps),
		spring:     harmonica.NewSpring(harmonica.FPS(fps), springFrequency, springDamping),
		levels:     [5]level{{name: "bass"}, {name: "mid"}, {name: "high"}, {name: "energy"}, {name: "beat"}},
		width:      defaultWidth,
		showStrips: true,
	}
}

func (m MeterModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return meterTickMsg(t)
	})
}

// Init starts the frame tick.
func (m MeterModel) Init() tea.Cmd {
	return m.tick()
}

// Update advances the pipeline on each tick and reacts to keys and resizes.
func (m MeterModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case meterTickMsg:
		if snap := m.step.Step(); snap != nil {
			m.snap = *snap
		}
		m.frames++
		targets := [5]float64{m.snap.Bass, m.snap.Mid, m.snap.High, m.snap.Energy, m.snap.Beat}
		for i := range m.levels {
			l := &m.levels[i]
			l.pos, l.vel = m.spring.Update(l.pos, l.vel, targets[i])
		}
		return m, m.tick()

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		if m.resize != nil {
			m.resize.Resize(msg.Width, msg.Height)
		}

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, quitKey):
			return m, tea.Quit
		case key.Matches(msg, stripsKey):
			m.showStrips = !m.showStrips
		}
	}
	return m, nil
}

// Frames returns the number of ticks handled.
func (m MeterModel) Frames() uint64 { return m.frames }

// View renders the bars, beat counter and optional texture strips.
func (m MeterModel) View() string {
	barWidth := max(m.width-meterLabelWidth-8, meterMinBar)

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Audio Reactive"))
	fmt.Fprintf(&sb, "  t=%.1fs  %dx%d\n\n", m.snap.Time, m.snap.Resolution.Width, m.snap.Resolution.Height)

	for _, l := range m.levels {
		sb.WriteString(labelStyle.Render(l.name))
		sb.WriteString(barStyle.Render(bar(l.pos, barWidth)))
		fmt.Fprintf(&sb, " %4.2f\n", clamp01(l.pos))
	}

	marker := "○"
	if m.snap.Beat > 0.5 {
		marker = beatStyle.Render("●")
	}
	fmt.Fprintf(&sb, "\n%s beats %d  drift %.2f\n", marker, m.snap.BeatCount, m.snap.BassAccum)

	if m.showStrips {
		width := max(m.width, meterMinBar)
		sb.WriteString("\n")
		sb.WriteString(stripStyle.Render(strip(&m.snap.Spectrum, width)))
		sb.WriteString("\n")
		sb.WriteString(stripStyle.Render(strip(&m.snap.Waveform, width)))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(infoStyle.Render("s: Toggle Textures • q: Quit"))
	return sb.String()
}

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}

// bar draws v in [0,1] as a run of full blocks padded to width.
func bar(v float64, width int) string {
	filled := int(clamp01(v)*float64(width) + 0.5)
	return strings.Repeat("█", filled) + strings.Repeat(" ", width-filled)
}

// strip samples tex at width columns and maps each texel onto an eighth-block
// glyph.
func strip(tex *uniform.Texture, width int) string {
	var sb strings.Builder
	last := len(stripGlyphs) - 1
	for i := range width {
		v := int(tex[i*uniform.TextureSize/width])
		sb.WriteRune(stripGlyphs[v*last/255])
	}
	return sb.String()
}

// RunMeter runs the meter full screen until the user quits or ctx is done.
func RunMeter(ctx context.Context, step Stepper, resize Resizer, fps int) error {
	p := tea.NewProgram(NewMeter(step, resize, fps), tea.WithAltScreen())

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			p.Quit()
		case <-done:
		}
	}()

	_, err := p.Run()
	return err
}
