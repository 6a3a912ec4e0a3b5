// SPDX-License-Identifier: MIT
package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"reactive/internal/audio"
	"reactive/internal/uniform"

	tea "github.com/charmbracelet/bubbletea"
)

type fakeStepper struct {
	snap  uniform.Snapshot
	steps int
}

func (s *fakeStepper) Step() *uniform.Snapshot {
	s.steps++
	return &s.snap
}

type fakeResizer struct {
	width, height int
}

func (r *fakeResizer) Resize(w, h int) { r.width, r.height = w, h }

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestMeterTickStepsAndAnimates(t *testing.T) {
	step := &fakeStepper{snap: uniform.Snapshot{Bass: 1, Energy: 0.5, BeatCount: 7}}
	m := NewMeter(step, nil, 60)

	var model tea.Model = m
	var cmd tea.Cmd
	for range 120 {
		model, cmd = model.Update(meterTickMsg(time.Now()))
		if cmd == nil {
			t.Fatal("tick did not schedule the next tick")
		}
	}

	got := model.(MeterModel)
	if step.steps != 120 || got.Frames() != 120 {
		t.Fatalf("steps = %d frames = %d, want 120", step.steps, got.Frames())
	}
	if bass := got.levels[0].pos; bass < 0.9 || bass > 1.1 {
		t.Errorf("bass spring settled at %f, want about 1", bass)
	}
	if energy := got.levels[3].pos; energy < 0.4 || energy > 0.6 {
		t.Errorf("energy spring settled at %f, want about 0.5", energy)
	}
	if !strings.Contains(got.View(), "beats 7") {
		t.Errorf("view missing beat count:\n%s", got.View())
	}
}

func TestMeterResizeForwards(t *testing.T) {
	r := &fakeResizer{}
	m := NewMeter(&fakeStepper{}, r, 30)

	model, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	if r.width != 120 || r.height != 40 {
		t.Errorf("resize = %dx%d, want 120x40", r.width, r.height)
	}
	if model.(MeterModel).width != 120 {
		t.Error("meter did not record terminal width")
	}
}

func TestMeterKeys(t *testing.T) {
	m := NewMeter(&fakeStepper{}, nil, 0)

	withStrips := strings.Count(m.View(), "\n")
	model, _ := m.Update(runeKey('s'))
	if model.(MeterModel).showStrips {
		t.Error("s did not hide the texture strips")
	}
	if got := strings.Count(model.View(), "\n"); got != withStrips-3 {
		t.Errorf("hidden strips view has %d lines, want %d", got, withStrips-3)
	}

	_, cmd := model.Update(runeKey('q'))
	if !isQuit(cmd) {
		t.Error("q did not quit")
	}
}

func TestStripMapsTexels(t *testing.T) {
	var tex uniform.Texture
	for i := range tex {
		if i >= uniform.TextureSize/2 {
			tex[i] = 255
		}
	}
	got := []rune(strip(&tex, 4))
	want := []rune("  ██")
	if string(got) != string(want) {
		t.Errorf("strip = %q, want %q", string(got), string(want))
	}
}

func TestBarClamps(t *testing.T) {
	tests := []struct {
		v    float64
		full int
	}{
		{-1, 0},
		{0, 0},
		{0.5, 5},
		{1, 10},
		{3, 10},
	}
	for _, tt := range tests {
		got := bar(tt.v, 10)
		if n := strings.Count(got, "█"); n != tt.full {
			t.Errorf("bar(%v) has %d blocks, want %d", tt.v, n, tt.full)
		}
		if len([]rune(got)) != 10 {
			t.Errorf("bar(%v) width = %d, want 10", tt.v, len([]rune(got)))
		}
	}
}

func testDeviceModel(devices []audio.Device, err error) DeviceListModel {
	m := NewDeviceListModel()
	m.fetch = func() ([]audio.Device, error) { return devices, err }
	return m
}

func TestDeviceListFiltersOutputOnly(t *testing.T) {
	m := testDeviceModel([]audio.Device{
		{ID: 0, Name: "Speakers", MaxOutputChannels: 2},
		{ID: 1, Name: "Mic", MaxInputChannels: 1, DefaultSampleRate: 48000},
	}, nil)

	msg, ok := m.Init()().(devicesMsg)
	if !ok {
		t.Fatal("Init did not produce a device list")
	}
	if len(msg.devices) != 1 || msg.devices[0].Name != "Mic" {
		t.Errorf("devices = %+v, want only Mic", msg.devices)
	}
}

func TestDeviceListFetchError(t *testing.T) {
	m := testDeviceModel(nil, errors.New("no host"))
	msg := m.Init()()
	model, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	model, _ = model.Update(msg)
	if !strings.Contains(model.View(), "no host") {
		t.Errorf("error not shown:\n%s", model.View())
	}
}

func TestDeviceListSelection(t *testing.T) {
	devices := []audio.Device{
		{ID: 3, Name: "USB", MaxInputChannels: 2, DefaultSampleRate: 44100},
		{ID: 5, Name: "Mic", MaxInputChannels: 1, DefaultSampleRate: 48000},
	}
	var model tea.Model = testDeviceModel(devices, nil)
	model, _ = model.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	model, _ = model.Update(devicesMsg{devices})

	down := tea.KeyMsg{Type: tea.KeyDown}
	enter := tea.KeyMsg{Type: tea.KeyEnter}

	model, _ = model.Update(down)
	model, _ = model.Update(enter)
	if model.(DeviceListModel).activeScreen != ConfigScreen {
		t.Fatal("enter did not open the configuration screen")
	}
	if !strings.Contains(model.View(), "Configure Device: Mic") {
		t.Errorf("unexpected config view:\n%s", model.View())
	}
	if _, ok := model.(DeviceListModel).Selection(); ok {
		t.Fatal("selection confirmed before the second enter")
	}

	// Default rate 48000 is preselected; one step down picks 88200.
	model, _ = model.Update(down)
	model, cmd := model.Update(enter)
	if !isQuit(cmd) {
		t.Error("confirming did not quit the picker")
	}

	sel, ok := model.(DeviceListModel).Selection()
	if !ok {
		t.Fatal("no selection after confirming")
	}
	if sel != (Selection{DeviceID: 5, SampleRate: 88200}) {
		t.Errorf("selection = %+v", sel)
	}
}

func TestDeviceListEscReturnsToList(t *testing.T) {
	devices := []audio.Device{{ID: 0, Name: "Mic", MaxInputChannels: 1, DefaultSampleRate: 44100}}
	var model tea.Model = testDeviceModel(devices, nil)
	model, _ = model.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	model, _ = model.Update(devicesMsg{devices})
	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyEsc})

	if model.(DeviceListModel).activeScreen != ListScreen {
		t.Error("esc did not return to the list")
	}
	if _, ok := model.(DeviceListModel).Selection(); ok {
		t.Error("esc produced a selection")
	}
}
