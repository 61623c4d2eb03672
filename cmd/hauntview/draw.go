package main

import (
	"fmt"
	"math"

	"github.com/gdamore/tcell/v2"

	"github.com/talgya/hauntsim/internal/board"
	"github.com/talgya/hauntsim/internal/engine"
	"github.com/talgya/hauntsim/internal/ghost"
	"github.com/talgya/hauntsim/internal/influence"
)

const (
	panelWidth = 34
	logLines   = 8
)

var (
	styleWall    = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleDoor    = tcell.StyleDefault.Foreground(tcell.ColorOlive)
	styleFloor   = tcell.StyleDefault.Foreground(tcell.ColorDarkSlateGray)
	styleRoom    = tcell.StyleDefault.Foreground(tcell.ColorDimGray)
	styleBreach  = tcell.StyleDefault.Foreground(tcell.ColorPurple).Bold(true)
	styleSalt    = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	stylePlayer  = tcell.StyleDefault.Foreground(tcell.ColorAqua).Bold(true)
	styleDead    = tcell.StyleDefault.Foreground(tcell.ColorMaroon)
	styleText    = tcell.StyleDefault.Foreground(tcell.ColorSilver)
	styleHeading = tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true)
	styleAttract = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	styleRepulse = tcell.StyleDefault.Foreground(tcell.ColorBlue)
)

// ghostStyle shades the ghost by phase; a barely visible ghost is drawn dim.
func ghostStyle(phase ghost.Phase, visibility float64) tcell.Style {
	var color tcell.Color
	switch phase {
	case ghost.Hunting:
		color = tcell.ColorRed
	case ghost.Warning:
		color = tcell.ColorOrange
	default:
		color = tcell.ColorGreen
	}
	style := tcell.StyleDefault.Foreground(color).Bold(true)
	if visibility < 0.2 {
		style = style.Dim(true)
	}
	return style
}

func tileStyle(r rune) tcell.Style {
	switch r {
	case '#':
		return styleWall
	case ':':
		return styleDoor
	case '.':
		return styleFloor
	}
	return styleRoom
}

func (v *viewer) draw() {
	view := v.mission.View()
	if v.follow {
		v.floor = view.Ghost.Position.Floor()
	}
	v.screen.Clear()
	drawBoard(v.screen, v.mission.Grid(), view, v.floor)
	v.drawPanel(view)
	v.drawLog()
	v.screen.Show()
}

// drawBoard draws one floor of the house and everything standing on it at
// the top left of the screen.
func drawBoard(s tcell.Screen, g *board.Grid, view engine.View, floor int) {
	for y, row := range g.Rows(floor) {
		for x, r := range row {
			s.SetContent(x, y, r, nil, tileStyle(r))
		}
	}
	on := func(p board.Position) (int, int, bool) {
		t := p.Tile()
		return t.X, t.Y, t.Z == floor
	}
	for _, p := range view.SaltTraces {
		if x, y, ok := on(p); ok {
			s.SetContent(x, y, '∙', nil, styleSalt)
		}
	}
	for _, o := range view.Influences {
		if x, y, ok := on(o.Position); ok {
			style := styleAttract
			if o.Kind == influence.Repulsive {
				style = styleRepulse
			}
			s.SetContent(x, y, 'o', nil, style)
		}
	}
	for _, b := range view.Breaches {
		if b.Closed || b.Tile.Z != floor {
			continue
		}
		s.SetContent(b.Tile.X, b.Tile.Y, '◊', nil, styleBreach)
	}
	for i, p := range view.Players {
		x, y, ok := on(p.Position)
		if !ok {
			continue
		}
		r, style := rune('1'+i%9), stylePlayer
		if !p.Alive {
			r, style = 'x', styleDead
		} else if p.Hiding {
			style = style.Reverse(true)
		}
		s.SetContent(x, y, r, nil, style)
	}
	if !view.Ghost.Despawned {
		if x, y, ok := on(view.Ghost.Position); ok {
			s.SetContent(x, y, 'G', nil, ghostStyle(view.Ghost.Phase, view.Visibility))
		}
	}
}

func (v *viewer) drawPanel(view engine.View) {
	w, _ := v.screen.Size()
	x := max(w-panelWidth, v.mission.Grid().Width+2)
	y := 0
	line := func(style tcell.Style, format string, args ...any) {
		drawText(v.screen, x, y, panelWidth, style, fmt.Sprintf(format, args...))
		y++
	}

	speed := fmt.Sprintf("x%g", speeds[v.speedIdx])
	if v.paused {
		speed = "paused"
	}
	line(styleHeading, "%s  %s", view.Map, view.Difficulty)
	line(styleText, "clock %s / %s  %s", engine.Clock(view.Clock), engine.Clock(view.Duration), speed)
	line(styleText, "floor %d  outcome %s", v.floor, view.Outcome)
	y++

	g := view.Ghost
	line(ghostStyle(g.Phase, 1), "ghost %s", g.Phase)
	line(styleText, "rage %5.1f / %5.1f", g.Rage, g.RageLimit)
	line(styleText, "hunts %d  warn %3.0f%%", g.TimesHunted, g.WarningIntensity*100)
	line(styleText, "repellent %d hits %d misses", g.RepellentHits, g.RepellentMisses)
	line(styleText, "visibility %3.0f%%  opacity %3.0f%%", view.Visibility*100, g.Opacity*100)
	y++

	line(styleHeading, "team")
	for i, p := range view.Players {
		style := styleText
		state := fmt.Sprintf("hp %3.0f  san %3.0f", p.Health, p.Sanity)
		if !p.Alive {
			style = styleDead
			state = "dead at " + engine.Clock(p.DiedAt)
		}
		line(style, "%d %-10s %s", i+1, truncate(p.Name, 10), state)
	}
	if v.status != "" {
		y++
		line(styleText, "%s", v.status)
	}
}

func (v *viewer) drawLog() {
	_, h := v.screen.Size()
	records := v.mission.Events(0, engine.EventRingSize)
	if len(records) > logLines {
		records = records[len(records)-logLines:]
	}
	top := h - len(records)
	for i, r := range records {
		drawText(v.screen, 0, top+i, math.MaxInt32, styleText,
			fmt.Sprintf("%s %-14s %s", engine.Clock(r.Time), r.Kind, r.Description))
	}
}

func drawText(s tcell.Screen, x, y, width int, style tcell.Style, text string) {
	i := 0
	for _, r := range text {
		if i >= width {
			return
		}
		s.SetContent(x+i, y, r, nil, style)
		i++
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
