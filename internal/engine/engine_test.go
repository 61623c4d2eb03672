package engine

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/hauntsim/internal/board"
	"github.com/talgya/hauntsim/internal/difficulty"
	"github.com/talgya/hauntsim/internal/ghost"
	"github.com/talgya/hauntsim/internal/players"
)

const manorLayout = `
name: manor
rooms:
  a: Parlour
  b: Library
floors:
  - rows:
      - "##############"
      - "#aaaaaa:bbbbb#"
      - "#aaaaaa:bbbbb#"
      - "#aaaaaa#bbbbb#"
      - "#............#"
      - "##############"
breaches:
  - {x: 3, y: 2, z: 0}
`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func manor(t *testing.T) *board.Grid {
	t.Helper()
	g, err := board.ParseLayout([]byte(manorLayout))
	if err != nil {
		t.Fatalf("parse layout: %v", err)
	}
	return g
}

func newMission(t *testing.T, cfg MissionConfig) *Mission {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = quietLogger()
	}
	m, err := NewMission(manor(t), cfg)
	if err != nil {
		t.Fatalf("new mission: %v", err)
	}
	return m
}

func TestNewMission(t *testing.T) {
	m := newMission(t, MissionConfig{Seed: 3, Level: difficulty.Standard})
	v := m.View()
	if v.Outcome != OutcomeRunning {
		t.Errorf("expected running, got %s", v.Outcome)
	}
	if len(v.Breaches) != 1 || v.Breaches[0].Tile != (board.Tile{X: 3, Y: 2}) {
		t.Fatalf("expected one breach at 3,2, got %+v", v.Breaches)
	}
	if v.Ghost.BreachID != v.Breaches[0].ID {
		t.Errorf("expected ghost paired with breach %s, got %s", v.Breaches[0].ID, v.Ghost.BreachID)
	}
	if v.Ghost.Position != (board.Position{X: 3, Y: 2}) {
		t.Errorf("expected ghost on its breach, got %v", v.Ghost.Position)
	}
	if len(v.Players) != len(players.DefaultTeam()) {
		t.Errorf("expected default team, got %d players", len(v.Players))
	}
	for _, p := range v.Players {
		if p.Position.Tile().Y != 4 {
			t.Errorf("expected %s to start in the hallway, got %v", p.Name, p.Position)
		}
	}
	if len(v.Influences) != 2 {
		t.Errorf("expected two default objects, got %d", len(v.Influences))
	}
	if evs := m.Events(0, 0); len(evs) != 1 || evs[0].Kind != "started" {
		t.Errorf("expected a started record, got %+v", evs)
	}
}

func TestNewMissionRejectsBadObjects(t *testing.T) {
	_, err := NewMission(manor(t), MissionConfig{
		Logger:  quietLogger(),
		Objects: []ObjectSpec{{Name: "lamp", Kind: "glowing"}},
	})
	if err == nil {
		t.Error("expected error for unknown object kind")
	}
	empty := board.NewGrid("empty", 3, 3, 1)
	empty.MarkLoaded()
	if _, err := NewMission(empty, MissionConfig{Logger: quietLogger()}); err == nil {
		t.Error("expected error for a board without breaches")
	}
}

func TestMissionDeterministic(t *testing.T) {
	a := newMission(t, MissionConfig{Seed: 11, Level: difficulty.Hard})
	b := newMission(t, MissionConfig{Seed: 11, Level: difficulty.Hard})
	for i := 0; i < 60*30; i++ {
		a.Step(1.0 / FrameRate)
		b.Step(1.0 / FrameRate)
	}
	va, vb := a.View(), b.View()
	if va.Ghost.Position != vb.Ghost.Position || va.Ghost.Rage != vb.Ghost.Rage {
		t.Errorf("expected identical ghosts, got %+v vs %+v", va.Ghost, vb.Ghost)
	}
	for i := range va.Players {
		if va.Players[i].Position != vb.Players[i].Position {
			t.Errorf("player %d diverged: %v vs %v", i, va.Players[i].Position, vb.Players[i].Position)
		}
	}
}

func TestMissionInvariants(t *testing.T) {
	m := newMission(t, MissionConfig{Seed: 5, Level: difficulty.Master})
	for i := 0; i < 60*120 && m.Step(1.0/FrameRate); i++ {
		v := m.View()
		if v.Ghost.Rage < 0 || v.Ghost.Hunting < 0 {
			t.Fatalf("tick %d: negative accumulators %+v", i, v.Ghost)
		}
		for _, p := range v.Players {
			if p.Health < 0 || p.Sanity < 0 || p.Sanity > 100 {
				t.Fatalf("tick %d: player out of range %+v", i, p)
			}
			if p.Alive && !m.Grid().PlayerFree(p.Position.Tile()) {
				t.Fatalf("tick %d: %s inside a wall at %v", i, p.Name, p.Position)
			}
		}
	}
}

func TestAdminRepellentExpelsGhost(t *testing.T) {
	m := newMission(t, MissionConfig{Seed: 1, Team: []players.Spec{{Behavior: "idle"}}})
	if err := m.AdminRepellent(0); err == nil {
		t.Error("expected error for zero hits")
	}
	if err := m.AdminRepellent(400); err != nil {
		t.Fatalf("admin repellent: %v", err)
	}
	m.Step(1.0 / FrameRate)
	v := m.View()
	if !v.Ghost.Expelled {
		t.Fatal("expected ghost expelled after 400 hits")
	}
	if v.Breaches[0].Closed {
		t.Error("expected breach to fade, not close immediately")
	}

	ticks := 0
	for m.Step(1.0/FrameRate) && ticks < 60*10 {
		ticks++
	}
	v = m.View()
	if v.Outcome != OutcomeExpelled {
		t.Fatalf("expected expelled outcome, got %s", v.Outcome)
	}
	if !v.Breaches[0].Closed || v.Breaches[0].Opacity != 0 {
		t.Errorf("expected closed breach, got %+v", v.Breaches[0])
	}
	if ticks < 60*4 {
		t.Errorf("expected fade to take about 5s, took %d ticks", ticks)
	}
	if m.Step(1.0 / FrameRate) {
		t.Error("expected Step to report a finished mission")
	}
	if err := m.AdminRepellent(1); err == nil {
		t.Error("expected error on a finished mission")
	}
	if m.Report().EndedAt.IsZero() {
		t.Error("expected report end time")
	}
}

func TestMissionTimesOut(t *testing.T) {
	m := newMission(t, MissionConfig{Seed: 1, Team: []players.Spec{}, Duration: 2})
	steps := 0
	for m.Step(1.0 / FrameRate) {
		steps++
		if steps > 1000 {
			t.Fatal("mission never timed out")
		}
	}
	if m.Outcome() != OutcomeTimedOut {
		t.Errorf("expected timed_out, got %s", m.Outcome())
	}
}

func TestMissionWipe(t *testing.T) {
	m := newMission(t, MissionConfig{Seed: 1})
	for _, member := range m.team {
		member.Player.Damage(500, 0)
	}
	m.Step(1.0 / FrameRate)
	if m.Outcome() != OutcomeWiped {
		t.Errorf("expected wiped, got %s", m.Outcome())
	}
	if r := m.Report(); r.Survivors != 0 || r.Team != 4 {
		t.Errorf("expected 0 of 4 survivors, got %d of %d", r.Survivors, r.Team)
	}
}

func TestAbort(t *testing.T) {
	m := newMission(t, MissionConfig{Seed: 1})
	m.Abort()
	m.Abort()
	if m.Outcome() != OutcomeAborted {
		t.Errorf("expected aborted, got %s", m.Outcome())
	}
	evs := m.Events(0, 0)
	if evs[len(evs)-1].Kind != string(OutcomeAborted) {
		t.Errorf("expected one aborted record at the end, got %+v", evs)
	}
}

func TestSubscribeAndDrop(t *testing.T) {
	m := newMission(t, MissionConfig{Seed: 1})
	ch, cancel := m.Subscribe(1)
	slow, cancelSlow := m.Subscribe(1)
	defer cancelSlow()

	if err := m.AdminRepellent(1); err != nil {
		t.Fatal(err)
	}
	select {
	case r := <-ch:
		if r.Kind != "admin_repellent" {
			t.Errorf("expected admin_repellent record, got %+v", r)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a record")
	}
	_ = m.AdminRepellent(1)
	_ = m.AdminRepellent(1)
	if m.View().Stats.DroppedRecords == 0 {
		t.Error("expected records dropped for a full subscriber")
	}
	cancel()
	if _, ok := <-ch; ok {
		// One buffered record may remain before the close.
		if _, ok := <-ch; ok {
			t.Error("expected channel closed after cancel")
		}
	}
	cancel()
	_ = slow
}

func TestEventsSinceAndLimit(t *testing.T) {
	m := newMission(t, MissionConfig{Seed: 1})
	for i := 0; i < 5; i++ {
		_ = m.AdminRepellent(1)
	}
	all := m.Events(0, 0)
	if len(all) != 6 {
		t.Fatalf("expected 6 records, got %d", len(all))
	}
	page := m.Events(all[1].Seq, 2)
	if len(page) != 2 || page[0].Seq != all[2].Seq {
		t.Errorf("expected records 3 and 4, got %+v", page)
	}
}

func TestTransitionsRecorded(t *testing.T) {
	m := newMission(t, MissionConfig{
		Seed:  2,
		Level: difficulty.Master,
		Team:  []players.Spec{{Behavior: "screamer"}, {Behavior: "screamer"}},
	})
	for i := 0; i < 60*180 && m.Step(1.0/FrameRate); i++ {
	}
	stats := m.View().Stats
	if stats.Warnings == 0 {
		t.Fatal("expected screaming players to provoke a hunt warning")
	}
	found := false
	for _, r := range m.Events(0, 0) {
		if r.Category == "transition" && r.Kind == ghost.EventWarning.String() {
			found = true
		}
	}
	if !found {
		t.Error("expected a calm_to_warning transition record")
	}
	if stats.PeakRage <= 0 {
		t.Errorf("expected peak rage recorded, got %f", stats.PeakRage)
	}
}

func TestEngineRunTicks(t *testing.T) {
	e := NewEngine(quietLogger())
	seconds := 0
	e.OnSecond = func(uint64) { seconds++ }
	e.OnTick = func(tick uint64, dt float64) bool {
		if math.Abs(dt-1.0/FrameRate) > 1e-12 {
			t.Errorf("expected fixed step, got %f", dt)
		}
		return tick < 150
	}
	if n := e.RunTicks(1000); n != 150 {
		t.Errorf("expected stop after 150 ticks, got %d", n)
	}
	if seconds != 2 {
		t.Errorf("expected 2 simulated seconds, got %d", seconds)
	}
	if e.Tick() != 150 {
		t.Errorf("expected tick 150, got %d", e.Tick())
	}
}

func TestEngineRunStops(t *testing.T) {
	e := NewEngine(quietLogger())
	if err := e.SetSpeed(-1); err == nil {
		t.Error("expected error for negative speed")
	}
	if err := e.SetSpeed(math.Inf(1)); err != nil {
		t.Fatalf("set speed: %v", err)
	}
	e.OnTick = func(tick uint64, dt float64) bool { return tick < 500 }
	done := make(chan struct{})
	go func() {
		e.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("unthrottled engine did not finish")
	}
	if e.Tick() != 500 {
		t.Errorf("expected 500 ticks, got %d", e.Tick())
	}

	paused := NewEngine(quietLogger())
	_ = paused.SetSpeed(0)
	ctx, cancel := context.WithCancel(context.Background())
	done = make(chan struct{})
	go func() {
		paused.Run(ctx)
		close(done)
	}()
	time.Sleep(100 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("paused engine ignored cancellation")
	}
	if paused.Tick() != 0 {
		t.Errorf("expected no ticks while paused, got %d", paused.Tick())
	}
}

func TestClock(t *testing.T) {
	if got := Clock(125.7); got != "2:05" {
		t.Errorf("expected 2:05, got %s", got)
	}
}

func TestBreachRegistry(t *testing.T) {
	r := NewBreachRegistry()
	id := r.Open(uuid.Nil, board.Tile{X: 1}, 2)
	if id == uuid.Nil {
		t.Fatal("expected a generated breach handle")
	}
	if !r.Fade(id, 0.5) {
		t.Fatal("expected fade to apply")
	}
	b, _ := r.Get(id)
	if b.Opacity != 0.5 || b.Closed {
		t.Errorf("expected half faded breach, got %+v", b)
	}
	r.Fade(id, -1)
	if r.Fade(id, 1) {
		t.Error("expected closed breach to stay closed")
	}
	if b, _ := r.Get(id); !b.Closed || b.Opacity != 0 {
		t.Errorf("expected closed breach, got %+v", b)
	}
	if _, ok := r.Get(uuid.New()); ok {
		t.Error("expected unknown handle to miss")
	}
	if len(r.List()) != 1 {
		t.Errorf("expected one breach, got %d", len(r.List()))
	}
}
