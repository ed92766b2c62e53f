// Correlatus - CHSH Game Analytics and Live Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/correlatus

package dashboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/correlatus/internal/models"
)

type fakeSource struct {
	mu       sync.Mutex
	rounds   map[string][]models.Round
	answers  map[string][]models.Answer
	teams    map[string]string // name -> id
	total    int64
	pulls    int
	countErr error
	listErr  error
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		rounds:  make(map[string][]models.Round),
		answers: make(map[string][]models.Answer),
		teams:   make(map[string]string),
	}
}

func (f *fakeSource) addRound(teamID string, i1, i2 models.ItemLabel, r1, r2 bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := int64(len(f.rounds[teamID]) + 1)
	f.rounds[teamID] = append(f.rounds[teamID], models.Round{
		ID: id, TeamID: teamID, ItemPlayer1: &i1, ItemPlayer2: &i2,
	})
	f.answers[teamID] = append(f.answers[teamID],
		models.Answer{ID: 2*id - 1, TeamID: teamID, RoundID: id, Item: i1, Response: r1},
		models.Answer{ID: 2 * id, TeamID: teamID, RoundID: id, Item: i2, Response: r2},
	)
}

func (f *fakeSource) pullCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pulls
}

func (f *fakeSource) ListRounds(_ context.Context, teamID string) ([]models.Round, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pulls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.rounds[teamID], nil
}

func (f *fakeSource) ListAnswers(_ context.Context, teamID string) ([]models.Answer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.answers[teamID], nil
}

func (f *fakeSource) FindTeamByName(_ context.Context, name string) (*models.Team, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id, ok := f.teams[name]; ok {
		return &models.Team{ID: id, Name: name}, nil
	}
	return nil, nil
}

func (f *fakeSource) CountAllAnswers(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.total, nil
}

type fakeRegistry struct {
	snaps        []models.TeamSnapshot
	mode         models.GameMode
	activeTeams  int
	readyPlayers int
}

func (f *fakeRegistry) Snapshot() []models.TeamSnapshot { return f.snaps }
func (f *fakeRegistry) ActiveTeams() int                { return f.activeTeams }
func (f *fakeRegistry) ReadyPlayers() int               { return f.readyPlayers }
func (f *fakeRegistry) Mode() models.GameMode           { return f.mode }
func (f *fakeRegistry) Lookup(name string) (string, bool) {
	for _, s := range f.snaps {
		if s.Name == name {
			return s.TeamID, true
		}
	}
	return "", false
}

type fakeTransport struct {
	ids  []string
	sent map[string][]Message
}

func newFakeTransport(ids ...string) *fakeTransport {
	return &fakeTransport{ids: ids, sent: make(map[string][]Message)}
}

func (f *fakeTransport) SubscriberIDs() []string { return f.ids }
func (f *fakeTransport) ClientCount() int        { return len(f.ids) }
func (f *fakeTransport) SendTo(id string, msg Message) bool {
	for _, known := range f.ids {
		if known == id {
			f.sent[id] = append(f.sent[id], msg)
			return true
		}
	}
	return false
}

func (f *fakeTransport) lastTeamStatus(t *testing.T, id string) models.TeamStatusPayload {
	t.Helper()
	msgs := f.sent[id]
	if len(msgs) == 0 {
		t.Fatalf("No messages delivered to %s", id)
	}
	payload, ok := msgs[len(msgs)-1].Data.(models.TeamStatusPayload)
	if !ok {
		t.Fatalf("Expected TeamStatusPayload, got %T", msgs[len(msgs)-1].Data)
	}
	return payload
}

func testService(src *fakeSource, reg *fakeRegistry, tr *fakeTransport) (*Service, *time.Time) {
	svc := NewService(src, reg, tr, Config{
		TeamStatusWindow: time.Second,
		FullUpdateWindow: 3 * time.Second,
		CacheSize:        64,
		MinStatsSig:      2,
	})
	clock := time.Unix(1000, 0)
	svc.now = func() time.Time { return clock }
	return svc, &clock
}

func singleTeamSetup() (*fakeSource, *fakeRegistry, *fakeTransport) {
	src := newFakeSource()
	reg := &fakeRegistry{
		snaps: []models.TeamSnapshot{
			{TeamID: "t1", Name: "Alpha", PlayersConnected: 2, Active: true},
		},
		mode:         models.ModeClassic,
		activeTeams:  1,
		readyPlayers: 2,
	}
	return src, reg, newFakeTransport("sub1", "sub2")
}

func TestPublishTeamStatus_ThrottleIdempotence(t *testing.T) {
	src, reg, tr := singleTeamSetup()
	src.addRound("t1", models.ItemA, models.ItemX, true, true)
	svc, clock := testService(src, reg, tr)

	svc.PublishTeamStatus(false)
	coldPulls := src.pullCount()
	if coldPulls == 0 {
		t.Fatal("Expected at least one data-source pull on cold cache")
	}
	first := tr.lastTeamStatus(t, "sub1")

	// Second call inside the window: same payload, zero extra pulls.
	*clock = clock.Add(300 * time.Millisecond)
	svc.PublishTeamStatus(false)
	if src.pullCount() != coldPulls {
		t.Errorf("Expected no pulls inside throttle window, got %d extra", src.pullCount()-coldPulls)
	}
	second := tr.lastTeamStatus(t, "sub1")
	if !second.GeneratedAt.Equal(first.GeneratedAt) {
		t.Error("Expected throttled call to re-emit the cached payload")
	}

	// Mutation, invalidation, then a call after the window elapses.
	src.addRound("t1", models.ItemB, models.ItemY, true, false)
	svc.InvalidateTeam("t1")
	*clock = clock.Add(2 * time.Second)
	svc.PublishTeamStatus(false)
	if src.pullCount() <= coldPulls {
		t.Error("Expected a second pull after invalidation and window expiry")
	}
	third := tr.lastTeamStatus(t, "sub1")
	if len(third.Teams) != 1 {
		t.Fatalf("Expected 1 team, got %d", len(third.Teams))
	}
	cell := third.Teams[0].CorrelationMatrix[1][3] // (B,Y)
	if cell.Count != 1 {
		t.Errorf("Expected intervening mutation to be reflected, (B,Y)=%+v", cell)
	}
}

func TestPublishTeamStatus_InvalidationSelectivityOnPayload(t *testing.T) {
	src, reg, tr := singleTeamSetup()
	svc, clock := testService(src, reg, tr)

	svc.PublishTeamStatus(false)
	warm := src.pullCount()

	// Invalidating a team absent from the payload keeps the fast path.
	svc.InvalidateTeam("unrelated")
	*clock = clock.Add(100 * time.Millisecond)
	svc.PublishTeamStatus(false)
	if src.pullCount() != warm {
		t.Errorf("Expected cached payload to survive unrelated invalidation, got %d extra pulls", src.pullCount()-warm)
	}

	// Invalidating a team present in the payload forces a recompute even
	// inside the window.
	svc.InvalidateTeam("t1")
	*clock = clock.Add(100 * time.Millisecond)
	svc.PublishTeamStatus(false)
	if src.pullCount() <= warm {
		t.Error("Expected recompute after invalidating a team present in the payload")
	}
}

func TestPublishTeamStatus_ZeroSubscribersSkips(t *testing.T) {
	src, reg, _ := singleTeamSetup()
	tr := newFakeTransport() // nobody connected
	svc, _ := testService(src, reg, tr)

	svc.PublishTeamStatus(false)
	if src.pullCount() != 0 {
		t.Errorf("Expected no work with zero subscribers, got %d pulls", src.pullCount())
	}

	svc.mu.Lock()
	cached := svc.teamPayload
	svc.mu.Unlock()
	if cached != nil {
		t.Error("Expected no payload to be cached with zero subscribers")
	}
}

func TestPublishTeamStatus_ForceBypassesWindow(t *testing.T) {
	src, reg, tr := singleTeamSetup()
	svc, clock := testService(src, reg, tr)

	svc.PublishTeamStatus(false)
	first := tr.lastTeamStatus(t, "sub1")

	*clock = clock.Add(100 * time.Millisecond)
	svc.PublishTeamStatus(true)
	second := tr.lastTeamStatus(t, "sub1")

	if !second.GeneratedAt.After(first.GeneratedAt) {
		t.Error("Expected force=true to rebuild the payload inside the window")
	}
}

func TestPublishTeamStatus_ObserverCountAlwaysFresh(t *testing.T) {
	src, reg, tr := singleTeamSetup()
	svc, clock := testService(src, reg, tr)

	svc.PublishTeamStatus(false)
	if got := tr.lastTeamStatus(t, "sub1").ObserverCount; got != 2 {
		t.Errorf("Expected observer count 2, got %d", got)
	}

	// A third observer joins; the throttled fast path must still report it.
	tr.ids = append(tr.ids, "sub3")
	*clock = clock.Add(100 * time.Millisecond)
	svc.PublishTeamStatus(false)

	payload := tr.lastTeamStatus(t, "sub1")
	if payload.ObserverCount != 3 {
		t.Errorf("Expected fresh observer count 3 on throttled call, got %d", payload.ObserverCount)
	}
	if len(payload.Teams) != 1 {
		t.Errorf("Expected the rest of the payload to stay cached, teams=%d", len(payload.Teams))
	}
}

func TestPublishTeamStatus_StreamingPreference(t *testing.T) {
	src, reg, tr := singleTeamSetup()
	svc, _ := testService(src, reg, tr)

	svc.SetStreamingPreference("sub2", false)
	svc.PublishTeamStatus(false)

	full := tr.lastTeamStatus(t, "sub1")
	if len(full.Teams) != 1 {
		t.Errorf("Expected opted-in subscriber to receive the team list, got %d", len(full.Teams))
	}

	lean := tr.lastTeamStatus(t, "sub2")
	if lean.Teams != nil {
		t.Errorf("Expected opted-out subscriber to receive counters only, got %d teams", len(lean.Teams))
	}
	if lean.ActiveTeams != 1 || lean.ReadyPlayers != 2 {
		t.Errorf("Expected counters to survive opt-out, got %+v", lean)
	}

	// Opting back in restores the full list.
	svc.SetStreamingPreference("sub2", true)
	svc.PublishTeamStatus(true)
	if got := tr.lastTeamStatus(t, "sub2"); len(got.Teams) != 1 {
		t.Errorf("Expected team list after opting back in, got %d", len(got.Teams))
	}
}

func TestClearAllCaches_ForcesStale(t *testing.T) {
	src, reg, tr := singleTeamSetup()
	svc, clock := testService(src, reg, tr)

	svc.PublishTeamStatus(false)
	warm := src.pullCount()

	svc.ClearAllCaches()
	*clock = clock.Add(100 * time.Millisecond)
	svc.PublishTeamStatus(false)

	if src.pullCount() <= warm {
		t.Error("Expected ClearAllCaches to force recomputation inside the window")
	}
}

func TestPublishFull_TargetAndExclude(t *testing.T) {
	src, reg, tr := singleTeamSetup()
	src.total = 42
	svc, clock := testService(src, reg, tr)

	svc.PublishFull("sub1", "")
	if len(tr.sent["sub2"]) != 0 {
		t.Errorf("Expected targeted publish to skip sub2, got %d messages", len(tr.sent["sub2"]))
	}
	payload, ok := tr.sent["sub1"][0].Data.(models.FullUpdatePayload)
	if !ok {
		t.Fatalf("Expected FullUpdatePayload, got %T", tr.sent["sub1"][0].Data)
	}
	if payload.TotalAnswers != 42 {
		t.Errorf("Expected total answers 42, got %d", payload.TotalAnswers)
	}

	*clock = clock.Add(4 * time.Second)
	svc.PublishFull("", "sub1")
	if len(tr.sent["sub1"]) != 1 {
		t.Errorf("Expected excluded subscriber to receive nothing, got %d messages", len(tr.sent["sub1"]))
	}
	if len(tr.sent["sub2"]) != 1 {
		t.Errorf("Expected broadcast to reach sub2, got %d messages", len(tr.sent["sub2"]))
	}
}

func TestPublishFull_IndependentWindow(t *testing.T) {
	src, reg, tr := singleTeamSetup()
	svc, clock := testService(src, reg, tr)

	svc.PublishFull("", "")
	countPulls := src.pullCount()

	// Inside the full window: cached payload, no new count query.
	*clock = clock.Add(time.Second)
	svc.PublishFull("", "")
	if src.pullCount() != countPulls {
		t.Errorf("Expected throttled full publish to reuse cached payload, got %d extra pulls", src.pullCount()-countPulls)
	}

	// The team-status window is independent and shorter; its first call
	// computes fresh regardless of the full publish above.
	svc.PublishTeamStatus(false)
	if len(tr.sent["sub1"]) == 0 {
		t.Error("Expected team-status publish alongside full publish")
	}
}

func TestPublishTeamStatus_EndToEndAggregate(t *testing.T) {
	src, reg, tr := singleTeamSetup()
	src.addRound("t1", models.ItemA, models.ItemX, true, true)
	src.addRound("t1", models.ItemA, models.ItemY, true, false)
	src.addRound("t1", models.ItemB, models.ItemX, true, true)
	src.addRound("t1", models.ItemB, models.ItemY, true, true)
	svc, _ := testService(src, reg, tr)

	svc.PublishTeamStatus(false)
	payload := tr.lastTeamStatus(t, "sub1")
	if len(payload.Teams) != 1 {
		t.Fatalf("Expected 1 team, got %d", len(payload.Teams))
	}
	agg := payload.Teams[0]

	if agg.TeamName != "Alpha" || agg.Status != models.StatusActive || agg.PlayersConnected != 2 {
		t.Errorf("Expected live fields overlaid, got %+v", agg)
	}
	if len(agg.HashA) != 8 || len(agg.HashB) != 8 || agg.HashA == agg.HashB {
		t.Errorf("Expected two distinct 8-char hashes, got %q %q", agg.HashA, agg.HashB)
	}
	if agg.PrimaryView != models.ViewCorrelation {
		t.Errorf("Expected correlation primary in classic mode, got %s", agg.PrimaryView)
	}

	if chsh := agg.ClassicStats[models.StatCHSH]; chsh.Value != 0 {
		t.Errorf("Expected CHSH 0, got %v", chsh.Value)
	}
	if rate := agg.SuccessStats[models.StatSuccessRate]; rate.Value != 0.5 {
		t.Errorf("Expected success rate 0.5, got %v", rate.Value)
	}
	if score := agg.SuccessStats[models.StatCHSH]; score.Value != 0 {
		t.Errorf("Expected normalized score 0, got %v", score.Value)
	}

	// One observation per pair is below the threshold of 2.
	if agg.MinStatsSig {
		t.Error("Expected statistics to be flagged as not significant")
	}
}

func TestPublishTeamStatus_DataSourceFailureDegrades(t *testing.T) {
	src, reg, tr := singleTeamSetup()
	src.listErr = errors.New("connection refused")
	svc, _ := testService(src, reg, tr)

	svc.PublishTeamStatus(false)

	payload := tr.lastTeamStatus(t, "sub1")
	if len(payload.Teams) != 1 {
		t.Fatalf("Expected a zeroed aggregate despite the failure, got %d teams", len(payload.Teams))
	}
	agg := payload.Teams[0]
	for i := range agg.CorrelationMatrix {
		for j := range agg.CorrelationMatrix[i] {
			if agg.CorrelationMatrix[i][j].Count != 0 {
				t.Fatalf("Expected zeroed matrix on data-source failure, cell (%d,%d)=%+v",
					i, j, agg.CorrelationMatrix[i][j])
			}
		}
	}
	if chsh := agg.ClassicStats[models.StatCHSH]; chsh.Value != 0 || chsh.StdDev != nil {
		t.Errorf("Expected neutral CHSH on failure, got %+v", chsh)
	}
}

func TestResolveTeamID_LiveFirst(t *testing.T) {
	src, reg, tr := singleTeamSetup()
	src.teams["Persisted"] = "t9"
	svc, _ := testService(src, reg, tr)

	if id, ok := svc.ResolveTeamID(context.Background(), "Alpha"); !ok || id != "t1" {
		t.Errorf("Expected live resolution to t1, got %q (found=%v)", id, ok)
	}
	if id, ok := svc.ResolveTeamID(context.Background(), "Persisted"); !ok || id != "t9" {
		t.Errorf("Expected persisted fallback to t9, got %q (found=%v)", id, ok)
	}
	if _, ok := svc.ResolveTeamID(context.Background(), "Nowhere"); ok {
		t.Error("Expected unknown name to not resolve")
	}
}

func TestModeSwitch_SelectsPrimaryView(t *testing.T) {
	src, reg, tr := singleTeamSetup()
	svc, _ := testService(src, reg, tr)

	svc.PublishTeamStatus(false)
	if got := tr.lastTeamStatus(t, "sub1").Teams[0].PrimaryView; got != models.ViewCorrelation {
		t.Errorf("Expected correlation primary, got %s", got)
	}

	reg.mode = models.ModeNew
	svc.ClearAllCaches()
	svc.PublishTeamStatus(false)
	agg := tr.lastTeamStatus(t, "sub1").Teams[0]
	if agg.PrimaryView != models.ViewSuccess {
		t.Errorf("Expected success primary after mode switch, got %s", agg.PrimaryView)
	}
	if agg.ClassicStats == nil || agg.SuccessStats == nil {
		t.Error("Expected both statistic families regardless of mode")
	}
}
