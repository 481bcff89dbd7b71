package session

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tourguide/pkg/chunk"
	"tourguide/pkg/controller"
	"tourguide/pkg/model"
)

func newManager(t *testing.T) *Manager {
	t.Helper()
	ctrl := controller.New(controller.Params{WaypointRadius: 10, WaypointSeparation: 25}, nil)
	return NewManager(ctrl, nil, nil)
}

func mustApply(t *testing.T, m *Manager, op Op, fn func(*controller.Controller) error) Snapshot {
	t.Helper()
	snap, err := m.Apply(op, fn)
	require.NoError(t, err, op)
	return snap
}

func authorOldTown(t *testing.T, m *Manager) {
	t.Helper()
	mustApply(t, m, OpStartNewTour, func(c *controller.Controller) error {
		return c.StartNewTour("T2", "Old Town", "From Edinburgh Castle to Holyrood\n")
	})
	mustApply(t, m, OpSetLocation, func(c *controller.Controller) error { return c.SetLocation(-500, 0) })
	mustApply(t, m, OpAddWaypoint, func(c *controller.Controller) error { return c.AddWaypoint("Edinburgh Castle\n") })
	mustApply(t, m, OpAddLeg, func(c *controller.Controller) error { return c.AddLeg("Royal Mile\n") })
	mustApply(t, m, OpSetLocation, func(c *controller.Controller) error { return c.SetLocation(1000, 300) })
	mustApply(t, m, OpAddWaypoint, func(c *controller.Controller) error { return c.AddWaypoint("Holyrood Palace\n") })
	mustApply(t, m, OpEndNewTour, func(c *controller.Controller) error { return c.EndNewTour() })
}

func TestManager_RevisionAndTracker(t *testing.T) {
	m := newManager(t)
	assert.NotEmpty(t, m.ID())

	snap := m.Snapshot()
	assert.Equal(t, uint64(0), snap.Revision)
	assert.Equal(t, controller.StateBrowseOverview, snap.State)
	assert.Nil(t, snap.Location)

	authorOldTown(t, m)
	snap = m.Snapshot()
	assert.Equal(t, uint64(7), snap.Revision)

	// Failures leave the revision alone but are counted.
	snap, err := m.Apply(OpAddLeg, func(c *controller.Controller) error { return c.AddLeg("nope") })
	require.ErrorIs(t, err, controller.ErrWrongState)
	assert.Equal(t, uint64(7), snap.Revision)

	stats := m.Tracker().Snapshot()
	assert.Equal(t, int64(1), stats[string(OpAddLeg)].OK)
	assert.Equal(t, int64(1), stats[string(OpAddLeg)].Failed)
	assert.Equal(t, int64(2), stats[string(OpAddWaypoint)].OK)
}

func TestManager_Journal(t *testing.T) {
	m := newManager(t)
	authorOldTown(t, m)

	mustApply(t, m, OpFollowTour, func(c *controller.Controller) error { return c.FollowTour("T2") })
	mustApply(t, m, OpSetLocation, func(c *controller.Controller) error { return c.SetLocation(-490, 0) })
	mustApply(t, m, OpSetLocation, func(c *controller.Controller) error { return c.SetLocation(-480, 0) })
	mustApply(t, m, OpEndSelectedTour, func(c *controller.Controller) error { return c.EndSelectedTour() })

	events := m.Events()
	types := make([]model.TripEventType, len(events))
	for i, ev := range events {
		types[i] = ev.Type
		assert.NotEmpty(t, ev.ID)
		assert.False(t, ev.Timestamp.IsZero())
		assert.Equal(t, "T2", ev.TourID)
	}
	assert.Equal(t, []model.TripEventType{
		model.EventTourStarted,
		model.EventTourCommitted,
		model.EventFollowStarted,
		model.EventArrival,
		model.EventFollowEnded,
	}, types)

	assert.Equal(t, "2 legs, 2 waypoints", events[1].Summary)
	assert.Equal(t, "Edinburgh Castle\n", events[3].Summary)
	assert.Equal(t, "1 of 2 waypoints visited", events[4].Summary)
}

func TestManager_FollowStartDoesNotArrive(t *testing.T) {
	m := newManager(t)
	authorOldTown(t, m)
	mustApply(t, m, OpSetLocation, func(c *controller.Controller) error { return c.SetLocation(-500, 0) })

	snap := mustApply(t, m, OpFollowTour, func(c *controller.Controller) error { return c.FollowTour("T2") })
	require.NotNil(t, snap.Progress)
	assert.Equal(t, Progress{TourID: "T2", Visited: 0, Total: 2}, *snap.Progress)
	events := m.Events()
	assert.Equal(t, model.EventFollowStarted, events[len(events)-1].Type)

	snap = mustApply(t, m, OpSetLocation, func(c *controller.Controller) error { return c.SetLocation(-500, 0) })
	assert.Equal(t, 1, snap.Progress.Visited)
	events = m.Events()
	assert.Equal(t, model.EventArrival, events[len(events)-1].Type)
}

func TestManager_Tours(t *testing.T) {
	m := newManager(t)
	authorOldTown(t, m)

	tours := m.Tours()
	require.Len(t, tours, 1)
	assert.Equal(t, "T2", tours[0].ID)
	assert.Equal(t, 2, tours[0].Legs)
	assert.InDelta(t, 1529.7, tours[0].RouteLength, 0.1)

	_, ok := m.Tour("T9")
	assert.False(t, ok)
}

func TestManager_Subscribe(t *testing.T) {
	m := newManager(t)
	ch, cancel := m.Subscribe()

	mustApply(t, m, OpStartNewTour, func(c *controller.Controller) error { return c.StartNewTour("T1", "Forum", "") })
	_, _ = m.Apply(OpEndNewTour, func(c *controller.Controller) error { return c.EndNewTour() })

	snap := <-ch
	assert.Equal(t, uint64(1), snap.Revision)
	assert.Equal(t, []chunk.Chunk{chunk.CreateHeader{Title: "Forum"}}, snap.Output)
	select {
	case extra := <-ch:
		t.Fatalf("failed operation must not be published, got revision %d", extra.Revision)
	default:
	}

	cancel()
	cancel()
	_, open := <-ch
	assert.False(t, open)
}

func TestManager_SlowSubscriberGetsLatest(t *testing.T) {
	m := newManager(t)
	ch, cancel := m.Subscribe()
	defer cancel()

	for i := 0; i < subscriberBuffer+5; i++ {
		mustApply(t, m, OpSetLocation, func(c *controller.Controller) error { return c.SetLocation(float64(i), 0) })
	}

	var last Snapshot
	for len(ch) > 0 {
		last = <-ch
	}
	assert.Equal(t, uint64(subscriberBuffer+5), last.Revision)
}

func TestManager_ConcurrentApply(t *testing.T) {
	m := newManager(t)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = m.Apply(OpSetLocation, func(c *controller.Controller) error { return c.SetLocation(float64(i), 1) })
		}(i)
	}
	wg.Wait()
	assert.Equal(t, uint64(20), m.Snapshot().Revision)
}

func TestSnapshot_MarshalJSON(t *testing.T) {
	m := newManager(t)
	data, err := json.Marshal(m.Snapshot())
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"state": "browse_overview",
		"revision": 0,
		"output": [{"type": "browse_overview", "data": {"tours": []}}]
	}`, string(data))
}
