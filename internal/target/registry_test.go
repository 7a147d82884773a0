package target

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hide-and-hunt/server/internal/world"
)

func TestSpawnAndCandidatesFilterByKnowledge(t *testing.T) {
	reg := NewRegistry()
	known := reg.Spawn(Button, world.Vec3{X: 1})
	unknown := reg.Spawn(Button, world.Vec3{X: 2})
	reg.Spawn(Relic, world.Vec3{X: 3})

	known.MarkKnown(0)

	got := reg.Candidates(Button, 0)
	require.Len(t, got, 1)
	assert.Equal(t, known.ID, got[0].ID)

	// Learning the second button makes it eligible; the relic never is.
	unknown.MarkKnown(0)
	assert.Len(t, reg.Candidates(Button, 0), 2)
	assert.Empty(t, reg.Candidates(Relic, 1), "slot 1 knows nothing")
}

func TestCandidatesSkipInvalidObjectives(t *testing.T) {
	reg := NewRegistry()
	a := reg.Spawn(Relic, world.Vec3{})
	b := reg.Spawn(Relic, world.Vec3{X: 5})
	a.MarkKnown(2)
	b.MarkKnown(2)

	require.True(t, reg.Invalidate(a.ID, ReasonConsumed))
	got := reg.Candidates(Relic, 2)
	require.Len(t, got, 1)
	assert.Equal(t, b.ID, got[0].ID)

	// A retired objective cannot be invalidated twice.
	assert.False(t, reg.Invalidate(a.ID, ReasonConsumed))
}

func TestInvalidateFiresReselectOnce(t *testing.T) {
	reg := NewRegistry()
	obj := reg.Spawn(Door, world.Vec3{})

	fired := 0
	obj.Reselect.Subscribe(func(reason Reason) {
		fired++
		assert.Equal(t, ReasonBarrierDown, reason)
	})

	obj.Invalidate(ReasonBarrierDown)
	obj.Invalidate(ReasonBarrierDown)

	assert.Equal(t, 1, fired)
	assert.False(t, obj.Valid())
}

func TestConsoleCandidatesAreColorGated(t *testing.T) {
	reg := NewRegistry()
	red := reg.SpawnConsole(world.Vec3{X: 1}, world.ColorRed)
	blue := reg.SpawnConsole(world.Vec3{X: 2}, world.ColorBlue)
	red.MarkKnown(0)
	blue.MarkKnown(0)

	got := reg.ConsoleCandidates(world.ColorRed, 0)
	require.Len(t, got, 1)
	assert.Equal(t, red.ID, got[0].ID)

	// Consoles never leak through the generic candidate query.
	assert.Empty(t, reg.Candidates(Console, 0))
	assert.Empty(t, reg.ConsoleCandidates(world.ColorNone, 0))
}

func TestRecolorKeepsConsoleValidAndTellsHolders(t *testing.T) {
	reg := NewRegistry()
	console := reg.SpawnConsole(world.Vec3{}, world.ColorRed)
	console.MarkKnown(0)
	console.MarkKnown(1)

	var reasons []Reason
	console.Reselect.Subscribe(func(reason Reason) { reasons = append(reasons, reason) })

	require.True(t, reg.Recolor(console.ID, world.ColorBlue))
	assert.Equal(t, []Reason{ReasonRecolored}, reasons)
	assert.True(t, console.Valid(), "recolored console stays usable for the new color")
	assert.Equal(t, world.ColorBlue, console.Color)
	assert.True(t, console.KnownTo(0), "location knowledge survives a recolor")

	// Recoloring to the same color is a no-op.
	assert.False(t, reg.Recolor(console.ID, world.ColorBlue))
}

func TestRemoveInvalidatesBeforeDeleting(t *testing.T) {
	reg := NewRegistry()
	obj := reg.Spawn(RandomPosition, world.Vec3{})
	held := obj

	var reason Reason
	obj.Reselect.Subscribe(func(r Reason) { reason = r })

	reg.Remove(obj.ID)

	_, ok := reg.Get(obj.ID)
	assert.False(t, ok)
	assert.False(t, held.Valid(), "lingering holders observe invalidity, not a dangling entry")
	assert.Equal(t, ReasonRemoved, reason)
	assert.Equal(t, 0, reg.Len())
}

func TestResetEpisodeClearsEverythingTogether(t *testing.T) {
	reg := NewRegistry()
	a := reg.Spawn(Button, world.Vec3{})
	b := reg.SpawnConsole(world.Vec3{}, world.ColorGreen)
	a.Notify(0, 10)
	b.Notify(3, 12)

	ended := 0
	a.Reselect.Subscribe(func(reason Reason) {
		if reason == ReasonArenaEnded {
			ended++
		}
	})

	reg.ResetEpisode(ReasonArenaEnded)

	assert.Equal(t, 1, ended)
	assert.Equal(t, 0, reg.Len())
	assert.False(t, a.Valid())
	assert.False(t, a.KnownTo(0), "knowledge bits reset together with the episode")
	_, hasTick := b.LastNotified(3)
	assert.False(t, hasTick)
}

func TestShareKnowledgePropagatesAndStampsTicks(t *testing.T) {
	reg := NewRegistry()
	a := reg.Spawn(Button, world.Vec3{})
	b := reg.Spawn(Relic, world.Vec3{})
	c := reg.Spawn(Door, world.Vec3{})
	a.Notify(0, 5)
	b.Notify(0, 5)
	c.MarkKnown(1) // already known to the listener

	learned := reg.ShareKnowledge(0, 1, 42)
	assert.ElementsMatch(t, []string{a.ID, b.ID}, learned)
	assert.True(t, a.KnownTo(1))

	tick, ok := a.LastNotified(1)
	require.True(t, ok)
	assert.Equal(t, uint64(42), tick)

	// A second broadcast teaches nothing new but refreshes the stamp.
	learned = reg.ShareKnowledge(0, 1, 50)
	assert.Empty(t, learned)
	tick, _ = a.LastNotified(1)
	assert.Equal(t, uint64(50), tick)

	// Nothing propagates to yourself.
	assert.Nil(t, reg.ShareKnowledge(0, 0, 60))
}

func TestKnowledgeBitsAreMonotonic(t *testing.T) {
	reg := NewRegistry()
	obj := reg.Spawn(Button, world.Vec3{})

	obj.MarkKnown(7)
	obj.MarkKnown(7)
	obj.MarkKnown(63)
	assert.True(t, obj.KnownTo(7))
	assert.True(t, obj.KnownTo(63))

	// Out-of-range slots are rejected, not wrapped.
	obj.MarkKnown(64)
	obj.MarkKnown(-1)
	assert.False(t, obj.KnownTo(64))
	assert.False(t, obj.KnownTo(-1))
}
