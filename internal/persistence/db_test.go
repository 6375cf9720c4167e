package persistence

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umuterturk/investment-game/internal/clock"
	"github.com/umuterturk/investment-game/internal/engine"
	"github.com/umuterturk/investment-game/internal/lifeevents"
	"github.com/umuterturk/investment-game/internal/player"
	"github.com/umuterturk/investment-game/internal/refdata"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func playedGame(t *testing.T, days int) *engine.Simulation {
	t.Helper()
	ds, err := refdata.Default()
	require.NoError(t, err)
	s, err := engine.New(engine.Options{
		Data:   ds,
		Seed:   11,
		Start:  clock.Date{Day: 20, Month: 3, Year: 2006},
		Age:    30,
		EndAge: 65,
		Player: player.New("saver", 20000, 40000, "London", 900),
		Events: []lifeevents.Event{},
	})
	require.NoError(t, err)
	for i := 0; i < days; i++ {
		_, err := s.Tick()
		require.NoError(t, err)
	}
	return s
}

func TestSaveAndLoadGame(t *testing.T) {
	db := openTestDB(t)
	s := playedGame(t, 40)
	st := s.Export()

	assert.False(t, db.HasSave("main"))
	require.NoError(t, db.SaveGame("main", st, s.Snapshot().Worth.Total))
	assert.True(t, db.HasSave("main"))

	got, err := db.LoadGame("main")
	require.NoError(t, err)
	assert.Equal(t, st.Clock, got.Clock)
	assert.Equal(t, st.Draws, got.Draws)
	assert.InDelta(t, st.Player.Cash, got.Player.Cash, 1e-9)
	assert.Len(t, got.Events, len(st.Events))

	_, err = db.LoadGame("other")
	assert.ErrorIs(t, err, ErrNoSave)
}

func TestSaveKeepsGameID(t *testing.T) {
	db := openTestDB(t)
	s := playedGame(t, 5)
	require.NoError(t, db.SaveGame("main", s.Export(), 0))
	first, err := db.ListSaves()
	require.NoError(t, err)
	require.Len(t, first, 1)

	_, err = s.Tick()
	require.NoError(t, err)
	require.NoError(t, db.SaveGame("main", s.Export(), 0))
	second, err := db.ListSaves()
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].GameID, second[0].GameID)
	assert.NotEqual(t, first[0].GameDate, second[0].GameDate)
}

func TestLedgerSkipsDuplicates(t *testing.T) {
	db := openTestDB(t)
	s := playedGame(t, 40)

	require.NoError(t, db.SaveGame("main", s.Export(), 0))
	require.NoError(t, db.SaveGame("main", s.Export(), 0))

	st := s.Export()
	events, err := db.RecentEvents("main", 1000)
	require.NoError(t, err)
	assert.Len(t, events, len(st.Events))
	require.NotEmpty(t, events)
	newest := st.Events[len(st.Events)-1]
	assert.Equal(t, newest.Seq, events[0].Seq)
	assert.Equal(t, newest.Date, events[0].Date)
	assert.Equal(t, newest.Description, events[0].Description)
}

func TestStatements(t *testing.T) {
	db := openTestDB(t)
	a := engine.Statement{Date: clock.Date{Day: 1, Month: 4, Year: 2006}, Net: 1200, Cash: 21200}
	b := engine.Statement{Date: clock.Date{Day: 1, Month: 5, Year: 2006}, Net: 1100, Cash: 22300}
	require.NoError(t, db.SaveStatement("main", b))
	require.NoError(t, db.SaveStatement("main", a))
	require.NoError(t, db.SaveStatement("main", a))

	got, err := db.Statements("main")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, a.Date, got[0].Date)
	assert.Equal(t, 22300.0, got[1].Cash)
}

func TestDeleteSave(t *testing.T) {
	db := openTestDB(t)
	s := playedGame(t, 12)
	require.NoError(t, db.SaveGame("main", s.Export(), 0))
	require.NoError(t, db.SaveStatement("main", engine.Statement{Date: s.Date()}))

	require.NoError(t, db.DeleteSave("main"))
	assert.False(t, db.HasSave("main"))
	events, err := db.RecentEvents("main", 10)
	require.NoError(t, err)
	assert.Empty(t, events)
	stmts, err := db.Statements("main")
	require.NoError(t, err)
	assert.Empty(t, stmts)
}

func TestMeta(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.SaveMeta("last_slot", "main"))
	require.NoError(t, db.SaveMeta("last_slot", "spare"))
	v, err := db.GetMeta("last_slot")
	require.NoError(t, err)
	assert.Equal(t, "spare", v)

	_, err = db.GetMeta("missing")
	assert.Error(t, err)
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := playedGame(t, 60)
	st := s.Export()
	path := filepath.Join(t.TempDir(), "snaps", "game.zst")

	require.NoError(t, WriteSnapshot(path, st))
	hdr, got, err := ReadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, st.Clock.Date.String(), hdr.Date)
	assert.Equal(t, st.Ticks, hdr.Ticks)
	assert.Equal(t, st.Clock, got.Clock)
	assert.Equal(t, st.Draws, got.Draws)

	ds, err := refdata.Default()
	require.NoError(t, err)
	resumed, err := engine.Restore(ds, got, []lifeevents.Event{})
	require.NoError(t, err)
	assert.Equal(t, s.Date(), resumed.Date())
}

func TestDecodeRejectsPlainJSON(t *testing.T) {
	_, _, err := DecodeSnapshot(bytes.NewBufferString(`{"version":1}`))
	assert.Error(t, err)
}
