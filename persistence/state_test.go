package persistence

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"
)

type mockLookup struct {
	timestamps map[string]string
	err        error
	calls      []string
}

func (m *mockLookup) LastTimestamp(groupJID string) (string, error) {
	m.calls = append(m.calls, groupJID)
	if m.err != nil {
		return "", m.err
	}
	if ts, ok := m.timestamps[groupJID]; ok {
		return ts, nil
	}
	return EpochStart, nil
}

func openTestStore(t *testing.T, lookup LastTimestampLookup) *StateStore {
	t.Helper()
	store, err := NewStateStore(filepath.Join(t.TempDir(), "state.db"), lookup)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStateStore_SaveLoadRoundTrip(t *testing.T) {
	store := openTestStore(t, &mockLookup{})

	state := map[string]string{
		"group1@g.us": "2025-06-01 10:00:00+00:00",
		"group2@g.us": "2025-06-02 11:30:00+00:00",
	}
	if err := store.Save(state); err != nil {
		t.Fatal(err)
	}

	loaded := store.Load()
	if !reflect.DeepEqual(loaded, state) {
		t.Errorf("Load = %v, atteso %v", loaded, state)
	}
}

func TestStateStore_EmptyStateLoadsEmptyMap(t *testing.T) {
	store := openTestStore(t, &mockLookup{})

	loaded := store.Load()
	if len(loaded) != 0 {
		t.Errorf("stato vuoto atteso, ottenuto %v", loaded)
	}
}

func TestStateStore_MigratesLegacyIDs(t *testing.T) {
	lookup := &mockLookup{timestamps: map[string]string{
		"group1@g.us": "2025-06-01 10:00:00+00:00",
	}}
	store := openTestStore(t, lookup)

	// Stato legacy scritto da una versione precedente: ID messaggio esadecimale
	if err := store.Save(map[string]string{
		"group1@g.us": "3EB0C8A571B2F9D4E6A1",
		"group2@g.us": "2025-05-30 08:00:00+00:00",
	}); err != nil {
		t.Fatal(err)
	}

	loaded := store.Load()
	want := map[string]string{
		"group1@g.us": "2025-06-01 10:00:00+00:00",
		"group2@g.us": "2025-05-30 08:00:00+00:00",
	}
	if !reflect.DeepEqual(loaded, want) {
		t.Errorf("Load = %v, atteso %v", loaded, want)
	}
	// La lookup va fatta solo per le voci legacy
	if len(lookup.calls) != 1 || lookup.calls[0] != "group1@g.us" {
		t.Errorf("lookup chiamata per %v, attesa solo group1@g.us", lookup.calls)
	}
}

func TestStateStore_MigrationIsIdempotent(t *testing.T) {
	lookup := &mockLookup{timestamps: map[string]string{
		"group1@g.us": "2025-06-01 10:00:00+00:00",
	}}
	store := openTestStore(t, lookup)

	if err := store.Save(map[string]string{"group1@g.us": "3EB0C8A571B2F9D4E6A1"}); err != nil {
		t.Fatal(err)
	}

	first := store.Load()
	second := store.Load()

	if !reflect.DeepEqual(first, second) {
		t.Errorf("load ripetuti divergono: %v vs %v", first, second)
	}
	// La migrazione viene persistita dal primo Load: il secondo non rimigra
	if len(lookup.calls) != 1 {
		t.Errorf("lookup chiamata %d volte, attesa 1", len(lookup.calls))
	}
}

func TestStateStore_MigrationFallsBackToEpoch(t *testing.T) {
	lookup := &mockLookup{err: errors.New("database is locked")}
	store := openTestStore(t, lookup)

	if err := store.Save(map[string]string{"group1@g.us": "3EB0C8A571B2F9D4E6A1"}); err != nil {
		t.Fatal(err)
	}

	loaded := store.Load()
	if loaded["group1@g.us"] != EpochStart {
		t.Errorf("watermark = %q, atteso il sentinel dell'epoca", loaded["group1@g.us"])
	}
}

func TestIsTimestamp(t *testing.T) {
	cases := []struct {
		value string
		want  bool
	}{
		{"2025-06-01 10:00:00+00:00", true},
		{"1970-01-01 00:00:00+00:00", true},
		{"3EB0C8A571B2F9D4E6A1", false},
		{"ABCDEF", false},
	}
	for _, tc := range cases {
		if got := isTimestamp(tc.value); got != tc.want {
			t.Errorf("isTimestamp(%q) = %v, atteso %v", tc.value, got, tc.want)
		}
	}
}
