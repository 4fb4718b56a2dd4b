package chatlog

import (
	"database/sql"
	"path/filepath"
	"testing"
)

const testGroupJID = "120363123456789012@g.us"

func createTestBridge(t *testing.T) (*Reader, *sql.DB, *sql.DB) {
	t.Helper()
	dir := t.TempDir()
	messagesPath := filepath.Join(dir, "messages.db")
	whatsappPath := filepath.Join(dir, "whatsapp.db")

	messages, err := sql.Open("sqlite3", messagesPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { messages.Close() })
	if _, err := messages.Exec(`
		CREATE TABLE messages (
			id TEXT,
			chat_jid TEXT,
			sender TEXT,
			content TEXT,
			timestamp TEXT
		)
	`); err != nil {
		t.Fatal(err)
	}

	whatsapp, err := sql.Open("sqlite3", whatsappPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { whatsapp.Close() })
	if _, err := whatsapp.Exec("CREATE TABLE whatsmeow_lid_map (lid TEXT PRIMARY KEY, pn TEXT)"); err != nil {
		t.Fatal(err)
	}

	reader, err := NewReader(messagesPath, whatsappPath, []string{"27640412391", "27711558396"})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { reader.Close() })

	return reader, messages, whatsapp
}

func insertMessage(t *testing.T, db *sql.DB, id, sender, content, timestamp string) {
	t.Helper()
	if _, err := db.Exec(
		"INSERT INTO messages (id, chat_jid, sender, content, timestamp) VALUES (?, ?, ?, ?, ?)",
		id, testGroupJID, sender, content, timestamp,
	); err != nil {
		t.Fatal(err)
	}
}

func TestNewMessages_StrictLowerBound(t *testing.T) {
	reader, db, _ := createTestBridge(t)
	insertMessage(t, db, "A1", "111", "DR1111111", "2025-06-01 10:00:00+00:00")
	insertMessage(t, db, "A2", "111", "DR2222222", "2025-06-01 10:05:00+00:00")

	got, err := reader.NewMessages(testGroupJID, "2025-06-01 10:00:00+00:00")
	if err != nil {
		t.Fatal(err)
	}
	// Il messaggio esattamente al watermark è già stato elaborato
	if len(got) != 1 || got[0].ID != "A2" {
		t.Errorf("messaggi = %+v, atteso solo A2", got)
	}
}

func TestNewMessages_ExcludesOwnSenders(t *testing.T) {
	reader, db, _ := createTestBridge(t)
	insertMessage(t, db, "A1", "27640412391", "DR1111111", "2025-06-01 10:00:00+00:00")
	insertMessage(t, db, "A2", "27711558396", "DR2222222", "2025-06-01 10:01:00+00:00")
	insertMessage(t, db, "A3", "27821234567", "DR3333333", "2025-06-01 10:02:00+00:00")

	got, err := reader.NewMessages(testGroupJID, EpochStart)
	if err != nil {
		t.Fatal(err)
	}
	// I messaggi in uscita del sistema non tornano mai indietro,
	// qualunque sia il contenuto
	if len(got) != 1 || got[0].ID != "A3" {
		t.Errorf("messaggi = %+v, atteso solo A3", got)
	}
}

func TestNewMessages_SameTimestampOrderedByID(t *testing.T) {
	reader, db, _ := createTestBridge(t)
	// Inserimento in ordine inverso: l'ordine di replay dipende solo da (timestamp, id)
	insertMessage(t, db, "B2", "111", "secondo", "2025-06-01 10:00:00+00:00")
	insertMessage(t, db, "B1", "111", "primo", "2025-06-01 10:00:00+00:00")
	insertMessage(t, db, "A9", "111", "prima ancora", "2025-06-01 09:59:00+00:00")

	got, err := reader.NewMessages(testGroupJID, EpochStart)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("messaggi: %d", len(got))
	}
	wantOrder := []string{"A9", "B1", "B2"}
	for i, want := range wantOrder {
		if got[i].ID != want {
			t.Errorf("posizione %d: %s, atteso %s", i, got[i].ID, want)
		}
	}
}

func TestLastTimestamp(t *testing.T) {
	reader, db, _ := createTestBridge(t)

	ts, err := reader.LastTimestamp(testGroupJID)
	if err != nil {
		t.Fatal(err)
	}
	if ts != EpochStart {
		t.Errorf("gruppo vuoto: %q, atteso il sentinel dell'epoca", ts)
	}

	insertMessage(t, db, "A1", "111", "ciao", "2025-06-01 10:00:00+00:00")
	insertMessage(t, db, "A2", "111", "ancora", "2025-06-02 08:00:00+00:00")

	ts, err = reader.LastTimestamp(testGroupJID)
	if err != nil {
		t.Fatal(err)
	}
	if ts != "2025-06-02 08:00:00+00:00" {
		t.Errorf("LastTimestamp = %q", ts)
	}
}

func TestResolvePhone(t *testing.T) {
	reader, _, whatsapp := createTestBridge(t)

	if _, err := whatsapp.Exec(
		"INSERT INTO whatsmeow_lid_map (lid, pn) VALUES (?, ?)",
		"36563643842999", "27829876543",
	); err != nil {
		t.Fatal(err)
	}

	if got := reader.ResolvePhone("36563643842999"); got != "27829876543" {
		t.Errorf("LID risolto in %q", got)
	}
	// Miss: il mittente passa invariato (potrebbe già essere un numero)
	if got := reader.ResolvePhone("27820000000"); got != "27820000000" {
		t.Errorf("passthrough fallito: %q", got)
	}
}
