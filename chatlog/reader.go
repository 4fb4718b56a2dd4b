package chatlog

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"wa-monitor/models"
)

// EpochStart è il watermark iniziale per i gruppi mai scansionati
const EpochStart = "1970-01-01 00:00:00+00:00"

// Reader legge il log messaggi del bridge WhatsApp (SQLite, sola lettura)
type Reader struct {
	messages *sql.DB
	whatsapp *sql.DB
	excluded []string
}

// Crea un nuovo reader sui database del bridge. messagesPath è il database
// dei messaggi archiviati, whatsappPath quello di sessione di whatsmeow
// (serve solo per la tabella whatsmeow_lid_map).
func NewReader(messagesPath, whatsappPath string, excludedSenders []string) (*Reader, error) {
	messages, err := sql.Open("sqlite3", messagesPath)
	if err != nil {
		return nil, fmt.Errorf("errore nell'apertura del database messaggi: %v", err)
	}

	whatsapp, err := sql.Open("sqlite3", whatsappPath)
	if err != nil {
		messages.Close()
		return nil, fmt.Errorf("errore nell'apertura del database whatsapp: %v", err)
	}

	return &Reader{
		messages: messages,
		whatsapp: whatsapp,
		excluded: excludedSenders,
	}, nil
}

// NewMessages restituisce i messaggi di un gruppo strettamente più recenti del
// watermark, esclusi i mittenti del sistema stesso, in ordine (timestamp, id)
// crescente. Quell'ordine è l'unico valido per l'avanzamento del watermark.
func (r *Reader) NewMessages(groupJID, sinceTimestamp string) ([]models.Message, error) {
	query := `
		SELECT id, sender, content, timestamp
		FROM messages
		WHERE chat_jid = ?
		  AND timestamp > ?` + r.exclusionClause() + `
		ORDER BY timestamp ASC, id ASC
	`

	args := make([]interface{}, 0, 2+len(r.excluded))
	args = append(args, groupJID, sinceTimestamp)
	for _, sender := range r.excluded {
		args = append(args, sender)
	}

	rows, err := r.messages.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("errore nella lettura dei messaggi: %v", err)
	}
	defer rows.Close()

	var result []models.Message
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(&msg.ID, &msg.Sender, &msg.Content, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("errore nella scansione del messaggio: %v", err)
		}
		result = append(result, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// LastTimestamp restituisce il timestamp dell'ultimo messaggio di un gruppo,
// oppure EpochStart se il gruppo non ha messaggi. Usato dalla migrazione dello stato.
func (r *Reader) LastTimestamp(groupJID string) (string, error) {
	var timestamp string
	err := r.messages.QueryRow(
		"SELECT timestamp FROM messages WHERE chat_jid = ? ORDER BY timestamp DESC LIMIT 1",
		groupJID,
	).Scan(&timestamp)
	if err == sql.ErrNoRows {
		return EpochStart, nil
	}
	if err != nil {
		return "", fmt.Errorf("errore nella lettura dell'ultimo timestamp: %v", err)
	}
	return timestamp, nil
}

// Ping verifica che il database dei messaggi sia raggiungibile
func (r *Reader) Ping() error {
	var one int
	return r.messages.QueryRow("SELECT 1").Scan(&one)
}

// Chiude le connessioni ai database del bridge
func (r *Reader) Close() error {
	if err := r.messages.Close(); err != nil {
		r.whatsapp.Close()
		return err
	}
	return r.whatsapp.Close()
}

func (r *Reader) exclusionClause() string {
	if len(r.excluded) == 0 {
		return ""
	}
	placeholders := strings.Repeat("?, ", len(r.excluded))
	return "\n\t\t  AND sender NOT IN (" + strings.TrimSuffix(placeholders, ", ") + ")"
}
