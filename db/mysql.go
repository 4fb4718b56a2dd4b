package db

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"wa-monitor/models"
)

type MySQLManager struct {
	db *sql.DB
}

// Crea una nuova istanza del gestore MySQL
func NewMySQLManager(dsn string) (*MySQLManager, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// Verifica la connessione
	if err := db.Ping(); err != nil {
		return nil, err
	}

	// Imposta i parametri di connessione
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &MySQLManager{db: db}, nil
}

// Inizializza le tabelle usate dal monitor. La tabella di audit
// invalid_drop_submissions viene creata pigramente da LogInvalidDrop.
func (m *MySQLManager) InitTables() error {
	// Tabella dei drop (record store)
	_, err := m.db.Exec(`
		CREATE TABLE IF NOT EXISTS qa_photo_reviews (
			id INT AUTO_INCREMENT PRIMARY KEY,
			drop_number VARCHAR(20) NOT NULL UNIQUE,
			user_name VARCHAR(100),
			submitted_by VARCHAR(50),
			project VARCHAR(100),
			message_timestamp VARCHAR(50),
			comment TEXT,
			resubmitted BOOLEAN DEFAULT FALSE,
			feedback_sent BOOLEAN DEFAULT FALSE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("errore nella creazione della tabella qa_photo_reviews: %v", err)
	}

	// Tabella di riferimento dei drop validi per progetto
	_, err = m.db.Exec(`
		CREATE TABLE IF NOT EXISTS valid_drop_numbers (
			id INT AUTO_INCREMENT PRIMARY KEY,
			drop_number VARCHAR(20) NOT NULL,
			project VARCHAR(100) NOT NULL,
			UNIQUE KEY drop_project (drop_number, project)
		)
	`)
	if err != nil {
		return fmt.Errorf("errore nella creazione della tabella valid_drop_numbers: %v", err)
	}

	return nil
}

// DropExists verifica se un drop number è già presente nel record store
func (m *MySQLManager) DropExists(dropNumber string) (bool, error) {
	var one int
	err := m.db.QueryRow(
		"SELECT 1 FROM qa_photo_reviews WHERE drop_number = ? LIMIT 1",
		dropNumber,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// InsertDrop inserisce un nuovo drop nel record store
func (m *MySQLManager) InsertDrop(drop *models.Drop) error {
	_, err := m.db.Exec(`
		INSERT INTO qa_photo_reviews
			(drop_number, user_name, submitted_by, project, message_timestamp, comment)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		drop.DropNumber, drop.UserName, drop.SubmittedBy, drop.Project,
		drop.MessageTimestamp, drop.Comment,
	)
	return err
}

// HandleResubmission aggiorna un drop esistente segnalato di nuovo in chat:
// il record torna in coda alla revisione e il feedback va rimandato
func (m *MySQLManager) HandleResubmission(dropNumber, project, submittedBy string) error {
	_, err := m.db.Exec(`
		UPDATE qa_photo_reviews
		SET resubmitted = TRUE, feedback_sent = FALSE, submitted_by = ?, project = ?
		WHERE drop_number = ?
	`, submittedBy, project, dropNumber)
	return err
}

// IsValidDrop verifica l'appartenenza del drop alla lista di riferimento del progetto
func (m *MySQLManager) IsValidDrop(dropNumber, project string) (bool, error) {
	var one int
	err := m.db.QueryRow(
		"SELECT 1 FROM valid_drop_numbers WHERE drop_number = ? AND project = ? LIMIT 1",
		dropNumber, project,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// LogInvalidDrop registra una submission rifiutata nella tabella di audit,
// creandola se non esiste ancora
func (m *MySQLManager) LogInvalidDrop(dropNumber, project, sender, groupJID string) error {
	_, err := m.db.Exec(`
		CREATE TABLE IF NOT EXISTS invalid_drop_submissions (
			id INT AUTO_INCREMENT PRIMARY KEY,
			drop_number VARCHAR(20),
			project VARCHAR(100),
			sender VARCHAR(50),
			group_jid VARCHAR(100),
			submitted_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			reason VARCHAR(100) DEFAULT 'not_in_valid_list'
		)
	`)
	if err != nil {
		return fmt.Errorf("errore nella creazione della tabella invalid_drop_submissions: %v", err)
	}

	_, err = m.db.Exec(`
		INSERT INTO invalid_drop_submissions (drop_number, project, sender, group_jid, reason)
		VALUES (?, ?, ?, ?, 'not_in_valid_list')
	`, dropNumber, project, sender, groupJID)
	if err != nil {
		return err
	}

	log.Printf("🚫 RIFIUTATO: %s (non nella lista valida per %s)", dropNumber, project)
	return nil
}

// RecentDrops carica gli ultimi drop registrati, opzionalmente filtrati per progetto
func (m *MySQLManager) RecentDrops(project string, limit int) ([]models.Drop, error) {
	query := `
		SELECT id, drop_number, user_name, submitted_by, project,
			message_timestamp, comment, resubmitted, created_at
		FROM qa_photo_reviews
	`
	args := []interface{}{}
	if project != "" {
		query += " WHERE project = ?"
		args = append(args, project)
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := m.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drops []models.Drop
	for rows.Next() {
		var d models.Drop
		if err := rows.Scan(
			&d.ID, &d.DropNumber, &d.UserName, &d.SubmittedBy, &d.Project,
			&d.MessageTimestamp, &d.Comment, &d.Resubmitted, &d.CreatedAt,
		); err != nil {
			return nil, err
		}
		drops = append(drops, d)
	}

	return drops, rows.Err()
}

// RecentInvalidDrops carica le ultime submission rifiutate dalla tabella di audit
func (m *MySQLManager) RecentInvalidDrops(limit int) ([]models.InvalidDrop, error) {
	rows, err := m.db.Query(`
		SELECT id, drop_number, project, sender, group_jid, reason, submitted_at
		FROM invalid_drop_submissions
		ORDER BY submitted_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invalid []models.InvalidDrop
	for rows.Next() {
		var inv models.InvalidDrop
		if err := rows.Scan(
			&inv.ID, &inv.DropNumber, &inv.Project, &inv.Sender,
			&inv.GroupJID, &inv.Reason, &inv.SubmittedAt,
		); err != nil {
			return nil, err
		}
		invalid = append(invalid, inv)
	}

	return invalid, rows.Err()
}

// TableExists verifica la presenza di una tabella nello schema corrente
func (m *MySQLManager) TableExists(name string) (bool, error) {
	var one int
	err := m.db.QueryRow(`
		SELECT 1 FROM information_schema.tables
		WHERE table_schema = DATABASE() AND table_name = ?
		LIMIT 1
	`, name).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetDB espone la connessione sottostante (usata dai check di salute)
func (m *MySQLManager) GetDB() *sql.DB {
	return m.db
}

// Chiude la connessione al database
func (m *MySQLManager) Close() error {
	return m.db.Close()
}
