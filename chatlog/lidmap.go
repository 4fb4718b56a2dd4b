package chatlog

import (
	"database/sql"
	"log"
)

// ResolvePhone risolve un mittente nel numero di telefono canonico tramite la
// tabella whatsmeow_lid_map. La lookup va fatta SEMPRE: anche i LID possono
// essere stringhe di sole cifre, quindi l'aspetto del mittente non dice nulla.
// Su miss o errore restituisce il mittente invariato (fail open: un mittente
// non risolto resta attribuibile, solo sotto l'alias interno).
func (r *Reader) ResolvePhone(sender string) string {
	var phone string
	err := r.whatsapp.QueryRow(
		"SELECT pn FROM whatsmeow_lid_map WHERE lid = ?",
		sender,
	).Scan(&phone)
	if err == sql.ErrNoRows {
		return sender
	}
	if err != nil {
		log.Printf("❌ Errore nella risoluzione del LID %s: %v", sender, err)
		return sender
	}

	log.Printf("🔗 LID risolto %s → %s", sender, phone)
	return phone
}
