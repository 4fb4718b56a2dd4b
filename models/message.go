package models

// Message rappresenta una riga del log messaggi del bridge WhatsApp (sola lettura).
// Il timestamp resta la stringa ISO salvata dal bridge: il confronto lessicografico
// coincide con l'ordine cronologico.
type Message struct {
	ID        string `json:"id"`
	Sender    string `json:"sender"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// Project rappresenta un gruppo WhatsApp monitorato
type Project struct {
	Name     string `json:"name"`
	GroupJID string `json:"group_jid"`
}
