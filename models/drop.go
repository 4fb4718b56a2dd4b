package models

import "time"

// Drop rappresenta un record di drop number creato dal monitor
type Drop struct {
	ID               int       `json:"id,omitempty"`
	DropNumber       string    `json:"dropNumber"`
	UserName         string    `json:"userName"`
	SubmittedBy      string    `json:"submittedBy"`
	Project          string    `json:"project"`
	MessageTimestamp string    `json:"messageTimestamp"`
	Comment          string    `json:"comment,omitempty"`
	Resubmitted      bool      `json:"resubmitted"`
	CreatedAt        time.Time `json:"createdAt,omitempty"`
}

// InvalidDrop rappresenta una submission rifiutata dalla validazione
type InvalidDrop struct {
	ID          int       `json:"id"`
	DropNumber  string    `json:"dropNumber"`
	Project     string    `json:"project"`
	Sender      string    `json:"sender"`
	GroupJID    string    `json:"groupJid"`
	Reason      string    `json:"reason"`
	SubmittedAt time.Time `json:"submittedAt"`
}
