package notifier

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"go.mau.fi/whatsmeow/types"
)

// Config del notifier. Enabled è il kill switch globale: quando è false
// nessun messaggio viene inviato ma le chiamate riportano comunque successo,
// così il resto della pipeline procede come se la consegna fosse avvenuta.
type Config struct {
	Enabled   bool
	SenderURL string
	BridgeURL string
	Timeout   time.Duration
}

// Notifier invia messaggi WhatsApp attraverso il sender API (canale primario,
// con @mention del destinatario) con fallback sul bridge API (broadcast al
// gruppo, senza mention)
type Notifier struct {
	cfg    Config
	client *http.Client
}

func NewNotifier(cfg Config) *Notifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Notifier{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Richiesta al sender API (canale primario, messaggio diretto con @mention)
type directMessageRequest struct {
	GroupJID     string `json:"group_jid"`
	RecipientJID string `json:"recipient_jid"`
	Message      string `json:"message"`
}

// Richiesta al bridge API (canale di fallback, broadcast al gruppo)
type broadcastRequest struct {
	Recipient string `json:"recipient"`
	Message   string `json:"message"`
}

// SendDirectMessage invia un messaggio a un mittente specifico dentro un
// gruppo. Prova prima il sender API; su qualunque risposta non-200 o errore
// di trasporto ripiega sul bridge API. Restituisce false solo se falliscono
// entrambi i canali.
func (n *Notifier) SendDirectMessage(groupJID, recipientPhone, message string) bool {
	// Controllo del kill switch
	if !n.cfg.Enabled {
		log.Printf("🚫 Messaggio NON inviato (kill switch attivo): %.50s...", message)
		return true
	}

	recipientJID := types.NewJID(recipientPhone, types.DefaultUserServer).String()

	if n.post(n.cfg.SenderURL+"/send-message", directMessageRequest{
		GroupJID:     groupJID,
		RecipientJID: recipientJID,
		Message:      message,
	}) {
		log.Printf("✅ Messaggio diretto inviato a %s", recipientPhone)
		return true
	}

	log.Printf("⚠️  Sender API fallito, provo il fallback sul bridge...")

	if n.post(n.cfg.BridgeURL+"/api/send", broadcastRequest{
		Recipient: groupJID,
		Message:   message,
	}) {
		log.Printf("✅ Messaggio di gruppo (fallback) inviato a %s", groupJID)
		return true
	}

	log.Printf("❌ Entrambi i canali di invio hanno fallito per %s", groupJID)
	return false
}

func (n *Notifier) post(url string, payload interface{}) bool {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		log.Printf("❌ Errore nella serializzazione JSON: %v", err)
		return false
	}

	resp, err := n.client.Post(url, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		log.Printf("⚠️  Errore nell'invio a %s: %v", url, err)
		return false
	}
	// Svuota il body così la connessione keep-alive resta riutilizzabile
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		log.Printf("⚠️  Risposta %d da %s", resp.StatusCode, url)
		return false
	}
	return true
}
