package monitor

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mau.fi/whatsmeow/types"

	"wa-monitor/models"
)

// MessageSource legge i messaggi nuovi dal log del bridge e risolve i mittenti
type MessageSource interface {
	NewMessages(groupJID, sinceTimestamp string) ([]models.Message, error)
	ResolvePhone(sender string) string
}

// DropStore è il record store esterno dei drop (esistenza, inserimento,
// rimandi e audit delle submission rifiutate)
type DropStore interface {
	ReferenceStore
	DropExists(dropNumber string) (bool, error)
	InsertDrop(drop *models.Drop) error
	HandleResubmission(dropNumber, project, submittedBy string) error
	LogInvalidDrop(dropNumber, project, sender, groupJID string) error
}

// WatermarkStore persiste la mappa gruppo → watermark
type WatermarkStore interface {
	Load() map[string]string
	Save(state map[string]string) error
}

// Notifier invia il messaggio di rifiuto al mittente nel gruppo
type Notifier interface {
	SendDirectMessage(groupJID, recipientPhone, message string) bool
}

// EpochStart è il watermark di partenza per i gruppi mai scansionati
const EpochStart = "1970-01-01 00:00:00+00:00"

// SweepStats raccoglie i contatori di un ciclo di scansione completo
type SweepStats struct {
	MessagesSeen int `json:"messagesSeen"`
	DropsFound   int `json:"dropsFound"`
	Inserted     int `json:"inserted"`
	Resubmitted  int `json:"resubmitted"`
	Rejected     int `json:"rejected"`
}

// DropMonitor scansiona i gruppi WhatsApp monitorati alla ricerca di drop number
type DropMonitor struct {
	source    MessageSource
	store     DropStore
	state     WatermarkStore
	notifier  Notifier
	validator *Validator
	projects  []models.Project
	interval  time.Duration

	// OnEvent, se impostato, riceve gli eventi del monitor
	// (drop_created, drop_resubmitted, drop_rejected) per la dashboard
	OnEvent func(eventType string, payload interface{})

	mu         sync.Mutex
	watermarks map[string]string
	lastSweep  time.Time
	lastStats  SweepStats

	isRunning bool
	stopChan  chan struct{}
}

// NewDropMonitor crea il monitor e carica subito i watermark persistiti
// (con eventuale migrazione dei valori legacy eseguita dallo store)
func NewDropMonitor(source MessageSource, store DropStore, state WatermarkStore, notifier Notifier, validator *Validator, projects []models.Project, interval time.Duration) *DropMonitor {
	return &DropMonitor{
		source:     source,
		store:      store,
		state:      state,
		notifier:   notifier,
		validator:  validator,
		projects:   projects,
		interval:   interval,
		watermarks: state.Load(),
		stopChan:   make(chan struct{}),
	}
}

// Start avvia il ciclo di polling
func (dm *DropMonitor) Start() {
	dm.mu.Lock()
	if dm.isRunning {
		dm.mu.Unlock()
		log.Println("Drop monitor già in esecuzione")
		return
	}
	dm.isRunning = true
	dm.mu.Unlock()

	log.Printf("🤖 Drop monitor avviato - polling ogni %s su %d progetti", dm.interval, len(dm.projects))

	go func() {
		ticker := time.NewTicker(dm.interval)
		defer ticker.Stop()

		// Esegui subito la prima scansione
		dm.Sweep()

		for {
			select {
			case <-ticker.C:
				dm.Sweep()
			case <-dm.stopChan:
				log.Println("Drop monitor fermato")
				return
			}
		}
	}()
}

// Stop ferma il ciclo di polling. Sicuro da chiamare più volte e da
// goroutine diverse: solo la prima chiamata ferma il loop.
func (dm *DropMonitor) Stop() {
	dm.mu.Lock()
	if !dm.isRunning {
		dm.mu.Unlock()
		return
	}
	dm.isRunning = false
	dm.mu.Unlock()

	dm.stopChan <- struct{}{}
}

// Sweep scansiona in sequenza tutti i progetti configurati.
// I gruppi sono scansionati uno alla volta: il read-modify-write del watermark
// non è transazionale, quindi ogni gruppo deve avere un solo scrittore.
func (dm *DropMonitor) Sweep() SweepStats {
	stats := SweepStats{}

	for _, project := range dm.projects {
		if project.Name == "" || project.GroupJID == "" {
			continue
		}
		if _, err := types.ParseJID(project.GroupJID); err != nil {
			log.Printf("⚠️  JID non valido per il progetto %s: %v", project.Name, err)
			continue
		}
		dm.ScanProject(project, &stats)
	}

	dm.mu.Lock()
	dm.lastSweep = time.Now()
	dm.lastStats = stats
	dm.mu.Unlock()

	if stats.MessagesSeen > 0 {
		log.Printf("🔍 Scansione completata: %d messaggi, %d drop, %d inseriti, %d rimandi, %d rifiutati",
			stats.MessagesSeen, stats.DropsFound, stats.Inserted, stats.Resubmitted, stats.Rejected)
	}
	return stats
}

// ScanProject scansiona un singolo progetto e restituisce il numero di
// messaggi elaborati con successo. Il watermark avanza per OGNI messaggio
// della sequenza, anche se rifiutato: il rifiuto è un esito terminale,
// non una condizione di retry.
func (dm *DropMonitor) ScanProject(project models.Project, stats *SweepStats) int {
	since := dm.watermark(project.GroupJID)

	messages, err := dm.source.NewMessages(project.GroupJID, since)
	if err != nil {
		// Il watermark resta invariato: lo stesso intervallo verrà
		// ritentato al prossimo ciclo
		log.Printf("❌ Errore nella lettura dei messaggi per %s: %v", project.Name, err)
		return 0
	}

	if len(messages) == 0 {
		return 0
	}

	processed := 0
	for _, msg := range messages {
		if stats != nil {
			stats.MessagesSeen++
		}
		if dm.processMessage(msg, project.Name, project.GroupJID, stats) {
			processed++
		}
		dm.setWatermark(project.GroupJID, msg.Timestamp)
	}

	// Salva lo stato dopo ogni ciclo che ha letto messaggi, anche se sono
	// stati tutti rifiutati: il progresso deve restare durevole
	if err := dm.state.Save(dm.Watermarks()); err != nil {
		log.Printf("❌ Impossibile salvare lo stato: %v", err)
	}

	return processed
}

// processMessage elabora un singolo messaggio. Restituisce true se il
// messaggio ha prodotto una scrittura nel record store.
func (dm *DropMonitor) processMessage(msg models.Message, projectName, groupJID string, stats *SweepStats) bool {
	dropNumber := ExtractDropNumber(msg.Content)
	if dropNumber == "" {
		return false
	}

	log.Printf("📱 Drop trovato: %s in %s", dropNumber, projectName)
	if stats != nil {
		stats.DropsFound++
	}

	if !dm.validator.Validate(dropNumber, projectName) {
		log.Printf("❌ DROP NON VALIDO: %s non è nella lista valida per %s", dropNumber, projectName)
		if err := dm.store.LogInvalidDrop(dropNumber, projectName, msg.Sender, groupJID); err != nil {
			log.Printf("❌ Errore nella registrazione del drop non valido: %v", err)
		}

		// Risolvi il mittente e invia la notifica di rifiuto con @mention
		senderPhone := dm.source.ResolvePhone(msg.Sender)
		reply := fmt.Sprintf(
			"❌ Invalid Drop Number\n\nDrop %s is not in the valid list for %s.\n\nPlease submit a valid drop number from the project plan.",
			dropNumber, projectName,
		)
		dm.notifier.SendDirectMessage(groupJID, senderPhone, reply)

		dm.emit("drop_rejected", dropNumber, projectName, groupJID, msg.Sender)
		if stats != nil {
			stats.Rejected++
		}
		return false
	}

	resolvedPhone := dm.source.ResolvePhone(msg.Sender)
	hasKeyword := HasResubmissionKeyword(msg.Content)

	exists, err := dm.store.DropExists(dropNumber)
	if err != nil {
		// Senza il check di esistenza non si può scegliere il branch in modo
		// idempotente: meglio nessuna scrittura che un doppio inserimento
		log.Printf("❌ Errore nel controllo di esistenza del drop %s: %v", dropNumber, err)
		return false
	}

	if exists {
		if hasKeyword {
			log.Printf("🔄 Rimando con parola chiave rilevato: %s", dropNumber)
		} else {
			log.Printf("🔄 Rimando rilevato: %s", dropNumber)
		}
		if err := dm.store.HandleResubmission(dropNumber, projectName, resolvedPhone); err != nil {
			log.Printf("❌ Errore nella gestione del rimando: %v", err)
			return false
		}
		dm.emit("drop_resubmitted", dropNumber, projectName, groupJID, resolvedPhone)
		if stats != nil {
			stats.Resubmitted++
		}
		return true
	}

	userName := resolvedPhone
	if len(userName) > 100 {
		userName = userName[:100]
	}
	drop := &models.Drop{
		DropNumber:       dropNumber,
		UserName:         userName,
		SubmittedBy:      resolvedPhone,
		Project:          projectName,
		MessageTimestamp: msg.Timestamp,
		Comment:          "Created from WhatsApp message (validated)",
	}
	if err := dm.store.InsertDrop(drop); err != nil {
		log.Printf("❌ Errore nell'inserimento del drop %s: %v", dropNumber, err)
		return false
	}

	dm.emit("drop_created", dropNumber, projectName, groupJID, resolvedPhone)
	if stats != nil {
		stats.Inserted++
	}
	return true
}

// Watermarks restituisce una copia della mappa corrente dei watermark
func (dm *DropMonitor) Watermarks() map[string]string {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	snapshot := make(map[string]string, len(dm.watermarks))
	for groupJID, watermark := range dm.watermarks {
		snapshot[groupJID] = watermark
	}
	return snapshot
}

// LastSweep restituisce l'istante e i contatori dell'ultima scansione completata
func (dm *DropMonitor) LastSweep() (time.Time, SweepStats) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	return dm.lastSweep, dm.lastStats
}

func (dm *DropMonitor) watermark(groupJID string) string {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if watermark, ok := dm.watermarks[groupJID]; ok {
		return watermark
	}
	return EpochStart
}

func (dm *DropMonitor) setWatermark(groupJID, timestamp string) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.watermarks[groupJID] = timestamp
}

func (dm *DropMonitor) emit(eventType, dropNumber, project, groupJID, sender string) {
	if dm.OnEvent == nil {
		return
	}
	dm.OnEvent(eventType, models.DropEvent{
		EventID:    uuid.New().String(),
		DropNumber: dropNumber,
		Project:    project,
		GroupJID:   groupJID,
		Sender:     sender,
		Timestamp:  time.Now().Format(time.RFC3339),
	})
}
