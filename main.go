package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"wa-monitor/chatlog"
	"wa-monitor/db"
	"wa-monitor/handlers"
	"wa-monitor/monitor"
	"wa-monitor/notifier"
	"wa-monitor/persistence"
	"wa-monitor/utils"
)

func main() {
	// Carica la configurazione
	config, err := utils.LoadConfig("config.json")
	if err != nil {
		fmt.Println("Errore nel caricamento della configurazione:", err)
		// Usa valori predefiniti se la configurazione non è disponibile
		config = &utils.Config{
			Database: utils.DatabaseConfig{
				Host:     "localhost",
				Port:     3306,
				User:     "root",
				Password: "",
				DBName:   "wa_monitor",
			},
			Bridge: utils.BridgeConfig{
				MessagesDB: "messages.db",
				WhatsappDB: "whatsapp.db",
			},
			Notifier: utils.NotifierConfig{
				Enabled: true,
			},
		}
		config.ApplyDefaults()
		config.ApplyEnv()
	}

	// Apri il log messaggi del bridge (sola lettura)
	reader, err := chatlog.NewReader(config.Bridge.MessagesDB, config.Bridge.WhatsappDB, config.Monitor.ExcludedSenders)
	if err != nil {
		log.Fatalf("❌ Errore nell'apertura del log messaggi: %v", err)
	}
	defer reader.Close()

	// Connetti al database MySQL
	dbManager, err := db.NewMySQLManager(config.Database.GetDSN())
	if err != nil {
		log.Fatalf("❌ Errore nella connessione a MySQL: %v", err)
	}
	defer dbManager.Close()

	if err := dbManager.InitTables(); err != nil {
		log.Fatalf("❌ Errore nell'inizializzazione delle tabelle: %v", err)
	}

	// Apri lo store dei watermark (con migrazione dei valori legacy al load)
	stateStore, err := persistence.NewStateStore(config.Monitor.StatePath, reader)
	if err != nil {
		log.Fatalf("❌ Errore nell'apertura dello stato: %v", err)
	}
	defer stateStore.Close()

	// Crea il notifier con il kill switch iniettato dalla configurazione
	sender := notifier.NewNotifier(notifier.Config{
		Enabled:   config.Notifier.Enabled,
		SenderURL: config.Notifier.SenderURL,
		BridgeURL: config.Notifier.BridgeURL,
	})
	if !config.Notifier.Enabled {
		log.Println("🚫 Kill switch attivo: nessun messaggio WhatsApp verrà inviato")
	}

	// Crea il monitor
	validator := monitor.NewValidator(monitor.NewValidationPolicy(config.Monitor.ValidatedProjects), dbManager)
	pollInterval := time.Duration(config.Monitor.PollSeconds) * time.Second
	dropMonitor := monitor.NewDropMonitor(reader, dbManager, stateStore, sender, validator, config.Monitor.Projects, pollInterval)
	dropMonitor.OnEvent = handlers.BroadcastToClients

	if len(config.Monitor.Projects) == 0 {
		log.Println("⚠️  Nessun progetto configurato: il monitor non scansionerà nulla")
	}
	dropMonitor.Start()

	// Avvia il server API
	router := gin.Default()
	handlers.SetupAPIRoutes(router, dbManager, dropMonitor, reader, pollInterval)

	go func() {
		addr := fmt.Sprintf(":%d", config.Server.Port)
		log.Printf("🌐 Server API in ascolto su %s", addr)
		if err := router.Run(addr); err != nil {
			log.Fatalf("❌ Errore del server API: %v", err)
		}
	}()

	// Attendi il segnale di arresto
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Arresto in corso...")
	dropMonitor.Stop()
}
