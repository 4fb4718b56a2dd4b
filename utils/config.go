package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"wa-monitor/models"
)

// Configurazione del database
type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
}

// Configurazione del server
type ServerConfig struct {
	Port int `json:"port"`
}

// Configurazione del bridge WhatsApp (database SQLite in sola lettura)
type BridgeConfig struct {
	MessagesDB string `json:"messages_db"`
	WhatsappDB string `json:"whatsapp_db"`
}

// Configurazione del notifier (API di invio messaggi)
type NotifierConfig struct {
	Enabled   bool   `json:"enabled"`
	SenderURL string `json:"sender_url"`
	BridgeURL string `json:"bridge_url"`
}

// Configurazione del monitor
type MonitorConfig struct {
	PollSeconds       int              `json:"poll_seconds"`
	StatePath         string           `json:"state_path"`
	Projects          []models.Project `json:"projects"`
	ValidatedProjects []string         `json:"validated_projects"`
	ExcludedSenders   []string         `json:"excluded_senders"`
}

// Configurazione completa
type Config struct {
	Database DatabaseConfig `json:"database"`
	Server   ServerConfig   `json:"server"`
	Bridge   BridgeConfig   `json:"bridge"`
	Notifier NotifierConfig `json:"notifier"`
	Monitor  MonitorConfig  `json:"monitor"`
}

// Numeri del bridge e del sender: i messaggi in uscita del sistema non vanno
// mai rimonitorati, altrimenti la notifica stessa diventa un messaggio da scansionare
var defaultExcludedSenders = []string{
	"27640412391",
	"27711558396",
	"36563643842564",
	"10892708159649",
}

// Carica la configurazione dal file
func LoadConfig(filePath string) (*Config, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("errore nell'apertura del file di configurazione: %v", err)
	}
	defer file.Close()

	// Gli invii partono abilitati: il decode sovrascrive solo i campi
	// presenti nel file, quindi un config.json minimo non spegne il notifier
	var config Config
	config.Notifier.Enabled = true
	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&config); err != nil {
		return nil, fmt.Errorf("errore nella decodifica del file di configurazione: %v", err)
	}

	config.ApplyDefaults()
	config.ApplyEnv()
	return &config, nil
}

// Applica i valori predefiniti per i campi mancanti
func (c *Config) ApplyDefaults() {
	if c.Monitor.PollSeconds <= 0 {
		c.Monitor.PollSeconds = 30
	}
	if c.Monitor.StatePath == "" {
		c.Monitor.StatePath = "state.db"
	}
	if len(c.Monitor.ExcludedSenders) == 0 {
		c.Monitor.ExcludedSenders = defaultExcludedSenders
	}
	if c.Notifier.SenderURL == "" {
		c.Notifier.SenderURL = "http://localhost:8081"
	}
	if c.Notifier.BridgeURL == "" {
		c.Notifier.BridgeURL = "http://localhost:8080"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8082
	}
}

// ApplyEnv sovrascrive il kill switch dalla variabile d'ambiente
// ENABLE_WHATSAPP_MESSAGES ('false' per disabilitare tutti gli invii)
func (c *Config) ApplyEnv() {
	if v, ok := os.LookupEnv("ENABLE_WHATSAPP_MESSAGES"); ok {
		c.Notifier.Enabled = strings.ToLower(strings.TrimSpace(v)) == "true"
	}
}

// Ottieni la stringa di connessione al database
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		c.User, c.Password, c.Host, c.Port, c.DBName)
}
