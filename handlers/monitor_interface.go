package handlers

import (
	"database/sql"
	"time"

	"wa-monitor/models"
	"wa-monitor/monitor"
)

// DropDB è un'interfaccia che definisce i metodi necessari per interrogare
// il record store dalla API
type DropDB interface {
	GetDB() *sql.DB
	TableExists(name string) (bool, error)
	RecentDrops(project string, limit int) ([]models.Drop, error)
	RecentInvalidDrops(limit int) ([]models.InvalidDrop, error)
}

// MonitorStatus espone lo stato corrente del monitor alla API
type MonitorStatus interface {
	Watermarks() map[string]string
	LastSweep() (time.Time, monitor.SweepStats)
}

// BridgeChecker verifica la raggiungibilità del database del bridge
type BridgeChecker interface {
	Ping() error
}
