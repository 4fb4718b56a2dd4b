package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"wa-monitor/models"
)

// healthCheck è il risultato del controllo di un singolo componente
type healthCheck struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// SetupAPIRoutes configura tutte le rotte API
func SetupAPIRoutes(router *gin.Engine, dbManager DropDB, mon MonitorStatus, bridge BridgeChecker, pollInterval time.Duration) {
	// Abilita CORS
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// API di salute: verifica bridge, database, tabelle e freschezza del monitor
	router.GET("/api/health", func(c *gin.Context) {
		checks := make(map[string]healthCheck)

		if err := bridge.Ping(); err != nil {
			checks["bridge_db"] = healthCheck{Status: "down", Error: err.Error()}
		} else {
			checks["bridge_db"] = healthCheck{Status: "up"}
		}

		if err := dbManager.GetDB().Ping(); err != nil {
			checks["database"] = healthCheck{Status: "down", Error: err.Error()}
		} else {
			checks["database"] = healthCheck{Status: "up"}
		}

		checks["tables"] = tablesCheck(dbManager)

		lastSweep, stats := mon.LastSweep()
		switch {
		case lastSweep.IsZero():
			checks["monitor"] = healthCheck{Status: "stale", Error: "nessuna scansione completata"}
		case time.Since(lastSweep) > 2*pollInterval:
			checks["monitor"] = healthCheck{Status: "stale", Error: "ultima scansione troppo vecchia"}
		default:
			checks["monitor"] = healthCheck{Status: "up"}
		}

		overall := "healthy"
		for _, check := range checks {
			if check.Status == "down" {
				overall = "down"
				break
			}
			if check.Status != "up" {
				overall = "degraded"
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"overall_status": overall,
			"timestamp":      time.Now().Format(time.RFC3339),
			"checks":         checks,
			"last_sweep":     lastSweep,
			"last_stats":     stats,
		})
	})

	// API per i watermark correnti del monitor
	router.GET("/api/state", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"watermarks": mon.Watermarks()})
	})

	// API per gli ultimi drop registrati
	router.GET("/api/drops", func(c *gin.Context) {
		project := c.Query("project")
		limit := parseLimit(c.Query("limit"), 50)

		drops, err := dbManager.RecentDrops(project, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if drops == nil {
			drops = []models.Drop{}
		}
		c.JSON(http.StatusOK, drops)
	})

	// API per le ultime submission rifiutate
	router.GET("/api/invalid-drops", func(c *gin.Context) {
		limit := parseLimit(c.Query("limit"), 50)

		invalid, err := dbManager.RecentInvalidDrops(limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if invalid == nil {
			invalid = []models.InvalidDrop{}
		}
		c.JSON(http.StatusOK, invalid)
	})

	// WebSocket per gli eventi live del monitor
	router.GET("/ws", func(c *gin.Context) {
		HandleWebSocket(c.Writer, c.Request)
	})
}

func tablesCheck(dbManager DropDB) healthCheck {
	for _, table := range []string{"qa_photo_reviews", "valid_drop_numbers"} {
		exists, err := dbManager.TableExists(table)
		if err != nil {
			return healthCheck{Status: "down", Error: err.Error()}
		}
		if !exists {
			return healthCheck{Status: "degraded", Error: "tabella mancante: " + table}
		}
	}
	return healthCheck{Status: "up"}
}

func parseLimit(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return fallback
	}
	return limit
}
