package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func unsetKillSwitchEnv(t *testing.T) {
	t.Helper()
	if old, ok := os.LookupEnv("ENABLE_WHATSAPP_MESSAGES"); ok {
		os.Unsetenv("ENABLE_WHATSAPP_MESSAGES")
		t.Cleanup(func() { os.Setenv("ENABLE_WHATSAPP_MESSAGES", old) })
	}
}

func TestLoadConfig_NotifierEnabledByDefault(t *testing.T) {
	unsetKillSwitchEnv(t)
	// Config minima senza la sezione notifier: gli invii devono partire
	// abilitati, il kill switch va armato solo in modo esplicito
	path := writeTestConfig(t, `{
		"database": {"host": "localhost", "port": 3306, "user": "root", "dbname": "wa_monitor"}
	}`)

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if !config.Notifier.Enabled {
		t.Error("Notifier.Enabled = false con config minima, atteso abilitato")
	}
}

func TestLoadConfig_NotifierExplicitlyDisabled(t *testing.T) {
	unsetKillSwitchEnv(t)
	path := writeTestConfig(t, `{
		"notifier": {"enabled": false}
	}`)

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if config.Notifier.Enabled {
		t.Error("enabled: false nel file deve spegnere il notifier")
	}
}

func TestLoadConfig_EnvOverridesKillSwitch(t *testing.T) {
	path := writeTestConfig(t, `{
		"notifier": {"enabled": true}
	}`)

	t.Setenv("ENABLE_WHATSAPP_MESSAGES", "false")
	config, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if config.Notifier.Enabled {
		t.Error("ENABLE_WHATSAPP_MESSAGES=false deve spegnere il notifier")
	}

	t.Setenv("ENABLE_WHATSAPP_MESSAGES", "true")
	config, err = LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if !config.Notifier.Enabled {
		t.Error("ENABLE_WHATSAPP_MESSAGES=true deve riabilitare il notifier")
	}
}

func TestLoadConfig_AppliesDefaults(t *testing.T) {
	path := writeTestConfig(t, `{}`)

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if config.Monitor.PollSeconds != 30 {
		t.Errorf("PollSeconds = %d", config.Monitor.PollSeconds)
	}
	if config.Monitor.StatePath != "state.db" {
		t.Errorf("StatePath = %q", config.Monitor.StatePath)
	}
	if len(config.Monitor.ExcludedSenders) == 0 {
		t.Error("ExcludedSenders vuoto, attesi i numeri di default del sistema")
	}
	if config.Server.Port != 8082 {
		t.Errorf("Server.Port = %d", config.Server.Port)
	}
}
