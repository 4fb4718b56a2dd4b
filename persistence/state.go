package persistence

import (
	"log"
	"strings"
	"sync"
	"time"

	"go.etcd.io/bbolt"
)

var watermarksBucket = []byte("watermarks")

// LastTimestampLookup fornisce l'ultimo timestamp noto di un gruppo,
// usato per migrare i valori di stato legacy basati su ID messaggio.
type LastTimestampLookup interface {
	LastTimestamp(groupJID string) (string, error)
}

// EpochStart è il watermark di partenza per i gruppi senza stato
const EpochStart = "1970-01-01 00:00:00+00:00"

// StateStore persiste il watermark (timestamp dell'ultimo messaggio scansionato)
// per ogni gruppo monitorato
type StateStore struct {
	db     *bbolt.DB
	lookup LastTimestampLookup
	mu     sync.Mutex
}

func NewStateStore(path string, lookup LastTimestampLookup) (*StateStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(watermarksBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &StateStore{db: db, lookup: lookup}, nil
}

// Load carica la mappa gruppo → watermark. I valori legacy (ID messaggio invece
// di timestamp) vengono migrati in un unico passaggio e la mappa migrata viene
// persistita subito, così un crash tra migrazione e prima scansione non fa
// ripartire la migrazione al load successivo. Un errore di lettura non è fatale:
// si riparte con una mappa vuota (ogni gruppo dall'epoca).
func (s *StateStore) Load() map[string]string {
	state := make(map[string]string)

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(watermarksBucket)
		return bucket.ForEach(func(k, v []byte) error {
			state[string(k)] = string(v)
			return nil
		})
	})
	if err != nil {
		log.Printf("⚠️  Impossibile caricare lo stato: %v", err)
		return make(map[string]string)
	}

	if s.migrateLegacyValues(state) {
		if err := s.Save(state); err != nil {
			log.Printf("❌ Impossibile salvare lo stato migrato: %v", err)
		} else {
			log.Printf("✅ Migrazione dello stato completata e salvata")
		}
	}

	log.Printf("📂 Stato caricato: %d gruppi tracciati", len(state))
	return state
}

// migrateLegacyValues sostituisce ogni valore legacy con l'ultimo timestamp del
// gruppo (o EpochStart se il gruppo è vuoto). Restituisce true se ha migrato qualcosa.
func (s *StateStore) migrateLegacyValues(state map[string]string) bool {
	migrated := false
	for groupJID, value := range state {
		if isTimestamp(value) {
			continue
		}
		log.Printf("🔄 Migrazione dello stato per %s da ID a timestamp", groupJID)

		timestamp := EpochStart
		if s.lookup != nil {
			ts, err := s.lookup.LastTimestamp(groupJID)
			if err != nil {
				log.Printf("❌ Errore nella lettura dell'ultimo timestamp per %s: %v", groupJID, err)
			} else {
				timestamp = ts
			}
		}
		state[groupJID] = timestamp
		migrated = true
	}
	return migrated
}

// Save riscrive per intero la mappa dei watermark in una singola transazione
func (s *StateStore) Save(state map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(watermarksBucket); err != nil {
			return err
		}
		bucket, err := tx.CreateBucket(watermarksBucket)
		if err != nil {
			return err
		}
		for groupJID, watermark := range state {
			if err := bucket.Put([]byte(groupJID), []byte(watermark)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *StateStore) Close() error {
	return s.db.Close()
}

// I timestamp contengono separatori di ora e di data; gli ID legacy sono stringhe hex
func isTimestamp(value string) bool {
	return strings.Contains(value, ":") && strings.Contains(value, "-")
}
