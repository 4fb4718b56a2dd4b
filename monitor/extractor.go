package monitor

import (
	"regexp"
	"strings"
)

// Pattern dei drop number: prefisso DR, spazio opzionale, 6-8 cifre
var dropPattern = regexp.MustCompile(`(?i)\bDR\s?\d{6,8}\b`)

// Vocabolario fisso dei rimandi: serve solo alla granularità dei log,
// non cambia la validazione né il branch di resubmission
var resubmissionKeywords = []string{
	"done", "updated", "fixed", "completed", "uploaded", "finish", "finished",
}

// ExtractDropNumber estrae il primo drop number dal contenuto del messaggio,
// normalizzato in maiuscolo e senza lo spazio interno opzionale
// ("dr 123456" e "DR123456" producono entrambi "DR123456").
// Restituisce la stringa vuota se non c'è alcun match.
func ExtractDropNumber(content string) string {
	if content == "" {
		return ""
	}

	match := dropPattern.FindString(content)
	if match == "" {
		return ""
	}

	return strings.ReplaceAll(strings.ToUpper(match), " ", "")
}

// HasResubmissionKeyword verifica se il messaggio contiene una parola chiave
// di rimando (match di sottostringa, case-insensitive)
func HasResubmissionKeyword(content string) bool {
	if content == "" {
		return false
	}

	lower := strings.ToLower(content)
	for _, keyword := range resubmissionKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
