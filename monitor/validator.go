package monitor

import "log"

// ReferenceStore è la lista di riferimento dei drop validi per progetto
type ReferenceStore interface {
	IsValidDrop(dropNumber, project string) (bool, error)
}

// ValidationPolicy partiziona i progetti: quelli presenti richiedono
// l'appartenenza alla lista di riferimento, tutti gli altri passano senza
// controllo. La partizione è una tabella esplicita costruita dalla
// configurazione, non un confronto di stringhe a runtime.
type ValidationPolicy map[string]bool

func NewValidationPolicy(validatedProjects []string) ValidationPolicy {
	policy := make(ValidationPolicy, len(validatedProjects))
	for _, project := range validatedProjects {
		policy[project] = true
	}
	return policy
}

// Requires indica se il progetto richiede la validazione del drop number
func (p ValidationPolicy) Requires(project string) bool {
	return p[project]
}

// Validator controlla i drop number contro la lista di riferimento
type Validator struct {
	policy ValidationPolicy
	store  ReferenceStore
}

func NewValidator(policy ValidationPolicy, store ReferenceStore) *Validator {
	return &Validator{policy: policy, store: store}
}

// Validate verifica un drop number per un progetto. Per i progetti fuori
// partizione accetta sempre. Su errore dello storage accetta comunque
// (fail open): un record invalido si recupera dopo, un record perso no.
func (v *Validator) Validate(dropNumber, project string) bool {
	if !v.policy.Requires(project) {
		return true
	}

	valid, err := v.store.IsValidDrop(dropNumber, project)
	if err != nil {
		log.Printf("❌ Errore nella validazione del drop number: %v", err)
		return true
	}
	return valid
}
