// server/internal/pickup/lifecycle.go
package pickup

import "waste-pickup-api-server/internal/models"

// transitions is the full lifecycle table. A status missing a target set is
// terminal. Claiming is the pending -> assigned edge and goes through the
// dedicated CAS in Claim; everything else goes through Transition.
var transitions = map[string][]string{
	models.StatusPending:   {models.StatusAssigned, models.StatusCancelled},
	models.StatusAssigned:  {models.StatusPickedUp, models.StatusCancelled},
	models.StatusPickedUp:  {models.StatusCompleted},
	models.StatusCompleted: {},
	models.StatusCancelled: {},
}

// CanTransition reports whether from -> to is a legal lifecycle edge.
func CanTransition(from, to string) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// sourcesFor returns every status from which `to` is reachable. The result
// feeds the $in clause of the conditional update, so the legality check and
// the write are a single store operation.
func sourcesFor(to string) []string {
	var from []string
	for status, targets := range transitions {
		for _, t := range targets {
			if t == to {
				from = append(from, status)
			}
		}
	}
	return from
}
