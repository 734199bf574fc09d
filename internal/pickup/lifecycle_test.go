// server/internal/pickup/lifecycle_test.go
package pickup

import (
	"testing"

	"waste-pickup-api-server/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	legal := [][2]string{
		{models.StatusPending, models.StatusAssigned},
		{models.StatusPending, models.StatusCancelled},
		{models.StatusAssigned, models.StatusPickedUp},
		{models.StatusAssigned, models.StatusCancelled},
		{models.StatusPickedUp, models.StatusCompleted},
	}
	for _, edge := range legal {
		assert.True(t, CanTransition(edge[0], edge[1]), "%s -> %s should be legal", edge[0], edge[1])
	}

	illegal := [][2]string{
		{models.StatusCompleted, models.StatusAssigned},
		{models.StatusCompleted, models.StatusCancelled},
		{models.StatusCancelled, models.StatusPending},
		{models.StatusCancelled, models.StatusAssigned},
		{models.StatusPickedUp, models.StatusCancelled},
		{models.StatusPending, models.StatusCompleted},
		{models.StatusAssigned, models.StatusCompleted},
		{models.StatusPending, models.StatusPending},
	}
	for _, edge := range illegal {
		assert.False(t, CanTransition(edge[0], edge[1]), "%s -> %s should be illegal", edge[0], edge[1])
	}
}

func TestTerminalStatesHaveNoOutgoingEdges(t *testing.T) {
	for _, terminal := range []string{models.StatusCompleted, models.StatusCancelled} {
		assert.Empty(t, transitions[terminal])
	}
}

func TestSourcesFor(t *testing.T) {
	assert.ElementsMatch(t, []string{models.StatusPending}, sourcesFor(models.StatusAssigned))
	assert.ElementsMatch(t, []string{models.StatusAssigned}, sourcesFor(models.StatusPickedUp))
	assert.ElementsMatch(t, []string{models.StatusPickedUp}, sourcesFor(models.StatusCompleted))
	assert.ElementsMatch(t, []string{models.StatusPending, models.StatusAssigned}, sourcesFor(models.StatusCancelled))

	// pending is the initial status, nothing transitions into it.
	assert.Empty(t, sourcesFor(models.StatusPending))
	assert.Empty(t, sourcesFor("recycled"))
}
