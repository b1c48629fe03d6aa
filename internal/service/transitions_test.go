package service

import (
	"testing"

	"zyllen/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestTicketTransitions(t *testing.T) {
	tests := []struct {
		from, to string
		allowed  bool
	}{
		{model.TicketOpen, model.TicketInProgress, true},
		{model.TicketOpen, model.TicketCancelled, true},
		{model.TicketOpen, model.TicketResolved, false},
		{model.TicketOpen, model.TicketClosed, false},
		{model.TicketInProgress, model.TicketResolved, true},
		{model.TicketInProgress, model.TicketOpen, true},
		{model.TicketInProgress, model.TicketClosed, false},
		{model.TicketResolved, model.TicketClosed, true},
		{model.TicketResolved, model.TicketInProgress, true},
		{model.TicketResolved, model.TicketCancelled, false},
		{model.TicketClosed, model.TicketOpen, false},
		{model.TicketCancelled, model.TicketOpen, false},
	}
	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			assert.Equal(t, tt.allowed, ticketTransitions.allows(tt.from, tt.to))
		})
	}
}

func TestMaintenanceTransitions(t *testing.T) {
	tests := []struct {
		from, to string
		allowed  bool
	}{
		{model.OSOpen, model.OSScheduled, true},
		{model.OSOpen, model.OSInProgress, true},
		{model.OSOpen, model.OSCancelled, true},
		{model.OSOpen, model.OSCompleted, false},
		{model.OSScheduled, model.OSInProgress, true},
		{model.OSScheduled, model.OSCancelled, true},
		{model.OSScheduled, model.OSCompleted, false},
		{model.OSInProgress, model.OSCompleted, true},
		{model.OSInProgress, model.OSCancelled, true},
		{model.OSInProgress, model.OSOpen, false},
		{model.OSCompleted, model.OSInProgress, false},
		{model.OSCancelled, model.OSOpen, false},
	}
	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			assert.Equal(t, tt.allowed, maintenanceTransitions.allows(tt.from, tt.to))
		})
	}
}

func TestTerminalStatuses(t *testing.T) {
	assert.True(t, ticketTerminal(model.TicketClosed))
	assert.True(t, ticketTerminal(model.TicketCancelled))
	assert.False(t, ticketTerminal(model.TicketResolved))
	assert.True(t, maintenanceTerminal(model.OSCompleted))
	assert.True(t, maintenanceTerminal(model.OSCancelled))
	assert.False(t, maintenanceTerminal(model.OSScheduled))
}
