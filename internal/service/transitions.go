package service

import (
	"zyllen/internal/model"
)

// transitions maps a status to the statuses it may move to. Absent keys are terminal.
type transitions map[string][]string

func (t transitions) allows(from, to string) bool {
	for _, next := range t[from] {
		if next == to {
			return true
		}
	}
	return false
}

var ticketTransitions = transitions{
	model.TicketOpen:       {model.TicketInProgress, model.TicketCancelled},
	model.TicketInProgress: {model.TicketResolved, model.TicketOpen, model.TicketCancelled},
	model.TicketResolved:   {model.TicketClosed, model.TicketInProgress},
}

var maintenanceTransitions = transitions{
	model.OSOpen:       {model.OSScheduled, model.OSInProgress, model.OSCancelled},
	model.OSScheduled:  {model.OSInProgress, model.OSCancelled},
	model.OSInProgress: {model.OSCompleted, model.OSCancelled},
}

func ticketTerminal(status string) bool {
	return status == model.TicketClosed || status == model.TicketCancelled
}

func maintenanceTerminal(status string) bool {
	return status == model.OSCompleted || status == model.OSCancelled
}
