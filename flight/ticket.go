package flight

import (
	"fmt"

	"github.com/hugr-lab/sdmx-go/internal/msgpack"
)

// TicketData represents the decoded content of a Flight ticket.
// The same structure is accepted as a CMD flight descriptor, so a client
// can bind parameters in GetFlightInfo and receive the normalized values
// back in the ticket.
type TicketData struct {
	// Provider is the provider id (e.g., "ECB").
	Provider string `msgpack:"provider"`

	// Dataflow is the dataflow id or name (e.g., "EXR").
	Dataflow string `msgpack:"dataflow"`

	// Params are parameter values to bind (optional).
	// Coded selections are lists of codes or "A+B" short forms.
	Params map[string]any `msgpack:"params,omitempty"`
}

// EncodeTicket creates an opaque msgpack ticket for a dataflow read.
func EncodeTicket(provider, dataflow string, params map[string]any) ([]byte, error) {
	ticket := TicketData{
		Provider: provider,
		Dataflow: dataflow,
		Params:   params,
	}
	if err := ticket.validate(); err != nil {
		return nil, err
	}

	data, err := msgpack.Encode(ticket)
	if err != nil {
		return nil, fmt.Errorf("failed to encode ticket: %w", err)
	}
	return data, nil
}

// DecodeTicket parses an opaque ticket or CMD descriptor body.
func DecodeTicket(ticketBytes []byte) (*TicketData, error) {
	var ticket TicketData
	if err := msgpack.Decode(ticketBytes, &ticket); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTicket, err)
	}
	if err := ticket.validate(); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (t *TicketData) validate() error {
	if t.Provider == "" {
		return fmt.Errorf("%w: provider cannot be empty", ErrInvalidTicket)
	}
	if t.Dataflow == "" {
		return fmt.Errorf("%w: dataflow cannot be empty", ErrInvalidTicket)
	}
	return nil
}
