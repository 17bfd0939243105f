// Package checkin admits tickets at the door. A scanned QR payload is parsed
// into one of a closed set of shapes, resolved to a ticket through the
// historical ID encodings, gated on payment and checked in exactly once.
package checkin

import (
	"net/url"
	"strings"

	"github.com/farellandr/ticketgate/internal/helpers"
)

const compositeSeparator = "_"

type PayloadKind int

const (
	// KindBare is a single ID: a legacy inscription ID or a ticket ID.
	KindBare PayloadKind = iota + 1
	// KindComposite is "inscriptionId_ticketId".
	KindComposite
)

type Payload struct {
	Kind          PayloadKind
	InscriptionID string
	// ID is the ticket ID for composite payloads and the whole ID for bare
	// ones.
	ID string
}

func (p Payload) String() string {
	if p.Kind == KindComposite {
		return p.InscriptionID + compositeSeparator + p.ID
	}
	return p.ID
}

func invalidPayload(message string) *helpers.AppError {
	return helpers.NewError(helpers.KindInvalidPayload, "Invalid QR code format: "+message)
}

// ParsePayload normalizes a raw scan. Anything containing "http" is treated as
// a ticket page URL and must carry an id query parameter.
func ParsePayload(raw string) (Payload, error) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return Payload{}, helpers.NewError(helpers.KindMissingField, "The ticket ID was not provided.")
	}

	if strings.Contains(id, "http") {
		u, err := url.Parse(id)
		if err != nil {
			return Payload{}, invalidPayload("unparseable URL")
		}
		id = strings.TrimSpace(u.Query().Get("id"))
		if id == "" {
			return Payload{}, invalidPayload(`parameter "id" not found in URL`)
		}
	}

	inscriptionID, ticketID, composite := strings.Cut(id, compositeSeparator)
	if !composite {
		return Payload{Kind: KindBare, ID: id}, nil
	}
	if inscriptionID == "" || ticketID == "" {
		return Payload{}, invalidPayload("incomplete composite ID")
	}
	return Payload{Kind: KindComposite, InscriptionID: inscriptionID, ID: ticketID}, nil
}

type StepKind int

const (
	// StepNested looks the ticket up under a known inscription.
	StepNested StepKind = iota + 1
	// StepLegacy treats the ID as a pre-ticket inscription that is its own
	// ticket.
	StepLegacy
	// StepScan looks the ID up as a ticket under any inscription.
	StepScan
)

func (k StepKind) String() string {
	switch k {
	case StepNested:
		return "nested"
	case StepLegacy:
		return "legacy"
	case StepScan:
		return "scan"
	}
	return "unknown"
}

type Step struct {
	Kind          StepKind
	InscriptionID string
	ID            string
}

// Plan returns the lookups to try for p, in order. The scan always comes
// last since it is the only step that is not a direct key lookup.
func Plan(p Payload) []Step {
	switch p.Kind {
	case KindComposite:
		return []Step{
			{Kind: StepNested, InscriptionID: p.InscriptionID, ID: p.ID},
			{Kind: StepScan, ID: p.ID},
		}
	case KindBare:
		return []Step{
			{Kind: StepLegacy, ID: p.ID},
			{Kind: StepScan, ID: p.ID},
		}
	}
	return nil
}
