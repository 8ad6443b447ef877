package invoicing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sac/membership/internal/domain/membership"
	"github.com/sac/membership/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// InvoiceState is the state of an invoice in the external accounting system
type InvoiceState string

const (
	InvoiceStateDraft     InvoiceState = "draft"
	InvoiceStateOpen      InvoiceState = "open"
	InvoiceStatePayed     InvoiceState = "payed"
	InvoiceStateCancelled InvoiceState = "cancelled"
	InvoiceStateError     InvoiceState = "error"
)

// IsCancellable reports whether an invoice in this state may still be cancelled
func (s InvoiceState) IsCancellable() bool {
	return s == InvoiceStateDraft || s == InvoiceStateOpen
}

// InvoiceKind tells membership fee invoices for the Stammsektion and Zusatzsektion apart
type InvoiceKind string

const (
	InvoiceKindMembership    InvoiceKind = "membership"
	InvoiceKindZusatzsektion InvoiceKind = "zusatzsektion"
)

// InvoiceKindFor returns the invoice kind for a membership role type
func InvoiceKindFor(t membership.RoleType) InvoiceKind {
	if t == membership.RoleMitgliedZusatzsektion {
		return InvoiceKindZusatzsektion
	}
	return InvoiceKindMembership
}

// ExternalInvoice records an invoice handed over to the accounting system
type ExternalInvoice struct {
	shared.BaseAggregateRoot
	PersonID          uuid.UUID
	LinkID            *uuid.UUID
	Kind              InvoiceKind
	Year              int
	IssueOn           time.Time
	Total             decimal.Decimal
	State             InvoiceState
	Beitragskategorie membership.Beitragskategorie
	CancelledOn       *time.Time
	ErrorMessage      string
}

// NewMembershipInvoice creates a draft fee invoice for a membership role
func NewMembershipInvoice(role *membership.Role, fees *FeeSchedule, issueOn time.Time) (*ExternalInvoice, error) {
	if !role.Type.IsMembership() {
		return nil, shared.NewDomainError("INVALID_INVOICE_ROLE", fmt.Sprintf("Role type %s is not invoiced", role.Type))
	}
	kind := InvoiceKindFor(role.Type)
	total, err := fees.Fee(kind, role.Beitragskategorie)
	if err != nil {
		return nil, err
	}
	link := role.ID
	return &ExternalInvoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		PersonID:          role.PersonID,
		LinkID:            &link,
		Kind:              kind,
		Year:              issueOn.Year(),
		IssueOn:           shared.Date(issueOn),
		Total:             total,
		State:             InvoiceStateDraft,
		Beitragskategorie: role.Beitragskategorie,
	}, nil
}

// Open marks a draft invoice as transmitted
func (i *ExternalInvoice) Open() error {
	if i.State != InvoiceStateDraft {
		return i.transitionError(InvoiceStateOpen)
	}
	i.setState(InvoiceStateOpen)
	return nil
}

// MarkPayed records the payment of an open invoice
func (i *ExternalInvoice) MarkPayed() error {
	if i.State != InvoiceStateOpen {
		return i.transitionError(InvoiceStatePayed)
	}
	i.setState(InvoiceStatePayed)
	return nil
}

// Cancel cancels a draft or open invoice
func (i *ExternalInvoice) Cancel(on time.Time) error {
	if !i.State.IsCancellable() {
		return i.transitionError(InvoiceStateCancelled)
	}
	i.CancelledOn = shared.DatePtr(on)
	i.setState(InvoiceStateCancelled)
	return nil
}

// MarkError records a transmission failure
func (i *ExternalInvoice) MarkError(message string) error {
	if !i.State.IsCancellable() {
		return i.transitionError(InvoiceStateError)
	}
	i.ErrorMessage = message
	i.setState(InvoiceStateError)
	return nil
}

func (i *ExternalInvoice) setState(s InvoiceState) {
	i.State = s
	i.Touch()
	i.IncrementVersion()
}

func (i *ExternalInvoice) transitionError(to InvoiceState) error {
	return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot move invoice from %s to %s", i.State, to))
}
