package invoicing

import (
	"context"

	"github.com/google/uuid"
)

// ExternalInvoiceRepository defines the interface for invoice persistence
type ExternalInvoiceRepository interface {
	Save(ctx context.Context, invoice *ExternalInvoice) error
	FindByID(ctx context.Context, id uuid.UUID) (*ExternalInvoice, error)
	// FindByPersonIDs returns the invoices of the persons for a year
	FindByPersonIDs(ctx context.Context, personIDs []uuid.UUID, year int) ([]*ExternalInvoice, error)
	FindByLinkID(ctx context.Context, linkID uuid.UUID) ([]*ExternalInvoice, error)
}
