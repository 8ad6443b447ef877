package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/sac/membership/internal/domain/invoicing"
	"github.com/sac/membership/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormExternalInvoiceRepository implements ExternalInvoiceRepository using GORM
type GormExternalInvoiceRepository struct {
	db *gorm.DB
}

// NewGormExternalInvoiceRepository creates a new GormExternalInvoiceRepository
func NewGormExternalInvoiceRepository(db *gorm.DB) *GormExternalInvoiceRepository {
	return &GormExternalInvoiceRepository{db: db}
}

// Save creates or updates an invoice
func (r *GormExternalInvoiceRepository) Save(ctx context.Context, invoice *invoicing.ExternalInvoice) error {
	return translateError(conn(ctx, r.db).Save(models.ExternalInvoiceModelFromDomain(invoice)).Error)
}

// FindByID finds an invoice by ID
func (r *GormExternalInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*invoicing.ExternalInvoice, error) {
	var model models.ExternalInvoiceModel
	if err := conn(ctx, r.db).Where("id = ?", id).First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByPersonIDs returns the invoices of the persons for a year
func (r *GormExternalInvoiceRepository) FindByPersonIDs(ctx context.Context, personIDs []uuid.UUID, year int) ([]*invoicing.ExternalInvoice, error) {
	if len(personIDs) == 0 {
		return []*invoicing.ExternalInvoice{}, nil
	}
	return r.find(ctx, "person_id IN ? AND year = ?", personIDs, year)
}

// FindByLinkID returns the invoices of a role
func (r *GormExternalInvoiceRepository) FindByLinkID(ctx context.Context, linkID uuid.UUID) ([]*invoicing.ExternalInvoice, error) {
	return r.find(ctx, "link_id = ?", linkID)
}

func (r *GormExternalInvoiceRepository) find(ctx context.Context, query string, args ...any) ([]*invoicing.ExternalInvoice, error) {
	var invoiceModels []models.ExternalInvoiceModel
	if err := conn(ctx, r.db).Where(query, args...).Order("created_at ASC").Find(&invoiceModels).Error; err != nil {
		return nil, err
	}
	invoices := make([]*invoicing.ExternalInvoice, len(invoiceModels))
	for i := range invoiceModels {
		invoices[i] = invoiceModels[i].ToDomain()
	}
	return invoices, nil
}

// Compile-time interface compliance check
var _ invoicing.ExternalInvoiceRepository = (*GormExternalInvoiceRepository)(nil)
