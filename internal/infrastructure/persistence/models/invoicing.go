package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/sac/membership/internal/domain/invoicing"
	"github.com/sac/membership/internal/domain/membership"
	"github.com/sac/membership/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ExternalInvoiceModel is the persistence model for external invoices
type ExternalInvoiceModel struct {
	AggregateModel
	PersonID          uuid.UUID                    `gorm:"type:uuid;not null;index"`
	LinkID            *uuid.UUID                   `gorm:"type:uuid;index"`
	Kind              invoicing.InvoiceKind        `gorm:"type:varchar(20);not null"`
	Year              int                          `gorm:"not null;index"`
	IssueOn           time.Time                    `gorm:"type:date;not null"`
	Total             decimal.Decimal              `gorm:"type:numeric(12,2);not null"`
	State             invoicing.InvoiceState       `gorm:"type:varchar(20);not null;default:'draft'"`
	Beitragskategorie membership.Beitragskategorie `gorm:"type:varchar(10)"`
	CancelledOn       *time.Time                   `gorm:"type:date"`
	ErrorMessage      string                       `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (ExternalInvoiceModel) TableName() string {
	return "external_invoices"
}

// ToDomain converts the persistence model to a domain ExternalInvoice
func (m *ExternalInvoiceModel) ToDomain() *invoicing.ExternalInvoice {
	return &invoicing.ExternalInvoice{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		PersonID:          m.PersonID,
		LinkID:            m.LinkID,
		Kind:              m.Kind,
		Year:              m.Year,
		IssueOn:           shared.Date(m.IssueOn),
		Total:             m.Total,
		State:             m.State,
		Beitragskategorie: m.Beitragskategorie,
		CancelledOn:       utcDate(m.CancelledOn),
		ErrorMessage:      m.ErrorMessage,
	}
}

// ExternalInvoiceModelFromDomain creates a new persistence model from a domain ExternalInvoice
func ExternalInvoiceModelFromDomain(i *invoicing.ExternalInvoice) *ExternalInvoiceModel {
	m := &ExternalInvoiceModel{
		PersonID:          i.PersonID,
		LinkID:            i.LinkID,
		Kind:              i.Kind,
		Year:              i.Year,
		IssueOn:           i.IssueOn,
		Total:             i.Total,
		State:             i.State,
		Beitragskategorie: i.Beitragskategorie,
		CancelledOn:       i.CancelledOn,
		ErrorMessage:      i.ErrorMessage,
	}
	m.FromDomainAggregateRoot(i.BaseAggregateRoot)
	return m
}
