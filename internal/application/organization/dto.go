package organization

import "github.com/google/uuid"

// CreateGroupRequest describes a new group below an existing parent
type CreateGroupRequest struct {
	ParentID       uuid.UUID `json:"parent_id" validate:"required"`
	Type           string    `json:"type" validate:"required"`
	Name           string    `json:"name" validate:"required,max=200"`
	ShortName      string    `json:"short_name" validate:"max=50"`
	NavisionID     *int64    `json:"navision_id" validate:"omitempty,gt=0"`
	Canton         string    `json:"canton" validate:"omitempty,len=2"`
	FoundationYear int       `json:"foundation_year" validate:"omitempty,gte=1863,lte=2100"`
	// SkipDefaultChildren leaves out the standard subgroups of a layer
	SkipDefaultChildren bool `json:"-"`
}
