package model

import (
	"time"

	"github.com/google/uuid"
)

// Branch is a physical store location. Deployments with a single location
// run branch-agnostic: ledger entries carry a NULL branch id.
type Branch struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name      string    `gorm:"uniqueIndex;not null"`
	Address   *string
	Active    bool `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
