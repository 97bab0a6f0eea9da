// Package domain defines the persistence models for inquiries and the users
// who own them. These types are mapped with GORM and form the core data layer
// of the inquiries service.
package domain

import "time"

// ApplicationUser is the local projection of an identity owned by the
// external identity provider. Only the attributes this service needs are
// stored; the row is upserted the first time a principal is seen so that
// inquiries can reference their owner.
//
// Fields:
//   - ID: stable UUID of the principal (char(36)); also the CRM contact id.
//   - UserName / Email: informational, copied from token claims.
//   - FirstName / LastName: profile extension over the base identity.
type ApplicationUser struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	UserName  string    `json:"user_name"  gorm:"type:varchar(256)"`
	Email     string    `json:"email"      gorm:"type:varchar(256)"`
	FirstName string    `json:"first_name" gorm:"type:varchar(128)"`
	LastName  string    `json:"last_name"  gorm:"type:varchar(128)"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for ApplicationUser.
func (ApplicationUser) TableName() string { return "users" }

// Inquiry is a question raised by a user. The same ID addresses the mirrored
// entity in the CRM, so it must never change once assigned.
//
// Fields:
//   - ID: UUID primary key generated at creation (char(36)).
//   - Question: the user's question (required).
//   - Response: answer text; the CRM copy is authoritative when viewing details.
//   - UserID: owning user (indexed); rows cascade away with their owner.
//   - Version: optimistic concurrency token, bumped on every update.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type Inquiry struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	Question  string    `json:"question"   gorm:"type:text;not null"`
	Response  string    `json:"response"   gorm:"type:text;not null"`
	UserID    string    `json:"user_id"    gorm:"type:char(36);not null;index:idx_user_inquiries"`
	Version   int       `json:"version"    gorm:"not null;default:1"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// User is the owner. Inquiries are cascade-deleted with the user row.
	User ApplicationUser `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Inquiry.
func (Inquiry) TableName() string { return "inquiries" }
