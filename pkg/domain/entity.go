package common

import (
	"time"

	"github.com/google/uuid"
)

// VisibilityTypeKey classifies how a resource's ResourceOwner scope is
// enforced against a viewer. Game-level visibility (PUBLIC/FRIENDS, host
// foes, rating-range gating) is a stricter, domain-specific predicate on
// top of this and lives with the Game entity, not here.
type VisibilityTypeKey string

const (
	PublicVisibilityTypeKey     VisibilityTypeKey = "Public"
	RestrictedVisibilityTypeKey VisibilityTypeKey = "Restricted"
	PrivateVisibilityTypeKey    VisibilityTypeKey = "Private"
	CustomVisibilityTypeKey     VisibilityTypeKey = "Custom"
)

type BaseEntity struct {
	ID              uuid.UUID              `json:"id" bson:"_id"`
	VisibilityLevel IntendedAudienceKey    `json:"visibility_level" bson:"visibility_level"`
	VisibilityType  VisibilityTypeKey      `json:"visibility_type" bson:"visibility_type"`
	ResourceOwner   ResourceOwner          `json:"resource_owner" bson:"resource_owner"`
	CreatedAt       time.Time              `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at" bson:"updated_at"`
	Includes        map[string]interface{} `json:"includes" bson:"-"`
}

type Entity interface {
	GetID() uuid.UUID
}

// ResourceType names the kind of resource an error or audit log entry
// refers to, e.g. "game", "player", "planet".
type ResourceType string

func (b BaseEntity) GetID() uuid.UUID {
	return b.ID
}

func NewEntity(resourceOwner ResourceOwner) BaseEntity {
	now := time.Now()
	return BaseEntity{
		ID:              uuid.New(),
		VisibilityLevel: ClientApplicationAudienceIDKey,
		VisibilityType:  CustomVisibilityTypeKey,
		ResourceOwner:   resourceOwner,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func NewUnrestrictedEntity(resourceOwner ResourceOwner) BaseEntity {
	now := time.Now()
	return BaseEntity{
		ID:              uuid.New(),
		VisibilityLevel: TenantAudienceIDKey,
		VisibilityType:  PublicVisibilityTypeKey,
		ResourceOwner:   resourceOwner,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func NewRestrictedEntity(resourceOwner ResourceOwner) BaseEntity {
	now := time.Now()
	return BaseEntity{
		ID:              uuid.New(),
		VisibilityLevel: GroupAudienceIDKey,
		VisibilityType:  RestrictedVisibilityTypeKey,
		ResourceOwner:   resourceOwner,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func NewPrivateEntity(resourceOwner ResourceOwner) BaseEntity {
	now := time.Now()
	return BaseEntity{
		ID:              uuid.New(),
		VisibilityLevel: UserAudienceIDKey,
		VisibilityType:  PrivateVisibilityTypeKey,
		ResourceOwner:   resourceOwner,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
