package blog

import (
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"campusblog/pkg/user"
)

type Type string

const (
	TypeComplaint Type = "complaint"
	TypeArticle   Type = "article"
)

type Status string

const (
	StatusOpen  Status = "open"
	StatusClose Status = "close"
)

type Blog struct {
	Id      primitive.ObjectID `json:"id" bson:"_id"`
	Title   string             `json:"title" bson:"title" validate:"required,max=50"`
	Text    string             `json:"text" bson:"text" validate:"required"`
	Tags    string             `json:"tags,omitempty" bson:"tags,omitempty"`
	Upvotes int                `json:"upvotes" bson:"upvotes"`
	Slug    string             `json:"slug" bson:"slug"`

	// Types: [complaint|article]. Never changes after creation.
	Type   Type   `json:"blogType" bson:"blogType" validate:"required,oneof=complaint article"`
	Status Status `json:"blogStatus" bson:"blogStatus" validate:"oneof=open close"`

	// User references the owner. UserId is its copy taken at creation and
	// is what the statistics are counted by.
	User   string `json:"-" bson:"user" validate:"required"`
	UserId string `json:"userId" bson:"userId"`

	// Filled on read from the users store.
	Author *user.Owner `json:"user,omitempty" bson:"-"`

	CreatedAt time.Time `json:"-" bson:"createdAt"`
	ChangedAt time.Time `json:"-" bson:"changedAt"`
}

// Patch holds the fields an update may change. Nil means "keep".
type Patch struct {
	Title  *string `json:"title"`
	Text   *string `json:"text"`
	Tags   *string `json:"tags"`
	Status *Status `json:"blogStatus"`
}

func (p Patch) Empty() bool {
	return p.Title == nil && p.Text == nil && p.Tags == nil && p.Status == nil
}

func (p Patch) apply(b *Blog) {
	if p.Title != nil {
		b.Title = strings.TrimSpace(*p.Title)
	}
	if p.Text != nil {
		b.Text = strings.TrimSpace(*p.Text)
	}
	if p.Tags != nil {
		b.Tags = *p.Tags
	}
	if p.Status != nil {
		b.Status = *p.Status
	}
}

// Filter narrows list queries. Zero fields match everything.
type Filter struct {
	Type   Type
	Status Status
	UserId string
}

var (
	ErrNotFound      = errors.New("blog: not found")
	ErrOwnerNotFound = errors.New("blog: owner not found")
	ErrInvalidId     = errors.New("blog: invalid id")
	ErrEmptyPatch    = errors.New("blog: nothing to update")
)

// ValidationError carries one human readable message per failed rule.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "blog validation failed: " + strings.Join(e.Messages, ". ")
}

func ParseId(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidId
	}
	return id, nil
}
