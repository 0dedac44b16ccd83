// Package model defines domain entities used by services and repositories.
package model

import (
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
)

// Tokens is the result of a successful register or login.
type Tokens struct {
	AccessToken string
	ExpiresAt   time.Time // access token expiry (for diagnostics)
}

// Identity is the authenticated principal attached to a request.
type Identity struct {
	UserID uuid.UUID
}

// User represents an account stored on the server. The password is never stored in plaintext.
type User struct {
	ID           uuid.UUID // PK
	FirstName    string
	LastName     string
	Email        string // unique, compared via NormalizeEmail
	PasswordHash string // self-describing hash string ($argon2id$... or $2a$...)
	CreatedAt    time.Time
}

// DisplayName is the name shown as author and editor of posts.
func (u User) DisplayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// NormalizeEmail returns the comparison key for an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// PostStatus is the publication state of a post.
type PostStatus string

const (
	StatusDraft     PostStatus = "draft"
	StatusPublished PostStatus = "published"

	legacyPublished = "Publié"
)

// ParsePostStatus maps wire values to a status. Empty input yields "".
func ParsePostStatus(s string) (PostStatus, bool) {
	switch strings.TrimSpace(s) {
	case "":
		return "", true
	case string(StatusDraft):
		return StatusDraft, true
	case string(StatusPublished), legacyPublished:
		return StatusPublished, true
	default:
		return "", false
	}
}

// Author is a snapshot of the creating user taken at creation time.
type Author struct {
	ID   uuid.UUID
	Name string
}

// Revision records one edit. Entries are immutable once appended.
type Revision struct {
	EditorID   uuid.UUID
	EditorName string
	EditedAt   time.Time
}

// Post is a piece of content with its edit history, newest revision first.
type Post struct {
	ID        uuid.UUID
	Title     string
	Text      string
	Status    PostStatus
	Author    Author
	Image     *string
	Category  *uuid.UUID
	Tags      []string
	Revisions []Revision
	CreatedAt time.Time
}

// PostFields is the content payload of create and edit.
// On edit, empty Status and nil Image/Category/Tags leave the stored value unchanged.
type PostFields struct {
	Title    string
	Text     string
	Status   PostStatus
	Image    *string
	Category *uuid.UUID
	Tags     []string
}

// PostFilter selects posts for listing. Zero value lists everything.
type PostFilter struct {
	Status   PostStatus
	Category *uuid.UUID
}

// AppendRevision returns p with rev inserted at the head of its history.
// The caller's slice is not modified.
func AppendRevision(p Post, rev Revision) Post {
	revs := make([]Revision, 0, len(p.Revisions)+1)
	revs = append(revs, rev)
	p.Revisions = append(revs, p.Revisions...)
	return p
}

// Apply overwrites the editable content of p with f.
// Empty Status and nil Image, Category and Tags keep the current value.
func (f PostFields) Apply(p *Post) {
	p.Title = f.Title
	p.Text = f.Text
	if f.Status != "" {
		p.Status = f.Status
	}
	if f.Image != nil {
		img := *f.Image
		p.Image = &img
	}
	if f.Category != nil {
		c := *f.Category
		p.Category = &c
	}
	if f.Tags != nil {
		p.Tags = append([]string(nil), f.Tags...)
	}
}

// Clone returns a deep copy of p.
func (p Post) Clone() Post {
	if p.Image != nil {
		img := *p.Image
		p.Image = &img
	}
	if p.Category != nil {
		c := *p.Category
		p.Category = &c
	}
	if p.Tags != nil {
		p.Tags = append([]string(nil), p.Tags...)
	}
	if p.Revisions != nil {
		p.Revisions = append([]Revision(nil), p.Revisions...)
	}
	return p
}
