// Package convert maps domain models to pressv1 wire messages and back.
package convert

import (
	"fmt"

	u "github.com/gofrs/uuid/v5"

	pv "github.com/and161185/gophpress/api/pressv1"
	"github.com/and161185/gophpress/internal/errs"
	model "github.com/and161185/gophpress/internal/model"
)

// --- users ---

// ToWireUser converts a domain user. The password hash is never copied.
func ToWireUser(in model.User) pv.User {
	return pv.User{
		ID:        in.ID.String(),
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		CreatedAt: in.CreatedAt,
	}
}

// ToWireAuth builds the register/login response.
func ToWireAuth(tok model.Tokens, user model.User) *pv.AuthResponse {
	return &pv.AuthResponse{Token: tok.AccessToken, ExpiresAt: tok.ExpiresAt, User: ToWireUser(user)}
}

// --- posts ---

// ToWireRevisions converts a history, keeping newest-first order. Never returns nil.
func ToWireRevisions(in []model.Revision) []pv.Revision {
	out := make([]pv.Revision, 0, len(in))
	for _, r := range in {
		out = append(out, pv.Revision{
			EditorID:   r.EditorID.String(),
			EditorName: r.EditorName,
			EditedAt:   r.EditedAt,
		})
	}
	return out
}

// ToWirePost converts a domain post.
func ToWirePost(in model.Post) pv.Post {
	p := pv.Post{
		ID:        in.ID.String(),
		Title:     in.Title,
		Text:      in.Text,
		Status:    string(in.Status),
		Author:    pv.Author{ID: in.Author.ID.String(), Name: in.Author.Name},
		Image:     in.Image,
		Tags:      in.Tags,
		Revisions: ToWireRevisions(in.Revisions),
		CreatedAt: in.CreatedAt,
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if in.Category != nil {
		c := in.Category.String()
		p.Category = &c
	}
	return p
}

// ToWirePosts converts a list of posts. Never returns nil.
func ToWirePosts(in []model.Post) []pv.Post {
	out := make([]pv.Post, 0, len(in))
	for _, p := range in {
		out = append(out, ToWirePost(p))
	}
	return out
}

// FromWireFields parses wire post fields. Bad status or category values are validation errors.
func FromWireFields(in pv.PostFields) (model.PostFields, error) {
	v := &errs.ValidationError{}
	status, ok := model.ParsePostStatus(in.Status)
	if !ok {
		v.Add("status", "must be draft or published")
	}
	out := model.PostFields{
		Title:  in.Title,
		Text:   in.Text,
		Status: status,
		Image:  in.Image,
		Tags:   in.Tags,
	}
	if in.Category != nil && *in.Category != "" {
		id, err := u.FromString(*in.Category)
		if err != nil {
			v.Add("category", "must be a UUID")
		} else {
			out.Category = &id
		}
	}
	if err := v.OrNil(); err != nil {
		return model.PostFields{}, err
	}
	return out, nil
}

// ParseID parses a path or message id. field names the input in the validation error.
func ParseID(field, s string) (u.UUID, error) {
	id, err := u.FromString(s)
	if err != nil {
		v := &errs.ValidationError{}
		v.Add(field, fmt.Sprintf("%q is not a valid id", s))
		return u.Nil, v
	}
	return id, nil
}
