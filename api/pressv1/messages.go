package pressv1

import "time"

// User is an account as shown to clients. The password hash never leaves the server.
type User struct {
	ID        string    `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type RegisterRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by Register and Login.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}

type MeRequest struct{}

type UpdateSettingsRequest struct {
	Email       string `json:"email"`
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type UserResponse struct {
	User User `json:"user"`
}

type Author struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Revision struct {
	EditorID   string    `json:"editor_id"`
	EditorName string    `json:"editor_name"`
	EditedAt   time.Time `json:"edited_at"`
}

type Post struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Text      string     `json:"text"`
	Status    string     `json:"status"`
	Author    Author     `json:"author"`
	Image     *string    `json:"image,omitempty"`
	Category  *string    `json:"category,omitempty"`
	Tags      []string   `json:"tags"`
	Revisions []Revision `json:"edited"`
	CreatedAt time.Time  `json:"created_at"`
}

// PostFields is the editable content shared by create and edit.
// On edit, empty status and omitted image, category or tags keep the stored value.
type PostFields struct {
	Title    string   `json:"title"`
	Text     string   `json:"text"`
	Status   string   `json:"status,omitempty"`
	Image    *string  `json:"image,omitempty"`
	Category *string  `json:"category,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

type CreatePostRequest struct {
	PostFields
}

type GetPostRequest struct {
	ID string `json:"id"`
}

// List scopes.
const (
	ScopePublished = "published"
	ScopeAll       = "all"
)

// ListPostsRequest lists published posts by default. ScopeAll needs authentication.
// A non-empty Category lists the published posts of that category regardless of scope.
type ListPostsRequest struct {
	Scope    string `json:"scope,omitempty"`
	Category string `json:"category,omitempty"`
}

type ListPostsResponse struct {
	Posts []Post `json:"posts"`
}

type EditPostRequest struct {
	ID string `json:"id"`
	PostFields
}

type PostResponse struct {
	Post Post `json:"post"`
}

type DeletePostRequest struct {
	ID string `json:"id"`
}

type DeletePostResponse struct{}

type PostHistoryRequest struct {
	ID string `json:"id"`
}

type PostHistoryResponse struct {
	Revisions []Revision `json:"revisions"`
}
