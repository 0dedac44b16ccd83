package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	pv "github.com/and161185/gophpress/api/pressv1"
	"github.com/and161185/gophpress/internal/auth"
	"github.com/and161185/gophpress/internal/convert"
	"github.com/and161185/gophpress/internal/errs"
	"github.com/and161185/gophpress/internal/service"
)

// Handlers serves the JSON API on top of the services.
type Handlers struct {
	auth  service.AuthService
	posts service.PostService
	log   *zap.Logger
}

// NewHandlers constructs Handlers.
func NewHandlers(auth service.AuthService, posts service.PostService, log *zap.Logger) *Handlers {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handlers{auth: auth, posts: posts, log: log}
}

func (h *Handlers) fail(c *gin.Context, err error) { abortWithError(c, h.log, err) }

// bind decodes the JSON body. Decoding problems are reported as a validation error on "body".
func bind(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		v := &errs.ValidationError{}
		v.Add("body", "malformed JSON")
		return v
	}
	return nil
}

func caller(c *gin.Context) (uuid.UUID, error) {
	id, ok := auth.IdentityFromCtx(c.Request.Context())
	if !ok {
		return uuid.Nil, errs.WithReason(errs.ErrUnauthorized, errs.ReasonMissingToken)
	}
	return id.UserID, nil
}

// --- users and auth ---

// Register handles POST /api/users.
func (h *Handlers) Register(c *gin.Context) {
	var req pv.RegisterRequest
	if err := bind(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	tok, u, err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, convert.ToWireAuth(tok, u))
}

// Login handles POST /api/auth.
func (h *Handlers) Login(c *gin.Context) {
	var req pv.LoginRequest
	if err := bind(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	tok, u, err := h.auth.Login(c.Request.Context(), req.Email, req.Password, c.ClientIP())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, convert.ToWireAuth(tok, u))
}

// Me handles GET /api/auth.
func (h *Handlers) Me(c *gin.Context) {
	uid, err := caller(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	u, err := h.auth.Me(c.Request.Context(), uid)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, pv.UserResponse{User: convert.ToWireUser(u)})
}

// UpdateSettings handles PUT /api/users/settings for the caller's own account.
func (h *Handlers) UpdateSettings(c *gin.Context) {
	uid, err := caller(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	var req pv.UpdateSettingsRequest
	if err := bind(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	u, err := h.auth.UpdateSettings(c.Request.Context(), uid, service.SettingsInput{
		Email:       req.Email,
		OldPassword: req.OldPassword,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, pv.UserResponse{User: convert.ToWireUser(u)})
}

// --- posts ---

// ListPublished handles GET /api/posts.
func (h *Handlers) ListPublished(c *gin.Context) {
	res, err := h.posts.ListPublished(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, pv.ListPostsResponse{Posts: convert.ToWirePosts(res)})
}

// ListAll handles GET /api/posts/all-posts.
func (h *Handlers) ListAll(c *gin.Context) {
	res, err := h.posts.ListAll(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, pv.ListPostsResponse{Posts: convert.ToWirePosts(res)})
}

// ListByCategory handles GET /api/posts/categories/:category.
func (h *Handlers) ListByCategory(c *gin.Context) {
	cat, err := convert.ParseID("category", c.Param("category"))
	if err != nil {
		h.fail(c, err)
		return
	}
	res, err := h.posts.ListByCategory(c.Request.Context(), cat)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, pv.ListPostsResponse{Posts: convert.ToWirePosts(res)})
}

// Get handles GET /api/posts/:id.
func (h *Handlers) Get(c *gin.Context) {
	id, err := convert.ParseID("id", c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	p, err := h.posts.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, pv.PostResponse{Post: convert.ToWirePost(p)})
}

// History handles GET /api/posts/:id/history.
func (h *Handlers) History(c *gin.Context) {
	id, err := convert.ParseID("id", c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	revs, err := h.posts.History(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, pv.PostHistoryResponse{Revisions: convert.ToWireRevisions(revs)})
}

// Create handles POST /api/posts.
func (h *Handlers) Create(c *gin.Context) {
	uid, err := caller(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	var req pv.CreatePostRequest
	if err := bind(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	fields, err := convert.FromWireFields(req.PostFields)
	if err != nil {
		h.fail(c, err)
		return
	}
	p, err := h.posts.Create(c.Request.Context(), uid, fields)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, pv.PostResponse{Post: convert.ToWirePost(p)})
}

// Edit handles PUT /api/posts/:id. The path id wins over any id in the body.
func (h *Handlers) Edit(c *gin.Context) {
	uid, err := caller(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	id, err := convert.ParseID("id", c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	var req pv.EditPostRequest
	if err := bind(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	fields, err := convert.FromWireFields(req.PostFields)
	if err != nil {
		h.fail(c, err)
		return
	}
	p, err := h.posts.Edit(c.Request.Context(), uid, id, fields)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, pv.PostResponse{Post: convert.ToWirePost(p)})
}

// Delete handles DELETE /api/posts/:id.
func (h *Handlers) Delete(c *gin.Context) {
	id, err := convert.ParseID("id", c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.posts.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
