// Package httpserver exposes the gophpress JSON API over HTTP with gin.
package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/and161185/gophpress/internal/auth"
	"github.com/and161185/gophpress/internal/errs"
	"github.com/and161185/gophpress/internal/observability"
)

// NewRouter builds the gin engine with middleware and all API routes.
// Every route checks a token when one is sent; the ones that need a caller require it.
func NewRouter(h *Handlers, g *auth.Guard, m *observability.Metrics, log *zap.Logger) *gin.Engine {
	if log == nil {
		log = zap.NewNop()
	}
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(RequestLogger(log), Recovery(log), Metrics(m))

	r.NoRoute(func(c *gin.Context) {
		abortWithError(c, log, errs.ErrNotFound)
	})
	r.NoMethod(func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusMethodNotAllowed,
			ErrorBody{Error: ErrorDetail{Code: "method_not_allowed", Message: "method not allowed"}})
	})

	optional := Authenticate(g, log, false)
	required := Authenticate(g, log, true)

	api := r.Group("/api")

	users := api.Group("/users")
	users.POST("", optional, h.Register)
	users.PUT("/settings", required, h.UpdateSettings)

	authn := api.Group("/auth")
	authn.GET("", required, h.Me)
	authn.POST("", optional, h.Login)

	posts := api.Group("/posts")
	posts.GET("", optional, h.ListPublished)
	posts.GET("/all-posts", required, h.ListAll)
	posts.GET("/categories/:category", optional, h.ListByCategory)
	posts.GET("/:id", optional, h.Get)
	posts.GET("/:id/history", optional, h.History)
	posts.POST("", required, h.Create)
	posts.PUT("/:id", required, h.Edit)
	posts.DELETE("/:id", required, h.Delete)

	return r
}
