// Package grpcserver exposes the gophpress gRPC API handlers.
package grpcserver

import (
	"context"
	"net"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
	"google.golang.org/grpc/peer"

	pv "github.com/and161185/gophpress/api/pressv1"
	"github.com/and161185/gophpress/internal/auth"
	"github.com/and161185/gophpress/internal/convert"
	"github.com/and161185/gophpress/internal/errs"
	"github.com/and161185/gophpress/internal/model"
	"github.com/and161185/gophpress/internal/service"
)

// Server wires services into gRPC handlers.
type Server struct {
	pv.UnimplementedPressServer
	auth  service.AuthService
	posts service.PostService
	log   *zap.Logger
}

// New constructs a gRPC server with injected services.
func New(auth service.AuthService, posts service.PostService, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{auth: auth, posts: posts, log: log}
}

var _ pv.PressServer = (*Server)(nil)

func (s *Server) fail(ctx context.Context, err error) error { return toStatus(ctx, s.log, err) }

// remoteIP returns the peer host without port, so limiter keys survive reconnects.
func remoteIP(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return ""
	}
	addr := p.Addr.String()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

func identity(ctx context.Context) (uuid.UUID, error) {
	id, ok := auth.IdentityFromCtx(ctx)
	if !ok {
		return uuid.Nil, errs.WithReason(errs.ErrUnauthorized, errs.ReasonMissingToken)
	}
	return id.UserID, nil
}

// --- Auth ---

// Register creates a new account and returns a token for it.
func (s *Server) Register(ctx context.Context, req *pv.RegisterRequest) (*pv.AuthResponse, error) {
	tok, u, err := s.auth.Register(ctx, service.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	return convert.ToWireAuth(tok, u), nil
}

// Login authenticates by email and password.
func (s *Server) Login(ctx context.Context, req *pv.LoginRequest) (*pv.AuthResponse, error) {
	tok, u, err := s.auth.Login(ctx, req.Email, req.Password, remoteIP(ctx))
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	return convert.ToWireAuth(tok, u), nil
}

// Me returns the caller's account.
func (s *Server) Me(ctx context.Context, _ *pv.MeRequest) (*pv.UserResponse, error) {
	uid, err := identity(ctx)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	u, err := s.auth.Me(ctx, uid)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	return &pv.UserResponse{User: convert.ToWireUser(u)}, nil
}

// UpdateSettings changes the caller's email and password.
func (s *Server) UpdateSettings(ctx context.Context, req *pv.UpdateSettingsRequest) (*pv.UserResponse, error) {
	uid, err := identity(ctx)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	u, err := s.auth.UpdateSettings(ctx, uid, service.SettingsInput{
		Email:       req.Email,
		OldPassword: req.OldPassword,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	return &pv.UserResponse{User: convert.ToWireUser(u)}, nil
}

// --- Posts ---

// CreatePost stores a post authored by the caller.
func (s *Server) CreatePost(ctx context.Context, req *pv.CreatePostRequest) (*pv.PostResponse, error) {
	uid, err := identity(ctx)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	fields, err := convert.FromWireFields(req.PostFields)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	p, err := s.posts.Create(ctx, uid, fields)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	return &pv.PostResponse{Post: convert.ToWirePost(p)}, nil
}

// GetPost returns one post with its history.
func (s *Server) GetPost(ctx context.Context, req *pv.GetPostRequest) (*pv.PostResponse, error) {
	id, err := convert.ParseID("id", req.ID)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	p, err := s.posts.Get(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	return &pv.PostResponse{Post: convert.ToWirePost(p)}, nil
}

// ListPosts lists posts by scope or category.
func (s *Server) ListPosts(ctx context.Context, req *pv.ListPostsRequest) (*pv.ListPostsResponse, error) {
	var (
		res []model.Post
		err error
	)
	switch {
	case req.Category != "":
		var cat uuid.UUID
		if cat, err = convert.ParseID("category", req.Category); err == nil {
			res, err = s.posts.ListByCategory(ctx, cat)
		}
	case req.Scope == pv.ScopeAll:
		if _, err = identity(ctx); err == nil {
			res, err = s.posts.ListAll(ctx)
		}
	case req.Scope == "" || req.Scope == pv.ScopePublished:
		res, err = s.posts.ListPublished(ctx)
	default:
		v := &errs.ValidationError{}
		v.Add("scope", "must be published or all")
		err = v
	}
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	return &pv.ListPostsResponse{Posts: convert.ToWirePosts(res)}, nil
}

// EditPost replaces a post's content and records the caller as editor.
func (s *Server) EditPost(ctx context.Context, req *pv.EditPostRequest) (*pv.PostResponse, error) {
	uid, err := identity(ctx)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	id, err := convert.ParseID("id", req.ID)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	fields, err := convert.FromWireFields(req.PostFields)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	p, err := s.posts.Edit(ctx, uid, id, fields)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	return &pv.PostResponse{Post: convert.ToWirePost(p)}, nil
}

// DeletePost removes a post.
func (s *Server) DeletePost(ctx context.Context, req *pv.DeletePostRequest) (*pv.DeletePostResponse, error) {
	if _, err := identity(ctx); err != nil {
		return nil, s.fail(ctx, err)
	}
	id, err := convert.ParseID("id", req.ID)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	if err := s.posts.Delete(ctx, id); err != nil {
		return nil, s.fail(ctx, err)
	}
	return &pv.DeletePostResponse{}, nil
}

// PostHistory returns a post's revisions, newest first.
func (s *Server) PostHistory(ctx context.Context, req *pv.PostHistoryRequest) (*pv.PostHistoryResponse, error) {
	id, err := convert.ParseID("id", req.ID)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	revs, err := s.posts.History(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	return &pv.PostHistoryResponse{Revisions: convert.ToWireRevisions(revs)}, nil
}
