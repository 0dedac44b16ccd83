package pressv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "gophpress.v1.Press"

// Full method names, used by interceptors.
const (
	MethodRegister       = "/" + ServiceName + "/Register"
	MethodLogin          = "/" + ServiceName + "/Login"
	MethodMe             = "/" + ServiceName + "/Me"
	MethodUpdateSettings = "/" + ServiceName + "/UpdateSettings"
	MethodCreatePost     = "/" + ServiceName + "/CreatePost"
	MethodGetPost        = "/" + ServiceName + "/GetPost"
	MethodListPosts      = "/" + ServiceName + "/ListPosts"
	MethodEditPost       = "/" + ServiceName + "/EditPost"
	MethodDeletePost     = "/" + ServiceName + "/DeletePost"
	MethodPostHistory    = "/" + ServiceName + "/PostHistory"
)

// PressServer is the server API for the Press service.
type PressServer interface {
	Register(context.Context, *RegisterRequest) (*AuthResponse, error)
	Login(context.Context, *LoginRequest) (*AuthResponse, error)
	Me(context.Context, *MeRequest) (*UserResponse, error)
	UpdateSettings(context.Context, *UpdateSettingsRequest) (*UserResponse, error)
	CreatePost(context.Context, *CreatePostRequest) (*PostResponse, error)
	GetPost(context.Context, *GetPostRequest) (*PostResponse, error)
	ListPosts(context.Context, *ListPostsRequest) (*ListPostsResponse, error)
	EditPost(context.Context, *EditPostRequest) (*PostResponse, error)
	DeletePost(context.Context, *DeletePostRequest) (*DeletePostResponse, error)
	PostHistory(context.Context, *PostHistoryRequest) (*PostHistoryResponse, error)
}

// UnimplementedPressServer can be embedded to satisfy PressServer partially.
type UnimplementedPressServer struct{}

func unimplemented(m string) error { return status.Errorf(codes.Unimplemented, "method %s not implemented", m) }

func (UnimplementedPressServer) Register(context.Context, *RegisterRequest) (*AuthResponse, error) {
	return nil, unimplemented("Register")
}
func (UnimplementedPressServer) Login(context.Context, *LoginRequest) (*AuthResponse, error) {
	return nil, unimplemented("Login")
}
func (UnimplementedPressServer) Me(context.Context, *MeRequest) (*UserResponse, error) {
	return nil, unimplemented("Me")
}
func (UnimplementedPressServer) UpdateSettings(context.Context, *UpdateSettingsRequest) (*UserResponse, error) {
	return nil, unimplemented("UpdateSettings")
}
func (UnimplementedPressServer) CreatePost(context.Context, *CreatePostRequest) (*PostResponse, error) {
	return nil, unimplemented("CreatePost")
}
func (UnimplementedPressServer) GetPost(context.Context, *GetPostRequest) (*PostResponse, error) {
	return nil, unimplemented("GetPost")
}
func (UnimplementedPressServer) ListPosts(context.Context, *ListPostsRequest) (*ListPostsResponse, error) {
	return nil, unimplemented("ListPosts")
}
func (UnimplementedPressServer) EditPost(context.Context, *EditPostRequest) (*PostResponse, error) {
	return nil, unimplemented("EditPost")
}
func (UnimplementedPressServer) DeletePost(context.Context, *DeletePostRequest) (*DeletePostResponse, error) {
	return nil, unimplemented("DeletePost")
}
func (UnimplementedPressServer) PostHistory(context.Context, *PostHistoryRequest) (*PostHistoryResponse, error) {
	return nil, unimplemented("PostHistory")
}

// unaryHandler adapts a typed server method to grpc.MethodHandler.
func unaryHandler[Req any, Resp any](
	fullMethod string, call func(PressServer, context.Context, *Req) (*Resp, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(PressServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(PressServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ServiceDesc is the grpc.ServiceDesc for the Press service.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PressServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Register", Handler: unaryHandler(MethodRegister, PressServer.Register)},
		{MethodName: "Login", Handler: unaryHandler(MethodLogin, PressServer.Login)},
		{MethodName: "Me", Handler: unaryHandler(MethodMe, PressServer.Me)},
		{MethodName: "UpdateSettings", Handler: unaryHandler(MethodUpdateSettings, PressServer.UpdateSettings)},
		{MethodName: "CreatePost", Handler: unaryHandler(MethodCreatePost, PressServer.CreatePost)},
		{MethodName: "GetPost", Handler: unaryHandler(MethodGetPost, PressServer.GetPost)},
		{MethodName: "ListPosts", Handler: unaryHandler(MethodListPosts, PressServer.ListPosts)},
		{MethodName: "EditPost", Handler: unaryHandler(MethodEditPost, PressServer.EditPost)},
		{MethodName: "DeletePost", Handler: unaryHandler(MethodDeletePost, PressServer.DeletePost)},
		{MethodName: "PostHistory", Handler: unaryHandler(MethodPostHistory, PressServer.PostHistory)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gophpress/v1/press",
}

// RegisterPressServer registers srv on s.
func RegisterPressServer(s grpc.ServiceRegistrar, srv PressServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// PressClient is the client API for the Press service.
type PressClient interface {
	Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*AuthResponse, error)
	Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*AuthResponse, error)
	Me(ctx context.Context, in *MeRequest, opts ...grpc.CallOption) (*UserResponse, error)
	UpdateSettings(ctx context.Context, in *UpdateSettingsRequest, opts ...grpc.CallOption) (*UserResponse, error)
	CreatePost(ctx context.Context, in *CreatePostRequest, opts ...grpc.CallOption) (*PostResponse, error)
	GetPost(ctx context.Context, in *GetPostRequest, opts ...grpc.CallOption) (*PostResponse, error)
	ListPosts(ctx context.Context, in *ListPostsRequest, opts ...grpc.CallOption) (*ListPostsResponse, error)
	EditPost(ctx context.Context, in *EditPostRequest, opts ...grpc.CallOption) (*PostResponse, error)
	DeletePost(ctx context.Context, in *DeletePostRequest, opts ...grpc.CallOption) (*DeletePostResponse, error)
	PostHistory(ctx context.Context, in *PostHistoryRequest, opts ...grpc.CallOption) (*PostHistoryResponse, error)
}

type pressClient struct{ cc grpc.ClientConnInterface }

// NewPressClient returns a client that always uses the JSON codec.
func NewPressClient(cc grpc.ClientConnInterface) PressClient { return &pressClient{cc: cc} }

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{CallOption()}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *pressClient) Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*AuthResponse, error) {
	return invoke[AuthResponse](ctx, c.cc, MethodRegister, in, opts)
}
func (c *pressClient) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*AuthResponse, error) {
	return invoke[AuthResponse](ctx, c.cc, MethodLogin, in, opts)
}
func (c *pressClient) Me(ctx context.Context, in *MeRequest, opts ...grpc.CallOption) (*UserResponse, error) {
	return invoke[UserResponse](ctx, c.cc, MethodMe, in, opts)
}
func (c *pressClient) UpdateSettings(ctx context.Context, in *UpdateSettingsRequest, opts ...grpc.CallOption) (*UserResponse, error) {
	return invoke[UserResponse](ctx, c.cc, MethodUpdateSettings, in, opts)
}
func (c *pressClient) CreatePost(ctx context.Context, in *CreatePostRequest, opts ...grpc.CallOption) (*PostResponse, error) {
	return invoke[PostResponse](ctx, c.cc, MethodCreatePost, in, opts)
}
func (c *pressClient) GetPost(ctx context.Context, in *GetPostRequest, opts ...grpc.CallOption) (*PostResponse, error) {
	return invoke[PostResponse](ctx, c.cc, MethodGetPost, in, opts)
}
func (c *pressClient) ListPosts(ctx context.Context, in *ListPostsRequest, opts ...grpc.CallOption) (*ListPostsResponse, error) {
	return invoke[ListPostsResponse](ctx, c.cc, MethodListPosts, in, opts)
}
func (c *pressClient) EditPost(ctx context.Context, in *EditPostRequest, opts ...grpc.CallOption) (*PostResponse, error) {
	return invoke[PostResponse](ctx, c.cc, MethodEditPost, in, opts)
}
func (c *pressClient) DeletePost(ctx context.Context, in *DeletePostRequest, opts ...grpc.CallOption) (*DeletePostResponse, error) {
	return invoke[DeletePostResponse](ctx, c.cc, MethodDeletePost, in, opts)
}
func (c *pressClient) PostHistory(ctx context.Context, in *PostHistoryRequest, opts ...grpc.CallOption) (*PostHistoryResponse, error) {
	return invoke[PostHistoryResponse](ctx, c.cc, MethodPostHistory, in, opts)
}
