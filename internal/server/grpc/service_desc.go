package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "notevault.v1.NoteVault"

// Method names.
const (
	MethodRegister       = "Register"
	MethodLogin          = "Login"
	MethodLogout         = "Logout"
	MethodGetProfile     = "GetProfile"
	MethodUpdateProfile  = "UpdateProfile"
	MethodChangePassword = "ChangePassword"
	MethodCreateNote     = "CreateNote"
	MethodListNotes      = "ListNotes"
	MethodGetNote        = "GetNote"
	MethodUpdateNote     = "UpdateNote"
	MethodDeleteNote     = "DeleteNote"
)

// FullMethod returns "/notevault.v1.NoteVault/<name>".
func FullMethod(name string) string { return "/" + ServiceName + "/" + name }

// publicMethods are reachable without a session.
var publicMethods = map[string]bool{
	FullMethod(MethodRegister): true,
	FullMethod(MethodLogin):    true,
}

// NoteVaultServer is the server API. Every message is a google.protobuf.Struct.
type NoteVaultServer interface {
	Register(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Login(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Logout(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetProfile(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateProfile(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ChangePassword(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateNote(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListNotes(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetNote(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateNote(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteNote(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(NoteVaultServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func handler(name string, m unaryMethod) func(srv any, ctx context.Context, dec func(any) error, ic grpc.UnaryServerInterceptor) (any, error) {
	full := FullMethod(name)
	return func(srv any, ctx context.Context, dec func(any) error, ic grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if ic == nil {
			return m(srv.(NoteVaultServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: full}
		h := func(ctx context.Context, req any) (any, error) {
			return m(srv.(NoteVaultServer), ctx, req.(*structpb.Struct))
		}
		return ic(ctx, in, info, h)
	}
}

// ServiceDesc describes the NoteVault service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*NoteVaultServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: MethodRegister, Handler: handler(MethodRegister, NoteVaultServer.Register)},
		{MethodName: MethodLogin, Handler: handler(MethodLogin, NoteVaultServer.Login)},
		{MethodName: MethodLogout, Handler: handler(MethodLogout, NoteVaultServer.Logout)},
		{MethodName: MethodGetProfile, Handler: handler(MethodGetProfile, NoteVaultServer.GetProfile)},
		{MethodName: MethodUpdateProfile, Handler: handler(MethodUpdateProfile, NoteVaultServer.UpdateProfile)},
		{MethodName: MethodChangePassword, Handler: handler(MethodChangePassword, NoteVaultServer.ChangePassword)},
		{MethodName: MethodCreateNote, Handler: handler(MethodCreateNote, NoteVaultServer.CreateNote)},
		{MethodName: MethodListNotes, Handler: handler(MethodListNotes, NoteVaultServer.ListNotes)},
		{MethodName: MethodGetNote, Handler: handler(MethodGetNote, NoteVaultServer.GetNote)},
		{MethodName: MethodUpdateNote, Handler: handler(MethodUpdateNote, NoteVaultServer.UpdateNote)},
		{MethodName: MethodDeleteNote, Handler: handler(MethodDeleteNote, NoteVaultServer.DeleteNote)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "notevault/v1/notevault.proto",
}

// RegisterNoteVaultServer registers srv on s.
func RegisterNoteVaultServer(s grpc.ServiceRegistrar, srv NoteVaultServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Client calls NoteVault methods over a connection.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps a connection.
func NewClient(cc grpc.ClientConnInterface) *Client { return &Client{cc: cc} }

// Call invokes method with in and returns the response message.
func (c *Client) Call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if in == nil {
		in = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
