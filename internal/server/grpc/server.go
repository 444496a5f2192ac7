// Package grpcserver exposes the NoteVault gRPC API.
package grpcserver

import (
	"context"

	"github.com/gofrs/uuid/v5"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/and161185/notevault/internal/convert"
	"github.com/and161185/notevault/internal/model"
)

// Accounts is the account surface of the credential store.
type Accounts interface {
	Register(ctx context.Context, email, password, name string) (uuid.UUID, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error
	Profile(ctx context.Context, userID uuid.UUID) (model.User, error)
	UpdateName(ctx context.Context, userID uuid.UUID, name string) error
}

// Sessions issues and revokes session tokens.
type Sessions interface {
	Login(ctx context.Context, email, password, peer string) (model.Session, error)
	Logout(ctx context.Context, header string) error
}

// Notes stores encrypted notes for one owner at a time.
type Notes interface {
	Create(ctx context.Context, userID uuid.UUID, blob model.NoteBlob) (*model.Note, error)
	List(ctx context.Context, userID uuid.UUID) ([]model.Note, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*model.Note, error)
	Update(ctx context.Context, userID, id uuid.UUID, blob model.NoteBlob) (*model.Note, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// Server wires services into gRPC handlers. Protected handlers only run after
// AuthUnary has placed an identity in the context.
type Server struct {
	accounts Accounts
	sessions Sessions
	notes    Notes
}

var _ NoteVaultServer = (*Server)(nil)

// New constructs a gRPC server with injected services.
func New(accounts Accounts, sessions Sessions, notes Notes) *Server {
	return &Server{accounts: accounts, sessions: sessions, notes: notes}
}

func identity(ctx context.Context) (model.Identity, error) {
	id, ok := IdentityFromCtx(ctx)
	if !ok || id.UserID == uuid.Nil {
		return model.Identity{}, status.Error(codes.Unauthenticated, "no auth")
	}
	return id, nil
}

// --- Auth ---

// Register creates a new account.
func (s *Server) Register(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	email := convert.GetString(req, convert.FieldEmail)
	password := convert.GetString(req, convert.FieldPassword)
	if email == "" || password == "" {
		return nil, status.Error(codes.InvalidArgument, "empty email/password")
	}
	id, err := s.accounts.Register(ctx, email, password, convert.GetString(req, convert.FieldName))
	if err != nil {
		return nil, toStatus(err)
	}
	return convert.Strings(map[string]string{convert.FieldUserID: id.String()}), nil
}

// Login authenticates and returns a session token plus the key-derivation salt.
func (s *Server) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.sessions.Login(ctx,
		convert.GetString(req, convert.FieldEmail),
		convert.GetString(req, convert.FieldPassword),
		remoteAddr(ctx),
	)
	if err != nil {
		return nil, toStatus(err)
	}
	return convert.ToProtoSession(sess), nil
}

// Logout revokes the token the call was authenticated with.
func (s *Server) Logout(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if _, err := identity(ctx); err != nil {
		return nil, err
	}
	if err := s.sessions.Logout(ctx, authHeader(ctx)); err != nil {
		return nil, toStatus(err)
	}
	return convert.Empty(), nil
}

// --- Profile ---

// GetProfile returns the caller's profile including the salt.
func (s *Server) GetProfile(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	id, err := identity(ctx)
	if err != nil {
		return nil, err
	}
	u, err := s.accounts.Profile(ctx, id.UserID)
	if err != nil {
		return nil, toStatus(err)
	}
	return convert.ToProtoProfile(u), nil
}

// UpdateProfile changes the display name.
func (s *Server) UpdateProfile(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := identity(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.accounts.UpdateName(ctx, id.UserID, convert.GetString(req, convert.FieldName)); err != nil {
		return nil, toStatus(err)
	}
	u, err := s.accounts.Profile(ctx, id.UserID)
	if err != nil {
		return nil, toStatus(err)
	}
	return convert.ToProtoProfile(u), nil
}

// ChangePassword replaces the caller's password. Notes are not re-encrypted.
func (s *Server) ChangePassword(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := identity(ctx)
	if err != nil {
		return nil, err
	}
	err = s.accounts.ChangePassword(ctx, id.UserID,
		convert.GetString(req, convert.FieldOldPassword),
		convert.GetString(req, convert.FieldNewPassword),
	)
	if err != nil {
		return nil, toStatus(err)
	}
	return convert.Empty(), nil
}

// --- Notes ---

// CreateNote stores a new encrypted note.
func (s *Server) CreateNote(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := identity(ctx)
	if err != nil {
		return nil, err
	}
	blob, err := convert.FromProtoNoteBlob(req)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "bad note: %v", err)
	}
	n, err := s.notes.Create(ctx, id.UserID, blob)
	if err != nil {
		return nil, toStatus(err)
	}
	return convert.ToProtoNote(*n), nil
}

// ListNotes returns the caller's live notes.
func (s *Server) ListNotes(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	id, err := identity(ctx)
	if err != nil {
		return nil, err
	}
	ns, err := s.notes.List(ctx, id.UserID)
	if err != nil {
		return nil, toStatus(err)
	}
	return convert.ToProtoNotes(ns), nil
}

// GetNote returns one note by id.
func (s *Server) GetNote(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := identity(ctx)
	if err != nil {
		return nil, err
	}
	noteID, err := convert.GetUUID(req, convert.FieldID)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "bad id")
	}
	n, err := s.notes.Get(ctx, id.UserID, noteID)
	if err != nil {
		return nil, toStatus(err)
	}
	return convert.ToProtoNote(*n), nil
}

// UpdateNote replaces the blob of a note.
func (s *Server) UpdateNote(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := identity(ctx)
	if err != nil {
		return nil, err
	}
	noteID, err := convert.GetUUID(req, convert.FieldID)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "bad id")
	}
	blob, err := convert.FromProtoNoteBlob(req)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "bad note: %v", err)
	}
	n, err := s.notes.Update(ctx, id.UserID, noteID, blob)
	if err != nil {
		return nil, toStatus(err)
	}
	return convert.ToProtoNote(*n), nil
}

// DeleteNote soft-deletes a note.
func (s *Server) DeleteNote(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := identity(ctx)
	if err != nil {
		return nil, err
	}
	noteID, err := convert.GetUUID(req, convert.FieldID)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "bad id")
	}
	if err := s.notes.Delete(ctx, id.UserID, noteID); err != nil {
		return nil, toStatus(err)
	}
	return convert.Empty(), nil
}
