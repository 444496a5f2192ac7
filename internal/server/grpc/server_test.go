package grpcserver

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/and161185/notevault/internal/convert"
	"github.com/and161185/notevault/internal/errs"
	"github.com/and161185/notevault/internal/model"
)

type fakeAccounts struct {
	id       uuid.UUID
	name     string
	regErr   error
	lastOld  string
	lastNew  string
	pwErr    error
	lastUser uuid.UUID
}

func (f *fakeAccounts) Register(_ context.Context, email, _, name string) (uuid.UUID, error) {
	if f.regErr != nil {
		return uuid.Nil, f.regErr
	}
	f.name = name
	return f.id, nil
}

func (f *fakeAccounts) ChangePassword(_ context.Context, id uuid.UUID, oldPw, newPw string) error {
	f.lastUser, f.lastOld, f.lastNew = id, oldPw, newPw
	return f.pwErr
}

func (f *fakeAccounts) Profile(_ context.Context, id uuid.UUID) (model.User, error) {
	return model.User{ID: id, Email: "alice@example.com", Name: f.name, Salt: []byte("0123456789abcdef")}, nil
}

func (f *fakeAccounts) UpdateName(_ context.Context, _ uuid.UUID, name string) error {
	if name == "" {
		return errs.ErrInvalidArgument
	}
	f.name = name
	return nil
}

type fakeSessions struct {
	user       model.User
	loginErr   error
	lastPeer   string
	lastHeader string
}

func (f *fakeSessions) Login(_ context.Context, email, password, peer string) (model.Session, error) {
	f.lastPeer = peer
	if f.loginErr != nil {
		return model.Session{}, f.loginErr
	}
	if password != "Secur3Pass!word" {
		return model.Session{}, errs.ErrInvalidCredential
	}
	return model.Session{Token: "good", ExpiresAt: time.Now().Add(time.Hour), User: f.user}, nil
}

func (f *fakeSessions) Logout(_ context.Context, header string) error {
	f.lastHeader = header
	return nil
}

type fakeNotes struct {
	notes map[uuid.UUID]model.Note
}

func (f *fakeNotes) Create(_ context.Context, uid uuid.UUID, b model.NoteBlob) (*model.Note, error) {
	n := model.Note{ID: uuid.Must(uuid.NewV4()), UserID: uid, Blob: b, CreatedAt: time.Now()}
	f.notes[n.ID] = n
	return &n, nil
}

func (f *fakeNotes) List(_ context.Context, uid uuid.UUID) ([]model.Note, error) {
	out := []model.Note{}
	for _, n := range f.notes {
		if n.UserID == uid {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeNotes) Get(_ context.Context, uid, id uuid.UUID) (*model.Note, error) {
	n, ok := f.notes[id]
	if !ok || n.UserID != uid {
		return nil, errs.ErrNotFound
	}
	return &n, nil
}

func (f *fakeNotes) Update(ctx context.Context, uid, id uuid.UUID, b model.NoteBlob) (*model.Note, error) {
	n, err := f.Get(ctx, uid, id)
	if err != nil {
		return nil, err
	}
	n.Blob = b
	f.notes[id] = *n
	return n, nil
}

func (f *fakeNotes) Delete(ctx context.Context, uid, id uuid.UUID) error {
	if _, err := f.Get(ctx, uid, id); err != nil {
		return err
	}
	delete(f.notes, id)
	return nil
}

const bufSize = 1 << 20

type testEnv struct {
	client   *Client
	health   healthpb.HealthClient
	accounts *fakeAccounts
	sessions *fakeSessions
	notes    *fakeNotes
	uid      uuid.UUID
}

func startBufGRPC(t *testing.T) *testEnv {
	t.Helper()
	uid := uuid.Must(uuid.NewV4())
	env := &testEnv{
		accounts: &fakeAccounts{id: uid},
		sessions: &fakeSessions{user: model.User{ID: uid, Email: "alice@example.com", Salt: []byte("0123456789abcdef")}},
		notes:    &fakeNotes{notes: map[uuid.UUID]model.Note{}},
		uid:      uid,
	}
	guard := &fakeGuard{want: "Bearer good", id: model.Identity{UserID: uid, Token: "good"}}

	log := zaptest.NewLogger(t)
	lis := bufconn.Listen(bufSize)
	gs := grpc.NewServer(grpc.ChainUnaryInterceptor(
		RecoverUnary(log),
		LoggingUnary(log),
		AuthUnary(guard),
	))
	RegisterNoteVaultServer(gs, New(env.accounts, env.sessions, env.notes))
	healthpb.RegisterHealthServer(gs, health.NewServer())
	go func() { _ = gs.Serve(lis) }()

	dialer := func(context.Context, string) (net.Conn, error) { return lis.Dial() }
	cc, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(dialer), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = cc.Close(); gs.Stop(); _ = lis.Close() })
	env.client = NewClient(cc)
	env.health = healthpb.NewHealthClient(cc)
	return env
}

func authed(token string) context.Context {
	return metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+token)
}

func wantCode(t *testing.T, err error, code codes.Code) {
	t.Helper()
	if status.Code(err) != code {
		t.Fatalf("want %v, got %v", code, err)
	}
}

func TestRegisterLoginLogout(t *testing.T) {
	env := startBufGRPC(t)
	ctx := context.Background()

	resp, err := env.client.Call(ctx, MethodRegister, convert.Strings(map[string]string{
		convert.FieldEmail: "alice@example.com", convert.FieldPassword: "Secur3Pass!word", convert.FieldName: "Alice",
	}))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if convert.GetString(resp, convert.FieldUserID) != env.uid.String() || env.accounts.name != "Alice" {
		t.Fatalf("bad register response: %v", resp)
	}

	_, err = env.client.Call(ctx, MethodRegister, convert.Strings(map[string]string{convert.FieldEmail: "x@example.com"}))
	wantCode(t, err, codes.InvalidArgument)

	env.accounts.regErr = errs.ErrDuplicateIdentity
	_, err = env.client.Call(ctx, MethodRegister, convert.Strings(map[string]string{
		convert.FieldEmail: "alice@example.com", convert.FieldPassword: "Secur3Pass!word",
	}))
	wantCode(t, err, codes.AlreadyExists)

	_, err = env.client.Call(ctx, MethodLogin, convert.Strings(map[string]string{
		convert.FieldEmail: "alice@example.com", convert.FieldPassword: "wrongpass",
	}))
	wantCode(t, err, codes.Unauthenticated)

	resp, err = env.client.Call(ctx, MethodLogin, convert.Strings(map[string]string{
		convert.FieldEmail: "alice@example.com", convert.FieldPassword: "Secur3Pass!word",
	}))
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	sess, err := convert.FromProtoSession(resp)
	if err != nil {
		t.Fatalf("FromProtoSession: %v", err)
	}
	if sess.Token != "good" || sess.User.ID != env.uid || !bytes.Equal(sess.User.Salt, []byte("0123456789abcdef")) {
		t.Fatalf("bad session: %+v", sess)
	}
	if env.sessions.lastPeer == "" {
		t.Fatalf("peer not passed to Login")
	}

	if _, err := env.client.Call(ctx, MethodLogout, nil); status.Code(err) != codes.Unauthenticated {
		t.Fatalf("Logout without token: %v", err)
	}
	if _, err := env.client.Call(authed("good"), MethodLogout, nil); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if env.sessions.lastHeader != "Bearer good" {
		t.Fatalf("logout header=%q", env.sessions.lastHeader)
	}

	env.sessions.loginErr = errs.ErrRateLimited
	_, err = env.client.Call(ctx, MethodLogin, convert.Strings(map[string]string{
		convert.FieldEmail: "alice@example.com", convert.FieldPassword: "Secur3Pass!word",
	}))
	wantCode(t, err, codes.ResourceExhausted)
}

func TestProtectedRequireToken(t *testing.T) {
	env := startBufGRPC(t)
	for _, m := range []string{
		MethodGetProfile, MethodUpdateProfile, MethodChangePassword,
		MethodCreateNote, MethodListNotes, MethodGetNote, MethodUpdateNote, MethodDeleteNote,
	} {
		_, err := env.client.Call(context.Background(), m, nil)
		if status.Code(err) != codes.Unauthenticated {
			t.Fatalf("%s without token: %v", m, err)
		}
		_, err = env.client.Call(authed("forged"), m, nil)
		if status.Code(err) != codes.Unauthenticated {
			t.Fatalf("%s with bad token: %v", m, err)
		}
	}

	if _, err := env.health.Check(context.Background(), &healthpb.HealthCheckRequest{}); err != nil {
		t.Fatalf("health must not need a token: %v", err)
	}
}

func TestProfileAndPassword(t *testing.T) {
	env := startBufGRPC(t)
	ctx := authed("good")

	resp, err := env.client.Call(ctx, MethodUpdateProfile, convert.Strings(map[string]string{convert.FieldName: "Alice B"}))
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	p, err := convert.FromProtoProfile(resp)
	if err != nil || p.Name != "Alice B" || p.ID != env.uid {
		t.Fatalf("profile: %+v %v", p, err)
	}
	_, err = env.client.Call(ctx, MethodUpdateProfile, convert.Empty())
	wantCode(t, err, codes.InvalidArgument)

	resp, err = env.client.Call(ctx, MethodGetProfile, nil)
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if convert.GetString(resp, convert.FieldSalt) == "" {
		t.Fatalf("profile must carry the salt")
	}

	if _, err := env.client.Call(ctx, MethodChangePassword, convert.Strings(map[string]string{
		convert.FieldOldPassword: "old", convert.FieldNewPassword: "new",
	})); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if env.accounts.lastUser != env.uid || env.accounts.lastOld != "old" || env.accounts.lastNew != "new" {
		t.Fatalf("args not forwarded: %+v", env.accounts)
	}
	env.accounts.pwErr = errs.ErrWeakCredential
	_, err = env.client.Call(ctx, MethodChangePassword, convert.Empty())
	wantCode(t, err, codes.InvalidArgument)
	env.accounts.pwErr = errs.ErrInvalidCredential
	_, err = env.client.Call(ctx, MethodChangePassword, convert.Empty())
	wantCode(t, err, codes.Unauthenticated)
}

func TestNotesRoundTrip(t *testing.T) {
	env := startBufGRPC(t)
	ctx := authed("good")
	blob := model.NoteBlob{Ciphertext: []byte{1, 2, 3}, IV: bytes.Repeat([]byte{4}, 12), AuthTag: bytes.Repeat([]byte{5}, 16)}

	resp, err := env.client.Call(ctx, MethodCreateNote, convert.Object(convert.ToProtoNoteBlob(blob, nil)))
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	created, err := convert.FromProtoNote(resp)
	if err != nil || !bytes.Equal(created.Blob.Ciphertext, blob.Ciphertext) {
		t.Fatalf("created: %+v %v", created, err)
	}
	if env.notes.notes[created.ID].UserID != env.uid {
		t.Fatalf("note not scoped to caller")
	}

	resp, err = env.client.Call(ctx, MethodListNotes, nil)
	if err != nil {
		t.Fatalf("ListNotes: %v", err)
	}
	list, err := convert.FromProtoNotes(resp)
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %v %v", list, err)
	}

	idReq := convert.Strings(map[string]string{convert.FieldID: created.ID.String()})
	if _, err := env.client.Call(ctx, MethodGetNote, idReq); err != nil {
		t.Fatalf("GetNote: %v", err)
	}

	upd := convert.ToProtoNoteBlob(model.NoteBlob{Ciphertext: []byte{9}, IV: blob.IV, AuthTag: blob.AuthTag},
		map[string]*structpb.Value{convert.FieldID: structpb.NewStringValue(created.ID.String())})
	resp, err = env.client.Call(ctx, MethodUpdateNote, convert.Object(upd))
	if err != nil {
		t.Fatalf("UpdateNote: %v", err)
	}
	if got, _ := convert.FromProtoNote(resp); !bytes.Equal(got.Blob.Ciphertext, []byte{9}) {
		t.Fatalf("update not applied: %+v", got)
	}

	if _, err := env.client.Call(ctx, MethodDeleteNote, idReq); err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}
	_, err = env.client.Call(ctx, MethodGetNote, idReq)
	wantCode(t, err, codes.NotFound)

	_, err = env.client.Call(ctx, MethodGetNote, convert.Strings(map[string]string{convert.FieldID: "nope"}))
	wantCode(t, err, codes.InvalidArgument)
	_, err = env.client.Call(ctx, MethodCreateNote, convert.Strings(map[string]string{convert.FieldCiphertext: "%%%"}))
	wantCode(t, err, codes.InvalidArgument)
}

func TestToStatus(t *testing.T) {
	t.Parallel()
	cases := map[error]codes.Code{
		errs.ErrDuplicateIdentity:  codes.AlreadyExists,
		errs.ErrWeakCredential:     codes.InvalidArgument,
		errs.ErrInvalidCredential:  codes.Unauthenticated,
		errs.ErrNotFound:           codes.NotFound,
		errs.ErrRevoked:            codes.Unauthenticated,
		errs.ErrStorageUnavailable: codes.Unavailable,
		errs.ErrRateLimited:        codes.ResourceExhausted,
		context.DeadlineExceeded:   codes.DeadlineExceeded,
		context.Canceled:           codes.Canceled,
	}
	for in, want := range cases {
		if got := status.Code(toStatus(in)); got != want {
			t.Fatalf("%v: got %v, want %v", in, got, want)
		}
	}
	if toStatus(nil) != nil {
		t.Fatalf("nil must stay nil")
	}
}
