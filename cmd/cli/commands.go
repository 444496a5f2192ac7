package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/gofrs/uuid/v5"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/and161185/notevault/internal/convert"
	"github.com/and161185/notevault/internal/crypto/clientcrypto"
	"github.com/and161185/notevault/internal/model"
	grpcserver "github.com/and161185/notevault/internal/server/grpc"
)

// app carries what every subcommand needs.
type app struct {
	cli *grpcserver.Client
	in  io.Reader
	out io.Writer
}

type command func(a *app, ctx context.Context, args []string) error

var commands = map[string]command{
	"register": (*app).register,
	"login":    (*app).login,
	"logout":   (*app).logout,
	"profile":  (*app).profile,
	"passwd":   (*app).passwd,
	"add":      (*app).add,
	"ls":       (*app).ls,
	"cat":      (*app).cat,
	"edit":     (*app).edit,
	"rm":       (*app).rm,
}

func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

// authed attaches the saved bearer token to ctx.
func (a *app) authed(ctx context.Context) (context.Context, sessionFile, error) {
	s, err := loadSession()
	if err != nil {
		return nil, s, err
	}
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+s.Token), s, nil
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := newFlagSet("register", a.out)
	email := fs.String("email", "", "email")
	password := fs.String("password", "", "password")
	name := fs.String("name", "", "display name (defaults to the email local part)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return errors.New("need -email")
	}
	if err := promptPassword("password", password); err != nil {
		return err
	}
	resp, err := a.cli.Call(ctx, grpcserver.MethodRegister, convert.Strings(map[string]string{
		convert.FieldEmail:    *email,
		convert.FieldPassword: *password,
		convert.FieldName:     *name,
	}))
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, convert.GetString(resp, convert.FieldUserID))
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := newFlagSet("login", a.out)
	email := fs.String("email", "", "email")
	password := fs.String("password", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return errors.New("need -email")
	}
	if err := promptPassword("password", password); err != nil {
		return err
	}
	resp, err := a.cli.Call(ctx, grpcserver.MethodLogin, convert.Strings(map[string]string{
		convert.FieldEmail:    *email,
		convert.FieldPassword: *password,
	}))
	if err != nil {
		return err
	}
	sess, err := convert.FromProtoSession(resp)
	if err != nil {
		return fmt.Errorf("login response: %w", err)
	}
	if len(sess.User.Salt) == 0 {
		return errors.New("login response: empty salt")
	}
	if err := saveKey(clientcrypto.DeriveKey([]byte(*password), sess.User.Salt)); err != nil {
		return err
	}
	if err := saveSession(sessionFile{
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt,
		UserID:    sess.User.ID,
		Email:     sess.User.Email,
		Salt:      sess.User.Salt,
	}); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "ok")
	return nil
}

// logout revokes the token on the server and always forgets it locally.
func (a *app) logout(ctx context.Context, _ []string) error {
	actx, _, err := a.authed(ctx)
	if err != nil {
		return clearSession()
	}
	_, callErr := a.cli.Call(actx, grpcserver.MethodLogout, nil)
	if err := clearSession(); err != nil {
		return err
	}
	if callErr != nil {
		return callErr
	}
	fmt.Fprintln(a.out, "ok")
	return nil
}

type profileRow struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at,omitempty"`
}

func (a *app) profile(ctx context.Context, args []string) error {
	fs := newFlagSet("profile", a.out)
	name := fs.String("name", "", "new display name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	actx, _, err := a.authed(ctx)
	if err != nil {
		return err
	}
	var resp *structpb.Struct
	if *name != "" {
		resp, err = a.cli.Call(actx, grpcserver.MethodUpdateProfile,
			convert.Strings(map[string]string{convert.FieldName: *name}))
	} else {
		resp, err = a.cli.Call(actx, grpcserver.MethodGetProfile, nil)
	}
	if err != nil {
		return err
	}
	u, err := convert.FromProtoProfile(resp)
	if err != nil {
		return err
	}
	printJSON(a.out, profileRow{ID: u.ID.String(), Email: u.Email, Name: u.Name, CreatedAt: tsString(u.CreatedAt)})
	return nil
}

// passwd changes the password and re-encrypts every note under the new key.
// All notes are decrypted before the server is touched so a bad key aborts early.
func (a *app) passwd(ctx context.Context, args []string) error {
	fs := newFlagSet("passwd", a.out)
	oldPw := fs.String("old", "", "current password")
	newPw := fs.String("new", "", "new password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := promptPassword("current password", oldPw); err != nil {
		return err
	}
	if err := promptPassword("new password", newPw); err != nil {
		return err
	}
	actx, sess, err := a.authed(ctx)
	if err != nil {
		return err
	}
	oldKey := clientcrypto.DeriveKey([]byte(*oldPw), sess.Salt)
	newKey := clientcrypto.DeriveKey([]byte(*newPw), sess.Salt)

	notes, err := a.listNotes(actx)
	if err != nil {
		return err
	}
	plain := make([][]byte, len(notes))
	for i, n := range notes {
		if plain[i], err = clientcrypto.Open(oldKey, n.Blob); err != nil {
			return fmt.Errorf("note %s: cannot decrypt with the current password: %w", n.ID, err)
		}
	}

	if _, err := a.cli.Call(actx, grpcserver.MethodChangePassword, convert.Strings(map[string]string{
		convert.FieldOldPassword: *oldPw,
		convert.FieldNewPassword: *newPw,
	})); err != nil {
		return err
	}
	if err := saveKey(newKey); err != nil {
		return err
	}
	for i, n := range notes {
		if _, err := a.putNote(actx, grpcserver.MethodUpdateNote, newKey, n.ID, plain[i]); err != nil {
			return fmt.Errorf("re-encrypt %s: %w", n.ID, err)
		}
	}
	fmt.Fprintf(a.out, "ok (%d notes re-encrypted)\n", len(notes))
	return nil
}

func (a *app) add(ctx context.Context, args []string) error {
	fs := newFlagSet("add", a.out)
	title := fs.String("title", "", "title")
	file := fs.String("file", "", "body file ('-'=stdin)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *title == "" && *file == "" {
		return errors.New("need -title or -file")
	}
	var body []byte
	if *file != "" {
		var err error
		if body, err = readAll(a.in, *file); err != nil {
			return err
		}
	}
	actx, _, err := a.authed(ctx)
	if err != nil {
		return err
	}
	key, err := loadKey()
	if err != nil {
		return err
	}
	pt, err := buildNotePayload(*title, string(body))
	if err != nil {
		return err
	}
	n, err := a.putNote(actx, grpcserver.MethodCreateNote, key, uuid.Nil, pt)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, n.ID)
	return nil
}

type noteRow struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

func (a *app) ls(ctx context.Context, _ []string) error {
	actx, _, err := a.authed(ctx)
	if err != nil {
		return err
	}
	key, err := loadKey()
	if err != nil {
		return err
	}
	notes, err := a.listNotes(actx)
	if err != nil {
		return err
	}
	rows := make([]noteRow, 0, len(notes))
	for _, n := range notes {
		title := "<undecryptable>"
		if p, err := openNote(key, n.Blob); err == nil {
			title = p.Title
		}
		at := n.UpdatedAt
		if at.IsZero() {
			at = n.CreatedAt
		}
		rows = append(rows, noteRow{ID: n.ID.String(), Title: title, UpdatedAt: tsString(at)})
	}
	printJSON(a.out, rows)
	return nil
}

func (a *app) cat(ctx context.Context, args []string) error {
	fs := newFlagSet("cat", a.out)
	id := fs.String("id", "", "note id (uuid)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	noteID, err := uuid.FromString(*id)
	if err != nil {
		return errors.New("need -id <uuid>")
	}
	actx, _, err := a.authed(ctx)
	if err != nil {
		return err
	}
	key, err := loadKey()
	if err != nil {
		return err
	}
	n, err := a.getNote(actx, noteID)
	if err != nil {
		return err
	}
	p, err := openNote(key, n.Blob)
	if err != nil {
		return fmt.Errorf("decrypt: %w", err)
	}
	fmt.Fprintf(a.out, "# %s\n%s", p.Title, p.Body)
	if p.Body != "" && p.Body[len(p.Body)-1] != '\n' {
		fmt.Fprintln(a.out)
	}
	return nil
}

func (a *app) edit(ctx context.Context, args []string) error {
	fs := newFlagSet("edit", a.out)
	id := fs.String("id", "", "note id (uuid)")
	title := fs.String("title", "", "new title")
	file := fs.String("file", "", "new body file ('-'=stdin)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	noteID, err := uuid.FromString(*id)
	if err != nil {
		return errors.New("need -id <uuid>")
	}
	if *title == "" && *file == "" {
		return errors.New("need -title or -file")
	}
	actx, _, err := a.authed(ctx)
	if err != nil {
		return err
	}
	key, err := loadKey()
	if err != nil {
		return err
	}
	n, err := a.getNote(actx, noteID)
	if err != nil {
		return err
	}
	p, err := openNote(key, n.Blob)
	if err != nil {
		return fmt.Errorf("decrypt: %w", err)
	}
	if *title != "" {
		p.Title = *title
	}
	if *file != "" {
		body, err := readAll(a.in, *file)
		if err != nil {
			return err
		}
		p.Body = string(body)
	}
	pt, err := buildNotePayload(p.Title, p.Body)
	if err != nil {
		return err
	}
	if _, err := a.putNote(actx, grpcserver.MethodUpdateNote, key, noteID, pt); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "ok")
	return nil
}

func (a *app) rm(ctx context.Context, args []string) error {
	fs := newFlagSet("rm", a.out)
	id := fs.String("id", "", "note id (uuid)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	noteID, err := uuid.FromString(*id)
	if err != nil {
		return errors.New("need -id <uuid>")
	}
	actx, _, err := a.authed(ctx)
	if err != nil {
		return err
	}
	if _, err := a.cli.Call(actx, grpcserver.MethodDeleteNote,
		convert.Strings(map[string]string{convert.FieldID: noteID.String()})); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "ok")
	return nil
}

// ---- rpc helpers ----

func (a *app) listNotes(ctx context.Context) ([]model.Note, error) {
	resp, err := a.cli.Call(ctx, grpcserver.MethodListNotes, nil)
	if err != nil {
		return nil, err
	}
	return convert.FromProtoNotes(resp)
}

func (a *app) getNote(ctx context.Context, id uuid.UUID) (model.Note, error) {
	resp, err := a.cli.Call(ctx, grpcserver.MethodGetNote,
		convert.Strings(map[string]string{convert.FieldID: id.String()}))
	if err != nil {
		return model.Note{}, err
	}
	return convert.FromProtoNote(resp)
}

// putNote seals plaintext and sends it with method; id is omitted on create.
func (a *app) putNote(ctx context.Context, method string, key []byte, id uuid.UUID, plaintext []byte) (model.Note, error) {
	blob, err := clientcrypto.Seal(key, plaintext)
	if err != nil {
		return model.Note{}, err
	}
	fields := map[string]*structpb.Value{}
	if id != uuid.Nil {
		fields[convert.FieldID] = structpb.NewStringValue(id.String())
	}
	resp, err := a.cli.Call(ctx, method, convert.Object(convert.ToProtoNoteBlob(blob, fields)))
	if err != nil {
		return model.Note{}, err
	}
	return convert.FromProtoNote(resp)
}

func tsString(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
