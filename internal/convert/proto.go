// Package convert maps domain types to and from the google.protobuf.Struct
// messages carried by the NoteVault gRPC service. Bytes travel as standard
// base64 strings and times as RFC 3339 strings.
package convert

import (
	"encoding/base64"
	"fmt"
	"time"

	u "github.com/gofrs/uuid/v5"
	"google.golang.org/protobuf/types/known/structpb"

	model "github.com/and161185/notevault/internal/model"
)

// Field names.
const (
	FieldEmail       = "email"
	FieldPassword    = "password"
	FieldName        = "name"
	FieldOldPassword = "old_password"
	FieldNewPassword = "new_password"
	FieldToken       = "token"
	FieldExpiresAt   = "expires_at"
	FieldUserID      = "user_id"
	FieldSalt        = "salt"
	FieldID          = "id"
	FieldCiphertext  = "ciphertext"
	FieldIV          = "iv"
	FieldAuthTag     = "auth_tag"
	FieldCreatedAt   = "created_at"
	FieldUpdatedAt   = "updated_at"
	FieldNotes       = "notes"
)

// --- helpers ---

func str(v string) *structpb.Value { return structpb.NewStringValue(v) }

func b64(b []byte) *structpb.Value { return str(base64.StdEncoding.EncodeToString(b)) }

func ts(t time.Time) *structpb.Value {
	if t.IsZero() {
		return structpb.NewNullValue()
	}
	return str(t.UTC().Format(time.RFC3339Nano))
}

// Object builds a Struct from prepared values.
func Object(fields map[string]*structpb.Value) *structpb.Struct {
	return &structpb.Struct{Fields: fields}
}

// Strings builds a Struct with string fields only.
func Strings(kv map[string]string) *structpb.Struct {
	fields := make(map[string]*structpb.Value, len(kv))
	for k, v := range kv {
		fields[k] = str(v)
	}
	return Object(fields)
}

// Empty returns an empty message.
func Empty() *structpb.Struct { return Object(map[string]*structpb.Value{}) }

// GetString returns the string field key, or "" when absent or not a string.
func GetString(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

// GetBytes decodes a base64 field.
func GetBytes(s *structpb.Struct, key string) ([]byte, error) {
	v := GetString(s, key)
	if v == "" {
		return nil, nil
	}
	b, err := base64.StdEncoding.DecodeString(v)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid base64: %w", key, err)
	}
	return b, nil
}

// GetUUID parses a UUID field.
func GetUUID(s *structpb.Struct, key string) (u.UUID, error) {
	var id u.UUID
	if err := id.UnmarshalText([]byte(GetString(s, key))); err != nil {
		return u.Nil, fmt.Errorf("%s: invalid id: %w", key, err)
	}
	return id, nil
}

// GetTime parses an RFC 3339 field; absent fields give the zero time.
func GetTime(s *structpb.Struct, key string) (time.Time, error) {
	v := GetString(s, key)
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: invalid time: %w", key, err)
	}
	return t, nil
}

// --- Sessions / profiles (server -> client) ---

// ToProtoSession converts a login result. The salt is included so the client
// can derive its note key.
func ToProtoSession(s model.Session) *structpb.Struct {
	return Object(map[string]*structpb.Value{
		FieldToken:     str(s.Token),
		FieldExpiresAt: ts(s.ExpiresAt),
		FieldUserID:    str(s.User.ID.String()),
		FieldEmail:     str(s.User.Email),
		FieldName:      str(s.User.Name),
		FieldSalt:      b64(s.User.Salt),
	})
}

// FromProtoSession is the client-side inverse of ToProtoSession.
func FromProtoSession(s *structpb.Struct) (model.Session, error) {
	id, err := GetUUID(s, FieldUserID)
	if err != nil {
		return model.Session{}, err
	}
	salt, err := GetBytes(s, FieldSalt)
	if err != nil {
		return model.Session{}, err
	}
	exp, err := GetTime(s, FieldExpiresAt)
	if err != nil {
		return model.Session{}, err
	}
	return model.Session{
		Token:     GetString(s, FieldToken),
		ExpiresAt: exp,
		User: model.User{
			ID:    id,
			Email: GetString(s, FieldEmail),
			Name:  GetString(s, FieldName),
			Salt:  salt,
		},
	}, nil
}

// ToProtoProfile converts a user without its password verifier.
func ToProtoProfile(usr model.User) *structpb.Struct {
	return Object(map[string]*structpb.Value{
		FieldUserID:    str(usr.ID.String()),
		FieldEmail:     str(usr.Email),
		FieldName:      str(usr.Name),
		FieldSalt:      b64(usr.Salt),
		FieldCreatedAt: ts(usr.CreatedAt),
		FieldUpdatedAt: ts(usr.UpdatedAt),
	})
}

// FromProtoProfile is the client-side inverse of ToProtoProfile.
func FromProtoProfile(s *structpb.Struct) (model.User, error) {
	id, err := GetUUID(s, FieldUserID)
	if err != nil {
		return model.User{}, err
	}
	salt, err := GetBytes(s, FieldSalt)
	if err != nil {
		return model.User{}, err
	}
	created, err := GetTime(s, FieldCreatedAt)
	if err != nil {
		return model.User{}, err
	}
	updated, err := GetTime(s, FieldUpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	return model.User{
		ID:        id,
		Email:     GetString(s, FieldEmail),
		Name:      GetString(s, FieldName),
		Salt:      salt,
		CreatedAt: created,
		UpdatedAt: updated,
	}, nil
}

// --- Notes ---

// ToProtoNoteBlob sets the blob fields on a message.
func ToProtoNoteBlob(b model.NoteBlob, fields map[string]*structpb.Value) map[string]*structpb.Value {
	if fields == nil {
		fields = map[string]*structpb.Value{}
	}
	fields[FieldCiphertext] = b64(b.Ciphertext)
	fields[FieldIV] = b64(b.IV)
	fields[FieldAuthTag] = b64(b.AuthTag)
	return fields
}

// FromProtoNoteBlob reads the blob fields of a message.
func FromProtoNoteBlob(s *structpb.Struct) (model.NoteBlob, error) {
	var (
		b   model.NoteBlob
		err error
	)
	if b.Ciphertext, err = GetBytes(s, FieldCiphertext); err != nil {
		return model.NoteBlob{}, err
	}
	if b.IV, err = GetBytes(s, FieldIV); err != nil {
		return model.NoteBlob{}, err
	}
	if b.AuthTag, err = GetBytes(s, FieldAuthTag); err != nil {
		return model.NoteBlob{}, err
	}
	return b, nil
}

// ToProtoNote converts a note; the owner id is not echoed.
func ToProtoNote(n model.Note) *structpb.Struct {
	return Object(ToProtoNoteBlob(n.Blob, map[string]*structpb.Value{
		FieldID:        str(n.ID.String()),
		FieldCreatedAt: ts(n.CreatedAt),
		FieldUpdatedAt: ts(n.UpdatedAt),
	}))
}

// FromProtoNote is the client-side inverse of ToProtoNote.
func FromProtoNote(s *structpb.Struct) (model.Note, error) {
	id, err := GetUUID(s, FieldID)
	if err != nil {
		return model.Note{}, err
	}
	blob, err := FromProtoNoteBlob(s)
	if err != nil {
		return model.Note{}, err
	}
	created, err := GetTime(s, FieldCreatedAt)
	if err != nil {
		return model.Note{}, err
	}
	updated, err := GetTime(s, FieldUpdatedAt)
	if err != nil {
		return model.Note{}, err
	}
	return model.Note{ID: id, Blob: blob, CreatedAt: created, UpdatedAt: updated}, nil
}

// ToProtoNotes wraps a list of notes as {"notes": [...]}.
func ToProtoNotes(ns []model.Note) *structpb.Struct {
	vals := make([]*structpb.Value, 0, len(ns))
	for _, n := range ns {
		vals = append(vals, structpb.NewStructValue(ToProtoNote(n)))
	}
	return Object(map[string]*structpb.Value{
		FieldNotes: structpb.NewListValue(&structpb.ListValue{Values: vals}),
	})
}

// FromProtoNotes is the client-side inverse of ToProtoNotes.
func FromProtoNotes(s *structpb.Struct) ([]model.Note, error) {
	vals := s.GetFields()[FieldNotes].GetListValue().GetValues()
	out := make([]model.Note, 0, len(vals))
	for i, v := range vals {
		n, err := FromProtoNote(v.GetStructValue())
		if err != nil {
			return nil, fmt.Errorf("note[%d]: %w", i, err)
		}
		out = append(out, n)
	}
	return out, nil
}
