package main

import (
	"encoding/json"

	"github.com/and161185/notevault/internal/crypto/clientcrypto"
	"github.com/and161185/notevault/internal/model"
)

// notePayload is the plaintext sealed into a note blob.
type notePayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// buildNotePayload packs {title, body} as JSON bytes.
func buildNotePayload(title, body string) ([]byte, error) {
	return json.Marshal(notePayload{Title: title, Body: body})
}

// openNote decrypts a blob and unpacks its payload. Blobs that decrypt to
// something other than a payload are shown as an untitled body.
func openNote(key []byte, blob model.NoteBlob) (notePayload, error) {
	pt, err := clientcrypto.Open(key, blob)
	if err != nil {
		return notePayload{}, err
	}
	var p notePayload
	if err := json.Unmarshal(pt, &p); err != nil {
		return notePayload{Body: string(pt)}, nil
	}
	return p, nil
}
