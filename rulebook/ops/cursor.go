package ops

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// CursorPayload is the keyset position of the last rule on a page.
type CursorPayload struct {
	Position int64  `json:"position"`
	ID       string `json:"id"`
}

// CursorPosition binds a payload to the listing that produced it.
type CursorPosition struct {
	Payload CursorPayload `json:"payload"`
	Hash    string        `json:"hash"`
}

// HashListing identifies a listing by book and mapping filter.
func HashListing(bookID, mappingID string) string {
	h := sha256.New()
	h.Write([]byte(bookID))
	h.Write([]byte("\n"))
	h.Write([]byte(mappingID))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// EncodeCursor returns the base64url (unpadded) JSON form of pos.
func EncodeCursor(pos CursorPosition) (string, error) {
	b, err := json.Marshal(pos)
	if err != nil {
		return "", fmt.Errorf("cursor json: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func DecodeCursor(tok string) (CursorPosition, error) {
	b, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil {
		return CursorPosition{}, fmt.Errorf("base64 decode error")
	}
	var pos CursorPosition
	if err := json.Unmarshal(b, &pos); err != nil {
		return CursorPosition{}, fmt.Errorf("cursor json parse error")
	}
	return pos, nil
}

// ResolveCursor decodes tok and checks that it was issued for hash.
func ResolveCursor(tok, hash string) (CursorPayload, error) {
	pos, err := DecodeCursor(tok)
	if err != nil {
		return CursorPayload{}, err
	}
	if pos.Hash != hash {
		return CursorPayload{}, fmt.Errorf("cursor does not belong to this listing")
	}
	return pos.Payload, nil
}
