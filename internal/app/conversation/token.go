package conversation

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/crypto/hkdf"
)

var (
	ErrTokenMalformed = errors.New("state token malformed")
	ErrTokenSignature = errors.New("state token signature mismatch")
	ErrTokenExpired   = errors.New("state token expired")
	ErrTokenStale     = errors.New("state token does not match the previous reply")
)

// StateCodec signs dialogue states into opaque tokens that clients echo
// back with the next request. A token is bound to the reply it was issued
// with, so a token replayed against a different transcript is rejected.
type StateCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewStateCodec(secret []byte, ttl time.Duration) *StateCodec {
	return &StateCodec{secret: deriveKey(secret), ttl: ttl, now: time.Now}
}

// WithClock returns a copy of the codec that stamps and checks tokens
// against now.
func (c *StateCodec) WithClock(now func() time.Time) *StateCodec {
	cp := *c
	cp.now = now
	return &cp
}

// deriveKey gives state tokens their own key so the configured secret can be
// shared with other signers.
func deriveKey(secret []byte) []byte {
	key := make([]byte, sha256.Size)
	r := hkdf.New(sha256.New, secret, nil, []byte("taskpilot/state-token/v1"))
	if _, err := io.ReadFull(r, key); err != nil {
		// Only reachable when asking for more than 255 hash blocks.
		return secret
	}
	return key
}

type tokenPayload struct {
	Kind     StateKind       `json:"k"`
	State    json.RawMessage `json:"s"`
	Reply    string          `json:"r"`
	IssuedAt int64           `json:"iat"`
}

// Encode returns "" for Idle: a finished flow has nothing to resume.
func (c *StateCodec) Encode(st DialogueState, replyText string) (string, error) {
	if st == nil || st.Kind() == StateIdle {
		return "", nil
	}
	raw, err := json.Marshal(st)
	if err != nil {
		return "", fmt.Errorf("encode dialogue state: %w", err)
	}
	payload, err := json.Marshal(tokenPayload{
		Kind:     st.Kind(),
		State:    raw,
		Reply:    replyDigest(replyText),
		IssuedAt: c.now().Unix(),
	})
	if err != nil {
		return "", fmt.Errorf("encode state token: %w", err)
	}
	body := base64.RawURLEncoding.EncodeToString(payload)
	return body + "." + base64.RawURLEncoding.EncodeToString(c.sign(body)), nil
}

// Decode verifies a token against the assistant reply it claims to follow.
func (c *StateCodec) Decode(token, prevReply string) (DialogueState, error) {
	body, sig, ok := strings.Cut(token, ".")
	if !ok {
		return nil, ErrTokenMalformed
	}
	gotSig, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return nil, ErrTokenMalformed
	}
	if !hmac.Equal(gotSig, c.sign(body)) {
		return nil, ErrTokenSignature
	}

	raw, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return nil, ErrTokenMalformed
	}
	var p tokenPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, ErrTokenMalformed
	}
	if c.ttl > 0 && c.now().Sub(time.Unix(p.IssuedAt, 0)) > c.ttl {
		return nil, ErrTokenExpired
	}
	if p.Reply != replyDigest(prevReply) {
		return nil, ErrTokenStale
	}

	var st DialogueState
	switch p.Kind {
	case StateAwaitingCreateClarification:
		var v AwaitingCreateClarification
		err = json.Unmarshal(p.State, &v)
		st = v
	case StateAwaitingDeleteConfirmation:
		var v AwaitingDeleteConfirmation
		err = json.Unmarshal(p.State, &v)
		st = v
	case StateAwaitingDeleteDisambiguation:
		var v AwaitingDeleteDisambiguation
		err = json.Unmarshal(p.State, &v)
		st = v
	default:
		return nil, ErrTokenMalformed
	}
	if err != nil {
		return nil, ErrTokenMalformed
	}
	return st, nil
}

func (c *StateCodec) sign(body string) []byte {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(body))
	return mac.Sum(nil)
}

func replyDigest(text string) string {
	sum := sha256.Sum256([]byte(text))
	return base64.RawURLEncoding.EncodeToString(sum[:16])
}
