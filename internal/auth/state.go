package auth

import (
	"fmt"
	"net/http"
	"time"
)

const (
	// StateCookieName is the name of the login state cookie.
	StateCookieName = "fulcrum_oidc_state"
	// StateTTL is how long a login attempt stays valid.
	StateTTL = 5 * time.Minute
)

// StateStore keeps the OIDC state and nonce of a login attempt in an
// encrypted cookie for CSRF and replay protection.
type StateStore struct {
	sealer *sealer
}

// StateData holds the state and nonce for an OIDC request.
type StateData struct {
	State     string    `json:"state"`
	Nonce     string    `json:"nonce"`
	ReturnTo  string    `json:"return_to,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewStateStore creates a new state store with encryption.
func NewStateStore(key []byte, secure bool) (*StateStore, error) {
	s, err := newSealer(key, secure)
	if err != nil {
		return nil, err
	}
	return &StateStore{sealer: s}, nil
}

// Generate creates a new state/nonce pair and stores it in the cookie.
// returnTo is the local path to come back to after sign-in.
func (ss *StateStore) Generate(w http.ResponseWriter, returnTo string) (*StateData, error) {
	state, err := GenerateSecureString(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate state: %w", err)
	}
	nonce, err := GenerateSecureString(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	data := &StateData{
		State:     state,
		Nonce:     nonce,
		ReturnTo:  returnTo,
		ExpiresAt: time.Now().Add(StateTTL),
	}
	if err := ss.sealer.write(w, StateCookieName, data, StateTTL); err != nil {
		return nil, err
	}
	return data, nil
}

// Validate retrieves the stored attempt and checks it against the state
// returned by the provider.
func (ss *StateStore) Validate(r *http.Request, state string) (*StateData, error) {
	var data StateData
	if err := ss.sealer.read(r, StateCookieName, &data); err != nil {
		return nil, err
	}
	if time.Now().After(data.ExpiresAt) {
		return nil, fmt.Errorf("state: %w", ErrExpired)
	}
	if !ConstantTimeCompare(data.State, state) {
		return nil, fmt.Errorf("state mismatch")
	}
	return &data, nil
}

// Clear clears the state cookie.
func (ss *StateStore) Clear(w http.ResponseWriter) {
	ss.sealer.clear(w, StateCookieName)
}
