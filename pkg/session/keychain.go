package session

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const keychainAccount = "default"

// ErrNotFound is returned when no session is stored.
var ErrNotFound = errors.New("session: no stored session")

// KeychainStore persists the CLI session in the OS keychain.
type KeychainStore struct {
	service string
}

// NewKeychainStore stores sessions under the given keychain service name.
func NewKeychainStore(service string) *KeychainStore {
	return &KeychainStore{service: service}
}

// Save writes the session.
func (k *KeychainStore) Save(s Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}
	return keyring.Set(k.service, keychainAccount, string(data))
}

// Load reads the stored session.
func (k *KeychainStore) Load() (Session, error) {
	secret, err := keyring.Get(k.service, keychainAccount)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return Session{}, ErrNotFound
		}
		return Session{}, err
	}
	var s Session
	if err := json.Unmarshal([]byte(secret), &s); err != nil {
		return Session{}, fmt.Errorf("session: decode: %w", err)
	}
	return s, nil
}

// Delete removes the stored session.
func (k *KeychainStore) Delete() error {
	err := keyring.Delete(k.service, keychainAccount)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}
