package session

import (
	"context"
	"fmt"
	"time"

	"github.com/utafrali/adminconsole/internal/domain"
)

// Store is the single source of truth for a console session's credential
// pair. It spans two key-value stores: a volatile in-process one for plain
// logins and a durable one for "remember me" logins. On load the volatile
// store wins, so a fresh login in this process always shadows whatever an
// older durable session left behind.
type Store struct {
	volatile KV
	durable  KV
	ttl      time.Duration
}

// NewStore creates a session store over the given volatile and durable
// backends. ttl bounds how long a saved session stays loadable.
func NewStore(volatile, durable KV, ttl time.Duration) *Store {
	return &Store{volatile: volatile, durable: durable, ttl: ttl}
}

func sessionKeys(sid string) (access, refresh, admin string) {
	return "session:" + sid + ":access",
		"session:" + sid + ":refresh",
		"session:" + sid + ":admin"
}

// Load reads the credential pair for the session, volatile store first. A
// pair hydrates all-or-nothing: if any of the three fields is missing from a
// store, that store is treated as holding no session at all.
func (s *Store) Load(ctx context.Context, sid string) (domain.CredentialPair, error) {
	pair, ok, err := loadFrom(ctx, s.volatile, sid)
	if err != nil {
		return domain.CredentialPair{}, err
	}
	if ok {
		return pair, nil
	}

	pair, ok, err = loadFrom(ctx, s.durable, sid)
	if err != nil {
		return domain.CredentialPair{}, err
	}
	if ok {
		return pair, nil
	}

	return domain.CredentialPair{}, nil
}

func loadFrom(ctx context.Context, kv KV, sid string) (domain.CredentialPair, bool, error) {
	accessKey, refreshKey, adminKey := sessionKeys(sid)

	access, okA, err := kv.Get(ctx, accessKey)
	if err != nil {
		return domain.CredentialPair{}, false, err
	}
	refresh, okR, err := kv.Get(ctx, refreshKey)
	if err != nil {
		return domain.CredentialPair{}, false, err
	}
	admin, okP, err := kv.Get(ctx, adminKey)
	if err != nil {
		return domain.CredentialPair{}, false, err
	}

	if !okA || !okR || !okP {
		return domain.CredentialPair{}, false, nil
	}

	return domain.CredentialPair{
		AccessToken:  access,
		RefreshToken: refresh,
		Admin:        []byte(admin),
	}, true, nil
}

// Save writes the pair as a unit to the store selected by remember, then
// removes the session's keys from the other store so the two backends cannot
// disagree about which pair is current.
func (s *Store) Save(ctx context.Context, sid string, pair domain.CredentialPair, remember bool) error {
	if !pair.Complete() {
		return fmt.Errorf("save session %s: credential pair is incomplete", sid)
	}

	target, other := s.volatile, s.durable
	if remember {
		target, other = s.durable, s.volatile
	}

	accessKey, refreshKey, adminKey := sessionKeys(sid)

	if err := target.Set(ctx, accessKey, pair.AccessToken, s.ttl); err != nil {
		return err
	}
	if err := target.Set(ctx, refreshKey, pair.RefreshToken, s.ttl); err != nil {
		return err
	}
	if err := target.Set(ctx, adminKey, string(pair.Admin), s.ttl); err != nil {
		return err
	}

	return other.Del(ctx, accessKey, refreshKey, adminKey)
}

// Clear erases the session from both stores.
func (s *Store) Clear(ctx context.Context, sid string) error {
	accessKey, refreshKey, adminKey := sessionKeys(sid)

	if err := s.volatile.Del(ctx, accessKey, refreshKey, adminKey); err != nil {
		return err
	}
	return s.durable.Del(ctx, accessKey, refreshKey, adminKey)
}
