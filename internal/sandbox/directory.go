package sandbox

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/agromarket/internal/domain"
)

const maxCodeAttempts = 5

var (
	errUnknownAccount  = errors.New("unknown account")
	errIdentifierTaken = errors.New("identifier already in use")
	errCodeInvalid     = errors.New("invalid code")
	errCodeExhausted   = errors.New("too many wrong codes")
	errGrantInvalid    = errors.New("refresh grant invalid or expired")
)

type account struct {
	user         domain.User
	profile      domain.Profile
	passwordHash []byte
	verified     bool
}

func (a *account) copy() account {
	c := *a
	c.user = *a.user.Clone()
	return c
}

type pendingCode struct {
	code     string
	purpose  domain.OTPPurpose
	expires  time.Time
	attempts int
}

type refreshGrant struct {
	userID  string
	expires time.Time
}

// directory is the sandbox's account database.
type directory struct {
	mu    sync.Mutex
	clock clockwork.Clock

	accounts map[string]*account // by user id
	index    map[string]string   // phone or lower-cased email -> user id
	codes    map[string]pendingCode
	grants   map[string]refreshGrant
	revoked  map[string]time.Time // access token id -> token expiry
}

func newDirectory(clock clockwork.Clock) *directory {
	return &directory{
		clock:    clock,
		accounts: make(map[string]*account),
		index:    make(map[string]string),
		codes:    make(map[string]pendingCode),
		grants:   make(map[string]refreshGrant),
		revoked:  make(map[string]time.Time),
	}
}

func indexKey(identifier string) string {
	if strings.Contains(identifier, "@") {
		return strings.ToLower(identifier)
	}
	return identifier
}

func (d *directory) create(req domain.RegisterRequest, passwordHash []byte) (account, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, taken := d.index[req.Phone]; taken {
		return account{}, errIdentifierTaken
	}

	id := uuid.NewString()
	acct := &account{
		user: domain.User{
			ID:          id,
			Phone:       req.Phone,
			FullName:    req.FullName,
			AccountType: req.AccountType,
		},
		profile: domain.Profile{
			UserID:    id,
			FullName:  req.FullName,
			UpdatedAt: d.clock.Now().UTC(),
		},
		passwordHash: passwordHash,
	}
	d.accounts[id] = acct
	d.index[req.Phone] = id
	return acct.copy(), nil
}

func (d *directory) lookup(identifier string) (account, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id, ok := d.index[indexKey(identifier)]
	if !ok {
		return account{}, false
	}
	return d.accounts[id].copy(), true
}

func (d *directory) get(userID string) (account, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	acct, ok := d.accounts[userID]
	if !ok {
		return account{}, false
	}
	return acct.copy(), true
}

func (d *directory) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.accounts)
}

func (d *directory) markVerified(userID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if acct, ok := d.accounts[userID]; ok {
		acct.verified = true
	}
}

func (d *directory) updateProfile(userID string, patch domain.ProfilePatch) (domain.Profile, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	acct, ok := d.accounts[userID]
	if !ok {
		return domain.Profile{}, errUnknownAccount
	}
	updated := acct.profile.Apply(patch)
	updated.UpdatedAt = d.clock.Now().UTC()
	acct.profile = *updated
	if patch.FullName != nil {
		acct.user.FullName = *patch.FullName
	}
	if patch.RegionID != nil {
		acct.user.RegionID = *patch.RegionID
	}
	if patch.VillageID != nil {
		acct.user.VillageID = *patch.VillageID
	}
	return acct.profile, nil
}

// updateContact replaces the account's email or primary phone, depending on
// the identifier's shape.
func (d *directory) updateContact(userID, identifier string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	acct, ok := d.accounts[userID]
	if !ok {
		return errUnknownAccount
	}
	key := indexKey(identifier)
	if owner, taken := d.index[key]; taken && owner != userID {
		return errIdentifierTaken
	}

	if domain.ChannelFor(identifier) == domain.OTPChannelEmail {
		if acct.user.Email != "" {
			delete(d.index, indexKey(acct.user.Email))
		}
		acct.user.Email = key
	} else {
		if acct.user.Phone != identifier {
			acct.user.AdditionalPhones = append(acct.user.AdditionalPhones, acct.user.Phone)
		}
		delete(d.index, acct.user.Phone)
		acct.user.Phone = identifier
	}
	d.index[key] = userID
	acct.profile.UpdatedAt = d.clock.Now().UTC()
	return nil
}

// issueCode replaces any pending code for identifier.
func (d *directory) issueCode(identifier string, purpose domain.OTPPurpose, ttl time.Duration) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	code := fmt.Sprintf("%06d", n.Int64())

	d.mu.Lock()
	defer d.mu.Unlock()
	d.codes[indexKey(identifier)] = pendingCode{
		code:    code,
		purpose: purpose,
		expires: d.clock.Now().Add(ttl),
	}
	return code, nil
}

// consumeCode checks code and removes it on success. Expired codes and codes
// for another purpose count as invalid.
func (d *directory) consumeCode(identifier, code string, purpose domain.OTPPurpose) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := indexKey(identifier)
	pending, ok := d.codes[key]
	if !ok || pending.purpose != purpose || !d.clock.Now().Before(pending.expires) {
		return errCodeInvalid
	}
	if pending.code != code {
		pending.attempts++
		if pending.attempts >= maxCodeAttempts {
			delete(d.codes, key)
			return errCodeExhausted
		}
		d.codes[key] = pending
		return errCodeInvalid
	}
	delete(d.codes, key)
	return nil
}

func (d *directory) pendingCode(identifier string) (pendingCode, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.codes[indexKey(identifier)]
	return p, ok
}

func (d *directory) grant(token, userID string, ttl time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.grants[token] = refreshGrant{userID: userID, expires: d.clock.Now().Add(ttl)}
}

// redeem consumes a refresh token. Each token works once.
func (d *directory) redeem(token string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	g, ok := d.grants[token]
	delete(d.grants, token)
	if !ok || !d.clock.Now().Before(g.expires) {
		return "", errGrantInvalid
	}
	return g.userID, nil
}

// revoke invalidates an access token and every refresh grant of its user.
func (d *directory) revoke(tokenID, userID string, expires time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.revoked[tokenID] = expires
	for token, g := range d.grants {
		if g.userID == userID {
			delete(d.grants, token)
		}
	}

	now := d.clock.Now()
	for id, exp := range d.revoked {
		if !now.Before(exp) {
			delete(d.revoked, id)
		}
	}
}

func (d *directory) isRevoked(tokenID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.revoked[tokenID]
	return ok
}
