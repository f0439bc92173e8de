// Package authdb is the Auth Data Layer: typed CRUD operations over
// the auth keyspace, each one an explicit CQL statement run through
// the Store Gateway at an explicit consistency level.
package authdb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/apache/cassandra-gocql-driver/v2"
	"github.com/google/uuid"

	"github.com/cassauth/authservicesapi/internal/apperr"
	"github.com/cassauth/authservicesapi/internal/credential"
	"github.com/cassauth/authservicesapi/internal/models"
	"github.com/cassauth/authservicesapi/internal/store"
)

// WriteOptions controls the consistency level of a write. Spec.md §9
// resolves the original's ad hoc kwargs-consistency pattern into this
// concrete, explicit struct. Org, user and setting writes take one from
// the caller; password, password-reset and session writes use a fixed
// level (QuorumWrite or DefaultWrite) internally.
type WriteOptions struct {
	Consistency gocql.Consistency
}

var (
	// QuorumWrite is used where a silently-lost write would leave a
	// caller believing an operation succeeded when it didn't survive a
	// DC outage: org/user creation, password changes, password resets.
	QuorumWrite = WriteOptions{Consistency: gocql.Quorum}
	// DefaultWrite is used for recreate-on-miss, ephemeral state:
	// sessions, session keys, and settings.
	DefaultWrite = WriteOptions{Consistency: gocql.LocalQuorum}
)

// AuthDB is the Auth Data Layer bound to one keyspace.
type AuthDB struct {
	gw       *store.Gateway
	keyspace string
}

// New binds an AuthDB to gw's session for keyspace.
func New(gw *store.Gateway, keyspace string) *AuthDB {
	return &AuthDB{gw: gw, keyspace: keyspace}
}

func (a *AuthDB) session() (*gocql.Session, error) {
	return a.gw.Session(a.keyspace)
}

func toCQLUUID(id uuid.UUID) (gocql.UUID, error) {
	cqlID, err := gocql.ParseUUID(id.String())
	if err != nil {
		return gocql.UUID{}, fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}
	return cqlID, nil
}

// CreateOrg creates org, persisting parentOrg if given. The original
// implementation accepted a parentorg argument but never bound it into
// the INSERT; since spec.md's data model lists parentorg as a real Org
// attribute, this corrects that and actually stores it.
func (a *AuthDB) CreateOrg(ctx context.Context, org string, parentOrg *string, opts WriteOptions) error {
	session, err := a.session()
	if err != nil {
		return err
	}
	q := session.Query(`INSERT INTO orgs (org, parentorg) VALUES (?, ?)`, org, parentOrg).
		WithContext(ctx).Consistency(opts.Consistency)
	if err := q.Exec(); err != nil {
		return fmt.Errorf("%w: creating org %q: %v", apperr.ErrStoreUnavailable, org, err)
	}
	return nil
}

// GetOrg fetches org, returning apperr.ErrNotFound if it doesn't exist.
func (a *AuthDB) GetOrg(ctx context.Context, org string) (*models.Org, error) {
	session, err := a.session()
	if err != nil {
		return nil, err
	}
	o := &models.Org{Org: org}
	err = session.Query(`SELECT parentorg FROM orgs WHERE org = ?`, org).WithContext(ctx).Scan(&o.ParentOrg)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: getting org %q: %v", apperr.ErrStoreUnavailable, org, err)
	}
	return o, nil
}

// CreateUser creates username@org. parentUser, if given, is the
// "user@org" string of the user that vouched for this registration.
func (a *AuthDB) CreateUser(ctx context.Context, org, username, email string, parentUser *string, opts WriteOptions) error {
	session, err := a.session()
	if err != nil {
		return err
	}
	q := session.Query(
		`INSERT INTO users (org, username, email, parentuser, createdate) VALUES (?, ?, ?, ?, ?)`,
		org, username, email, parentUser, time.Now(),
	).WithContext(ctx).Consistency(opts.Consistency)
	if err := q.Exec(); err != nil {
		return fmt.Errorf("%w: creating user %q@%q: %v", apperr.ErrStoreUnavailable, username, org, err)
	}
	return nil
}

// GetUser fetches username@org, returning apperr.ErrNotFound if absent.
func (a *AuthDB) GetUser(ctx context.Context, org, username string) (*models.User, error) {
	session, err := a.session()
	if err != nil {
		return nil, err
	}
	u := &models.User{Org: org, Username: username}
	err = session.Query(
		`SELECT email, parentuser, createdate FROM users WHERE org = ? AND username = ?`,
		org, username,
	).WithContext(ctx).Scan(&u.Email, &u.ParentUser, &u.CreateDate)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: getting user %q@%q: %v", apperr.ErrStoreUnavailable, username, org, err)
	}
	return u, nil
}

// UserExists reports whether username@org has a row.
func (a *AuthDB) UserExists(ctx context.Context, org, username string) (bool, error) {
	_, err := a.GetUser(ctx, org, username)
	if errors.Is(err, apperr.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetUserHash returns username@org's stored password hash, or nil if
// no password has been set yet.
func (a *AuthDB) GetUserHash(ctx context.Context, org, username string) (*string, error) {
	session, err := a.session()
	if err != nil {
		return nil, err
	}
	var hash *string
	err = session.Query(`SELECT hash FROM users WHERE org = ? AND username = ?`, org, username).WithContext(ctx).Scan(&hash)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: getting hash for %q@%q: %v", apperr.ErrStoreUnavailable, username, org, err)
	}
	return hash, nil
}

// GetUserSalt returns username@org's stored salt, or nil if no
// password has been set yet.
func (a *AuthDB) GetUserSalt(ctx context.Context, org, username string) (*string, error) {
	session, err := a.session()
	if err != nil {
		return nil, err
	}
	var salt *string
	err = session.Query(`SELECT salt FROM users WHERE org = ? AND username = ?`, org, username).WithContext(ctx).Scan(&salt)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: getting salt for %q@%q: %v", apperr.ErrStoreUnavailable, username, org, err)
	}
	return salt, nil
}

// SetPassword stores a new hash/salt pair for username@org.
func (a *AuthDB) SetPassword(ctx context.Context, org, username, hash, salt string) error {
	session, err := a.session()
	if err != nil {
		return err
	}
	q := session.Query(`UPDATE users SET hash = ?, salt = ? WHERE org = ? AND username = ?`, hash, salt, org, username).
		WithContext(ctx).Consistency(QuorumWrite.Consistency)
	if err := q.Exec(); err != nil {
		return fmt.Errorf("%w: setting password for %q@%q: %v", apperr.ErrStoreUnavailable, username, org, err)
	}
	return nil
}

// ValidatePassword recomputes the argon2 hash for passwordEquivalent
// and compares it to the stored hash in constant time.
func (a *AuthDB) ValidatePassword(ctx context.Context, org, username, passwordEquivalent string) (bool, error) {
	salt, err := a.GetUserSalt(ctx, org, username)
	if err != nil {
		return false, err
	}
	if salt == nil {
		return false, nil
	}
	hash, err := a.GetUserHash(ctx, org, username)
	if err != nil {
		return false, err
	}
	if hash == nil {
		return false, nil
	}
	return credential.VerifyPassword("argon2", passwordEquivalent, *salt, *hash, credential.DefaultParams())
}

// GetOrgSetting returns org's value for setting, and whether it exists
// at all.
func (a *AuthDB) GetOrgSetting(ctx context.Context, org, setting string) (string, bool, error) {
	session, err := a.session()
	if err != nil {
		return "", false, err
	}
	var value string
	err = session.Query(`SELECT value FROM orgsettings WHERE org = ? AND setting = ?`, org, setting).WithContext(ctx).Scan(&value)
	if errors.Is(err, gocql.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: getting org setting %q for %q: %v", apperr.ErrStoreUnavailable, setting, org, err)
	}
	return value, true, nil
}

// SetOrgSetting sets org's value for setting.
func (a *AuthDB) SetOrgSetting(ctx context.Context, org, setting, value string, opts WriteOptions) error {
	session, err := a.session()
	if err != nil {
		return err
	}
	q := session.Query(`INSERT INTO orgsettings (org, setting, value) VALUES (?, ?, ?)`, org, setting, value).
		WithContext(ctx).Consistency(opts.Consistency)
	if err := q.Exec(); err != nil {
		return fmt.Errorf("%w: setting org setting %q for %q: %v", apperr.ErrStoreUnavailable, setting, org, err)
	}
	return nil
}

// GetGlobalSetting returns the global value for setting, and whether
// it exists at all.
func (a *AuthDB) GetGlobalSetting(ctx context.Context, setting string) (string, bool, error) {
	session, err := a.session()
	if err != nil {
		return "", false, err
	}
	var value string
	err = session.Query(`SELECT value FROM globalsettings WHERE setting = ?`, setting).WithContext(ctx).Scan(&value)
	if errors.Is(err, gocql.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: getting global setting %q: %v", apperr.ErrStoreUnavailable, setting, err)
	}
	return value, true, nil
}

// SetGlobalSetting sets the global value for setting.
func (a *AuthDB) SetGlobalSetting(ctx context.Context, setting, value string, opts WriteOptions) error {
	session, err := a.session()
	if err != nil {
		return err
	}
	q := session.Query(`INSERT INTO globalsettings (setting, value) VALUES (?, ?)`, setting, value).
		WithContext(ctx).Consistency(opts.Consistency)
	if err := q.Exec(); err != nil {
		return fmt.Errorf("%w: setting global setting %q: %v", apperr.ErrStoreUnavailable, setting, err)
	}
	return nil
}

// CreatePasswordReset creates the (single) pending password reset for
// username@org and returns its resetid.
func (a *AuthDB) CreatePasswordReset(ctx context.Context, org, username string) (uuid.UUID, error) {
	session, err := a.session()
	if err != nil {
		return uuid.Nil, err
	}
	resetID := uuid.New()
	cqlResetID, err := toCQLUUID(resetID)
	if err != nil {
		return uuid.Nil, err
	}
	q := session.Query(
		`INSERT INTO passwordresets (org, username, requestdate, resetid) VALUES (?, ?, ?, ?)`,
		org, username, time.Now(), cqlResetID,
	).WithContext(ctx).Consistency(QuorumWrite.Consistency)
	if err := q.Exec(); err != nil {
		return uuid.Nil, fmt.Errorf("%w: creating password reset for %q@%q: %v", apperr.ErrStoreUnavailable, username, org, err)
	}
	return resetID, nil
}

// ValidatePasswordReset reports whether resetID matches username@org's
// pending reset and the request was made within the last 7 days.
func (a *AuthDB) ValidatePasswordReset(ctx context.Context, org, username, resetID string) (bool, error) {
	session, err := a.session()
	if err != nil {
		return false, err
	}
	var requestDate time.Time
	var storedReset gocql.UUID
	err = session.Query(
		`SELECT requestdate, resetid FROM passwordresets WHERE org = ? AND username = ?`,
		org, username,
	).WithContext(ctx).Scan(&requestDate, &storedReset)
	if errors.Is(err, gocql.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: reading password reset for %q@%q: %v", apperr.ErrStoreUnavailable, username, org, err)
	}
	if requestDate.Add(7 * 24 * time.Hour).Before(time.Now()) {
		return false, nil
	}
	return storedReset.String() == resetID, nil
}

// DeletePasswordReset removes username@org's pending reset, if any.
func (a *AuthDB) DeletePasswordReset(ctx context.Context, org, username string) error {
	session, err := a.session()
	if err != nil {
		return err
	}
	q := session.Query(`DELETE FROM passwordresets WHERE org = ? AND username = ?`, org, username).
		WithContext(ctx).Consistency(QuorumWrite.Consistency)
	if err := q.Exec(); err != nil {
		return fmt.Errorf("%w: deleting password reset for %q@%q: %v", apperr.ErrStoreUnavailable, username, org, err)
	}
	return nil
}

// CreateUserSession opens a new session for username@org.
func (a *AuthDB) CreateUserSession(ctx context.Context, org, username string) (uuid.UUID, error) {
	session, err := a.session()
	if err != nil {
		return uuid.Nil, err
	}
	sessionID := uuid.New()
	cqlSessionID, err := toCQLUUID(sessionID)
	if err != nil {
		return uuid.Nil, err
	}
	now := time.Now()
	q := session.Query(
		`INSERT INTO sessions (org, username, sessionid, startdate, lastupdate) VALUES (?, ?, ?, ?, ?)`,
		org, username, cqlSessionID, now, now,
	).WithContext(ctx).Consistency(DefaultWrite.Consistency)
	if err := q.Exec(); err != nil {
		return uuid.Nil, fmt.Errorf("%w: creating session for %q@%q: %v", apperr.ErrStoreUnavailable, username, org, err)
	}
	return sessionID, nil
}

// CreateUserSessionKey mints a new, opaque, single-use-revocable
// session key bound to sessionID, valid for ttl.
func (a *AuthDB) CreateUserSessionKey(ctx context.Context, org, username string, sessionID uuid.UUID, ttl time.Duration) (string, error) {
	session, err := a.session()
	if err != nil {
		return "", err
	}
	key, err := credential.GenerateSessionKey()
	if err != nil {
		return "", err
	}
	cqlSessionID, err := toCQLUUID(sessionID)
	if err != nil {
		return "", err
	}
	q := session.Query(
		`INSERT INTO sessionkeys (key, org, username, sessionid, expiry) VALUES (?, ?, ?, ?, ?)`,
		key, org, username, cqlSessionID, time.Now().Add(ttl),
	).WithContext(ctx).Consistency(DefaultWrite.Consistency)
	if err := q.Exec(); err != nil {
		return "", fmt.Errorf("%w: creating session key for %q@%q: %v", apperr.ErrStoreUnavailable, username, org, err)
	}
	return key, nil
}

// ValidateSessionKey reports whether key is a live, unexpired session
// key, and if so, which user@org it belongs to.
func (a *AuthDB) ValidateSessionKey(ctx context.Context, key string) (valid bool, username, org string, err error) {
	session, serr := a.session()
	if serr != nil {
		return false, "", "", serr
	}
	var expiry time.Time
	err = session.Query(`SELECT org, username, expiry FROM sessionkeys WHERE key = ?`, key).
		WithContext(ctx).Scan(&org, &username, &expiry)
	if errors.Is(err, gocql.ErrNotFound) {
		return false, "", "", nil
	}
	if err != nil {
		return false, "", "", fmt.Errorf("%w: reading session key: %v", apperr.ErrStoreUnavailable, err)
	}
	if time.Now().After(expiry) {
		return false, "", "", nil
	}
	return true, username, org, nil
}

// RevokeSessionKey deletes key, making it unusable immediately: the
// "single-use-revocable" half of a session key's lifecycle.
func (a *AuthDB) RevokeSessionKey(ctx context.Context, key string) error {
	session, err := a.session()
	if err != nil {
		return err
	}
	q := session.Query(`DELETE FROM sessionkeys WHERE key = ?`, key).WithContext(ctx).Consistency(DefaultWrite.Consistency)
	if err := q.Exec(); err != nil {
		return fmt.Errorf("%w: revoking session key: %v", apperr.ErrStoreUnavailable, err)
	}
	return nil
}

// GetUserSessions lists every session open for username@org.
func (a *AuthDB) GetUserSessions(ctx context.Context, org, username string) ([]models.Session, error) {
	session, err := a.session()
	if err != nil {
		return nil, err
	}
	iter := session.Query(
		`SELECT sessionid, startdate, lastupdate FROM sessions WHERE org = ? AND username = ?`,
		org, username,
	).WithContext(ctx).Iter()

	var result []models.Session
	var cqlID gocql.UUID
	var start, last time.Time
	for iter.Scan(&cqlID, &start, &last) {
		id, err := uuid.Parse(cqlID.String())
		if err != nil {
			continue
		}
		result = append(result, models.Session{Org: org, Username: username, SessionID: id, StartDate: start, LastUpdate: last})
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("%w: listing sessions for %q@%q: %v", apperr.ErrStoreUnavailable, username, org, err)
	}
	return result, nil
}

// GetUserSession fetches one session by id, returning
// apperr.ErrNotFound if it doesn't belong to username@org.
func (a *AuthDB) GetUserSession(ctx context.Context, org, username string, sessionID uuid.UUID) (*models.Session, error) {
	session, err := a.session()
	if err != nil {
		return nil, err
	}
	cqlSessionID, err := toCQLUUID(sessionID)
	if err != nil {
		return nil, err
	}
	s := &models.Session{Org: org, Username: username, SessionID: sessionID}
	err = session.Query(
		`SELECT startdate, lastupdate FROM sessions WHERE org = ? AND username = ? AND sessionid = ?`,
		org, username, cqlSessionID,
	).WithContext(ctx).Scan(&s.StartDate, &s.LastUpdate)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: getting session %s for %q@%q: %v", apperr.ErrStoreUnavailable, sessionID, username, org, err)
	}
	return s, nil
}
