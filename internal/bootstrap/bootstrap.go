// Package bootstrap is the Bootstrap Orchestrator: it takes a bare
// Cassandra cluster to a keyspace with a current schema and at least
// one usable organization, exactly once per keyspace lifetime no
// matter how many nodes run it concurrently.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/apache/cassandra-gocql-driver/v2"

	"github.com/cassauth/authservicesapi/internal/apperr"
	"github.com/cassauth/authservicesapi/internal/authdb"
	"github.com/cassauth/authservicesapi/internal/credential"
	"github.com/cassauth/authservicesapi/internal/migrate"
	"github.com/cassauth/authservicesapi/internal/store"
)

// Options configures Setup/CreateDefaultOrg.
type Options struct {
	Keyspace          string
	ReplicationClass  string
	ReplicationFactor int

	DefaultOrgName    string
	DefaultAdminUser  string
	DefaultAdminPass  string
	DefaultAdminEmail string
}

// Setup creates the keyspace and coordination tables if absent, brings
// the schema current via coord, then ensures a default organization
// and admin user exist.
func Setup(ctx context.Context, gw *store.Gateway, coord *migrate.Coordinator, authDB *authdb.AuthDB, opts Options) error {
	if err := createKeyspace(gw, opts); err != nil {
		return err
	}

	session, err := gw.Session(opts.Keyspace)
	if err != nil {
		return err
	}
	if err := ensureCoordinationTables(session); err != nil {
		return err
	}

	// Give the keyspace/table creation a moment to propagate before any
	// node starts racing to read them back.
	time.Sleep(1 * time.Second)

	if err := coord.RequestMigration(ctx, opts.Keyspace); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrMigrationFailed, err)
	}

	return CreateDefaultOrg(ctx, authDB, opts)
}

func createKeyspace(gw *store.Gateway, opts Options) error {
	session, err := gw.Session("")
	if err != nil {
		return err
	}
	stmt := fmt.Sprintf(
		`CREATE KEYSPACE IF NOT EXISTS %s WITH replication = {'class': '%s', 'replication_factor': %d}`,
		opts.Keyspace, opts.ReplicationClass, opts.ReplicationFactor,
	)
	if err := session.Query(stmt).Consistency(gocql.Quorum).Exec(); err != nil {
		return fmt.Errorf("%w: creating keyspace %q: %v", apperr.ErrStoreUnavailable, opts.Keyspace, err)
	}
	return nil
}

func ensureCoordinationTables(session *gocql.Session) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS schema_migrations (
			scriptname text,
			time timestamp,
			run boolean,
			failed boolean,
			error text,
			content text,
			PRIMARY KEY (scriptname, time)
		)`,
		`CREATE TABLE IF NOT EXISTS schema_migration_requests (
			reqid uuid PRIMARY KEY,
			reqtime timestamp,
			inprogress boolean,
			failed boolean,
			lastupdate timestamp
		)`,
	}
	for _, stmt := range stmts {
		if err := session.Query(stmt).Consistency(gocql.Quorum).Exec(); err != nil {
			return fmt.Errorf("%w: creating coordination tables: %v", apperr.ErrStoreUnavailable, err)
		}
	}
	return nil
}

// CreateDefaultOrg ensures a default organization, recorded as the
// "defaultorg" global setting, exists with an admin user. Safe to call
// repeatedly; each step no-ops once its precondition is satisfied.
func CreateDefaultOrg(ctx context.Context, a *authdb.AuthDB, opts Options) error {
	defaultOrg, ok, err := a.GetGlobalSetting(ctx, "defaultorg")
	if err != nil {
		return err
	}
	if !ok {
		log.Printf("bootstrap: no default org configured, defining %q", opts.DefaultOrgName)
		if err := a.SetGlobalSetting(ctx, "defaultorg", opts.DefaultOrgName, authdb.QuorumWrite); err != nil {
			return err
		}
		defaultOrg = opts.DefaultOrgName
	}

	if _, err := a.GetOrg(ctx, defaultOrg); errors.Is(err, apperr.ErrNotFound) {
		log.Printf("bootstrap: default org %q does not exist, creating", defaultOrg)
		if err := a.CreateOrg(ctx, defaultOrg, nil, authdb.QuorumWrite); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	_, hasAdmins, err := a.GetOrgSetting(ctx, defaultOrg, "admins")
	if err != nil {
		return err
	}
	if hasAdmins {
		return nil
	}

	admin := fmt.Sprintf("%s@%s", opts.DefaultAdminUser, defaultOrg)
	log.Printf("bootstrap: default org %q has no admin, creating %q", defaultOrg, admin)
	if err := a.SetOrgSetting(ctx, defaultOrg, "admins", admin, authdb.DefaultWrite); err != nil {
		return err
	}

	exists, err := a.UserExists(ctx, defaultOrg, opts.DefaultAdminUser)
	if err != nil {
		return err
	}
	if !exists {
		if err := a.CreateUser(ctx, defaultOrg, opts.DefaultAdminUser, opts.DefaultAdminEmail, nil, authdb.QuorumWrite); err != nil {
			return err
		}

		salt, err := credential.GenerateSalt()
		if err != nil {
			return err
		}
		hash, err := credential.HashPassword("argon2", opts.DefaultAdminPass, salt, credential.DefaultParams())
		if err != nil {
			return err
		}
		if err := a.SetPassword(ctx, defaultOrg, opts.DefaultAdminUser, hash, salt); err != nil {
			return err
		}
	}
	return nil
}
