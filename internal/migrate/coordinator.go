// Package migrate implements the Migration Coordinator: a
// consensus-free, best-effort, self-healing algorithm that lets
// any number of identical nodes come up concurrently against a shared
// keyspace, cooperatively elect exactly one of themselves to run the
// pending baseline/migration scripts, and have every other node wait
// for that work to finish before serving traffic.
//
// There is no real consensus here: no CAS, no Paxos. Correctness rests
// entirely on the two tables (schema_migrations, schema_migration_requests)
// being read and written at QUORUM, a settle window before the election
// is decided, and a tie-break rule deterministic enough that every node
// reading the same settled rows picks the same winner.
package migrate

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/apache/cassandra-gocql-driver/v2"
	"github.com/google/uuid"

	"github.com/cassauth/authservicesapi/internal/apperr"
	"github.com/cassauth/authservicesapi/internal/schema"
	"github.com/cassauth/authservicesapi/internal/store"
)

// migrationRequest mirrors one row of schema_migration_requests.
type migrationRequest struct {
	ReqID      gocql.UUID
	ReqTime    time.Time
	InProgress bool
	Failed     bool
	LastUpdate time.Time
}

// Coordinator runs the election/execute/wait state machine for one
// Gateway and Catalog.
type Coordinator struct {
	gw      *store.Gateway
	catalog schema.Catalog

	// Settle is how long a nominating node waits before re-reading the
	// request list to see if it won. Not cancellable by ctx: a
	// nomination that's already been written must be given a chance to
	// settle, or no node would ever safely read a stable picture.
	Settle time.Duration
	// Poll is how often a waiting node re-checks for completion or a
	// failure/staleness condition worth repairing.
	Poll time.Duration
	// Stale is the age past which a request row is treated as abandoned.
	Stale time.Duration
}

// New builds a Coordinator with the default timings.
func New(gw *store.Gateway, catalog schema.Catalog) *Coordinator {
	return &Coordinator{
		gw:      gw,
		catalog: catalog,
		Settle:  2 * time.Second,
		Poll:    500 * time.Millisecond,
		Stale:   time.Minute,
	}
}

// RequestMigration brings keyspace's schema up to date, either by
// winning the election and running it, or by waiting for whichever
// node does.
func (c *Coordinator) RequestMigration(ctx context.Context, keyspace string) error {
	session, err := c.gw.Session(keyspace)
	if err != nil {
		return err
	}
	return c.requestMigration(ctx, session, keyspace)
}

func (c *Coordinator) requestMigration(ctx context.Context, session *gocql.Session, keyspace string) error {
	live, err := c.reapStale(session)
	if err != nil {
		return err
	}

	if len(live) > 0 {
		return c.waitForCompletion(ctx, session, keyspace)
	}

	id := uuid.New()
	reqID, err := gocql.ParseUUID(id.String())
	if err != nil {
		return fmt.Errorf("%w: generating request id: %v", apperr.ErrValidation, err)
	}
	now := time.Now()

	insert := `INSERT INTO schema_migration_requests (reqid, reqtime, inprogress, failed, lastupdate) VALUES (?, ?, false, false, ?)`
	if err := session.Query(insert, reqID, now, now).Consistency(gocql.Quorum).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("%w: nominating migration request: %v", apperr.ErrStoreUnavailable, err)
	}

	time.Sleep(c.Settle)

	reqs, err := c.readRequests(session)
	if err != nil {
		return err
	}
	sortRequests(reqs)

	if len(reqs) == 0 || reqs[0].ReqID != reqID {
		_ = c.deleteRequest(session, reqID)
		return c.waitForCompletion(ctx, session, keyspace)
	}

	return c.runMigration(ctx, session, keyspace, reqID)
}

// sortRequests orders requests by (reqtime, reqid) so every node that
// reads the same settled row set computes the same winner.
func sortRequests(reqs []migrationRequest) {
	sort.Slice(reqs, func(i, j int) bool {
		if reqs[i].ReqTime.Equal(reqs[j].ReqTime) {
			return reqs[i].ReqID.String() < reqs[j].ReqID.String()
		}
		return reqs[i].ReqTime.Before(reqs[j].ReqTime)
	})
}

// isStale reports whether r should be reaped: it failed outright, it's
// an un-started nomination old enough that whoever made it is
// presumed gone, or it's an in-progress run that hasn't touched
// lastupdate recently enough to still be trusted.
func isStale(r migrationRequest, now time.Time, staleAfter time.Duration) bool {
	cutoff := now.Add(-staleAfter)
	if r.Failed {
		return true
	}
	if !r.InProgress && r.ReqTime.Before(cutoff) {
		return true
	}
	if r.InProgress && r.LastUpdate.Before(cutoff) {
		return true
	}
	return false
}

func (c *Coordinator) reapStale(session *gocql.Session) ([]migrationRequest, error) {
	reqs, err := c.readRequests(session)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	live := make([]migrationRequest, 0, len(reqs))
	for _, r := range reqs {
		if isStale(r, now, c.Stale) {
			log.Printf("migrate: reaping stale request %s", r.ReqID)
			_ = c.deleteRequest(session, r.ReqID)
			continue
		}
		live = append(live, r)
	}
	return live, nil
}

func (c *Coordinator) readRequests(session *gocql.Session) ([]migrationRequest, error) {
	iter := session.Query(`SELECT reqid, reqtime, inprogress, failed, lastupdate FROM schema_migration_requests`).
		Consistency(gocql.Quorum).Iter()

	var reqs []migrationRequest
	var r migrationRequest
	for iter.Scan(&r.ReqID, &r.ReqTime, &r.InProgress, &r.Failed, &r.LastUpdate) {
		reqs = append(reqs, r)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("%w: reading migration requests: %v", apperr.ErrStoreUnavailable, err)
	}
	return reqs, nil
}

func (c *Coordinator) deleteRequest(session *gocql.Session, reqID gocql.UUID) error {
	err := session.Query(`DELETE FROM schema_migration_requests WHERE reqid = ?`, reqID).
		Consistency(gocql.Quorum).Exec()
	if err != nil {
		return fmt.Errorf("%w: deleting migration request %s: %v", apperr.ErrStoreUnavailable, reqID, err)
	}
	return nil
}

func (c *Coordinator) touch(session *gocql.Session, reqID gocql.UUID) {
	err := session.Query(`UPDATE schema_migration_requests SET lastupdate = ? WHERE reqid = ?`, time.Now(), reqID).
		Consistency(gocql.Quorum).Exec()
	if err != nil {
		log.Printf("migrate: failed to refresh request %s: %v", reqID, err)
	}
}

func (c *Coordinator) markInProgress(session *gocql.Session, reqID gocql.UUID) error {
	err := session.Query(`UPDATE schema_migration_requests SET inprogress = true, lastupdate = ? WHERE reqid = ?`, time.Now(), reqID).
		Consistency(gocql.Quorum).Exec()
	if err != nil {
		return fmt.Errorf("%w: marking request %s in progress: %v", apperr.ErrStoreUnavailable, reqID, err)
	}
	return nil
}

func (c *Coordinator) markFailed(session *gocql.Session, reqID gocql.UUID) {
	err := session.Query(`UPDATE schema_migration_requests SET failed = true, inprogress = false, lastupdate = ? WHERE reqid = ?`, time.Now(), reqID).
		Consistency(gocql.Quorum).Exec()
	if err != nil {
		log.Printf("migrate: failed to record failure for request %s: %v", reqID, err)
	}
}

// runMigration executes every pending baseline and migration script in
// order, on the node that won the election.
func (c *Coordinator) runMigration(ctx context.Context, session *gocql.Session, keyspace string, reqID gocql.UUID) error {
	if err := c.markInProgress(session, reqID); err != nil {
		return err
	}

	for _, path := range c.catalog.Baselines() {
		if err := c.runBaseline(session, keyspace, path); err != nil {
			c.markFailed(session, reqID)
			return fmt.Errorf("%w: %v", apperr.ErrMigrationFailed, err)
		}
		c.touch(session, reqID)
	}

	for _, path := range c.catalog.Migrations() {
		if err := c.runMigrationScript(session, path); err != nil {
			c.markFailed(session, reqID)
			return fmt.Errorf("%w: %v", apperr.ErrMigrationFailed, err)
		}
		c.touch(session, reqID)
	}

	if err := c.deleteRequest(session, reqID); err != nil {
		log.Printf("migrate: schema brought current but failed to clear request %s: %v", reqID, err)
	}
	return nil
}

// runBaseline creates path's table if it doesn't already exist,
// tolerating a concurrent creator racing to the same table.
func (c *Coordinator) runBaseline(session *gocql.Session, keyspace, path string) error {
	table := schema.TableName(path)

	exists, err := tableExists(session, keyspace, table)
	if err != nil {
		return err
	}
	if exists {
		log.Printf("migrate: table %q already exists, skipping baseline", table)
		return nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading baseline %q: %w", path, err)
	}

	log.Printf("migrate: running baseline for %q", table)
	execErr := session.Query(string(content)).Consistency(gocql.Quorum).Exec()
	if execErr == nil {
		return nil
	}

	if exists, checkErr := tableExists(session, keyspace, table); checkErr == nil && exists {
		log.Printf("migrate: table %q appeared concurrently, ignoring race error: %v", table, execErr)
		return nil
	}
	return fmt.Errorf("creating table %q: %w", table, execErr)
}

func tableExists(session *gocql.Session, keyspace, table string) (bool, error) {
	var count int
	err := session.Query(
		`SELECT COUNT(*) FROM system_schema.tables WHERE keyspace_name = ? AND table_name = ?`,
		keyspace, table,
	).Consistency(gocql.Quorum).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("%w: checking existence of table %q: %v", apperr.ErrStoreUnavailable, table, err)
	}
	return count > 0, nil
}

// runMigrationScript runs path's migration exactly once, recording a
// provisional row before execution and the outcome after, so a crash
// mid-script leaves a visible failed=false,run=false trail rather than
// silence.
func (c *Coordinator) runMigrationScript(session *gocql.Session, path string) error {
	scriptname := filepath.Base(path)
	applied, err := scriptApplied(session, scriptname)
	if err != nil {
		return err
	}
	if applied {
		log.Printf("migrate: migration %q already applied", scriptname)
		return nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading migration %q: %w", path, err)
	}

	execTime := time.Now()
	insert := `INSERT INTO schema_migrations (scriptname, time, run, failed, error, content) VALUES (?, ?, false, false, '', ?)`
	if err := session.Query(insert, scriptname, execTime, string(content)).Consistency(gocql.Quorum).Exec(); err != nil {
		return fmt.Errorf("%w: recording provisional migration %q: %v", apperr.ErrStoreUnavailable, scriptname, err)
	}

	if err := session.Query(string(content)).Consistency(gocql.Quorum).Exec(); err != nil {
		failQuery := `UPDATE schema_migrations SET run = false, failed = true, error = ? WHERE scriptname = ? AND time = ?`
		if uerr := session.Query(failQuery, err.Error(), scriptname, execTime).Consistency(gocql.Quorum).Exec(); uerr != nil {
			log.Printf("migrate: failed to record failure for %q: %v", scriptname, uerr)
		}
		return fmt.Errorf("running migration %q: %w", scriptname, err)
	}

	okQuery := `UPDATE schema_migrations SET run = true, failed = false WHERE scriptname = ? AND time = ?`
	if err := session.Query(okQuery, scriptname, execTime).Consistency(gocql.Quorum).Exec(); err != nil {
		return fmt.Errorf("%w: recording migration success %q: %v", apperr.ErrStoreUnavailable, scriptname, err)
	}

	log.Printf("migrate: applied %q", scriptname)
	return nil
}

// scriptApplied reports whether scriptname's most recent recorded run
// succeeded.
func scriptApplied(session *gocql.Session, scriptname string) (bool, error) {
	iter := session.Query(`SELECT time, run, failed FROM schema_migrations WHERE scriptname = ?`, scriptname).
		Consistency(gocql.Quorum).Iter()

	var (
		found                   bool
		latest                  time.Time
		latestRun, latestFailed bool
		t                       time.Time
		run, failed             bool
	)
	for iter.Scan(&t, &run, &failed) {
		if !found || t.After(latest) {
			latest, latestRun, latestFailed, found = t, run, failed, true
		}
	}
	if err := iter.Close(); err != nil {
		return false, fmt.Errorf("%w: reading migration history for %q: %v", apperr.ErrStoreUnavailable, scriptname, err)
	}
	return found && latestRun && !latestFailed, nil
}

// waitForCompletion polls until the request table empties (the
// election settled and the winner finished) or it observes a failed or
// stale in-progress row, in which case it re-enters the election to
// repair the stuck state.
func (c *Coordinator) waitForCompletion(ctx context.Context, session *gocql.Session, keyspace string) error {
	log.Printf("migrate: waiting for schema migration on %q to complete", keyspace)

	ticker := time.NewTicker(c.Poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		reqs, err := c.readRequests(session)
		if err != nil {
			return err
		}
		if len(reqs) == 0 {
			log.Printf("migrate: schema migration on %q complete", keyspace)
			return nil
		}

		stale := time.Now().Add(-c.Stale)
		needsRepair := false
		for _, r := range reqs {
			if r.Failed || (r.InProgress && r.LastUpdate.Before(stale)) {
				needsRepair = true
				break
			}
		}
		if needsRepair {
			log.Printf("migrate: detected stuck migration on %q, re-entering election", keyspace)
			return c.requestMigration(ctx, session, keyspace)
		}
	}
}
