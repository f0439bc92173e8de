// Package store owns the process-wide connection to Cassandra: one
// cluster handle, a session per keyspace, and a prepared-statement
// cache, all shared across the rest of the service.
package store

import (
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/apache/cassandra-gocql-driver/v2"

	"github.com/cassauth/authservicesapi/internal/apperr"
	"github.com/cassauth/authservicesapi/internal/config"
)

// PreparedStatement is a cache entry for a CQL statement prepared
// against a particular keyspace. gocql handles the actual wire-level
// preparation per session; this cache exists so callers can share one
// canonical statement text per (keyspace, statement) pair instead of
// re-building query strings ad hoc.
type PreparedStatement struct {
	Keyspace string
	Text     string
}

// Gateway is the Store Gateway: the single owner of the gocql cluster
// handle and all per-keyspace sessions.
type Gateway struct {
	mu       sync.Mutex
	cluster  *gocql.ClusterConfig
	sessions map[string]*gocql.Session
	stmts    map[string]*PreparedStatement
}

// NewGateway builds a Gateway from Cassandra connection settings. It
// does not dial; the first call to Session for a given keyspace does.
func NewGateway(cfg config.CassandraConfig) *Gateway {
	hosts := make([]string, len(cfg.Nodes))
	for i, node := range cfg.Nodes {
		if cfg.Port != "" && !strings.Contains(node, ":") {
			hosts[i] = net.JoinHostPort(node, cfg.Port)
		} else {
			hosts[i] = node
		}
	}

	cluster := gocql.NewCluster(hosts...)
	cluster.Timeout = 10 * time.Second
	cluster.ConnectTimeout = 10 * time.Second
	cluster.Consistency = gocql.LocalQuorum

	return &Gateway{
		cluster:  cluster,
		sessions: make(map[string]*gocql.Session),
		stmts:    make(map[string]*PreparedStatement),
	}
}

// Session returns the shared session bound to keyspace, dialing and
// caching it on first use. An empty keyspace yields a keyspace-less
// session, used for keyspace creation and other cluster-wide DDL.
func (g *Gateway) Session(keyspace string) (*gocql.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if session, ok := g.sessions[keyspace]; ok {
		return session, nil
	}

	clusterCopy := *g.cluster
	clusterCopy.Keyspace = keyspace
	session, err := clusterCopy.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("%w: connecting to keyspace %q: %v", apperr.ErrStoreUnavailable, keyspace, err)
	}

	g.sessions[keyspace] = session
	return session, nil
}

// Prepare returns the cached PreparedStatement for (keyspace, stmt),
// creating it on first use. The cache key is the keyspace and the
// statement text together; gocql already prepares/caches statements per
// session, and this
// layer exists to give callers one canonical statement value to pass
// around instead of repeating query literals.
func (g *Gateway) Prepare(stmt, keyspace string) *PreparedStatement {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := keyspace + "\x00" + stmt
	if p, ok := g.stmts[key]; ok {
		return p
	}

	p := &PreparedStatement{Keyspace: keyspace, Text: stmt}
	g.stmts[key] = p
	return p
}

// Close tears down every open session. Safe to call once at shutdown.
func (g *Gateway) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for ks, session := range g.sessions {
		session.Close()
		delete(g.sessions, ks)
	}
}
