package store

import (
	"testing"

	"github.com/cassauth/authservicesapi/internal/config"
)

func TestNewGateway_JoinsHostAndPort(t *testing.T) {
	gw := NewGateway(config.CassandraConfig{
		Nodes: []string{"10.0.0.1", "10.0.0.2:9999"},
		Port:  "9042",
	})

	want := []string{"10.0.0.1:9042", "10.0.0.2:9999"}
	if len(gw.cluster.Hosts) != len(want) {
		t.Fatalf("len(Hosts) = %d, want %d", len(gw.cluster.Hosts), len(want))
	}
	for i, h := range want {
		if gw.cluster.Hosts[i] != h {
			t.Errorf("Hosts[%d] = %q, want %q", i, gw.cluster.Hosts[i], h)
		}
	}
}

func TestGateway_PrepareCachesByKeyspaceAndText(t *testing.T) {
	gw := NewGateway(config.CassandraConfig{Nodes: []string{"127.0.0.1"}, Port: "9042"})

	a := gw.Prepare("SELECT * FROM users", "authdb")
	b := gw.Prepare("SELECT * FROM users", "authdb")
	if a != b {
		t.Error("Prepare returned distinct entries for the same (keyspace, text) pair")
	}

	c := gw.Prepare("SELECT * FROM users", "otherdb")
	if a == c {
		t.Error("Prepare did not distinguish between keyspaces")
	}

	d := gw.Prepare("SELECT * FROM orgs", "authdb")
	if a == d {
		t.Error("Prepare did not distinguish between statement texts")
	}
}
