package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.Cassandra.AuthKeyspace != "authdb" {
		t.Errorf("AuthKeyspace = %q, want %q", cfg.Cassandra.AuthKeyspace, "authdb")
	}
	if len(cfg.Cassandra.Nodes) != 1 || cfg.Cassandra.Nodes[0] != "127.0.0.1" {
		t.Errorf("Nodes = %v, want [127.0.0.1]", cfg.Cassandra.Nodes)
	}
	if cfg.DefaultOrg.Name != "example.net" {
		t.Errorf("DefaultOrg.Name = %q, want %q", cfg.DefaultOrg.Name, "example.net")
	}
}

func TestLoadFile_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "does-not-exist.conf"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	want := Defaults()
	if cfg.Cassandra.AuthKeyspace != want.Cassandra.AuthKeyspace {
		t.Errorf("AuthKeyspace = %q, want %q", cfg.Cassandra.AuthKeyspace, want.Cassandra.AuthKeyspace)
	}
}

func TestLoadFile_OverridesKnownKeysOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "authservicesapi.conf")
	content := `{
		"cassandra": {"nodes": ["10.0.0.1", "10.0.0.2"], "auth_keyspace": "custom_auth"},
		"defaultorg": {"name": "acme.example"},
		"unknownsection": {"should": "be ignored"}
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if got, want := len(cfg.Cassandra.Nodes), 2; got != want {
		t.Fatalf("len(Nodes) = %d, want %d", got, want)
	}
	if cfg.Cassandra.Nodes[0] != "10.0.0.1" || cfg.Cassandra.Nodes[1] != "10.0.0.2" {
		t.Errorf("Nodes = %v, want [10.0.0.1 10.0.0.2]", cfg.Cassandra.Nodes)
	}
	if cfg.Cassandra.AuthKeyspace != "custom_auth" {
		t.Errorf("AuthKeyspace = %q, want %q", cfg.Cassandra.AuthKeyspace, "custom_auth")
	}
	// cluster wasn't overridden, default survives
	if cfg.Cassandra.Cluster != "AuthServices" {
		t.Errorf("Cluster = %q, want default %q", cfg.Cassandra.Cluster, "AuthServices")
	}
	if cfg.DefaultOrg.Name != "acme.example" {
		t.Errorf("DefaultOrg.Name = %q, want %q", cfg.DefaultOrg.Name, "acme.example")
	}
	// defaultadminuser wasn't overridden, default survives
	if cfg.DefaultOrg.DefaultAdminUser != "admin" {
		t.Errorf("DefaultAdminUser = %q, want default %q", cfg.DefaultOrg.DefaultAdminUser, "admin")
	}
}

func TestMergeConfig_IgnoresUnknownKeys(t *testing.T) {
	a := map[string]interface{}{"x": "1"}
	b := map[string]interface{}{"x": "2", "y": "new"}
	merged := mergeConfig(a, b)
	if merged["x"] != "2" {
		t.Errorf("x = %v, want 2", merged["x"])
	}
	if _, present := merged["y"]; present {
		t.Errorf("unexpected key y introduced by merge: %v", merged["y"])
	}
}

func TestMergeConfig_RecursesIntoNestedMaps(t *testing.T) {
	a := map[string]interface{}{
		"cassandra": map[string]interface{}{"cluster": "A", "port": "9042"},
	}
	b := map[string]interface{}{
		"cassandra": map[string]interface{}{"port": "9999"},
	}
	merged := mergeConfig(a, b)
	nested := merged["cassandra"].(map[string]interface{})
	if nested["cluster"] != "A" {
		t.Errorf("cluster = %v, want A (untouched)", nested["cluster"])
	}
	if nested["port"] != "9999" {
		t.Errorf("port = %v, want 9999 (overridden)", nested["port"])
	}
}

func TestMergeConfig_Idempotent(t *testing.T) {
	a := map[string]interface{}{"cassandra": map[string]interface{}{"cluster": "A", "port": "9042"}}
	b := map[string]interface{}{"cassandra": map[string]interface{}{"port": "9999"}}

	once := mergeConfig(a, b)
	twice := mergeConfig(once, b)

	onceJSON := once["cassandra"].(map[string]interface{})["port"]
	twiceJSON := twice["cassandra"].(map[string]interface{})["port"]
	if onceJSON != twiceJSON {
		t.Errorf("merge not idempotent: once=%v twice=%v", onceJSON, twiceJSON)
	}
}
