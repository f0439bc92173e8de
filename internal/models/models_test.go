package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestUser_HashAndSaltNeverSerialize(t *testing.T) {
	hash := "deadbeef"
	salt := "saltysalt"
	u := User{
		Org:        "example.net",
		Username:   "alice",
		Email:      "alice@example.net",
		CreateDate: time.Now(),
		Hash:       &hash,
		Salt:       &salt,
	}

	data, err := json.Marshal(u)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if _, present := parsed["Hash"]; present {
		t.Error("Hash field leaked into JSON")
	}
	if _, present := parsed["hash"]; present {
		t.Error("hash field leaked into JSON")
	}
	if _, present := parsed["Salt"]; present {
		t.Error("Salt field leaked into JSON")
	}
}

func TestUser_ParentUserOmittedWhenNil(t *testing.T) {
	u := User{Org: "example.net", Username: "alice"}
	data, err := json.Marshal(u)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var parsed map[string]interface{}
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if _, present := parsed["parentuser"]; present {
		t.Error("parentuser should be omitted when nil")
	}
}

func TestSessionKey_KeyNeverSerializes(t *testing.T) {
	sk := SessionKey{
		Key:       "supersecret",
		Org:       "example.net",
		Username:  "alice",
		SessionID: uuid.New(),
		Expiry:    time.Now().Add(time.Hour),
	}
	data, err := json.Marshal(sk)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var parsed map[string]interface{}
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if _, present := parsed["Key"]; present {
		t.Error("Key field leaked into JSON")
	}
}
