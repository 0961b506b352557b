package creds

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// Single positional field: username doubles as password and secret.
func TestParse_UsernameOnly(t *testing.T) {
	got := Parse([]string{"alice"}, nil)
	want := []Credential{{Username: "alice", Password: "alice", Secret: "alice"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestParse_UsernamePassword(t *testing.T) {
	got := Parse([]string{"alice:hunter2"}, nil)
	want := []Credential{{Username: "alice", Password: "hunter2", Secret: "hunter2"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestParse_FullTriple(t *testing.T) {
	got := Parse([]string{"alice:hunter2:enablesecret"}, nil)
	want := []Credential{{Username: "alice", Password: "hunter2", Secret: "enablesecret"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

// S1 — credential token with a device-type hint.
func TestParse_WithTypeHint(t *testing.T) {
	got := Parse([]string{"alice:hunter2@router_os"}, nil)
	want := []Credential{{Username: "alice", Password: "hunter2", Secret: "hunter2", DeviceTypeHint: "router_os"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

// S3 — delimiter override cue.
func TestParse_OverrideCue(t *testing.T) {
	got := Parse([]string{";$--alice;pw;enable$router_os"}, nil)
	want := []Credential{{Username: "alice", Password: "pw", Secret: "enable", DeviceTypeHint: "router_os"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestParse_EmptyTokenSkipped(t *testing.T) {
	got := Parse([]string{""}, nil)
	if len(got) != 0 {
		t.Errorf("expected empty token to be skipped, got %+v", got)
	}
}

func TestParse_FileSingleMapping(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cred.yaml")
	content := "username: alice\npassword: hunter2\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	got := Parse([]string{path}, nil)
	want := []Credential{{Username: "alice", Password: "hunter2", Secret: "hunter2"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestParse_FileListOfMappings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "creds.yaml")
	content := "- username: alice\n  password: hunter2\n  type: router_os\n- username: bob\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	got := Parse([]string{path}, nil)
	want := []Credential{
		{Username: "alice", Password: "hunter2", Secret: "hunter2", DeviceTypeHint: "router_os"},
		{Username: "bob", Password: "bob", Secret: "bob"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestParse_FileMissingUsernameSkipped(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cred.yaml")
	content := "password: hunter2\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	got := Parse([]string{path}, nil)
	if len(got) != 0 {
		t.Errorf("expected record without username to be skipped, got %+v", got)
	}
}

func TestParse_SecretDefaultsToPasswordDefaultsToUsername(t *testing.T) {
	c, err := fromMap(map[string]interface{}{"username": "alice"})
	if err != nil {
		t.Fatal(err)
	}
	if c.Password != "alice" || c.Secret != "alice" {
		t.Errorf("expected password/secret to default to username, got %+v", c)
	}
}

func TestParse_MultipleTokensPreserveOrder(t *testing.T) {
	got := Parse([]string{"bob:pw2", "alice:pw1@router_os"}, nil)
	want := []Credential{
		{Username: "bob", Password: "pw2", Secret: "pw2"},
		{Username: "alice", Password: "pw1", Secret: "pw1", DeviceTypeHint: "router_os"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}
