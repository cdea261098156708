package main

import (
	"os"
	"path/filepath"
	"testing"
)

// resetFlags restores global flag state after each test.
func resetFlags(t *testing.T) {
	t.Helper()
	orig := struct{ url, actor, tenant, fmt string }{flagURL, flagActor, flagTenant, flagFmt}
	t.Cleanup(func() {
		flagURL = orig.url
		flagActor = orig.actor
		flagTenant = orig.tenant
		flagFmt = orig.fmt
	})
	flagURL = defaultURL
	flagActor = ""
	flagTenant = ""
}

// isolate points HOME at a temp dir and clears the AUDITRAIL_* env.
func isolate(t *testing.T) string {
	t.Helper()
	resetFlags(t)
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, k := range []string{"AUDITRAIL_URL", "AUDITRAIL_ACTOR", "AUDITRAIL_TENANT"} {
		t.Setenv(k, "")
	}
	return home
}

func writeConfig(t *testing.T, home, content string) {
	t.Helper()
	dir := filepath.Join(home, ".auditrail")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestResolveConfigEnv(t *testing.T) {
	isolate(t)
	t.Setenv("AUDITRAIL_URL", "http://env-server:9090")
	t.Setenv("AUDITRAIL_ACTOR", "env-actor")
	t.Setenv("AUDITRAIL_TENANT", "env-tenant")

	resolveConfig()

	if flagURL != "http://env-server:9090" || flagActor != "env-actor" || flagTenant != "env-tenant" {
		t.Errorf("got url=%q actor=%q tenant=%q", flagURL, flagActor, flagTenant)
	}
}

func TestResolveConfigFlagTakesPrecedenceOverEnv(t *testing.T) {
	isolate(t)
	t.Setenv("AUDITRAIL_URL", "http://env-server:9090")
	t.Setenv("AUDITRAIL_ACTOR", "env-actor")

	flagURL = "http://explicit-flag:1234"
	flagActor = "flag-actor"
	resolveConfig()

	if flagURL != "http://explicit-flag:1234" || flagActor != "flag-actor" {
		t.Errorf("explicit flags should win; got %q %q", flagURL, flagActor)
	}
}

func TestResolveConfigFlatYAML(t *testing.T) {
	home := isolate(t)
	writeConfig(t, home, "url: http://from-file:8080\nactor: file-actor\ntenant: file-tenant\n")

	resolveConfig()

	if flagURL != "http://from-file:8080" || flagActor != "file-actor" || flagTenant != "file-tenant" {
		t.Errorf("got url=%q actor=%q tenant=%q", flagURL, flagActor, flagTenant)
	}
}

func TestResolveConfigProfileYAML(t *testing.T) {
	home := isolate(t)
	writeConfig(t, home, `
actor: base-actor
active_profile: staging
profiles:
  default:
    url: http://default:3030
  staging:
    url: http://staging:4040
    tenant: staging-tenant
`)

	resolveConfig()

	if flagURL != "http://staging:4040" {
		t.Errorf("flagURL: got %q", flagURL)
	}
	if flagTenant != "staging-tenant" {
		t.Errorf("flagTenant: got %q", flagTenant)
	}
	if flagActor != "base-actor" {
		t.Errorf("top-level actor should apply when the profile has none; got %q", flagActor)
	}
}

func TestResolveConfigDefaultProfile(t *testing.T) {
	home := isolate(t)
	writeConfig(t, home, "profiles:\n  default:\n    url: http://default-profile:5050\n")

	resolveConfig()

	if flagURL != "http://default-profile:5050" {
		t.Errorf("flagURL: got %q", flagURL)
	}
}

func TestResolveConfigMalformedFileIgnored(t *testing.T) {
	home := isolate(t)
	writeConfig(t, home, "url: [unterminated")

	resolveConfig()

	if flagURL != defaultURL {
		t.Errorf("malformed config should leave defaults; got %q", flagURL)
	}
}
