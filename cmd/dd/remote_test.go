package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRemotesConfigSaveLoad(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	in := RemotesConfig{
		Active: "paris",
		Remotes: map[string]Remote{
			"paris": {URL: "https://deals.example.fr", Token: "tok_abc", NATSURL: "nats://bus:4222"},
			"local": {URL: "http://localhost:8080", Description: "dev"},
		},
	}
	if err := saveRemotesConfig(in); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := loadRemotesConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Active != "paris" {
		t.Errorf("Active = %q, want %q", got.Active, "paris")
	}
	paris := got.Remotes["paris"]
	if paris.URL != "https://deals.example.fr" || paris.Token != "tok_abc" || paris.NATSURL != "nats://bus:4222" {
		t.Errorf("paris remote = %+v", paris)
	}
	if got.Remotes["local"].Description != "dev" {
		t.Errorf("local description = %q", got.Remotes["local"].Description)
	}
	if names := got.Names(); len(names) != 2 || names[0] != "local" || names[1] != "paris" {
		t.Errorf("Names() = %v, want [local paris]", names)
	}
}

func TestLoadRemotesConfig_NoFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := loadRemotesConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Active != "" || len(cfg.Remotes) != 0 {
		t.Errorf("expected empty config, got %+v", cfg)
	}
	if cfg.Remotes == nil {
		t.Error("Remotes map must not be nil")
	}
}

func TestSaveRemotesConfig_Permissions(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if err := saveRemotesConfig(RemotesConfig{Remotes: map[string]Remote{}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	path, _ := remoteConfigPath()
	check := func(p string, want os.FileMode) {
		t.Helper()
		info, err := os.Stat(p)
		if err != nil {
			t.Fatalf("stat %s: %v", p, err)
		}
		if got := info.Mode().Perm(); got != want {
			t.Errorf("%s permissions = %04o, want %04o", p, got, want)
		}
	}
	check(path, 0o600)
	check(filepath.Dir(path), 0o700)
}

func TestRemoteLifecycle(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	mustRun := func(fn func() error) {
		t.Helper()
		if err := fn(); err != nil {
			t.Fatal(err)
		}
	}
	var buf bytes.Buffer
	for _, c := range []interface{ SetOut(w io.Writer) }{remoteAddCmd, remoteUseCmd, remoteListCmd, remoteRemoveCmd} {
		c.SetOut(&buf)
	}

	mustRun(func() error { return remoteAddCmd.RunE(remoteAddCmd, []string{"local", "http://localhost:8080"}) })
	cfg, _ := loadRemotesConfig()
	if cfg.Active != "local" {
		t.Fatalf("first remote should become active, got %q", cfg.Active)
	}

	mustRun(func() error { return remoteAddCmd.RunE(remoteAddCmd, []string{"paris", "https://deals.example.fr"}) })
	mustRun(func() error { return remoteUseCmd.RunE(remoteUseCmd, []string{"paris"}) })
	cfg, _ = loadRemotesConfig()
	if cfg.Active != "paris" {
		t.Fatalf("Active = %q, want %q", cfg.Active, "paris")
	}

	buf.Reset()
	mustRun(func() error { return remoteListCmd.RunE(remoteListCmd, nil) })
	if !strings.Contains(buf.String(), "* paris") {
		t.Errorf("list missing active marker; got:\n%s", buf.String())
	}
	if strings.Index(buf.String(), "local") > strings.Index(buf.String(), "paris") {
		t.Errorf("list not sorted; got:\n%s", buf.String())
	}

	mustRun(func() error { return remoteRemoveCmd.RunE(remoteRemoveCmd, []string{"paris"}) })
	cfg, _ = loadRemotesConfig()
	if _, ok := cfg.Remotes["paris"]; ok {
		t.Error("remote 'paris' should be gone")
	}
	if cfg.Active != "" {
		t.Errorf("Active should be cleared, got %q", cfg.Active)
	}

	mustRun(func() error { return remoteUseCmd.RunE(remoteUseCmd, nil) })
}

func TestRemoteTokenMasked(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if err := remoteAddCmd.Flags().Set("token", "tok_verylongsecret"); err != nil {
		t.Fatalf("set token flag: %v", err)
	}
	t.Cleanup(func() { _ = remoteAddCmd.Flags().Set("token", "") })

	var buf bytes.Buffer
	remoteAddCmd.SetOut(&buf)
	if err := remoteAddCmd.RunE(remoteAddCmd, []string{"paris", "https://deals.example.fr"}); err != nil {
		t.Fatal(err)
	}

	buf.Reset()
	remoteListCmd.SetOut(&buf)
	if err := remoteListCmd.RunE(remoteListCmd, nil); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "tok_verylongsecret") {
		t.Error("full token must not appear in list output")
	}
	if !strings.Contains(buf.String(), "tok_very...") {
		t.Errorf("expected truncated token in list; got:\n%s", buf.String())
	}
}

func TestRemoteErrorCases(t *testing.T) {
	tests := []struct {
		name string
		fn   func() error
	}{
		{"add bad url", func() error { return remoteAddCmd.RunE(remoteAddCmd, []string{"x", "not a url"}) }},
		{"use unknown", func() error { return remoteUseCmd.RunE(remoteUseCmd, []string{"ghost"}) }},
		{"remove unknown", func() error { return remoteRemoveCmd.RunE(remoteRemoveCmd, []string{"ghost"}) }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("HOME", t.TempDir())
			if err := tc.fn(); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}
