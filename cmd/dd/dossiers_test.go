package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/alfredjeanlab/dealdesk/internal/client"
	"github.com/alfredjeanlab/dealdesk/internal/ui"
)

func TestDeleteCmd_RefusesWithoutConfirmation(t *testing.T) {
	if ui.IsInteractive() {
		t.Skip("needs a non-interactive terminal")
	}
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	prev := dealClient
	dealClient = client.NewHTTPClient(srv.URL)
	defer func() { dealClient = prev }()

	deleteCmd.SetContext(context.Background())
	err := deleteCmd.RunE(deleteCmd, []string{"dos-a"})
	if err == nil || !strings.Contains(err.Error(), "pass --yes") {
		t.Fatalf("err = %v, want confirmation refusal", err)
	}
	if n := requests.Load(); n != 0 {
		t.Errorf("server saw %d requests, want 0", n)
	}
}
