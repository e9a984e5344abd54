// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package firestoretest runs the Firestore emulator for tests.
package firestoretest

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/pkg/errors"
)

const startTimeout = time.Minute

func freePort() (int, error) {
	l, err := net.ListenTCP("tcp", &net.TCPAddr{IP: net.IPv6loopback})
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

func exited(cmd *exec.Cmd) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		cmd.Wait()
		close(done)
	}()
	return done
}

func awaitPort(ctx context.Context, port int) error {
	for {
		c, err := net.DialTCP("tcp", nil, &net.TCPAddr{Port: port})
		if err == nil {
			return c.Close()
		}
		select {
		case <-time.After(300 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// NewClient starts an emulator for the duration of t and returns a client
// connected to it. The test is skipped when gcloud is not installed.
func NewClient(t *testing.T, project string) *firestore.Client {
	t.Helper()
	if _, err := exec.LookPath("gcloud"); err != nil {
		t.Skip("gcloud not installed")
	}
	port, err := freePort()
	if err != nil {
		t.Fatalf("finding a free port: %v", err)
	}
	addr := fmt.Sprintf("localhost:%d", port)
	cmd := exec.Command("gcloud", "emulators", "firestore", "start", "--host-port="+addr)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		t.Fatalf("starting firestore emulator: %v", err)
	}
	done := exited(cmd)
	t.Cleanup(func() { shutdown(t, addr, cmd, done) })
	t.Setenv("FIRESTORE_EMULATOR_HOST", addr)

	ctx, cancel := context.WithTimeout(context.Background(), startTimeout)
	defer cancel()
	ready := make(chan error, 1)
	go func() { ready <- awaitPort(ctx, port) }()
	select {
	case err := <-ready:
		if err != nil {
			t.Fatalf("waiting for firestore emulator: %v", err)
		}
	case <-done:
		t.Fatal(errors.Errorf("firestore emulator exited: %s", cmd.ProcessState))
	}
	client, err := firestore.NewClient(context.Background(), project)
	if err != nil {
		t.Fatalf("firestore.NewClient(): %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func shutdown(t *testing.T, addr string, cmd *exec.Cmd, done <-chan struct{}) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, "http://"+addr+"/shutdown", nil)
	if resp, err := http.DefaultClient.Do(req); err != nil {
		t.Logf("shutting down firestore emulator: %v", err)
	} else {
		resp.Body.Close()
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Log("firestore emulator did not exit, killing it")
		cmd.Process.Kill()
	}
}
