package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"vividly/internal/artifact"
	"vividly/internal/config"
	"vividly/internal/daemon"
	"vividly/internal/logging"
	"vividly/internal/stage"
	"vividly/internal/testsupport"
	"vividly/internal/tracker"
	"vividly/internal/workflow"
)

type stubProcessor struct {
	name   string
	mutate func(*tracker.Request)
}

func (p stubProcessor) Name() string { return p.name }

func (p stubProcessor) Execute(_ context.Context, request *tracker.Request) (stage.Result, error) {
	if p.mutate != nil {
		p.mutate(request)
	}
	return stage.Continue(), nil
}

func (p stubProcessor) HealthCheck(context.Context) stage.Health {
	return stage.Healthy(p.name)
}

type cliTestEnv struct {
	cfg        *config.Config
	store      *tracker.Store
	daemon     *daemon.Daemon
	addr       string
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	cfg.Pipeline.RetryBackoffBase = 0
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	store := testsupport.MustOpenStore(t, cfg)
	artifacts, err := artifact.Open(cfg)
	if err != nil {
		t.Fatalf("artifact.Open: %v", err)
	}
	t.Cleanup(func() { artifacts.Close() })

	stages := workflow.StageSet{
		Resolve: stubProcessor{
			name: string(tracker.StatusValidating),
			mutate: func(request *tracker.Request) {
				request.ResolvedTopic = request.TopicRef
				request.ResolvedTitle = "About " + request.TopicRef
			},
		},
		Script: stubProcessor{
			name:   string(tracker.StatusGeneratingScript),
			mutate: func(request *tracker.Request) { request.ScriptRef = "script-ref" },
		},
		Audio: stubProcessor{
			name:   string(tracker.StatusGeneratingAudio),
			mutate: func(request *tracker.Request) { request.AudioRef = "audio-ref" },
		},
		Video: stubProcessor{
			name:   string(tracker.StatusGeneratingVideo),
			mutate: func(request *tracker.Request) { request.VideoRef = "video-ref" },
		},
	}
	manager := workflow.NewManagerWithStages(cfg, store, artifacts, stages, logging.NewNop())

	d, err := daemon.New(cfg, store, manager, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(d.Stop)

	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		store:      store,
		daemon:     d,
		addr:       d.APIAddr(),
		configPath: configPath,
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\ndata_dir = %q\nblob_dir = %q\nlog_dir = %q\napi_bind = %q\n",
		cfg.Paths.DataDir,
		cfg.Paths.BlobDir,
		cfg.Paths.LogDir,
		cfg.Paths.APIBind,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--addr", env.addr, "--config", env.configPath}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func waitForStatus(t *testing.T, env *cliTestEnv, correlationID string, want tracker.Status) *tracker.Request {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		request, err := env.store.GetByCorrelationID(context.Background(), correlationID)
		if err != nil {
			t.Fatalf("GetByCorrelationID: %v", err)
		}
		if request != nil && request.Status == want {
			return request
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Fatalf("request %s never reached %s", correlationID, want)
	return nil
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
