package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"annotcore/internal/annotation"
	"annotcore/internal/config"
	"annotcore/internal/logging"
	"annotcore/internal/repository"
)

type cliTestEnv struct {
	baseDir    string
	repoDir    string
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv(config.RepositoryEnv, "")

	env := &cliTestEnv{
		baseDir:    base,
		repoDir:    filepath.Join(base, "corpus"),
		configPath: filepath.Join(base, "annotcore.toml"),
	}
	content := fmt.Sprintf(
		"[paths]\nrepository_dir = %q\nlog_dir = %q\n\n[logging]\nlevel = \"error\"\n",
		env.repoDir,
		filepath.Join(base, "logs"),
	)
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func mustRunCLI(t *testing.T, env *cliTestEnv, args ...string) string {
	t.Helper()
	out, stderr, err := runCLI(t, env, args...)
	if err != nil {
		t.Fatalf("%s failed: %v\nstderr: %s", strings.Join(args, " "), err, stderr)
	}
	return out
}

// withRepo opens the test corpus directly; the CLI must not hold it.
func withRepo(t *testing.T, dir string, fn func(*repository.Repository)) {
	t.Helper()
	repo, err := repository.Open(context.Background(), dir, logging.NewNop())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer repo.Close()
	fn(repo)
}

func saveTiers(t *testing.T, dir, annotationID, speakerID string, tiers ...annotation.Tier) {
	t.Helper()
	withRepo(t, dir, func(repo *repository.Repository) {
		for _, tier := range tiers {
			if err := repo.Annotations().SaveTier(context.Background(), annotationID, speakerID, tier); err != nil {
				t.Fatalf("SaveTier failed: %v", err)
			}
		}
	})
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
