package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/54b3r/resumeai-go/internal/store"
)

// runRoot executes the root command with an empty config file so a user's
// ~/.resumeai/config.yaml never leaks into the test.
func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfg := filepath.Join(t.TempDir(), "resumeai.yaml")
	if err := os.WriteFile(cfg, []byte("{}\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", cfg}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCmd_RegistersSubcommands(t *testing.T) {
	root := NewRootCmd()
	want := []string{"ask", "ingest", "reset", "history", "serve", "mcp", "version"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered: %v", name, err)
		}
	}
}

func TestVersionCmd(t *testing.T) {
	out, err := runRoot(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "resumeai dev") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestHistoryCmd(t *testing.T) {
	db := filepath.Join(t.TempDir(), "history.db")
	t.Setenv("RESUMEAI_HISTORY_DB", db)

	hs, err := store.Open(db)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ctx := context.Background()
	if err := hs.Append(ctx, "s1", store.RoleUser, "Who knows Go?"); err != nil {
		t.Fatal(err)
	}
	if err := hs.Append(ctx, "s1", store.RoleAssistant, "Alice [source: alice.txt]"); err != nil {
		t.Fatal(err)
	}
	if err := hs.Close(); err != nil {
		t.Fatal(err)
	}

	out, err := runRoot(t, "history", "--session", "s1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "user: Who knows Go?") || !strings.Contains(out, "assistant: Alice") {
		t.Errorf("unexpected history output:\n%s", out)
	}

	out, err = runRoot(t, "history")
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	if strings.TrimSpace(out) != "s1" {
		t.Errorf("session list: got %q", out)
	}
}

func TestIngestCmd_RequiresInput(t *testing.T) {
	if _, err := runRoot(t, "ingest", "--session", "s1"); err == nil {
		t.Error("expected error without files or --dir")
	}
	if _, err := runRoot(t, "ingest", "a.txt"); err == nil {
		t.Error("expected error without --session")
	}
}
