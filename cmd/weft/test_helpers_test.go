package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"weft/internal/interchange"
	"weft/internal/opentime"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
	logDir     string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("WEFT_CONFIG", "")

	logDir := filepath.Join(base, "logs")
	configPath := filepath.Join(homeDir, ".config", "weft", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	content := fmt.Sprintf("[paths]\nlog_dir = %q\n\n[logging]\nformat = \"json\"\nlevel = \"warn\"\n", logDir)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	return &cliTestEnv{baseDir: base, configPath: configPath, logDir: logDir}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// writeTestContainer saves a one-clip composition and returns its path.
func writeTestContainer(t *testing.T, dir string) string {
	t.Helper()

	rate := opentime.NewRational(24, 1)
	file := interchange.NewFile()

	source := &interchange.Mob{
		ID:   interchange.NewMobID(),
		Name: "reel-tape",
		Kind: interchange.SourceMob,
		Descriptor: &interchange.EssenceDescriptor{
			Path:       "file:///media/reel.mxf",
			SampleRate: rate,
			Length:     240,
		},
	}
	source.AddSlot(&interchange.Slot{
		ID:       1,
		Media:    interchange.PictureKind,
		EditRate: rate,
		Segment:  &interchange.Filler{Len: 240},
	})
	file.Add(source)

	master := &interchange.Mob{ID: interchange.NewMobID(), Name: "reel", Kind: interchange.MasterMob}
	master.AddSlot(&interchange.Slot{
		ID:       1,
		Media:    interchange.PictureKind,
		EditRate: rate,
		Segment:  &interchange.SourceClip{Mob: source.ID, SlotID: 1, Len: 240},
	})
	file.Add(master)

	comp := &interchange.Mob{ID: interchange.NewMobID(), Name: "edit", Kind: interchange.CompositionMob, TopLevel: true}
	seq := &interchange.Sequence{}
	seq.Append(&interchange.SourceClip{Mob: master.ID, SlotID: 1, Start: 12, Len: 48})
	comp.AddSlot(&interchange.Slot{
		ID:       1,
		Name:     "V1",
		Media:    interchange.PictureKind,
		EditRate: rate,
		Segment:  seq,
	})
	file.Add(comp)

	path := filepath.Join(dir, "edit.weft.json")
	if err := file.Save(path); err != nil {
		t.Fatalf("save container: %v", err)
	}
	return path
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
