package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"vaultlink/internal/config"
)

func captureOutput(t *testing.T, fn func()) string {
	t.Helper()

	origOut := os.Stdout
	rOut, wOut, _ := os.Pipe()
	os.Stdout = wOut

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, rOut)
		done <- buf.String()
	}()

	fn()

	_ = wOut.Close()
	os.Stdout = origOut
	return <-done
}

func setUpVault(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "React.md"), []byte("A UI library."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "note.md"), []byte("Talking about React today."), 0o644))

	cfg := config.DefaultConfig()
	cfg.VaultRoot = root
	cfg.Store.DSN = filepath.Join(root, "vaultlink.db")
	require.NoError(t, cfg.Save(filepath.Join(root, "vaultlink.yml")))
	return root
}

func TestIndexBuildThenSuggestRoundTrips(t *testing.T) {
	logger = zap.NewNop()
	root := setUpVault(t)
	configPath = filepath.Join(root, "vaultlink.yml")
	vaultRoot = root
	strictMode = "aggressive"
	defer func() { vaultRoot, strictMode = "", "" }()

	buildOutput := captureOutput(t, func() {
		require.NoError(t, runIndexBuild(&cobra.Command{}, nil))
	})
	require.Contains(t, buildOutput, "indexed 2 entities")

	notePath := filepath.Join(root, "unlinked.md")
	require.NoError(t, os.WriteFile(notePath, []byte("React internals are interesting."), 0o644))

	suggestOutput := captureOutput(t, func() {
		require.NoError(t, runSuggest(&cobra.Command{}, []string{notePath}))
	})
	require.Contains(t, suggestOutput, "[[React]]")
}

func TestSuggestBuildsIndexItselfWhenNotPrebuilt(t *testing.T) {
	logger = zap.NewNop()
	root := setUpVault(t)
	configPath = filepath.Join(root, "vaultlink.yml")
	vaultRoot = root
	strictMode = "balanced"
	defer func() { vaultRoot, strictMode = "", "" }()

	// runSuggest always (re)builds the index itself, so calling it without a
	// prior "index build" still produces a result rather than an error.
	notePath := filepath.Join(root, "note.md")
	output := captureOutput(t, func() {
		err := runSuggest(&cobra.Command{}, []string{notePath})
		require.NoError(t, err)
	})
	require.NotEmpty(t, strings.TrimSpace(output))
}
