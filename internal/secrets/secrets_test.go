// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
		want  Set
	}{
		{
			name: "reads key files and trims whitespace",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, MarkerAPIKey, "  mk_abc123  \n")
				writeFile(t, dir, "registry-token", "tok\n")
				return dir
			},
			want: Set{MarkerAPIKey: "mk_abc123", "registry-token": "tok"},
		},
		{
			name: "missing directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "does-not-exist")
			},
			want: Set{},
		},
		{
			name: "skips empty files, dotfiles, and directories",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, MarkerAPIKey, "valid")
				writeFile(t, dir, "blank", "  \n\t ")
				writeFile(t, dir, ".gitkeep", "")
				writeFile(t, dir, ".hidden", "secret")
				require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))
				return dir
			},
			want: Set{MarkerAPIKey: "valid"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.setup(t), nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadUnreadableFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root can read files without permission bits")
	}
	dir := t.TempDir()
	writeFile(t, dir, "good", "value123")
	bad := filepath.Join(dir, "bad")
	require.NoError(t, os.WriteFile(bad, []byte("secret"), 0o000))
	t.Cleanup(func() { os.Chmod(bad, 0o644) })

	got, err := Load(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, Set{"good": "value123"}, got)
}

func TestSetGet(t *testing.T) {
	s := Set{MarkerAPIKey: "stored"}
	assert.Equal(t, "stored", s.Get(MarkerAPIKey, ""))
	assert.Equal(t, "flag", s.Get(MarkerAPIKey, "flag"))
	assert.Equal(t, "", s.Get("other", ""))
	assert.Equal(t, "", Set(nil).Get(MarkerAPIKey, ""))
}

func TestSetKeys(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, Set{"c": "3", "a": "1", "b": "2"}.Keys())
	assert.Empty(t, Set{}.Keys())
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
