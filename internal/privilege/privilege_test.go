package privilege

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRoot(t *testing.T) {
	assert.Equal(t, os.Geteuid() == 0, IsRoot())
}

func TestIsRunningUnderSudo(t *testing.T) {
	t.Setenv("SUDO_USER", "")
	assert.False(t, IsRunningUnderSudo())

	t.Setenv("SUDO_USER", "alice")
	assert.True(t, IsRunningUnderSudo())
}

func TestSudoUser(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		want    *UserIDs
		wantErr bool
	}{
		{
			name:    "not under sudo",
			env:     map[string]string{"SUDO_USER": ""},
			wantErr: true,
		},
		{
			name: "complete",
			env:  map[string]string{"SUDO_USER": "alice", "SUDO_UID": "1000", "SUDO_GID": "1001"},
			want: &UserIDs{Username: "alice", UID: 1000, GID: 1001},
		},
		{
			name:    "missing gid",
			env:     map[string]string{"SUDO_USER": "alice", "SUDO_UID": "1000", "SUDO_GID": ""},
			wantErr: true,
		},
		{
			name:    "invalid uid",
			env:     map[string]string{"SUDO_USER": "alice", "SUDO_UID": "x", "SUDO_GID": "1"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			got, err := SudoUser()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSudoUser_NotSudoSentinel(t *testing.T) {
	t.Setenv("SUDO_USER", "")
	_, err := SudoUser()
	assert.ErrorIs(t, err, ErrNotSudo)
}

func TestFixFileOwnership_NoopWithoutSudo(t *testing.T) {
	t.Setenv("SUDO_USER", "")
	path := filepath.Join(t.TempDir(), "peers.json")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	assert.NoError(t, FixFileOwnership(path, "", filepath.Join(t.TempDir(), "missing")))
}

func TestFixFileOwnership_AsRoot(t *testing.T) {
	if !IsRoot() {
		t.Skip("requires root")
	}

	t.Setenv("SUDO_USER", "nobody")
	t.Setenv("SUDO_UID", "65534")
	t.Setenv("SUDO_GID", "65534")

	dir := t.TempDir()
	path := filepath.Join(dir, "peers.json")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	require.NoError(t, FixFileOwnership(path, filepath.Join(dir, "missing")))
}
