package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanRelPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{".", ""},
		{"/", ""},
		{"a/b", "a/b"},
		{"/a//b/", "a/b"},
		{`a\b`, "a/b"},
		{"../../etc/passwd", "etc/passwd"},
		{"a/../../b", "b"},
		{"  index.html ", "index.html"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanRelPath(tt.in))
		})
	}
}

func TestJoinWithinRoot(t *testing.T) {
	root := t.TempDir()

	p, err := JoinWithinRoot(root, "site/index.html")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "site", "index.html"), p)

	p, err = JoinWithinRoot(root, "../../etc/passwd")
	require.NoError(t, err)
	assert.True(t, Within(root, p), "cleaned path must stay under root: %s", p)

	p, err = JoinWithinRoot(root, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Clean(root), p)

	_, err = JoinWithinRoot(root, "a\x00b")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestResolveWithinRoot_Symlink(t *testing.T) {
	outside := t.TempDir()
	secret := filepath.Join(outside, "secret.txt")
	require.NoError(t, os.WriteFile(secret, []byte("nope"), 0o644))

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "ok.txt"), []byte("ok"), 0o644))
	if err := os.Symlink(secret, filepath.Join(root, "link.txt")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	_, err := ResolveWithinRoot(root, "ok.txt")
	require.NoError(t, err)

	_, err = ResolveWithinRoot(root, "link.txt")
	assert.ErrorIs(t, err, ErrPathEscape)

	_, err = ResolveWithinRoot(root, "missing.txt")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestHasHiddenSegment(t *testing.T) {
	assert.True(t, HasHiddenSegment(".project-info.json"))
	assert.True(t, HasHiddenSegment("a/.git/config"))
	assert.False(t, HasHiddenSegment("css/site.css"))
	assert.False(t, HasHiddenSegment(""))
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, ".meta.json")

	require.NoError(t, WriteFileAtomic(dst, []byte("one"), 0o644))
	require.NoError(t, WriteFileAtomic(dst, []byte("two"), 0o644))

	b, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "two", string(b))

	ents, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, ents, 1, "temp files must not be left behind")
}

func TestMoveFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.part")
	dst := filepath.Join(dir, "dst.bin")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o644))
	require.NoError(t, os.WriteFile(dst, []byte("old"), 0o644))

	require.NoError(t, MoveFile(src, dst))

	b, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(b))
	_, err = os.Stat(src)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
