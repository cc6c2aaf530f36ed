package source

import (
	"io"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memFS(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for path, content := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0644))
	}
	return fs
}

func TestFindDumpFiles(t *testing.T) {
	fs := memFS(t, map[string]string{
		"/dumps/b.txt":          "b",
		"/dumps/a.TXT":          "a",
		"/dumps/notes.md":       "skip",
		"/dumps/.hidden.txt":    "skip",
		"/dumps/sub/c.dump":     "c",
		"/dumps/.git/d.txt":     "skip",
		"/dumps/sub/deep/e.txt": "e",
	})

	tests := []struct {
		name      string
		recursive bool
		exts      []string
		want      []string
	}{
		{
			name: "top level only",
			exts: []string{".txt", ".dump"},
			want: []string{"/dumps/a.TXT", "/dumps/b.txt"},
		},
		{
			name:      "recursive",
			recursive: true,
			exts:      []string{".txt", ".dump"},
			want:      []string{"/dumps/a.TXT", "/dumps/b.txt", "/dumps/sub/c.dump", "/dumps/sub/deep/e.txt"},
		},
		{
			name: "any extension",
			want: []string{"/dumps/a.TXT", "/dumps/b.txt", "/dumps/notes.md"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindDumpFiles(fs, "/dumps", tt.recursive, tt.exts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindDumpFilesSingleFile(t *testing.T) {
	fs := memFS(t, map[string]string{"/x/test.txt": "x"})

	got, err := FindDumpFiles(fs, "/x/test.txt", false, []string{".log"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/x/test.txt"}, got)

	_, err = FindDumpFiles(fs, "/missing", false, nil)
	assert.Error(t, err)
}

func TestReadDump(t *testing.T) {
	fs := memFS(t, map[string]string{"/dumps/pixel7.txt": "hello"})

	d, err := ReadDump(fs, "/dumps/pixel7.txt")
	require.NoError(t, err)
	assert.Equal(t, "pixel7", d.Name())
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", d.Hash)

	data, err := io.ReadAll(d.Reader())
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	_, err = ReadDump(fs, "/dumps/absent.txt")
	assert.Error(t, err)
}
