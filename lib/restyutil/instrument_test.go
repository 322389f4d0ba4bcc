package restyutil

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

type memoryOutput map[string]string

func (m memoryOutput) Write(id string, contents string) {
	m[id] = contents
}

func TestInstrumentClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Test", "1")
		w.Write([]byte("<html>hello</html>"))
	}))
	defer srv.Close()

	out := memoryOutput{}
	client := resty.New()
	InstrumentClient(client, out)

	_, err := client.R().SetHeader("Accept", "text/html").Get(srv.URL + "/about")
	require.NoError(t, err)
	require.Len(t, out, 1)

	for id, msg := range out {
		require.True(t, strings.HasPrefix(id, "0001-127.0.0.1_"), id)
		require.Contains(t, msg, "GET "+srv.URL+"/about")
		require.Contains(t, msg, "Accept: text/html")
		require.Contains(t, msg, "X-Test: 1")
		require.Contains(t, msg, "<html>hello</html>")
	}
}

func TestInstrumentClientNilOutput(t *testing.T) {
	client := resty.New()
	InstrumentClient(client, nil)
}

func TestFilesystemOutput(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dumps")
	require.NoError(t, os.MkdirAll(dir, 0777))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stale.txt"), []byte("old"), 0600))

	out, err := NewFilesystemOutput(dir)
	require.NoError(t, err)
	out.Write("0001-example", "contents")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	contents, err := os.ReadFile(filepath.Join(dir, "0001-example.txt"))
	require.NoError(t, err)
	require.Equal(t, "contents", string(contents))
}
