package logging_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zuccha/dnd-portal-sub000/logging"
)

func TestConsoleLevel(t *testing.T) {
	var buf bytes.Buffer
	log := logging.New(logging.Options{Console: &buf})
	log.Debug("hidden")
	log.Info("shown")
	require.NoError(t, log.Sync())
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	log = logging.New(logging.Options{Console: &buf, Debug: true, Production: true})
	log.Debug("verbose")
	assert.Contains(t, buf.String(), `"message":"verbose"`)
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "print.log")
	var buf bytes.Buffer
	log := logging.New(logging.Options{Console: &buf, FilePath: path})
	log.Info("tiled")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"tiled"`)
	assert.Contains(t, string(data), `"level":"INFO"`)
}
