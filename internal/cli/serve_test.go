package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/datatool/internal/table"
	"github.com/roach88/datatool/internal/testutil"
)

type recordingPublisher struct {
	published []*table.Table
}

func (p *recordingPublisher) Publish(tbl *table.Table) {
	p.published = append(p.published, tbl)
}

func TestSessionReload(t *testing.T) {
	path := testutil.WriteEmployeesCSV(t)
	sess := testSession(path)
	pub := &recordingPublisher{}

	require.NoError(t, sess.reload(context.Background(), pub))
	require.Len(t, pub.published, 1)
	assert.Equal(t, 8, pub.published[0].Len())

	require.NoError(t, os.Remove(path))
	err := sess.reload(context.Background(), pub)
	require.Error(t, err)
	assert.Len(t, pub.published, 1, "failed reload must not publish")
}

func TestServeCommand_Flags(t *testing.T) {
	cmd := NewRootCommand()
	serve, _, err := cmd.Find([]string{"serve"})
	require.NoError(t, err)

	for _, name := range []string{"addr", "shutdown-timeout", "rpm", "burst"} {
		assert.NotNil(t, serve.Flags().Lookup(name), name)
	}
}

func TestServeCommand_BadConfig(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "datatool.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("server: [\n"), 0o644))

	_, _, err := execute(t, "serve", "--config", cfg)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
