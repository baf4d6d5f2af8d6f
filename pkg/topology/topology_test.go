package topology

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mattsolo1/grove-forge/pkg/orchestration"
)

const sampleManifest = `
instances:
  db:
    type: Database
    capabilities: [db]
    attributes:
      port: 5432
    operations:
      create:
        implementation: db-create
        priority: required
  web:
    type: Compute
    requires: [db]
    operations:
      create:
        implementation: web-create
        priority: required
      configure:
        implementation: web-configure
        priority: optional
`

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadBuildsGraphWithRequiredDependencies(t *testing.T) {
	path := writeManifest(t, sampleManifest)
	m, err := Load(path)
	require.NoError(t, err)

	web := m.Root().FindResource("web")
	require.NotNil(t, web)
	deps := web.RequiredDependencies()
	require.Len(t, deps, 1)
	require.Equal(t, "db", deps[0].Name)
}

func TestLoadParsesOperationsAndPriority(t *testing.T) {
	path := writeManifest(t, sampleManifest)
	m, err := Load(path)
	require.NoError(t, err)

	web := m.Root().FindResource("web")
	spec, ok := web.Template.Operations["configure"]
	require.True(t, ok)
	require.Equal(t, orchestration.PriorityOptional, spec.Priority)
	require.Equal(t, "web-configure", spec.ClassName)
}

func TestLoadRejectsUnknownRequiredInstance(t *testing.T) {
	path := writeManifest(t, `
instances:
  web:
    type: Compute
    requires: [missing]
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestSaveRoundTripsAttributes(t *testing.T) {
	path := writeManifest(t, sampleManifest)
	m, err := Load(path)
	require.NoError(t, err)

	db := m.Root().FindResource("db")
	db.Attributes["port"] = orchestration.NewScalar(6543)

	require.NoError(t, m.Save(context.Background()))

	reloaded, err := Load(path)
	require.NoError(t, err)
	port := reloaded.Root().FindResource("db").Attributes["port"]
	require.Equal(t, 6543, port.Scalar)
}
