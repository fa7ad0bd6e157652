package scenario

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	dir := t.TempDir()

	s, err := Open(filepath.Join(dir, "catalog.db"))
	require.NoError(t, err)

	t.Cleanup(func() { s.Close() })

	return s
}

func TestSaveAndGetRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	def := Definition{
		Name:        "two-actor-comm",
		Description: "S1 from the kernel's worked examples",
		ConfigYAML:  "hosts: [h1, h2]\n",
	}

	require.NoError(t, s.Save(ctx, def))

	got, err := s.Get(ctx, "two-actor-comm")
	require.NoError(t, err)
	require.Equal(t, def.Name, got.Name)
	require.Equal(t, def.Description, got.Description)
	require.Equal(t, def.ConfigYAML, got.ConfigYAML)
	require.NotEqual(t, "", got.ID.String())
}

func TestSaveUpsertsOnConflictingName(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, Definition{
		Name: "scn", Description: "v1", ConfigYAML: "a: 1\n",
	}))
	require.NoError(t, s.Save(ctx, Definition{
		Name: "scn", Description: "v2", ConfigYAML: "a: 2\n",
	}))

	got, err := s.Get(ctx, "scn")
	require.NoError(t, err)
	require.Equal(t, "v2", got.Description)

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestListOrdersByName(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"zebra", "alpha", "mango"} {
		require.NoError(t, s.Save(ctx, Definition{Name: name, ConfigYAML: "{}"}))
	}

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, []string{"alpha", "mango", "zebra"},
		[]string{all[0].Name, all[1].Name, all[2].Name})
}

func TestDeleteRemovesDefinition(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, Definition{Name: "gone", ConfigYAML: "{}"}))
	require.NoError(t, s.Delete(ctx, "gone"))

	_, err := s.Get(ctx, "gone")
	require.Error(t, err)
}

func TestSaveRejectsEmptyName(t *testing.T) {
	s := openTestStore(t)

	err := s.Save(context.Background(), Definition{ConfigYAML: "{}"})
	require.Error(t, err)
}
