package storage

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"historydb/pkg/common"
	"historydb/pkg/core"
)

type note struct {
	id     string
	number int
}

func decodeNote(id string, body []byte) (*note, error) {
	n, err := strconv.Atoi(strings.TrimSpace(string(body)))
	if err != nil {
		return nil, err
	}
	return &note{id: id, number: n}, nil
}

func body(n int) []byte {
	return []byte(strconv.Itoa(n))
}

// each backend runs the same contract checks
func backends(t *testing.T) map[string]Store[note] {
	t.Helper()
	dir, err := NewDirSource(filepath.Join(t.TempDir(), "history"), "", decodeNote)
	require.NoError(t, err)
	db, err := NewSQLiteSource(filepath.Join(t.TempDir(), "history.db"), decodeNote)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return map[string]Store[note]{"dir": dir, "sqlite": db}
}

func TestStoreContract(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Save("a", 1, body(1)))
			require.NoError(t, s.Save("b", 2, body(2)))
			require.NoError(t, s.Save("c", 3, body(3)))
			require.NoError(t, s.Link(3, "c"))

			ids, err := s.ListIDs()
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{"a", "b", "c"}, ids)

			shortcuts, err := s.ListShortcuts()
			require.NoError(t, err)
			assert.Equal(t, []int{3}, shortcuts)

			r, err := s.Retrieve("b")
			require.NoError(t, err)
			assert.Equal(t, &note{id: "b", number: 2}, r)

			r, err = s.RetrieveShortcut(3)
			require.NoError(t, err)
			assert.Equal(t, &note{id: "c", number: 3}, r)

			_, err = s.Retrieve("zzz")
			assert.ErrorIs(t, err, common.ErrRetrieval)
			_, err = s.RetrieveShortcut(9)
			assert.ErrorIs(t, err, common.ErrRetrieval)
		})
	}
}

func TestStoreReportsMalformedRecords(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Save("bad", 1, []byte("not a number")))
			_, err := s.Retrieve("bad")
			assert.ErrorIs(t, err, common.ErrRetrieval)
		})
	}
}

func TestStoreDeleteLeavesShortcutDangling(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Save("a", 1, body(1)))
			require.NoError(t, s.Link(1, "a"))
			require.NoError(t, s.Delete("a"))

			ids, err := s.ListIDs()
			require.NoError(t, err)
			assert.Empty(t, ids)

			shortcuts, err := s.ListShortcuts()
			require.NoError(t, err)
			assert.Equal(t, []int{1}, shortcuts)

			_, err = s.RetrieveShortcut(1)
			assert.ErrorIs(t, err, common.ErrRetrieval)
		})
	}
}

func TestStoreRelinkReplacesTarget(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Save("a", 1, body(1)))
			require.NoError(t, s.Save("b", 2, body(2)))
			require.NoError(t, s.Link(5, "a"))
			require.NoError(t, s.Link(5, "b"))

			r, err := s.RetrieveShortcut(5)
			require.NoError(t, err)
			assert.Equal(t, "b", r.id)
		})
	}
}

func TestDirSourceFiltersListings(t *testing.T) {
	root := t.TempDir()
	s, err := NewDirSource(root, "", decodeNote)
	require.NoError(t, err)

	require.NoError(t, s.Save("0001", 1, body(1)))
	require.NoError(t, os.Mkdir(filepath.Join(root, ".hidden"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "stray.txt"), nil, 0644))
	require.NoError(t, os.Symlink("0001", filepath.Join(root, "lastSuccessful")))
	require.NoError(t, s.Link(1, "0001"))
	require.NoError(t, s.Link(-4, "0001"))
	require.NoError(t, os.Symlink("0001", filepath.Join(root, "+5")))
	require.NoError(t, os.Symlink("0001", filepath.Join(root, "007")))

	ids, err := s.ListIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"0001"}, ids)

	shortcuts, err := s.ListShortcuts()
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{1, -4}, shortcuts)
}

func TestDirSourceEmptyDirectoryHoldsNothing(t *testing.T) {
	root := t.TempDir()
	s, err := NewDirSource(root, "run.yaml", decodeNote)
	require.NoError(t, err)
	require.NoError(t, os.Mkdir(filepath.Join(root, "empty"), 0755))

	r, err := s.Retrieve("empty")
	require.NoError(t, err)
	assert.Nil(t, r)

	_, err = s.Retrieve("../escape")
	assert.ErrorIs(t, err, common.ErrRetrieval)
}

func TestSQLiteBatchSave(t *testing.T) {
	s, err := NewSQLiteSource(filepath.Join(t.TempDir(), "h.db"), decodeNote)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.BatchSave([]Entry{
		{ID: "x1", Number: 1, Body: body(1)},
		{ID: "x2", Number: 2, Body: body(2)},
	}))
	ids, err := s.ListIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"x1", "x2"}, ids)
}

func TestSQLiteUsesWriteAheadLog(t *testing.T) {
	s, err := NewSQLiteSource(filepath.Join(t.TempDir(), "h.db"), decodeNote)
	require.NoError(t, err)
	defer s.Close()

	var mode string
	require.NoError(t, s.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestSQLiteOpenReportsFailure(t *testing.T) {
	_, err := NewSQLiteSource(filepath.Join(t.TempDir(), "missing", "h.db"), decodeNote)
	assert.Error(t, err)
}

func TestLazyIndexOverDirSource(t *testing.T) {
	root := t.TempDir()
	s, err := NewDirSource(root, "", decodeNote)
	require.NoError(t, err)
	for _, n := range []int{10, 20, 30} {
		id := "00" + strconv.Itoa(n)
		require.NoError(t, s.Save(id, n, body(n)))
		require.NoError(t, s.Link(n, id))
	}
	// a shortcut that now lies
	require.NoError(t, s.Link(25, "0030"))

	idx := core.NewLazyIndex[note](s,
		func(n *note) int { return n.number },
		func(n *note) string { return n.id })

	assert.Nil(t, idx.Get(25))
	assert.NotContains(t, idx.ShortcutsOnDisk(), 25)
	assert.Equal(t, 30, idx.Search(25, common.Asc).number)
	assert.Equal(t, 20, idx.Search(25, common.Desc).number)
	assert.Equal(t, 3, idx.Len())
}
