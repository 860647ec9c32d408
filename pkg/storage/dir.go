package storage

import (
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"historydb/pkg/common"
)

const DefaultRecordFile = "record.yaml"

// DirSource reads a history laid out as one directory per record under root,
// each holding a record file, plus symlinks named by record number that point
// at record directories.
type DirSource[R any] struct {
	root       string
	recordFile string
	decode     Decoder[R]
}

var _ Store[struct{}] = (*DirSource[struct{}])(nil)

func NewDirSource[R any](root, recordFile string, decode Decoder[R]) (*DirSource[R], error) {
	if recordFile == "" {
		recordFile = DefaultRecordFile
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, errors.Wrapf(err, "create history root %s", root)
	}
	return &DirSource[R]{root: root, recordFile: recordFile, decode: decode}, nil
}

func (s *DirSource[R]) Root() string {
	return s.root
}

// ValidID reports whether name may be used as a record directory.
func ValidID(name string) bool {
	return name != "" && !strings.HasPrefix(name, ".") && !strings.ContainsAny(name, `/\`)
}

func shortcutName(number int) string {
	return strconv.Itoa(number)
}

// ListIDs returns real directories with valid names. Symlinks are never IDs.
func (s *DirSource[R]) ListIDs() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, errors.Wrapf(err, "list %s", s.root)
	}
	var ids []string
	for _, e := range entries {
		if e.Type()&fs.ModeSymlink != 0 || !e.IsDir() || !ValidID(e.Name()) {
			continue
		}
		ids = append(ids, e.Name())
	}
	return ids, nil
}

// ListShortcuts returns the numbers of symlinks whose name is an integer.
func (s *DirSource[R]) ListShortcuts() ([]int, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, errors.Wrapf(err, "list %s", s.root)
	}
	var numbers []int
	for _, e := range entries {
		if e.Type()&fs.ModeSymlink == 0 {
			continue
		}
		n, err := strconv.Atoi(e.Name())
		if err != nil || shortcutName(n) != e.Name() {
			// "+5" or "007" would be opened as "5" or "7"
			continue
		}
		numbers = append(numbers, n)
	}
	return numbers, nil
}

func (s *DirSource[R]) Retrieve(id string) (*R, error) {
	if !ValidID(id) {
		return nil, errors.Wrapf(common.ErrRetrieval, "invalid record directory %q", id)
	}
	return s.read(id, filepath.Join(s.root, id))
}

// RetrieveShortcut follows the symlink for number. The record is decoded under
// the ID of the directory the link resolves to.
func (s *DirSource[R]) RetrieveShortcut(number int) (*R, error) {
	link := filepath.Join(s.root, shortcutName(number))
	target, err := os.Readlink(link)
	if err != nil {
		return nil, errors.Wrapf(common.ErrRetrieval, "read shortcut %d: %v", number, err)
	}
	return s.read(filepath.Base(target), link)
}

func (s *DirSource[R]) read(id, dir string) (*R, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.Wrapf(common.ErrRetrieval, "stat %s: %v", dir, err)
	}
	if !info.IsDir() {
		return nil, errors.Wrapf(common.ErrRetrieval, "%s is not a directory", dir)
	}

	data, err := os.ReadFile(filepath.Join(dir, s.recordFile))
	if os.IsNotExist(err) {
		// an empty directory holds no record
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(common.ErrRetrieval, "read %s: %v", id, err)
	}
	r, err := s.decode(id, data)
	if err != nil {
		return nil, errors.Wrapf(common.ErrRetrieval, "decode %s: %v", id, err)
	}
	return r, nil
}

// Save writes the record file for id, creating its directory. number is implied
// by the body and unused here.
func (s *DirSource[R]) Save(id string, _ int, body []byte) error {
	if !ValidID(id) {
		return errors.Errorf("invalid record directory %q", id)
	}
	dir := filepath.Join(s.root, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "create %s", dir)
	}
	// write then rename so readers never see a half-written record
	tmp := filepath.Join(dir, "."+s.recordFile+".tmp")
	if err := os.WriteFile(tmp, body, 0644); err != nil {
		return errors.Wrapf(err, "write %s", tmp)
	}
	return errors.Wrapf(os.Rename(tmp, filepath.Join(dir, s.recordFile)), "save record %s", id)
}

// Link points the shortcut for number at id, replacing any earlier link.
func (s *DirSource[R]) Link(number int, id string) error {
	link := filepath.Join(s.root, shortcutName(number))
	if err := os.Remove(link); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "replace shortcut %d", number)
	}
	return errors.Wrapf(os.Symlink(id, link), "link %d", number)
}

// Delete removes the record directory. Shortcuts pointing at it are left
// dangling.
func (s *DirSource[R]) Delete(id string) error {
	if !ValidID(id) {
		return errors.Errorf("invalid record directory %q", id)
	}
	return errors.Wrapf(os.RemoveAll(filepath.Join(s.root, id)), "delete record %s", id)
}

func (s *DirSource[R]) Close() error {
	return nil
}
