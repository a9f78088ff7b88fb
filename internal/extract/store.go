package extract

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/procudo/contract-cli/internal/atomicio"
	"github.com/procudo/contract-cli/internal/model"
)

// Store persists one ClientExtraction JSON per client under a directory.
// Writes are atomic so a crashed run never leaves a torn record.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "extract: create store dir %s", dir)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(clientID string) string {
	return filepath.Join(s.dir, sanitizeFilename(clientID)+".json")
}

// Exists reports whether a record for the client is already persisted.
func (s *Store) Exists(clientID string) bool {
	_, err := os.Stat(s.path(clientID))
	return err == nil
}

// Save writes the client's record, replacing any previous one.
func (s *Store) Save(ce *model.ClientExtraction) error {
	ce.SchemaVersion = model.SchemaVersion
	return atomicio.WriteJSON(s.path(ce.ClientID), ce)
}

// Load reads one client's record.
func (s *Store) Load(clientID string) (*model.ClientExtraction, error) {
	var ce model.ClientExtraction
	if err := atomicio.ReadJSON(s.path(clientID), &ce); err != nil {
		return nil, err
	}
	if ce.SchemaVersion != model.SchemaVersion {
		return nil, eris.Errorf("extract: %s has schema version %d, want %d",
			s.path(clientID), ce.SchemaVersion, model.SchemaVersion)
	}
	return &ce, nil
}

// LoadAll reads every persisted record, sorted by client id.
func (s *Store) LoadAll() ([]*model.ClientExtraction, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, eris.Wrapf(err, "extract: read store dir %s", s.dir)
	}

	var out []*model.ClientExtraction
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		var ce model.ClientExtraction
		if err := atomicio.ReadJSON(filepath.Join(s.dir, e.Name()), &ce); err != nil {
			return nil, err
		}
		out = append(out, &ce)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClientID < out[j].ClientID })
	return out, nil
}

// sanitizeFilename makes a client id safe as a filename. Client folder names
// occasionally contain path separators after manual renames.
func sanitizeFilename(name string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", ":", "_")
	return r.Replace(name)
}
