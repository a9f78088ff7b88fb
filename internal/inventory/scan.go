// Package inventory scans the client contract tree, classifies and
// deduplicates documents, and builds the per-client document chain. The
// source tree is never mutated; the only output is the inventory document.
package inventory

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/procudo/contract-cli/internal/atomicio"
	"github.com/procudo/contract-cli/internal/hr"
	"github.com/procudo/contract-cli/internal/model"
)

// Scan walks the source root and builds a full inventory. One immediate
// subfolder is one client; the folder name is the stable client identifier.
// Unreadable and zero-byte files are recorded, never raised.
func Scan(root string) (*model.Inventory, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, eris.Wrapf(err, "inventory: read source root %s", root)
	}

	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e.Name())
		}
	}
	sort.Slice(dirs, func(i, j int) bool {
		return hr.NFC(strings.ToLower(dirs[i])) < hr.NFC(strings.ToLower(dirs[j]))
	})

	inv := &model.Inventory{
		SchemaVersion: model.SchemaVersion,
		ScannedAt:     time.Now(),
		SourceRoot:    root,
	}

	for _, dir := range dirs {
		client := scanClient(root, dir)
		inv.Clients = append(inv.Clients, *client)
	}

	zap.L().Info("inventory: scan complete",
		zap.String("root", root),
		zap.Int("clients", len(inv.Clients)),
	)
	return inv, nil
}

func scanClient(root, folder string) *model.ClientEntry {
	client := &model.ClientEntry{
		ClientID:   hr.NFC(folder),
		FolderName: folder,
		Status:     model.ClientOK,
	}

	files := scanFolder(filepath.Join(root, folder), root)
	files = dedupExact(files)
	files = dedupFuzzy(files, fuzzyDedupThreshold)
	client.Files = files

	selected := 0
	terminated := false
	for _, f := range files {
		if f.Status == model.FileSelected {
			selected++
			if f.DocType == model.DocTypeTermination {
				terminated = true
			}
		}
		if f.Status == model.FileSelected && f.DocType == model.DocTypeUnclassified {
			client.Flags = append(client.Flags, "unclassified_file:"+f.Filename)
		}
	}

	chain := buildChain(files)
	if chain.MainContract != "" || len(chain.Annexes) > 0 {
		client.Chain = chain
	}

	switch {
	case len(files) == 0:
		client.Status = model.ClientEmpty
	case terminated:
		client.Status = model.ClientTerminated
		client.Flags = append(client.Flags, "has_termination")
	case chain.MainContract == "":
		client.Status = model.ClientNoContract
	case len(client.Flags) > 0:
		client.Status = model.ClientFlagged
	}

	return client
}

// scanFolder recursively enumerates a client folder. Stat failures and empty
// files become entries with a recorded status.
func scanFolder(folder, root string) []model.FileEntry {
	var out []model.FileEntry

	_ = filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			zap.L().Warn("inventory: walk error", zap.String("path", path), zap.Error(err))
			return nil
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if skipFiles[strings.ToLower(name)] || strings.HasPrefix(name, "._") {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		ext := strings.ToLower(filepath.Ext(name))

		entry := model.FileEntry{
			Filename:        name,
			RelativePath:    rel,
			Extension:       ext,
			DocType:         Classify(name, ext),
			AmendmentNumber: AmendmentNumber(name),
		}

		info, statErr := d.Info()
		switch {
		case statErr != nil:
			entry.Status = model.FileUnreadable
			entry.Flags = append(entry.Flags, "stat_failed")
		case info.Size() == 0:
			entry.Status = model.FileEmpty
		case !validExtensions[ext]:
			entry.Status = model.FileIrrelevant
		default:
			entry.SizeBytes = info.Size()
			mt := info.ModTime()
			entry.ModifiedAt = &mt
			entry.Status = model.FileSelected
		}

		out = append(out, entry)
		return nil
	})

	sort.Slice(out, func(i, j int) bool { return out[i].RelativePath < out[j].RelativePath })
	return out
}

// Save writes the inventory atomically.
func Save(inv *model.Inventory, path string) error {
	return atomicio.WriteJSON(path, inv)
}

// Load reads an inventory document, rejecting unknown schema versions.
func Load(path string) (*model.Inventory, error) {
	var inv model.Inventory
	if err := atomicio.ReadJSON(path, &inv); err != nil {
		return nil, err
	}
	if inv.SchemaVersion != model.SchemaVersion {
		return nil, eris.Errorf("inventory: %s has schema version %d, want %d",
			path, inv.SchemaVersion, model.SchemaVersion)
	}
	return &inv, nil
}
