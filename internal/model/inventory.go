package model

import (
	"time"
)

// SchemaVersion is stamped into every persisted document. Loaders reject
// documents with a different version instead of guessing at field meanings.
const SchemaVersion = 1

// DocType classifies a file by its filename.
type DocType string

const (
	DocTypeContract     DocType = "contract"
	DocTypeAnnex        DocType = "annex"
	DocTypeAttachment   DocType = "attachment"
	DocTypePriceList    DocType = "price_list"
	DocTypeOffer        DocType = "offer"
	DocTypeTermination  DocType = "termination"
	DocTypeUnclassified DocType = "unclassified"
)

// FileStatus records how the classifier disposed of a file.
type FileStatus string

const (
	FileSelected         FileStatus = "selected"
	FileDuplicateSkipped FileStatus = "duplicate_skipped"
	FileIrrelevant       FileStatus = "irrelevant"
	FileEmpty            FileStatus = "empty"
	FileUnreadable       FileStatus = "unreadable"
)

// ClientStatus is the overall disposition of a client folder.
type ClientStatus string

const (
	ClientOK         ClientStatus = "ok"
	ClientEmpty      ClientStatus = "empty"
	ClientNoContract ClientStatus = "no_contract"
	ClientTerminated ClientStatus = "terminated"
	ClientFlagged    ClientStatus = "flagged"
)

// FileEntry is a single file found under a client folder. Immutable once
// scanned.
type FileEntry struct {
	Filename        string     `json:"filename"`
	RelativePath    string     `json:"relative_path"`
	Extension       string     `json:"extension"`
	SizeBytes       int64      `json:"size_bytes"`
	ModifiedAt      *time.Time `json:"modified_at,omitempty"`
	DocType         DocType    `json:"doc_type"`
	Status          FileStatus `json:"status"`
	AmendmentNumber string     `json:"amendment_number,omitempty"` // e.g. "U-21-15"
	DuplicateOf     string     `json:"duplicate_of,omitempty"`
	Flags           []string   `json:"flags,omitempty"`
}

// DocumentChain orders a client's documents from the base contract to the
// newest annex. Paths are relative to the scan root.
type DocumentChain struct {
	MainContract        string   `json:"main_contract,omitempty"`
	Annexes             []string `json:"annexes,omitempty"`
	PriceLists          []string `json:"price_lists,omitempty"`
	LatestValidDocument string   `json:"latest_valid_document,omitempty"`
}

// ClientEntry is one client (one immediate subfolder of the source root).
type ClientEntry struct {
	ClientID   string         `json:"client_id"`
	FolderName string         `json:"folder_name"`
	Status     ClientStatus   `json:"status"`
	Files      []FileEntry    `json:"files"`
	Chain      *DocumentChain `json:"chain,omitempty"`
	Flags      []string       `json:"flags,omitempty"`
}

// SelectedFiles returns the files the classifier kept for processing.
func (c *ClientEntry) SelectedFiles() []FileEntry {
	var out []FileEntry
	for _, f := range c.Files {
		if f.Status == FileSelected {
			out = append(out, f)
		}
	}
	return out
}

// HasContract reports whether a main contract was recognized.
func (c *ClientEntry) HasContract() bool {
	return c.Chain != nil && c.Chain.MainContract != ""
}

// Extractable reports whether the client should enter the extraction phase.
func (c *ClientEntry) Extractable() bool {
	if c.Status != ClientOK && c.Status != ClientFlagged {
		return false
	}
	return c.Chain != nil && c.Chain.LatestValidDocument != ""
}

// Inventory is the full scan result. Owned exclusively by the classifier and
// only ever replaced whole.
type Inventory struct {
	SchemaVersion int           `json:"schema_version"`
	ScannedAt     time.Time     `json:"scanned_at"`
	SourceRoot    string        `json:"source_root"`
	Clients       []ClientEntry `json:"clients"`
}

// Client returns the entry for the given client id, or nil.
func (inv *Inventory) Client(clientID string) *ClientEntry {
	for i := range inv.Clients {
		if inv.Clients[i].ClientID == clientID {
			return &inv.Clients[i]
		}
	}
	return nil
}

// ExtractableClients returns the clients that qualify for extraction.
func (inv *Inventory) ExtractableClients() []ClientEntry {
	var out []ClientEntry
	for _, c := range inv.Clients {
		if c.Extractable() {
			out = append(out, c)
		}
	}
	return out
}
