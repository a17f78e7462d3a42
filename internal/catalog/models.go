// SPDX-License-Identifier: Apache-2.0

package catalog

// ContentType discriminates the four supported package formats.
type ContentType string

const (
	RPM  ContentType = "rpm"
	DEB  ContentType = "deb"
	Helm ContentType = "helm"
	APK  ContentType = "apk"
)

// FileCategory discriminates RepositoryFile payloads.
type FileCategory string

const (
	CategoryMetadata  FileCategory = "metadata"
	CategorySignature FileCategory = "signature"
	CategoryKickstart FileCategory = "kickstart"
)

// Mode controls how a Repository is published.
type Mode string

const (
	ModeMirror   Mode = "mirror"
	ModeFiltered Mode = "filtered"
	ModeHosted   Mode = "hosted"
)

// SyncStatus is the lifecycle state of a SyncHistory row.
type SyncStatus string

const (
	SyncRunning SyncStatus = "running"
	SyncSuccess SyncStatus = "success"
	SyncFailed  SyncStatus = "failed"
)

// ContentItem is a single downloaded package/chart/apk payload. Created
// once when the sync pipeline first stores the file in the pool; never
// mutated; deleted only by explicit integrity GC once its reference count
// reaches zero.
type ContentItem struct {
	ID              string      `db:"id"`
	ContentType     ContentType `db:"content_type"`
	Name            string      `db:"name"`
	Version         string      `db:"version"`
	SHA256          string      `db:"sha256"`
	SizeBytes       int64       `db:"size_bytes"`
	Filename        string      `db:"filename"`
	PoolPath        string      `db:"pool_path"`
	ContentMetadata string      `db:"content_metadata"` // JSON, tagged union per ContentType
}

// RepositoryFile is a non-package payload: upstream metadata or installer
// media. original_path must be preserved bit-for-bit for mirror republish.
type RepositoryFile struct {
	ID           string       `db:"id"`
	FileCategory FileCategory `db:"file_category"`
	FileType     string       `db:"file_type"`
	SHA256       string       `db:"sha256"`
	SizeBytes    int64        `db:"size_bytes"`
	PoolPath     string       `db:"pool_path"`
	OriginalPath string       `db:"original_path"`
	FileMetadata string       `db:"file_metadata"` // JSON
}

// Repository is a configured logical upstream.
type Repository struct {
	ID         string      `db:"id"`
	Name       string      `db:"name"`
	Type       ContentType `db:"type"`
	Feed       string      `db:"feed"`
	Enabled    bool        `db:"enabled"`
	Mode       Mode        `db:"mode"`
	LastSyncAt *int64      `db:"last_sync_at"`
}

// Snapshot is an immutable point-in-time set of ContentItems and
// RepositoryFiles belonging to a Repository.
type Snapshot struct {
	ID              string `db:"id"`
	RepositoryID    string `db:"repository_id"`
	Name            string `db:"name"`
	Description     string `db:"description"`
	PackageCount    int    `db:"package_count"`
	TotalSizeBytes  int64  `db:"total_size_bytes"`
	IsPublished     bool   `db:"is_published"`
	PublishedPath   string `db:"published_path"`
	CreatedAt       int64  `db:"created_at"`
}

// View is a named ordered list of repositories of identical type.
type View struct {
	ID   string      `db:"id"`
	Name string      `db:"name"`
	Type ContentType `db:"type"`
}

// ViewSnapshot records the set of per-repository Snapshot ids that make up
// a named, point-in-time capture of a View.
type ViewSnapshot struct {
	ID          string `db:"id"`
	ViewID      string `db:"view_id"`
	Name        string `db:"name"`
	SnapshotIDs string `db:"snapshot_ids"` // JSON array of Snapshot.ID
	CreatedAt   int64  `db:"created_at"`
}

// SyncHistory is a per-run outcome for a Repository.
type SyncHistory struct {
	ID              string     `db:"id"`
	RepositoryID    string     `db:"repository_id"`
	StartedAt       int64      `db:"started_at"`
	CompletedAt     *int64     `db:"completed_at"`
	Status          SyncStatus `db:"status"`
	PackagesAdded   int        `db:"packages_added"`
	PackagesRemoved int        `db:"packages_removed"`
	PackagesUpdated int        `db:"packages_updated"`
	BytesDownloaded int64      `db:"bytes_downloaded"`
	ErrorMessage    string     `db:"error_message"`
}
