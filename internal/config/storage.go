package config

// StorageConfig controls where projects live on disk and what an upload may
// contain.
type StorageConfig struct {
	UploadRoot       string   // UPLOAD_FOLDER, one subdirectory per project
	MaxUploadBytes   int64    // MAX_CONTENT_LENGTH, request body cap
	UploadExts       []string // ALLOWED_EXTENSIONS, accepted archive file names
	ProjectFileExts  []string // ALLOWED_PROJECT_FILES, extracted and served files
	EditableFileExts []string // ALLOWED_EDITABLE_FILES, files offered in the editor
	MaxArchiveFiles  int      // ARCHIVE_MAX_FILES
	MaxArchiveBytes  int64    // ARCHIVE_MAX_BYTES, total uncompressed size
	MaxFileBytes     int64    // ARCHIVE_MAX_FILE_BYTES, per extracted file
}

var (
	defaultProjectFiles = []string{
		"html", "htm", "css", "js", "json", "txt", "md", "xml", "svg", "ico",
		"png", "jpg", "jpeg", "gif", "webp", "woff", "woff2", "ttf", "otf",
		"mp3", "mp4", "webm", "pdf", "webmanifest", "map",
	}
	defaultEditableFiles = []string{"html", "htm", "css", "js", "json", "txt", "md", "xml", "svg"}
)

func loadStorage(e *env) StorageConfig {
	return StorageConfig{
		UploadRoot:       e.must("UPLOAD_FOLDER"),
		MaxUploadBytes:   e.int64("MAX_CONTENT_LENGTH", 10<<20),
		UploadExts:       e.list("ALLOWED_EXTENSIONS", []string{"zip"}),
		ProjectFileExts:  e.list("ALLOWED_PROJECT_FILES", defaultProjectFiles),
		EditableFileExts: e.list("ALLOWED_EDITABLE_FILES", defaultEditableFiles),
		MaxArchiveFiles:  e.integer("ARCHIVE_MAX_FILES", 5000),
		MaxArchiveBytes:  e.int64("ARCHIVE_MAX_BYTES", 200<<20),
		MaxFileBytes:     e.int64("ARCHIVE_MAX_FILE_BYTES", 50<<20),
	}
}

// ArchiveStoreConfig configures optional retention of the original upload
// archives in an S3 compatible bucket. Retention is off when Bucket is empty.
type ArchiveStoreConfig struct {
	Bucket       string
	Region       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

// Enabled reports whether a bucket was configured.
func (c ArchiveStoreConfig) Enabled() bool { return c.Bucket != "" }

func loadArchiveStore(e *env) ArchiveStoreConfig {
	return ArchiveStoreConfig{
		Bucket:       e.str("S3_BUCKET", ""),
		Region:       e.str("S3_REGION", "us-east-1"),
		Endpoint:     e.str("S3_BASE_ENDPOINT", ""),
		AccessKey:    e.str("S3_ACCESS_KEY", ""),
		SecretKey:    e.str("S3_SECRET_KEY", ""),
		UsePathStyle: e.boolean("S3_PATH_STYLE", true),
	}
}

// MailConfig holds the SMTP settings used by the welcome notification worker.
type MailConfig struct {
	Host     string // SMTP_SERVER
	Port     int    // SMTP_PORT
	User     string // SMTP_USER, also the sender address
	Password string // SMTP_PASS
	FromName string // SMTP_FROM_NAME
	SiteURL  string // SITE_URL, linked from the welcome message
}

// Enabled reports whether an SMTP host was configured.
func (c MailConfig) Enabled() bool { return c.Host != "" }

func loadMail(e *env) MailConfig {
	return MailConfig{
		Host:     e.str("SMTP_SERVER", ""),
		Port:     e.integer("SMTP_PORT", 587),
		User:     e.str("SMTP_USER", ""),
		Password: e.str("SMTP_PASS", ""),
		FromName: e.str("SMTP_FROM_NAME", "NuvemHost"),
		SiteURL:  e.str("SITE_URL", "https://nuvemhost.xyz"),
	}
}
