package scanner

import "time"

// FileRecord represents a single file discovered during scanning.
type FileRecord struct {
	Path      string    `json:"path" yaml:"path"`
	Size      int64     `json:"size" yaml:"size"`
	ModTime   time.Time `json:"mod_time" yaml:"mod_time"`
	Hash      string    `json:"hash,omitempty" yaml:"hash,omitempty"` // populated lazily during duplicate detection
	Extension string    `json:"extension" yaml:"extension"`
}

// Entry is one element of the scan stream: either a discovered file or a
// per-file error. Exactly one of Record and Err is set.
type Entry struct {
	Record *FileRecord
	Err    *ScanError
}

// Options controls which files a scan yields.
type Options struct {
	Recursive       bool
	IncludePatterns []string // glob patterns matched against the base name; empty means all files
	ExcludePatterns []string // glob patterns; a match excludes the file or directory
	MinSize         int64    // files smaller than this are skipped
	MaxSize         int64    // files larger than this are skipped; 0 disables the bound
}
