package readiness

import (
	"fmt"
	"strings"
)

// BackupUploadState is the progress of pending key-backup uploads.
type BackupUploadState int

const (
	BackupUploadUnknown BackupUploadState = iota
	BackupUploadUploading
	BackupUploadError
	BackupUploadDone
)

func (s BackupUploadState) String() string {
	switch s {
	case BackupUploadUnknown:
		return "unknown"
	case BackupUploadUploading:
		return "uploading"
	case BackupUploadError:
		return "error"
	case BackupUploadDone:
		return "done"
	default:
		return fmt.Sprintf("BackupUploadState(%d)", int(s))
	}
}

// IsSteady reports whether nothing is left to upload.
func (s BackupUploadState) IsSteady() bool {
	return s == BackupUploadDone
}

// IsBackingUp reports whether an upload is in progress.
func (s BackupUploadState) IsBackingUp() bool {
	return s == BackupUploadUploading
}

// ParseBackupUploadState parses the lower-case names produced by String.
// An empty string parses as BackupUploadUnknown.
func ParseBackupUploadState(s string) (BackupUploadState, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unknown":
		return BackupUploadUnknown, nil
	case "uploading":
		return BackupUploadUploading, nil
	case "error":
		return BackupUploadError, nil
	case "done":
		return BackupUploadDone, nil
	default:
		return BackupUploadUnknown, fmt.Errorf("unknown backup upload state %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s BackupUploadState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *BackupUploadState) UnmarshalText(text []byte) error {
	v, err := ParseBackupUploadState(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
