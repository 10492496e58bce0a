package domain

import (
	"fmt"

	"github.com/bft-labs/sessionguard/pkg/readiness"
)

// Session is the signed-in session on this device, as stored on disk.
type Session struct {
	Homeserver  string `json:"homeserver"`
	UserID      string `json:"user_id"`
	DeviceID    string `json:"device_id"`
	AccessToken string `json:"access_token"`

	// IsLastDevice is maintained by the key backup client: true when no
	// other verified device or backup holds the keys.
	IsLastDevice bool `json:"is_last_device"`

	// BackupUploadState is the progress of the key backup upload.
	BackupUploadState readiness.BackupUploadState `json:"backup_upload_state"`
}

// Validate checks the fields needed to talk to the homeserver.
func (s Session) Validate() error {
	switch {
	case s.Homeserver == "":
		return fmt.Errorf("%w: homeserver is required", ErrInvalidSession)
	case s.AccessToken == "":
		return fmt.Errorf("%w: access_token is required", ErrInvalidSession)
	case s.DeviceID == "":
		return fmt.Errorf("%w: device_id is required", ErrInvalidSession)
	}
	return nil
}
