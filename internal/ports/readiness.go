package ports

import "github.com/bft-labs/sessionguard/pkg/readiness"

// Readiness inputs are owned by pkg/readiness; adapters implement them
// through these aliases.
type (
	LastDeviceProbe         = readiness.LastDeviceProbe
	BackupUploadStateSource = readiness.BackupUploadStateSource
	FeatureFlagSource       = readiness.FeatureFlagSource
)
