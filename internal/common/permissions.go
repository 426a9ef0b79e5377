package common

// File permission constants for files the job writes
const (
	// FilePermissionSecure is used for config files that may hold warehouse credentials
	FilePermissionSecure = 0600

	// FilePermissionNormal is used for extracts and fixtures
	FilePermissionNormal = 0644

	DirPermissionNormal = 0755
)
