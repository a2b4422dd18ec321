// Package errors provides structured error handling with i18n support.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Dataset errors
	CodeDatasetInvalid     Code = "DATASET_INVALID"
	CodeDatasetDuplicateID Code = "DATASET_DUPLICATE_ID"
	CodeDatasetEmpty       Code = "DATASET_EMPTY"
	CodeGameModeUnknown    Code = "GAME_MODE_UNKNOWN"
	CodeRegionUnknown      Code = "REGION_UNKNOWN"

	// Lookup errors
	CodeOracleNotFound   Code = "ORACLE_NOT_FOUND"
	CodeShortcutNotFound Code = "SHORTCUT_NOT_FOUND"

	// Shortcut script errors
	CodeShortcutScriptInvalid Code = "SHORTCUT_SCRIPT_INVALID"

	// Storage errors
	CodeStorageUnavailable Code = "STORAGE_UNAVAILABLE"
	CodeFilterInvalid      Code = "FILTER_INVALID"
)

// IsClientError reports whether the code describes bad caller input rather
// than an internal failure.
func (c Code) IsClientError() bool {
	switch c {
	case CodeGameModeUnknown,
		CodeRegionUnknown,
		CodeOracleNotFound,
		CodeShortcutNotFound,
		CodeShortcutScriptInvalid,
		CodeFilterInvalid:
		return true
	default:
		return false
	}
}
