package config

import (
	"github.com/flowforge/prefectc/pkg/prefectc"
)

// Recognized keys for Emission. Unknown keys are ignored so config
// files can carry tool-specific sections alongside compiler settings.
const (
	KeyFlowFile            = "flow_file"
	KeyDatastore           = "datastore"
	KeyMetadata            = "metadata"
	KeyCodePackageURL      = "code_package_url"
	KeyCodePackageSHA      = "code_package_sha"
	KeyCodePackageMetadata = "code_package_metadata"
	KeyUsername            = "username"
	KeyMaxWorkers          = "max_workers"
	KeyWith                = "with"
)

// Emission derives the compiler's emission config from the loaded file,
// overlaying file values onto base. Keys absent from the file leave the
// corresponding base field untouched.
func (c Config) Emission(base prefectc.Config) prefectc.Config {
	out := base
	out.FlowFile = c.String(KeyFlowFile, base.FlowFile)
	out.DatastoreType = c.String(KeyDatastore, base.DatastoreType)
	out.MetadataType = c.String(KeyMetadata, base.MetadataType)
	out.CodePackageURL = c.String(KeyCodePackageURL, base.CodePackageURL)
	out.CodePackageSHA = c.String(KeyCodePackageSHA, base.CodePackageSHA)
	out.CodePackageMetadata = c.String(KeyCodePackageMetadata, base.CodePackageMetadata)
	out.Username = c.String(KeyUsername, base.Username)
	out.MaxWorkers = c.Int(KeyMaxWorkers, base.MaxWorkers)
	out.WithDecorators = c.StringSlice(KeyWith, base.WithDecorators)
	return out
}
