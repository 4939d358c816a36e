package config

const (
	defaultDataDir            = "~/.local/share/filingsync/filings"
	defaultLogDir             = "~/.local/share/filingsync/logs"
	defaultRegistryFile       = "~/.config/filingsync/entities.toml"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultWorkers            = 4
	defaultPublicationLagDays = 0
	defaultFetchTimeout       = 300
	defaultMinArtifactBytes   = 1
	defaultEarliestYear       = 2010
)

var defaultArtifactExtensions = []string{".zip", ".xbrl", ".xml"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:      defaultDataDir,
			LogDir:       defaultLogDir,
			RegistryFile: defaultRegistryFile,
		},
		Sync: Sync{
			Workers:            defaultWorkers,
			PublicationLagDays: defaultPublicationLagDays,
			FetchTimeout:       defaultFetchTimeout,
		},
		Periods: Periods{
			MinArtifactBytes:   defaultMinArtifactBytes,
			ArtifactExtensions: append([]string(nil), defaultArtifactExtensions...),
			EarliestYear:       defaultEarliestYear,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
