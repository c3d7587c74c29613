package config

const (
	defaultConfigPath       = "~/.config/annotcore/config.toml"
	defaultRepositoryDir    = "~/.local/share/annotcore/corpus"
	defaultLogDir           = "~/.local/share/annotcore/logs"
	defaultLogRetentionDays = 60
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultDatastoreFile    = "corpus.db"
	defaultMediaSubdir      = "media"
	defaultDiffKey          = "text"
	defaultMinMatches       = 4
	defaultMaxMismatches    = 1
	defaultYieldEvery       = 25
	defaultProgressBucket   = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			RepositoryDir: defaultRepositoryDir,
			LogDir:        defaultLogDir,
		},
		Datastore: Datastore{
			Filename: defaultDatastoreFile,
		},
		Diff: Diff{
			Key: defaultDiffKey,
		},
		Alignment: Alignment{
			MinMatches:    defaultMinMatches,
			MaxMismatches: defaultMaxMismatches,
		},
		Batch: Batch{
			YieldEvery:     defaultYieldEvery,
			ProgressBucket: defaultProgressBucket,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
