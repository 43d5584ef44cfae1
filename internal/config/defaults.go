package config

const (
	defaultConfigPath        = "~/.config/pipeline/config.toml"
	localConfigName          = "pipeline.toml"
	defaultSoftware          = "linux"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultHistoryEnabled    = true
	defaultHistoryMaxEntries = 200
)

// DefaultPropertiesOrder is the canonical key order of serialized members.
var DefaultPropertiesOrder = []string{
	"super_member",
	"type",
	"name",
	"alias",
	"task",
	"parent",
	"index",
	"padding",
	"commands",
	"rules",
}

// Engine names accepted by scripts.enabled_engines.
const (
	EngineBuiltin = "builtin"
	EngineLua     = "lua"
	EngineJS      = "js"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Project: Project{
			Software:        defaultSoftware,
			PropertiesOrder: append([]string(nil), DefaultPropertiesOrder...),
		},
		Logging: Logging{
			Format:     defaultLogFormat,
			Level:      defaultLogLevel,
			ProjectLog: true,
		},
		Scripts: Scripts{
			EnabledEngines: []string{EngineBuiltin, EngineLua, EngineJS},
		},
		History: History{
			Enabled:    defaultHistoryEnabled,
			MaxEntries: defaultHistoryMaxEntries,
		},
	}
}
