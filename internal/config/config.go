package config

type Config interface {
	EnvConfig
	CorsConfig
	GoogleConfig
	AgentConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetBaseURL() string
	GetEnv() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Google
	Agent
}

func New() Config {
	return mainConfig{}
}
