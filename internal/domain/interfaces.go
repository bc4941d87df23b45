package domain

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetDatabaseConfig() *DatabaseConfig
	GetEngineConfig() *EngineConfig
	Reload() error
	Validate() error
	IsProduction() bool
}
