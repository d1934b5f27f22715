// Package config provides Viper-based configuration loading for the dungeon server.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds top-level server settings.
type ServerConfig struct {
	// Mode selects profile storage: "standalone" keeps profiles in memory,
	// "persistent" stores them in PostgreSQL.
	Mode string `mapstructure:"mode"`
	// Type is the server type identifier reported by the status service.
	Type string `mapstructure:"type"`
}

// Persistent reports whether profiles are stored in PostgreSQL.
func (s ServerConfig) Persistent() bool { return s.Mode == "persistent" }

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// SimulationConfig holds the tick loop and balance settings.
type SimulationConfig struct {
	// TickInterval is the fixed simulation step.
	TickInterval time.Duration `mapstructure:"tick_interval"`
	// ImmunityWindow is the player's post-hit immunity.
	ImmunityWindow time.Duration `mapstructure:"immunity_window"`
	// BonusXPMultiplier scales experience while the daily bonus is active.
	BonusXPMultiplier float64 `mapstructure:"bonus_xp_multiplier"`
	// BonusXPCooldown is how long the bonus stays off after a run ends.
	BonusXPCooldown time.Duration `mapstructure:"bonus_xp_cooldown"`
	// EnemyTag is the capability rooms query to find their enemies.
	EnemyTag string `mapstructure:"enemy_tag"`
	// Seed seeds the random source; 0 seeds from the clock.
	Seed uint64 `mapstructure:"seed"`
	// ProfileID is the profile the session loads; empty starts a fresh profile.
	ProfileID string `mapstructure:"profile_id"`
}

// ContentConfig locates the content files loaded at startup.
type ContentConfig struct {
	RoomsDir   string `mapstructure:"rooms_dir"`
	EnemiesDir string `mapstructure:"enemies_dir"`
	EffectsDir string `mapstructure:"effects_dir"`
	AIDir      string `mapstructure:"ai_dir"`
	ScriptsDir string `mapstructure:"scripts_dir"`
	// BiometricsFile is an optional YAML file of health records; empty disables
	// biometric modifiers.
	BiometricsFile string `mapstructure:"biometrics_file"`
}

// GameServerConfig holds game server gRPC settings.
type GameServerConfig struct {
	// GRPCHost is the bind address for the status service.
	GRPCHost string `mapstructure:"grpc_host"`
	// GRPCPort is the TCP port for the status service.
	GRPCPort int `mapstructure:"grpc_port"`
}

// Addr returns the "host:port" gRPC address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (g GameServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", g.GRPCHost, g.GRPCPort)
}

// Config is the top-level application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	Content    ContentConfig    `mapstructure:"content"`
	GameServer GameServerConfig `mapstructure:"gameserver"`
}

// violations collects every configuration problem found by Validate.
type violations []string

func (v *violations) add(format string, args ...any) {
	*v = append(*v, fmt.Sprintf(format, args...))
}

func (v *violations) check(ok bool, format string, args ...any) {
	if !ok {
		v.add(format, args...)
	}
}

func (v violations) err() error {
	if len(v) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(v, "; "))
}

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("configuration validation failed")

func oneOf(s string, allowed ...string) bool {
	return slices.Contains(allowed, s)
}

func validPort(p int) bool { return p >= 1 && p <= 65535 }

// Validate reports every violated setting at once. The database section is
// only checked in persistent mode.
func (c Config) Validate() error {
	var v violations
	c.Server.validate(&v)
	if c.Server.Persistent() {
		c.Database.validate(&v)
	}
	c.Logging.validate(&v)
	c.Simulation.validate(&v)
	c.Content.validate(&v)
	c.GameServer.validate(&v)
	return v.err()
}

func (s ServerConfig) validate(v *violations) {
	v.check(oneOf(s.Mode, "standalone", "persistent"),
		"server.mode must be one of [standalone, persistent], got %q", s.Mode)
	v.check(s.Type != "", "server.type must not be empty")
}

func (d DatabaseConfig) validate(v *violations) {
	v.check(d.Host != "", "database.host must not be empty")
	v.check(validPort(d.Port), "database.port must be 1-65535, got %d", d.Port)
	v.check(d.User != "", "database.user must not be empty")
	v.check(d.Name != "", "database.name must not be empty")
	v.check(oneOf(d.SSLMode, "disable", "require", "verify-ca", "verify-full"),
		"database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode)
	v.check(d.MaxConns >= 1, "database.max_conns must be >= 1, got %d", d.MaxConns)
	v.check(d.MinConns >= 0, "database.min_conns must be >= 0, got %d", d.MinConns)
	v.check(d.MinConns <= d.MaxConns, "database.min_conns must not exceed database.max_conns")
}

func (l LoggingConfig) validate(v *violations) {
	v.check(oneOf(l.Level, "debug", "info", "warn", "error"),
		"logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	v.check(oneOf(l.Format, "json", "console"),
		"logging.format must be one of [json, console], got %q", l.Format)
}

func (s SimulationConfig) validate(v *violations) {
	v.check(s.TickInterval > 0, "simulation.tick_interval must be > 0, got %s", s.TickInterval)
	v.check(s.ImmunityWindow >= 0, "simulation.immunity_window must not be negative")
	v.check(s.BonusXPMultiplier >= 1, "simulation.bonus_xp_multiplier must be >= 1, got %g", s.BonusXPMultiplier)
	v.check(s.BonusXPCooldown >= 0, "simulation.bonus_xp_cooldown must not be negative")
	v.check(s.EnemyTag != "", "simulation.enemy_tag must not be empty")
}

func (c ContentConfig) validate(v *violations) {
	v.check(c.RoomsDir != "", "content.rooms_dir must not be empty")
	v.check(c.EnemiesDir != "", "content.enemies_dir must not be empty")
}

func (g GameServerConfig) validate(v *violations) {
	v.check(g.GRPCHost != "", "gameserver.grpc_host must not be empty")
	v.check(validPort(g.GRPCPort), "gameserver.grpc_port must be 1-65535, got %d", g.GRPCPort)
}

// Load reads the YAML file at path over the defaults, applies DUNGEON_*
// environment overrides and validates the result.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v, err := readFile(path)
	if err != nil {
		return Config{}, err
	}
	return LoadFromViper(v)
}

// LoadDatabase reads only the database section of the file at path, for tools
// that need nothing else.
func LoadDatabase(path string) (DatabaseConfig, error) {
	v, err := readFile(path)
	if err != nil {
		return DatabaseConfig{}, err
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return DatabaseConfig{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	var errs violations
	cfg.Database.validate(&errs)
	return cfg.Database, errs.err()
}

// LoadFromViper unmarshals and validates v.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// NewViper returns a Viper instance holding every default and the DUNGEON_
// environment bindings.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("DUNGEON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func readFile(path string) (*viper.Viper, error) {
	v := NewViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.mode", "standalone")
	v.SetDefault("server.type", "dungeon")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "dungeon")
	v.SetDefault("database.password", "dungeon")
	v.SetDefault("database.name", "dungeon")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("simulation.tick_interval", "50ms")
	v.SetDefault("simulation.immunity_window", "1s")
	v.SetDefault("simulation.bonus_xp_multiplier", 1.5)
	v.SetDefault("simulation.bonus_xp_cooldown", "24h")
	v.SetDefault("simulation.enemy_tag", "Fighter")
	v.SetDefault("simulation.seed", 0)

	v.SetDefault("content.rooms_dir", "content/dungeons")
	v.SetDefault("content.enemies_dir", "content/enemies")
	v.SetDefault("content.effects_dir", "content/effects")
	v.SetDefault("content.ai_dir", "content/ai")
	v.SetDefault("content.scripts_dir", "content/scripts")

	v.SetDefault("gameserver.grpc_host", "127.0.0.1")
	v.SetDefault("gameserver.grpc_port", 50051)
}
