package config

import (
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Game     GameConfig     `mapstructure:"game"`
}

type ServerConfig struct {
	HTTPAddress    string `mapstructure:"http_address"`
	RPCAddress     string `mapstructure:"rpc_address"`
	MetricsAddress string `mapstructure:"metrics_address"`
}

type DatabaseConfig struct {
	// Driver selects the persistence backend: "gorm" or "postgres"
	// (database/sql). Empty disables archiving entirely.
	Driver   string         `mapstructure:"driver"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

type GameConfig struct {
	// DiscussionSeconds > 0 opens voting automatically when the day
	// discussion countdown expires; 0 leaves it to the host.
	DiscussionSeconds int `mapstructure:"discussion_seconds"`
	// PostVoteSeconds is the pause between a voting result and the next
	// night phase.
	PostVoteSeconds int `mapstructure:"post_vote_seconds"`
	MinPlayers      int `mapstructure:"min_players"`
	RoomCodeLength  int `mapstructure:"room_code_length"`
}

func LoadConfig(path string) (config *Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("server.http_address", ":8080")
	viper.SetDefault("server.rpc_address", ":8081")
	viper.SetDefault("server.metrics_address", ":9090")
	viper.SetDefault("game.post_vote_seconds", 5)
	viper.SetDefault("game.min_players", 3)
	viper.SetDefault("game.room_code_length", 6)

	viper.AutomaticEnv()

	if err = viper.ReadInConfig(); err != nil {
		// a missing config file is fine, the defaults stand
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return
		}
		err = nil
	}

	err = viper.Unmarshal(&config)
	return
}
