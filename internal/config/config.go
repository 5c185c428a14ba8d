package config

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode string `mapstructure:"mode"`

	TCPPort  int    `mapstructure:"tcp_port"`
	UDPPort  int    `mapstructure:"udp_port"`
	HTTPAddr string `mapstructure:"http_addr"`

	// Clients without a registered UDP endpoint receive stroke fan-out on
	// this port at their TCP source address.
	ClientDrawPort int `mapstructure:"client_draw_port"`

	MaxConns        int `mapstructure:"max_conns"`
	MaxFrameBytes   int `mapstructure:"max_frame_bytes"`
	RecvBufferBytes int `mapstructure:"recv_buffer_bytes"`
	SendQueueLen    int `mapstructure:"send_queue_len"`

	MaxRooms     int `mapstructure:"max_rooms"`
	RoomCapacity int `mapstructure:"room_capacity"`
	MaxStrokes   int `mapstructure:"max_strokes"`

	RoundSeconds     int           `mapstructure:"round_seconds"`
	CountdownSeconds int           `mapstructure:"countdown_seconds"`
	ReconnectWindow  time.Duration `mapstructure:"reconnect_window"`
	SnapshotCap      int           `mapstructure:"snapshot_cap"`
	LatencyTolerance time.Duration `mapstructure:"latency_tolerance"`

	WordList  string `mapstructure:"word_list"`
	StatsFile string `mapstructure:"stats_file"`
	AuditLog  string `mapstructure:"audit_log"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("tcp_port", 9090)
	v.SetDefault("udp_port", 9091)
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("client_draw_port", 9092)
	v.SetDefault("max_conns", 100)
	v.SetDefault("max_frame_bytes", 4096)
	v.SetDefault("recv_buffer_bytes", 4096)
	v.SetDefault("send_queue_len", 64)
	v.SetDefault("max_rooms", 100)
	v.SetDefault("room_capacity", 5)
	v.SetDefault("max_strokes", 10000)
	v.SetDefault("round_seconds", 90)
	v.SetDefault("countdown_seconds", 15)
	v.SetDefault("reconnect_window", "5m")
	v.SetDefault("snapshot_cap", 100)
	v.SetDefault("latency_tolerance", "50ms")
	v.SetDefault("word_list", "assets/wordlist.txt")
	v.SetDefault("stats_file", "player_stats.txt")
	v.SetDefault("audit_log", "audit.log")

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// Default returns the configuration with every knob at its default value.
// Tests build on this instead of reading files.
func Default() *Config {
	return &Config{
		Mode:             "release",
		TCPPort:          9090,
		UDPPort:          9091,
		HTTPAddr:         ":8080",
		ClientDrawPort:   9092,
		MaxConns:         100,
		MaxFrameBytes:    4096,
		RecvBufferBytes:  4096,
		SendQueueLen:     64,
		MaxRooms:         100,
		RoomCapacity:     5,
		MaxStrokes:       10000,
		RoundSeconds:     90,
		CountdownSeconds: 15,
		ReconnectWindow:  5 * time.Minute,
		SnapshotCap:      100,
		LatencyTolerance: 50 * time.Millisecond,
		WordList:         "assets/wordlist.txt",
		StatsFile:        "player_stats.txt",
		AuditLog:         "audit.log",
	}
}
