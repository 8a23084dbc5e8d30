package config

import "github.com/spf13/viper"

type Config struct {
	ServerPort    string  `mapstructure:"SERVER_PORT"`
	RedisAddr     string  `mapstructure:"REDIS_ADDR"`
	RedisPassword string  `mapstructure:"REDIS_PASSWORD"`
	ScoreAPIURL   string  `mapstructure:"SCORE_API_URL"`
	ScoreAPIToken string  `mapstructure:"SCORE_API_TOKEN"`
	SimStartLat   float64 `mapstructure:"SIM_START_LAT"`
	SimStartLng   float64 `mapstructure:"SIM_START_LNG"`
}

func Load() Config {
	viper.AutomaticEnv()
	viper.SetDefault("SERVER_PORT", ":8080")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("SCORE_API_URL", "http://localhost:8000/api")
	viper.SetDefault("SIM_START_LAT", 51.5074)
	viper.SetDefault("SIM_START_LNG", -0.1278)

	var cfg Config
	_ = viper.Unmarshal(&cfg)
	return cfg
}
