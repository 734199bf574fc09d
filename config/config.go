// server/config/config.go
package config

import (
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type MongoConfig struct {
	URI    string `mapstructure:"uri"`
	DBName string `mapstructure:"dbName"`
}

type JWTConfig struct {
	Secret     string `mapstructure:"secret"`
	Expiration string `mapstructure:"expiration"`
}

type S3Config struct {
	Bucket           string `mapstructure:"bucket"`
	Region           string `mapstructure:"region"`
	AccessKeyID      string `mapstructure:"accessKeyID"`
	SecretAccessKey  string `mapstructure:"secretAccessKey"`
	CloudFrontDomain string `mapstructure:"cloudFrontDomain"`
}

// ClassifierConfig holds the connection info for the external
// contamination scoring service.
type ClassifierConfig struct {
	BaseURL string `mapstructure:"baseURL"`
	APIKey  string `mapstructure:"apiKey"`
}

// NotifierConfig routes contamination alerts to a dispatch webhook.
// Recipients maps a waste type (e.g. "plastic") to the responsible driver
// contact; DefaultRecipient covers unmapped types.
type NotifierConfig struct {
	WebhookURL       string            `mapstructure:"webhookURL"`
	Recipients       map[string]string `mapstructure:"recipients"`
	DefaultRecipient string            `mapstructure:"defaultRecipient"`
}

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Mongo      MongoConfig      `mapstructure:"mongo"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	S3         S3Config         `mapstructure:"s3"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Notifier   NotifierConfig   `mapstructure:"notifier"`
}

// LoadConfig reads config.yaml from path and overlays environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()

	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("mongo.uri", "MONGO_URI")
	viper.BindEnv("mongo.dbName", "MONGO_DBNAME")
	viper.BindEnv("jwt.secret", "JWT_SECRET")
	viper.BindEnv("jwt.expiration", "JWT_EXPIRATION")
	viper.BindEnv("s3.bucket", "S3_BUCKET")
	viper.BindEnv("s3.region", "S3_REGION")
	viper.BindEnv("s3.accessKeyID", "S3_ACCESS_KEY_ID")
	viper.BindEnv("s3.secretAccessKey", "S3_SECRET_ACCESS_KEY")
	viper.BindEnv("s3.cloudFrontDomain", "S3_CLOUDFRONT_DOMAIN")
	viper.BindEnv("classifier.baseURL", "CONTAMINATION_API_URL")
	viper.BindEnv("classifier.apiKey", "CONTAMINATION_API_KEY")
	viper.BindEnv("notifier.webhookURL", "ALERT_WEBHOOK_URL")
	viper.BindEnv("notifier.defaultRecipient", "DEFAULT_DRIVER_CONTACT")

	// A missing config.yaml is fine, env vars alone can carry the config.
	err = viper.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return
		}
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	return
}
