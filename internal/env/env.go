package env

import (
	"os"
	"strconv"
)

const (
	AWSRegion        = "AWS_REGION"
	AWSID            = "AWS_ID"
	AWSSecret        = "AWS_SECRET"
	AWSToken         = "AWS_TOKEN"
	DynamoDBEndpoint = "DYNAMODB_ENDPOINT"
	UserSecretKey    = "USER_SECRET"
	AdminSecretKey   = "ADMIN_SECRET"
	AuthRedisURL     = "AUTH_REDIS_URL"
	AuthRedisPass    = "AUTH_REDIS_PASS"
	ChatRedisURL     = "CHAT_REDIS_URL"
	ChatRedisPass    = "CHAT_REDIS_PASS"
	WebUrl           = "WEB_URL"

	SMTPHost = "SMTP_HOST"
	SMTPPort = "SMTP_PORT"
	SMTPUser = "SMTP_USER"
	SMTPPass = "SMTP_PASS"
	SMTPFrom = "SMTP_FROM"

	NotifyIntervalSeconds = "NOTIFY_INTERVAL_SECONDS"

	GeoLookupEnabled = "GEO_LOOKUP_ENABLED"
	GeoAPIURL        = "GEO_API_URL"

	StorageProvider  = "STORAGE_PROVIDER"
	StorageLocalDir  = "STORAGE_LOCAL_DIR"
	StoragePublicURL = "STORAGE_PUBLIC_URL"
	S3Bucket         = "S3_BUCKET"
)

func Get(key string) string {
	return os.Getenv(key)
}

func GetOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func GetInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func GetBool(key string) bool {
	val, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return false
	}
	return val
}

func MustGet(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic("env: required environment variable not set: " + key)
	}
	return val
}
