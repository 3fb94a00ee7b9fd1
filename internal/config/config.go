package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// AppConfig содержит конфигурацию приложения
type AppConfig struct {
	ServerPort     string
	GinMode        string
	KafkaBroker    string
	KafkaTopic     string
	KafkaAlerts    string
	DatabasePath   string
	MLScorerURL    string
	TelegramToken  string
	TelegramChatID int64
	MachineClass   string
	PollIntervalMS int
	Sensor         SensorConfig
	Logging        LoggerConfig
}

// SensorConfig содержит настройки последовательного подключения к датчику
// по умолчанию. Подключение может быть переопределено через API.
type SensorConfig struct {
	Port        string
	BaudRate    int
	DataBits    int
	Parity      string
	StopBits    int
	SlaveID     int
	TimeoutMS   int
	RetryCount  int
	RetryDelay  int // базовая задержка между повторами, мс
	FailCeiling int // число подряд неудач до переподключения
	FrequencyHz float64
}

// LoggerConfig содержит настройки логгера
type LoggerConfig struct {
	Enable     bool
	LogsDir    string
	Level      string
	SavingDays int
}

// LoadConfiguration загружает конфигурацию из .env файла или переменных окружения
func LoadConfiguration() (*AppConfig, error) {
	_ = godotenv.Load()

	config := &AppConfig{
		ServerPort:     getEnv("APP_PORT", "8083"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		KafkaBroker:    getEnv("KAFKA_BROKER", "localhost:9092"),
		KafkaTopic:     getEnv("KAFKA_TOPIC", "rail_readings"),
		KafkaAlerts:    getEnv("KAFKA_ALERTS_TOPIC", "rail_alerts"),
		DatabasePath:   getEnv("DB_PATH", "./railmon.db"),
		MLScorerURL:    getEnv("ML_SCORER_URL", ""),
		TelegramToken:  getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID: int64(getEnvAsInt("TELEGRAM_CHAT_ID", 0)),
		MachineClass:   getEnv("ISO_MACHINE_CLASS", "class_II"),
		PollIntervalMS: getEnvAsInt("POLL_INTERVAL_MS", 5000),
		Sensor: SensorConfig{
			Port:        getEnv("SENSOR_PORT", "/dev/ttyUSB0"),
			BaudRate:    getEnvAsInt("SENSOR_BAUDRATE", 19200),
			DataBits:    getEnvAsInt("SENSOR_BYTESIZE", 8),
			Parity:      getEnv("SENSOR_PARITY", "N"),
			StopBits:    getEnvAsInt("SENSOR_STOPBITS", 1),
			SlaveID:     getEnvAsInt("SENSOR_SLAVE_ID", 1),
			TimeoutMS:   getEnvAsInt("SENSOR_TIMEOUT_MS", 3000),
			RetryCount:  getEnvAsInt("SENSOR_RETRY_COUNT", 2),
			RetryDelay:  getEnvAsInt("SENSOR_RETRY_DELAY_MS", 100),
			FailCeiling: getEnvAsInt("SENSOR_FAIL_CEILING", 5),
			FrequencyHz: getEnvAsFloat("SENSOR_FREQUENCY_HZ", 3200.0),
		},
		Logging: LoggerConfig{
			Enable:     getEnvAsBool("LOGGER_ENABLE", true),
			LogsDir:    getEnv("LOGGER_LOGS_DIR", "./logs"),
			Level:      getEnv("LOGGER_LOG_LEVEL", "DEBUG"),
			SavingDays: getEnvAsInt("LOGGER_SAVING_DAYS", 7),
		},
	}

	return config, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(name string, defaultValue int) int {
	valueStr := getEnv(name, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(name string, defaultValue float64) float64 {
	valueStr := getEnv(name, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	val, _ := strconv.ParseBool(value)
	return val
}
