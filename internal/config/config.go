package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Host string
	Port int

	StreamSource string // "0" for the first webcam, otherwise a URI or file path
	AutoStart    bool
	FrameWidth   int
	FrameHeight  int
	FPS          int

	ModelPath           string
	ClassNamesPath      string
	ModelInputSize      int
	ConfidenceThreshold float64
	IOUThreshold        float64
	TrackBuffer         int // frames a lost track is kept before its id is retired

	StoragePath    string
	SaveDetections bool
	DatasetsDir    string
	ModelsDir      string

	DBPath        string
	EnableCatalog bool

	ReconnectAttempts int
	ReconnectDelay    time.Duration

	LogDirectory string
	LogLevel     string
}

// Load reads an optional .env file and builds the configuration from the environment.
func Load() *Config {
	_ = godotenv.Load()
	return fromEnv()
}

// LoadFile is like Load but reads the given env file; a missing file is not an error.
func LoadFile(path string) *Config {
	if path != "" {
		_ = godotenv.Load(path)
	}
	return fromEnv()
}

func fromEnv() *Config {
	datasets := getEnv("DATASETS_DIR", filepath.Join(".", "static", "datasets"))
	return &Config{
		Host:                getEnv("HOST", "0.0.0.0"),
		Port:                getEnvAsInt("PORT", 5000),
		StreamSource:        getEnv("STREAM_SOURCE", "0"),
		AutoStart:           getEnvAsBool("AUTO_START", true),
		FrameWidth:          getEnvAsInt("FRAME_WIDTH", 640),
		FrameHeight:         getEnvAsInt("FRAME_HEIGHT", 480),
		FPS:                 getEnvAsInt("FPS", 30),
		ModelPath:           getEnv("MODEL_PATH", filepath.Join(".", "models", "yolo11m.onnx")),
		ClassNamesPath:      getEnv("CLASS_NAMES_PATH", ""),
		ModelInputSize:      getEnvAsInt("MODEL_INPUT_SIZE", 640),
		ConfidenceThreshold: getEnvAsFloat("CONFIDENCE_THRESHOLD", 0.5),
		IOUThreshold:        getEnvAsFloat("IOU_THRESHOLD", 0.45),
		TrackBuffer:         getEnvAsInt("TRACK_BUFFER", 30),
		StoragePath:         getEnv("DETECTION_STORAGE_PATH", filepath.Join(datasets, "mission")),
		SaveDetections:      getEnvAsBool("SAVE_DETECTIONS", true),
		DatasetsDir:         datasets,
		ModelsDir:           getEnv("MODELS_DIR", filepath.Join(".", "static", "models")),
		DBPath:              getEnv("DB_PATH", filepath.Join(".", "data", "sightings.db")),
		EnableCatalog:       getEnvAsBool("ENABLE_CATALOG", false),
		ReconnectAttempts:   getEnvAsInt("RECONNECT_ATTEMPTS", 3),
		ReconnectDelay:      time.Duration(getEnvAsInt("RECONNECT_DELAY_MS", 2000)) * time.Millisecond,
		LogDirectory:        getEnv("LOG_DIR", filepath.Join(".", "logs")),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
	}
}

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(value) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return defaultValue
}
