package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	ORTLibraryPath string
	ScoreThreshold float32
	IOUThreshold   float32
	FrontCamera    int // device index for facing 0
	BackCamera     int // device index for facing 1
	CameraWidth    int
	CameraHeight   int
	TargetFPS      int
	RotateCamera   bool // rotate camera frames 180° before detection
	RotateBuffer   bool // rotate DetectDraw buffers 180° before detection
	StreamAddr     string
	StreamQuality  int
	LogLevel       string
}

// Load reads an optional .env file, then the environment
func Load() *Config {
	// a missing .env is fine, real env vars still apply
	_ = godotenv.Load()

	return &Config{
		ORTLibraryPath: getEnv("ORT_LIBRARY_PATH", "lib/libonnxruntime.so"),
		ScoreThreshold: getEnvAsFloat32("SCORE_THRESHOLD", 0.45),
		IOUThreshold:   getEnvAsFloat32("IOU_THRESHOLD", 0.30),
		FrontCamera:    getEnvAsInt("FRONT_CAMERA", 0),
		BackCamera:     getEnvAsInt("BACK_CAMERA", 1),
		CameraWidth:    getEnvAsInt("CAMERA_WIDTH", 1280),
		CameraHeight:   getEnvAsInt("CAMERA_HEIGHT", 720),
		TargetFPS:      getEnvAsInt("TARGET_FPS", 30),
		RotateCamera:   getEnvAsBool("ROTATE_CAMERA", false),
		RotateBuffer:   getEnvAsBool("ROTATE_BUFFER", false),
		StreamAddr:     getEnv("STREAM_ADDR", ""),
		StreamQuality:  getEnvAsInt("STREAM_QUALITY", 80),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}
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

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(f)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
