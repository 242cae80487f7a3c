package config

import (
	"os"
	"strconv"
	"time"
)

// Config carries every knob the station needs. It replaces the scattered
// environment lookups and module-level flags of earlier revisions: load it
// once in main and pass it into the constructors that need it.
type Config struct {
	HTTPAddr          string
	CORSOrigins       []string
	AllowRegistration bool

	DBPath    string
	JWTSecret string

	// Scale device
	ScalePort           string
	ScaleBaudRate       int
	ScaleSimulator      bool
	SimulatorTareOffset int // subtracted from simulated readings when capturing a tare

	// ERP (Odoo)
	ERPBaseURL        string
	ERPAPIKey         string
	ERPTimeout        time.Duration
	ERPUTCOffsetHours int // local station time -> UTC correction for ERP timestamps

	// Sync worker
	SyncInterval  time.Duration
	SyncBatchSize int
	SyncLockTTL   time.Duration
	SyncMaxRetry  int

	// Ticket output
	PrinterDevice string
	PDFOutputDir  string
	CompanyName   string
	CompanyAddr   string
}

// Load reads the configuration from the environment. Every value has a
// workable default so a fresh station boots in simulator mode without
// a .env file.
func Load() Config {
	return Config{
		HTTPAddr:          getEnv("HTTP_ADDR", ":8080"),
		CORSOrigins:       []string{getEnv("CORS_ORIGIN", "http://localhost:5173")},
		AllowRegistration: getEnv("ALLOW_REGISTRATION", "") == "true",

		DBPath:    getEnv("DB_PATH", "scale_station.db"),
		JWTSecret: getEnv("JWT_SECRET", "change_me_in_production"),

		ScalePort:           getEnv("SCALE_PORT", "/dev/ttyUSB0"),
		ScaleBaudRate:       getEnvInt("SCALE_BAUDRATE", 9600),
		ScaleSimulator:      getEnv("SCALE_SIMULATOR", "") == "true",
		SimulatorTareOffset: getEnvInt("SIMULATOR_TARE_OFFSET", 19000),

		ERPBaseURL:        getEnv("ERP_BASE_URL", ""),
		ERPAPIKey:         getEnv("ERP_API_KEY", ""),
		ERPTimeout:        time.Duration(getEnvInt("ERP_TIMEOUT_SECONDS", 30)) * time.Second,
		ERPUTCOffsetHours: getEnvInt("ERP_UTC_OFFSET_HOURS", 6),

		SyncInterval:  time.Duration(getEnvInt("SYNC_INTERVAL_SECONDS", 5)) * time.Second,
		SyncBatchSize: getEnvInt("SYNC_BATCH_SIZE", 25),
		SyncLockTTL:   time.Duration(getEnvInt("SYNC_LOCK_TTL_SECONDS", 60)) * time.Second,
		SyncMaxRetry:  getEnvInt("SYNC_MAX_RETRY", 10),

		PrinterDevice: getEnv("PRINTER_DEVICE", "/dev/usb/lp0"),
		PDFOutputDir:  getEnv("PDF_OUTPUT_DIR", "./tickets"),
		CompanyName:   getEnv("COMPANY_NAME", "SCALE STATION"),
		CompanyAddr:   getEnv("COMPANY_ADDRESS", ""),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
