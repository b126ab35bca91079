package backend

import (
	"fmt"
	"time"

	"fintrack/internal/config"
)

const defaultConnectTimeout = 10 * time.Second

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type: backendType,

		SQLiteDBPath: appConfig.SQLiteDBPath,

		MongoURI:          appConfig.MongoURI,
		MongoDatabase:     appConfig.MongoDatabase,
		MongoTransactions: appConfig.MongoTransactions,
		ConnectTimeout:    defaultConnectTimeout,

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,

		MirrorType:               MirrorType(appConfig.MirrorBackend),
		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleSheetName:          appConfig.GoogleSheetName,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case MongoBackend:
		if c.MongoURI == "" || c.MongoDatabase == "" {
			return fmt.Errorf("MongoDB URI and database are required for mongo backend")
		}
	case MemoryBackend:
	}
	return nil
}

// ValidateMirror checks the mirror half of the configuration.
func (c Config) ValidateMirror() error {
	if !c.MirrorType.IsValid() {
		return fmt.Errorf("invalid mirror type: %s", c.MirrorType)
	}
	if c.MirrorType == SheetsMirror {
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets mirror")
		}
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
			return fmt.Errorf("service account credentials are required for sheets mirror")
		}
	}
	return nil
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := []BackendType{MemoryBackend, SQLiteBackend, MongoBackend}
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
