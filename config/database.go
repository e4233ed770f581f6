package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

var (
	db *gorm.DB
)

func GetDB() *gorm.DB {
	return db
}

// SetDB replaces the global connection; used by cmd tools and tests.
func SetDB(conn *gorm.DB) {
	db = conn
}

// ConnectDatabaseWithRetry connects and sets the global DB.
// Call this from main() AFTER the HTTP server is listening.
func ConnectDatabaseWithRetry() {
	settings := Env()

	network := "tcp"
	address := fmt.Sprintf("%s:%s", settings.DBHost, settings.DBPort)

	// Cloud SQL: DB_HOST=/cloudsql/<CONNECTION_NAME> connects over the proxy's unix socket.
	if strings.HasPrefix(settings.DBHost, "/cloudsql/") {
		network = "unix"
		address = settings.DBHost
	}

	databaseConfig := fmt.Sprintf("%s:%s@%s(%s)/%s?multiStatements=true&parseTime=true&loc=UTC",
		settings.DBUser,
		settings.DBPassword,
		network,
		address,
		settings.DBName,
	)

	var attempt int
	for {
		attempt++
		conn, err := gorm.Open(mysql.Open(databaseConfig), InitConfig())
		if err == nil {
			if sqlDB, derr := conn.DB(); derr == nil && sqlDB != nil {
				if settings.DBMaxOpenConns > 0 {
					sqlDB.SetMaxOpenConns(settings.DBMaxOpenConns)
				}
				if settings.DBMaxIdleConns >= 0 {
					sqlDB.SetMaxIdleConns(settings.DBMaxIdleConns)
				}
				if settings.DBConnMaxLifetimeSecond > 0 {
					sqlDB.SetConnMaxLifetime(time.Duration(settings.DBConnMaxLifetimeSecond) * time.Second)
				}
				if settings.DBConnMaxIdleTimeSecond > 0 {
					sqlDB.SetConnMaxIdleTime(time.Duration(settings.DBConnMaxIdleTimeSecond) * time.Second)
				}
			}

			if pluginErr := conn.Use(otelgorm.NewPlugin()); pluginErr != nil {
				log.Printf("db connected but failed to install otelgorm plugin: %v", pluginErr)
			}
			if pluginErr := InstallPlugins(conn); pluginErr != nil {
				log.Printf("db connected but failed to install tenant guard plugin: %v", pluginErr)
			}
			db = conn
			log.Printf("connected to database (attempt=%d)", attempt)
			return
		}

		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		log.Printf("failed to connect database (attempt=%d): %v; retrying in %s", attempt, err, sleep)
		time.Sleep(sleep)
	}
}

// InstallPlugins registers the plugins every connection needs, whatever the dialect.
func InstallPlugins(conn *gorm.DB) error {
	return conn.Use(NewTenantGuardPlugin())
}

// InitConfig is shared by the MySQL connection and the sqlite test connection.
// TranslateError turns driver unique violations into gorm.ErrDuplicatedKey.
func InitConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         initLog(),
		NamingStrategy: initNamingStrategy(),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// InitLog Connection Log Configuration
func initLog() logger.Interface {
	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			Colorful:                  false,
			LogLevel:                  logger.Error,
			SlowThreshold:             time.Second,
			IgnoreRecordNotFoundError: true,
		},
	)
	return newLogger
}

// InitNamingStrategy Init NamingStrategy
func initNamingStrategy() *schema.NamingStrategy {
	return &schema.NamingStrategy{
		SingularTable: false,
		TablePrefix:   "",
	}
}
