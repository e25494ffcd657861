package database

// Config holds the connection settings for the single write-side
// database the service uses, per spec.md §5's default pool size of 10.
// Populated by the caller from src/config.Settings — the service has one
// configuration surface, not one envconfig struct per subsystem.
type Config struct {
	DatabaseURL  string
	GormLogLevel int
	MaxOpenConns int
	MaxIdleConns int
}
