package config

// DatabaseConfig holds the receipts journal database configuration
type DatabaseConfig struct {
	URL string
}

// Enabled reports whether a receipts database was configured
func (c DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

// GetConnectionString returns the PostgreSQL connection string
func (c *DatabaseConfig) GetConnectionString() string {
	return c.URL
}
