package app

import "github.com/sellercentry/centry/internal/directory"

// SheetSourceConfig converts DirectoryConfig to the directory package representation.
func (c DirectoryConfig) SheetSourceConfig() directory.SheetConfig {
	return directory.SheetConfig{
		Endpoint:     c.Endpoint,
		ServiceToken: c.ServiceToken,
		Timeout:      c.Timeout,
	}
}
