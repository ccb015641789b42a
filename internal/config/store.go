package config

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type Store struct {
	Driver      StoreDriver `env:"STORE_DRIVER" envDefault:"memory"`
	DSN         string      `env:"STORE_DSN"`
	AutoMigrate bool        `env:"STORE_AUTO_MIGRATE" envDefault:"true"`
}

// StoreDriver selects the product store backend.
type StoreDriver string

const (
	StoreDriverMemory   StoreDriver = "memory"
	StoreDriverSQLite   StoreDriver = "sqlite"
	StoreDriverPostgres StoreDriver = "postgres"
)

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *StoreDriver) UnmarshalText(text []byte) error {
	switch v := StoreDriver(strings.ToLower(strings.TrimSpace(string(text)))); v {
	case StoreDriverMemory, StoreDriverSQLite, StoreDriverPostgres:
		*d = v
	case "sqlite3":
		*d = StoreDriverSQLite
	case "postgresql", "pg":
		*d = StoreDriverPostgres
	default:
		return fmt.Errorf("unknown store driver: %s", text)
	}
	return nil
}

// Validate requires a DSN for every driver except memory.
func (s Store) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Driver, validation.Required, validation.In(
			StoreDriverMemory, StoreDriverSQLite, StoreDriverPostgres,
		)),
		validation.Field(&s.DSN, validation.When(s.Driver != StoreDriverMemory, validation.Required)),
	)
}
