package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DBConfig takes either a full DSN or its parts. The parts are only read
// when DSN is empty.
type DBConfig struct {
	DSN    string `envconfig:"SITEBOSS_DB_DSN"`
	Driver string `envconfig:"SITEBOSS_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"SITEBOSS_DB_HOST"`
	Port     int    `envconfig:"SITEBOSS_DB_PORT" default:"5432"`
	User     string `envconfig:"SITEBOSS_DB_USER"`
	Password string `envconfig:"SITEBOSS_DB_PASSWORD"`
	Name     string `envconfig:"SITEBOSS_DB_NAME"`
	SSLMode  string `envconfig:"SITEBOSS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SITEBOSS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SITEBOSS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SITEBOSS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SITEBOSS_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"SITEBOSS_DB_SLOW_QUERY" default:"500ms"`
}

func (db *DBConfig) resolveDSN() error {
	if db.DSN != "" {
		return nil
	}
	if missing := db.missingParts(); len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}
	db.DSN = db.partsURL().String()
	return nil
}

func (db DBConfig) missingParts() []string {
	var missing []string
	for _, part := range []struct{ env, value string }{
		{EnvDBHost, db.Host},
		{EnvDBUser, db.User},
		{EnvDBName, db.Name},
	} {
		if part.value == "" {
			missing = append(missing, part.env)
		}
	}
	return missing
}

func (db DBConfig) partsURL() *url.URL {
	user := url.User(db.User)
	if db.Password != "" {
		user = url.UserPassword(db.User, db.Password)
	}
	u := &url.URL{
		Scheme: "postgres",
		User:   user,
		Host:   net.JoinHostPort(db.Host, strconv.Itoa(db.Port)),
		Path:   db.Name,
	}
	if db.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {db.SSLMode}}.Encode()
	}
	return u
}
