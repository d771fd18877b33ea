package store

import (
	"regexp"
	"strings"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
)

// mysqlBareHostPort matches "user:pass@host:port/db" with no tcp() wrapper.
var mysqlBareHostPort = regexp.MustCompile(`^(.+)@([^(@]+:\d+)(/.*)?$`)

// normalizeMySQLDSN rewrites a MySQL DSN into the driver's canonical form and
// forces parseTime=true with UTC timestamps so DATE and DATETIME columns scan
// into time.Time. ClientFoundRows makes UPDATE report matched rows, which is
// what the store uses to detect missing ids. The common mistakes it repairs are:
//
//	user:pass@host:port/db     missing tcp() wrapper
//	user:pass@(host:port)/db   missing "tcp" before parens
//
// A DSN that cannot be repaired is returned unchanged so the connect call
// reports the real error.
func normalizeMySQLDSN(dsn string) string {
	candidates := []string{dsn}
	if idx := strings.LastIndex(dsn, "@("); idx >= 0 {
		candidates = append(candidates, dsn[:idx]+"@tcp"+dsn[idx+1:])
	}
	if m := mysqlBareHostPort.FindStringSubmatch(dsn); m != nil {
		candidates = append(candidates, m[1]+"@tcp("+m[2]+")"+m[3])
	}

	for _, c := range candidates {
		cfg, err := mysqldriver.ParseDSN(c)
		if err != nil || (cfg.Net != "tcp" && cfg.Net != "unix") {
			continue
		}
		cfg.ParseTime = true
		cfg.Loc = time.UTC
		cfg.ClientFoundRows = true
		return cfg.FormatDSN()
	}
	return dsn
}

// sqliteDSN maps an empty DSN to a private in-memory database and adds the
// pragmas the store relies on.
func sqliteDSN(dsn string) string {
	if dsn == "" || dsn == ":memory:" {
		return ":memory:?_pragma=foreign_keys(1)"
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
}
