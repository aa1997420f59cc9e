package database

import (
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/carwash-dashboard/internal/config"
)

func TestDSN(t *testing.T) {
	cfg := config.Config{DBUser: "app", DBPass: "p@ss", DBHost: "db", DBPort: "3307", DBName: "carwash"}

	parsed, err := mysql.ParseDSN(DSN(cfg))
	require.NoError(t, err)
	assert.Equal(t, "app", parsed.User)
	assert.Equal(t, "p@ss", parsed.Passwd)
	assert.Equal(t, "db:3307", parsed.Addr)
	assert.Equal(t, "carwash", parsed.DBName)
	assert.True(t, parsed.ParseTime)
	assert.Equal(t, "UTC", parsed.Loc.String())
}

func TestDSNWithoutPassword(t *testing.T) {
	dsn := DSN(config.Config{DBUser: "root", DBHost: "localhost", DBPort: "3306", DBName: "x"})
	assert.Contains(t, dsn, "root@tcp(localhost:3306)/x")
}
