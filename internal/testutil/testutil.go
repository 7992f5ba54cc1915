// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"testing"

	"genieq-api/internal/adapters/persistence/models"
	"genieq-api/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a private in-memory sqlite database with all tables migrated.
// A single connection keeps transactions serialized the way row locks do in MySQL.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, models.AutoMigrate(db))
	return db
}

// CreateMember inserts a member with a placeholder password hash
func CreateMember(t *testing.T, db *gorm.DB, email string) *models.Member {
	t.Helper()
	member := &models.Member{
		Email:        email,
		Name:         email,
		PasswordHash: "x",
		Role:         domain.RoleUser,
	}
	require.NoError(t, db.WithContext(context.Background()).Create(member).Error)
	return member
}

// CreateTicket inserts an active ticket
func CreateTicket(t *testing.T, db *gorm.DB, code string, units int, price string) *models.Ticket {
	t.Helper()
	ticket := &models.Ticket{
		Code:     code,
		Name:     code,
		Units:    units,
		Price:    decimal.RequireFromString(price),
		IsActive: true,
	}
	require.NoError(t, db.WithContext(context.Background()).Create(ticket).Error)
	return ticket
}
