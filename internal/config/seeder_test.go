package config

import (
	"testing"

	"genieq-api/internal/adapters/persistence/models"
	"genieq-api/internal/core/domain"
	"genieq-api/internal/pkg/password"
	"genieq-api/internal/testutil"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestSeederIsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)
	seeder := NewSeeder(db)

	require.NoError(t, seeder.Run())
	require.NoError(t, seeder.Run())

	var count int64
	require.NoError(t, db.Model(&models.Ticket{}).Count(&count).Error)
	require.EqualValues(t, len(defaultTickets()), count)
}

func TestSeedAdminMember(t *testing.T) {
	password.Cost = bcrypt.MinCost
	db := testutil.NewDB(t)
	seeder := NewSeeder(db)

	require.NoError(t, seeder.seedAdminMember("", ""))
	require.Error(t, seeder.seedAdminMember("admin@genieq.test", "short"))

	require.NoError(t, seeder.seedAdminMember(" Admin@GenieQ.test ", "long-enough-pass"))
	require.NoError(t, seeder.seedAdminMember("second@genieq.test", "long-enough-pass"))

	var admins []models.Member
	require.NoError(t, db.Where("role = ?", domain.RoleAdmin).Find(&admins).Error)
	require.Len(t, admins, 1)
	require.Equal(t, "admin@genieq.test", admins[0].Email)
	require.True(t, password.Verify("long-enough-pass", admins[0].PasswordHash))
}
