package seed

import (
	"context"
	"testing"

	"github.com/Marga-Ghale/ora-family-backend/internal/config"
	"github.com/Marga-Ghale/ora-family-backend/internal/logger"
	"github.com/Marga-Ghale/ora-family-backend/internal/repository"
	"github.com/Marga-Ghale/ora-family-backend/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = `
families:
  - title: Test Family
    mail: Mom@Example.com
    password: password123
    username: mom
    task_categories: [Chores]
    wishlist_categories: [Toys]
    members:
      - mail: kid@example.com
        username: kid
        member_type: Child
        points: 30
        wishlist:
          - item_name: Kite
            required_points: 50
            category: Toys
    tasks:
      - title: Dishes
        category: Chores
        assign_to: kid@example.com
        points: 10
        due_in: 2h
      - title: Laundry
`

func newSeeder(t *testing.T) (*Seeder, *service.Services) {
	t.Helper()
	store := repository.NewMemoryStore()
	services := service.NewServices(&service.ServiceDeps{
		Config: &config.Config{JWTSecret: "test-secret", JWTExpiry: 1, RefreshExpiry: 1},
		Store:  store,
		Logger: logger.Discard(),
	})
	return NewSeeder(services, store, logger.Discard().Component("Seed")), services
}

func TestParse(t *testing.T) {
	f, err := Parse([]byte(fixture))
	require.NoError(t, err)
	require.Len(t, f.Families, 1)
	assert.Equal(t, "2h0m0s", f.Families[0].Tasks[0].DueIn.String())
	assert.Equal(t, "Child", f.Families[0].Members[0].Type)

	_, err = Parse([]byte("families:\n  - password: x\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("families: [unclosed"))
	assert.Error(t, err)
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	seeder, services := newSeeder(t)
	f, err := Parse([]byte(fixture))
	require.NoError(t, err)

	sum, err := seeder.Apply(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, Summary{Families: 1, Members: 1, Tasks: 2, Assignments: 1, Items: 1}, sum)

	res, err := services.Auth.Login(ctx, "kid@example.com", "password123")
	require.NoError(t, err)
	kid := service.ActorFor(res.Member)

	wallet, err := services.Wallet.GetMyWallet(ctx, kid)
	require.NoError(t, err)
	assert.Equal(t, 30, wallet.TotalPoints)

	mine, err := services.Task.MyAssignments(ctx, kid)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, 10, mine[0].AssignedPoints)

	view, err := services.Wishlist.MyWishlist(ctx, kid)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, "Kite", view.Items[0].ItemName)

	again, err := seeder.Apply(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, Summary{Skipped: 1}, again)
}

func TestApply_UnknownCategory(t *testing.T) {
	seeder, _ := newSeeder(t)
	f, err := Parse([]byte(`
families:
  - title: Broken
    mail: broken@example.com
    password: password123
    tasks:
      - title: Dishes
        category: Missing
`))
	require.NoError(t, err)

	_, err = seeder.Apply(context.Background(), f)
	assert.ErrorContains(t, err, "unknown category")
}
