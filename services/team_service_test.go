package services

import (
	"context"
	"testing"

	"gfgchapter/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTeamService(t *testing.T) {
	ctx := context.Background()

	t.Run("lists teams by name", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.teams.SeedTeams(ctx, []models.Team{{ID: "ai-ml", Name: "AI / ML"}})
		require.NoError(t, err)

		teams := env.teams.ListTeams(ctx)
		require.Len(t, teams, 3)
		assert.Equal(t, "ai-ml", teams[0].ID)
		assert.Equal(t, "app-development", teams[1].ID)
		assert.Equal(t, "web-development", teams[2].ID)
	})

	t.Run("seeding skips existing ids", func(t *testing.T) {
		env := newTestEnv(t)
		added, err := env.teams.SeedTeams(ctx, []models.Team{
			{ID: "app-development", Name: "Renamed"},
			{ID: "dsa", Name: "DSA"},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, added)

		team, err := env.teams.GetTeam(ctx, "app-development")
		require.NoError(t, err)
		assert.Equal(t, "App Development", team.Name)
	})

	t.Run("seeding rejects invalid teams", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.teams.SeedTeams(ctx, []models.Team{{ID: "", Name: "No id"}})
		requireKind(t, KindInvalid, err)
	})

	t.Run("get missing team", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.teams.GetTeam(ctx, "nope")
		requireKind(t, KindNotFound, err)
	})

	t.Run("backend failure yields empty list", func(t *testing.T) {
		svc := NewTeamService(closedDB(t))
		teams := svc.ListTeams(ctx)
		assert.NotNil(t, teams)
		assert.Empty(t, teams)
	})
}
