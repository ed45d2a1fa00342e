// services/team_service.go - Team directory
package services

import (
	"context"

	"gfgchapter/models"
	"gfgchapter/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TeamService struct {
	db  *gorm.DB
	log *logrus.Entry
}

func NewTeamService(db *gorm.DB) *TeamService {
	return &TeamService{
		db:  db,
		log: logrus.WithField("component", "teams"),
	}
}

// ListTeams returns every team ordered by name. Backend failures are logged
// and yield an empty list.
func (s *TeamService) ListTeams(ctx context.Context) []models.Team {
	var teams []models.Team
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&teams).Error; err != nil {
		s.log.WithError(err).Warn("list teams failed")
		return []models.Team{}
	}
	return teams
}

// GetTeam retrieves a single team.
func (s *TeamService) GetTeam(ctx context.Context, teamID string) (*models.Team, error) {
	var team models.Team
	err := s.db.WithContext(ctx).Where("id = ?", teamID).First(&team).Error
	if err != nil {
		if KindOf(err) == KindNotFound {
			return nil, NotFound("GetTeam", "team not found")
		}
		return nil, wrap("GetTeam", err)
	}
	return &team, nil
}

// SeedTeams inserts teams whose id is not taken yet and reports how many were added.
func (s *TeamService) SeedTeams(ctx context.Context, teams []models.Team) (int, error) {
	if len(teams) == 0 {
		return 0, nil
	}
	for i := range teams {
		if err := utils.ValidateStruct(&teams[i]); err != nil {
			return 0, Invalid("SeedTeams", err.Error())
		}
	}

	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(&teams)
	if res.Error != nil {
		return 0, wrap("SeedTeams", res.Error)
	}

	s.log.WithField("added", res.RowsAffected).Info("teams seeded")
	return int(res.RowsAffected), nil
}
