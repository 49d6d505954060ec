package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/courtclub/competition-system/models"
	"github.com/courtclub/competition-system/repositories"
	"github.com/courtclub/competition-system/storage"
)

// TeamService регистрирует команды клуба и управляет их логотипами.
type TeamService interface {
	Create(ctx context.Context, rootContestID int, name string) (*models.Team, error)
	GetByID(ctx context.Context, id int) (*models.Team, error)
	ListByRootContest(ctx context.Context, rootContestID int) ([]models.Team, error)
	UploadLogo(ctx context.Context, teamID int, contentType string, reader io.Reader) (*models.Team, error)
}

type teamService struct {
	contestRepo repositories.ContestRepository
	teamRepo    repositories.TeamRepository
	teams       *TeamCache
	uploader    storage.FileUploader
	logger      *slog.Logger
}

func NewTeamService(
	contestRepo repositories.ContestRepository,
	teamRepo repositories.TeamRepository,
	teams *TeamCache,
	uploader storage.FileUploader,
	logger *slog.Logger,
) TeamService {
	return &teamService{
		contestRepo: contestRepo,
		teamRepo:    teamRepo,
		teams:       teams,
		uploader:    uploader,
		logger:      logger,
	}
}

func (s *teamService) Create(ctx context.Context, rootContestID int, name string) (*models.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: team name is required", ErrValidationFailed)
	}

	root, err := s.contestRepo.GetByID(ctx, rootContestID)
	if err != nil {
		return nil, mapContestRepoError(err)
	}
	if root.IsSubStage() {
		return nil, fmt.Errorf("%w: contest %d", ErrContestNotRoot, rootContestID)
	}
	// Запись новых команд открыта только на этапе набора.
	if root.Status != models.StatusRecruiting {
		return nil, fmt.Errorf("%w: contest %d is %s", ErrContestStatusTransition, rootContestID, root.Status)
	}

	team := &models.Team{Name: name, RootContestID: rootContestID}
	if err := s.teamRepo.Create(ctx, nil, team); err != nil {
		if errors.Is(err, repositories.ErrTeamNameConflict) {
			return nil, ErrTeamNameConflict
		}
		if errors.Is(err, repositories.ErrTeamRootInvalid) {
			return nil, ErrContestNotFound
		}
		return nil, err
	}

	s.teams.Prime([]*models.Team{team})
	s.logger.Info("team created",
		slog.Int("team_id", team.ID),
		slog.Int("root_contest_id", rootContestID))
	return s.withLogoURL(team), nil
}

func (s *teamService) GetByID(ctx context.Context, id int) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return s.withLogoURL(team), nil
}

func (s *teamService) ListByRootContest(ctx context.Context, rootContestID int) ([]models.Team, error) {
	teams, err := s.teamRepo.ListByRootContest(ctx, rootContestID)
	if err != nil {
		return nil, err
	}
	s.teams.Prime(teams)

	out := make([]models.Team, 0, len(teams))
	for _, t := range teams {
		out = append(out, *s.withLogoURL(t))
	}
	return out, nil
}

// UploadLogo кладёт файл в объектное хранилище и запоминает ключ у команды.
// Прежний логотип удаляется по принципу best effort.
func (s *teamService) UploadLogo(ctx context.Context, teamID int, contentType string, reader io.Reader) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}

	ext := extensionForContentType(contentType)
	if ext == "" {
		return nil, fmt.Errorf("%w: unsupported logo content type %q", ErrValidationFailed, contentType)
	}

	key := path.Join("team-logos", fmt.Sprintf("team_%d%s", teamID, ext))
	result, err := s.uploader.Upload(ctx, key, contentType, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to upload logo for team %d: %w", teamID, err)
	}

	oldKey := team.LogoKey
	if err := s.teamRepo.UpdateLogoKey(ctx, teamID, &result.Key); err != nil {
		return nil, err
	}
	if oldKey != nil && *oldKey != result.Key {
		if delErr := s.uploader.Delete(ctx, *oldKey); delErr != nil {
			s.logger.Warn("failed to delete previous team logo",
				slog.Int("team_id", teamID),
				slog.String("key", *oldKey),
				slog.Any("error", delErr))
		}
	}

	team.LogoKey = &result.Key
	s.teams.Invalidate(teamID)
	return s.withLogoURL(team), nil
}

func (s *teamService) withLogoURL(team *models.Team) *models.Team {
	if team.LogoKey != nil && s.uploader != nil {
		url := s.uploader.GetPublicURL(*team.LogoKey)
		if url != "" {
			team.LogoURL = &url
		}
	}
	return team
}

func extensionForContentType(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}
