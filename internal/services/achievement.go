package services

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tahcohcat/gamify-web/internal/database"
	"github.com/tahcohcat/gamify-web/internal/models"
)

// AchievementService stores the catalog, per-user unlocks and the activity
// feed. Methods taking a sqlx.ExtContext run inside the caller's transaction.
type AchievementService struct {
	db *database.DB
}

func NewAchievementService(db *database.DB) *AchievementService {
	return &AchievementService{db: db}
}

// SyncCatalog writes the catalog into the achievements table. Entries that
// left the catalog are removed unless someone has already unlocked them.
func (s *AchievementService) SyncCatalog(ctx context.Context, catalog []models.Achievement) error {
	return s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO achievements (id, name, description, icon, xp_reward, points_reward, requirement_type, threshold, rule, position)
			VALUES (:id, :name, :description, :icon, :xp_reward, :points_reward, :requirement_type, :threshold, :rule, :position)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				description = excluded.description,
				icon = excluded.icon,
				xp_reward = excluded.xp_reward,
				points_reward = excluded.points_reward,
				requirement_type = excluded.requirement_type,
				threshold = excluded.threshold,
				rule = excluded.rule,
				position = excluded.position
		`
		ids := make([]string, 0, len(catalog))
		for _, a := range catalog {
			if _, err := sqlx.NamedExecContext(ctx, tx, query, a); err != nil {
				return fmt.Errorf("failed to sync achievement %s: %w", a.ID, err)
			}
			ids = append(ids, a.ID)
		}
		if len(ids) == 0 {
			return nil
		}

		del, args, err := sqlx.In(`
			DELETE FROM achievements
			WHERE id NOT IN (?)
			AND id NOT IN (SELECT achievement_id FROM unlocked_achievements)
		`, ids)
		if err != nil {
			return fmt.Errorf("failed to build catalog cleanup: %w", err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(del), args...); err != nil {
			return fmt.Errorf("failed to remove retired achievements: %w", err)
		}
		return nil
	})
}

// GetUserAchievements returns every catalog achievement with the user's
// unlock state, in catalog order.
func (s *AchievementService) GetUserAchievements(ctx context.Context, q sqlx.QueryerContext, userID int) ([]models.UserAchievementView, error) {
	query := `
		SELECT
			a.id, a.name, a.description, a.icon, a.xp_reward, a.points_reward,
			a.requirement_type, a.threshold, a.rule, a.position,
			ua.achievement_id IS NOT NULL AS unlocked,
			ua.unlocked_at
		FROM achievements a
		LEFT JOIN unlocked_achievements ua ON a.id = ua.achievement_id AND ua.user_id = ?
		ORDER BY a.position, a.id
	`

	achievements := []models.UserAchievementView{}
	if err := sqlx.SelectContext(ctx, q, &achievements, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get user achievements: %w", err)
	}
	return achievements, nil
}

// GetRecentUnlocks returns the user's latest unlocks, newest first.
func (s *AchievementService) GetRecentUnlocks(ctx context.Context, userID, limit int) ([]models.UserAchievementView, error) {
	if limit <= 0 {
		limit = 5
	}

	query := `
		SELECT
			a.id, a.name, a.description, a.icon, a.xp_reward, a.points_reward,
			a.requirement_type, a.threshold, a.rule, a.position,
			1 AS unlocked, ua.unlocked_at
		FROM unlocked_achievements ua
		JOIN achievements a ON a.id = ua.achievement_id
		WHERE ua.user_id = ?
		ORDER BY ua.unlocked_at DESC, a.position DESC
		LIMIT ?
	`

	achievements := []models.UserAchievementView{}
	if err := s.db.SelectContext(ctx, &achievements, query, userID, limit); err != nil {
		return nil, fmt.Errorf("failed to get recent unlocks: %w", err)
	}
	return achievements, nil
}

// UnlockedIDs returns the set of achievements the user has unlocked.
func (s *AchievementService) UnlockedIDs(ctx context.Context, q sqlx.QueryerContext, userID int) (map[string]bool, error) {
	var ids []string
	if err := sqlx.SelectContext(ctx, q, &ids, `SELECT achievement_id FROM unlocked_achievements WHERE user_id = ?`, userID); err != nil {
		return nil, fmt.Errorf("failed to get unlocked achievements: %w", err)
	}

	unlocked := make(map[string]bool, len(ids))
	for _, id := range ids {
		unlocked[id] = true
	}
	return unlocked, nil
}

// Unlock records a single unlock. A second unlock of the same pair fails
// with a unique violation.
func (s *AchievementService) Unlock(ctx context.Context, ext sqlx.ExtContext, userID int, achievementID string, at time.Time) error {
	query := `INSERT INTO unlocked_achievements (user_id, achievement_id, unlocked_at) VALUES (?, ?, ?)`
	_, err := ext.ExecContext(ctx, query, userID, achievementID, at)
	return err
}

// RecordActivity adds a new activity entry for the user
func (s *AchievementService) RecordActivity(ctx context.Context, ext sqlx.ExtContext, activity models.Activity) error {
	query := `
		INSERT INTO activities (user_id, type, title, details, icon, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = time.Now()
	}
	_, err := ext.ExecContext(ctx, query, activity.UserID, activity.Type, activity.Title, activity.Details, activity.Icon, activity.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record activity: %w", err)
	}
	return nil
}

// GetRecentActivities returns recent user activities
func (s *AchievementService) GetRecentActivities(ctx context.Context, userID int, limit int) ([]models.Activity, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT id, user_id, type, title, details, icon, created_at
		FROM activities
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`

	activities := []models.Activity{}
	if err := s.db.SelectContext(ctx, &activities, query, userID, limit); err != nil {
		return nil, fmt.Errorf("failed to get activities: %w", err)
	}
	return activities, nil
}
