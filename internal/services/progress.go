package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tahcohcat/gamify-web/config"
	"github.com/tahcohcat/gamify-web/internal/database"
	"github.com/tahcohcat/gamify-web/internal/logger"
	"github.com/tahcohcat/gamify-web/internal/models"
	"github.com/tahcohcat/gamify-web/internal/progression"
)

// Starting state for a freshly created demo account.
const (
	demoXP     = 1250
	demoPoints = 25
	demoStreak = 3
)

// DefaultActionType is used when a client earns XP without naming an action.
const DefaultActionType = "action"

// Notifier receives every committed progression result.
type Notifier interface {
	Publish(userID int, result progression.Result)
}

type ProgressOptions struct {
	// Location is the server timezone for calendar dates.
	Location  *time.Location
	Quests    progression.QuestRewards
	Limits    progression.ActionLimits
	DefaultXP int
	Clock     func() time.Time
}

// OptionsFromConfig converts the progression config section.
func OptionsFromConfig(cfg config.ProgressionConfig) (ProgressOptions, error) {
	loc, err := cfg.Location()
	if err != nil {
		return ProgressOptions{}, err
	}

	limits := make(map[string]int, len(cfg.Actions.Limits))
	for action, limit := range cfg.Actions.Limits {
		limits[strings.ToLower(action)] = limit
	}

	opts := ProgressOptions{
		Location: loc,
		Quests: progression.QuestRewards{
			Daily:  progression.Reward{XP: cfg.Quests.Daily.XP, Points: cfg.Quests.Daily.Points},
			Weekly: progression.Reward{XP: cfg.Quests.Weekly.XP, Points: cfg.Quests.Weekly.Points},
		},
		Limits:    progression.ActionLimits{DefaultMax: cfg.Actions.DefaultMax, Limits: limits},
		DefaultXP: cfg.Actions.DefaultXP,
	}

	if err := opts.Limits.Check(); err != nil {
		return ProgressOptions{}, fmt.Errorf("invalid action limits: %w", err)
	}
	for _, qt := range []progression.QuestType{progression.QuestDaily, progression.QuestWeekly} {
		r := opts.Quests.For(qt)
		if r.XP < 0 || r.Points < 0 || r.XP > progression.MaxReward || r.Points > progression.MaxReward {
			return ProgressOptions{}, fmt.Errorf("%s quest reward must be between 0 and %d", qt, progression.MaxReward)
		}
	}
	if opts.DefaultXP > opts.Limits.Max(DefaultActionType) {
		return ProgressOptions{}, fmt.Errorf("default xp %d exceeds the %q limit", opts.DefaultXP, DefaultActionType)
	}
	return opts, nil
}

// ProgressService is the only writer of user_progress. Each mutation runs in
// one immediate transaction under a per-user lock: the progress row, quest
// completion, unlocks and activity entries commit together or not at all.
type ProgressService struct {
	db           *database.DB
	achievements *AchievementService
	evaluator    *progression.Evaluator
	opts         ProgressOptions
	locks        *userLocks
	notifier     Notifier
}

func NewProgressService(db *database.DB, achievements *AchievementService, evaluator *progression.Evaluator, opts ProgressOptions) *ProgressService {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.DefaultXP <= 0 {
		opts.DefaultXP = 5
	}
	return &ProgressService{
		db:           db,
		achievements: achievements,
		evaluator:    evaluator,
		opts:         opts,
		locks:        newUserLocks(),
	}
}

// SetNotifier registers n to receive results after each commit.
func (s *ProgressService) SetNotifier(n Notifier) {
	s.notifier = n
}

// DefaultXP is the amount credited when a request omits one.
func (s *ProgressService) DefaultXP() int {
	return s.opts.DefaultXP
}

func (s *ProgressService) now() time.Time {
	return s.opts.Clock().In(s.opts.Location)
}

type mutation struct {
	tx        *sqlx.Tx
	userID    int
	now       time.Time
	today     string
	progress  *models.UserProgress
	questType progression.QuestType
	// unchanged makes mutate commit nothing and return the current state.
	unchanged bool
}

// EarnXP credits amount XP for one action.
func (s *ProgressService) EarnXP(ctx context.Context, userID int, actionType string, amount int) (*progression.Result, error) {
	if userID <= 0 {
		return nil, progression.ErrUnauthenticated
	}

	actionType = strings.ToLower(strings.TrimSpace(actionType))
	if actionType == "" {
		actionType = DefaultActionType
	}
	if err := s.opts.Limits.Validate(actionType, amount); err != nil {
		return nil, err
	}

	return s.mutate(ctx, userID, "earn_xp", func(m *mutation) error {
		m.progress.TotalXP = progression.AddXP(m.progress.TotalXP, amount)
		m.progress.ActionsCompleted++
		return bumpDailyActivity(ctx, m.tx, m.userID, m.today, 1, 0)
	})
}

// CompleteQuest claims the quest for the current period. A second claim in
// the same period fails with an already_completed error and changes nothing.
func (s *ProgressService) CompleteQuest(ctx context.Context, userID int, questType string) (*progression.Result, error) {
	if userID <= 0 {
		return nil, progression.ErrUnauthenticated
	}

	qt, err := progression.ParseQuestType(questType)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, userID, "complete_quest", func(m *mutation) error {
		key := progression.PeriodKey(qt, m.now)
		reward := s.opts.Quests.For(qt)

		// The unique index on (user_id, quest_type, period_key) is the check.
		_, err := m.tx.ExecContext(ctx, `
			INSERT INTO quest_completions (user_id, quest_type, period_key, xp_awarded, points_awarded, completed_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, m.userID, string(qt), key, reward.XP, reward.Points, m.now)
		if database.IsUniqueViolation(err) {
			return progression.NewError(progression.KindAlreadyCompleted, qt.ClaimedMessage())
		} else if err != nil {
			return fmt.Errorf("failed to record quest completion: %w", err)
		}

		m.progress.TotalXP = progression.AddXP(m.progress.TotalXP, reward.XP)
		m.progress.Points += reward.Points
		if qt == progression.QuestDaily {
			progression.RecordActivity(m.progress, m.now)
		}
		m.questType = qt

		if err := bumpDailyActivity(ctx, m.tx, m.userID, m.today, 0, 1); err != nil {
			return err
		}
		return s.achievements.RecordActivity(ctx, m.tx, models.Activity{
			UserID:    m.userID,
			Type:      "quest_completed",
			Title:     fmt.Sprintf("Completed the %s quest", qt),
			Details:   fmt.Sprintf("+%d XP, +%d points", reward.XP, reward.Points),
			Icon:      "🗺️",
			CreatedAt: m.now,
		})
	})
}

// SeedDemoProgress gives a demo account that has never been mutated a
// non-empty starting state. Accounts with existing progress keep it and get
// their current state back without a version bump or a push.
func (s *ProgressService) SeedDemoProgress(ctx context.Context, userID int) (*progression.Result, error) {
	return s.mutate(ctx, userID, "seed_demo", func(m *mutation) error {
		if m.progress.Version > 0 {
			m.unchanged = true
			return nil
		}
		m.progress.TotalXP = demoXP
		m.progress.Points = demoPoints
		m.progress.StreakCount = demoStreak
		m.progress.LastActivityDate = m.now.AddDate(0, 0, -1).Format(progression.DateLayout)
		return nil
	})
}

// mutate loads the user's progress, applies fn, evaluates achievements to a
// fixed point and persists everything in one transaction.
func (s *ProgressService) mutate(ctx context.Context, userID int, op string, fn func(m *mutation) error) (*progression.Result, error) {
	log := logger.New().With("user_id", userID).With("op", op)
	if userID <= 0 {
		return nil, progression.ErrUnauthenticated
	}

	release := s.locks.Lock(userID)
	defer release()

	now := s.now()
	var result progression.Result
	unchanged := false

	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		before, err := s.loadProgress(ctx, tx, userID)
		if err != nil {
			return err
		}

		after := *before
		m := &mutation{
			tx:       tx,
			userID:   userID,
			now:      now,
			today:    now.Format(progression.DateLayout),
			progress: &after,
		}
		if err := fn(m); err != nil {
			return err
		}
		if m.unchanged {
			unchanged = true
			result = progression.NewResult(*before, *before, nil)
			return nil
		}
		after.Level = progression.LevelOf(after.TotalXP).Level

		snap, err := s.snapshot(ctx, tx, after)
		if err != nil {
			return err
		}
		unlocked := s.evaluator.Evaluate(snap)
		after = snap.Progress
		after.Level = progression.LevelOf(after.TotalXP).Level
		after.Version = before.Version + 1
		after.UpdatedAt = now

		for _, a := range unlocked {
			if err := s.achievements.Unlock(ctx, tx, userID, a.ID, now); err != nil {
				if database.IsUniqueViolation(err) {
					return progression.Wrap(progression.KindInvariantViolation,
						fmt.Sprintf("achievement %s is already unlocked", a.ID), err)
				}
				return fmt.Errorf("failed to unlock achievement %s: %w", a.ID, err)
			}
			if err := s.achievements.RecordActivity(ctx, tx, models.Activity{
				UserID:    userID,
				Type:      "achievement_unlocked",
				Title:     fmt.Sprintf("Unlocked \"%s\"", a.Name),
				Details:   a.Description,
				Icon:      a.Icon,
				CreatedAt: now,
			}); err != nil {
				return err
			}
		}

		if after.Level > before.Level {
			if err := s.achievements.RecordActivity(ctx, tx, models.Activity{
				UserID:    userID,
				Type:      "level_up",
				Title:     fmt.Sprintf("Reached level %d", after.Level),
				Icon:      "⬆️",
				CreatedAt: now,
			}); err != nil {
				return err
			}
		}

		if err := saveProgress(ctx, tx, &after); err != nil {
			return err
		}

		result = progression.NewResult(*before, after, unlocked)
		result.QuestType = m.questType
		return nil
	})
	if err != nil {
		return nil, s.classify(log, err)
	}
	if unchanged {
		return &result, nil
	}

	log = log.With("xp", result.NewTotalXP).With("level", result.NewLevel)
	if result.LeveledUp {
		log.Info(fmt.Sprintf("Level up from %d", result.PreviousLevel))
	} else {
		log.Debug("Progress updated")
	}
	for _, a := range result.NewlyUnlockedAchievements {
		log.With("achievement", a.ID).Info("Achievement unlocked")
	}

	if s.notifier != nil {
		s.notifier.Publish(userID, result)
	}
	return &result, nil
}

// classify turns storage errors into transient failures and logs the
// failures a client cannot fix. Lock timeouts are expected under load and
// only warned about.
func (s *ProgressService) classify(log *logger.Log, err error) error {
	var perr *progression.Error
	if errors.As(err, &perr) {
		if perr.Kind == progression.KindInvariantViolation {
			log.WithError(err).Error("Progression invariant violated")
		}
		return perr
	}
	if database.IsBusy(err) {
		log.WithError(err).Warn("Progress store busy")
		return progression.Wrap(progression.KindTransientFailure, "progress store is busy", err)
	}
	log.WithError(err).Error("Progress storage failure")
	return progression.Wrap(progression.KindTransientFailure, "failed to update progress", err)
}

// loadProgress returns the user's progress row, creating it on first use,
// and checks that the stored level matches the stored XP.
func (s *ProgressService) loadProgress(ctx context.Context, ext sqlx.ExtContext, userID int) (*models.UserProgress, error) {
	_, err := ext.ExecContext(ctx, `INSERT OR IGNORE INTO user_progress (user_id, updated_at) VALUES (?, ?)`, userID, s.now())
	if database.IsForeignKeyViolation(err) {
		return nil, progression.NewError(progression.KindUnauthenticated, "unknown user")
	} else if err != nil {
		return nil, fmt.Errorf("failed to initialize progress: %w", err)
	}

	var p models.UserProgress
	query := `
		SELECT user_id, total_xp, level, points, streak_count, last_activity_date, actions_completed, version, updated_at
		FROM user_progress WHERE user_id = ?
	`
	if err := sqlx.GetContext(ctx, ext, &p, query, userID); err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}

	if p.TotalXP < 0 || p.TotalXP > progression.MaxTotalXP {
		return nil, progression.NewError(progression.KindInvariantViolation,
			fmt.Sprintf("stored XP %d is outside 0..%d", p.TotalXP, progression.MaxTotalXP))
	}
	if want := progression.LevelOf(p.TotalXP).Level; p.Level != want {
		return nil, progression.NewError(progression.KindInvariantViolation,
			fmt.Sprintf("stored level %d does not match level %d for %d XP", p.Level, want, p.TotalXP))
	}
	return &p, nil
}

func saveProgress(ctx context.Context, ext sqlx.ExtContext, p *models.UserProgress) error {
	query := `
		UPDATE user_progress SET
			total_xp = :total_xp,
			level = :level,
			points = :points,
			streak_count = :streak_count,
			last_activity_date = :last_activity_date,
			actions_completed = :actions_completed,
			version = :version,
			updated_at = :updated_at
		WHERE user_id = :user_id
	`
	if _, err := sqlx.NamedExecContext(ctx, ext, query, p); err != nil {
		return fmt.Errorf("failed to save progress: %w", err)
	}
	return nil
}

func bumpDailyActivity(ctx context.Context, ext sqlx.ExtContext, userID int, date string, actions, quests int) error {
	_, err := ext.ExecContext(ctx, `
		INSERT INTO daily_activity (user_id, date, actions_completed, quests_completed)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, date) DO UPDATE SET
			actions_completed = actions_completed + excluded.actions_completed,
			quests_completed = quests_completed + excluded.quests_completed
	`, userID, date, actions, quests)
	if err != nil {
		return fmt.Errorf("failed to update daily activity: %w", err)
	}
	return nil
}

func (s *ProgressService) snapshot(ctx context.Context, q sqlx.QueryerContext, p models.UserProgress) (*progression.Snapshot, error) {
	var counts struct {
		Total  int `db:"total"`
		Weekly int `db:"weekly"`
	}
	query := `
		SELECT COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN quest_type = 'weekly' THEN 1 ELSE 0 END), 0) AS weekly
		FROM quest_completions WHERE user_id = ?
	`
	if err := sqlx.GetContext(ctx, q, &counts, query, p.UserID); err != nil {
		return nil, fmt.Errorf("failed to count quests: %w", err)
	}

	unlocked, err := s.achievements.UnlockedIDs(ctx, q, p.UserID)
	if err != nil {
		return nil, err
	}

	return &progression.Snapshot{
		Progress:         p,
		QuestCount:       counts.Total,
		WeeklyQuestCount: counts.Weekly,
		Unlocked:         unlocked,
	}, nil
}

// GetProgress returns the user's current progress row.
func (s *ProgressService) GetProgress(ctx context.Context, userID int) (*models.UserProgress, error) {
	if userID <= 0 {
		return nil, progression.ErrUnauthenticated
	}
	p, err := s.loadProgress(ctx, s.db.DB, userID)
	if err != nil {
		return nil, s.classify(logger.New().With("user_id", userID).With("op", "get_progress"), err)
	}
	return p, nil
}

type QuestAvailability struct {
	PeriodKey string             `json:"period_key"`
	Available bool               `json:"available"`
	Reward    progression.Reward `json:"reward"`
}

// QuestStatus reports whether each quest can still be claimed this period.
type QuestStatus struct {
	Daily  QuestAvailability `json:"daily"`
	Weekly QuestAvailability `json:"weekly"`
}

func (s *ProgressService) QuestStatus(ctx context.Context, userID int) (*QuestStatus, error) {
	if userID <= 0 {
		return nil, progression.ErrUnauthenticated
	}

	now := s.now()
	availability := func(qt progression.QuestType) (QuestAvailability, error) {
		key := progression.PeriodKey(qt, now)
		var n int
		err := s.db.GetContext(ctx, &n, `
			SELECT COUNT(*) FROM quest_completions WHERE user_id = ? AND quest_type = ? AND period_key = ?
		`, userID, string(qt), key)
		if err != nil {
			return QuestAvailability{}, progression.Wrap(progression.KindTransientFailure, "failed to read quest status", err)
		}
		return QuestAvailability{PeriodKey: key, Available: n == 0, Reward: s.opts.Quests.For(qt)}, nil
	}

	daily, err := availability(progression.QuestDaily)
	if err != nil {
		return nil, err
	}
	weekly, err := availability(progression.QuestWeekly)
	if err != nil {
		return nil, err
	}
	return &QuestStatus{Daily: daily, Weekly: weekly}, nil
}

// Dashboard is the read model behind GET /api/v1/progress.
type Dashboard struct {
	Progress           *models.UserProgress         `json:"progress"`
	Level              progression.Progress         `json:"level_progress"`
	ProgressPercent    int                          `json:"progress_percent"`
	Today              models.DailyActivity         `json:"today"`
	Quests             *QuestStatus                 `json:"quests"`
	RecentAchievements []models.UserAchievementView `json:"recent_achievements"`
}

func (s *ProgressService) Dashboard(ctx context.Context, userID int) (*Dashboard, error) {
	p, err := s.GetProgress(ctx, userID)
	if err != nil {
		return nil, err
	}

	info := progression.LevelOf(p.TotalXP)
	today := models.DailyActivity{UserID: userID, Date: s.now().Format(progression.DateLayout)}
	err = s.db.GetContext(ctx, &today, `
		SELECT user_id, date, actions_completed, quests_completed
		FROM daily_activity WHERE user_id = ? AND date = ?
	`, userID, today.Date)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, progression.Wrap(progression.KindTransientFailure, "failed to read daily activity", err)
	}

	quests, err := s.QuestStatus(ctx, userID)
	if err != nil {
		return nil, err
	}

	recent, err := s.achievements.GetRecentUnlocks(ctx, userID, 5)
	if err != nil {
		return nil, progression.Wrap(progression.KindTransientFailure, "failed to read achievements", err)
	}

	return &Dashboard{
		Progress:           p,
		Level:              info.Progress,
		ProgressPercent:    info.Percent(),
		Today:              today,
		Quests:             quests,
		RecentAchievements: recent,
	}, nil
}

// Achievements returns the full catalog with the user's unlock state and
// current progress toward each requirement.
func (s *ProgressService) Achievements(ctx context.Context, userID int) ([]models.UserAchievementView, error) {
	_, views, err := s.readAchievements(ctx, userID, "get_achievements")
	return views, err
}

// readAchievements reads the progress row and the unlock state in one
// transaction so both describe the same version.
func (s *ProgressService) readAchievements(ctx context.Context, userID int, op string) (*models.UserProgress, []models.UserAchievementView, error) {
	if userID <= 0 {
		return nil, nil, progression.ErrUnauthenticated
	}

	var (
		p     *models.UserProgress
		views []models.UserAchievementView
	)
	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		if p, err = s.loadProgress(ctx, tx, userID); err != nil {
			return err
		}
		if views, err = s.achievements.GetUserAchievements(ctx, tx, userID); err != nil {
			return err
		}
		snap, err := s.snapshot(ctx, tx, *p)
		if err != nil {
			return err
		}
		for i := range views {
			v := &views[i]
			v.Progress = min(progression.Measure(v.Achievement, snap), v.Threshold)
		}
		return nil
	})
	if err != nil {
		return nil, nil, s.classify(logger.New().With("user_id", userID).With("op", op), err)
	}
	return p, views, nil
}

// Profile is the read model behind GET /api/v1/profile.
type Profile struct {
	User         *models.User                 `json:"user,omitempty"`
	Progress     *models.UserProgress         `json:"progress"`
	Level        progression.Progress         `json:"level_progress"`
	Achievements []models.UserAchievementView `json:"achievements"`
}

// Profile returns the progress snapshot and the full set of unlocked
// achievements.
func (s *ProgressService) Profile(ctx context.Context, userID int) (*Profile, error) {
	p, all, err := s.readAchievements(ctx, userID, "get_profile")
	if err != nil {
		return nil, err
	}

	unlocked := []models.UserAchievementView{}
	for _, v := range all {
		if v.Unlocked {
			unlocked = append(unlocked, v)
		}
	}
	return &Profile{
		Progress:     p,
		Level:        progression.LevelOf(p.TotalXP).Progress,
		Achievements: unlocked,
	}, nil
}
