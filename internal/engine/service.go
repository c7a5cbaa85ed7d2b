package engine

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"go.uber.org/zap"

	"tracktivity/internal/metrics"
	"tracktivity/internal/storage"
)

// RecapCache stores computed weekly recaps. Get reports false on a miss.
type RecapCache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
}

type Service struct {
	db      *sql.DB
	clock   Clock
	rng     Random
	log     *zap.Logger
	metrics *metrics.Recorder
	cache   RecapCache
	recap   RecapOptions
}

type Option func(*Service)

func WithClock(c Clock) Option               { return func(s *Service) { s.clock = c } }
func WithRandom(r Random) Option             { return func(s *Service) { s.rng = r } }
func WithLogger(l *zap.Logger) Option        { return func(s *Service) { s.log = l } }
func WithMetrics(m *metrics.Recorder) Option { return func(s *Service) { s.metrics = m } }
func WithRecapCache(c RecapCache) Option     { return func(s *Service) { s.cache = c } }
func WithRecapOptions(o RecapOptions) Option { return func(s *Service) { s.recap = o } }

func NewService(db *sql.DB, opts ...Option) *Service {
	s := &Service{
		db:    db,
		clock: systemClock{},
		rng:   NewRandom(),
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// Repos returns repos bound to the database outside any transaction.
func (s *Service) Repos() *storage.Repos { return storage.NewRepos(s.db) }

func (s *Service) now() time.Time { return s.clock.Now().UTC() }

// atomic runs fn in one transaction; every mutating operation goes through it.
func (s *Service) atomic(ctx context.Context, fn func(r *storage.Repos) error) error {
	return storage.Atomic(ctx, s.db, fn)
}

func normalizeTitle(title string) (string, error) {
	t := strings.TrimSpace(title)
	if t == "" {
		return "", ValidationError{Field: "title", Reason: "is required"}
	}
	return t, nil
}

func normalizeUser(userID string) (string, error) {
	u := strings.TrimSpace(userID)
	if u == "" {
		return "", ValidationError{Field: "user", Reason: "is required"}
	}
	return u, nil
}

func (s *Service) getProfile(ctx context.Context, r *storage.Repos, userID string) (*storage.Profile, error) {
	p, created, err := r.Profiles.GetOrCreate(ctx, userID, s.now())
	if err != nil {
		return nil, err
	}
	if created {
		s.log.Info("profile_created", zap.String("user", userID))
	}
	return p, nil
}

// grantXP adds xp to p and logs every level reached. It returns the number
// of level-ups.
func (s *Service) grantXP(ctx context.Context, r *storage.Repos, p *storage.Profile, xp int) (int, error) {
	levels := AddXP(p, xp)
	now := s.now()
	for _, lvl := range levels {
		if _, err := r.LevelLogs.Insert(ctx, storage.LevelLog{UserID: p.UserID, Level: lvl, CreatedAt: now}); err != nil {
			return 0, err
		}
		s.log.Info("level_up", zap.String("user", p.UserID), zap.Int("level", lvl))
	}
	s.metrics.LevelUps(len(levels))
	return len(levels), nil
}

// damage applies hp loss attributed to source.
func (s *Service) damage(p *storage.Profile, source string, hp int) bool {
	knockedOut := LoseHealth(p, hp)
	s.metrics.Damage(source, hp)
	if knockedOut {
		s.metrics.Knockout()
		s.log.Info("knocked_out", zap.String("user", p.UserID), zap.String("source", source), zap.Int("level", p.Level))
	}
	return knockedOut
}

// celebrate moves the avatar after a grant, the way every reward path does.
func celebrate(p *storage.Profile, levelUp bool, xp, coins int) {
	switch {
	case levelUp, xp > 0, coins > 0:
		p.AvatarState = string(AvatarCelebrating)
	case p.AvatarState == string(AvatarHurt):
		p.AvatarState = string(AvatarIdle)
	}
}
