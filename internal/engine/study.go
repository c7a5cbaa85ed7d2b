package engine

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"tracktivity/internal/storage"
)

const (
	DefaultStudySubject = "General"
	DefaultStudyColor   = "#ffffff"
)

// studyPalette hands out colors to subjects started without one.
var studyPalette = []string{
	DefaultStudyColor,
	"#e57373", "#64b5f6", "#81c784", "#ffb74d", "#ba68c8",
	"#4db6ac", "#f06292", "#a1887f", "#90a4ae", "#dce775",
}

// freeColor returns the first palette color no subject holds this month, or
// DefaultStudyColor when all are taken.
func freeColor(colors []storage.SubjectColor) string {
	used := make(map[string]bool, len(colors))
	for _, c := range colors {
		used[c.Color] = true
	}
	for _, c := range studyPalette {
		if !used[c] {
			return c
		}
	}
	return DefaultStudyColor
}

type StartStudyInput struct {
	Subject         string `validate:"max=100"`
	Color           string `validate:"omitempty,rgbcolor"`
	CarryOverColors bool
}

type StartResult struct {
	SessionID      int64  `json:"session_id"`
	Subject        string `json:"subject"`
	Color          string `json:"color"`
	SubjectChanged bool   `json:"subject_changed"`
}

type StopResult struct {
	SessionID       int64   `json:"session_id"`
	DurationMinutes int     `json:"duration_minutes"`
	XPEarned        int     `json:"xp_earned"`
	CoinsEarned     int     `json:"coins_earned"`
	LevelUp         bool    `json:"level_up"`
	Hours           float64 `json:"hours"`
}

type CarryOverResult struct {
	Count  int
	Legend map[string]string
}

// ColorLegend is one month's subject to color mapping.
type ColorLegend struct {
	Year       int
	Month      int
	Legend     map[string]string
	UsedColors []string
}

type StudyStatsQuery struct {
	Weekly bool
	// Offset counts months (or weeks when Weekly) back from the current one
	// when negative.
	Offset int
}

type StudyStats struct {
	Weekly     bool
	Start      time.Time
	End        time.Time
	ByDay      map[string]map[string]float64
	BySubject  map[string]float64
	Sessions   []storage.StudySession
	Legend     map[string]string
	TotalHours float64
}

func monthWindow(t time.Time) (start, end time.Time) {
	start = startOfMonth(t)
	return start, start.AddDate(0, 1, 0)
}

func yearMonth(t time.Time) (int, int) {
	return t.Year(), int(t.Month())
}

func legendOf(colors []storage.SubjectColor) map[string]string {
	out := make(map[string]string, len(colors))
	for _, c := range colors {
		out[c.Subject] = c.Color
	}
	return out
}

// copyLastMonthColors copies the previous month's mappings into the month of
// now, keeping any subject that already has a color. It returns how many
// mappings were created.
func (s *Service) copyLastMonthColors(ctx context.Context, r *storage.Repos, userID string, now time.Time) (int, int, error) {
	y, m := yearMonth(now)
	py, pm := yearMonth(startOfMonth(now).AddDate(0, -1, 0))
	prev, err := r.Study.ListColors(ctx, userID, py, pm)
	if err != nil {
		return 0, 0, err
	}
	created := 0
	for _, c := range prev {
		ok, err := r.Study.InsertColorIfMissing(ctx, storage.SubjectColor{
			UserID:    userID,
			Subject:   c.Subject,
			Color:     c.Color,
			Year:      y,
			Month:     m,
			CreatedAt: now,
		})
		if err != nil {
			return 0, 0, err
		}
		if ok {
			created++
		}
	}
	return created, len(prev), nil
}

// StartStudy opens a new session, closing any running one without a reward.
// A color already bound to another subject this month wins: the session is
// recorded under that subject and SubjectChanged is set.
func (s *Service) StartStudy(ctx context.Context, userID string, in StartStudyInput) (*StartResult, error) {
	userID, err := normalizeUser(userID)
	if err != nil {
		return nil, err
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	subject := strings.TrimSpace(in.Subject)
	if subject == "" {
		subject = DefaultStudySubject
	}
	color := strings.ToLower(strings.TrimSpace(in.Color))

	res := &StartResult{}
	err = s.atomic(ctx, func(r *storage.Repos) error {
		p, err := s.getProfile(ctx, r, userID)
		if err != nil {
			return err
		}
		if _, err := r.Study.DeactivateAll(ctx, userID); err != nil {
			return err
		}

		now := s.now()
		y, m := yearMonth(now)
		from, to := monthWindow(now)

		if in.CarryOverColors {
			finished, err := r.Study.HasFinishedBetween(ctx, userID, from, to)
			if err != nil {
				return err
			}
			current, err := r.Study.ListColors(ctx, userID, y, m)
			if err != nil {
				return err
			}
			if !finished && len(current) == 0 {
				n, _, err := s.copyLastMonthColors(ctx, r, userID, now)
				if err != nil {
					return err
				}
				s.log.Info("study_colors_carried_over", zap.String("user", userID), zap.Int("count", n))
			}
		}

		// Without an explicit color the subject keeps this month's color or
		// takes a free one. Only a requested color can move the session to
		// another subject.
		requested := color != ""
		if !requested {
			known, err := r.Study.ColorForSubject(ctx, userID, subject, y, m)
			if err != nil {
				return err
			}
			if known != nil {
				color = known.Color
			} else {
				colors, err := r.Study.ListColors(ctx, userID, y, m)
				if err != nil {
					return err
				}
				color = freeColor(colors)
			}
		}

		var owner *storage.SubjectColor
		if requested {
			owner, err = r.Study.ColorOwner(ctx, userID, color, subject, y, m)
			if err != nil {
				return err
			}
		}
		if owner != nil {
			subject = owner.Subject
			color = owner.Color
			res.SubjectChanged = true
		} else if err := r.Study.UpsertColor(ctx, storage.SubjectColor{
			UserID:    userID,
			Subject:   subject,
			Color:     color,
			Year:      y,
			Month:     m,
			CreatedAt: now,
		}); err != nil {
			return err
		}

		id, err := r.Study.InsertSession(ctx, storage.StudySession{
			UserID:    userID,
			Subject:   subject,
			Color:     color,
			StartTime: now,
		})
		if err != nil {
			return err
		}

		p.AvatarState = string(AvatarStudying)
		res.SessionID = id
		res.Subject = subject
		res.Color = color
		return r.Profiles.Update(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("study_started",
		zap.String("user", userID),
		zap.Int64("session_id", res.SessionID),
		zap.String("subject", res.Subject),
		zap.Bool("subject_changed", res.SubjectChanged),
	)
	return res, nil
}

// stopActive finishes the running session and grants the study reward. It
// returns nil when nothing is running.
func (s *Service) stopActive(ctx context.Context, r *storage.Repos, userID string) (*StopResult, error) {
	sess, err := r.Study.Active(ctx, userID)
	if err != nil || sess == nil {
		return nil, err
	}

	now := s.now()
	minutes := int(math.Round(now.Sub(sess.StartTime).Minutes()))
	if minutes < 0 {
		minutes = 0
	}
	sess.EndTime = &now
	sess.DurationMinutes = &minutes
	sess.Active = false
	if err := r.Study.Finish(ctx, sess); err != nil {
		return nil, err
	}

	p, err := s.getProfile(ctx, r, userID)
	if err != nil {
		return nil, err
	}
	p.AvatarState = string(AvatarIdle)

	res := &StopResult{SessionID: sess.ID, DurationMinutes: minutes}
	if minutes > 0 {
		hours := float64(minutes) / 60
		p.AllTimeHoursStudied += hours

		dayStart := startOfDay(now)
		today, err := r.Study.ListFinishedBetween(ctx, userID, dayStart, dayStart.AddDate(0, 0, 1))
		if err != nil {
			return nil, err
		}
		totalMinutes := 0
		for _, t := range today {
			if t.DurationMinutes != nil {
				totalMinutes += *t.DurationMinutes
			}
		}

		reward := StudyReward(hours, float64(totalMinutes)/60)
		levelUps, err := s.grantXP(ctx, r, p, reward.XP)
		if err != nil {
			return nil, err
		}
		AddCoins(p, reward.Coins)
		celebrate(p, levelUps > 0, reward.XP, reward.Coins)
		s.metrics.Reward("study", reward.XP, reward.Coins)

		res.XPEarned = reward.XP
		res.CoinsEarned = reward.Coins
		res.LevelUp = levelUps > 0
		res.Hours = math.Round(hours*100) / 100
	}
	if err := r.Profiles.Update(ctx, p); err != nil {
		return nil, err
	}
	return res, nil
}

// StopStudy finishes the running session.
func (s *Service) StopStudy(ctx context.Context, userID string) (*StopResult, error) {
	var res *StopResult
	err := s.atomic(ctx, func(r *storage.Repos) error {
		var err error
		res, err = s.stopActive(ctx, r, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, InvalidStateError{Op: "stop study", Reason: "no active study session"}
	}
	s.log.Info("study_stopped",
		zap.String("user", userID),
		zap.Int64("session_id", res.SessionID),
		zap.Int("minutes", res.DurationMinutes),
		zap.Int("xp", res.XPEarned),
		zap.Int("coins", res.CoinsEarned),
	)
	return res, nil
}

// ActiveStudySession returns the running session, or nil.
func (s *Service) ActiveStudySession(ctx context.Context, userID string) (*storage.StudySession, error) {
	return s.Repos().Study.Active(ctx, userID)
}

// CarryOverColors copies last month's legend into the current month. It is
// only allowed before the first finished session of the month.
func (s *Service) CarryOverColors(ctx context.Context, userID string) (*CarryOverResult, error) {
	res := &CarryOverResult{}
	err := s.atomic(ctx, func(r *storage.Repos) error {
		now := s.now()
		from, to := monthWindow(now)
		finished, err := r.Study.HasFinishedBetween(ctx, userID, from, to)
		if err != nil {
			return err
		}
		if finished {
			return InvalidStateError{Op: "carry over colors", Reason: "not the first session of the month"}
		}
		n, prev, err := s.copyLastMonthColors(ctx, r, userID, now)
		if err != nil {
			return err
		}
		if prev == 0 {
			return InvalidStateError{Op: "carry over colors", Reason: "no colors to carry over from last month"}
		}
		y, m := yearMonth(now)
		colors, err := r.Study.ListColors(ctx, userID, y, m)
		if err != nil {
			return err
		}
		res.Count = n
		res.Legend = legendOf(colors)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("study_colors_carried_over", zap.String("user", userID), zap.Int("count", res.Count))
	return res, nil
}

// SubjectColors returns the legend of the current month, or of the previous
// one when lastMonth is set.
func (s *Service) SubjectColors(ctx context.Context, userID string, lastMonth bool) (*ColorLegend, error) {
	month := startOfMonth(s.now())
	if lastMonth {
		month = month.AddDate(0, -1, 0)
	}
	y, m := yearMonth(month)
	colors, err := s.Repos().Study.ListColors(ctx, userID, y, m)
	if err != nil {
		return nil, err
	}

	out := &ColorLegend{Year: y, Month: m, Legend: legendOf(colors)}
	seen := map[string]bool{}
	for _, c := range colors {
		if !seen[c.Color] {
			seen[c.Color] = true
			out.UsedColors = append(out.UsedColors, c.Color)
		}
	}
	sort.Strings(out.UsedColors)
	return out, nil
}

// UpdateSubjectColors replaces the current month's legend. renames maps a new
// subject name to its old one and is applied to sessions and colors first;
// subjects missing from legend are then dropped.
func (s *Service) UpdateSubjectColors(ctx context.Context, userID string, legend, renames map[string]string) error {
	for subject, color := range legend {
		if strings.TrimSpace(subject) == "" {
			return ValidationError{Field: "subject", Reason: "is required"}
		}
		if err := validate.Var(color, "rgbcolor"); err != nil {
			return ValidationError{Field: "color", Reason: "must be a #rrggbb color"}
		}
	}

	newNames := make([]string, 0, len(renames))
	for n := range renames {
		newNames = append(newNames, n)
	}
	sort.Strings(newNames)

	return s.atomic(ctx, func(r *storage.Repos) error {
		now := s.now()
		y, m := yearMonth(now)
		from, to := monthWindow(now)

		for _, newName := range newNames {
			oldName := renames[newName]
			if oldName == newName {
				continue
			}
			if err := r.Study.RenameSubject(ctx, userID, oldName, newName, from, to); err != nil {
				return err
			}
			if err := r.Study.RenameColorSubject(ctx, userID, oldName, newName, y, m); err != nil {
				return err
			}
		}

		for subject, color := range legend {
			if err := r.Study.UpsertColor(ctx, storage.SubjectColor{
				UserID:    userID,
				Subject:   subject,
				Color:     strings.ToLower(color),
				Year:      y,
				Month:     m,
				CreatedAt: now,
			}); err != nil {
				return err
			}
		}

		existing, err := r.Study.ListColors(ctx, userID, y, m)
		if err != nil {
			return err
		}
		for _, c := range existing {
			if _, keep := legend[c.Subject]; keep {
				continue
			}
			if err := r.Study.DeleteColor(ctx, userID, c.Subject, y, m); err != nil {
				return err
			}
		}
		return nil
	})
}

// StudyStats aggregates finished sessions of one calendar month, or of one
// Monday-to-Sunday week when q.Weekly is set.
func (s *Service) StudyStats(ctx context.Context, userID string, q StudyStatsQuery) (*StudyStats, error) {
	now := s.now()
	out := &StudyStats{
		Weekly:    q.Weekly,
		ByDay:     map[string]map[string]float64{},
		BySubject: map[string]float64{},
		Legend:    map[string]string{},
	}
	if q.Weekly {
		out.Start = startOfWeek(now).AddDate(0, 0, 7*q.Offset)
		out.End = out.Start.AddDate(0, 0, 7)
	} else {
		out.Start = startOfMonth(now).AddDate(0, q.Offset, 0)
		out.End = out.Start.AddDate(0, 1, 0)
	}

	r := s.Repos()
	sessions, err := r.Study.ListFinishedBetween(ctx, userID, out.Start, out.End)
	if err != nil {
		return nil, err
	}
	out.Sessions = sessions

	y, m := yearMonth(out.Start)
	colors, err := r.Study.ListColors(ctx, userID, y, m)
	if err != nil {
		return nil, err
	}
	if q.Weekly {
		inWeek := map[string]bool{}
		for _, sess := range sessions {
			inWeek[sess.Subject] = true
		}
		ey, em := yearMonth(out.End.Add(-time.Nanosecond))
		if ey != y || em != m {
			next, err := r.Study.ListColors(ctx, userID, ey, em)
			if err != nil {
				return nil, err
			}
			colors = append(colors, next...)
		}
		for _, c := range colors {
			if _, ok := out.Legend[c.Subject]; ok || !inWeek[c.Subject] {
				continue
			}
			out.Legend[c.Subject] = c.Color
		}
	} else {
		out.Legend = legendOf(colors)
	}
	for subject := range out.Legend {
		out.BySubject[subject] = 0
	}

	totalMinutes := 0
	for _, sess := range sessions {
		minutes := 0
		if sess.DurationMinutes != nil {
			minutes = *sess.DurationMinutes
		}
		totalMinutes += minutes
		hours := float64(minutes) / 60

		day := startOfDay(sess.StartTime).Format(time.DateOnly)
		if out.ByDay[day] == nil {
			out.ByDay[day] = map[string]float64{}
		}
		out.ByDay[day][sess.Subject] += hours
		out.BySubject[sess.Subject] += hours
	}
	out.TotalHours = math.Round(float64(totalMinutes)/60*100) / 100
	return out, nil
}
