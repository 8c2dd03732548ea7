package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dmitrijs2005/logmoments/internal/client/models"
	"github.com/dmitrijs2005/logmoments/internal/client/photos"
	"github.com/dmitrijs2005/logmoments/internal/client/repositories/moments"
	"github.com/dmitrijs2005/logmoments/internal/client/staging"
	"github.com/dmitrijs2005/logmoments/internal/common"
	"github.com/dmitrijs2005/logmoments/internal/logging"
	"github.com/olebedev/when"
	whencommon "github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// ErrUnknownTime is returned when a backdating phrase cannot be parsed.
var ErrUnknownTime = errors.New("could not understand the time")

// MomentService is the capture and browsing surface of the client.
type MomentService interface {
	Capture(ctx context.Context, in CaptureInput) (CaptureResult, error)
	Timeline(ctx context.Context) ([]*models.Moment, error)
	Get(ctx context.Context, id int64) (*models.Moment, error)
	Delete(ctx context.Context, id int64) error
	Insights(ctx context.Context) (Insights, error)
	// ImportStaged moves moments captured while the store was down into it.
	ImportStaged(ctx context.Context) (int, error)
}

type CaptureInput struct {
	Content string
	// Feeling is detected from Content when empty.
	Feeling string
	Photo   []byte
	// When backdates the moment, e.g. "yesterday at 9pm". Empty means now.
	When string
}

type CaptureResult struct {
	Moment *models.Moment
	// Staged is set when the moment went to the staging buffer instead of
	// the local store; OfflineID then names it.
	Staged    bool
	OfflineID string
	// Sync holds the result of the follow-up cycle when one ran.
	Sync *models.SyncResult
}

type Insights struct {
	Total    int
	LastWeek int
	Moods    map[string]int
	TopMood  string
}

// MomentStore is the part of store.Store the service needs.
type MomentStore interface {
	Moments() (moments.Repository, error)
}

// MomentSyncer is the part of syncer.Engine the service needs.
type MomentSyncer interface {
	SyncOfflineData(ctx context.Context) models.SyncResult
	DeleteMoment(ctx context.Context, id int64) error
	StorageMode(ctx context.Context) models.StorageMode
}

// UserSource is satisfied by AuthService.
type UserSource interface {
	CurrentUserID(ctx context.Context) (string, error)
}

type Connectivity interface {
	Online() bool
}

type CaptureNotifier interface {
	MomentCaptured(ctx context.Context)
}

type MomentDeps struct {
	Store    MomentStore
	Staging  *staging.Buffer
	Syncer   MomentSyncer
	Users    UserSource
	Network  Connectivity
	Notifier CaptureNotifier
	Log      logging.Logger
}

type momentService struct {
	d      MomentDeps
	log    logging.Logger
	parser *when.Parser
	now    func() time.Time
}

func NewMomentService(d MomentDeps) MomentService {
	log := d.Log
	if log == nil {
		log = logging.Nop()
	}
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(whencommon.All...)
	return &momentService{d: d, log: log.With("module", "moments"), parser: w, now: time.Now}
}

func (s *momentService) clock() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func (s *momentService) user(ctx context.Context) (string, error) {
	id, err := s.d.Users.CurrentUserID(ctx)
	if err != nil || id == "" {
		return "", common.ErrNoUser
	}
	return id, nil
}

// resolveWhen turns a backdating phrase into an instant relative to now.
// Moments cannot be dated in the future.
func (s *momentService) resolveWhen(phrase string, now time.Time) (time.Time, error) {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" {
		return now, nil
	}
	r, err := s.parser.Parse(phrase, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrUnknownTime, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnknownTime, phrase)
	}
	t := r.Time.UTC().Truncate(time.Millisecond)
	if t.After(now) {
		return time.Time{}, fmt.Errorf("%w: %q is in the future", ErrUnknownTime, phrase)
	}
	return t, nil
}

func (s *momentService) Capture(ctx context.Context, in CaptureInput) (CaptureResult, error) {
	content := models.SanitizeContent(in.Content)
	if content == "" {
		return CaptureResult{}, common.ErrEmptyContent
	}
	feeling := models.SanitizeFeeling(in.Feeling)
	if feeling == "" {
		feeling = DetectMood(content)
	}
	if len(in.Photo) > 0 {
		if _, err := photos.Validate(in.Photo); err != nil {
			return CaptureResult{}, err
		}
	}
	user, err := s.user(ctx)
	if err != nil {
		return CaptureResult{}, err
	}
	now := s.clock()
	created, err := s.resolveWhen(in.When, now)
	if err != nil {
		return CaptureResult{}, err
	}

	m := &models.Moment{
		Content:   content,
		Feeling:   feeling,
		Photo:     in.Photo,
		CreatedAt: created,
		UpdatedAt: created,
		UserID:    user,
		Status:    models.StatusPending,
	}

	var res CaptureResult
	repo, err := s.d.Store.Moments()
	if err == nil {
		m.ID, err = repo.Add(ctx, m)
	}
	if err != nil {
		if s.d.Staging == nil {
			return CaptureResult{}, err
		}
		s.log.Warn(ctx, "local store unavailable, staging moment", "error", err)
		staged, serr := s.d.Staging.SaveMoment(ctx, models.OfflineMoment{
			Content:   content,
			Feeling:   feeling,
			Photo:     in.Photo,
			CreatedAt: created,
			UserID:    user,
		})
		if serr != nil {
			return CaptureResult{}, errors.Join(err, serr)
		}
		res.Staged, res.OfflineID = true, staged.ID
	}
	res.Moment = m

	if s.d.Notifier != nil {
		s.d.Notifier.MomentCaptured(ctx)
	}

	if !res.Staged && s.d.Syncer != nil && s.d.Network != nil && s.d.Network.Online() &&
		s.d.Syncer.StorageMode(ctx) == models.StorageCloud {
		r := s.d.Syncer.SyncOfflineData(ctx)
		res.Sync = &r
	}
	return res, nil
}

func (s *momentService) Timeline(ctx context.Context) ([]*models.Moment, error) {
	user, err := s.user(ctx)
	if err != nil {
		return nil, err
	}
	repo, err := s.d.Store.Moments()
	if err != nil {
		return nil, err
	}
	return repo.ListByUser(ctx, user)
}

func (s *momentService) Get(ctx context.Context, id int64) (*models.Moment, error) {
	repo, err := s.d.Store.Moments()
	if err != nil {
		return nil, err
	}
	return repo.Get(ctx, id)
}

func (s *momentService) Delete(ctx context.Context, id int64) error {
	return s.d.Syncer.DeleteMoment(ctx, id)
}

func (s *momentService) Insights(ctx context.Context) (Insights, error) {
	list, err := s.Timeline(ctx)
	if err != nil {
		return Insights{}, err
	}
	weekAgo := s.clock().AddDate(0, 0, -7)

	in := Insights{Total: len(list), Moods: map[string]int{}}
	for _, m := range list {
		if !m.CreatedAt.Before(weekAgo) {
			in.LastWeek++
		}
		if m.Feeling != "" {
			in.Moods[m.Feeling]++
		}
	}
	in.TopMood = topMood(in.Moods)
	return in, nil
}

// topMood returns the most frequent mood; ties go to the alphabetically
// first name.
func topMood(counts map[string]int) string {
	names := make([]string, 0, len(counts))
	for k := range counts {
		names = append(names, k)
	}
	sort.Strings(names)
	best := ""
	for _, n := range names {
		if best == "" || counts[n] > counts[best] {
			best = n
		}
	}
	return best
}

func (s *momentService) ImportStaged(ctx context.Context) (int, error) {
	if s.d.Staging == nil {
		return 0, nil
	}
	repo, err := s.d.Store.Moments()
	if err != nil {
		return 0, err
	}
	n, err := s.d.Staging.Drain(ctx, func(ctx context.Context, om models.OfflineMoment) error {
		_, err := repo.Add(ctx, &models.Moment{
			Content:   om.Content,
			Feeling:   om.Feeling,
			Photo:     om.Photo,
			CreatedAt: om.CreatedAt,
			UpdatedAt: om.CreatedAt,
			UserID:    om.UserID,
			Status:    models.StatusPending,
		})
		return err
	})
	if n > 0 {
		s.log.Info(ctx, "imported staged moments", "count", n)
	}
	return n, err
}
