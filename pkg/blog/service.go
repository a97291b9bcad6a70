package blog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"campusblog/pkg/logger"
	"campusblog/pkg/user"
)

type (
	Store interface {
		Insert(context.Context, *Blog) error
		GetById(context.Context, primitive.ObjectID) (*Blog, error)
		Find(context.Context, Filter) ([]*Blog, error)
		Update(context.Context, primitive.ObjectID, Patch, time.Time) (*Blog, error)
		Upvote(context.Context, primitive.ObjectID) (*Blog, error)
		Delete(context.Context, primitive.ObjectID) (*Blog, error)
	}

	OwnerSource interface {
		GetOwner(context.Context, string) (*user.Owner, error)
	}

	// StatsScheduler asks for the owner's counter of type t to be
	// recomputed later.
	StatsScheduler interface {
		Schedule(ctx context.Context, ownerId string, t Type) error
	}
)

var validationMessages = map[string]string{
	"Title.required": "A post must have a title",
	"Title.max":      "A post title must not exceed 50 characters",
	"Text.required":  "A blog must have a description",
	"Status.oneof":   "Choose only open or close",
	"Type.required":  "Blog must be a complaint or an article",
	"Type.oneof":     "Choose either complaint or article",
	"User.required":  "A blog must belong to a user!",
}

type Service struct {
	store    Store
	owners   OwnerSource
	stats    StatsScheduler
	cache    OwnerCache
	validate *validator.Validate
	newSlug  func() string
	now      func() time.Time
	create   *Pipeline
}

type Option func(*Service)

func WithOwnerCache(c OwnerCache) Option {
	return func(s *Service) { s.cache = c }
}

func WithSlugFunc(f func() string) Option {
	return func(s *Service) { s.newSlug = f }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService wires the creation pipeline:
// defaults → validate → identity → owner → persist → stats.
// stats may be nil, then counters are left to the reconciler.
func NewService(store Store, owners OwnerSource, stats StatsScheduler, opts ...Option) *Service {
	s := &Service{
		store:    store,
		owners:   owners,
		stats:    stats,
		validate: validator.New(),
		newSlug:  uuid.NewString,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.create = NewPipeline(
		Stage{Name: "defaults", Run: s.applyDefaults},
		Stage{Name: "validate", Run: s.validateBlog},
		Stage{Name: "identity", Run: s.assignIdentity},
		Stage{Name: "owner", Run: s.checkOwner},
		Stage{Name: "persist", Run: s.store.Insert},
		Stage{Name: "stats", Run: s.scheduleStats, BestEffort: true},
	)
	return s
}

func (s *Service) Create(ctx context.Context, b *Blog) (*Blog, error) {
	if err := s.create.Run(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Service) Get(ctx context.Context, id primitive.ObjectID) (*Blog, error) {
	b, err := s.store.GetById(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.enrich(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Service) List(ctx context.Context, f Filter) ([]*Blog, error) {
	blogs, err := s.store.Find(ctx, f)
	if err != nil {
		return nil, err
	}
	if err := s.enrich(ctx, blogs...); err != nil {
		return nil, err
	}
	return blogs, nil
}

// Update changes the editable fields. It doesn't touch the statistics: type
// and owner can't change.
func (s *Service) Update(ctx context.Context, id primitive.ObjectID, p Patch) (*Blog, error) {
	if p.Empty() {
		return nil, ErrEmptyPatch
	}
	current, err := s.store.GetById(ctx, id)
	if err != nil {
		return nil, err
	}
	p.apply(current)
	if err := s.validateBlog(ctx, current); err != nil {
		return nil, err
	}

	normalized := Patch{Tags: p.Tags, Status: p.Status}
	if p.Title != nil {
		normalized.Title = &current.Title
	}
	if p.Text != nil {
		normalized.Text = &current.Text
	}
	updated, err := s.store.Update(ctx, id, normalized, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.enrich(ctx, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) Upvote(ctx context.Context, id primitive.ObjectID) (*Blog, error) {
	b, err := s.store.Upvote(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.enrich(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Delete removes the blog and schedules a recompute for its owner so the
// counters keep matching what is stored.
func (s *Service) Delete(ctx context.Context, id primitive.ObjectID) error {
	b, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if err := s.scheduleStats(ctx, b); err != nil {
		logger.Log(ctx).Errorw("blog/service: can't schedule stats after delete",
			"blog", id.Hex(), "user", b.UserId, "error", err)
	}
	return nil
}

func (s *Service) applyDefaults(_ context.Context, b *Blog) error {
	b.Title = strings.TrimSpace(b.Title)
	b.Text = strings.TrimSpace(b.Text)
	if b.Status == "" {
		b.Status = StatusOpen
	}
	return nil
}

func (s *Service) validateBlog(_ context.Context, b *Blog) error {
	err := s.validate.Struct(b)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	vErr := &ValidationError{}
	for _, fe := range verrs {
		msg, ok := validationMessages[fe.Field()+"."+fe.Tag()]
		if !ok {
			msg = fe.Error()
		}
		vErr.Messages = append(vErr.Messages, msg)
	}
	return vErr
}

// assignIdentity runs once, for blogs that were never stored.
func (s *Service) assignIdentity(_ context.Context, b *Blog) error {
	if !b.Id.IsZero() {
		return fmt.Errorf("blog %s is already stored", b.Id.Hex())
	}
	now := s.now()
	b.Id = primitive.NewObjectID()
	b.Slug = s.newSlug()
	b.UserId = b.User
	b.Upvotes = 0
	b.CreatedAt = now
	b.ChangedAt = now
	return nil
}

func (s *Service) checkOwner(ctx context.Context, b *Blog) error {
	o, err := s.owner(ctx, b.User)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrOwnerNotFound
		}
		return err
	}
	b.Author = o
	return nil
}

func (s *Service) scheduleStats(ctx context.Context, b *Blog) error {
	if s.stats == nil {
		return nil
	}
	return s.stats.Schedule(ctx, b.UserId, b.Type)
}

// enrich attaches the owner projection to every blog. Each distinct owner is
// loaded once; owners missing from the users store leave Author nil.
func (s *Service) enrich(ctx context.Context, blogs ...*Blog) error {
	ids := lo.Uniq(lo.FilterMap(blogs, func(b *Blog, _ int) (string, bool) {
		return b.User, b.User != ""
	}))

	owners := make(map[string]*user.Owner, len(ids))
	for _, id := range ids {
		o, err := s.owner(ctx, id)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				continue
			}
			return fmt.Errorf("blog/service: can't load owner %s: %w", id, err)
		}
		owners[id] = o
	}

	for _, b := range blogs {
		b.Author = owners[b.User]
	}
	return nil
}

func (s *Service) owner(ctx context.Context, id string) (*user.Owner, error) {
	if s.cache != nil {
		if o, err := s.cache.Get(ctx, ownerKey(id)); err == nil && o != nil {
			return o, nil
		}
	}
	o, err := s.owners.GetOwner(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, ownerKey(id), o); err != nil {
			logger.Log(ctx).Warnf("blog/service: can't cache owner %s: %v", id, err)
		}
	}
	return o, nil
}
