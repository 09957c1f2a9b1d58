package service

import (
	"context"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"dapurpos/backend/internal/domain"
	"dapurpos/backend/internal/feed"
	"dapurpos/backend/internal/store"
	"dapurpos/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// Policy carries the configured business inputs of the fulfillment pipeline.
// The mechanics below must hold for any values supplied here.
type Policy struct {
	BranchID         string
	TaxRatePercent   decimal.Decimal
	PointsPerUnit    int
	CurrencyUnit     decimal.Decimal
	DailyPointsLimit int
	AllowOversell    bool
}

type Service struct {
	repo   store.Repository
	pub    feed.Publisher
	policy Policy
}

func New(repo store.Repository, pub feed.Publisher, policy Policy) *Service {
	if policy.BranchID == "" {
		policy.BranchID = "main-branch"
	}
	if policy.CurrencyUnit.Sign() <= 0 {
		policy.CurrencyUnit = decimal.NewFromInt(10)
	}
	if policy.DailyPointsLimit < 1 {
		policy.DailyPointsLimit = 1000
	}
	if pub == nil {
		pub = feed.NoopPublisher{}
	}

	return &Service{
		repo:   repo,
		pub:    pub,
		policy: policy,
	}
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		BranchID:      s.policy.BranchID,
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		log.Printf("[audit] WARN: failed to write audit log action=%s entity=%s/%s: %v", action, entityType, entityID, err)
	}
}

// publish pushes a mutation event to the change feed. Delivery is
// best-effort: a failed publish never fails the originating operation.
func (s *Service) publish(ctx context.Context, kind string, entityID string, payload any) {
	err := s.pub.Publish(ctx, feed.Event{
		Kind:     kind,
		EntityID: entityID,
		Payload:  payload,
		At:       time.Now().UTC(),
	})
	if err != nil {
		log.Printf("[feed] WARN: failed to publish %s for %s: %v", kind, entityID, err)
	}
}

func (s *Service) ListAuditLogs(ctx context.Context, date string, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}

	var from time.Time
	if date == "" {
		from = time.Now().UTC().Add(-24 * time.Hour)
	} else {
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			return nil, store.ErrValidation
		}
		from = parsed.UTC()
	}
	to := from.Add(24 * time.Hour)

	return s.repo.ListAuditLogs(ctx, s.policy.BranchID, from, to, limit)
}
