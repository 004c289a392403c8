package services

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/zatekoja/bloodlink/internal/domain/entities"
	"github.com/zatekoja/bloodlink/internal/domain/providers"
	"github.com/zatekoja/bloodlink/internal/domain/repositories"
	"github.com/zatekoja/bloodlink/internal/domain/rules"
	"github.com/zatekoja/bloodlink/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/bloodlink/pkg/errors"
)

const (
	// matchesCacheKey holds the administrator match list
	matchesCacheKey = "matches:all"

	// matchesCachePattern covers every cached match list
	matchesCachePattern = "matches:*"
)

// MatchingService proposes donor/recipient pairings. It reads through the
// store only and never writes.
type MatchingService struct {
	base
	store    repositories.Store
	cache    providers.CacheProvider
	cacheTTL int

	// generation is bumped by every invalidation; a match list computed
	// across a bump is not cached
	cacheMu    sync.Mutex
	generation uint64
}

// NewMatchingService creates a new matching service. A nil cache disables
// caching of the administrator match list.
func NewMatchingService(store repositories.Store, cache providers.CacheProvider, cacheTTLSeconds int, opts ...Option) *MatchingService {
	return &MatchingService{
		base:     newBase(opts),
		store:    store,
		cache:    cache,
		cacheTTL: cacheTTLSeconds,
	}
}

// GetCompatibleRecipients lists the recipients a donor of the given blood
// type can give to, leaving out recipients who already received a completed
// transfusion. Results are ordered by urgency, then score, then name.
func (s *MatchingService) GetCompatibleRecipients(ctx context.Context, donorBloodType entities.BloodType) ([]*entities.Recipient, error) {
	bt, err := entities.ParseBloodType(string(donorBloodType))
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	ranked, err := s.rankRecipients(ctx, &entities.Donor{BloodType: bt})
	if err != nil {
		return nil, err
	}

	recipients := make([]*entities.Recipient, len(ranked))
	for i, c := range ranked {
		recipients[i] = c.Recipient
	}
	return recipients, nil
}

// GetCompatibleRecipientsForDonor is GetCompatibleRecipients for a stored
// donor, scored against that donor's donation history
func (s *MatchingService) GetCompatibleRecipientsForDonor(ctx context.Context, donorID string) ([]*entities.MatchCandidate, error) {
	donor, err := s.store.Donors().GetByID(ctx, donorID)
	if err != nil {
		return nil, err
	}
	return s.rankRecipients(ctx, donor)
}

// GetAllMatches pairs every available donor with every compatible recipient,
// highest score first. Recipients with completed referrals are included.
func (s *MatchingService) GetAllMatches(ctx context.Context) ([]*entities.MatchCandidate, error) {
	ctx, span := observability.StartSpan(ctx, "MatchingService.GetAllMatches")
	defer span.End()

	if cached, ok := s.cachedMatches(ctx); ok {
		observability.SetSpanAttributes(span, attribute.Bool("cache.hit", true))
		return cached, nil
	}
	generation := s.cacheGeneration()

	var (
		donors     []*entities.Donor
		recipients []*entities.Recipient
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		donors, err = s.store.Donors().List(gctx, repositories.DonorFilter{})
		return err
	})
	g.Go(func() error {
		var err error
		recipients, err = s.store.Recipients().List(gctx, repositories.RecipientFilter{})
		return err
	})
	if err := g.Wait(); err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	now := s.now()
	matches := make([]*entities.MatchCandidate, 0)
	for _, donor := range donors {
		// Availability is derived here rather than trusting the stored flag.
		if !rules.ComputeAvailability(donor.LastDonationDate, now) {
			continue
		}
		donor.IsAvailable = true
		for _, recipient := range recipients {
			if !rules.IsCompatible(donor.BloodType, recipient.BloodType) {
				continue
			}
			matches = append(matches, &entities.MatchCandidate{
				Donor:              donor,
				Recipient:          recipient,
				CompatibilityScore: rules.Score(donor, recipient, now),
				Status:             entities.ReferralStatusPending,
			})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.CompatibilityScore != b.CompatibilityScore {
			return a.CompatibilityScore > b.CompatibilityScore
		}
		if a.Donor.Name != b.Donor.Name {
			return a.Donor.Name < b.Donor.Name
		}
		return a.Recipient.Name < b.Recipient.Name
	})

	observability.RecordMatchesComputed(ctx, s.metrics, "all", len(matches))
	s.storeMatches(ctx, generation, matches)
	return matches, nil
}

// InvalidateMatches drops every cached match list, including one still
// being computed
func (s *MatchingService) InvalidateMatches(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.generation++
	return s.cache.DeletePattern(ctx, matchesCachePattern)
}

func (s *MatchingService) cacheGeneration() uint64 {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	return s.generation
}

func (s *MatchingService) rankRecipients(ctx context.Context, donor *entities.Donor) ([]*entities.MatchCandidate, error) {
	ctx, span := observability.StartSpan(ctx, "MatchingService.rankRecipients")
	defer span.End()
	observability.SetSpanAttributes(span, attribute.String("donor.blood_type", string(donor.BloodType)))

	var (
		recipients []*entities.Recipient
		completed  []*entities.Referral
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		recipients, err = s.store.Recipients().List(gctx, repositories.RecipientFilter{
			BloodTypes: rules.CompatibleRecipientTypes(donor.BloodType),
		})
		return err
	})
	g.Go(func() error {
		var err error
		completed, err = s.store.Referrals().List(gctx, repositories.ReferralFilter{
			Status: entities.ReferralStatusCompleted,
		})
		return err
	})
	if err := g.Wait(); err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	served := make(map[string]bool, len(completed))
	for _, ref := range completed {
		served[ref.RecipientID] = true
	}

	now := s.now()
	candidates := make([]*entities.MatchCandidate, 0, len(recipients))
	for _, recipient := range recipients {
		if served[recipient.ID] || !rules.IsCompatible(donor.BloodType, recipient.BloodType) {
			continue
		}
		candidates = append(candidates, &entities.MatchCandidate{
			Donor:              donor,
			Recipient:          recipient,
			CompatibilityScore: rules.Score(donor, recipient, now),
			Status:             entities.ReferralStatusPending,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if ra, rb := a.Recipient.Urgency.Rank(), b.Recipient.Urgency.Rank(); ra != rb {
			return ra > rb
		}
		if a.CompatibilityScore != b.CompatibilityScore {
			return a.CompatibilityScore > b.CompatibilityScore
		}
		return a.Recipient.Name < b.Recipient.Name
	})

	observability.RecordMatchesComputed(ctx, s.metrics, "donor", len(candidates))
	return candidates, nil
}

func (s *MatchingService) cachedMatches(ctx context.Context) ([]*entities.MatchCandidate, bool) {
	if s.cache == nil {
		return nil, false
	}

	data, err := s.cache.Get(ctx, matchesCacheKey)
	if err != nil {
		if !errors.Is(err, providers.ErrCacheMiss) {
			log.Warn().Err(err).Msg("match cache read failed")
		}
		observability.RecordCacheMiss(ctx, s.metrics, matchesCacheKey)
		return nil, false
	}

	var matches []*entities.MatchCandidate
	if err := json.Unmarshal(data, &matches); err != nil {
		log.Warn().Err(err).Msg("discarding unreadable match cache entry")
		observability.RecordCacheMiss(ctx, s.metrics, matchesCacheKey)
		return nil, false
	}
	observability.RecordCacheHit(ctx, s.metrics, matchesCacheKey)
	return matches, true
}

func (s *MatchingService) storeMatches(ctx context.Context, generation uint64, matches []*entities.MatchCandidate) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(matches)
	if err != nil {
		log.Warn().Err(err).Msg("failed to encode matches for cache")
		return
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.generation != generation {
		log.Debug().Msg("match list invalidated while computing, not caching")
		return
	}
	if err := s.cache.Set(ctx, matchesCacheKey, data, s.cacheTTL); err != nil {
		log.Warn().Err(err).Str("key", matchesCacheKey).Msg("failed to cache matches")
	}
}
