package assemble

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"unigraph/internal/assemble/metrics"
	"unigraph/internal/graph"
	"unigraph/internal/vault"
	"unigraph/pkg/domain"
	dErrors "unigraph/pkg/domain-errors"
	"unigraph/pkg/requestcontext"
)

// Service answers assembler queries against the current graph snapshot.
// Reads are lock-free; each call pins one snapshot for its whole duration,
// so a concurrent resolution swap never tears a response.
type Service struct {
	graph   *graph.Store
	vault   *vault.Service
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

func NewService(g *graph.Store, v *vault.Service, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		graph:   g,
		vault:   v,
		logger:  logger,
		metrics: m,
		tracer:  otel.Tracer("unigraph/assemble"),
	}
}

// Customer360 builds one entity's profile, redacted to the caller's
// entitlement.
func (s *Service) Customer360(ctx context.Context, req GetCustomer360) (*Customer360, error) {
	ctx, span := s.tracer.Start(ctx, "assemble.get_customer_360")
	defer span.End()
	defer s.observe(req.QueryType(), time.Now())

	if err := req.Validate(); err != nil {
		return nil, s.audit(ctx, req, nil, nil, err)
	}
	perm := requestcontext.Permission(ctx)
	if !perm.IsValid() {
		return nil, s.audit(ctx, req, nil, nil, unknownPermissionError(perm))
	}
	snap := s.graph.Snapshot()

	entity, err := s.resolveOne(snap, req.IDOrName)
	if err != nil {
		return nil, s.audit(ctx, req, nil, nil, err)
	}
	span.SetAttributes(attribute.String("entity.id", string(entity.ID)))

	visible := visibleSources(entity, perm)
	if len(visible) == 0 {
		return nil, s.audit(ctx, req, []domain.EntityID{entity.ID}, nil, permissionDeniedError(perm, entity.ID))
	}

	out := &Customer360{
		EntityID:      entity.ID,
		EntityType:    entity.Kind,
		CanonicalName: entity.CanonicalName,
		DateOfBirth:   entity.DateOfBirth,
		TaxIDLast4:    entity.TaxIDLast4,
		Addresses:     entity.Addresses,
		Phones:        entity.Phones,
		Emails:        entity.Emails,
		DataSources:   visible,
	}

	for _, src := range visible {
		accounts := entity.Accounts[src]
		if len(accounts) == 0 {
			continue
		}
		if out.Accounts == nil {
			out.Accounts = make(map[domain.SourceSystem][]AccountView)
		}
		for _, acct := range accounts {
			out.Accounts[src] = append(out.Accounts[src], AccountView{
				Type:    acct.Type,
				Number:  acct.Number,
				Balance: acct.Balance,
			})
			if acct.Balance > 0 {
				out.TotalValue += acct.Balance
			}
		}
	}

	touched := []domain.EntityID{entity.ID}
	neighbors, err := snap.Neighbors(entity.ID, "")
	if err != nil {
		return nil, s.audit(ctx, req, touched, visible, err)
	}
	for _, n := range neighbors {
		switch {
		case n.Edge.Kind.Familial():
			out.Household = append(out.Household, RelationView{
				EntityID: n.Entity.ID,
				Name:     n.Entity.CanonicalName,
				Kind:     n.Edge.Kind,
			})
			touched = append(touched, n.Entity.ID)
		case n.Edge.Kind == domain.EdgeBusinessOwner && perm.CanSee(domain.SourceCommercial):
			// Ownership edges are commercial data; redacted entirely for
			// callers without commercial entitlement.
			out.BusinessConnections = append(out.BusinessConnections, BusinessConnection{
				EntityID:     n.Entity.ID,
				Name:         n.Entity.CanonicalName,
				Role:         n.Edge.Role,
				OwnershipPct: n.Edge.OwnershipPct,
			})
			touched = append(touched, n.Entity.ID)
		}
	}

	if err := s.audit(ctx, req, touched, visible, nil); err != nil {
		return nil, err
	}
	return out, nil
}

// HouseholdSummary aggregates a surname's household: per-member personal
// totals over entitled sources, connected businesses, and the money roll-up,
// all in cents.
func (s *Service) HouseholdSummary(ctx context.Context, req GetHouseholdSummary) (*HouseholdSummary, error) {
	ctx, span := s.tracer.Start(ctx, "assemble.get_household_summary")
	defer span.End()
	defer s.observe(req.QueryType(), time.Now())

	if err := req.Validate(); err != nil {
		return nil, s.audit(ctx, req, nil, nil, err)
	}
	perm := requestcontext.Permission(ctx)
	if !perm.IsValid() {
		return nil, s.audit(ctx, req, nil, nil, unknownPermissionError(perm))
	}
	snap := s.graph.Snapshot()

	seeds := snap.FindByName(req.LastName, true)
	if len(seeds) == 0 {
		return nil, s.audit(ctx, req, nil, nil, notFoundError("household", req.LastName))
	}

	// Union of every seed's household closure.
	memberSet := make(map[domain.EntityID]*graph.Entity)
	for _, seed := range seeds {
		closure, err := snap.Household(seed.ID)
		if err != nil {
			return nil, s.audit(ctx, req, nil, nil, err)
		}
		for _, e := range closure {
			if e.Kind == domain.KindPerson {
				memberSet[e.ID] = e
			}
		}
	}

	members := make([]*graph.Entity, 0, len(memberSet))
	for _, e := range memberSet {
		members = append(members, e)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })

	out := &HouseholdSummary{HouseholdName: canonicalSurname(req.LastName) + " HOUSEHOLD"}
	touched := make([]domain.EntityID, 0, len(members))
	queried := make(map[domain.SourceSystem]bool)

	for _, m := range members {
		var aum domain.Cents
		var count int
		for _, src := range perm.EntitledSources() {
			for _, acct := range m.Accounts[src] {
				if acct.Balance > 0 {
					aum += acct.Balance
				}
				count++
			}
			if len(m.Accounts[src]) > 0 {
				queried[src] = true
			}
		}
		out.Members = append(out.Members, HouseholdMember{
			Name:          m.CanonicalName,
			EntityID:      m.ID,
			PersonalAUM:   aum,
			AccountsCount: count,
		})
		out.Totals.PersonalAUM += aum
		touched = append(touched, m.ID)
	}

	// Connected businesses, with the household's aggregate ownership per
	// business. Commercial data: fully redacted without that entitlement.
	if perm.CanSee(domain.SourceCommercial) {
		type bizAgg struct {
			entity *graph.Entity
			role   string
			pct    float64
		}
		aggs := make(map[domain.EntityID]*bizAgg)
		var bizOrder []domain.EntityID
		for _, m := range members {
			neighbors, err := snap.Neighbors(m.ID, domain.EdgeBusinessOwner)
			if err != nil {
				return nil, s.audit(ctx, req, touched, sortedSources(queried), err)
			}
			for _, n := range neighbors {
				agg, ok := aggs[n.Entity.ID]
				if !ok {
					agg = &bizAgg{entity: n.Entity, role: n.Edge.Role}
					aggs[n.Entity.ID] = agg
					bizOrder = append(bizOrder, n.Entity.ID)
				}
				agg.pct += n.Edge.OwnershipPct
			}
		}
		sort.Slice(bizOrder, func(i, j int) bool { return bizOrder[i] < bizOrder[j] })

		for _, id := range bizOrder {
			agg := aggs[id]
			out.ConnectedBusinesses = append(out.ConnectedBusinesses, HouseholdBusiness{
				Name:         agg.entity.CanonicalName,
				Role:         agg.role,
				OwnershipPct: agg.pct,
			})
			out.Totals.BusinessExposure += ownershipShare(agg.entity.NetValue(), agg.pct)
			touched = append(touched, id)
			for _, src := range visibleSources(agg.entity, perm) {
				queried[src] = true
			}
		}
	}

	out.Totals.TotalRelationshipValue = out.Totals.PersonalAUM + out.Totals.BusinessExposure
	out.Totals.MemberCount = len(out.Members)
	out.Totals.BusinessCount = len(out.ConnectedBusinesses)
	span.SetAttributes(
		attribute.Int("household.members", out.Totals.MemberCount),
		attribute.Int("household.businesses", out.Totals.BusinessCount),
	)

	if err := s.audit(ctx, req, touched, sortedSources(queried), nil); err != nil {
		return nil, err
	}
	return out, nil
}

// SearchEntities scans canonical names for the query. The result is a plain
// finite slice; callers re-issue the search rather than paginate.
func (s *Service) SearchEntities(ctx context.Context, req SearchEntities) ([]EntitySummary, error) {
	ctx, span := s.tracer.Start(ctx, "assemble.search_entities")
	defer span.End()
	defer s.observe(req.QueryType(), time.Now())

	if err := req.Validate(); err != nil {
		return nil, s.audit(ctx, req, nil, nil, err)
	}
	perm := requestcontext.Permission(ctx)
	if !perm.IsValid() {
		return nil, s.audit(ctx, req, nil, nil, unknownPermissionError(perm))
	}
	snap := s.graph.Snapshot()

	var out []EntitySummary
	var touched []domain.EntityID
	queried := make(map[domain.SourceSystem]bool)
	for _, e := range snap.Search(req.Query) {
		visible := visibleSources(e, perm)
		if len(visible) == 0 {
			// Entities entirely outside the caller's entitlement do not
			// appear in search results at all.
			continue
		}
		var total domain.Cents
		for _, src := range visible {
			total += e.SourceValue(src)
		}
		out = append(out, EntitySummary{
			EntityID:    e.ID,
			Name:        e.CanonicalName,
			EntityType:  e.Kind,
			DataSources: visible,
			TotalValue:  total,
		})
		touched = append(touched, e.ID)
		for _, src := range visible {
			queried[src] = true
		}
	}
	span.SetAttributes(attribute.Int("search.hits", len(out)))

	if err := s.audit(ctx, req, touched, sortedSources(queried), nil); err != nil {
		return nil, err
	}
	return out, nil
}

// resolveOne maps an ID-or-name to exactly one entity. A well-formed entity
// ID resolves directly; otherwise exact surname matches are tried first, then
// a canonical-name scan. More than one unrelated hit is ambiguous.
func (s *Service) resolveOne(snap *graph.Snapshot, idOrName string) (*graph.Entity, error) {
	if domain.IsEntityID(idOrName) {
		id, err := domain.ParseEntityID(idOrName)
		if err != nil {
			return nil, err
		}
		e, err := snap.Entity(id)
		if err != nil {
			return nil, notFoundError("entity", idOrName)
		}
		return e, nil
	}

	candidates := snap.FindByName(idOrName, true)
	if len(candidates) == 0 {
		candidates = snap.Search(idOrName)
	}
	switch len(candidates) {
	case 0:
		return nil, notFoundError("entity", idOrName)
	case 1:
		return candidates[0], nil
	default:
		return nil, ambiguousError(idOrName, len(candidates))
	}
}

// audit seals the access record before any result is released. A vault
// failure wins over whatever the call was about to return: an access that
// cannot be logged does not happen. sources lists the source systems the
// call actually read, not the caller's full entitlement.
func (s *Service) audit(ctx context.Context, req Request, touched []domain.EntityID, sources []domain.SourceSystem, callErr error) error {
	entry := vault.Entry{
		CallerID:   requestcontext.CallerID(ctx),
		Permission: requestcontext.Permission(ctx),
		QueryType:  req.QueryType(),
		Query:      req.QueryString(),
		Entities:   touched,
		Sources:    sources,
		Outcome:    outcomeOf(callErr),
	}
	if _, err := s.vault.Append(ctx, entry); err != nil {
		s.logger.ErrorContext(ctx, "audit append failed, withholding result",
			"query_type", req.QueryType(),
			"caller_id", entry.CallerID,
			"error", err,
		)
		if s.metrics != nil {
			s.metrics.Requests.WithLabelValues(req.QueryType(), "audit_failed").Inc()
		}
		return err
	}
	if s.metrics != nil {
		s.metrics.Requests.WithLabelValues(req.QueryType(), entry.Outcome).Inc()
	}
	return callErr
}

func (s *Service) observe(tool string, start time.Time) {
	if s.metrics != nil {
		s.metrics.Duration.WithLabelValues(tool).Observe(time.Since(start).Seconds())
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case dErrors.HasCode(err, dErrors.CodeInvalidInput):
		return outcomeInvalidInput
	case dErrors.HasCode(err, dErrors.CodeNotFound):
		return outcomeNotFound
	case dErrors.HasCode(err, dErrors.CodeAmbiguous):
		return outcomeAmbiguous
	case dErrors.HasCode(err, dErrors.CodePermissionDenied):
		return outcomePermissionDenied
	default:
		return "error"
	}
}

// visibleSources intersects an entity's source systems with the caller's
// entitlement, in stable order.
func visibleSources(e *graph.Entity, perm domain.Permission) []domain.SourceSystem {
	var out []domain.SourceSystem
	for _, src := range e.Sources() {
		if perm.CanSee(src) {
			out = append(out, src)
		}
	}
	return out
}

// sortedSources flattens a queried-source set into deterministic order for
// the audit record. Empty sets stay nil.
func sortedSources(set map[domain.SourceSystem]bool) []domain.SourceSystem {
	if len(set) == 0 {
		return nil
	}
	out := make([]domain.SourceSystem, 0, len(set))
	for src := range set {
		out = append(out, src)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ownershipShare is pct percent of value, rounded to the nearest cent.
func ownershipShare(value domain.Cents, pct float64) domain.Cents {
	return domain.Cents(math.Round(float64(value) * pct / 100))
}

func canonicalSurname(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
