// Package resolve decides which source records refer to the same real-world
// person or business. Records are blocked by zip + last-name prefix, scored
// pairwise inside each block, and merged through union-find over auto-merge
// decisions. A run either completes and publishes a whole new graph snapshot
// or fails and leaves the prior snapshot untouched.
package resolve

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"unigraph/internal/graph"
	"unigraph/internal/normalize"
	"unigraph/pkg/domain"
	dErrors "unigraph/pkg/domain-errors"
	"unigraph/pkg/platform/sentinel"
	"unigraph/pkg/requestcontext"
)

// recordDecisionFloor: compared pairs scoring below this produce no decision
// record at all. Keeps the decision log focused on pairs a human could
// conceivably care about; the raw scores still participate in the spanning
// check.
const recordDecisionFloor = 0.30

// ExplicitEdge is a relationship supplied by explicit ingestion rather than
// inference, addressed by source record because entity IDs are assigned per
// run.
type ExplicitEdge struct {
	From domain.RecordRef
	To   domain.RecordRef
	Kind domain.EdgeKind

	OwnershipPct float64
	Role         string
}

// Service runs resolution and owns the decision log. One run executes at a
// time; reviewer transitions interleave safely with runs.
type Service struct {
	logger *slog.Logger
	store  *graph.Store

	mu        sync.Mutex
	decisions map[string]*Decision
	// approved and rejectedPairs carry reviewer verdicts across runs, keyed
	// by pair key.
	approved      map[string]bool
	rejectedPairs map[string]bool
}

func NewService(store *graph.Store, logger *slog.Logger) *Service {
	return &Service{
		logger:        logger,
		store:         store,
		decisions:     make(map[string]*Decision),
		approved:      make(map[string]bool),
		rejectedPairs: make(map[string]bool),
	}
}

// Run resolves the given raw records and atomically replaces the graph
// snapshot. Malformed records are skipped and reported, not fatal. On any
// error (including cancellation) nothing is published and the prior snapshot
// keeps serving.
func (s *Service) Run(ctx context.Context, raws []normalize.RawRecord, explicit []ExplicitEdge) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := &Result{RunID: uuid.NewString()}

	var records []normalize.Record
	for _, raw := range raws {
		rec, err := normalize.Normalize(raw)
		if err != nil {
			result.Skipped = append(result.Skipped, SkippedRecord{
				Source:  raw.Source,
				LocalID: raw.LocalID,
				Reason:  err.Error(),
			})
			s.logger.WarnContext(ctx, "record excluded from resolution",
				"source", raw.Source.String(),
				"local_id", raw.LocalID,
				"error", err.Error(),
			)
			continue
		}
		records = append(records, rec)
	}

	scores, decisions, compared, err := s.scoreBlocks(ctx, buildBlocks(records))
	if err != nil {
		return nil, err
	}
	result.Decisions = decisions
	result.ComparedPairs = compared

	partition := s.partition(decisions, scores)

	snapshot, err := buildSnapshot(records, partition, explicit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "build snapshot")
	}
	if err := ctx.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "resolution cancelled")
	}

	// Publish. Everything before this line is side-effect free on readers.
	s.store.Swap(snapshot)
	s.retireSupersededQueued(decisions)
	for _, d := range decisions {
		s.decisions[d.ID] = d
	}
	result.Snapshot = snapshot

	s.logger.InfoContext(ctx, "resolution run complete",
		"run_id", result.RunID,
		"records", len(records),
		"skipped", len(result.Skipped),
		"compared_pairs", compared,
		"entities", snapshot.Len(),
	)
	return result, nil
}

// scoreBlocks scores every candidate pair, one worker per block. Blocks are
// independent; the shared maps are merged under a lock per block so scoring
// inside a block stays serialized with respect to the shared state.
func (s *Service) scoreBlocks(ctx context.Context, blocks []block) (map[string]float64, []*Decision, int, error) {
	var (
		mu        sync.Mutex
		scores    = make(map[string]float64)
		decisions []*Decision
		compared  int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, b := range blocks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var localDecisions []*Decision
			localScores := make(map[string]float64)
			pairs := b.pairs()
			for _, pair := range pairs {
				score := Score(pair.A, pair.B)
				localScores[pair.Key()] = score.Total
				if score.Total < recordDecisionFloor {
					continue
				}
				d := &Decision{
					ID:    uuid.NewString(),
					Pair:  pair,
					Score: score,
					State: StatePending,
				}
				if err := d.transition(Disposition(score.Total)); err != nil {
					return err
				}
				localDecisions = append(localDecisions, d)
			}
			mu.Lock()
			for k, v := range localScores {
				scores[k] = v
			}
			decisions = append(decisions, localDecisions...)
			compared += len(pairs)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "scoring failed")
	}

	sort.Slice(decisions, func(i, j int) bool { return decisions[i].Pair.Key() < decisions[j].Pair.Key() })
	return scores, decisions, compared, nil
}

// mergeEdge is one merge-eligible pairwise decision.
type mergeEdge struct {
	key   string
	a, b  string
	score float64
}

// partition applies the spanning policy: merge edges are taken in descending
// score order (pair key breaks ties), and an edge is skipped when any
// compared pair across the two clusters it would join scored below the
// auto-merge threshold. A component whose every compared pair cleared the
// threshold therefore merges whole; mixed components split along their
// highest-confidence edges. Reviewer-approved pairs never veto: their queued
// score is below the threshold by construction.
func (s *Service) partition(decisions []*Decision, scores map[string]float64) *unionFind {
	uf := newUnionFind()
	members := make(map[string][]string)

	var edges []mergeEdge
	for _, d := range decisions {
		key := d.Pair.Key()
		aRef, bRef := d.Pair.A.Ref().String(), d.Pair.B.Ref().String()
		uf.add(aRef)
		uf.add(bRef)
		if s.rejectedPairs[key] && d.State == StateQueued {
			d.State = StateRejected
		}
		eligible := d.State == StateAutoMerged && !s.rejectedPairs[key]
		if s.approved[key] {
			if d.State == StateQueued {
				d.State = StateMerged
			}
			eligible = d.State == StateAutoMerged || d.State == StateMerged
		}
		if eligible {
			edges = append(edges, mergeEdge{key: key, a: aRef, b: bRef, score: d.Score.Total})
		}
	}

	sort.Slice(edges, func(i, j int) bool {
		if edges[i].score != edges[j].score {
			return edges[i].score > edges[j].score
		}
		return edges[i].key < edges[j].key
	})

	for _, e := range edges {
		ra, rb := uf.find(e.a), uf.find(e.b)
		if ra == rb {
			continue
		}
		if s.crossPairsClear(members[ra], members[rb], e.a, e.b, scores) {
			uf.union(e.a, e.b)
			root := uf.find(e.a)
			merged := append(append([]string{}, clusterOf(members, ra, e.a)...), clusterOf(members, rb, e.b)...)
			delete(members, ra)
			delete(members, rb)
			members[root] = merged
		}
	}
	return uf
}

func clusterOf(members map[string][]string, root, self string) []string {
	if m := members[root]; m != nil {
		return m
	}
	return []string{self}
}

// crossPairsClear checks every compared pair across the two clusters. A pair
// the blocking step never compared does not constrain the merge; a compared
// pair below the threshold vetoes it. Reviewer-approved pairs are exempt:
// the human verdict outranks the score that queued them, which is always
// below the threshold.
func (s *Service) crossPairsClear(left, right []string, a, b string, scores map[string]float64) bool {
	if left == nil {
		left = []string{a}
	}
	if right == nil {
		right = []string{b}
	}
	for _, l := range left {
		for _, r := range right {
			key := pairKey(l, r)
			if s.approved[key] {
				continue
			}
			if score, compared := scores[key]; compared && score < autoMergeThreshold {
				return false
			}
		}
	}
	return true
}

// retireSupersededQueued drops still-queued decisions for pairs the current
// run re-scored. Each pair keeps at most one live queue entry; reviewed
// decisions stay for their audit trail.
func (s *Service) retireSupersededQueued(fresh []*Decision) {
	rescored := make(map[string]bool, len(fresh))
	for _, d := range fresh {
		rescored[d.Pair.Key()] = true
	}
	for id, d := range s.decisions {
		if d.State == StateQueued && rescored[d.Pair.Key()] {
			delete(s.decisions, id)
		}
	}
}

func pairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "~" + b
}

// Decision returns one decision by ID.
func (s *Service) Decision(id string) (*Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.decisions[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return d, nil
}

// Queued lists decisions awaiting human review, in pair-key order.
func (s *Service) Queued() []*Decision {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Decision
	for _, d := range s.decisions {
		if d.State == StateQueued {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pair.Key() < out[j].Pair.Key() })
	return out
}

// Review applies a human verdict to a queued decision. Approval merges the
// pair on the next resolution run; rejection pins it separate. Terminal
// decisions cannot be re-reviewed.
func (s *Service) Review(ctx context.Context, decisionID, reviewer string, approve bool) (*Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.decisions[decisionID]
	if !ok {
		return nil, dErrors.Wrap(sentinel.ErrNotFound, dErrors.CodeNotFound, "unknown decision "+decisionID)
	}

	next := StateRejected
	if approve {
		next = StateMerged
	}
	if err := d.transition(next); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "review not allowed")
	}
	d.ReviewedBy = reviewer
	d.ReviewedAt = requestcontext.Now(ctx)

	if approve {
		s.approved[d.Pair.Key()] = true
	} else {
		s.rejectedPairs[d.Pair.Key()] = true
	}

	s.logger.InfoContext(ctx, "match decision reviewed",
		"decision_id", d.ID,
		"reviewer", reviewer,
		"state", string(d.State),
	)
	return d, nil
}

// lastNameOf falls back to the full name for single-token names so blocking
// and surname search behave for mononyms and businesses.
func lastNameOf(n normalize.Name) string {
	if n.Last != "" {
		return n.Last
	}
	return strings.TrimSpace(n.Full)
}
