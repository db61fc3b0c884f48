// Package insight turns vector-space analytics into structured findings
// and hands them to the rendering collaborator for prose. The engine
// supplies only dimension lists and counts; the wording comes back from
// the renderer along with any dimension tags it echoes.
package insight

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/mostlycached/grain/internal/dimension"
	"github.com/mostlycached/grain/internal/render"
	"github.com/mostlycached/grain/internal/session"
	"github.com/mostlycached/grain/internal/vector"
	"github.com/mostlycached/grain/internal/vectorspace"
)

// Kind names the three finding shapes.
type Kind string

const (
	KindSessionComparison Kind = "session_comparison"
	KindWeekly            Kind = "weekly"
	KindNextSuggestion    Kind = "next_suggestion"
)

const (
	comparisonNeighbors = 5
	weeklyClusters      = 4
	varianceExtremes    = 3
	suggestionWindow    = 10

	// Centroid magnitude below which a dimension counts as underexplored.
	underexploredThreshold = 0.2
)

// Finding is a structured analytics result. Narrative and Tags are
// filled in from the renderer; the remaining fields are the numeric
// context the engine computed.
type Finding struct {
	Kind      Kind                  `json:"kind"`
	Narrative string                `json:"narrative"`
	Tags      []dimension.Dimension `json:"tags,omitempty"`

	// Session comparison
	Novel            bool                  `json:"novel,omitempty"`
	NeighborCount    int                   `json:"neighbor_count,omitempty"`
	BestSimilarity   float64               `json:"best_similarity,omitempty"`
	SharedDimensions []dimension.Dimension `json:"shared_dimensions,omitempty"`

	// Weekly
	SessionCount  int                   `json:"session_count,omitempty"`
	ClusterSizes  []int                 `json:"cluster_sizes,omitempty"`
	Centroid      []float64             `json:"centroid,omitempty"`
	Variance      []float64             `json:"variance,omitempty"`
	MostVaried    []dimension.Dimension `json:"most_varied,omitempty"`
	LeastExplored []dimension.Dimension `json:"least_explored,omitempty"`

	// Next suggestion
	Suggested   []dimension.Dimension `json:"suggested,omitempty"`
	FromProfile bool                  `json:"from_profile,omitempty"`
}

// Analyzer builds findings over a user's session history. Read-only over
// its inputs and safe for concurrent queries; each clustering run draws
// its own rand source, so runs never share assignment state.
type Analyzer struct {
	store    session.Store
	renderer render.Client
	profile  ProfileSource
	seed     int64
	now      func() time.Time
}

// New creates an Analyzer. A zero seed means clustering draws a fresh
// time-based seed per run; tests pass a fixed seed for reproducible
// cluster assignments.
func New(store session.Store, renderer render.Client, profile ProfileSource, seed int64) *Analyzer {
	if profile == nil {
		profile = DefaultProfile{}
	}
	return &Analyzer{
		store:    store,
		renderer: renderer,
		profile:  profile,
		seed:     seed,
		now:      time.Now,
	}
}

func (a *Analyzer) rng() *rand.Rand {
	seed := a.seed
	if seed == 0 {
		seed = a.now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// CompareSession builds the post-session finding: the just-ended session
// against its nearest historical neighbors. With no comparable history —
// including a failed neighbor lookup, which this flow is documented to
// degrade on — it short-circuits to a canned novel-experience finding
// without touching the renderer.
func (a *Analyzer) CompareSession(ctx context.Context, sess *session.Session) (*Finding, error) {
	emb := sess.Embedding()
	if len(emb) != dimension.Count {
		return novelFinding(), nil
	}

	neighbors, err := a.store.FindNeighbors(ctx, emb, comparisonNeighbors+1)
	if err != nil {
		log.Printf("insight: neighbor lookup failed, treating session as novel: %v", err)
		return novelFinding(), nil
	}

	// The just-ended session is usually already persisted; drop it from
	// its own neighbor list.
	filtered := neighbors[:0]
	for _, n := range neighbors {
		if n.ID != sess.ID {
			filtered = append(filtered, n)
		}
	}
	if len(filtered) > comparisonNeighbors {
		filtered = filtered[:comparisonNeighbors]
	}
	if len(filtered) == 0 {
		return novelFinding(), nil
	}

	var primary []dimension.Dimension
	if sess.Vector != nil {
		primary = sess.Vector.Primary
	}
	shared := sharedDimensions(sess, filtered)
	best := vector.CosineSimilarity(emb, filtered[0].Embedding())

	finding := &Finding{
		Kind:             KindSessionComparison,
		NeighborCount:    len(filtered),
		BestSimilarity:   best,
		SharedDimensions: shared,
	}

	prompt := render.SessionComparisonPrompt(primary, len(filtered), shared, best)
	resp, err := a.renderer.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("render comparison: %w", err)
	}
	finding.Narrative = resp.Content
	finding.Tags = render.ParseDimensionTags(resp.Content)
	return finding, nil
}

// Weekly builds the weekly pattern finding over a supplied session set:
// clusters, centroid, variance, and the three highest- and lowest-
// variance dimensions (ties broken by enumeration order).
func (a *Analyzer) Weekly(ctx context.Context, sessions []session.Session) (*Finding, error) {
	clusters := vectorspace.KMeans(sessions, weeklyClusters, a.rng())
	centroid := vectorspace.Centroid(sessions)
	variance := vectorspace.DimensionVariance(sessions)

	sizes := make([]int, len(clusters))
	counted := 0
	for i, c := range clusters {
		sizes[i] = len(c.Members)
		counted += len(c.Members)
	}

	var mostVaried, leastExplored []dimension.Dimension
	for _, r := range vectorspace.TopVariance(variance, varianceExtremes) {
		mostVaried = append(mostVaried, r.Dimension)
	}
	for _, r := range vectorspace.BottomVariance(variance, varianceExtremes) {
		leastExplored = append(leastExplored, r.Dimension)
	}

	finding := &Finding{
		Kind:          KindWeekly,
		SessionCount:  counted,
		ClusterSizes:  sizes,
		Centroid:      centroid,
		Variance:      variance,
		MostVaried:    mostVaried,
		LeastExplored: leastExplored,
	}

	prompt := render.WeeklyPrompt(counted, sizes, mostVaried, leastExplored)
	resp, err := a.renderer.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("render weekly: %w", err)
	}
	finding.Narrative = resp.Content
	finding.Tags = render.ParseDimensionTags(resp.Content)
	return finding, nil
}

// NextSuggestion builds the next-activity finding: dimensions whose
// centroid magnitude over the user's most recent sessions sits below the
// underexplored threshold; if everything is well covered, the user's
// time-of-day preferred dimensions stand in.
func (a *Analyzer) NextSuggestion(ctx context.Context, userID string) (*Finding, error) {
	recent, err := a.store.FetchSessions(ctx, userID, suggestionWindow)
	if err != nil {
		return nil, fmt.Errorf("fetch recent sessions: %w", err)
	}

	centroid := vectorspace.Centroid(recent)
	var suggested []dimension.Dimension
	for i, v := range centroid {
		if v < underexploredThreshold {
			suggested = append(suggested, dimension.Dimension(i))
		}
	}

	fromProfile := false
	if len(suggested) == 0 {
		suggested = a.profile.PreferredDimensions(a.now().Hour())
		fromProfile = true
	}

	finding := &Finding{
		Kind:        KindNextSuggestion,
		Suggested:   suggested,
		FromProfile: fromProfile,
	}

	prompt := render.SuggestionPrompt(suggested, fromProfile)
	resp, err := a.renderer.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("render suggestion: %w", err)
	}
	finding.Narrative = resp.Content
	finding.Tags = render.ParseDimensionTags(resp.Content)
	return finding, nil
}

// novelFinding is the canned short-circuit when a session has nothing in
// history to compare against.
func novelFinding() *Finding {
	return &Finding{
		Kind:      KindSessionComparison,
		Novel:     true,
		Narrative: "This was a novel experience — nothing in your history resembles it yet.",
	}
}

// sharedDimensions intersects the session's dominant activations with
// the union of the neighbors' dominant activations, in the session's
// intensity order.
func sharedDimensions(sess *session.Session, neighbors []session.Session) []dimension.Dimension {
	if sess.Vector == nil {
		return nil
	}

	neighborDims := make(map[dimension.Dimension]bool)
	for i := range neighbors {
		if neighbors[i].Vector == nil {
			continue
		}
		for _, act := range neighbors[i].Vector.Dominant() {
			neighborDims[act.Dimension] = true
		}
	}

	var shared []dimension.Dimension
	for _, act := range sess.Vector.Dominant() {
		if neighborDims[act.Dimension] {
			shared = append(shared, act.Dimension)
		}
	}
	return shared
}
