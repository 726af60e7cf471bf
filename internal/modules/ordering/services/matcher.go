package services

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/tablevox/phone-agent-be/internal/modules/ordering/models"
)

// ambiguityBand is how close a runner-up similarity must be to the best
// score before we ask the caller to choose instead of guessing.
const ambiguityBand = 0.05

// Matcher resolves spoken item names against the menu snapshot.
type Matcher struct {
	threshold float64
}

func NewMatcher(threshold float64) *Matcher {
	return &Matcher{threshold: threshold}
}

// Match finds the menu item the utterance refers to. Exact name matches win
// outright. Otherwise the best fuzzy score above the threshold wins, unless
// a runner-up sits within the ambiguity band, in which case it returns
// ErrAmbiguousItem and the candidate names for the caller to choose from.
// No score above the threshold returns ErrItemNotFound.
func (m *Matcher) Match(snapshot *models.RestaurantContext, utterance string) (*models.SnapshotItem, []string, error) {
	wanted := normalize(utterance)
	if wanted == "" {
		return nil, nil, models.ErrItemNotFound
	}

	for i := range snapshot.Items {
		if normalize(snapshot.Items[i].Name) == wanted {
			return &snapshot.Items[i], nil, nil
		}
	}

	type scored struct {
		idx   int
		score float64
	}
	var ranked []scored

	for i := range snapshot.Items {
		score := similarity(wanted, normalize(snapshot.Items[i].Name))
		if score >= m.threshold {
			ranked = append(ranked, scored{idx: i, score: score})
		}
	}

	if len(ranked) == 0 {
		return nil, nil, models.ErrItemNotFound
	}

	sort.Slice(ranked, func(a, b int) bool {
		return ranked[a].score > ranked[b].score
	})

	best := ranked[0]
	var contenders []string
	for _, r := range ranked {
		if best.score-r.score <= ambiguityBand {
			contenders = append(contenders, snapshot.Items[r.idx].Name)
		}
	}

	if len(contenders) > 1 {
		return nil, contenders, models.ErrAmbiguousItem
	}

	return &snapshot.Items[best.idx], nil, nil
}

// MatchModifier resolves a spoken modifier name against an item's options.
func (m *Matcher) MatchModifier(item *models.SnapshotItem, utterance string) (*models.Modifier, error) {
	wanted := normalize(utterance)
	if wanted == "" {
		return nil, models.ErrItemNotFound
	}

	bestScore := 0.0
	bestIdx := -1
	for i := range item.Modifiers {
		name := normalize(item.Modifiers[i].Name)
		if name == wanted {
			return &item.Modifiers[i], nil
		}
		if score := similarity(wanted, name); score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}

	if bestIdx >= 0 && bestScore >= m.threshold {
		return &item.Modifiers[bestIdx], nil
	}

	return nil, models.ErrItemNotFound
}

// similarity maps levenshtein distance into [0,1], where 1 is identical.
// Containment short-circuits high: "the margherita" should find
// "Margherita Pizza".
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	if strings.Contains(b, a) || strings.Contains(a, b) {
		return 0.9
	}

	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 0
	}

	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	// Drop leading articles the transcriber tends to include.
	for _, prefix := range []string{"a ", "an ", "the "} {
		if strings.HasPrefix(s, prefix) {
			s = s[len(prefix):]
			break
		}
	}
	return strings.Join(strings.Fields(s), " ")
}
