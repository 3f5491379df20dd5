package discover

import (
	"sort"
	"strings"

	"github.com/martinotbusiness97-crypto/martiloveconect/internal/domain"
	svcErr "github.com/martinotbusiness97-crypto/martiloveconect/internal/errors"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/service/lookup"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/tree"
)

// Filters are the user-chosen discovery filters.
type Filters struct {
	MinAge  int    `json:"minAge"`
	MaxAge  int    `json:"maxAge"`
	Country string `json:"country"`
	Query   string `json:"query"`
}

// DefaultFilters shows everyone.
func DefaultFilters() Filters {
	return Filters{MinAge: domain.MinAge, MaxAge: domain.MaxAge, Country: domain.AllCountries}
}

// Resolve fills unset fields with their defaults and validates the range.
func (f Filters) Resolve() (Filters, error) {
	if f.MinAge == 0 {
		f.MinAge = domain.MinAge
	}
	if f.MaxAge == 0 {
		f.MaxAge = domain.MaxAge
	}
	if strings.TrimSpace(f.Country) == "" {
		f.Country = domain.AllCountries
	}
	f.Query = strings.TrimSpace(f.Query)
	if f.MinAge < 0 || f.MaxAge < 0 {
		return f, svcErr.InvalidArgument("ages must be positive")
	}
	if f.MinAge > f.MaxAge {
		return f, svcErr.InvalidArgument("minAge must not exceed maxAge")
	}
	return f, nil
}

// Viewer is everything about the viewer the filter depends on.
type Viewer struct {
	ID      string
	Seeking string
	Matched map[string]bool
	Liked   map[string]bool
	Blocked map[string]bool
}

// NewViewer derives the viewer of uid from the users subtree, the viewer's
// conversation metas and block list. Anyone the viewer has a conversation
// with counts as matched.
func NewViewer(uid string, users, metas, blocked tree.Snapshot) Viewer {
	v := Viewer{
		ID:      uid,
		Matched: map[string]bool{},
		Liked:   lookup.KeySet(users.Child(tree.Join(uid, "likes"))),
		Blocked: lookup.KeySet(blocked),
	}
	if self, err := domain.DecodeProfile(users.Child(uid)); err == nil {
		v.Seeking = self.Seeking
	}
	for _, m := range lookup.Metas(metas, uid) {
		v.Matched[m.ParticipantID] = true
	}
	return v
}

// Visible returns the candidates the viewer may discover, ordered by id.
// Every rule must pass:
//   - the profile is complete, public and not incognito;
//   - it is not the viewer, an existing match, a profile the viewer already
//     liked or blocked;
//   - its gender fits what the viewer seeks;
//   - the query, when given, is a case-insensitive substring of the name or
//     the primary interest;
//   - the age is within [MinAge, MaxAge] and the country matches unless the
//     filter is AllCountries.
func Visible(v Viewer, f Filters, candidates []domain.Profile) []domain.Profile {
	query := strings.ToLower(strings.TrimSpace(f.Query))

	out := make([]domain.Profile, 0, len(candidates))
	for _, p := range candidates {
		switch {
		case !p.IsComplete:
		case !p.Settings.IsPublic:
		case p.Settings.IncognitoMode:
		case p.ID == v.ID:
		case v.Matched[p.ID], v.Liked[p.ID], v.Blocked[p.ID]:
		case !seekingFits(v.Seeking, p.Gender):
		case query != "" && !matchesQuery(p, query):
		case p.Age < f.MinAge || p.Age > f.MaxAge:
		case f.Country != domain.AllCountries && p.Country != f.Country:
		default:
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func seekingFits(seeking, gender string) bool {
	switch seeking {
	case domain.SeekingMen:
		return gender == domain.GenderMale
	case domain.SeekingWomen:
		return gender == domain.GenderFemale
	}
	return true
}

func matchesQuery(p domain.Profile, query string) bool {
	if strings.Contains(strings.ToLower(p.Name), query) {
		return true
	}
	interest := p.Interest
	if interest == "" {
		interest = domain.PrimaryInterest(p.Interests)
	}
	return strings.Contains(strings.ToLower(interest), query)
}

// Countries returns AllCountries followed by the sorted distinct countries
// of complete profiles.
func Countries(profiles []domain.Profile) []string {
	set := map[string]bool{}
	for _, p := range profiles {
		if p.IsComplete && strings.TrimSpace(p.Country) != "" {
			set[p.Country] = true
		}
	}
	delete(set, domain.AllCountries)

	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return append([]string{domain.AllCountries}, out...)
}
