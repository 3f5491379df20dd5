package discover_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martinotbusiness97-crypto/martiloveconect/internal/domain"
	svcErr "github.com/martinotbusiness97-crypto/martiloveconect/internal/errors"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/service/discover"
	"github.com/martinotbusiness97-crypto/martiloveconect/internal/testutil"
)

func ids(profiles []domain.Profile) []string {
	out := make([]string, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, p.ID)
	}
	return out
}

func viewer(seeking string) discover.Viewer {
	return discover.Viewer{
		ID:      "me",
		Seeking: seeking,
		Matched: map[string]bool{},
		Liked:   map[string]bool{},
		Blocked: map[string]bool{},
	}
}

func TestVisible_AgeRangeScenario(t *testing.T) {
	candidates := []domain.Profile{
		testutil.Profile("old", "Claire", 40, domain.GenderFemale, domain.SeekingMen),
		testutil.Profile("fit", "Julie", 30, domain.GenderFemale, domain.SeekingMen),
	}
	f := discover.Filters{MinAge: 25, MaxAge: 35, Country: domain.AllCountries}

	got := discover.Visible(viewer(domain.SeekingWomen), f, candidates)
	assert.Equal(t, []string{"fit"}, ids(got))
}

func TestVisible_ExcludedProfiles(t *testing.T) {
	base := func(id string) domain.Profile {
		return testutil.Profile(id, "P "+id, 30, domain.GenderFemale, domain.SeekingAll)
	}

	incomplete := base("incomplete")
	incomplete.IsComplete = false
	private := base("private")
	private.Settings.IsPublic = false
	incognito := base("incognito")
	incognito.Settings.IncognitoMode = true
	male := base("male")
	male.Gender = domain.GenderMale

	candidates := []domain.Profile{
		base("me"), base("matched"), base("liked"), base("blocked"), base("ok"),
		incomplete, private, incognito, male,
	}

	v := viewer(domain.SeekingWomen)
	v.Matched["matched"] = true
	v.Liked["liked"] = true
	v.Blocked["blocked"] = true

	filters := []discover.Filters{
		discover.DefaultFilters(),
		{MinAge: 18, MaxAge: 99, Country: "France"},
		{MinAge: 18, MaxAge: 99, Country: domain.AllCountries, Query: "p"},
		{MinAge: 30, MaxAge: 30, Country: domain.AllCountries},
	}
	for _, f := range filters {
		got := ids(discover.Visible(v, f, candidates))
		assert.Equal(t, []string{"ok"}, got, "%+v", f)
	}

	v.Seeking = domain.SeekingAll
	assert.Equal(t, []string{"male", "ok"}, ids(discover.Visible(v, discover.DefaultFilters(), candidates)))
}

func TestVisible_QueryMatchesNameOrInterest(t *testing.T) {
	a := testutil.Profile("a", "Amélie", 28, domain.GenderFemale, domain.SeekingAll)
	b := testutil.Profile("b", "Zoé", 28, domain.GenderFemale, domain.SeekingAll)
	b.Interest = "Randonnée"
	c := testutil.Profile("c", "Léa", 28, domain.GenderFemale, domain.SeekingAll)
	c.Interest = ""
	c.Interests = []string{"Cuisine"}

	f := discover.DefaultFilters()
	v := viewer(domain.SeekingAll)

	f.Query = "AMÉ"
	assert.Equal(t, []string{"a"}, ids(discover.Visible(v, f, []domain.Profile{a, b, c})))
	f.Query = "rando"
	assert.Equal(t, []string{"b"}, ids(discover.Visible(v, f, []domain.Profile{a, b, c})))
	f.Query = "cuis"
	assert.Equal(t, []string{"c"}, ids(discover.Visible(v, f, []domain.Profile{a, b, c})))
}

func TestVisible_Country(t *testing.T) {
	fr := testutil.Profile("fr", "A", 30, domain.GenderMale, domain.SeekingAll)
	be := testutil.Profile("be", "B", 30, domain.GenderMale, domain.SeekingAll)
	be.Country = "Belgique"

	f := discover.DefaultFilters()
	f.Country = "Belgique"
	assert.Equal(t, []string{"be"}, ids(discover.Visible(viewer(domain.SeekingMen), f, []domain.Profile{fr, be})))
}

func TestFilters_Resolve(t *testing.T) {
	f, err := discover.Filters{}.Resolve()
	require.NoError(t, err)
	assert.Equal(t, discover.DefaultFilters(), f)

	_, err = discover.Filters{MinAge: 40, MaxAge: 30}.Resolve()
	assert.ErrorIs(t, err, svcErr.ErrInvalidArgument)
}

func TestCountries(t *testing.T) {
	a := testutil.Profile("a", "A", 30, domain.GenderMale, domain.SeekingAll)
	b := testutil.Profile("b", "B", 30, domain.GenderMale, domain.SeekingAll)
	b.Country = "Belgique"
	c := testutil.Profile("c", "C", 30, domain.GenderMale, domain.SeekingAll)
	c.Country = "Suisse"
	c.IsComplete = false

	assert.Equal(t, []string{domain.AllCountries, "Belgique", "France"}, discover.Countries([]domain.Profile{a, b, c, a}))
}
