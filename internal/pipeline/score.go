package pipeline

import (
	"strings"

	"jobmate/jobsearch-service/internal/model"
)

// titleWeights are awarded when a term appears both in the listing title
// and in the candidate profile.
var titleWeights = []struct {
	term   string
	weight float64
}{
	{"架构师", 25}, {"安全", 25}, {"专家", 20}, {"总监", 20}, {"管理", 15},
	{"高级", 15}, {"经理", 15}, {"开发", 10}, {"网络", 10}, {"汽车", 5},
}

const (
	skillPoints      = 10
	skillCap         = 40
	shortDescription = 100 // runes; short descriptions double skill points
	experiencePoints = 15
	locationPoints   = 15
)

// experienceFloors lists the minimum years a candidate needs to satisfy a
// requirement mentioning each bucket.
var experienceFloors = []struct {
	bucket string
	years  int
}{
	{model.Experience10Plus, 10},
	{model.Experience5To10, 5},
	{model.Experience3To5, 3},
	{model.Experience1To3, 1},
}

// MatchScore rates how well l fits profile on a 0..100 scale.
func MatchScore(profile model.CandidateProfile, l model.Listing) float64 {
	profileText := strings.ToLower(strings.Join(profile.Skills, " ") + " " + profile.City + " " + profile.Summary)
	title := strings.ToLower(l.Title)
	desc := strings.ToLower(l.Description)
	listingText := title + " " + desc

	var score float64
	for _, tw := range titleWeights {
		if strings.Contains(title, tw.term) && strings.Contains(profileText, tw.term) {
			score += tw.weight
		}
	}

	if len(profile.Skills) > 0 {
		hits := 0
		for _, s := range profile.Skills {
			if s = strings.ToLower(strings.TrimSpace(s)); s != "" && strings.Contains(listingText, s) {
				hits++
			}
		}
		factor := 1.0
		if len([]rune(desc)) < shortDescription {
			factor = 2
		}
		score += min(float64(hits*skillPoints)*factor, skillCap)
	}

	for _, f := range experienceFloors {
		if strings.Contains(l.ExperienceRequired, f.bucket) && profile.ExperienceYears >= f.years {
			score += experiencePoints
			break
		}
	}

	if loc := strings.ToLower(strings.TrimSpace(l.Location)); loc != "" && loc != strings.ToLower(model.UnknownLocation) &&
		strings.Contains(profileText, loc) {
		score += locationPoints
	}

	return max(0, min(score, 100))
}

// ScoreAll returns copies of listings with Score set against profile.
func ScoreAll(listings []model.Listing, profile model.CandidateProfile) []model.Listing {
	out := make([]model.Listing, len(listings))
	for i, l := range listings {
		s := MatchScore(profile, l)
		l.Score = &s
		out[i] = l
	}
	return out
}
