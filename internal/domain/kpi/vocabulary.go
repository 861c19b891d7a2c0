package kpi

import (
	"sort"
	"strings"
)

// OtherPlatform collects sources that map to no ad platform.
const OtherPlatform = "Other"

// Vocabulary is the tenant-independent lookup data for attribution: which
// acquisition sources are paid and which ad platform each source belongs to.
type Vocabulary struct {
	paid       map[string]struct{}
	platformOf map[string]string
	platforms  []string
	canonical  map[string]string
}

// NewVocabulary builds a Vocabulary. Source keys are matched case
// insensitively. platforms fixes the order of the per-platform report;
// platforms named only in sourcePlatforms are appended alphabetically.
func NewVocabulary(paidSources []string, sourcePlatforms map[string]string, platforms []string) Vocabulary {
	v := Vocabulary{
		paid:       make(map[string]struct{}, len(paidSources)),
		platformOf: make(map[string]string, len(sourcePlatforms)),
		canonical:  make(map[string]string),
	}
	for _, s := range paidSources {
		v.paid[normalize(s)] = struct{}{}
	}
	for _, p := range platforms {
		v.addPlatform(p)
	}
	var extra []string
	for src, p := range sourcePlatforms {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v.platformOf[normalize(src)] = p
		if _, ok := v.canonical[normalize(p)]; !ok {
			extra = append(extra, p)
		}
	}
	sort.Strings(extra)
	for _, p := range extra {
		v.addPlatform(p)
	}
	for src, p := range v.platformOf {
		if c, ok := v.canonical[normalize(p)]; ok {
			v.platformOf[src] = c
		} else {
			v.platformOf[src] = OtherPlatform
		}
	}
	return v
}

// DefaultVocabulary is the stock gym lead-source vocabulary.
func DefaultVocabulary() Vocabulary {
	return NewVocabulary(
		[]string{"facebook_ads", "instagram_ads", "google_ads", "tiktok_ads"},
		map[string]string{
			"facebook_ads":  "Meta",
			"instagram_ads": "Meta",
			"google_ads":    "Google",
			"tiktok_ads":    "TikTok",
		},
		[]string{"Meta", "Google", "TikTok"},
	)
}

// IsPaid reports whether source is a paid acquisition channel.
func (v Vocabulary) IsPaid(source string) bool {
	_, ok := v.paid[normalize(source)]
	return ok
}

// Platform returns the ad platform for source, or OtherPlatform.
func (v Vocabulary) Platform(source string) string {
	if p, ok := v.platformOf[normalize(source)]; ok {
		return p
	}
	return OtherPlatform
}

// Platforms returns the reported ad platforms in order. OtherPlatform is
// never listed.
func (v Vocabulary) Platforms() []string {
	out := make([]string, len(v.platforms))
	copy(out, v.platforms)
	return out
}

// CanonicalPlatform names the platform an AdSpend entry was booked against.
// Known platforms match case insensitively, a source name resolves through
// the source map, and anything else keeps its trimmed spelling. Empty
// names land in OtherPlatform.
func (v Vocabulary) CanonicalPlatform(name string) string {
	key := normalize(name)
	if key == "" || key == normalize(OtherPlatform) {
		return OtherPlatform
	}
	if p, ok := v.canonical[key]; ok {
		return p
	}
	if p, ok := v.platformOf[key]; ok {
		return p
	}
	return strings.TrimSpace(name)
}

func (v *Vocabulary) addPlatform(p string) {
	p = strings.TrimSpace(p)
	key := normalize(p)
	if key == "" || key == normalize(OtherPlatform) {
		return
	}
	if _, ok := v.canonical[key]; ok {
		return
	}
	v.canonical[key] = p
	v.platforms = append(v.platforms, p)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
