// Package resolve turns free-text company, team-member, and prospect
// references into stable entity ids, creating rows on first sight.
package resolve

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/call-pipeline/internal/model"
)

// Store is the persistence the resolver needs.
type Store interface {
	FindCompanyByName(ctx context.Context, name string) (string, error)
	CreateCompany(ctx context.Context, name string, firstSeen time.Time) (string, error)
	FindTeamMemberByEmail(ctx context.Context, email string) (string, error)
	CreateTeamMember(ctx context.Context, name, email string) (string, error)
	FindProspectByName(ctx context.Context, name string) (string, error)
	CreateProspect(ctx context.Context, name, role, companyID string) (string, error)
}

// PlaceholderCompanyPrefix starts every synthesized company name.
const PlaceholderCompanyPrefix = "Unknown Company "

// Resolver resolves entity references with an in-process identity cache
// keyed by normalized natural key. The cache only saves lookups; a fresh
// Resolver over the same store returns the same ids.
type Resolver struct {
	store          Store
	internalDomain string
	now            func() time.Time

	mu        sync.Mutex
	companies map[string]string
	members   map[string]string
	prospects map[string]string
}

// New creates a Resolver. internalDomain is used for placeholder emails.
func New(st Store, internalDomain string) *Resolver {
	return &Resolver{
		store:          st,
		internalDomain: strings.ToLower(strings.TrimPrefix(strings.TrimSpace(internalDomain), "@")),
		now:            time.Now,
		companies:      make(map[string]string),
		members:        make(map[string]string),
		prospects:      make(map[string]string),
	}
}

// Company returns the id of the named company. An empty or "Unknown" name
// gets a fresh placeholder company every time. firstSeen is the meeting
// date used for a new row; nil means now.
func (r *Resolver) Company(ctx context.Context, name string, firstSeen *time.Time) (string, error) {
	name = strings.TrimSpace(name)
	seen := r.now().UTC()
	if firstSeen != nil {
		seen = firstSeen.UTC()
	}

	if name == "" || name == model.UnknownCompany {
		placeholder := PlaceholderCompanyPrefix + uuid.New().String()
		id, err := r.store.CreateCompany(ctx, placeholder, seen)
		if err != nil {
			return "", eris.Wrap(err, "resolve: create placeholder company")
		}
		return id, nil
	}

	if id, ok := r.cached(r.companies, name); ok {
		return id, nil
	}
	id, err := r.store.FindCompanyByName(ctx, name)
	if err != nil {
		return "", eris.Wrapf(err, "resolve: find company %q", name)
	}
	if id == "" {
		id, err = r.store.CreateCompany(ctx, name, seen)
		if err != nil {
			return "", eris.Wrapf(err, "resolve: create company %q", name)
		}
	}
	r.remember(r.companies, name, id)
	return id, nil
}

// TeamMember returns the id of an internal participant, keyed by email.
// Without a usable email a placeholder derived from the name is used, so
// the same name always maps to the same member.
func (r *Resolver) TeamMember(ctx context.Context, name, email string) (string, error) {
	name = strings.TrimSpace(name)
	email, ok := NormalizeEmail(email)
	if !ok {
		email = PlaceholderEmail(name, r.internalDomain)
	}

	if id, ok := r.cached(r.members, email); ok {
		return id, nil
	}
	id, err := r.store.FindTeamMemberByEmail(ctx, email)
	if err != nil {
		return "", eris.Wrapf(err, "resolve: find team member %q", email)
	}
	if id == "" {
		if name == "" {
			name = email
		}
		id, err = r.store.CreateTeamMember(ctx, name, email)
		if err != nil {
			return "", eris.Wrapf(err, "resolve: create team member %q", email)
		}
	}
	r.remember(r.members, email, id)
	return id, nil
}

// Prospect returns the id of an external contact, matched on name alone.
// A new contact is created under companyID. Same-named contacts at
// different companies therefore share a row.
func (r *Resolver) Prospect(ctx context.Context, name, role, companyID string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", eris.New("resolve: prospect has no name")
	}

	if id, ok := r.cached(r.prospects, name); ok {
		return id, nil
	}
	id, err := r.store.FindProspectByName(ctx, name)
	if err != nil {
		return "", eris.Wrapf(err, "resolve: find prospect %q", name)
	}
	if id == "" {
		id, err = r.store.CreateProspect(ctx, name, strings.TrimSpace(role), companyID)
		if err != nil {
			return "", eris.Wrapf(err, "resolve: create prospect %q", name)
		}
	}
	r.remember(r.prospects, name, id)
	return id, nil
}

func (r *Resolver) cached(m map[string]string, key string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := m[key]
	return id, ok
}

func (r *Resolver) remember(m map[string]string, key, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m[key] = id
}

// NormalizeEmail lower-cases and trims email. ok is false when the result
// does not contain '@'.
func NormalizeEmail(email string) (string, bool) {
	email = strings.ToLower(strings.TrimSpace(email))
	return email, strings.Contains(email, "@")
}

// PlaceholderEmail builds slug@domain from a person's name: lower-cased,
// accents folded, words joined by dots, anything outside [a-z.] removed.
func PlaceholderEmail(name, domain string) string {
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, name)
	if err != nil {
		folded = name
	}
	folded = strings.Join(strings.Fields(strings.ToLower(folded)), ".")

	var b strings.Builder
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || r == '.' {
			b.WriteRune(r)
		}
	}
	slug := strings.Trim(b.String(), ".")
	if slug == "" {
		slug = "unknown"
	}
	return slug + "@" + domain
}
