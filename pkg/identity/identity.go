// Package identity merges git author signatures into persons. Two signatures
// belong to the same person when they share an author name or an email
// address, case-insensitively. Empty fields never match anything. Explicit
// merge rules join signatures that share neither field.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrInvalidMergeRule reports a merge rule that could not be parsed.
var ErrInvalidMergeRule = errors.New("invalid merge rule")

// Resolver accumulates author signatures and resolves them into persons.
// It is safe for concurrent use, so one resolver can span repositories when
// identities are merged globally.
type Resolver struct {
	mu sync.Mutex

	variants []variant
	index    map[string]int
	parent   []int

	byName  map[string]int
	byEmail map[string]int
}

type variant struct {
	name  string
	email string
	count int
}

// NewResolver returns an empty resolver.
func NewResolver() *Resolver {
	return &Resolver{
		index:   make(map[string]int),
		byName:  make(map[string]int),
		byEmail: make(map[string]int),
	}
}

// Observe records one occurrence of a signature and merges it with any
// previously seen signature sharing its name or email.
func (r *Resolver) Observe(name, email string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.register(name, email, 1)
}

// AddRule parses a merge rule and joins every identity it lists into one
// person. A rule is a |-separated list of identities, each written as
// "Name <email>", a bare email (contains @) or a bare name:
//
//	Jane Doe <jane@corp.com>|jdoe|jane.doe@users.noreply.github.com
func (r *Resolver) AddRule(rule string) error {
	parts := strings.Split(rule, "|")
	if len(parts) < 2 {
		return fmt.Errorf("%w: %q needs at least two identities", ErrInvalidMergeRule, rule)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	first := -1

	for _, part := range parts {
		name, email, err := parseIdentity(part)
		if err != nil {
			return fmt.Errorf("%w: %q: %v", ErrInvalidMergeRule, rule, err)
		}

		idx := r.register(name, email, 0)
		if first < 0 {
			first = idx
		} else {
			r.union(first, idx)
		}
	}

	return nil
}

func parseIdentity(s string) (name, email string, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", "", errors.New("empty identity")
	}

	if open := strings.IndexByte(s, '<'); open >= 0 {
		close := strings.IndexByte(s, '>')
		if close < open {
			return "", "", fmt.Errorf("unterminated email in %q", s)
		}

		return strings.TrimSpace(s[:open]), strings.TrimSpace(s[open+1 : close]), nil
	}

	if strings.ContainsRune(s, '@') {
		return "", s, nil
	}

	return s, "", nil
}

// register adds or finds the variant and links it through shared fields.
// Callers must hold the lock.
func (r *Resolver) register(name, email string, delta int) int {
	key := variantKey(name, email)

	if idx, ok := r.index[key]; ok {
		r.variants[idx].count += delta

		return idx
	}

	idx := len(r.variants)
	r.variants = append(r.variants, variant{name: name, email: email, count: delta})
	r.parent = append(r.parent, idx)
	r.index[key] = idx

	if lname := strings.ToLower(name); lname != "" {
		if other, ok := r.byName[lname]; ok {
			r.union(idx, other)
		} else {
			r.byName[lname] = idx
		}
	}

	if lemail := strings.ToLower(email); lemail != "" {
		if other, ok := r.byEmail[lemail]; ok {
			r.union(idx, other)
		} else {
			r.byEmail[lemail] = idx
		}
	}

	return idx
}

func (r *Resolver) find(i int) int {
	for r.parent[i] != i {
		r.parent[i] = r.parent[r.parent[i]]
		i = r.parent[i]
	}

	return i
}

func (r *Resolver) union(a, b int) {
	ra, rb := r.find(a), r.find(b)
	if ra != rb {
		r.parent[rb] = ra
	}
}

func variantKey(name, email string) string {
	return name + "\x00" + email
}

// Person is a resolved identity: the canonical name and email plus every
// variant that mapped to it.
type Person struct {
	ID     string
	Name   string
	Email  string
	Names  []string
	Emails []string
}

// Matcher reports whether a candidate string matches; it decouples person
// exclusion from the pattern package.
type Matcher interface {
	MatchAny(candidates ...string) bool
}

// Matches reports whether any of the person's names or emails matches.
func (p *Person) Matches(m Matcher) bool {
	if m == nil {
		return false
	}

	return m.MatchAny(p.Names...) || m.MatchAny(p.Emails...)
}

// People is the result of resolving, ordered by canonical name then email.
type People struct {
	Persons   []*Person
	byVariant map[string]*Person
}

// Lookup returns the person a signature resolved to, or nil when the
// signature was never observed.
func (p *People) Lookup(name, email string) *Person {
	return p.byVariant[variantKey(name, email)]
}

// Resolve groups all observed signatures into persons. The canonical name
// and email of a person are its most frequent variants, ties broken
// lexicographically. Person IDs are derived from the sorted variant set, so
// resolving the same signatures always yields the same IDs.
func (r *Resolver) Resolve() *People {
	r.mu.Lock()
	defer r.mu.Unlock()

	groups := make(map[int][]int)
	for i := range r.variants {
		root := r.find(i)
		groups[root] = append(groups[root], i)
	}

	people := &People{byVariant: make(map[string]*Person, len(r.variants))}

	for _, members := range groups {
		person := r.buildPerson(members)

		people.Persons = append(people.Persons, person)
		for _, idx := range members {
			v := r.variants[idx]
			people.byVariant[variantKey(v.name, v.email)] = person
		}
	}

	sort.Slice(people.Persons, func(i, j int) bool {
		a, b := people.Persons[i], people.Persons[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}

		return a.Email < b.Email
	})

	return people
}

// buildPerson assembles one person from its variant indices. Callers must
// hold the lock.
func (r *Resolver) buildPerson(members []int) *Person {
	nameCounts := make(map[string]int)
	emailCounts := make(map[string]int)
	keys := make([]string, 0, len(members))

	for _, idx := range members {
		v := r.variants[idx]
		keys = append(keys, variantKey(v.name, v.email))

		if v.name != "" {
			nameCounts[v.name] += v.count
		}

		if v.email != "" {
			emailCounts[v.email] += v.count
		}
	}

	sort.Strings(keys)
	sum := sha256.Sum256([]byte(strings.Join(keys, "\n")))

	return &Person{
		ID:     hex.EncodeToString(sum[:6]),
		Name:   mostFrequent(nameCounts),
		Email:  mostFrequent(emailCounts),
		Names:  sortedKeys(nameCounts),
		Emails: sortedKeys(emailCounts),
	}
}

func mostFrequent(counts map[string]int) string {
	best, bestCount := "", -1

	for s, c := range counts {
		if c > bestCount || (c == bestCount && s < best) {
			best, bestCount = s, c
		}
	}

	return best
}

func sortedKeys(counts map[string]int) []string {
	keys := make([]string, 0, len(counts))
	for s := range counts {
		keys = append(keys, s)
	}

	sort.Strings(keys)

	return keys
}
