package generate

import (
	"fmt"
	"math/rand"
	"sort"
)

// ProviderFunc produces one realistic string value from the run's random
// source.
type ProviderFunc func(r *rand.Rand) string

// ProviderRegistry maps dotted capability paths ("internet.email") to
// generator rules. The registry is populated once at startup; an unresolved
// key is a hard generation error, never a silent fallback.
type ProviderRegistry struct {
	rules map[string]ProviderFunc
}

var (
	firstNames = []string{"John", "Jane", "Alice", "Bob", "Charlie", "Diana", "Eve", "Frank", "Grace", "Henry"}
	lastNames  = []string{"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller", "Davis", "Rodriguez", "Martinez"}
	domains    = []string{"example.com", "test.com", "demo.com", "mail.com"}
	streets    = []string{"Main Street", "Oak Avenue", "Park Road", "Elm Drive", "Maple Lane"}
	cities     = []string{"Springfield", "Riverton", "Fairview", "Georgetown", "Clinton", "Salem", "Madison", "Arlington"}
	companies  = []string{"Acme", "Globex", "Initech", "Umbrella", "Stark Industries", "Wayne Enterprises"}
	sentences  = []string{
		"This is a sample text generated for testing purposes.",
		"Lorem ipsum dolor sit amet, consectetur adipiscing elit.",
		"The quick brown fox jumps over the lazy dog.",
		"Software development requires careful planning and execution.",
		"Database design is crucial for application performance.",
	}
	words = []string{"alpha", "beta", "gamma", "delta", "epsilon", "zeta", "eta", "theta"}
)

func pick(r *rand.Rand, list []string) string {
	return list[r.Intn(len(list))]
}

// NewProviderRegistry returns a registry preloaded with the built-in rules.
func NewProviderRegistry() *ProviderRegistry {
	p := &ProviderRegistry{rules: make(map[string]ProviderFunc)}

	p.Register("person.name", func(r *rand.Rand) string {
		return pick(r, firstNames) + " " + pick(r, lastNames)
	})
	p.Register("person.first_name", func(r *rand.Rand) string {
		return pick(r, firstNames)
	})
	p.Register("person.last_name", func(r *rand.Rand) string {
		return pick(r, lastNames)
	})
	p.Register("internet.email", func(r *rand.Rand) string {
		return fmt.Sprintf("user%d@%s", r.Intn(100000000), pick(r, domains))
	})
	p.Register("internet.username", func(r *rand.Rand) string {
		return fmt.Sprintf("%s%d", pick(r, words), r.Intn(100000))
	})
	p.Register("internet.url", func(r *rand.Rand) string {
		return fmt.Sprintf("https://%s/page/%d", pick(r, domains), r.Intn(100000))
	})
	p.Register("phone.number", func(r *rand.Rand) string {
		return fmt.Sprintf("+1-%03d-%03d-%04d", r.Intn(1000), r.Intn(1000), r.Intn(10000))
	})
	p.Register("address.street", func(r *rand.Rand) string {
		return fmt.Sprintf("%d %s", r.Intn(9999)+1, pick(r, streets))
	})
	p.Register("address.city", func(r *rand.Rand) string {
		return pick(r, cities)
	})
	p.Register("address.zip", func(r *rand.Rand) string {
		return fmt.Sprintf("%05d", r.Intn(100000))
	})
	p.Register("company.name", func(r *rand.Rand) string {
		return pick(r, companies)
	})
	p.Register("lorem.word", func(r *rand.Rand) string {
		return pick(r, words)
	})
	p.Register("lorem.sentence", func(r *rand.Rand) string {
		return pick(r, sentences)
	})
	p.Register("uuid.v4", func(r *rand.Rand) string {
		return fmt.Sprintf("%08x-%04x-%04x-%04x-%012x",
			r.Uint32(), r.Uint32()&0xffff, r.Uint32()&0xffff, r.Uint32()&0xffff, r.Uint64()&0xffffffffffff)
	})

	return p
}

func (p *ProviderRegistry) Register(key string, fn ProviderFunc) {
	p.rules[key] = fn
}

func (p *ProviderRegistry) Resolve(key string) (ProviderFunc, error) {
	fn, ok := p.rules[key]
	if !ok {
		return nil, fmt.Errorf("unknown generator directive %q (known: %v)", key, p.Keys())
	}
	return fn, nil
}

func (p *ProviderRegistry) Keys() []string {
	keys := make([]string, 0, len(p.rules))
	for key := range p.rules {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
