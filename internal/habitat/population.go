package habitat

// population is an insertion-ordered set of organisms keyed by genome
// fingerprint. Ordered iteration keeps seeded runs reproducible.
type population struct {
	order   []string
	members map[string]*Organism
}

func newPopulation() *population {
	return &population{members: make(map[string]*Organism)}
}

// insert adds o unless an organism with an equal genome is present.
func (p *population) insert(o *Organism) bool {
	if _, exists := p.members[o.key]; exists {
		return false
	}
	p.members[o.key] = o
	p.order = append(p.order, o.key)
	return true
}

func (p *population) contains(key string) bool {
	_, ok := p.members[key]
	return ok
}

func (p *population) len() int {
	return len(p.order)
}

// snapshot lists organisms in insertion order.
func (p *population) snapshot() []*Organism {
	out := make([]*Organism, 0, len(p.order))
	for _, key := range p.order {
		out = append(out, p.members[key])
	}
	return out
}

// reset replaces the contents with organisms, keeping their order.
func (p *population) reset(organisms []*Organism) {
	p.order = p.order[:0]
	p.members = make(map[string]*Organism, len(organisms))
	for _, o := range organisms {
		p.insert(o)
	}
}
