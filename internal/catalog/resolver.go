package catalog

import "github.com/ccastromar/barberchat/internal/textnorm"

// ResolveServices maps requested refs to service ids.
//
// Integer refs pass through without a membership check. Names (and
// synonyms) are matched exactly after textnorm.Fold; misses are dropped
// from ids and returned in unresolved. ids keeps first-seen order without
// duplicates.
func ResolveServices(requested []Ref, services []Service) (ids []int64, unresolved []string) {
	lookup := make(map[string]int64, len(services))
	add := func(key string, id int64) {
		if key == "" {
			return
		}
		if _, taken := lookup[key]; !taken {
			lookup[key] = id
		}
	}
	for _, s := range services {
		add(textnorm.Fold(s.Name), s.ID)
		for _, syn := range s.Synonyms {
			add(textnorm.Fold(syn), s.ID)
		}
	}

	ids = []int64{}
	seen := make(map[int64]struct{}, len(requested))
	for _, ref := range requested {
		id := ref.ID
		if ref.IsName {
			var ok bool
			id, ok = lookup[textnorm.Fold(ref.Name)]
			if !ok {
				unresolved = append(unresolved, ref.Name)
				continue
			}
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, unresolved
}

// ResolveBarber maps a requested barber ref to an id. A nil ref resolves to
// nil; an integer passes through; a name resolves to the first barber whose
// folded name matches, otherwise nil with the name returned as unresolved.
func ResolveBarber(requested *Ref, barbers []Barber) (id *int64, unresolved string) {
	if requested == nil {
		return nil, ""
	}
	if !requested.IsName {
		v := requested.ID
		return &v, ""
	}

	for _, b := range barbers {
		if textnorm.Equal(b.Name, requested.Name) {
			v := b.ID
			return &v, ""
		}
	}
	return nil, requested.Name
}
