package interchange

// File is the in-memory container: an ordered arena of mobs indexed by ID.
type File struct {
	Mobs []*Mob

	index map[MobID]*Mob
}

// NewFile returns an empty container.
func NewFile() *File {
	return &File{index: make(map[MobID]*Mob)}
}

// Add appends a mob to the arena. A mob re-added under the same ID replaces
// the index entry but keeps arena order stable.
func (f *File) Add(m *Mob) *Mob {
	if f.index == nil {
		f.index = make(map[MobID]*Mob)
	}
	if _, exists := f.index[m.ID]; !exists {
		f.Mobs = append(f.Mobs, m)
	}
	f.index[m.ID] = m
	return m
}

// Mob resolves an ID to a mob, returning nil for dangling references.
func (f *File) Mob(id MobID) *Mob {
	if f == nil || f.index == nil {
		return nil
	}
	return f.index[id]
}

// Compositions returns composition mobs in arena order.
func (f *File) Compositions() []*Mob {
	return f.mobsOfKind(CompositionMob)
}

// Masters returns master mobs in arena order.
func (f *File) Masters() []*Mob {
	return f.mobsOfKind(MasterMob)
}

func (f *File) mobsOfKind(kind MobKind) []*Mob {
	var result []*Mob
	for _, m := range f.Mobs {
		if m.Kind == kind {
			result = append(result, m)
		}
	}
	return result
}

// RootMobs selects the mobs a transcription should start from: top-level
// mobs when declared, else composition mobs, else master mobs. An empty
// container yields an empty selection rather than an error.
func (f *File) RootMobs() []*Mob {
	var top []*Mob
	for _, m := range f.Mobs {
		if m.TopLevel && m.Kind == CompositionMob {
			top = append(top, m)
		}
	}
	if len(top) > 0 {
		return top
	}
	if comps := f.Compositions(); len(comps) > 0 {
		return comps
	}
	return f.Masters()
}
