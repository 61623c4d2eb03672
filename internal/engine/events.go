package engine

// record appends to the event ring and fans out to subscribers. Callers hold
// the mission lock.
func (m *Mission) record(category, kind, playerID, description string) {
	m.seq++
	r := Record{
		Seq:         m.seq,
		Time:        m.clock,
		Category:    category,
		Kind:        kind,
		PlayerID:    playerID,
		Description: description,
	}
	m.ring = append(m.ring, r)
	if len(m.ring) > EventRingSize {
		m.ring = m.ring[len(m.ring)-EventRingSize:]
	}
	for _, ch := range m.subs {
		select {
		case ch <- r:
		default:
			// Slow subscriber; drop rather than stall the tick.
			m.stats.DroppedRecords++
		}
	}
}

// Subscribe returns a channel receiving every new record and a cancel
// function that closes it.
func (m *Mission) Subscribe(buffer int) (<-chan Record, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan Record, buffer)
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	m.mu.Unlock()

	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if c, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

// Events returns up to limit records with a sequence number greater than
// since, oldest first.
func (m *Mission) Events(since uint64, limit int) []Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Record
	for _, r := range m.ring {
		if r.Seq <= since {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}
