package vault

// Size reconciliation. A stored slot array can be larger than the size
// a caller asks to display, either because the vault was shrunk by
// configuration or because a previous repack left overflow behind.
// Truncating would destroy items, so the engine repacks instead: every
// stored item is merged into compatible stacks (earliest slot first),
// then placed into the first empty slot, and whatever still does not
// fit rides along as overflow until the next save writes it back.

// repack fits a decoded slot array into a container of the given size.
// size must already be normalized. No item is ever dropped.
func repack(slots []*ItemRecord, size int) *Record {
	rec := &Record{Size: size, Slots: make([]*ItemRecord, size)}

	if len(slots) <= size {
		copy(rec.Slots, slots)
		return rec
	}

	for _, it := range slots {
		if it == nil {
			continue
		}
		if rest := place(rec, it.clone()); rest != nil {
			rec.Overflow = append(rec.Overflow, rest)
		}
	}
	return rec
}

// place inserts an item into the record, merging into existing stacks
// in ascending slot order before occupying empty slots. It returns the
// unplaced remainder, or nil when everything fit.
func place(rec *Record, it *ItemRecord) *ItemRecord {
	limit := it.stackLimit()

	for i := 0; i < rec.Size && it.Count > 0; i++ {
		cur := rec.Slots[i]
		if cur == nil || cur.Count >= limit || !cur.stacksWith(it) {
			continue
		}
		moved := limit - cur.Count
		if moved > it.Count {
			moved = it.Count
		}
		cur.Count += moved
		it.Count -= moved
	}

	for i := 0; i < rec.Size && it.Count > 0; i++ {
		if rec.Slots[i] != nil {
			continue
		}
		if it.Count <= limit {
			rec.Slots[i] = it
			return nil
		}
		part := it.clone()
		part.Count = limit
		rec.Slots[i] = part
		it.Count -= limit
	}

	if it.Count <= 0 {
		return nil
	}
	return it
}

// RecordFromSlots builds a record sized to fit a decoded slot array:
// the smallest whole number of rows that holds every slot, capped at
// the maximum container size with the excess repacked as overflow.
func RecordFromSlots(slots []*ItemRecord) *Record {
	size := (len(slots) + RowSize - 1) / RowSize * RowSize
	if size == 0 {
		size = RowSize
	}
	if size > MaxRows*RowSize {
		size = MaxRows * RowSize
	}
	return repack(slots, size)
}

// flatten appends overflow after the live slots so a save round-trips
// everything the record holds, sized or not.
func flatten(rec *Record) []*ItemRecord {
	if len(rec.Overflow) == 0 {
		return rec.Slots
	}
	out := make([]*ItemRecord, 0, len(rec.Slots)+len(rec.Overflow))
	out = append(out, rec.Slots...)
	out = append(out, rec.Overflow...)
	return out
}
