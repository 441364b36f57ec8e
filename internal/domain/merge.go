package domain

// AddOne returns a new item list with one more unit of incoming.ProductID.
// The input slice is never modified. updated is true when an existing line was
// incremented rather than appended. The resulting quantity never exceeds stock.
func AddOne(items []LineItem, incoming LineItem, stock int) (out []LineItem, updated bool, err error) {
	out = make([]LineItem, 0, len(items)+1)
	for _, it := range items {
		if it.ProductID != incoming.ProductID {
			out = append(out, it)
			continue
		}
		if stock < it.Qty+1 {
			return nil, false, Errorf(ErrOutOfStock, "Not enough %s in stock", it.Name)
		}
		it.Qty++
		out = append(out, it)
		updated = true
	}
	if updated {
		return out, true, nil
	}

	if stock < 1 {
		return nil, false, Errorf(ErrOutOfStock, "%s is out of stock", incoming.Name)
	}
	incoming.Qty = 1
	return append(out, incoming), false, nil
}

// RemoveOne returns a new item list with one unit of productID taken away. A
// line at quantity 1 is dropped; the order of the other lines is kept.
func RemoveOne(items []LineItem, productID string) (out []LineItem, removed LineItem, err error) {
	found := false
	out = make([]LineItem, 0, len(items))
	for _, it := range items {
		if it.ProductID != productID {
			out = append(out, it)
			continue
		}
		found = true
		removed = it
		if it.Qty > 1 {
			it.Qty--
			out = append(out, it)
		}
	}
	if !found {
		return nil, LineItem{}, Errorf(ErrNotFound, "Item not found in cart")
	}
	return out, removed, nil
}
