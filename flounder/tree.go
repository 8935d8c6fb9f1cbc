package flounder

// AddChild appends a *copy* of child to parent's child list: this
// makes a copy of the child so that IR templates are reusable, and the
// copy semantics must be preserved because the emitter depends on
// stable prev/next links. Grounded on
// original_source/src/flounder/ir_base.h's addChild/copyNode: the copy
// duplicates the node's own payload (kind, id, width, text, constant
// value) but shares the copied node's children with the original — only
// the top node is duplicated, so a template's children are not
// recursively cloned. This lets the same template subtree be
// instantiated as a child of many different parents cheaply.
func (a *Arena) AddChild(parent, child NodeID) NodeID {
	if child == InvalidNode {
		return InvalidNode
	}
	src := *a.at(child)
	copy := src
	copy.next = InvalidNode
	copy.prev = InvalidNode
	added := a.alloc(copy)
	a.appendChild(parent, added)
	return added
}

func (a *Arena) appendChild(parent, added NodeID) {
	p := a.at(parent)
	if p.firstChild == InvalidNode {
		p.firstChild = added
		p.lastChild = added
	} else {
		a.at(added).prev = p.lastChild
		a.at(p.lastChild).next = added
		p.lastChild = added
	}
	p.nChildren++
}

// RemoveChild unlinks child from parent's list. child must currently be
// a direct child of parent.
func (a *Arena) RemoveChild(parent, child NodeID) {
	c := a.at(child)
	p := a.at(parent)
	if c.prev != InvalidNode {
		a.at(c.prev).next = c.next
	} else {
		p.firstChild = c.next
	}
	if c.next != InvalidNode {
		a.at(c.next).prev = c.prev
	} else {
		p.lastChild = c.prev
	}
	c.next = InvalidNode
	c.prev = InvalidNode
	p.nChildren--
}

// InsertBeforeChild splices insert into parent's list immediately before
// the existing child "before".
func (a *Arena) InsertBeforeChild(parent, before, insert NodeID) {
	b := a.at(before)
	ins := a.at(insert)
	ins.next = before
	ins.prev = b.prev
	if b.prev != InvalidNode {
		a.at(b.prev).next = insert
	} else {
		a.at(parent).firstChild = insert
	}
	b.prev = insert
	a.at(parent).nChildren++
}

// InsertAfterChild splices insert into parent's list immediately after
// the existing child "after".
func (a *Arena) InsertAfterChild(parent, after, insert NodeID) {
	af := a.at(after)
	ins := a.at(insert)
	ins.prev = after
	ins.next = af.next
	if af.next != InvalidNode {
		a.at(af.next).prev = insert
	} else {
		a.at(parent).lastChild = insert
	}
	af.next = insert
	a.at(parent).nChildren++
}

// ReplaceChild swaps old out for replacement in parent's list, preserving
// position. The child count is unchanged.
func (a *Arena) ReplaceChild(parent, old, replacement NodeID) {
	o := a.at(old)
	r := a.at(replacement)
	r.prev = o.prev
	r.next = o.next
	if o.prev != InvalidNode {
		a.at(o.prev).next = replacement
	} else {
		a.at(parent).firstChild = replacement
	}
	if o.next != InvalidNode {
		a.at(o.next).prev = replacement
	} else {
		a.at(parent).lastChild = replacement
	}
	o.next = InvalidNode
	o.prev = InvalidNode
}

// TransferChildren splices the entire child list of srcRoot into dst,
// positioned immediately after "after" (or at the front if after is
// InvalidNode). This is how jit.Context's pipeline header/footer get
// spliced into the main code tree at Compile() time without copying
// every instruction.
func (a *Arena) TransferChildren(dst, after, srcRoot NodeID) {
	src := a.at(srcRoot)
	first, last := src.firstChild, src.lastChild
	if first == InvalidNode {
		return // nothing to transfer
	}
	src.firstChild = InvalidNode
	src.lastChild = InvalidNode
	n := src.nChildren
	src.nChildren = 0

	d := a.at(dst)
	if after == InvalidNode {
		// prepend
		oldFirst := d.firstChild
		a.at(first).prev = InvalidNode
		if oldFirst == InvalidNode {
			d.lastChild = last
		} else {
			a.at(last).next = oldFirst
			a.at(oldFirst).prev = last
		}
		d.firstChild = first
	} else {
		af := a.at(after)
		tail := af.next
		af.next = first
		a.at(first).prev = after
		if tail == InvalidNode {
			d.lastChild = last
		} else {
			a.at(last).next = tail
			a.at(tail).prev = last
		}
	}
	d.nChildren += n
}
