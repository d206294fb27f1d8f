package peripheral

import (
	"sort"

	"github.com/cornelk/hashmap"
)

// ConnState is the connection state of a central.
type ConnState int

const (
	Disconnected ConnState = iota
	Connected
)

func (s ConnState) String() string {
	if s == Connected {
		return "connected"
	}
	return "disconnected"
}

// A peer is a connected central and what it subscribed to.
// Its fields are guarded by the owning Device's mutex.
type peer struct {
	id    string
	state ConnState
	mtu   int

	// subs maps a characteristic key to whether the central asked for
	// indications rather than notifications.
	subs map[string]bool
}

func newPeer(id string) *peer {
	return &peer{id: id, state: Connected, mtu: DefaultMTU, subs: map[string]bool{}}
}

// ccc returns the Client Characteristic Configuration bits the peer
// has set for characteristic key.
func (p *peer) ccc(key string) []byte {
	ind, ok := p.subs[key]
	switch {
	case !ok:
		return []byte{0x00, 0x00}
	case ind:
		return []byte{cccIndicate, 0x00}
	}
	return []byte{cccNotify, 0x00}
}

// maxNotification is the largest notification payload that fits the
// peer's MTU.
func (p *peer) maxNotification() int { return p.mtu - 3 }

// PeerInfo is a snapshot of a connected central.
type PeerInfo struct {
	ID         string
	State      ConnState
	MTU        int
	Subscribed []string // characteristic keys, sorted
}

// peerTable indexes connected centrals by device id. Membership
// checks are lock free; peer contents are not.
type peerTable struct {
	m *hashmap.Map[string, *peer]
}

func newPeerTable() *peerTable {
	return &peerTable{m: hashmap.New[string, *peer]()}
}

// connect returns the peer for id, creating it if needed.
func (t *peerTable) connect(id string) (p *peer, created bool) {
	if p, ok := t.m.Get(id); ok {
		p.state = Connected
		return p, false
	}
	p = newPeer(id)
	t.m.Set(id, p)
	return p, true
}

func (t *peerTable) get(id string) (*peer, bool) { return t.m.Get(id) }

func (t *peerTable) remove(id string) bool { return t.m.Del(id) }

func (t *peerTable) len() int { return t.m.Len() }

// each calls f for every peer, in device id order.
func (t *peerTable) each(f func(*peer)) {
	var pp []*peer
	t.m.Range(func(_ string, p *peer) bool {
		pp = append(pp, p)
		return true
	})
	sort.Slice(pp, func(i, j int) bool { return pp[i].id < pp[j].id })
	for _, p := range pp {
		f(p)
	}
}

// clear removes every peer and returns the removed ids, sorted.
func (t *peerTable) clear() []string {
	var ids []string
	t.each(func(p *peer) { ids = append(ids, p.id) })
	for _, id := range ids {
		t.m.Del(id)
	}
	return ids
}

func (p *peer) info() PeerInfo {
	subs := make([]string, 0, len(p.subs))
	for k := range p.subs {
		subs = append(subs, k)
	}
	sort.Strings(subs)
	return PeerInfo{ID: p.id, State: p.state, MTU: p.mtu, Subscribed: subs}
}
