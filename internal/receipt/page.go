package receipt

import (
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Page is one mounted instance of the UI: an upload and a status component
// joined by the identifier of the last successful upload
type Page struct {
	Token  string
	Upload *UploadComponent
	Status *StatusComponent

	mu       sync.Mutex
	lastID   int64
	hasLast  bool
	lastSeen time.Time
}

// NewPage mounts a fresh page with idle components
func NewPage(backend Backend) *Page {
	p := &Page{
		Token:    uuid.NewString(),
		lastSeen: time.Now(),
	}
	p.Status = NewStatusComponent(backend, "")
	p.Upload = NewUploadComponent(backend, p.uploaded)
	return p
}

func (p *Page) uploaded(id int64) {
	p.mu.Lock()
	p.lastID = id
	p.hasLast = true
	p.mu.Unlock()

	p.Status.SetDefault(strconv.FormatInt(id, 10))
}

// LastID returns the identifier of the most recent successful upload
func (p *Page) LastID() (int64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastID, p.hasLast
}

// View is a point-in-time copy of everything the page renders
type View struct {
	Token  string
	Upload UploadState
	Status StatusState
}

// View snapshots both components
func (p *Page) View() View {
	return View{
		Token:  p.Token,
		Upload: p.Upload.State(),
		Status: p.Status.State(),
	}
}

func (p *Page) touch(now time.Time) {
	p.mu.Lock()
	p.lastSeen = now
	p.mu.Unlock()
}

func (p *Page) idleSince(now time.Time, ttl time.Duration) bool {
	if p.Upload.State().Pending() || p.Status.State().Pending() {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return now.Sub(p.lastSeen) > ttl
}

// Pages keeps mounted pages in memory until they go idle
type Pages struct {
	backend Backend
	ttl     time.Duration
	now     func() time.Time

	mu    sync.Mutex
	pages map[string]*Page
}

// NewPages creates an empty registry. Pages untouched for longer than ttl are dropped.
func NewPages(backend Backend, ttl time.Duration) *Pages {
	return &Pages{
		backend: backend,
		ttl:     ttl,
		now:     time.Now,
		pages:   make(map[string]*Page),
	}
}

// Mount creates and registers a new page
func (ps *Pages) Mount() *Page {
	p := NewPage(ps.backend)
	now := ps.now()
	p.touch(now)

	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.evictLocked(now)
	ps.pages[p.Token] = p
	return p
}

// Get returns the page for token, or mounts a new one when the token is
// unknown or has expired. The bool reports whether the page already existed.
func (ps *Pages) Get(token string) (*Page, bool) {
	now := ps.now()

	ps.mu.Lock()
	ps.evictLocked(now)
	p, ok := ps.pages[token]
	ps.mu.Unlock()

	if !ok {
		return ps.Mount(), false
	}
	p.touch(now)
	return p, true
}

// Len returns the number of live pages
func (ps *Pages) Len() int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return len(ps.pages)
}

func (ps *Pages) evictLocked(now time.Time) {
	if ps.ttl <= 0 {
		return
	}
	for token, p := range ps.pages {
		if p.idleSince(now, ps.ttl) {
			delete(ps.pages, token)
		}
	}
}
