package portal

import (
	"slices"
	"sync"

	"github.com/goliatone/go-query-cache/session"
)

// Routes.
const (
	PathHome       = "/"
	PathNews       = "/news"
	PathLogin      = "/login"
	PathBackoffice = "/backoffice"
)

// Link is one navigation bar entry. Links with Logout set are actions that
// call Auth.Logout instead of navigating to Path.
type Link struct {
	Label  string
	Path   string
	Logout bool
}

var (
	publicLinks = []Link{
		{Label: "Inicio", Path: PathHome},
		{Label: "Noticias", Path: PathNews},
	}
	sessionLinks = []Link{
		{Label: "Backoffice", Path: PathBackoffice},
		{Label: "Cerrar Sesión", Path: PathHome, Logout: true},
	}
	guestLinks = []Link{
		{Label: "Iniciar Sesión", Path: PathLogin},
	}

	protectedPaths = []string{PathBackoffice}
)

// LinksFor returns the navigation bar for a session state.
func LinksFor(authenticated bool) []Link {
	out := slices.Clone(publicLinks)
	if authenticated {
		return append(out, sessionLinks...)
	}
	return append(out, guestLinks...)
}

// Navigation keeps the navigation bar in sync with the session store.
type Navigation struct {
	store *session.Store
	stop  func()

	mu        sync.Mutex
	links     []Link
	listeners []func([]Link)
}

// NewNavigation builds the navigation bar for the current session and
// follows later changes until Close.
func NewNavigation(store *session.Store) *Navigation {
	n := &Navigation{
		store: store,
		links: LinksFor(store.Authenticated()),
	}
	n.stop = store.OnChange(n.sessionChanged)
	return n
}

// Links returns the current entries.
func (n *Navigation) Links() []Link {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.links)
}

// OnChange registers fn to receive the entries after every session change.
func (n *Navigation) OnChange(fn func([]Link)) {
	n.mu.Lock()
	n.listeners = append(n.listeners, fn)
	n.mu.Unlock()
}

// Guard decides whether path may be shown. When it may not, redirect is the
// path to show instead.
func (n *Navigation) Guard(path string) (allowed bool, redirect string) {
	if slices.Contains(protectedPaths, path) && !n.store.Authenticated() {
		return false, PathLogin
	}
	return true, ""
}

// Close stops following the session store.
func (n *Navigation) Close() {
	n.stop()
}

func (n *Navigation) sessionChanged(_ string, ok bool) {
	links := LinksFor(ok)

	n.mu.Lock()
	n.links = links
	listeners := slices.Clone(n.listeners)
	n.mu.Unlock()

	for _, fn := range listeners {
		fn(slices.Clone(links))
	}
}
